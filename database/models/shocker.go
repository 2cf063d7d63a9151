package models

import (
	"time"

	"gorm.io/gorm"
)

// Shocker 本地存储的设备行，ShockerID 为 OpenShock 平台颁发的稳定标识，
// 同一用户下唯一，同步时作为匹配本地行的自然键。
type Shocker struct {
	gorm.Model
	UserID    uint   `gorm:"uniqueIndex:idx_user_shocker,where:deleted_at IS NULL;not null"`
	User      User   `gorm:"foreignKey:UserID"`
	ShockerID string `gorm:"uniqueIndex:idx_user_shocker,where:deleted_at IS NULL;size:64;not null"`

	// 只读字段，来源于 OpenShock 平台，仅由同步覆盖
	DeviceName  string `gorm:"size:128"`
	ShockerName string `gorm:"size:128"`
	IsOnline    bool
	IsPaused    bool
	LastSynced  time.Time

	// 用户可编辑字段
	Nickname     string `gorm:"size:128"`
	DisplayOrder int    `gorm:"index"`
	Enabled      bool   `gorm:"default:true"`

	FrequencyMin int `gorm:"default:1"`
	FrequencyMax int `gorm:"default:10"`

	IntensityMin int `gorm:"default:0"`
	IntensityMax int `gorm:"default:100"`

	// 非空时启用自动递增模式，CurrentIntensity 仅在该模式下有意义
	IntensityIncrement *int
	CurrentIntensity   int `gorm:"default:0"`

	DurationMin int `gorm:"default:300"`
	DurationMax int `gorm:"default:30000"`

	PreVibrateEnabled  bool
	PreVibrateDuration int `gorm:"default:1000"`
}

// IncrementEnabled 自动递增模式是否启用
func (s *Shocker) IncrementEnabled() bool {
	return s.IntensityIncrement != nil && *s.IntensityIncrement > 0
}
