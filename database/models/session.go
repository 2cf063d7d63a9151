package models

import (
	"time"

	"gorm.io/gorm"
)

// Session 登录会话，保存轮换的刷新令牌（sha256 摘要）
type Session struct {
	gorm.Model
	UserID       uint      `gorm:"index;not null"`
	User         User      `gorm:"foreignKey:UserID"`
	RefreshToken string    `gorm:"uniqueIndex;not null"`
	SessionID    string    `gorm:"uniqueIndex:idx_active_session,where:deleted_at IS NULL"`
	Expiry       time.Time `gorm:"not null"`
}
