package models

import (
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Username string `gorm:"uniqueIndex;size:64;not null"`
	Password string `gorm:"not null"`

	// OpenShock 平台的个人 API key，未配置时为 NULL
	OpenShockAPIKey *string `gorm:"size:255"`
}

// HasAPIKey 是否已配置 OpenShock API key
func (u *User) HasAPIKey() bool {
	return u.OpenShockAPIKey != nil && *u.OpenShockAPIKey != ""
}

// APIKey 返回 API key，未配置时返回空字符串
func (u *User) APIKey() string {
	if u.OpenShockAPIKey == nil {
		return ""
	}
	return *u.OpenShockAPIKey
}
