package model

import (
	"time"
)

// GlobalAccountUserID UserID 为 0 的账号是平台级的全局账号
const GlobalAccountUserID uint64 = 0

// ConnectedAccount 用户已授权的平台账号
type ConnectedAccount struct {
	ID             uint64   `gorm:"primaryKey"`
	UserID         uint64   `gorm:"not null;uniqueIndex:idx_user_platform"`
	Platform       Platform `gorm:"type:varchar(20);not null;uniqueIndex:idx_user_platform"`
	Connected      bool     `gorm:"type:tinyint(1);not null;default:0"`
	AccessToken    string   `gorm:"type:text"`
	PageID         string   `gorm:"type:varchar(64)"`
	AccountID      string   `gorm:"type:varchar(64)"`
	AccountName    string   `gorm:"type:varchar(128)"`
	TokenExpiresAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (ConnectedAccount) TableName() string {
	return "connected_accounts"
}

// Usable 已连接且持有 token
func (a *ConnectedAccount) Usable() bool {
	if a == nil || !a.Connected || a.AccessToken == "" {
		return false
	}
	if a.TokenExpiresAt != nil && a.TokenExpiresAt.Before(time.Now()) {
		return false
	}
	return true
}
