package model

import (
	"time"
)

// User 账号主体，只读；登录注册由账号服务负责
type User struct {
	ID        uint64  `gorm:"primaryKey"`
	Username  *string `gorm:"type:varchar(50);uniqueIndex:idx_username"`
	IsBan     bool    `gorm:"type:tinyint(1);default:0"`
	IsDelete  bool    `gorm:"type:tinyint(1);default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Accounts []ConnectedAccount `gorm:"foreignKey:UserID;references:ID"`
}

func (User) TableName() string {
	return "users"
}
