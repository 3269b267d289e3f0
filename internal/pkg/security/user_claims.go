package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const JWTExpirationTime = time.Hour * 24

// UserClaims Token 中携带的身份信息，登录服务签发，本服务只负责校验
type UserClaims struct {
	UserID uint64   `json:"user_id"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole 判断是否拥有任一指定角色
func (c *UserClaims) HasRole(roles ...string) bool {
	for _, required := range roles {
		for _, r := range c.Roles {
			if r == required {
				return true
			}
		}
	}
	return false
}
