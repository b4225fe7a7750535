package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"maint-engine/backend/internal/service"
	"maint-engine/backend/pkg/response"
)

// ViewerFunc 由令牌中的用户名与角色得到当前操作人
type ViewerFunc func(username, role string) service.Viewer

// MustGetUsername 从上下文中获取用户名，失败时直接返回 401
func MustGetUsername(c *gin.Context) (string, bool) {
	username := c.GetString("username")
	if username == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return username, true
}

// currentViewer 解析当前操作人，未认证时已写入 401
func currentViewer(c *gin.Context, resolve ViewerFunc) (service.Viewer, bool) {
	username, ok := MustGetUsername(c)
	if !ok {
		return service.Viewer{}, false
	}
	return resolve(username, c.GetString("role")), true
}

// tokenIdentity 当前令牌的 jti 与过期时间
func tokenIdentity(c *gin.Context) (string, time.Time, bool) {
	jti := c.GetString("token_jti")
	exp, ok := c.Get("token_exp")
	if jti == "" || !ok {
		return "", time.Time{}, false
	}
	expiresAt, ok := exp.(time.Time)
	return jti, expiresAt, ok
}
