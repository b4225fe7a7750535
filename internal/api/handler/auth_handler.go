package handler

import (
	"github.com/gin-gonic/gin"

	"maint-engine/backend/internal/dto"
	"maint-engine/backend/internal/service"
	"maint-engine/backend/pkg/response"
)

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
	techSvc service.TechnicianService
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(authSvc service.AuthService, techSvc service.TechnicianService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, techSvc: techSvc}
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, result)
}

// Logout 注销当前令牌
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	jti, expiresAt, ok := tokenIdentity(c)
	if !ok {
		response.Unauthorized(c, 10002, "未认证")
		return
	}
	if err := h.authSvc.Logout(c.Request.Context(), jti, expiresAt); err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, nil)
}

// Me 当前登录用户
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	username, ok := MustGetUsername(c)
	if !ok {
		return
	}
	user, err := h.techSvc.Get(c.Request.Context(), username)
	if err != nil {
		respondError(c, err)
		return
	}
	response.OK(c, user)
}
