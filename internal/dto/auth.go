package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=50"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse 登录成功响应
type TokenResponse struct {
	AccessToken string             `json:"access_token"`
	ExpiresIn   int                `json:"expires_in"` // 秒
	User        TechnicianResponse `json:"user"`
}
