package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"maint-engine/backend/config"
	"maint-engine/backend/internal/dto"
	"maint-engine/backend/internal/model"
	"maint-engine/backend/internal/repository"
	"maint-engine/backend/pkg/jwt"
)

var (
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrUserNotFound       = errors.New("用户不存在")
)

// 初始管理员
const (
	bootstrapAdminUsername = "admin"
	bootstrapAdminSalary   = 30000
)

// dummyHash 用户不存在时也做一次比较，使响应时间一致
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

// TokenBlacklist 已注销令牌的存储，由 Redis 实现
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// AuthService 认证业务接口
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	// Logout 将令牌加入黑名单直至其过期
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
	// EnsureBootstrapAdmin 用户表为空时创建初始管理员
	EnsureBootstrapAdmin(ctx context.Context) error
}

type authService struct {
	cfg       *config.Config
	repo      *repository.Repository
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例，blacklist 可为 nil
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:       cfg,
		repo:      repo,
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		logger:    logger,
	}
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询用户
	user, err := s.repo.Technician.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. 生成 Token
	accessToken, err := s.jwtMgr.GenerateAccessToken(user.Username, user.Role)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("用户登录", zap.String("username", user.Username), zap.String("role", user.Role))
	return &dto.TokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   int(s.jwtMgr.TTL().Seconds()),
		User:        toTechnicianResponse(user, s.cfg.Engine.MonthlyWorkHours),
	}, nil
}

func (s *authService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.blacklist == nil || jti == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.blacklist.BlacklistToken(ctx, jti, ttl); err != nil {
		s.logger.Error("注销令牌失败", zap.Error(err))
		return err
	}
	return nil
}

func (s *authService) EnsureBootstrapAdmin(ctx context.Context) error {
	n, err := s.repo.Technician.Count(ctx)
	if err != nil {
		return fmt.Errorf("统计用户失败: %w", err)
	}
	if n > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.cfg.Auth.BootstrapAdminPasswd), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("生成密码哈希失败: %w", err)
	}
	admin := &model.Technician{
		Username:     bootstrapAdminUsername,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		Permissions:  []string{model.PermissionAll},
		Salary:       bootstrapAdminSalary,
	}
	admin.Stamp("", time.Now(), true)
	if err := s.repo.Technician.Create(ctx, admin); err != nil {
		return fmt.Errorf("创建初始管理员失败: %w", err)
	}
	s.logger.Warn("已创建初始管理员，请尽快修改密码", zap.String("username", bootstrapAdminUsername))
	return nil
}
