package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"maint-engine/backend/internal/dto"
	"maint-engine/backend/internal/model"
	"maint-engine/backend/internal/repository"
	pkgerrors "maint-engine/backend/pkg/errors"
)

var (
	ErrUsernameExists   = errors.New("用户名已存在")
	ErrCannotDeleteSelf = errors.New("不能删除当前登录的账号")
)

// TechnicianService 用户管理业务接口
type TechnicianService interface {
	Create(ctx context.Context, viewer Viewer, req *dto.CreateTechnicianRequest) (*dto.TechnicianResponse, error)
	Get(ctx context.Context, username string) (*dto.TechnicianResponse, error)
	List(ctx context.Context) ([]dto.TechnicianResponse, error)
	// Update 未提供密码时保留原密码
	Update(ctx context.Context, viewer Viewer, username string, req *dto.UpdateTechnicianRequest) (*dto.TechnicianResponse, error)
	Delete(ctx context.Context, viewer Viewer, username string) error
}

type technicianService struct {
	repo         *repository.Repository
	notify       *changeNotifier
	clock        Clock
	monthlyHours float64
	logger       *zap.Logger
}

// NewTechnicianService 创建 TechnicianService 实例
func NewTechnicianService(d Deps) TechnicianService {
	return &technicianService{
		repo:         d.Repo,
		notify:       newChangeNotifier(d.Feed, d.Logger),
		clock:        d.clock(),
		monthlyHours: d.Engine.MonthlyWorkHours,
		logger:       d.Logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *technicianService) Create(ctx context.Context, viewer Viewer, req *dto.CreateTechnicianRequest) (*dto.TechnicianResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, pkgerrors.NewValidation("username", "用户名不能为空")
	}
	if !model.ValidRole(req.Role) {
		return nil, pkgerrors.NewValidation("role", "角色无效")
	}
	_, err := s.repo.Technician.GetByUsername(ctx, username)
	if err == nil {
		return nil, ErrUsernameExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("生成密码哈希失败", zap.Error(err))
		return nil, err
	}

	t := &model.Technician{
		Username:          username,
		PasswordHash:      string(hash),
		Role:              req.Role,
		Permissions:       req.Permissions,
		ManagedMachineIDs: req.ManagedMachineIDs,
		Salary:            req.Salary,
	}
	applyRoleRules(t)
	t.Stamp(viewer.Username, s.clock.Now(), true)

	if err := s.repo.Technician.Create(ctx, t); err != nil {
		s.logger.Error("创建用户失败", zap.String("username", username), zap.Error(err))
		return nil, err
	}
	s.notify.technicianSaved(ctx, t, true)
	resp := toTechnicianResponse(t, s.monthlyHours)
	return &resp, nil
}

// ────────────────────── Get / List ──────────────────────

func (s *technicianService) Get(ctx context.Context, username string) (*dto.TechnicianResponse, error) {
	t, err := s.load(ctx, username)
	if err != nil {
		return nil, err
	}
	resp := toTechnicianResponse(t, s.monthlyHours)
	return &resp, nil
}

func (s *technicianService) List(ctx context.Context) ([]dto.TechnicianResponse, error) {
	techs, err := s.repo.Technician.List(ctx)
	if err != nil {
		s.logger.Error("查询用户列表失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.TechnicianResponse, 0, len(techs))
	for i := range techs {
		result = append(result, toTechnicianResponse(&techs[i], s.monthlyHours))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *technicianService) Update(ctx context.Context, viewer Viewer, username string, req *dto.UpdateTechnicianRequest) (*dto.TechnicianResponse, error) {
	t, err := s.load(ctx, username)
	if err != nil {
		return nil, err
	}

	if req.Password != nil && *req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			s.logger.Error("生成密码哈希失败", zap.Error(err))
			return nil, err
		}
		t.PasswordHash = string(hash)
	}
	if req.Role != nil {
		if !model.ValidRole(*req.Role) {
			return nil, pkgerrors.NewValidation("role", "角色无效")
		}
		t.Role = *req.Role
	}
	if req.Permissions != nil {
		t.Permissions = *req.Permissions
	}
	if req.ManagedMachineIDs != nil {
		t.ManagedMachineIDs = *req.ManagedMachineIDs
	}
	if req.Salary != nil {
		t.Salary = *req.Salary
	}
	applyRoleRules(t)
	t.Stamp(viewer.Username, s.clock.Now(), false)

	if err := s.repo.Technician.Update(ctx, t); err != nil {
		s.logger.Error("更新用户失败", zap.String("username", username), zap.Error(err))
		return nil, err
	}
	s.notify.technicianSaved(ctx, t, false)
	resp := toTechnicianResponse(t, s.monthlyHours)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *technicianService) Delete(ctx context.Context, viewer Viewer, username string) error {
	if username == viewer.Username {
		return ErrCannotDeleteSelf
	}
	if _, err := s.load(ctx, username); err != nil {
		return err
	}
	if err := s.repo.Technician.Delete(ctx, username); err != nil {
		s.logger.Error("删除用户失败", zap.String("username", username), zap.Error(err))
		return err
	}
	s.notify.technicianRemoved(ctx, username)
	return nil
}

// ────────────────────── 内部方法 ──────────────────────

func (s *technicianService) load(ctx context.Context, username string) (*model.Technician, error) {
	t, err := s.repo.Technician.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("username", username), zap.Error(err))
		return nil, err
	}
	return t, nil
}

// applyRoleRules 按角色固定权限：Admin 全部权限，Guest 只读，Operator 仅提交请求且不计薪
// 只有 AreaSupervisor 保留所辖设备
func applyRoleRules(t *model.Technician) {
	switch t.Role {
	case model.RoleAdmin:
		t.Permissions = []string{model.PermissionAll}
	case model.RoleGuest:
		t.Permissions = []string{model.PermissionReadOnly}
	case model.RoleOperator:
		t.Permissions = []string{model.PermissionRequests}
		t.Salary = 0
	}
	if t.Role != model.RoleAreaSupervisor {
		t.ManagedMachineIDs = nil
	}
	if t.Permissions == nil {
		t.Permissions = []string{}
	}
}

func toTechnicianResponse(t *model.Technician, monthlyHours float64) dto.TechnicianResponse {
	return dto.TechnicianResponse{
		Username:          t.Username,
		Role:              t.Role,
		Permissions:       nonNil(t.Permissions),
		ManagedMachineIDs: nonNil(t.ManagedMachineIDs),
		Salary:            t.Salary,
		HourlyRate:        t.HourlyRate(monthlyHours),
	}
}
