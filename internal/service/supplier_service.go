package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"maint-engine/backend/internal/dto"
	"maint-engine/backend/internal/model"
	"maint-engine/backend/internal/repository"
	pkgerrors "maint-engine/backend/pkg/errors"
)

var (
	ErrSupplierNotFound = errors.New("供应商不存在")
	ErrSupplierIDExists = errors.New("供应商编号已存在")
)

// SupplierService 供应商业务接口
type SupplierService interface {
	Create(ctx context.Context, viewer Viewer, req *dto.CreateSupplierRequest) (*dto.SupplierResponse, error)
	Get(ctx context.Context, id string) (*dto.SupplierResponse, error)
	List(ctx context.Context) ([]dto.SupplierResponse, error)
	Update(ctx context.Context, viewer Viewer, id string, req *dto.UpdateSupplierRequest) (*dto.SupplierResponse, error)
	Delete(ctx context.Context, id string) error
}

type supplierService struct {
	repo   *repository.Repository
	clock  Clock
	logger *zap.Logger
}

// NewSupplierService 创建 SupplierService 实例
func NewSupplierService(d Deps) SupplierService {
	return &supplierService{repo: d.Repo, clock: d.clock(), logger: d.Logger}
}

func (s *supplierService) Create(ctx context.Context, viewer Viewer, req *dto.CreateSupplierRequest) (*dto.SupplierResponse, error) {
	id := strings.TrimSpace(req.SupplierID)
	if id == "" {
		return nil, pkgerrors.NewValidation("supplier_id", "供应商编号不能为空")
	}
	if err := ensureSupplierFree(ctx, s.repo, id); err != nil {
		return nil, err
	}

	sp := &model.Supplier{
		SupplierID: id,
		Name:       req.Name,
		TaxID:      req.TaxID,
		Phone:      req.Phone,
		Email:      req.Email,
		Address:    req.Address,
	}
	sp.Stamp(viewer.Username, s.clock.Now(), true)
	if err := s.repo.Supplier.Create(ctx, sp); err != nil {
		s.logger.Error("创建供应商失败", zap.String("supplier_id", id), zap.Error(err))
		return nil, err
	}
	return toSupplierResponse(sp), nil
}

func (s *supplierService) Get(ctx context.Context, id string) (*dto.SupplierResponse, error) {
	sp, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toSupplierResponse(sp), nil
}

func (s *supplierService) List(ctx context.Context) ([]dto.SupplierResponse, error) {
	suppliers, err := s.repo.Supplier.List(ctx)
	if err != nil {
		s.logger.Error("查询供应商列表失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.SupplierResponse, 0, len(suppliers))
	for i := range suppliers {
		result = append(result, *toSupplierResponse(&suppliers[i]))
	}
	return result, nil
}

func (s *supplierService) Update(ctx context.Context, viewer Viewer, id string, req *dto.UpdateSupplierRequest) (*dto.SupplierResponse, error) {
	sp, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		sp.Name = *req.Name
	}
	if req.TaxID != nil {
		sp.TaxID = *req.TaxID
	}
	if req.Phone != nil {
		sp.Phone = *req.Phone
	}
	if req.Email != nil {
		sp.Email = *req.Email
	}
	if req.Address != nil {
		sp.Address = *req.Address
	}
	sp.Stamp(viewer.Username, s.clock.Now(), false)

	if req.NewSupplierID == nil || *req.NewSupplierID == "" || *req.NewSupplierID == id {
		if err := s.repo.Supplier.Update(ctx, sp); err != nil {
			s.logger.Error("更新供应商失败", zap.String("supplier_id", id), zap.Error(err))
			return nil, err
		}
		return toSupplierResponse(sp), nil
	}

	// 改名：以新编号保存后删除旧记录
	sp.SupplierID = *req.NewSupplierID
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := ensureSupplierFree(ctx, tx, sp.SupplierID); err != nil {
			return err
		}
		if err := tx.Supplier.Create(ctx, sp); err != nil {
			return err
		}
		return tx.Supplier.Delete(ctx, id)
	})
	if err != nil {
		if !errors.Is(err, ErrSupplierIDExists) {
			s.logger.Error("供应商改名失败", zap.String("supplier_id", id), zap.Error(err))
		}
		return nil, err
	}
	return toSupplierResponse(sp), nil
}

func (s *supplierService) Delete(ctx context.Context, id string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Supplier.Delete(ctx, id); err != nil {
		s.logger.Error("删除供应商失败", zap.String("supplier_id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *supplierService) load(ctx context.Context, id string) (*model.Supplier, error) {
	sp, err := s.repo.Supplier.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSupplierNotFound
		}
		s.logger.Error("查询供应商失败", zap.String("supplier_id", id), zap.Error(err))
		return nil, err
	}
	return sp, nil
}

func ensureSupplierFree(ctx context.Context, repo *repository.Repository, id string) error {
	_, err := repo.Supplier.GetByID(ctx, id)
	if err == nil {
		return ErrSupplierIDExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

func toSupplierResponse(sp *model.Supplier) *dto.SupplierResponse {
	return &dto.SupplierResponse{
		SupplierID: sp.SupplierID,
		Name:       sp.Name,
		TaxID:      sp.TaxID,
		Phone:      sp.Phone,
		Email:      sp.Email,
		Address:    sp.Address,
	}
}
