package repository

import (
	"context"

	"gorm.io/gorm"

	"maint-engine/backend/internal/model"
)

// SupplierRepository 供应商数据访问接口
type SupplierRepository interface {
	Create(ctx context.Context, s *model.Supplier) error
	GetByID(ctx context.Context, id string) (*model.Supplier, error)
	List(ctx context.Context) ([]model.Supplier, error)
	Update(ctx context.Context, s *model.Supplier) error
	Delete(ctx context.Context, id string) error
}

type supplierRepo struct {
	db *gorm.DB
}

// NewSupplierRepo 创建 SupplierRepository 实例
func NewSupplierRepo(db *gorm.DB) SupplierRepository {
	return &supplierRepo{db: db}
}

func (r *supplierRepo) Create(ctx context.Context, s *model.Supplier) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *supplierRepo) GetByID(ctx context.Context, id string) (*model.Supplier, error) {
	var s model.Supplier
	err := r.db.WithContext(ctx).
		Where("supplier_id = ?", id).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *supplierRepo) List(ctx context.Context) ([]model.Supplier, error) {
	var suppliers []model.Supplier
	err := r.db.WithContext(ctx).Order("name ASC").Find(&suppliers).Error
	return suppliers, err
}

func (r *supplierRepo) Update(ctx context.Context, s *model.Supplier) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *supplierRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("supplier_id = ?", id).
		Delete(&model.Supplier{}).Error
}
