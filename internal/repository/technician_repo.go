package repository

import (
	"context"

	"gorm.io/gorm"

	"maint-engine/backend/internal/model"
)

// TechnicianRepository 用户数据访问接口
type TechnicianRepository interface {
	Create(ctx context.Context, t *model.Technician) error
	GetByUsername(ctx context.Context, username string) (*model.Technician, error)
	List(ctx context.Context) ([]model.Technician, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, t *model.Technician) error
	Delete(ctx context.Context, username string) error
}

type technicianRepo struct {
	db *gorm.DB
}

// NewTechnicianRepo 创建 TechnicianRepository 实例
func NewTechnicianRepo(db *gorm.DB) TechnicianRepository {
	return &technicianRepo{db: db}
}

func (r *technicianRepo) Create(ctx context.Context, t *model.Technician) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *technicianRepo) GetByUsername(ctx context.Context, username string) (*model.Technician, error) {
	var t model.Technician
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *technicianRepo) List(ctx context.Context) ([]model.Technician, error) {
	var techs []model.Technician
	err := r.db.WithContext(ctx).Order("username ASC").Find(&techs).Error
	return techs, err
}

func (r *technicianRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Technician{}).Count(&n).Error
	return n, err
}

func (r *technicianRepo) Update(ctx context.Context, t *model.Technician) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *technicianRepo) Delete(ctx context.Context, username string) error {
	return r.db.WithContext(ctx).
		Where("username = ?", username).
		Delete(&model.Technician{}).Error
}
