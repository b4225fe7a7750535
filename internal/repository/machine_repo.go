package repository

import (
	"context"

	"gorm.io/gorm"

	"maint-engine/backend/internal/model"
)

// MachineRepository 设备数据访问接口
type MachineRepository interface {
	Create(ctx context.Context, m *model.Machine) error
	GetByID(ctx context.Context, id string) (*model.Machine, error)
	List(ctx context.Context) ([]model.Machine, error)
	Update(ctx context.Context, m *model.Machine) error
	Delete(ctx context.Context, id string) error
}

type machineRepo struct {
	db *gorm.DB
}

// NewMachineRepo 创建 MachineRepository 实例
func NewMachineRepo(db *gorm.DB) MachineRepository {
	return &machineRepo{db: db}
}

func (r *machineRepo) Create(ctx context.Context, m *model.Machine) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *machineRepo) GetByID(ctx context.Context, id string) (*model.Machine, error) {
	var m model.Machine
	err := r.db.WithContext(ctx).
		Where("machine_id = ?", id).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *machineRepo) List(ctx context.Context) ([]model.Machine, error) {
	var machines []model.Machine
	err := r.db.WithContext(ctx).Order("machine_id ASC").Find(&machines).Error
	return machines, err
}

func (r *machineRepo) Update(ctx context.Context, m *model.Machine) error {
	return r.db.WithContext(ctx).Save(m).Error
}

// Delete 硬删除，引用该设备的工单与备件保留原始 ID
func (r *machineRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("machine_id = ?", id).
		Delete(&model.Machine{}).Error
}
