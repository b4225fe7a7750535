package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"maint-engine/backend/internal/model"
)

// WorkOrderFilter 工单过滤条件
// MachineIDs 为 nil 表示不限设备，非 nil 的空切片表示无可见设备
type WorkOrderFilter struct {
	MachineIDs []string
	Statuses   []string
	Type       string
	Technician string
	From       *time.Time // primary_date >= From
	To         *time.Time // primary_date <= To
	Offset     int
	Limit      int
}

// WorkOrderRepository 工单数据访问接口
type WorkOrderRepository interface {
	Create(ctx context.Context, wo *model.WorkOrder) error
	GetByID(ctx context.Context, id string) (*model.WorkOrder, error)
	GetByIDs(ctx context.Context, ids []string) ([]model.WorkOrder, error)
	List(ctx context.Context, filter WorkOrderFilter) ([]model.WorkOrder, int64, error)
	ListIDsByPrefix(ctx context.Context, prefix string) ([]string, error)
	Update(ctx context.Context, wo *model.WorkOrder) error
	Delete(ctx context.Context, id string) error
}

type workOrderRepo struct {
	db *gorm.DB
}

// NewWorkOrderRepo 创建 WorkOrderRepository 实例
func NewWorkOrderRepo(db *gorm.DB) WorkOrderRepository {
	return &workOrderRepo{db: db}
}

func (r *workOrderRepo) Create(ctx context.Context, wo *model.WorkOrder) error {
	return r.db.WithContext(ctx).Create(wo).Error
}

func (r *workOrderRepo) GetByID(ctx context.Context, id string) (*model.WorkOrder, error) {
	var wo model.WorkOrder
	err := r.db.WithContext(ctx).
		Where("order_id = ?", id).
		First(&wo).Error
	if err != nil {
		return nil, err
	}
	return &wo, nil
}

func (r *workOrderRepo) GetByIDs(ctx context.Context, ids []string) ([]model.WorkOrder, error) {
	var orders []model.WorkOrder
	if len(ids) == 0 {
		return orders, nil
	}
	err := r.db.WithContext(ctx).
		Where("order_id IN ?", ids).
		Find(&orders).Error
	return orders, err
}

func (r *workOrderRepo) List(ctx context.Context, filter WorkOrderFilter) ([]model.WorkOrder, int64, error) {
	var (
		orders []model.WorkOrder
		total  int64
	)
	db := r.db.WithContext(ctx).Model(&model.WorkOrder{})

	if filter.MachineIDs != nil {
		if len(filter.MachineIDs) == 0 {
			return orders, 0, nil
		}
		db = db.Where("machine_id IN ?", filter.MachineIDs)
	}
	if len(filter.Statuses) > 0 {
		db = db.Where("status IN ?", filter.Statuses)
	}
	if filter.Type != "" {
		db = db.Where("type = ?", filter.Type)
	}
	if filter.Technician != "" {
		db = db.Where("? = ANY(technicians)", filter.Technician)
	}
	if filter.From != nil {
		db = db.Where("primary_date >= ?", filter.From.Format("2006-01-02"))
	}
	if filter.To != nil {
		db = db.Where("primary_date <= ?", filter.To.Format("2006-01-02"))
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = db.Order("primary_date ASC NULLS LAST, order_id ASC")
	if filter.Limit > 0 {
		db = db.Offset(filter.Offset).Limit(filter.Limit)
	}
	if err := db.Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *workOrderRepo) ListIDsByPrefix(ctx context.Context, prefix string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.WorkOrder{}).
		Where("order_id LIKE ?", prefix+"%").
		Pluck("order_id", &ids).Error
	return ids, err
}

func (r *workOrderRepo) Update(ctx context.Context, wo *model.WorkOrder) error {
	return r.db.WithContext(ctx).Save(wo).Error
}

func (r *workOrderRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("order_id = ?", id).
		Delete(&model.WorkOrder{}).Error
}
