package repository

import (
	"context"

	"gorm.io/gorm"

	"maint-engine/backend/internal/model"
)

// RequestFilter 服务请求过滤条件
// MachineIDs 为 nil 表示不限设备，非 nil 的空切片表示无可见设备
type RequestFilter struct {
	Requester  string
	MachineIDs []string
	Status     string
}

// RequestRepository 服务请求数据访问接口
type RequestRepository interface {
	Create(ctx context.Context, req *model.Request) error
	GetByID(ctx context.Context, id string) (*model.Request, error)
	List(ctx context.Context, filter RequestFilter) ([]model.Request, error)
	ListIDs(ctx context.Context) ([]string, error)
	Update(ctx context.Context, req *model.Request) error
	// ApproveIfPending 仅在请求仍为 Pending 时标记为 Approved 并关联工单
	ApproveIfPending(ctx context.Context, id, workOrderID string) (bool, error)
}

type requestRepo struct {
	db *gorm.DB
}

// NewRequestRepo 创建 RequestRepository 实例
func NewRequestRepo(db *gorm.DB) RequestRepository {
	return &requestRepo{db: db}
}

func (r *requestRepo) Create(ctx context.Context, req *model.Request) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *requestRepo) GetByID(ctx context.Context, id string) (*model.Request, error) {
	var req model.Request
	err := r.db.WithContext(ctx).
		Where("request_id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepo) List(ctx context.Context, filter RequestFilter) ([]model.Request, error) {
	var reqs []model.Request
	db := r.db.WithContext(ctx)
	if filter.Requester != "" {
		db = db.Where("requester = ?", filter.Requester)
	}
	if filter.MachineIDs != nil {
		if len(filter.MachineIDs) == 0 {
			return reqs, nil
		}
		db = db.Where("machine_id IN ?", filter.MachineIDs)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	err := db.Order("created_at DESC").Find(&reqs).Error
	return reqs, err
}

func (r *requestRepo) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Request{}).
		Pluck("request_id", &ids).Error
	return ids, err
}

func (r *requestRepo) Update(ctx context.Context, req *model.Request) error {
	return r.db.WithContext(ctx).Save(req).Error
}

func (r *requestRepo) ApproveIfPending(ctx context.Context, id, workOrderID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Request{}).
		Where("request_id = ? AND status = ?", id, model.RequestStatusPending).
		Updates(map[string]interface{}{
			"status":        model.RequestStatusApproved,
			"work_order_id": workOrderID,
			"updated_at":    gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
