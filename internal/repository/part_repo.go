package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"maint-engine/backend/internal/model"
	pkgerrors "maint-engine/backend/pkg/errors"
)

// PartRepository 备件数据访问接口
type PartRepository interface {
	Create(ctx context.Context, p *model.Part) error
	GetByID(ctx context.Context, id string) (*model.Part, error)
	GetByIDs(ctx context.Context, ids []string) ([]model.Part, error)
	List(ctx context.Context, machineID string) ([]model.Part, error)
	ListLowStock(ctx context.Context) ([]model.Part, error)
	Update(ctx context.Context, p *model.Part) error
	Delete(ctx context.Context, id string) error
	// ApplyStockDeltas 在一个事务内应用全部库存变动，任何一项不足则全部回滚
	ApplyStockDeltas(ctx context.Context, deltas []model.StockDelta) error
}

type partRepo struct {
	db *gorm.DB
}

// NewPartRepo 创建 PartRepository 实例
func NewPartRepo(db *gorm.DB) PartRepository {
	return &partRepo{db: db}
}

func (r *partRepo) Create(ctx context.Context, p *model.Part) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *partRepo) GetByID(ctx context.Context, id string) (*model.Part, error) {
	var p model.Part
	err := r.db.WithContext(ctx).
		Where("part_id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *partRepo) GetByIDs(ctx context.Context, ids []string) ([]model.Part, error) {
	var parts []model.Part
	if len(ids) == 0 {
		return parts, nil
	}
	err := r.db.WithContext(ctx).
		Where("part_id IN ?", ids).
		Find(&parts).Error
	return parts, err
}

func (r *partRepo) List(ctx context.Context, machineID string) ([]model.Part, error) {
	var parts []model.Part
	db := r.db.WithContext(ctx)
	if machineID != "" {
		db = db.Where("? = ANY(machine_ids)", machineID)
	}
	err := db.Order("part_id ASC").Find(&parts).Error
	return parts, err
}

func (r *partRepo) ListLowStock(ctx context.Context) ([]model.Part, error) {
	var parts []model.Part
	err := r.db.WithContext(ctx).
		Where("stock <= min_stock").
		Order("stock - min_stock ASC, part_id ASC").
		Find(&parts).Error
	return parts, err
}

func (r *partRepo) Update(ctx context.Context, p *model.Part) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *partRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("part_id = ?", id).
		Delete(&model.Part{}).Error
}

// ApplyStockDeltas 以条件更新 stock = stock + delta 写入最新持久化值
// 条件不满足时回读当前库存，返回 InsufficientStockError
func (r *partRepo) ApplyStockDeltas(ctx context.Context, deltas []model.StockDelta) error {
	if len(deltas) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range deltas {
			if d.Delta == 0 {
				continue
			}
			result := tx.Model(&model.Part{}).
				Where("part_id = ? AND stock + ? >= 0", d.PartID, d.Delta).
				Updates(map[string]interface{}{
					"stock":      gorm.Expr("stock + ?", d.Delta),
					"updated_at": gorm.Expr("NOW()"),
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected > 0 {
				continue
			}

			var current model.Part
			if err := tx.Select("part_id", "stock").
				Where("part_id = ?", d.PartID).
				First(&current).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.NewNotFound("part", d.PartID)
				}
				return err
			}
			return &pkgerrors.InsufficientStockError{
				PartID:   d.PartID,
				Stock:    current.Stock,
				Required: -d.Delta,
			}
		}
		return nil
	})
}
