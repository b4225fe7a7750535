package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Machine    MachineRepository
	Part       PartRepository
	Supplier   SupplierRepository
	Technician TechnicianRepository
	Request    RequestRepository
	WorkOrder  WorkOrderRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:         db,
		Machine:    NewMachineRepo(db),
		Part:       NewPartRepo(db),
		Supplier:   NewSupplierRepo(db),
		Technician: NewTechnicianRepo(db),
		Request:    NewRequestRepo(db),
		WorkOrder:  NewWorkOrderRepo(db),
	}
}

// WithTx 返回绑定到事务的 Repository 聚合
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// Transaction 在同一个数据库事务内执行 fn
// 未绑定数据库（测试中的内存实现）时直接执行
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}
