package model

import (
	"time"
)

// BaseModel 通用审计字段（所有业务模型嵌入）
// CreatedBy / UpdatedBy 记录操作人用户名
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *string   `gorm:"type:varchar(50)"                   json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:varchar(50)"                   json:"updated_by,omitempty"`
}

// Stamp 填充审计字段，创建时同时写入 CreatedBy
func (b *BaseModel) Stamp(actor string, now time.Time, creating bool) {
	var by *string
	if actor != "" {
		by = &actor
	}
	if creating {
		b.CreatedAt = now
		b.CreatedBy = by
	}
	b.UpdatedAt = now
	b.UpdatedBy = by
}
