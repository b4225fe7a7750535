package model

import "github.com/lib/pq"

// 备件分类
const (
	PartClassConsumable = "consumable"
	PartClassSpare      = "spare"
)

// Part 备件表，对应 parts
type Part struct {
	PartID         string         `gorm:"type:varchar(50);primaryKey"     json:"part_id"`
	Description    string         `gorm:"type:varchar(300);not null"      json:"description"`
	Classification string         `gorm:"type:varchar(20);not null"       json:"classification"` // consumable | spare
	SupplierID     string         `gorm:"type:varchar(50)"                json:"supplier_id"`
	MachineIDs     pq.StringArray `gorm:"type:text[]"                     json:"machine_ids"`
	Location       string         `gorm:"type:varchar(200)"               json:"location"`
	UnitCost       float64        `gorm:"type:numeric(14,2);not null"     json:"unit_cost"`
	Stock          int            `gorm:"not null;default:0"              json:"stock"`
	MinStock       int            `gorm:"not null;default:0"              json:"min_stock"`
	BaseModel
}

// TableName 指定表名
func (Part) TableName() string { return "parts" }

// LowStock 库存是否已到最低库存线
func (p *Part) LowStock() bool { return p.Stock <= p.MinStock }

// StockDelta 一次库存变动，Delta 为负表示出库
type StockDelta struct {
	PartID string
	Delta  int
}
