package model

// Supplier 供应商表，对应 suppliers
type Supplier struct {
	SupplierID string `gorm:"type:varchar(50);primaryKey" json:"supplier_id"`
	Name       string `gorm:"type:varchar(200);not null"  json:"name"`
	TaxID      string `gorm:"type:varchar(50)"            json:"tax_id"`
	Phone      string `gorm:"type:varchar(50)"            json:"phone"`
	Email      string `gorm:"type:varchar(255)"           json:"email"`
	Address    string `gorm:"type:varchar(300)"           json:"address"`
	BaseModel
}

// TableName 指定表名
func (Supplier) TableName() string { return "suppliers" }
