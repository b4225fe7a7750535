package dto

// ── 备件模块 DTO ──

// CreatePartRequest 创建备件请求
type CreatePartRequest struct {
	PartID         string   `json:"part_id"        binding:"required,max=50"`
	Description    string   `json:"description"    binding:"required,max=300"`
	Classification string   `json:"classification" binding:"required,oneof=consumable spare"`
	SupplierID     string   `json:"supplier_id"    binding:"omitempty,max=50"`
	MachineIDs     []string `json:"machine_ids"`
	Location       string   `json:"location"       binding:"omitempty,max=200"`
	UnitCost       float64  `json:"unit_cost"      binding:"min=0"`
	Stock          int      `json:"stock"          binding:"min=0"`
	MinStock       int      `json:"min_stock"      binding:"min=0"`
}

// UpdatePartRequest 更新备件请求，NewPartID 非空时改名
type UpdatePartRequest struct {
	NewPartID      *string   `json:"new_part_id"    binding:"omitempty,max=50"`
	Description    *string   `json:"description"    binding:"omitempty,max=300"`
	Classification *string   `json:"classification" binding:"omitempty,oneof=consumable spare"`
	SupplierID     *string   `json:"supplier_id"    binding:"omitempty,max=50"`
	MachineIDs     *[]string `json:"machine_ids"`
	Location       *string   `json:"location"       binding:"omitempty,max=200"`
	UnitCost       *float64  `json:"unit_cost"      binding:"omitempty,min=0"`
	Stock          *int      `json:"stock"          binding:"omitempty,min=0"`
	MinStock       *int      `json:"min_stock"      binding:"omitempty,min=0"`
}

// AdjustStockRequest 手工调整库存（入库为正、出库为负）
type AdjustStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

// PartListRequest 备件列表查询参数
type PartListRequest struct {
	MachineID string `form:"machine_id"`
	LowStock  bool   `form:"low_stock"`
}

// PartResponse 备件信息响应
type PartResponse struct {
	PartID         string   `json:"part_id"`
	Description    string   `json:"description"`
	Classification string   `json:"classification"`
	SupplierID     string   `json:"supplier_id"`
	SupplierName   string   `json:"supplier_name"`
	MachineIDs     []string `json:"machine_ids"`
	Location       string   `json:"location"`
	UnitCost       float64  `json:"unit_cost"`
	Stock          int      `json:"stock"`
	MinStock       int      `json:"min_stock"`
	LowStock       bool     `json:"low_stock"`
	UpdatedAt      string   `json:"updated_at"`
}
