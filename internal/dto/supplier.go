package dto

// ── 供应商模块 DTO ──

// CreateSupplierRequest 创建供应商请求
type CreateSupplierRequest struct {
	SupplierID string `json:"supplier_id" binding:"required,max=50"`
	Name       string `json:"name"        binding:"required,max=200"`
	TaxID      string `json:"tax_id"      binding:"omitempty,max=50"`
	Phone      string `json:"phone"       binding:"omitempty,max=50"`
	Email      string `json:"email"       binding:"omitempty,email,max=255"`
	Address    string `json:"address"     binding:"omitempty,max=300"`
}

// UpdateSupplierRequest 更新供应商请求
type UpdateSupplierRequest struct {
	NewSupplierID *string `json:"new_supplier_id" binding:"omitempty,max=50"`
	Name          *string `json:"name"            binding:"omitempty,max=200"`
	TaxID         *string `json:"tax_id"          binding:"omitempty,max=50"`
	Phone         *string `json:"phone"           binding:"omitempty,max=50"`
	Email         *string `json:"email"           binding:"omitempty,email,max=255"`
	Address       *string `json:"address"         binding:"omitempty,max=300"`
}

// SupplierResponse 供应商信息响应
type SupplierResponse struct {
	SupplierID string `json:"supplier_id"`
	Name       string `json:"name"`
	TaxID      string `json:"tax_id"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Address    string `json:"address"`
}
