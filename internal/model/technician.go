package model

import "github.com/lib/pq"

// 角色
const (
	RoleAdmin          = "Admin"
	RoleAreaSupervisor = "AreaSupervisor"
	RoleTechnician     = "Technician"
	RoleGuest          = "Guest"
	RoleOperator       = "Operator"
)

// 固定权限
const (
	PermissionAll      = "all"
	PermissionReadOnly = "read-only"
	PermissionRequests = "requests"
)

// ValidRole 判断角色是否合法
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleAreaSupervisor, RoleTechnician, RoleGuest, RoleOperator:
		return true
	}
	return false
}

// Technician 用户表，对应 technicians（包含非技术角色）
type Technician struct {
	Username          string         `gorm:"type:varchar(50);primaryKey"  json:"username"`
	PasswordHash      string         `gorm:"type:varchar(255);not null"   json:"-"`
	Role              string         `gorm:"type:varchar(20);not null"    json:"role"`
	Permissions       pq.StringArray `gorm:"type:text[]"                  json:"permissions"`
	ManagedMachineIDs pq.StringArray `gorm:"type:text[]"                  json:"managed_machine_ids"`
	Salary            float64        `gorm:"type:numeric(14,2);not null"  json:"salary"` // 月薪
	BaseModel
}

// TableName 指定表名
func (Technician) TableName() string { return "technicians" }

// HourlyRate 由月薪折算时薪
func (t *Technician) HourlyRate(monthlyHours float64) float64 {
	if monthlyHours <= 0 {
		return 0
	}
	return t.Salary / monthlyHours
}
