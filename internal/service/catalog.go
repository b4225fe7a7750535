package service

import "maint-engine/backend/internal/model"

// Catalog 设备 / 备件 / 人员的只读快照视图
// 由 internal/cache 实现，数据可能滞后于数据库
type Catalog interface {
	Machine(id string) (*model.Machine, bool)
	Part(id string) (*model.Part, bool)
	Technician(username string) (*model.Technician, bool)
	AllMachines() []model.Machine
	AllParts() []model.Part
}

// machineName 设备名称，设备不存在时显示原始 ID
func machineName(c Catalog, id string) string {
	if m, ok := c.Machine(id); ok && m.Name != "" {
		return m.Name
	}
	return id
}
