package service

import (
	"maint-engine/backend/internal/model"
)

// Viewer 当前操作人
type Viewer struct {
	Username          string
	Role              string
	ManagedMachineIDs []string
}

// Scope 按角色计算的可见范围，所有查询路径共用
type Scope struct {
	viewer   Viewer
	machines map[string]struct{} // nil 表示不限设备
	noOrders bool
}

// VisibleScope 由操作人计算可见范围
// AreaSupervisor 仅可见所辖设备；Operator 仅可见本人提交的请求，不可见工单
func VisibleScope(v Viewer) Scope {
	s := Scope{viewer: v}
	switch v.Role {
	case model.RoleAreaSupervisor:
		s.machines = make(map[string]struct{}, len(v.ManagedMachineIDs))
		for _, id := range v.ManagedMachineIDs {
			s.machines[id] = struct{}{}
		}
	case model.RoleOperator:
		s.noOrders = true
	}
	return s
}

func (s Scope) machineVisible(id string) bool {
	if s.machines == nil {
		return true
	}
	_, ok := s.machines[id]
	return ok
}

// Machine 设备是否可见
func (s Scope) Machine(m *model.Machine) bool {
	return s.machineVisible(m.MachineID)
}

// WorkOrder 工单是否可见
func (s Scope) WorkOrder(o *model.WorkOrder) bool {
	if s.noOrders {
		return false
	}
	return s.machineVisible(o.MachineID)
}

// Part 备件是否可见：未关联设备或关联了任一可见设备
func (s Scope) Part(p *model.Part) bool {
	if s.machines == nil || len(p.MachineIDs) == 0 {
		return true
	}
	for _, id := range p.MachineIDs {
		if s.machineVisible(id) {
			return true
		}
	}
	return false
}

// Request 服务请求是否可见
func (s Scope) Request(r *model.Request) bool {
	if s.viewer.Role == model.RoleOperator {
		return r.Requester == s.viewer.Username
	}
	return s.machineVisible(r.MachineID)
}

// OrderMachineIDs 工单查询的设备过滤：nil 表示不限，空切片表示不可见任何工单
func (s Scope) OrderMachineIDs() []string {
	if s.noOrders {
		return []string{}
	}
	return s.machineIDs()
}

// RequestMachineIDs 服务请求查询的设备过滤
func (s Scope) RequestMachineIDs() []string {
	return s.machineIDs()
}

// Requester Operator 只能查询本人请求
func (s Scope) Requester() string {
	if s.viewer.Role == model.RoleOperator {
		return s.viewer.Username
	}
	return ""
}

// Narrow 与单台设备取交集，machineID 为空时不变
func (s Scope) Narrow(machineID string) []string {
	if machineID == "" {
		return s.OrderMachineIDs()
	}
	if s.noOrders || !s.machineVisible(machineID) {
		return []string{}
	}
	return []string{machineID}
}

func (s Scope) machineIDs() []string {
	if s.machines == nil {
		return nil
	}
	ids := make([]string, 0, len(s.machines))
	for id := range s.machines {
		ids = append(ids, id)
	}
	return ids
}

// ResolveViewer 结合内存视图补全 AreaSupervisor 的所辖设备
func ResolveViewer(c Catalog, username, role string) Viewer {
	v := Viewer{Username: username, Role: role}
	if t, ok := c.Technician(username); ok {
		v.ManagedMachineIDs = append([]string(nil), t.ManagedMachineIDs...)
		if t.Role != "" {
			v.Role = t.Role
		}
	}
	return v
}
