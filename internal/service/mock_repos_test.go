package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"maint-engine/backend/internal/model"
	"maint-engine/backend/internal/repository"
	pkgerrors "maint-engine/backend/pkg/errors"
)

// ── Mock MachineRepository ──

type mockMachineRepo struct {
	machines map[string]model.Machine
}

func newMockMachineRepo() *mockMachineRepo {
	return &mockMachineRepo{machines: make(map[string]model.Machine)}
}

func (m *mockMachineRepo) Create(_ context.Context, mc *model.Machine) error {
	m.machines[mc.MachineID] = *mc
	return nil
}

func (m *mockMachineRepo) GetByID(_ context.Context, id string) (*model.Machine, error) {
	if mc, ok := m.machines[id]; ok {
		return &mc, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMachineRepo) List(_ context.Context) ([]model.Machine, error) {
	result := make([]model.Machine, 0, len(m.machines))
	for _, mc := range m.machines {
		result = append(result, mc)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].MachineID < result[j].MachineID })
	return result, nil
}

func (m *mockMachineRepo) Update(_ context.Context, mc *model.Machine) error {
	m.machines[mc.MachineID] = *mc
	return nil
}

func (m *mockMachineRepo) Delete(_ context.Context, id string) error {
	delete(m.machines, id)
	return nil
}

// ── Mock PartRepository ──

type mockPartRepo struct {
	parts map[string]model.Part
}

func newMockPartRepo() *mockPartRepo {
	return &mockPartRepo{parts: make(map[string]model.Part)}
}

func (m *mockPartRepo) Create(_ context.Context, p *model.Part) error {
	m.parts[p.PartID] = *p
	return nil
}

func (m *mockPartRepo) GetByID(_ context.Context, id string) (*model.Part, error) {
	if p, ok := m.parts[id]; ok {
		return &p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPartRepo) GetByIDs(_ context.Context, ids []string) ([]model.Part, error) {
	var result []model.Part
	for _, id := range ids {
		if p, ok := m.parts[id]; ok {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *mockPartRepo) List(_ context.Context, machineID string) ([]model.Part, error) {
	var result []model.Part
	for _, p := range m.parts {
		if machineID != "" && !containsString(p.MachineIDs, machineID) {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PartID < result[j].PartID })
	return result, nil
}

func (m *mockPartRepo) ListLowStock(_ context.Context) ([]model.Part, error) {
	var result []model.Part
	for _, p := range m.parts {
		if p.LowStock() {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PartID < result[j].PartID })
	return result, nil
}

func (m *mockPartRepo) Update(_ context.Context, p *model.Part) error {
	m.parts[p.PartID] = *p
	return nil
}

func (m *mockPartRepo) Delete(_ context.Context, id string) error {
	delete(m.parts, id)
	return nil
}

// ApplyStockDeltas 全部校验通过后才写入
func (m *mockPartRepo) ApplyStockDeltas(_ context.Context, deltas []model.StockDelta) error {
	next := make(map[string]int, len(deltas))
	for _, d := range deltas {
		p, ok := m.parts[d.PartID]
		if !ok {
			return pkgerrors.NewNotFound("part", d.PartID)
		}
		stock, seen := next[d.PartID]
		if !seen {
			stock = p.Stock
		}
		if stock+d.Delta < 0 {
			return &pkgerrors.InsufficientStockError{PartID: d.PartID, Stock: stock, Required: -d.Delta}
		}
		next[d.PartID] = stock + d.Delta
	}
	for id, stock := range next {
		p := m.parts[id]
		p.Stock = stock
		m.parts[id] = p
	}
	return nil
}

// ── Mock SupplierRepository ──

type mockSupplierRepo struct {
	suppliers map[string]model.Supplier
}

func newMockSupplierRepo() *mockSupplierRepo {
	return &mockSupplierRepo{suppliers: make(map[string]model.Supplier)}
}

func (m *mockSupplierRepo) Create(_ context.Context, s *model.Supplier) error {
	m.suppliers[s.SupplierID] = *s
	return nil
}

func (m *mockSupplierRepo) GetByID(_ context.Context, id string) (*model.Supplier, error) {
	if s, ok := m.suppliers[id]; ok {
		return &s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSupplierRepo) List(_ context.Context) ([]model.Supplier, error) {
	result := make([]model.Supplier, 0, len(m.suppliers))
	for _, s := range m.suppliers {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SupplierID < result[j].SupplierID })
	return result, nil
}

func (m *mockSupplierRepo) Update(_ context.Context, s *model.Supplier) error {
	m.suppliers[s.SupplierID] = *s
	return nil
}

func (m *mockSupplierRepo) Delete(_ context.Context, id string) error {
	delete(m.suppliers, id)
	return nil
}

// ── Mock TechnicianRepository ──

type mockTechnicianRepo struct {
	techs map[string]model.Technician
}

func newMockTechnicianRepo() *mockTechnicianRepo {
	return &mockTechnicianRepo{techs: make(map[string]model.Technician)}
}

func (m *mockTechnicianRepo) Create(_ context.Context, t *model.Technician) error {
	m.techs[t.Username] = *t
	return nil
}

func (m *mockTechnicianRepo) GetByUsername(_ context.Context, username string) (*model.Technician, error) {
	if t, ok := m.techs[username]; ok {
		return &t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTechnicianRepo) List(_ context.Context) ([]model.Technician, error) {
	result := make([]model.Technician, 0, len(m.techs))
	for _, t := range m.techs {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

func (m *mockTechnicianRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.techs)), nil
}

func (m *mockTechnicianRepo) Update(_ context.Context, t *model.Technician) error {
	m.techs[t.Username] = *t
	return nil
}

func (m *mockTechnicianRepo) Delete(_ context.Context, username string) error {
	delete(m.techs, username)
	return nil
}

// ── Mock RequestRepository ──

type mockRequestRepo struct {
	reqs map[string]model.Request
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{reqs: make(map[string]model.Request)}
}

func (m *mockRequestRepo) Create(_ context.Context, r *model.Request) error {
	m.reqs[r.RequestID] = *r
	return nil
}

func (m *mockRequestRepo) GetByID(_ context.Context, id string) (*model.Request, error) {
	if r, ok := m.reqs[id]; ok {
		return &r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRequestRepo) List(_ context.Context, filter repository.RequestFilter) ([]model.Request, error) {
	var result []model.Request
	for _, r := range m.reqs {
		if filter.Requester != "" && r.Requester != filter.Requester {
			continue
		}
		if filter.MachineIDs != nil && !containsString(filter.MachineIDs, r.MachineID) {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *mockRequestRepo) ListIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(m.reqs))
	for id := range m.reqs {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *mockRequestRepo) Update(_ context.Context, r *model.Request) error {
	m.reqs[r.RequestID] = *r
	return nil
}

func (m *mockRequestRepo) ApproveIfPending(_ context.Context, id, workOrderID string) (bool, error) {
	r, ok := m.reqs[id]
	if !ok || r.Status != model.RequestStatusPending {
		return false, nil
	}
	r.Status = model.RequestStatusApproved
	woID := workOrderID
	r.WorkOrderID = &woID
	m.reqs[id] = r
	return true, nil
}

// ── Mock WorkOrderRepository ──

type mockWorkOrderRepo struct {
	orders map[string]model.WorkOrder
}

func newMockWorkOrderRepo() *mockWorkOrderRepo {
	return &mockWorkOrderRepo{orders: make(map[string]model.WorkOrder)}
}

// cloneOrder 复制切片字段，模拟数据库读写不共享内存
func cloneOrder(o model.WorkOrder) model.WorkOrder {
	o.WorkIntervals = append([]model.WorkInterval(nil), o.WorkIntervals...)
	o.PartsUsed = append([]model.PartUsage(nil), o.PartsUsed...)
	o.Technicians = append([]string(nil), o.Technicians...)
	o.SupportTechnicians = append([]string(nil), o.SupportTechnicians...)
	return o
}

func (m *mockWorkOrderRepo) Create(_ context.Context, o *model.WorkOrder) error {
	m.orders[o.OrderID] = cloneOrder(*o)
	return nil
}

func (m *mockWorkOrderRepo) GetByID(_ context.Context, id string) (*model.WorkOrder, error) {
	if o, ok := m.orders[id]; ok {
		c := cloneOrder(o)
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockWorkOrderRepo) GetByIDs(_ context.Context, ids []string) ([]model.WorkOrder, error) {
	var result []model.WorkOrder
	for _, id := range ids {
		if o, ok := m.orders[id]; ok {
			result = append(result, cloneOrder(o))
		}
	}
	return result, nil
}

func (m *mockWorkOrderRepo) List(_ context.Context, filter repository.WorkOrderFilter) ([]model.WorkOrder, int64, error) {
	var result []model.WorkOrder
	for _, o := range m.orders {
		if filter.MachineIDs != nil && !containsString(filter.MachineIDs, o.MachineID) {
			continue
		}
		if len(filter.Statuses) > 0 && !statusIn(o.Status, filter.Statuses) {
			continue
		}
		if filter.Type != "" && o.Type != filter.Type {
			continue
		}
		if filter.Technician != "" && !o.HasTechnician(filter.Technician) {
			continue
		}
		if filter.From != nil || filter.To != nil {
			if o.PrimaryDate == nil || !dateWithin(*o.PrimaryDate, filter.From, filter.To) {
				continue
			}
		}
		result = append(result, cloneOrder(o))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OrderID < result[j].OrderID })
	total := int64(len(result))
	if filter.Limit > 0 {
		if filter.Offset >= len(result) {
			return []model.WorkOrder{}, total, nil
		}
		end := filter.Offset + filter.Limit
		if end > len(result) {
			end = len(result)
		}
		result = result[filter.Offset:end]
	}
	return result, total, nil
}

// dateWithin 与数据库一致按日期字符串比较
func dateWithin(d time.Time, from, to *time.Time) bool {
	day := d.Format("2006-01-02")
	if from != nil && day < from.Format("2006-01-02") {
		return false
	}
	if to != nil && day > to.Format("2006-01-02") {
		return false
	}
	return true
}

func (m *mockWorkOrderRepo) ListIDsByPrefix(_ context.Context, prefix string) ([]string, error) {
	var ids []string
	for id := range m.orders {
		if strings.HasPrefix(id, prefix) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *mockWorkOrderRepo) Update(_ context.Context, o *model.WorkOrder) error {
	m.orders[o.OrderID] = cloneOrder(*o)
	return nil
}

func (m *mockWorkOrderRepo) Delete(_ context.Context, id string) error {
	delete(m.orders, id)
	return nil
}

// ── 测试装配 ──

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

type testEnv struct {
	repo     *repository.Repository
	machines *mockMachineRepo
	parts    *mockPartRepo
	supps    *mockSupplierRepo
	techs    *mockTechnicianRepo
	reqs     *mockRequestRepo
	orders   *mockWorkOrderRepo
}

func newTestEnv() *testEnv {
	env := &testEnv{
		machines: newMockMachineRepo(),
		parts:    newMockPartRepo(),
		supps:    newMockSupplierRepo(),
		techs:    newMockTechnicianRepo(),
		reqs:     newMockRequestRepo(),
		orders:   newMockWorkOrderRepo(),
	}
	env.repo = &repository.Repository{
		Machine:    env.machines,
		Part:       env.parts,
		Supplier:   env.supps,
		Technician: env.techs,
		Request:    env.reqs,
		WorkOrder:  env.orders,
	}
	return env
}
