package service

import (
	"maint-engine/backend/internal/model"
)

// CostBreakdown 工单成本拆分
type CostBreakdown struct {
	Parts      float64
	Labor      float64
	Additional float64
}

// Total 总成本
func (b CostBreakdown) Total() float64 {
	return b.Parts + b.Labor + b.Additional
}

// Add 分项累加
func (b CostBreakdown) Add(o CostBreakdown) CostBreakdown {
	return CostBreakdown{
		Parts:      b.Parts + o.Parts,
		Labor:      b.Labor + o.Labor,
		Additional: b.Additional + o.Additional,
	}
}

// CostCalculator 以当前备件单价与人员月薪计算成本
type CostCalculator struct {
	catalog      Catalog
	monthlyHours float64
}

// NewCostCalculator 创建成本计算器，monthlyHours 为月薪折算时薪的除数
func NewCostCalculator(catalog Catalog, monthlyHours float64) *CostCalculator {
	return &CostCalculator{catalog: catalog, monthlyHours: monthlyHours}
}

// Order 计算单个工单成本
// 备件或人员不存在时该项计 0
func (c *CostCalculator) Order(o *model.WorkOrder) CostBreakdown {
	var b CostBreakdown
	for _, u := range o.PartsUsed {
		if p, ok := c.catalog.Part(u.PartID); ok {
			b.Parts += p.UnitCost * float64(u.Quantity)
		}
	}

	hours := TotalWorkDuration(o.WorkIntervals).Hours()
	if hours > 0 {
		var rate float64
		for _, username := range o.Technicians {
			if t, ok := c.catalog.Technician(username); ok {
				rate += t.HourlyRate(c.monthlyHours)
			}
		}
		b.Labor = hours * rate
	}

	b.Additional = o.AdditionalCost
	return b
}

// Orders 汇总多个工单成本，按分项分别累加
func (c *CostCalculator) Orders(orders []model.WorkOrder) CostBreakdown {
	var sum CostBreakdown
	for i := range orders {
		sum = sum.Add(c.Order(&orders[i]))
	}
	return sum
}
