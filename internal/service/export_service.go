package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"maint-engine/backend/internal/dto"
	"maint-engine/backend/internal/model"
	"maint-engine/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoOrders     = errors.New("统计周期内没有工单")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 成本台账：统计周期内可见的工单，每行一个工单，末行合计
// 导出以 bytes.Buffer 返回，由 Handler 层设置响应头后写入
type ExportService interface {
	ExportCosts(ctx context.Context, viewer Viewer, req *dto.PeriodRequest) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo    *repository.Repository
	catalog Catalog
	cost    *CostCalculator
	period  periodResolver
	logger  *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(d Deps) ExportService {
	return &exportService{
		repo:    d.Repo,
		catalog: d.Catalog,
		cost:    NewCostCalculator(d.Catalog, d.Engine.MonthlyWorkHours),
		period:  periodResolver{clock: d.clock(), loc: d.Engine.Location()},
		logger:  d.Logger,
	}
}

var costLedgerHeaders = []string{
	"工单号", "设备", "类型", "状态", "主日期", "负责人", "工时(小时)",
	"备件成本", "人工成本", "附加成本", "总成本",
}

func (s *exportService) ExportCosts(ctx context.Context, viewer Viewer, req *dto.PeriodRequest) (*bytes.Buffer, string, error) {
	// 1. 解析周期并查询工单
	p, err := s.period.resolve(req)
	if err != nil {
		return nil, "", err
	}
	orders, err := ordersInPeriod(ctx, s.repo, VisibleScope(viewer).OrderMachineIDs(), p)
	if err != nil {
		s.logger.Error("查询导出工单失败", zap.Error(err))
		return nil, "", err
	}
	if len(orders) == 0 {
		return nil, "", ErrExportNoOrders
	}

	// 2. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "成本台账"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 14)
	f.SetColWidth(sheetName, "B", "B", 24)
	f.SetColWidth(sheetName, "C", "F", 14)
	f.SetColWidth(sheetName, "G", "K", 13)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	moneyStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("成本台账 %s ~ %s", p.From.Format(dto.DateLayout), p.To.Format(dto.DateLayout)))
	f.MergeCell(sheetName, "A1", cell(colName(len(costLedgerHeaders)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	for i, h := range costLedgerHeaders {
		f.SetCellValue(sheetName, cell(colName(i), row), h)
	}
	f.SetCellStyle(sheetName, cell("A", row), cell(colName(len(costLedgerHeaders)-1), row), headerStyle)

	// 数据行
	var sum CostBreakdown
	var hours float64
	for i := range orders {
		row++
		o := &orders[i]
		c := s.cost.Order(o)
		worked := TotalWorkDuration(o.WorkIntervals).Hours()
		sum = sum.Add(c)
		hours += worked

		primary := "-"
		if o.PrimaryDate != nil {
			primary = o.PrimaryDate.Format(dto.DateLayout)
		}
		values := []interface{}{
			o.OrderID, machineName(s.catalog, o.MachineID), o.Type, o.Status, primary,
			o.LeadTechnician, worked, c.Parts, c.Labor, c.Additional, c.Total(),
		}
		for j, v := range values {
			f.SetCellValue(sheetName, cell(colName(j), row), v)
		}
	}

	// 合计行
	row++
	f.SetCellValue(sheetName, cell("A", row), "合计")
	f.SetCellValue(sheetName, cell("G", row), hours)
	f.SetCellValue(sheetName, cell("H", row), sum.Parts)
	f.SetCellValue(sheetName, cell("I", row), sum.Labor)
	f.SetCellValue(sheetName, cell("J", row), sum.Additional)
	f.SetCellValue(sheetName, cell("K", row), sum.Total())
	f.SetCellStyle(sheetName, cell("G", 3), cell("K", row), moneyStyle)

	// 状态汇总
	summary := "状态汇总"
	f.NewSheet(summary)
	f.SetCellValue(summary, "A1", "状态")
	f.SetCellValue(summary, "B1", "工单数")
	f.SetCellStyle(summary, "A1", "B1", headerStyle)
	counts := countByStatus(orders)
	for i, st := range []string{
		model.WorkOrderStatusPending, model.WorkOrderStatusInProgress, model.WorkOrderStatusPaused,
		model.WorkOrderStatusCompleted, model.WorkOrderStatusCancelled,
	} {
		f.SetCellValue(summary, cell("A", i+2), st)
		f.SetCellValue(summary, cell("B", i+2), counts[st])
	}

	// 3. 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("成本台账_%s_%s.xlsx", p.From.Format(dto.DateLayout), p.To.Format(dto.DateLayout))
	return buf, filename, nil
}

// countByStatus 各状态工单数
func countByStatus(orders []model.WorkOrder) map[string]int {
	out := make(map[string]int)
	for i := range orders {
		out[orders[i].Status]++
	}
	return out
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
