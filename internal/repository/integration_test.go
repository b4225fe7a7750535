//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"maint-engine/backend/internal/model"
	"maint-engine/backend/internal/repository"
	"maint-engine/backend/pkg/database"
	pkgerrors "maint-engine/backend/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=maint password=maint_password dbname=maint_engine_test sslmode=disable TimeZone=UTC"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.Exit(code)
}

func uniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func createPart(t *testing.T, repo *repository.Repository, stock int) *model.Part {
	t.Helper()
	p := &model.Part{
		PartID:         uniqueID("P"),
		Description:    "轴承",
		Classification: model.PartClassSpare,
		UnitCost:       50,
		Stock:          stock,
	}
	if err := repo.Part.Create(context.Background(), p); err != nil {
		t.Fatalf("创建备件失败: %v", err)
	}
	t.Cleanup(func() { _ = repo.Part.Delete(context.Background(), p.PartID) })
	return p
}

// ═══════════════════════════════════════════════════════════
// Test: Stock ledger
// ═══════════════════════════════════════════════════════════

func TestPartRepo_ApplyStockDeltas_AllOrNothing(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	p1 := createPart(t, repo, 10)
	p2 := createPart(t, repo, 3)

	err := repo.Part.ApplyStockDeltas(ctx, []model.StockDelta{
		{PartID: p1.PartID, Delta: -4},
		{PartID: p2.PartID, Delta: -5},
	})
	var se *pkgerrors.InsufficientStockError
	if !errors.As(err, &se) {
		t.Fatalf("期望 InsufficientStockError，实际: %v", err)
	}
	if se.PartID != p2.PartID || se.Shortfall() != 2 {
		t.Errorf("错误信息不正确: %+v", se)
	}

	got1, _ := repo.Part.GetByID(ctx, p1.PartID)
	got2, _ := repo.Part.GetByID(ctx, p2.PartID)
	if got1.Stock != 10 || got2.Stock != 3 {
		t.Errorf("失败后库存应全部回滚，实际 p1=%d p2=%d", got1.Stock, got2.Stock)
	}

	if err := repo.Part.ApplyStockDeltas(ctx, []model.StockDelta{
		{PartID: p1.PartID, Delta: -4},
		{PartID: p2.PartID, Delta: 2},
	}); err != nil {
		t.Fatalf("合法扣减应成功: %v", err)
	}
	got1, _ = repo.Part.GetByID(ctx, p1.PartID)
	got2, _ = repo.Part.GetByID(ctx, p2.PartID)
	if got1.Stock != 6 || got2.Stock != 5 {
		t.Errorf("期望 p1=6 p2=5，实际 p1=%d p2=%d", got1.Stock, got2.Stock)
	}
}

func TestPartRepo_ApplyStockDeltas_MissingPart(t *testing.T) {
	repo := repository.NewRepository(testDB)
	err := repo.Part.ApplyStockDeltas(context.Background(), []model.StockDelta{{PartID: "no-such-part", Delta: -1}})
	if !pkgerrors.IsNotFound(err) {
		t.Errorf("期望 NotFoundError，实际: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Work orders
// ═══════════════════════════════════════════════════════════

func TestWorkOrderRepo_RoundTrip(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	start := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	date := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	id := fmt.Sprintf("MA-89-%04d", time.Now().UnixNano()%10000)

	wo := &model.WorkOrder{
		OrderID:        id,
		MachineID:      "M1",
		Type:           model.WorkOrderTypeCorrective,
		Status:         model.WorkOrderStatusPaused,
		LeadTechnician: "ana",
		Technicians:    []string{"ana", "luis"},
		FailureType:    "mecánica",
		PrimaryDate:    &date,
		WorkIntervals:  datatypes.NewJSONSlice([]model.WorkInterval{{Start: start, End: &end}}),
		PartsUsed:      datatypes.NewJSONSlice([]model.PartUsage{{PartID: "P1", Quantity: 2}}),
	}
	if err := repo.WorkOrder.Create(ctx, wo); err != nil {
		t.Fatalf("创建工单失败: %v", err)
	}
	defer func() { _ = repo.WorkOrder.Delete(ctx, id) }()

	got, err := repo.WorkOrder.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("查询工单失败: %v", err)
	}
	if got.Status != model.WorkOrderStatusPaused {
		t.Errorf("status 不一致: %s", got.Status)
	}
	if len(got.WorkIntervals) != 1 || !got.WorkIntervals[0].Start.Equal(start) || !got.WorkIntervals[0].End.Equal(end) {
		t.Errorf("intervals 不一致: %+v", got.WorkIntervals)
	}
	if len(got.PartsUsed) != 1 || got.PartsUsed[0].Quantity != 2 {
		t.Errorf("partsUsed 不一致: %+v", got.PartsUsed)
	}

	orders, total, err := repo.WorkOrder.List(ctx, repository.WorkOrderFilter{Technician: "luis", MachineIDs: []string{"M1"}})
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if total < 1 || len(orders) < 1 {
		t.Error("按技术员过滤应能查到工单")
	}

	ids, err := repo.WorkOrder.ListIDsByPrefix(ctx, "MA-89-")
	if err != nil || len(ids) == 0 {
		t.Errorf("ListIDsByPrefix 失败: %v %v", ids, err)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Requests & transactions
// ═══════════════════════════════════════════════════════════

func TestRequestRepo_ApproveIfPending(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	req := &model.Request{
		RequestID:   uniqueID("SOL")[:20],
		MachineID:   "M1",
		Description: "异响",
		Requester:   "op1",
		Status:      model.RequestStatusPending,
	}
	if err := repo.Request.Create(ctx, req); err != nil {
		t.Fatalf("创建请求失败: %v", err)
	}
	defer testDB.Where("request_id = ?", req.RequestID).Delete(&model.Request{})

	ok, err := repo.Request.ApproveIfPending(ctx, req.RequestID, "MA-25-0001")
	if err != nil || !ok {
		t.Fatalf("首次批准应成功: ok=%v err=%v", ok, err)
	}
	ok, err = repo.Request.ApproveIfPending(ctx, req.RequestID, "MA-25-0002")
	if err != nil || ok {
		t.Fatalf("非 Pending 请求不应被再次批准: ok=%v err=%v", ok, err)
	}

	got, _ := repo.Request.GetByID(ctx, req.RequestID)
	if got.WorkOrderID == nil || *got.WorkOrderID != "MA-25-0001" {
		t.Errorf("关联工单应保持首次写入的值，实际=%v", got.WorkOrderID)
	}
}

func TestRepository_TransactionRollback(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	id := uniqueID("M")

	err := repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Machine.Create(ctx, &model.Machine{MachineID: id, Name: "压机", Type: model.MachineTypeEquipment}); err != nil {
			return err
		}
		return errors.New("中止")
	})
	if err == nil {
		t.Fatal("期望事务返回错误")
	}

	if _, err := repo.Machine.GetByID(ctx, id); !errors.Is(err, gorm.ErrRecordNotFound) {
		_ = repo.Machine.Delete(ctx, id)
		t.Fatalf("回滚后不应查到设备，实际: %v", err)
	}
}
