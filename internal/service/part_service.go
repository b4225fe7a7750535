package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"maint-engine/backend/internal/dto"
	"maint-engine/backend/internal/model"
	"maint-engine/backend/internal/repository"
	pkgerrors "maint-engine/backend/pkg/errors"
)

// ── 备件模块业务错误 ──

var (
	ErrPartNotFound = errors.New("备件不存在")
	ErrPartIDExists = errors.New("备件编号已存在")
)

// PartService 备件业务接口
type PartService interface {
	Create(ctx context.Context, viewer Viewer, req *dto.CreatePartRequest) (*dto.PartResponse, error)
	Get(ctx context.Context, viewer Viewer, id string) (*dto.PartResponse, error)
	List(ctx context.Context, viewer Viewer, req *dto.PartListRequest) ([]dto.PartResponse, error)
	Update(ctx context.Context, viewer Viewer, id string, req *dto.UpdatePartRequest) (*dto.PartResponse, error)
	Delete(ctx context.Context, viewer Viewer, id string) error
	// AdjustStock 手工出入库，结果库存不得为负
	AdjustStock(ctx context.Context, viewer Viewer, id string, req *dto.AdjustStockRequest) (*dto.PartResponse, error)
	ListLowStock(ctx context.Context, viewer Viewer) ([]dto.PartResponse, error)
}

type partService struct {
	repo   *repository.Repository
	ledger *StockLedger
	notify *changeNotifier
	clock  Clock
	logger *zap.Logger
}

// NewPartService 创建 PartService 实例
func NewPartService(d Deps) PartService {
	return &partService{
		repo:   d.Repo,
		ledger: NewStockLedger(d.Metrics, d.Logger),
		notify: newChangeNotifier(d.Feed, d.Logger),
		clock:  d.clock(),
		logger: d.Logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *partService) Create(ctx context.Context, viewer Viewer, req *dto.CreatePartRequest) (*dto.PartResponse, error) {
	partID := strings.TrimSpace(req.PartID)
	if partID == "" {
		return nil, pkgerrors.NewValidation("part_id", "备件编号不能为空")
	}
	if err := s.ensureFree(ctx, s.repo, partID); err != nil {
		return nil, err
	}
	if req.UnitCost < 0 {
		return nil, pkgerrors.NewValidation("unit_cost", "单价不能为负")
	}
	if req.Stock < 0 {
		return nil, pkgerrors.NewValidation("stock", "库存不能为负")
	}

	p := &model.Part{
		PartID:         partID,
		Description:    req.Description,
		Classification: req.Classification,
		SupplierID:     req.SupplierID,
		MachineIDs:     dedupe(req.MachineIDs, ""),
		Location:       req.Location,
		UnitCost:       req.UnitCost,
		Stock:          req.Stock,
		MinStock:       req.MinStock,
	}
	p.Stamp(viewer.Username, s.clock.Now(), true)

	if err := s.repo.Part.Create(ctx, p); err != nil {
		s.logger.Error("创建备件失败", zap.String("part_id", partID), zap.Error(err))
		return nil, err
	}
	s.notify.partSaved(ctx, p, true)
	return s.single(ctx, p), nil
}

// ────────────────────── Get / List ──────────────────────

func (s *partService) Get(ctx context.Context, viewer Viewer, id string) (*dto.PartResponse, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !VisibleScope(viewer).Part(p) {
		return nil, ErrPartNotFound
	}
	return s.single(ctx, p), nil
}

func (s *partService) List(ctx context.Context, viewer Viewer, req *dto.PartListRequest) ([]dto.PartResponse, error) {
	var (
		parts []model.Part
		err   error
	)
	if req.LowStock {
		parts, err = s.repo.Part.ListLowStock(ctx)
	} else {
		parts, err = s.repo.Part.List(ctx, req.MachineID)
	}
	if err != nil {
		s.logger.Error("查询备件列表失败", zap.Error(err))
		return nil, err
	}
	return s.visible(ctx, viewer, parts, req.MachineID), nil
}

func (s *partService) ListLowStock(ctx context.Context, viewer Viewer) ([]dto.PartResponse, error) {
	return s.List(ctx, viewer, &dto.PartListRequest{LowStock: true})
}

// ────────────────────── Update ──────────────────────

func (s *partService) Update(ctx context.Context, viewer Viewer, id string, req *dto.UpdatePartRequest) (*dto.PartResponse, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Classification != nil {
		p.Classification = *req.Classification
	}
	if req.SupplierID != nil {
		p.SupplierID = *req.SupplierID
	}
	if req.MachineIDs != nil {
		p.MachineIDs = dedupe(*req.MachineIDs, "")
	}
	if req.Location != nil {
		p.Location = *req.Location
	}
	if req.UnitCost != nil {
		if *req.UnitCost < 0 {
			return nil, pkgerrors.NewValidation("unit_cost", "单价不能为负")
		}
		p.UnitCost = *req.UnitCost
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, pkgerrors.NewValidation("stock", "库存不能为负")
		}
		p.Stock = *req.Stock
	}
	if req.MinStock != nil {
		p.MinStock = *req.MinStock
	}
	p.Stamp(viewer.Username, s.clock.Now(), false)

	renamed := req.NewPartID != nil && *req.NewPartID != "" && *req.NewPartID != id
	if !renamed {
		if err := s.repo.Part.Update(ctx, p); err != nil {
			s.logger.Error("更新备件失败", zap.String("part_id", id), zap.Error(err))
			return nil, err
		}
		s.notify.partSaved(ctx, p, false)
		return s.single(ctx, p), nil
	}

	p.PartID = *req.NewPartID
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := s.ensureFree(ctx, tx, p.PartID); err != nil {
			return err
		}
		if err := tx.Part.Create(ctx, p); err != nil {
			return err
		}
		return tx.Part.Delete(ctx, id)
	})
	if err != nil {
		if !errors.Is(err, ErrPartIDExists) {
			s.logger.Error("备件改名失败", zap.String("part_id", id), zap.Error(err))
		}
		return nil, err
	}
	s.notify.partRemoved(ctx, id)
	s.notify.partSaved(ctx, p, true)
	return s.single(ctx, p), nil
}

// ────────────────────── Delete ──────────────────────

func (s *partService) Delete(ctx context.Context, viewer Viewer, id string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Part.Delete(ctx, id); err != nil {
		s.logger.Error("删除备件失败", zap.String("part_id", id), zap.Error(err))
		return err
	}
	s.logger.Info("备件已删除", zap.String("part_id", id), zap.String("by", viewer.Username))
	s.notify.partRemoved(ctx, id)
	return nil
}

// ────────────────────── AdjustStock ──────────────────────

func (s *partService) AdjustStock(ctx context.Context, viewer Viewer, id string, req *dto.AdjustStockRequest) (*dto.PartResponse, error) {
	p, err := s.ledger.ApplyDelta(ctx, s.repo, id, req.Delta)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, ErrPartNotFound
		}
		return nil, err
	}
	s.logger.Info("库存调整",
		zap.String("part_id", id),
		zap.Int("delta", req.Delta),
		zap.Int("stock", p.Stock),
		zap.String("by", viewer.Username),
	)
	s.notify.partSaved(ctx, p, false)
	return s.single(ctx, p), nil
}

// ────────────────────── 内部方法 ──────────────────────

func (s *partService) load(ctx context.Context, id string) (*model.Part, error) {
	p, err := s.repo.Part.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPartNotFound
		}
		s.logger.Error("查询备件失败", zap.String("part_id", id), zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (s *partService) ensureFree(ctx context.Context, repo *repository.Repository, id string) error {
	_, err := repo.Part.GetByID(ctx, id)
	if err == nil {
		return ErrPartIDExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

func (s *partService) visible(ctx context.Context, viewer Viewer, parts []model.Part, machineID string) []dto.PartResponse {
	names := s.supplierNames(ctx)
	scope := VisibleScope(viewer)
	result := make([]dto.PartResponse, 0, len(parts))
	for i := range parts {
		if !scope.Part(&parts[i]) {
			continue
		}
		if machineID != "" && !containsString(parts[i].MachineIDs, machineID) {
			continue
		}
		result = append(result, toPartResponse(&parts[i], names))
	}
	return result
}

func (s *partService) single(ctx context.Context, p *model.Part) *dto.PartResponse {
	resp := toPartResponse(p, s.supplierNames(ctx))
	return &resp
}

// supplierNames 供应商名称索引，读取失败时回退为显示原始编号
func (s *partService) supplierNames(ctx context.Context) map[string]string {
	suppliers, err := s.repo.Supplier.List(ctx)
	if err != nil {
		s.logger.Warn("查询供应商失败，回退为编号", zap.Error(err))
		return map[string]string{}
	}
	names := make(map[string]string, len(suppliers))
	for _, sp := range suppliers {
		names[sp.SupplierID] = sp.Name
	}
	return names
}

func toPartResponse(p *model.Part, supplierNames map[string]string) dto.PartResponse {
	name, ok := supplierNames[p.SupplierID]
	if !ok {
		name = p.SupplierID
	}
	return dto.PartResponse{
		PartID:         p.PartID,
		Description:    p.Description,
		Classification: p.Classification,
		SupplierID:     p.SupplierID,
		SupplierName:   name,
		MachineIDs:     nonNil(p.MachineIDs),
		Location:       p.Location,
		UnitCost:       p.UnitCost,
		Stock:          p.Stock,
		MinStock:       p.MinStock,
		LowStock:       p.LowStock(),
		UpdatedAt:      p.UpdatedAt.Format(dto.TimeLayout),
	}
}

func containsString(items []string, v string) bool {
	for _, it := range items {
		if it == v {
			return true
		}
	}
	return false
}
