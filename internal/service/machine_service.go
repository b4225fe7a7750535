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

// ── 设备模块业务错误 ──

var (
	ErrMachineNotFound = errors.New("设备不存在")
	ErrMachineIDExists = errors.New("设备编号已存在")
)

// MachineService 设备业务接口
type MachineService interface {
	Create(ctx context.Context, viewer Viewer, req *dto.CreateMachineRequest) (*dto.MachineResponse, error)
	Get(ctx context.Context, viewer Viewer, id string) (*dto.MachineResponse, error)
	List(ctx context.Context, viewer Viewer) ([]dto.MachineResponse, error)
	// Update NewMachineID 非空时以新编号保存并删除旧记录，引用方保留旧编号
	Update(ctx context.Context, viewer Viewer, id string, req *dto.UpdateMachineRequest) (*dto.MachineResponse, error)
	Delete(ctx context.Context, viewer Viewer, id string) error
}

type machineService struct {
	repo   *repository.Repository
	notify *changeNotifier
	clock  Clock
	logger *zap.Logger
}

// NewMachineService 创建 MachineService 实例
func NewMachineService(d Deps) MachineService {
	return &machineService{
		repo:   d.Repo,
		notify: newChangeNotifier(d.Feed, d.Logger),
		clock:  d.clock(),
		logger: d.Logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *machineService) Create(ctx context.Context, viewer Viewer, req *dto.CreateMachineRequest) (*dto.MachineResponse, error) {
	machineID := strings.TrimSpace(req.MachineID)
	if machineID == "" {
		return nil, pkgerrors.NewValidation("machine_id", "设备编号不能为空")
	}
	if err := s.ensureFree(ctx, s.repo, machineID); err != nil {
		return nil, err
	}

	m := &model.Machine{
		MachineID:        machineID,
		Name:             req.Name,
		Location:         req.Location,
		Type:             req.Type,
		ScheduleDisabled: req.ScheduleDisabled,
	}
	if m.Type == "" {
		m.Type = model.MachineTypeEquipment
	}
	if req.Schedule != nil {
		sched, err := scheduleFromDTO(req.Schedule)
		if err != nil {
			return nil, err
		}
		m.Schedule = sched
	}
	m.Stamp(viewer.Username, s.clock.Now(), true)

	if err := s.repo.Machine.Create(ctx, m); err != nil {
		s.logger.Error("创建设备失败", zap.String("machine_id", machineID), zap.Error(err))
		return nil, err
	}
	s.notify.machineSaved(ctx, m, true)
	return toMachineResponse(m), nil
}

// ────────────────────── Get / List ──────────────────────

func (s *machineService) Get(ctx context.Context, viewer Viewer, id string) (*dto.MachineResponse, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !VisibleScope(viewer).Machine(m) {
		return nil, ErrMachineNotFound
	}
	return toMachineResponse(m), nil
}

func (s *machineService) List(ctx context.Context, viewer Viewer) ([]dto.MachineResponse, error) {
	machines, err := s.repo.Machine.List(ctx)
	if err != nil {
		s.logger.Error("查询设备列表失败", zap.Error(err))
		return nil, err
	}
	scope := VisibleScope(viewer)
	result := make([]dto.MachineResponse, 0, len(machines))
	for i := range machines {
		if scope.Machine(&machines[i]) {
			result = append(result, *toMachineResponse(&machines[i]))
		}
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *machineService) Update(ctx context.Context, viewer Viewer, id string, req *dto.UpdateMachineRequest) (*dto.MachineResponse, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		m.Name = *req.Name
	}
	if req.Location != nil {
		m.Location = *req.Location
	}
	if req.Type != nil {
		m.Type = *req.Type
	}
	if req.ScheduleDisabled != nil {
		m.ScheduleDisabled = *req.ScheduleDisabled
	}
	switch {
	case req.ClearSchedule:
		m.Schedule = nil
	case req.Schedule != nil:
		sched, err := scheduleFromDTO(req.Schedule)
		if err != nil {
			return nil, err
		}
		m.Schedule = sched
	}
	m.Stamp(viewer.Username, s.clock.Now(), false)

	renamed := req.NewMachineID != nil && *req.NewMachineID != "" && *req.NewMachineID != id
	if !renamed {
		if err := s.repo.Machine.Update(ctx, m); err != nil {
			s.logger.Error("更新设备失败", zap.String("machine_id", id), zap.Error(err))
			return nil, err
		}
		s.notify.machineSaved(ctx, m, false)
		return toMachineResponse(m), nil
	}

	m.MachineID = *req.NewMachineID
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := s.ensureFree(ctx, tx, m.MachineID); err != nil {
			return err
		}
		if err := tx.Machine.Create(ctx, m); err != nil {
			return err
		}
		return tx.Machine.Delete(ctx, id)
	})
	if err != nil {
		if !errors.Is(err, ErrMachineIDExists) {
			s.logger.Error("设备改名失败", zap.String("machine_id", id), zap.Error(err))
		}
		return nil, err
	}
	s.notify.machineRemoved(ctx, id)
	s.notify.machineSaved(ctx, m, true)
	return toMachineResponse(m), nil
}

// ────────────────────── Delete ──────────────────────

func (s *machineService) Delete(ctx context.Context, viewer Viewer, id string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Machine.Delete(ctx, id); err != nil {
		s.logger.Error("删除设备失败", zap.String("machine_id", id), zap.Error(err))
		return err
	}
	s.logger.Info("设备已删除", zap.String("machine_id", id), zap.String("by", viewer.Username))
	s.notify.machineRemoved(ctx, id)
	return nil
}

// ────────────────────── 内部方法 ──────────────────────

func (s *machineService) load(ctx context.Context, id string) (*model.Machine, error) {
	m, err := s.repo.Machine.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMachineNotFound
		}
		s.logger.Error("查询设备失败", zap.String("machine_id", id), zap.Error(err))
		return nil, err
	}
	return m, nil
}

func (s *machineService) ensureFree(ctx context.Context, repo *repository.Repository, id string) error {
	_, err := repo.Machine.GetByID(ctx, id)
	if err == nil {
		return ErrMachineIDExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

// scheduleFromDTO 转换并校验排程：启用的分组必须是合法的 HH:MM 且结束晚于开始
func scheduleFromDTO(d *dto.ScheduleDTO) (*model.Schedule, error) {
	sched := &model.Schedule{
		Weekday: model.WeekdayGroup{
			ActiveDays: append([]int(nil), d.Weekday.ActiveDays...),
			StartTime:  d.Weekday.StartTime,
			EndTime:    d.Weekday.EndTime,
		},
		Saturday: model.DayGroup{Active: d.Saturday.Active, StartTime: d.Saturday.StartTime, EndTime: d.Saturday.EndTime},
		Sunday:   model.DayGroup{Active: d.Sunday.Active, StartTime: d.Sunday.StartTime, EndTime: d.Sunday.EndTime},
	}
	for _, day := range sched.Weekday.ActiveDays {
		if day < 1 || day > 5 {
			return nil, pkgerrors.NewValidation("schedule.weekday.active_days", "工作日取值应为 1-5")
		}
	}
	if len(sched.Weekday.ActiveDays) > 0 {
		if err := validateSpan("schedule.weekday", sched.Weekday.StartTime, sched.Weekday.EndTime); err != nil {
			return nil, err
		}
	}
	if sched.Saturday.Active {
		if err := validateSpan("schedule.saturday", sched.Saturday.StartTime, sched.Saturday.EndTime); err != nil {
			return nil, err
		}
	}
	if sched.Sunday.Active {
		if err := validateSpan("schedule.sunday", sched.Sunday.StartTime, sched.Sunday.EndTime); err != nil {
			return nil, err
		}
	}
	return sched, nil
}

func validateSpan(field, start, end string) error {
	from, ok1 := model.ParseClock(start)
	to, ok2 := model.ParseClock(end)
	if !ok1 || !ok2 {
		return pkgerrors.NewValidation(field, "时间格式应为 HH:MM")
	}
	if to <= from {
		return pkgerrors.NewValidation(field, "结束时间必须晚于开始时间")
	}
	return nil
}

func toMachineResponse(m *model.Machine) *dto.MachineResponse {
	resp := &dto.MachineResponse{
		MachineID:        m.MachineID,
		Name:             m.Name,
		Location:         m.Location,
		Type:             m.Type,
		ScheduleDisabled: m.ScheduleDisabled,
		CreatedAt:        m.CreatedAt.Format(dto.TimeLayout),
		UpdatedAt:        m.UpdatedAt.Format(dto.TimeLayout),
	}
	if m.Schedule != nil {
		resp.Schedule = &dto.ScheduleDTO{
			Weekday: dto.WeekdayGroupDTO{
				ActiveDays: append([]int{}, m.Schedule.Weekday.ActiveDays...),
				StartTime:  m.Schedule.Weekday.StartTime,
				EndTime:    m.Schedule.Weekday.EndTime,
			},
			Saturday: dto.DayGroupDTO{Active: m.Schedule.Saturday.Active, StartTime: m.Schedule.Saturday.StartTime, EndTime: m.Schedule.Saturday.EndTime},
			Sunday:   dto.DayGroupDTO{Active: m.Schedule.Sunday.Active, StartTime: m.Schedule.Sunday.StartTime, EndTime: m.Schedule.Sunday.EndTime},
		}
	}
	return resp
}
