// services/network-svc/internal/service/service.go
package service

import (
	"context"
	"fmt"

	"watergrid/pkg/apperror"
	"watergrid/pkg/cache"
	"watergrid/pkg/config"
	"watergrid/pkg/domain"
	"watergrid/pkg/logger"
	"watergrid/pkg/telemetry"
	"watergrid/services/network-svc/internal/repository"
)

// NetworkService бизнес-логика водораспределительной сети
type NetworkService struct {
	tanks     repository.TankRepository
	valves    repository.ValveRepository
	pipelines repository.PipelineRepository
	snapshots repository.SnapshotReader

	compute *cache.ComputeCache
	network config.NetworkConfig
}

// New создаёт сервис сети. computeCache может быть nil, тогда
// результаты расчётов не кэшируются.
func New(
	tanks repository.TankRepository,
	valves repository.ValveRepository,
	pipelines repository.PipelineRepository,
	snapshots repository.SnapshotReader,
	computeCache *cache.ComputeCache,
	network config.NetworkConfig,
) *NetworkService {
	return &NetworkService{
		tanks:     tanks,
		valves:    valves,
		pipelines: pipelines,
		snapshots: snapshots,
		compute:   computeCache,
		network:   network,
	}
}

// ============ TANKS ============

// CreateTank проверяет и сохраняет новый резервуар
func (s *NetworkService) CreateTank(ctx context.Context, tank *domain.Tank) error {
	ctx, span := telemetry.StartSpan(ctx, "NetworkService.CreateTank")
	defer span.End()

	if err := validateTank(tank); err != nil {
		return err
	}

	if err := s.tanks.Create(ctx, tank); err != nil {
		telemetry.SetError(ctx, err)
		return err
	}

	s.invalidateComputations(ctx)
	return nil
}

// GetTank возвращает резервуар по идентификатору
func (s *NetworkService) GetTank(ctx context.Context, id string) (*domain.Tank, error) {
	ctx, span := telemetry.StartSpan(ctx, "NetworkService.GetTank")
	defer span.End()

	tank, err := s.tanks.GetByID(ctx, id)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	return tank, nil
}

// ListTanks возвращает резервуары, подходящие под фильтр
func (s *NetworkService) ListTanks(ctx context.Context, filter *repository.TankFilter) ([]domain.Tank, error) {
	ctx, span := telemetry.StartSpan(ctx, "NetworkService.ListTanks")
	defer span.End()

	tanks, err := s.tanks.List(ctx, filter)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	return tanks, nil
}

// UpdateTank проверяет и перезаписывает существующий резервуар
func (s *NetworkService) UpdateTank(ctx context.Context, tank *domain.Tank) error {
	ctx, span := telemetry.StartSpan(ctx, "NetworkService.UpdateTank")
	defer span.End()

	if tank != nil && tank.ID == "" {
		return apperror.NewWithField(apperror.CodeInvalidArgument, "id is required", "id")
	}
	if err := validateTank(tank); err != nil {
		return err
	}

	if err := s.tanks.Update(ctx, tank); err != nil {
		telemetry.SetError(ctx, err)
		return err
	}

	s.invalidateComputations(ctx)
	return nil
}

// DeleteTank удаляет резервуар
func (s *NetworkService) DeleteTank(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "NetworkService.DeleteTank")
	defer span.End()

	if err := s.tanks.Delete(ctx, id); err != nil {
		telemetry.SetError(ctx, err)
		return err
	}

	s.invalidateComputations(ctx)
	return nil
}

// ============ VALVES ============

// CreateValve проверяет и сохраняет новую задвижку
func (s *NetworkService) CreateValve(ctx context.Context, valve *domain.Valve) error {
	ctx, span := telemetry.StartSpan(ctx, "NetworkService.CreateValve")
	defer span.End()

	if err := validateValve(valve); err != nil {
		return err
	}

	if err := s.valves.Create(ctx, valve); err != nil {
		telemetry.SetError(ctx, err)
		return err
	}

	s.invalidateComputations(ctx)
	return nil
}

// GetValve возвращает задвижку по идентификатору
func (s *NetworkService) GetValve(ctx context.Context, id string) (*domain.Valve, error) {
	ctx, span := telemetry.StartSpan(ctx, "NetworkService.GetValve")
	defer span.End()

	valve, err := s.valves.GetByID(ctx, id)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	return valve, nil
}

// ListValves возвращает задвижки, подходящие под фильтр
func (s *NetworkService) ListValves(ctx context.Context, filter *repository.ValveFilter) ([]domain.Valve, error) {
	ctx, span := telemetry.StartSpan(ctx, "NetworkService.ListValves")
	defer span.End()

	valves, err := s.valves.List(ctx, filter)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	return valves, nil
}

// UpdateValve проверяет и перезаписывает существующую задвижку
func (s *NetworkService) UpdateValve(ctx context.Context, valve *domain.Valve) error {
	ctx, span := telemetry.StartSpan(ctx, "NetworkService.UpdateValve")
	defer span.End()

	if valve != nil && valve.ID == "" {
		return apperror.NewWithField(apperror.CodeInvalidArgument, "id is required", "id")
	}
	if err := validateValve(valve); err != nil {
		return err
	}

	if err := s.valves.Update(ctx, valve); err != nil {
		telemetry.SetError(ctx, err)
		return err
	}

	s.invalidateComputations(ctx)
	return nil
}

// DeleteValve удаляет задвижку
func (s *NetworkService) DeleteValve(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "NetworkService.DeleteValve")
	defer span.End()

	if err := s.valves.Delete(ctx, id); err != nil {
		telemetry.SetError(ctx, err)
		return err
	}

	s.invalidateComputations(ctx)
	return nil
}

// ============ PIPELINES ============

// CreatePipeline проверяет и сохраняет новый трубопровод
func (s *NetworkService) CreatePipeline(ctx context.Context, pipeline *domain.Pipeline) error {
	ctx, span := telemetry.StartSpan(ctx, "NetworkService.CreatePipeline")
	defer span.End()

	if err := validatePipeline(pipeline); err != nil {
		return err
	}

	if err := s.pipelines.Create(ctx, pipeline); err != nil {
		telemetry.SetError(ctx, err)
		return err
	}

	s.invalidateComputations(ctx)
	return nil
}

// GetPipeline возвращает трубопровод по идентификатору
func (s *NetworkService) GetPipeline(ctx context.Context, id string) (*domain.Pipeline, error) {
	ctx, span := telemetry.StartSpan(ctx, "NetworkService.GetPipeline")
	defer span.End()

	pipeline, err := s.pipelines.GetByID(ctx, id)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	return pipeline, nil
}

// ListPipelines возвращает трубопроводы, подходящие под фильтр
func (s *NetworkService) ListPipelines(ctx context.Context, filter *repository.PipelineFilter) ([]domain.Pipeline, error) {
	ctx, span := telemetry.StartSpan(ctx, "NetworkService.ListPipelines")
	defer span.End()

	pipelines, err := s.pipelines.List(ctx, filter)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	return pipelines, nil
}

// UpdatePipeline проверяет и перезаписывает существующий трубопровод
func (s *NetworkService) UpdatePipeline(ctx context.Context, pipeline *domain.Pipeline) error {
	ctx, span := telemetry.StartSpan(ctx, "NetworkService.UpdatePipeline")
	defer span.End()

	if pipeline != nil && pipeline.ID == "" {
		return apperror.NewWithField(apperror.CodeInvalidArgument, "id is required", "id")
	}
	if err := validatePipeline(pipeline); err != nil {
		return err
	}

	if err := s.pipelines.Update(ctx, pipeline); err != nil {
		telemetry.SetError(ctx, err)
		return err
	}

	s.invalidateComputations(ctx)
	return nil
}

// DeletePipeline отключает трубопровод (мягкое удаление в хранилище)
func (s *NetworkService) DeletePipeline(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "NetworkService.DeletePipeline")
	defer span.End()

	if err := s.pipelines.Delete(ctx, id); err != nil {
		telemetry.SetError(ctx, err)
		return err
	}

	s.invalidateComputations(ctx)
	return nil
}

// ============ VALIDATION ============

// validateTank проверяет поля резервуара перед записью
func validateTank(tank *domain.Tank) error {
	if tank == nil {
		return apperror.New(apperror.CodeInvalidArgument, "tank is required")
	}
	if tank.Name == "" {
		return apperror.NewWithField(apperror.CodeInvalidArgument, "name is required", "name")
	}
	if !tank.Position.IsValid() {
		return apperror.NewWithField(apperror.CodeInvalidPosition, "position coordinates must be finite numbers", "position")
	}
	if tank.CapacityLiters <= 0 {
		return apperror.NewWithField(apperror.CodeInvalidCapacity, "capacity must be positive", "capacityLiters")
	}
	if tank.CurrentLiters < 0 || tank.CurrentLiters > tank.CapacityLiters {
		return apperror.NewWithField(apperror.CodeInvalidFillLevel, "current level must be between zero and capacity", "currentLiters")
	}
	return nil
}

// validateValve проверяет поля задвижки перед записью
func validateValve(valve *domain.Valve) error {
	if valve == nil {
		return apperror.New(apperror.CodeInvalidArgument, "valve is required")
	}
	if valve.Name == "" {
		return apperror.NewWithField(apperror.CodeInvalidArgument, "name is required", "name")
	}
	if !valve.Position.IsValid() {
		return apperror.NewWithField(apperror.CodeInvalidPosition, "position coordinates must be finite numbers", "position")
	}
	if !valve.Category.IsKnown() {
		return apperror.NewWithField(apperror.CodeUnknownValveCategory,
			fmt.Sprintf("unknown valve category %q", valve.Category), "category")
	}
	if valve.Households < 0 {
		return apperror.NewWithField(apperror.CodeInvalidArgument, "households must not be negative", "households")
	}
	if valve.IsMain() && valve.ParentValveID != "" {
		return apperror.NewWithField(apperror.CodeInvalidArgument, "main valve cannot have a parent valve", "parentValveId")
	}
	return nil
}

// validatePipeline проверяет поля трубопровода перед записью
func validatePipeline(pipeline *domain.Pipeline) error {
	if pipeline == nil {
		return apperror.New(apperror.CodeInvalidArgument, "pipeline is required")
	}
	if pipeline.Name == "" {
		return apperror.NewWithField(apperror.CodeInvalidArgument, "name is required", "name")
	}
	if pipeline.Capacity <= 0 {
		return apperror.NewWithField(apperror.CodeInvalidCapacity, "capacity must be positive", "capacity")
	}
	if len(pipeline.ValidWaypoints()) < 2 {
		return apperror.NewWithField(apperror.CodeTooFewWaypoints, "pipeline needs at least two valid waypoints", "waypoints")
	}
	return nil
}

// ============ CACHE ============

// invalidateComputations сбрасывает кэш расчётов после изменения сети
func (s *NetworkService) invalidateComputations(ctx context.Context) {
	if s.compute == nil {
		return
	}

	if _, err := s.compute.InvalidateAll(ctx); err != nil {
		logger.Log.Warn("failed to invalidate compute cache", "error", err)
	}
}
