// services/network-svc/internal/service/compute.go
package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"watergrid/pkg/apperror"
	"watergrid/pkg/cache"
	"watergrid/pkg/domain"
	"watergrid/pkg/logger"
	"watergrid/pkg/metrics"
	"watergrid/pkg/telemetry"
	"watergrid/services/network-svc/internal/scenario"
	"watergrid/services/network-svc/internal/supply"
	"watergrid/services/network-svc/internal/topology"
)

// FlowOptions переопределения геометрических порогов для одного расчёта.
// Нулевое значение поля означает "взять настройку сервиса".
type FlowOptions struct {
	ConnectDistance float64
	BlockDistance   float64
}

// FlowComputation результат расчёта потока с признаком попадания в кэш
type FlowComputation struct {
	Flow        domain.FlowResult        `json:"flow"`
	Diagnostics []domain.BuildDiagnostic `json:"diagnostics,omitempty"`
	CacheHit    bool                     `json:"cacheHit"`
}

// SupplyComputation результат распределения снабжения с признаком попадания в кэш
type SupplyComputation struct {
	Supply      domain.SupplyOverview    `json:"supply"`
	Diagnostics []domain.BuildDiagnostic `json:"diagnostics,omitempty"`
	CacheHit    bool                     `json:"cacheHit"`
}

// ScenarioOutcome результат гипотетического расчёта "что если"
type ScenarioOutcome struct {
	Flow        domain.FlowResult        `json:"flow"`
	Supply      domain.SupplyOverview    `json:"supply"`
	Diagnostics []domain.BuildDiagnostic `json:"diagnostics,omitempty"`
}

// ============ FLOW ============

// ComputeFlow строит граф сети и классифицирует сегменты трубопроводов
func (s *NetworkService) ComputeFlow(ctx context.Context, opts FlowOptions) (*FlowComputation, error) {
	connect, block, err := s.flowDistances(opts)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "NetworkService.ComputeFlow",
		trace.WithAttributes(
			attribute.Float64("flow.connect_distance_m", connect),
			attribute.Float64("flow.block_distance_m", block),
		),
	)
	defer span.End()

	ctx, cancel := s.computeContext(ctx, s.network.ComputeTimeout)
	defer cancel()

	start := time.Now()

	snapshot, err := s.loadSnapshot(ctx)
	if err != nil {
		metrics.Get().RecordCompute("flow", false, time.Since(start))
		telemetry.SetError(ctx, err)
		return nil, err
	}

	key := flowCacheKey(*snapshot, connect, block)
	if cached, ok := s.cachedFlow(ctx, key); ok {
		telemetry.AddEvent(ctx, "flow_computed",
			telemetry.FlowAttributes(len(cached.Flowing), len(cached.Blocked), true)...)
		return &FlowComputation{Flow: *cached, CacheHit: true}, nil
	}

	flow, diags := topology.ComputeFlow(*snapshot, connect, block)
	s.warnDiagnostics("flow", diags)
	s.storeFlow(ctx, key, flow)

	metrics.Get().RecordCompute("flow", true, time.Since(start))
	metrics.Get().RecordFlowResult(len(flow.Flowing), len(flow.Blocked))
	metrics.Get().RecordNetworkSize(len(snapshot.Tanks), len(snapshot.Valves), len(snapshot.Pipelines))

	telemetry.AddEvent(ctx, "flow_computed",
		telemetry.FlowAttributes(len(flow.Flowing), len(flow.Blocked), false)...)

	return &FlowComputation{Flow: flow, Diagnostics: diags, CacheHit: false}, nil
}

// ============ SUPPLY ============

// ComputeSupply распределяет расчётный поток по задвижкам, домохозяйствам
// и населённым пунктам
func (s *NetworkService) ComputeSupply(ctx context.Context) (*SupplyComputation, error) {
	ctx, span := telemetry.StartSpan(ctx, "NetworkService.ComputeSupply")
	defer span.End()

	ctx, cancel := s.computeContext(ctx, s.network.ComputeTimeout)
	defer cancel()

	start := time.Now()

	snapshot, err := s.loadSnapshot(ctx)
	if err != nil {
		metrics.Get().RecordCompute("supply", false, time.Since(start))
		telemetry.SetError(ctx, err)
		return nil, err
	}

	params := s.supplyParams()
	key := supplyCacheKey(*snapshot, params)
	if cached, ok := s.cachedSupply(ctx, key); ok {
		telemetry.AddEvent(ctx, "supply_computed",
			telemetry.SupplyAttributes(cached.Stats.CoveragePercent, cached.Stats.ServedHouseholds, cached.Stats.TotalHouseholds)...)
		return &SupplyComputation{Supply: *cached, CacheHit: true}, nil
	}

	overview, flow, diags := supply.Compute(*snapshot, params)
	s.warnDiagnostics("supply", diags)
	s.storeSupply(ctx, key, overview)

	metrics.Get().RecordCompute("supply", true, time.Since(start))
	metrics.Get().RecordFlowResult(len(flow.Flowing), len(flow.Blocked))
	metrics.Get().RecordSupplyResult(overview.Stats.CoveragePercent, overview.Stats.ServedHouseholds)
	metrics.Get().RecordNetworkSize(len(snapshot.Tanks), len(snapshot.Valves), len(snapshot.Pipelines))

	telemetry.AddEvent(ctx, "supply_computed",
		telemetry.SupplyAttributes(overview.Stats.CoveragePercent, overview.Stats.ServedHouseholds, overview.Stats.TotalHouseholds)...)

	return &SupplyComputation{Supply: overview, Diagnostics: diags, CacheHit: false}, nil
}

// ============ SCENARIO ============

// RunScenario применяет гипотетические изменения к срезу сети и считает
// снабжение заново. Изменённый срез нигде не сохраняется, результат не
// кэшируется и не попадает в метрики реальной сети.
func (s *NetworkService) RunScenario(ctx context.Context, overrides domain.ScenarioOverrides) (*ScenarioOutcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "NetworkService.RunScenario",
		trace.WithAttributes(
			attribute.Int(telemetry.AttrScenarioOverrides, overrideCount(overrides)),
		),
	)
	defer span.End()

	ctx, cancel := s.computeContext(ctx, s.network.ScenarioComputeTimeout)
	defer cancel()

	start := time.Now()

	snapshot, err := s.loadSnapshot(ctx)
	if err != nil {
		metrics.Get().RecordCompute("scenario", false, time.Since(start))
		telemetry.SetError(ctx, err)
		return nil, err
	}

	modified, diags := scenario.Apply(*snapshot, overrides)

	overview, flow, buildDiags := supply.Compute(modified, s.supplyParams())
	diags = append(diags, buildDiags...)
	s.warnDiagnostics("scenario", diags)

	metrics.Get().RecordCompute("scenario", true, time.Since(start))

	telemetry.AddEvent(ctx, "scenario_completed",
		telemetry.ScenarioAttributes(overrideCount(overrides), len(diags))...)

	return &ScenarioOutcome{Flow: flow, Supply: overview, Diagnostics: diags}, nil
}

// ============ HELPERS ============

// flowDistances накладывает переопределения запроса на настроенные пороги
func (s *NetworkService) flowDistances(opts FlowOptions) (float64, float64, error) {
	if opts.ConnectDistance < 0 {
		return 0, 0, apperror.NewWithField(apperror.CodeInvalidArgument, "connect distance must be positive", "connectDistance")
	}
	if opts.BlockDistance < 0 {
		return 0, 0, apperror.NewWithField(apperror.CodeInvalidArgument, "block distance must be positive", "blockDistance")
	}

	connect := s.network.ConnectDistanceM
	if opts.ConnectDistance > 0 {
		connect = opts.ConnectDistance
	}

	block := s.network.ValveBlockDistanceM
	if opts.BlockDistance > 0 {
		block = opts.BlockDistance
	}

	return connect, block, nil
}

// supplyParams собирает параметры расчёта снабжения из конфигурации
func (s *NetworkService) supplyParams() supply.Params {
	return supply.Params{
		ConnectDistance:     s.network.ConnectDistanceM,
		BlockDistance:       s.network.ValveBlockDistanceM,
		AssociationDistance: s.network.ValveAssociationM,
		CapacityUtilization: s.network.CapacityUtilization,
		HouseholdFlowRate:   s.network.HouseholdFlowRate,
	}
}

// computeContext ограничивает время расчёта настроенным таймаутом
func (s *NetworkService) computeContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// loadSnapshot читает срез сети, переводя ошибки хранилища в доменные
func (s *NetworkService) loadSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	snapshot, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperror.ErrTimeout
		}
		return nil, apperror.Wrap(err, apperror.CodeStorageError, "failed to load network snapshot")
	}
	return snapshot, nil
}

// cachedFlow пытается достать результат потока из кэша
func (s *NetworkService) cachedFlow(ctx context.Context, key string) (*domain.FlowResult, bool) {
	if s.compute == nil {
		return nil, false
	}

	flow, ok, err := s.compute.GetFlow(ctx, key)
	if err != nil {
		logger.Log.Warn("flow cache lookup failed", "error", err)
		return nil, false
	}

	metrics.Get().RecordCacheLookup("flow", ok)
	return flow, ok
}

// storeFlow сохраняет результат потока в кэш
func (s *NetworkService) storeFlow(ctx context.Context, key string, flow domain.FlowResult) {
	if s.compute == nil {
		return
	}

	if err := s.compute.SetFlow(ctx, key, flow, 0); err != nil {
		logger.Log.Warn("failed to cache flow result", "error", err)
	}
}

// cachedSupply пытается достать результат распределения из кэша
func (s *NetworkService) cachedSupply(ctx context.Context, key string) (*domain.SupplyOverview, bool) {
	if s.compute == nil {
		return nil, false
	}

	overview, ok, err := s.compute.GetSupply(ctx, key)
	if err != nil {
		logger.Log.Warn("supply cache lookup failed", "error", err)
		return nil, false
	}

	metrics.Get().RecordCacheLookup("supply", ok)
	return overview, ok
}

// storeSupply сохраняет результат распределения в кэш
func (s *NetworkService) storeSupply(ctx context.Context, key string, overview domain.SupplyOverview) {
	if s.compute == nil {
		return
	}

	if err := s.compute.SetSupply(ctx, key, overview, 0); err != nil {
		logger.Log.Warn("failed to cache supply result", "error", err)
	}
}

// warnDiagnostics пишет диагностику расчёта в лог
func (s *NetworkService) warnDiagnostics(operation string, diags []domain.BuildDiagnostic) {
	for _, d := range diags {
		logger.Log.Warn("network diagnostic",
			"operation", operation,
			"entity_id", d.EntityID,
			"message", d.Message,
		)
	}
}

// overrideCount суммарное число переопределений сценария
func overrideCount(o domain.ScenarioOverrides) int {
	return len(o.CloseValves) + len(o.OpenValves) +
		len(o.DeactivateTanks) + len(o.ActivateTanks) +
		len(o.ExcludePipelines)
}

// flowCacheKey строит ключ кэша потока из хеша среза и параметров расчёта
func flowCacheKey(snapshot domain.Snapshot, connect, block float64) string {
	return cache.BuildKeyWithParams(cache.SnapshotHash(snapshot), cache.HashParams(connect, block))
}

// supplyCacheKey строит ключ кэша снабжения из хеша среза и параметров расчёта
func supplyCacheKey(snapshot domain.Snapshot, params supply.Params) string {
	return cache.BuildKeyWithParams(cache.SnapshotHash(snapshot), cache.HashParams(
		params.ConnectDistance,
		params.BlockDistance,
		params.AssociationDistance,
		params.CapacityUtilization,
		params.HouseholdFlowRate,
	))
}
