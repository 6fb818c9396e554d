package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"watergrid/pkg/apperror"
	"watergrid/pkg/cache"
	"watergrid/pkg/domain"
)

// ============================================================
// TEST HELPERS
// ============================================================

// computeSnapshot сеть из одного резервуара, магистральной задвижки на
// конце трубопровода и одного сегмента между ними
func computeSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		Tanks: []domain.Tank{{
			ID:             "t1",
			Name:           "Hilltop Tank",
			IsActive:       true,
			CapacityLiters: 10000,
			CurrentLiters:  8000,
			Position:       pos(9.9302, 76.2600),
		}},
		Valves: []domain.Valve{{
			ID:         "v1",
			Name:       "Main Gate",
			IsOpen:     true,
			Category:   domain.ValveCategoryMain,
			Households: 40,
			Locality:   "Kochi",
			Position:   pos(9.9310, 76.2610),
		}},
		Pipelines: []domain.Pipeline{{
			ID:       "p1",
			Name:     "Mainline",
			Active:   true,
			Capacity: 1000,
			Waypoints: []domain.Position{
				pos(9.9302, 76.2600),
				pos(9.9310, 76.2610),
			},
		}},
	}
}

func newComputeService(t *testing.T, snapshots *MockSnapshotReader, withCache bool) *NetworkService {
	t.Helper()

	var compute *cache.ComputeCache
	if withCache {
		mem := cache.NewMemoryCache(cache.DefaultOptions())
		t.Cleanup(func() { _ = mem.Close() })
		compute = cache.NewComputeCache(mem, time.Minute)
	}

	return New(new(MockTankRepository), new(MockValveRepository), new(MockPipelineRepository), snapshots, compute, testNetworkConfig())
}

// ============================================================
// FLOW TESTS
// ============================================================

func TestNetworkService_ComputeFlow(t *testing.T) {
	snapshots := new(MockSnapshotReader)
	snapshots.On("Snapshot", mock.Anything).Return(computeSnapshot(), nil)
	svc := newComputeService(t, snapshots, true)

	first, err := svc.ComputeFlow(context.Background(), FlowOptions{})

	require.NoError(t, err)
	assert.False(t, first.CacheHit)
	require.Len(t, first.Flow.Flowing, 1)
	assert.Empty(t, first.Flow.Blocked)
	assert.Equal(t, 1, first.Flow.TotalSegments)
	assert.Equal(t, "Hilltop Tank", first.Flow.Flowing[0].SourceTank)

	second, err := svc.ComputeFlow(context.Background(), FlowOptions{})

	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	require.Len(t, second.Flow.Flowing, 1)
	assert.Equal(t, first.Flow.TotalSegments, second.Flow.TotalSegments)
}

func TestNetworkService_ComputeFlow_OverrideChangesCacheKey(t *testing.T) {
	snapshots := new(MockSnapshotReader)
	snapshots.On("Snapshot", mock.Anything).Return(computeSnapshot(), nil)
	svc := newComputeService(t, snapshots, true)

	first, err := svc.ComputeFlow(context.Background(), FlowOptions{})
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	// Другой радиус привязки читает кэш по другому ключу
	second, err := svc.ComputeFlow(context.Background(), FlowOptions{ConnectDistance: 120})
	require.NoError(t, err)
	assert.False(t, second.CacheHit)
}

func TestNetworkService_ComputeFlow_RejectsNegativeOverride(t *testing.T) {
	snapshots := new(MockSnapshotReader)
	svc := newComputeService(t, snapshots, false)

	_, err := svc.ComputeFlow(context.Background(), FlowOptions{ConnectDistance: -1})

	require.Error(t, err)
	assert.Equal(t, apperror.CodeInvalidArgument, apperror.Code(err))
	snapshots.AssertNotCalled(t, "Snapshot", mock.Anything)
}

func TestNetworkService_ComputeFlow_StorageError(t *testing.T) {
	snapshots := new(MockSnapshotReader)
	snapshots.On("Snapshot", mock.Anything).Return(nil, errors.New("connection refused"))
	svc := newComputeService(t, snapshots, false)

	_, err := svc.ComputeFlow(context.Background(), FlowOptions{})

	require.Error(t, err)
	assert.Equal(t, apperror.CodeStorageError, apperror.Code(err))
}

func TestNetworkService_ComputeFlow_Timeout(t *testing.T) {
	snapshots := new(MockSnapshotReader)
	snapshots.On("Snapshot", mock.Anything).Return(nil, context.DeadlineExceeded)
	svc := newComputeService(t, snapshots, false)

	_, err := svc.ComputeFlow(context.Background(), FlowOptions{})

	assert.ErrorIs(t, err, apperror.ErrTimeout)
}

func TestNetworkService_ComputeFlow_WithoutCache(t *testing.T) {
	snapshots := new(MockSnapshotReader)
	snapshots.On("Snapshot", mock.Anything).Return(computeSnapshot(), nil)
	svc := newComputeService(t, snapshots, false)

	first, err := svc.ComputeFlow(context.Background(), FlowOptions{})
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := svc.ComputeFlow(context.Background(), FlowOptions{})
	require.NoError(t, err)
	assert.False(t, second.CacheHit)
	assert.Len(t, second.Flow.Flowing, 1)
}

// ============================================================
// SUPPLY TESTS
// ============================================================

func TestNetworkService_ComputeSupply(t *testing.T) {
	snapshots := new(MockSnapshotReader)
	snapshots.On("Snapshot", mock.Anything).Return(computeSnapshot(), nil)
	svc := newComputeService(t, snapshots, true)

	first, err := svc.ComputeSupply(context.Background())

	require.NoError(t, err)
	assert.False(t, first.CacheHit)
	assert.Equal(t, 40, first.Supply.Stats.TotalHouseholds)
	assert.Equal(t, 40, first.Supply.Stats.ServedHouseholds)
	assert.InDelta(t, 100.0, first.Supply.Stats.CoveragePercent, 0.001)
	require.Len(t, first.Supply.Regions, 1)
	assert.Equal(t, "Kochi", first.Supply.Regions[0].Name)
	require.Len(t, first.Supply.ValveTree, 1)

	second, err := svc.ComputeSupply(context.Background())

	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Supply.Stats, second.Supply.Stats)
}

// ============================================================
// SCENARIO TESTS
// ============================================================

func TestNetworkService_RunScenario_CloseValve(t *testing.T) {
	snapshots := new(MockSnapshotReader)
	snapshots.On("Snapshot", mock.Anything).Return(computeSnapshot(), nil)
	svc := newComputeService(t, snapshots, false)

	outcome, err := svc.RunScenario(context.Background(), domain.ScenarioOverrides{
		CloseValves: []string{"v1"},
	})

	require.NoError(t, err)
	assert.Empty(t, outcome.Diagnostics)
	assert.Empty(t, outcome.Flow.Flowing)
	require.Len(t, outcome.Flow.Blocked, 1)
	assert.Equal(t, "Main Gate", outcome.Flow.Blocked[0].BlockedBy)
	assert.Zero(t, outcome.Supply.Stats.ServedHouseholds)
	assert.Zero(t, outcome.Supply.Stats.CoveragePercent)
}

func TestNetworkService_RunScenario_UnknownIDReported(t *testing.T) {
	snapshots := new(MockSnapshotReader)
	snapshots.On("Snapshot", mock.Anything).Return(computeSnapshot(), nil)
	svc := newComputeService(t, snapshots, false)

	outcome, err := svc.RunScenario(context.Background(), domain.ScenarioOverrides{
		CloseValves: []string{"phantom"},
	})

	require.NoError(t, err)
	require.Len(t, outcome.Diagnostics, 1)
	assert.Contains(t, outcome.Diagnostics[0].Message, "closeValves")

	// Неизвестный идентификатор не меняет реальную сеть
	assert.Len(t, outcome.Flow.Flowing, 1)
	assert.Equal(t, 40, outcome.Supply.Stats.ServedHouseholds)
}

func TestNetworkService_RunScenario_DoesNotTouchCache(t *testing.T) {
	ctx := context.Background()

	mem := cache.NewMemoryCache(cache.DefaultOptions())
	t.Cleanup(func() { _ = mem.Close() })
	compute := cache.NewComputeCache(mem, time.Minute)

	snapshots := new(MockSnapshotReader)
	snapshots.On("Snapshot", mock.Anything).Return(computeSnapshot(), nil)
	svc := New(new(MockTankRepository), new(MockValveRepository), new(MockPipelineRepository), snapshots, compute, testNetworkConfig())

	_, err := svc.ComputeFlow(ctx, FlowOptions{})
	require.NoError(t, err)

	keysBefore, err := mem.Keys(ctx, "*")
	require.NoError(t, err)

	_, err = svc.RunScenario(ctx, domain.ScenarioOverrides{CloseValves: []string{"v1"}})
	require.NoError(t, err)

	keysAfter, err := mem.Keys(ctx, "*")
	require.NoError(t, err)
	assert.ElementsMatch(t, keysBefore, keysAfter)

	// Кэшированный поток всё ещё описывает сеть без изменений сценария
	cached, err := svc.ComputeFlow(ctx, FlowOptions{})
	require.NoError(t, err)
	assert.True(t, cached.CacheHit)
	assert.Len(t, cached.Flow.Flowing, 1)
}
