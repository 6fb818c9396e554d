// services/network-svc/internal/handlers/handlers_test.go

package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/stretchr/testify/mock"

	"watergrid/pkg/domain"
	"watergrid/services/network-svc/internal/export"
	"watergrid/services/network-svc/internal/repository"
	"watergrid/services/network-svc/internal/service"
)

// ============================================================
// MOCKS
// ============================================================

// MockNetworkAPI mock сетевого сервиса
type MockNetworkAPI struct {
	mock.Mock
}

func (m *MockNetworkAPI) CreateTank(ctx context.Context, tank *domain.Tank) error {
	return m.Called(ctx, tank).Error(0)
}

func (m *MockNetworkAPI) GetTank(ctx context.Context, id string) (*domain.Tank, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tank), args.Error(1)
}

func (m *MockNetworkAPI) ListTanks(ctx context.Context, filter *repository.TankFilter) ([]domain.Tank, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Tank), args.Error(1)
}

func (m *MockNetworkAPI) UpdateTank(ctx context.Context, tank *domain.Tank) error {
	return m.Called(ctx, tank).Error(0)
}

func (m *MockNetworkAPI) DeleteTank(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockNetworkAPI) CreateValve(ctx context.Context, valve *domain.Valve) error {
	return m.Called(ctx, valve).Error(0)
}

func (m *MockNetworkAPI) GetValve(ctx context.Context, id string) (*domain.Valve, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Valve), args.Error(1)
}

func (m *MockNetworkAPI) ListValves(ctx context.Context, filter *repository.ValveFilter) ([]domain.Valve, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Valve), args.Error(1)
}

func (m *MockNetworkAPI) UpdateValve(ctx context.Context, valve *domain.Valve) error {
	return m.Called(ctx, valve).Error(0)
}

func (m *MockNetworkAPI) DeleteValve(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockNetworkAPI) CreatePipeline(ctx context.Context, pipeline *domain.Pipeline) error {
	return m.Called(ctx, pipeline).Error(0)
}

func (m *MockNetworkAPI) GetPipeline(ctx context.Context, id string) (*domain.Pipeline, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Pipeline), args.Error(1)
}

func (m *MockNetworkAPI) ListPipelines(ctx context.Context, filter *repository.PipelineFilter) ([]domain.Pipeline, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Pipeline), args.Error(1)
}

func (m *MockNetworkAPI) UpdatePipeline(ctx context.Context, pipeline *domain.Pipeline) error {
	return m.Called(ctx, pipeline).Error(0)
}

func (m *MockNetworkAPI) DeletePipeline(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockNetworkAPI) ComputeFlow(ctx context.Context, opts service.FlowOptions) (*service.FlowComputation, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.FlowComputation), args.Error(1)
}

func (m *MockNetworkAPI) ComputeSupply(ctx context.Context) (*service.SupplyComputation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SupplyComputation), args.Error(1)
}

func (m *MockNetworkAPI) RunScenario(ctx context.Context, overrides domain.ScenarioOverrides) (*service.ScenarioOutcome, error) {
	args := m.Called(ctx, overrides)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ScenarioOutcome), args.Error(1)
}

func (m *MockNetworkAPI) ValidateNetwork(ctx context.Context) (*domain.ValidationReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ValidationReport), args.Error(1)
}

// MockExportAPI mock сервиса импорта и экспорта
type MockExportAPI struct {
	mock.Mock
}

func (m *MockExportAPI) NetworkWorkbook(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockExportAPI) SupplyWorkbook(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockExportAPI) CoveragePDF(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockExportAPI) ImportNetwork(ctx context.Context, r io.Reader) (*export.ImportReport, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*export.ImportReport), args.Error(1)
}

// ============================================================
// TEST HELPERS
// ============================================================

// newTestRouter мультиплексор с зарегистрированными маршрутами
func newTestRouter(network *MockNetworkAPI, exports *MockExportAPI, checks map[string]HealthCheck) *http.ServeMux {
	mux := http.NewServeMux()
	New(network, exports, checks, domain.DefaultFillThresholds()).RegisterRoutes(mux)
	return mux
}

func doRequest(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}
