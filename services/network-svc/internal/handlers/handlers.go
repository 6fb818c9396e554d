// services/network-svc/internal/handlers/handlers.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"watergrid/pkg/apperror"
	"watergrid/pkg/domain"
	"watergrid/services/network-svc/internal/export"
	"watergrid/services/network-svc/internal/repository"
	"watergrid/services/network-svc/internal/service"
)

// Константы
const (
	maxRequestBodyBytes = 4 << 20
	maxImportBodyBytes  = 32 << 20
)

// NetworkAPI операции сетевого сервиса, доступные HTTP слою
type NetworkAPI interface {
	CreateTank(ctx context.Context, tank *domain.Tank) error
	GetTank(ctx context.Context, id string) (*domain.Tank, error)
	ListTanks(ctx context.Context, filter *repository.TankFilter) ([]domain.Tank, error)
	UpdateTank(ctx context.Context, tank *domain.Tank) error
	DeleteTank(ctx context.Context, id string) error

	CreateValve(ctx context.Context, valve *domain.Valve) error
	GetValve(ctx context.Context, id string) (*domain.Valve, error)
	ListValves(ctx context.Context, filter *repository.ValveFilter) ([]domain.Valve, error)
	UpdateValve(ctx context.Context, valve *domain.Valve) error
	DeleteValve(ctx context.Context, id string) error

	CreatePipeline(ctx context.Context, pipeline *domain.Pipeline) error
	GetPipeline(ctx context.Context, id string) (*domain.Pipeline, error)
	ListPipelines(ctx context.Context, filter *repository.PipelineFilter) ([]domain.Pipeline, error)
	UpdatePipeline(ctx context.Context, pipeline *domain.Pipeline) error
	DeletePipeline(ctx context.Context, id string) error

	ComputeFlow(ctx context.Context, opts service.FlowOptions) (*service.FlowComputation, error)
	ComputeSupply(ctx context.Context) (*service.SupplyComputation, error)
	RunScenario(ctx context.Context, overrides domain.ScenarioOverrides) (*service.ScenarioOutcome, error)
	ValidateNetwork(ctx context.Context) (*domain.ValidationReport, error)
}

// ExportAPI операции импорта и экспорта, доступные HTTP слою
type ExportAPI interface {
	NetworkWorkbook(ctx context.Context) ([]byte, error)
	SupplyWorkbook(ctx context.Context) ([]byte, error)
	CoveragePDF(ctx context.Context) ([]byte, error)
	ImportNetwork(ctx context.Context, r io.Reader) (*export.ImportReport, error)
}

// HealthCheck проверка готовности зависимости
type HealthCheck func(ctx context.Context) error

// Handlers HTTP обработчики сетевого сервиса
type Handlers struct {
	network NetworkAPI
	exports ExportAPI
	checks  map[string]HealthCheck
	fill    domain.FillThresholds
}

// New создаёт обработчики. Проверки readiness опциональны;
// нулевые пороги заполнения заменяются порогами по умолчанию.
func New(network NetworkAPI, exports ExportAPI, checks map[string]HealthCheck, fill domain.FillThresholds) *Handlers {
	if fill == (domain.FillThresholds{}) {
		fill = domain.DefaultFillThresholds()
	}
	return &Handlers{
		network: network,
		exports: exports,
		checks:  checks,
		fill:    fill,
	}
}

// RegisterRoutes регистрирует маршруты REST API на мультиплексоре
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/tanks", h.ListTanks)
	mux.HandleFunc("POST /api/v1/tanks", h.CreateTank)
	mux.HandleFunc("GET /api/v1/tanks/{id}", h.GetTank)
	mux.HandleFunc("PUT /api/v1/tanks/{id}", h.UpdateTank)
	mux.HandleFunc("DELETE /api/v1/tanks/{id}", h.DeleteTank)

	mux.HandleFunc("GET /api/v1/valves", h.ListValves)
	mux.HandleFunc("POST /api/v1/valves", h.CreateValve)
	mux.HandleFunc("GET /api/v1/valves/{id}", h.GetValve)
	mux.HandleFunc("PUT /api/v1/valves/{id}", h.UpdateValve)
	mux.HandleFunc("DELETE /api/v1/valves/{id}", h.DeleteValve)

	mux.HandleFunc("GET /api/v1/pipelines", h.ListPipelines)
	mux.HandleFunc("POST /api/v1/pipelines", h.CreatePipeline)
	mux.HandleFunc("GET /api/v1/pipelines/{id}", h.GetPipeline)
	mux.HandleFunc("PUT /api/v1/pipelines/{id}", h.UpdatePipeline)
	mux.HandleFunc("DELETE /api/v1/pipelines/{id}", h.DeletePipeline)

	mux.HandleFunc("GET /api/v1/network/flow", h.NetworkFlow)
	mux.HandleFunc("GET /api/v1/network/supply", h.NetworkSupply)
	mux.HandleFunc("POST /api/v1/network/scenario", h.NetworkScenario)
	mux.HandleFunc("GET /api/v1/network/validation", h.NetworkValidation)

	mux.HandleFunc("GET /api/v1/export/network.xlsx", h.ExportNetworkWorkbook)
	mux.HandleFunc("GET /api/v1/export/supply.xlsx", h.ExportSupplyWorkbook)
	mux.HandleFunc("GET /api/v1/export/coverage.pdf", h.ExportCoveragePDF)
	mux.HandleFunc("POST /api/v1/import/network", h.ImportNetwork)

	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// ==================== RESPONSE HELPERS ====================

// errorBody конверт ошибки API
type errorBody struct {
	Code    apperror.ErrorCode `json:"code"`
	Message string             `json:"message"`
	Details map[string]any     `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, err error) {
	body := errorBody{
		Code:    apperror.Code(err),
		Message: "internal error",
	}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		body.Message = appErr.Message
		if len(appErr.Details) > 0 {
			body.Details = appErr.Details
		}
		if appErr.Field != "" {
			if body.Details == nil {
				body.Details = map[string]any{}
			}
			body.Details["field"] = appErr.Field
		}
	}

	status := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "code", body.Code, "error", err)
	}

	respondJSON(w, status, errorEnvelope{Error: body})
}

// decodeJSON читает тело запроса с ограничением размера
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return apperror.Wrap(err, apperror.CodeInvalidArgument, "malformed request body")
	}
	return nil
}

// ==================== QUERY HELPERS ====================

// queryBool разбирает опциональный булев параметр, nil если не задан
func queryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}

	switch raw {
	case "true", "1":
		v := true
		return &v, nil
	case "false", "0":
		v := false
		return &v, nil
	default:
		return nil, apperror.NewWithField(apperror.CodeInvalidArgument,
			"boolean parameter must be true or false", name)
	}
}
