// services/network-svc/internal/handlers/network.go
package handlers

import (
	"math"
	"net/http"
	"strconv"

	"watergrid/pkg/apperror"
	"watergrid/pkg/domain"
	"watergrid/services/network-svc/internal/service"
)

// FlowResponse ответ расчёта потока
type FlowResponse struct {
	Result      domain.FlowResult        `json:"result"`
	Diagnostics []domain.BuildDiagnostic `json:"diagnostics,omitempty"`
	Cached      bool                     `json:"cached"`
}

// SupplyResponse ответ распределения снабжения
type SupplyResponse struct {
	Overview    domain.SupplyOverview    `json:"overview"`
	Diagnostics []domain.BuildDiagnostic `json:"diagnostics,omitempty"`
	Cached      bool                     `json:"cached"`
}

// ScenarioResponse ответ гипотетического расчёта
type ScenarioResponse struct {
	Flow        domain.FlowResult        `json:"flow"`
	Supply      domain.SupplyOverview    `json:"supply"`
	Diagnostics []domain.BuildDiagnostic `json:"diagnostics,omitempty"`
}

// NetworkFlow GET /api/v1/network/flow
//
// Параметры connect_distance и block_distance переопределяют пороги из
// конфигурации. Явный ноль отклоняется: он означал бы сеть без связей.
func (h *Handlers) NetworkFlow(w http.ResponseWriter, r *http.Request) {
	connect, err := queryDistance(r, "connect_distance")
	if err != nil {
		respondError(w, err)
		return
	}

	block, err := queryDistance(r, "block_distance")
	if err != nil {
		respondError(w, err)
		return
	}

	comp, err := h.network.ComputeFlow(r.Context(), service.FlowOptions{
		ConnectDistance: connect,
		BlockDistance:   block,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, FlowResponse{
		Result:      comp.Flow,
		Diagnostics: comp.Diagnostics,
		Cached:      comp.CacheHit,
	})
}

// NetworkSupply GET /api/v1/network/supply
func (h *Handlers) NetworkSupply(w http.ResponseWriter, r *http.Request) {
	comp, err := h.network.ComputeSupply(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, SupplyResponse{
		Overview:    comp.Supply,
		Diagnostics: comp.Diagnostics,
		Cached:      comp.CacheHit,
	})
}

// NetworkScenario POST /api/v1/network/scenario
func (h *Handlers) NetworkScenario(w http.ResponseWriter, r *http.Request) {
	var overrides domain.ScenarioOverrides
	if err := decodeJSON(w, r, &overrides); err != nil {
		respondError(w, err)
		return
	}

	outcome, err := h.network.RunScenario(r.Context(), overrides)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ScenarioResponse{
		Flow:        outcome.Flow,
		Supply:      outcome.Supply,
		Diagnostics: outcome.Diagnostics,
	})
}

// NetworkValidation GET /api/v1/network/validation
func (h *Handlers) NetworkValidation(w http.ResponseWriter, r *http.Request) {
	report, err := h.network.ValidateNetwork(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// queryDistance разбирает порог расстояния в метрах, 0 если не задан
func queryDistance(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperror.NewWithField(apperror.CodeInvalidArgument,
			"distance must be a finite number", name)
	}
	if v <= 0 {
		return 0, apperror.NewWithField(apperror.CodeInvalidArgument,
			"distance must be positive", name)
	}
	return v, nil
}
