// services/network-svc/internal/handlers/valves.go
package handlers

import (
	"net/http"

	"watergrid/pkg/domain"
	"watergrid/services/network-svc/internal/repository"
)

// ValveInput тело запроса создания и обновления задвижки
type ValveInput struct {
	Name          string               `json:"name"`
	Position      domain.Position      `json:"position"`
	IsOpen        *bool                `json:"isOpen,omitempty"`
	Category      domain.ValveCategory `json:"category"`
	ParentValveID string               `json:"parentValveId,omitempty"`
	Households    int                  `json:"households"`
	Locality      string               `json:"locality"`
}

func (in *ValveInput) toDomain() *domain.Valve {
	open := true
	if in.IsOpen != nil {
		open = *in.IsOpen
	}
	return &domain.Valve{
		Name:          in.Name,
		Position:      in.Position,
		IsOpen:        open,
		Category:      in.Category,
		ParentValveID: in.ParentValveID,
		Households:    in.Households,
		Locality:      in.Locality,
	}
}

// ListValves GET /api/v1/valves
func (h *Handlers) ListValves(w http.ResponseWriter, r *http.Request) {
	open, err := queryBool(r, "open")
	if err != nil {
		respondError(w, err)
		return
	}

	filter := &repository.ValveFilter{
		Locality: r.URL.Query().Get("locality"),
		Category: domain.ValveCategory(r.URL.Query().Get("category")),
		Open:     open,
	}

	valves, err := h.network.ListValves(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}

	if valves == nil {
		valves = []domain.Valve{}
	}
	respondJSON(w, http.StatusOK, valves)
}

// CreateValve POST /api/v1/valves
func (h *Handlers) CreateValve(w http.ResponseWriter, r *http.Request) {
	var input ValveInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondError(w, err)
		return
	}

	valve := input.toDomain()
	if err := h.network.CreateValve(r.Context(), valve); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, valve)
}

// GetValve GET /api/v1/valves/{id}
func (h *Handlers) GetValve(w http.ResponseWriter, r *http.Request) {
	valve, err := h.network.GetValve(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, valve)
}

// UpdateValve PUT /api/v1/valves/{id}
func (h *Handlers) UpdateValve(w http.ResponseWriter, r *http.Request) {
	var input ValveInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondError(w, err)
		return
	}

	valve := input.toDomain()
	valve.ID = r.PathValue("id")
	if err := h.network.UpdateValve(r.Context(), valve); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, valve)
}

// DeleteValve DELETE /api/v1/valves/{id}
func (h *Handlers) DeleteValve(w http.ResponseWriter, r *http.Request) {
	if err := h.network.DeleteValve(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
