// services/network-svc/internal/handlers/tanks.go
package handlers

import (
	"net/http"

	"watergrid/pkg/domain"
	"watergrid/services/network-svc/internal/repository"
)

// TankInput тело запроса создания и обновления резервуара
type TankInput struct {
	Name           string          `json:"name"`
	Position       domain.Position `json:"position"`
	IsActive       *bool           `json:"isActive,omitempty"`
	Locality       string          `json:"locality"`
	CapacityLiters float64         `json:"capacityLiters"`
	CurrentLiters  float64         `json:"currentLiters"`
}

func (in *TankInput) toDomain() *domain.Tank {
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	return &domain.Tank{
		Name:           in.Name,
		Position:       in.Position,
		IsActive:       active,
		Locality:       in.Locality,
		CapacityLiters: in.CapacityLiters,
		CurrentLiters:  in.CurrentLiters,
	}
}

// tankView резервуар с вычисленными полями заполнения
type tankView struct {
	domain.Tank
	FillPercent float64           `json:"fillPercent"`
	FillStatus  domain.FillStatus `json:"fillStatus"`
}

func (h *Handlers) newTankView(tank domain.Tank) tankView {
	percent := domain.RoundPercent(tank.FillPercent())
	return tankView{
		Tank:        tank,
		FillPercent: percent,
		FillStatus:  h.fill.Classify(percent),
	}
}

func (h *Handlers) tankViews(tanks []domain.Tank) []tankView {
	views := make([]tankView, 0, len(tanks))
	for _, t := range tanks {
		views = append(views, h.newTankView(t))
	}
	return views
}

// ListTanks GET /api/v1/tanks
func (h *Handlers) ListTanks(w http.ResponseWriter, r *http.Request) {
	active, err := queryBool(r, "active")
	if err != nil {
		respondError(w, err)
		return
	}

	filter := &repository.TankFilter{
		Locality: r.URL.Query().Get("locality"),
		Active:   active,
	}

	tanks, err := h.network.ListTanks(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.tankViews(tanks))
}

// CreateTank POST /api/v1/tanks
func (h *Handlers) CreateTank(w http.ResponseWriter, r *http.Request) {
	var input TankInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondError(w, err)
		return
	}

	tank := input.toDomain()
	if err := h.network.CreateTank(r.Context(), tank); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, h.newTankView(*tank))
}

// GetTank GET /api/v1/tanks/{id}
func (h *Handlers) GetTank(w http.ResponseWriter, r *http.Request) {
	tank, err := h.network.GetTank(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.newTankView(*tank))
}

// UpdateTank PUT /api/v1/tanks/{id}
func (h *Handlers) UpdateTank(w http.ResponseWriter, r *http.Request) {
	var input TankInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondError(w, err)
		return
	}

	tank := input.toDomain()
	tank.ID = r.PathValue("id")
	if err := h.network.UpdateTank(r.Context(), tank); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.newTankView(*tank))
}

// DeleteTank DELETE /api/v1/tanks/{id}
func (h *Handlers) DeleteTank(w http.ResponseWriter, r *http.Request) {
	if err := h.network.DeleteTank(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
