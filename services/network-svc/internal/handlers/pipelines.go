// services/network-svc/internal/handlers/pipelines.go
package handlers

import (
	"net/http"

	"watergrid/pkg/domain"
	"watergrid/services/network-svc/internal/repository"
)

// PipelineInput тело запроса создания и обновления трубопровода
type PipelineInput struct {
	Name      string            `json:"name"`
	Active    *bool             `json:"active,omitempty"`
	Capacity  float64           `json:"capacity"`
	Waypoints []domain.Position `json:"waypoints"`
	Locality  string            `json:"locality"`
}

func (in *PipelineInput) toDomain() *domain.Pipeline {
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	return &domain.Pipeline{
		Name:      in.Name,
		Active:    active,
		Capacity:  in.Capacity,
		Waypoints: in.Waypoints,
		Locality:  in.Locality,
	}
}

// ListPipelines GET /api/v1/pipelines
func (h *Handlers) ListPipelines(w http.ResponseWriter, r *http.Request) {
	includeInactive, err := queryBool(r, "include_inactive")
	if err != nil {
		respondError(w, err)
		return
	}

	filter := &repository.PipelineFilter{
		Locality:        r.URL.Query().Get("locality"),
		IncludeInactive: includeInactive != nil && *includeInactive,
	}

	pipelines, err := h.network.ListPipelines(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}

	if pipelines == nil {
		pipelines = []domain.Pipeline{}
	}
	respondJSON(w, http.StatusOK, pipelines)
}

// CreatePipeline POST /api/v1/pipelines
func (h *Handlers) CreatePipeline(w http.ResponseWriter, r *http.Request) {
	var input PipelineInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondError(w, err)
		return
	}

	pipeline := input.toDomain()
	if err := h.network.CreatePipeline(r.Context(), pipeline); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, pipeline)
}

// GetPipeline GET /api/v1/pipelines/{id}
func (h *Handlers) GetPipeline(w http.ResponseWriter, r *http.Request) {
	pipeline, err := h.network.GetPipeline(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, pipeline)
}

// UpdatePipeline PUT /api/v1/pipelines/{id}
func (h *Handlers) UpdatePipeline(w http.ResponseWriter, r *http.Request) {
	var input PipelineInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondError(w, err)
		return
	}

	pipeline := input.toDomain()
	pipeline.ID = r.PathValue("id")
	if err := h.network.UpdatePipeline(r.Context(), pipeline); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, pipeline)
}

// DeletePipeline DELETE /api/v1/pipelines/{id}
func (h *Handlers) DeletePipeline(w http.ResponseWriter, r *http.Request) {
	if err := h.network.DeletePipeline(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
