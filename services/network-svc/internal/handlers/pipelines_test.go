// services/network-svc/internal/handlers/pipelines_test.go

package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"watergrid/pkg/apperror"
	"watergrid/pkg/domain"
	"watergrid/services/network-svc/internal/repository"
)

func TestListPipelinesIncludeInactive(t *testing.T) {
	network := new(MockNetworkAPI)
	network.On("ListPipelines", mock.Anything, &repository.PipelineFilter{IncludeInactive: true}).
		Return([]domain.Pipeline{{ID: "p1", Name: "Hill Main", Active: false}}, nil)

	mux := newTestRouter(network, nil, nil)
	rec := doRequest(mux, http.MethodGet, "/api/v1/pipelines?include_inactive=true", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var pipelines []domain.Pipeline
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pipelines))
	require.Len(t, pipelines, 1)
	assert.False(t, pipelines[0].Active)
	network.AssertExpectations(t)
}

func TestListPipelinesEmptyIsArray(t *testing.T) {
	network := new(MockNetworkAPI)
	network.On("ListPipelines", mock.Anything, mock.Anything).Return(nil, nil)

	mux := newTestRouter(network, nil, nil)
	rec := doRequest(mux, http.MethodGet, "/api/v1/pipelines", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestCreatePipeline(t *testing.T) {
	network := new(MockNetworkAPI)
	network.On("CreatePipeline", mock.Anything, mock.MatchedBy(func(p *domain.Pipeline) bool {
		return p.Active && len(p.Waypoints) == 2 && p.Capacity == 500
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Pipeline).ID = "p1"
	}).Return(nil)

	mux := newTestRouter(network, nil, nil)
	body := `{"name":"Hill Main","capacity":500,"waypoints":[{"latitude":9.93,"longitude":76.26},{"latitude":9.94,"longitude":76.27}],"locality":"Kochi"}`
	rec := doRequest(mux, http.MethodPost, "/api/v1/pipelines", body)

	require.Equal(t, http.StatusCreated, rec.Code)

	var created domain.Pipeline
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "p1", created.ID)
	network.AssertExpectations(t)
}

func TestCreatePipelineTooFewWaypoints(t *testing.T) {
	network := new(MockNetworkAPI)
	network.On("CreatePipeline", mock.Anything, mock.Anything).
		Return(apperror.NewWithField(apperror.CodeTooFewWaypoints, "pipeline needs at least two waypoints", "waypoints"))

	mux := newTestRouter(network, nil, nil)
	body := `{"name":"Stub","capacity":100,"waypoints":[{"latitude":9.93,"longitude":76.26}],"locality":"Kochi"}`
	rec := doRequest(mux, http.MethodPost, "/api/v1/pipelines", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var envelope errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, apperror.CodeTooFewWaypoints, envelope.Error.Code)
	assert.Equal(t, "waypoints", envelope.Error.Details["field"])
}

func TestDeletePipeline(t *testing.T) {
	network := new(MockNetworkAPI)
	network.On("DeletePipeline", mock.Anything, "p1").Return(nil)

	mux := newTestRouter(network, nil, nil)
	rec := doRequest(mux, http.MethodDelete, "/api/v1/pipelines/p1", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	network.AssertExpectations(t)
}
