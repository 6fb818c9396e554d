// pkg/client/network.go
package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"watergrid/pkg/apperror"
	"watergrid/pkg/domain"
)

// ==================== REQUEST / RESPONSE TYPES ====================

// TankParams поля создания и обновления резервуара
type TankParams struct {
	Name           string          `json:"name"`
	Position       domain.Position `json:"position"`
	IsActive       *bool           `json:"isActive,omitempty"`
	Locality       string          `json:"locality,omitempty"`
	CapacityLiters float64         `json:"capacityLiters"`
	CurrentLiters  float64         `json:"currentLiters"`
}

// ValveParams поля создания и обновления задвижки
type ValveParams struct {
	Name          string               `json:"name"`
	Position      domain.Position      `json:"position"`
	IsOpen        *bool                `json:"isOpen,omitempty"`
	Category      domain.ValveCategory `json:"category"`
	ParentValveID string               `json:"parentValveId,omitempty"`
	Households    int                  `json:"households"`
	Locality      string               `json:"locality,omitempty"`
}

// PipelineParams поля создания и обновления трубопровода
type PipelineParams struct {
	Name      string            `json:"name"`
	Active    *bool             `json:"active,omitempty"`
	Capacity  float64           `json:"capacity"`
	Waypoints []domain.Position `json:"waypoints"`
	Locality  string            `json:"locality,omitempty"`
}

// Tank резервуар с вычисленными полями заполнения
type Tank struct {
	domain.Tank
	FillPercent float64           `json:"fillPercent"`
	FillStatus  domain.FillStatus `json:"fillStatus"`
}

// TankFilter условия выборки резервуаров
type TankFilter struct {
	Locality string
	Active   *bool
}

// ValveFilter условия выборки задвижек
type ValveFilter struct {
	Locality string
	Category domain.ValveCategory
	Open     *bool
}

// PipelineFilter условия выборки трубопроводов
type PipelineFilter struct {
	Locality        string
	IncludeInactive bool
}

// FlowQuery переопределения порогов расчёта потока
type FlowQuery struct {
	ConnectDistance float64
	BlockDistance   float64
}

// FlowResult ответ расчёта потока
type FlowResult struct {
	Result      domain.FlowResult        `json:"result"`
	Diagnostics []domain.BuildDiagnostic `json:"diagnostics,omitempty"`
	Cached      bool                     `json:"cached"`
}

// SupplyResult ответ распределения снабжения
type SupplyResult struct {
	Overview    domain.SupplyOverview    `json:"overview"`
	Diagnostics []domain.BuildDiagnostic `json:"diagnostics,omitempty"`
	Cached      bool                     `json:"cached"`
}

// ScenarioResult ответ гипотетического расчёта
type ScenarioResult struct {
	Flow        domain.FlowResult        `json:"flow"`
	Supply      domain.SupplyOverview    `json:"supply"`
	Diagnostics []domain.BuildDiagnostic `json:"diagnostics,omitempty"`
}

// ImportReport итог импорта инвентарной книги
type ImportReport struct {
	TanksImported     int                      `json:"tanksImported"`
	ValvesImported    int                      `json:"valvesImported"`
	PipelinesImported int                      `json:"pipelinesImported"`
	Diagnostics       []domain.BuildDiagnostic `json:"diagnostics,omitempty"`
}

// ==================== TANKS ====================

func (c *Client) CreateTank(ctx context.Context, params TankParams) (*Tank, error) {
	var tank Tank
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/tanks", nil, params, &tank); err != nil {
		return nil, err
	}
	return &tank, nil
}

func (c *Client) GetTank(ctx context.Context, id string) (*Tank, error) {
	var tank Tank
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/tanks/"+url.PathEscape(id), nil, nil, &tank); err != nil {
		return nil, err
	}
	return &tank, nil
}

func (c *Client) ListTanks(ctx context.Context, filter TankFilter) ([]Tank, error) {
	q := url.Values{}
	if filter.Locality != "" {
		q.Set("locality", filter.Locality)
	}
	boolValue(q, "active", filter.Active)

	var tanks []Tank
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/tanks", q, nil, &tanks); err != nil {
		return nil, err
	}
	return tanks, nil
}

func (c *Client) UpdateTank(ctx context.Context, id string, params TankParams) (*Tank, error) {
	var tank Tank
	if err := c.doJSON(ctx, http.MethodPut, "/api/v1/tanks/"+url.PathEscape(id), nil, params, &tank); err != nil {
		return nil, err
	}
	return &tank, nil
}

func (c *Client) DeleteTank(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/tanks/"+url.PathEscape(id), nil, nil, nil)
}

// ==================== VALVES ====================

func (c *Client) CreateValve(ctx context.Context, params ValveParams) (*domain.Valve, error) {
	var valve domain.Valve
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/valves", nil, params, &valve); err != nil {
		return nil, err
	}
	return &valve, nil
}

func (c *Client) GetValve(ctx context.Context, id string) (*domain.Valve, error) {
	var valve domain.Valve
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/valves/"+url.PathEscape(id), nil, nil, &valve); err != nil {
		return nil, err
	}
	return &valve, nil
}

func (c *Client) ListValves(ctx context.Context, filter ValveFilter) ([]domain.Valve, error) {
	q := url.Values{}
	if filter.Locality != "" {
		q.Set("locality", filter.Locality)
	}
	if filter.Category != "" {
		q.Set("category", string(filter.Category))
	}
	boolValue(q, "open", filter.Open)

	var valves []domain.Valve
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/valves", q, nil, &valves); err != nil {
		return nil, err
	}
	return valves, nil
}

func (c *Client) UpdateValve(ctx context.Context, id string, params ValveParams) (*domain.Valve, error) {
	var valve domain.Valve
	if err := c.doJSON(ctx, http.MethodPut, "/api/v1/valves/"+url.PathEscape(id), nil, params, &valve); err != nil {
		return nil, err
	}
	return &valve, nil
}

func (c *Client) DeleteValve(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/valves/"+url.PathEscape(id), nil, nil, nil)
}

// ==================== PIPELINES ====================

func (c *Client) CreatePipeline(ctx context.Context, params PipelineParams) (*domain.Pipeline, error) {
	var pipeline domain.Pipeline
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/pipelines", nil, params, &pipeline); err != nil {
		return nil, err
	}
	return &pipeline, nil
}

func (c *Client) GetPipeline(ctx context.Context, id string) (*domain.Pipeline, error) {
	var pipeline domain.Pipeline
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/pipelines/"+url.PathEscape(id), nil, nil, &pipeline); err != nil {
		return nil, err
	}
	return &pipeline, nil
}

func (c *Client) ListPipelines(ctx context.Context, filter PipelineFilter) ([]domain.Pipeline, error) {
	q := url.Values{}
	if filter.Locality != "" {
		q.Set("locality", filter.Locality)
	}
	if filter.IncludeInactive {
		q.Set("include_inactive", "true")
	}

	var pipelines []domain.Pipeline
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/pipelines", q, nil, &pipelines); err != nil {
		return nil, err
	}
	return pipelines, nil
}

func (c *Client) UpdatePipeline(ctx context.Context, id string, params PipelineParams) (*domain.Pipeline, error) {
	var pipeline domain.Pipeline
	if err := c.doJSON(ctx, http.MethodPut, "/api/v1/pipelines/"+url.PathEscape(id), nil, params, &pipeline); err != nil {
		return nil, err
	}
	return &pipeline, nil
}

func (c *Client) DeletePipeline(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/pipelines/"+url.PathEscape(id), nil, nil, nil)
}

// ==================== NETWORK ====================

func (c *Client) Flow(ctx context.Context, query FlowQuery) (*FlowResult, error) {
	q := url.Values{}
	if query.ConnectDistance > 0 {
		q.Set("connect_distance", strconv.FormatFloat(query.ConnectDistance, 'f', -1, 64))
	}
	if query.BlockDistance > 0 {
		q.Set("block_distance", strconv.FormatFloat(query.BlockDistance, 'f', -1, 64))
	}

	var result FlowResult
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/network/flow", q, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Supply(ctx context.Context) (*SupplyResult, error) {
	var result SupplyResult
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/network/supply", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Scenario(ctx context.Context, overrides domain.ScenarioOverrides) (*ScenarioResult, error) {
	var result ScenarioResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/network/scenario", nil, overrides, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Validation(ctx context.Context) (*domain.ValidationReport, error) {
	var report domain.ValidationReport
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/network/validation", nil, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// ==================== EXPORT / IMPORT ====================

// ExportNetworkWorkbook скачивает инвентарную книгу сети
func (c *Client) ExportNetworkWorkbook(ctx context.Context) ([]byte, error) {
	return c.download(ctx, "/api/v1/export/network.xlsx")
}

// ExportSupplyWorkbook скачивает книгу расчёта снабжения
func (c *Client) ExportSupplyWorkbook(ctx context.Context) ([]byte, error) {
	return c.download(ctx, "/api/v1/export/supply.xlsx")
}

// ExportCoveragePDF скачивает PDF отчёт о покрытии
func (c *Client) ExportCoveragePDF(ctx context.Context) ([]byte, error) {
	return c.download(ctx, "/api/v1/export/coverage.pdf")
}

// ImportNetwork загружает инвентарную книгу xlsx
func (c *Client) ImportNetwork(ctx context.Context, workbook io.Reader) (*ImportReport, error) {
	data, err := io.ReadAll(workbook)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInvalidArgument, "failed to read workbook")
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/v1/import/network", nil, data,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeError(resp)
	}

	var report ImportReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to decode response")
	}
	return &report, nil
}
