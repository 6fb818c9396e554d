package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watergrid/pkg/apperror"
	"watergrid/pkg/domain"
	"watergrid/pkg/logger"
)

func init() {
	logger.Init("error")
}

// ============================================================
// MOCK DB ADAPTER
// ============================================================

type pgxMockAdapter struct {
	mock pgxmock.PgxPoolIface
}

func (a *pgxMockAdapter) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return a.mock.Exec(ctx, sql, args...)
}

func (a *pgxMockAdapter) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return a.mock.Query(ctx, sql, args...)
}

func (a *pgxMockAdapter) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return a.mock.QueryRow(ctx, sql, args...)
}

func (a *pgxMockAdapter) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	return a.mock.BeginTx(ctx, txOptions)
}

func (a *pgxMockAdapter) Close() {
	a.mock.Close()
}

func (a *pgxMockAdapter) Ping(ctx context.Context) error {
	return a.mock.Ping(ctx)
}

// ============================================================
// HELPER FUNCTIONS
// ============================================================

func setupTankRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresTankRepository) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	return mock, NewPostgresTankRepository(&pgxMockAdapter{mock: mock})
}

func setupValveRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresValveRepository) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	return mock, NewPostgresValveRepository(&pgxMockAdapter{mock: mock})
}

func setupPipelineRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresPipelineRepository) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	return mock, NewPostgresPipelineRepository(&pgxMockAdapter{mock: mock})
}

func setupSnapshotRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresSnapshotRepository) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	return mock, NewPostgresSnapshotRepository(&pgxMockAdapter{mock: mock})
}

var tankColumns = []string{
	"id", "name", "latitude", "longitude", "is_active",
	"locality", "capacity_liters", "current_liters", "created_at", "updated_at",
}

var valveColumns = []string{
	"id", "name", "latitude", "longitude", "is_open",
	"category", "parent_valve_id", "households", "locality", "created_at", "updated_at",
}

var pipelineColumns = []string{
	"id", "name", "is_active", "capacity", "waypoints",
	"locality", "created_at", "updated_at",
}

func waypointsJSON(t *testing.T, waypoints []domain.Position) []byte {
	data, err := json.Marshal(waypoints)
	require.NoError(t, err)
	return data
}

// ============================================================
// TANK TESTS
// ============================================================

func TestPostgresTankRepository_Create_Success(t *testing.T) {
	mock, repo := setupTankRepo(t)
	defer mock.Close()

	ctx := context.Background()
	now := time.Now()

	tank := &domain.Tank{
		ID:             "tank-1",
		Name:           "North Tank",
		Position:       domain.Position{Latitude: 55.75, Longitude: 37.62},
		IsActive:       true,
		Locality:       "north",
		CapacityLiters: 10000,
		CurrentLiters:  7500,
	}

	rows := pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now)

	mock.ExpectQuery(`INSERT INTO tanks`).
		WithArgs("tank-1", "North Tank", 55.75, 37.62, true, "north", 10000.0, 7500.0).
		WillReturnRows(rows)

	err := repo.Create(ctx, tank)

	require.NoError(t, err)
	assert.Equal(t, now, tank.CreatedAt)
	assert.Equal(t, now, tank.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTankRepository_Create_GeneratesID(t *testing.T) {
	mock, repo := setupTankRepo(t)
	defer mock.Close()

	ctx := context.Background()
	now := time.Now()

	tank := &domain.Tank{
		Name:           "Unnamed Site",
		Position:       domain.Position{Latitude: 41.0, Longitude: 28.9},
		IsActive:       true,
		CapacityLiters: 500,
	}

	rows := pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now)

	mock.ExpectQuery(`INSERT INTO tanks`).
		WithArgs(pgxmock.AnyArg(), "Unnamed Site", 41.0, 28.9, true, "", 500.0, 0.0).
		WillReturnRows(rows)

	err := repo.Create(ctx, tank)

	require.NoError(t, err)
	assert.NotEmpty(t, tank.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTankRepository_Create_DuplicateName(t *testing.T) {
	mock, repo := setupTankRepo(t)
	defer mock.Close()

	ctx := context.Background()

	tank := &domain.Tank{
		ID:       "tank-1",
		Name:     "North Tank",
		Position: domain.Position{Latitude: 55.75, Longitude: 37.62},
	}

	mock.ExpectQuery(`INSERT INTO tanks`).
		WithArgs("tank-1", "North Tank", 55.75, 37.62, false, "", 0.0, 0.0).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "tanks_name_uq"})

	err := repo.Create(ctx, tank)

	assert.Error(t, err)
	assert.Equal(t, apperror.ErrNameTaken, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTankRepository_GetByID_Success(t *testing.T) {
	mock, repo := setupTankRepo(t)
	defer mock.Close()

	ctx := context.Background()
	now := time.Now()

	rows := pgxmock.NewRows(tankColumns).
		AddRow("tank-1", "North Tank", 55.75, 37.62, true, "north", 10000.0, 7500.0, now, now)

	mock.ExpectQuery(`SELECT .* FROM tanks WHERE id = \$1`).
		WithArgs("tank-1").
		WillReturnRows(rows)

	tank, err := repo.GetByID(ctx, "tank-1")

	require.NoError(t, err)
	assert.Equal(t, "tank-1", tank.ID)
	assert.Equal(t, "North Tank", tank.Name)
	assert.Equal(t, 55.75, tank.Position.Latitude)
	assert.Equal(t, 37.62, tank.Position.Longitude)
	assert.True(t, tank.IsActive)
	assert.Equal(t, 10000.0, tank.CapacityLiters)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTankRepository_GetByID_NotFound(t *testing.T) {
	mock, repo := setupTankRepo(t)
	defer mock.Close()

	ctx := context.Background()

	mock.ExpectQuery(`SELECT .* FROM tanks WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	tank, err := repo.GetByID(ctx, "nonexistent")

	assert.Error(t, err)
	assert.Nil(t, tank)
	assert.Equal(t, apperror.ErrTankNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTankRepository_List_NoFilter(t *testing.T) {
	mock, repo := setupTankRepo(t)
	defer mock.Close()

	ctx := context.Background()
	now := time.Now()

	rows := pgxmock.NewRows(tankColumns).
		AddRow("tank-1", "North Tank", 55.75, 37.62, true, "north", 10000.0, 7500.0, now, now).
		AddRow("tank-2", "South Tank", 55.70, 37.60, false, "south", 8000.0, 100.0, now, now)

	mock.ExpectQuery(`SELECT .* FROM tanks WHERE TRUE ORDER BY lower\(name\)`).
		WillReturnRows(rows)

	tanks, err := repo.List(ctx, nil)

	require.NoError(t, err)
	require.Len(t, tanks, 2)
	assert.Equal(t, "tank-1", tanks[0].ID)
	assert.Equal(t, "tank-2", tanks[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTankRepository_List_LocalityAndActive(t *testing.T) {
	mock, repo := setupTankRepo(t)
	defer mock.Close()

	ctx := context.Background()
	now := time.Now()

	rows := pgxmock.NewRows(tankColumns).
		AddRow("tank-1", "North Tank", 55.75, 37.62, true, "north", 10000.0, 7500.0, now, now)

	mock.ExpectQuery(`SELECT .* FROM tanks WHERE TRUE AND locality = \$1 AND is_active = \$2`).
		WithArgs("north", true).
		WillReturnRows(rows)

	active := true
	tanks, err := repo.List(ctx, &TankFilter{Locality: "north", Active: &active})

	require.NoError(t, err)
	require.Len(t, tanks, 1)
	assert.Equal(t, "north", tanks[0].Locality)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTankRepository_List_ByIDSet(t *testing.T) {
	mock, repo := setupTankRepo(t)
	defer mock.Close()

	ctx := context.Background()
	now := time.Now()

	rows := pgxmock.NewRows(tankColumns).
		AddRow("tank-2", "South Tank", 55.70, 37.60, true, "south", 8000.0, 100.0, now, now)

	mock.ExpectQuery(`SELECT .* FROM tanks WHERE TRUE AND id = ANY\(\$1\)`).
		WithArgs(pq.Array([]string{"tank-2", "tank-9"})).
		WillReturnRows(rows)

	tanks, err := repo.List(ctx, &TankFilter{IDs: []string{"tank-2", "tank-9"}})

	require.NoError(t, err)
	require.Len(t, tanks, 1)
	assert.Equal(t, "tank-2", tanks[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTankRepository_Update_Success(t *testing.T) {
	mock, repo := setupTankRepo(t)
	defer mock.Close()

	ctx := context.Background()
	updated := time.Now()

	tank := &domain.Tank{
		ID:             "tank-1",
		Name:           "North Tank Renamed",
		Position:       domain.Position{Latitude: 55.76, Longitude: 37.63},
		IsActive:       false,
		Locality:       "north",
		CapacityLiters: 12000,
		CurrentLiters:  6000,
	}

	rows := pgxmock.NewRows([]string{"updated_at"}).AddRow(updated)

	mock.ExpectQuery(`UPDATE tanks`).
		WithArgs("tank-1", "North Tank Renamed", 55.76, 37.63, false, "north", 12000.0, 6000.0).
		WillReturnRows(rows)

	err := repo.Update(ctx, tank)

	require.NoError(t, err)
	assert.Equal(t, updated, tank.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTankRepository_Update_NotFound(t *testing.T) {
	mock, repo := setupTankRepo(t)
	defer mock.Close()

	ctx := context.Background()

	tank := &domain.Tank{ID: "ghost", Name: "Ghost"}

	mock.ExpectQuery(`UPDATE tanks`).
		WithArgs("ghost", "Ghost", 0.0, 0.0, false, "", 0.0, 0.0).
		WillReturnError(pgx.ErrNoRows)

	err := repo.Update(ctx, tank)

	assert.Error(t, err)
	assert.Equal(t, apperror.ErrTankNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTankRepository_Delete_Success(t *testing.T) {
	mock, repo := setupTankRepo(t)
	defer mock.Close()

	ctx := context.Background()

	mock.ExpectExec(`DELETE FROM tanks WHERE id = \$1`).
		WithArgs("tank-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := repo.Delete(ctx, "tank-1")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTankRepository_Delete_NotFound(t *testing.T) {
	mock, repo := setupTankRepo(t)
	defer mock.Close()

	ctx := context.Background()

	mock.ExpectExec(`DELETE FROM tanks WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(ctx, "nonexistent")

	assert.Error(t, err)
	assert.Equal(t, apperror.ErrTankNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTankRepository_Create_ContextCancelled(t *testing.T) {
	mock, repo := setupTankRepo(t)
	defer mock.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tank := &domain.Tank{ID: "tank-1", Name: "North Tank"}

	mock.ExpectQuery(`INSERT INTO tanks`).
		WithArgs("tank-1", "North Tank", 0.0, 0.0, false, "", 0.0, 0.0).
		WillReturnError(context.Canceled)

	err := repo.Create(ctx, tank)

	assert.Error(t, err)
}

// ============================================================
// VALVE TESTS
// ============================================================

func TestPostgresValveRepository_Create_NoParent(t *testing.T) {
	mock, repo := setupValveRepo(t)
	defer mock.Close()

	ctx := context.Background()
	now := time.Now()

	valve := &domain.Valve{
		ID:         "valve-1",
		Name:       "Main Gate",
		Position:   domain.Position{Latitude: 55.75, Longitude: 37.62},
		IsOpen:     true,
		Category:   domain.ValveCategoryMain,
		Households: 0,
		Locality:   "north",
	}

	rows := pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now)

	mock.ExpectQuery(`INSERT INTO valves`).
		WithArgs("valve-1", "Main Gate", 55.75, 37.62, true, "main", nil, 0, "north").
		WillReturnRows(rows)

	err := repo.Create(ctx, valve)

	require.NoError(t, err)
	assert.Equal(t, now, valve.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresValveRepository_Create_WithParent(t *testing.T) {
	mock, repo := setupValveRepo(t)
	defer mock.Close()

	ctx := context.Background()
	now := time.Now()

	valve := &domain.Valve{
		ID:            "valve-2",
		Name:          "Street Branch",
		Position:      domain.Position{Latitude: 55.751, Longitude: 37.621},
		IsOpen:        true,
		Category:      domain.ValveCategorySub,
		ParentValveID: "valve-1",
		Households:    14,
		Locality:      "north",
	}

	rows := pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now)

	mock.ExpectQuery(`INSERT INTO valves`).
		WithArgs("valve-2", "Street Branch", 55.751, 37.621, true, "sub", "valve-1", 14, "north").
		WillReturnRows(rows)

	err := repo.Create(ctx, valve)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresValveRepository_Create_UnknownParent(t *testing.T) {
	mock, repo := setupValveRepo(t)
	defer mock.Close()

	ctx := context.Background()

	valve := &domain.Valve{
		ID:            "valve-2",
		Name:          "Street Branch",
		Category:      domain.ValveCategorySub,
		ParentValveID: "ghost",
	}

	mock.ExpectQuery(`INSERT INTO valves`).
		WithArgs("valve-2", "Street Branch", 0.0, 0.0, false, "sub", "ghost", 0, "").
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "valves_parent_valve_id_fkey"})

	err := repo.Create(ctx, valve)

	require.Error(t, err)
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeDanglingParentValve, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresValveRepository_GetByID_NullParent(t *testing.T) {
	mock, repo := setupValveRepo(t)
	defer mock.Close()

	ctx := context.Background()
	now := time.Now()

	rows := pgxmock.NewRows(valveColumns).
		AddRow("valve-1", "Main Gate", 55.75, 37.62, true, "main", sql.NullString{}, 0, "north", now, now)

	mock.ExpectQuery(`SELECT .* FROM valves WHERE id = \$1`).
		WithArgs("valve-1").
		WillReturnRows(rows)

	valve, err := repo.GetByID(ctx, "valve-1")

	require.NoError(t, err)
	assert.Equal(t, "valve-1", valve.ID)
	assert.Equal(t, domain.ValveCategoryMain, valve.Category)
	assert.Empty(t, valve.ParentValveID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresValveRepository_GetByID_WithParent(t *testing.T) {
	mock, repo := setupValveRepo(t)
	defer mock.Close()

	ctx := context.Background()
	now := time.Now()

	parent := sql.NullString{String: "valve-1", Valid: true}
	rows := pgxmock.NewRows(valveColumns).
		AddRow("valve-2", "Street Branch", 55.751, 37.621, false, "sub", parent, 14, "north", now, now)

	mock.ExpectQuery(`SELECT .* FROM valves WHERE id = \$1`).
		WithArgs("valve-2").
		WillReturnRows(rows)

	valve, err := repo.GetByID(ctx, "valve-2")

	require.NoError(t, err)
	assert.Equal(t, domain.ValveCategorySub, valve.Category)
	assert.Equal(t, "valve-1", valve.ParentValveID)
	assert.False(t, valve.IsOpen)
	assert.Equal(t, 14, valve.Households)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresValveRepository_GetByID_NotFound(t *testing.T) {
	mock, repo := setupValveRepo(t)
	defer mock.Close()

	ctx := context.Background()

	mock.ExpectQuery(`SELECT .* FROM valves WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	valve, err := repo.GetByID(ctx, "nonexistent")

	assert.Error(t, err)
	assert.Nil(t, valve)
	assert.Equal(t, apperror.ErrValveNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresValveRepository_List_CategoryAndOpen(t *testing.T) {
	mock, repo := setupValveRepo(t)
	defer mock.Close()

	ctx := context.Background()
	now := time.Now()

	rows := pgxmock.NewRows(valveColumns).
		AddRow("valve-2", "Street Branch", 55.751, 37.621, true, "sub", sql.NullString{String: "valve-1", Valid: true}, 14, "north", now, now)

	mock.ExpectQuery(`SELECT .* FROM valves WHERE TRUE AND category = \$1 AND is_open = \$2`).
		WithArgs("sub", true).
		WillReturnRows(rows)

	open := true
	valves, err := repo.List(ctx, &ValveFilter{Category: domain.ValveCategorySub, Open: &open})

	require.NoError(t, err)
	require.Len(t, valves, 1)
	assert.Equal(t, "valve-2", valves[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresValveRepository_Update_DuplicateName(t *testing.T) {
	mock, repo := setupValveRepo(t)
	defer mock.Close()

	ctx := context.Background()

	valve := &domain.Valve{
		ID:       "valve-2",
		Name:     "Main Gate",
		Category: domain.ValveCategorySub,
	}

	mock.ExpectQuery(`UPDATE valves`).
		WithArgs("valve-2", "Main Gate", 0.0, 0.0, false, "sub", nil, 0, "").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "valves_name_uq"})

	err := repo.Update(ctx, valve)

	assert.Error(t, err)
	assert.Equal(t, apperror.ErrNameTaken, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresValveRepository_Delete_Success(t *testing.T) {
	mock, repo := setupValveRepo(t)
	defer mock.Close()

	ctx := context.Background()

	mock.ExpectExec(`DELETE FROM valves WHERE id = \$1`).
		WithArgs("valve-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := repo.Delete(ctx, "valve-1")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ============================================================
// PIPELINE TESTS
// ============================================================

func TestPostgresPipelineRepository_Create_Success(t *testing.T) {
	mock, repo := setupPipelineRepo(t)
	defer mock.Close()

	ctx := context.Background()
	now := time.Now()

	pipeline := &domain.Pipeline{
		ID:       "pipe-1",
		Name:     "Main Line",
		Active:   true,
		Capacity: 400,
		Waypoints: []domain.Position{
			{Latitude: 55.75, Longitude: 37.62},
			{Latitude: 55.76, Longitude: 37.63},
		},
		Locality: "north",
	}

	rows := pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now)

	mock.ExpectQuery(`INSERT INTO pipelines`).
		WithArgs("pipe-1", "Main Line", true, 400.0, waypointsJSON(t, pipeline.Waypoints), "north").
		WillReturnRows(rows)

	err := repo.Create(ctx, pipeline)

	require.NoError(t, err)
	assert.Equal(t, now, pipeline.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPipelineRepository_Create_NilWaypointsStoredAsEmptyArray(t *testing.T) {
	mock, repo := setupPipelineRepo(t)
	defer mock.Close()

	ctx := context.Background()
	now := time.Now()

	pipeline := &domain.Pipeline{
		ID:   "pipe-2",
		Name: "Drafted Line",
	}

	rows := pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now)

	mock.ExpectQuery(`INSERT INTO pipelines`).
		WithArgs("pipe-2", "Drafted Line", false, 0.0, []byte(`[]`), "").
		WillReturnRows(rows)

	err := repo.Create(ctx, pipeline)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPipelineRepository_GetByID_RoundTripsWaypoints(t *testing.T) {
	mock, repo := setupPipelineRepo(t)
	defer mock.Close()

	ctx := context.Background()
	now := time.Now()

	waypoints := []domain.Position{
		{Latitude: 55.75, Longitude: 37.62},
		{Latitude: 55.76, Longitude: 37.63},
		{Latitude: 55.77, Longitude: 37.64},
	}

	rows := pgxmock.NewRows(pipelineColumns).
		AddRow("pipe-1", "Main Line", true, 400.0, waypointsJSON(t, waypoints), "north", now, now)

	mock.ExpectQuery(`SELECT .* FROM pipelines WHERE id = \$1`).
		WithArgs("pipe-1").
		WillReturnRows(rows)

	pipeline, err := repo.GetByID(ctx, "pipe-1")

	require.NoError(t, err)
	assert.Equal(t, "pipe-1", pipeline.ID)
	assert.Equal(t, waypoints, pipeline.Waypoints)
	assert.Equal(t, 2, pipeline.SegmentCount())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPipelineRepository_GetByID_MalformedWaypoints(t *testing.T) {
	mock, repo := setupPipelineRepo(t)
	defer mock.Close()

	ctx := context.Background()
	now := time.Now()

	rows := pgxmock.NewRows(pipelineColumns).
		AddRow("pipe-1", "Main Line", true, 400.0, []byte(`{broken`), "north", now, now)

	mock.ExpectQuery(`SELECT .* FROM pipelines WHERE id = \$1`).
		WithArgs("pipe-1").
		WillReturnRows(rows)

	pipeline, err := repo.GetByID(ctx, "pipe-1")

	require.Error(t, err)
	assert.Nil(t, pipeline)
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeStorageError, appErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPipelineRepository_GetByID_NotFound(t *testing.T) {
	mock, repo := setupPipelineRepo(t)
	defer mock.Close()

	ctx := context.Background()

	mock.ExpectQuery(`SELECT .* FROM pipelines WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	pipeline, err := repo.GetByID(ctx, "nonexistent")

	assert.Error(t, err)
	assert.Nil(t, pipeline)
	assert.Equal(t, apperror.ErrPipelineNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPipelineRepository_List_ExcludesInactiveByDefault(t *testing.T) {
	mock, repo := setupPipelineRepo(t)
	defer mock.Close()

	ctx := context.Background()
	now := time.Now()

	rows := pgxmock.NewRows(pipelineColumns).
		AddRow("pipe-1", "Main Line", true, 400.0, []byte(`[]`), "north", now, now)

	mock.ExpectQuery(`SELECT .* FROM pipelines WHERE is_active = TRUE ORDER BY lower\(name\)`).
		WillReturnRows(rows)

	pipelines, err := repo.List(ctx, nil)

	require.NoError(t, err)
	require.Len(t, pipelines, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPipelineRepository_List_IncludeInactive(t *testing.T) {
	mock, repo := setupPipelineRepo(t)
	defer mock.Close()

	ctx := context.Background()
	now := time.Now()

	rows := pgxmock.NewRows(pipelineColumns).
		AddRow("pipe-1", "Main Line", true, 400.0, []byte(`[]`), "north", now, now).
		AddRow("pipe-2", "Retired Line", false, 100.0, []byte(`[]`), "north", now, now)

	mock.ExpectQuery(`SELECT .* FROM pipelines WHERE TRUE ORDER BY lower\(name\)`).
		WillReturnRows(rows)

	pipelines, err := repo.List(ctx, &PipelineFilter{IncludeInactive: true})

	require.NoError(t, err)
	require.Len(t, pipelines, 2)
	assert.False(t, pipelines[1].Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPipelineRepository_List_SkipsMalformedRow(t *testing.T) {
	mock, repo := setupPipelineRepo(t)
	defer mock.Close()

	ctx := context.Background()
	now := time.Now()

	good := []domain.Position{
		{Latitude: 55.75, Longitude: 37.62},
		{Latitude: 55.76, Longitude: 37.63},
	}

	rows := pgxmock.NewRows(pipelineColumns).
		AddRow("pipe-1", "Main Line", true, 400.0, waypointsJSON(t, good), "north", now, now).
		AddRow("pipe-2", "Broken Line", true, 100.0, []byte(`{broken`), "north", now, now)

	mock.ExpectQuery(`SELECT .* FROM pipelines WHERE is_active = TRUE`).
		WillReturnRows(rows)

	pipelines, err := repo.List(ctx, nil)

	require.NoError(t, err)
	require.Len(t, pipelines, 1)
	assert.Equal(t, "pipe-1", pipelines[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPipelineRepository_Update_Success(t *testing.T) {
	mock, repo := setupPipelineRepo(t)
	defer mock.Close()

	ctx := context.Background()
	updated := time.Now()

	pipeline := &domain.Pipeline{
		ID:       "pipe-1",
		Name:     "Main Line",
		Active:   true,
		Capacity: 450,
		Waypoints: []domain.Position{
			{Latitude: 55.75, Longitude: 37.62},
			{Latitude: 55.78, Longitude: 37.65},
		},
		Locality: "north",
	}

	rows := pgxmock.NewRows([]string{"updated_at"}).AddRow(updated)

	mock.ExpectQuery(`UPDATE pipelines`).
		WithArgs("pipe-1", "Main Line", true, 450.0, waypointsJSON(t, pipeline.Waypoints), "north").
		WillReturnRows(rows)

	err := repo.Update(ctx, pipeline)

	require.NoError(t, err)
	assert.Equal(t, updated, pipeline.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPipelineRepository_Delete_Soft(t *testing.T) {
	mock, repo := setupPipelineRepo(t)
	defer mock.Close()

	ctx := context.Background()

	mock.ExpectExec(`UPDATE pipelines SET is_active = FALSE`).
		WithArgs("pipe-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.Delete(ctx, "pipe-1")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPipelineRepository_Delete_AlreadyInactive(t *testing.T) {
	mock, repo := setupPipelineRepo(t)
	defer mock.Close()

	ctx := context.Background()

	mock.ExpectExec(`UPDATE pipelines SET is_active = FALSE`).
		WithArgs("pipe-9").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Delete(ctx, "pipe-9")

	assert.Error(t, err)
	assert.Equal(t, apperror.ErrPipelineNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ============================================================
// SNAPSHOT TESTS
// ============================================================

func TestPostgresSnapshotRepository_Snapshot_Success(t *testing.T) {
	mock, repo := setupSnapshotRepo(t)
	defer mock.Close()

	ctx := context.Background()
	now := time.Now()

	tankRows := pgxmock.NewRows(tankColumns).
		AddRow("tank-1", "North Tank", 55.75, 37.62, true, "north", 10000.0, 7500.0, now, now).
		AddRow("tank-2", "South Tank", 55.70, 37.60, false, "south", 8000.0, 100.0, now, now)

	valveRows := pgxmock.NewRows(valveColumns).
		AddRow("valve-1", "Main Gate", 55.752, 37.622, true, "main", sql.NullString{}, 0, "north", now, now)

	waypoints := []domain.Position{
		{Latitude: 55.75, Longitude: 37.62},
		{Latitude: 55.76, Longitude: 37.63},
	}
	pipeRows := pgxmock.NewRows(pipelineColumns).
		AddRow("pipe-1", "Main Line", true, 400.0, waypointsJSON(t, waypoints), "north", now, now)

	mock.ExpectBeginTx(pgx.TxOptions{AccessMode: pgx.ReadOnly})
	mock.ExpectQuery(`SELECT .* FROM tanks ORDER BY lower\(name\)`).WillReturnRows(tankRows)
	mock.ExpectQuery(`SELECT .* FROM valves ORDER BY lower\(name\)`).WillReturnRows(valveRows)
	mock.ExpectQuery(`SELECT .* FROM pipelines WHERE is_active = TRUE`).WillReturnRows(pipeRows)
	mock.ExpectCommit()

	snapshot, err := repo.Snapshot(ctx)

	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Len(t, snapshot.Tanks, 2)
	assert.Len(t, snapshot.Valves, 1)
	assert.Len(t, snapshot.Pipelines, 1)
	assert.Equal(t, waypoints, snapshot.Pipelines[0].Waypoints)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSnapshotRepository_Snapshot_SkipsMalformedPipeline(t *testing.T) {
	mock, repo := setupSnapshotRepo(t)
	defer mock.Close()

	ctx := context.Background()
	now := time.Now()

	tankRows := pgxmock.NewRows(tankColumns).
		AddRow("tank-1", "North Tank", 55.75, 37.62, true, "north", 10000.0, 7500.0, now, now)

	valveRows := pgxmock.NewRows(valveColumns)

	good := []domain.Position{
		{Latitude: 55.75, Longitude: 37.62},
		{Latitude: 55.76, Longitude: 37.63},
	}
	pipeRows := pgxmock.NewRows(pipelineColumns).
		AddRow("pipe-1", "Main Line", true, 400.0, waypointsJSON(t, good), "north", now, now).
		AddRow("pipe-2", "Broken Line", true, 100.0, []byte(`not json`), "north", now, now)

	mock.ExpectBeginTx(pgx.TxOptions{AccessMode: pgx.ReadOnly})
	mock.ExpectQuery(`SELECT .* FROM tanks`).WillReturnRows(tankRows)
	mock.ExpectQuery(`SELECT .* FROM valves`).WillReturnRows(valveRows)
	mock.ExpectQuery(`SELECT .* FROM pipelines`).WillReturnRows(pipeRows)
	mock.ExpectCommit()

	snapshot, err := repo.Snapshot(ctx)

	require.NoError(t, err)
	require.Len(t, snapshot.Pipelines, 1)
	assert.Equal(t, "pipe-1", snapshot.Pipelines[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSnapshotRepository_Snapshot_QueryError(t *testing.T) {
	mock, repo := setupSnapshotRepo(t)
	defer mock.Close()

	ctx := context.Background()

	mock.ExpectBeginTx(pgx.TxOptions{AccessMode: pgx.ReadOnly})
	mock.ExpectQuery(`SELECT .* FROM tanks`).WillReturnError(errors.New("connection lost"))
	mock.ExpectRollback()

	snapshot, err := repo.Snapshot(ctx)

	assert.Error(t, err)
	assert.Nil(t, snapshot)
	assert.Contains(t, err.Error(), "failed to load tanks")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSnapshotRepository_Snapshot_BeginError(t *testing.T) {
	mock, repo := setupSnapshotRepo(t)
	defer mock.Close()

	ctx := context.Background()

	mock.ExpectBeginTx(pgx.TxOptions{AccessMode: pgx.ReadOnly}).
		WillReturnError(errors.New("pool exhausted"))

	snapshot, err := repo.Snapshot(ctx)

	assert.Error(t, err)
	assert.Nil(t, snapshot)
	assert.Contains(t, err.Error(), "failed to begin transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ============================================================
// CONSTRUCTOR TESTS
// ============================================================

func TestNewRepositories(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	adapter := &pgxMockAdapter{mock: mock}

	assert.NotNil(t, NewPostgresTankRepository(adapter))
	assert.NotNil(t, NewPostgresValveRepository(adapter))
	assert.NotNil(t, NewPostgresPipelineRepository(adapter))
	assert.NotNil(t, NewPostgresSnapshotRepository(adapter))
}
