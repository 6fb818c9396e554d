package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"watergrid/pkg/apperror"
	"watergrid/pkg/database"
	"watergrid/pkg/domain"
	"watergrid/pkg/logger"
	"watergrid/pkg/metrics"
	"watergrid/pkg/telemetry"
)

const pipelineSelect = `
	SELECT id, name, is_active, capacity, waypoints,
		locality, created_at, updated_at
	FROM pipelines`

// errMalformedWaypoints помечает строку с нечитаемым массивом точек
var errMalformedWaypoints = errors.New("malformed waypoints")

// PostgresPipelineRepository PostgreSQL реализация PipelineRepository
type PostgresPipelineRepository struct {
	db database.DB
}

// NewPostgresPipelineRepository создаёт новый репозиторий
func NewPostgresPipelineRepository(db database.DB) *PostgresPipelineRepository {
	return &PostgresPipelineRepository{db: db}
}

func (r *PostgresPipelineRepository) Create(ctx context.Context, pipeline *domain.Pipeline) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresPipelineRepository.Create")
	defer span.End()
	defer func() { metrics.Get().RecordDBQuery("pipeline", "create", err == nil) }()

	if pipeline.ID == "" {
		pipeline.ID = uuid.NewString()
	}

	waypoints, err := marshalWaypoints(pipeline.Waypoints)
	if err != nil {
		return fmt.Errorf("failed to marshal waypoints: %w", err)
	}

	query := `
		INSERT INTO pipelines (id, name, is_active, capacity, waypoints, locality)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err = r.db.QueryRow(ctx, query,
		pipeline.ID,
		pipeline.Name,
		pipeline.Active,
		pipeline.Capacity,
		waypoints,
		pipeline.Locality,
	).Scan(&pipeline.CreatedAt, &pipeline.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ErrNameTaken
		}
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	return nil
}

func (r *PostgresPipelineRepository) GetByID(ctx context.Context, id string) (pipeline *domain.Pipeline, err error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresPipelineRepository.GetByID")
	defer span.End()
	defer func() { metrics.Get().RecordDBQuery("pipeline", "get", err == nil) }()

	pipeline = &domain.Pipeline{}
	err = scanPipeline(r.db.QueryRow(ctx, pipelineSelect+` WHERE id = $1`, id), pipeline)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrPipelineNotFound
		}
		if errors.Is(err, errMalformedWaypoints) {
			return nil, apperror.Wrap(err, apperror.CodeStorageError, "pipeline waypoints are unreadable")
		}
		return nil, fmt.Errorf("failed to get pipeline: %w", err)
	}

	return pipeline, nil
}

func (r *PostgresPipelineRepository) List(ctx context.Context, filter *PipelineFilter) (pipelines []domain.Pipeline, err error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresPipelineRepository.List")
	defer span.End()
	defer func() { metrics.Get().RecordDBQuery("pipeline", "list", err == nil) }()

	where, args := buildPipelineConditions(filter)
	query := fmt.Sprintf("%s WHERE %s ORDER BY lower(name)", pipelineSelect, where)

	pipelines, err = collectPipelines(ctx, r.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipelines: %w", err)
	}

	return pipelines, nil
}

func (r *PostgresPipelineRepository) Update(ctx context.Context, pipeline *domain.Pipeline) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresPipelineRepository.Update")
	defer span.End()
	defer func() { metrics.Get().RecordDBQuery("pipeline", "update", err == nil) }()

	waypoints, err := marshalWaypoints(pipeline.Waypoints)
	if err != nil {
		return fmt.Errorf("failed to marshal waypoints: %w", err)
	}

	query := `
		UPDATE pipelines
		SET name = $2, is_active = $3, capacity = $4, waypoints = $5,
			locality = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`

	err = r.db.QueryRow(ctx, query,
		pipeline.ID,
		pipeline.Name,
		pipeline.Active,
		pipeline.Capacity,
		waypoints,
		pipeline.Locality,
	).Scan(&pipeline.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.ErrPipelineNotFound
		}
		if isUniqueViolation(err) {
			return apperror.ErrNameTaken
		}
		return fmt.Errorf("failed to update pipeline: %w", err)
	}

	return nil
}

// Delete помечает трубопровод отключённым, строка остаётся в таблице
func (r *PostgresPipelineRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresPipelineRepository.Delete")
	defer span.End()
	defer func() { metrics.Get().RecordDBQuery("pipeline", "delete", err == nil) }()

	query := `
		UPDATE pipelines
		SET is_active = FALSE, updated_at = now()
		WHERE id = $1 AND is_active = TRUE
	`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete pipeline: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.ErrPipelineNotFound
	}

	return nil
}

func buildPipelineConditions(filter *PipelineFilter) (string, []any) {
	conditions := []string{"is_active = TRUE"}
	if filter != nil && filter.IncludeInactive {
		conditions = []string{"TRUE"}
	}

	var args []any
	argNum := 1

	if filter != nil {
		if filter.Locality != "" {
			conditions = append(conditions, fmt.Sprintf("locality = $%d", argNum))
			args = append(args, filter.Locality)
			argNum++
		}

		if len(filter.IDs) > 0 {
			conditions = append(conditions, fmt.Sprintf("id = ANY($%d)", argNum))
			args = append(args, pq.Array(filter.IDs))
		}
	}

	return strings.Join(conditions, " AND "), args
}

// marshalWaypoints сериализует точки, пустой массив вместо NULL
func marshalWaypoints(waypoints []domain.Position) ([]byte, error) {
	if waypoints == nil {
		waypoints = []domain.Position{}
	}
	return json.Marshal(waypoints)
}

func scanPipeline(row pgx.Row, p *domain.Pipeline) error {
	var waypoints []byte

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Active,
		&p.Capacity,
		&waypoints,
		&p.Locality,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(waypoints, &p.Waypoints); err != nil {
		return fmt.Errorf("%w: pipeline %s: %v", errMalformedWaypoints, p.ID, err)
	}

	return nil
}

func collectPipelines(ctx context.Context, q querier, query string, args ...any) ([]domain.Pipeline, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pipelines []domain.Pipeline
	for rows.Next() {
		var p domain.Pipeline
		if err := scanPipeline(rows, &p); err != nil {
			if errors.Is(err, errMalformedWaypoints) {
				// Одна битая строка не должна валить весь список
				logger.Log.Warn("Skipping pipeline with malformed waypoints",
					"pipeline_id", p.ID,
					"error", err,
				)
				continue
			}
			return nil, fmt.Errorf("failed to scan pipeline: %w", err)
		}
		pipelines = append(pipelines, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return pipelines, nil
}
