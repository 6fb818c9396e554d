package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"watergrid/pkg/apperror"
	"watergrid/pkg/database"
	"watergrid/pkg/domain"
	"watergrid/pkg/metrics"
	"watergrid/pkg/telemetry"
)

const valveSelect = `
	SELECT id, name, latitude, longitude, is_open,
		category, parent_valve_id, households, locality, created_at, updated_at
	FROM valves`

// PostgresValveRepository PostgreSQL реализация ValveRepository
type PostgresValveRepository struct {
	db database.DB
}

// NewPostgresValveRepository создаёт новый репозиторий
func NewPostgresValveRepository(db database.DB) *PostgresValveRepository {
	return &PostgresValveRepository{db: db}
}

func (r *PostgresValveRepository) Create(ctx context.Context, valve *domain.Valve) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresValveRepository.Create")
	defer span.End()
	defer func() { metrics.Get().RecordDBQuery("valve", "create", err == nil) }()

	if valve.ID == "" {
		valve.ID = uuid.NewString()
	}

	query := `
		INSERT INTO valves (
			id, name, latitude, longitude, is_open,
			category, parent_valve_id, households, locality
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err = r.db.QueryRow(ctx, query,
		valve.ID,
		valve.Name,
		valve.Position.Latitude,
		valve.Position.Longitude,
		valve.IsOpen,
		string(valve.Category),
		nullableText(valve.ParentValveID),
		valve.Households,
		valve.Locality,
	).Scan(&valve.CreatedAt, &valve.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ErrNameTaken
		}
		if isForeignKeyViolation(err) {
			return apperror.NewWithField(apperror.CodeDanglingParentValve, "parent valve does not exist", "parentValveId")
		}
		return fmt.Errorf("failed to create valve: %w", err)
	}

	return nil
}

func (r *PostgresValveRepository) GetByID(ctx context.Context, id string) (valve *domain.Valve, err error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresValveRepository.GetByID")
	defer span.End()
	defer func() { metrics.Get().RecordDBQuery("valve", "get", err == nil) }()

	valve = &domain.Valve{}
	err = scanValve(r.db.QueryRow(ctx, valveSelect+` WHERE id = $1`, id), valve)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrValveNotFound
		}
		return nil, fmt.Errorf("failed to get valve: %w", err)
	}

	return valve, nil
}

func (r *PostgresValveRepository) List(ctx context.Context, filter *ValveFilter) (valves []domain.Valve, err error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresValveRepository.List")
	defer span.End()
	defer func() { metrics.Get().RecordDBQuery("valve", "list", err == nil) }()

	where, args := buildValveConditions(filter)
	query := fmt.Sprintf("%s WHERE %s ORDER BY lower(name)", valveSelect, where)

	valves, err = collectValves(ctx, r.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list valves: %w", err)
	}

	return valves, nil
}

func (r *PostgresValveRepository) Update(ctx context.Context, valve *domain.Valve) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresValveRepository.Update")
	defer span.End()
	defer func() { metrics.Get().RecordDBQuery("valve", "update", err == nil) }()

	query := `
		UPDATE valves
		SET name = $2, latitude = $3, longitude = $4, is_open = $5,
			category = $6, parent_valve_id = $7, households = $8,
			locality = $9, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`

	err = r.db.QueryRow(ctx, query,
		valve.ID,
		valve.Name,
		valve.Position.Latitude,
		valve.Position.Longitude,
		valve.IsOpen,
		string(valve.Category),
		nullableText(valve.ParentValveID),
		valve.Households,
		valve.Locality,
	).Scan(&valve.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.ErrValveNotFound
		}
		if isUniqueViolation(err) {
			return apperror.ErrNameTaken
		}
		if isForeignKeyViolation(err) {
			return apperror.NewWithField(apperror.CodeDanglingParentValve, "parent valve does not exist", "parentValveId")
		}
		return fmt.Errorf("failed to update valve: %w", err)
	}

	return nil
}

func (r *PostgresValveRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresValveRepository.Delete")
	defer span.End()
	defer func() { metrics.Get().RecordDBQuery("valve", "delete", err == nil) }()

	// Дочерние задвижки остаются, parent_valve_id обнуляется по ON DELETE SET NULL
	result, err := r.db.Exec(ctx, `DELETE FROM valves WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete valve: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.ErrValveNotFound
	}

	return nil
}

func buildValveConditions(filter *ValveFilter) (string, []any) {
	conditions := []string{"TRUE"}
	var args []any
	argNum := 1

	if filter != nil {
		if filter.Locality != "" {
			conditions = append(conditions, fmt.Sprintf("locality = $%d", argNum))
			args = append(args, filter.Locality)
			argNum++
		}

		if filter.Category != "" {
			conditions = append(conditions, fmt.Sprintf("category = $%d", argNum))
			args = append(args, string(filter.Category))
			argNum++
		}

		if filter.Open != nil {
			conditions = append(conditions, fmt.Sprintf("is_open = $%d", argNum))
			args = append(args, *filter.Open)
			argNum++
		}

		if len(filter.IDs) > 0 {
			conditions = append(conditions, fmt.Sprintf("id = ANY($%d)", argNum))
			args = append(args, pq.Array(filter.IDs))
		}
	}

	return strings.Join(conditions, " AND "), args
}

func scanValve(row pgx.Row, v *domain.Valve) error {
	var category string
	var parent sql.NullString

	err := row.Scan(
		&v.ID,
		&v.Name,
		&v.Position.Latitude,
		&v.Position.Longitude,
		&v.IsOpen,
		&category,
		&parent,
		&v.Households,
		&v.Locality,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return err
	}

	v.Category = domain.ValveCategory(category)
	v.ParentValveID = parent.String

	return nil
}

func collectValves(ctx context.Context, q querier, query string, args ...any) ([]domain.Valve, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var valves []domain.Valve
	for rows.Next() {
		var v domain.Valve
		if err := scanValve(rows, &v); err != nil {
			return nil, fmt.Errorf("failed to scan valve: %w", err)
		}
		valves = append(valves, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return valves, nil
}
