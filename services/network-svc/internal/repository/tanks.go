package repository

import (
	"context"
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

const tankSelect = `
	SELECT id, name, latitude, longitude, is_active,
		locality, capacity_liters, current_liters, created_at, updated_at
	FROM tanks`

// PostgresTankRepository PostgreSQL реализация TankRepository
type PostgresTankRepository struct {
	db database.DB
}

// NewPostgresTankRepository создаёт новый репозиторий
func NewPostgresTankRepository(db database.DB) *PostgresTankRepository {
	return &PostgresTankRepository{db: db}
}

func (r *PostgresTankRepository) Create(ctx context.Context, tank *domain.Tank) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresTankRepository.Create")
	defer span.End()
	defer func() { metrics.Get().RecordDBQuery("tank", "create", err == nil) }()

	if tank.ID == "" {
		tank.ID = uuid.NewString()
	}

	query := `
		INSERT INTO tanks (
			id, name, latitude, longitude, is_active,
			locality, capacity_liters, current_liters
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err = r.db.QueryRow(ctx, query,
		tank.ID,
		tank.Name,
		tank.Position.Latitude,
		tank.Position.Longitude,
		tank.IsActive,
		tank.Locality,
		tank.CapacityLiters,
		tank.CurrentLiters,
	).Scan(&tank.CreatedAt, &tank.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ErrNameTaken
		}
		return fmt.Errorf("failed to create tank: %w", err)
	}

	return nil
}

func (r *PostgresTankRepository) GetByID(ctx context.Context, id string) (tank *domain.Tank, err error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresTankRepository.GetByID")
	defer span.End()
	defer func() { metrics.Get().RecordDBQuery("tank", "get", err == nil) }()

	tank = &domain.Tank{}
	err = scanTank(r.db.QueryRow(ctx, tankSelect+` WHERE id = $1`, id), tank)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrTankNotFound
		}
		return nil, fmt.Errorf("failed to get tank: %w", err)
	}

	return tank, nil
}

func (r *PostgresTankRepository) List(ctx context.Context, filter *TankFilter) (tanks []domain.Tank, err error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresTankRepository.List")
	defer span.End()
	defer func() { metrics.Get().RecordDBQuery("tank", "list", err == nil) }()

	where, args := buildTankConditions(filter)
	query := fmt.Sprintf("%s WHERE %s ORDER BY lower(name)", tankSelect, where)

	tanks, err = collectTanks(ctx, r.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tanks: %w", err)
	}

	return tanks, nil
}

func (r *PostgresTankRepository) Update(ctx context.Context, tank *domain.Tank) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresTankRepository.Update")
	defer span.End()
	defer func() { metrics.Get().RecordDBQuery("tank", "update", err == nil) }()

	query := `
		UPDATE tanks
		SET name = $2, latitude = $3, longitude = $4, is_active = $5,
			locality = $6, capacity_liters = $7, current_liters = $8,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`

	err = r.db.QueryRow(ctx, query,
		tank.ID,
		tank.Name,
		tank.Position.Latitude,
		tank.Position.Longitude,
		tank.IsActive,
		tank.Locality,
		tank.CapacityLiters,
		tank.CurrentLiters,
	).Scan(&tank.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.ErrTankNotFound
		}
		if isUniqueViolation(err) {
			return apperror.ErrNameTaken
		}
		return fmt.Errorf("failed to update tank: %w", err)
	}

	return nil
}

func (r *PostgresTankRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresTankRepository.Delete")
	defer span.End()
	defer func() { metrics.Get().RecordDBQuery("tank", "delete", err == nil) }()

	result, err := r.db.Exec(ctx, `DELETE FROM tanks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tank: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.ErrTankNotFound
	}

	return nil
}

func buildTankConditions(filter *TankFilter) (string, []any) {
	conditions := []string{"TRUE"}
	var args []any
	argNum := 1

	if filter != nil {
		if filter.Locality != "" {
			conditions = append(conditions, fmt.Sprintf("locality = $%d", argNum))
			args = append(args, filter.Locality)
			argNum++
		}

		if filter.Active != nil {
			conditions = append(conditions, fmt.Sprintf("is_active = $%d", argNum))
			args = append(args, *filter.Active)
			argNum++
		}

		if len(filter.IDs) > 0 {
			conditions = append(conditions, fmt.Sprintf("id = ANY($%d)", argNum))
			args = append(args, pq.Array(filter.IDs))
		}
	}

	return strings.Join(conditions, " AND "), args
}

func scanTank(row pgx.Row, t *domain.Tank) error {
	return row.Scan(
		&t.ID,
		&t.Name,
		&t.Position.Latitude,
		&t.Position.Longitude,
		&t.IsActive,
		&t.Locality,
		&t.CapacityLiters,
		&t.CurrentLiters,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
}

func collectTanks(ctx context.Context, q querier, query string, args ...any) ([]domain.Tank, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tanks []domain.Tank
	for rows.Next() {
		var t domain.Tank
		if err := scanTank(rows, &t); err != nil {
			return nil, fmt.Errorf("failed to scan tank: %w", err)
		}
		tanks = append(tanks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return tanks, nil
}
