package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"watergrid/pkg/database"
	"watergrid/pkg/domain"
	"watergrid/pkg/metrics"
	"watergrid/pkg/telemetry"
)

// PostgresSnapshotRepository читает срез сети одной транзакцией
type PostgresSnapshotRepository struct {
	db database.DB
}

// NewPostgresSnapshotRepository создаёт новый репозиторий
func NewPostgresSnapshotRepository(db database.DB) *PostgresSnapshotRepository {
	return &PostgresSnapshotRepository{db: db}
}

// Snapshot загружает резервуары, задвижки и действующие трубопроводы.
// Транзакция только для чтения даёт согласованный вид трёх таблиц.
func (r *PostgresSnapshotRepository) Snapshot(ctx context.Context) (snapshot *domain.Snapshot, err error) {
	ctx, span := telemetry.StartSpan(ctx, "PostgresSnapshotRepository.Snapshot")
	defer span.End()
	defer func() { metrics.Get().RecordDBQuery("snapshot", "read", err == nil) }()

	snapshot, err = database.WithReadOnlyTransactionResult(ctx, r.db, func(tx pgx.Tx) (*domain.Snapshot, error) {
		tanks, err := collectTanks(ctx, tx, tankSelect+` ORDER BY lower(name)`)
		if err != nil {
			return nil, fmt.Errorf("failed to load tanks: %w", err)
		}

		valves, err := collectValves(ctx, tx, valveSelect+` ORDER BY lower(name)`)
		if err != nil {
			return nil, fmt.Errorf("failed to load valves: %w", err)
		}

		pipelines, err := collectPipelines(ctx, tx, pipelineSelect+` WHERE is_active = TRUE ORDER BY lower(name)`)
		if err != nil {
			return nil, fmt.Errorf("failed to load pipelines: %w", err)
		}

		return &domain.Snapshot{
			Tanks:     tanks,
			Valves:    valves,
			Pipelines: pipelines,
		}, nil
	})

	return snapshot, err
}
