package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"watergrid/pkg/domain"
)

// querier объединяет пул и транзакцию для читающих запросов
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// TankFilter условия выборки резервуаров
type TankFilter struct {
	Locality string
	Active   *bool
	IDs      []string
}

// ValveFilter условия выборки задвижек
type ValveFilter struct {
	Locality string
	Category domain.ValveCategory
	Open     *bool
	IDs      []string
}

// PipelineFilter условия выборки трубопроводов.
// По умолчанию отключённые участки не возвращаются.
type PipelineFilter struct {
	Locality        string
	IncludeInactive bool
	IDs             []string
}

// TankRepository интерфейс хранилища резервуаров
type TankRepository interface {
	Create(ctx context.Context, tank *domain.Tank) error
	GetByID(ctx context.Context, id string) (*domain.Tank, error)
	List(ctx context.Context, filter *TankFilter) ([]domain.Tank, error)
	Update(ctx context.Context, tank *domain.Tank) error
	Delete(ctx context.Context, id string) error
}

// ValveRepository интерфейс хранилища задвижек
type ValveRepository interface {
	Create(ctx context.Context, valve *domain.Valve) error
	GetByID(ctx context.Context, id string) (*domain.Valve, error)
	List(ctx context.Context, filter *ValveFilter) ([]domain.Valve, error)
	Update(ctx context.Context, valve *domain.Valve) error
	Delete(ctx context.Context, id string) error
}

// PipelineRepository интерфейс хранилища трубопроводов.
// Delete выполняет мягкое удаление через is_active = FALSE.
type PipelineRepository interface {
	Create(ctx context.Context, pipeline *domain.Pipeline) error
	GetByID(ctx context.Context, id string) (*domain.Pipeline, error)
	List(ctx context.Context, filter *PipelineFilter) ([]domain.Pipeline, error)
	Update(ctx context.Context, pipeline *domain.Pipeline) error
	Delete(ctx context.Context, id string) error
}

// SnapshotReader отдаёт согласованный срез всей сети для расчётов
type SnapshotReader interface {
	Snapshot(ctx context.Context) (*domain.Snapshot, error)
}

// isUniqueViolation проверяет нарушение уникального индекса
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isForeignKeyViolation проверяет нарушение внешнего ключа
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// nullableText отдаёт NULL вместо пустой строки
func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}
