package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Fabrica/internal/domain"
)

// ExecutionRepo — репозиторий для работы с запусками сценариев.
type ExecutionRepo struct {
	pool *pgxpool.Pool
}

// NewExecutionRepo создаёт новый ExecutionRepo.
func NewExecutionRepo(pool *pgxpool.Pool) *ExecutionRepo {
	return &ExecutionRepo{pool: pool}
}

// Create создаёт запись о запуске.
func (r *ExecutionRepo) Create(ctx context.Context, e *domain.Execution) error {
	optionsJSON, err := json.Marshal(e.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}

	query := `
		INSERT INTO executions (id, scenario_id, revision, status, options, events_generated, events_failed, error, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, 0, '', NOW())
		RETURNING created_at
	`
	err = r.pool.QueryRow(ctx, query,
		e.ID,
		e.ScenarioID,
		e.Revision,
		e.Status,
		optionsJSON,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}

// GetByID возвращает запуск по ID.
func (r *ExecutionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	query := `
		SELECT id, scenario_id, revision, status, options, events_generated, events_failed, started_at, finished_at, error, created_at
		FROM executions
		WHERE id = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// Update обновляет статус и счётчики запуска.
func (r *ExecutionRepo) Update(ctx context.Context, e *domain.Execution) error {
	query := `
		UPDATE executions
		SET status = $2, events_generated = $3, events_failed = $4,
		    started_at = $5, finished_at = $6, error = $7
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		e.ID,
		e.Status,
		e.EventsGenerated,
		e.EventsFailed,
		e.StartedAt,
		e.FinishedAt,
		e.Error,
	)
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByScenario возвращает запуски сценария, новые первыми.
func (r *ExecutionRepo) ListByScenario(ctx context.Context, scenarioID uuid.UUID, limit int) ([]domain.Execution, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, scenario_id, revision, status, options, events_generated, events_failed, started_at, finished_at, error, created_at
		FROM executions
		WHERE scenario_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, scenarioID, limit)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	return r.scanMany(rows)
}

// ListPending возвращает запуски в статусе PENDING, старые первыми.
// Используется движком как fallback при недоступности брокера.
func (r *ExecutionRepo) ListPending(ctx context.Context, limit int) ([]domain.Execution, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT id, scenario_id, revision, status, options, events_generated, events_failed, started_at, finished_at, error, created_at
		FROM executions
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, domain.ExecutionStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending executions: %w", err)
	}
	defer rows.Close()

	return r.scanMany(rows)
}

// MarkStatus переводит запуск в новый статус, если текущий совпадает
// с ожидаемым. Возвращает ErrInvalidState при гонке двух обработчиков.
func (r *ExecutionRepo) MarkStatus(ctx context.Context, id uuid.UUID, from, to domain.ExecutionStatus) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE executions SET status = $3 WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return fmt.Errorf("mark execution status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

// scanOne читает одну строку запуска.
func (r *ExecutionRepo) scanOne(row pgx.Row) (*domain.Execution, error) {
	var e domain.Execution
	var optionsJSON []byte
	err := row.Scan(
		&e.ID,
		&e.ScenarioID,
		&e.Revision,
		&e.Status,
		&optionsJSON,
		&e.EventsGenerated,
		&e.EventsFailed,
		&e.StartedAt,
		&e.FinishedAt,
		&e.Error,
		&e.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get execution: %w", err)
	}

	if err := json.Unmarshal(optionsJSON, &e.Options); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	return &e, nil
}

// scanMany читает все строки запусков.
func (r *ExecutionRepo) scanMany(rows pgx.Rows) ([]domain.Execution, error) {
	var executions []domain.Execution
	for rows.Next() {
		var e domain.Execution
		var optionsJSON []byte
		if err := rows.Scan(
			&e.ID,
			&e.ScenarioID,
			&e.Revision,
			&e.Status,
			&optionsJSON,
			&e.EventsGenerated,
			&e.EventsFailed,
			&e.StartedAt,
			&e.FinishedAt,
			&e.Error,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		if err := json.Unmarshal(optionsJSON, &e.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
		executions = append(executions, e)
	}
	return executions, rows.Err()
}
