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

// ScenarioRepo — репозиторий для работы со сценариями и их ревизиями.
//
// Сценарий хранится в двух таблицах: scenarios — текущая шапка,
// scenario_revisions — снимки событий по ревизиям. Каждое обновление
// сценария добавляет ревизию, старые остаются читаемыми.
type ScenarioRepo struct {
	pool *pgxpool.Pool
}

// NewScenarioRepo создаёт новый ScenarioRepo.
func NewScenarioRepo(pool *pgxpool.Pool) *ScenarioRepo {
	return &ScenarioRepo{pool: pool}
}

// Create создаёт сценарий с ревизией 1.
func (r *ScenarioRepo) Create(ctx context.Context, s *domain.ScenarioDefinition) error {
	eventsJSON, err := json.Marshal(s.Events)
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO scenarios (id, name, description, mitre_technique, is_active, revision, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, NOW(), NOW())
		RETURNING revision, created_at, updated_at
	`,
		s.ID,
		s.Name,
		s.Description,
		s.MitreTechnique,
		s.IsActive,
	).Scan(&s.Revision, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert scenario: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO scenario_revisions (scenario_id, revision, events, created_at)
		VALUES ($1, 1, $2, NOW())
	`, s.ID, eventsJSON)
	if err != nil {
		return fmt.Errorf("insert scenario revision: %w", err)
	}

	return tx.Commit(ctx)
}

// GetByID возвращает сценарий с событиями последней ревизии.
func (r *ScenarioRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScenarioDefinition, error) {
	query := `
		SELECT s.id, s.name, s.description, s.mitre_technique, s.is_active, s.revision, s.created_at, s.updated_at, sr.events
		FROM scenarios s
		JOIN scenario_revisions sr ON sr.scenario_id = s.id AND sr.revision = s.revision
		WHERE s.id = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetRevision возвращает сценарий с событиями указанной ревизии.
func (r *ScenarioRepo) GetRevision(ctx context.Context, id uuid.UUID, revision int) (*domain.ScenarioDefinition, error) {
	query := `
		SELECT s.id, s.name, s.description, s.mitre_technique, s.is_active, sr.revision, s.created_at, s.updated_at, sr.events
		FROM scenarios s
		JOIN scenario_revisions sr ON sr.scenario_id = s.id
		WHERE s.id = $1 AND sr.revision = $2
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, id, revision))
}

// GetByName возвращает сценарий по имени с последней ревизией.
func (r *ScenarioRepo) GetByName(ctx context.Context, name string) (*domain.ScenarioDefinition, error) {
	query := `
		SELECT s.id, s.name, s.description, s.mitre_technique, s.is_active, s.revision, s.created_at, s.updated_at, sr.events
		FROM scenarios s
		JOIN scenario_revisions sr ON sr.scenario_id = s.id AND sr.revision = s.revision
		WHERE s.name = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, name))
}

// List возвращает все сценарии с событиями последних ревизий.
func (r *ScenarioRepo) List(ctx context.Context) ([]domain.ScenarioDefinition, error) {
	query := `
		SELECT s.id, s.name, s.description, s.mitre_technique, s.is_active, s.revision, s.created_at, s.updated_at, sr.events
		FROM scenarios s
		JOIN scenario_revisions sr ON sr.scenario_id = s.id AND sr.revision = s.revision
		ORDER BY s.created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	defer rows.Close()

	var scenarios []domain.ScenarioDefinition
	for rows.Next() {
		var s domain.ScenarioDefinition
		var eventsJSON []byte
		if err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.Description,
			&s.MitreTechnique,
			&s.IsActive,
			&s.Revision,
			&s.CreatedAt,
			&s.UpdatedAt,
			&eventsJSON,
		); err != nil {
			return nil, fmt.Errorf("scan scenario: %w", err)
		}
		if err := json.Unmarshal(eventsJSON, &s.Events); err != nil {
			return nil, fmt.Errorf("unmarshal events: %w", err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, rows.Err()
}

// ListActive возвращает активные сценарии.
func (r *ScenarioRepo) ListActive(ctx context.Context) ([]domain.ScenarioDefinition, error) {
	query := `
		SELECT s.id, s.name, s.description, s.mitre_technique, s.is_active, s.revision, s.created_at, s.updated_at, sr.events
		FROM scenarios s
		JOIN scenario_revisions sr ON sr.scenario_id = s.id AND sr.revision = s.revision
		WHERE s.is_active = TRUE
		ORDER BY s.created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active scenarios: %w", err)
	}
	defer rows.Close()

	var scenarios []domain.ScenarioDefinition
	for rows.Next() {
		var s domain.ScenarioDefinition
		var eventsJSON []byte
		if err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.Description,
			&s.MitreTechnique,
			&s.IsActive,
			&s.Revision,
			&s.CreatedAt,
			&s.UpdatedAt,
			&eventsJSON,
		); err != nil {
			return nil, fmt.Errorf("scan scenario: %w", err)
		}
		if err := json.Unmarshal(eventsJSON, &s.Events); err != nil {
			return nil, fmt.Errorf("unmarshal events: %w", err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, rows.Err()
}

// Update записывает новую ревизию сценария и обновляет шапку.
// Номер ревизии инкрементируется атомарно в одной транзакции.
func (r *ScenarioRepo) Update(ctx context.Context, s *domain.ScenarioDefinition) error {
	eventsJSON, err := json.Marshal(s.Events)
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var nextRevision int
	err = tx.QueryRow(ctx, `
		UPDATE scenarios
		SET name = $2, description = $3, mitre_technique = $4, is_active = $5,
		    revision = revision + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING revision
	`,
		s.ID,
		s.Name,
		s.Description,
		s.MitreTechnique,
		s.IsActive,
	).Scan(&nextRevision)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update scenario: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO scenario_revisions (scenario_id, revision, events, created_at)
		VALUES ($1, $2, $3, NOW())
	`, s.ID, nextRevision, eventsJSON)
	if err != nil {
		return fmt.Errorf("insert scenario revision: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	s.Revision = nextRevision
	return nil
}

// SetActive включает или выключает сценарий без новой ревизии.
func (r *ScenarioRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE scenarios SET is_active = $2, updated_at = NOW() WHERE id = $1
	`, id, active)
	if err != nil {
		return fmt.Errorf("set scenario active: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет сценарий (каскадно удалит ревизии и запуски).
func (r *ScenarioRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM scenarios WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete scenario: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanOne читает одну строку сценария.
func (r *ScenarioRepo) scanOne(row pgx.Row) (*domain.ScenarioDefinition, error) {
	var s domain.ScenarioDefinition
	var eventsJSON []byte
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Description,
		&s.MitreTechnique,
		&s.IsActive,
		&s.Revision,
		&s.CreatedAt,
		&s.UpdatedAt,
		&eventsJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get scenario: %w", err)
	}

	if err := json.Unmarshal(eventsJSON, &s.Events); err != nil {
		return nil, fmt.Errorf("unmarshal events: %w", err)
	}
	return &s, nil
}
