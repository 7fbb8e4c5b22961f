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

// TemplateRepo — репозиторий для работы с шаблонами событий.
//
// Шаблоны неизменяемы: правка создаёт следующую версию, старые версии
// остаются доступны для уже сохранённых сценариев.
type TemplateRepo struct {
	pool *pgxpool.Pool
}

// NewTemplateRepo создаёт новый TemplateRepo.
func NewTemplateRepo(pool *pgxpool.Pool) *TemplateRepo {
	return &TemplateRepo{pool: pool}
}

// Create создаёт шаблон с версией 1.
func (r *TemplateRepo) Create(ctx context.Context, t *domain.EventTemplate) error {
	paramsJSON, err := json.Marshal(t.Parameters)
	if err != nil {
		return fmt.Errorf("marshal parameters: %w", err)
	}

	query := `
		INSERT INTO event_templates (id, version, name, channel, event_id, level, source, parameters, mitre_technique, created_at)
		VALUES ($1, 1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING version, created_at
	`
	err = r.pool.QueryRow(ctx, query,
		t.ID,
		t.Name,
		t.Channel,
		t.EventID,
		t.Level,
		t.Source,
		paramsJSON,
		t.MitreTechnique,
	).Scan(&t.Version, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

// CreateVersion создаёт следующую версию существующего шаблона.
func (r *TemplateRepo) CreateVersion(ctx context.Context, t *domain.EventTemplate) error {
	paramsJSON, err := json.Marshal(t.Parameters)
	if err != nil {
		return fmt.Errorf("marshal parameters: %w", err)
	}

	// Получаем следующий номер версии
	var nextVersion int
	err = r.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(version), 0) + 1
		FROM event_templates
		WHERE id = $1
	`, t.ID).Scan(&nextVersion)
	if err != nil {
		return fmt.Errorf("get next version: %w", err)
	}

	query := `
		INSERT INTO event_templates (id, version, name, channel, event_id, level, source, parameters, mitre_technique, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING created_at
	`
	err = r.pool.QueryRow(ctx, query,
		t.ID,
		nextVersion,
		t.Name,
		t.Channel,
		t.EventID,
		t.Level,
		t.Source,
		paramsJSON,
		t.MitreTechnique,
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert template version: %w", err)
	}
	t.Version = nextVersion
	return nil
}

// GetByID возвращает последнюю версию шаблона.
func (r *TemplateRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.EventTemplate, error) {
	query := `
		SELECT id, version, name, channel, event_id, level, source, parameters, mitre_technique, created_at
		FROM event_templates
		WHERE id = $1
		ORDER BY version DESC
		LIMIT 1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetTemplate возвращает последнюю версию шаблона.
// Под этим именем репозиторий удовлетворяет интерфейс хранилища
// шаблонов движка выполнения.
func (r *TemplateRepo) GetTemplate(ctx context.Context, id uuid.UUID) (*domain.EventTemplate, error) {
	return r.GetByID(ctx, id)
}

// GetVersion возвращает конкретную версию шаблона.
func (r *TemplateRepo) GetVersion(ctx context.Context, id uuid.UUID, version int) (*domain.EventTemplate, error) {
	query := `
		SELECT id, version, name, channel, event_id, level, source, parameters, mitre_technique, created_at
		FROM event_templates
		WHERE id = $1 AND version = $2
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, id, version))
}

// GetByName возвращает последнюю версию шаблона по имени.
func (r *TemplateRepo) GetByName(ctx context.Context, name string) (*domain.EventTemplate, error) {
	query := `
		SELECT id, version, name, channel, event_id, level, source, parameters, mitre_technique, created_at
		FROM event_templates
		WHERE name = $1
		ORDER BY version DESC
		LIMIT 1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, name))
}

// List возвращает последние версии всех шаблонов.
func (r *TemplateRepo) List(ctx context.Context) ([]domain.EventTemplate, error) {
	query := `
		SELECT DISTINCT ON (id) id, version, name, channel, event_id, level, source, parameters, mitre_technique, created_at
		FROM event_templates
		ORDER BY id, version DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []domain.EventTemplate
	for rows.Next() {
		var t domain.EventTemplate
		var paramsJSON []byte
		if err := rows.Scan(
			&t.ID,
			&t.Version,
			&t.Name,
			&t.Channel,
			&t.EventID,
			&t.Level,
			&t.Source,
			&paramsJSON,
			&t.MitreTechnique,
			&t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		if err := json.Unmarshal(paramsJSON, &t.Parameters); err != nil {
			return nil, fmt.Errorf("unmarshal parameters: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// ListVersions возвращает все версии шаблона.
func (r *TemplateRepo) ListVersions(ctx context.Context, id uuid.UUID) ([]domain.EventTemplate, error) {
	query := `
		SELECT id, version, name, channel, event_id, level, source, parameters, mitre_technique, created_at
		FROM event_templates
		WHERE id = $1
		ORDER BY version DESC
	`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("list template versions: %w", err)
	}
	defer rows.Close()

	var versions []domain.EventTemplate
	for rows.Next() {
		var t domain.EventTemplate
		var paramsJSON []byte
		if err := rows.Scan(
			&t.ID,
			&t.Version,
			&t.Name,
			&t.Channel,
			&t.EventID,
			&t.Level,
			&t.Source,
			&paramsJSON,
			&t.MitreTechnique,
			&t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan template version: %w", err)
		}
		if err := json.Unmarshal(paramsJSON, &t.Parameters); err != nil {
			return nil, fmt.Errorf("unmarshal parameters: %w", err)
		}
		versions = append(versions, t)
	}
	return versions, rows.Err()
}

// Delete удаляет шаблон со всеми версиями.
func (r *TemplateRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM event_templates WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanOne читает одну строку шаблона.
func (r *TemplateRepo) scanOne(row pgx.Row) (*domain.EventTemplate, error) {
	var t domain.EventTemplate
	var paramsJSON []byte
	err := row.Scan(
		&t.ID,
		&t.Version,
		&t.Name,
		&t.Channel,
		&t.EventID,
		&t.Level,
		&t.Source,
		&paramsJSON,
		&t.MitreTechnique,
		&t.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}

	if err := json.Unmarshal(paramsJSON, &t.Parameters); err != nil {
		return nil, fmt.Errorf("unmarshal parameters: %w", err)
	}
	return &t, nil
}
