package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Conductor/internal/domain"
)

// TemplateRepo — репозиторий для работы с templates.
//
// Шаблоны неизменяемы: новая ревизия — новая строка с другой версией.
// UPDATE-операций здесь нет намеренно.
type TemplateRepo struct {
	pool *pgxpool.Pool
}

// NewTemplateRepo создаёт новый TemplateRepo.
func NewTemplateRepo(pool *pgxpool.Pool) *TemplateRepo {
	return &TemplateRepo{pool: pool}
}

// Create сохраняет новый шаблон.
// Пара (name, version) уникальна: повторная запись возвращает ErrAlreadyExists.
func (r *TemplateRepo) Create(ctx context.Context, def *domain.TemplateDefinition) error {
	defJSON, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshal definition: %w", err)
	}

	query := `
		INSERT INTO templates (name, version, definition, created_at)
		VALUES ($1, $2, $3, NOW())
	`
	_, err = r.pool.Exec(ctx, query, def.Name, def.Version, defJSON)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert template: %w", err)
	}
	return nil
}

// Get возвращает шаблон по имени и версии.
func (r *TemplateRepo) Get(ctx context.Context, name, version string) (*domain.TemplateDefinition, error) {
	query := `
		SELECT definition
		FROM templates
		WHERE name = $1 AND version = $2
	`
	var defJSON []byte
	err := r.pool.QueryRow(ctx, query, name, version).Scan(&defJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}

	var def domain.TemplateDefinition
	if err := json.Unmarshal(defJSON, &def); err != nil {
		return nil, fmt.Errorf("unmarshal definition: %w", err)
	}
	return &def, nil
}

// List возвращает все шаблоны, упорядоченные по имени и версии.
func (r *TemplateRepo) List(ctx context.Context) ([]domain.TemplateDefinition, error) {
	query := `
		SELECT definition
		FROM templates
		ORDER BY name ASC, version ASC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var defs []domain.TemplateDefinition
	for rows.Next() {
		var defJSON []byte
		if err := rows.Scan(&defJSON); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		var def domain.TemplateDefinition
		if err := json.Unmarshal(defJSON, &def); err != nil {
			return nil, fmt.Errorf("unmarshal definition: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// ListVersions возвращает все версии шаблона с данным именем.
func (r *TemplateRepo) ListVersions(ctx context.Context, name string) ([]domain.TemplateDefinition, error) {
	query := `
		SELECT definition
		FROM templates
		WHERE name = $1
		ORDER BY version ASC
	`
	rows, err := r.pool.Query(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("list template versions: %w", err)
	}
	defer rows.Close()

	var defs []domain.TemplateDefinition
	for rows.Next() {
		var defJSON []byte
		if err := rows.Scan(&defJSON); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		var def domain.TemplateDefinition
		if err := json.Unmarshal(defJSON, &def); err != nil {
			return nil, fmt.Errorf("unmarshal definition: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// Delete удаляет шаблон.
func (r *TemplateRepo) Delete(ctx context.Context, name, version string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM templates WHERE name = $1 AND version = $2`, name, version)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
