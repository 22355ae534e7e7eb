package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Conductor/internal/domain"
)

// TriggerRepo — репозиторий для работы с triggers.
type TriggerRepo struct {
	pool *pgxpool.Pool
}

// NewTriggerRepo создаёт новый TriggerRepo.
func NewTriggerRepo(pool *pgxpool.Pool) *TriggerRepo {
	return &TriggerRepo{pool: pool}
}

// Create создаёт новый trigger.
func (r *TriggerRepo) Create(ctx context.Context, trigger *domain.Trigger) error {
	query := `
		INSERT INTO triggers (id, pipeline_id, name, cron_expr, interval_sec, timezone,
		                      enabled, next_due_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		trigger.ID,
		trigger.PipelineID,
		nullString(trigger.Name),
		nullString(trigger.CronExpr),
		nullInt(trigger.IntervalSec),
		trigger.Timezone,
		trigger.Enabled,
		trigger.NextDueAt,
		trigger.CreatedAt,
		trigger.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trigger: %w", err)
	}
	return nil
}

// GetByID возвращает trigger по ID.
func (r *TriggerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Trigger, error) {
	query := `
		SELECT id, pipeline_id, name, cron_expr, interval_sec, timezone, enabled,
		       next_due_at, last_fired_at, last_plan_id, created_at, updated_at
		FROM triggers
		WHERE id = $1
	`
	return r.scanTrigger(r.pool.QueryRow(ctx, query, id))
}

// List возвращает список triggers с фильтрацией.
func (r *TriggerRepo) List(ctx context.Context, filter TriggerFilter) ([]domain.Trigger, error) {
	query := `
		SELECT id, pipeline_id, name, cron_expr, interval_sec, timezone, enabled,
		       next_due_at, last_fired_at, last_plan_id, created_at, updated_at
		FROM triggers
		WHERE ($1::uuid IS NULL OR pipeline_id = $1)
		  AND ($2::boolean IS NULL OR enabled = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullUUID(filter.PipelineID),
		filter.Enabled,
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list triggers: %w", err)
	}
	defer rows.Close()

	var triggers []domain.Trigger
	for rows.Next() {
		trigger, err := r.scanTriggerFromRows(rows)
		if err != nil {
			return nil, err
		}
		triggers = append(triggers, *trigger)
	}
	return triggers, rows.Err()
}

// ListDue возвращает triggers, готовые к срабатыванию.
func (r *TriggerRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Trigger, error) {
	query := `
		SELECT id, pipeline_id, name, cron_expr, interval_sec, timezone, enabled,
		       next_due_at, last_fired_at, last_plan_id, created_at, updated_at
		FROM triggers
		WHERE enabled = true
		  AND next_due_at IS NOT NULL
		  AND next_due_at <= $1
		ORDER BY next_due_at ASC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due triggers: %w", err)
	}
	defer rows.Close()

	var triggers []domain.Trigger
	for rows.Next() {
		trigger, err := r.scanTriggerFromRows(rows)
		if err != nil {
			return nil, err
		}
		triggers = append(triggers, *trigger)
	}
	return triggers, rows.Err()
}

// Update обновляет trigger.
func (r *TriggerRepo) Update(ctx context.Context, trigger *domain.Trigger) error {
	query := `
		UPDATE triggers
		SET name = $2, cron_expr = $3, interval_sec = $4, timezone = $5,
		    enabled = $6, next_due_at = $7, last_fired_at = $8, last_plan_id = $9,
		    updated_at = $10
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		trigger.ID,
		nullString(trigger.Name),
		nullString(trigger.CronExpr),
		nullInt(trigger.IntervalSec),
		trigger.Timezone,
		trigger.Enabled,
		trigger.NextDueAt,
		trigger.LastFiredAt,
		trigger.LastPlanID,
		trigger.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update trigger: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет trigger.
func (r *TriggerRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM triggers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete trigger: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetEnabled включает/выключает trigger.
func (r *TriggerRepo) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE triggers SET enabled = $2, updated_at = NOW() WHERE id = $1
	`, id, enabled)
	if err != nil {
		return fmt.Errorf("set enabled: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

// TriggerFilter — параметры фильтрации triggers.
type TriggerFilter struct {
	PipelineID *uuid.UUID
	Enabled    *bool
	Limit      int
	Offset     int
}

func (r *TriggerRepo) scanTrigger(row pgx.Row) (*domain.Trigger, error) {
	var t domain.Trigger
	var name, cronExpr *string
	var intervalSec *int

	err := row.Scan(
		&t.ID,
		&t.PipelineID,
		&name,
		&cronExpr,
		&intervalSec,
		&t.Timezone,
		&t.Enabled,
		&t.NextDueAt,
		&t.LastFiredAt,
		&t.LastPlanID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan trigger: %w", err)
	}

	if name != nil {
		t.Name = *name
	}
	if cronExpr != nil {
		t.CronExpr = *cronExpr
	}
	if intervalSec != nil {
		t.IntervalSec = *intervalSec
	}

	return &t, nil
}

func (r *TriggerRepo) scanTriggerFromRows(rows pgx.Rows) (*domain.Trigger, error) {
	var t domain.Trigger
	var name, cronExpr *string
	var intervalSec *int

	err := rows.Scan(
		&t.ID,
		&t.PipelineID,
		&name,
		&cronExpr,
		&intervalSec,
		&t.Timezone,
		&t.Enabled,
		&t.NextDueAt,
		&t.LastFiredAt,
		&t.LastPlanID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan trigger: %w", err)
	}

	if name != nil {
		t.Name = *name
	}
	if cronExpr != nil {
		t.CronExpr = *cronExpr
	}
	if intervalSec != nil {
		t.IntervalSec = *intervalSec
	}

	return &t, nil
}

// nullInt возвращает nil для нулевого int.
func nullInt(i int) *int {
	if i == 0 {
		return nil
	}
	return &i
}
