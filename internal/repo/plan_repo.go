package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Conductor/internal/domain"
)

// PlanRepo — репозиторий для работы с plans.
type PlanRepo struct {
	pool *pgxpool.Pool
}

// NewPlanRepo создаёт новый PlanRepo.
func NewPlanRepo(pool *pgxpool.Pool) *PlanRepo {
	return &PlanRepo{pool: pool}
}

// Create создаёт новую запись плана.
func (r *PlanRepo) Create(ctx context.Context, record *domain.PlanRecord) error {
	planJSON, err := marshalPlan(record.Plan)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO plans (id, pipeline_id, version, status, plan, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query,
		record.ID,
		record.PipelineID,
		record.Version,
		record.Status,
		planJSON,
		nullString(record.IdempotencyKey),
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

// GetByID возвращает запись плана по ID.
func (r *PlanRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PlanRecord, error) {
	query := `
		SELECT id, pipeline_id, version, status, plan, error, idempotency_key, finished_at, created_at
		FROM plans
		WHERE id = $1
	`
	return r.scanPlan(r.pool.QueryRow(ctx, query, id))
}

// GetByIdempotencyKey возвращает запись плана по ключу идемпотентности.
func (r *PlanRepo) GetByIdempotencyKey(ctx context.Context, pipelineID uuid.UUID, key string) (*domain.PlanRecord, error) {
	query := `
		SELECT id, pipeline_id, version, status, plan, error, idempotency_key, finished_at, created_at
		FROM plans
		WHERE pipeline_id = $1 AND idempotency_key = $2
	`
	return r.scanPlan(r.pool.QueryRow(ctx, query, pipelineID, key))
}

// List возвращает список записей планов с фильтрацией.
func (r *PlanRepo) List(ctx context.Context, filter PlanFilter) ([]domain.PlanRecord, error) {
	query := `
		SELECT id, pipeline_id, version, status, plan, error, idempotency_key, finished_at, created_at
		FROM plans
		WHERE ($1::uuid IS NULL OR pipeline_id = $1)
		  AND ($2::text IS NULL OR status = $2::plan_status)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullUUID(filter.PipelineID),
		nullString(string(filter.Status)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var records []domain.PlanRecord
	for rows.Next() {
		record, err := r.scanPlanFromRows(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// Update обновляет запись плана.
func (r *PlanRepo) Update(ctx context.Context, record *domain.PlanRecord) error {
	planJSON, err := marshalPlan(record.Plan)
	if err != nil {
		return err
	}

	query := `
		UPDATE plans
		SET status = $2, plan = $3, error = $4, finished_at = $5
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		record.ID,
		record.Status,
		planJSON,
		nullString(record.Error),
		record.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPending возвращает записи в статусе PENDING.
func (r *PlanRepo) ListPending(ctx context.Context, limit int) ([]domain.PlanRecord, error) {
	query := `
		SELECT id, pipeline_id, version, status, plan, error, idempotency_key, finished_at, created_at
		FROM plans
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending plans: %w", err)
	}
	defer rows.Close()

	var records []domain.PlanRecord
	for rows.Next() {
		record, err := r.scanPlanFromRows(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// --- Helpers ---

// PlanFilter — параметры фильтрации plans.
type PlanFilter struct {
	PipelineID *uuid.UUID
	Status     domain.PlanStatus
	Limit      int
	Offset     int
}

// marshalPlan сериализует план в JSON. Nil-план остаётся NULL в БД.
func marshalPlan(plan *domain.ExecutionPlan) ([]byte, error) {
	if plan == nil {
		return nil, nil
	}
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("marshal plan: %w", err)
	}
	return planJSON, nil
}

// scanPlan сканирует одну строку в PlanRecord.
func (r *PlanRepo) scanPlan(row pgx.Row) (*domain.PlanRecord, error) {
	var record domain.PlanRecord
	var planJSON []byte
	var planError *string
	var idempotencyKey *string

	err := row.Scan(
		&record.ID,
		&record.PipelineID,
		&record.Version,
		&record.Status,
		&planJSON,
		&planError,
		&idempotencyKey,
		&record.FinishedAt,
		&record.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan plan: %w", err)
	}

	if planJSON != nil {
		record.Plan = &domain.ExecutionPlan{}
		if err := json.Unmarshal(planJSON, record.Plan); err != nil {
			return nil, fmt.Errorf("unmarshal plan: %w", err)
		}
	}

	if planError != nil {
		record.Error = *planError
	}
	if idempotencyKey != nil {
		record.IdempotencyKey = *idempotencyKey
	}

	return &record, nil
}

// scanPlanFromRows сканирует строку из rows в PlanRecord.
func (r *PlanRepo) scanPlanFromRows(rows pgx.Rows) (*domain.PlanRecord, error) {
	var record domain.PlanRecord
	var planJSON []byte
	var planError *string
	var idempotencyKey *string

	err := rows.Scan(
		&record.ID,
		&record.PipelineID,
		&record.Version,
		&record.Status,
		&planJSON,
		&planError,
		&idempotencyKey,
		&record.FinishedAt,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan plan: %w", err)
	}

	if planJSON != nil {
		record.Plan = &domain.ExecutionPlan{}
		if err := json.Unmarshal(planJSON, record.Plan); err != nil {
			return nil, fmt.Errorf("unmarshal plan: %w", err)
		}
	}

	if planError != nil {
		record.Error = *planError
	}
	if idempotencyKey != nil {
		record.IdempotencyKey = *idempotencyKey
	}

	return &record, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullUUID возвращает nil для пустого UUID.
func nullUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}
