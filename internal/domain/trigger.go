package domain

import (
	"time"

	"github.com/google/uuid"
)

// Trigger — расписание автоматического планирования pipeline.
//
// Trigger позволяет запрашивать план:
// - По cron-выражению: "0 3 * * *" (nightly build в 3:00)
// - По интервалу: каждые N секунд
//
// Scheduler проверяет next_due_at и создаёт запрос плана, когда время подошло.
type Trigger struct {
	// ID — уникальный идентификатор trigger.
	ID uuid.UUID `json:"id"`

	// PipelineID — ссылка на pipeline, для которого запрашивать план.
	PipelineID uuid.UUID `json:"pipeline_id"`

	// Name — имя триггера для удобства.
	Name string `json:"name,omitempty"`

	// CronExpr — cron-выражение.
	// Формат: "минуты часы дни месяцы дни_недели"
	// Примеры:
	//   "0 3 * * *"     — каждый день в 3:00
	//   "*/15 * * * *"  — каждые 15 минут
	// Если задан CronExpr, IntervalSec игнорируется.
	CronExpr string `json:"cron_expr,omitempty"`

	// IntervalSec — интервал в секундах между запросами.
	// Используется если CronExpr не задан.
	IntervalSec int `json:"interval_sec,omitempty"`

	// Timezone — часовой пояс для вычисления времени.
	// По умолчанию: "UTC".
	Timezone string `json:"timezone"`

	// Enabled — флаг активности триггера.
	// Если false, scheduler игнорирует этот trigger.
	Enabled bool `json:"enabled"`

	// NextDueAt — время следующего срабатывания.
	// Scheduler создаёт запрос плана, когда now >= NextDueAt.
	NextDueAt *time.Time `json:"next_due_at,omitempty"`

	// LastFiredAt — время последнего срабатывания.
	LastFiredAt *time.Time `json:"last_fired_at,omitempty"`

	// LastPlanID — ID последнего созданного запроса плана.
	LastPlanID *uuid.UUID `json:"last_plan_id,omitempty"`

	// CreatedAt — время создания trigger.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsCron возвращает true, если trigger использует cron-выражение.
func (t *Trigger) IsCron() bool {
	return t.CronExpr != ""
}

// IsInterval возвращает true, если trigger использует интервал.
func (t *Trigger) IsInterval() bool {
	return t.CronExpr == "" && t.IntervalSec > 0
}

// IsDue проверяет, пора ли срабатывать.
func (t *Trigger) IsDue(now time.Time) bool {
	if !t.Enabled {
		return false
	}
	if t.NextDueAt == nil {
		return false
	}
	return now.After(*t.NextDueAt) || now.Equal(*t.NextDueAt)
}

// RecordFired записывает информацию о срабатывании.
func (t *Trigger) RecordFired(planID uuid.UUID, nextDue time.Time) {
	now := time.Now()
	t.LastFiredAt = &now
	t.LastPlanID = &planID
	t.NextDueAt = &nextDue
	t.UpdatedAt = now
}
