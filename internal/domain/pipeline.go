package domain

import (
	"time"

	"github.com/google/uuid"
)

// Pipeline — именованное определение pipeline.
//
// Pipeline — это "точка входа" планирования: набор jobs, каждый из которых
// инстанцирует шаблон с конкретными параметрами. Одно pipeline может иметь
// множество версий (PipelineVersion); план всегда строится для конкретной версии.
type Pipeline struct {
	// ID — уникальный идентификатор pipeline.
	ID uuid.UUID `json:"id"`

	// Name — уникальное имя pipeline (например, "release", "nightly-ci").
	Name string `json:"name"`

	// IsActive — флаг активности. Неактивные pipelines не планируются триггерами.
	IsActive bool `json:"is_active"`

	// CreatedAt — время создания pipeline.
	CreatedAt time.Time `json:"created_at"`
}

// PipelineVersion — версия pipeline с конкретным определением.
//
// Версионирование позволяет отслеживать историю изменений и строить
// планы для старых версий.
type PipelineVersion struct {
	// PipelineID — ссылка на родительский pipeline.
	PipelineID uuid.UUID `json:"pipeline_id"`

	// Version — номер версии (1, 2, 3, ...).
	// Автоинкремент при публикации новой версии.
	Version int `json:"version"`

	// Def — определение pipeline в формате JSON.
	Def PipelineDef `json:"def"`

	// CreatedAt — время создания версии.
	CreatedAt time.Time `json:"created_at"`
}

// PipelineDef — определение pipeline (содержимое JSONB поля def).
//
// Это вход Graph Resolver'а: список jobs со ссылками на шаблоны,
// значениями параметров и явными зависимостями между jobs.
type PipelineDef struct {
	// Name — имя pipeline (дублирует Pipeline.Name для удобства).
	Name string `json:"name,omitempty"`

	// Description — описание назначения pipeline.
	Description string `json:"description,omitempty"`

	// Jobs — список jobs для планирования.
	Jobs []JobDef `json:"jobs"`
}

// JobDef — объявление одного job внутри pipeline.
type JobDef struct {
	// ID — идентификатор job, уникальный в рамках pipeline.
	// Используется в needs и в батчах ExecutionPlan.
	ID string `json:"id"`

	// Template — имя шаблона, который инстанцирует этот job.
	Template string `json:"template"`

	// Version — версия шаблона.
	Version string `json:"version"`

	// Parameters — значения параметров для связывания со схемой шаблона.
	Parameters map[string]any `json:"parameters,omitempty"`

	// Needs — ID jobs, которые должны попасть в более ранние батчи.
	Needs []string `json:"needs,omitempty"`
}
