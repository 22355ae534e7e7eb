package api

import (
	"log/slog"

	"github.com/shaiso/Conductor/internal/mq"
	"github.com/shaiso/Conductor/internal/repo"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	templateRepo *repo.TemplateRepo
	pipelineRepo *repo.PipelineRepo
	planRepo     *repo.PlanRepo
	triggerRepo  *repo.TriggerRepo
	publisher    *mq.Publisher
	logger       *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	TemplateRepo *repo.TemplateRepo
	PipelineRepo *repo.PipelineRepo
	PlanRepo     *repo.PlanRepo
	TriggerRepo  *repo.TriggerRepo
	Publisher    *mq.Publisher
	Logger       *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		templateRepo: cfg.TemplateRepo,
		pipelineRepo: cfg.PipelineRepo,
		planRepo:     cfg.PlanRepo,
		triggerRepo:  cfg.TriggerRepo,
		publisher:    cfg.Publisher,
		logger:       cfg.Logger,
	}
}
