package planner

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNew_Defaults(t *testing.T) {
	p := New(Config{})

	if p.pollInterval != defaultPollInterval {
		t.Errorf("pollInterval = %v, want %v", p.pollInterval, defaultPollInterval)
	}
	if p.batchSize != defaultBatchSize {
		t.Errorf("batchSize = %d, want %d", p.batchSize, defaultBatchSize)
	}
	if p.logger == nil {
		t.Error("logger should default to slog.Default")
	}
	if p.activePlans == nil {
		t.Error("activePlans map should be initialized")
	}
}

func TestNew_CustomConfig(t *testing.T) {
	p := New(Config{
		PollInterval: 3 * time.Second,
		BatchSize:    25,
	})

	if p.pollInterval != 3*time.Second {
		t.Errorf("pollInterval = %v, want 3s", p.pollInterval)
	}
	if p.batchSize != 25 {
		t.Errorf("batchSize = %d, want 25", p.batchSize)
	}
}

func TestPlanner_ActivePlans(t *testing.T) {
	p := New(Config{})
	planID := uuid.New()

	if p.isPlanActive(planID) {
		t.Error("plan should not be active initially")
	}

	if err := p.addActivePlan(planID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.isPlanActive(planID) {
		t.Error("plan should be active after add")
	}
	if p.ActivePlansCount() != 1 {
		t.Errorf("ActivePlansCount = %d, want 1", p.ActivePlansCount())
	}

	// Повторное добавление — конфликт
	if err := p.addActivePlan(planID); !errors.Is(err, ErrPlanAlreadyActive) {
		t.Errorf("expected ErrPlanAlreadyActive, got %v", err)
	}

	p.removeActivePlan(planID)
	if p.isPlanActive(planID) {
		t.Error("plan should not be active after remove")
	}
	if p.ActivePlansCount() != 0 {
		t.Errorf("ActivePlansCount = %d, want 0", p.ActivePlansCount())
	}
}

func TestPlanner_IsStopped(t *testing.T) {
	p := New(Config{})

	if p.IsStopped() {
		t.Error("planner should not be stopped initially")
	}

	p.Stop()

	if !p.IsStopped() {
		t.Error("planner should be stopped after Stop")
	}
}

func TestInfraError_Unwrap(t *testing.T) {
	base := errors.New("connection refused")
	wrapped := &infraError{err: fmt.Errorf("get template: %w", base)}

	if !errors.Is(wrapped, base) {
		t.Error("infraError should unwrap to the underlying error")
	}

	var infra *infraError
	if !errors.As(error(wrapped), &infra) {
		t.Error("errors.As should recognize infraError")
	}
}
