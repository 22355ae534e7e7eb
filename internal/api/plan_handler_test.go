package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shaiso/Conductor/internal/domain"
)

func newTestHandler() *Handler {
	return NewHandler(Config{
		Logger: slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil)),
	})
}

func previewRequest(t *testing.T, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return httptest.NewRequest(http.MethodPost, "/api/v1/plans/preview", bytes.NewReader(data))
}

func TestPreviewPlan_Success(t *testing.T) {
	h := newTestHandler()

	req := previewRequest(t, PreviewPlanRequest{
		Templates: []domain.TemplateDefinition{
			{
				Name:    "build",
				Version: "1.0",
				Parameters: []domain.ParameterSpec{
					{Name: "target", Type: domain.ParamTypeString, Required: true},
				},
				Steps: []domain.StepSpec{
					{ID: "compile", Run: "make ${target}"},
				},
			},
		},
		Pipeline: domain.PipelineDef{
			Name: "release",
			Jobs: []domain.JobDef{
				{ID: "build-linux", Template: "build", Version: "1.0", Parameters: map[string]any{"target": "linux"}},
				{ID: "build-mac", Template: "build", Version: "1.0", Parameters: map[string]any{"target": "darwin"}},
			},
		},
	})

	rec := httptest.NewRecorder()
	h.PreviewPlan(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data domain.ExecutionPlan `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}

	if len(resp.Data.Batches) != 1 {
		t.Fatalf("batches = %d, want 1", len(resp.Data.Batches))
	}
	if len(resp.Data.Batches[0]) != 2 {
		t.Errorf("batch size = %d, want 2", len(resp.Data.Batches[0]))
	}
}

func TestPreviewPlan_ValidationError(t *testing.T) {
	h := newTestHandler()

	// Job не передаёт обязательный параметр — 422
	req := previewRequest(t, PreviewPlanRequest{
		Templates: []domain.TemplateDefinition{
			{
				Name:    "build",
				Version: "1.0",
				Parameters: []domain.ParameterSpec{
					{Name: "target", Type: domain.ParamTypeString, Required: true},
				},
				Steps: []domain.StepSpec{
					{ID: "compile", Run: "make"},
				},
			},
		},
		Pipeline: domain.PipelineDef{
			Jobs: []domain.JobDef{
				{ID: "build-linux", Template: "build", Version: "1.0"},
			},
		},
	})

	rec := httptest.NewRecorder()
	h.PreviewPlan(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422; body: %s", rec.Code, rec.Body.String())
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Error.Code != ErrCodeValidation {
		t.Errorf("code = %s, want %s", resp.Error.Code, ErrCodeValidation)
	}
}

func TestPreviewPlan_CycleError(t *testing.T) {
	h := newTestHandler()

	req := previewRequest(t, PreviewPlanRequest{
		Templates: []domain.TemplateDefinition{
			{
				Name:    "noop",
				Version: "1.0",
				Steps:   []domain.StepSpec{{ID: "run", Run: "true"}},
			},
		},
		Pipeline: domain.PipelineDef{
			Jobs: []domain.JobDef{
				{ID: "a", Template: "noop", Version: "1.0", Needs: []string{"b"}},
				{ID: "b", Template: "noop", Version: "1.0", Needs: []string{"a"}},
			},
		},
	})

	rec := httptest.NewRecorder()
	h.PreviewPlan(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422; body: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "cyclic dependency") {
		t.Errorf("body should mention cyclic dependency: %s", rec.Body.String())
	}
}

func TestPreviewPlan_BadBody(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/plans/preview", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	h.PreviewPlan(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
