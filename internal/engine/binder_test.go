package engine

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shaiso/Conductor/internal/domain"
)

func binderTemplate() *domain.TemplateDefinition {
	return &domain.TemplateDefinition{
		Name:    "build",
		Version: "1",
		Parameters: []domain.ParameterSpec{
			{Name: "version", Type: domain.ParamTypeString, Required: true},
			{Name: "parallel", Type: domain.ParamTypeInt, Default: int64(1), HasDefault: true},
			{Name: "publish", Type: domain.ParamTypeBool, Default: false, HasDefault: true},
			{Name: "mode", Type: domain.ParamTypeEnum, Enum: []string{"debug", "release"}},
		},
		Steps: []domain.StepSpec{
			{ID: "compile", Run: "compile"},
		},
	}
}

func TestBind_AppliesDefaults(t *testing.T) {
	def := binderTemplate()

	binding, err := Bind(def, map[string]any{"version": "8.0.x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if binding["version"] != "8.0.x" {
		t.Errorf("expected version 8.0.x, got %v", binding["version"])
	}
	if binding["parallel"] != int64(1) {
		t.Errorf("expected default parallel=1, got %v", binding["parallel"])
	}
	if binding["publish"] != false {
		t.Errorf("expected default publish=false, got %v", binding["publish"])
	}

	// Необязательный параметр без default не попадает в binding.
	if _, present := binding["mode"]; present {
		t.Error("optional parameter without default should be absent")
	}
}

func TestBind_MissingRequiredParameter(t *testing.T) {
	def := binderTemplate()

	_, err := Bind(def, map[string]any{})
	if !errors.Is(err, ErrMissingRequiredParameter) {
		t.Fatalf("expected ErrMissingRequiredParameter, got %v", err)
	}

	var berr *BindError
	if !errors.As(err, &berr) {
		t.Fatal("expected BindError")
	}
	if berr.Name != "version" {
		t.Errorf("expected offending parameter version, got %s", berr.Name)
	}
}

func TestBind_UnknownParameterRejected(t *testing.T) {
	def := binderTemplate()

	// Неизвестное имя отклоняется независимо от значения.
	_, err := Bind(def, map[string]any{"version": "1.0", "typo": "x"})
	if !errors.Is(err, ErrUnknownParameter) {
		t.Fatalf("expected ErrUnknownParameter, got %v", err)
	}

	var berr *BindError
	if !errors.As(err, &berr) {
		t.Fatal("expected BindError")
	}
	if berr.Name != "typo" {
		t.Errorf("expected offending parameter typo, got %s", berr.Name)
	}
}

func TestBind_NoTypeCoercion(t *testing.T) {
	def := binderTemplate()

	tests := []struct {
		name     string
		supplied map[string]any
	}{
		{
			// Булев литерал обязан быть bool, а не строкой "true".
			name:     "string for bool",
			supplied: map[string]any{"version": "1.0", "publish": "true"},
		},
		{
			name:     "number for string",
			supplied: map[string]any{"version": 8},
		},
		{
			name:     "string for int",
			supplied: map[string]any{"version": "1.0", "parallel": "4"},
		},
		{
			name:     "fractional number for int",
			supplied: map[string]any{"version": "1.0", "parallel": 2.5},
		},
		{
			name:     "bool for enum",
			supplied: map[string]any{"version": "1.0", "mode": true},
		},
		{
			name:     "value outside enum",
			supplied: map[string]any{"version": "1.0", "mode": "fast"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Bind(def, tt.supplied)
			if !errors.Is(err, ErrTypeMismatch) {
				t.Errorf("expected ErrTypeMismatch, got %v", err)
			}
		})
	}
}

func TestBind_IntNormalization(t *testing.T) {
	def := binderTemplate()

	// JSON-декодер отдаёт числа как float64 — целый float64 принимается.
	tests := []struct {
		name  string
		value any
	}{
		{"go int", 4},
		{"int64", int64(4)},
		{"integral float64", float64(4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			binding, err := Bind(def, map[string]any{"version": "1.0", "parallel": tt.value})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if binding["parallel"] != int64(4) {
				t.Errorf("expected normalized int64(4), got %T %v",
					binding["parallel"], binding["parallel"])
			}
		})
	}
}

func TestBind_Idempotent(t *testing.T) {
	def := binderTemplate()
	supplied := map[string]any{"version": "8.0.x", "mode": "release"}

	first, err := Bind(def, supplied)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Bind(def, supplied)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("binding is not idempotent: %v vs %v", first, second)
	}

	// Мутация одного binding не затрагивает другой.
	first["version"] = "mutated"
	if second["version"] != "8.0.x" {
		t.Error("bindings should be independent maps")
	}
}

func TestBind_BuildScenario(t *testing.T) {
	// Шаблон "build" с обязательным version:string.
	def := &domain.TemplateDefinition{
		Name:    "build",
		Version: "1",
		Parameters: []domain.ParameterSpec{
			{Name: "version", Type: domain.ParamTypeString, Required: true},
		},
		Steps: []domain.StepSpec{{ID: "compile", Run: "compile"}},
	}

	if _, err := Bind(def, map[string]any{}); !errors.Is(err, ErrMissingRequiredParameter) {
		t.Errorf("bind with empty values should fail, got %v", err)
	}

	binding, err := Bind(def, map[string]any{"version": "8.0.x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := domain.Binding{"version": "8.0.x"}
	if !reflect.DeepEqual(binding, want) {
		t.Errorf("expected %v, got %v", want, binding)
	}
}
