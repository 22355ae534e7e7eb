package engine

import (
	"errors"
	"testing"

	"github.com/shaiso/Conductor/internal/domain"
)

func buildTemplate() *domain.TemplateDefinition {
	return &domain.TemplateDefinition{
		Name:    "build",
		Version: "1",
		Parameters: []domain.ParameterSpec{
			{Name: "version", Type: domain.ParamTypeString, Required: true},
			{Name: "publish", Type: domain.ParamTypeBool, Default: false, HasDefault: true},
		},
		Steps: []domain.StepSpec{
			{ID: "restore", Run: "restore-deps"},
			{ID: "compile", Run: "compile", DependsOn: []string{"restore"}},
			{ID: "push", Run: "push-artifact", Condition: "publish", DependsOn: []string{"compile"}},
		},
	}
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(buildTemplate()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	def, err := reg.Lookup("build", "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.Ref() != "build@1" {
		t.Errorf("expected build@1, got %s", def.Ref())
	}
	if len(def.Steps) != 3 {
		t.Errorf("expected 3 steps, got %d", len(def.Steps))
	}
}

func TestRegistry_DuplicateTemplate(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register(buildTemplate()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := reg.Register(buildTemplate())
	if !errors.Is(err, ErrDuplicateTemplate) {
		t.Errorf("expected ErrDuplicateTemplate, got %v", err)
	}

	// Новая версия того же имени — не дубликат.
	v2 := buildTemplate()
	v2.Version = "2"
	if err := reg.Register(v2); err != nil {
		t.Errorf("registering new version should succeed, got %v", err)
	}
}

func TestRegistry_LookupNotFound(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Lookup("missing", "1")
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("expected ErrTemplateNotFound, got %v", err)
	}

	// Та же пара name + другая version тоже отсутствует.
	if err := reg.Register(buildTemplate()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = reg.Lookup("build", "99")
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("expected ErrTemplateNotFound for wrong version, got %v", err)
	}
}

func TestRegistry_ImmutableAfterRegister(t *testing.T) {
	reg := NewRegistry()

	src := buildTemplate()
	if err := reg.Register(src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Мутация исходника после регистрации не должна затронуть хранимую копию.
	src.Steps[0].Run = "mutated"
	src.Parameters[0].Required = false

	def, err := reg.Lookup("build", "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.Steps[0].Run != "restore-deps" {
		t.Error("stored template should not see caller mutations")
	}
	if !def.Parameters[0].Required {
		t.Error("stored parameter spec should not see caller mutations")
	}
}

func TestValidateTemplate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(def *domain.TemplateDefinition)
		wantErr error
	}{
		{
			name:    "empty name",
			mutate:  func(def *domain.TemplateDefinition) { def.Name = "" },
			wantErr: ErrEmptyTemplateName,
		},
		{
			name:    "no steps",
			mutate:  func(def *domain.TemplateDefinition) { def.Steps = nil },
			wantErr: ErrEmptySteps,
		},
		{
			name: "duplicate step ID",
			mutate: func(def *domain.TemplateDefinition) {
				def.Steps = append(def.Steps, domain.StepSpec{ID: "compile", Run: "again"})
			},
			wantErr: ErrDuplicateStepID,
		},
		{
			name: "duplicate parameter",
			mutate: func(def *domain.TemplateDefinition) {
				def.Parameters = append(def.Parameters,
					domain.ParameterSpec{Name: "version", Type: domain.ParamTypeInt})
			},
			wantErr: ErrDuplicateParameter,
		},
		{
			name: "invalid parameter type",
			mutate: func(def *domain.TemplateDefinition) {
				def.Parameters[0].Type = "float"
			},
			wantErr: ErrInvalidParamType,
		},
		{
			name: "enum without values",
			mutate: func(def *domain.TemplateDefinition) {
				def.Parameters[0].Type = domain.ParamTypeEnum
			},
			wantErr: ErrEmptyEnum,
		},
		{
			name: "default of wrong type",
			mutate: func(def *domain.TemplateDefinition) {
				def.Parameters[1].Default = "yes"
			},
			wantErr: ErrInvalidDefault,
		},
		{
			name: "unknown step dependency",
			mutate: func(def *domain.TemplateDefinition) {
				def.Steps[1].DependsOn = []string{"warmup"}
			},
			wantErr: ErrUnknownStepReference,
		},
		{
			name: "bad condition syntax",
			mutate: func(def *domain.TemplateDefinition) {
				def.Steps[2].Condition = "publish =="
			},
			wantErr: ErrConditionSyntax,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := buildTemplate()
			tt.mutate(def)

			err := ValidateTemplate(def)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateTemplate_ForwardReference(t *testing.T) {
	// Зависимость только назад: ссылка на шаг, объявленный ниже, запрещена.
	def := &domain.TemplateDefinition{
		Name:    "fwd",
		Version: "1",
		Steps: []domain.StepSpec{
			{ID: "first", Run: "a", DependsOn: []string{"second"}},
			{ID: "second", Run: "b"},
		},
	}

	err := ValidateTemplate(def)
	if !errors.Is(err, ErrForwardStepReference) {
		t.Errorf("expected ErrForwardStepReference, got %v", err)
	}

	var terr *TemplateError
	if !errors.As(err, &terr) {
		t.Fatal("expected TemplateError")
	}
	if terr.StepID != "first" {
		t.Errorf("expected offending step first, got %s", terr.StepID)
	}
}

func TestValidateTemplate_SelfDependency(t *testing.T) {
	def := &domain.TemplateDefinition{
		Name:    "selfdep",
		Version: "1",
		Steps: []domain.StepSpec{
			{ID: "only", Run: "a", DependsOn: []string{"only"}},
		},
	}

	if err := ValidateTemplate(def); !errors.Is(err, ErrForwardStepReference) {
		t.Errorf("expected ErrForwardStepReference for self-dependency, got %v", err)
	}
}
