package engine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shaiso/Conductor/internal/domain"
)

// Registry — in-memory хранилище зарегистрированных шаблонов.
//
// Шаблон идентифицируется парой name+version. Зарегистрированное
// определение неизменяемо: обновление означает регистрацию новой версии.
// Registry потокобезопасен — несвязанные pipelines можно резолвить
// параллельно без внешних блокировок.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*domain.TemplateDefinition
}

// NewRegistry создаёт пустой Registry.
func NewRegistry() *Registry {
	return &Registry{
		templates: make(map[string]*domain.TemplateDefinition),
	}
}

// templateKey формирует ключ хранения из name+version.
func templateKey(name, version string) string {
	return name + "@" + version
}

// Register регистрирует шаблон.
//
// Возвращает ErrDuplicateTemplate, если пара name+version уже занята.
// Определение валидируется на входе (см. ValidateTemplate) и копируется,
// чтобы последующие мутации у вызывающего не затронули хранимую копию.
func (r *Registry) Register(def *domain.TemplateDefinition) error {
	if err := ValidateTemplate(def); err != nil {
		return err
	}

	key := templateKey(def.Name, def.Version)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.templates[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTemplate, key)
	}

	r.templates[key] = copyTemplate(def)
	return nil
}

// Lookup возвращает шаблон по name+version.
// Возвращает ErrTemplateNotFound, если шаблон не зарегистрирован.
// Возвращаемое определение принадлежит Registry — вызывающий не должен его мутировать.
func (r *Registry) Lookup(name, version string) (*domain.TemplateDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, exists := r.templates[templateKey(name, version)]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, templateKey(name, version))
	}
	return def, nil
}

// List возвращает отсортированные ссылки (name@version) всех шаблонов.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.templates))
	for key := range r.templates {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Size возвращает количество зарегистрированных шаблонов.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.templates)
}

// copyTemplate делает глубокую копию определения шаблона.
func copyTemplate(def *domain.TemplateDefinition) *domain.TemplateDefinition {
	cp := *def

	cp.Parameters = make([]domain.ParameterSpec, len(def.Parameters))
	copy(cp.Parameters, def.Parameters)
	for i := range cp.Parameters {
		if len(cp.Parameters[i].Enum) > 0 {
			enum := make([]string, len(cp.Parameters[i].Enum))
			copy(enum, cp.Parameters[i].Enum)
			cp.Parameters[i].Enum = enum
		}
	}

	cp.Steps = make([]domain.StepSpec, len(def.Steps))
	copy(cp.Steps, def.Steps)
	for i := range cp.Steps {
		if len(cp.Steps[i].DependsOn) > 0 {
			deps := make([]string, len(cp.Steps[i].DependsOn))
			copy(deps, cp.Steps[i].DependsOn)
			cp.Steps[i].DependsOn = deps
		}
	}

	return &cp
}

// ValidateTemplate выполняет полную валидацию определения шаблона.
//
// Проверяет:
// - Наличие name, version и шагов
// - Уникальность имён параметров и корректность их типов
// - Соответствие default объявленному типу
// - Уникальность ID шагов
// - Зависимости шагов: только ссылки назад, на уже объявленные шаги
// - Синтаксис condition-выражений
func ValidateTemplate(def *domain.TemplateDefinition) error {
	if def == nil || def.Name == "" || def.Version == "" {
		return ErrEmptyTemplateName
	}

	ref := def.Ref()

	if len(def.Steps) == 0 {
		return &TemplateError{Template: ref, Message: "template has no steps", Err: ErrEmptySteps}
	}

	if err := validateParameters(ref, def.Parameters); err != nil {
		return err
	}

	return validateSteps(ref, def.Steps)
}

// validateParameters проверяет схему параметров.
func validateParameters(ref string, params []domain.ParameterSpec) error {
	seen := make(map[string]bool, len(params))

	for i := range params {
		p := &params[i]

		if p.Name == "" {
			return &TemplateError{Template: ref,
				Message: fmt.Sprintf("parameter %d has empty name", i), Err: ErrInvalidParamType}
		}

		if seen[p.Name] {
			return &TemplateError{Template: ref,
				Message: fmt.Sprintf("duplicate parameter name: %s", p.Name), Err: ErrDuplicateParameter}
		}
		seen[p.Name] = true

		if !p.Type.IsValid() {
			return &TemplateError{Template: ref,
				Message: fmt.Sprintf("parameter %s has invalid type: %s", p.Name, p.Type), Err: ErrInvalidParamType}
		}

		if p.Type == domain.ParamTypeEnum && len(p.Enum) == 0 {
			return &TemplateError{Template: ref,
				Message: fmt.Sprintf("enum parameter %s has no values", p.Name), Err: ErrEmptyEnum}
		}

		if p.HasDefault {
			if _, err := checkType(p, p.Default); err != nil {
				return &TemplateError{Template: ref,
					Message: fmt.Sprintf("parameter %s: default %v does not match type %s", p.Name, p.Default, p.Type),
					Err:     ErrInvalidDefault}
			}
		}
	}

	return nil
}

// validateSteps проверяет шаги и их внутренние зависимости.
// Зависимость может ссылаться только на шаг, объявленный выше.
func validateSteps(ref string, steps []domain.StepSpec) error {
	declared := make(map[string]bool, len(steps))

	for i := range steps {
		step := &steps[i]

		if step.ID == "" {
			return &TemplateError{Template: ref,
				Message: fmt.Sprintf("step %d has empty ID", i), Err: ErrEmptyStepID}
		}

		if declared[step.ID] {
			return &TemplateError{Template: ref, StepID: step.ID,
				Message: fmt.Sprintf("duplicate step ID: %s", step.ID), Err: ErrDuplicateStepID}
		}

		for _, dep := range step.DependsOn {
			if declared[dep] {
				continue
			}
			// Ссылка вперёд отличается от ссылки в никуда — для диагностики
			if stepDeclaredLater(steps[i+1:], dep) || dep == step.ID {
				return &TemplateError{Template: ref, StepID: step.ID,
					Message: fmt.Sprintf("depends on later step: %s", dep), Err: ErrForwardStepReference}
			}
			return &TemplateError{Template: ref, StepID: step.ID,
				Message: fmt.Sprintf("depends on unknown step: %s", dep), Err: ErrUnknownStepReference}
		}

		if step.Condition != "" {
			if _, err := ParseCondition(step.Condition); err != nil {
				return &TemplateError{Template: ref, StepID: step.ID,
					Message: fmt.Sprintf("invalid condition: %v", err), Err: err}
			}
		}

		declared[step.ID] = true
	}

	return nil
}

// stepDeclaredLater проверяет, объявлен ли шаг с таким ID в хвосте списка.
func stepDeclaredLater(tail []domain.StepSpec, id string) bool {
	for i := range tail {
		if tail[i].ID == id {
			return true
		}
	}
	return false
}
