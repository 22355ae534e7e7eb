package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shaiso/Conductor/internal/domain"
)

// Ошибки Registry.
var (
	// ErrDuplicateTemplate — шаблон с таким name+version уже зарегистрирован.
	ErrDuplicateTemplate = errors.New("duplicate template")

	// ErrTemplateNotFound — шаблон не найден в registry.
	ErrTemplateNotFound = errors.New("template not found")
)

// Ошибки валидации шаблона при регистрации.
var (
	// ErrEmptyTemplateName — шаблон без имени или версии.
	ErrEmptyTemplateName = errors.New("template has empty name or version")

	// ErrEmptySteps — шаблон не содержит шагов.
	ErrEmptySteps = errors.New("template has no steps")

	// ErrEmptyStepID — шаг не имеет ID.
	ErrEmptyStepID = errors.New("step has empty ID")

	// ErrDuplicateStepID — несколько шагов с одинаковым ID.
	ErrDuplicateStepID = errors.New("duplicate step ID")

	// ErrDuplicateParameter — несколько параметров с одинаковым именем.
	ErrDuplicateParameter = errors.New("duplicate parameter name")

	// ErrInvalidParamType — неизвестный тип параметра.
	ErrInvalidParamType = errors.New("invalid parameter type")

	// ErrEmptyEnum — enum-параметр без допустимых значений.
	ErrEmptyEnum = errors.New("enum parameter has no values")

	// ErrInvalidDefault — default не совпадает с объявленным типом.
	ErrInvalidDefault = errors.New("default value does not match declared type")

	// ErrForwardStepReference — шаг зависит от шага, объявленного ниже.
	// Внутри шаблона допустимы только ссылки назад.
	ErrForwardStepReference = errors.New("step depends on a later step")

	// ErrUnknownStepReference — шаг зависит от несуществующего шага.
	ErrUnknownStepReference = errors.New("step depends on unknown step")
)

// Ошибки связывания параметров.
var (
	// ErrMissingRequiredParameter — не передан обязательный параметр без default.
	ErrMissingRequiredParameter = errors.New("missing required parameter")

	// ErrTypeMismatch — значение не совпадает с объявленным типом.
	// Коэрция не выполняется: bool обязан быть bool, а не строкой "true".
	ErrTypeMismatch = errors.New("parameter type mismatch")

	// ErrUnknownParameter — передан параметр, не объявленный в схеме.
	// Неизвестные имена отклоняются, чтобы опечатка не прошла молча.
	ErrUnknownParameter = errors.New("unknown parameter")
)

// Ошибки резолюции графа и планирования.
var (
	// ErrCyclicDependency — обнаружен цикл в зависимостях jobs.
	ErrCyclicDependency = errors.New("cyclic dependency detected")

	// ErrUnresolvedTemplateReference — job ссылается на отсутствующий шаблон.
	ErrUnresolvedTemplateReference = errors.New("unresolved template reference")

	// ErrUnknownJobReference — job зависит от несуществующего job.
	ErrUnknownJobReference = errors.New("job depends on unknown job")

	// ErrDuplicateJobID — несколько jobs с одинаковым ID.
	ErrDuplicateJobID = errors.New("duplicate job ID")

	// ErrEmptyJobID — job без ID.
	ErrEmptyJobID = errors.New("job has empty ID")

	// ErrEmptyPlan — pipeline без jobs при запрете пустых планов.
	ErrEmptyPlan = errors.New("empty plan")
)

// TemplateError — ошибка валидации шаблона с контекстом.
type TemplateError struct {
	Template string // ссылка на шаблон (name@version)
	StepID   string // ID шага, где произошла ошибка (может быть пустым)
	Message  string // описание ошибки
	Err      error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *TemplateError) Error() string {
	if e.StepID != "" {
		return fmt.Sprintf("template %s: step %s: %s", e.Template, e.StepID, e.Message)
	}
	return fmt.Sprintf("template %s: %s", e.Template, e.Message)
}

// Unwrap возвращает базовую ошибку.
func (e *TemplateError) Unwrap() error {
	return e.Err
}

// BindError — ошибка связывания параметров с контекстом.
type BindError struct {
	Template string          // ссылка на шаблон (name@version)
	Name     string          // имя параметра, вызвавшего ошибку
	Expected domain.ParamType // ожидаемый тип (для TypeMismatch)
	Actual   string          // фактический тип значения (для TypeMismatch)
	Err      error           // базовая ошибка
}

// Error реализует интерфейс error.
func (e *BindError) Error() string {
	switch {
	case errors.Is(e.Err, ErrTypeMismatch):
		return fmt.Sprintf("template %s: parameter %s: expected %s, got %s",
			e.Template, e.Name, e.Expected, e.Actual)
	case errors.Is(e.Err, ErrMissingRequiredParameter):
		return fmt.Sprintf("template %s: missing required parameter %s", e.Template, e.Name)
	case errors.Is(e.Err, ErrUnknownParameter):
		return fmt.Sprintf("template %s: unknown parameter %s", e.Template, e.Name)
	default:
		return fmt.Sprintf("template %s: parameter %s: %v", e.Template, e.Name, e.Err)
	}
}

// Unwrap возвращает базовую ошибку.
func (e *BindError) Unwrap() error {
	return e.Err
}

// CycleError — ошибка циклической зависимости с последовательностью узлов.
type CycleError struct {
	// Cycle — последовательность ID узлов, образующих цикл.
	Cycle []string
}

// Error реализует интерфейс error.
func (e *CycleError) Error() string {
	return "cyclic dependency: [" + strings.Join(e.Cycle, " -> ") + "]"
}

// Unwrap возвращает ErrCyclicDependency для проверки через errors.Is.
func (e *CycleError) Unwrap() error {
	return ErrCyclicDependency
}

// ResolveError — ошибка резолюции pipeline с контекстом job.
type ResolveError struct {
	JobID   string // ID job, где произошла ошибка
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ResolveError) Error() string {
	if e.JobID != "" {
		return "job " + e.JobID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ResolveError) Unwrap() error {
	return e.Err
}
