package engine

import (
	"fmt"
	"sort"

	"github.com/shaiso/Conductor/internal/domain"
)

// Bind связывает переданные значения со схемой параметров шаблона.
//
// Политика:
//   - Неизвестные параметры отклоняются (fail closed) — опечатка не пройдёт молча.
//   - Defaults применяются только для параметров, отсутствующих в supplied.
//   - Коэрция типов не выполняется никогда: bool обязан быть bool,
//     а не строкой "true".
//
// Bind детерминирован и идемпотентен: одинаковый вход даёт одинаковое
// связывание; возвращаемая map каждый раз новая.
func Bind(def *domain.TemplateDefinition, supplied map[string]any) (domain.Binding, error) {
	ref := def.Ref()

	// 1. Отклоняем неизвестные имена. Проверяем в лексикографическом
	// порядке, чтобы ошибка была детерминированной при нескольких опечатках.
	unknown := make([]string, 0)
	for name := range supplied {
		if _, declared := def.Parameter(name); !declared {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &BindError{Template: ref, Name: unknown[0], Err: ErrUnknownParameter}
	}

	// 2. Обходим схему в объявленном порядке.
	binding := make(domain.Binding, len(def.Parameters))

	for i := range def.Parameters {
		spec := &def.Parameters[i]

		value, present := supplied[spec.Name]
		if !present {
			if spec.HasDefault {
				binding[spec.Name] = spec.Default
				continue
			}
			if spec.Required {
				return nil, &BindError{Template: ref, Name: spec.Name, Err: ErrMissingRequiredParameter}
			}
			// Необязательный параметр без default не попадает в binding.
			continue
		}

		normalized, err := checkType(spec, value)
		if err != nil {
			return nil, &BindError{
				Template: ref,
				Name:     spec.Name,
				Expected: spec.Type,
				Actual:   typeName(value),
				Err:      ErrTypeMismatch,
			}
		}
		binding[spec.Name] = normalized
	}

	return binding, nil
}

// checkType проверяет значение против объявленного типа.
//
// Возвращает нормализованное значение: целые числа приводятся к int64
// независимо от исходного Go-представления. JSON-декодер отдаёт числа
// как float64 — целый float64 принимается для int, дробный нет.
// Всё остальное — строгая проверка без коэрции.
func checkType(spec *domain.ParameterSpec, value any) (any, error) {
	switch spec.Type {
	case domain.ParamTypeString:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected string", ErrTypeMismatch)
		}
		return s, nil

	case domain.ParamTypeBool:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: expected bool", ErrTypeMismatch)
		}
		return b, nil

	case domain.ParamTypeInt:
		switch v := value.(type) {
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case int64:
			return v, nil
		case float64:
			if v == float64(int64(v)) {
				return int64(v), nil
			}
			return nil, fmt.Errorf("%w: expected int, got fractional number", ErrTypeMismatch)
		default:
			return nil, fmt.Errorf("%w: expected int", ErrTypeMismatch)
		}

	case domain.ParamTypeEnum:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected one of enum values", ErrTypeMismatch)
		}
		for _, allowed := range spec.Enum {
			if s == allowed {
				return s, nil
			}
		}
		return nil, fmt.Errorf("%w: %q is not an allowed enum value", ErrTypeMismatch, s)

	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidParamType, spec.Type)
	}
}

// typeName возвращает имя типа значения для сообщений об ошибках.
func typeName(value any) string {
	switch value.(type) {
	case string:
		return "string"
	case bool:
		return "bool"
	case int, int32, int64:
		return "int"
	case float64, float32:
		return "number"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", value)
	}
}
