package domain

// ParamType — объявленный тип параметра шаблона.
type ParamType string

// Допустимые типы параметров.
const (
	// ParamTypeString — строковый параметр.
	ParamTypeString ParamType = "string"

	// ParamTypeBool — булев параметр.
	ParamTypeBool ParamType = "bool"

	// ParamTypeInt — целочисленный параметр.
	ParamTypeInt ParamType = "int"

	// ParamTypeEnum — строковый параметр с фиксированным набором значений.
	ParamTypeEnum ParamType = "enum"
)

// IsValid возвращает true, если тип параметра известен.
func (t ParamType) IsValid() bool {
	switch t {
	case ParamTypeString, ParamTypeBool, ParamTypeInt, ParamTypeEnum:
		return true
	default:
		return false
	}
}

// TemplateDefinition — именованный, версионированный шаблон pipeline.
//
// Шаблон объявляет схему параметров и список шагов. После регистрации
// в Registry определение неизменяемо — обновление означает регистрацию
// новой версии с тем же именем.
type TemplateDefinition struct {
	// Name — имя шаблона (например, "build", "deploy").
	Name string `json:"name"`

	// Version — версия шаблона (например, "1", "2.1").
	// Пара name+version уникальна в рамках Registry.
	Version string `json:"version"`

	// Description — описание назначения шаблона.
	Description string `json:"description,omitempty"`

	// Parameters — упорядоченная схема параметров.
	Parameters []ParameterSpec `json:"parameters,omitempty"`

	// Steps — упорядоченный список шагов.
	Steps []StepSpec `json:"steps"`
}

// Ref возвращает ссылку вида "name@version" для логов и ошибок.
func (d *TemplateDefinition) Ref() string {
	return d.Name + "@" + d.Version
}

// Parameter возвращает спецификацию параметра по имени.
// Второе значение — false, если параметр не объявлен.
func (d *TemplateDefinition) Parameter(name string) (*ParameterSpec, bool) {
	for i := range d.Parameters {
		if d.Parameters[i].Name == name {
			return &d.Parameters[i], true
		}
	}
	return nil, false
}

// ParameterSpec — объявление одного параметра шаблона.
type ParameterSpec struct {
	// Name — имя параметра, уникальное в рамках шаблона.
	Name string `json:"name"`

	// Type — объявленный тип: "string", "bool", "int", "enum".
	Type ParamType `json:"type"`

	// Required — обязателен ли параметр.
	// Параметр с default считается удовлетворённым и без явного значения.
	Required bool `json:"required,omitempty"`

	// Default — значение по умолчанию.
	// Применяется только если вызывающий не передал значение.
	// Тип default обязан совпадать с объявленным типом.
	Default any `json:"default,omitempty"`

	// HasDefault — объявлен ли default.
	// Отдельный флаг, потому что nil Default неотличим от отсутствия.
	HasDefault bool `json:"has_default,omitempty"`

	// Enum — допустимые значения (только для type="enum").
	Enum []string `json:"enum,omitempty"`

	// Description — описание параметра.
	Description string `json:"description,omitempty"`
}

// StepSpec — объявление шага внутри шаблона.
type StepSpec struct {
	// ID — идентификатор шага, уникальный в рамках шаблона.
	ID string `json:"id"`

	// Name — человекочитаемое имя шага.
	Name string `json:"name,omitempty"`

	// Run — ссылка на команду/действие, которое выполнит внешний executor.
	Run string `json:"run"`

	// Condition — условие выполнения над связанными параметрами.
	// Пустая строка означает безусловное выполнение.
	// Пример: `mode == "release" && publish`
	Condition string `json:"condition,omitempty"`

	// DependsOn — ID шагов этого же шаблона, которые должны завершиться раньше.
	// Ссылки только назад: шаг может зависеть лишь от шагов, объявленных выше.
	DependsOn []string `json:"depends_on,omitempty"`
}
