package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/shaiso/Conductor/internal/domain"
)

// Условия шагов — маленький закрытый язык выражений над связанными
// параметрами. Никакого динамического исполнения кода: выражение
// парсится в дерево с фиксированным набором вариантов (литерал,
// ссылка на параметр, сравнение, булева связка) и вычисляется
// напрямую против Binding.
//
// Грамматика:
//
//	expr    := or
//	or      := and ("||" and)*
//	and     := cmp ("&&" cmp)*
//	cmp     := unary (("==" | "!=" | "<" | "<=" | ">" | ">=") unary)?
//	unary   := "!" unary | primary
//	primary := literal | ident | "(" expr ")"
//
// Литералы: строки в одинарных или двойных кавычках, целые числа,
// true/false. Идентификатор — ссылка на параметр по имени.

// Ошибки языка условий.
var (
	// ErrConditionSyntax — выражение не парсится.
	ErrConditionSyntax = errors.New("condition syntax error")

	// ErrConditionEval — выражение не вычисляется против binding.
	ErrConditionEval = errors.New("condition evaluation error")
)

// Condition — разобранное условие шага.
type Condition struct {
	source string
	root   exprNode
}

// Source возвращает исходный текст условия.
func (c *Condition) Source() string {
	return c.source
}

// Eval вычисляет условие против связанных параметров.
// Возвращает ErrConditionEval, если выражение ссылается на несуществующий
// параметр, сравнивает несравнимые типы или даёт не-булев результат.
func (c *Condition) Eval(binding domain.Binding) (bool, error) {
	v, err := c.root.eval(binding)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: expression is not boolean (got %s)", ErrConditionEval, typeName(v))
	}
	return b, nil
}

// ParseCondition парсит текст условия в дерево выражения.
func ParseCondition(source string) (*Condition, error) {
	tokens, err := lexCondition(source)
	if err != nil {
		return nil, err
	}

	p := &condParser{source: source, tokens: tokens}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, fmt.Errorf("%w: unexpected %q in %q", ErrConditionSyntax, p.peek().text, source)
	}

	return &Condition{source: source, root: root}, nil
}

// EvalCondition — парсинг и вычисление за один вызов.
// Пустое условие означает безусловное выполнение и вычисляется в true.
func EvalCondition(source string, binding domain.Binding) (bool, error) {
	if source == "" {
		return true, nil
	}
	cond, err := ParseCondition(source)
	if err != nil {
		return false, err
	}
	return cond.Eval(binding)
}

// --- Дерево выражения ---

// exprNode — узел дерева. Неэкспортируемый метод eval закрывает набор
// вариантов: вне пакета новые узлы не появятся.
type exprNode interface {
	eval(binding domain.Binding) (any, error)
}

// literalNode — литерал: string, int64 или bool.
type literalNode struct {
	value any
}

func (n *literalNode) eval(domain.Binding) (any, error) {
	return n.value, nil
}

// paramNode — ссылка на параметр по имени.
type paramNode struct {
	name string
}

func (n *paramNode) eval(binding domain.Binding) (any, error) {
	v, ok := binding[n.name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown parameter %q", ErrConditionEval, n.name)
	}
	return normalizeInt(v), nil
}

// compareNode — сравнение двух значений.
type compareNode struct {
	op          string
	left, right exprNode
}

func (n *compareNode) eval(binding domain.Binding) (any, error) {
	lv, err := n.left.eval(binding)
	if err != nil {
		return nil, err
	}
	rv, err := n.right.eval(binding)
	if err != nil {
		return nil, err
	}
	return compareValues(n.op, lv, rv)
}

// logicalNode — булева связка && или ||. Вычисление ленивое.
type logicalNode struct {
	op          string
	left, right exprNode
}

func (n *logicalNode) eval(binding domain.Binding) (any, error) {
	lv, err := evalBool(n.left, binding)
	if err != nil {
		return nil, err
	}

	// Short-circuit
	if n.op == "&&" && !lv {
		return false, nil
	}
	if n.op == "||" && lv {
		return true, nil
	}

	return evalBool(n.right, binding)
}

// notNode — отрицание.
type notNode struct {
	operand exprNode
}

func (n *notNode) eval(binding domain.Binding) (any, error) {
	v, err := evalBool(n.operand, binding)
	if err != nil {
		return nil, err
	}
	return !v, nil
}

// evalBool вычисляет узел и требует булев результат.
func evalBool(n exprNode, binding domain.Binding) (bool, error) {
	v, err := n.eval(binding)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: operand is not boolean (got %s)", ErrConditionEval, typeName(v))
	}
	return b, nil
}

// compareValues сравнивает два значения оператором op.
// Равенство определено для одинаковых типов; порядок — для int и string.
func compareValues(op string, lv, rv any) (any, error) {
	switch op {
	case "==", "!=":
		if typeName(lv) != typeName(rv) {
			return nil, fmt.Errorf("%w: cannot compare %s with %s",
				ErrConditionEval, typeName(lv), typeName(rv))
		}
		eq := lv == rv
		if op == "!=" {
			return !eq, nil
		}
		return eq, nil
	}

	// Операторы порядка
	switch l := lv.(type) {
	case int64:
		r, ok := rv.(int64)
		if !ok {
			return nil, fmt.Errorf("%w: cannot order %s with %s",
				ErrConditionEval, typeName(lv), typeName(rv))
		}
		return orderResult(op, l < r, l == r), nil
	case string:
		r, ok := rv.(string)
		if !ok {
			return nil, fmt.Errorf("%w: cannot order %s with %s",
				ErrConditionEval, typeName(lv), typeName(rv))
		}
		return orderResult(op, l < r, l == r), nil
	default:
		return nil, fmt.Errorf("%w: type %s does not support ordering", ErrConditionEval, typeName(lv))
	}
}

// orderResult сводит результат сравнения порядка к оператору.
func orderResult(op string, less, equal bool) bool {
	switch op {
	case "<":
		return less
	case "<=":
		return less || equal
	case ">":
		return !less && !equal
	case ">=":
		return !less
	default:
		return false
	}
}

// normalizeInt приводит целочисленные Go-представления к int64,
// зеркально нормализации в Bind.
func normalizeInt(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		if n == float64(int64(n)) {
			return int64(n)
		}
	}
	return v
}

// --- Лексер ---

type condToken struct {
	kind condTokenKind
	text string
	// value — для литералов: string, int64 или bool.
	value any
}

type condTokenKind int

const (
	tokIdent condTokenKind = iota
	tokLiteral
	tokOp    // == != < <= > >= && || !
	tokLParen
	tokRParen
)

// lexCondition разбивает текст условия на токены.
func lexCondition(source string) ([]condToken, error) {
	var tokens []condToken
	runes := []rune(source)
	i := 0

	for i < len(runes) {
		r := runes[i]

		switch {
		case unicode.IsSpace(r):
			i++

		case r == '(':
			tokens = append(tokens, condToken{kind: tokLParen, text: "("})
			i++

		case r == ')':
			tokens = append(tokens, condToken{kind: tokRParen, text: ")"})
			i++

		case r == '\'' || r == '"':
			str, next, err := lexString(runes, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, condToken{kind: tokLiteral, text: str, value: str})
			i = next

		case unicode.IsDigit(r) || (r == '-' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			start := i
			i++
			for i < len(runes) && unicode.IsDigit(runes[i]) {
				i++
			}
			text := string(runes[start:i])
			n, err := strconv.ParseInt(text, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q", ErrConditionSyntax, text)
			}
			tokens = append(tokens, condToken{kind: tokLiteral, text: text, value: n})

		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			text := string(runes[start:i])
			switch text {
			case "true":
				tokens = append(tokens, condToken{kind: tokLiteral, text: text, value: true})
			case "false":
				tokens = append(tokens, condToken{kind: tokLiteral, text: text, value: false})
			default:
				tokens = append(tokens, condToken{kind: tokIdent, text: text})
			}

		default:
			op, next, err := lexOperator(runes, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, condToken{kind: tokOp, text: op})
			i = next
		}
	}

	return tokens, nil
}

// lexString читает строковый литерал в кавычках.
func lexString(runes []rune, start int) (string, int, error) {
	quote := runes[start]
	var sb strings.Builder

	for i := start + 1; i < len(runes); i++ {
		if runes[i] == quote {
			return sb.String(), i + 1, nil
		}
		sb.WriteRune(runes[i])
	}

	return "", 0, fmt.Errorf("%w: unterminated string", ErrConditionSyntax)
}

// lexOperator читает оператор.
func lexOperator(runes []rune, i int) (string, int, error) {
	two := ""
	if i+1 < len(runes) {
		two = string(runes[i : i+2])
	}

	switch two {
	case "==", "!=", "<=", ">=", "&&", "||":
		return two, i + 2, nil
	}

	switch runes[i] {
	case '<', '>', '!':
		return string(runes[i]), i + 1, nil
	}

	return "", 0, fmt.Errorf("%w: unexpected character %q", ErrConditionSyntax, string(runes[i]))
}

// --- Парсер (рекурсивный спуск) ---

type condParser struct {
	source string
	tokens []condToken
	pos    int
}

func (p *condParser) atEnd() bool {
	return p.pos >= len(p.tokens)
}

func (p *condParser) peek() condToken {
	return p.tokens[p.pos]
}

func (p *condParser) matchOp(ops ...string) (string, bool) {
	if p.atEnd() || p.tokens[p.pos].kind != tokOp {
		return "", false
	}
	for _, op := range ops {
		if p.tokens[p.pos].text == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

func (p *condParser) parseExpr() (exprNode, error) {
	return p.parseOr()
}

func (p *condParser) parseOr() (exprNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.matchOp("||"); !ok {
			return left, nil
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &logicalNode{op: "||", left: left, right: right}
	}
}

func (p *condParser) parseAnd() (exprNode, error) {
	left, err := p.parseCmp()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.matchOp("&&"); !ok {
			return left, nil
		}
		right, err := p.parseCmp()
		if err != nil {
			return nil, err
		}
		left = &logicalNode{op: "&&", left: left, right: right}
	}
}

func (p *condParser) parseCmp() (exprNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	op, ok := p.matchOp("==", "!=", "<=", ">=", "<", ">")
	if !ok {
		return left, nil
	}

	right, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &compareNode{op: op, left: left, right: right}, nil
}

func (p *condParser) parseUnary() (exprNode, error) {
	if _, ok := p.matchOp("!"); ok {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &notNode{operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *condParser) parsePrimary() (exprNode, error) {
	if p.atEnd() {
		return nil, fmt.Errorf("%w: unexpected end of expression in %q", ErrConditionSyntax, p.source)
	}

	tok := p.peek()
	switch tok.kind {
	case tokLiteral:
		p.pos++
		return &literalNode{value: tok.value}, nil

	case tokIdent:
		p.pos++
		return &paramNode{name: tok.text}, nil

	case tokLParen:
		p.pos++
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.atEnd() || p.peek().kind != tokRParen {
			return nil, fmt.Errorf("%w: missing closing parenthesis in %q", ErrConditionSyntax, p.source)
		}
		p.pos++
		return inner, nil

	default:
		return nil, fmt.Errorf("%w: unexpected %q in %q", ErrConditionSyntax, tok.text, p.source)
	}
}
