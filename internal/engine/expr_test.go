package engine

import (
	"errors"
	"testing"

	"github.com/shaiso/Conductor/internal/domain"
)

func TestEvalCondition_Basics(t *testing.T) {
	binding := domain.Binding{
		"mode":     "release",
		"publish":  true,
		"parallel": int64(4),
	}

	tests := []struct {
		expr string
		want bool
	}{
		{"", true}, // пустое условие — безусловное выполнение
		{"true", true},
		{"false", false},
		{"publish", true},
		{"!publish", false},
		{`mode == "release"`, true},
		{`mode == 'debug'`, false},
		{`mode != "debug"`, true},
		{"parallel == 4", true},
		{"parallel > 2", true},
		{"parallel >= 4", true},
		{"parallel < 4", false},
		{"parallel <= 3", false},
		{`mode == "release" && publish`, true},
		{`mode == "debug" || publish`, true},
		{`mode == "debug" && publish`, false},
		{`!(mode == "debug") && parallel > 1`, true},
		{`mode < "z"`, true}, // строки сравниваются лексикографически
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := EvalCondition(tt.expr, binding)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParseCondition_SyntaxErrors(t *testing.T) {
	tests := []string{
		"mode ==",
		"== 4",
		"(publish",
		"mode = 'x'",
		"'unterminated",
		"a && && b",
		"4 5",
	}

	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			_, err := ParseCondition(expr)
			if !errors.Is(err, ErrConditionSyntax) {
				t.Errorf("expected ErrConditionSyntax, got %v", err)
			}
		})
	}
}

func TestEvalCondition_EvalErrors(t *testing.T) {
	binding := domain.Binding{
		"mode":     "release",
		"parallel": int64(4),
		"publish":  true,
	}

	tests := []struct {
		name string
		expr string
	}{
		{"unknown parameter", "missing == 1"},
		{"type-incompatible equality", `parallel == "4"`},
		{"type-incompatible ordering", `mode > 4`},
		{"bool ordering", "publish < true"},
		{"non-boolean result", "parallel"},
		{"non-boolean operand", "mode && publish"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EvalCondition(tt.expr, binding)
			if !errors.Is(err, ErrConditionEval) {
				t.Errorf("expected ErrConditionEval, got %v", err)
			}
		})
	}
}

func TestEvalCondition_ShortCircuit(t *testing.T) {
	binding := domain.Binding{"publish": false}

	// Правый операнд ссылается на несуществующий параметр,
	// но ленивое вычисление до него не доходит.
	got, err := EvalCondition("publish && missing == 1", binding)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got {
		t.Error("expected false")
	}

	got, err = EvalCondition("!publish || missing == 1", binding)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got {
		t.Error("expected true")
	}
}

func TestEvalCondition_NegativeNumbers(t *testing.T) {
	binding := domain.Binding{"offset": int64(-2)}

	got, err := EvalCondition("offset < 0 && offset >= -5", binding)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got {
		t.Error("expected true")
	}
}

func TestCondition_Source(t *testing.T) {
	cond, err := ParseCondition("publish == true")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cond.Source() != "publish == true" {
		t.Errorf("unexpected source: %s", cond.Source())
	}
}
