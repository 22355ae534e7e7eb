package scheduler

import (
	"testing"
	"time"

	"github.com/shaiso/Conductor/internal/domain"
)

func TestCalculateNextDue_Cron(t *testing.T) {
	trigger := &domain.Trigger{
		CronExpr: "0 3 * * *",
		Timezone: "UTC",
	}

	from := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	next, err := CalculateNextDue(trigger, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestCalculateNextDue_Interval(t *testing.T) {
	trigger := &domain.Trigger{
		IntervalSec: 300,
		Timezone:    "UTC",
	}

	from := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	next, err := CalculateNextDue(trigger, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := from.Add(5 * time.Minute)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestCalculateNextDue_InvalidTimezone(t *testing.T) {
	trigger := &domain.Trigger{
		IntervalSec: 60,
		Timezone:    "Not/AZone",
	}

	from := time.Now()
	next, err := CalculateNextDue(trigger, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Невалидный timezone падает обратно в UTC, интервал всё равно считается
	if !next.After(from) {
		t.Errorf("next = %v, want after %v", next, from)
	}
}

func TestCalculateNextDue_NeitherCronNorInterval(t *testing.T) {
	trigger := &domain.Trigger{Timezone: "UTC"}

	if _, err := CalculateNextDue(trigger, time.Now()); err == nil {
		t.Error("expected error for trigger without cron_expr and interval_sec")
	}
}

func TestValidateCronExpr(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"0 3 * * *", false},
		{"*/15 * * * *", false},
		{"0 0 1 1 *", false},
		{"not a cron", true},
		{"61 * * * *", true},
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateCronExpr(tt.expr)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateCronExpr(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
		}
	}
}
