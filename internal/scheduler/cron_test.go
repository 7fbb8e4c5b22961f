package scheduler

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Fabrica/internal/domain"
)

func TestCalculateNextDue_Interval(t *testing.T) {
	sched := &domain.Schedule{
		ID:          uuid.New(),
		IntervalSec: 300,
		Timezone:    "UTC",
	}

	from := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := from.Add(5 * time.Minute)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
	if next.Location() != time.UTC {
		t.Errorf("next due must be stored in UTC, got %v", next.Location())
	}
}

func TestCalculateNextDue_Cron(t *testing.T) {
	sched := &domain.Schedule{
		ID:       uuid.New(),
		CronExpr: "0 9 * * *", // каждый день в 9:00
		Timezone: "UTC",
	}

	from := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestCalculateNextDue_CronRespectsTimezone(t *testing.T) {
	sched := &domain.Schedule{
		ID:       uuid.New(),
		CronExpr: "0 9 * * *",
		Timezone: "Europe/Moscow", // UTC+3
	}

	from := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 9:00 по Москве = 6:00 UTC
	want := time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestCalculateNextDue_InvalidTimezoneFallsBackToUTC(t *testing.T) {
	sched := &domain.Schedule{
		ID:          uuid.New(),
		IntervalSec: 60,
		Timezone:    "Mars/Olympus",
	}

	from := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !next.Equal(from.Add(time.Minute)) {
		t.Errorf("expected %v, got %v", from.Add(time.Minute), next)
	}
}

func TestCalculateNextDue_CronTakesPrecedenceOverInterval(t *testing.T) {
	sched := &domain.Schedule{
		ID:          uuid.New(),
		CronExpr:    "*/5 * * * *",
		IntervalSec: 10,
		Timezone:    "UTC",
	}

	from := time.Date(2025, 6, 1, 12, 1, 0, 0, time.UTC)
	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected cron to win: %v, got %v", want, next)
	}
}

func TestCalculateNextDue_NeitherCronNorInterval(t *testing.T) {
	sched := &domain.Schedule{ID: uuid.New(), Timezone: "UTC"}

	if _, err := CalculateNextDue(sched, time.Now()); err == nil {
		t.Error("expected error for schedule without timing")
	}
}

func TestValidateCronExpr(t *testing.T) {
	valid := []string{"0 9 * * *", "*/15 * * * *", "30 2 1 * *", "0 0 * * 1-5"}
	for _, expr := range valid {
		if err := ValidateCronExpr(expr); err != nil {
			t.Errorf("expected %q to be valid: %v", expr, err)
		}
	}

	invalid := []string{"", "not a cron", "99 * * * *", "* * * *"}
	for _, expr := range invalid {
		if err := ValidateCronExpr(expr); err == nil {
			t.Errorf("expected %q to be invalid", expr)
		}
	}
}

func TestSchedule_IsDue(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name  string
		sched domain.Schedule
		want  bool
	}{
		{"due", domain.Schedule{Enabled: true, NextDueAt: &past}, true},
		{"not yet", domain.Schedule{Enabled: true, NextDueAt: &future}, false},
		{"disabled", domain.Schedule{Enabled: false, NextDueAt: &past}, false},
		{"no next due", domain.Schedule{Enabled: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sched.IsDue(now); got != tt.want {
				t.Errorf("IsDue = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSchedule_RecordRun(t *testing.T) {
	sched := domain.Schedule{Enabled: true}
	executionID := uuid.New()
	nextDue := time.Now().Add(time.Hour)

	sched.RecordRun(executionID, nextDue)

	if sched.LastExecutionID == nil || *sched.LastExecutionID != executionID {
		t.Error("expected last execution id to be recorded")
	}
	if sched.LastRunAt == nil {
		t.Error("expected last run time to be recorded")
	}
	if sched.NextDueAt == nil || !sched.NextDueAt.Equal(nextDue) {
		t.Error("expected next due time to advance")
	}
}
