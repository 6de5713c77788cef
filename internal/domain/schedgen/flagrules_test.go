package schedgen

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/orpulse/orpulse/internal/domain/refdata"
)

func flaggableCase(room string, scheduled time.Time) *Case {
	return &Case{
		ID:             uuid.New(),
		CaseNumber:     "TSC-FLAG",
		Room:           room,
		ScheduledDate:  time.Date(scheduled.Year(), scheduled.Month(), scheduled.Day(), 0, 0, 0, 0, time.UTC),
		ScheduledStart: scheduled,
		Status:         refdata.StatusCompleted,
	}
}

func withMilestone(ds *Dataset, c *Case, name string, at time.Time) {
	ds.Milestones = append(ds.Milestones, &MilestoneEvent{
		ID:         uuid.New(),
		CaseID:     c.ID,
		Name:       name,
		RecordedAt: &at,
	})
}

func lateStartRule(threshold int) *refdata.FlagRule {
	return &refdata.FlagRule{
		ID: uuid.New(), Name: "First case late start",
		Metric: MetricLateStart, Threshold: threshold, Active: true,
	}
}

func turnoverRule(threshold int) *refdata.FlagRule {
	return &refdata.FlagRule{
		ID: uuid.New(), Name: "Long turnover",
		Metric: MetricLongTurnover, Threshold: threshold, Active: true,
	}
}

func TestThresholdEngine_LateStartFlagged(t *testing.T) {
	scheduled := time.Date(2025, 3, 3, 7, 30, 0, 0, time.UTC)
	c := flaggableCase("OR-1", scheduled)
	ds := &Dataset{Cases: []*Case{c}}
	withMilestone(ds, c, MSPatientIn, scheduled.Add(35*time.Minute))

	engine := NewThresholdEngine()
	flags := engine.Evaluate(ds, []*refdata.FlagRule{lateStartRule(20)})
	if len(flags) != 1 {
		t.Fatalf("expected 1 flag, got %d", len(flags))
	}
	if flags[0].CaseID != c.ID {
		t.Error("flag attached to wrong case")
	}
}

func TestThresholdEngine_LateStartUnderThreshold(t *testing.T) {
	scheduled := time.Date(2025, 3, 3, 7, 30, 0, 0, time.UTC)
	c := flaggableCase("OR-1", scheduled)
	ds := &Dataset{Cases: []*Case{c}}
	withMilestone(ds, c, MSPatientIn, scheduled.Add(35*time.Minute))

	engine := NewThresholdEngine()
	if flags := engine.Evaluate(ds, []*refdata.FlagRule{lateStartRule(40)}); len(flags) != 0 {
		t.Fatalf("expected no flags for 35 min under a 40 min threshold, got %d", len(flags))
	}
}

func TestThresholdEngine_LateStartFirstCaseOnly(t *testing.T) {
	first := flaggableCase("OR-1", time.Date(2025, 3, 3, 7, 30, 0, 0, time.UTC))
	second := flaggableCase("OR-1", time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC))
	ds := &Dataset{Cases: []*Case{second, first}} // order must not matter
	withMilestone(ds, first, MSPatientIn, first.ScheduledStart.Add(5*time.Minute))
	withMilestone(ds, second, MSPatientIn, second.ScheduledStart.Add(60*time.Minute))

	engine := NewThresholdEngine()
	if flags := engine.Evaluate(ds, []*refdata.FlagRule{lateStartRule(20)}); len(flags) != 0 {
		t.Fatalf("late-start rule must only see first-of-day cases, got %d flags", len(flags))
	}
}

func TestThresholdEngine_LongTurnoverFlagged(t *testing.T) {
	first := flaggableCase("OR-1", time.Date(2025, 3, 3, 7, 30, 0, 0, time.UTC))
	second := flaggableCase("OR-1", time.Date(2025, 3, 3, 10, 30, 0, 0, time.UTC))
	ds := &Dataset{Cases: []*Case{first, second}}
	withMilestone(ds, first, MSPatientOut, time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC))
	withMilestone(ds, second, MSPatientIn, time.Date(2025, 3, 3, 11, 0, 0, 0, time.UTC))

	engine := NewThresholdEngine()
	flags := engine.Evaluate(ds, []*refdata.FlagRule{turnoverRule(45)})
	if len(flags) != 1 {
		t.Fatalf("expected 1 turnover flag for a 60 min gap, got %d", len(flags))
	}
	if flags[0].CaseID != second.ID {
		t.Error("turnover flag should attach to the following case")
	}
}

func TestThresholdEngine_TurnoverDifferentRoomsIgnored(t *testing.T) {
	first := flaggableCase("OR-1", time.Date(2025, 3, 3, 7, 30, 0, 0, time.UTC))
	second := flaggableCase("OR-2", time.Date(2025, 3, 3, 10, 30, 0, 0, time.UTC))
	ds := &Dataset{Cases: []*Case{first, second}}
	withMilestone(ds, first, MSPatientOut, time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC))
	withMilestone(ds, second, MSPatientIn, time.Date(2025, 3, 3, 11, 0, 0, 0, time.UTC))

	engine := NewThresholdEngine()
	if flags := engine.Evaluate(ds, []*refdata.FlagRule{turnoverRule(45)}); len(flags) != 0 {
		t.Fatalf("gap across different rooms must not flag, got %d", len(flags))
	}
}

func TestThresholdEngine_InactiveRuleSkipped(t *testing.T) {
	scheduled := time.Date(2025, 3, 3, 7, 30, 0, 0, time.UTC)
	c := flaggableCase("OR-1", scheduled)
	ds := &Dataset{Cases: []*Case{c}}
	withMilestone(ds, c, MSPatientIn, scheduled.Add(90*time.Minute))

	rule := lateStartRule(20)
	rule.Active = false
	engine := NewThresholdEngine()
	if flags := engine.Evaluate(ds, []*refdata.FlagRule{rule}); len(flags) != 0 {
		t.Fatalf("inactive rule fired, got %d flags", len(flags))
	}
}

func TestThresholdEngine_CancelledCasesIgnored(t *testing.T) {
	scheduled := time.Date(2025, 3, 3, 7, 30, 0, 0, time.UTC)
	c := flaggableCase("OR-1", scheduled)
	c.Status = refdata.StatusCancelled
	ds := &Dataset{Cases: []*Case{c}}
	withMilestone(ds, c, MSPatientIn, scheduled.Add(90*time.Minute))

	engine := NewThresholdEngine()
	if flags := engine.Evaluate(ds, []*refdata.FlagRule{lateStartRule(20)}); len(flags) != 0 {
		t.Fatalf("cancelled case flagged, got %d flags", len(flags))
	}
}

func TestThresholdEngine_UnknownMetricIgnored(t *testing.T) {
	scheduled := time.Date(2025, 3, 3, 7, 30, 0, 0, time.UTC)
	c := flaggableCase("OR-1", scheduled)
	ds := &Dataset{Cases: []*Case{c}}
	withMilestone(ds, c, MSPatientIn, scheduled.Add(90*time.Minute))

	rule := &refdata.FlagRule{ID: uuid.New(), Metric: "case_volume", Threshold: 1, Active: true}
	engine := NewThresholdEngine()
	if flags := engine.Evaluate(ds, []*refdata.FlagRule{rule}); len(flags) != 0 {
		t.Fatalf("unknown metric produced %d flags", len(flags))
	}
}
