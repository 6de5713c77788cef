package schedgen

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/orpulse/orpulse/internal/domain/refdata"
)

// RuleEngine evaluates active flag rules over the in-memory
// case-with-milestones projection. The engine sees the full dataset so
// rules can reason across cases (turnover gaps need neighbours).
type RuleEngine interface {
	Evaluate(ds *Dataset, rules []*refdata.FlagRule) []*FlagRecord
}

// Rule metrics the threshold engine understands.
const (
	MetricLateStart    = "late_start"
	MetricLongTurnover = "long_turnover"
)

// ThresholdEngine flags cases whose measured metric exceeds the rule's
// minute threshold.
type ThresholdEngine struct{}

func NewThresholdEngine() *ThresholdEngine { return &ThresholdEngine{} }

func (e *ThresholdEngine) Evaluate(ds *Dataset, rules []*refdata.FlagRule) []*FlagRecord {
	var flags []*FlagRecord
	for _, rule := range rules {
		if !rule.Active {
			continue
		}
		switch rule.Metric {
		case MetricLateStart:
			flags = append(flags, e.lateStarts(ds, rule)...)
		case MetricLongTurnover:
			flags = append(flags, e.longTurnovers(ds, rule)...)
		}
	}
	return flags
}

// lateStarts flags first-of-day cases whose patient_in ran more than the
// threshold past the scheduled start.
func (e *ThresholdEngine) lateStarts(ds *Dataset, rule *refdata.FlagRule) []*FlagRecord {
	firstByRoomDay := make(map[string]*Case)
	for _, c := range ds.Cases {
		if c.Status != refdata.StatusCompleted {
			continue
		}
		k := dateKey(c.ScheduledDate) + "|" + c.Room
		if f, ok := firstByRoomDay[k]; !ok || c.ScheduledStart.Before(f.ScheduledStart) {
			firstByRoomDay[k] = c
		}
	}

	var flags []*FlagRecord
	for _, c := range firstByRoomDay {
		in := patientInTime(ds, c.ID)
		if in == nil {
			continue
		}
		lateMin := int(in.Sub(c.ScheduledStart).Minutes())
		if lateMin > rule.Threshold {
			flags = append(flags, &FlagRecord{
				ID:     uuid.New(),
				CaseID: c.ID,
				RuleID: rule.ID,
				Note:   fmt.Sprintf("first case started %d min late", lateMin),
			})
		}
	}
	return flags
}

// longTurnovers flags a case when the gap between the previous case's
// patient_out and its patient_in on the same room-day exceeds the
// threshold.
func (e *ThresholdEngine) longTurnovers(ds *Dataset, rule *refdata.FlagRule) []*FlagRecord {
	byRoomDay := make(map[string][]*Case)
	for _, c := range ds.Cases {
		if c.Status != refdata.StatusCompleted {
			continue
		}
		k := dateKey(c.ScheduledDate) + "|" + c.Room
		byRoomDay[k] = append(byRoomDay[k], c)
	}

	var flags []*FlagRecord
	for _, cases := range byRoomDay {
		sort.Slice(cases, func(i, j int) bool {
			return cases[i].ScheduledStart.Before(cases[j].ScheduledStart)
		})
		for i := 1; i < len(cases); i++ {
			out := milestoneTime(ds, cases[i-1].ID, MSPatientOut)
			in := patientInTime(ds, cases[i].ID)
			if out == nil || in == nil {
				continue
			}
			gap := int(in.Sub(*out).Minutes())
			if gap > rule.Threshold {
				flags = append(flags, &FlagRecord{
					ID:     uuid.New(),
					CaseID: cases[i].ID,
					RuleID: rule.ID,
					Note:   fmt.Sprintf("turnover of %d min before case", gap),
				})
			}
		}
	}
	return flags
}

func patientInTime(ds *Dataset, caseID uuid.UUID) *time.Time {
	return milestoneTime(ds, caseID, MSPatientIn)
}

func milestoneTime(ds *Dataset, caseID uuid.UUID, name string) *time.Time {
	for _, m := range ds.Milestones {
		if m.CaseID == caseID && m.Name == name {
			return m.RecordedAt
		}
	}
	return nil
}
