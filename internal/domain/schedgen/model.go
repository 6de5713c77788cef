// Package schedgen implements the synthetic case-schedule generation engine:
// calendar resolution, surgeon profile resolution, staff roster planning,
// case timeline construction, milestone sequence synthesis, outlier
// injection, post-generation perturbation, and the bulk persistence
// orchestration around it. Output is statistically plausible demo data, not
// clinically accurate timing.
package schedgen

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SpeedClass scales procedure timing surgeon-wide.
type SpeedClass string

const (
	SpeedFast    SpeedClass = "fast"
	SpeedAverage SpeedClass = "average"
	SpeedSlow    SpeedClass = "slow"
)

// Factor returns the surgical-time multiplier for the class.
func (s SpeedClass) Factor() float64 {
	switch s {
	case SpeedFast:
		return 0.70
	case SpeedSlow:
		return 1.30
	default:
		return 1.00
	}
}

// Valid reports whether s is a known class.
func (s SpeedClass) Valid() bool {
	return s == SpeedFast || s == SpeedAverage || s == SpeedSlow
}

// Specialty is the surgeon's service line.
type Specialty string

const (
	SpecialtyJoint     Specialty = "joint"
	SpecialtyHandWrist Specialty = "hand_wrist"
	SpecialtySpine     Specialty = "spine"
)

// Overhead returns the fixed non-surgical minutes baked into catalog
// durations for the specialty, subtracted during duration resolution.
func (s Specialty) Overhead() int {
	switch s {
	case SpecialtyJoint:
		return 40
	case SpecialtySpine:
		return 48
	case SpecialtyHandWrist:
		return 30
	default:
		return 0
	}
}

// Sided reports whether procedures in this specialty carry an operative side.
func (s Specialty) Sided() bool {
	return s == SpecialtyJoint || s == SpecialtyHandWrist
}

func (s Specialty) Valid() bool {
	return s == SpecialtyJoint || s == SpecialtyHandWrist || s == SpecialtySpine
}

// Range is an inclusive integer interval.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (r Range) valid() bool { return r.Min > 0 && r.Max >= r.Min }

// Case is one generated operating-room case. A case belongs to exactly one
// room-day; NextCaseID materializes the flip-room chain and is written as a
// deferred update because it self-references the cases table.
type Case struct {
	ID             uuid.UUID  `json:"id"`
	FacilityID     uuid.UUID  `json:"facility_id"`
	CaseNumber     string     `json:"case_number"`
	SurgeonID      uuid.UUID  `json:"surgeon_id"`
	ProcedureID    uuid.UUID  `json:"procedure_id"`
	ProcedureName  string     `json:"procedure_name"`
	Specialty      Specialty  `json:"specialty"`
	Room           string     `json:"room"`
	ScheduledDate  time.Time  `json:"scheduled_date"`
	ScheduledStart time.Time  `json:"scheduled_start"`
	StatusID       uuid.UUID  `json:"status_id"`
	Status         string     `json:"status"`
	PayerID        uuid.UUID  `json:"payer_id"`
	OperativeSide  *string    `json:"operative_side,omitempty"`
	CallTime       time.Time  `json:"call_time"`
	SurgeonLeftAt  *time.Time `json:"surgeon_left_at,omitempty"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
	CancelReasonID *uuid.UUID `json:"cancel_reason_id,omitempty"`
	NextCaseID     *uuid.UUID `json:"next_case_id,omitempty"`
	Validated      bool       `json:"validated"`

	// SurgicalMinutes is the resolved surgical duration. Not persisted
	// directly; the perturbation pass and rule engine read it.
	SurgicalMinutes int `json:"-"`
}

// NewCase validates the constructor-time invariants shared by every case.
func NewCase(facilityID, surgeonID, procedureID, statusID, payerID uuid.UUID, number string, specialty Specialty, room string, date, start time.Time, status string) (*Case, error) {
	if room == "" {
		return nil, fmt.Errorf("case %s: room is required", number)
	}
	if !specialty.Valid() {
		return nil, fmt.Errorf("case %s: invalid specialty %q", number, specialty)
	}
	if start.Before(date) {
		return nil, fmt.Errorf("case %s: start precedes scheduled date", number)
	}
	return &Case{
		ID:             uuid.New(),
		FacilityID:     facilityID,
		CaseNumber:     number,
		SurgeonID:      surgeonID,
		ProcedureID:    procedureID,
		Specialty:      specialty,
		Room:           room,
		ScheduledDate:  date,
		ScheduledStart: start,
		StatusID:       statusID,
		Status:         status,
		PayerID:        payerID,
		CallTime:       start.Add(-90 * time.Minute),
	}, nil
}

// MilestoneEvent is one timestamped procedural event of a case. RecordedAt
// is nil while the case is still scheduled/future.
type MilestoneEvent struct {
	ID          uuid.UUID  `json:"id"`
	CaseID      uuid.UUID  `json:"case_id"`
	MilestoneID uuid.UUID  `json:"milestone_id"`
	Name        string     `json:"name"`
	RecordedAt  *time.Time `json:"recorded_at,omitempty"`
}

// StaffAssignment is the per-case denormalized copy of a room-day staffing
// slot.
type StaffAssignment struct {
	ID      uuid.UUID `json:"id"`
	CaseID  uuid.UUID `json:"case_id"`
	StaffID uuid.UUID `json:"staff_id"`
	Role    string    `json:"role"`
}

// ImplantRecord is one implant component selection for a joint case with a
// preferred vendor.
type ImplantRecord struct {
	ID        uuid.UUID `json:"id"`
	CaseID    uuid.UUID `json:"case_id"`
	CompanyID uuid.UUID `json:"company_id"`
	Component string    `json:"component"`
	Size      string    `json:"size"`
}

// DelayRecord is a typed delay applied to a completed case.
type DelayRecord struct {
	ID          uuid.UUID `json:"id"`
	CaseID      uuid.UUID `json:"case_id"`
	DelayTypeID uuid.UUID `json:"delay_type_id"`
	Minutes     int       `json:"minutes"`
}

// ComplexityRecord tags a case with a complexity level and optional factor.
type ComplexityRecord struct {
	ID           uuid.UUID `json:"id"`
	CaseID       uuid.UUID `json:"case_id"`
	ComplexityID uuid.UUID `json:"complexity_id"`
	Factor       string    `json:"factor,omitempty"`
}

// DeviceRecord is implant-company device activity for a joint case.
type DeviceRecord struct {
	ID        uuid.UUID `json:"id"`
	CaseID    uuid.UUID `json:"case_id"`
	CompanyID uuid.UUID `json:"company_id"`
}

// FlagRecord is a rule-engine hit against a case.
type FlagRecord struct {
	ID     uuid.UUID `json:"id"`
	CaseID uuid.UUID `json:"case_id"`
	RuleID uuid.UUID `json:"rule_id"`
	Note   string    `json:"note,omitempty"`
}

// FlipLink is a deferred next-case chain update, applied after all cases
// exist.
type FlipLink struct {
	CaseID     uuid.UUID `json:"case_id"`
	NextCaseID uuid.UUID `json:"next_case_id"`
}

// Dataset is the complete in-memory output of one generation run. Entities
// are created once, perturbed in memory, then written once.
type Dataset struct {
	Cases        []*Case
	Milestones   []*MilestoneEvent
	Staff        []*StaffAssignment
	Implants     []*ImplantRecord
	Delays       []*DelayRecord
	Complexities []*ComplexityRecord
	Devices      []*DeviceRecord
	Flags        []*FlagRecord
	Links        []FlipLink
}

// MilestonesFor returns the events of one case in emission order.
func (d *Dataset) MilestonesFor(caseID uuid.UUID) []*MilestoneEvent {
	var out []*MilestoneEvent
	for _, m := range d.Milestones {
		if m.CaseID == caseID {
			out = append(out, m)
		}
	}
	return out
}
