package refdata

import (
	"github.com/google/uuid"
)

// Staff roles recognized by the roster planner. Anesthesiologists and CRNAs
// are stored separately but pooled at planning time.
const (
	RoleNurse              = "nurse"
	RoleSurgicalTech       = "surgical_tech"
	RoleAnesthesiologist   = "anesthesiologist"
	RoleCRNA               = "crna"
	RolePhysicianAssistant = "physician_assistant"
)

// Case lifecycle status names as stored in the status lookup table.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Facility maps to the facility table.
type Facility struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Timezone   string    `db:"timezone" json:"timezone"`
	CasePrefix string    `db:"case_prefix" json:"case_prefix"`
}

// Procedure maps to the procedure_catalog table. DefaultDuration is in
// minutes; zero means the catalog carries no duration for this procedure.
type Procedure struct {
	ID                uuid.UUID `db:"id" json:"id"`
	FacilityID        uuid.UUID `db:"facility_id" json:"facility_id"`
	Name              string    `db:"name" json:"name"`
	Specialty         string    `db:"specialty" json:"specialty"`
	DefaultDuration   int       `db:"default_duration" json:"default_duration"`
	IncludeAnesthesia bool      `db:"include_anesthesia" json:"include_anesthesia"`
}

// Milestone maps to the milestone_catalog table. GlobalType is an optional
// mapping to a cross-facility milestone type.
type Milestone struct {
	ID           uuid.UUID `db:"id" json:"id"`
	FacilityID   uuid.UUID `db:"facility_id" json:"facility_id"`
	Name         string    `db:"name" json:"name"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	GlobalType   *string   `db:"global_type" json:"global_type,omitempty"`
}

// Payer maps to the payer table.
type Payer struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
}

// CaseStatus maps to the case_status table.
type CaseStatus struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
}

// CancellationReason maps to the cancellation_reason table.
type CancellationReason struct {
	ID     uuid.UUID `db:"id" json:"id"`
	Reason string    `db:"reason" json:"reason"`
}

// DelayType maps to the delay_type table.
type DelayType struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
}

// ComplexityLevel maps to the complexity_level table.
type ComplexityLevel struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
}

// ImplantCompany maps to the implant_company table.
type ImplantCompany struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
}

// FlagRule maps to the flag_rule table. Metric names the measurement the
// rule engine evaluates (e.g. "late_start", "long_turnover"); Threshold is
// the triggering value in minutes.
type FlagRule struct {
	ID         uuid.UUID `db:"id" json:"id"`
	FacilityID uuid.UUID `db:"facility_id" json:"facility_id"`
	Name       string    `db:"name" json:"name"`
	Metric     string    `db:"metric" json:"metric"`
	Threshold  int       `db:"threshold_minutes" json:"threshold_minutes"`
	Active     bool      `db:"active" json:"active"`
}

// StaffMember maps to the staff table.
type StaffMember struct {
	ID     uuid.UUID `db:"id" json:"id"`
	Name   string    `db:"name" json:"name"`
	Role   string    `db:"role" json:"role"`
	Active bool      `db:"active" json:"active"`
}
