package refdata

import (
	"context"

	"github.com/google/uuid"
)

// Reader loads the facility reference data the generation engine consumes.
// All lookups are reads; the engine never mutates reference tables.
type Reader interface {
	Facility(ctx context.Context, id uuid.UUID) (*Facility, error)
	Procedures(ctx context.Context, facilityID uuid.UUID) ([]*Procedure, error)
	Milestones(ctx context.Context, facilityID uuid.UUID) ([]*Milestone, error)
	Payers(ctx context.Context, facilityID uuid.UUID) ([]*Payer, error)
	CaseStatuses(ctx context.Context) ([]*CaseStatus, error)
	CancellationReasons(ctx context.Context) ([]*CancellationReason, error)
	DelayTypes(ctx context.Context) ([]*DelayType, error)
	ComplexityLevels(ctx context.Context) ([]*ComplexityLevel, error)
	ImplantCompanies(ctx context.Context) ([]*ImplantCompany, error)
	FlagRules(ctx context.Context, facilityID uuid.UUID) ([]*FlagRule, error)
	StaffByRole(ctx context.Context, facilityID uuid.UUID, role string) ([]*StaffMember, error)
}
