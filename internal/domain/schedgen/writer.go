package schedgen

import (
	"context"

	"github.com/google/uuid"
)

// BulkWriter is the persistence collaborator for a generation run. Case
// rows must exist before chain links and child rows are written; trigger
// suppression brackets the whole insert phase and must be restored on every
// exit path.
type BulkWriter interface {
	// Purge deletes a facility's case-level data in dependency order,
	// clearing the self-referencing next-case column before the case delete.
	// Returns the number of cases removed; running against an empty facility
	// succeeds with zero.
	Purge(ctx context.Context, facilityID uuid.UUID) (int, error)

	SuppressTriggers(ctx context.Context) error
	RestoreTriggers(ctx context.Context) error

	InsertCases(ctx context.Context, cases []*Case) error
	InsertMilestones(ctx context.Context, events []*MilestoneEvent) error
	InsertStaff(ctx context.Context, staff []*StaffAssignment) error
	InsertImplants(ctx context.Context, implants []*ImplantRecord) error
	InsertDelays(ctx context.Context, delays []*DelayRecord) error
	InsertComplexities(ctx context.Context, recs []*ComplexityRecord) error
	InsertDevices(ctx context.Context, recs []*DeviceRecord) error
	InsertFlags(ctx context.Context, flags []*FlagRecord) error

	// LinkFlipChains applies the deferred next-case updates; call only after
	// every case row exists.
	LinkFlipChains(ctx context.Context, links []FlipLink) error

	// RefreshStats recalculates derived facility averages. Best effort:
	// callers log failures and keep the run successful.
	RefreshStats(ctx context.Context, facilityID uuid.UUID) error
}
