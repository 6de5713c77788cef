package schedgen

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// DefaultBatchSize bounds one pgx batch of case-level inserts.
const DefaultBatchSize = 100

// execer is the slice of pgxpool.Pool the writer needs; tests substitute a
// recording implementation.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type writerPG struct {
	db        execer
	batchSize int
	log       zerolog.Logger
}

// NewWriterPG returns a BulkWriter over the facility Postgres schema.
// batchSize <= 0 selects the default.
func NewWriterPG(pool *pgxpool.Pool, batchSize int, log zerolog.Logger) BulkWriter {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &writerPG{db: pool, batchSize: batchSize, log: log}
}

// caseChildTables are deleted before cases, in foreign-key dependency
// order.
var caseChildTables = []string{
	"case_flags",
	"case_complexities",
	"device_activity",
	"implant_links",
	"case_issues",
	"case_implants",
	"case_milestones",
	"case_milestone_stats",
	"case_completion_stats",
	"case_staff",
	"case_delays",
}

func (w *writerPG) Purge(ctx context.Context, facilityID uuid.UUID) (int, error) {
	// Null the self-reference first so the case delete satisfies the FK.
	if _, err := w.db.Exec(ctx,
		`UPDATE cases SET next_case_id = NULL WHERE facility_id = $1 AND next_case_id IS NOT NULL`,
		facilityID); err != nil {
		return 0, fmt.Errorf("clear next_case_id: %w", err)
	}

	for _, table := range caseChildTables {
		sql := fmt.Sprintf(
			`DELETE FROM %s WHERE case_id IN (SELECT id FROM cases WHERE facility_id = $1)`, table)
		if _, err := w.db.Exec(ctx, sql, facilityID); err != nil {
			return 0, fmt.Errorf("purge %s: %w", table, err)
		}
	}

	tag, err := w.db.Exec(ctx, `DELETE FROM cases WHERE facility_id = $1`, facilityID)
	if err != nil {
		return 0, fmt.Errorf("purge cases: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// suppressedTables carry audit triggers that would turn the bulk load into
// a row-by-row crawl.
var suppressedTables = []string{"cases", "case_milestones", "case_staff", "case_implants"}

func (w *writerPG) SuppressTriggers(ctx context.Context) error {
	for _, table := range suppressedTables {
		if _, err := w.db.Exec(ctx, fmt.Sprintf(`ALTER TABLE %s DISABLE TRIGGER USER`, table)); err != nil {
			return fmt.Errorf("disable triggers on %s: %w", table, err)
		}
	}
	return nil
}

func (w *writerPG) RestoreTriggers(ctx context.Context) error {
	for _, table := range suppressedTables {
		if _, err := w.db.Exec(ctx, fmt.Sprintf(`ALTER TABLE %s ENABLE TRIGGER USER`, table)); err != nil {
			return fmt.Errorf("enable triggers on %s: %w", table, err)
		}
	}
	return nil
}

// insertBatched queues one INSERT per row into size-bounded pgx batches.
// Batches are strictly sequential; a failed batch aborts the run with the
// already-committed batches left in place.
func insertBatched[T any](ctx context.Context, w *writerPG, items []*T, label string, queue func(*pgx.Batch, *T)) error {
	for start := 0; start < len(items); start += w.batchSize {
		end := start + w.batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := &pgx.Batch{}
		for _, item := range items[start:end] {
			queue(batch, item)
		}
		br := w.db.SendBatch(ctx, batch)
		if err := br.Close(); err != nil {
			return fmt.Errorf("insert %s batch at row %d: %w", label, start, err)
		}
		w.log.Debug().Str("table", label).Int("rows", end).Msg("batch committed")
	}
	return nil
}

func (w *writerPG) InsertCases(ctx context.Context, cases []*Case) error {
	return insertBatched(ctx, w, cases, "cases", func(b *pgx.Batch, c *Case) {
		b.Queue(`
			INSERT INTO cases (id, facility_id, case_number, surgeon_id, procedure_id, room,
				scheduled_date, scheduled_start, status_id, payer_id, operative_side,
				call_time, surgeon_left_at, cancelled_at, cancel_reason_id, validated)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
			c.ID, c.FacilityID, c.CaseNumber, c.SurgeonID, c.ProcedureID, c.Room,
			c.ScheduledDate, c.ScheduledStart, c.StatusID, c.PayerID, c.OperativeSide,
			c.CallTime, c.SurgeonLeftAt, c.CancelledAt, c.CancelReasonID, c.Validated)
	})
}

func (w *writerPG) InsertMilestones(ctx context.Context, events []*MilestoneEvent) error {
	return insertBatched(ctx, w, events, "case_milestones", func(b *pgx.Batch, m *MilestoneEvent) {
		b.Queue(`
			INSERT INTO case_milestones (id, case_id, milestone_id, recorded_at)
			VALUES ($1,$2,$3,$4)`,
			m.ID, m.CaseID, m.MilestoneID, m.RecordedAt)
	})
}

func (w *writerPG) InsertStaff(ctx context.Context, staff []*StaffAssignment) error {
	return insertBatched(ctx, w, staff, "case_staff", func(b *pgx.Batch, s *StaffAssignment) {
		b.Queue(`
			INSERT INTO case_staff (id, case_id, staff_id, role)
			VALUES ($1,$2,$3,$4)`,
			s.ID, s.CaseID, s.StaffID, s.Role)
	})
}

func (w *writerPG) InsertImplants(ctx context.Context, implants []*ImplantRecord) error {
	return insertBatched(ctx, w, implants, "case_implants", func(b *pgx.Batch, i *ImplantRecord) {
		b.Queue(`
			INSERT INTO case_implants (id, case_id, company_id, component, size)
			VALUES ($1,$2,$3,$4,$5)`,
			i.ID, i.CaseID, i.CompanyID, i.Component, i.Size)
	})
}

func (w *writerPG) InsertDelays(ctx context.Context, delays []*DelayRecord) error {
	return insertBatched(ctx, w, delays, "case_delays", func(b *pgx.Batch, d *DelayRecord) {
		b.Queue(`
			INSERT INTO case_delays (id, case_id, delay_type_id, minutes)
			VALUES ($1,$2,$3,$4)`,
			d.ID, d.CaseID, d.DelayTypeID, d.Minutes)
	})
}

func (w *writerPG) InsertComplexities(ctx context.Context, recs []*ComplexityRecord) error {
	return insertBatched(ctx, w, recs, "case_complexities", func(b *pgx.Batch, r *ComplexityRecord) {
		b.Queue(`
			INSERT INTO case_complexities (id, case_id, complexity_id, factor)
			VALUES ($1,$2,$3,NULLIF($4,''))`,
			r.ID, r.CaseID, r.ComplexityID, r.Factor)
	})
}

func (w *writerPG) InsertDevices(ctx context.Context, recs []*DeviceRecord) error {
	return insertBatched(ctx, w, recs, "device_activity", func(b *pgx.Batch, r *DeviceRecord) {
		b.Queue(`
			INSERT INTO device_activity (id, case_id, company_id)
			VALUES ($1,$2,$3)`,
			r.ID, r.CaseID, r.CompanyID)
	})
}

func (w *writerPG) InsertFlags(ctx context.Context, flags []*FlagRecord) error {
	return insertBatched(ctx, w, flags, "case_flags", func(b *pgx.Batch, f *FlagRecord) {
		b.Queue(`
			INSERT INTO case_flags (id, case_id, rule_id, note)
			VALUES ($1,$2,$3,NULLIF($4,''))`,
			f.ID, f.CaseID, f.RuleID, f.Note)
	})
}

func (w *writerPG) LinkFlipChains(ctx context.Context, links []FlipLink) error {
	for start := 0; start < len(links); start += w.batchSize {
		end := start + w.batchSize
		if end > len(links) {
			end = len(links)
		}
		batch := &pgx.Batch{}
		for _, l := range links[start:end] {
			batch.Queue(`UPDATE cases SET next_case_id = $2 WHERE id = $1`, l.CaseID, l.NextCaseID)
		}
		br := w.db.SendBatch(ctx, batch)
		if err := br.Close(); err != nil {
			return fmt.Errorf("link flip chains at row %d: %w", start, err)
		}
	}
	return nil
}

func (w *writerPG) RefreshStats(ctx context.Context, facilityID uuid.UUID) error {
	_, err := w.db.Exec(ctx, `SELECT recalc_facility_averages($1)`, facilityID)
	if err != nil {
		return fmt.Errorf("recalc facility averages: %w", err)
	}
	return nil
}
