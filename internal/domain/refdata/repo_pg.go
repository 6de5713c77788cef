package refdata

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type readerPG struct{ pool *pgxpool.Pool }

// NewReaderPG returns a Reader backed by the facility Postgres schema.
func NewReaderPG(pool *pgxpool.Pool) Reader { return &readerPG{pool: pool} }

func (r *readerPG) Facility(ctx context.Context, id uuid.UUID) (*Facility, error) {
	var f Facility
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, timezone, case_prefix FROM facility WHERE id = $1`, id).
		Scan(&f.ID, &f.Name, &f.Timezone, &f.CasePrefix)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *readerPG) Procedures(ctx context.Context, facilityID uuid.UUID) ([]*Procedure, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, facility_id, name, specialty, COALESCE(default_duration, 0), include_anesthesia
		FROM procedure_catalog WHERE facility_id = $1 ORDER BY name`, facilityID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Rows) (*Procedure, error) {
		var p Procedure
		err := row.Scan(&p.ID, &p.FacilityID, &p.Name, &p.Specialty, &p.DefaultDuration, &p.IncludeAnesthesia)
		return &p, err
	})
}

func (r *readerPG) Milestones(ctx context.Context, facilityID uuid.UUID) ([]*Milestone, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, facility_id, name, display_order, global_type
		FROM milestone_catalog WHERE facility_id = $1 ORDER BY display_order`, facilityID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Rows) (*Milestone, error) {
		var m Milestone
		err := row.Scan(&m.ID, &m.FacilityID, &m.Name, &m.DisplayOrder, &m.GlobalType)
		return &m, err
	})
}

func (r *readerPG) Payers(ctx context.Context, facilityID uuid.UUID) ([]*Payer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name FROM payer WHERE facility_id = $1 ORDER BY name`, facilityID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Rows) (*Payer, error) {
		var p Payer
		err := row.Scan(&p.ID, &p.Name)
		return &p, err
	})
}

func (r *readerPG) CaseStatuses(ctx context.Context) ([]*CaseStatus, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM case_status ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Rows) (*CaseStatus, error) {
		var s CaseStatus
		err := row.Scan(&s.ID, &s.Name)
		return &s, err
	})
}

func (r *readerPG) CancellationReasons(ctx context.Context) ([]*CancellationReason, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, reason FROM cancellation_reason ORDER BY reason`)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Rows) (*CancellationReason, error) {
		var c CancellationReason
		err := row.Scan(&c.ID, &c.Reason)
		return &c, err
	})
}

func (r *readerPG) DelayTypes(ctx context.Context) ([]*DelayType, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM delay_type ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Rows) (*DelayType, error) {
		var d DelayType
		err := row.Scan(&d.ID, &d.Name)
		return &d, err
	})
}

func (r *readerPG) ComplexityLevels(ctx context.Context) ([]*ComplexityLevel, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM complexity_level ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Rows) (*ComplexityLevel, error) {
		var c ComplexityLevel
		err := row.Scan(&c.ID, &c.Name)
		return &c, err
	})
}

func (r *readerPG) ImplantCompanies(ctx context.Context) ([]*ImplantCompany, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM implant_company ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Rows) (*ImplantCompany, error) {
		var c ImplantCompany
		err := row.Scan(&c.ID, &c.Name)
		return &c, err
	})
}

func (r *readerPG) FlagRules(ctx context.Context, facilityID uuid.UUID) ([]*FlagRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, facility_id, name, metric, threshold_minutes, active
		FROM flag_rule WHERE facility_id = $1 AND active ORDER BY name`, facilityID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Rows) (*FlagRule, error) {
		var f FlagRule
		err := row.Scan(&f.ID, &f.FacilityID, &f.Name, &f.Metric, &f.Threshold, &f.Active)
		return &f, err
	})
}

func (r *readerPG) StaffByRole(ctx context.Context, facilityID uuid.UUID, role string) ([]*StaffMember, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, role, active FROM staff
		WHERE facility_id = $1 AND role = $2 AND active ORDER BY name`, facilityID, role)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Rows) (*StaffMember, error) {
		var s StaffMember
		err := row.Scan(&s.ID, &s.Name, &s.Role, &s.Active)
		return &s, err
	})
}

func collect[T any](rows pgx.Rows, scan func(pgx.Rows) (*T, error)) ([]*T, error) {
	defer rows.Close()
	var items []*T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
