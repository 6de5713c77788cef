package schedgen

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orpulse/orpulse/internal/domain/refdata"
)

// Reference is the loaded reference-data bundle one generation run works
// against. Missing facility, an empty procedure catalog, no payers, or no
// "completed" status are configuration errors and abort before any write.
type Reference struct {
	Facility      *refdata.Facility
	Location      *time.Location
	Procedures    []*refdata.Procedure
	Milestones    map[string]*refdata.Milestone // by canonical name
	Payers        []*refdata.Payer
	Statuses      map[string]uuid.UUID // by status name
	CancelReasons []*refdata.CancellationReason
	DelayTypes    []*refdata.DelayType
	Complexities  map[string]uuid.UUID // by level name
	Companies     []*refdata.ImplantCompany
	Rules         []*refdata.FlagRule
	Pools         StaffPools
}

// LoadReference reads and validates everything the engine needs up front.
func LoadReference(ctx context.Context, r refdata.Reader, facilityID uuid.UUID) (*Reference, error) {
	fac, err := r.Facility(ctx, facilityID)
	if err != nil {
		return nil, fmt.Errorf("load facility %s: %w", facilityID, err)
	}
	loc, err := time.LoadLocation(fac.Timezone)
	if err != nil {
		return nil, fmt.Errorf("facility timezone %q: %w", fac.Timezone, err)
	}

	procs, err := r.Procedures(ctx, facilityID)
	if err != nil {
		return nil, fmt.Errorf("load procedure catalog: %w", err)
	}
	if len(procs) == 0 {
		return nil, fmt.Errorf("facility %s has no procedure catalog", fac.Name)
	}

	milestones, err := r.Milestones(ctx, facilityID)
	if err != nil {
		return nil, fmt.Errorf("load milestone catalog: %w", err)
	}
	msByName := make(map[string]*refdata.Milestone, len(milestones))
	for _, m := range milestones {
		msByName[m.Name] = m
	}

	payers, err := r.Payers(ctx, facilityID)
	if err != nil {
		return nil, fmt.Errorf("load payers: %w", err)
	}
	if len(payers) == 0 {
		return nil, fmt.Errorf("facility %s has no payers", fac.Name)
	}

	statuses, err := r.CaseStatuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("load case statuses: %w", err)
	}
	statusIDs := make(map[string]uuid.UUID, len(statuses))
	for _, s := range statuses {
		statusIDs[s.Name] = s.ID
	}
	if _, ok := statusIDs[refdata.StatusCompleted]; !ok {
		return nil, fmt.Errorf("case status lookup has no %q status", refdata.StatusCompleted)
	}

	reasons, err := r.CancellationReasons(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cancellation reasons: %w", err)
	}
	delayTypes, err := r.DelayTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load delay types: %w", err)
	}
	levels, err := r.ComplexityLevels(ctx)
	if err != nil {
		return nil, fmt.Errorf("load complexity levels: %w", err)
	}
	levelIDs := make(map[string]uuid.UUID, len(levels))
	for _, l := range levels {
		levelIDs[l.Name] = l.ID
	}
	companies, err := r.ImplantCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("load implant companies: %w", err)
	}
	rules, err := r.FlagRules(ctx, facilityID)
	if err != nil {
		return nil, fmt.Errorf("load flag rules: %w", err)
	}

	pools := StaffPools{}
	for role, dst := range map[string]*[]*refdata.StaffMember{
		refdata.RoleNurse:              &pools.Nurses,
		refdata.RoleSurgicalTech:       &pools.Techs,
		refdata.RoleAnesthesiologist:   &pools.Anesthesiologists,
		refdata.RoleCRNA:               &pools.CRNAs,
		refdata.RolePhysicianAssistant: &pools.PAs,
	} {
		staff, err := r.StaffByRole(ctx, facilityID, role)
		if err != nil {
			return nil, fmt.Errorf("load %s staff: %w", role, err)
		}
		*dst = staff
	}

	return &Reference{
		Facility:      fac,
		Location:      loc,
		Procedures:    procs,
		Milestones:    msByName,
		Payers:        payers,
		Statuses:      statusIDs,
		CancelReasons: reasons,
		DelayTypes:    delayTypes,
		Complexities:  levelIDs,
		Companies:     companies,
		Rules:         rules,
		Pools:         pools,
	}, nil
}
