package schedgen

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orpulse/orpulse/internal/domain/refdata"
)

// SurgeonSpec is the caller-supplied description of one surgeon's schedule
// shape. It is resolved against facility reference data before generation.
type SurgeonSpec struct {
	SurgeonID         uuid.UUID                 `json:"surgeon_id"`
	Name              string                    `json:"name"`
	Speed             SpeedClass                `json:"speed"`
	Specialty         Specialty                 `json:"specialty"`
	OperatingDays     []time.Weekday            `json:"operating_days"`
	RoomsByDay        map[time.Weekday][]string `json:"rooms_by_day"`
	PreferredVendor   string                    `json:"preferred_vendor,omitempty"`
	Procedures        []string                  `json:"procedures"`
	DurationOverrides map[string]int            `json:"duration_overrides,omitempty"`
	Outliers          *OutlierProfile           `json:"outliers,omitempty"`
	CasesPerDay       *Range                    `json:"cases_per_day,omitempty"`
}

// Profile is a resolved, immutable surgeon schedule profile.
type Profile struct {
	SurgeonID     uuid.UUID
	Name          string
	Speed         SpeedClass
	Specialty     Specialty
	OperatingDays map[time.Weekday]bool
	RoomsByDay    map[time.Weekday][]string
	Vendor        *refdata.ImplantCompany
	Procedures    []*refdata.Procedure
	Overrides     map[uuid.UUID]int // procedure id -> minutes
	Outliers      OutlierProfile
	CasesPerDay   Range
}

// defaultCasesPerDay by speed class, used when the spec carries no explicit
// range.
func defaultCasesPerDay(s SpeedClass) Range {
	switch s {
	case SpeedFast:
		return Range{Min: 4, Max: 6}
	case SpeedSlow:
		return Range{Min: 2, Max: 4}
	default:
		return Range{Min: 3, Max: 5}
	}
}

// ResolveProfile validates a spec against the procedure catalog and implant
// companies. A surgeon whose eligible set filters down to zero procedures
// fails resolution; the run skips that surgeon and continues.
func ResolveProfile(spec SurgeonSpec, catalog []*refdata.Procedure, companies []*refdata.ImplantCompany) (*Profile, error) {
	if spec.SurgeonID == uuid.Nil {
		return nil, fmt.Errorf("surgeon %q: surgeon_id is required", spec.Name)
	}
	if !spec.Speed.Valid() {
		return nil, fmt.Errorf("surgeon %q: invalid speed class %q", spec.Name, spec.Speed)
	}
	if !spec.Specialty.Valid() {
		return nil, fmt.Errorf("surgeon %q: invalid specialty %q", spec.Name, spec.Specialty)
	}
	if len(spec.OperatingDays) == 0 {
		return nil, fmt.Errorf("surgeon %q: no operating days", spec.Name)
	}

	byName := make(map[string]*refdata.Procedure, len(catalog))
	for _, p := range catalog {
		byName[strings.ToLower(p.Name)] = p
	}

	var procs []*refdata.Procedure
	overrides := make(map[uuid.UUID]int)
	for _, name := range spec.Procedures {
		p, ok := byName[strings.ToLower(name)]
		if !ok || Specialty(p.Specialty) != spec.Specialty {
			continue
		}
		procs = append(procs, p)
		if ov, ok := spec.DurationOverrides[name]; ok && ov > 0 {
			overrides[p.ID] = ov
		}
	}
	if len(procs) == 0 {
		return nil, fmt.Errorf("surgeon %q: no valid procedures after catalog filtering", spec.Name)
	}

	days := make(map[time.Weekday]bool, len(spec.OperatingDays))
	rooms := make(map[time.Weekday][]string, len(spec.OperatingDays))
	for _, wd := range spec.OperatingDays {
		days[wd] = true
		if rs := spec.RoomsByDay[wd]; len(rs) > 0 {
			if len(rs) > 2 {
				rs = rs[:2]
			}
			rooms[wd] = append([]string(nil), rs...)
		}
	}

	var vendor *refdata.ImplantCompany
	if spec.PreferredVendor != "" {
		for _, c := range companies {
			if strings.EqualFold(c.Name, spec.PreferredVendor) {
				vendor = c
				break
			}
		}
	}

	perDay := defaultCasesPerDay(spec.Speed)
	if spec.CasesPerDay != nil && spec.CasesPerDay.valid() {
		perDay = *spec.CasesPerDay
	}

	var outliers OutlierProfile
	if spec.Outliers != nil {
		outliers = *spec.Outliers
		if outliers.BadDaysPerMonth < 0 {
			outliers.BadDaysPerMonth = 0
		}
		if outliers.BadDaysPerMonth > 3 {
			outliers.BadDaysPerMonth = 3
		}
	}

	return &Profile{
		SurgeonID:     spec.SurgeonID,
		Name:          spec.Name,
		Speed:         spec.Speed,
		Specialty:     spec.Specialty,
		OperatingDays: days,
		RoomsByDay:    rooms,
		Vendor:        vendor,
		Procedures:    procs,
		Overrides:     overrides,
		Outliers:      outliers,
		CasesPerDay:   perDay,
	}, nil
}

// Rooms returns the surgeon's configured rooms for a weekday, empty when
// none are assigned (the day is skipped).
func (p *Profile) Rooms(wd time.Weekday) []string {
	return p.RoomsByDay[wd]
}
