package schedgen

import (
	"sort"
	"time"

	"github.com/orpulse/orpulse/internal/domain/refdata"
)

// StaffPools holds the facility's active staff split by role. The two
// anesthesia roles are pooled at planning time.
type StaffPools struct {
	Nurses            []*refdata.StaffMember
	Techs             []*refdata.StaffMember
	Anesthesiologists []*refdata.StaffMember
	CRNAs             []*refdata.StaffMember
	PAs               []*refdata.StaffMember
}

// anesthesiaPool interleaves anesthesiologists and CRNAs into one
// interchangeable pool.
func (p StaffPools) anesthesiaPool() []*refdata.StaffMember {
	pool := make([]*refdata.StaffMember, 0, len(p.Anesthesiologists)+len(p.CRNAs))
	for i := 0; i < len(p.Anesthesiologists) || i < len(p.CRNAs); i++ {
		if i < len(p.Anesthesiologists) {
			pool = append(pool, p.Anesthesiologists[i])
		}
		if i < len(p.CRNAs) {
			pool = append(pool, p.CRNAs[i])
		}
	}
	return pool
}

// Staffing is one room-day crew. Any slot may be nil when its role pool is
// exhausted for the date; generation degrades rather than failing.
type Staffing struct {
	Nurse      *refdata.StaffMember
	TechA      *refdata.StaffMember
	TechB      *refdata.StaffMember
	Anesthesia *refdata.StaffMember
}

// Roster maps date -> room -> crew for the whole generation range.
type Roster struct {
	days map[string]map[string]*Staffing
}

// For returns the crew planned for a room-day, nil when the room was never
// activated on that date.
func (r *Roster) For(date time.Time, room string) *Staffing {
	if r == nil {
		return nil
	}
	return r.days[dateKey(date)][room]
}

// rolePicker round-robins through a pool while tracking per-date usage so a
// staff identity never serves two rooms on the same day.
type rolePicker struct {
	pool []*refdata.StaffMember
	next int
}

func (rp *rolePicker) pick(used map[string]bool) *refdata.StaffMember {
	for tries := 0; tries < len(rp.pool); tries++ {
		m := rp.pool[rp.next%len(rp.pool)]
		rp.next++
		if !used[m.ID.String()] {
			used[m.ID.String()] = true
			return m
		}
	}
	return nil
}

// PlanRoster assigns one nurse, two techs, and one pooled anesthesia
// provider to every room made active by any surgeon's per-day assignment.
// Rooms are visited in sorted order within a date so re-planning the same
// activation set reproduces the same crews; no ordering is promised across
// dates.
func PlanRoster(profiles []*Profile, cal Calendar, pools StaffPools) *Roster {
	roster := &Roster{days: make(map[string]map[string]*Staffing)}

	active := make(map[string]map[string]bool) // date key -> room set
	var keys []string
	for _, p := range profiles {
		for _, d := range cal.OperatingDates(p) {
			rooms := p.Rooms(d.Weekday())
			if len(rooms) == 0 {
				continue
			}
			k := dateKey(d)
			if active[k] == nil {
				active[k] = make(map[string]bool)
				keys = append(keys, k)
			}
			for _, room := range rooms {
				active[k][room] = true
			}
		}
	}
	sort.Strings(keys)

	nurses := &rolePicker{pool: pools.Nurses}
	techs := &rolePicker{pool: pools.Techs}
	anesthesia := &rolePicker{pool: pools.anesthesiaPool()}

	for _, k := range keys {
		rooms := make([]string, 0, len(active[k]))
		for room := range active[k] {
			rooms = append(rooms, room)
		}
		sort.Strings(rooms)

		used := make(map[string]bool)
		day := make(map[string]*Staffing, len(rooms))
		for _, room := range rooms {
			day[room] = &Staffing{
				Nurse:      nurses.pick(used),
				TechA:      techs.pick(used),
				TechB:      techs.pick(used),
				Anesthesia: anesthesia.pick(used),
			}
		}
		roster.days[k] = day
	}
	return roster
}
