package schedgen

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orpulse/orpulse/internal/domain/refdata"
)

const (
	dayStartHour   = 7
	dayStartMinute = 30

	// surgeonHandoffMinutes separates closing from surgeon_left_at when the
	// PA takes over the closure.
	surgeonHandoffMinutes = 15

	// flipFallbackMinutes advances flip-room time when a case produced no
	// timestamped milestones (future-dated days).
	flipFallbackMinutes = 45
)

// fallbackDurations keys the hardcoded last-resort duration ranges by
// procedure name; procedures not listed fall through to the speed-class
// ranges below.
var fallbackDurations = map[string]Range{
	"total knee arthroplasty":   {Min: 80, Max: 110},
	"total hip arthroplasty":    {Min: 85, Max: 115},
	"partial knee arthroplasty": {Min: 70, Max: 95},
	"lumbar fusion":             {Min: 120, Max: 180},
	"lumbar laminectomy":        {Min: 90, Max: 130},
	"cervical fusion":           {Min: 100, Max: 150},
	"carpal tunnel release":     {Min: 35, Max: 55},
	"trigger finger release":    {Min: 30, Max: 45},
	"wrist arthroscopy":         {Min: 45, Max: 70},
	"distal radius fixation":    {Min: 60, Max: 90},
}

var fallbackBySpeed = map[SpeedClass]Range{
	SpeedFast:    {Min: 45, Max: 70},
	SpeedAverage: {Min: 60, Max: 90},
	SpeedSlow:    {Min: 80, Max: 110},
}

// implantComponent lists size options for one component; CommonSizes win a
// 70% draw, otherwise the full range is used.
type implantComponent struct {
	Name        string
	Sizes       []string
	CommonSizes []string
}

var kneeComponents = []implantComponent{
	{Name: "femoral", Sizes: []string{"1", "2", "3", "4", "5", "6", "7"}, CommonSizes: []string{"3", "4", "5"}},
	{Name: "tibial_tray", Sizes: []string{"1", "2", "3", "4", "5", "6", "7"}, CommonSizes: []string{"3", "4", "5"}},
	{Name: "poly_insert", Sizes: []string{"9", "10", "11", "12", "14", "17"}, CommonSizes: []string{"10", "11"}},
	{Name: "patella", Sizes: []string{"29", "32", "35", "38", "41"}, CommonSizes: []string{"32", "35"}},
}

var hipComponents = []implantComponent{
	{Name: "acetabular_cup", Sizes: []string{"48", "50", "52", "54", "56", "58", "60"}, CommonSizes: []string{"52", "54", "56"}},
	{Name: "femoral_stem", Sizes: []string{"1", "2", "3", "4", "5", "6"}, CommonSizes: []string{"3", "4"}},
	{Name: "femoral_head", Sizes: []string{"28", "32", "36", "40"}, CommonSizes: []string{"32", "36"}},
}

// callbackBand returns the percentage band of the surgical window (from
// incision) at which the next room is called back, by speed class.
func callbackBand(s SpeedClass) Range {
	switch s {
	case SpeedFast:
		return Range{Min: 20, Max: 40}
	case SpeedSlow:
		return Range{Min: 80, Max: 100}
	default:
		return Range{Min: 50, Max: 70}
	}
}

// timelineGenerator walks one surgeon's operating days and appends cases
// and their children to a Dataset. Single-threaded; determinism holds up to
// the injected rng.
type timelineGenerator struct {
	rng    *rand.Rand
	ref    *Reference
	cal    Calendar
	roster *Roster
	today  time.Time // midnight in facility tz; days on/after skip timestamping
	seq    int
}

func newTimelineGenerator(rng *rand.Rand, ref *Reference, cal Calendar, roster *Roster, now time.Time) *timelineGenerator {
	y, m, d := now.In(ref.Location).Date()
	return &timelineGenerator{
		rng:    rng,
		ref:    ref,
		cal:    cal,
		roster: roster,
		today:  time.Date(y, m, d, 0, 0, 0, 0, ref.Location),
	}
}

func (g *timelineGenerator) drawRange(r Range) int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + g.rng.Intn(r.Max-r.Min+1)
}

func (g *timelineGenerator) nextCaseNumber() string {
	g.seq++
	return fmt.Sprintf("%s-%05d", g.ref.Facility.CasePrefix, g.seq)
}

// resolveDuration runs the 3-tier cascade: surgeon override, catalog
// default, hardcoded fallback. Each tier subtracts the specialty overhead
// floored at 15, adds the +-5 jitter, scales by speed class, then passes
// through the outlier surgical-time adjustment.
func (g *timelineGenerator) resolveDuration(p *Profile, proc *refdata.Procedure, o *Outliers, badDay bool) int {
	base := 0
	if ov, ok := p.Overrides[proc.ID]; ok {
		base = ov
	} else if proc.DefaultDuration > 0 {
		base = proc.DefaultDuration
	} else if r, ok := fallbackDurations[strings.ToLower(proc.Name)]; ok {
		base = g.drawRange(r)
	} else {
		base = g.drawRange(fallbackBySpeed[p.Speed])
	}

	d := base - p.Specialty.Overhead()
	if d < 15 {
		d = 15
	}
	d += g.rng.Intn(11) - 5
	d = int(float64(d)*p.Speed.Factor() + 0.5)
	d = o.SurgicalTimeAdjustment(d, badDay)
	if d < 15 {
		d = 15
	}
	return d
}

// startVariance returns the offset from scheduled time at which the patient
// actually enters the room: 80% of cases land in -5..+10, the rest run
// 10-30 late.
func (g *timelineGenerator) startVariance() int {
	if g.rng.Intn(100) < 80 {
		return g.rng.Intn(16) - 5
	}
	return 10 + g.rng.Intn(21)
}

// generateSurgeon synthesizes the surgeon's full case timeline across the
// calendar range. Days with no room assignment are skipped without error.
func (g *timelineGenerator) generateSurgeon(p *Profile, ds *Dataset) {
	outliers := NewOutliers(p.Outliers, g.rng)
	dates := g.cal.OperatingDates(p)
	badDays := outliers.ScheduleBadDays(dates, p.Outliers.BadDaysPerMonth)

	for _, date := range dates {
		rooms := p.Rooms(date.Weekday())
		if len(rooms) == 0 {
			continue
		}
		g.generateDay(p, outliers, date, rooms, badDays[dateKey(date)], ds)
	}
}

func (g *timelineGenerator) generateDay(p *Profile, outliers *Outliers, date time.Time, rooms []string, badDay bool, ds *Dataset) {
	isFlip := len(rooms) >= 2
	numCases := g.drawRange(p.CasesPerDay)
	future := !date.Before(g.today)

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), dayStartHour, dayStartMinute, 0, 0, g.ref.Location)
	cur := dayStart
	roomIndex := 0
	lateDelay := outliers.LateStartDelay(badDay)

	var prev *Case
	for i := 0; i < numCases; i++ {
		if lateDelay > 0 && i > 0 {
			// Cumulative cascade: each case slips further than the last.
			cur = cur.Add(time.Duration(outliers.CascadeDelay()) * time.Minute)
		}

		proc := p.Procedures[g.rng.Intn(len(p.Procedures))]
		room := rooms[0]
		if isFlip {
			room = rooms[roomIndex%len(rooms)]
		}
		surgical := g.resolveDuration(p, proc, outliers, badDay)

		scheduled := cur
		variance := g.startVariance()
		if i == 0 && lateDelay > 0 {
			variance = lateDelay + g.rng.Intn(6)
		}
		patientIn := scheduled.Add(time.Duration(variance) * time.Minute)

		status := refdata.StatusCompleted
		if future {
			status = refdata.StatusScheduled
		}
		c, err := NewCase(
			g.ref.Facility.ID, p.SurgeonID, proc.ID,
			g.ref.Statuses[status], g.randomPayer(),
			g.nextCaseNumber(), p.Specialty, room,
			time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, g.ref.Location),
			scheduled, status)
		if err != nil {
			// Constructor invariants only fail on programmer error; skip the
			// case rather than the run.
			continue
		}
		c.ProcedureName = proc.Name
		c.SurgicalMinutes = surgical
		if p.Specialty.Sided() {
			side := "Left"
			if g.rng.Intn(2) == 1 {
				side = "Right"
			}
			c.OperativeSide = &side
		}

		timeline := buildTimeline(p.Specialty, p.Speed, surgical, outliers, badDay, proc.IncludeAnesthesia)
		g.emitMilestones(c, timeline, patientIn, future, ds)

		if !future {
			c.SurgeonLeftAt = g.surgeonLeftAt(timeline, patientIn)
		}

		// Flip callback: a percentage through the surgical window measured
		// from incision, banded by speed class.
		if isFlip && i > 0 && !future {
			if incOff, ok := offsetOf(timeline, MSIncision); ok {
				pct := g.drawRange(callbackBand(p.Speed))
				cb := patientIn.Add(time.Duration(incOff+surgical*pct/100+outliers.CallbackDelay(badDay)) * time.Minute)
				c.CallTime = cb
			}
		}

		if isFlip && prev != nil {
			ds.Links = append(ds.Links, FlipLink{CaseID: prev.ID, NextCaseID: c.ID})
		}

		g.assignStaff(c, date, room, ds)
		if p.Specialty == SpecialtyJoint && p.Vendor != nil {
			g.generateImplants(c, proc, p.Vendor, ds)
		}

		ds.Cases = append(ds.Cases, c)

		cur = g.advance(c, timeline, patientIn, scheduled, surgical, isFlip, future, outliers, badDay)
		if isFlip {
			roomIndex++
		}
		prev = c
	}
}

func (g *timelineGenerator) randomPayer() uuid.UUID {
	return g.ref.Payers[g.rng.Intn(len(g.ref.Payers))].ID
}

// emitMilestones converts timeline offsets into events. Future-dated cases
// keep the rows but leave RecordedAt nil, matching the placeholder
// convention used when a case is first scheduled.
func (g *timelineGenerator) emitMilestones(c *Case, timeline []timedMilestone, patientIn time.Time, future bool, ds *Dataset) {
	for _, tm := range timeline {
		cat, ok := g.ref.Milestones[tm.Name]
		if !ok {
			continue
		}
		ev := &MilestoneEvent{
			ID:          uuid.New(),
			CaseID:      c.ID,
			MilestoneID: cat.ID,
			Name:        tm.Name,
		}
		if !future {
			t := patientIn.Add(time.Duration(tm.Offset) * time.Minute)
			ev.RecordedAt = &t
		}
		ds.Milestones = append(ds.Milestones, ev)
	}
}

// surgeonLeftAt derives the closing workflow: when the PA closes the
// surgeon leaves a fixed handoff after closing; when the surgeon closes
// they leave at closing_complete.
func (g *timelineGenerator) surgeonLeftAt(timeline []timedMilestone, patientIn time.Time) *time.Time {
	paCloses := len(g.ref.Pools.PAs) > 0 && g.rng.Intn(100) < 60
	if paCloses {
		if off, ok := offsetOf(timeline, MSClosing); ok {
			t := patientIn.Add(time.Duration(off+surgeonHandoffMinutes) * time.Minute)
			return &t
		}
	}
	if off, ok := offsetOf(timeline, MSClosingComplete); ok {
		t := patientIn.Add(time.Duration(off) * time.Minute)
		return &t
	}
	return nil
}

// advance moves the surgeon's clock to the next case slot. Flip days chain
// from surgeon_left_at plus a short transit/scrub gap; single-room days
// chain from patient_out plus turnover, where a fired long-turnover outlier
// replaces the baseline rather than adding to it.
func (g *timelineGenerator) advance(c *Case, timeline []timedMilestone, patientIn, scheduled time.Time, surgical int, isFlip, future bool, outliers *Outliers, badDay bool) time.Time {
	if isFlip {
		if c.SurgeonLeftAt != nil {
			return c.SurgeonLeftAt.Add(time.Duration(3+g.rng.Intn(6)) * time.Minute)
		}
		return scheduled.Add(time.Duration(surgical+flipFallbackMinutes) * time.Minute)
	}

	turnover := 15 + g.rng.Intn(11)
	if adj, fired := outliers.TurnoverAdjustment(badDay); fired {
		turnover = adj
	}
	if !future {
		if off, ok := offsetOf(timeline, MSPatientOut); ok {
			return patientIn.Add(time.Duration(off+turnover) * time.Minute)
		}
	}
	return scheduled.Add(time.Duration(surgical+turnover+30) * time.Minute)
}

// assignStaff denormalizes the room-day crew onto the case. Missing slots
// (exhausted pools) are simply absent.
func (g *timelineGenerator) assignStaff(c *Case, date time.Time, room string, ds *Dataset) {
	crew := g.roster.For(date, room)
	if crew == nil {
		return
	}
	add := func(m *refdata.StaffMember) {
		if m == nil {
			return
		}
		ds.Staff = append(ds.Staff, &StaffAssignment{
			ID:      uuid.New(),
			CaseID:  c.ID,
			StaffID: m.ID,
			Role:    m.Role,
		})
	}
	add(crew.Nurse)
	add(crew.TechA)
	add(crew.TechB)
	add(crew.Anesthesia)
}

func (g *timelineGenerator) generateImplants(c *Case, proc *refdata.Procedure, vendor *refdata.ImplantCompany, ds *Dataset) {
	components := kneeComponents
	if strings.Contains(strings.ToLower(proc.Name), "hip") {
		components = hipComponents
	}
	for _, comp := range components {
		pool := comp.Sizes
		if g.rng.Intn(100) < 70 && len(comp.CommonSizes) > 0 {
			pool = comp.CommonSizes
		}
		ds.Implants = append(ds.Implants, &ImplantRecord{
			ID:        uuid.New(),
			CaseID:    c.ID,
			CompanyID: vendor.ID,
			Component: comp.Name,
			Size:      pool[g.rng.Intn(len(pool))],
		})
	}
}
