package schedgen

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/orpulse/orpulse/internal/domain/refdata"
)

// PerturbStats summarizes the population-level pass for the run result.
type PerturbStats struct {
	Cancelled   int
	Delayed     int
	Flagged     int
	Unvalidated int
}

// Perturber applies the effects that need the whole case set at once:
// cancellations, delays, complexity tags, device records, validation flags,
// and flag-rule evaluation. It runs exactly once, on the in-memory set,
// before the first write.
type Perturber struct {
	rng    *rand.Rand
	ref    *Reference
	engine RuleEngine
}

func NewPerturber(rng *rand.Rand, ref *Reference, engine RuleEngine) *Perturber {
	return &Perturber{rng: rng, ref: ref, engine: engine}
}

// Apply mutates the dataset in the documented order and returns the counts.
func (p *Perturber) Apply(ds *Dataset) PerturbStats {
	var stats PerturbStats
	stats.Cancelled = p.cancelCases(ds)
	stats.Delayed = p.injectDelays(ds)
	p.tagComplexity(ds)
	p.recordDevices(ds)
	stats.Unvalidated = p.validate(ds)
	stats.Flagged = p.evaluateRules(ds)
	return stats
}

// completedCases returns indexes of cases still in completed status.
func completedCases(ds *Dataset) []int {
	var idx []int
	for i, c := range ds.Cases {
		if c.Status == refdata.StatusCompleted {
			idx = append(idx, i)
		}
	}
	return idx
}

// cancelCases cancels ~3% of completed cases, chosen without replacement,
// with a cancellation timestamp 6-18 hours before the scheduled start, then
// strips every child record of the cancelled cases. Stripping builds new
// slices rather than compacting in place.
func (p *Perturber) cancelCases(ds *Dataset) int {
	completed := completedCases(ds)
	n := (len(completed)*3 + 50) / 100
	if n == 0 {
		return 0
	}

	cancelledID, ok := p.ref.Statuses[refdata.StatusCancelled]
	if !ok {
		return 0
	}

	perm := p.rng.Perm(len(completed))
	cancelled := make(map[uuid.UUID]bool, n)
	for _, pi := range perm[:n] {
		c := ds.Cases[completed[pi]]
		hoursBack := 6 + p.rng.Intn(13)
		ts := c.ScheduledStart.Add(-time.Duration(hoursBack) * time.Hour)
		c.Status = refdata.StatusCancelled
		c.StatusID = cancelledID
		c.CancelledAt = &ts
		c.SurgeonLeftAt = nil
		if len(p.ref.CancelReasons) > 0 {
			reason := p.ref.CancelReasons[p.rng.Intn(len(p.ref.CancelReasons))]
			c.CancelReasonID = &reason.ID
		}
		cancelled[c.ID] = true
	}

	ds.Milestones = filterSlice(ds.Milestones, func(m *MilestoneEvent) bool { return !cancelled[m.CaseID] })
	ds.Staff = filterSlice(ds.Staff, func(s *StaffAssignment) bool { return !cancelled[s.CaseID] })
	ds.Implants = filterSlice(ds.Implants, func(i *ImplantRecord) bool { return !cancelled[i.CaseID] })

	var links []FlipLink
	for _, l := range ds.Links {
		if !cancelled[l.CaseID] && !cancelled[l.NextCaseID] {
			links = append(links, l)
		}
	}
	ds.Links = links

	return n
}

func filterSlice[T any](in []*T, keep func(*T) bool) []*T {
	out := make([]*T, 0, len(in))
	for _, item := range in {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// injectDelays gives 5-8% of the remaining completed cases one delay record
// of 5-45 minutes.
func (p *Perturber) injectDelays(ds *Dataset) int {
	if len(p.ref.DelayTypes) == 0 {
		return 0
	}
	completed := completedCases(ds)
	pct := 5 + p.rng.Intn(4)
	n := (len(completed)*pct + 50) / 100
	if n == 0 {
		return 0
	}
	perm := p.rng.Perm(len(completed))
	for _, pi := range perm[:n] {
		c := ds.Cases[completed[pi]]
		dt := p.ref.DelayTypes[p.rng.Intn(len(p.ref.DelayTypes))]
		ds.Delays = append(ds.Delays, &DelayRecord{
			ID:          uuid.New(),
			CaseID:      c.ID,
			DelayTypeID: dt.ID,
			Minutes:     5 + p.rng.Intn(41),
		})
	}
	return n
}

var secondFactors = []string{"Revision", "Hardware Removal", "Obesity", "Prior Infection"}

// tagComplexity: spine is always Complex, joint splits 70/30
// Standard/Complex with a 10% chance of a second factor, hand/wrist gets no
// tag.
func (p *Perturber) tagComplexity(ds *Dataset) {
	standardID, hasStd := p.ref.Complexities["Standard"]
	complexID, hasCpx := p.ref.Complexities["Complex"]
	if !hasCpx {
		return
	}
	for _, c := range ds.Cases {
		if c.Status == refdata.StatusCancelled {
			continue
		}
		switch c.Specialty {
		case SpecialtySpine:
			ds.Complexities = append(ds.Complexities, &ComplexityRecord{
				ID: uuid.New(), CaseID: c.ID, ComplexityID: complexID,
			})
		case SpecialtyJoint:
			id := complexID
			if hasStd && p.rng.Intn(100) < 70 {
				id = standardID
			}
			rec := &ComplexityRecord{ID: uuid.New(), CaseID: c.ID, ComplexityID: id}
			if p.rng.Intn(100) < 10 {
				rec.Factor = secondFactors[p.rng.Intn(len(secondFactors))]
			}
			ds.Complexities = append(ds.Complexities, rec)
		}
	}
}

// recordDevices emits one device-activity record per joint case that got
// implants.
func (p *Perturber) recordDevices(ds *Dataset) {
	seen := make(map[uuid.UUID]uuid.UUID) // case -> company
	for _, imp := range ds.Implants {
		seen[imp.CaseID] = imp.CompanyID
	}
	for _, c := range ds.Cases {
		company, ok := seen[c.ID]
		if !ok || c.Status == refdata.StatusCancelled {
			continue
		}
		ds.Devices = append(ds.Devices, &DeviceRecord{
			ID: uuid.New(), CaseID: c.ID, CompanyID: company,
		})
	}
}

// validate leaves ~2% of remaining completed cases unvalidated and marks
// the rest validated.
func (p *Perturber) validate(ds *Dataset) int {
	completed := completedCases(ds)
	n := (len(completed)*2 + 50) / 100
	skip := make(map[int]bool, n)
	perm := p.rng.Perm(len(completed))
	for _, pi := range perm[:n] {
		skip[completed[pi]] = true
	}
	for _, i := range completed {
		ds.Cases[i].Validated = !skip[i]
	}
	return n
}

func (p *Perturber) evaluateRules(ds *Dataset) int {
	if p.engine == nil || len(p.ref.Rules) == 0 {
		return 0
	}
	flags := p.engine.Evaluate(ds, p.ref.Rules)
	ds.Flags = append(ds.Flags, flags...)
	return len(flags)
}
