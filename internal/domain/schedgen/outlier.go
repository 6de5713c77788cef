package schedgen

import (
	"math/rand"
	"time"
)

// OutlierKind configures one perturbation kind. Range bounds are minutes.
type OutlierKind struct {
	Enabled      bool `json:"enabled"`
	FrequencyPct int  `json:"frequency_pct"`
	MinMinutes   int  `json:"min_minutes"`
	MaxMinutes   int  `json:"max_minutes"`
}

// OutlierProfile is the five independently configured perturbation kinds
// plus the bad-day budget. On a bad day every enabled kind fires at 100%
// using its configured range; magnitudes are never overridden.
type OutlierProfile struct {
	LateStarts      OutlierKind `json:"late_starts"`
	LongTurnovers   OutlierKind `json:"long_turnovers"`
	ExtendedPhases  OutlierKind `json:"extended_phases"`
	CallbackDelays  OutlierKind `json:"callback_delays"`
	FastCases       OutlierKind `json:"fast_cases"`
	BadDaysPerMonth int         `json:"bad_days_per_month"`
}

// Outliers is the perturbation layer consulted by the timeline generator
// and milestone builder. All draws come from the injected rng so a seeded
// run is reproducible.
type Outliers struct {
	profile OutlierProfile
	rng     *rand.Rand
}

func NewOutliers(profile OutlierProfile, rng *rand.Rand) *Outliers {
	return &Outliers{profile: profile, rng: rng}
}

// draw returns a uniform value from the kind's configured range.
func (o *Outliers) draw(k OutlierKind) int {
	if k.MaxMinutes <= k.MinMinutes {
		return k.MinMinutes
	}
	return k.MinMinutes + o.rng.Intn(k.MaxMinutes-k.MinMinutes+1)
}

// roll is the shared gate: disabled kinds never fire, bad days force every
// enabled kind, otherwise the kind's frequency decides.
func (o *Outliers) roll(k OutlierKind, badDay bool) (int, bool) {
	if !k.Enabled {
		return 0, false
	}
	if badDay || o.rng.Intn(100) < k.FrequencyPct {
		return o.draw(k), true
	}
	return 0, false
}

// ScheduleBadDays partitions the operating dates into a bad-day set sized
// perMonth times the number of distinct months the dates span.
func (o *Outliers) ScheduleBadDays(dates []time.Time, perMonth int) map[string]bool {
	bad := make(map[string]bool)
	if perMonth <= 0 || len(dates) == 0 {
		return bad
	}
	months := make(map[string]bool)
	for _, d := range dates {
		months[d.Format("2006-01")] = true
	}
	want := perMonth * len(months)
	if want > len(dates) {
		want = len(dates)
	}
	perm := o.rng.Perm(len(dates))
	for _, idx := range perm[:want] {
		bad[dateKey(dates[idx])] = true
	}
	return bad
}

// LateStartDelay returns the day-level late-start delay, zero when the kind
// does not fire.
func (o *Outliers) LateStartDelay(badDay bool) int {
	d, _ := o.roll(o.profile.LateStarts, badDay)
	return d
}

// CascadeDelay returns the per-case increment added to the running schedule
// on a late-start day. It is always at least one minute so cumulative delay
// strictly increases case over case.
func (o *Outliers) CascadeDelay() int {
	k := o.profile.LateStarts
	if !k.Enabled {
		return 1
	}
	d := o.draw(k) / 2
	if d < 1 {
		d = 1
	}
	return d
}

// TurnoverAdjustment returns a replacement turnover when the long-turnover
// kind fires. The returned value replaces the baseline; it is never added
// to it.
func (o *Outliers) TurnoverAdjustment(badDay bool) (int, bool) {
	return o.roll(o.profile.LongTurnovers, badDay)
}

// SurgicalTimeAdjustment applies the extended-phase / fast-case pair to a
// resolved surgical duration. The two kinds are mutually exclusive per
// case: extended is checked first and, when it fires, fast is never
// evaluated.
func (o *Outliers) SurgicalTimeAdjustment(base int, badDay bool) int {
	if ext, ok := o.roll(o.profile.ExtendedPhases, badDay); ok {
		return base + ext
	}
	if fast, ok := o.roll(o.profile.FastCases, badDay); ok {
		adjusted := base - fast
		if adjusted < 15 {
			adjusted = 15
		}
		return adjusted
	}
	return base
}

// CallbackDelay returns the extra minutes added to a flip-room callback.
func (o *Outliers) CallbackDelay(badDay bool) int {
	d, _ := o.roll(o.profile.CallbackDelays, badDay)
	return d
}

// MilestoneBump returns the frequency-gated bump applied to the volatile
// milestones (anesthesia end, closing, closing complete). It reuses the
// extended-phase configuration.
func (o *Outliers) MilestoneBump(badDay bool) int {
	d, _ := o.roll(o.profile.ExtendedPhases, badDay)
	return d
}
