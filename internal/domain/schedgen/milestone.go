package schedgen

// Canonical milestone names, in chronological order. Non-null recorded
// timestamps for one case are strictly increasing in this order; the
// builder enforces it by construction rather than sorting afterwards.
const (
	MSPatientIn       = "patient_in"
	MSAnesthesiaStart = "anesthesia_start"
	MSAnesthesiaReady = "anesthesia_ready"
	MSPrepStart       = "prep_start"
	MSPrepComplete    = "prep_complete"
	MSTimeOut         = "time_out"
	MSIncision        = "incision"
	MSClosing         = "closing"
	MSClosingComplete = "closing_complete"
	MSAnesthesiaEnd   = "anesthesia_end"
	MSPatientOut      = "patient_out"
	MSRoomCleaned     = "room_cleaned"
)

// canonicalOrder drives emission; a milestone absent from the facility
// catalog or excluded by the procedure's milestone config is skipped.
var canonicalOrder = []string{
	MSPatientIn, MSAnesthesiaStart, MSAnesthesiaReady,
	MSPrepStart, MSPrepComplete, MSTimeOut, MSIncision,
	MSClosing, MSClosingComplete, MSAnesthesiaEnd,
	MSPatientOut, MSRoomCleaned,
}

var anesthesiaEvents = map[string]bool{
	MSAnesthesiaStart: true,
	MSAnesthesiaReady: true,
	MSAnesthesiaEnd:   true,
}

// volatileEvents get the frequency-gated outlier bump on top of their
// template offsets.
var volatileEvents = map[string]bool{
	MSAnesthesiaEnd:   true,
	MSClosing:         true,
	MSClosingComplete: true,
}

// milestoneTemplate is a specialty's named offsets: pre-incision events as
// fixed minutes from patient_in, post-incision events as functions of the
// resolved surgical time. Post-incision offsets are measured from incision.
type milestoneTemplate struct {
	pre  map[string]int
	post map[string]func(surgical int) int
}

var templates = map[Specialty]milestoneTemplate{
	SpecialtyJoint: {
		pre: map[string]int{
			MSAnesthesiaStart: 5,
			MSAnesthesiaReady: 17,
			MSPrepStart:       20,
			MSPrepComplete:    32,
			MSTimeOut:         35,
			MSIncision:        38,
		},
		post: map[string]func(int) int{
			MSClosing:         func(s int) int { return s },
			MSClosingComplete: func(s int) int { return s + 12 },
			MSAnesthesiaEnd:   func(s int) int { return s + 17 },
			MSPatientOut:      func(s int) int { return s + 23 },
			MSRoomCleaned:     func(s int) int { return s + 41 },
		},
	},
	SpecialtySpine: {
		pre: map[string]int{
			MSAnesthesiaStart: 6,
			MSAnesthesiaReady: 22,
			MSPrepStart:       26,
			MSPrepComplete:    44,
			MSTimeOut:         47,
			MSIncision:        50,
		},
		post: map[string]func(int) int{
			MSClosing:         func(s int) int { return s },
			MSClosingComplete: func(s int) int { return s + 15 },
			MSAnesthesiaEnd:   func(s int) int { return s + 21 },
			MSPatientOut:      func(s int) int { return s + 29 },
			MSRoomCleaned:     func(s int) int { return s + 49 },
		},
	},
	SpecialtyHandWrist: {
		pre: map[string]int{
			MSPrepStart:    4,
			MSPrepComplete: 10,
			MSTimeOut:      12,
			MSIncision:     14,
		},
		post: map[string]func(int) int{
			MSClosing:         func(s int) int { return s },
			MSClosingComplete: func(s int) int { return s + 8 },
			MSPatientOut:      func(s int) int { return s + 12 },
			MSRoomCleaned:     func(s int) int { return s + 24 },
		},
	},
}

// timedMilestone is a named offset in minutes from patient_in.
type timedMilestone struct {
	Name   string
	Offset int
}

// buildTimeline produces the milestone offsets for one case. Lookup order
// per event: template offset, speed-scale (pre-incision only), outlier
// bump for the volatile events, then the never-go-backwards clamp
// off = max(off, last+1) that guarantees strict monotonicity even under
// adversarial jitter.
func buildTimeline(sp Specialty, speed SpeedClass, surgical int, o *Outliers, badDay, includeAnesthesia bool) []timedMilestone {
	tpl, ok := templates[sp]
	if !ok {
		return nil
	}
	factor := speed.Factor()
	incision := 0

	var out []timedMilestone
	last := -1
	for _, name := range canonicalOrder {
		if anesthesiaEvents[name] && !includeAnesthesia {
			continue
		}

		var off int
		switch {
		case name == MSPatientIn:
			off = 0
		default:
			if pre, ok := tpl.pre[name]; ok {
				off = int(float64(pre)*factor + 0.5)
			} else if fn, ok := tpl.post[name]; ok {
				off = incision + fn(surgical)
			} else {
				continue
			}
		}

		if volatileEvents[name] && o != nil {
			off += o.MilestoneBump(badDay)
		}

		if off <= last {
			off = last + 1
		}
		last = off
		if name == MSIncision {
			incision = off
		}
		out = append(out, timedMilestone{Name: name, Offset: off})
	}
	return out
}

// offsetOf returns the offset of a named milestone in a built timeline,
// false when the event was not emitted.
func offsetOf(tl []timedMilestone, name string) (int, bool) {
	for _, m := range tl {
		if m.Name == name {
			return m.Offset, true
		}
	}
	return 0, false
}
