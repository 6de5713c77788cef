package schedgen

import (
	"math/rand"
	"testing"
	"time"
)

func TestOutliers_DisabledNeverFires(t *testing.T) {
	o := NewOutliers(OutlierProfile{
		LateStarts: OutlierKind{Enabled: false, FrequencyPct: 100, MinMinutes: 10, MaxMinutes: 30},
	}, rand.New(rand.NewSource(1)))

	for i := 0; i < 200; i++ {
		if d := o.LateStartDelay(false); d != 0 {
			t.Fatalf("disabled kind fired with delay %d", d)
		}
		// Bad days do not resurrect disabled kinds.
		if d := o.LateStartDelay(true); d != 0 {
			t.Fatalf("disabled kind fired on bad day with delay %d", d)
		}
	}
}

func TestOutliers_BadDayForcesEnabled(t *testing.T) {
	o := NewOutliers(OutlierProfile{
		LateStarts: OutlierKind{Enabled: true, FrequencyPct: 0, MinMinutes: 10, MaxMinutes: 30},
	}, rand.New(rand.NewSource(2)))

	for i := 0; i < 200; i++ {
		d := o.LateStartDelay(true)
		if d < 10 || d > 30 {
			t.Fatalf("bad-day delay %d outside configured range", d)
		}
	}
}

func TestOutliers_TurnoverReplacementRange(t *testing.T) {
	o := NewOutliers(OutlierProfile{
		LongTurnovers: OutlierKind{Enabled: true, FrequencyPct: 100, MinMinutes: 45, MaxMinutes: 90},
	}, rand.New(rand.NewSource(3)))

	for i := 0; i < 200; i++ {
		adj, fired := o.TurnoverAdjustment(false)
		if !fired {
			t.Fatal("100% frequency kind did not fire")
		}
		if adj < 45 || adj > 90 {
			t.Fatalf("turnover %d outside range", adj)
		}
	}
}

func TestOutliers_ExtendedWinsOverFast(t *testing.T) {
	// Both kinds at 100%: extended must always win and fast must never
	// reduce the duration.
	o := NewOutliers(OutlierProfile{
		ExtendedPhases: OutlierKind{Enabled: true, FrequencyPct: 100, MinMinutes: 20, MaxMinutes: 40},
		FastCases:      OutlierKind{Enabled: true, FrequencyPct: 100, MinMinutes: 20, MaxMinutes: 40},
	}, rand.New(rand.NewSource(4)))

	for i := 0; i < 200; i++ {
		d := o.SurgicalTimeAdjustment(90, false)
		if d < 110 || d > 130 {
			t.Fatalf("expected extension of 20-40 on base 90, got %d", d)
		}
	}
}

func TestOutliers_FastCaseFloor(t *testing.T) {
	o := NewOutliers(OutlierProfile{
		FastCases: OutlierKind{Enabled: true, FrequencyPct: 100, MinMinutes: 50, MaxMinutes: 80},
	}, rand.New(rand.NewSource(5)))

	for i := 0; i < 200; i++ {
		if d := o.SurgicalTimeAdjustment(40, false); d != 15 {
			t.Fatalf("expected floor of 15, got %d", d)
		}
	}
}

func TestOutliers_NoAdjustmentWhenNothingFires(t *testing.T) {
	o := NewOutliers(OutlierProfile{}, rand.New(rand.NewSource(6)))
	if d := o.SurgicalTimeAdjustment(75, false); d != 75 {
		t.Fatalf("expected unchanged duration, got %d", d)
	}
}

func TestOutliers_CascadeDelayAtLeastOne(t *testing.T) {
	o := NewOutliers(OutlierProfile{
		LateStarts: OutlierKind{Enabled: true, FrequencyPct: 100, MinMinutes: 1, MaxMinutes: 1},
	}, rand.New(rand.NewSource(7)))

	for i := 0; i < 100; i++ {
		if d := o.CascadeDelay(); d < 1 {
			t.Fatalf("cascade delay %d below minimum of 1", d)
		}
	}
}

func TestScheduleBadDays_CountScalesWithMonths(t *testing.T) {
	o := NewOutliers(OutlierProfile{}, rand.New(rand.NewSource(8)))

	// 20 weekdays across two calendar months.
	var dates []time.Time
	for d := mustDate("2025-03-17"); !d.After(mustDate("2025-04-11")); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			dates = append(dates, d)
		}
	}

	bad := o.ScheduleBadDays(dates, 2)
	if len(bad) != 4 {
		t.Fatalf("expected 2 bad days x 2 months = 4, got %d", len(bad))
	}
	for k := range bad {
		found := false
		for _, d := range dates {
			if dateKey(d) == k {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("bad day %s is not an operating date", k)
		}
	}
}

func TestScheduleBadDays_ZeroBudget(t *testing.T) {
	o := NewOutliers(OutlierProfile{}, rand.New(rand.NewSource(9)))
	dates := []time.Time{mustDate("2025-03-03"), mustDate("2025-03-10")}
	if bad := o.ScheduleBadDays(dates, 0); len(bad) != 0 {
		t.Fatalf("expected no bad days, got %d", len(bad))
	}
}

func TestScheduleBadDays_CappedAtDateCount(t *testing.T) {
	o := NewOutliers(OutlierProfile{}, rand.New(rand.NewSource(10)))
	dates := []time.Time{mustDate("2025-03-03"), mustDate("2025-03-10")}
	if bad := o.ScheduleBadDays(dates, 3); len(bad) != 2 {
		t.Fatalf("expected bad days capped at 2 dates, got %d", len(bad))
	}
}
