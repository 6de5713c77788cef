package schedgen

import (
	"time"

	"github.com/google/uuid"

	"github.com/orpulse/orpulse/internal/domain/refdata"
)

// Shared fixture builders for the engine tests. Everything is UTC so date
// math in assertions stays simple.

var testFacilityID = uuid.MustParse("11111111-1111-1111-1111-111111111111")

func testStaff(role string, n int) []*refdata.StaffMember {
	out := make([]*refdata.StaffMember, n)
	for i := range out {
		out[i] = &refdata.StaffMember{ID: uuid.New(), Name: role, Role: role, Active: true}
	}
	return out
}

func testProcedures() []*refdata.Procedure {
	return []*refdata.Procedure{
		{ID: uuid.New(), FacilityID: testFacilityID, Name: "Total Knee Arthroplasty", Specialty: "joint", DefaultDuration: 130, IncludeAnesthesia: true},
		{ID: uuid.New(), FacilityID: testFacilityID, Name: "Total Hip Arthroplasty", Specialty: "joint", DefaultDuration: 135, IncludeAnesthesia: true},
		{ID: uuid.New(), FacilityID: testFacilityID, Name: "Lumbar Fusion", Specialty: "spine", DefaultDuration: 190, IncludeAnesthesia: true},
		{ID: uuid.New(), FacilityID: testFacilityID, Name: "Carpal Tunnel Release", Specialty: "hand_wrist", DefaultDuration: 65, IncludeAnesthesia: false},
	}
}

func testMilestones() map[string]*refdata.Milestone {
	ms := make(map[string]*refdata.Milestone, len(canonicalOrder))
	for i, name := range canonicalOrder {
		ms[name] = &refdata.Milestone{ID: uuid.New(), FacilityID: testFacilityID, Name: name, DisplayOrder: i + 1}
	}
	return ms
}

func newTestReference() *Reference {
	return &Reference{
		Facility: &refdata.Facility{
			ID: testFacilityID, Name: "Test Surgery Center",
			Timezone: "UTC", CasePrefix: "TSC",
		},
		Location:   time.UTC,
		Procedures: testProcedures(),
		Milestones: testMilestones(),
		Payers: []*refdata.Payer{
			{ID: uuid.New(), Name: "Medicare"},
			{ID: uuid.New(), Name: "Blue Cross"},
		},
		Statuses: map[string]uuid.UUID{
			refdata.StatusScheduled: uuid.New(),
			refdata.StatusCompleted: uuid.New(),
			refdata.StatusCancelled: uuid.New(),
		},
		CancelReasons: []*refdata.CancellationReason{
			{ID: uuid.New(), Reason: "Patient illness"},
		},
		DelayTypes: []*refdata.DelayType{
			{ID: uuid.New(), Name: "Equipment"},
		},
		Complexities: map[string]uuid.UUID{
			"Standard": uuid.New(),
			"Complex":  uuid.New(),
		},
		Companies: []*refdata.ImplantCompany{
			{ID: uuid.New(), Name: "Stryker"},
			{ID: uuid.New(), Name: "Zimmer Biomet"},
		},
		Pools: StaffPools{
			Nurses:            testStaff(refdata.RoleNurse, 6),
			Techs:             testStaff(refdata.RoleSurgicalTech, 10),
			Anesthesiologists: testStaff(refdata.RoleAnesthesiologist, 3),
			CRNAs:             testStaff(refdata.RoleCRNA, 3),
			PAs:               testStaff(refdata.RolePhysicianAssistant, 2),
		},
	}
}

// jointProfile is a single-room joint surgeon operating Mondays and
// Wednesdays, no outliers configured.
func jointProfile(ref *Reference) *Profile {
	var procs []*refdata.Procedure
	for _, p := range ref.Procedures {
		if p.Specialty == "joint" {
			procs = append(procs, p)
		}
	}
	return &Profile{
		SurgeonID: uuid.New(),
		Name:      "Dr. Chen",
		Speed:     SpeedAverage,
		Specialty: SpecialtyJoint,
		OperatingDays: map[time.Weekday]bool{
			time.Monday:    true,
			time.Wednesday: true,
		},
		RoomsByDay: map[time.Weekday][]string{
			time.Monday:    {"OR-1"},
			time.Wednesday: {"OR-1"},
		},
		Vendor:      ref.Companies[0],
		Procedures:  procs,
		Overrides:   map[uuid.UUID]int{},
		CasesPerDay: Range{Min: 3, Max: 5},
	}
}

// flipProfile runs two rooms on Tuesdays.
func flipProfile(ref *Reference) *Profile {
	p := jointProfile(ref)
	p.Name = "Dr. Okafor"
	p.SurgeonID = uuid.New()
	p.OperatingDays = map[time.Weekday]bool{time.Tuesday: true}
	p.RoomsByDay = map[time.Weekday][]string{time.Tuesday: {"OR-2", "OR-3"}}
	p.Speed = SpeedFast
	p.CasesPerDay = Range{Min: 4, Max: 6}
	return p
}

func spineProfile(ref *Reference) *Profile {
	var procs []*refdata.Procedure
	for _, p := range ref.Procedures {
		if p.Specialty == "spine" {
			procs = append(procs, p)
		}
	}
	return &Profile{
		SurgeonID:     uuid.New(),
		Name:          "Dr. Ruiz",
		Speed:         SpeedSlow,
		Specialty:     SpecialtySpine,
		OperatingDays: map[time.Weekday]bool{time.Thursday: true},
		RoomsByDay:    map[time.Weekday][]string{time.Thursday: {"OR-4"}},
		Procedures:    procs,
		Overrides:     map[uuid.UUID]int{},
		CasesPerDay:   Range{Min: 2, Max: 3},
	}
}

func mustDate(s string) time.Time {
	t, err := time.Parse(dateKeyLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}
