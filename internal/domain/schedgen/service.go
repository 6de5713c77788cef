package schedgen

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/orpulse/orpulse/internal/domain/refdata"
)

// Progress phases reported to the sink, coarse and purely observational.
const (
	PhaseLoad     = "load"
	PhasePlan     = "plan"
	PhaseGenerate = "generate"
	PhaseInsert   = "insert"
	PhaseFinalize = "finalize"
)

// Progress is one coarse progress report.
type Progress struct {
	Phase   string `json:"phase"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// ProgressFunc receives progress reports; it never influences control flow.
type ProgressFunc func(Progress)

// Request describes one generation run.
type Request struct {
	FacilityID uuid.UUID     `json:"facility_id"`
	From       time.Time     `json:"from"`
	To         time.Time     `json:"to"`
	Seed       int64         `json:"seed"`
	Surgeons   []SurgeonSpec `json:"surgeons"`

	Progress ProgressFunc `json:"-"`
}

// Details breaks down the generated dataset for the run result.
type Details struct {
	Milestones  int `json:"milestones"`
	Staff       int `json:"staff"`
	Implants    int `json:"implants"`
	Cancelled   int `json:"cancelled"`
	Delayed     int `json:"delayed"`
	Flagged     int `json:"flagged"`
	Unvalidated int `json:"unvalidated"`
}

// Result is the outcome of a run. On a persistence failure, already
// committed batches are not rolled back; Error reports the partial state.
type Result struct {
	Success        bool    `json:"success"`
	CasesGenerated int     `json:"cases_generated"`
	Error          string  `json:"error,omitempty"`
	Details        Details `json:"details"`
}

// Service orchestrates a full generation run: load, plan, generate,
// perturb, purge, and commit. Generation is single-threaded and
// deterministic up to the seeded rng.
type Service struct {
	ref    refdata.Reader
	writer BulkWriter
	engine RuleEngine
	log    zerolog.Logger

	// now is injectable so tests can pin the future-date boundary.
	now func() time.Time
}

func NewService(ref refdata.Reader, writer BulkWriter, engine RuleEngine, log zerolog.Logger) *Service {
	return &Service{
		ref:    ref,
		writer: writer,
		engine: engine,
		log:    log,
		now:    time.Now,
	}
}

func report(fn ProgressFunc, phase string, current, total int, msg string) {
	if fn != nil {
		fn(Progress{Phase: phase, Current: current, Total: total, Message: msg})
	}
}

// Generate runs the engine end to end and commits the dataset.
func (s *Service) Generate(ctx context.Context, req Request) Result {
	if req.To.Before(req.From) {
		return failure("date range is inverted")
	}
	if len(req.Surgeons) == 0 {
		return failure("no surgeon specifications provided")
	}

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	report(req.Progress, PhaseLoad, 0, 1, "loading reference data")
	ref, err := LoadReference(ctx, s.ref, req.FacilityID)
	if err != nil {
		return failure(fmt.Sprintf("configuration error: %v", err))
	}
	report(req.Progress, PhaseLoad, 1, 1, "reference data loaded")

	// Resolution failures skip the surgeon and continue with the rest.
	var profiles []*Profile
	for _, spec := range req.Surgeons {
		p, err := ResolveProfile(spec, ref.Procedures, ref.Companies)
		if err != nil {
			s.log.Warn().Err(err).Str("surgeon", spec.Name).Msg("skipping surgeon")
			continue
		}
		profiles = append(profiles, p)
	}
	if len(profiles) == 0 {
		return failure("no surgeon profiles resolved")
	}

	from := dateIn(req.From, ref.Location)
	to := dateIn(req.To, ref.Location)
	cal := NewCalendar(from, to)

	report(req.Progress, PhasePlan, 0, 1, "planning staff roster")
	roster := PlanRoster(profiles, cal, ref.Pools)
	report(req.Progress, PhasePlan, 1, 1, "roster planned")

	ds := &Dataset{}
	gen := newTimelineGenerator(rng, ref, cal, roster, s.now())
	for i, p := range profiles {
		report(req.Progress, PhaseGenerate, i, len(profiles), "generating "+p.Name)
		gen.generateSurgeon(p, ds)
	}
	report(req.Progress, PhaseGenerate, len(profiles), len(profiles), "timelines generated")

	stats := NewPerturber(rng, ref, s.engine).Apply(ds)

	if err := s.persist(ctx, req, ref, ds); err != nil {
		return failure(err.Error())
	}

	report(req.Progress, PhaseFinalize, 1, 1, "done")
	s.log.Info().
		Int("cases", len(ds.Cases)).
		Int("milestones", len(ds.Milestones)).
		Int("cancelled", stats.Cancelled).
		Int64("seed", seed).
		Msg("generation run complete")

	return Result{
		Success:        true,
		CasesGenerated: len(ds.Cases),
		Details: Details{
			Milestones:  len(ds.Milestones),
			Staff:       len(ds.Staff),
			Implants:    len(ds.Implants),
			Cancelled:   stats.Cancelled,
			Delayed:     stats.Delayed,
			Flagged:     stats.Flagged,
			Unvalidated: stats.Unvalidated,
		},
	}
}

// persist purges the previous dataset and commits the new one. Triggers are
// suppressed for the whole insert phase and restored on every exit path.
func (s *Service) persist(ctx context.Context, req Request, ref *Reference, ds *Dataset) error {
	report(req.Progress, PhaseInsert, 0, 1, "purging previous dataset")
	deleted, err := s.writer.Purge(ctx, req.FacilityID)
	if err != nil {
		return fmt.Errorf("purge: %w", err)
	}
	s.log.Info().Int("cases_deleted", deleted).Msg("previous dataset purged")

	if err := s.insertAll(ctx, req, ds); err != nil {
		return err
	}

	// Best effort; a failed recalculation never fails the run.
	if err := s.writer.RefreshStats(ctx, req.FacilityID); err != nil {
		s.log.Warn().Err(err).Msg("refresh facility stats")
	}
	return nil
}

// insertAll brackets the batched insert phase with trigger suppression;
// the deferred restore runs on every exit path, error included.
func (s *Service) insertAll(ctx context.Context, req Request, ds *Dataset) error {
	if err := s.writer.SuppressTriggers(ctx); err != nil {
		return fmt.Errorf("suppress triggers: %w", err)
	}
	defer func() {
		if rerr := s.writer.RestoreTriggers(ctx); rerr != nil {
			s.log.Error().Err(rerr).Msg("restore triggers")
		}
	}()

	steps := []struct {
		label string
		run   func() error
	}{
		{"cases", func() error { return s.writer.InsertCases(ctx, ds.Cases) }},
		{"milestones", func() error { return s.writer.InsertMilestones(ctx, ds.Milestones) }},
		{"staff", func() error { return s.writer.InsertStaff(ctx, ds.Staff) }},
		{"implants", func() error { return s.writer.InsertImplants(ctx, ds.Implants) }},
		{"delays", func() error { return s.writer.InsertDelays(ctx, ds.Delays) }},
		{"complexities", func() error { return s.writer.InsertComplexities(ctx, ds.Complexities) }},
		{"devices", func() error { return s.writer.InsertDevices(ctx, ds.Devices) }},
		{"flags", func() error { return s.writer.InsertFlags(ctx, ds.Flags) }},
		{"flip links", func() error { return s.writer.LinkFlipChains(ctx, ds.Links) }},
	}
	for i, step := range steps {
		report(req.Progress, PhaseInsert, i, len(steps), "inserting "+step.label)
		if err := step.run(); err != nil {
			return fmt.Errorf("insert aborted at %s; committed batches left in place: %w", step.label, err)
		}
	}
	report(req.Progress, PhaseInsert, len(steps), len(steps), "insert complete")
	return nil
}

// Purge removes a facility's generated case data without generating
// replacements.
func (s *Service) Purge(ctx context.Context, facilityID uuid.UUID) (int, error) {
	return s.writer.Purge(ctx, facilityID)
}

func failure(msg string) Result {
	return Result{Success: false, Error: msg}
}

func dateIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
