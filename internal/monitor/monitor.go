// Package monitor runs the tracking loop that turns raw telemetry frames
// into stint records.
package monitor

import (
	"context"
	"log"
	"time"

	"github.com/pkg/errors"

	"github.com/pitwall/stint-tracker/internal/events"
	"github.com/pitwall/stint-tracker/internal/pit"
	"github.com/pitwall/stint-tracker/internal/stint"
	"github.com/pitwall/stint-tracker/internal/telemetry"
	"github.com/pitwall/stint-tracker/internal/tire"
)

// category tags every protocol line this process emits.
const category = "stint_tracker"

// ErrTelemetryLost means the source stayed unavailable past the grace
// period. The process should exit with the telemetry-loss code.
var ErrTelemetryLost = errors.New("telemetry lost beyond grace period")

// Store is the slice of persistence the monitor needs. Stint writes are
// fire-and-forget: a failure is reported and the loop keeps polling.
type Store interface {
	UpsertStint(rec *stint.Record) (int64, bool, error)
}

type Options struct {
	SessionID string
	// Drivers are the known names for this entry; frames for other
	// drivers are ignored.
	Drivers  []string
	Practice bool

	PollInterval   time.Duration
	PollTimeout    time.Duration
	TelemetryGrace time.Duration // <= 0 disables the telemetry-loss fatal

	WearResetThreshold float64

	// PracticeBaseline resumes an interrupted practice session from the
	// last stored stint's completion time. Zero means no prior stint.
	PracticeBaseline time.Time

	// Now overrides the wall clock in tests.
	Now func() time.Time
}

// Monitor drives the poll loop: detector, gate, tire capture, penalty
// check, clock, builder, store. It owns all mutable tracking state and is
// driven from a single goroutine.
type Monitor struct {
	opts     Options
	source   telemetry.Source
	store    Store
	reporter events.Reporter

	detector *pit.Detector
	gate     *pit.Gate
	analyzer *tire.Analyzer
	clock    *stint.Clock
	now      func() time.Time

	incoming        tire.State
	haveIncoming    bool
	garageVisit     bool
	penaltyBaseline int
	lossSince       time.Time
}

func New(source telemetry.Source, store Store, reporter events.Reporter, opts Options) *Monitor {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	mode := stint.Race
	if opts.Practice {
		mode = stint.Practice
	}
	clock := stint.NewClock(mode, now)
	if opts.Practice && !opts.PracticeBaseline.IsZero() {
		clock.SetBaseline(opts.PracticeBaseline)
		log.Printf("resumed practice baseline: %s", opts.PracticeBaseline.Format(time.RFC3339))
	}

	return &Monitor{
		opts:     opts,
		source:   source,
		store:    store,
		reporter: reporter,
		detector: pit.NewDetector(),
		gate:     pit.NewGate(opts.Practice),
		analyzer: tire.NewAnalyzer(opts.WearResetThreshold),
		clock:    clock,
		now:      now,
	}
}

// Run polls until ctx is done or telemetry is lost beyond the grace
// period. The tick in flight always finishes before Run returns, so a
// stint is emitted atomically or not at all.
func (m *Monitor) Run(ctx context.Context) error {
	log.Printf("tracking session %s (drivers %v, practice=%v)",
		m.opts.SessionID, m.opts.Drivers, m.opts.Practice)

	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	if err := m.tick(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("monitor stopped")
			return nil
		case <-ticker.C:
			if err := m.tick(ctx); err != nil {
				return err
			}
		}
	}
}

func (m *Monitor) tick(ctx context.Context) error {
	pollCtx := ctx
	if m.opts.PollTimeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, m.opts.PollTimeout)
		defer cancel()
	}

	snap, err := m.source.Poll(pollCtx)
	if err != nil {
		return m.noteLoss(err)
	}
	m.lossSince = time.Time{}

	if !snap.MatchesDriver(m.opts.Drivers) {
		return nil
	}

	if snap.InGarageStall {
		m.reporter.Info(category, "player_in_garage")
		// A garage stall visit rides the same raw pit codes as a pit
		// stop; remember it so the Leaving step on garage exit records
		// nothing. Cleared once the car is genuinely back on track.
		m.garageVisit = true
	} else if m.gate.State() == pit.WaitingForGarageReturn {
		// Practice tracking starts from the garage; nudge the driver.
		m.reporter.Info(category, "return_to_garage")
	}

	if m.gate.Observe(snap.InGarageStall) {
		log.Println("garage return complete, stint tracking armed")
		if m.opts.Practice && m.opts.PracticeBaseline.IsZero() {
			m.clock.SetBaseline(m.now())
		}
	}
	if !m.gate.Armed() {
		return nil
	}

	state, transitioned := m.detector.Observe(snap)

	if !snap.SessionActive {
		// Session ended mid-cycle: the detector has reset and any
		// half-observed pit stop is discarded without a stint.
		m.haveIncoming = false
		m.garageVisit = false
		return nil
	}

	if state == pit.NotInPit {
		m.penaltyBaseline = snap.Penalties
		if !snap.InGarageStall {
			m.garageVisit = false
		}
		if transitioned {
			log.Println("driver back on track")
			m.haveIncoming = false
		}
		return nil
	}

	if !transitioned {
		return nil
	}

	switch state {
	case pit.Entering:
		log.Printf("driver %s entering pits", snap.DriverName)
		m.captureIncoming(snap)
	case pit.Leaving:
		log.Printf("driver %s leaving pits", snap.DriverName)
		m.completeStint(snap)
	}
	return nil
}

// noteLoss tracks how long telemetry has been unavailable and escalates
// to a fatal error past the grace period.
func (m *Monitor) noteLoss(cause error) error {
	now := m.now()
	if m.lossSince.IsZero() {
		m.lossSince = now
		log.Printf("telemetry unavailable: %v", cause)
		return nil
	}
	if m.opts.TelemetryGrace > 0 && now.Sub(m.lossSince) >= m.opts.TelemetryGrace {
		m.reporter.Error(category, "telemetry lost for "+now.Sub(m.lossSince).Round(time.Second).String())
		return errors.Wrapf(ErrTelemetryLost, "unavailable since %s", m.lossSince.Format(time.RFC3339))
	}
	return nil
}

func (m *Monitor) captureIncoming(snap *telemetry.Snapshot) {
	state, warnings := tire.Extract(snap)
	for _, w := range warnings {
		log.Printf("incoming tire state: %s", w)
	}
	m.incoming = state
	m.haveIncoming = true
}

func (m *Monitor) completeStint(snap *telemetry.Snapshot) {
	defer func() { m.haveIncoming = false }()

	if m.garageVisit {
		log.Println("garage exit, not a pit stop, skipping stint")
		return
	}

	if !m.haveIncoming {
		// Armed or started mid-cycle; without a pit-entry capture there
		// is nothing sound to record.
		log.Println("pit exit without captured entry state, skipping stint")
		return
	}

	if snap.Penalties < m.penaltyBaseline {
		// Penalty count dropped across the stop: a penalty was served,
		// this was not a real stint.
		m.reporter.Info(category, "penalty_served")
		log.Println("penalty served during stop, skipping stint")
		return
	}

	outgoing, warnings := tire.Extract(snap)
	for _, w := range warnings {
		log.Printf("outgoing tire state: %s", w)
	}

	changes := m.analyzer.Analyze(m.incoming, outgoing)

	pitTime, ok := m.clock.AtCompletion(snap)
	if !ok {
		m.reporter.Info(category, "timing_inconsistency")
		log.Printf("session clock inconsistent, recording pit time as %s", stint.FormatHMS(pitTime))
	}

	completedAt := m.now()
	rec, err := stint.Build(m.opts.SessionID, snap.DriverName, m.incoming, outgoing, changes, pitTime, completedAt)
	if err != nil {
		m.reporter.Error(category, "stint build failed: "+err.Error())
		return
	}

	id, inserted, err := m.store.UpsertStint(rec)
	if err != nil {
		// Stint loss is preferred over stalling live monitoring; no retry.
		m.reporter.Error(category, "stint persist failed: "+err.Error())
		return
	}

	if inserted {
		log.Printf("created stint %d for %s (pit time %s)", id, rec.Driver, stint.FormatHMS(pitTime))
		m.reporter.Event(category, "stint_created")
	} else {
		log.Printf("stint %d already recorded by another tracker", id)
	}

	if m.opts.Practice {
		m.clock.SetBaseline(completedAt)
	}
}
