package phaseclock

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"tomatick/internal/core/model"
)

// Options contains runtime tuning for PhaseClock.
type Options struct {
	// DriverInterval is the cadence of the presentation loop that emits ticks.
	DriverInterval time.Duration
	// CorrectorInterval is the cadence of the re-sync pass that overwrites the
	// cached remaining time when the presentation loop has drifted.
	CorrectorInterval time.Duration
	// DriftThreshold is the disagreement above which the corrector overwrites.
	DriftThreshold time.Duration
}

const (
	defaultDriverInterval    = 100 * time.Millisecond
	defaultCorrectorInterval = time.Second
	defaultDriftThreshold    = 100 * time.Millisecond
)

// Snapshot is an immutable copy of the clock state returned to callers.
type Snapshot struct {
	Phase                model.Phase
	Remaining            time.Duration
	Total                time.Duration
	Running              bool
	CompletedFocusCycles int
	Config               model.Config
}

// PhaseClock is the single source of phase and countdown truth. Remaining time
// is always re-derived from a monotonic anchor captured at Start, never
// accumulated tick by tick, so callbacks skipped while the process was starved
// or suspended are accounted for on the next pass.
type PhaseClock struct {
	mu      sync.Mutex
	clk     clock.Clock
	options Options

	config    model.Config
	phase     model.Phase
	remaining time.Duration
	total     time.Duration
	running   bool
	cycles    int

	anchor          time.Time
	anchorRemaining time.Duration

	events []chan Event
	stopCh chan struct{}
	closed bool
}

// New creates a stopped PhaseClock in the Focus phase. A nil clk selects the
// system clock; tests inject clock.NewMock(). An invalid config falls back to
// the defaults so construction always succeeds.
func New(config model.Config, clk clock.Clock, options Options) *PhaseClock {
	if clk == nil {
		clk = clock.New()
	}
	if options.DriverInterval <= 0 {
		options.DriverInterval = defaultDriverInterval
	}
	if options.CorrectorInterval <= 0 {
		options.CorrectorInterval = defaultCorrectorInterval
	}
	if options.DriftThreshold <= 0 {
		options.DriftThreshold = defaultDriftThreshold
	}
	if config.Validate() != nil {
		config = model.Default()
	}

	timer := &PhaseClock{
		clk:     clk,
		options: options,
		config:  config,
		phase:   model.PhaseFocus,
	}
	timer.total = config.FocusDuration
	timer.remaining = timer.total
	return timer
}

// Restore rehydrates state from a persisted snapshot. Every field passes the
// same bounds as Configure; anything out of range degrades to a sane value.
// The clock always comes back stopped, whatever the snapshot claims: a running
// countdown is never resumed silently across a restart.
func (timer *PhaseClock) Restore(snapshot Snapshot) {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	if timer.running {
		return
	}

	if snapshot.Config.Validate() == nil {
		timer.config = snapshot.Config
	}
	phase := snapshot.Phase
	if !phase.Valid() {
		phase = model.PhaseFocus
	}
	total := snapshot.Total
	if !model.ValidPhaseDuration(total) {
		total = timer.config.PhaseDuration(phase)
	}
	remaining := snapshot.Remaining
	if remaining < 0 {
		remaining = 0
	}
	if remaining > total {
		remaining = total
	}
	cycles := snapshot.CompletedFocusCycles
	if cycles < 0 {
		cycles = 0
	}

	timer.phase = phase
	timer.total = total
	timer.remaining = remaining
	timer.cycles = cycles
	timer.running = false
	timer.anchor = time.Time{}
	timer.anchorRemaining = 0
}

// Subscribe registers a new observer channel. Events are delivered with
// non-blocking sends; a slow subscriber drops events rather than stalling the
// clock.
func (timer *PhaseClock) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	timer.mu.Lock()
	timer.events = append(timer.events, ch)
	timer.mu.Unlock()
	return ch
}

// Configure validates and merges a partial configuration update. A single
// invalid field rejects the whole call with a *model.ConfigurationError and
// leaves state untouched. When the clock is stopped and the patch provides the
// active phase's duration, the current countdown is resized to it.
func (timer *PhaseClock) Configure(patch model.Patch) error {
	if err := patch.Validate(); err != nil {
		return err
	}

	timer.mu.Lock()
	timer.config = patch.Apply(timer.config)
	if !timer.running && patchProvidesPhase(patch, timer.phase) {
		timer.total = timer.config.PhaseDuration(timer.phase)
		timer.remaining = timer.total
	}
	timer.emitLocked(Event{
		Type:   EventConfigured,
		Phase:  timer.phase,
		Config: timer.config,
		At:     timer.clk.Now(),
	})
	timer.mu.Unlock()
	return nil
}

// Start begins counting down. A no-op when already running: a double click on
// start must not restart the phase or capture a second anchor.
func (timer *PhaseClock) Start() {
	timer.mu.Lock()
	if timer.running || timer.closed {
		timer.mu.Unlock()
		return
	}
	timer.running = true
	timer.anchor = timer.clk.Now()
	timer.anchorRemaining = timer.remaining
	stop := make(chan struct{})
	timer.stopCh = stop
	timer.emitLocked(Event{
		Type:      EventStart,
		Phase:     timer.phase,
		Total:     timer.total,
		Remaining: timer.remaining,
		At:        timer.anchor,
	})
	timer.mu.Unlock()

	go timer.run(stop)
}

// Pause freezes the countdown at its reconciled remaining time. A no-op when
// stopped.
func (timer *PhaseClock) Pause() {
	timer.mu.Lock()
	if !timer.running {
		timer.mu.Unlock()
		return
	}
	now := timer.clk.Now()
	timer.reconcileLocked(now)
	timer.stopLoopLocked()
	timer.emitLocked(Event{
		Type:      EventPause,
		Phase:     timer.phase,
		Remaining: timer.remaining,
		At:        now,
	})
	timer.mu.Unlock()
}

// Reset stops the clock and returns to a full Focus phase with zero completed
// cycles.
func (timer *PhaseClock) Reset() {
	timer.mu.Lock()
	if timer.running {
		timer.stopLoopLocked()
	}
	timer.phase = model.PhaseFocus
	timer.total = timer.config.FocusDuration
	timer.remaining = timer.total
	timer.cycles = 0
	timer.emitLocked(Event{
		Type:      EventReset,
		Phase:     timer.phase,
		Total:     timer.total,
		Remaining: timer.remaining,
		At:        timer.clk.Now(),
	})
	timer.mu.Unlock()
}

// Skip forces the current phase to complete immediately, running or not,
// through the same transition logic as natural completion. A running clock
// keeps running into the next phase.
func (timer *PhaseClock) Skip() {
	timer.mu.Lock()
	timer.transitionLocked(timer.clk.Now())
	timer.mu.Unlock()
}

// Resync forces an immediate corrector pass. The composition root wires this
// to foreground/visibility hooks so a suspended process catches up the instant
// it resumes, rather than at the next scheduled tick.
func (timer *PhaseClock) Resync() {
	timer.correctorTick(timer.clk.Now())
}

// State returns a defensive copy of the clock state.
func (timer *PhaseClock) State() Snapshot {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	return Snapshot{
		Phase:                timer.phase,
		Remaining:            timer.remaining,
		Total:                timer.total,
		Running:              timer.running,
		CompletedFocusCycles: timer.cycles,
		Config:               timer.config,
	}
}

// Close stops the countdown loop and closes all subscriber channels.
func (timer *PhaseClock) Close() {
	timer.mu.Lock()
	if timer.closed {
		timer.mu.Unlock()
		return
	}
	timer.closed = true
	if timer.running {
		timer.stopLoopLocked()
	}
	subscribers := timer.events
	timer.events = nil
	timer.mu.Unlock()

	for _, ch := range subscribers {
		close(ch)
	}
}

func (timer *PhaseClock) run(stop chan struct{}) {
	driver := timer.clk.Ticker(timer.options.DriverInterval)
	corrector := timer.clk.Ticker(timer.options.CorrectorInterval)
	defer driver.Stop()
	defer corrector.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-driver.C:
			timer.driverTick(now)
		case now := <-corrector.C:
			timer.correctorTick(now)
		}
	}
}

// driverTick is the high-frequency presentation pass: re-derive remaining from
// the anchor and emit a tick. Tick rate is bounded by DriverInterval.
func (timer *PhaseClock) driverTick(now time.Time) {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	if !timer.running {
		return
	}
	timer.reconcileLocked(now)
	if timer.remaining == 0 {
		timer.transitionLocked(now)
		return
	}
	timer.emitLocked(Event{
		Type:      EventTick,
		Phase:     timer.phase,
		Remaining: timer.remaining,
		Total:     timer.total,
		Progress:  timer.progressLocked(),
		At:        now,
	})
}

// correctorTick is the ground-truth pass: it independently re-derives the
// remaining time and overwrites the cached value once the presentation loop
// has drifted past the threshold.
func (timer *PhaseClock) correctorTick(now time.Time) {
	timer.mu.Lock()
	defer timer.mu.Unlock()
	if !timer.running {
		return
	}
	derived := timer.deriveRemainingLocked(now)
	if derived > timer.remaining {
		// A backward wall-clock jump can only ever lengthen the countdown.
		// The last observed value wins; remaining never increases.
		derived = timer.remaining
	}
	if timer.remaining-derived > timer.options.DriftThreshold || derived == 0 {
		timer.remaining = derived
	}
	if timer.remaining == 0 {
		timer.transitionLocked(now)
	}
}

// reconcileLocked updates remaining from the anchor, discarding any value that
// would make the countdown grow within a phase.
func (timer *PhaseClock) reconcileLocked(now time.Time) {
	derived := timer.deriveRemainingLocked(now)
	if derived > timer.remaining {
		return
	}
	timer.remaining = derived
}

func (timer *PhaseClock) deriveRemainingLocked(now time.Time) time.Duration {
	elapsed := now.Sub(timer.anchor)
	if elapsed < 0 {
		elapsed = 0
	}
	derived := timer.anchorRemaining - elapsed
	if derived < 0 {
		derived = 0
	}
	if derived > timer.total {
		derived = timer.total
	}
	return derived
}

// transitionLocked completes the current phase and enters the next one. Runs
// for natural completion and for Skip. Emits exactly one complete and one
// phase_change per transition, complete first.
func (timer *PhaseClock) transitionLocked(now time.Time) {
	from := timer.phase
	next := model.PhaseFocus
	if from == model.PhaseFocus {
		timer.cycles++
		if timer.cycles%timer.config.CyclesUntilLongBreak == 0 {
			next = model.PhaseLongBreak
		} else {
			next = model.PhaseShortBreak
		}
	}

	timer.phase = next
	timer.total = timer.config.PhaseDuration(next)
	timer.remaining = timer.total
	if timer.running {
		timer.anchor = now
		timer.anchorRemaining = timer.total
	}

	timer.emitLocked(Event{
		Type:                 EventComplete,
		Completed:            from,
		Phase:                next,
		CompletedFocusCycles: timer.cycles,
		At:                   now,
	})
	timer.emitLocked(Event{
		Type:                 EventPhaseChange,
		From:                 from,
		To:                   next,
		Phase:                next,
		Remaining:            timer.remaining,
		Total:                timer.total,
		CompletedFocusCycles: timer.cycles,
		At:                   now,
	})
}

func (timer *PhaseClock) stopLoopLocked() {
	timer.running = false
	timer.anchor = time.Time{}
	timer.anchorRemaining = 0
	if timer.stopCh != nil {
		close(timer.stopCh)
		timer.stopCh = nil
	}
}

func (timer *PhaseClock) progressLocked() float64 {
	if timer.total <= 0 {
		return 1
	}
	progress := float64(timer.total-timer.remaining) / float64(timer.total)
	if progress < 0 {
		return 0
	}
	if progress > 1 {
		return 1
	}
	return progress
}

func (timer *PhaseClock) emitLocked(event Event) {
	for _, ch := range timer.events {
		select {
		case ch <- event:
		default:
		}
	}
}

func patchProvidesPhase(patch model.Patch, phase model.Phase) bool {
	switch phase {
	case model.PhaseShortBreak:
		return patch.ShortBreakDuration != nil
	case model.PhaseLongBreak:
		return patch.LongBreakDuration != nil
	default:
		return patch.FocusDuration != nil
	}
}
