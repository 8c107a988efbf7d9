package phaseclock

import (
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"tomatick/internal/core/model"
)

func testConfig() model.Config {
	return model.Config{
		FocusDuration:        1000 * time.Millisecond,
		ShortBreakDuration:   1000 * time.Millisecond,
		LongBreakDuration:    2000 * time.Millisecond,
		CyclesUntilLongBreak: 2,
	}
}

func newTestClock(t *testing.T, config model.Config, options Options) (*PhaseClock, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	timer := New(config, mock, options)
	t.Cleanup(timer.Close)
	return timer, mock
}

// quietOptions disables both loops so tests drive time entirely through
// mock.Add + Resync without any ticker traffic.
func quietOptions() Options {
	return Options{DriverInterval: time.Hour, CorrectorInterval: time.Hour}
}

func drainEvents(ch <-chan Event) []Event {
	var events []Event
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, event)
		default:
			return events
		}
	}
}

func collectUntil(t *testing.T, ch <-chan Event, want EventType) []Event {
	t.Helper()
	var events []Event
	deadline := time.After(2 * time.Second)
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				t.Fatalf("event channel closed while waiting for %s", want)
			}
			events = append(events, event)
			if event.Type == want {
				return events
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event (got %d events)", want, len(events))
		}
	}
}

func countType(events []Event, eventType EventType) int {
	count := 0
	for _, event := range events {
		if event.Type == eventType {
			count++
		}
	}
	return count
}

func waitFor(t *testing.T, description string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", description)
}

func checkInvariant(t *testing.T, timer *PhaseClock, context string) {
	t.Helper()
	state := timer.State()
	if state.Remaining < 0 || state.Remaining > state.Total {
		t.Fatalf("%s: remaining %v outside [0, %v]", context, state.Remaining, state.Total)
	}
}

func TestNewStartsStoppedInFocus(t *testing.T) {
	timer, _ := newTestClock(t, testConfig(), quietOptions())

	state := timer.State()
	if state.Phase != model.PhaseFocus {
		t.Errorf("Phase = %v, want focus", state.Phase)
	}
	if state.Running {
		t.Error("new clock should not be running")
	}
	if state.Remaining != 1000*time.Millisecond || state.Total != 1000*time.Millisecond {
		t.Errorf("Remaining/Total = %v/%v, want 1s/1s", state.Remaining, state.Total)
	}
	if state.CompletedFocusCycles != 0 {
		t.Errorf("CompletedFocusCycles = %d, want 0", state.CompletedFocusCycles)
	}
}

func TestNewFallsBackToDefaultsOnInvalidConfig(t *testing.T) {
	timer, _ := newTestClock(t, model.Config{}, quietOptions())

	state := timer.State()
	if state.Config != model.Default() {
		t.Errorf("Config = %+v, want defaults", state.Config)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	timer, _ := newTestClock(t, testConfig(), quietOptions())
	events := timer.Subscribe(8)

	timer.Start()
	timer.Start()
	timer.Start()

	if !timer.State().Running {
		t.Fatal("clock should be running")
	}
	if starts := countType(drainEvents(events), EventStart); starts != 1 {
		t.Errorf("start events = %d, want exactly 1", starts)
	}
}

func TestPauseFreezesReconciledRemaining(t *testing.T) {
	timer, mock := newTestClock(t, testConfig(), quietOptions())
	events := timer.Subscribe(8)

	timer.Start()
	mock.Add(400 * time.Millisecond)
	timer.Pause()

	state := timer.State()
	if state.Running {
		t.Error("clock should be stopped after Pause")
	}
	if state.Remaining != 600*time.Millisecond {
		t.Errorf("Remaining = %v, want 600ms", state.Remaining)
	}

	pauses := 0
	for _, event := range drainEvents(events) {
		if event.Type == EventPause {
			pauses++
			if event.Remaining != 600*time.Millisecond {
				t.Errorf("pause event Remaining = %v, want 600ms", event.Remaining)
			}
		}
	}
	if pauses != 1 {
		t.Errorf("pause events = %d, want exactly 1", pauses)
	}
}

func TestPauseWhenStoppedIsNoOp(t *testing.T) {
	timer, _ := newTestClock(t, testConfig(), quietOptions())
	events := timer.Subscribe(8)

	timer.Pause()

	if len(drainEvents(events)) != 0 {
		t.Error("Pause on a stopped clock should emit nothing")
	}
}

func TestResumeContinuesFromFrozenRemaining(t *testing.T) {
	timer, mock := newTestClock(t, testConfig(), quietOptions())

	timer.Start()
	mock.Add(400 * time.Millisecond)
	timer.Pause()

	// Paused time must not count.
	mock.Add(30 * time.Second)

	timer.Start()
	if got := timer.State().Remaining; got != 600*time.Millisecond {
		t.Fatalf("Remaining after resume = %v, want 600ms", got)
	}

	mock.Add(300 * time.Millisecond)
	timer.Resync()
	if got := timer.State().Remaining; got != 300*time.Millisecond {
		t.Errorf("Remaining = %v, want 300ms", got)
	}
}

func TestNaturalCompletionChain(t *testing.T) {
	timer, mock := newTestClock(t, testConfig(), Options{})
	events := timer.Subscribe(64)

	timer.Start()
	mock.Add(1000 * time.Millisecond)
	timer.Resync()

	collected := collectUntil(t, events, EventPhaseChange)
	if completes := countType(collected, EventComplete); completes != 1 {
		t.Fatalf("complete events = %d, want exactly 1", completes)
	}
	if changes := countType(collected, EventPhaseChange); changes != 1 {
		t.Fatalf("phase_change events = %d, want exactly 1", changes)
	}

	completeIdx, changeIdx := -1, -1
	for i, event := range collected {
		switch event.Type {
		case EventComplete:
			completeIdx = i
			if event.Completed != model.PhaseFocus {
				t.Errorf("complete Completed = %v, want focus", event.Completed)
			}
			if event.CompletedFocusCycles != 1 {
				t.Errorf("complete CompletedFocusCycles = %d, want 1", event.CompletedFocusCycles)
			}
		case EventPhaseChange:
			changeIdx = i
			if event.From != model.PhaseFocus || event.To != model.PhaseShortBreak {
				t.Errorf("phase_change %v -> %v, want focus -> short_break", event.From, event.To)
			}
		}
	}
	if completeIdx > changeIdx {
		t.Error("complete should be emitted before phase_change")
	}

	state := timer.State()
	if state.Phase != model.PhaseShortBreak {
		t.Errorf("Phase = %v, want short_break", state.Phase)
	}
	if state.Remaining != 1000*time.Millisecond {
		t.Errorf("Remaining = %v, want full break duration 1s", state.Remaining)
	}
	if !state.Running {
		t.Error("clock should keep running into the next phase")
	}
}

func TestLongBreakCadence(t *testing.T) {
	timer, _ := newTestClock(t, testConfig(), quietOptions())

	wantSequence := []model.Phase{
		model.PhaseShortBreak, // after focus #1 (1 % 2 != 0)
		model.PhaseFocus,
		model.PhaseLongBreak, // after focus #2 (2 % 2 == 0)
		model.PhaseFocus,
		model.PhaseShortBreak, // after focus #3
	}
	for i, want := range wantSequence {
		timer.Skip()
		if got := timer.State().Phase; got != want {
			t.Fatalf("transition %d: Phase = %v, want %v", i+1, got, want)
		}
		checkInvariant(t, timer, "long break cadence")
	}
	if cycles := timer.State().CompletedFocusCycles; cycles != 3 {
		t.Errorf("CompletedFocusCycles = %d, want 3", cycles)
	}
}

func TestNaturalLongBreakAfterConfiguredCycles(t *testing.T) {
	timer, mock := newTestClock(t, testConfig(), Options{})

	timer.Start()

	// Focus #1 -> short break -> focus #2 -> long break.
	mock.Add(1000 * time.Millisecond)
	timer.Resync()
	waitFor(t, "first break", func() bool { return timer.State().Phase == model.PhaseShortBreak })

	mock.Add(1000 * time.Millisecond)
	timer.Resync()
	waitFor(t, "second focus", func() bool { return timer.State().Phase == model.PhaseFocus })

	mock.Add(1000 * time.Millisecond)
	timer.Resync()
	waitFor(t, "long break", func() bool { return timer.State().Phase == model.PhaseLongBreak })

	state := timer.State()
	if state.CompletedFocusCycles != 2 {
		t.Errorf("CompletedFocusCycles = %d, want 2", state.CompletedFocusCycles)
	}
	if state.Remaining != 2000*time.Millisecond {
		t.Errorf("Remaining = %v, want full long break 2s", state.Remaining)
	}
}

func TestSkipWhilePausedStaysPaused(t *testing.T) {
	timer, _ := newTestClock(t, testConfig(), quietOptions())

	timer.Skip()

	state := timer.State()
	if state.Running {
		t.Error("Skip on a stopped clock must not start it")
	}
	if state.Phase != model.PhaseShortBreak {
		t.Errorf("Phase = %v, want short_break", state.Phase)
	}
	if state.Remaining != state.Total {
		t.Errorf("Remaining = %v, want full duration %v", state.Remaining, state.Total)
	}
	if state.CompletedFocusCycles != 1 {
		t.Errorf("CompletedFocusCycles = %d, want 1", state.CompletedFocusCycles)
	}
}

func TestSkipWhileRunningKeepsRunning(t *testing.T) {
	timer, mock := newTestClock(t, testConfig(), quietOptions())

	timer.Start()
	mock.Add(300 * time.Millisecond)
	timer.Skip()

	state := timer.State()
	if !state.Running {
		t.Error("Skip on a running clock must keep it running")
	}
	if state.Remaining != state.Total {
		t.Errorf("Remaining = %v, want full duration of new phase", state.Remaining)
	}

	// The new phase counts from the moment of the skip.
	mock.Add(400 * time.Millisecond)
	timer.Resync()
	if got := timer.State().Remaining; got != state.Total-400*time.Millisecond {
		t.Errorf("Remaining = %v, want %v", got, state.Total-400*time.Millisecond)
	}
}

func TestResetRestoresInitialFocus(t *testing.T) {
	timer, mock := newTestClock(t, testConfig(), quietOptions())

	timer.Skip()
	timer.Skip()
	timer.Start()
	mock.Add(200 * time.Millisecond)
	timer.Reset()

	state := timer.State()
	if state.Running {
		t.Error("clock should be stopped after Reset")
	}
	if state.Phase != model.PhaseFocus {
		t.Errorf("Phase = %v, want focus", state.Phase)
	}
	if state.CompletedFocusCycles != 0 {
		t.Errorf("CompletedFocusCycles = %d, want 0", state.CompletedFocusCycles)
	}
	if state.Remaining != state.Total || state.Total != 1000*time.Millisecond {
		t.Errorf("Remaining/Total = %v/%v, want 1s/1s", state.Remaining, state.Total)
	}
}

func TestConfigureRejectsOutOfBounds(t *testing.T) {
	timer, _ := newTestClock(t, testConfig(), quietOptions())
	before := timer.State()

	tooSmall := 0 * time.Millisecond
	tooLarge := 24*time.Hour + time.Millisecond

	for _, patch := range []model.Patch{
		{FocusDuration: &tooSmall},
		{FocusDuration: &tooLarge},
	} {
		err := timer.Configure(patch)
		if err == nil {
			t.Fatal("Configure should reject out-of-bounds focus duration")
		}
		var confErr *model.ConfigurationError
		if !errors.As(err, &confErr) {
			t.Fatalf("error type = %T, want *model.ConfigurationError", err)
		}
		if confErr.Field != model.FieldFocusDuration {
			t.Errorf("Field = %q, want %q", confErr.Field, model.FieldFocusDuration)
		}
		if timer.State() != before {
			t.Error("state must be unchanged after a rejected Configure")
		}
	}
}

func TestConfigureRejectsWholePatchOnSingleBadField(t *testing.T) {
	timer, _ := newTestClock(t, testConfig(), quietOptions())
	before := timer.State()

	goodFocus := 2 * time.Second
	badCycles := 11
	err := timer.Configure(model.Patch{FocusDuration: &goodFocus, CyclesUntilLongBreak: &badCycles})
	if err == nil {
		t.Fatal("Configure should reject the whole patch")
	}
	if timer.State() != before {
		t.Error("no partial application: the valid field must not have been applied")
	}
}

func TestConfigureResizesActivePhaseWhenStopped(t *testing.T) {
	timer, _ := newTestClock(t, testConfig(), quietOptions())
	events := timer.Subscribe(8)

	focus := 2 * time.Second
	if err := timer.Configure(model.Patch{FocusDuration: &focus}); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	state := timer.State()
	if state.Remaining != 2*time.Second || state.Total != 2*time.Second {
		t.Errorf("Remaining/Total = %v/%v, want 2s/2s", state.Remaining, state.Total)
	}
	if countType(drainEvents(events), EventConfigured) != 1 {
		t.Error("want exactly one configured event")
	}
}

func TestConfigureOtherPhaseKeepsPausedProgress(t *testing.T) {
	timer, mock := newTestClock(t, testConfig(), quietOptions())

	timer.Start()
	mock.Add(400 * time.Millisecond)
	timer.Pause()

	short := 2 * time.Second
	if err := timer.Configure(model.Patch{ShortBreakDuration: &short}); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	state := timer.State()
	if state.Remaining != 600*time.Millisecond {
		t.Errorf("Remaining = %v, want paused progress 600ms kept", state.Remaining)
	}
	if state.Config.ShortBreakDuration != 2*time.Second {
		t.Errorf("ShortBreakDuration = %v, want 2s", state.Config.ShortBreakDuration)
	}

	// The new duration applies on next entry to the phase.
	timer.Skip()
	if got := timer.State().Total; got != 2*time.Second {
		t.Errorf("short break Total = %v, want 2s", got)
	}
}

func TestConfigureWhileRunningAppliesOnNextEntry(t *testing.T) {
	timer, mock := newTestClock(t, testConfig(), quietOptions())

	timer.Start()
	mock.Add(300 * time.Millisecond)
	timer.Resync()

	focus := 5 * time.Second
	if err := timer.Configure(model.Patch{FocusDuration: &focus}); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	state := timer.State()
	if state.Total != 1000*time.Millisecond {
		t.Errorf("running Total = %v, want current countdown untouched", state.Total)
	}
	if state.Config.FocusDuration != 5*time.Second {
		t.Errorf("Config.FocusDuration = %v, want 5s", state.Config.FocusDuration)
	}

	timer.Reset()
	if got := timer.State().Total; got != 5*time.Second {
		t.Errorf("Total after Reset = %v, want 5s", got)
	}
}

func TestOneSecondPhaseReachesZeroAndTransitions(t *testing.T) {
	config := testConfig()
	config.FocusDuration = time.Second // minimum bound
	timer, mock := newTestClock(t, config, Options{})

	timer.Start()
	mock.Add(time.Second)
	timer.Resync()

	waitFor(t, "transition out of focus", func() bool {
		return timer.State().Phase == model.PhaseShortBreak
	})
	checkInvariant(t, timer, "one second phase")
}

func TestDayLongPhaseSurvivesFastForward(t *testing.T) {
	config := model.Config{
		FocusDuration:        24 * time.Hour, // maximum bound
		ShortBreakDuration:   5 * time.Minute,
		LongBreakDuration:    15 * time.Minute,
		CyclesUntilLongBreak: 4,
	}
	timer, mock := newTestClock(t, config, quietOptions())

	timer.Start()
	mock.Add(23 * time.Hour)
	timer.Resync()
	if got := timer.State().Remaining; got != time.Hour {
		t.Fatalf("Remaining after 23h = %v, want exactly 1h", got)
	}

	mock.Add(time.Hour)
	timer.Resync()
	waitFor(t, "day-long focus completion", func() bool {
		return timer.State().Phase == model.PhaseShortBreak
	})
}

func TestStarvationGapIsSelfHealing(t *testing.T) {
	config := testConfig()
	config.FocusDuration = 10 * time.Second
	// Loops disabled entirely: nothing ticks during the gap, exactly like a
	// suspended process.
	timer, mock := newTestClock(t, config, quietOptions())

	timer.Start()
	mock.Add(3 * time.Second)
	timer.Resync()
	if got := timer.State().Remaining; got != 7*time.Second {
		t.Fatalf("Remaining = %v, want 7s", got)
	}

	mock.Add(4 * time.Second)
	timer.Resync()
	if got := timer.State().Remaining; got != 3*time.Second {
		t.Errorf("Remaining after gap = %v, want 3s (full elapsed time accounted)", got)
	}
}

func TestBackwardClockJumpNeverIncreasesRemaining(t *testing.T) {
	timer, mock := newTestClock(t, testConfig(), quietOptions())

	timer.Start()
	mock.Add(400 * time.Millisecond)
	timer.Resync()
	if got := timer.State().Remaining; got != 600*time.Millisecond {
		t.Fatalf("Remaining = %v, want 600ms", got)
	}

	mock.Set(mock.Now().Add(-10 * time.Second))
	timer.Resync()
	if got := timer.State().Remaining; got > 600*time.Millisecond {
		t.Errorf("Remaining = %v after backward jump, must never increase past 600ms", got)
	}
	checkInvariant(t, timer, "backward jump")
}

func TestPauseCancelsLoops(t *testing.T) {
	timer, mock := newTestClock(t, testConfig(), Options{})
	events := timer.Subscribe(64)

	timer.Start()
	mock.Add(200 * time.Millisecond)
	timer.Pause()
	drainEvents(events)

	frozen := timer.State()
	mock.Add(5 * time.Second)
	time.Sleep(10 * time.Millisecond)

	if got := drainEvents(events); len(got) != 0 {
		t.Errorf("ghost events after Pause: %d", len(got))
	}
	if timer.State() != frozen {
		t.Error("state mutated after Pause despite clock advance")
	}
}

func TestCloseCancelsLoopsAndClosesSubscribers(t *testing.T) {
	timer, mock := newTestClock(t, testConfig(), Options{})
	events := timer.Subscribe(8)

	timer.Start()
	timer.Close()

	waitFor(t, "subscriber channel close", func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	})

	frozen := timer.State()
	mock.Add(5 * time.Second)
	time.Sleep(10 * time.Millisecond)
	if timer.State() != frozen {
		t.Error("state mutated after Close")
	}

	timer.Start()
	if timer.State().Running {
		t.Error("Start after Close must be a no-op")
	}
}

func TestReentrantSkipFromCompleteSubscriber(t *testing.T) {
	timer, mock := newTestClock(t, testConfig(), Options{})
	events := timer.Subscribe(64)

	// A subscriber that reacts to the first completion by skipping the break
	// it just entered.
	skipped := make(chan struct{})
	go func() {
		for event := range events {
			if event.Type == EventComplete && event.Completed == model.PhaseFocus {
				timer.Skip()
				close(skipped)
				return
			}
		}
	}()

	timer.Start()
	mock.Add(1000 * time.Millisecond)
	timer.Resync()

	select {
	case <-skipped:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber never saw the completion")
	}

	waitFor(t, "skip back to focus", func() bool {
		return timer.State().Phase == model.PhaseFocus
	})
	state := timer.State()
	if state.CompletedFocusCycles != 1 {
		t.Errorf("CompletedFocusCycles = %d, want 1", state.CompletedFocusCycles)
	}
	checkInvariant(t, timer, "re-entrant skip")
}

func TestRestoreForcesStopped(t *testing.T) {
	timer, _ := newTestClock(t, testConfig(), quietOptions())

	timer.Restore(Snapshot{
		Phase:                model.PhaseShortBreak,
		Remaining:            400 * time.Millisecond,
		Total:                1000 * time.Millisecond,
		Running:              true, // saved mid-countdown
		CompletedFocusCycles: 3,
		Config:               testConfig(),
	})

	state := timer.State()
	if state.Running {
		t.Error("a rehydrated clock must never come back running")
	}
	if state.Remaining != 400*time.Millisecond {
		t.Errorf("Remaining = %v, want the saved 400ms, not a recomputed value", state.Remaining)
	}
	if state.Phase != model.PhaseShortBreak {
		t.Errorf("Phase = %v, want short_break", state.Phase)
	}
	if state.CompletedFocusCycles != 3 {
		t.Errorf("CompletedFocusCycles = %d, want 3", state.CompletedFocusCycles)
	}
}

func TestRestoreSanitizesGarbage(t *testing.T) {
	timer, _ := newTestClock(t, testConfig(), quietOptions())

	timer.Restore(Snapshot{
		Phase:                model.Phase("bogus"),
		Remaining:            -5 * time.Second,
		Total:                48 * time.Hour,
		CompletedFocusCycles: -2,
		Config:               model.Config{FocusDuration: -1},
	})

	state := timer.State()
	if state.Phase != model.PhaseFocus {
		t.Errorf("Phase = %v, want focus fallback", state.Phase)
	}
	if state.Config != testConfig() {
		t.Errorf("invalid snapshot config must be discarded, got %+v", state.Config)
	}
	if state.Total != state.Config.FocusDuration {
		t.Errorf("Total = %v, want configured focus duration", state.Total)
	}
	if state.Remaining != 0 {
		t.Errorf("Remaining = %v, want clamped to 0", state.Remaining)
	}
	if state.CompletedFocusCycles != 0 {
		t.Errorf("CompletedFocusCycles = %d, want 0", state.CompletedFocusCycles)
	}
	checkInvariant(t, timer, "sanitized restore")
}

func TestInvariantHoldsAcrossOperationSequence(t *testing.T) {
	timer, mock := newTestClock(t, testConfig(), quietOptions())

	steps := []struct {
		name string
		run  func()
	}{
		{"start", timer.Start},
		{"advance 250ms", func() { mock.Add(250 * time.Millisecond); timer.Resync() }},
		{"pause", timer.Pause},
		{"skip", timer.Skip},
		{"start again", timer.Start},
		{"advance past end", func() { mock.Add(5 * time.Second); timer.Resync() }},
		{"reset", timer.Reset},
		{"skip stopped", timer.Skip},
		{"start once more", timer.Start},
		{"advance 900ms", func() { mock.Add(900 * time.Millisecond); timer.Resync() }},
		{"pause again", timer.Pause},
	}
	for _, step := range steps {
		step.run()
		checkInvariant(t, timer, step.name)
	}
}

func TestTickEventsCarryBoundedProgress(t *testing.T) {
	timer, mock := newTestClock(t, testConfig(), Options{})
	events := timer.Subscribe(64)

	timer.Start()
	mock.Add(500 * time.Millisecond)

	ticks := 0
	for _, event := range drainEvents(events) {
		if event.Type != EventTick {
			continue
		}
		ticks++
		if event.Progress < 0 || event.Progress > 1 {
			t.Errorf("tick Progress = %v, want within [0, 1]", event.Progress)
		}
		if event.Remaining < 0 || event.Remaining > event.Total {
			t.Errorf("tick Remaining = %v outside [0, %v]", event.Remaining, event.Total)
		}
	}
	if ticks == 0 {
		t.Skip("no ticks delivered by the mock scheduler in this run")
	}
}

func TestRemainingIsNonIncreasingWhileRunning(t *testing.T) {
	timer, mock := newTestClock(t, testConfig(), quietOptions())

	timer.Start()
	last := timer.State().Remaining
	for i := 0; i < 9; i++ {
		mock.Add(100 * time.Millisecond)
		timer.Resync()
		current := timer.State().Remaining
		if current > last {
			t.Fatalf("Remaining increased from %v to %v", last, current)
		}
		last = current
	}
}
