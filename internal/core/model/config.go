package model

import (
	"fmt"
	"time"
)

// Phase identifies the active countdown mode.
type Phase string

const (
	PhaseFocus      Phase = "focus"
	PhaseShortBreak Phase = "short_break"
	PhaseLongBreak  Phase = "long_break"
)

// Valid reports whether the phase is one of the known modes.
func (phase Phase) Valid() bool {
	switch phase {
	case PhaseFocus, PhaseShortBreak, PhaseLongBreak:
		return true
	}
	return false
}

// Title returns a human-readable phase name.
func (phase Phase) Title() string {
	switch phase {
	case PhaseShortBreak:
		return "Short break"
	case PhaseLongBreak:
		return "Long break"
	default:
		return "Focus"
	}
}

// Bounds accepted by Configure and by snapshot rehydration.
const (
	MinPhaseDuration = time.Second
	MaxPhaseDuration = 24 * time.Hour

	MinCyclesUntilLongBreak = 1
	MaxCyclesUntilLongBreak = 10
)

// Field names reported by ConfigurationError.
const (
	FieldFocusDuration        = "focus_duration"
	FieldShortBreakDuration   = "short_break_duration"
	FieldLongBreakDuration    = "long_break_duration"
	FieldCyclesUntilLongBreak = "cycles_until_long_break"
)

// Config contains the phase durations and long-break cadence for the clock.
type Config struct {
	FocusDuration        time.Duration
	ShortBreakDuration   time.Duration
	LongBreakDuration    time.Duration
	CyclesUntilLongBreak int
}

// Default returns the classic pomodoro configuration.
func Default() Config {
	return Config{
		FocusDuration:        25 * time.Minute,
		ShortBreakDuration:   5 * time.Minute,
		LongBreakDuration:    15 * time.Minute,
		CyclesUntilLongBreak: 4,
	}
}

// PhaseDuration returns the configured duration for the given phase.
func (config Config) PhaseDuration(phase Phase) time.Duration {
	switch phase {
	case PhaseShortBreak:
		return config.ShortBreakDuration
	case PhaseLongBreak:
		return config.LongBreakDuration
	default:
		return config.FocusDuration
	}
}

// Validate checks every field against its bound.
func (config Config) Validate() error {
	if err := validateDuration(FieldFocusDuration, config.FocusDuration); err != nil {
		return err
	}
	if err := validateDuration(FieldShortBreakDuration, config.ShortBreakDuration); err != nil {
		return err
	}
	if err := validateDuration(FieldLongBreakDuration, config.LongBreakDuration); err != nil {
		return err
	}
	return validateCycles(config.CyclesUntilLongBreak)
}

// ConfigurationError reports a configuration field that failed validation.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (err *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s (got %v)", err.Field, err.Reason, err.Value)
}

// ValidPhaseDuration reports whether the duration is within the accepted range.
func ValidPhaseDuration(value time.Duration) bool {
	return value >= MinPhaseDuration && value <= MaxPhaseDuration
}

// ValidCycles reports whether the cycle count is within the accepted range.
func ValidCycles(value int) bool {
	return value >= MinCyclesUntilLongBreak && value <= MaxCyclesUntilLongBreak
}

func validateDuration(field string, value time.Duration) error {
	if !ValidPhaseDuration(value) {
		return &ConfigurationError{
			Field:  field,
			Value:  value,
			Reason: fmt.Sprintf("must be between %s and %s", MinPhaseDuration, MaxPhaseDuration),
		}
	}
	return nil
}

func validateCycles(value int) error {
	if !ValidCycles(value) {
		return &ConfigurationError{
			Field:  FieldCyclesUntilLongBreak,
			Value:  value,
			Reason: fmt.Sprintf("must be between %d and %d", MinCyclesUntilLongBreak, MaxCyclesUntilLongBreak),
		}
	}
	return nil
}

// Patch carries a partial configuration update. Nil fields are left unchanged.
type Patch struct {
	FocusDuration        *time.Duration
	ShortBreakDuration   *time.Duration
	LongBreakDuration    *time.Duration
	CyclesUntilLongBreak *int
}

// Validate checks every provided field. A single invalid field rejects the
// whole patch; nothing is applied on error.
func (patch Patch) Validate() error {
	if patch.FocusDuration != nil {
		if err := validateDuration(FieldFocusDuration, *patch.FocusDuration); err != nil {
			return err
		}
	}
	if patch.ShortBreakDuration != nil {
		if err := validateDuration(FieldShortBreakDuration, *patch.ShortBreakDuration); err != nil {
			return err
		}
	}
	if patch.LongBreakDuration != nil {
		if err := validateDuration(FieldLongBreakDuration, *patch.LongBreakDuration); err != nil {
			return err
		}
	}
	if patch.CyclesUntilLongBreak != nil {
		return validateCycles(*patch.CyclesUntilLongBreak)
	}
	return nil
}

// Apply merges the patch into config and returns the result. The patch must
// have been validated first.
func (patch Patch) Apply(config Config) Config {
	if patch.FocusDuration != nil {
		config.FocusDuration = *patch.FocusDuration
	}
	if patch.ShortBreakDuration != nil {
		config.ShortBreakDuration = *patch.ShortBreakDuration
	}
	if patch.LongBreakDuration != nil {
		config.LongBreakDuration = *patch.LongBreakDuration
	}
	if patch.CyclesUntilLongBreak != nil {
		config.CyclesUntilLongBreak = *patch.CyclesUntilLongBreak
	}
	return config
}
