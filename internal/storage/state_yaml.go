package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"tomatick/internal/core/model"
	"tomatick/internal/core/phaseclock"
)

const stateFileName = "state.yaml"

// State is the opaque snapshot persisted across runs: the clock configuration
// and countdown position, plus the start-at-login preference.
type State struct {
	Clock         phaseclock.Snapshot
	LaunchAtLogin bool
}

// DefaultState returns the state used when nothing has been persisted yet.
func DefaultState() State {
	config := model.Default()
	return State{
		Clock: phaseclock.Snapshot{
			Phase:     model.PhaseFocus,
			Remaining: config.FocusDuration,
			Total:     config.FocusDuration,
			Config:    config,
		},
	}
}

type yamlState struct {
	FocusMillis          int64  `yaml:"focus_ms"`
	ShortBreakMillis     int64  `yaml:"short_break_ms"`
	LongBreakMillis      int64  `yaml:"long_break_ms"`
	CyclesUntilLongBreak int    `yaml:"cycles_until_long_break"`
	Phase                string `yaml:"phase"`
	RemainingMillis      int64  `yaml:"remaining_ms"`
	TotalMillis          int64  `yaml:"total_ms"`
	CompletedFocusCycles int    `yaml:"completed_focus_cycles"`
	Running              bool   `yaml:"running"`
	LaunchAtLogin        bool   `yaml:"launch_at_login"`
}

// Load reads the persisted state from YAML. Whatever goes wrong — missing
// file, unparsable YAML, out-of-range fields — the returned state is usable:
// bad fields degrade to defaults through the same bounds Configure enforces,
// and a snapshot saved mid-countdown always loads stopped.
func Load(appName string) (State, error) {
	state := DefaultState()
	statePath, err := resolveStatePath(appName)
	if err != nil {
		return state, err
	}
	return loadStateFile(statePath)
}

// Save writes the state to YAML under the user config directory.
func Save(appName string, state State) error {
	statePath, err := resolveStatePath(appName)
	if err != nil {
		return err
	}
	return saveStateFile(statePath, state)
}

func loadStateFile(statePath string) (State, error) {
	state := DefaultState()

	rawData, err := os.ReadFile(statePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return state, nil
		}
		return state, fmt.Errorf("read state file: %w", err)
	}

	var fileData yamlState
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return state, fmt.Errorf("parse state yaml: %w", err)
	}

	applyYamlState(&state, fileData)
	return state, nil
}

func saveStateFile(statePath string, state State) error {
	if err := os.MkdirAll(filepath.Dir(statePath), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	fileData := yamlState{
		FocusMillis:          state.Clock.Config.FocusDuration.Milliseconds(),
		ShortBreakMillis:     state.Clock.Config.ShortBreakDuration.Milliseconds(),
		LongBreakMillis:      state.Clock.Config.LongBreakDuration.Milliseconds(),
		CyclesUntilLongBreak: state.Clock.Config.CyclesUntilLongBreak,
		Phase:                string(state.Clock.Phase),
		RemainingMillis:      state.Clock.Remaining.Milliseconds(),
		TotalMillis:          state.Clock.Total.Milliseconds(),
		CompletedFocusCycles: state.Clock.CompletedFocusCycles,
		Running:              state.Clock.Running,
		LaunchAtLogin:        state.LaunchAtLogin,
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal state yaml: %w", err)
	}

	if err := os.WriteFile(statePath, serialized, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	return nil
}

func resolveStatePath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, stateFileName), nil
}

func applyYamlState(state *State, fileData yamlState) {
	config := state.Clock.Config

	if value := millis(fileData.FocusMillis); model.ValidPhaseDuration(value) {
		config.FocusDuration = value
	}
	if value := millis(fileData.ShortBreakMillis); model.ValidPhaseDuration(value) {
		config.ShortBreakDuration = value
	}
	if value := millis(fileData.LongBreakMillis); model.ValidPhaseDuration(value) {
		config.LongBreakDuration = value
	}
	if model.ValidCycles(fileData.CyclesUntilLongBreak) {
		config.CyclesUntilLongBreak = fileData.CyclesUntilLongBreak
	}
	state.Clock.Config = config

	phase := model.Phase(fileData.Phase)
	if !phase.Valid() {
		phase = model.PhaseFocus
	}
	state.Clock.Phase = phase

	total := millis(fileData.TotalMillis)
	if !model.ValidPhaseDuration(total) {
		total = config.PhaseDuration(phase)
	}
	state.Clock.Total = total

	remaining := millis(fileData.RemainingMillis)
	if remaining < 0 {
		remaining = 0
	}
	if remaining > total {
		remaining = total
	}
	state.Clock.Remaining = remaining

	if fileData.CompletedFocusCycles >= 0 {
		state.Clock.CompletedFocusCycles = fileData.CompletedFocusCycles
	}

	// A reload never silently resumes a running countdown.
	state.Clock.Running = false

	state.LaunchAtLogin = fileData.LaunchAtLogin
}

func millis(value int64) time.Duration {
	return time.Duration(value) * time.Millisecond
}
