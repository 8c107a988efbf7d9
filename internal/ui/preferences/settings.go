package preferences

import (
	"tomatick/internal/core/model"
)

// Settings defines the editable user preferences.
type Settings struct {
	Config        model.Config
	LaunchAtLogin bool
}

// DefaultSettings returns default settings for Tomatick.
func DefaultSettings() Settings {
	return Settings{Config: model.Default()}
}

// Patch converts the settings into a full configuration patch for the clock.
func (settings Settings) Patch() model.Patch {
	focus := settings.Config.FocusDuration
	short := settings.Config.ShortBreakDuration
	long := settings.Config.LongBreakDuration
	cycles := settings.Config.CyclesUntilLongBreak
	return model.Patch{
		FocusDuration:        &focus,
		ShortBreakDuration:   &short,
		LongBreakDuration:    &long,
		CyclesUntilLongBreak: &cycles,
	}
}
