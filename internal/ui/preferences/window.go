package preferences

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

// Window handles the settings UI. Invalid input never reaches the clock
// half-applied: the apply callback validates the whole settings struct and a
// rejection is shown inline, naming the offending field.
type Window struct {
	window     fyne.Window
	settings   Settings
	onApply    func(Settings) error
	focusMin   *widget.Entry
	shortMin   *widget.Entry
	longMin    *widget.Entry
	cycles     *widget.Entry
	autostart  *widget.Check
	errorLabel *widget.Label
}

// New creates a preferences window. onApply receives the edited settings and
// returns the validation error to display, or nil to accept and close.
func New(app fyne.App, settings Settings, onApply func(Settings) error) *Window {
	window := app.NewWindow("Tomatick Settings")

	focusMin := widget.NewEntry()
	shortMin := widget.NewEntry()
	longMin := widget.NewEntry()
	cycles := widget.NewEntry()

	autostart := widget.NewCheck("Start at login", nil)

	errorLabel := widget.NewLabel("")
	errorLabel.Wrapping = fyne.TextWrapWord
	errorLabel.Hide()

	form := container.NewVBox(
		widget.NewLabelWithStyle("Durations", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("Focus"), focusMin, widget.NewLabel("min")),
		container.NewHBox(widget.NewLabel("Short break"), shortMin, widget.NewLabel("min")),
		container.NewHBox(widget.NewLabel("Long break"), longMin, widget.NewLabel("min")),
		widget.NewLabelWithStyle("Cycle", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("Focus sessions before a long break"), cycles),
		autostart,
		errorLabel,
	)

	saveButton := widget.NewButton("Save", nil)
	cancelButton := widget.NewButton("Cancel", nil)
	buttons := container.NewHBox(saveButton, layout.NewSpacer(), cancelButton)

	content := container.NewBorder(nil, buttons, nil, nil, form)
	window.SetContent(content)
	window.Resize(fyne.NewSize(380, 340))
	window.SetCloseIntercept(func() {
		window.Hide()
	})

	prefs := &Window{
		window:     window,
		settings:   settings,
		onApply:    onApply,
		focusMin:   focusMin,
		shortMin:   shortMin,
		longMin:    longMin,
		cycles:     cycles,
		autostart:  autostart,
		errorLabel: errorLabel,
	}
	prefs.fillForm(settings)

	saveButton.OnTapped = prefs.handleSave
	cancelButton.OnTapped = func() {
		prefs.fillForm(prefs.settings)
		prefs.errorLabel.Hide()
		window.Hide()
	}

	return prefs
}

// Show displays the preferences window.
func (prefs *Window) Show() {
	prefs.window.Show()
	prefs.window.RequestFocus()
}

// UpdateSettings replaces window values.
func (prefs *Window) UpdateSettings(settings Settings) {
	prefs.settings = settings
	prefs.fillForm(settings)
}

func (prefs *Window) fillForm(settings Settings) {
	prefs.focusMin.SetText(fmt.Sprintf("%d", int(settings.Config.FocusDuration.Minutes())))
	prefs.shortMin.SetText(fmt.Sprintf("%d", int(settings.Config.ShortBreakDuration.Minutes())))
	prefs.longMin.SetText(fmt.Sprintf("%d", int(settings.Config.LongBreakDuration.Minutes())))
	prefs.cycles.SetText(fmt.Sprintf("%d", settings.Config.CyclesUntilLongBreak))
	prefs.autostart.SetChecked(settings.LaunchAtLogin)
}

func (prefs *Window) handleSave() {
	settings := prefs.settings

	focusMin, err := parseCount("focus duration", prefs.focusMin.Text)
	if err != nil {
		prefs.showError(err)
		return
	}
	shortMin, err := parseCount("short break duration", prefs.shortMin.Text)
	if err != nil {
		prefs.showError(err)
		return
	}
	longMin, err := parseCount("long break duration", prefs.longMin.Text)
	if err != nil {
		prefs.showError(err)
		return
	}
	cycles, err := parseCount("cycles until long break", prefs.cycles.Text)
	if err != nil {
		prefs.showError(err)
		return
	}

	settings.Config.FocusDuration = time.Duration(focusMin) * time.Minute
	settings.Config.ShortBreakDuration = time.Duration(shortMin) * time.Minute
	settings.Config.LongBreakDuration = time.Duration(longMin) * time.Minute
	settings.Config.CyclesUntilLongBreak = cycles
	settings.LaunchAtLogin = prefs.autostart.Checked

	if prefs.onApply != nil {
		if err := prefs.onApply(settings); err != nil {
			prefs.showError(err)
			return
		}
	}

	prefs.settings = settings
	prefs.errorLabel.Hide()
	prefs.window.Hide()
}

func (prefs *Window) showError(err error) {
	prefs.errorLabel.SetText(err.Error())
	prefs.errorLabel.Show()
}

func parseCount(field, value string) (int, error) {
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("%s must be a positive whole number", field)
	}
	return parsed, nil
}
