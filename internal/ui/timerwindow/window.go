package timerwindow

import (
	"fmt"
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"tomatick/internal/core/phaseclock"
)

// Callbacks defines transport-control handlers. The window never touches the
// clock directly; every button press goes through these.
type Callbacks struct {
	OnStart       func()
	OnPause       func()
	OnReset       func()
	OnSkip        func()
	OnPreferences func()
}

// Window renders the countdown: phase title, mm:ss time, progress bar, cycle
// counter and transport buttons.
type Window struct {
	window      fyne.Window
	phaseLabel  *canvas.Text
	timeLabel   *canvas.Text
	cycleLabel  *widget.Label
	progress    *widget.ProgressBar
	startButton *widget.Button
	resetButton *widget.Button
	skipButton  *widget.Button
	callbacks   Callbacks
	running     bool
}

// New creates the timer window from an initial state snapshot.
func New(app fyne.App, snapshot phaseclock.Snapshot, callbacks Callbacks) *Window {
	window := app.NewWindow("Tomatick")

	phaseLabel := canvas.NewText(snapshot.Phase.Title(), color.NRGBA{R: 180, G: 180, B: 190, A: 255})
	phaseLabel.Alignment = fyne.TextAlignCenter
	phaseLabel.TextStyle = fyne.TextStyle{Bold: true}
	phaseLabel.TextSize = 18

	timeLabel := canvas.NewText(formatDuration(snapshot.Remaining), color.NRGBA{R: 235, G: 235, B: 245, A: 255})
	timeLabel.Alignment = fyne.TextAlignCenter
	timeLabel.TextStyle = fyne.TextStyle{Bold: true, Monospace: true}
	timeLabel.TextSize = 52

	progress := widget.NewProgressBar()
	progress.TextFormatter = func() string { return "" }

	cycleLabel := widget.NewLabel(formatCycles(snapshot.CompletedFocusCycles))
	cycleLabel.Alignment = fyne.TextAlignCenter

	win := &Window{
		window:     window,
		phaseLabel: phaseLabel,
		timeLabel:  timeLabel,
		cycleLabel: cycleLabel,
		progress:   progress,
		callbacks:  callbacks,
	}

	win.startButton = widget.NewButtonWithIcon("Start", theme.MediaPlayIcon(), func() {
		if win.running {
			if win.callbacks.OnPause != nil {
				win.callbacks.OnPause()
			}
			return
		}
		if win.callbacks.OnStart != nil {
			win.callbacks.OnStart()
		}
	})
	win.resetButton = widget.NewButtonWithIcon("Reset", theme.ViewRefreshIcon(), func() {
		if win.callbacks.OnReset != nil {
			win.callbacks.OnReset()
		}
	})
	win.skipButton = widget.NewButtonWithIcon("Skip", theme.MediaSkipNextIcon(), func() {
		if win.callbacks.OnSkip != nil {
			win.callbacks.OnSkip()
		}
	})
	settingsButton := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		if win.callbacks.OnPreferences != nil {
			win.callbacks.OnPreferences()
		}
	})

	transport := container.NewHBox(win.startButton, win.resetButton, win.skipButton, settingsButton)
	content := container.NewVBox(
		phaseLabel,
		timeLabel,
		progress,
		cycleLabel,
		container.NewCenter(transport),
	)

	window.SetContent(content)
	window.Resize(fyne.NewSize(360, 300))
	window.CenterOnScreen()
	window.SetCloseIntercept(func() {
		window.Hide()
	})

	win.Apply(snapshot)
	return win
}

// Show displays the timer window.
func (win *Window) Show() {
	win.window.Show()
	win.window.RequestFocus()
}

// Apply pushes a full state snapshot into every control. Safe to call from
// the event-consumer goroutine.
func (win *Window) Apply(snapshot phaseclock.Snapshot) {
	fyne.Do(func() {
		win.running = snapshot.Running
		win.phaseLabel.Text = snapshot.Phase.Title()
		win.phaseLabel.Refresh()
		win.setCountdown(snapshot.Remaining, snapshot.Total, progressOf(snapshot))
		win.cycleLabel.SetText(formatCycles(snapshot.CompletedFocusCycles))
		if snapshot.Running {
			win.startButton.SetText("Pause")
			win.startButton.SetIcon(theme.MediaPauseIcon())
		} else {
			win.startButton.SetText("Start")
			win.startButton.SetIcon(theme.MediaPlayIcon())
		}
	})
}

// SetCountdown updates only the time label and progress bar; the cheap path
// for tick events.
func (win *Window) SetCountdown(remaining, total time.Duration, progress float64) {
	fyne.Do(func() {
		win.setCountdown(remaining, total, progress)
	})
}

func (win *Window) setCountdown(remaining, total time.Duration, progress float64) {
	win.timeLabel.Text = formatDuration(remaining)
	win.timeLabel.Refresh()
	win.progress.SetValue(progress)
}

func progressOf(snapshot phaseclock.Snapshot) float64 {
	if snapshot.Total <= 0 {
		return 1
	}
	progress := float64(snapshot.Total-snapshot.Remaining) / float64(snapshot.Total)
	if progress < 0 {
		return 0
	}
	if progress > 1 {
		return 1
	}
	return progress
}

func formatCycles(completed int) string {
	if completed == 1 {
		return "1 focus session done"
	}
	return fmt.Sprintf("%d focus sessions done", completed)
}

func formatDuration(value time.Duration) string {
	if value < 0 {
		value = 0
	}
	// Round up so the label shows the second being counted down, not the one
	// already gone; 1ms remaining reads 00:01, not 00:00.
	seconds := int((value + time.Second - 1) / time.Second)
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	seconds = seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
