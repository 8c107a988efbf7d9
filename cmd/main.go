package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"

	"tomatick/internal/core/phaseclock"
	"tomatick/internal/notify"
	"tomatick/internal/platform"
	"tomatick/internal/storage"
	"tomatick/internal/ui/preferences"
	"tomatick/internal/ui/timerwindow"
	"tomatick/internal/ui/tray"
)

const appName = "Tomatick"

func main() {
	guard, err := platform.AcquireSingleInstance(appName)
	if err != nil {
		log.Printf("single instance: %v", err)
		return
	}
	defer func() {
		_ = guard.Release()
	}()

	fyneApp := app.NewWithID("com.tomatick.app")
	desktopApp, ok := fyneApp.(desktop.App)
	if !ok {
		log.Printf("system tray unsupported on this platform")
		return
	}

	state, err := storage.Load(appName)
	if err != nil {
		log.Printf("load state: %v (continuing with defaults)", err)
	}

	timer := phaseclock.New(state.Clock.Config, nil, phaseclock.Options{})
	timer.Restore(state.Clock)

	var launchAtLogin atomic.Bool
	launchAtLogin.Store(state.LaunchAtLogin)

	saveState := func() {
		snapshot := storage.State{
			Clock:         timer.State(),
			LaunchAtLogin: launchAtLogin.Load(),
		}
		if err := storage.Save(appName, snapshot); err != nil {
			log.Printf("save state: %v", err)
		}
	}

	platformService := platform.NewService()

	var prefsWindow *preferences.Window
	prefsWindow = preferences.New(fyneApp, preferences.Settings{
		Config:        state.Clock.Config,
		LaunchAtLogin: state.LaunchAtLogin,
	}, func(updated preferences.Settings) error {
		if err := timer.Configure(updated.Patch()); err != nil {
			return err
		}
		if updated.LaunchAtLogin != launchAtLogin.Load() {
			if err := applyAutostart(platformService, updated.LaunchAtLogin); err != nil {
				log.Printf("autostart: %v", err)
			}
			launchAtLogin.Store(updated.LaunchAtLogin)
		}
		saveState()
		return nil
	})

	timerWindow := timerwindow.New(fyneApp, timer.State(), timerwindow.Callbacks{
		OnStart: timer.Start,
		OnPause: timer.Pause,
		OnReset: timer.Reset,
		OnSkip:  timer.Skip,
		OnPreferences: func() {
			prefsWindow.Show()
		},
	})

	var pauseTimer *time.Timer
	trayManager := tray.New(desktopApp, tray.Callbacks{
		OnShowTimer: func() {
			timerWindow.Show()
		},
		OnPreferences: func() {
			prefsWindow.Show()
		},
		OnToggle: func() {
			if timer.State().Running {
				timer.Pause()
			} else {
				timer.Start()
			}
		},
		OnSkip:  timer.Skip,
		OnReset: timer.Reset,
		OnPauseFor: func(duration time.Duration) {
			if pauseTimer != nil {
				pauseTimer.Stop()
			}
			timer.Pause()
			pauseTimer = time.AfterFunc(duration, timer.Start)
		},
		OnQuit: func() {
			timer.Close()
			saveState()
			fyneApp.Quit()
		},
	})

	notifier := notify.New(fyneApp)
	go notifier.Run(timer.Subscribe(8))

	events := timer.Subscribe(16)
	go func() {
		for event := range events {
			handleEvent(event, timer, timerWindow, trayManager)
			if event.Type != phaseclock.EventTick {
				// Every state-bearing event persists a fresh snapshot.
				saveState()
			}
		}
	}()

	// A resumed process catches up immediately instead of at the next tick.
	fyneApp.Lifecycle().SetOnEnteredForeground(timer.Resync)

	trayManager.SetStatus(statusText(timer.State()))
	timerWindow.Show()
	fyneApp.Run()
}

func handleEvent(event phaseclock.Event, timer *phaseclock.PhaseClock, timerWindow *timerwindow.Window, trayManager *tray.Manager) {
	switch event.Type {
	case phaseclock.EventTick:
		timerWindow.SetCountdown(event.Remaining, event.Total, event.Progress)
		trayManager.SetStatus(fmt.Sprintf("%s %s", strings.ToLower(event.Phase.Title()), formatRemaining(event.Remaining)))
	default:
		snapshot := timer.State()
		timerWindow.Apply(snapshot)
		trayManager.SetRunning(snapshot.Running)
		trayManager.SetStatus(statusText(snapshot))
	}
}

func statusText(snapshot phaseclock.Snapshot) string {
	label := fmt.Sprintf("%s %s", strings.ToLower(snapshot.Phase.Title()), formatRemaining(snapshot.Remaining))
	if !snapshot.Running {
		label += " (paused)"
	}
	return label
}

func formatRemaining(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	seconds := int(remaining.Seconds())
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	seconds = seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

func applyAutostart(service platform.Service, enabled bool) error {
	if !enabled {
		return service.DisableAutostart(appName)
	}
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	return service.EnableAutostart(appName, execPath)
}
