package tray

import (
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnShowTimer   func()
	OnPreferences func()
	OnToggle      func()
	OnSkip        func()
	OnReset       func()
	OnPauseFor    func(time.Duration)
	OnQuit        func()
}

// Manager handles system tray state.
type Manager struct {
	app         desktop.App
	statusItem  *fyne.MenuItem
	showItem    *fyne.MenuItem
	prefsItem   *fyne.MenuItem
	toggleItem  *fyne.MenuItem
	skipItem    *fyne.MenuItem
	resetItem   *fyne.MenuItem
	pauseFor    *fyne.MenuItem
	quitItem    *fyne.MenuItem
	callbacks   Callbacks
	running     bool
	statusLabel string
}

// New creates a tray manager with the provided callbacks.
func New(app desktop.App, callbacks Callbacks) *Manager {
	manager := &Manager{
		app:         app,
		callbacks:   callbacks,
		statusLabel: "ready",
	}

	manager.statusItem = fyne.NewMenuItem("Status: ready", nil)
	manager.statusItem.Disabled = true

	manager.showItem = fyne.NewMenuItem("Show timer", func() {
		if manager.callbacks.OnShowTimer != nil {
			manager.callbacks.OnShowTimer()
		}
	})

	manager.prefsItem = fyne.NewMenuItem("Preferences", func() {
		if manager.callbacks.OnPreferences != nil {
			manager.callbacks.OnPreferences()
		}
	})

	manager.toggleItem = fyne.NewMenuItem("Start", func() {
		if manager.callbacks.OnToggle != nil {
			manager.callbacks.OnToggle()
		}
	})

	manager.skipItem = fyne.NewMenuItem("Skip phase", func() {
		if manager.callbacks.OnSkip != nil {
			manager.callbacks.OnSkip()
		}
	})

	manager.resetItem = fyne.NewMenuItem("Reset", func() {
		if manager.callbacks.OnReset != nil {
			manager.callbacks.OnReset()
		}
	})

	manager.pauseFor = fyne.NewMenuItem("Pause for...", nil)
	manager.pauseFor.ChildMenu = fyne.NewMenu("",
		pauseForItem(manager, 5*time.Minute, "5 minutes"),
		pauseForItem(manager, 15*time.Minute, "15 minutes"),
		pauseForItem(manager, 30*time.Minute, "30 minutes"),
		pauseForItem(manager, 60*time.Minute, "60 minutes"),
	)

	manager.quitItem = fyne.NewMenuItem("Quit", func() {
		if manager.callbacks.OnQuit != nil {
			manager.callbacks.OnQuit()
		}
	})

	manager.refreshMenu()
	return manager
}

// SetStatus updates the status line.
func (manager *Manager) SetStatus(status string) {
	manager.statusLabel = status
	manager.statusItem.Label = fmt.Sprintf("Status: %s", status)
	manager.refreshMenu()
}

// SetRunning relabels the start/pause toggle.
func (manager *Manager) SetRunning(running bool) {
	manager.running = running
	if running {
		manager.toggleItem.Label = "Pause"
	} else {
		manager.toggleItem.Label = "Start"
	}
	manager.refreshMenu()
}

func (manager *Manager) refreshMenu() {
	if manager.app == nil {
		return
	}
	manager.app.SetSystemTrayMenu(fyne.NewMenu("Tomatick",
		manager.statusItem,
		manager.showItem,
		manager.prefsItem,
		manager.toggleItem,
		manager.skipItem,
		manager.resetItem,
		manager.pauseFor,
		manager.quitItem,
	))
}

func pauseForItem(manager *Manager, duration time.Duration, label string) *fyne.MenuItem {
	return fyne.NewMenuItem(label, func() {
		if manager.callbacks.OnPauseFor != nil {
			manager.callbacks.OnPauseFor(duration)
		}
	})
}
