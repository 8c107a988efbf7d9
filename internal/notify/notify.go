package notify

import (
	"fmt"
	"strings"

	"fyne.io/fyne/v2"

	"tomatick/internal/core/model"
	"tomatick/internal/core/phaseclock"
)

// Notifier turns phase completions into system notifications. It subscribes
// to completion events only; every other event type is ignored.
type Notifier struct {
	app fyne.App
}

// New creates a notifier backed by the fyne notification service.
func New(app fyne.App) *Notifier {
	return &Notifier{app: app}
}

// Run consumes the event stream until the channel closes.
func (notifier *Notifier) Run(events <-chan phaseclock.Event) {
	for event := range events {
		if event.Type != phaseclock.EventComplete {
			continue
		}
		notifier.app.SendNotification(fyne.NewNotification(title(event), body(event)))
	}
}

func title(event phaseclock.Event) string {
	return fmt.Sprintf("%s complete", event.Completed.Title())
}

func body(event phaseclock.Event) string {
	if event.Phase == model.PhaseFocus {
		return "Break is over. Back to focus."
	}
	return fmt.Sprintf("Good work. Time for a %s.", strings.ToLower(event.Phase.Title()))
}
