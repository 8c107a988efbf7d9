package phaseclock

import (
	"time"

	"tomatick/internal/core/model"
)

// EventType defines the type of PhaseClock event.
type EventType string

const (
	EventConfigured  EventType = "configured"
	EventStart       EventType = "start"
	EventPause       EventType = "pause"
	EventReset       EventType = "reset"
	EventTick        EventType = "tick"
	EventPhaseChange EventType = "phase_change"
	EventComplete    EventType = "complete"
)

// Event represents a PhaseClock update for observers. Which fields are set
// depends on Type:
//
//	configured    Config
//	start         Phase, Total, Remaining
//	pause         Phase, Remaining
//	reset         Phase, Total, Remaining
//	tick          Phase, Remaining, Total, Progress
//	phase_change  From, To, Phase (== To), Remaining, Total, CompletedFocusCycles
//	complete      Completed, Phase (the phase entered next), CompletedFocusCycles
type Event struct {
	Type EventType

	Phase     model.Phase
	From      model.Phase
	To        model.Phase
	Completed model.Phase

	Remaining time.Duration
	Total     time.Duration
	Progress  float64

	CompletedFocusCycles int

	Config model.Config
	At     time.Time
}
