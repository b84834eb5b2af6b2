// Package cook runs one cooking session at a time: it powers the tube, counts
// the session down on a timer and keeps the display in step with it.
package cook

import (
	"errors"
	"time"
)

var (
	// ErrOutOfRange is returned for a power level or duration the oven cannot run.
	ErrOutOfRange = errors.New("cook: power or duration out of range")

	// ErrAlreadyRunning is returned by StartCooking while a session is active.
	ErrAlreadyRunning = errors.New("cook: session already running")
)

// Outcome describes how a session ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
)

// Session is a point-in-time copy of a cooking run.
type Session struct {
	ID        string
	Power     int // watts
	Duration  int // seconds
	Remaining int // seconds, non-increasing
	StartedAt time.Time
	EndedAt   time.Time // zero while active

	expired bool // set once the timer has run out
}

// Timer counts a session down. *timer.Timer satisfies it.
type Timer interface {
	Start(seconds int) error
	Stop()
}

// Display shows the remaining time.
type Display interface {
	ShowTime(min, sec int)
	Clear()
}

// PowerTube heats the cavity.
type PowerTube interface {
	TurnOn(power int) error
	TurnOff() error
}

// Notifier is told when a session runs to completion.
type Notifier interface {
	CookingIsDone()
}

// Observer follows the session lifecycle. Calls are made outside the
// controller's lock on the goroutine that caused them.
type Observer interface {
	SessionStarted(s Session)
	SessionTicked(s Session)
	SessionFinished(s Session, outcome Outcome)
}
