package tui

import "github.com/sweeney/microwave/internal/oven"

const recordBacklog = 64

// Feed carries oven updates from the Run goroutine to the bubbletea program.
// The oven never blocks on it: states keep only the latest value and records
// are dropped when the program falls behind.
type Feed struct {
	states  chan oven.State
	records chan string
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{
		states:  make(chan oven.State, 1),
		records: make(chan string, recordBacklog),
	}
}

// Listener returns an oven.Listener that publishes each state to the feed.
func (f *Feed) Listener() oven.Listener {
	return func(s oven.State) {
		select {
		case f.states <- s:
			return
		default:
		}
		// Replace the unread state with the newer one.
		select {
		case <-f.states:
		default:
		}
		select {
		case f.states <- s:
		default:
		}
	}
}

// OutputLine implements hw.Output.
func (f *Feed) OutputLine(line string) {
	select {
	case f.records <- line:
	default:
	}
}
