package history

import (
	"context"
	"time"

	"github.com/sweeney/microwave/internal/cook"
	"github.com/sweeney/microwave/internal/logger"
)

const (
	// recorderQueue bounds sessions waiting to be written.
	recorderQueue = 32
	// writeTimeout bounds a single Record.
	writeTimeout = 2 * time.Second
)

// Recorder stores every finished session on its own goroutine, so a slow
// disk never stalls the oven. It is a cook.Observer.
type Recorder struct {
	store *Store
	log   *logger.Logger
	queue chan Entry
}

// NewRecorder creates a Recorder writing to store. Call Run to start writing.
func NewRecorder(store *Store, log *logger.Logger) *Recorder {
	return &Recorder{
		store: store,
		log:   logger.OrNop(log),
		queue: make(chan Entry, recorderQueue),
	}
}

// SessionStarted is a no-op.
func (r *Recorder) SessionStarted(cook.Session) {}

// SessionTicked is a no-op.
func (r *Recorder) SessionTicked(cook.Session) {}

// SessionFinished queues the session for writing. It never blocks; when the
// queue is full the session is dropped.
func (r *Recorder) SessionFinished(s cook.Session, outcome cook.Outcome) {
	e := Entry{
		ID:        s.ID,
		Power:     s.Power,
		Duration:  s.Duration,
		Remaining: s.Remaining,
		Outcome:   outcome,
		StartedAt: s.StartedAt,
		EndedAt:   s.EndedAt,
	}
	select {
	case r.queue <- e:
	default:
		r.log.Warnw("history queue full, dropping session", "session", s.ID)
	}
}

// Run writes queued sessions until ctx is cancelled, then flushes what is
// already queued.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case e := <-r.queue:
			r.write(e)
		case <-ctx.Done():
			for {
				select {
				case e := <-r.queue:
					r.write(e)
				default:
					return nil
				}
			}
		}
	}
}

// Failures are logged, never returned to the cook controller.
func (r *Recorder) write(e Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.store.Record(ctx, e); err != nil {
		r.log.Errorw("record session", "session", e.ID, "err", err)
	}
}
