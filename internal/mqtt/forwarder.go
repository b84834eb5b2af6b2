package mqtt

import (
	"context"
	"time"

	"github.com/sweeney/microwave/internal/logger"
)

// forwarderQueue bounds messages waiting for the publisher.
const forwarderQueue = 256

type outbound struct {
	rec   Record
	state []byte // nil for records
}

// Forwarder moves actuator records and state snapshots to a Publisher on its
// own goroutine, so a slow broker never stalls the oven. It is an hw.Output.
type Forwarder struct {
	pub   Publisher
	log   *logger.Logger
	now   func() time.Time
	queue chan outbound
}

// NewForwarder creates a Forwarder. Call Run to start publishing.
func NewForwarder(pub Publisher, log *logger.Logger) *Forwarder {
	return &Forwarder{
		pub:   pub,
		log:   logger.OrNop(log),
		now:   time.Now,
		queue: make(chan outbound, forwarderQueue),
	}
}

// OutputLine queues an actuator record. It never blocks; when the queue is
// full the record is dropped.
func (f *Forwarder) OutputLine(line string) {
	f.enqueue(outbound{rec: Record{Timestamp: f.now(), Line: line}})
}

// State queues a status snapshot for the retained state topic.
func (f *Forwarder) State(payload []byte) {
	f.enqueue(outbound{state: payload})
}

func (f *Forwarder) enqueue(m outbound) {
	select {
	case f.queue <- m:
	default:
		f.log.Warnw("mqtt forward queue full, dropping message", "record", m.rec.Line)
	}
}

// Run publishes queued messages until ctx is cancelled, then flushes what is
// already queued.
func (f *Forwarder) Run(ctx context.Context) error {
	for {
		select {
		case m := <-f.queue:
			f.send(m)
		case <-ctx.Done():
			for {
				select {
				case m := <-f.queue:
					f.send(m)
				default:
					return nil
				}
			}
		}
	}
}

func (f *Forwarder) send(m outbound) {
	var err error
	if m.state != nil {
		err = f.pub.PublishState(m.state)
	} else {
		err = f.pub.PublishRecord(m.rec)
	}
	// Don't crash on publish failure
	if err != nil {
		f.log.Warnw("mqtt publish failed", "err", err)
	}
}
