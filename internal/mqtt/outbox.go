package mqtt

// pending is a serialized message waiting for the broker.
type pending struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds messages published while the broker is unreachable. Records
// and system events queue in a fixed ring with the oldest overwritten first.
// State snapshots collapse to the newest, which is the only one a late
// subscriber needs. Not safe for concurrent use; the caller synchronizes.
type outbox struct {
	ring     []pending
	start    int // oldest queued message
	n        int
	state    *pending
	overflow bool // a message was overwritten since the last take
}

func newOutbox(capacity int) *outbox {
	return &outbox{ring: make([]pending, capacity)}
}

// add queues m. It reports true for the first overwrite since the last take.
func (o *outbox) add(m pending) bool {
	if m.topic == TopicState {
		o.state = &m
		return false
	}
	if o.n < len(o.ring) {
		o.ring[(o.start+o.n)%len(o.ring)] = m
		o.n++
		return false
	}
	o.ring[o.start] = m
	o.start = (o.start + 1) % len(o.ring)
	first := !o.overflow
	o.overflow = true
	return first
}

// take empties the outbox, oldest first, with the state snapshot last.
func (o *outbox) take() []pending {
	size := o.n
	if o.state != nil {
		size++
	}
	if size == 0 {
		return nil
	}
	out := make([]pending, 0, size)
	for i := 0; i < o.n; i++ {
		out = append(out, o.ring[(o.start+i)%len(o.ring)])
	}
	if o.state != nil {
		out = append(out, *o.state)
	}
	o.start, o.n, o.state, o.overflow = 0, 0, nil, false
	return out
}

func (o *outbox) len() int {
	if o.state != nil {
		return o.n + 1
	}
	return o.n
}
