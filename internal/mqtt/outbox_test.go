package mqtt

import (
	"reflect"
	"testing"
)

func record(line string) pending {
	return pending{topic: TopicOutput, payload: []byte(line)}
}

func payloads(ms []pending) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = string(m.payload)
	}
	return out
}

func TestOutboxEmptyTake(t *testing.T) {
	o := newOutbox(4)
	if got := o.take(); got != nil {
		t.Errorf("expected nil from empty outbox, got %d messages", len(got))
	}
}

func TestOutboxKeepsOrder(t *testing.T) {
	o := newOutbox(4)
	for _, line := range []string{"Light is turned on", "PowerTube works with 50 W", "Display shows: 00:59"} {
		if o.add(record(line)) {
			t.Fatalf("unexpected overflow adding %q", line)
		}
	}
	if o.len() != 3 {
		t.Errorf("len: got %d, want 3", o.len())
	}

	want := []string{"Light is turned on", "PowerTube works with 50 W", "Display shows: 00:59"}
	if got := payloads(o.take()); !reflect.DeepEqual(got, want) {
		t.Errorf("take: got %q, want %q", got, want)
	}
	if got := o.take(); got != nil {
		t.Errorf("second take: got %d messages", len(got))
	}
}

func TestOutboxOverwritesOldest(t *testing.T) {
	o := newOutbox(3)
	lines := []string{"00:05", "00:04", "00:03", "00:02", "00:01"}
	var overflows int
	for _, l := range lines {
		if o.add(record(l)) {
			overflows++
		}
	}
	if overflows != 1 {
		t.Errorf("first-overflow reports: got %d, want 1", overflows)
	}
	want := []string{"00:03", "00:02", "00:01"}
	if got := payloads(o.take()); !reflect.DeepEqual(got, want) {
		t.Errorf("take: got %q, want %q", got, want)
	}

	// take resets the overflow report.
	for _, l := range lines[:4] {
		o.add(record(l))
	}
	if o.len() != 3 {
		t.Errorf("len after refill: got %d", o.len())
	}
}

func TestOutboxCollapsesState(t *testing.T) {
	o := newOutbox(2)
	o.add(pending{topic: TopicState, payload: []byte(`{"state":"setting_power"}`), retained: true})
	o.add(record("Display shows: 50 W"))
	o.add(pending{topic: TopicState, payload: []byte(`{"state":"setting_time"}`), retained: true})

	got := o.take()
	if len(got) != 2 {
		t.Fatalf("take: got %d messages, want record plus one state", len(got))
	}
	if got[0].topic != TopicOutput {
		t.Errorf("first: got topic %s", got[0].topic)
	}
	last := got[1]
	if last.topic != TopicState || string(last.payload) != `{"state":"setting_time"}` || !last.retained {
		t.Errorf("state: got %+v", last)
	}
}

func TestOutboxStateNeverOverflows(t *testing.T) {
	o := newOutbox(1)
	for i := 0; i < 10; i++ {
		if o.add(pending{topic: TopicState, payload: []byte{byte(i)}}) {
			t.Fatal("state snapshots should not report overflow")
		}
	}
	if o.len() != 1 {
		t.Errorf("len: got %d, want 1", o.len())
	}
}

func TestOutboxSystemEventsQueue(t *testing.T) {
	o := newOutbox(4)
	o.add(pending{topic: TopicSystem, payload: []byte("STARTUP"), qos: 1, retained: true})
	o.add(record("Light is turned on"))

	got := o.take()
	if len(got) != 2 || got[0].topic != TopicSystem || got[0].qos != 1 {
		t.Errorf("take: got %+v", got)
	}
}
