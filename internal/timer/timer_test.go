package timer

import (
	"errors"
	"testing"
	"time"
)

const testInterval = 10 * time.Millisecond

// collect reads notifications until Expired or the deadline passes.
func collect(t *testing.T, tm *Timer, deadline time.Duration) []Notification {
	t.Helper()
	var got []Notification
	timeout := time.After(deadline)
	for {
		select {
		case n := <-tm.C():
			got = append(got, n)
			if n.Kind == Expired {
				return got
			}
		case <-timeout:
			return got
		}
	}
}

func TestStartRejectsNonPositive(t *testing.T) {
	tm := New(WithInterval(testInterval))
	for _, steps := range []int{0, -1} {
		if err := tm.Start(steps); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("Start(%d): got %v, want ErrOutOfRange", steps, err)
		}
	}
	if tm.Running() {
		t.Error("timer should be idle after rejected Start")
	}
}

func TestTicksThenExpired(t *testing.T) {
	tm := New(WithInterval(testInterval))
	if err := tm.Start(3); err != nil {
		t.Fatalf("Start: %v", err)
	}

	got := collect(t, tm, time.Second)
	if len(got) != 4 {
		t.Fatalf("expected 3 ticks + expiry, got %d: %+v", len(got), got)
	}
	for i := 0; i < 3; i++ {
		if got[i].Kind != Tick {
			t.Errorf("notification %d: got %s, want TICK", i, got[i].Kind)
		}
		if got[i].Elapsed != i+1 {
			t.Errorf("notification %d: elapsed got %d, want %d", i, got[i].Elapsed, i+1)
		}
		if got[i].Remaining != 3-(i+1) {
			t.Errorf("notification %d: remaining got %d, want %d", i, got[i].Remaining, 3-(i+1))
		}
	}
	if got[3].Kind != Expired {
		t.Errorf("last notification: got %s, want EXPIRED", got[3].Kind)
	}
	if tm.Running() {
		t.Error("timer should be idle after expiry")
	}

	// Nothing follows the expiry.
	select {
	case n := <-tm.C():
		t.Errorf("unexpected notification after expiry: %+v", n)
	case <-time.After(5 * testInterval):
	}
}

func TestStartWhileRunning(t *testing.T) {
	tm := New(WithInterval(testInterval))
	if err := tm.Start(10); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer tm.Stop()

	if err := tm.Start(10); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second Start: got %v, want ErrInvalidState", err)
	}
}

func TestStopSilencesCountdown(t *testing.T) {
	tm := New(WithInterval(testInterval))
	if err := tm.Start(5); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Let one tick through, then stop without reading further.
	n := <-tm.C()
	if n.Kind != Tick || n.Elapsed != 1 {
		t.Fatalf("first notification: got %+v", n)
	}
	tm.Stop()

	select {
	case n := <-tm.C():
		t.Errorf("notification after Stop: %+v", n)
	case <-time.After(10 * testInterval):
	}
	if tm.Running() {
		t.Error("timer should be idle after Stop")
	}
}

func TestStopWhenIdle(t *testing.T) {
	tm := New()
	tm.Stop()
	tm.Stop()
	if tm.Running() {
		t.Error("idle timer reports running")
	}
}

func TestRestartAfterExpiry(t *testing.T) {
	tm := New(WithInterval(testInterval))
	if err := tm.Start(1); err != nil {
		t.Fatalf("Start: %v", err)
	}
	got := collect(t, tm, time.Second)
	if len(got) != 2 || got[1].Kind != Expired {
		t.Fatalf("first run: got %+v", got)
	}

	// The receiver may start again straight after seeing Expired.
	if err := tm.Start(2); err != nil {
		t.Fatalf("restart: %v", err)
	}
	got = collect(t, tm, time.Second)
	if len(got) != 3 {
		t.Fatalf("second run: expected 3 notifications, got %+v", got)
	}
	if got[0].Elapsed != 1 || got[0].Remaining != 1 {
		t.Errorf("second run restarted counting wrong: %+v", got[0])
	}
}

func TestRestartAfterStop(t *testing.T) {
	tm := New(WithInterval(testInterval))
	if err := tm.Start(100); err != nil {
		t.Fatalf("Start: %v", err)
	}
	tm.Stop()
	if err := tm.Start(1); err != nil {
		t.Fatalf("Start after Stop: %v", err)
	}
	got := collect(t, tm, time.Second)
	if len(got) != 2 {
		t.Fatalf("expected tick + expiry, got %+v", got)
	}
	if got[0].Elapsed != 1 {
		t.Errorf("stale tick leaked from stopped run: %+v", got[0])
	}
}

func TestTickSpacing(t *testing.T) {
	interval := 50 * time.Millisecond
	tm := New(WithInterval(interval))
	start := time.Now()
	if err := tm.Start(4); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var stamps []time.Duration
	for n := range tm.C() {
		stamps = append(stamps, time.Since(start))
		if n.Kind == Expired {
			break
		}
	}

	// Ticks land on multiples of the interval; no cumulative drift.
	for i, at := range stamps[:4] {
		want := time.Duration(i+1) * interval
		if at < want-5*time.Millisecond || at > want+40*time.Millisecond {
			t.Errorf("tick %d at %v, want about %v", i+1, at, want)
		}
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Tick, "TICK"},
		{Expired, "EXPIRED"},
		{Kind(0), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String(): got %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestDefaultInterval(t *testing.T) {
	if got := New().Interval(); got != time.Second {
		t.Errorf("default interval: got %v, want 1s", got)
	}
	if got := New(WithInterval(-1)).Interval(); got != time.Second {
		t.Errorf("negative interval should be ignored, got %v", got)
	}
}
