package hw

import "sync"

// RecordingOutput records every line for test assertions. Safe for
// concurrent use.
type RecordingOutput struct {
	mu    sync.Mutex
	lines []string
}

// NewRecordingOutput creates an empty RecordingOutput.
func NewRecordingOutput() *RecordingOutput {
	return &RecordingOutput{}
}

// OutputLine records the line.
func (r *RecordingOutput) OutputLine(line string) {
	r.mu.Lock()
	r.lines = append(r.lines, line)
	r.mu.Unlock()
}

// Lines returns a copy of the recorded lines.
func (r *RecordingOutput) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// Count returns how many times line was recorded.
func (r *RecordingOutput) Count(line string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, l := range r.lines {
		if l == line {
			n++
		}
	}
	return n
}

// Reset clears recorded lines.
func (r *RecordingOutput) Reset() {
	r.mu.Lock()
	r.lines = nil
	r.mu.Unlock()
}

// FakeSwitch records every Set call.
type FakeSwitch struct {
	mu sync.Mutex

	// States contains every value passed to Set.
	States []bool

	// SetError, if set, is returned by Set and the state is not recorded.
	SetError error
}

// Set records on.
func (f *FakeSwitch) Set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.States = append(f.States, on)
	return nil
}

// Fail makes subsequent Set calls return err (nil to recover).
func (f *FakeSwitch) Fail(err error) {
	f.mu.Lock()
	f.SetError = err
	f.mu.Unlock()
}

// Snapshot returns a copy of the recorded states.
func (f *FakeSwitch) Snapshot() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bool, len(f.States))
	copy(out, f.States)
	return out
}
