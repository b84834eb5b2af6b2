package gpio

import (
	"context"
	"sync"
)

// FakeInputs is a test double that delivers scripted and injected inputs.
type FakeInputs struct {
	// Script is delivered in order as soon as Watch starts.
	Script []Input

	inject chan Input

	mu     sync.Mutex
	closed bool
}

// NewFakeInputs creates a FakeInputs that delivers script first.
func NewFakeInputs(script ...Input) *FakeInputs {
	return &FakeInputs{Script: script, inject: make(chan Input)}
}

// Inject delivers in to the running Watch. It blocks until delivered or ctx
// is cancelled.
func (f *FakeInputs) Inject(ctx context.Context, in Input) error {
	select {
	case f.inject <- in:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Watch calls sink for each scripted input, then for each injected input,
// until ctx is cancelled.
func (f *FakeInputs) Watch(ctx context.Context, sink func(Input)) error {
	for _, in := range f.Script {
		if ctx.Err() != nil {
			return nil
		}
		sink(in)
	}
	for {
		select {
		case in := <-f.inject:
			sink(in)
		case <-ctx.Done():
			return nil
		}
	}
}

// Close marks the source as closed.
func (f *FakeInputs) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (f *FakeInputs) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
