package sse

import (
	"context"
	"io"
	"sync"
)

// Source is a pull-based upstream event stream owned by a single relay session.
type Source interface {
	// Next blocks until the next event is available. It returns io.EOF once
	// the upstream has completed normally.
	Next(ctx context.Context) (any, error)

	// Close releases the upstream. No computation continues on its behalf.
	Close() error
}

// Emit pushes one event into a piped source. It blocks until the consumer
// pulls the event and fails once the source has been closed.
type Emit func(event any) error

// ProduceFunc generates events for a piped source. Its return value becomes
// the terminal result of the stream: nil completes it, anything else fails it.
type ProduceFunc func(ctx context.Context, emit Emit) error

type pipe struct {
	events chan any
	done   chan struct{}
	err    error
	cancel context.CancelFunc
	once   sync.Once
}

// Pipe runs produce in its own goroutine and exposes what it emits as a Source.
// The channel between the two is unbuffered, so the producer never runs more
// than one event ahead of the consumer.
func Pipe(ctx context.Context, produce ProduceFunc) Source {
	ctx, cancel := context.WithCancel(ctx)
	p := &pipe{
		events: make(chan any),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	emit := func(event any) error {
		select {
		case p.events <- event:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	go func() {
		defer close(p.done)
		p.err = produce(ctx, emit)
	}()

	return p
}

func (p *pipe) Next(ctx context.Context) (any, error) {
	select {
	case event := <-p.events:
		return event, nil
	case <-p.done:
		if p.err != nil {
			return nil, p.err
		}
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close cancels the producer and waits for it to return.
func (p *pipe) Close() error {
	p.once.Do(p.cancel)
	<-p.done
	return nil
}

type sliceSource struct {
	events []any
	pos    int
}

// FromSlice returns a Source that yields the given events in order.
func FromSlice(events ...any) Source {
	return &sliceSource{events: events}
}

func (s *sliceSource) Next(ctx context.Context) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.events) {
		return nil, io.EOF
	}
	event := s.events[s.pos]
	s.pos++
	return event, nil
}

func (s *sliceSource) Close() error {
	s.pos = len(s.events)
	return nil
}
