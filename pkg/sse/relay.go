package sse

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// State is the lifecycle position of a relay session.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Sink accepts encoded frames. http.ResponseWriter values that implement
// http.Flusher (including gin's) satisfy it.
type Sink interface {
	io.Writer
	Flush()
}

// Session relays one Source into one Sink.
type Session struct {
	src    Source
	sink   Sink
	logger zerolog.Logger

	state  State
	frames int
}

// NewSession creates an idle session. The session takes ownership of src.
func NewSession(src Source, sink Sink, logger zerolog.Logger) *Session {
	return &Session{
		src:    src,
		sink:   sink,
		logger: logger,
	}
}

// State returns the current state of the session.
func (s *Session) State() State {
	return s.state
}

// Frames returns the number of event frames written, excluding the sentinel.
func (s *Session) Frames() int {
	return s.frames
}

// Run pulls events until the source is exhausted, fails, or the sink stops
// accepting writes. It returns a non-nil error only when the session ends
// Failed; a cancelled session is not an error.
func (s *Session) Run(ctx context.Context) error {
	if s.state != StateIdle {
		return fmt.Errorf("session already %s", s.state)
	}
	defer s.src.Close()

	s.state = StateStreaming

	for {
		if ctx.Err() != nil {
			s.cancel("context done")
			return nil
		}

		event, err := s.src.Next(ctx)
		if errors.Is(err, io.EOF) {
			if err := s.write(DoneFrame); err != nil {
				s.cancel("sentinel write rejected")
				return nil
			}
			s.state = StateCompleted
			s.logger.Debug().Int("frames", s.frames).Msg("Relay session completed")
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				s.cancel("context done")
				return nil
			}
			s.state = StateFailed
			return fmt.Errorf("upstream source failed after %d frames: %w", s.frames, err)
		}

		frame, err := EncodeFrame(event)
		if err != nil {
			s.state = StateFailed
			return err
		}

		if err := s.write(frame); err != nil {
			s.cancel("frame write rejected")
			return nil
		}
		s.frames++
	}
}

func (s *Session) write(frame []byte) error {
	n, err := s.sink.Write(frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return io.ErrShortWrite
	}
	s.sink.Flush()
	return nil
}

func (s *Session) cancel(reason string) {
	s.state = StateCancelled
	s.logger.Debug().Int("frames", s.frames).Str("reason", reason).Msg("Relay session cancelled")
}
