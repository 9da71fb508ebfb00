package stream

import (
	"context"
	"time"

	"github.com/linanwx/notebot/graph"
	"github.com/linanwx/notebot/logger"
)

// Multiplexer serializes the events of one run into frames. It keeps no
// buffer of its own: each frame is written before the next event is read.
type Multiplexer struct {
	now func() time.Time
}

// NewMultiplexer returns a multiplexer stamping frames with the wall clock.
func NewMultiplexer() *Multiplexer {
	return &Multiplexer{now: time.Now}
}

// Pipe writes a frame per event until events is closed. It returns the
// writer's error, the run error carried by an EventError, or ctx.Err() if
// the context ends first. An EventError frame is the last frame written.
func (m *Multiplexer) Pipe(ctx context.Context, events <-chan graph.Event, w FrameWriter) error {
	frames := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				logger.Debug("stream finished", "frames", frames)
				return nil
			}
			f, known := FrameFor(ev, m.now())
			if !known {
				logger.Warn("stream dropping unknown event", "event", describe(ev))
				continue
			}
			if err := w.WriteFrame(ctx, f); err != nil {
				return err
			}
			frames++
			if runErr, ok := ev.(graph.EventError); ok {
				return runErr.Err
			}
		}
	}
}
