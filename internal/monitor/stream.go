package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
)

// Stream drives the iterator on a goroutine and delivers events on the
// returned channel until ctx ends, Stop is called elsewhere, or the
// connection fails. The consumer is stopped before the channel closes,
// so a Stream caller never has to arrange teardown separately.
//
// Stream claims the iterator: mixing it with manual Current/Next calls
// is not supported.
func (c *Consumer) Stream(ctx context.Context) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		defer c.Stop()

		// Unblock the pending read when the context ends.
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
				c.Stop()
			case <-done:
			}
		}()

		for c.Valid() {
			ev, err := c.Current()
			if err != nil {
				if c.Valid() && !isClosedConn(err) {
					slog.Error("monitor stream read failed", "error", err)
				}
				return
			}
			select {
			case out <- ev:
				c.Next()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// isClosedConn reports whether err is the ordinary result of Stop
// closing the socket under a blocked read.
func isClosedConn(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe)
}
