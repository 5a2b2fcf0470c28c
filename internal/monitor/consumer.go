package monitor

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ActivationCommand is the command that switches a connection into
// monitoring mode. From then on the server streams one line per
// command executed anywhere on that server.
const ActivationCommand = "MONITOR"

// ErrMonitorUnsupported is returned by New when the supplied endpoint
// cannot enter monitoring mode.
var ErrMonitorUnsupported = errors.New("monitoring not supported")

// Conn is the established connection the consumer reads from. The
// consumer borrows it: it never dials, and it closes it only through
// Stop. Close must be safe to call more than once.
type Conn interface {
	ReadLine() (string, error)
	Close() error
}

// Aggregate marks connections that fan commands out across several
// nodes. A monitoring session is tied to a single node, so the
// capability check rejects them.
type Aggregate interface {
	Nodes() []string
}

// Endpoint is the slice of a client the consumer needs: the active
// connection, the command registry check, and one-shot command
// execution for activation. *client.Client satisfies it.
type Endpoint interface {
	Connection() Conn
	Supports(command string) bool
	Execute(command string, args ...string) error
}

// Consumer is a single-reader, pull-based view of a monitoring
// session. Construction activates the session; the caller then drives
// the Valid/Current/Key/Next cycle (or Stream) and finally Stop.
//
// A Consumer is not safe for concurrent iteration. The one concession
// to other goroutines is Stop, which may be called from anywhere to
// disconnect and unblock a pending Current.
type Consumer struct {
	endpoint Endpoint
	conn     Conn
	strict   bool
	active   atomic.Bool
	position int64
}

// Option configures a Consumer before activation.
type Option func(*Consumer)

// Strict makes the parser reject malformed lines with ErrMalformedLine
// instead of degrading to zero-valued fields.
func Strict() Option {
	return func(c *Consumer) { c.strict = true }
}

// New checks that the endpoint can monitor, sends the activation
// command and returns a live consumer. The capability check runs
// before anything is written: an aggregate connection or a registry
// without MONITOR fails with ErrMonitorUnsupported and no command is
// sent. A transport failure during activation propagates untranslated.
//
// The server allows one monitoring session per connection; starting a
// second consumer on the same connection is a protocol error the
// server itself reports.
func New(endpoint Endpoint, opts ...Option) (*Consumer, error) {
	conn := endpoint.Connection()
	if conn == nil {
		return nil, fmt.Errorf("%w: endpoint has no connection", ErrMonitorUnsupported)
	}
	if _, ok := conn.(Aggregate); ok {
		return nil, fmt.Errorf("%w: aggregate connections route across nodes", ErrMonitorUnsupported)
	}
	if !endpoint.Supports(ActivationCommand) {
		return nil, fmt.Errorf("%w: command registry does not know %s", ErrMonitorUnsupported, ActivationCommand)
	}

	c := &Consumer{endpoint: endpoint, conn: conn}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.endpoint.Execute(ActivationCommand); err != nil {
		return nil, err
	}
	c.active.Store(true)
	return c, nil
}

// Valid reports whether the session is still live. Once Stop has run
// it stays false; iteration must not resume.
func (c *Consumer) Valid() bool {
	return c.active.Load()
}

// Rewind is a no-op. The stream has no notion of restarting; the
// method exists only so the consumer fits generic iteration shapes.
func (c *Consumer) Rewind() {}

// Key returns the pull position, starting at 0. It advances only
// through Next, never through errors in the underlying stream.
func (c *Consumer) Key() int64 {
	return c.position
}

// Next advances the position counter. It does not touch the
// connection.
func (c *Consumer) Next() {
	c.position++
}

// Current blocks until the server emits the next monitored command and
// returns it parsed. Every call performs a fresh read; calling it
// twice without Next in between consumes two events. There is no
// local timeout: a connection that goes quiet blocks until Stop
// closes it, at which point the read's error is returned as-is.
func (c *Consumer) Current() (Event, error) {
	line, err := c.conn.ReadLine()
	if err != nil {
		return Event{}, err
	}
	return parseLine(line, c.strict)
}

// Stop ends the session: it marks the consumer invalid and disconnects
// the underlying connection, unblocking any pending Current. Stop is
// idempotent and never fails; repeated calls disconnect again, which
// the connection contract defines as a no-op.
func (c *Consumer) Stop() {
	c.active.Store(false)
	_ = c.conn.Close()
}

// Close implements io.Closer so a consumer can sit behind a defer.
func (c *Consumer) Close() error {
	c.Stop()
	return nil
}
