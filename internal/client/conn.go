package client

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/kvmon/internal/monitor"
)

const defaultDialTimeout = 5 * time.Second

// Conn is one established connection to a server: blocking line reads
// for reply and monitoring traffic, command writes, and an idempotent
// close.
type Conn interface {
	monitor.Conn
	WriteCommand(name string, args ...string) error
	RemoteAddr() string
}

// ServerError is an error reply sent by the server itself.
type ServerError string

func (e ServerError) Error() string {
	return "server error: " + string(e)
}

// TCPConn is a single plain-TCP connection speaking the store's wire
// protocol. It is safe to Close from a goroutine other than the
// reader; that is how a blocked read gets cancelled.
type TCPConn struct {
	addr   string
	conn   net.Conn
	reader *bufio.Reader
	wmu    sync.Mutex
	closed atomic.Bool
}

// DialOptions configure connect-time setup. Zero values mean no AUTH
// and database 0.
type DialOptions struct {
	Password string
	Database int
	Timeout  time.Duration
}

// Dial connects to addr and performs connect-time AUTH/SELECT. There
// is no pooling and no reconnection; a dropped connection is the
// caller's to replace.
func Dial(addr string, opts DialOptions) (*TCPConn, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	nc, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c := NewConn(nc)

	if opts.Password != "" {
		if err := c.roundTrip("AUTH", opts.Password); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("auth: %w", err)
		}
	}
	if opts.Database > 0 {
		if err := c.roundTrip("SELECT", fmt.Sprintf("%d", opts.Database)); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("select db %d: %w", opts.Database, err)
		}
	}
	return c, nil
}

// NewConn wraps an already established socket.
func NewConn(nc net.Conn) *TCPConn {
	return &TCPConn{
		addr:   nc.RemoteAddr().String(),
		conn:   nc,
		reader: bufio.NewReader(nc),
	}
}

// ReadLine blocks until the server emits one protocol line and returns
// its payload. Status replies lose their '+' marker, error replies
// come back as ServerError, anything else is returned verbatim.
func (c *TCPConn) ReadLine() (string, error) {
	raw, err := c.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	line := strings.TrimRight(raw, "\r\n")
	if line == "" {
		return "", nil
	}
	switch line[0] {
	case '+':
		return line[1:], nil
	case '-':
		return "", ServerError(line[1:])
	default:
		return line, nil
	}
}

// WriteCommand sends one command encoded as a protocol array.
func (c *TCPConn) WriteCommand(name string, args ...string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.conn.Write(encodeCommand(name, args...)); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// roundTrip sends a command and consumes its single reply.
func (c *TCPConn) roundTrip(name string, args ...string) error {
	if err := c.WriteCommand(name, args...); err != nil {
		return err
	}
	_, err := c.ReadLine()
	return err
}

// Close releases the socket. Calling it again is a no-op, so teardown
// paths can all close without coordinating.
func (c *TCPConn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.conn.Close()
}

// RemoteAddr returns the peer address the connection was made to.
func (c *TCPConn) RemoteAddr() string {
	return c.addr
}
