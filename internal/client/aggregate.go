package client

import (
	"errors"
	"strings"
)

// ErrAggregate is returned for operations that need a single node but
// were attempted on an aggregate attachment.
var ErrAggregate = errors.New("operation requires a single-node connection")

// AggregateConn represents a cluster-mode attachment: several node
// addresses behind one handle. kvmon does not route commands across a
// cluster; the type exists so capability checks can tell a routed
// attachment from a single node, and so teardown can release every
// member connection.
type AggregateConn struct {
	addrs []string
	conns []Conn
}

// NewAggregate groups established node connections.
func NewAggregate(conns ...Conn) *AggregateConn {
	a := &AggregateConn{conns: conns}
	for _, c := range conns {
		a.addrs = append(a.addrs, c.RemoteAddr())
	}
	return a
}

// Nodes returns the member node addresses. Its presence is what marks
// the connection as routed.
func (a *AggregateConn) Nodes() []string {
	return a.addrs
}

func (a *AggregateConn) ReadLine() (string, error) {
	return "", ErrAggregate
}

func (a *AggregateConn) WriteCommand(name string, args ...string) error {
	return ErrAggregate
}

// Close releases every member connection. Member closes are
// idempotent, so Close is too.
func (a *AggregateConn) Close() error {
	var firstErr error
	for _, c := range a.conns {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (a *AggregateConn) RemoteAddr() string {
	return strings.Join(a.addrs, ",")
}
