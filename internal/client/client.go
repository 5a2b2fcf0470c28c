package client

import (
	"fmt"

	"github.com/user/kvmon/internal/monitor"
)

// Client pairs one established connection with a command registry.
// It deliberately stays small: kvmon only ever executes connect-time
// setup and the monitoring activation command, so there is no reply
// decoding beyond single-line replies and no pipelining.
type Client struct {
	conn Conn
	reg  *Registry
}

// New wraps an established connection. A nil registry gets the
// default command set.
func New(conn Conn, reg *Registry) *Client {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Client{conn: conn, reg: reg}
}

// Connection exposes the underlying connection. The caller owns its
// lifetime; a monitor consumer borrows it.
func (c *Client) Connection() monitor.Conn {
	return c.conn
}

// Registry returns the client's command factory.
func (c *Client) Registry() *Registry {
	return c.reg
}

// Supports reports whether the client's command factory can build the
// named command.
func (c *Client) Supports(command string) bool {
	return c.reg.Supports(command)
}

// Execute sends one command and consumes its single-line reply. A
// server error reply comes back as ServerError; transport failures
// propagate as-is.
func (c *Client) Execute(command string, args ...string) error {
	if !c.reg.Supports(command) {
		return fmt.Errorf("command %q not in registry", command)
	}
	if err := c.conn.WriteCommand(command, args...); err != nil {
		return err
	}
	_, err := c.conn.ReadLine()
	return err
}

// Close releases the client's connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
