package monitor

// Event is one entry from the server's monitoring stream: a single
// command executed somewhere on the server, as reported on the
// monitoring connection. Events are value types and never mutated
// after the parser builds them.
type Event struct {
	// Timestamp is the server-reported execution time, in seconds with
	// fractional precision as emitted by the server.
	Timestamp float64 `json:"timestamp"`
	// Database is the logical database index the command ran against.
	// The oldest line format carries no index; it defaults to 0.
	Database int `json:"database"`
	// Client is the address of the client that issued the command.
	// Empty on servers that predate the [db client] line format.
	Client string `json:"client,omitempty"`
	// Command is the command name with its surrounding quotes stripped.
	Command string `json:"command"`
	// Arguments is the remainder of the line, still quoted and escaped
	// exactly as the server wrote it.
	Arguments string `json:"arguments,omitempty"`
	// Raw is the unmodified line as read from the connection.
	Raw string `json:"-"`
}

// HasClient reports whether the line carried an originating client
// address. Old servers omit it.
func (e Event) HasClient() bool {
	return e.Client != ""
}
