package hub

import "github.com/user/kvmon/internal/monitor"

// EventMessage carries one monitored command to websocket clients.
type EventMessage struct {
	Type  string        `json:"type"`
	Event monitor.Event `json:"event"`
	Seq   int64         `json:"seq"`
}

// StatsMessage is sent on connect and on request.
type StatsMessage struct {
	Type    string `json:"type"`
	Target  string `json:"target"`
	Clients int    `json:"clients"`
	Events  int64  `json:"events"`
}

// ClientMessage is anything a websocket client sends us.
type ClientMessage struct {
	Type string `json:"type"`
	// Commands filters the stream to these command names. Empty means
	// everything.
	Commands []string `json:"commands,omitempty"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type hubBroadcast struct {
	data    []byte
	command string
}
