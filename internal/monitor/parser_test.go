package monitor

import (
	"errors"
	"testing"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		timestamp float64
		database  int
		client    string
		command   string
		arguments string
	}{
		{
			name:      "legacy format",
			line:      `1577836800.123456 (db 0) "GET" "foo"`,
			timestamp: 1577836800.123456,
			database:  0,
			client:    "",
			command:   "GET",
			arguments: `"foo"`,
		},
		{
			name:      "legacy format nonzero db",
			line:      `1323367530.939050 (db 15) "SET" "key" "value"`,
			timestamp: 1323367530.939050,
			database:  15,
			command:   "SET",
			arguments: `"key" "value"`,
		},
		{
			name:      "current format",
			line:      `1577836800.654321 [0 127.0.0.1:6379] "SET" "foo" "bar"`,
			timestamp: 1577836800.654321,
			database:  0,
			client:    "127.0.0.1:6379",
			command:   "SET",
			arguments: `"foo" "bar"`,
		},
		{
			name:      "current format unix socket client",
			line:      `1339518087.877697 [3 unix:/var/run/kv.sock] "DEL" "sess"`,
			timestamp: 1339518087.877697,
			database:  3,
			client:    "unix:/var/run/kv.sock",
			command:   "DEL",
			arguments: `"sess"`,
		},
		{
			name:      "current format lua client",
			line:      `1339518087.877697 [0 lua] "GET" "counter"`,
			timestamp: 1339518087.877697,
			database:  0,
			client:    "lua",
			command:   "GET",
			arguments: `"counter"`,
		},
		{
			name:      "oldest format without any section",
			line:      `1323367530.939050 "PING"`,
			timestamp: 1323367530.939050,
			database:  0,
			client:    "",
			command:   "PING",
		},
		{
			name:      "no arguments",
			line:      `1577836800.000001 [2 10.0.0.9:51200] "FLUSHDB"`,
			timestamp: 1577836800.000001,
			database:  2,
			client:    "10.0.0.9:51200",
			command:   "FLUSHDB",
		},
		{
			name:      "arguments keep quoting and escapes",
			line:      `1577836800.5 [0 127.0.0.1:40404] "SET" "k" "a\"b\x00c"`,
			timestamp: 1577836800.5,
			client:    "127.0.0.1:40404",
			command:   "SET",
			arguments: `"k" "a\"b\x00c"`,
		},
		{
			name:      "bracketed argument is not mistaken for the client section",
			line:      `1577836800.5 "LPUSH" "queue" "[1 two]"`,
			timestamp: 1577836800.5,
			database:  0,
			command:   "LPUSH",
			arguments: `"queue" "[1 two]"`,
		},
		{
			name:      "client section wins over a later db pattern in an argument",
			line:      `1577836800.5 [2 10.0.0.1:50000] "SET" "k" "x (db 9) y"`,
			timestamp: 1577836800.5,
			database:  2,
			client:    "10.0.0.1:50000",
			command:   "SET",
			arguments: `"k" "x (db 9) y"`,
		},
		{
			name:      "db section wins over a later bracket pattern in an argument",
			line:      `1577836800.5 (db 3) "LPUSH" "q" "v [1 two] w"`,
			timestamp: 1577836800.5,
			database:  3,
			command:   "LPUSH",
			arguments: `"q" "v [1 two] w"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := parseLine(tt.line, false)
			if err != nil {
				t.Fatalf("parseLine(%q) error = %v", tt.line, err)
			}
			if ev.Timestamp != tt.timestamp {
				t.Errorf("Timestamp = %v, want %v", ev.Timestamp, tt.timestamp)
			}
			if ev.Database != tt.database {
				t.Errorf("Database = %d, want %d", ev.Database, tt.database)
			}
			if ev.Client != tt.client {
				t.Errorf("Client = %q, want %q", ev.Client, tt.client)
			}
			if ev.Command != tt.command {
				t.Errorf("Command = %q, want %q", ev.Command, tt.command)
			}
			if ev.Arguments != tt.arguments {
				t.Errorf("Arguments = %q, want %q", ev.Arguments, tt.arguments)
			}
			if ev.Raw != tt.line {
				t.Errorf("Raw = %q, want %q", ev.Raw, tt.line)
			}
		})
	}
}

func TestParseLineLenientDegradation(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Event
	}{
		{
			name: "single token",
			line: "OK",
			want: Event{Raw: "OK"},
		},
		{
			name: "numeric single token keeps its timestamp",
			line: "1577836800.5",
			want: Event{Raw: "1577836800.5", Timestamp: 1577836800.5},
		},
		{
			name: "unparseable timestamp",
			line: `garbage "GET" "foo"`,
			want: Event{Raw: `garbage "GET" "foo"`, Command: "GET", Arguments: `"foo"`},
		},
		{
			name: "unquoted command kept as-is",
			line: `1577836800.5 GET "foo"`,
			want: Event{Raw: `1577836800.5 GET "foo"`, Timestamp: 1577836800.5, Command: "GET", Arguments: `"foo"`},
		},
		{
			name: "empty line",
			line: "",
			want: Event{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := parseLine(tt.line, false)
			if err != nil {
				t.Fatalf("parseLine(%q) error = %v, lenient mode must not fail", tt.line, err)
			}
			if ev != tt.want {
				t.Errorf("parseLine(%q) = %+v, want %+v", tt.line, ev, tt.want)
			}
		})
	}
}

func TestParseLineStrict(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantErr bool
	}{
		{name: "well formed current line", line: `1577836800.5 [0 127.0.0.1:1] "GET" "k"`},
		{name: "well formed legacy line", line: `1577836800.5 (db 1) "GET" "k"`},
		{name: "single token", line: "OK", wantErr: true},
		{name: "bad timestamp", line: `garbage "GET" "k"`, wantErr: true},
		{name: "unquoted command", line: `1577836800.5 GET "k"`, wantErr: true},
		{name: "empty line", line: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseLine(tt.line, true)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedLine) {
					t.Fatalf("parseLine(%q) error = %v, want ErrMalformedLine", tt.line, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseLine(%q) error = %v", tt.line, err)
			}
		})
	}
}
