package client

import (
	"bufio"
	"errors"
	"net"
	"testing"
)

func pipeConn(t *testing.T) (*TCPConn, net.Conn) {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	c := NewConn(clientSide)
	t.Cleanup(func() {
		_ = c.Close()
		_ = serverSide.Close()
	})
	return c, serverSide
}

func TestEncodeCommand(t *testing.T) {
	tests := []struct {
		name string
		cmd  string
		args []string
		want string
	}{
		{
			name: "no arguments",
			cmd:  "MONITOR",
			want: "*1\r\n$7\r\nMONITOR\r\n",
		},
		{
			name: "with arguments",
			cmd:  "SET",
			args: []string{"foo", "bar"},
			want: "*3\r\n$3\r\nSET\r\n$3\r\nfoo\r\n$3\r\nbar\r\n",
		},
		{
			name: "empty argument keeps its length header",
			cmd:  "SET",
			args: []string{"k", ""},
			want: "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$0\r\n\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(encodeCommand(tt.cmd, tt.args...))
			if got != tt.want {
				t.Errorf("encodeCommand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadLine(t *testing.T) {
	tests := []struct {
		name      string
		wire      string
		want      string
		wantErr   bool
		serverErr bool
	}{
		{name: "status reply loses marker", wire: "+OK\r\n", want: "OK"},
		{name: "monitor line", wire: "+1577836800.5 [0 127.0.0.1:1] \"GET\" \"k\"\r\n", want: `1577836800.5 [0 127.0.0.1:1] "GET" "k"`},
		{name: "error reply", wire: "-ERR unknown command\r\n", wantErr: true, serverErr: true},
		{name: "bare line passes through", wire: "1577836800.5 \"PING\"\r\n", want: `1577836800.5 "PING"`},
		{name: "lf only line", wire: "+OK\n", want: "OK"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, server := pipeConn(t)
			go func() {
				_, _ = server.Write([]byte(tt.wire))
			}()

			got, err := c.ReadLine()
			if tt.wantErr {
				if err == nil {
					t.Fatal("ReadLine() expected error")
				}
				var se ServerError
				if tt.serverErr && !errors.As(err, &se) {
					t.Fatalf("ReadLine() error = %v, want ServerError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadLine() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadLineFailsAfterClose(t *testing.T) {
	c, _ := pipeConn(t)
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := c.ReadLine(); err == nil {
		t.Fatal("ReadLine() after Close should fail")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	c, _ := pipeConn(t)
	if err := c.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("third Close() error = %v", err)
	}
}

func TestCloseUnblocksPendingRead(t *testing.T) {
	c, _ := pipeConn(t)

	readErr := make(chan error, 1)
	go func() {
		_, err := c.ReadLine()
		readErr <- err
	}()

	_ = c.Close()
	if err := <-readErr; err == nil {
		t.Fatal("expected the blocked read to fail after Close")
	}
}

func TestWriteCommandWire(t *testing.T) {
	c, server := pipeConn(t)

	got := make(chan string, 1)
	go func() {
		r := bufio.NewReader(server)
		var lines string
		for i := 0; i < 7; i++ { // *3, $3, SET, $1, k, $1, v
			line, err := r.ReadString('\n')
			if err != nil {
				break
			}
			lines += line
		}
		got <- lines
	}()

	if err := c.WriteCommand("SET", "k", "v"); err != nil {
		t.Fatalf("WriteCommand() error = %v", err)
	}
	want := "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n"
	if g := <-got; g != want {
		t.Errorf("wire = %q, want %q", g, want)
	}
}
