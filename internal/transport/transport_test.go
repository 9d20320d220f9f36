package transport

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingReceiver struct {
	mu        sync.Mutex
	lines     []string
	connected []bool
}

func (r *recordingReceiver) HandleLine(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

func (r *recordingReceiver) ConnectionChanged(c bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected = append(r.connected, c)
}

func (r *recordingReceiver) snapshot() ([]string, []bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...), append([]bool(nil), r.connected...)
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met")
}

func TestReadLines_SplitsOnCRAndLF(t *testing.T) {
	r := &recordingReceiver{}
	err := readLines(strings.NewReader("relay is ON\r\nunit is OFF\r\n\rSYSTEM ERROR 42\nack"), r)
	if err == nil {
		t.Fatalf("expected terminal error (EOF)")
	}
	lines, _ := r.snapshot()
	want := []string{"relay is ON", "unit is OFF", "SYSTEM ERROR 42", "ack"}
	if len(lines) != len(want) {
		t.Fatalf("got %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestNextBackoff_Caps(t *testing.T) {
	if got := nextBackoff(0); got != minBackoff {
		t.Fatalf("got %v", got)
	}
	if got := nextBackoff(minBackoff); got != 2*minBackoff {
		t.Fatalf("got %v", got)
	}
	if got := nextBackoff(maxBackoff); got != maxBackoff {
		t.Fatalf("got %v", got)
	}
}

func TestTCPClient_SendBeforeConnect(t *testing.T) {
	c := NewTCPClient("127.0.0.1:1", nil)
	err := c.Send(context.Background(), []byte("PowerPoll\r"))
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestTCPClient_RoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write([]byte("relay is ON\r"))
		rd := bufio.NewReader(conn)
		s, err := rd.ReadString('\r')
		if err == nil {
			received <- s
		}
		time.Sleep(200 * time.Millisecond)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recv := &recordingReceiver{}
	c := NewTCPClient(ln.Addr().String(), nil)
	go c.Run(ctx, recv)

	eventually(t, func() bool {
		lines, conn := recv.snapshot()
		return len(conn) > 0 && conn[0] && len(lines) == 1
	})
	lines, _ := recv.snapshot()
	if lines[0] != "relay is ON" {
		t.Fatalf("got line %q", lines[0])
	}

	sendCtx, sendCancel := context.WithTimeout(ctx, time.Second)
	defer sendCancel()
	if err := c.Send(sendCtx, []byte("PowerOn\r")); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case got := <-received:
		if got != "PowerOn\r" {
			t.Fatalf("server got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server did not receive command")
	}

	// the server closes after its sleep; the client must report the drop
	eventually(t, func() bool {
		_, conn := recv.snapshot()
		return len(conn) >= 2 && !conn[1]
	})
}
