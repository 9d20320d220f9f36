// Package transport moves lines between the relay and the protocol adapter.
package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotConnected is returned by Send while no connection is up.
	ErrNotConnected = errors.New("transport not connected")

	// ErrSendTimeout is returned when a write does not complete in time.
	ErrSendTimeout = errors.New("send timed out")
)

// Receiver consumes what a transport reads and its connection changes.
type Receiver interface {
	HandleLine(line string)
	ConnectionChanged(connected bool)
}

// Transport is a line-oriented link to the device. Run owns the connection
// until ctx is canceled; Send may be called from any goroutine.
type Transport interface {
	Run(ctx context.Context, recv Receiver)
	Send(ctx context.Context, payload []byte) error
}

var (
	_ Transport = (*TCPClient)(nil)
	_ Transport = (*SerialPort)(nil)
)

// Reconnect backoff bounds.
const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 30 * time.Second
)

func nextBackoff(cur time.Duration) time.Duration {
	if cur < minBackoff {
		return minBackoff
	}
	cur *= 2
	if cur > maxBackoff {
		return maxBackoff
	}
	return cur
}

// scanLines splits on CR, LF or CRLF.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		adv := i + 1
		if data[i] == '\r' && adv < len(data) && data[adv] == '\n' {
			adv++
		}
		return adv, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// readLines forwards non-empty lines from r to recv until r fails.
func readLines(r io.Reader, recv Receiver) error {
	sc := bufio.NewScanner(r)
	sc.Split(scanLines)
	for sc.Scan() {
		line := string(bytes.TrimSpace(sc.Bytes()))
		if line == "" {
			continue
		}
		recv.HandleLine(line)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}
