package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"controlling_relay/internal/logger"
)

const dialTimeout = 10 * time.Second

// TCPClient keeps a TCP connection to the relay, reconnecting when it drops.
type TCPClient struct {
	addr string
	log  *logger.Logger

	mu   sync.Mutex
	conn net.Conn
}

// NewTCPClient returns a client for host:port. Nothing is dialed until Run.
func NewTCPClient(addr string, log *logger.Logger) *TCPClient {
	if log == nil {
		log = logger.Nop()
	}
	return &TCPClient{addr: addr, log: log}
}

// Run dials, reads lines into recv and reconnects with backoff until ctx is canceled.
func (c *TCPClient) Run(ctx context.Context, recv Receiver) {
	var backoff time.Duration
	for {
		if ctx.Err() != nil {
			return
		}

		d := net.Dialer{Timeout: dialTimeout}
		conn, err := d.DialContext(ctx, "tcp", c.addr)
		if err != nil {
			backoff = nextBackoff(backoff)
			c.log.Warnw("tcp_dial_failed", "addr", c.addr, "err", err, "retry_in", backoff)
			if !sleepCtx(ctx, backoff) {
				return
			}
			continue
		}
		backoff = 0

		c.setConn(conn)
		c.log.Infow("tcp_connected", "addr", c.addr)
		recv.ConnectionChanged(true)

		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		err = readLines(conn, recv)
		stop()

		c.setConn(nil)
		_ = conn.Close()
		recv.ConnectionChanged(false)
		if ctx.Err() != nil {
			return
		}
		c.log.Warnw("tcp_disconnected", "addr", c.addr, "err", err)

		backoff = nextBackoff(backoff)
		if !sleepCtx(ctx, backoff) {
			return
		}
	}
}

// Send writes payload, honoring the ctx deadline as the write deadline.
func (c *TCPClient) Send(ctx context.Context, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if _, err := c.conn.Write(payload); err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return ErrSendTimeout
		}
		return fmt.Errorf("write %s: %w", c.addr, err)
	}
	return nil
}

func (c *TCPClient) setConn(conn net.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
