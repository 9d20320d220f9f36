package transport

import (
	"context"
	"fmt"
	"sync"

	"controlling_relay/internal/logger"

	"go.bug.st/serial"
)

// SerialPort talks to a relay wired to a serial line (8N1).
type SerialPort struct {
	path string
	baud int
	log  *logger.Logger

	mu   sync.Mutex
	port serial.Port
}

// NewSerialPort returns a port wrapper. The device is opened by Run.
func NewSerialPort(path string, baud int, log *logger.Logger) *SerialPort {
	if log == nil {
		log = logger.Nop()
	}
	return &SerialPort{path: path, baud: baud, log: log}
}

func (s *SerialPort) open() (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: s.baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(s.path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", s.path, err)
	}
	return port, nil
}

// Run opens the port, reads lines into recv and reopens it after failures
// until ctx is canceled.
func (s *SerialPort) Run(ctx context.Context, recv Receiver) {
	var backoff = minBackoff
	for {
		if ctx.Err() != nil {
			return
		}
		port, err := s.open()
		if err != nil {
			s.log.Warnw("serial_open_failed", "port", s.path, "err", err, "retry_in", backoff)
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = minBackoff

		s.mu.Lock()
		s.port = port
		s.mu.Unlock()
		s.log.Infow("serial_opened", "port", s.path, "baud", s.baud)
		recv.ConnectionChanged(true)

		stop := context.AfterFunc(ctx, func() { _ = port.Close() })
		err = readLines(port, recv)
		stop()

		s.mu.Lock()
		s.port = nil
		s.mu.Unlock()
		_ = port.Close()
		recv.ConnectionChanged(false)
		if ctx.Err() != nil {
			return
		}
		s.log.Warnw("serial_closed", "port", s.path, "err", err)
		if !sleepCtx(ctx, backoff) {
			return
		}
	}
}

// Send writes payload. Serial writes have no deadline; ctx is checked first.
func (s *SerialPort) Send(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return ErrSendTimeout
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return ErrNotConnected
	}
	if _, err := s.port.Write(payload); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}
