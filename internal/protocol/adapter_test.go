package protocol

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"controlling_relay/internal/models"
	"controlling_relay/internal/notify"
	"controlling_relay/internal/transport"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeSender) Send(ctx context.Context, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, string(payload))
	return nil
}

func (f *fakeSender) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type fakeHandler struct {
	on, off, errs int
}

func (h *fakeHandler) ConfirmOn()    { h.on++ }
func (h *fakeHandler) ConfirmOff()   { h.off++ }
func (h *fakeHandler) ConfirmError() { h.errs++ }

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met")
}

func TestAdapter_DefaultsApplied(t *testing.T) {
	a := NewAdapter(&fakeSender{}, nil, nil, Options{})
	if a.opts.PollInterval != 60*time.Second {
		t.Fatalf("poll interval=%v", a.opts.PollInterval)
	}
	if a.opts.SendTimeout != DefaultSendTimeout {
		t.Fatalf("send timeout=%v", a.opts.SendTimeout)
	}
}

func TestAdapter_SendFormatsCommand(t *testing.T) {
	s := &fakeSender{}
	a := NewAdapter(s, nil, nil, Options{})
	if err := a.Send(context.Background(), PowerOn); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := s.Sent(); len(got) != 1 || got[0] != "PowerOn\r" {
		t.Fatalf("sent=%q", got)
	}
}

func TestAdapter_SendTimeoutIsReturnedNotRetried(t *testing.T) {
	s := &fakeSender{err: transport.ErrSendTimeout}
	a := NewAdapter(s, nil, nil, Options{})
	err := a.Send(context.Background(), PowerOff)
	if !errors.Is(err, transport.ErrSendTimeout) {
		t.Fatalf("expected ErrSendTimeout, got %v", err)
	}
}

func TestAdapter_HandleLineRoutesFeedback(t *testing.T) {
	h := &fakeHandler{}
	a := NewAdapter(&fakeSender{}, nil, nil, Options{Debug: true})
	a.Attach(h)

	for _, line := range []string{"relay is ON", "unit is OFF", "SYSTEM ERROR 42", "ack"} {
		a.HandleLine(line)
	}
	if h.on != 1 || h.off != 1 || h.errs != 1 {
		t.Fatalf("got on=%d off=%d err=%d", h.on, h.off, h.errs)
	}

	a.Detach()
	a.HandleLine("relay is ON")
	if h.on != 1 {
		t.Fatalf("detached handler still received feedback")
	}
}

func TestAdapter_ConnectionChangedPollsAndNotifies(t *testing.T) {
	s := &fakeSender{}
	rec := &notify.Recorder{}
	a := NewAdapter(s, rec, nil, Options{})

	a.ConnectionChanged(true)
	a.ConnectionChanged(true) // duplicate ignored

	eventually(t, func() bool { return len(s.Sent()) == 1 })
	if s.Sent()[0] != "PowerPoll\r" {
		t.Fatalf("expected poll on connect, got %q", s.Sent())
	}
	if !a.Connected() {
		t.Fatalf("expected connected")
	}

	a.ConnectionChanged(false)
	ns := rec.OfKind(models.ConnectionChanged)
	if len(ns) != 2 {
		t.Fatalf("expected 2 connection notifications, got %d", len(ns))
	}
	if !*ns[0].Connected || *ns[1].Connected {
		t.Fatalf("unexpected connection values")
	}
	time.Sleep(20 * time.Millisecond)
	if len(s.Sent()) != 1 {
		t.Fatalf("disconnect must not poll, sent=%q", s.Sent())
	}
}

func TestAdapter_RunPollsOnlyWhileConnected(t *testing.T) {
	s := &fakeSender{}
	a := NewAdapter(s, nil, nil, Options{PollInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	time.Sleep(40 * time.Millisecond)
	if n := len(s.Sent()); n != 0 {
		t.Fatalf("polled while disconnected: %d", n)
	}

	a.ConnectionChanged(true)
	eventually(t, func() bool { return len(s.Sent()) >= 3 })
	for _, cmd := range s.Sent() {
		if cmd != "PowerPoll\r" {
			t.Fatalf("unexpected command %q", cmd)
		}
	}
}
