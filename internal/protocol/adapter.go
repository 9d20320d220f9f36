package protocol

import (
	"context"
	"errors"
	"sync"
	"time"

	"controlling_relay/internal/logger"
	"controlling_relay/internal/models"
	"controlling_relay/internal/notify"
	"controlling_relay/internal/transport"
)

const (
	DefaultPollInterval = 60 * time.Second
	DefaultSendTimeout  = 5 * time.Second
)

// Sender writes raw bytes to the device.
type Sender interface {
	Send(ctx context.Context, payload []byte) error
}

// FeedbackHandler consumes classified feedback. The relay state machine implements it.
type FeedbackHandler interface {
	ConfirmOn()
	ConfirmOff()
	ConfirmError()
}

// Options tunes the adapter.
type Options struct {
	PollInterval time.Duration
	SendTimeout  time.Duration
	Debug        bool
}

// Adapter formats commands, polls the device and turns received lines into feedback.
type Adapter struct {
	sender   Sender
	notifier notify.Notifier
	log      *logger.Logger
	opts     Options
	now      func() time.Time

	mu        sync.RWMutex
	handler   FeedbackHandler
	connected bool
}

var _ transport.Receiver = (*Adapter)(nil)

// NewAdapter builds an adapter. Zero options select the defaults.
func NewAdapter(sender Sender, notifier notify.Notifier, log *logger.Logger, opts Options) *Adapter {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Adapter{
		sender:   sender,
		notifier: notifier,
		log:      log,
		opts:     opts,
		now:      time.Now,
	}
}

// Attach registers the single feedback consumer, replacing any previous one.
func (a *Adapter) Attach(h FeedbackHandler) {
	a.mu.Lock()
	a.handler = h
	a.mu.Unlock()
}

// Detach removes the feedback consumer; later feedback is dropped.
func (a *Adapter) Detach() {
	a.mu.Lock()
	a.handler = nil
	a.mu.Unlock()
}

// Connected reports the last connection state seen from the transport.
func (a *Adapter) Connected() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.connected
}

// Send writes cmd to the device. Timeouts are logged and returned; nothing is retried.
func (a *Adapter) Send(ctx context.Context, cmd Command) error {
	ctx, cancel := context.WithTimeout(ctx, a.opts.SendTimeout)
	defer cancel()

	if a.opts.Debug {
		a.log.Debugw("tx", "command", string(cmd))
	}
	err := a.sender.Send(ctx, cmd.Bytes())
	if err == nil {
		return nil
	}
	if errors.Is(err, transport.ErrSendTimeout) || errors.Is(err, context.DeadlineExceeded) {
		a.log.Warnw("message_timed_out", "last_command", string(cmd))
		return err
	}
	a.log.Warnw("send_failed", "command", string(cmd), "err", err)
	return err
}

// Poll asks the device for its current relay state.
func (a *Adapter) Poll(ctx context.Context) error {
	return a.Send(ctx, PowerPoll)
}

// HandleLine classifies an incoming line and forwards it to the attached handler.
func (a *Adapter) HandleLine(line string) {
	fb := Classify(line)
	if a.opts.Debug {
		a.log.Debugw("rx", "line", line, "feedback", fb.String())
	}
	if fb == FeedbackUnknown {
		return
	}

	a.mu.RLock()
	h := a.handler
	a.mu.RUnlock()
	if h == nil {
		return
	}

	switch fb {
	case FeedbackOn:
		h.ConfirmOn()
	case FeedbackOff:
		h.ConfirmOff()
	case FeedbackError:
		h.ConfirmError()
	}
}

// ConnectionChanged records a transport state change. Repeated values are ignored.
// Becoming connected triggers an immediate poll.
func (a *Adapter) ConnectionChanged(connected bool) {
	a.mu.Lock()
	if a.connected == connected {
		a.mu.Unlock()
		return
	}
	a.connected = connected
	a.mu.Unlock()

	a.log.Infow("connection_changed", "connected", connected)
	if a.notifier != nil {
		c := connected
		a.notifier.Notify(models.Notification{
			Kind:      models.ConnectionChanged,
			At:        a.now().UTC(),
			Connected: &c,
		})
	}
	if connected {
		// runs on the transport's read goroutine; the send must not wait on a read
		go func() { _ = a.Poll(context.Background()) }()
	}
}

// Run polls the device every PollInterval while connected, until ctx is canceled.
func (a *Adapter) Run(ctx context.Context) {
	t := time.NewTicker(a.opts.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if !a.Connected() {
				continue
			}
			_ = a.Poll(ctx)
		}
	}
}
