package service

import (
	"context"
	"sync"
	"time"

	"controlling_relay/internal/logger"
	"controlling_relay/internal/models"
	"controlling_relay/internal/notify"
	"controlling_relay/internal/protocol"
	"controlling_relay/internal/timer"

	"github.com/google/uuid"
)

// Auto-off defaults applied to a fresh relay.
const (
	DefaultAutoOff     = true
	DefaultAutoOffTime = 30 // minutes
)

// CommandSender delivers wire commands to the device.
type CommandSender interface {
	Send(ctx context.Context, cmd protocol.Command) error
}

// TurnOnIntent is the auto-off policy captured when a turn-on is requested.
// It is applied when the device confirms the turn-on, not when config changes.
type TurnOnIntent struct {
	AutoOff     bool
	AutoOffTime int // minutes
}

// RelayOptions configures a RelayService. Use DefaultRelayOptions as a base.
type RelayOptions struct {
	AutoOff     bool
	AutoOffTime int
	Clock       func() time.Time
	NewTimer    func(fn func()) timer.Timer
	NewID       func() string
}

// DefaultRelayOptions returns auto-off enabled at 30 minutes with a real timer.
func DefaultRelayOptions() RelayOptions {
	return RelayOptions{
		AutoOff:     DefaultAutoOff,
		AutoOffTime: DefaultAutoOffTime,
	}
}

// RelayService is the relay state machine. Commands, device feedback and
// timer expiry may arrive on any goroutine; mu serializes all of them.
type RelayService struct {
	sender   CommandSender
	notifier notify.Notifier
	log      *logger.Logger
	clock    func() time.Time
	newID    func() string

	mu          sync.Mutex
	state       models.RelayState
	autoOff     bool
	autoOffTime int
	pending     TurnOnIntent
	timer       timer.Timer
	// armed is set by every Reset and cleared by Stop or an expiry that ran.
	armed bool
}

var _ protocol.FeedbackHandler = (*RelayService)(nil)

// NewRelayService creates a relay in TurnedOff with a disarmed auto-off timer.
func NewRelayService(sender CommandSender, notifier notify.Notifier, log *logger.Logger, opts RelayOptions) *RelayService {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.NewTimer == nil {
		opts.NewTimer = func(fn func()) timer.Timer { return timer.New(fn) }
	}
	r := &RelayService{
		sender:      sender,
		notifier:    notifier,
		log:         log,
		clock:       opts.Clock,
		newID:       opts.NewID,
		state:       models.TurnedOff,
		autoOff:     opts.AutoOff,
		autoOffTime: opts.AutoOffTime,
	}
	r.timer = opts.NewTimer(r.autoOffExpired)
	return r
}

// State returns the current relay state.
func (r *RelayService) State() models.RelayState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Snapshot returns a consistent copy of the relay's fields.
func (r *RelayService) Snapshot() models.RelaySnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// PendingIntent returns the auto-off policy of the last requested turn-on.
func (r *RelayService) PendingIntent() TurnOnIntent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending
}

// RequestOn turns the relay on using the currently configured auto-off policy.
func (r *RelayService) RequestOn() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestOnLocked(r.autoOff, r.autoOffTime)
}

// RequestOnWith turns the relay on with an explicit auto-off policy for this turn-on.
func (r *RelayService) RequestOnWith(autoOff bool, autoOffTime int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestOnLocked(autoOff, autoOffTime)
}

func (r *RelayService) requestOnLocked(autoOff bool, autoOffTime int) {
	if r.state == models.TurnedOn || r.state == models.TurningOn {
		return
	}
	r.pending = TurnOnIntent{AutoOff: autoOff, AutoOffTime: autoOffTime}
	r.setStateLocked(models.TurningOn)
	r.sendLocked(protocol.PowerOn)
}

// RequestOff turns the relay off now, cancelling any pending auto-off.
func (r *RelayService) RequestOff() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestOffLocked()
}

func (r *RelayService) requestOffLocked() {
	if r.state == models.TurnedOff || r.state == models.TurningOff {
		return
	}
	r.stopTimerLocked()
	r.setStateLocked(models.TurningOff)
	r.sendLocked(protocol.PowerOff)
}

// requestOffFromTimerLocked runs an expired auto-off unless the timer was
// stopped or re-armed after the expiry left the timer.
func (r *RelayService) requestOffFromTimerLocked() {
	if !r.armed || r.timer.Active() {
		r.log.Debugw("relay_auto_off_superseded", "state", r.state.String())
		return
	}
	r.armed = false
	r.requestOffLocked()
}

func (r *RelayService) armTimerLocked(minutes int) {
	r.armed = true
	r.timer.Reset(minutesToDuration(minutes))
}

func (r *RelayService) stopTimerLocked() {
	r.armed = false
	r.timer.Stop()
}

// ScheduleDelayedOff arms the auto-off timer to fire after minutes. It does not
// change state or send anything now: the off request happens when the timer
// fires. This differs from RequestOff on purpose. Ignored while off or turning off.
// A confirmed off does not cancel it, see ConfirmOff.
func (r *RelayService) ScheduleDelayedOff(minutes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == models.TurnedOff || r.state == models.TurningOff {
		return
	}
	if minutes < 0 {
		minutes = 0
	}
	r.armTimerLocked(minutes)
	r.log.Infow("relay_delayed_off_scheduled", "minutes", minutes, "state", r.state.String())
}

// Toggle requests on from TurnedOff and off from TurnedOn; other states are left alone.
func (r *RelayService) Toggle() {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case models.TurnedOff:
		r.requestOnLocked(r.autoOff, r.autoOffTime)
	case models.TurnedOn:
		r.requestOffLocked()
	}
}

// ConfirmOn records a device report that the relay is on.
func (r *RelayService) ConfirmOn() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.setStateLocked(models.TurnedOn)
	r.emitRelayEventLocked(models.TurnedOn)

	if r.pending.AutoOff {
		r.armTimerLocked(r.pending.AutoOffTime)
		r.log.Infow("relay_auto_off_armed", "minutes", r.pending.AutoOffTime)
	}
}

// ConfirmOff records a device report that the relay is off. The timer is left
// alone: a delayed off scheduled earlier still fires later, and if the relay has
// been switched on again in between it is switched off. Only RequestOff cancels it.
func (r *RelayService) ConfirmOff() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.setStateLocked(models.TurnedOff)
	r.emitRelayEventLocked(models.TurnedOff)
}

// ConfirmError records a device-reported error. No RelayEvent is logged.
// The state stays Error until the device confirms on/off or a new command is issued.
func (r *RelayService) ConfirmError() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setStateLocked(models.Error)
}

// SetAutoOff updates the auto-off flag for future turn-ons.
func (r *RelayService) SetAutoOff(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.autoOff == v {
		return
	}
	r.autoOff = v
	r.emitLocked(models.Notification{Kind: models.AutoOffChanged})
}

// SetAutoOffTime updates the auto-off duration (minutes) for future turn-ons.
func (r *RelayService) SetAutoOffTime(minutes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.autoOffTime == minutes {
		return
	}
	r.autoOffTime = minutes
	r.emitLocked(models.Notification{Kind: models.AutoOffTimeChanged})
}

// autoOffExpired runs on the timer's goroutine.
func (r *RelayService) autoOffExpired() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log.Infow("relay_auto_off_expired", "state", r.state.String())
	r.requestOffFromTimerLocked()
}

func (r *RelayService) setStateLocked(s models.RelayState) {
	if r.state == s {
		return
	}
	prev := r.state
	r.state = s
	r.log.Infow("relay_state_changed", "from", prev.String(), "to", s.String())
	r.emitLocked(models.Notification{Kind: models.StateChanged})

	var domain models.DomainEvent
	switch s {
	case models.TurnedOn:
		domain = models.DomainTurnedOn
	case models.TurnedOff:
		domain = models.DomainTurnedOff
	case models.Error:
		domain = models.DomainError
	default:
		return
	}
	r.emitLocked(models.Notification{Kind: models.DomainEventRaised, Domain: domain})
}

func (r *RelayService) emitRelayEventLocked(eventType models.RelayState) {
	ev := models.NewRelayEvent(r.newID(), eventType, true, r.clock())
	r.emitLocked(models.Notification{Kind: models.RelayEventLogged, Event: &ev})
}

func (r *RelayService) emitLocked(n models.Notification) {
	if r.notifier == nil {
		return
	}
	snap := r.snapshotLocked()
	n.Snapshot = &snap
	n.At = r.clock().UTC()
	r.notifier.Notify(n)
}

// sendLocked sends while holding mu so the wire order matches the state order.
// A failed send leaves the optimistic state in place.
func (r *RelayService) sendLocked(cmd protocol.Command) {
	if r.sender == nil {
		return
	}
	if err := r.sender.Send(context.Background(), cmd); err != nil {
		r.log.Warnw("relay_command_not_sent", "command", string(cmd), "state", r.state.String(), "err", err)
	}
}

func (r *RelayService) snapshotLocked() models.RelaySnapshot {
	return models.RelaySnapshot{
		State:       r.state,
		AutoOff:     r.autoOff,
		AutoOffTime: r.autoOffTime,
		TimerActive: r.timer != nil && r.timer.Active(),
	}
}

func minutesToDuration(m int) time.Duration {
	return time.Duration(m) * time.Minute
}
