package service

import (
	"context"
	"sync"
	"time"

	"controlling_relay/internal/logger"
	"controlling_relay/internal/models"
	"controlling_relay/internal/notify"
	"controlling_relay/internal/repository"
)

const journalWriteTimeout = 5 * time.Second

// Journal persists relay events and the last known status. It never feeds
// anything back into the relay.
type Journal struct {
	events repository.EventRepo
	states repository.StateRepo
	log    *logger.Logger

	mu        sync.Mutex
	last      models.RelaySnapshot
	connected bool
}

var _ notify.Sink = (*Journal)(nil)

func NewJournal(events repository.EventRepo, states repository.StateRepo, log *logger.Logger) *Journal {
	if log == nil {
		log = logger.Nop()
	}
	return &Journal{events: events, states: states, log: log}
}

// Seed sets the snapshot used for status rows written before the first
// relay notification arrives. Call it before the bus starts delivering.
func (j *Journal) Seed(s models.RelaySnapshot) {
	j.mu.Lock()
	j.last = s
	j.mu.Unlock()
}

// Notify implements notify.Sink. It must not call back into the relay: the
// relay may be blocked publishing to the bus that is delivering here.
func (j *Journal) Notify(n models.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)
	defer cancel()

	switch n.Kind {
	case models.RelayEventLogged:
		if n.Event == nil {
			return
		}
		if err := j.events.Append(ctx, *n.Event); err != nil {
			j.log.Errorw("journal_event_append_failed", "event_id", n.Event.EventID, "err", err)
		}
	case models.StateChanged, models.AutoOffChanged, models.AutoOffTimeChanged, models.ConnectionChanged:
		j.saveStatus(ctx, n)
	}
}

func (j *Journal) saveStatus(ctx context.Context, n models.Notification) {
	j.mu.Lock()
	if n.Snapshot != nil {
		j.last = *n.Snapshot
	}
	if n.Connected != nil {
		j.connected = *n.Connected
	}
	status := models.RelayStatus{RelaySnapshot: j.last, Connected: j.connected, UpdatedAt: n.At}
	j.mu.Unlock()

	if err := j.states.Save(ctx, status); err != nil {
		j.log.Errorw("journal_status_save_failed", "kind", string(n.Kind), "err", err)
	}
}

// LogPrevious logs the status recorded by the previous run, if any.
func (j *Journal) LogPrevious(ctx context.Context) {
	prev, found, err := j.states.Load(ctx)
	if err != nil {
		j.log.Warnw("journal_previous_status_unavailable", "err", err)
		return
	}
	if !found {
		j.log.Infow("journal_no_previous_status")
		return
	}
	j.log.Infow("journal_previous_status",
		"state", prev.State.String(),
		"auto_off", prev.AutoOff,
		"auto_off_time", prev.AutoOffTime,
		"connected", prev.Connected,
		"updated_at", prev.UpdatedAt,
	)
}
