package handlers

import (
	"sync"

	"controlling_relay/internal/logger"
	"controlling_relay/internal/models"
	"controlling_relay/internal/notify"
)

const subscriberBuffer = 32

// Hub fans bus notifications out to websocket clients. A slow client loses
// notifications rather than stalling the bus.
type Hub struct {
	log *logger.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]chan models.Notification
}

var _ notify.Sink = (*Hub)(nil)

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{log: log, subs: make(map[int]chan models.Notification)}
}

// Subscribe returns a notification channel and a function that closes it.
func (hb *Hub) Subscribe() (<-chan models.Notification, func()) {
	ch := make(chan models.Notification, subscriberBuffer)
	hb.mu.Lock()
	id := hb.nextID
	hb.nextID++
	hb.subs[id] = ch
	hb.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			hb.mu.Lock()
			delete(hb.subs, id)
			hb.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of connected clients.
func (hb *Hub) Subscribers() int {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	return len(hb.subs)
}

// Notify implements notify.Sink.
func (hb *Hub) Notify(n models.Notification) {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	for id, ch := range hb.subs {
		select {
		case ch <- n:
		default:
			hb.log.Warnw("ws_subscriber_lagging", "subscriber", id, "kind", string(n.Kind))
		}
	}
}
