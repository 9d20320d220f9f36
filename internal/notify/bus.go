// Package notify fans typed notifications out from the relay core to its consumers.
package notify

import (
	"context"
	"sync"
	"sync/atomic"

	"controlling_relay/internal/logger"
	"controlling_relay/internal/models"
)

// Notifier receives notifications. Implementations must not call back into the
// component that emitted the notification on the same goroutine.
type Notifier interface {
	Notify(n models.Notification)
}

// Sink is a registered consumer of the bus.
type Sink interface {
	Notify(n models.Notification)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(models.Notification)

func (f SinkFunc) Notify(n models.Notification) { f(n) }

const defaultQueueSize = 256

// Bus queues notifications in emission order and delivers them to every
// registered sink from a single goroutine started by Run.
type Bus struct {
	queue chan models.Notification
	log   *logger.Logger

	done     chan struct{}
	stopOnce sync.Once
	dropped  atomic.Int64

	mu     sync.RWMutex
	nextID int
	sinks  map[int]Sink
	order  []int
}

var _ Notifier = (*Bus)(nil)

// NewBus creates a bus with the given queue size (<=0 selects the default).
func NewBus(size int, log *logger.Logger) *Bus {
	if size <= 0 {
		size = defaultQueueSize
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Bus{
		queue: make(chan models.Notification, size),
		log:   log,
		done:  make(chan struct{}),
		sinks: make(map[int]Sink),
	}
}

// Notify enqueues n. While the queue is full it blocks, so a slow sink stalls
// the emitter (the relay emits under its lock). Once Run has stopped, n is
// dropped instead.
func (b *Bus) Notify(n models.Notification) {
	select {
	case <-b.done:
		b.drop(n)
		return
	default:
	}
	select {
	case b.queue <- n:
		return
	default:
		b.log.Warnw("notification_queue_full", "kind", n.Kind, "size", cap(b.queue))
	}
	select {
	case b.queue <- n:
	case <-b.done:
		b.drop(n)
	}
}

// Dropped reports how many notifications arrived after the bus stopped.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

func (b *Bus) drop(n models.Notification) {
	if b.dropped.Add(1) == 1 {
		b.log.Warnw("notification_dropped_bus_stopped", "kind", n.Kind)
		return
	}
	b.log.Debugw("notification_dropped_bus_stopped", "kind", n.Kind)
}

// Registration is the handle returned by Register.
type Registration struct {
	bus  *Bus
	id   int
	once sync.Once
}

// Deregister removes the sink. Safe to call more than once.
func (r *Registration) Deregister() {
	r.once.Do(func() {
		r.bus.mu.Lock()
		defer r.bus.mu.Unlock()
		delete(r.bus.sinks, r.id)
		for i, id := range r.bus.order {
			if id == r.id {
				r.bus.order = append(r.bus.order[:i], r.bus.order[i+1:]...)
				break
			}
		}
	})
}

// Register adds s to the delivery list. Sinks are called in registration order.
func (b *Bus) Register(s Sink) *Registration {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.sinks[id] = s
	b.order = append(b.order, id)
	return &Registration{bus: b, id: id}
}

// Run delivers queued notifications until ctx is canceled, then delivers
// whatever is still queued and returns.
func (b *Bus) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.stopOnce.Do(func() { close(b.done) })
			b.drain()
			return
		case n := <-b.queue:
			b.deliver(n)
		}
	}
}

func (b *Bus) drain() {
	for {
		select {
		case n := <-b.queue:
			b.deliver(n)
		default:
			return
		}
	}
}

func (b *Bus) deliver(n models.Notification) {
	b.mu.RLock()
	targets := make([]Sink, 0, len(b.order))
	for _, id := range b.order {
		targets = append(targets, b.sinks[id])
	}
	b.mu.RUnlock()

	for _, s := range targets {
		b.safeNotify(s, n)
	}
}

func (b *Bus) safeNotify(s Sink, n models.Notification) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Errorw("notification_sink_panic", "kind", n.Kind, "panic", r)
		}
	}()
	s.Notify(n)
}
