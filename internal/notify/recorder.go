package notify

import (
	"sync"

	"controlling_relay/internal/models"
)

// Recorder captures notifications for test assertions.
type Recorder struct {
	mu  sync.Mutex
	all []models.Notification
}

func (r *Recorder) Notify(n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, n)
}

// All returns a copy of everything recorded.
func (r *Recorder) All() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Notification, len(r.all))
	copy(out, r.all)
	return out
}

// OfKind returns recorded notifications of one kind, in order.
func (r *Recorder) OfKind(kind models.NotificationKind) []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, n := range r.all {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// Reset clears recorded notifications.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = nil
}
