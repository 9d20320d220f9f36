package handlers

import (
	"testing"

	"controlling_relay/internal/models"
)

func TestHub_FanOutAndUnsubscribe(t *testing.T) {
	hub := NewHub(nil)
	a, cancelA := hub.Subscribe()
	b, cancelB := hub.Subscribe()
	defer cancelB()

	hub.Notify(models.Notification{Kind: models.StateChanged})
	if n := <-a; n.Kind != models.StateChanged {
		t.Fatalf("a got %s", n.Kind)
	}
	if n := <-b; n.Kind != models.StateChanged {
		t.Fatalf("b got %s", n.Kind)
	}

	cancelA()
	cancelA()
	if _, ok := <-a; ok {
		t.Fatalf("a should be closed")
	}
	if hub.Subscribers() != 1 {
		t.Fatalf("subscribers = %d", hub.Subscribers())
	}
	hub.Notify(models.Notification{Kind: models.AutoOffChanged})
	if n := <-b; n.Kind != models.AutoOffChanged {
		t.Fatalf("b got %s", n.Kind)
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(nil)
	ch, cancel := hub.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+10; i++ {
		hub.Notify(models.Notification{Kind: models.StateChanged})
	}
	if len(ch) != subscriberBuffer {
		t.Fatalf("buffered %d, want %d", len(ch), subscriberBuffer)
	}
}
