// Package mqtt bridges relay notifications and commands to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"controlling_relay/internal/models"
	"controlling_relay/internal/service"
)

// Topic suffixes under the configured prefix.
const (
	TopicState      = "state"
	TopicEvents     = "events"
	TopicConnection = "connection"
	TopicCommand    = "command"
	TopicBridge     = "bridge"
)

var ErrEmptyCommand = errors.New("empty command payload")

// Message is an outgoing publication.
type Message struct {
	Topic    string
	Retained bool
	Payload  []byte
}

// StatePayload is published on <prefix>/state, retained.
type StatePayload struct {
	Timestamp   string `json:"timestamp"`
	State       string `json:"state"`
	AutoOff     bool   `json:"auto_off"`
	AutoOffTime int    `json:"auto_off_time"`
	TimerActive bool   `json:"timer_active"`
}

// EventPayload is published on <prefix>/events.
type EventPayload struct {
	Timestamp string `json:"timestamp"`
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Success   bool   `json:"success"`
	Summary   string `json:"summary"`
}

// ConnectionPayload is published on <prefix>/connection, retained.
type ConnectionPayload struct {
	Timestamp string `json:"timestamp"`
	Connected bool   `json:"connected"`
}

func topic(prefix, suffix string) string {
	if prefix == "" {
		return suffix
	}
	return prefix + "/" + suffix
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// FormatMessage maps a notification to its publication. ok is false for
// notifications that are not published.
func FormatMessage(prefix string, n models.Notification) (msg Message, ok bool, err error) {
	var payload any
	switch n.Kind {
	case models.StateChanged, models.AutoOffChanged, models.AutoOffTimeChanged:
		if n.Snapshot == nil {
			return Message{}, false, nil
		}
		payload = StatePayload{
			Timestamp:   timestamp(n.At),
			State:       n.Snapshot.State.String(),
			AutoOff:     n.Snapshot.AutoOff,
			AutoOffTime: n.Snapshot.AutoOffTime,
			TimerActive: n.Snapshot.TimerActive,
		}
		msg = Message{Topic: topic(prefix, TopicState), Retained: true}
	case models.RelayEventLogged:
		if n.Event == nil {
			return Message{}, false, nil
		}
		payload = EventPayload{
			Timestamp: timestamp(n.Event.OccurredAt),
			EventID:   n.Event.EventID,
			EventType: n.Event.EventType.String(),
			Success:   n.Event.Success,
			Summary:   n.Event.Summary,
		}
		msg = Message{Topic: topic(prefix, TopicEvents)}
	case models.ConnectionChanged:
		if n.Connected == nil {
			return Message{}, false, nil
		}
		payload = ConnectionPayload{Timestamp: timestamp(n.At), Connected: *n.Connected}
		msg = Message{Topic: topic(prefix, TopicConnection), Retained: true}
	default:
		return Message{}, false, nil
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return Message{}, false, fmt.Errorf("marshal %s payload: %w", n.Kind, err)
	}
	msg.Payload = b
	return msg, true, nil
}

// ParseCommandPayload parses "<CommandName> [param]".
func ParseCommandPayload(payload []byte) (service.Command, error) {
	fields := strings.Fields(string(payload))
	if len(fields) == 0 {
		return service.Command{}, ErrEmptyCommand
	}
	return service.ParseCommand(fields[0], fields[1:])
}
