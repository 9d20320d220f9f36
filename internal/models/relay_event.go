package models

import "time"

// relayEventTimeLayout is the short time format used in event summaries.
const relayEventTimeLayout = "15:04"

// RelayEvent is a log entry for a confirmed terminal transition. Never mutated after creation.
type RelayEvent struct {
	EventID    string     `json:"event_id"`
	EventType  RelayState `json:"event_type"` // TurnedOn | TurnedOff
	Success    bool       `json:"success"`
	OccurredAt time.Time  `json:"occurred_at"`
	Summary    string     `json:"summary"`
}

// NewRelayEvent builds an event with the "<EventType> at <time>" summary.
func NewRelayEvent(id string, eventType RelayState, success bool, at time.Time) RelayEvent {
	return RelayEvent{
		EventID:    id,
		EventType:  eventType,
		Success:    success,
		OccurredAt: at,
		Summary:    eventType.String() + " at " + at.Format(relayEventTimeLayout),
	}
}
