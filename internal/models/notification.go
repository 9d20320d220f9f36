package models

import "time"

// NotificationKind identifies what changed.
type NotificationKind string

const (
	StateChanged       NotificationKind = "state_changed"
	AutoOffChanged     NotificationKind = "auto_off_changed"
	AutoOffTimeChanged NotificationKind = "auto_off_time_changed"
	RelayEventLogged   NotificationKind = "relay_event"
	DomainEventRaised  NotificationKind = "domain_event"
	ConnectionChanged  NotificationKind = "connection_changed"
)

// DomainEvent is fired once per confirmed transition into TurnedOn, TurnedOff or Error.
type DomainEvent string

const (
	DomainTurnedOn  DomainEvent = "TurnedOn"
	DomainTurnedOff DomainEvent = "TurnedOff"
	DomainError     DomainEvent = "Error"
)

// Notification is a typed message from the core to its consumers.
// Snapshot is set for every notification emitted by the relay state machine.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	At        time.Time        `json:"at"`
	Snapshot  *RelaySnapshot   `json:"snapshot,omitempty"`
	Event     *RelayEvent      `json:"event,omitempty"`
	Domain    DomainEvent      `json:"domain,omitempty"`
	Connected *bool            `json:"connected,omitempty"`
}
