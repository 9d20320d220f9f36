package models

import (
	"fmt"
	"time"
)

// RelayState is the logical state of the relay.
type RelayState int

const (
	TurnedOff RelayState = iota
	TurningOn
	TurnedOn
	TurningOff
	Error
)

var relayStateNames = [...]string{
	TurnedOff:  "TurnedOff",
	TurningOn:  "TurningOn",
	TurnedOn:   "TurnedOn",
	TurningOff: "TurningOff",
	Error:      "Error",
}

func (s RelayState) String() string {
	if s < 0 || int(s) >= len(relayStateNames) {
		return fmt.Sprintf("RelayState(%d)", int(s))
	}
	return relayStateNames[s]
}

// Transitional reports whether a command is in flight (TurningOn, TurningOff).
func (s RelayState) Transitional() bool {
	return s == TurningOn || s == TurningOff
}

// ParseRelayState is the inverse of String.
func ParseRelayState(v string) (RelayState, error) {
	for i, name := range relayStateNames {
		if name == v {
			return RelayState(i), nil
		}
	}
	return 0, fmt.Errorf("unknown relay state %q", v)
}

func (s RelayState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *RelayState) UnmarshalText(b []byte) error {
	v, err := ParseRelayState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// RelaySnapshot is a consistent copy of the relay state machine's fields.
type RelaySnapshot struct {
	State       RelayState `json:"state"`
	AutoOff     bool       `json:"auto_off"`
	AutoOffTime int        `json:"auto_off_time"` // minutes
	TimerActive bool       `json:"timer_active"`
}

// Presentation is what a UI shows for a state.
type Presentation struct {
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

// RelayStatus is the read model served to API clients.
type RelayStatus struct {
	RelaySnapshot
	Presentation
	Connected bool      `json:"connected"`
	UpdatedAt time.Time `json:"updated_at"`
}
