// Package protocol owns the relay's line-based wire vocabulary.
package protocol

import "strings"

// Command is an outgoing wire command.
type Command string

const (
	PowerOn   Command = "PowerOn"
	PowerOff  Command = "PowerOff"
	PowerPoll Command = "PowerPoll"
)

// lineTerminator ends every outgoing command.
const lineTerminator = "\r"

// Bytes returns the command as sent on the wire.
func (c Command) Bytes() []byte {
	s := string(c)
	if !strings.HasSuffix(s, lineTerminator) {
		s += lineTerminator
	}
	return []byte(s)
}

// Feedback is the classification of an incoming line.
type Feedback int

const (
	FeedbackUnknown Feedback = iota
	FeedbackOn
	FeedbackOff
	FeedbackError
)

func (f Feedback) String() string {
	switch f {
	case FeedbackOn:
		return "on"
	case FeedbackOff:
		return "off"
	case FeedbackError:
		return "error"
	default:
		return "unknown"
	}
}

// Classify maps a feedback line to an event. Matching is a case-insensitive
// substring test in priority order: "is on", "is off", "error".
func Classify(line string) Feedback {
	l := strings.ToLower(line)
	switch {
	case strings.Contains(l, "is on"):
		return FeedbackOn
	case strings.Contains(l, "is off"):
		return FeedbackOff
	case strings.Contains(l, "error"):
		return FeedbackError
	default:
		return FeedbackUnknown
	}
}
