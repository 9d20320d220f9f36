package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Property keys.
const (
	PropAutoOff     = "AutoOff"
	PropAutoOffTime = "AutoOffTime"
)

var (
	ErrUnknownProperty      = errors.New("property does not exist")
	ErrInvalidPropertyValue = errors.New("invalid property value")
)

// PropertyError describes a value that could not be converted for a property.
type PropertyError struct {
	Key    string
	Value  any
	Reason string
}

func (e *PropertyError) Error() string {
	return fmt.Sprintf("property %s: value %v %s", e.Key, e.Value, e.Reason)
}

func (e *PropertyError) Unwrap() error { return ErrInvalidPropertyValue }

// AutoOffConfigurer is the part of the relay that properties write to.
type AutoOffConfigurer interface {
	SetAutoOff(v bool)
	SetAutoOffTime(minutes int)
}

// PropertyService applies typed property writes synchronously.
type PropertyService struct {
	relay     AutoOffConfigurer
	presenter *Presenter
}

func NewPropertyService(relay AutoOffConfigurer, presenter *Presenter) *PropertyService {
	return &PropertyService{relay: relay, presenter: presenter}
}

// SetProperty converts value for key and applies it. Nothing changes on error.
func (s *PropertyService) SetProperty(key string, value any) error {
	switch key {
	case PropAutoOff:
		b, ok := toBool(value)
		if !ok {
			return &PropertyError{Key: key, Value: value, Reason: "could not be converted to a bool"}
		}
		s.relay.SetAutoOff(b)
		return nil

	case PropAutoOffTime:
		n, ok := toInt(value)
		if !ok {
			return &PropertyError{Key: key, Value: value, Reason: "could not be converted to an int"}
		}
		if n < MinMinutes || n > MaxMinutes {
			return &PropertyError{Key: key, Value: value, Reason: fmt.Sprintf("is outside %d..%d", MinMinutes, MaxMinutes)}
		}
		s.relay.SetAutoOffTime(n)
		return nil

	case OnIconKey, OffIconKey:
		str, ok := value.(string)
		if !ok {
			return &PropertyError{Key: key, Value: value, Reason: "could not be converted to a string"}
		}
		s.presenter.SetIcon(key, strings.TrimSpace(str))
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownProperty, key)
}

func toBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	}
	return false, false
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int32:
		return int(x), true
	case int64:
		return int(x), true
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || math.Abs(x) > math.MaxInt32 {
			return 0, false
		}
		return int(x), true
	case json.Number:
		n, err := x.Int64()
		return int(n), err == nil
	}
	return 0, false
}
