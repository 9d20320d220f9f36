package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"controlling_relay/internal/models"
	"controlling_relay/internal/repository"
)

// LogFilter selects events in [From, To] (zero means open) of an optional Type.
type LogFilter struct {
	From time.Time
	To   time.Time
	Type string
}

var (
	errInvalidTimeRange = errors.New("invalid time range: From must be <= To")
	ErrInvalidEventType = errors.New("invalid event type")
)

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEventType maps a case-insensitive state name to its canonical form.
func normalizeEventType(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for st := models.TurnedOff; st <= models.Error; st++ {
		if strings.EqualFold(st.String(), s) {
			return st.String(), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidEventType, s)
}

func normalizeAndValidateFilter(f LogFilter) (time.Time, time.Time, string, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, "", errInvalidTimeRange
	}

	eventType, err := normalizeEventType(f.Type)
	if err != nil {
		return time.Time{}, time.Time{}, "", err
	}
	return from, to, eventType, nil
}

// IsFilterError reports whether err came from filter validation.
func IsFilterError(err error) bool {
	return errors.Is(err, errInvalidTimeRange) || errors.Is(err, ErrInvalidEventType)
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.RelayEvent, error) {
	from, to, typ, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, from, to, typ)
}
