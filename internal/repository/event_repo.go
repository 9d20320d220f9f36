package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"controlling_relay/internal/models"

	"github.com/google/uuid"
)

type EventSQLite struct {
	db *sql.DB
}

func NewEventSQLite(db *sql.DB) *EventSQLite { return &EventSQLite{db: db} }

const (
	insertEventSQL = `
		INSERT INTO relay_events (id, occurred_at, type, success, summary)
		VALUES (?, ?, ?, ?, ?)
	`
	selectEventsSQL = `SELECT id, occurred_at, type, success, summary FROM relay_events`
)

// Append inserts an event. Missing EventID or OccurredAt are filled in.
func (r *EventSQLite) Append(ctx context.Context, e models.RelayEvent) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, insertEventSQL,
		e.EventID,
		formatTime(e.OccurredAt),
		e.EventType.String(),
		e.Success,
		e.Summary,
	)
	if err != nil {
		return fmt.Errorf("insert relay event %s: %w", e.EventID, err)
	}
	return nil
}

// List returns events filtered by [from, to] (inclusive) and/or type, ordered ASC.
// typ is a RelayState name; an empty typ matches every type.
func (r *EventSQLite) List(ctx context.Context, from, to time.Time, typ string) ([]models.RelayEvent, error) {
	var (
		conds []string
		args  []any
	)

	if !from.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, formatTime(from))
	}
	if !to.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, formatTime(to))
	}
	if typ = strings.TrimSpace(typ); typ != "" {
		conds = append(conds, "type = ?")
		args = append(args, typ)
	}

	q := selectEventsSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.RelayEvent, 0, 64)
	for rows.Next() {
		var (
			ev       models.RelayEvent
			occurred string
			typName  string
		)
		if err := rows.Scan(&ev.EventID, &occurred, &typName, &ev.Success, &ev.Summary); err != nil {
			return nil, err
		}
		if ev.OccurredAt, err = parseTime(occurred); err != nil {
			return nil, fmt.Errorf("event %s occurred_at: %w", ev.EventID, err)
		}
		if ev.EventType, err = models.ParseRelayState(typName); err != nil {
			return nil, fmt.Errorf("event %s: %w", ev.EventID, err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
