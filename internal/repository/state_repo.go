package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"controlling_relay/internal/models"
)

type StateSQLite struct {
	db *sql.DB
}

func NewStateSQLite(db *sql.DB) *StateSQLite {
	return &StateSQLite{db: db}
}

const (
	relayStatusRowID = 1

	upsertStatusSQL = `
		INSERT INTO relay_status (id, state, auto_off, auto_off_time, timer_active, connected, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state=excluded.state,
			auto_off=excluded.auto_off,
			auto_off_time=excluded.auto_off_time,
			timer_active=excluded.timer_active,
			connected=excluded.connected,
			updated_at=excluded.updated_at
	`

	selectStatusSQL = `
		SELECT state, auto_off, auto_off_time, timer_active, connected, updated_at
		FROM relay_status WHERE id=?
	`
)

// Save upserts the relay_status row (id always 1). Presentation is not stored.
func (r *StateSQLite) Save(ctx context.Context, s models.RelayStatus) error {
	ts := s.UpdatedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := r.db.ExecContext(ctx, upsertStatusSQL,
		relayStatusRowID,
		s.State.String(),
		s.AutoOff,
		s.AutoOffTime,
		s.TimerActive,
		s.Connected,
		formatTime(ts),
	)
	if err != nil {
		return fmt.Errorf("upsert relay status: %w", err)
	}
	return nil
}

// Load fetches the relay_status row.
func (r *StateSQLite) Load(ctx context.Context) (models.RelayStatus, bool, error) {
	var (
		s         models.RelayStatus
		stateName string
		updated   string
	)
	err := r.db.QueryRowContext(ctx, selectStatusSQL, relayStatusRowID).Scan(
		&stateName,
		&s.AutoOff,
		&s.AutoOffTime,
		&s.TimerActive,
		&s.Connected,
		&updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RelayStatus{}, false, nil
		}
		return models.RelayStatus{}, false, err
	}

	if s.State, err = models.ParseRelayState(stateName); err != nil {
		return models.RelayStatus{}, false, err
	}
	if s.UpdatedAt, err = parseTime(updated); err != nil {
		return models.RelayStatus{}, false, fmt.Errorf("relay status updated_at: %w", err)
	}
	return s, true, nil
}
