package repository

import (
	"context"
	"database/sql"
	"time"

	"controlling_relay/internal/models"
)

type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// StateRepo keeps the last known relay status. Load reports found=false
// when nothing has been recorded yet.
type StateRepo interface {
	Save(ctx context.Context, s models.RelayStatus) error
	Load(ctx context.Context) (s models.RelayStatus, found bool, err error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.RelayEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.RelayEvent, error)
}

type Repository struct {
	StateRepo StateRepo
	EventRepo EventRepo
	Auth      Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		StateRepo: NewStateSQLite(db),
		EventRepo: NewEventSQLite(db),
		Auth:      NewUserSQLite(db),
	}
}

// timeLayout is fixed width so TEXT columns sort and compare chronologically.
const timeLayout = "2006-01-02T15:04:05.000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
