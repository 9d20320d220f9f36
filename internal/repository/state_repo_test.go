package repository_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"controlling_relay/internal/models"
	"controlling_relay/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestStateSQLite_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	repo := repository.NewStateSQLite(db)
	status := models.RelayStatus{
		RelaySnapshot: models.RelaySnapshot{State: models.TurnedOn, AutoOff: true, AutoOffTime: 30, TimerActive: true},
		Presentation:  models.Presentation{Label: "^TurnedOnLabel", Icon: "icRemoteButtonGreen"},
		Connected:     true,
		UpdatedAt:     time.Date(2025, 8, 27, 16, 5, 0, 0, time.FixedZone("CEST", 2*3600)),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO relay_status")).
		WithArgs(1, "TurnedOn", true, 30, true, true, "2025-08-27T14:05:00.000Z").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Save(context.Background(), status); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStateSQLite_Save_SetsTimeWhenZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	repo := repository.NewStateSQLite(db)

	isRecent := sqlmockArgumentFunc(func(v driver.Value) bool {
		s, ok := v.(string)
		if !ok {
			return false
		}
		tm, err := time.Parse("2006-01-02T15:04:05.000Z", s)
		if err != nil {
			return false
		}
		now := time.Now().UTC()
		return !tm.Before(now.Add(-5*time.Second)) && !tm.After(now.Add(5*time.Second))
	})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO relay_status")).
		WithArgs(1, "TurnedOff", false, 0, false, false, isRecent).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Save(context.Background(), models.RelayStatus{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStateSQLite_Save_ExecError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO relay_status")).WillReturnError(errors.New("locked"))

	if err := repository.NewStateSQLite(db).Save(context.Background(), models.RelayStatus{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestStateSQLite_Load(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"state", "auto_off", "auto_off_time", "timer_active", "connected", "updated_at"}).
		AddRow("TurningOff", false, 45, false, true, "2025-08-27T14:05:00.000Z")
	mock.ExpectQuery(regexp.QuoteMeta("FROM relay_status WHERE id=?")).
		WithArgs(1).
		WillReturnRows(rows)

	got, found, err := repository.NewStateSQLite(db).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !found {
		t.Fatalf("expected found=true")
	}
	want := models.RelaySnapshot{State: models.TurningOff, AutoOff: false, AutoOffTime: 45}
	if got.RelaySnapshot != want || !got.Connected {
		t.Fatalf("unexpected status: %+v", got)
	}
	if !got.UpdatedAt.Equal(time.Date(2025, 8, 27, 14, 5, 0, 0, time.UTC)) {
		t.Fatalf("unexpected updated_at: %v", got.UpdatedAt)
	}
}

func TestStateSQLite_Load_NoRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM relay_status")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"state", "auto_off", "auto_off_time", "timer_active", "connected", "updated_at"}))

	_, found, err := repository.NewStateSQLite(db).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if found {
		t.Fatalf("expected found=false on empty table")
	}
}

func TestStateSQLite_Load_UnknownState(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM relay_status")).
		WillReturnRows(sqlmock.NewRows([]string{"state", "auto_off", "auto_off_time", "timer_active", "connected", "updated_at"}).
			AddRow("Melting", true, 30, false, false, "2025-08-27T14:05:00.000Z"))

	if _, _, err := repository.NewStateSQLite(db).Load(context.Background()); err == nil {
		t.Fatalf("expected error for unknown state")
	}
}

type sqlmockArgumentFunc func(v driver.Value) bool

func (f sqlmockArgumentFunc) Match(v driver.Value) bool { return f(v) }

func toDriverValues(in []any) []driver.Value {
	out := make([]driver.Value, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
