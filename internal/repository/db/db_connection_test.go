package db_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"controlling_relay/internal/models"
	"controlling_relay/internal/repository"
	"controlling_relay/internal/repository/db"
)

func TestInitDB_SchemaRoundTrip(t *testing.T) {
	conn, err := db.InitDB(filepath.Join(t.TempDir(), "relay.db"))
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	defer conn.Close()

	repos := repository.NewRepository(conn)
	ctx := context.Background()

	if _, found, err := repos.StateRepo.Load(ctx); err != nil || found {
		t.Fatalf("fresh db: found=%v err=%v", found, err)
	}

	at := time.Date(2025, 8, 27, 14, 5, 0, 0, time.UTC)
	status := models.RelayStatus{
		RelaySnapshot: models.RelaySnapshot{State: models.TurnedOn, AutoOff: true, AutoOffTime: 30, TimerActive: true},
		Connected:     true,
		UpdatedAt:     at,
	}
	if err := repos.StateRepo.Save(ctx, status); err != nil {
		t.Fatalf("Save: %v", err)
	}
	status.State = models.TurnedOff
	status.TimerActive = false
	if err := repos.StateRepo.Save(ctx, status); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	got, found, err := repos.StateRepo.Load(ctx)
	if err != nil || !found {
		t.Fatalf("Load: found=%v err=%v", found, err)
	}
	if got.RelaySnapshot != status.RelaySnapshot || !got.Connected || !got.UpdatedAt.Equal(at) {
		t.Fatalf("unexpected status %+v", got)
	}

	for i, typ := range []models.RelayState{models.TurnedOn, models.TurnedOff, models.TurnedOn} {
		ev := models.NewRelayEvent("", typ, true, at.Add(time.Duration(i)*time.Minute))
		if err := repos.EventRepo.Append(ctx, ev); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	ons, err := repos.EventRepo.List(ctx, at, at.Add(2*time.Minute), "TurnedOn")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ons) != 2 {
		t.Fatalf("expected 2 TurnedOn events in range, got %d", len(ons))
	}
	if ons[0].EventID == "" || ons[0].Summary != "TurnedOn at 14:05" {
		t.Fatalf("unexpected first event %+v", ons[0])
	}

	window, err := repos.EventRepo.List(ctx, at.Add(time.Minute), at.Add(time.Minute), "")
	if err != nil {
		t.Fatalf("List window: %v", err)
	}
	if len(window) != 1 || window[0].EventType != models.TurnedOff {
		t.Fatalf("expected the single TurnedOff event, got %+v", window)
	}

	id, err := repos.Auth.Create(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	u, err := repos.Auth.GetByUsername(ctx, "alice")
	if err != nil || u == nil || u.ID != id {
		t.Fatalf("GetByUsername: %+v err=%v", u, err)
	}
	if _, err := repos.Auth.Create(ctx, "alice", "other"); !errors.Is(err, repository.ErrUsernameTaken) {
		t.Fatalf("duplicate Create: err=%v, want ErrUsernameTaken", err)
	}
}
