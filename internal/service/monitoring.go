package service

import (
	"context"
	"time"

	"controlling_relay/internal/models"
)

// SnapshotSource provides the live relay snapshot.
type SnapshotSource interface {
	Snapshot() models.RelaySnapshot
}

// ConnectionSource reports whether the device link is up.
type ConnectionSource interface {
	Connected() bool
}

type MonitoringService struct {
	relay     SnapshotSource
	conn      ConnectionSource
	presenter *Presenter
	clock     func() time.Time
}

func NewMonitoringService(relay SnapshotSource, conn ConnectionSource, presenter *Presenter) *MonitoringService {
	return &MonitoringService{relay: relay, conn: conn, presenter: presenter, clock: time.Now}
}

// GetState returns the live status with its presentation.
func (s *MonitoringService) GetState(ctx context.Context) (models.RelayStatus, error) {
	if err := ctx.Err(); err != nil {
		return models.RelayStatus{}, err
	}
	snap := s.relay.Snapshot()
	st := models.RelayStatus{
		RelaySnapshot: snap,
		Presentation:  s.presenter.Present(snap.State),
		UpdatedAt:     s.clock().UTC(),
	}
	if s.conn != nil {
		st.Connected = s.conn.Connected()
	}
	return st, nil
}
