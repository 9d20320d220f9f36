package service

import (
	"context"

	"controlling_relay/internal/models"
	"controlling_relay/internal/repository"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Commands accepts relay commands for asynchronous execution.
type Commands interface {
	Submit(cmd Command) error
}

// Properties applies typed configuration writes.
type Properties interface {
	SetProperty(key string, value any) error
}

// Monitoring exposes the live relay status.
type Monitoring interface {
	GetState(ctx context.Context) (models.RelayStatus, error)
}

// EventLog exposes persisted relay events with filtering.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.RelayEvent, error)
}

type Service struct {
	Commands
	Properties
	Monitoring
	EventLog
	Authorization
}

// Deps are the long-lived runtime components the services front.
type Deps struct {
	Relay      *RelayService
	Connection ConnectionSource
	Presenter  *Presenter
	Dispatcher *Dispatcher
	SigningKey string
}

func NewService(repos *repository.Repository, deps Deps) *Service {
	return &Service{
		Commands:      deps.Dispatcher,
		Properties:    NewPropertyService(deps.Relay, deps.Presenter),
		Monitoring:    NewMonitoringService(deps.Relay, deps.Connection, deps.Presenter),
		EventLog:      NewEventLogService(repos.EventRepo),
		Authorization: NewAuthService(repos.Auth, deps.SigningKey),
	}
}
