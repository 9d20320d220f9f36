package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"controlling_relay/internal/models"
	"controlling_relay/internal/service"

	"github.com/gin-gonic/gin"
)

// Test doubles for the service interfaces, shared by the handler tests.

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(ctx context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(ctx context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockCommands struct {
	mu        sync.Mutex
	err       error
	submitted []service.Command
}

func (m *mockCommands) Submit(cmd service.Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if err := cmd.Validate(); err != nil {
		return err
	}
	m.submitted = append(m.submitted, cmd)
	return nil
}

func (m *mockCommands) last() service.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.submitted) == 0 {
		return service.Command{}
	}
	return m.submitted[len(m.submitted)-1]
}

type mockProperties struct {
	err       error
	lastKey   string
	lastValue any
}

func (m *mockProperties) SetProperty(key string, value any) error {
	m.lastKey = key
	m.lastValue = value
	return m.err
}

type mockMonitoring struct {
	state models.RelayStatus
	err   error
}

func (m *mockMonitoring) GetState(ctx context.Context) (models.RelayStatus, error) {
	return m.state, m.err
}

type mockEventLog struct {
	resp     []models.RelayEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.RelayEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

func newTestRouter(s *service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s, nil, nil)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
