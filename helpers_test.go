package approvals_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	approvals "github.com/goliatone/go-approvals"
)

const testSigningKey = "test-signing-key"

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// nopLogger keeps test output quiet
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func newTestHasher() approvals.BcryptHasher {
	return approvals.NewBcryptHasher(bcrypt.MinCost)
}

func newTestTokenService(opts ...approvals.TokenServiceOption) *approvals.TokenServiceImpl {
	return approvals.NewTokenService([]byte(testSigningKey), 24, "go-approvals", jwt.ClaimStrings{"approvals-web"}, nopLogger{}, opts...)
}

func requesterClaims(id string) *approvals.JWTClaims {
	return &approvals.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: id},
		Type:             approvals.SubjectUser,
		UID:              id,
		EmailAddr:        "user@test.com",
	}
}

func adminClaims(role approvals.AdminRole) *approvals.JWTClaims {
	id := uuid.NewString()
	return &approvals.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: id},
		Type:             approvals.SubjectAdmin,
		UID:              id,
		EmailAddr:        string(role) + "@test.com",
		UserRole:         string(role),
	}
}

// recordingPublisher keeps every published event in order
type recordingPublisher struct {
	mu     sync.Mutex
	events []approvals.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event approvals.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) Events() []approvals.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]approvals.Event, len(p.events))
	copy(out, p.events)
	return out
}

// recordingSink keeps every activity event in order
type recordingSink struct {
	mu     sync.Mutex
	events []approvals.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event approvals.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Events() []approvals.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]approvals.ActivityEvent, len(s.events))
	copy(out, s.events)
	return out
}

func newPendingTask(t *testing.T, tasks approvals.Tasks, owner string) *approvals.Task {
	t.Helper()
	task, err := tasks.Create(context.Background(), &approvals.Task{
		ID:          uuid.New(),
		Title:       "Monitor replacement",
		Description: "The office monitor is broken",
		Priority:    approvals.TaskPriorityHigh,
		Category:    approvals.TaskCategoryTechnicalSupport,
		Status:      approvals.TaskStatusPending,
		CreatedBy:   owner,
		CreatedAt:   fixedNow,
	})
	require.NoError(t, err)
	return task
}

func requireTextCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, approvals.TextCode(err), "unexpected error: %v", err)
}
