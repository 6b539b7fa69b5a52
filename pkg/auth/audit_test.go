package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janusgate/janus/pkg/audit"
	"github.com/janusgate/janus/pkg/provision"
)

// memRecorder captures audit events in memory
type memRecorder struct {
	mu     sync.Mutex
	events []*audit.Event
}

func (r *memRecorder) Record(_ context.Context, event *audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *memRecorder) byType(eventType audit.EventType) []*audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*audit.Event
	for _, event := range r.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

func TestLoginRecordsAuditEvents(t *testing.T) {
	auth, fixture, _, _ := newTestAuthenticator(t, nil)
	recorder := &memRecorder{}
	auth.Audit = recorder

	fixture.issue("ST-1", "https://app.example.com/callback")
	result, err := auth.Login(context.Background(), "ST-1", "https://app.example.com/callback")
	require.NoError(t, err)
	require.Equal(t, StateAuthenticated, result.State)

	successes := recorder.byType(audit.EventLoginSuccess)
	require.Len(t, successes, 1)
	assert.Equal(t, "Alice", successes[0].Principal)
	assert.Len(t, recorder.byType(audit.EventUserCreated), 1)
}

func TestRejectedLoginRecordsFailure(t *testing.T) {
	auth, _, _, _ := newTestAuthenticator(t, nil)
	recorder := &memRecorder{}
	auth.Audit = recorder

	result, err := auth.Login(context.Background(), "ST-bogus", "https://app.example.com/callback")
	require.NoError(t, err)
	require.Equal(t, StateFailed, result.State)

	failures := recorder.byType(audit.EventLoginFailure)
	require.Len(t, failures, 1)
	assert.NotEmpty(t, failures[0].Detail)
}

func TestLostCreateRaceRecordsNoCreation(t *testing.T) {
	auth, fixture, backend, _ := newTestAuthenticator(t, nil)
	recorder := &memRecorder{}
	auth.Audit = recorder
	backend.createFn = func(uid string) error {
		return fmt.Errorf("uid %s: %w", uid, provision.ErrUserExists)
	}

	fixture.issue("ST-1", "https://app.example.com/callback")
	result, err := auth.Login(context.Background(), "ST-1", "https://app.example.com/callback")
	require.NoError(t, err)
	require.Equal(t, StateAuthenticated, result.State)

	assert.Empty(t, recorder.byType(audit.EventUserCreated))
	assert.Len(t, recorder.byType(audit.EventLoginSuccess), 1)
}

func TestLogoutRecordsAuditEvent(t *testing.T) {
	auth, fixture, _, _ := newTestAuthenticator(t, nil)
	recorder := &memRecorder{}
	auth.Audit = recorder

	fixture.issue("ST-1", "https://app.example.com/callback")
	result, err := auth.Login(context.Background(), "ST-1", "https://app.example.com/callback")
	require.NoError(t, err)

	require.NoError(t, auth.Logout(context.Background(), result.Session.ID))
	assert.Len(t, recorder.byType(audit.EventLogout), 1)
}
