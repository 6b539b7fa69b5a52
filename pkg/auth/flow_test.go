package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janusgate/janus/pkg/cas"
	"github.com/janusgate/janus/pkg/observability"
	"github.com/janusgate/janus/pkg/provision"
)

// fakeBackend records provisioning calls
type fakeBackend struct {
	mu       sync.Mutex
	users    map[string]bool
	applied  map[string]cas.Identity
	creates  int
	applies  int
	createFn func(uid string) error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{users: map[string]bool{}, applied: map[string]cas.Identity{}}
}

func (b *fakeBackend) Exists(_ context.Context, uid string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.users[uid], nil
}

func (b *fakeBackend) CreateUser(_ context.Context, uid string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.creates++
	if b.createFn != nil {
		if err := b.createFn(uid); err != nil {
			return err
		}
	}
	if b.users[uid] {
		return fmt.Errorf("uid %s: %w", uid, provision.ErrUserExists)
	}
	b.users[uid] = true
	return nil
}

func (b *fakeBackend) ApplyIdentity(_ context.Context, uid string, identity cas.Identity) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.applies++
	b.applied[uid] = identity
	return nil
}

// ticketIssuer is the CAS fixture: one-time tickets bound to a service
type ticketIssuer struct {
	mu      sync.Mutex
	tickets map[string]string
	used    map[string]bool
}

func (f *ticketIssuer) issue(ticket, service string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tickets[ticket] = service
}

func (f *ticketIssuer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticket := r.URL.Query().Get("ticket")
		service := r.URL.Query().Get("service")

		f.mu.Lock()
		issuedFor, known := f.tickets[ticket]
		reused := f.used[ticket]
		f.used[ticket] = true
		f.mu.Unlock()

		switch {
		case !known || reused:
			fmt.Fprint(w, `<cas:serviceResponse xmlns:cas="http://www.yale.edu/tp/cas"><cas:authenticationFailure code="INVALID_TICKET">unknown ticket</cas:authenticationFailure></cas:serviceResponse>`)
		case issuedFor != service:
			fmt.Fprint(w, `<cas:serviceResponse xmlns:cas="http://www.yale.edu/tp/cas"><cas:authenticationFailure code="INVALID_SERVICE">service mismatch</cas:authenticationFailure></cas:serviceResponse>`)
		default:
			fmt.Fprint(w, `<cas:serviceResponse xmlns:cas="http://www.yale.edu/tp/cas"><cas:authenticationSuccess><cas:user>Alice</cas:user><cas:attributes><cas:mail>alice@example.com</cas:mail><cas:memberOf>staff</cas:memberOf></cas:attributes></cas:authenticationSuccess></cas:serviceResponse>`)
		}
	}
}

// newTestAuthenticator wires an Authenticator against a fixture CAS server
func newTestAuthenticator(t *testing.T, mutate func(cfg *cas.Config)) (*Authenticator, *ticketIssuer, *fakeBackend, *memSessions) {
	t.Helper()

	fixture := &ticketIssuer{tickets: map[string]string{}, used: map[string]bool{}}
	server := httptest.NewTLSServer(fixture.handler())
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	cfg := &cas.Config{
		ServerHost:      u.Hostname(),
		ServerPort:      port,
		ProtocolVersion: cas.ProtocolV3,
		SyncAttributes:  true,
		KeepTicketIDs:   true,
		Attributes:      cas.DefaultAttributeMapping(),
	}
	if mutate != nil {
		mutate(cfg)
	}

	validator := cas.NewValidatorWithClient(cfg, observability.NewNopLogger(), server.Client())
	backend := newFakeBackend()
	sessions := newMemSessions()
	auth := NewAuthenticator(validator, backend, sessions, observability.NewNopLogger(), nil)
	return auth, fixture, backend, sessions
}

func TestLoginSuccess(t *testing.T) {
	auth, fixture, backend, sessions := newTestAuthenticator(t, nil)
	fixture.issue("ST-1", "https://app.example.com/callback")

	result, err := auth.Login(context.Background(), "ST-1", "https://app.example.com/callback")
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, result.State)
	require.NotNil(t, result.Session)
	assert.Equal(t, "Alice", result.Session.UID)
	assert.Equal(t, "ST-1", result.Session.Ticket)

	stored, err := sessions.Get(context.Background(), result.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", stored.UID)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.True(t, backend.users["Alice"])
	identity := backend.applied["Alice"]
	require.NotNil(t, identity.Email)
	assert.Equal(t, "alice@example.com", *identity.Email)
	assert.Equal(t, []string{"staff"}, identity.Groups)
}

func TestLoginLowercasesPrincipal(t *testing.T) {
	auth, fixture, backend, _ := newTestAuthenticator(t, func(cfg *cas.Config) {
		cfg.LowercasePrincipal = true
	})
	fixture.issue("ST-1", "https://app.example.com/callback")

	result, err := auth.Login(context.Background(), "ST-1", "https://app.example.com/callback")
	require.NoError(t, err)
	assert.Equal(t, "alice", result.Session.UID)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.True(t, backend.users["alice"])
	assert.False(t, backend.users["Alice"])
}

func TestLoginInvalidTicket(t *testing.T) {
	auth, _, backend, _ := newTestAuthenticator(t, nil)

	result, err := auth.Login(context.Background(), "ST-bogus", "https://app.example.com/callback")
	require.NoError(t, err)
	assert.Equal(t, StateFailed, result.State)
	require.NotNil(t, result.Failure)
	assert.Equal(t, cas.FailureInvalidTicket, result.Failure.Code)
	assert.Nil(t, result.Session)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Zero(t, backend.creates, "rejected tickets must not provision")
}

func TestLoginExistingUserNotRecreated(t *testing.T) {
	auth, fixture, backend, _ := newTestAuthenticator(t, nil)
	backend.users["Alice"] = true
	fixture.issue("ST-1", "https://app.example.com/callback")

	result, err := auth.Login(context.Background(), "ST-1", "https://app.example.com/callback")
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, result.State)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Zero(t, backend.creates)
	assert.Equal(t, 1, backend.applies)
}

func TestLoginToleratesCreateRace(t *testing.T) {
	auth, fixture, backend, _ := newTestAuthenticator(t, nil)
	backend.createFn = func(uid string) error {
		return fmt.Errorf("uid %s: %w", uid, provision.ErrUserExists)
	}
	fixture.issue("ST-1", "https://app.example.com/callback")

	result, err := auth.Login(context.Background(), "ST-1", "https://app.example.com/callback")
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, result.State)
}

func TestLoginWithoutKeepTicketIDs(t *testing.T) {
	auth, fixture, _, sessions := newTestAuthenticator(t, func(cfg *cas.Config) {
		cfg.KeepTicketIDs = false
	})
	fixture.issue("ST-1", "https://app.example.com/callback")

	result, err := auth.Login(context.Background(), "ST-1", "https://app.example.com/callback")
	require.NoError(t, err)
	assert.Empty(t, result.Session.Ticket)

	removed, err := sessions.DeleteByTicket(context.Background(), "ST-1")
	require.NoError(t, err)
	assert.Zero(t, removed, "without ticket retention single logout cannot match")
}

func TestLogout(t *testing.T) {
	auth, fixture, _, sessions := newTestAuthenticator(t, nil)
	fixture.issue("ST-1", "https://app.example.com/callback")

	result, err := auth.Login(context.Background(), "ST-1", "https://app.example.com/callback")
	require.NoError(t, err)

	require.NoError(t, auth.Logout(context.Background(), result.Session.ID))
	_, err = sessions.Get(context.Background(), result.Session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionForExpired(t *testing.T) {
	auth, _, _, sessions := newTestAuthenticator(t, nil)
	session := &Session{
		ID:            "sid-old",
		UID:           "alice",
		EstablishedAt: time.Now().Add(-2 * DefaultSessionTTL),
		ExpiresAt:     time.Now().Add(-DefaultSessionTTL),
	}
	require.NoError(t, sessions.Create(context.Background(), session))

	_, err := auth.SessionFor(context.Background(), "sid-old")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCleanupExpired(t *testing.T) {
	auth, _, _, sessions := newTestAuthenticator(t, nil)
	require.NoError(t, sessions.Create(context.Background(), &Session{
		ID:        "sid-old",
		UID:       "alice",
		ExpiresAt: time.Now().Add(-time.Hour),
	}))
	require.NoError(t, sessions.Create(context.Background(), &Session{
		ID:        "sid-live",
		UID:       "bob",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	removed, err := auth.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = sessions.Get(context.Background(), "sid-live")
	assert.NoError(t, err)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "anonymous", StateAnonymous.String())
	assert.Equal(t, "authenticated", StateAuthenticated.String())
	assert.Equal(t, "unknown", State(99).String())
}
