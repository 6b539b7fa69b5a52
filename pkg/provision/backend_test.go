package provision

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janusgate/janus/pkg/cas"
	"github.com/janusgate/janus/pkg/observability"
)

type fakeUser struct {
	mu           sync.Mutex
	uid          string
	displayName  string
	email        string
	quota        string
	enabled      bool
	backendClass string
	setCalls     int
}

func (u *fakeUser) UID() string { return u.uid }

func (u *fakeUser) DisplayName() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.displayName
}

func (u *fakeUser) SetDisplayName(name string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.displayName = name
	u.setCalls++
	return nil
}

func (u *fakeUser) EmailAddress() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.email
}

func (u *fakeUser) SetEmailAddress(address string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.email = address
	u.setCalls++
	return nil
}

func (u *fakeUser) Quota() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.quota
}

func (u *fakeUser) SetQuota(quota string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.quota = quota
	u.setCalls++
	return nil
}

func (u *fakeUser) Enabled() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.enabled
}

func (u *fakeUser) SetEnabled(enabled bool) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.enabled = enabled
	u.setCalls++
	return nil
}

func (u *fakeUser) BackendClassName() string { return u.backendClass }

type fakeUserManager struct {
	mu           sync.Mutex
	users        map[string]*fakeUser
	backendClass string
	createCalls  int
}

func newFakeUserManager() *fakeUserManager {
	return &fakeUserManager{users: map[string]*fakeUser{}, backendClass: "External"}
}

func (m *fakeUserManager) UserExists(uid string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[uid]
	return ok, nil
}

func (m *fakeUserManager) CreateUser(uid string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if _, ok := m.users[uid]; ok {
		return nil, fmt.Errorf("uid %s taken", uid)
	}
	user := &fakeUser{uid: uid, enabled: true, backendClass: m.backendClass}
	m.users[uid] = user
	return user, nil
}

func (m *fakeUserManager) Get(uid string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[uid]
	if !ok {
		return nil, fmt.Errorf("no such user %s", uid)
	}
	return user, nil
}

type fakeGroup struct {
	mu      sync.Mutex
	gid     string
	members map[string]bool
}

func (g *fakeGroup) GID() string { return g.gid }

func (g *fakeGroup) AddUser(user User) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.members[user.UID()] = true
	return nil
}

func (g *fakeGroup) HasUser(user User) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.members[user.UID()], nil
}

type fakeGroupManager struct {
	mu     sync.Mutex
	groups map[string]*fakeGroup
}

func newFakeGroupManager() *fakeGroupManager {
	return &fakeGroupManager{groups: map[string]*fakeGroup{}}
}

func (m *fakeGroupManager) Get(gid string) (Group, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	group, ok := m.groups[gid]
	if !ok {
		return nil, false, nil
	}
	return group, true, nil
}

func (m *fakeGroupManager) CreateGroup(gid string) (Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	group := &fakeGroup{gid: gid, members: map[string]bool{}}
	m.groups[gid] = group
	return group, nil
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func newTestBackend(t *testing.T) (*CurrentBackend, *fakeUserManager, *fakeGroupManager) {
	t.Helper()
	users := newFakeUserManager()
	groups := newFakeGroupManager()
	backend := NewCurrentBackend(users, groups, observability.NewNopLogger(), nil)
	return backend, users, groups
}

func TestCreateUser(t *testing.T) {
	backend, users, _ := newTestBackend(t)

	require.NoError(t, backend.CreateUser(context.Background(), "alice"))

	exists, err := backend.Exists(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 1, users.createCalls)
}

func TestCreateUserAlreadyExists(t *testing.T) {
	backend, _, _ := newTestBackend(t)

	require.NoError(t, backend.CreateUser(context.Background(), "alice"))

	err := backend.CreateUser(context.Background(), "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestCreateUserConcurrentSingleWinner(t *testing.T) {
	backend, users, _ := newTestBackend(t)

	const workers = 16
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- backend.CreateUser(context.Background(), "alice")
		}()
	}
	wg.Wait()
	close(errs)

	var won, lost int
	for err := range errs {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, ErrUserExists)
			lost++
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, workers-1, lost)
	assert.Equal(t, 1, users.createCalls)
}

func TestApplyIdentity(t *testing.T) {
	backend, users, groups := newTestBackend(t)
	require.NoError(t, backend.CreateUser(context.Background(), "alice"))

	identity := cas.Identity{
		UID:         "alice",
		DisplayName: strPtr("Alice Example"),
		Email:       strPtr("alice@example.com"),
		Quota:       strPtr("5GB"),
		Enabled:     boolPtr(true),
		Groups:      []string{"staff", "admins"},
	}
	require.NoError(t, backend.ApplyIdentity(context.Background(), "alice", identity))

	user := users.users["alice"]
	assert.Equal(t, "Alice Example", user.DisplayName())
	assert.Equal(t, "alice@example.com", user.EmailAddress())
	assert.Equal(t, "5000000000", user.Quota())
	assert.True(t, user.Enabled())

	for _, gid := range identity.Groups {
		group, found, err := groups.Get(gid)
		require.NoError(t, err)
		require.True(t, found, "group %s should have been created", gid)
		member, err := group.HasUser(user)
		require.NoError(t, err)
		assert.True(t, member)
	}
}

func TestApplyIdentityIdempotent(t *testing.T) {
	backend, users, _ := newTestBackend(t)
	require.NoError(t, backend.CreateUser(context.Background(), "alice"))

	identity := cas.Identity{
		UID:         "alice",
		DisplayName: strPtr("Alice Example"),
		Email:       strPtr("alice@example.com"),
		Groups:      []string{"staff"},
	}
	require.NoError(t, backend.ApplyIdentity(context.Background(), "alice", identity))

	calls := users.users["alice"].setCalls
	require.NoError(t, backend.ApplyIdentity(context.Background(), "alice", identity))
	assert.Equal(t, calls, users.users["alice"].setCalls, "second apply should change nothing")
}

func TestApplyIdentityAbsentFieldsUntouched(t *testing.T) {
	backend, users, _ := newTestBackend(t)
	require.NoError(t, backend.CreateUser(context.Background(), "alice"))

	user := users.users["alice"]
	require.NoError(t, user.SetDisplayName("Keep Me"))
	require.NoError(t, user.SetEmailAddress("keep@example.com"))

	require.NoError(t, backend.ApplyIdentity(context.Background(), "alice", cas.Identity{UID: "alice"}))
	assert.Equal(t, "Keep Me", user.DisplayName())
	assert.Equal(t, "keep@example.com", user.EmailAddress())
}

func TestApplyIdentityInvalidEmailSkipped(t *testing.T) {
	backend, users, _ := newTestBackend(t)
	require.NoError(t, backend.CreateUser(context.Background(), "alice"))

	identity := cas.Identity{UID: "alice", Email: strPtr("not-an-address")}
	require.NoError(t, backend.ApplyIdentity(context.Background(), "alice", identity))
	assert.Empty(t, users.users["alice"].EmailAddress())
}

func TestApplyIdentityUnknownUser(t *testing.T) {
	backend, _, _ := newTestBackend(t)
	err := backend.ApplyIdentity(context.Background(), "ghost", cas.Identity{UID: "ghost"})
	assert.Error(t, err)
}

func TestLegacyBackendReassignsOwnership(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	users := newFakeUserManager()
	users.backendClass = "Database"
	backend := NewLegacyBackend(users, newFakeGroupManager(), db, observability.NewNopLogger(), nil)

	mock.ExpectExec(`UPDATE accounts SET backend = \$1 WHERE LOWER\(user_id\) = LOWER\(\$2\)`).
		WithArgs(externalBackendName, "alice").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, backend.CreateUser(context.Background(), "alice"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLegacyBackendLeavesExternalOwnerAlone(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	users := newFakeUserManager()
	backend := NewLegacyBackend(users, newFakeGroupManager(), db, observability.NewNopLogger(), nil)

	require.NoError(t, backend.CreateUser(context.Background(), "alice"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
