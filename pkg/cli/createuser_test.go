package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janusgate/janus/pkg/cas"
)

// scriptedBackend records provisioning calls for assertions
type scriptedBackend struct {
	existing map[string]bool
	created  []string
	applied  map[string]cas.Identity
}

func newScriptedBackend() *scriptedBackend {
	return &scriptedBackend{
		existing: make(map[string]bool),
		applied:  make(map[string]cas.Identity),
	}
}

func (b *scriptedBackend) Exists(_ context.Context, uid string) (bool, error) {
	return b.existing[uid], nil
}

func (b *scriptedBackend) CreateUser(_ context.Context, uid string) error {
	b.created = append(b.created, uid)
	b.existing[uid] = true
	return nil
}

func (b *scriptedBackend) ApplyIdentity(_ context.Context, uid string, identity cas.Identity) error {
	b.applied[uid] = identity
	return nil
}

func acceptAllMail(string) bool { return true }

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func TestCreateUserFullOptions(t *testing.T) {
	backend := newScriptedBackend()
	var out bytes.Buffer

	opts := createUserOptions{
		DisplayName: strPtr("Alice Jones"),
		Email:       strPtr("alice@example.com"),
		Groups:      []string{"staff", "admins"},
		Quota:       strPtr("5GB"),
		Enabled:     boolPtr(true),
	}
	err := createUser(context.Background(), backend, acceptAllMail, &out, "alice", opts)
	require.NoError(t, err)

	require.Equal(t, []string{"alice"}, backend.created)
	identity := backend.applied["alice"]
	require.NotNil(t, identity.DisplayName)
	assert.Equal(t, "Alice Jones", *identity.DisplayName)
	assert.Equal(t, []string{"staff", "admins"}, identity.Groups)

	output := out.String()
	assert.Contains(t, output, `User "alice" created.`)
	assert.Contains(t, output, `Display name set to "Alice Jones".`)
	assert.Contains(t, output, `Email address set to "alice@example.com".`)
	assert.Contains(t, output, `Added to group "staff".`)
	assert.Contains(t, output, `Added to group "admins".`)
	assert.Contains(t, output, `Quota set to "5GB".`)
	assert.Contains(t, output, "Account enabled.")
}

func TestCreateUserBareAccount(t *testing.T) {
	backend := newScriptedBackend()
	var out bytes.Buffer

	err := createUser(context.Background(), backend, acceptAllMail, &out, "bob", createUserOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"bob"}, backend.created)
	assert.Equal(t, "User \"bob\" created.\n", out.String())
}

func TestCreateUserAlreadyExists(t *testing.T) {
	backend := newScriptedBackend()
	backend.existing["alice"] = true
	var out bytes.Buffer

	err := createUser(context.Background(), backend, acceptAllMail, &out, "alice", createUserOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	assert.Empty(t, backend.created)
}

func TestCreateUserInvalidEmailNoWrite(t *testing.T) {
	backend := newScriptedBackend()
	rejectAll := func(string) bool { return false }
	var out bytes.Buffer

	opts := createUserOptions{Email: strPtr("not-an-address")}
	err := createUser(context.Background(), backend, rejectAll, &out, "alice", opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid email address")
	assert.Empty(t, backend.created)
}

func TestCreateUserInvalidQuotaNoWrite(t *testing.T) {
	backend := newScriptedBackend()
	var out bytes.Buffer

	opts := createUserOptions{Quota: strPtr("a lot")}
	err := createUser(context.Background(), backend, acceptAllMail, &out, "alice", opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid quota")
	assert.Empty(t, backend.created)
}

func TestStringSliceFlag(t *testing.T) {
	var groups stringSliceFlag
	require.NoError(t, groups.Set("staff"))
	require.NoError(t, groups.Set("admins"))
	assert.Equal(t, []string{"staff", "admins"}, []string(groups))
	assert.Equal(t, "staff,admins", groups.String())
}
