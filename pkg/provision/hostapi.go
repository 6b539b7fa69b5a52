package provision

import "strings"

// User is the host application's view of a single user record
type User interface {
	UID() string
	DisplayName() string
	SetDisplayName(name string) error
	EmailAddress() string
	SetEmailAddress(address string) error
	Quota() string
	SetQuota(quota string) error
	Enabled() bool
	SetEnabled(enabled bool) error
	// BackendClassName tags which backend owns the record in the host's
	// account table.
	BackendClassName() string
}

// UserManager is the host application's user lookup/creation capability
type UserManager interface {
	UserExists(uid string) (bool, error)
	CreateUser(uid string) (User, error)
	Get(uid string) (User, error)
}

// Group is the host application's view of a single group
type Group interface {
	GID() string
	AddUser(user User) error
	HasUser(user User) (bool, error)
}

// GroupManager is the host application's group capability. Get returns
// found=false when the group does not exist.
type GroupManager interface {
	Get(gid string) (Group, bool, error)
	CreateGroup(gid string) (Group, error)
}

// HostVersion selects which Backend variant to instantiate
type HostVersion int

const (
	// HostCurrent is a host whose API fully owns account bookkeeping
	HostCurrent HostVersion = iota
	// HostLegacy is an older host that records newly created users under
	// its built-in database backend and needs the ownership column fixed
	// up after creation
	HostLegacy
)

func (v HostVersion) String() string {
	if v == HostLegacy {
		return "legacy"
	}
	return "current"
}

// DetectHostVersion classifies the host from its framework name and major
// version. Performed once at startup; the result is injected, never
// re-detected per request.
func DetectHostVersion(frameworkName string, majorVersion int) HostVersion {
	if strings.Contains(strings.ToLower(frameworkName), "next") && majorVersion >= 14 {
		return HostCurrent
	}
	return HostLegacy
}
