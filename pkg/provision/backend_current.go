package provision

import (
	"context"
	"database/sql"

	"github.com/janusgate/janus/pkg/observability"
)

// CurrentBackend provisions users through the current host API, which
// handles account ownership itself
type CurrentBackend struct {
	*core
}

// NewCurrentBackend builds a Backend for current hosts
func NewCurrentBackend(users UserManager, groups GroupManager, logger *observability.Logger, metrics *observability.Metrics) *CurrentBackend {
	return &CurrentBackend{core: newCore(users, groups, logger, metrics)}
}

func (b *CurrentBackend) CreateUser(ctx context.Context, uid string) error {
	_, err := b.createUser(ctx, uid)
	return err
}

// NewBackend builds the Backend variant matching the detected host version.
// db is only used by the legacy variant and may be nil for current hosts.
func NewBackend(version HostVersion, users UserManager, groups GroupManager, db *sql.DB, logger *observability.Logger, metrics *observability.Metrics) Backend {
	if version == HostLegacy {
		return NewLegacyBackend(users, groups, db, logger, metrics)
	}
	return NewCurrentBackend(users, groups, logger, metrics)
}
