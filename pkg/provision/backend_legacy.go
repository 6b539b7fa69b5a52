package provision

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/janusgate/janus/pkg/observability"
)

// externalBackendName is recorded in the accounts table so legacy hosts
// route password checks for provisioned users to the external backend
// instead of the built-in database backend.
const externalBackendName = "janus"

// builtinBackendNames are the ownership values legacy hosts assign to users
// created through their own API
var builtinBackendNames = map[string]bool{
	"Database":       true,
	"User\\Database": true,
}

// LegacyBackend provisions users on older hosts. Those hosts record every
// user created through their API as owned by the built-in database backend,
// so after creation the accounts table row is rewritten to point at the
// external backend.
type LegacyBackend struct {
	*core
	db *sql.DB
}

// NewLegacyBackend builds a Backend for legacy hosts
func NewLegacyBackend(users UserManager, groups GroupManager, db *sql.DB, logger *observability.Logger, metrics *observability.Metrics) *LegacyBackend {
	return &LegacyBackend{core: newCore(users, groups, logger, metrics), db: db}
}

func (b *LegacyBackend) CreateUser(ctx context.Context, uid string) error {
	user, err := b.createUser(ctx, uid)
	if err != nil {
		return err
	}
	return b.claimOwnership(ctx, user)
}

// claimOwnership rewrites the accounts table row when the host assigned the
// new user to its built-in database backend
func (b *LegacyBackend) claimOwnership(ctx context.Context, user User) error {
	if !builtinBackendNames[user.BackendClassName()] {
		return nil
	}

	_, err := b.db.ExecContext(ctx,
		`UPDATE accounts SET backend = $1 WHERE LOWER(user_id) = LOWER($2)`,
		externalBackendName, user.UID(),
	)
	if err != nil {
		return fmt.Errorf("reassigning backend for %s: %w", user.UID(), err)
	}

	b.logger.WithField("uid", user.UID()).Info("reassigned user to external backend")
	return nil
}
