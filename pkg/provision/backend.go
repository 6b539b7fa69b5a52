package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/janusgate/janus/pkg/cas"
	"github.com/janusgate/janus/pkg/observability"
)

// ErrUserExists is returned by CreateUser when the uid is already taken
var ErrUserExists = errors.New("user already exists")

// Backend provisions local user records from authenticated identities
type Backend interface {
	// Exists reports whether a local record for uid already exists
	Exists(ctx context.Context, uid string) (bool, error)

	// CreateUser creates the local record for uid. At most one concurrent
	// call succeeds; the rest fail with ErrUserExists.
	CreateUser(ctx context.Context, uid string) error

	// ApplyIdentity synchronizes the local record with the identity's
	// attributes. Nil identity fields leave the local values untouched.
	// Idempotent.
	ApplyIdentity(ctx context.Context, uid string, identity cas.Identity) error
}

// core implements the provisioning logic shared by both backend variants
type core struct {
	users   UserManager
	groups  GroupManager
	logger  *observability.Logger
	metrics *observability.Metrics
	mail    MailValidator
	locks   uidLocks
}

func newCore(users UserManager, groups GroupManager, logger *observability.Logger, metrics *observability.Metrics) *core {
	return &core{
		users:   users,
		groups:  groups,
		logger:  logger,
		metrics: metrics,
		mail:    DefaultMailValidator(),
	}
}

func (c *core) Exists(ctx context.Context, uid string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return c.users.UserExists(uid)
}

func (c *core) createUser(ctx context.Context, uid string) (User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := c.locks.lock(uid)
	defer unlock()

	exists, err := c.users.UserExists(uid)
	if err != nil {
		c.countProvisioning("create", "error")
		return nil, fmt.Errorf("checking user %s: %w", uid, err)
	}
	if exists {
		c.countProvisioning("create", "exists")
		return nil, fmt.Errorf("user %s: %w", uid, ErrUserExists)
	}

	user, err := c.users.CreateUser(uid)
	if err != nil {
		c.countProvisioning("create", "error")
		return nil, fmt.Errorf("creating user %s: %w", uid, err)
	}

	c.countProvisioning("create", "ok")
	if c.metrics != nil {
		c.metrics.UsersCreatedTotal.Inc()
	}
	c.logger.WithField("uid", uid).Info("provisioned new user")
	return user, nil
}

func (c *core) ApplyIdentity(ctx context.Context, uid string, identity cas.Identity) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := c.locks.lock(uid)
	defer unlock()

	user, err := c.users.Get(uid)
	if err != nil {
		c.countProvisioning("apply", "error")
		return fmt.Errorf("loading user %s: %w", uid, err)
	}

	log := c.logger.WithField("uid", uid)

	if identity.DisplayName != nil && *identity.DisplayName != "" && user.DisplayName() != *identity.DisplayName {
		if err := user.SetDisplayName(*identity.DisplayName); err != nil {
			c.countProvisioning("apply", "error")
			return fmt.Errorf("setting display name for %s: %w", uid, err)
		}
	}

	if identity.Email != nil && *identity.Email != "" && user.EmailAddress() != *identity.Email {
		if !c.mail(*identity.Email) {
			log.WithField("email", *identity.Email).Warn("skipping invalid email address")
		} else if err := user.SetEmailAddress(*identity.Email); err != nil {
			c.countProvisioning("apply", "error")
			return fmt.Errorf("setting email for %s: %w", uid, err)
		}
	}

	if identity.Quota != nil {
		quota, err := ParseQuota(*identity.Quota)
		if err != nil {
			log.WithError(err).Warn("skipping unparseable quota")
		} else if user.Quota() != quota {
			if err := user.SetQuota(quota); err != nil {
				c.countProvisioning("apply", "error")
				return fmt.Errorf("setting quota for %s: %w", uid, err)
			}
		}
	}

	if identity.Enabled != nil && user.Enabled() != *identity.Enabled {
		if err := user.SetEnabled(*identity.Enabled); err != nil {
			c.countProvisioning("apply", "error")
			return fmt.Errorf("setting enabled state for %s: %w", uid, err)
		}
	}

	for _, gid := range identity.Groups {
		if err := c.ensureGroupMembership(user, gid); err != nil {
			c.countProvisioning("apply", "error")
			return err
		}
	}

	c.countProvisioning("apply", "ok")
	return nil
}

// ensureGroupMembership adds the user to gid, creating the group first if
// the host does not have it yet
func (c *core) ensureGroupMembership(user User, gid string) error {
	group, found, err := c.groups.Get(gid)
	if err != nil {
		return fmt.Errorf("loading group %s: %w", gid, err)
	}
	if !found {
		group, err = c.groups.CreateGroup(gid)
		if err != nil {
			return fmt.Errorf("creating group %s: %w", gid, err)
		}
		if c.metrics != nil {
			c.metrics.GroupsCreatedTotal.Inc()
		}
		c.logger.WithField("gid", gid).Info("created missing group")
	}

	member, err := group.HasUser(user)
	if err != nil {
		return fmt.Errorf("checking membership of %s in %s: %w", user.UID(), gid, err)
	}
	if member {
		return nil
	}
	if err := group.AddUser(user); err != nil {
		return fmt.Errorf("adding %s to group %s: %w", user.UID(), gid, err)
	}
	return nil
}

func (c *core) countProvisioning(operation, result string) {
	if c.metrics != nil {
		c.metrics.ProvisioningTotal.WithLabelValues(operation, result).Inc()
	}
}
