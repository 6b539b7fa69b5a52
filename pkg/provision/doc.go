// Package provision creates and synchronizes local user records from
// externally authenticated identities (just-in-time provisioning).
//
// # Overview
//
// The host application owns the user database; this package only drives it
// through narrow capability interfaces (UserManager, GroupManager). Two
// Backend variants cover the supported host versions: CurrentBackend talks
// to the current host API only, LegacyBackend additionally rewrites the
// backend ownership column that older hosts leave pointing at the built-in
// database backend after creation.
//
// # Invariants
//
// Creation is at-most-once per uid: concurrent CreateUser calls for the same
// uid are serialized on a per-uid lock and all but the first fail with
// ErrUserExists. ApplyIdentity is idempotent: re-applying the same identity
// changes nothing (group membership adds are no-ops for existing members,
// absent identity fields leave local values untouched).
//
// # Usage Example
//
//	version := provision.DetectHostVersion("Nextcloud", 27)
//	backend := provision.NewBackend(version, users, groups, db, logger)
//	if err := backend.CreateUser(ctx, identity.UID); err != nil {
//		return err
//	}
//	if err := backend.ApplyIdentity(ctx, identity.UID, identity); err != nil {
//		return err
//	}
package provision
