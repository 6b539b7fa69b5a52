package provision

import (
	"database/sql"
	"fmt"
)

// SQLUserManager implements UserManager against the host's users table
type SQLUserManager struct {
	db *sql.DB
}

// NewSQLUserManager creates a user manager backed by the host database
func NewSQLUserManager(db *sql.DB) *SQLUserManager {
	return &SQLUserManager{db: db}
}

func (m *SQLUserManager) UserExists(uid string) (bool, error) {
	var one int
	err := m.db.QueryRow("SELECT 1 FROM users WHERE uid = $1", uid).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking user %s: %w", uid, err)
	}
	return true, nil
}

func (m *SQLUserManager) CreateUser(uid string) (User, error) {
	_, err := m.db.Exec(
		`INSERT INTO users (uid, display_name, email, quota, enabled, backend)
		 VALUES ($1, '', '', 'default', TRUE, $2)`,
		uid, externalBackendName,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting user %s: %w", uid, err)
	}
	return &sqlUser{
		db:      m.db,
		uid:     uid,
		quota:   "default",
		enabled: true,
		backend: externalBackendName,
	}, nil
}

func (m *SQLUserManager) Get(uid string) (User, error) {
	user := &sqlUser{db: m.db, uid: uid}
	err := m.db.QueryRow(
		`SELECT display_name, email, quota, enabled, backend
		 FROM users WHERE uid = $1`, uid,
	).Scan(&user.displayName, &user.email, &user.quota, &user.enabled, &user.backend)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no such user %s", uid)
	}
	if err != nil {
		return nil, fmt.Errorf("loading user %s: %w", uid, err)
	}
	return user, nil
}

// sqlUser is a row of the users table; setters write through
type sqlUser struct {
	db          *sql.DB
	uid         string
	displayName string
	email       string
	quota       string
	enabled     bool
	backend     string
}

func (u *sqlUser) UID() string              { return u.uid }
func (u *sqlUser) DisplayName() string      { return u.displayName }
func (u *sqlUser) EmailAddress() string     { return u.email }
func (u *sqlUser) Quota() string            { return u.quota }
func (u *sqlUser) Enabled() bool            { return u.enabled }
func (u *sqlUser) BackendClassName() string { return u.backend }

func (u *sqlUser) SetDisplayName(name string) error {
	if err := u.update("display_name", name); err != nil {
		return err
	}
	u.displayName = name
	return nil
}

func (u *sqlUser) SetEmailAddress(address string) error {
	if err := u.update("email", address); err != nil {
		return err
	}
	u.email = address
	return nil
}

func (u *sqlUser) SetQuota(quota string) error {
	if err := u.update("quota", quota); err != nil {
		return err
	}
	u.quota = quota
	return nil
}

func (u *sqlUser) SetEnabled(enabled bool) error {
	_, err := u.db.Exec("UPDATE users SET enabled = $1 WHERE uid = $2", enabled, u.uid)
	if err != nil {
		return fmt.Errorf("updating enabled for %s: %w", u.uid, err)
	}
	u.enabled = enabled
	return nil
}

func (u *sqlUser) update(column, value string) error {
	_, err := u.db.Exec(fmt.Sprintf("UPDATE users SET %s = $1 WHERE uid = $2", column), value, u.uid)
	if err != nil {
		return fmt.Errorf("updating %s for %s: %w", column, u.uid, err)
	}
	return nil
}

// SQLGroupManager implements GroupManager against the host's groups tables
type SQLGroupManager struct {
	db *sql.DB
}

// NewSQLGroupManager creates a group manager backed by the host database
func NewSQLGroupManager(db *sql.DB) *SQLGroupManager {
	return &SQLGroupManager{db: db}
}

func (m *SQLGroupManager) Get(gid string) (Group, bool, error) {
	var one int
	err := m.db.QueryRow("SELECT 1 FROM groups WHERE gid = $1", gid).Scan(&one)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("checking group %s: %w", gid, err)
	}
	return &sqlGroup{db: m.db, gid: gid}, true, nil
}

func (m *SQLGroupManager) CreateGroup(gid string) (Group, error) {
	_, err := m.db.Exec("INSERT INTO groups (gid) VALUES ($1)", gid)
	if err != nil {
		return nil, fmt.Errorf("inserting group %s: %w", gid, err)
	}
	return &sqlGroup{db: m.db, gid: gid}, nil
}

// sqlGroup is a row of the groups table
type sqlGroup struct {
	db  *sql.DB
	gid string
}

func (g *sqlGroup) GID() string { return g.gid }

func (g *sqlGroup) AddUser(user User) error {
	_, err := g.db.Exec(
		"INSERT INTO group_user (gid, uid) VALUES ($1, $2)", g.gid, user.UID())
	if err != nil {
		return fmt.Errorf("adding %s to group %s: %w", user.UID(), g.gid, err)
	}
	return nil
}

func (g *sqlGroup) HasUser(user User) (bool, error) {
	var one int
	err := g.db.QueryRow(
		"SELECT 1 FROM group_user WHERE gid = $1 AND uid = $2", g.gid, user.UID(),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking membership in %s: %w", g.gid, err)
	}
	return true, nil
}
