// Package audit persists a trail of authentication events (logins,
// logouts, single logout callbacks, account creation) to PostgreSQL.
//
// Recording is best effort: callers log and continue when an insert
// fails, so an audit outage never blocks a login.
//
// # Related Packages
//
//   - pkg/auth: records events through the Recorder interface
package audit
