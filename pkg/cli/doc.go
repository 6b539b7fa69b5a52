// Package cli implements the janus-cli command line interface for
// administrative tasks that run outside the HTTP server: provisioning
// user accounts ahead of their first login and purging expired sessions.
//
// # Usage Example
//
//	janus-cli create-user --display-name "Alice" --email alice@example.com \
//	    --group staff --quota 5GB alice
//	janus-cli cleanup-sessions
//
// Both commands read the same JANUS_* environment configuration as the
// server binary.
//
// # Related Packages
//
//   - pkg/provision: the backends the create-user command writes through
//   - pkg/auth: the session store cleanup-sessions operates on
package cli
