// Package auth orchestrates the login flow: redirecting browsers to the
// external login page, validating the returned service ticket, provisioning
// the user just in time, and managing the resulting local session.
//
// # Overview
//
// Authenticator drives one login attempt through its states (anonymous,
// awaiting ticket, validating, provisioning, authenticated / failed).
// Sessions are persisted through the SessionStore interface; Postgres and
// Redis implementations are provided. Handler mounts the HTTP surface:
//
//	GET  /auth/cas/login     redirect to the external login page
//	GET  /auth/cas/callback  ticket validation and session establishment
//	GET  /auth/cas/logout    local logout, then external logout redirect
//	POST /auth/cas/logout    same, for form-driven logout
//	POST /auth/cas/slo       single-logout callback from the server
//
// # Single Logout
//
// The external server posts a logoutRequest form field containing a SAML
// LogoutRequest whose SessionIndex names the original service ticket.
// Callbacks are only honored when the caller's address is listed in the
// configured allowed servers, and ticket-to-session matching requires
// KeepTicketIDs; otherwise callbacks are rejected or cannot match.
package auth
