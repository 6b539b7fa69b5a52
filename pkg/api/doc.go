// Package api assembles the HTTP surface: the authentication routes, the
// admin settings endpoint, and a small session introspection endpoint,
// wrapped in the shared middleware chain (request IDs, logging, recovery,
// body limits, metrics, tracing).
//
// # Routes
//
//	GET  /auth/cas/login
//	GET  /auth/cas/callback
//	GET  /auth/cas/logout
//	POST /auth/cas/logout
//	POST /auth/cas/slo
//	POST /settings/save
//	GET  /whoami
//
// # Related Packages
//
//   - pkg/auth: login flow handlers and session middleware
//   - pkg/settings: the admin settings save handler
package api
