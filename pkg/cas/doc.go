// Package cas implements a client for the Central Authentication Service
// (CAS) single sign-on protocol.
//
// # Overview
//
// A CAS login is a three-legged exchange: the application redirects the
// browser to the CAS server's login endpoint with a service callback URL,
// the server redirects back with a single-use service ticket, and the
// application exchanges the ticket server-side for an identity assertion.
//
// # Supported Protocol Versions
//
// CAS 1.0: plain-text validation responses via /validate
// CAS 2.0: XML serviceResponse envelopes via /serviceValidate
// CAS 3.0: XML envelopes with attribute release via /p3/serviceValidate
// SAML 1.1: SOAP-wrapped assertions via /samlValidate
//
// # Usage Example
//
//	cfg := &cas.Config{
//		ServerHost:      "cas.example.com",
//		ServerPath:      "/cas",
//		ProtocolVersion: cas.ProtocolV3,
//	}
//	validator := cas.NewValidator(cfg, logger)
//	result := validator.Validate(ctx, ticket, serviceURL)
//	if result.OK() {
//		identity := cfg.MapIdentity(result.Success)
//		// hand identity to the provisioning backend
//	}
//
// Tickets are single-use. The validator submits each ticket at most once and
// refuses local resubmission; a failed validation requires a fresh login
// redirect, never a retry of the same ticket.
//
// # Related Packages
//
//   - pkg/provision: just-in-time user provisioning from a mapped identity
//   - pkg/auth: the login/logout flow built on top of this client
package cas
