package cas

import (
	"encoding/xml"
	"fmt"
	"time"
)

// ProtocolVersion identifies the CAS protocol version spoken by the server
type ProtocolVersion string

const (
	ProtocolV1     ProtocolVersion = "1.0"
	ProtocolV2     ProtocolVersion = "2.0"
	ProtocolV3     ProtocolVersion = "3.0"
	ProtocolSAML11 ProtocolVersion = "saml1.1"
)

func (p ProtocolVersion) String() string {
	return string(p)
}

// ParseProtocolVersion parses a protocol version string
func ParseProtocolVersion(s string) (ProtocolVersion, error) {
	switch ProtocolVersion(s) {
	case ProtocolV1, ProtocolV2, ProtocolV3, ProtocolSAML11:
		return ProtocolVersion(s), nil
	default:
		return "", fmt.Errorf("unknown CAS protocol version: %q", s)
	}
}

// Config is an immutable snapshot of the CAS connection settings.
// It is loaded once per request context and never mutated after load.
type Config struct {
	ServerHost      string
	ServerPort      int
	ServerPath      string
	ProtocolVersion ProtocolVersion

	// ForceLogin redirects every unauthenticated request to CAS, except
	// requests whose path matches one of ForceLoginExceptions.
	ForceLogin           bool
	ForceLoginExceptions []string

	// DisableLogout suppresses the logout action entirely: the user stays
	// authenticated against the host application even after logging out of
	// CAS elsewhere.
	DisableLogout bool

	// LogoutAllowedServers lists hosts allowed to send single-logout
	// callbacks. An empty list rejects all unsolicited logout requests.
	LogoutAllowedServers []string

	LoginURLOverride  string
	LogoutURLOverride string

	// ValidateTimeout bounds the ticket validation round trip.
	ValidateTimeout time.Duration

	// LowercasePrincipal lower-cases the principal before it is used as a
	// uid. Applied in exactly one place so backend lookup stays consistent.
	LowercasePrincipal bool

	// KeepTicketIDs stores the service ticket alongside the session so
	// single-logout callbacks can locate it.
	KeepTicketIDs bool

	// SyncAttributes enables per-field attribute sync on login.
	SyncAttributes bool

	// Attributes maps CAS attribute names onto local user fields.
	Attributes AttributeMapping
}

// DefaultValidateTimeout is used when no timeout is configured.
const DefaultValidateTimeout = 5 * time.Second

// Validate checks the configuration for consistency. It is called once at
// load time so a broken configuration fails fast instead of per request.
func (c *Config) Validate() error {
	if c.ServerHost == "" {
		return fmt.Errorf("cas: server hostname is required")
	}
	if c.ServerPort < 0 || c.ServerPort > 65535 {
		return fmt.Errorf("cas: invalid server port %d", c.ServerPort)
	}
	if _, err := ParseProtocolVersion(string(c.ProtocolVersion)); err != nil {
		return fmt.Errorf("cas: %w", err)
	}
	if c.DisableLogout && len(c.LogoutAllowedServers) > 0 {
		// One suppresses logout, the other invites unsolicited logout
		// requests. Both at once is a misconfiguration.
		return fmt.Errorf("cas: disable_logout cannot be combined with handle-logout servers")
	}
	return nil
}

// FailureCode classifies a ticket validation failure
type FailureCode string

const (
	FailureInvalidTicket            FailureCode = "INVALID_TICKET"
	FailureInvalidService           FailureCode = "INVALID_SERVICE"
	FailureInvalidRequest           FailureCode = "INVALID_REQUEST"
	FailureInvalidTicketSpec        FailureCode = "INVALID_TICKET_SPEC"
	FailureInvalidProxyCallback     FailureCode = "INVALID_PROXY_CALLBACK"
	FailureUnauthorizedServiceProxy FailureCode = "UNAUTHORIZED_SERVICE_PROXY"
	FailureInternal                 FailureCode = "INTERNAL_ERROR"
)

// parseFailureCode maps a server-reported code onto the known set. Unknown
// codes collapse to INTERNAL_ERROR rather than leaking through.
func parseFailureCode(code string) FailureCode {
	switch FailureCode(code) {
	case FailureInvalidTicket, FailureInvalidService, FailureInvalidRequest,
		FailureInvalidTicketSpec, FailureInvalidProxyCallback,
		FailureUnauthorizedServiceProxy:
		return FailureCode(code)
	default:
		return FailureInternal
	}
}

// ValidationResult is the outcome of a ticket validation round trip.
// Exactly one of Success or Failure is populated.
type ValidationResult struct {
	Success *SuccessResult
	Failure *FailureResult
}

// SuccessResult carries the asserted identity on a successful validation
type SuccessResult struct {
	Principal           string
	Attributes          map[string][]string
	ProxyGrantingTicket string
}

// FailureResult carries the failure classification and logged-only detail
type FailureResult struct {
	Code   FailureCode
	Detail string
}

// OK reports whether the validation succeeded
func (r *ValidationResult) OK() bool {
	return r.Success != nil
}

// failure builds a failure result
func failure(code FailureCode, format string, args ...interface{}) *ValidationResult {
	return &ValidationResult{Failure: &FailureResult{
		Code:   code,
		Detail: fmt.Sprintf(format, args...),
	}}
}

// serviceResponse is the CAS 2.0/3.0 validation envelope
type serviceResponse struct {
	XMLName xml.Name         `xml:"serviceResponse"`
	Success *responseSuccess `xml:"authenticationSuccess"`
	Failure *responseFailure `xml:"authenticationFailure"`
}

type responseSuccess struct {
	User                string             `xml:"user"`
	ProxyGrantingTicket string             `xml:"proxyGrantingTicket"`
	Attributes          responseAttributes `xml:"attributes"`
}

type responseFailure struct {
	Code    string `xml:"code,attr"`
	Message string `xml:",chardata"`
}

// responseAttributes collects arbitrary attribute elements. CAS 3.0 servers
// emit one child element per attribute value, repeating the element name for
// multi-valued attributes.
type responseAttributes struct {
	Values []responseAttribute `xml:",any"`
}

type responseAttribute struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}
