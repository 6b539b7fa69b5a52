package cas

import (
	"fmt"
	"net/url"
	"strings"
)

// serverBase returns the CAS server base URL, e.g. https://cas.example.com:8443/cas
func (c *Config) serverBase() string {
	host := c.ServerHost
	if c.ServerPort > 0 && c.ServerPort != 443 {
		host = fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
	}
	path := strings.TrimSuffix(c.ServerPath, "/")
	return "https://" + host + path
}

// LoginURL returns the CAS login redirect URL for the given service
// callback. The override, when set, replaces the derived endpoint but the
// service parameter is always appended.
func (c *Config) LoginURL(service string) string {
	base := c.serverBase() + "/login"
	if c.LoginURLOverride != "" {
		base = c.LoginURLOverride
	}
	return appendQuery(base, "service", service)
}

// LogoutURL returns the CAS logout URL for the given service callback
func (c *Config) LogoutURL(service string) string {
	base := c.serverBase() + "/logout"
	if c.LogoutURLOverride != "" {
		base = c.LogoutURLOverride
	}
	if service == "" {
		return base
	}
	return appendQuery(base, "service", service)
}

// validateURL returns the validation endpoint for the configured protocol
// version. The service parameter must be bit-exact the one the ticket was
// issued for; it is never rewritten here.
func (c *Config) validateURL(ticket, service string) string {
	var endpoint string
	switch c.ProtocolVersion {
	case ProtocolV1:
		endpoint = "/validate"
	case ProtocolV3:
		endpoint = "/p3/serviceValidate"
	case ProtocolSAML11:
		// SAML 1.1 posts to /samlValidate with only the TARGET parameter.
		return appendQuery(c.serverBase()+"/samlValidate", "TARGET", service)
	default:
		endpoint = "/serviceValidate"
	}
	u := appendQuery(c.serverBase()+endpoint, "service", service)
	return appendQuery(u, "ticket", ticket)
}

// appendQuery appends a query parameter, preserving any existing query
func appendQuery(rawURL, key, value string) string {
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + key + "=" + url.QueryEscape(value)
}
