package auth

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/janusgate/janus/pkg/audit"
)

// Single-logout rejection reasons
var (
	ErrSLONotAllowed   = errors.New("single logout not accepted from this origin")
	ErrSLOMalformed    = errors.New("malformed single logout request")
	ErrSLONoSessionIdx = errors.New("single logout request has no session index")
)

// logoutRequest is the SAML LogoutRequest the server posts on single
// logout. Only SessionIndex matters; it carries the original service
// ticket. Tag names are namespace-agnostic.
type logoutRequest struct {
	XMLName      xml.Name `xml:"LogoutRequest"`
	SessionIndex string   `xml:"SessionIndex"`
}

// parseLogoutRequest extracts the service ticket from a logoutRequest body
func parseLogoutRequest(body string) (string, error) {
	var req logoutRequest
	if err := xml.Unmarshal([]byte(body), &req); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSLOMalformed, err)
	}
	ticket := strings.TrimSpace(req.SessionIndex)
	if ticket == "" {
		return "", ErrSLONoSessionIdx
	}
	return ticket, nil
}

// originAllowed reports whether a single-logout caller is trusted. The
// remote address must resolve to a host on the allowed list; an empty list
// means single logout is not accepted at all.
func originAllowed(remoteAddr string, allowed []string) bool {
	if len(allowed) == 0 {
		return false
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	for _, candidate := range allowed {
		if strings.EqualFold(strings.TrimSpace(candidate), host) {
			return true
		}
	}
	return false
}

// SingleLogout handles one single-logout callback: parse the ticket from
// the request body and drop every session established from it
func (a *Authenticator) SingleLogout(ctx context.Context, remoteAddr, body string) (int64, error) {
	if !originAllowed(remoteAddr, a.Config().LogoutAllowedServers) {
		a.countSLO("rejected")
		a.logger.WithField("remote", remoteAddr).Warn("rejected single logout from untrusted origin")
		return 0, ErrSLONotAllowed
	}

	ticket, err := parseLogoutRequest(body)
	if err != nil {
		a.countSLO("malformed")
		return 0, err
	}

	removed, err := a.sessions.DeleteByTicket(ctx, ticket)
	if err != nil {
		a.countSLO("error")
		return 0, err
	}

	a.countSLO("accepted")
	if a.metrics != nil && removed > 0 {
		a.metrics.SessionsActive.Sub(float64(removed))
	}
	a.record(ctx, &audit.Event{
		Type:       audit.EventSingleLogout,
		RemoteAddr: remoteAddr,
		Detail:     fmt.Sprintf("%d sessions removed", removed),
	})
	a.logger.WithFields(map[string]interface{}{
		"remote":  remoteAddr,
		"removed": removed,
	}).Info("single logout processed")
	return removed, nil
}

func (a *Authenticator) countSLO(outcome string) {
	if a.metrics != nil {
		a.metrics.SingleLogoutTotal.WithLabelValues(outcome).Inc()
	}
}
