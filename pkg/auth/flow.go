package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/janusgate/janus/pkg/audit"
	"github.com/janusgate/janus/pkg/cas"
	"github.com/janusgate/janus/pkg/observability"
	"github.com/janusgate/janus/pkg/provision"
)

// State is one step of a login attempt
type State int

const (
	// StateAnonymous is the initial state, before any redirect
	StateAnonymous State = iota
	// StateAwaitingTicket means the browser was redirected to the login
	// page and has not come back with a ticket yet
	StateAwaitingTicket
	// StateValidating means a ticket arrived and is being checked
	StateValidating
	// StateProvisioning means the ticket was valid and the local user
	// record is being created or synchronized
	StateProvisioning
	// StateAuthenticated is the terminal success state
	StateAuthenticated
	// StateFailed is the terminal failure state
	StateFailed
	// StateLoggedOut follows an explicit logout or single-logout callback
	StateLoggedOut
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAwaitingTicket:
		return "awaiting_ticket"
	case StateValidating:
		return "validating"
	case StateProvisioning:
		return "provisioning"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	case StateLoggedOut:
		return "logged_out"
	}
	return "unknown"
}

// LoginResult is the outcome of one login attempt
type LoginResult struct {
	State   State
	Session *Session
	Failure *cas.FailureResult
}

// Authenticator drives login attempts from ticket to established session
type Authenticator struct {
	validator *cas.Validator
	backend   provision.Backend
	sessions  SessionStore
	logger    *observability.Logger
	metrics   *observability.Metrics

	// SessionTTL bounds new sessions; DefaultSessionTTL when zero
	SessionTTL time.Duration

	// Audit, when set, receives authentication events. Recording is best
	// effort and never fails a login.
	Audit audit.Recorder

	now func() time.Time
}

// NewAuthenticator creates the login orchestrator
func NewAuthenticator(validator *cas.Validator, backend provision.Backend, sessions SessionStore, logger *observability.Logger, metrics *observability.Metrics) *Authenticator {
	return &Authenticator{
		validator:  validator,
		backend:    backend,
		sessions:   sessions,
		logger:     logger,
		metrics:    metrics,
		SessionTTL: DefaultSessionTTL,
		now:        time.Now,
	}
}

// Config returns the authentication configuration in use
func (a *Authenticator) Config() *cas.Config {
	return a.validator.Config()
}

// Login validates the ticket, provisions the user and establishes a
// session. A nil error with a failed LoginResult means the ticket was
// rejected; errors are reserved for infrastructure problems.
func (a *Authenticator) Login(ctx context.Context, ticket, service string) (*LoginResult, error) {
	cfg := a.Config()
	log := a.logger.WithField("service", service)
	state := a.transition(log, StateAnonymous, StateValidating)

	start := a.now()
	result := a.validator.Validate(ctx, ticket, service)
	a.observeValidation(cfg, result, a.now().Sub(start))

	if !result.OK() {
		a.transition(log, state, StateFailed)
		a.countLogin("rejected")
		log.WithFields(map[string]interface{}{
			"code":   string(result.Failure.Code),
			"detail": result.Failure.Detail,
		}).Warn("ticket validation failed")
		a.record(ctx, &audit.Event{Type: audit.EventLoginFailure, Detail: string(result.Failure.Code)})
		return &LoginResult{State: StateFailed, Failure: result.Failure}, nil
	}

	identity := cfg.MapIdentity(result.Success)
	log = log.WithField("uid", identity.UID)
	state = a.transition(log, state, StateProvisioning)

	if err := a.provisionUser(ctx, identity); err != nil {
		a.transition(log, state, StateFailed)
		a.countLogin("error")
		return nil, err
	}

	session, err := a.establishSession(ctx, cfg, identity.UID, ticket)
	if err != nil {
		a.transition(log, state, StateFailed)
		a.countLogin("error")
		return nil, err
	}

	a.transition(log, state, StateAuthenticated)
	a.countLogin("success")
	a.record(ctx, &audit.Event{Type: audit.EventLoginSuccess, Principal: identity.UID})
	log.WithField("session_id", session.ID).Info("login complete")
	return &LoginResult{State: StateAuthenticated, Session: session}, nil
}

// provisionUser creates the local record if needed and synchronizes its
// attributes. A concurrent creation losing the uid race is fine; the
// winner's record is synchronized instead.
func (a *Authenticator) provisionUser(ctx context.Context, identity cas.Identity) error {
	exists, err := a.backend.Exists(ctx, identity.UID)
	if err != nil {
		return fmt.Errorf("checking user %s: %w", identity.UID, err)
	}
	if !exists {
		switch err := a.backend.CreateUser(ctx, identity.UID); {
		case err == nil:
			a.record(ctx, &audit.Event{Type: audit.EventUserCreated, Principal: identity.UID})
		case !errors.Is(err, provision.ErrUserExists):
			return err
		}
	}
	return a.backend.ApplyIdentity(ctx, identity.UID, identity)
}

func (a *Authenticator) establishSession(ctx context.Context, cfg *cas.Config, uid, ticket string) (*Session, error) {
	ttl := a.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	session := &Session{
		ID:            uuid.New().String(),
		UID:           uid,
		EstablishedAt: a.now(),
		ExpiresAt:     a.now().Add(ttl),
	}
	if cfg.KeepTicketIDs {
		session.Ticket = ticket
	}

	if err := a.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	if a.metrics != nil {
		a.metrics.SessionsCreatedTotal.Inc()
		a.metrics.SessionsActive.Inc()
	}
	return session, nil
}

// Logout removes the local session. The caller decides whether to follow
// up with a redirect to the external logout page.
func (a *Authenticator) Logout(ctx context.Context, sessionID string) error {
	if err := a.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	if a.metrics != nil {
		a.metrics.SessionsActive.Dec()
	}
	a.record(ctx, &audit.Event{Type: audit.EventLogout})
	a.logger.WithField("session_id", sessionID).Info("session terminated")
	return nil
}

// SessionFor resolves and checks the session for the given ID
func (a *Authenticator) SessionFor(ctx context.Context, sessionID string) (*Session, error) {
	session, err := a.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Expired(a.now()) {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// CleanupExpired removes sessions past their expiry. Run periodically.
func (a *Authenticator) CleanupExpired(ctx context.Context) (int64, error) {
	removed, err := a.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		if a.metrics != nil {
			a.metrics.SessionsExpiredTotal.Add(float64(removed))
			a.metrics.SessionsActive.Sub(float64(removed))
		}
		a.logger.WithField("removed", removed).Info("expired sessions cleaned up")
	}
	return removed, nil
}

func (a *Authenticator) transition(log *observability.Logger, from, to State) State {
	log.WithFields(map[string]interface{}{
		"from": from.String(),
		"to":   to.String(),
	}).Debug("login state transition")
	return to
}

// record writes an audit event if a recorder is configured. Failures are
// logged and swallowed.
func (a *Authenticator) record(ctx context.Context, event *audit.Event) {
	if a.Audit == nil {
		return
	}
	if err := a.Audit.Record(ctx, event); err != nil {
		a.logger.WithError(err).Warn("failed to record audit event")
	}
}

func (a *Authenticator) countLogin(outcome string) {
	if a.metrics != nil {
		a.metrics.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
	}
}

func (a *Authenticator) observeValidation(cfg *cas.Config, result *cas.ValidationResult, elapsed time.Duration) {
	if a.metrics == nil {
		return
	}
	outcome := "success"
	if !result.OK() {
		outcome = string(result.Failure.Code)
	}
	version := cfg.ProtocolVersion.String()
	a.metrics.TicketValidationsTotal.WithLabelValues(version, outcome).Inc()
	a.metrics.TicketValidationDuration.WithLabelValues(version).Observe(elapsed.Seconds())
}
