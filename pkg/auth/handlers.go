package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"

	"github.com/janusgate/janus/pkg/observability"
)

// SessionCookieName carries the session ID in the browser
const SessionCookieName = "janus_session"

// Handler mounts the authentication HTTP surface
type Handler struct {
	auth      *Authenticator
	publicURL string
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// NewHandler creates the authentication HTTP handler. publicURL is this
// service's externally reachable base URL; it anchors the callback URL the
// external server redirects back to.
func NewHandler(auth *Authenticator, publicURL string, logger *observability.Logger, metrics *observability.Metrics) *Handler {
	return &Handler{
		auth:      auth,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		logger:    logger,
		metrics:   metrics,
	}
}

// RegisterRoutes mounts the authentication routes on the router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/cas/login", h.HandleLogin).Methods(http.MethodGet)
	router.HandleFunc("/auth/cas/callback", h.HandleCallback).Methods(http.MethodGet)
	router.HandleFunc("/auth/cas/logout", h.HandleLogout).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/auth/cas/slo", h.HandleSingleLogout).Methods(http.MethodPost)
}

// callbackURL builds the service URL for a login round trip. The same
// string must be used for the redirect and for validation; the server
// compares them byte for byte.
func (h *Handler) callbackURL(redirect string) string {
	service := h.publicURL + "/auth/cas/callback"
	if redirect != "" {
		service += "?redirect=" + url.QueryEscape(redirect)
	}
	return service
}

// safeRedirect only accepts local absolute paths as post-login targets
func safeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return "/"
	}
	return target
}

// HandleLogin redirects the browser to the external login page
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	redirect := r.URL.Query().Get("redirect")
	if redirect != "" {
		redirect = safeRedirect(redirect)
	}
	service := h.callbackURL(redirect)
	http.Redirect(w, r, h.auth.Config().LoginURL(service), http.StatusFound)
}

// HandleCallback validates the returned ticket and establishes the session
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ticket := r.URL.Query().Get("ticket")
	redirect := r.URL.Query().Get("redirect")
	if ticket == "" {
		h.writeError(w, http.StatusBadRequest, "missing ticket")
		return
	}

	service := h.callbackURL(redirect)
	result, err := h.auth.Login(r.Context(), ticket, service)
	if err != nil {
		h.logger.WithError(err).Error("login failed")
		h.writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if result.State != StateAuthenticated {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "error",
			"code":   string(result.Failure.Code),
		})
		return
	}

	http.SetCookie(w, h.sessionCookie(r, result.Session.ID, 0))
	http.Redirect(w, r, safeRedirect(redirect), http.StatusFound)
}

// HandleLogout terminates the local session and sends the browser to the
// external logout page so the server-side single sign-on session ends too.
// With DisableLogout set the whole action is suppressed: the session and
// cookie are left alone and the user stays authenticated.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	cfg := h.auth.Config()
	if cfg.DisableLogout {
		h.countLogout("suppressed")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.auth.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.WithError(err).Error("failed to terminate session")
			h.writeError(w, http.StatusInternalServerError, "logout failed")
			return
		}
	}
	http.SetCookie(w, h.sessionCookie(r, "", -1))

	h.countLogout("honored")
	http.Redirect(w, r, cfg.LogoutURL(h.publicURL+"/"), http.StatusFound)
}

// HandleSingleLogout accepts single-logout callbacks from the server
func (h *Handler) HandleSingleLogout(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeError(w, http.StatusBadRequest, "malformed form body")
		return
	}

	_, err := h.auth.SingleLogout(r.Context(), r.RemoteAddr, r.PostForm.Get("logoutRequest"))
	switch {
	case errors.Is(err, ErrSLONotAllowed):
		h.writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrSLOMalformed), errors.Is(err, ErrSLONoSessionIdx):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		h.logger.WithError(err).Error("single logout failed")
		h.writeError(w, http.StatusInternalServerError, "single logout failed")
	default:
		w.WriteHeader(http.StatusOK)
	}
}

// RequireSession enforces authentication on the wrapped handler. With
// ForceLogin set, unauthenticated requests are redirected to the login
// flow unless the path is on the exception list; without it, requests
// pass through with no session in context.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := h.sessionFromRequest(r)
		if session != nil {
			ctx := observability.WithPrincipal(r.Context(), session.UID)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		cfg := h.auth.Config()
		if !cfg.ForceLogin || h.pathExempt(cfg.ForceLoginExceptions, r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		target := "/auth/cas/login?redirect=" + url.QueryEscape(r.URL.RequestURI())
		http.Redirect(w, r, target, http.StatusFound)
	})
}

func (h *Handler) sessionFromRequest(r *http.Request) *Session {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	session, err := h.auth.SessionFor(r.Context(), cookie.Value)
	if err != nil {
		return nil
	}
	return session
}

func (h *Handler) pathExempt(exceptions []string, path string) bool {
	for _, prefix := range exceptions {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	// the auth surface itself must stay reachable
	return strings.HasPrefix(path, "/auth/cas/")
}

func (h *Handler) sessionCookie(r *http.Request, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil || strings.HasPrefix(h.publicURL, "https://"),
	}
}

func (h *Handler) countLogout(outcome string) {
	if h.metrics != nil {
		h.metrics.LogoutRequestsTotal.WithLabelValues(outcome).Inc()
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "error",
		"message": message,
	})
}
