package settings

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/janusgate/janus/pkg/observability"
)

// Handler serves the admin settings save endpoint
type Handler struct {
	store  Store
	logger *observability.Logger
}

// NewHandler creates the settings HTTP handler
func NewHandler(store Store, logger *observability.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// RegisterRoutes mounts the settings routes on the router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/settings/save", h.HandleSave).Methods(http.MethodPost)
}

// HandleSave accepts the admin settings form. Only recognized keys are
// persisted; the combined configuration is validated before anything is
// written, so a save can never leave an inconsistent config behind.
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.writeError(w, http.StatusBadRequest, "malformed form body")
		return
	}

	staged := make(map[string]string)
	for key := range r.PostForm {
		if !recognizedKeys[key] {
			h.logger.WithField("key", key).Debug("ignoring unrecognized settings key")
			continue
		}
		staged[key] = r.PostForm.Get(key)
	}
	if len(staged) == 0 {
		h.writeError(w, http.StatusBadRequest, "no recognized settings in request")
		return
	}

	current, err := h.store.All(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("failed to load current settings")
		h.writeError(w, http.StatusInternalServerError, "failed to load current settings")
		return
	}
	merged := make(map[string]string, len(current)+len(staged))
	for key, value := range current {
		merged[key] = value
	}
	for key, value := range staged {
		merged[key] = value
	}

	if _, err := configFromValues(merged); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	for key, value := range staged {
		if err := h.store.Set(r.Context(), key, value); err != nil {
			h.logger.WithError(err).WithField("key", key).Error("failed to persist setting")
			h.writeError(w, http.StatusInternalServerError, "failed to persist settings")
			return
		}
	}

	h.logger.WithField("keys", len(staged)).Info("settings updated")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "error",
		"message": message,
	})
}
