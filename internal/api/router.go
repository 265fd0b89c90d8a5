package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/timtanatarov/daydi-spa/internal/auth"
)

// NewRouter wires the contact API. guard protects POST /sheets/init; a nil
// or disabled guard leaves it open.
func NewRouter(h *Handlers, guard *auth.TokenGuard) *mux.Router {
	log := h.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := mux.NewRouter()
	r.Use(requestID, logRequests(log), recoverPanics(log))

	r.HandleFunc("/health", HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/contact", h.ContactHandler).Methods(http.MethodPost)

	var initSheet http.Handler = http.HandlerFunc(h.InitSheetHandler)
	if guard.Enabled() {
		initSheet = guard.Middleware(initSheet)
	}
	r.Handle("/sheets/init", initSheet).Methods(http.MethodPost)

	r.NotFoundHandler = requestID(http.NotFoundHandler())
	r.MethodNotAllowedHandler = requestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, response{OK: false, Error: "method not allowed"})
	}))
	return r
}
