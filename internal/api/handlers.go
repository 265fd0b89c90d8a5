package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/timtanatarov/daydi-spa/internal/models"
	"github.com/timtanatarov/daydi-spa/internal/sheets"
	"github.com/timtanatarov/daydi-spa/internal/utils"
)

const (
	maxBodyBytes = 64 << 10

	msgContactRequired = "at least one contact is required"
	msgInvalidBody     = "invalid JSON body"
	msgServerError     = "server error"
)

// Sheet is the part of the spreadsheet client the handlers use.
type Sheet interface {
	AppendRow(ctx context.Context, row sheets.Row, rng string) error
	InitSheet(ctx context.Context, headers []string, rng string) error
}

// Handlers serves the contact API.
type Handlers struct {
	Sheet Sheet
	Log   *zap.Logger
	// Location of the created-at timestamp; nil means the process local zone.
	Location *time.Location
	// Timeout bounds each spreadsheet call; zero leaves it unbounded.
	Timeout time.Duration
	Now     func() time.Time
}

type response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// ContactHandler appends one submission to the sheet.
func (h *Handlers) ContactHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ContactRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.fail(w, r, utils.ValidationError(msgInvalidBody))
		return
	}
	if !req.HasContact() {
		h.fail(w, r, utils.ValidationError(msgContactRequired))
		return
	}

	contact := models.NewContact(req, h.now())

	ctx, cancel := h.context(r)
	defer cancel()
	if err := h.Sheet.AppendRow(ctx, sheets.Row(contact.Row()), ""); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{OK: true})
}

// InitSheetHandler writes the default headers and formatting to the sheet.
func (h *Handlers) InitSheetHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()
	if err := h.Sheet.InitSheet(ctx, nil, ""); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{OK: true})
}

// HealthHandler reports liveness.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "OK\n")
}

func (h *Handlers) now() time.Time {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	loc := h.Location
	if loc == nil {
		loc = time.Local
	}
	return now().In(loc)
}

func (h *Handlers) context(r *http.Request) (context.Context, context.CancelFunc) {
	if h.Timeout > 0 {
		return context.WithTimeout(r.Context(), h.Timeout)
	}
	return context.WithCancel(r.Context())
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := utils.StatusCode(err)
	msg := err.Error()
	if msg == "" {
		msg = msgServerError
	}
	if h.Log != nil {
		fields := []zap.Field{
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestID(r.Context())),
			zap.String("kind", utils.KindOf(err).String()),
			zap.Error(err),
		}
		if status >= http.StatusInternalServerError {
			h.Log.Error("request failed", fields...)
		} else {
			h.Log.Info("request rejected", fields...)
		}
	}
	writeJSON(w, status, response{OK: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
