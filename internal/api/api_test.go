package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"github.com/timtanatarov/daydi-spa/internal/auth"
	"github.com/timtanatarov/daydi-spa/internal/sheets"
	"github.com/timtanatarov/daydi-spa/internal/utils"
)

type fakeSheet struct {
	mu        sync.Mutex
	rows      []sheets.Row
	inits     int
	err       error
	deadlines []bool
}

func (f *fakeSheet) AppendRow(ctx context.Context, row sheets.Row, rng string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := ctx.Deadline()
	f.deadlines = append(f.deadlines, ok)
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeSheet) InitSheet(ctx context.Context, headers []string, rng string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits++
	return f.err
}

var fixedNow = func() time.Time {
	return time.Date(2024, 3, 5, 7, 9, 30, 0, time.UTC)
}

func newTestRouter(t *testing.T, sheet *fakeSheet, guard *auth.TokenGuard) http.Handler {
	t.Helper()
	return NewRouter(&Handlers{
		Sheet:    sheet,
		Log:      zap.NewNop(),
		Location: time.UTC,
		Timeout:  time.Second,
		Now:      fixedNow,
	}, guard)
}

func do(h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(newTestRouter(t, &fakeSheet{}, nil), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK\n", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestContactAppendsRow(t *testing.T) {
	sheet := &fakeSheet{}
	rec := do(newTestRouter(t, sheet, nil), http.MethodPost, "/contact",
		`{"name":"Anna","email":"anna@example.com","phone":"+79991234567","telegram":"@anna"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	require.Len(t, sheet.rows, 1)
	assert.Equal(t, sheets.Row{"2024-03-05 07:09", "Anna", "anna@example.com", "+79991234567", "@anna"}, sheet.rows[0])
	assert.Equal(t, []bool{true}, sheet.deadlines, "append runs under the request timeout")
}

func TestContactHandleOnly(t *testing.T) {
	sheet := &fakeSheet{}
	rec := do(newTestRouter(t, sheet, nil), http.MethodPost, "/contact", `{"handle":"@anna"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, sheet.rows, 1)
	assert.Equal(t, sheets.Row{"2024-03-05 07:09", "", "", "", "@anna"}, sheet.rows[0])
}

func TestContactTimestampUsesLocation(t *testing.T) {
	moscow := time.FixedZone("MSK", 3*60*60)
	sheet := &fakeSheet{}
	h := NewRouter(&Handlers{Sheet: sheet, Location: moscow, Now: fixedNow}, nil)

	rec := do(h, http.MethodPost, "/contact", `{"email":"a@b.ru"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-03-05 10:09", sheet.rows[0][0])
	assert.Equal(t, []bool{false}, sheet.deadlines)
}

func TestContactRequiresAChannel(t *testing.T) {
	for _, body := range []string{`{}`, `{"name":"Anna"}`, `{"email":"","phone":"","telegram":""}`, ``} {
		sheet := &fakeSheet{}
		rec := do(newTestRouter(t, sheet, nil), http.MethodPost, "/contact", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.JSONEq(t, `{"ok":false,"error":"at least one contact is required"}`, rec.Body.String(), body)
		assert.Empty(t, sheet.rows)
	}
}

func TestContactMalformedJSON(t *testing.T) {
	sheet := &fakeSheet{}
	rec := do(newTestRouter(t, sheet, nil), http.MethodPost, "/contact", `{"email":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"ok":false,"error":"invalid JSON body"}`, rec.Body.String())
	assert.Empty(t, sheet.deadlines)
}

func TestContactBackendErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"config", utils.ConfigError("missing Google Sheets env vars: GOOGLE_SHEETS_ID"), "missing Google Sheets env vars: GOOGLE_SHEETS_ID"},
		{"remote", utils.RemoteServiceError(errors.New("Quota exceeded")), "Quota exceeded"},
		{"empty message", errors.New(""), "server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(newTestRouter(t, &fakeSheet{err: tt.err}, nil), http.MethodPost, "/contact", `{"email":"a@b.ru"}`)

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.JSONEq(t, `{"ok":false,"error":"`+tt.want+`"}`, rec.Body.String())
		})
	}
}

func TestContactLogsFailures(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := NewRouter(&Handlers{
		Sheet: &fakeSheet{err: utils.RemoteServiceError(errors.New("boom"))},
		Log:   zap.New(core),
		Now:   fixedNow,
	}, nil)

	rec := do(h, http.MethodPost, "/contact", `{"email":"a@b.ru"}`, RequestIDHeader, "req-1")
	assert.Equal(t, "req-1", rec.Header().Get(RequestIDHeader))

	failed := logs.FilterMessage("request failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "req-1", failed[0].ContextMap()["request_id"])
	assert.Equal(t, "remote", failed[0].ContextMap()["kind"])

	access := logs.FilterMessage("http request").All()
	require.Len(t, access, 1)
	assert.EqualValues(t, http.StatusInternalServerError, access[0].ContextMap()["status"])
}

func TestInitSheet(t *testing.T) {
	sheet := &fakeSheet{}
	rec := do(newTestRouter(t, sheet, nil), http.MethodPost, "/sheets/init", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, 1, sheet.inits)

	rec = do(newTestRouter(t, &fakeSheet{err: utils.ConfigError("missing workbook path: SHEETS_XLSX_PATH")}, nil), http.MethodPost, "/sheets/init", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"ok":false,"error":"missing workbook path: SHEETS_XLSX_PATH"}`, rec.Body.String())
}

func TestInitSheetGuarded(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	guard, err := auth.NewTokenGuard(string(hash))
	require.NoError(t, err)

	sheet := &fakeSheet{}
	h := newTestRouter(t, sheet, guard)

	rec := do(h, http.MethodPost, "/sheets/init", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"ok":false,"error":"unauthorized"}`, rec.Body.String())
	assert.Zero(t, sheet.inits)

	rec = do(h, http.MethodPost, "/sheets/init", "", "Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, sheet.inits)

	rec = do(h, http.MethodPost, "/contact", `{"email":"a@b.ru"}`)
	assert.Equal(t, http.StatusOK, rec.Code, "contact stays open")
}

func TestUnknownRoutes(t *testing.T) {
	h := newTestRouter(t, &fakeSheet{}, nil)

	rec := do(h, http.MethodGet, "/contact", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	rec = do(h, http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type panicSheet struct{ fakeSheet }

func (p *panicSheet) AppendRow(ctx context.Context, row sheets.Row, rng string) error {
	panic("boom")
}

func TestPanicRecovered(t *testing.T) {
	h := NewRouter(&Handlers{Sheet: &panicSheet{}, Now: fixedNow}, nil)
	rec := do(h, http.MethodPost, "/contact", `{"email":"a@b.ru"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"ok":false,"error":"server error"}`, rec.Body.String())
}
