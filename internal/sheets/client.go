package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/timtanatarov/daydi-spa/internal/utils"
)

// bootstrapTimeout bounds a header check and initialization once it no longer
// follows the cancellation of the request that started it.
const bootstrapTimeout = 30 * time.Second

// Client appends contact rows to a spreadsheet and initializes its header row.
type Client struct {
	backend      Backend
	defaultRange string
	headers      []string
	log          *zap.Logger

	// bootstrap collapses concurrent header checks for the same sheet so one
	// process issues at most one initialization batch at a time. Separate
	// processes can still both initialize; the result is identical. The shared
	// check runs detached from the cancellation of whichever caller started it.
	bootstrap singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithDefaultRange sets the range used when a call passes none.
func WithDefaultRange(rng string) Option {
	return func(c *Client) { c.defaultRange = strings.TrimSpace(rng) }
}

// WithHeaders overrides the header labels written on initialization.
func WithHeaders(headers []string) Option {
	return func(c *Client) {
		if len(headers) > 0 {
			c.headers = append([]string(nil), headers...)
		}
	}
}

// WithLogger sets the logger for initialization and append events.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New returns a Client writing through backend.
func New(backend Backend, opts ...Option) *Client {
	c := &Client{
		backend: backend,
		headers: DefaultHeaders,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Headers returns the labels written by a default initialization.
func (c *Client) Headers() []string {
	return append([]string(nil), c.headers...)
}

// AppendRow appends row to the sheet named by rng (or the configured default).
// When row 1 of that sheet is empty the sheet is initialized first, so the
// first append to a fresh sheet also writes headers and formatting.
func (c *Client) AppendRow(ctx context.Context, row Row, rng string) (err error) {
	if err := c.backend.Check(); err != nil {
		return err
	}
	target := ResolveRange(rng, c.defaultRange)
	title := SheetTitle(target)

	svc, err := c.backend.Open(ctx)
	if err != nil {
		return remote(err)
	}
	defer closeService(svc, &err)

	if err := c.ensureHeaders(ctx, svc, title); err != nil {
		return err
	}
	if err := svc.Append(ctx, target, [][]string{row[:]}); err != nil {
		return remote(err)
	}
	c.log.Debug("row appended", zap.String("range", target))
	return nil
}

// InitSheet writes headers into row 1 and applies the header layout in one
// batch. Empty headers and range fall back to the configured defaults.
func (c *Client) InitSheet(ctx context.Context, headers []string, rng string) (err error) {
	if err := c.backend.Check(); err != nil {
		return err
	}
	if len(headers) == 0 {
		headers = c.headers
	}
	if len(headers) != len(Row{}) {
		return utils.ValidationError(fmt.Sprintf("expected %d headers, got %d", len(Row{}), len(headers)))
	}
	if strings.TrimSpace(rng) == "" {
		rng = c.defaultRange
	}
	title := SheetTitle(strings.TrimSpace(rng))

	svc, err := c.backend.Open(ctx)
	if err != nil {
		return remote(err)
	}
	defer closeService(svc, &err)

	return c.initSheet(ctx, svc, headers, title)
}

func (c *Client) initSheet(ctx context.Context, svc Service, headers []string, title string) error {
	if err := svc.Update(ctx, Qualify(title, "A1"), [][]string{headers}); err != nil {
		return remote(err)
	}
	if err := svc.Format(ctx, title, HeaderLayout(len(headers))); err != nil {
		return remote(err)
	}
	c.log.Info("sheet initialized", zap.String("sheet", title), zap.Strings("headers", headers))
	return nil
}

// ensureHeaders initializes the sheet when its header row is empty. The check
// runs on every call; nothing is cached.
func (c *Client) ensureHeaders(ctx context.Context, svc Service, title string) error {
	_, err, shared := c.bootstrap.Do(title, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bootstrapTimeout)
		defer cancel()

		rows, err := svc.Values(ctx, Qualify(title, HeaderRange))
		if err != nil {
			return nil, remote(err)
		}
		if !HeaderEmpty(rows) {
			return nil, nil
		}
		c.log.Info("header row empty, initializing sheet", zap.String("sheet", title))
		return nil, c.initSheet(ctx, svc, c.headers, title)
	})
	if shared {
		c.log.Debug("header check shared with concurrent append", zap.String("sheet", title))
	}
	return err
}

// HeaderEmpty reports whether a header read returned no row or only blank cells.
func HeaderEmpty(rows [][]string) bool {
	if len(rows) == 0 {
		return true
	}
	for _, cell := range rows[0] {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func closeService(svc Service, err *error) {
	if cerr := svc.Close(); cerr != nil && *err == nil {
		*err = remote(cerr)
	}
}

// remote classifies a backend failure, keeping errors that already carry a kind.
func remote(err error) error {
	var e *utils.Error
	if errors.As(err, &e) {
		return err
	}
	return utils.RemoteServiceError(err)
}
