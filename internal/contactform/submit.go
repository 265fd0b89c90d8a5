package contactform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/timtanatarov/daydi-spa/internal/utils"
)

// DefaultEndpoint is where Submit posts when Submitter.Endpoint is empty.
const DefaultEndpoint = "http://localhost:8080/contact"

// FallbackError is reported when the endpoint fails without a message.
const FallbackError = "failed to submit the form"

// Submitter posts validated forms to the contact endpoint. Failed submissions
// are logged and returned; nothing is retried or queued.
type Submitter struct {
	Endpoint   string
	HTTPClient *http.Client
	Log        *zap.Logger
}

type submitResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// Submit validates form and posts its payload.
func (s *Submitter) Submit(ctx context.Context, form *Form) error {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}

	if errs := form.Validate(); len(errs) > 0 {
		return utils.ValidationError(formatErrors(errs))
	}

	payload := form.Payload()
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode form: %w", err)
	}

	endpoint := strings.TrimSpace(s.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Error("form send failed", zap.String("endpoint", endpoint), zap.Error(err))
		return utils.RemoteServiceError(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var out submitResponse
		msg := FallbackError
		if json.Unmarshal(body, &out) == nil && out.Error != "" {
			msg = out.Error
		}
		log.Error("form send failed",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("error", msg),
		)
		return &utils.Error{Kind: utils.KindRemote, Code: resp.StatusCode, Message: msg}
	}

	log.Info("form sent", zap.String("endpoint", endpoint), zap.Any("payload", payload))
	return nil
}

func formatErrors(errs map[string]string) string {
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, field := range fields {
		parts[i] = field + ": " + errs[field]
	}
	return strings.Join(parts, "; ")
}
