// Package reconsvc provides a client for the reconciliation matching service.
package reconsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/recon-cli/internal/model"
)

// Form field names expected by the matching service.
const (
	FieldAccountFile = "account_file"
	FieldResultFile  = "result_file"
)

// StatusSuccess is the discriminator value of a successful reply.
const StatusSuccess = "success"

// DefaultEndpoint is the path of the reconciliation endpoint.
const DefaultEndpoint = "/match"

// Client defines the reconciliation service operations.
type Client interface {
	// Match uploads the account roster and win results and returns the
	// decoded reply. A service-reported failure is not an error; inspect
	// MatchResponse.Status.
	Match(ctx context.Context, req MatchRequest) (*MatchResponse, error)
}

// File is one uploaded file.
type File struct {
	Name string
	Body io.Reader
}

// MatchRequest carries the two input files plus any extra form fields.
type MatchRequest struct {
	AccountFile File
	ResultFile  File
	Fields      map[string]string
}

// MatchResponse is the reply of the reconciliation service.
type MatchResponse struct {
	Status         string      `json:"status"`
	Message        string      `json:"message,omitempty"`
	Data           []model.Row `json:"data,omitempty"`
	TotalMatches   int         `json:"total_matches"`
	TotalUnmatched *int        `json:"total_unmatched,omitempty"`
	TotalWinCount  int         `json:"total_win_count"`
	HasResults     *bool       `json:"has_results,omitempty"`

	// RequestID is the X-Request-ID sent with the submission.
	RequestID string `json:"-"`
}

// Succeeded reports whether the discriminator equals the success sentinel.
func (r *MatchResponse) Succeeded() bool {
	return r.Status == StatusSuccess
}

// Exportable returns has_results, defaulting to whether any rows came back
// when the service omits the field.
func (r *MatchResponse) Exportable() bool {
	if r.HasResults != nil {
		return *r.HasResults
	}
	return len(r.Data) > 0
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets the service base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithEndpoint overrides the reconciliation path.
func WithEndpoint(path string) Option {
	return func(c *httpClient) {
		if path != "" {
			c.endpoint = "/" + strings.TrimLeft(path, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithLimiter spaces outbound submissions.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

type httpClient struct {
	baseURL  string
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
}

// NewClient creates a reconciliation service client. The default HTTP client
// has no timeout; a submission runs until the transport gives up.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:  "http://127.0.0.1:5000",
		endpoint: DefaultEndpoint,
		http:     &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Match(ctx context.Context, req MatchRequest) (*MatchResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "reconsvc: rate limit")
		}
	}

	body, contentType, err := encodeForm(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.endpoint, body)
	if err != nil {
		return nil, eris.Wrap(err, "reconsvc: create request")
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "reconsvc: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "reconsvc: read response body")
	}

	zap.L().Debug("reconsvc: reply received",
		zap.String("request_id", requestID),
		zap.Int("status_code", resp.StatusCode),
		zap.Int("bytes", len(raw)),
		zap.Duration("elapsed", time.Since(start)),
	)

	// The service reports failures in the body, often with 200. Only a
	// body that is not JSON is treated as a transport problem.
	var result MatchResponse
	if err := json.Unmarshal(nonFiniteToNull(raw), &result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, eris.Errorf("reconsvc: unexpected status %d: %s", resp.StatusCode, truncate(raw, 200))
		}
		return nil, eris.Wrap(err, "reconsvc: unmarshal response")
	}
	result.RequestID = requestID

	return &result, nil
}

// encodeForm builds the multipart body for a submission.
func encodeForm(req MatchRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for name, value := range req.Fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", eris.Wrapf(err, "reconsvc: write field %s", name)
		}
	}

	if err := writeFile(w, FieldAccountFile, req.AccountFile); err != nil {
		return nil, "", err
	}
	if err := writeFile(w, FieldResultFile, req.ResultFile); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", eris.Wrap(err, "reconsvc: close multipart writer")
	}
	return &buf, w.FormDataContentType(), nil
}

func writeFile(w *multipart.Writer, field string, f File) error {
	if f.Body == nil {
		return eris.Errorf("reconsvc: %s has no body", field)
	}
	part, err := w.CreateFormFile(field, f.Name)
	if err != nil {
		return eris.Wrapf(err, "reconsvc: create part %s", field)
	}
	if _, err := io.Copy(part, f.Body); err != nil {
		return eris.Wrapf(err, "reconsvc: copy %s", field)
	}
	return nil
}

// nonFiniteToNull rewrites the bare NaN, Infinity and -Infinity tokens that
// pandas writes for missing cells into null. String contents are untouched.
func nonFiniteToNull(raw []byte) []byte {
	var out []byte
	inString, escaped := false, false
	last := 0
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		if ch == '"' {
			inString = true
			continue
		}
		for _, tok := range nonFiniteTokens {
			if bytes.HasPrefix(raw[i:], tok) {
				out = append(out, raw[last:i]...)
				out = append(out, "null"...)
				i += len(tok) - 1
				last = i + 1
				break
			}
		}
	}
	if out == nil {
		return raw
	}
	return append(out, raw[last:]...)
}

var nonFiniteTokens = [][]byte{[]byte("NaN"), []byte("-Infinity"), []byte("Infinity")}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
