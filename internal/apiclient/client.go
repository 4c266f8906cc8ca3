// Package apiclient is the only component that talks to the ReserveEase
// REST API.  Every request carries the stored access token as a bearer
// credential when one exists.  The client never retries: retry policy
// belongs to callers.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/reserveease-console/internal/metrics"
	"github.com/iliyamo/reserveease-console/internal/tokenstore"
)

// DefaultBaseURL is the /api path of a backend on the local machine,
// used when no API URL is configured.
const DefaultBaseURL = "http://localhost:8000/api"

const maxBodyBytes = 8 << 20

var tracer = otel.GetTracerProvider().Tracer("github.com/iliyamo/reserveease-console/internal/apiclient")

// TokenSource yields the access token to attach to outgoing requests.
// An empty token means the request goes out unauthenticated.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// StoreTokens reads the access token from a token store.
type StoreTokens struct{ Store tokenstore.Store }

func (s StoreTokens) AccessToken(ctx context.Context) (string, error) {
	return tokenstore.Lookup(ctx, s.Store, tokenstore.KeyAccess)
}

// Config holds connection settings for the backend.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client performs calls against the backend REST contract.
type Client struct {
	base   string
	http   *http.Client
	tokens TokenSource
}

// New builds a Client.  A nil TokenSource sends every request without
// credentials.
func New(cfg Config, tokens TokenSource) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{base: base, http: hc, tokens: tokens}
}

// BaseURL returns the normalized backend URL.
func (c *Client) BaseURL() string { return c.base }

// do sends one request and accepts any 2xx answer.  route is the path
// template used for metric and span names (e.g. /reservations/{id}/),
// path the concrete path.
func (c *Client) do(ctx context.Context, method, route, path string, in, out any) error {
	return c.exchange(ctx, method, route, path, 0, in, out)
}

// exchange is do with an exact expected status.  want == 0 accepts any 2xx.
func (c *Client) exchange(ctx context.Context, method, route, path string, want int, in, out any) error {
	ctx, span := tracer.Start(ctx, method+" "+route, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("http.method", method), attribute.String("http.route", route))

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	span.SetAttributes(attribute.String("request.id", reqID))

	if c.tokens != nil {
		tok, err := c.tokens.AccessToken(ctx)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("read access token: %w", err)
		}
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.APIRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APIRequests.WithLabelValues(method, route, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()
	metrics.APIRequests.WithLabelValues(method, route, strconv.Itoa(resp.StatusCode)).Inc()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read body")
		return fmt.Errorf("%w: read %s %s: %v", ErrNetwork, method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || (want != 0 && resp.StatusCode != want) {
		herr := &HTTPError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		span.RecordError(herr)
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		return herr
	}
	if out == nil {
		return nil
	}
	if dec, ok := out.(func([]byte) error); ok {
		if err := dec(raw); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode")
			return err
		}
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode")
		return fmt.Errorf("%w: %s %s: %v", errDecode, method, path, err)
	}
	return nil
}
