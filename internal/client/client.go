package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bruttobar/pos-client/internal/domain"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

const (
	authPath        = "/auth/token"
	storefrontsPath = "/storefronts"
	contentType     = "application/json; charset=utf-8"

	maxTokenBytes   = 64 << 10
	maxCatalogBytes = 10 << 20
)

var tracer = otel.Tracer("github.com/bruttobar/pos-client/internal/client")

type Options struct {
	BaseURL   string
	Timeout   time.Duration
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// Client talks to the POS backend. It holds no session state; callers pass the token.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]domain.Storefront]
	logger  *slog.Logger
}

func New(opts Options) *Client {
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http: &http.Client{
			Transport: otelhttp.NewTransport(transport),
			Timeout:   timeout,
		},
		logger: logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]domain.Storefront](gobreaker.Settings{
		Name:    "storefronts",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// isBreakerSuccess keeps client errors (bad token, 404) from opening the breaker;
// only transport failures and 5xx count against the backend.
func isBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var catalogErr *CatalogError
	if errors.As(err, &catalogErr) && catalogErr.Status >= 400 && catalogErr.Status < 500 {
		return true
	}
	return false
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges credentials for a raw token string.
func (c *Client) Login(ctx context.Context, username, password string) (token string, err error) {
	ctx, span := tracer.Start(ctx, "client.Login")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "authentication failed")
		}
		span.End()
	}()

	body, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return "", &AuthenticationError{Err: fmt.Errorf("marshal credentials failed: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+authPath, bytes.NewReader(body))
	if err != nil {
		return "", &AuthenticationError{Err: err}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "auth request failed", "error", err)
		return "", &AuthenticationError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxTokenBytes))
		c.logger.InfoContext(ctx, "auth rejected", "status", resp.StatusCode)
		return "", &AuthenticationError{Status: resp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenBytes))
	if err != nil {
		return "", &AuthenticationError{Status: resp.StatusCode, Err: fmt.Errorf("read token failed: %w", err)}
	}
	token = strings.TrimSpace(string(raw))
	if token == "" {
		return "", &AuthenticationError{Status: resp.StatusCode, Err: errors.New("empty token")}
	}
	return token, nil
}

// GetStorefronts fetches the full catalog. Every call is a fresh request.
func (c *Client) GetStorefronts(ctx context.Context, token string) ([]domain.Storefront, error) {
	ctx, span := tracer.Start(ctx, "client.GetStorefronts")
	defer span.End()

	storefronts, err := c.breaker.Execute(func() ([]domain.Storefront, error) {
		return c.fetchStorefronts(ctx, token)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "catalog fetch failed")
		var catalogErr *CatalogError
		if errors.As(err, &catalogErr) {
			return nil, catalogErr
		}
		return nil, &CatalogError{Err: err}
	}
	return storefronts, nil
}

func (c *Client) fetchStorefronts(ctx context.Context, token string) ([]domain.Storefront, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+storefrontsPath, nil)
	if err != nil {
		return nil, &CatalogError{Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &CatalogError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxCatalogBytes))
		return nil, &CatalogError{Status: resp.StatusCode}
	}

	var storefronts []domain.Storefront
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxCatalogBytes)).Decode(&storefronts); err != nil {
		return nil, &CatalogError{Err: fmt.Errorf("decode storefronts failed: %w", err)}
	}
	if storefronts == nil {
		storefronts = []domain.Storefront{}
	}
	return storefronts, nil
}
