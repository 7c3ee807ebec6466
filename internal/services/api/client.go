// Package api provides a thin client for the local control-panel REST API.
package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/adamgunderson/FMOS-LoadAvgCheck-Manager/internal/models"
	"github.com/rs/zerolog"
)

// Configuration categories used by the manager.
const (
	CategoryHealth     = "os/health"
	CategoryAutoBackup = "os/backup/auto-backup"
	CategoryPostBackup = "os/backup/post-backup"
)

const (
	requestTimeout = 10 * time.Second
	applyTimeout   = 30 * time.Second

	// loginMarker must appear in the login response body; the API returns
	// the session user on success and an error document otherwise.
	loginMarker = "username"
)

// Client defines the control-panel API operations used by the manager.
type Client interface {
	Login(ctx context.Context, username, password string) error
	Authenticate(ctx context.Context, creds models.Credentials) error
	ConfigGet(ctx context.Context, category string) map[string]any
	ConfigPut(ctx context.Context, category string, payload map[string]any) error
	Apply(ctx context.Context) error
}

// HTTPClient allows mocking HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Impl implements the Client interface against a single API session.
type Impl struct {
	httpClient HTTPClient
	logger     zerolog.Logger
	baseURL    string
}

// New creates a client for the fixed local API origin. The appliance
// serves a self-signed certificate, so verification is disabled; the
// cookie jar carries the session established by Login.
func New(logger zerolog.Logger, baseURL string) *Impl {
	jar, _ := cookiejar.New(nil)
	return &Impl{
		httpClient: &http.Client{
			Jar: jar,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // self-signed cert on localhost
			},
		},
		logger:  logger,
		baseURL: baseURL,
	}
}

// NewWithClient creates a client with a custom HTTP client (for testing).
func NewWithClient(logger zerolog.Logger, httpClient HTTPClient, baseURL string) *Impl {
	return &Impl{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
	}
}

// Login submits form-encoded credentials. Success requires a 2xx status
// and the session marker in the body.
func (c *Impl) Login(ctx context.Context, username, password string) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Msg("login request failed")
		return fmt.Errorf("login request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error().Err(err).Msg("reading login response failed")
		return fmt.Errorf("reading login response: %w", err)
	}

	if !statusOK(resp.StatusCode) || !strings.Contains(string(body), loginMarker) {
		c.logger.Error().Int("status", resp.StatusCode).Str("user", username).Msg("login rejected")
		return fmt.Errorf("login failed for user %s (status %d)", username, resp.StatusCode)
	}

	c.logger.Debug().Str("user", username).Msg("API login successful")
	return nil
}

// Authenticate logs in with the given credentials. A zero value means no
// credentials are configured anywhere; the call proceeds without an
// explicit login and relies on the API's own default-trust session.
func (c *Impl) Authenticate(ctx context.Context, creds models.Credentials) error {
	if creds.IsZero() {
		c.logger.Debug().Msg("no credentials found, proceeding without explicit login")
		return nil
	}
	return c.Login(ctx, creds.Username, creds.Password)
}

// ConfigGet fetches a configuration category. Every failure (transport
// error, non-2xx status, malformed body) degrades to an empty map so
// callers fall back to their defaults; it is never treated as fatal.
func (c *Impl) ConfigGet(ctx context.Context, category string) map[string]any {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.categoryURL(category), nil)
	if err != nil {
		c.logger.Error().Err(err).Str("category", category).Msg("building config GET failed")
		return map[string]any{}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("category", category).Msg("config GET failed")
		return map[string]any{}
	}
	defer func() { _ = resp.Body.Close() }()

	if !statusOK(resp.StatusCode) {
		c.logger.Error().Int("status", resp.StatusCode).Str("category", category).Msg("config GET rejected")
		return map[string]any{}
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.logger.Error().Err(err).Str("category", category).Msg("decoding config GET response failed")
		return map[string]any{}
	}
	if payload == nil {
		return map[string]any{}
	}
	return payload
}

// ConfigPut writes a configuration category. The change stays pending
// until Apply commits it.
func (c *Impl) ConfigPut(ctx context.Context, category string, payload map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling %s payload: %w", category, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.categoryURL(category), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building config PUT: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("category", category).Msg("config PUT failed")
		return fmt.Errorf("config PUT %s: %w", category, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if !statusOK(resp.StatusCode) {
		c.logger.Error().Int("status", resp.StatusCode).Str("category", category).Msg("config PUT rejected")
		return fmt.Errorf("config PUT %s returned status %d", category, resp.StatusCode)
	}

	return nil
}

// Apply commits pending configuration changes. It gets a longer timeout
// than the other calls because the appliance revalidates its config.
func (c *Impl) Apply(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, applyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/config/apply", nil)
	if err != nil {
		return fmt.Errorf("building config apply: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Msg("config apply failed")
		return fmt.Errorf("config apply: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if !statusOK(resp.StatusCode) {
		c.logger.Error().Int("status", resp.StatusCode).Msg("config apply rejected")
		return fmt.Errorf("config apply returned status %d", resp.StatusCode)
	}

	return nil
}

// categoryURL builds the config endpoint for a category. Categories
// contain slashes ("os/health") but are a single path segment on the
// wire, so the whole category is path-escaped.
func (c *Impl) categoryURL(category string) string {
	return c.baseURL + "/config/values/" + url.PathEscape(category)
}

func statusOK(code int) bool {
	return code >= 200 && code < 300
}
