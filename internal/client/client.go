// Package client is the Go client for the vocabulary service. It layers a
// TTL response cache and a session health monitor over the HTTP API, so a
// frontend using it gets cached lookups, automatic session teardown on
// rejection, and a diagnostic log of why sessions ended.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lexivault/vocab-web-app/api-service/internal/constants"
	"github.com/lexivault/vocab-web-app/api-service/internal/models"
)

const defaultHTTPTimeout = 30 * time.Second

// Options configures a Client.
type Options struct {
	// BaseURL is the service root, e.g. "https://vocab.example.com".
	BaseURL string
	// StatePath is the JSON file holding the persisted logout event log.
	// Empty disables persistence.
	StatePath string
	// CacheTTL overrides the response cache TTL. Zero uses the default.
	CacheTTL time.Duration
	// SweepInterval overrides the cache sweep period. Zero uses the default.
	SweepInterval time.Duration
	// HealthCheckInterval overrides the probe period. Zero uses the default.
	HealthCheckInterval time.Duration
	// FailureThreshold overrides the auto-logout threshold. Zero uses the
	// default.
	FailureThreshold int
	// HTTPTimeout overrides the per-request timeout. Zero uses the default.
	HTTPTimeout time.Duration
}

// Client talks to the vocabulary service on behalf of one user.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logrus.Logger

	mu             sync.RWMutex
	token          string
	username       string
	isAdmin        bool
	sessionStarted time.Time
	lastActivity   time.Time

	cache   *ResponseCache
	monitor *SessionMonitor
	log     *LogoutLog

	now func() time.Time
}

// New creates a client. The cache sweeper starts immediately; session
// monitoring starts on login.
func New(opts Options, logger *logrus.Logger) *Client {
	timeout := opts.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    opts.BaseURL,
		logger:     logger,
		cache:      NewResponseCache(opts.CacheTTL, opts.SweepInterval, logger),
		now:        time.Now,
	}

	c.log = NewLogoutLog(opts.StatePath, c.forwardLogoutEvent, logger)
	c.monitor = NewSessionMonitor(
		opts.HealthCheckInterval,
		opts.FailureThreshold,
		MonitorHooks{
			HasToken: func() bool { return c.currentToken() != "" },
			Probe:    c.Ping,
			Record:   c.recordMonitorEvent,
			Teardown: c.forcedTeardown,
		},
		logger,
	)

	c.cache.StartSweeper()
	return c
}

// Close stops the background goroutines. The client is unusable afterward.
func (c *Client) Close() {
	c.monitor.StopHealthCheck()
	c.cache.StopSweeper()
}

// Cache exposes the response cache.
func (c *Client) Cache() *ResponseCache {
	return c.cache
}

// Monitor exposes the session monitor.
func (c *Client) Monitor() *SessionMonitor {
	return c.monitor
}

// LogoutEvents exposes the logout event log.
func (c *Client) LogoutEvents() *LogoutLog {
	return c.log
}

// Register creates an account and adopts the returned session.
func (c *Client) Register(ctx context.Context, req *models.RegistrationRequest) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/register", req, &resp); err != nil {
		return nil, err
	}

	c.adoptSession(resp.Token, resp.User)
	return &resp, nil
}

// Login establishes a session and starts health monitoring.
func (c *Client) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	req := &models.LoginRequest{Username: username, Password: password}

	var resp models.LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/login", req, &resp); err != nil {
		return nil, err
	}

	c.adoptSession(resp.Token, resp.User)
	return &resp, nil
}

// adoptSession stores the new credentials and starts monitoring.
func (c *Client) adoptSession(token string, user *models.User) {
	c.mu.Lock()
	c.token = token
	if user != nil {
		c.username = user.Username
		c.isAdmin = user.IsAdmin
	}
	now := c.now()
	c.sessionStarted = now
	c.lastActivity = now
	c.mu.Unlock()

	c.monitor.ResetFailureCount()
	c.monitor.StartHealthCheck()
}

// Logout ends the session explicitly. It records a manual logout event,
// tells the server, and tears down local state regardless of whether the
// server call succeeded.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.RLock()
	hasToken := c.token != ""
	c.mu.RUnlock()

	if !hasToken {
		return nil
	}

	c.log.Record(models.LogoutEvent{
		Timestamp:         c.now(),
		Type:              models.LogoutManual,
		Reason:            "user logged out",
		SessionDurationMs: c.sessionDurationMs(),
		LastActivity:      c.lastActivityTime(),
	})

	err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil)

	c.monitor.StopHealthCheck()
	c.clearLocalState()

	if err != nil {
		c.logger.WithError(err).Warn("Server-side logout failed, local state cleared anyway")
	}
	return err
}

// Ping probes session liveness. A success slides the server-side window.
func (c *Client) Ping(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/api/v1/session/ping", nil, nil)
}

// GetSessionInfo returns the client-side view of the current session.
func (c *Client) GetSessionInfo() models.ClientSessionInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return models.ClientSessionInfo{
		HasToken:                c.token != "",
		Username:                c.username,
		IsAdmin:                 c.isAdmin,
		ConsecutiveFailureCount: c.monitor.FailureCount(),
		HealthCheckActive:       c.monitor.IsActive(),
	}
}

// GetSessionHealth returns the diagnostic snapshot derived from the
// logout event log.
func (c *Client) GetSessionHealth() models.SessionHealth {
	return c.log.GetSessionHealth()
}

// recordMonitorEvent is the monitor's record hook. It completes the event
// with session timing and logs it; credentials and cache stay intact.
func (c *Client) recordMonitorEvent(event models.LogoutEvent) {
	event.SessionDurationMs = c.sessionDurationMs()
	event.LastActivity = c.lastActivityTime()
	c.log.Record(event)
}

// forcedTeardown is the monitor's teardown hook. It records the event and
// wipes credentials and cache so no stale content or token survives the
// dead session.
func (c *Client) forcedTeardown(event models.LogoutEvent) {
	c.recordMonitorEvent(event)
	c.clearLocalState()

	c.logger.WithFields(logrus.Fields{
		"type":   event.Type,
		"reason": event.Reason,
	}).Warn("Session torn down")
}

// clearLocalState wipes credentials and the response cache.
func (c *Client) clearLocalState() {
	c.mu.Lock()
	c.token = ""
	c.username = ""
	c.isAdmin = false
	c.sessionStarted = time.Time{}
	c.mu.Unlock()

	c.cache.Clear()
}

// forwardLogoutEvent best-effort ships an event to the server's analytics
// endpoint. Errors are swallowed; the local log is the source of truth.
func (c *Client) forwardLogoutEvent(event models.LogoutEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultHTTPTimeout)
	defer cancel()

	body, err := json.Marshal(event)
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+"/api/v1/analytics/logout-events", bytes.NewReader(body),
	)
	if err != nil {
		return
	}
	req.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	if token := c.currentToken(); token != "" {
		req.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Debug("Failed to forward logout event")
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) sessionDurationMs() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sessionStarted.IsZero() {
		return 0
	}
	return c.now().Sub(c.sessionStarted).Milliseconds()
}

func (c *Client) lastActivityTime() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastActivity
}

func (c *Client) touchActivity() {
	c.mu.Lock()
	c.lastActivity = c.now()
	c.mu.Unlock()
}

// doJSON executes a JSON request against the service. Non-2xx responses
// become *models.APIError carrying the status code and endpoint; transport
// failures come back with no status, which the monitor classifies as
// network errors.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	if body != nil {
		req.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	}
	req.Header.Set(constants.HeaderAccept, constants.ContentTypeJSON)
	if token := c.currentToken(); token != "" {
		req.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return c.parseAPIError(resp, path)
	}

	c.touchActivity()

	if out != nil {
		if decodeErr := json.NewDecoder(resp.Body).Decode(out); decodeErr != nil {
			return fmt.Errorf("failed to decode response: %w", decodeErr)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return nil
}

// parseAPIError converts an error response into *models.APIError.
func (c *Client) parseAPIError(resp *http.Response, path string) error {
	apiErr := &models.APIError{
		Code:       "request_failed",
		StatusCode: resp.StatusCode,
		Endpoint:   path,
	}

	var parsed models.APIError
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err == nil && parsed.Code != "" {
		apiErr.Code = parsed.Code
		apiErr.Message = parsed.Message
	} else {
		apiErr.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}

	return apiErr
}
