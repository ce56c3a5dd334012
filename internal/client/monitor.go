package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lexivault/vocab-web-app/api-service/internal/models"
)

const (
	// DefaultHealthCheckInterval is the period of the background session
	// probe.
	DefaultHealthCheckInterval = 5 * time.Minute
	// DefaultFailureThreshold is the consecutive failure count at which
	// the monitor decides the session is gone.
	DefaultFailureThreshold = 3

	probeTimeout = 15 * time.Second
)

// MonitorHooks wires a SessionMonitor to its owner. Probe is the liveness
// check; HasToken gates it so an unauthenticated client is never probed.
// Record receives diagnostic logout events; Teardown additionally wipes
// local session state and is reserved for a probe that finds the session
// rejected outright.
type MonitorHooks struct {
	HasToken func() bool
	Probe    func(ctx context.Context) error
	Record   func(event models.LogoutEvent)
	Teardown func(event models.LogoutEvent)
}

// SessionMonitor watches session health. It combines a periodic liveness
// probe with per-call error classification: both feed one shared
// consecutive-failure counter. Reaching the threshold records a
// network_error event and makes ShouldAutoLogout report true; the
// decision to actually end the session then belongs to the caller. Only
// a 401 on the probe itself is terminal immediately, since there the
// server has rejected the session with no user call in flight to react.
type SessionMonitor struct {
	hooks MonitorHooks

	interval  time.Duration
	threshold int
	logger    *logrus.Logger

	mu           sync.Mutex
	active       bool
	stop         chan struct{}
	failures     int
	recentErrors []string
}

// NewSessionMonitor creates a monitor in the idle state.
func NewSessionMonitor(
	interval time.Duration,
	threshold int,
	hooks MonitorHooks,
	logger *logrus.Logger,
) *SessionMonitor {
	if interval <= 0 {
		interval = DefaultHealthCheckInterval
	}
	if threshold < 1 {
		threshold = DefaultFailureThreshold
	}

	return &SessionMonitor{
		hooks:     hooks,
		interval:  interval,
		threshold: threshold,
		logger:    logger,
	}
}

// StartHealthCheck transitions the monitor from idle to monitoring.
// Calling it while already monitoring is a no-op, so there is never more
// than one probe loop.
func (m *SessionMonitor) StartHealthCheck() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active {
		return
	}

	m.active = true
	m.failures = 0
	m.recentErrors = nil
	m.stop = make(chan struct{})

	go m.run(m.stop)
	m.logger.Debug("Session health monitoring started")
}

// StopHealthCheck returns the monitor to idle. Safe to call when already
// idle.
func (m *SessionMonitor) StopHealthCheck() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *SessionMonitor) stopLocked() {
	if !m.active {
		return
	}

	m.active = false
	close(m.stop)
	m.stop = nil
	m.logger.Debug("Session health monitoring stopped")
}

// IsActive reports whether the probe loop is running.
func (m *SessionMonitor) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// FailureCount returns the current consecutive failure count.
func (m *SessionMonitor) FailureCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}

// ResetFailureCount clears the consecutive failure counter. Called after
// a deliberate re-authentication.
func (m *SessionMonitor) ResetFailureCount() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = 0
	m.recentErrors = nil
}

// ShouldAutoLogout reports whether consecutive failures have reached the
// threshold. Pure predicate: it stays true until a success or an explicit
// reset, so a caller seeing it can force logout itself.
func (m *SessionMonitor) ShouldAutoLogout() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures >= m.threshold
}

// run is the probe loop. It exits when the stop channel closes.
func (m *SessionMonitor) run(stop chan struct{}) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.ProbeNow()
		case <-stop:
			return
		}
	}
}

// ProbeNow performs one liveness check synchronously. Without a token the
// probe is skipped entirely; it counts as neither failure nor success.
func (m *SessionMonitor) ProbeNow() {
	if m.hooks.HasToken != nil && !m.hooks.HasToken() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	m.observeProbe(m.hooks.Probe(ctx))
}

// observeProbe classifies a probe outcome. Unlike a wrapped call, a 401
// here tears the session down on the spot: the server rejected the
// session and there is no caller to hand the decision to.
func (m *SessionMonitor) observeProbe(err error) {
	if err == nil {
		m.resetFailures()
		return
	}

	status, hasStatus := models.StatusOf(err)

	switch {
	case status == http.StatusUnauthorized:
		m.logger.Warn("Session rejected during health check")
		m.forceLogout(models.LogoutEvent{
			Timestamp:    time.Now(),
			Type:         models.LogoutServerError,
			Reason:       "session expired during health check",
			ErrorDetails: err.Error(),
			APIEndpoint:  "/api/v1/session/ping",
			HTTPStatus:   status,
		})

	case status == http.StatusForbidden:
		// Authenticated but not allowed. Not a session health signal.

	case !hasStatus || status >= http.StatusInternalServerError:
		m.noteFailure("/api/v1/session/ping", err)
	}
}

// WrapAPICall runs fn and feeds its outcome into session health tracking.
// The error is returned unchanged so callers keep their normal handling.
func (m *SessionMonitor) WrapAPICall(endpoint string, fn func() error) error {
	err := fn()
	m.Observe(endpoint, err)
	return err
}

// Observe classifies one wrapped request outcome:
//   - success resets the failure counter
//   - 401 records a server_error event and counts toward the threshold;
//     the error is left for the caller, who decides whether to log out
//   - 403 passes through untouched; the session itself is fine
//   - 5xx and network errors increment the shared counter; crossing the
//     threshold records a network_error event with the accumulated
//     failure detail
//   - other statuses (4xx request errors) leave the counter alone
func (m *SessionMonitor) Observe(endpoint string, err error) {
	if err == nil {
		m.resetFailures()
		return
	}

	status, hasStatus := models.StatusOf(err)

	switch {
	case status == http.StatusUnauthorized:
		m.logger.WithField("endpoint", endpoint).Warn("Session rejected by server")
		m.recordEvent(models.LogoutEvent{
			Timestamp:    time.Now(),
			Type:         models.LogoutServerError,
			Reason:       "session rejected by server",
			ErrorDetails: err.Error(),
			APIEndpoint:  endpoint,
			HTTPStatus:   status,
		})
		m.incrementFailures(endpoint)

	case status == http.StatusForbidden:
		// Authenticated but not allowed. Not a session health signal.

	case !hasStatus || status >= http.StatusInternalServerError:
		m.noteFailure(endpoint, err)
	}
}

func (m *SessionMonitor) resetFailures() {
	m.mu.Lock()
	m.failures = 0
	m.recentErrors = nil
	m.mu.Unlock()
}

// incrementFailures bumps the counter for a failure whose event has
// already been recorded.
func (m *SessionMonitor) incrementFailures(endpoint string) {
	m.mu.Lock()
	m.failures++
	failures := m.failures
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"failures": failures,
	}).Warn("Session health check failure")
}

// noteFailure bumps the counter for a network or server failure. Crossing
// the threshold records one network_error event carrying every error
// message accumulated since the last success.
func (m *SessionMonitor) noteFailure(endpoint string, err error) {
	m.mu.Lock()
	m.failures++
	m.recentErrors = append(m.recentErrors, err.Error())
	if len(m.recentErrors) > m.threshold {
		m.recentErrors = m.recentErrors[len(m.recentErrors)-m.threshold:]
	}
	failures := m.failures
	crossed := failures == m.threshold
	details := strings.Join(m.recentErrors, "; ")
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"failures": failures,
	}).Warn("Session health check failure")

	if crossed {
		m.recordEvent(models.LogoutEvent{
			Timestamp:    time.Now(),
			Type:         models.LogoutNetworkError,
			Reason:       fmt.Sprintf("%d consecutive health check failures", m.threshold),
			ErrorDetails: details,
			APIEndpoint:  endpoint,
		})
	}
}

// recordEvent hands a diagnostic event to the owner without touching
// session state.
func (m *SessionMonitor) recordEvent(event models.LogoutEvent) {
	if m.hooks.Record != nil {
		m.hooks.Record(event)
	}
}

// forceLogout stops monitoring and hands the event to the teardown hook,
// which records it and wipes local session state.
func (m *SessionMonitor) forceLogout(event models.LogoutEvent) {
	m.mu.Lock()
	m.stopLocked()
	m.failures = 0
	m.recentErrors = nil
	m.mu.Unlock()

	if m.hooks.Teardown != nil {
		m.hooks.Teardown(event)
	}
}
