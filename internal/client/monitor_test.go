package client_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lexivault/vocab-web-app/api-service/internal/client"
	"github.com/lexivault/vocab-web-app/api-service/internal/models"
)

// hookRecorder captures the monitor's recorded events and teardowns.
type hookRecorder struct {
	mu        sync.Mutex
	recorded  []models.LogoutEvent
	teardowns []models.LogoutEvent
}

func (r *hookRecorder) record(event models.LogoutEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorded = append(r.recorded, event)
}

func (r *hookRecorder) teardown(event models.LogoutEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teardowns = append(r.teardowns, event)
}

func (r *hookRecorder) recordedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.recorded)
}

func (r *hookRecorder) teardownCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.teardowns)
}

func (r *hookRecorder) lastRecorded() models.LogoutEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recorded[len(r.recorded)-1]
}

func newTestMonitor(threshold int, probe func(ctx context.Context) error) (*client.SessionMonitor, *hookRecorder) {
	recorder := &hookRecorder{}
	if probe == nil {
		probe = func(context.Context) error { return nil }
	}
	monitor := client.NewSessionMonitor(
		time.Hour, // probes never fire on the ticker during tests
		threshold,
		client.MonitorHooks{
			HasToken: func() bool { return true },
			Probe:    probe,
			Record:   recorder.record,
			Teardown: recorder.teardown,
		},
		quietLogger(),
	)
	return monitor, recorder
}

func TestMonitor_ThresholdSetsAutoLogoutWithoutTeardown(t *testing.T) {
	monitor, recorder := newTestMonitor(3, nil)

	for i := 0; i < 3; i++ {
		err := monitor.WrapAPICall("/api/v1/words", func() error {
			return errors.New("dial tcp: connection refused")
		})
		if err == nil {
			t.Fatal("wrapped call must rethrow the original error")
		}
	}

	if !monitor.ShouldAutoLogout() {
		t.Fatalf("expected auto-logout after 3 failures, FailureCount=%d", monitor.FailureCount())
	}
	if monitor.FailureCount() != 3 {
		t.Errorf("counter must survive the threshold, got %d", monitor.FailureCount())
	}
	if recorder.teardownCount() != 0 {
		t.Errorf("threshold must not tear the session down, got %d teardowns", recorder.teardownCount())
	}
	if recorder.recordedCount() != 1 {
		t.Fatalf("expected one threshold event, got %d", recorder.recordedCount())
	}
	if recorder.lastRecorded().Type != models.LogoutNetworkError {
		t.Errorf("expected network_error event, got %s", recorder.lastRecorded().Type)
	}

	// Further failures keep the decision pending without re-announcing it.
	monitor.Observe("/api/v1/words", errors.New("dial tcp: connection refused"))
	if !monitor.ShouldAutoLogout() {
		t.Error("auto-logout must stay pending past the threshold")
	}
	if recorder.recordedCount() != 1 {
		t.Errorf("threshold event must fire once per streak, got %d", recorder.recordedCount())
	}

	// Only a success clears the pending decision.
	monitor.Observe("/api/v1/words", nil)
	if monitor.ShouldAutoLogout() {
		t.Error("success must clear the auto-logout decision")
	}
}

func TestMonitor_ThresholdEventAggregatesErrors(t *testing.T) {
	monitor, recorder := newTestMonitor(3, nil)

	monitor.Observe("/api/v1/lookup", errors.New("timeout on lookup"))
	monitor.Observe("/api/v1/words", &models.APIError{
		Code:       "server_error",
		Message:    "upstream exploded",
		StatusCode: http.StatusInternalServerError,
	})
	monitor.Observe("/api/v1/words", errors.New("connection reset"))

	if recorder.recordedCount() != 1 {
		t.Fatalf("expected one threshold event, got %d", recorder.recordedCount())
	}

	event := recorder.lastRecorded()
	if event.Type != models.LogoutNetworkError {
		t.Errorf("mixed 5xx and network failures must yield network_error, got %s", event.Type)
	}
	for _, fragment := range []string{"timeout on lookup", "upstream exploded", "connection reset"} {
		if !strings.Contains(event.ErrorDetails, fragment) {
			t.Errorf("aggregated detail missing %q: %q", fragment, event.ErrorDetails)
		}
	}
}

func TestMonitor_WrappedUnauthorizedRecordsAndRethrows(t *testing.T) {
	monitor, recorder := newTestMonitor(3, nil)
	monitor.StartHealthCheck()
	defer monitor.StopHealthCheck()

	apiErr := &models.APIError{Code: "unauthorized", StatusCode: http.StatusUnauthorized}
	err := monitor.WrapAPICall("/api/v1/words", func() error { return apiErr })

	if !errors.Is(err, apiErr) {
		t.Fatalf("wrapped call must rethrow the original error, got %v", err)
	}
	if recorder.teardownCount() != 0 {
		t.Error("a wrapped-call 401 must leave teardown to the caller")
	}
	if !monitor.IsActive() {
		t.Error("monitoring must survive a wrapped-call 401")
	}
	if monitor.FailureCount() != 1 {
		t.Errorf("401 must count toward the threshold, got %d", monitor.FailureCount())
	}

	if recorder.recordedCount() != 1 {
		t.Fatalf("expected one recorded event, got %d", recorder.recordedCount())
	}
	event := recorder.lastRecorded()
	if event.Type != models.LogoutServerError {
		t.Errorf("expected server_error event, got %s", event.Type)
	}
	if event.HTTPStatus != http.StatusUnauthorized {
		t.Errorf("expected status 401 on event, got %d", event.HTTPStatus)
	}
	if event.APIEndpoint != "/api/v1/words" {
		t.Errorf("expected failing endpoint on event, got %q", event.APIEndpoint)
	}
}

func TestMonitor_ProbeUnauthorizedTearsDown(t *testing.T) {
	probeErr := &models.APIError{Code: "unauthorized", StatusCode: http.StatusUnauthorized}
	monitor, recorder := newTestMonitor(3, func(context.Context) error { return probeErr })
	monitor.StartHealthCheck()

	monitor.ProbeNow()

	if recorder.teardownCount() != 1 {
		t.Fatalf("expected immediate teardown on probe 401, got %d", recorder.teardownCount())
	}
	if monitor.IsActive() {
		t.Error("monitor must stop after forced teardown")
	}

	event := recorder.teardowns[0]
	if event.Type != models.LogoutServerError {
		t.Errorf("expected server_error event, got %s", event.Type)
	}
	if event.HTTPStatus != http.StatusUnauthorized {
		t.Errorf("expected status 401 on event, got %d", event.HTTPStatus)
	}
}

func TestMonitor_ProbeWithoutTokenIsNoOp(t *testing.T) {
	recorder := &hookRecorder{}
	probed := false
	monitor := client.NewSessionMonitor(
		time.Hour,
		3,
		client.MonitorHooks{
			HasToken: func() bool { return false },
			Probe: func(context.Context) error {
				probed = true
				return &models.APIError{Code: "unauthorized", StatusCode: http.StatusUnauthorized}
			},
			Record:   recorder.record,
			Teardown: recorder.teardown,
		},
		quietLogger(),
	)

	monitor.ProbeNow()

	if probed {
		t.Error("probe must not run without a token")
	}
	if monitor.FailureCount() != 0 {
		t.Errorf("tokenless probe must not count as failure, got %d", monitor.FailureCount())
	}
	if recorder.recordedCount() != 0 || recorder.teardownCount() != 0 {
		t.Error("tokenless probe must not produce events")
	}
}

func TestMonitor_ForbiddenIsNotAHealthSignal(t *testing.T) {
	monitor, recorder := newTestMonitor(3, nil)

	forbidden := &models.APIError{Code: "forbidden", StatusCode: http.StatusForbidden}
	for i := 0; i < 5; i++ {
		monitor.Observe("/api/v1/admin/prompts", forbidden)
	}

	if monitor.FailureCount() != 0 {
		t.Errorf("403 must not touch the failure counter, got %d", monitor.FailureCount())
	}
	if recorder.recordedCount() != 0 || recorder.teardownCount() != 0 {
		t.Error("403 must never produce events")
	}
}

func TestMonitor_SuccessResetsCounter(t *testing.T) {
	monitor, recorder := newTestMonitor(3, nil)

	monitor.Observe("/api/v1/words", errors.New("timeout"))
	monitor.Observe("/api/v1/words", errors.New("timeout"))
	monitor.Observe("/api/v1/words", nil)

	if monitor.FailureCount() != 0 {
		t.Fatalf("expected counter reset on success, got %d", monitor.FailureCount())
	}

	// The earlier failures must not linger toward a later threshold.
	monitor.Observe("/api/v1/words", errors.New("timeout"))
	monitor.Observe("/api/v1/words", errors.New("timeout"))
	if monitor.ShouldAutoLogout() {
		t.Error("auto-logout requested without reaching threshold after reset")
	}
	if recorder.recordedCount() != 0 {
		t.Errorf("no threshold event expected, got %d", recorder.recordedCount())
	}
}

func TestMonitor_SharedCounterAcrossEndpoints(t *testing.T) {
	monitor, recorder := newTestMonitor(3, func(context.Context) error {
		return errors.New("timeout")
	})

	// Probe failures and wrapped-call failures feed the same counter.
	monitor.ProbeNow()
	_ = monitor.WrapAPICall("/api/v1/words", func() error { return errors.New("timeout") })
	monitor.ProbeNow()

	if !monitor.ShouldAutoLogout() {
		t.Fatalf("mixed failures should reach the shared threshold, FailureCount=%d", monitor.FailureCount())
	}
	if recorder.recordedCount() != 1 {
		t.Errorf("expected one threshold event, got %d", recorder.recordedCount())
	}
}

func TestMonitor_StartStopIdempotent(t *testing.T) {
	monitor, _ := newTestMonitor(3, nil)

	monitor.StartHealthCheck()
	monitor.StartHealthCheck()
	if !monitor.IsActive() {
		t.Fatal("monitor should be active")
	}

	monitor.StopHealthCheck()
	monitor.StopHealthCheck()
	if monitor.IsActive() {
		t.Fatal("monitor should be idle")
	}
}

func TestMonitor_ResetFailureCountClearsDecision(t *testing.T) {
	monitor, _ := newTestMonitor(2, nil)

	if monitor.ShouldAutoLogout() {
		t.Fatal("fresh monitor must not request logout")
	}

	monitor.Observe("/api/v1/words", errors.New("timeout"))
	if monitor.ShouldAutoLogout() {
		t.Fatal("below threshold")
	}

	monitor.Observe("/api/v1/words", errors.New("timeout"))
	if !monitor.ShouldAutoLogout() {
		t.Fatal("threshold reached, auto-logout must be pending")
	}

	monitor.ResetFailureCount()
	if monitor.ShouldAutoLogout() {
		t.Error("explicit reset must clear the pending decision")
	}
	if monitor.FailureCount() != 0 {
		t.Errorf("counter should be zero after reset, got %d", monitor.FailureCount())
	}
}
