package client_test

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lexivault/vocab-web-app/api-service/internal/client"
	"github.com/lexivault/vocab-web-app/api-service/internal/models"
)

func TestLogoutLog_BoundedNewestFirst(t *testing.T) {
	log := client.NewLogoutLog("", nil, quietLogger())

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		log.Record(models.LogoutEvent{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Type:      models.LogoutManual,
			Reason:    fmt.Sprintf("logout %d", i),
		})
	}

	events := log.Events()
	if len(events) != client.MaxLogoutEvents {
		t.Fatalf("expected %d events, got %d", client.MaxLogoutEvents, len(events))
	}
	if events[0].Reason != "logout 59" {
		t.Errorf("newest event must be first, got %q", events[0].Reason)
	}
	if events[len(events)-1].Reason != "logout 10" {
		t.Errorf("oldest retained should be logout 10, got %q", events[len(events)-1].Reason)
	}
}

func TestLogoutLog_PersistsAcrossInstances(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "vocab-client-state.json")

	first := client.NewLogoutLog(statePath, nil, quietLogger())
	first.Record(models.LogoutEvent{
		Timestamp:         time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Type:              models.LogoutServerError,
		Reason:            "session rejected by server",
		HTTPStatus:        http.StatusUnauthorized,
		SessionDurationMs: 90000,
	})

	second := client.NewLogoutLog(statePath, nil, quietLogger())
	events := second.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 restored event, got %d", len(events))
	}
	if events[0].Reason != "session rejected by server" {
		t.Errorf("restored reason mismatch: %q", events[0].Reason)
	}
	if events[0].HTTPStatus != http.StatusUnauthorized {
		t.Errorf("restored status mismatch: %d", events[0].HTTPStatus)
	}
}

func TestLogoutLog_ForwardsBestEffort(t *testing.T) {
	var mu sync.Mutex
	forwarded := 0
	done := make(chan struct{}, 1)

	log := client.NewLogoutLog("", func(models.LogoutEvent) {
		mu.Lock()
		forwarded++
		mu.Unlock()
		done <- struct{}{}
	}, quietLogger())

	log.Record(models.LogoutEvent{Type: models.LogoutManual, Reason: "user logged out"})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forward hook never invoked")
	}

	mu.Lock()
	defer mu.Unlock()
	if forwarded != 1 {
		t.Errorf("expected 1 forward, got %d", forwarded)
	}
}

func TestSessionHealth_Totals(t *testing.T) {
	log := client.NewLogoutLog("", nil, quietLogger())

	log.Record(models.LogoutEvent{Type: models.LogoutManual, Reason: "user logged out", SessionDurationMs: 120000})
	log.Record(models.LogoutEvent{Type: models.LogoutAuto, Reason: "consecutive server errors", SessionDurationMs: 60000})
	log.Record(models.LogoutEvent{Type: models.LogoutManual, Reason: "user logged out", SessionDurationMs: 180000})

	health := log.GetSessionHealth()
	if health.TotalLogouts != 3 {
		t.Errorf("TotalLogouts = %d", health.TotalLogouts)
	}
	if health.UnexpectedLogouts != 1 {
		t.Errorf("UnexpectedLogouts = %d", health.UnexpectedLogouts)
	}
	if health.AvgSessionDurationMs != 120000 {
		t.Errorf("AvgSessionDurationMs = %d", health.AvgSessionDurationMs)
	}
	if len(health.TopReasons) == 0 || health.TopReasons[0].Reason != "user logged out" {
		t.Errorf("TopReasons = %+v", health.TopReasons)
	}
}

func TestSessionHealth_ReasonTiesBrokenByFirstSeen(t *testing.T) {
	log := client.NewLogoutLog("", nil, quietLogger())

	// Equal counts; the history is scanned newest first, so the most
	// recently recorded reason is seen first and must win the tie even
	// though it sorts after the other alphabetically.
	log.Record(models.LogoutEvent{Type: models.LogoutManual, Reason: "browser closed"})
	log.Record(models.LogoutEvent{Type: models.LogoutManual, Reason: "user logged out"})

	health := log.GetSessionHealth()
	if len(health.TopReasons) != 2 {
		t.Fatalf("expected 2 ranked reasons, got %d", len(health.TopReasons))
	}
	if health.TopReasons[0].Reason != "user logged out" {
		t.Errorf("tie must go to the first-seen reason, got %q", health.TopReasons[0].Reason)
	}
}

func TestSessionHealth_Repeated401Pattern(t *testing.T) {
	log := client.NewLogoutLog("", nil, quietLogger())

	for i := 0; i < 3; i++ {
		log.Record(models.LogoutEvent{
			Type:       models.LogoutServerError,
			Reason:     "session rejected by server",
			HTTPStatus: http.StatusUnauthorized,
		})
	}

	health := log.GetSessionHealth()
	if !containsPattern(health.RecentPatterns, "401") {
		t.Errorf("expected 401 pattern, got %v", health.RecentPatterns)
	}
}

func TestSessionHealth_NetworkFailurePattern(t *testing.T) {
	log := client.NewLogoutLog("", nil, quietLogger())

	for i := 0; i < 3; i++ {
		log.Record(models.LogoutEvent{
			Type:   models.LogoutNetworkError,
			Reason: "consecutive network failures",
		})
	}

	health := log.GetSessionHealth()
	if !containsPattern(health.RecentPatterns, "network") {
		t.Errorf("expected network pattern, got %v", health.RecentPatterns)
	}
}

func TestSessionHealth_ShortSessionPattern(t *testing.T) {
	log := client.NewLogoutLog("", nil, quietLogger())

	for i := 0; i < 4; i++ {
		log.Record(models.LogoutEvent{
			Type:              models.LogoutAuto,
			Reason:            "consecutive server errors",
			SessionDurationMs: 30000,
		})
	}

	health := log.GetSessionHealth()
	if !containsPattern(health.RecentPatterns, "under a minute") {
		t.Errorf("expected short-session pattern, got %v", health.RecentPatterns)
	}
}

func TestSessionHealth_PatternsOnlyConsiderRecentWindow(t *testing.T) {
	log := client.NewLogoutLog("", nil, quietLogger())

	// Three 401s buried under twelve clean manual logouts: outside the
	// ten-event window, so no pattern should fire.
	for i := 0; i < 3; i++ {
		log.Record(models.LogoutEvent{
			Type:       models.LogoutServerError,
			HTTPStatus: http.StatusUnauthorized,
			Reason:     "session rejected by server",
		})
	}
	for i := 0; i < 12; i++ {
		log.Record(models.LogoutEvent{Type: models.LogoutManual, Reason: "user logged out", SessionDurationMs: 600000})
	}

	health := log.GetSessionHealth()
	if containsPattern(health.RecentPatterns, "401") {
		t.Errorf("old 401s outside the window must not fire the pattern: %v", health.RecentPatterns)
	}
}

func containsPattern(patterns []string, substr string) bool {
	for _, p := range patterns {
		if strings.Contains(p, substr) {
			return true
		}
	}
	return false
}
