package client_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lexivault/vocab-web-app/api-service/internal/client"
	"github.com/lexivault/vocab-web-app/api-service/internal/models"
)

// fakeService is a minimal in-process vocabulary service for client tests.
type fakeService struct {
	mux           *http.ServeMux
	lookupCalls   atomic.Int64
	speechCalls   atomic.Int64
	rejectSession atomic.Bool
}

// handle registers a handler for a single HTTP method, mirroring the
// "METHOD /path" ServeMux patterns available from Go 1.22.
func (s *fakeService) handle(method, path string, h http.HandlerFunc) {
	s.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	})
}

func newFakeService() *fakeService {
	s := &fakeService{mux: http.NewServeMux()}

	s.handle(http.MethodPost, "/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, models.LoginResponse{
			Token:     "test-token",
			ExpiresAt: time.Now().Add(24 * time.Hour),
			User:      &models.User{Username: "alice"},
		})
	})
	s.handle(http.MethodPost, "/api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, models.LogoutResponse{Message: "Logged out successfully"})
	})
	s.handle(http.MethodGet, "/api/v1/session/ping", func(w http.ResponseWriter, r *http.Request) {
		if s.rejectSession.Load() {
			writeTestJSON(w, http.StatusUnauthorized, models.APIError{Code: "unauthorized"})
			return
		}
		writeTestJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.handle(http.MethodPost, "/api/v1/lookup", func(w http.ResponseWriter, r *http.Request) {
		if s.rejectSession.Load() {
			writeTestJSON(w, http.StatusUnauthorized, models.APIError{Code: "unauthorized"})
			return
		}
		s.lookupCalls.Add(1)

		var req models.LookupRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeTestJSON(w, http.StatusOK, models.LookupResponse{
			Word:   req.Word,
			Action: req.Action,
			Result: "generated content for " + req.Word,
		})
	})
	s.handle(http.MethodPost, "/api/v1/speech", func(w http.ResponseWriter, r *http.Request) {
		s.speechCalls.Add(1)
		writeTestJSON(w, http.StatusOK, models.SpeechResponse{
			Audio: base64.StdEncoding.EncodeToString([]byte("mp3-bytes")),
		})
	})
	s.handle(http.MethodPost, "/api/v1/analytics/logout-events", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	return s
}

func writeTestJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func newTestClient(t *testing.T) (*client.Client, *fakeService) {
	t.Helper()

	service := newFakeService()
	server := httptest.NewServer(service.mux)
	t.Cleanup(server.Close)

	c := client.New(client.Options{
		BaseURL:   server.URL,
		StatePath: filepath.Join(t.TempDir(), "state.json"),
	}, quietLogger())
	t.Cleanup(c.Close)

	return c, service
}

func TestClient_LoginStartsMonitoring(t *testing.T) {
	c, _ := newTestClient(t)

	resp, err := c.Login(context.Background(), "alice", "password123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.Token != "test-token" {
		t.Errorf("unexpected token %q", resp.Token)
	}

	info := c.GetSessionInfo()
	if !info.HasToken {
		t.Error("expected HasToken after login")
	}
	if info.Username != "alice" {
		t.Errorf("Username = %q", info.Username)
	}
	if !info.HealthCheckActive {
		t.Error("health monitoring should start on login")
	}
}

func TestClient_LookupServedFromCache(t *testing.T) {
	c, service := newTestClient(t)

	ctx := context.Background()
	if _, err := c.Login(ctx, "alice", "password123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	first, err := c.Lookup(ctx, "Serendipity", models.ActionDefine)
	if err != nil {
		t.Fatalf("first Lookup failed: %v", err)
	}

	// Different casing and whitespace must hit the same entry.
	second, err := c.Lookup(ctx, "  serendipity ", models.ActionDefine)
	if err != nil {
		t.Fatalf("second Lookup failed: %v", err)
	}

	if first != second {
		t.Errorf("cache returned different content: %q vs %q", first, second)
	}
	if calls := service.lookupCalls.Load(); calls != 1 {
		t.Errorf("expected 1 upstream lookup, got %d", calls)
	}

	// A different action is a different namespace entry.
	if _, err := c.Lookup(ctx, "serendipity", models.ActionSynonyms); err != nil {
		t.Fatalf("synonyms Lookup failed: %v", err)
	}
	if calls := service.lookupCalls.Load(); calls != 2 {
		t.Errorf("expected 2 upstream lookups, got %d", calls)
	}
}

func TestClient_SpeechCachedSeparately(t *testing.T) {
	c, service := newTestClient(t)

	ctx := context.Background()
	if _, err := c.Login(ctx, "alice", "password123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	audio, err := c.Speech(ctx, "serendipity")
	if err != nil {
		t.Fatalf("Speech failed: %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Errorf("unexpected audio payload %q", audio)
	}

	if _, err := c.Speech(ctx, "Serendipity"); err != nil {
		t.Fatalf("cached Speech failed: %v", err)
	}
	if calls := service.speechCalls.Load(); calls != 1 {
		t.Errorf("expected 1 upstream speech call, got %d", calls)
	}
}

func TestClient_LogoutClearsEverything(t *testing.T) {
	c, _ := newTestClient(t)

	ctx := context.Background()
	if _, err := c.Login(ctx, "alice", "password123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := c.Lookup(ctx, "ember", models.ActionDefine); err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}

	if err := c.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	info := c.GetSessionInfo()
	if info.HasToken {
		t.Error("token must be cleared on logout")
	}
	if info.HealthCheckActive {
		t.Error("monitoring must stop on logout")
	}
	if c.Cache().Len() != 0 {
		t.Error("cache must be cleared on logout")
	}

	events := c.LogoutEvents().Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 logout event, got %d", len(events))
	}
	if events[0].Type != models.LogoutManual {
		t.Errorf("expected manual event, got %s", events[0].Type)
	}
}

func TestClient_UnauthorizedCallLeavesTeardownToCaller(t *testing.T) {
	c, service := newTestClient(t)

	ctx := context.Background()
	if _, err := c.Login(ctx, "alice", "password123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := c.Lookup(ctx, "ember", models.ActionDefine); err != nil {
		t.Fatalf("warmup Lookup failed: %v", err)
	}

	service.rejectSession.Store(true)

	_, err := c.Lookup(ctx, "zephyr", models.ActionDefine)
	if err == nil {
		t.Fatal("expected error from rejected lookup")
	}
	if status, ok := models.StatusOf(err); !ok || status != http.StatusUnauthorized {
		t.Fatalf("expected 401 APIError, got %v", err)
	}

	// The caller gets the error and decides; the client keeps its state.
	info := c.GetSessionInfo()
	if !info.HasToken {
		t.Error("a rejected call must not wipe credentials on its own")
	}
	if !info.HealthCheckActive {
		t.Error("monitoring must survive a rejected call")
	}
	if info.ConsecutiveFailureCount != 1 {
		t.Errorf("401 should count one failure, got %d", info.ConsecutiveFailureCount)
	}
	if c.Cache().Len() == 0 {
		t.Error("cache must survive a rejected call")
	}

	events := c.LogoutEvents().Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 diagnostic event, got %d", len(events))
	}
	if events[0].Type != models.LogoutServerError {
		t.Errorf("expected server_error event, got %s", events[0].Type)
	}
	if events[0].HTTPStatus != http.StatusUnauthorized {
		t.Errorf("event status = %d", events[0].HTTPStatus)
	}
	if events[0].APIEndpoint != "/api/v1/lookup" {
		t.Errorf("event endpoint = %q", events[0].APIEndpoint)
	}
}

func TestClient_ProbeUnauthorizedForcesTeardown(t *testing.T) {
	c, service := newTestClient(t)

	ctx := context.Background()
	if _, err := c.Login(ctx, "alice", "password123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := c.Lookup(ctx, "ember", models.ActionDefine); err != nil {
		t.Fatalf("warmup Lookup failed: %v", err)
	}

	service.rejectSession.Store(true)
	c.Monitor().ProbeNow()

	info := c.GetSessionInfo()
	if info.HasToken {
		t.Error("credentials must be wiped when the probe sees a 401")
	}
	if info.HealthCheckActive {
		t.Error("monitoring must stop after the probe teardown")
	}
	if c.Cache().Len() != 0 {
		t.Error("cache must be wiped after the probe teardown")
	}

	events := c.LogoutEvents().Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 logout event, got %d", len(events))
	}
	if events[0].Type != models.LogoutServerError {
		t.Errorf("expected server_error event, got %s", events[0].Type)
	}
	if events[0].HTTPStatus != http.StatusUnauthorized {
		t.Errorf("event status = %d", events[0].HTTPStatus)
	}

	// The token is gone now, so the next probe is a no-op.
	c.Monitor().ProbeNow()
	if got := len(c.LogoutEvents().Events()); got != 1 {
		t.Errorf("tokenless probe must not add events, got %d", got)
	}
}

func TestClient_LogoutWithoutSessionIsNoop(t *testing.T) {
	c, _ := newTestClient(t)

	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("Logout without session should be a no-op, got %v", err)
	}
	if len(c.LogoutEvents().Events()) != 0 {
		t.Error("no event should be recorded without a session")
	}
}
