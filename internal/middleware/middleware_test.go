package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lexivault/vocab-web-app/api-service/internal/config"
	"github.com/lexivault/vocab-web-app/api-service/internal/session"
)

func newTestStack(t *testing.T) (*Stack, *session.MemoryStore) {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := &config.Config{}
	cfg.Session.Window = time.Hour

	sessions := session.NewMemoryStore(cfg.Session.Window, log)
	return NewStack(cfg, sessions, nil, log), sessions
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSessionAuth_MissingToken(t *testing.T) {
	stack, _ := newTestStack(t)
	handler := stack.SessionAuth(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/words", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestSessionAuth_UnknownToken(t *testing.T) {
	stack, _ := newTestStack(t)
	handler := stack.SessionAuth(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/words", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestSessionAuth_ValidTokenAttachesSession(t *testing.T) {
	stack, sessions := newTestStack(t)

	userID := uuid.New()
	if err := sessions.CreateSession(context.Background(), "tok", userID, false, "", ""); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	var seenUser uuid.UUID
	handler := stack.SessionAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromContext(r.Context())
		if sess == nil {
			t.Fatal("session missing from context")
		}
		seenUser = sess.UserID
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/words", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seenUser != userID {
		t.Error("context session carries the wrong user")
	}
}

func TestSessionAuth_ExpiredTokenRejected(t *testing.T) {
	stack, sessions := newTestStack(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	sessions.SetClock(func() time.Time { return now })

	if err := sessions.CreateSession(context.Background(), "tok", uuid.New(), false, "", ""); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	now = base.Add(2 * time.Hour)

	handler := stack.SessionAuth(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/words", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for an expired session, got %d", rec.Code)
	}
}

func TestSessionAuth_SlidesWindow(t *testing.T) {
	stack, sessions := newTestStack(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	sessions.SetClock(func() time.Time { return now })

	if err := sessions.CreateSession(context.Background(), "tok", uuid.New(), false, "", ""); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	handler := stack.SessionAuth(okHandler())

	// Touch the session every 40 minutes; each pass through the
	// middleware pushes expiry another hour out, so the token stays
	// valid far past the original one-hour window.
	for i := 0; i < 4; i++ {
		now = now.Add(40 * time.Minute)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/words", nil)
		req.Header.Set("Authorization", "Bearer tok")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
}

func TestAdminOnly_NonAdminForbidden(t *testing.T) {
	stack, sessions := newTestStack(t)

	if err := sessions.CreateSession(context.Background(), "user-tok", uuid.New(), false, "", ""); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	handler := stack.SessionAuth(stack.AdminOnly(okHandler()))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/prompts", nil)
	req.Header.Set("Authorization", "Bearer user-tok")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestAdminOnly_AdminAllowed(t *testing.T) {
	stack, sessions := newTestStack(t)

	if err := sessions.CreateSession(context.Background(), "admin-tok", uuid.New(), true, "", ""); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	handler := stack.SessionAuth(stack.AdminOnly(okHandler()))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/prompts", nil)
	req.Header.Set("Authorization", "Bearer admin-tok")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAdminOnly_WithoutSessionContext(t *testing.T) {
	stack, _ := newTestStack(t)

	handler := stack.AdminOnly(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/prompts", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestContentType_RejectsNonJSONBody(t *testing.T) {
	stack, _ := newTestStack(t)

	handler := stack.ContentType(okHandler())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/words", nil)
	req.Header.Set("Content-Type", "text/plain")
	req.ContentLength = 10
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415, got %d", rec.Code)
	}
}

func TestContentType_AllowsBodylessRequests(t *testing.T) {
	stack, _ := newTestStack(t)

	handler := stack.ContentType(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/words", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
