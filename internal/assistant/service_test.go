package assistant

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lexivault/vocab-web-app/api-service/internal/config"
	"github.com/lexivault/vocab-web-app/api-service/internal/models"
	"github.com/lexivault/vocab-web-app/api-service/internal/repository"
)

type stubCompleter struct {
	lastSystemPrompt string
	lastUserPrompt   string
	result           string
	audio            []byte
	err              error
}

func (s *stubCompleter) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	s.lastSystemPrompt = systemPrompt
	s.lastUserPrompt = userPrompt
	return s.result, s.err
}

func (s *stubCompleter) Synthesize(_ context.Context, _ string) ([]byte, error) {
	return s.audio, s.err
}

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newServiceWithTemplate(t *testing.T, stub *stubCompleter, template string) *Service {
	t.Helper()

	prompts := repository.NewMemoryPromptRepository()
	err := prompts.UpsertTemplate(context.Background(), &models.PromptTemplate{
		Action:   models.ActionDefine,
		Template: template,
	})
	if err != nil {
		t.Fatalf("failed to store template: %v", err)
	}
	return NewService(stub, prompts, quietLog())
}

func TestLookup_SubstitutesWordIntoTemplate(t *testing.T) {
	stub := &stubCompleter{result: "  a feline mammal  \n"}
	svc := newServiceWithTemplate(t, stub, "Define the word %s briefly.")

	user := &models.User{UserID: uuid.New()}
	result, err := svc.Lookup(context.Background(), user, "cat", models.ActionDefine)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stub.lastSystemPrompt != "Define the word cat briefly." {
		t.Errorf("unexpected system prompt: %q", stub.lastSystemPrompt)
	}
	if stub.lastUserPrompt != "cat" {
		t.Errorf("unexpected user prompt: %q", stub.lastUserPrompt)
	}
	if result != "a feline mammal" {
		t.Errorf("expected trimmed result, got %q", result)
	}
}

func TestLookup_TemplateWithoutPlaceholder(t *testing.T) {
	stub := &stubCompleter{result: "ok"}
	svc := newServiceWithTemplate(t, stub, "Define the next word the user sends.")

	user := &models.User{UserID: uuid.New()}
	if _, err := svc.Lookup(context.Background(), user, "cat", models.ActionDefine); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stub.lastSystemPrompt != "Define the next word the user sends." {
		t.Errorf("template without placeholder must pass through unchanged, got %q", stub.lastSystemPrompt)
	}
}

func TestLookup_AppendsCustomInstruction(t *testing.T) {
	stub := &stubCompleter{result: "ok"}
	svc := newServiceWithTemplate(t, stub, "Define %s.")

	user := &models.User{
		UserID:            uuid.New(),
		CustomInstruction: "  Answer in German.  ",
	}
	if _, err := svc.Lookup(context.Background(), user, "cat", models.ActionDefine); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "Define cat.\n\nAdditional instruction for this user: Answer in German."
	if stub.lastSystemPrompt != want {
		t.Errorf("system prompt mismatch:\n got %q\nwant %q", stub.lastSystemPrompt, want)
	}
}

func TestLookup_MissingTemplate(t *testing.T) {
	stub := &stubCompleter{result: "ok"}
	svc := NewService(stub, repository.NewMemoryPromptRepository(), quietLog())

	user := &models.User{UserID: uuid.New()}
	_, err := svc.Lookup(context.Background(), user, "cat", models.ActionDefine)
	if err == nil {
		t.Fatal("expected an error for a missing template")
	}
	if stub.lastUserPrompt != "" {
		t.Error("upstream must not be called when the template is missing")
	}
}

func TestLookup_UpstreamError(t *testing.T) {
	stub := &stubCompleter{err: errors.New("upstream down")}
	svc := newServiceWithTemplate(t, stub, "Define %s.")

	user := &models.User{UserID: uuid.New()}
	if _, err := svc.Lookup(context.Background(), user, "cat", models.ActionDefine); err == nil {
		t.Fatal("expected upstream error to propagate")
	}
}

func TestClientComplete_SendsAuthAndParsesChoice(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"a feline"}}]}`))
	}))
	defer server.Close()

	client := NewClient(&config.AssistantConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
	}, quietLog())

	result, err := client.Complete(context.Background(), "system", "cat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "a feline" {
		t.Errorf("unexpected result: %q", result)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("unexpected auth header: %q", gotAuth)
	}
}

func TestClientComplete_ParsesUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit exceeded","type":"rate_limit_error"}}`))
	}))
	defer server.Close()

	client := NewClient(&config.AssistantConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	}, quietLog())

	_, err := client.Complete(context.Background(), "system", "cat")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "rate limit exceeded") {
		t.Errorf("error should carry the upstream message, got %q", err)
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error should carry the status code, got %q", err)
	}
}

func TestClientSynthesize_ReturnsRawAudio(t *testing.T) {
	audio := []byte{0xFF, 0xF3, 0x01, 0x02}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(audio)
	}))
	defer server.Close()

	client := NewClient(&config.AssistantConfig{
		BaseURL:     server.URL,
		APIKey:      "test-key",
		SpeechModel: "tts-1",
		Voice:       "alloy",
		Timeout:     5 * time.Second,
	}, quietLog())

	got, err := client.Synthesize(context.Background(), "cat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != string(audio) {
		t.Errorf("audio payload mismatch")
	}
}
