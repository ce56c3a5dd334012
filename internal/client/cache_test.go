package client_test

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lexivault/vocab-web-app/api-service/internal/client"
)

type fakeClock struct {
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.current
}

func (c *fakeClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func newTestCache(ttl time.Duration) (*client.ResponseCache, *fakeClock) {
	cache := client.NewResponseCache(ttl, time.Hour, quietLogger())
	clock := newFakeClock()
	cache.SetClock(clock.Now)
	return cache, clock
}

func TestResponseCache_NormalizesKeys(t *testing.T) {
	cache, _ := newTestCache(5 * time.Minute)

	cache.Set("Serendipity", "define", "a fortunate discovery")

	got, ok := cache.Get("  serendipity  ", "define")
	if !ok {
		t.Fatal("expected cache hit for normalized key")
	}
	if got != "a fortunate discovery" {
		t.Errorf("got %q", got)
	}

	if _, ok := cache.Get("serendipity", "synonyms"); ok {
		t.Error("different action must not share an entry")
	}
}

func TestResponseCache_TextAndAudioNamespaces(t *testing.T) {
	cache, _ := newTestCache(5 * time.Minute)

	cache.Set("echo", "define", "a reflected sound")
	cache.SetAudio("echo", []byte{0x01, 0x02})

	text, ok := cache.Get("echo", "define")
	if !ok || text != "a reflected sound" {
		t.Fatalf("text entry lost: %q, %v", text, ok)
	}

	audio, ok := cache.GetAudio("echo")
	if !ok || len(audio) != 2 {
		t.Fatalf("audio entry lost: %v, %v", audio, ok)
	}
}

func TestResponseCache_StaleEntryIsMissBeforeSweep(t *testing.T) {
	cache, clock := newTestCache(5 * time.Minute)

	cache.Set("ember", "define", "a glowing coal")

	clock.Advance(5*time.Minute + time.Second)

	// No sweep has run; the read itself must reject the stale entry.
	if _, ok := cache.Get("ember", "define"); ok {
		t.Fatal("stale entry served")
	}
	if cache.Len() != 0 {
		t.Errorf("stale entry should be dropped on read, len=%d", cache.Len())
	}
}

func TestResponseCache_FreshEntrySurvivesRead(t *testing.T) {
	cache, clock := newTestCache(5 * time.Minute)

	cache.Set("zephyr", "define", "a gentle breeze")
	clock.Advance(4 * time.Minute)

	if _, ok := cache.Get("zephyr", "define"); !ok {
		t.Fatal("fresh entry missed")
	}
	if _, ok := cache.Get("zephyr", "define"); !ok {
		t.Fatal("reads must not consume entries")
	}
}

func TestResponseCache_SweepRemovesOnlyStale(t *testing.T) {
	cache, clock := newTestCache(5 * time.Minute)

	cache.Set("old", "define", "stale soon")
	clock.Advance(4 * time.Minute)
	cache.Set("new", "define", "still fresh")
	clock.Advance(2 * time.Minute)

	removed := cache.Sweep()
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, ok := cache.Get("new", "define"); !ok {
		t.Error("fresh entry swept")
	}
}

func TestResponseCache_Clear(t *testing.T) {
	cache, _ := newTestCache(5 * time.Minute)

	cache.Set("one", "define", "1")
	cache.SetAudio("one", []byte{0x01})
	cache.Clear()

	if cache.Len() != 0 {
		t.Errorf("expected empty cache, len=%d", cache.Len())
	}
}

func TestResponseCache_SweeperStartStopIdempotent(t *testing.T) {
	cache := client.NewResponseCache(time.Minute, time.Hour, quietLogger())

	cache.StartSweeper()
	cache.StartSweeper()
	cache.StopSweeper()
	cache.StopSweeper()
}
