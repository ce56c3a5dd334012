package client

import (
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultCacheTTL is the maximum age after which a cached response is
	// treated as absent.
	DefaultCacheTTL = 5 * time.Minute
	// DefaultSweepInterval is how often the background sweeper removes
	// stale entries.
	DefaultSweepInterval = 10 * time.Minute

	audioKeyPrefix = "audio|"
)

// cacheEntry is one stored response with its storage timestamp.
type cacheEntry struct {
	text     string
	audio    []byte
	storedAt time.Time
}

// ResponseCache is a TTL cache for generated word content and synthesized
// audio. Text and audio live in separate key namespaces so a word and a
// spoken text with the same spelling never collide. Reads re-validate
// freshness, so an entry older than the TTL is a miss even if the sweeper
// has not removed it yet.
type ResponseCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry

	ttl           time.Duration
	sweepInterval time.Duration

	sweepMu sync.Mutex
	ticker  *time.Ticker
	stop    chan struct{}

	logger *logrus.Logger
	now    func() time.Time
}

// NewResponseCache creates a response cache. The sweeper is not started;
// call StartSweeper.
func NewResponseCache(ttl, sweepInterval time.Duration, logger *logrus.Logger) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}

	return &ResponseCache{
		entries:       make(map[string]cacheEntry),
		ttl:           ttl,
		sweepInterval: sweepInterval,
		logger:        logger,
		now:           time.Now,
	}
}

// SetClock replaces the cache's time source. Tests use this to simulate
// elapsed time.
func (c *ResponseCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// normalizeKey lowercases and trims the lookup term so "Hello", "hello",
// and " hello " share one entry.
func normalizeKey(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

func textKey(word, action string) string {
	return normalizeKey(word) + "|" + action
}

func audioKey(text string) string {
	return audioKeyPrefix + normalizeKey(text)
}

// Get returns the cached text for a word and action, or false when the
// entry is absent or stale.
func (c *ResponseCache) Get(word, action string) (string, bool) {
	entry, ok := c.lookup(textKey(word, action))
	if !ok {
		return "", false
	}
	return entry.text, true
}

// GetAudio returns cached audio for a text, or false when absent or stale.
func (c *ResponseCache) GetAudio(text string) ([]byte, bool) {
	entry, ok := c.lookup(audioKey(text))
	if !ok {
		return nil, false
	}
	return entry.audio, true
}

// lookup fetches an entry and re-validates its freshness at read time.
func (c *ResponseCache) lookup(key string) (cacheEntry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	now := c.now()
	c.mu.RUnlock()

	if !ok {
		return cacheEntry{}, false
	}
	if now.Sub(entry.storedAt) > c.ttl {
		c.mu.Lock()
		// Re-check: a concurrent Set may have refreshed the entry.
		if current, still := c.entries[key]; still && c.now().Sub(current.storedAt) > c.ttl {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return cacheEntry{}, false
	}
	return entry, true
}

// Set stores generated text for a word and action.
func (c *ResponseCache) Set(word, action, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[textKey(word, action)] = cacheEntry{text: text, storedAt: c.now()}
}

// SetAudio stores synthesized audio for a text.
func (c *ResponseCache) SetAudio(text string, audio []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[audioKey(text)] = cacheEntry{audio: audio, storedAt: c.now()}
}

// Clear removes every entry. Called on logout so no content generated for
// one session leaks into the next.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Len returns the number of stored entries, stale ones included.
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep removes all stale entries and returns how many were removed.
func (c *ResponseCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if now.Sub(entry.storedAt) > c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// StartSweeper starts the periodic background sweep. Calling it while a
// sweeper is already running is a no-op.
func (c *ResponseCache) StartSweeper() {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()

	if c.stop != nil {
		return
	}

	c.ticker = time.NewTicker(c.sweepInterval)
	c.stop = make(chan struct{})

	go func(ticker *time.Ticker, stop chan struct{}) {
		for {
			select {
			case <-ticker.C:
				if removed := c.Sweep(); removed > 0 {
					c.logger.WithField("removed", removed).Debug("Swept stale cache entries")
				}
			case <-stop:
				return
			}
		}
	}(c.ticker, c.stop)
}

// StopSweeper stops the background sweep. Safe to call when no sweeper is
// running.
func (c *ResponseCache) StopSweeper() {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()

	if c.stop == nil {
		return
	}

	c.ticker.Stop()
	close(c.stop)
	c.ticker = nil
	c.stop = nil
}
