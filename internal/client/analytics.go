package client

import (
	"encoding/json"
	"net/http"
	"os"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/lexivault/vocab-web-app/api-service/internal/models"
)

const (
	// MaxLogoutEvents bounds the client-side logout event log.
	MaxLogoutEvents = 50

	// patternWindow is how many recent events the health heuristics look at.
	patternWindow = 10
	// shortSessionMs is the duration under which a session counts as
	// suspiciously short.
	shortSessionMs = 60000

	topReasonsLimit = 5
)

// LogoutLog is a bounded, newest-first log of session-ending events. It is
// persisted to the client state file so diagnostics survive restarts, and
// each recorded event is forwarded to the server on a best-effort basis.
type LogoutLog struct {
	mu     sync.Mutex
	events []models.LogoutEvent

	statePath string
	forward   func(models.LogoutEvent)
	logger    *logrus.Logger
}

// logState is the on-disk shape of the persisted event log.
type logState struct {
	LogoutEvents []models.LogoutEvent `json:"logout_events"`
}

// NewLogoutLog creates a logout event log. statePath may be empty to skip
// persistence; forward may be nil to skip server-side forwarding. Existing
// state is loaded from disk when present.
func NewLogoutLog(statePath string, forward func(models.LogoutEvent), logger *logrus.Logger) *LogoutLog {
	l := &LogoutLog{
		statePath: statePath,
		forward:   forward,
		logger:    logger,
	}
	l.load()
	return l
}

// Record appends an event at the front of the log, trims to the bound,
// persists, and forwards. Neither persistence nor forwarding failure is
// surfaced to the caller.
func (l *LogoutLog) Record(event models.LogoutEvent) {
	l.mu.Lock()
	l.events = append([]models.LogoutEvent{event}, l.events...)
	if len(l.events) > MaxLogoutEvents {
		l.events = l.events[:MaxLogoutEvents]
	}
	l.persistLocked()
	l.mu.Unlock()

	if l.forward != nil {
		// Fire-and-forget: the session that produced this event may
		// already be gone, so a failed forward is expected and ignored.
		go l.forward(event)
	}
}

// Events returns a copy of the log, newest first.
func (l *LogoutLog) Events() []models.LogoutEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.LogoutEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Clear drops all recorded events and the persisted state.
func (l *LogoutLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
	l.persistLocked()
}

// GetSessionHealth computes a diagnostic snapshot from the recorded
// events. The snapshot is derived on demand and never stored.
func (l *LogoutLog) GetSessionHealth() models.SessionHealth {
	events := l.Events()

	health := models.SessionHealth{
		TotalLogouts: len(events),
	}

	var durationSum int64
	var durationCount int64
	reasons := make(map[string]*reasonTally)

	for i := range events {
		if events[i].IsUnexpected() {
			health.UnexpectedLogouts++
		}
		if events[i].SessionDurationMs > 0 {
			durationSum += events[i].SessionDurationMs
			durationCount++
		}
		if events[i].Reason != "" {
			tally, ok := reasons[events[i].Reason]
			if !ok {
				tally = &reasonTally{firstSeen: i}
				reasons[events[i].Reason] = tally
			}
			tally.count++
		}
	}

	if durationCount > 0 {
		health.AvgSessionDurationMs = durationSum / durationCount
	}

	health.TopReasons = rankReasons(reasons)
	health.RecentPatterns = detectPatterns(events)
	return health
}

// reasonTally tracks one reason's count and where it first appeared in
// the scanned slice.
type reasonTally struct {
	count     int
	firstSeen int
}

// rankReasons sorts reasons by descending count, ties broken by
// first-seen order in the scanned slice.
func rankReasons(reasons map[string]*reasonTally) []models.ReasonCount {
	type entry struct {
		models.ReasonCount
		firstSeen int
	}

	entries := make([]entry, 0, len(reasons))
	for reason, tally := range reasons {
		entries = append(entries, entry{
			ReasonCount: models.ReasonCount{Reason: reason, Count: tally.count},
			firstSeen:   tally.firstSeen,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].firstSeen < entries[j].firstSeen
	})

	ranked := make([]models.ReasonCount, 0, topReasonsLimit)
	for _, e := range entries {
		ranked = append(ranked, e.ReasonCount)
		if len(ranked) == topReasonsLimit {
			break
		}
	}
	return ranked
}

// detectPatterns applies the failure heuristics over the most recent
// events (the log is newest-first, so that is a prefix).
func detectPatterns(events []models.LogoutEvent) []string {
	window := events
	if len(window) > patternWindow {
		window = window[:patternWindow]
	}

	var unauthorized, network, short int
	for i := range window {
		if window[i].HTTPStatus == http.StatusUnauthorized {
			unauthorized++
		}
		if window[i].Type == models.LogoutNetworkError {
			network++
		}
		if window[i].SessionDurationMs > 0 && window[i].SessionDurationMs < shortSessionMs {
			short++
		}
	}

	var patterns []string
	if unauthorized >= 3 {
		patterns = append(patterns, "repeated 401 responses; the server may be rejecting this client's sessions")
	}
	if network >= 3 {
		patterns = append(patterns, "recurring network failures; connectivity to the server is unstable")
	}
	if short >= 4 {
		patterns = append(patterns, "multiple sessions ended in under a minute")
	}
	return patterns
}

// load restores persisted events from the state file, tolerating a
// missing or corrupt file.
func (l *LogoutLog) load() {
	if l.statePath == "" {
		return
	}

	data, err := os.ReadFile(l.statePath)
	if err != nil {
		if !os.IsNotExist(err) {
			l.logger.WithError(err).Warn("Failed to read client state file")
		}
		return
	}

	var state logState
	if err := json.Unmarshal(data, &state); err != nil {
		l.logger.WithError(err).Warn("Discarding corrupt client state file")
		return
	}

	l.events = state.LogoutEvents
	if len(l.events) > MaxLogoutEvents {
		l.events = l.events[:MaxLogoutEvents]
	}
}

// persistLocked writes the current events to the state file. Caller holds
// l.mu.
func (l *LogoutLog) persistLocked() {
	if l.statePath == "" {
		return
	}

	data, err := json.MarshalIndent(logState{LogoutEvents: l.events}, "", "  ")
	if err != nil {
		l.logger.WithError(err).Warn("Failed to marshal client state")
		return
	}

	if err := os.WriteFile(l.statePath, data, 0o600); err != nil {
		l.logger.WithError(err).Warn("Failed to write client state file")
	}
}
