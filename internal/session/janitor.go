package session

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Janitor periodically removes expired session rows. Correctness does not
// depend on it; GetSession re-checks expiry on every read. It only bounds
// the size of the sessions table.
type Janitor struct {
	store    Store
	interval time.Duration
	logger   *logrus.Logger
	ticker   *time.Ticker
	stop     chan struct{}
}

// NewJanitor creates a janitor sweeping the store on the given interval.
func NewJanitor(store Store, interval time.Duration, logger *logrus.Logger) *Janitor {
	return &Janitor{
		store:    store,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start launches the cleanup goroutine.
func (j *Janitor) Start() {
	j.ticker = time.NewTicker(j.interval)
	go j.run()
	j.logger.WithField("interval", j.interval.String()).Info("Session janitor started")
}

func (j *Janitor) run() {
	defer j.ticker.Stop()

	for {
		select {
		case <-j.ticker.C:
			j.sweep()
		case <-j.stop:
			return
		}
	}
}

func (j *Janitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	removed, err := j.store.CleanupExpiredSessions(ctx)
	if err != nil {
		j.logger.WithError(err).Warn("Session cleanup pass failed")
		return
	}
	if removed > 0 {
		j.logger.WithField("removed", removed).Info("Expired sessions cleaned up")
	}
}

// Stop cancels the cleanup goroutine. Idempotent-safe for a single call
// per Start.
func (j *Janitor) Stop() {
	close(j.stop)
	j.logger.Info("Session janitor stopped")
}
