package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pokercrm/playtime/internal/config"
	"github.com/pokercrm/playtime/internal/domain"
)

// LeaderboardSource rebuilds and broadcasts every leaderboard period
type LeaderboardSource interface {
	RefreshLeaderboards(ctx context.Context) ([]*domain.Leaderboard, error)
}

// LeaderboardRefresher periodically rebuilds the leaderboards so that
// rolling windows advance even when nobody is logging playtime
type LeaderboardRefresher struct {
	source  LeaderboardSource
	config  *config.RefreshConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewLeaderboardRefresher creates a new refresher
func NewLeaderboardRefresher(source LeaderboardSource, cfg *config.RefreshConfig, logger *slog.Logger) *LeaderboardRefresher {
	return &LeaderboardRefresher{
		source: source,
		config: cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the background refresh loop
func (w *LeaderboardRefresher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("leaderboard refresher started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background refresh loop and waits for it to exit
func (w *LeaderboardRefresher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("leaderboard refresher stopped")
	return nil
}

func (w *LeaderboardRefresher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce runs a single refresh cycle
func (w *LeaderboardRefresher) RunOnce(ctx context.Context) {
	startTime := time.Now()

	boards, err := w.source.RefreshLeaderboards(ctx)
	if err != nil {
		w.logger.Error("failed to refresh leaderboards", "error", err)
		return
	}

	w.logger.Debug("refreshed leaderboards",
		"duration", time.Since(startTime),
		"periods", len(boards),
	)
}

// IsRunning returns whether the refresher is currently running
func (w *LeaderboardRefresher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
