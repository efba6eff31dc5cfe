package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokercrm/playtime/internal/config"
	"github.com/pokercrm/playtime/internal/domain"
)

type countingSource struct {
	calls atomic.Int32
	err   error
}

func (s *countingSource) RefreshLeaderboards(context.Context) ([]*domain.Leaderboard, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return []*domain.Leaderboard{{Period: domain.PeriodDay}}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestLeaderboardRefresher_TicksUntilStopped(t *testing.T) {
	source := &countingSource{}
	w := NewLeaderboardRefresher(source, &config.RefreshConfig{Interval: 10 * time.Millisecond}, testLogger())

	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.IsRunning())

	require.Eventually(t, func() bool {
		return source.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())

	calls := source.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, source.calls.Load())
}

func TestLeaderboardRefresher_StartAndStopAreIdempotent(t *testing.T) {
	w := NewLeaderboardRefresher(&countingSource{}, &config.RefreshConfig{Interval: time.Hour}, testLogger())

	require.NoError(t, w.Stop())
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
}

func TestLeaderboardRefresher_RunOnceSurvivesErrors(t *testing.T) {
	source := &countingSource{err: errors.New("store down")}
	w := NewLeaderboardRefresher(source, &config.RefreshConfig{Interval: time.Hour}, testLogger())

	w.RunOnce(context.Background())
	w.RunOnce(context.Background())
	assert.Equal(t, int32(2), source.calls.Load())
}

func TestLeaderboardRefresher_ContextCancelStopsLoop(t *testing.T) {
	source := &countingSource{}
	w := NewLeaderboardRefresher(source, &config.RefreshConfig{Interval: 5 * time.Millisecond}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()

	select {
	case <-w.doneCh:
	case <-time.After(time.Second):
		t.Fatal("refresher did not exit after context cancel")
	}
}
