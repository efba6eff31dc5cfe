package playtimetest

import (
	"context"
	"sync"

	"github.com/pokercrm/playtime/internal/domain"
)

// MemoryCache is an in-memory service.Cache
type MemoryCache struct {
	mu            sync.Mutex
	boards        map[string]domain.Leaderboard
	names         map[int64]string
	Invalidations int
}

// NewMemoryCache creates an empty cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		boards: make(map[string]domain.Leaderboard),
		names:  make(map[int64]string),
	}
}

func boardKey(period domain.Period, windowStart string) string {
	return string(period) + ":" + windowStart
}

func (c *MemoryCache) GetLeaderboard(_ context.Context, period domain.Period, windowStart string) (*domain.Leaderboard, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lb, ok := c.boards[boardKey(period, windowStart)]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return &lb, nil
}

func (c *MemoryCache) SetLeaderboard(_ context.Context, lb *domain.Leaderboard) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boards[boardKey(lb.Period, lb.StartDate)] = *lb
	return nil
}

func (c *MemoryCache) InvalidateLeaderboards(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boards = make(map[string]domain.Leaderboard)
	c.Invalidations++
	return nil
}

func (c *MemoryCache) PlayerNames(_ context.Context, playerIDs []int64) (map[int64]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make(map[int64]string)
	for _, id := range playerIDs {
		if name, ok := c.names[id]; ok {
			names[id] = name
		}
	}
	return names, nil
}

func (c *MemoryCache) SetPlayerNames(_ context.Context, names map[int64]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, name := range names {
		c.names[id] = name
	}
	return nil
}

func (c *MemoryCache) Ping(context.Context) error {
	return nil
}

// Cached reports whether a board is cached for the period window
func (c *MemoryCache) Cached(period domain.Period, windowStart string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.boards[boardKey(period, windowStart)]
	return ok
}

// RecordingHub is a service.Broadcaster that records what it was sent
type RecordingHub struct {
	mu         sync.Mutex
	subscribed map[domain.Period]bool
	Sent       []domain.Leaderboard
}

// NewRecordingHub creates a hub with subscribers on the given periods
func NewRecordingHub(periods ...domain.Period) *RecordingHub {
	h := &RecordingHub{subscribed: make(map[domain.Period]bool)}
	for _, p := range periods {
		h.subscribed[p] = true
	}
	return h
}

func (h *RecordingHub) HasSubscribers(period domain.Period) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.subscribed[period]
}

func (h *RecordingHub) BroadcastLeaderboard(lb *domain.Leaderboard) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Sent = append(h.Sent, *lb)
}
