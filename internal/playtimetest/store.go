// Package playtimetest provides in-memory doubles of the playtime service's
// collaborators for tests.
package playtimetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pokercrm/playtime/internal/domain"
	"github.com/pokercrm/playtime/internal/playtime"
)

// MemoryStore is an in-memory service.Store that enforces the same
// one-entry-per-player-per-day rule as the Postgres schema.
type MemoryStore struct {
	mu           sync.Mutex
	players      map[int64]domain.Player
	entries      map[int64]domain.PlaytimeEntry
	fingerprints map[string]struct{}
	nextPlayer   int64
	nextEntry    int64
	now          func() time.Time

	// PingErr is returned by Ping when set
	PingErr error
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		players:      make(map[int64]domain.Player),
		entries:      make(map[int64]domain.PlaytimeEntry),
		fingerprints: make(map[string]struct{}),
		now:          time.Now,
	}
}

func (s *MemoryStore) Ping(context.Context) error {
	return s.PingErr
}

func (s *MemoryStore) CreatePlayer(_ context.Context, name string) (*domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextPlayer++
	now := s.now().UTC()
	p := domain.Player{ID: s.nextPlayer, Name: name, CreatedAt: now, UpdatedAt: now}
	s.players[p.ID] = p
	return &p, nil
}

func (s *MemoryStore) GetPlayer(_ context.Context, playerID int64) (*domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	return &p, nil
}

func (s *MemoryStore) ListPlayers(context.Context) ([]domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	players := make([]domain.Player, 0, len(s.players))
	for _, p := range s.players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	return players, nil
}

func (s *MemoryStore) PlayerNames(_ context.Context, playerIDs []int64) (map[int64]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make(map[int64]string, len(playerIDs))
	for _, id := range playerIDs {
		if p, ok := s.players[id]; ok {
			names[id] = p.Name
		}
	}
	return names, nil
}

func (s *MemoryStore) ListEntries(_ context.Context, playerID int64, from, to *time.Time) ([]domain.PlaytimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.PlaytimeEntry{}
	for _, e := range s.sortedEntries() {
		if e.PlayerID == playerID {
			out = append(out, e)
		}
	}
	return playtime.FilterRange(out, from, to), nil
}

func (s *MemoryStore) ListEntriesBetween(_ context.Context, from, to time.Time) ([]domain.PlaytimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.PlaytimeEntry{}
	for _, e := range s.sortedEntries() {
		if !e.PlayedOn.Before(from) && e.PlayedOn.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetEntry(_ context.Context, entryID int64) (*domain.PlaytimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[entryID]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	return &e, nil
}

func (s *MemoryStore) UpsertEntry(_ context.Context, entry domain.PlaytimeEntry) (*domain.PlaytimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[entry.PlayerID]; !ok {
		return nil, domain.ErrPlayerNotFound
	}

	now := s.now().UTC()
	if existing, ok := s.findDay(entry.PlayerID, entry.PlayedOn); ok {
		existing.StartTime = entry.StartTime
		existing.EndTime = entry.EndTime
		existing.Minutes = entry.Minutes
		existing.UpdatedAt = now
		s.entries[existing.ID] = existing
		return &existing, nil
	}
	return s.insert(entry, now), nil
}

func (s *MemoryStore) UpdateEntry(_ context.Context, entry domain.PlaytimeEntry) (*domain.PlaytimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.entries[entry.ID]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	if other, ok := s.findDay(existing.PlayerID, entry.PlayedOn); ok && other.ID != entry.ID {
		return nil, domain.ErrEntryConflict
	}

	existing.PlayedOn = entry.PlayedOn
	existing.StartTime = entry.StartTime
	existing.EndTime = entry.EndTime
	existing.Minutes = entry.Minutes
	existing.UpdatedAt = s.now().UTC()
	s.entries[existing.ID] = existing
	return &existing, nil
}

func (s *MemoryStore) DeleteEntry(_ context.Context, entryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[entryID]; !ok {
		return domain.ErrEntryNotFound
	}
	delete(s.entries, entryID)
	return nil
}

func (s *MemoryStore) MergeSession(_ context.Context, session domain.PlaytimeEntry, fingerprint, _ string) (*domain.PlaytimeEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[session.PlayerID]; !ok {
		return nil, false, domain.ErrPlayerNotFound
	}
	if _, dup := s.fingerprints[fingerprint]; dup {
		return nil, false, nil
	}
	s.fingerprints[fingerprint] = struct{}{}

	now := s.now().UTC()
	if existing, ok := s.findDay(session.PlayerID, session.PlayedOn); ok {
		merged := playtime.Merge(existing, session)
		merged.UpdatedAt = now
		s.entries[merged.ID] = merged
		return &merged, true, nil
	}
	return s.insert(session, now), true, nil
}

// Entries returns a snapshot of every stored entry, oldest day first
func (s *MemoryStore) Entries() []domain.PlaytimeEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedEntries()
}

func (s *MemoryStore) insert(entry domain.PlaytimeEntry, now time.Time) *domain.PlaytimeEntry {
	s.nextEntry++
	entry.ID = s.nextEntry
	entry.CreatedAt = now
	entry.UpdatedAt = now
	s.entries[entry.ID] = entry
	return &entry
}

func (s *MemoryStore) findDay(playerID int64, day time.Time) (domain.PlaytimeEntry, bool) {
	for _, e := range s.entries {
		if e.PlayerID == playerID && e.PlayedOn.Equal(day) {
			return e, true
		}
	}
	return domain.PlaytimeEntry{}, false
}

func (s *MemoryStore) sortedEntries() []domain.PlaytimeEntry {
	out := make([]domain.PlaytimeEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PlayedOn.Equal(out[j].PlayedOn) {
			return out[i].PlayedOn.Before(out[j].PlayedOn)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
