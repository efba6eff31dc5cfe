package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pokercrm/playtime/internal/config"
	"github.com/pokercrm/playtime/internal/domain"
	"github.com/pokercrm/playtime/internal/metrics"
	"github.com/pokercrm/playtime/internal/playtime"
)

// Store is the persistent playtime store
type Store interface {
	CreatePlayer(ctx context.Context, name string) (*domain.Player, error)
	GetPlayer(ctx context.Context, playerID int64) (*domain.Player, error)
	ListPlayers(ctx context.Context) ([]domain.Player, error)
	PlayerNames(ctx context.Context, playerIDs []int64) (map[int64]string, error)
	ListEntries(ctx context.Context, playerID int64, from, to *time.Time) ([]domain.PlaytimeEntry, error)
	ListEntriesBetween(ctx context.Context, from, to time.Time) ([]domain.PlaytimeEntry, error)
	GetEntry(ctx context.Context, entryID int64) (*domain.PlaytimeEntry, error)
	UpsertEntry(ctx context.Context, entry domain.PlaytimeEntry) (*domain.PlaytimeEntry, error)
	UpdateEntry(ctx context.Context, entry domain.PlaytimeEntry) (*domain.PlaytimeEntry, error)
	DeleteEntry(ctx context.Context, entryID int64) error
	MergeSession(ctx context.Context, session domain.PlaytimeEntry, fingerprint, source string) (*domain.PlaytimeEntry, bool, error)
	Ping(ctx context.Context) error
}

// Cache holds computed leaderboards and player names
type Cache interface {
	GetLeaderboard(ctx context.Context, period domain.Period, windowStart string) (*domain.Leaderboard, error)
	SetLeaderboard(ctx context.Context, lb *domain.Leaderboard) error
	InvalidateLeaderboards(ctx context.Context) error
	PlayerNames(ctx context.Context, playerIDs []int64) (map[int64]string, error)
	SetPlayerNames(ctx context.Context, names map[int64]string) error
	Ping(ctx context.Context) error
}

// Broadcaster pushes leaderboards to live subscribers
type Broadcaster interface {
	HasSubscribers(period domain.Period) bool
	BroadcastLeaderboard(lb *domain.Leaderboard)
}

// PlaytimeService provides business logic for playtime logging and analytics
type PlaytimeService struct {
	store   Store
	cache   Cache
	hub     Broadcaster
	source  *time.Location
	display *time.Location
	size    int
	now     func() time.Time
	logger  *slog.Logger
}

// NewPlaytimeService creates a new playtime service. cache and hub are optional.
func NewPlaytimeService(
	store Store,
	cache Cache,
	hub Broadcaster,
	cfg *config.PlaytimeConfig,
	logger *slog.Logger,
) (*PlaytimeService, error) {
	source, display, err := cfg.Locations()
	if err != nil {
		return nil, err
	}

	size := cfg.LeaderboardSize
	if size <= 0 {
		size = playtime.DefaultLeaderboardSize
	}

	return &PlaytimeService{
		store:   store,
		cache:   cache,
		hub:     hub,
		source:  source,
		display: display,
		size:    size,
		now:     time.Now,
		logger:  logger,
	}, nil
}

// WithClock replaces the service's time source
func (s *PlaytimeService) WithClock(now func() time.Time) *PlaytimeService {
	s.now = now
	return s
}

// today is the current calendar day in the source timezone
func (s *PlaytimeService) today() time.Time {
	return playtime.StartOfDay(s.now().In(s.source))
}

// Ping checks the store and, when configured, the cache
func (s *PlaytimeService) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("pinging store: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			return fmt.Errorf("pinging cache: %w", err)
		}
	}
	return nil
}

// CreatePlayer registers a new player
func (s *PlaytimeService) CreatePlayer(ctx context.Context, req domain.CreatePlayerRequest) (*domain.Player, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidRequest)
	}

	player, err := s.store.CreatePlayer(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("creating player: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetPlayerNames(ctx, map[int64]string{player.ID: player.Name}); err != nil {
			s.logger.Warn("failed to cache player name", "player_id", player.ID, "error", err)
		}
	}

	s.logger.Info("player created", "player_id", player.ID)
	return player, nil
}

// GetPlayer returns a player by ID
func (s *PlaytimeService) GetPlayer(ctx context.Context, playerID int64) (*domain.Player, error) {
	return s.store.GetPlayer(ctx, playerID)
}

// ListPlayers returns every player
func (s *PlaytimeService) ListPlayers(ctx context.Context) ([]domain.Player, error) {
	return s.store.ListPlayers(ctx)
}

// ListEntries returns a player's entries, optionally limited to [from, to]
func (s *PlaytimeService) ListEntries(ctx context.Context, playerID int64, from, to string) ([]domain.PlaytimeEntry, error) {
	fromDay, toDay, err := parseRange(from, to)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetPlayer(ctx, playerID); err != nil {
		return nil, err
	}

	entries, err := s.store.ListEntries(ctx, playerID, fromDay, toDay)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	return entries, nil
}

// LogPlaytime records a player's playtime for a day, overwriting whatever
// was logged for that day before. An empty day means today.
func (s *PlaytimeService) LogPlaytime(ctx context.Context, playerID int64, req domain.LogRequest) (*domain.PlaytimeEntry, error) {
	day := req.PlayedOn
	if day == "" {
		day = s.today().Format(domain.DateLayout)
	}

	normalized, err := playtime.Normalize(day, req.StartTime, req.EndTime, req.Minutes)
	if err != nil {
		return nil, err
	}

	entry, err := s.store.UpsertEntry(ctx, normalized.Entry(playerID))
	if err != nil {
		return nil, fmt.Errorf("logging playtime: %w", err)
	}

	metrics.RecordWrite(metrics.WriteLog, entry.Minutes)
	s.logger.Info("playtime logged",
		"player_id", playerID,
		"played_on", entry.Day(),
		"minutes", entry.Minutes,
	)

	s.afterWrite(ctx)
	return entry, nil
}

// EditEntry changes an existing entry. Fields left out of the request keep
// their stored values; moving the entry onto a day that already has one
// fails with domain.ErrEntryConflict.
func (s *PlaytimeService) EditEntry(ctx context.Context, entryID int64, req domain.EditRequest) (*domain.PlaytimeEntry, error) {
	existing, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	day := req.PlayedOn
	if day == "" {
		day = existing.Day()
	}

	start, end, minutes := req.StartTime, req.EndTime, req.Minutes
	if start == nil && end == nil && minutes == nil {
		start, end = existing.StartTime, existing.EndTime
		stored := existing.Minutes
		minutes = &stored
	}

	normalized, err := playtime.Normalize(day, start, end, minutes)
	if err != nil {
		return nil, err
	}

	updated := normalized.Entry(existing.PlayerID)
	updated.ID = existing.ID
	entry, err := s.store.UpdateEntry(ctx, updated)
	if err != nil {
		return nil, fmt.Errorf("editing entry: %w", err)
	}

	metrics.RecordWrite(metrics.WriteEdit, entry.Minutes)
	s.logger.Info("playtime entry edited",
		"entry_id", entryID,
		"player_id", entry.PlayerID,
		"played_on", entry.Day(),
	)

	s.afterWrite(ctx)
	return entry, nil
}

// DeleteEntry removes an entry
func (s *PlaytimeService) DeleteEntry(ctx context.Context, entryID int64) error {
	if err := s.store.DeleteEntry(ctx, entryID); err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}

	metrics.RecordWrite(metrics.WriteDelete, 0)
	s.logger.Info("playtime entry deleted", "entry_id", entryID)

	s.afterWrite(ctx)
	return nil
}

// Summary returns a player's rolled-up playtime
func (s *PlaytimeService) Summary(ctx context.Context, playerID int64) (*domain.Summary, error) {
	entries, err := s.ListEntries(ctx, playerID, "", "")
	if err != nil {
		return nil, err
	}

	summary := playtime.Summarize(entries, s.today())
	summary.PlayerID = playerID
	summary.MostActiveHours = playtime.ActiveHours(entries, s.source, s.display)
	return &summary, nil
}

// Series returns a player's playtime bucketed by granularity
func (s *PlaytimeService) Series(ctx context.Context, playerID int64, granularity, from, to string) (*domain.Series, error) {
	g, err := domain.ParseGranularity(granularity)
	if err != nil {
		return nil, err
	}

	entries, err := s.ListEntries(ctx, playerID, from, to)
	if err != nil {
		return nil, err
	}

	return &domain.Series{
		PlayerID:    playerID,
		Granularity: g,
		Points:      playtime.Bucket(entries, g),
	}, nil
}

// ActiveHours returns the player's most active play windows
func (s *PlaytimeService) ActiveHours(ctx context.Context, playerID int64) (*domain.ActiveHours, error) {
	entries, err := s.ListEntries(ctx, playerID, "", "")
	if err != nil {
		return nil, err
	}

	return &domain.ActiveHours{
		PlayerID: playerID,
		Label:    playtime.ActiveHours(entries, s.source, s.display),
		Timezone: s.display.String(),
	}, nil
}

// Leaderboard returns the ranking for the current window of period. An
// empty period means the current week.
func (s *PlaytimeService) Leaderboard(ctx context.Context, period string) (*domain.Leaderboard, error) {
	p, err := domain.ParsePeriod(period)
	if err != nil {
		return nil, err
	}
	return s.leaderboard(ctx, p)
}

func (s *PlaytimeService) leaderboard(ctx context.Context, period domain.Period) (*domain.Leaderboard, error) {
	start, _ := playtime.Window(period, s.today())
	windowStart := start.Format(domain.DateLayout)

	if s.cache != nil {
		lb, err := s.cache.GetLeaderboard(ctx, period, windowStart)
		switch {
		case err == nil:
			metrics.RecordLeaderboardCache(true)
			return lb, nil
		case errors.Is(err, domain.ErrCacheMiss):
			metrics.RecordLeaderboardCache(false)
		default:
			s.logger.Warn("failed to read cached leaderboard", "period", period, "error", err)
		}
	}

	lb, err := s.buildLeaderboard(ctx, period)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetLeaderboard(ctx, lb); err != nil {
			s.logger.Warn("failed to cache leaderboard", "period", period, "error", err)
		}
	}
	return lb, nil
}

func (s *PlaytimeService) buildLeaderboard(ctx context.Context, period domain.Period) (*domain.Leaderboard, error) {
	started := time.Now()
	start, end := playtime.Window(period, s.today())

	entries, err := s.store.ListEntriesBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("loading %s leaderboard entries: %w", period, err)
	}

	ranking := playtime.BuildLeaderboard(entries, s.size)

	ids := make([]int64, len(ranking.Rows))
	for i, row := range ranking.Rows {
		ids[i] = row.PlayerID
	}
	names, err := s.playerNames(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range ranking.Rows {
		ranking.Rows[i].PlayerName = names[ranking.Rows[i].PlayerID]
	}

	metrics.RecordLeaderboardBuild(string(period), time.Since(started))

	return &domain.Leaderboard{
		Period:      period,
		StartDate:   start.Format(domain.DateLayout),
		EndDate:     end.Format(domain.DateLayout),
		Dates:       ranking.Dates,
		Rows:        ranking.Rows,
		GeneratedAt: s.now().UTC(),
	}, nil
}

// playerNames resolves display names, reading through the cache
func (s *PlaytimeService) playerNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	missing := ids

	if s.cache != nil && len(ids) > 0 {
		cached, err := s.cache.PlayerNames(ctx, ids)
		if err != nil {
			s.logger.Warn("failed to read cached player names", "error", err)
		} else {
			missing = missing[:0:0]
			for _, id := range ids {
				if name, ok := cached[id]; ok {
					names[id] = name
					continue
				}
				missing = append(missing, id)
			}
		}
	}

	if len(missing) == 0 {
		return names, nil
	}

	stored, err := s.store.PlayerNames(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("getting player names: %w", err)
	}
	for id, name := range stored {
		names[id] = name
	}

	if s.cache != nil {
		if err := s.cache.SetPlayerNames(ctx, stored); err != nil {
			s.logger.Warn("failed to cache player names", "error", err)
		}
	}
	return names, nil
}

// ImportSessions merges a batch of play sessions into the players' daily
// entries. Each session adds its minutes to the day's entry and widens its
// start/end envelope. A session that was already imported is skipped, so
// replaying a batch is harmless. Invalid sessions are counted as failed and
// do not stop the batch.
func (s *PlaytimeService) ImportSessions(ctx context.Context, sessions []domain.Session) (*domain.ImportResult, error) {
	result := &domain.ImportResult{Received: len(sessions)}

	for _, session := range sessions {
		normalized, err := playtime.Normalize(session.PlayedOn, session.StartTime, session.EndTime, session.Minutes)
		if err != nil {
			s.logger.Warn("skipping invalid import session",
				"player_id", session.PlayerID,
				"played_on", session.PlayedOn,
				"error", err,
			)
			result.Failed++
			metrics.RecordImport(metrics.ImportFailed)
			continue
		}

		entry := normalized.Entry(session.PlayerID)
		fingerprint := playtime.Fingerprint(playtime.Imported{PlaytimeEntry: entry, Source: session.Source})
		_, merged, err := s.store.MergeSession(ctx, entry, fingerprint, session.Source)
		if err != nil {
			if domain.IsNotFoundError(err) || domain.IsValidationError(err) {
				s.logger.Warn("rejected import session",
					"player_id", session.PlayerID,
					"played_on", session.PlayedOn,
					"error", err,
				)
				result.Failed++
				metrics.RecordImport(metrics.ImportFailed)
				continue
			}
			if result.Merged > 0 {
				s.afterWrite(ctx)
			}
			return result, fmt.Errorf("merging session: %w", err)
		}

		if !merged {
			result.Skipped++
			metrics.RecordImport(metrics.ImportSkipped)
			continue
		}
		result.Merged++
		metrics.RecordImport(metrics.ImportMerged)
		metrics.RecordWrite(metrics.WriteMerge, entry.Minutes)
	}

	s.logger.Info("import processed",
		"received", result.Received,
		"merged", result.Merged,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)

	if result.Merged > 0 {
		s.afterWrite(ctx)
	}
	return result, nil
}

// RefreshLeaderboards recomputes every period's leaderboard from the store,
// caches it and pushes it to live subscribers
func (s *PlaytimeService) RefreshLeaderboards(ctx context.Context) ([]*domain.Leaderboard, error) {
	boards := make([]*domain.Leaderboard, 0, len(domain.Periods))
	for _, period := range domain.Periods {
		lb, err := s.buildLeaderboard(ctx, period)
		if err != nil {
			return boards, err
		}

		if s.cache != nil {
			if err := s.cache.SetLeaderboard(ctx, lb); err != nil {
				s.logger.Warn("failed to cache leaderboard", "period", period, "error", err)
			}
		}
		if s.hub != nil {
			s.hub.BroadcastLeaderboard(lb)
		}
		boards = append(boards, lb)
	}
	return boards, nil
}

// afterWrite drops cached leaderboards and pushes fresh ones to the
// periods that have live subscribers
func (s *PlaytimeService) afterWrite(ctx context.Context) {
	if s.cache != nil {
		if err := s.cache.InvalidateLeaderboards(ctx); err != nil {
			s.logger.Warn("failed to invalidate cached leaderboards", "error", err)
		}
	}

	if s.hub == nil {
		return
	}
	for _, period := range domain.Periods {
		if !s.hub.HasSubscribers(period) {
			continue
		}
		lb, err := s.leaderboard(ctx, period)
		if err != nil {
			s.logger.Warn("failed to build leaderboard for broadcast", "period", period, "error", err)
			continue
		}
		s.hub.BroadcastLeaderboard(lb)
	}
}

// parseRange parses optional YYYY-MM-DD bounds
func parseRange(from, to string) (*time.Time, *time.Time, error) {
	var fromDay, toDay *time.Time
	if from != "" {
		d, err := playtime.ParseDay(from)
		if err != nil {
			return nil, nil, err
		}
		fromDay = &d
	}
	if to != "" {
		d, err := playtime.ParseDay(to)
		if err != nil {
			return nil, nil, err
		}
		toDay = &d
	}
	if fromDay != nil && toDay != nil && toDay.Before(*fromDay) {
		return nil, nil, fmt.Errorf("%w: from must not be after to", domain.ErrInvalidRequest)
	}
	return fromDay, toDay, nil
}
