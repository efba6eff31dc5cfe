package postgres

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokercrm/playtime/internal/domain"
	"github.com/pokercrm/playtime/internal/playtime"
)

const testDatabaseEnv = "PLAYTIME_TEST_DATABASE_URL"

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres tests in short mode.")
	}
	connString := os.Getenv(testDatabaseEnv)
	if connString == "" {
		t.Skipf("%s not set", testDatabaseEnv)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	require.NoError(t, RunMigrations(connString, logger))

	repo, err := Connect(context.Background(), connString, nil, logger)
	require.NoError(t, err)
	t.Cleanup(repo.Close)
	return repo
}

func strPtr(s string) *string { return &s }

func mustDay(t *testing.T, s string) time.Time {
	t.Helper()
	day, err := playtime.ParseDay(s)
	require.NoError(t, err)
	return day
}

func TestMigrationURL(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@localhost:5432/playtime?sslmode=disable":   "pgx5://u:p@localhost:5432/playtime?sslmode=disable",
		"postgresql://u:p@localhost:5432/playtime?sslmode=disable": "pgx5://u:p@localhost:5432/playtime?sslmode=disable",
		"pgx5://already":                                           "pgx5://already",
	}
	for in, want := range tests {
		assert.Equal(t, want, MigrationURL(in))
	}
}

func TestRepository_Players(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first, err := repo.CreatePlayer(ctx, "Alice")
	require.NoError(t, err)
	second, err := repo.CreatePlayer(ctx, "Bob")
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	got, err := repo.GetPlayer(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)

	_, err = repo.GetPlayer(ctx, -1)
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)

	names, err := repo.PlayerNames(ctx, []int64{first.ID, second.ID, -1})
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{first.ID: "Alice", second.ID: "Bob"}, names)
}

func TestRepository_UpsertOverwrites(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	player, err := repo.CreatePlayer(ctx, "Upsert")
	require.NoError(t, err)
	day := mustDay(t, "2026-01-06")

	created, err := repo.UpsertEntry(ctx, domain.PlaytimeEntry{
		PlayerID: player.ID, PlayedOn: day, StartTime: strPtr("03:17"), EndTime: strPtr("04:56"), Minutes: 99,
	})
	require.NoError(t, err)

	overwritten, err := repo.UpsertEntry(ctx, domain.PlaytimeEntry{
		PlayerID: player.ID, PlayedOn: day, Minutes: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, overwritten.ID)
	assert.Equal(t, 30, overwritten.Minutes)
	assert.Nil(t, overwritten.StartTime)
	assert.Equal(t, "2026-01-06", overwritten.Day())

	entries, err := repo.ListEntries(ctx, player.ID, nil, nil)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = repo.UpsertEntry(ctx, domain.PlaytimeEntry{PlayerID: -1, PlayedOn: day, Minutes: 1})
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)
}

func TestRepository_UpdateConflict(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	player, err := repo.CreatePlayer(ctx, "Edit")
	require.NoError(t, err)

	monday, err := repo.UpsertEntry(ctx, domain.PlaytimeEntry{PlayerID: player.ID, PlayedOn: mustDay(t, "2026-01-05"), Minutes: 60})
	require.NoError(t, err)
	_, err = repo.UpsertEntry(ctx, domain.PlaytimeEntry{PlayerID: player.ID, PlayedOn: mustDay(t, "2026-01-06"), Minutes: 45})
	require.NoError(t, err)

	moved := *monday
	moved.PlayedOn = mustDay(t, "2026-01-06")
	_, err = repo.UpdateEntry(ctx, moved)
	assert.ErrorIs(t, err, domain.ErrEntryConflict)

	unchanged, err := repo.GetEntry(ctx, monday.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-05", unchanged.Day())

	moved.PlayedOn = mustDay(t, "2026-01-07")
	updated, err := repo.UpdateEntry(ctx, moved)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-07", updated.Day())

	require.NoError(t, repo.DeleteEntry(ctx, monday.ID))
	assert.ErrorIs(t, repo.DeleteEntry(ctx, monday.ID), domain.ErrEntryNotFound)
	_, err = repo.GetEntry(ctx, monday.ID)
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)
}

func TestRepository_MergeSession(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	player, err := repo.CreatePlayer(ctx, "Merge")
	require.NoError(t, err)
	day := mustDay(t, "2026-01-06")

	sessions := []domain.PlaytimeEntry{
		{PlayerID: player.ID, PlayedOn: day, StartTime: strPtr("03:17"), EndTime: strPtr("04:56"), Minutes: 99},
		{PlayerID: player.ID, PlayedOn: day, StartTime: strPtr("06:00"), EndTime: strPtr("07:30"), Minutes: 90},
	}

	var last *domain.PlaytimeEntry
	for _, s := range sessions {
		fp := playtime.Fingerprint(playtime.Imported{PlaytimeEntry: s, Source: "test"})
		merged, ok, err := repo.MergeSession(ctx, s, fp, "test")
		require.NoError(t, err)
		require.True(t, ok)
		last = merged
	}
	require.NotNil(t, last)
	assert.Equal(t, 189, last.Minutes)
	assert.Equal(t, "03:17", *last.StartTime)
	assert.Equal(t, "07:30", *last.EndTime)

	// replaying the same session changes nothing
	replay := playtime.Fingerprint(playtime.Imported{PlaytimeEntry: sessions[0], Source: "test"})
	_, ok, err := repo.MergeSession(ctx, sessions[0], replay, "test")
	require.NoError(t, err)
	assert.False(t, ok)

	entries, err := repo.ListEntries(ctx, player.ID, &day, &day)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 189, entries[0].Minutes)

	between, err := repo.ListEntriesBetween(ctx, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	found := false
	for _, e := range between {
		if e.PlayerID == player.ID {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRepository_MergeSessionOvernight(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	player, err := repo.CreatePlayer(ctx, "Overnight")
	require.NoError(t, err)
	day := mustDay(t, "2026-01-06")

	sessions := []domain.PlaytimeEntry{
		{PlayerID: player.ID, PlayedOn: day, StartTime: strPtr("22:00"), EndTime: strPtr("23:00"), Minutes: 60},
		{PlayerID: player.ID, PlayedOn: day, StartTime: strPtr("23:30"), EndTime: strPtr("01:00"), Minutes: 90},
		{PlayerID: player.ID, PlayedOn: day, StartTime: strPtr("20:00"), EndTime: strPtr("21:00"), Minutes: 60},
	}

	var last *domain.PlaytimeEntry
	for _, s := range sessions {
		fp := playtime.Fingerprint(playtime.Imported{PlaytimeEntry: s, Source: "overnight"})
		merged, ok, err := repo.MergeSession(ctx, s, fp, "overnight")
		require.NoError(t, err)
		require.True(t, ok)
		last = merged
	}
	require.NotNil(t, last)
	assert.Equal(t, 210, last.Minutes)
	assert.Equal(t, "20:00", *last.StartTime)
	assert.Equal(t, "01:00", *last.EndTime)
}

func TestRepository_MergeSessionSourcesAreDistinct(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	player, err := repo.CreatePlayer(ctx, "Sources")
	require.NoError(t, err)
	day := mustDay(t, "2026-01-06")
	session := domain.PlaytimeEntry{PlayerID: player.ID, PlayedOn: day, Minutes: 60}

	var last *domain.PlaytimeEntry
	for _, source := range []string{"table-3", "table-7"} {
		fp := playtime.Fingerprint(playtime.Imported{PlaytimeEntry: session, Source: source})
		merged, ok, err := repo.MergeSession(ctx, session, fp, source)
		require.NoError(t, err)
		require.True(t, ok)
		last = merged
	}
	assert.Equal(t, 120, last.Minutes)
}
