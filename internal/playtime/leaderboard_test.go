package playtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokercrm/playtime/internal/domain"
)

func TestWindow(t *testing.T) {
	// Wednesday
	now := time.Date(2026, 1, 7, 22, 15, 0, 0, time.UTC)

	tests := []struct {
		period     domain.Period
		start, end string
	}{
		{domain.PeriodDay, "2026-01-07", "2026-01-08"},
		{domain.PeriodWeek, "2026-01-05", "2026-01-12"},
		{domain.PeriodMonth, "2026-01-01", "2026-02-01"},
		{domain.PeriodYear, "2026-01-01", "2027-01-01"},
	}

	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			start, end := Window(tt.period, now)
			assert.Equal(t, tt.start, start.Format(domain.DateLayout))
			assert.Equal(t, tt.end, end.Format(domain.DateLayout))
		})
	}
}

func TestWindow_UsesLocalCalendarDay(t *testing.T) {
	// 23:00 on Dec 31 in UTC-5 is already Jan 1 in UTC
	loc := time.FixedZone("UTC-5", -5*60*60)
	now := time.Date(2025, 12, 31, 23, 0, 0, 0, loc)

	start, end := Window(domain.PeriodDay, now)
	assert.Equal(t, "2025-12-31", start.Format(domain.DateLayout))
	assert.Equal(t, "2026-01-01", end.Format(domain.DateLayout))

	start, _ = Window(domain.PeriodYear, now)
	assert.Equal(t, "2025-01-01", start.Format(domain.DateLayout))
}

func TestBuildLeaderboard(t *testing.T) {
	entries := []domain.PlaytimeEntry{
		entry(t, 1, "2026-01-06", "", "", 300),
		entry(t, 2, "2026-01-08", "", "", 300),
		entry(t, 1, "2026-01-07", "", "", 200),
		entry(t, 3, "2026-01-06", "", "", 800),
	}

	got := BuildLeaderboard(entries, 10)

	assert.Equal(t, []string{"2026-01-06", "2026-01-07", "2026-01-08"}, got.Dates)
	require.Len(t, got.Rows, 3)

	totals := make([]int, len(got.Rows))
	for i, row := range got.Rows {
		totals[i] = row.TotalMinutes
		assert.Equal(t, i+1, row.Rank)
		assert.Len(t, row.Series, len(got.Dates))
	}
	assert.Equal(t, []int{800, 500, 300}, totals)

	assert.Equal(t, int64(3), got.Rows[0].PlayerID)
	assert.Equal(t, "13h 20m", got.Rows[0].Total)
	assert.Equal(t, []domain.DayPoint{
		{Date: "2026-01-06", Minutes: 800},
		{Date: "2026-01-07", Minutes: 0},
		{Date: "2026-01-08", Minutes: 0},
	}, got.Rows[0].Series)
	assert.Equal(t, []domain.DayPoint{
		{Date: "2026-01-06", Minutes: 0},
		{Date: "2026-01-07", Minutes: 0},
		{Date: "2026-01-08", Minutes: 300},
	}, got.Rows[2].Series)
}

func TestBuildLeaderboard_TiesKeepEncounterOrder(t *testing.T) {
	entries := []domain.PlaytimeEntry{
		entry(t, 7, "2026-01-06", "", "", 100),
		entry(t, 3, "2026-01-06", "", "", 100),
		entry(t, 5, "2026-01-06", "", "", 100),
	}

	got := BuildLeaderboard(entries, 10)
	require.Len(t, got.Rows, 3)
	assert.Equal(t, int64(7), got.Rows[0].PlayerID)
	assert.Equal(t, int64(3), got.Rows[1].PlayerID)
	assert.Equal(t, int64(5), got.Rows[2].PlayerID)
}

func TestBuildLeaderboard_TopN(t *testing.T) {
	var entries []domain.PlaytimeEntry
	for i := 1; i <= 15; i++ {
		entries = append(entries, entry(t, int64(i), "2026-01-06", "", "", i*10))
	}
	// only player 1 played on this day and drops out of the top 10
	entries = append(entries, entry(t, 1, "2026-01-09", "", "", 5))

	got := BuildLeaderboard(entries, 0)
	require.Len(t, got.Rows, DefaultLeaderboardSize)
	assert.Equal(t, int64(15), got.Rows[0].PlayerID)
	assert.Equal(t, int64(6), got.Rows[9].PlayerID)
	assert.Equal(t, []string{"2026-01-06"}, got.Dates)

	got = BuildLeaderboard(entries, 3)
	assert.Len(t, got.Rows, 3)
}

func TestBuildLeaderboard_Empty(t *testing.T) {
	got := BuildLeaderboard(nil, 10)
	assert.NotNil(t, got.Rows)
	assert.Empty(t, got.Rows)
	assert.Empty(t, got.Dates)
}
