package playtime

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokercrm/playtime/internal/domain"
)

func TestHourLabel(t *testing.T) {
	tests := map[int]string{
		0:  "12am",
		1:  "1am",
		11: "11am",
		12: "12pm",
		13: "1pm",
		23: "11pm",
		24: "12am",
	}
	for hour, want := range tests {
		assert.Equal(t, want, HourLabel(hour), "hour %d", hour)
	}
}

func TestRoundHour(t *testing.T) {
	tests := []struct {
		clock string
		want  int
	}{
		{"03:17", 3},
		{"03:29", 3},
		{"03:30", 4},
		{"23:30", 0},
		{"23:29", 23},
	}
	for _, tt := range tests {
		t.Run(tt.clock, func(t *testing.T) {
			c, err := time.Parse(domain.ClockLayout, tt.clock)
			require.NoError(t, err)
			assert.Equal(t, tt.want, RoundHour(c))
		})
	}
}

func TestActiveHours(t *testing.T) {
	entries := []domain.PlaytimeEntry{
		entry(t, 1, "2026-01-05", "03:17", "06:10", 173),
		entry(t, 1, "2026-01-06", "20:00", "23:40", 220),
		entry(t, 1, "2026-01-07", "02:45", "05:50", 185),
		entry(t, 1, "2026-01-08", "20:10", "23:50", 220),
		entry(t, 1, "2026-01-09", "13:00", "14:00", 60),
		entry(t, 1, "2026-01-10", "20:00", "00:10", 250),
		entry(t, 1, "2026-01-11", "", "", 90),
	}

	got := ActiveHours(entries, time.UTC, time.UTC)
	assert.Equal(t, "8pm-12am, 3am-6am", got)
}

func TestActiveHours_TiesKeepFirstSeen(t *testing.T) {
	entries := []domain.PlaytimeEntry{
		entry(t, 1, "2026-01-05", "13:00", "14:00", 60),
		entry(t, 1, "2026-01-06", "03:00", "06:00", 180),
		entry(t, 1, "2026-01-07", "09:00", "10:00", 60),
	}

	assert.Equal(t, "1pm-2pm, 3am-6am", ActiveHours(entries, time.UTC, time.UTC))
}

func TestActiveHours_None(t *testing.T) {
	entries := []domain.PlaytimeEntry{entry(t, 1, "2026-01-05", "", "", 60)}

	assert.Equal(t, NoActiveHours, ActiveHours(entries, time.UTC, time.UTC))
	assert.Equal(t, NoActiveHours, ActiveHours(nil, time.UTC, time.UTC))
}

func TestActiveHours_ConvertsZones(t *testing.T) {
	manila, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)

	entries := []domain.PlaytimeEntry{entry(t, 1, "2026-01-05", "19:00", "22:00", 180)}
	assert.Equal(t, "3am-6am", ActiveHours(entries, time.UTC, manila))
}

func TestActiveHours_FollowsDaylightSaving(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	winter := []domain.PlaytimeEntry{entry(t, 1, "2026-01-15", "10:00", "12:00", 120)}
	summer := []domain.PlaytimeEntry{entry(t, 1, "2026-07-15", "10:00", "12:00", 120)}

	assert.Equal(t, "3pm-5pm", ActiveHours(winter, newYork, time.UTC))
	assert.Equal(t, "2pm-4pm", ActiveHours(summer, newYork, time.UTC))
}
