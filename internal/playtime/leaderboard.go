package playtime

import (
	"sort"
	"time"

	"github.com/pokercrm/playtime/internal/domain"
)

// DefaultLeaderboardSize is how many players a leaderboard ranks
const DefaultLeaderboardSize = 10

// Window returns the [start, end) calendar-day bounds of period relative to
// now. Bounds are computed from now alone, on the calendar day now falls on
// in its own location.
func Window(p domain.Period, now time.Time) (start, end time.Time) {
	today := StartOfDay(now)
	y, m, _ := today.Date()

	switch p {
	case domain.PeriodDay:
		return today, today.AddDate(0, 0, 1)
	case domain.PeriodMonth:
		first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		return first, first.AddDate(0, 1, 0)
	case domain.PeriodYear:
		first := time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC)
		return first, first.AddDate(1, 0, 0)
	default:
		monday := WeekStart(today)
		return monday, monday.AddDate(0, 0, 7)
	}
}

// Ranking is the output of BuildLeaderboard: ranked rows plus the sorted
// union of days the rows' series are aligned on.
type Ranking struct {
	Dates []string
	Rows  []domain.LeaderboardRow
}

// BuildLeaderboard ranks players by summed minutes, keeps the top size and
// aligns every player's daily series on the union of their played days,
// filling days a player has no entry for with zero. Ties keep the order in
// which players first appear in entries.
func BuildLeaderboard(entries []domain.PlaytimeEntry, size int) Ranking {
	if size <= 0 {
		size = DefaultLeaderboardSize
	}

	var order []int64
	totals := make(map[int64]int)
	perDay := make(map[int64]map[string]int)

	for _, e := range entries {
		days, ok := perDay[e.PlayerID]
		if !ok {
			days = make(map[string]int)
			perDay[e.PlayerID] = days
			order = append(order, e.PlayerID)
		}
		totals[e.PlayerID] += e.Minutes
		days[e.Day()] += e.Minutes
	}

	sort.SliceStable(order, func(i, j int) bool {
		return totals[order[i]] > totals[order[j]]
	})
	if len(order) > size {
		order = order[:size]
	}

	dateSet := make(map[string]struct{})
	for _, playerID := range order {
		for day := range perDay[playerID] {
			dateSet[day] = struct{}{}
		}
	}
	dates := make([]string, 0, len(dateSet))
	for day := range dateSet {
		dates = append(dates, day)
	}
	sort.Strings(dates)

	rows := make([]domain.LeaderboardRow, len(order))
	for i, playerID := range order {
		series := make([]domain.DayPoint, len(dates))
		for j, day := range dates {
			series[j] = domain.DayPoint{Date: day, Minutes: perDay[playerID][day]}
		}
		rows[i] = domain.LeaderboardRow{
			Rank:         i + 1,
			PlayerID:     playerID,
			TotalMinutes: totals[playerID],
			Total:        FormatMinutes(totals[playerID]),
			Series:       series,
		}
	}

	return Ranking{Dates: dates, Rows: rows}
}
