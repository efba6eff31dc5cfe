package domain

import (
	"fmt"
	"time"
)

// Period is the window a leaderboard is computed over
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Periods lists every leaderboard period in display order
var Periods = []Period{PeriodDay, PeriodWeek, PeriodMonth, PeriodYear}

// Valid returns true if the period is a recognized value
func (p Period) Valid() bool {
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return true
	default:
		return false
	}
}

// ParsePeriod converts a query value to a Period, defaulting to week
func ParsePeriod(s string) (Period, error) {
	if s == "" {
		return PeriodWeek, nil
	}
	p := Period(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return p, nil
}

// DayPoint is one day of a player's aligned leaderboard series
type DayPoint struct {
	Date    string `json:"date"`
	Minutes int    `json:"minutes"`
}

// LeaderboardRow is a ranked player within a leaderboard
type LeaderboardRow struct {
	Rank         int        `json:"rank"`
	PlayerID     int64      `json:"player_id"`
	PlayerName   string     `json:"player_name,omitempty"`
	TotalMinutes int        `json:"total_minutes"`
	Total        string     `json:"total"`
	Series       []DayPoint `json:"series"`
}

// Leaderboard ranks players by playtime within a period window.
// StartDate is inclusive and EndDate exclusive.
type Leaderboard struct {
	Period      Period           `json:"period"`
	StartDate   string           `json:"start_date"`
	EndDate     string           `json:"end_date"`
	Dates       []string         `json:"dates"`
	Rows        []LeaderboardRow `json:"rows"`
	GeneratedAt time.Time        `json:"generated_at"`
}
