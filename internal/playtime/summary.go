package playtime

import (
	"math"
	"time"

	"github.com/pokercrm/playtime/internal/domain"
)

const retentionWindowDays = 30

// Summarize rolls a player's entries up into the totals shown on the player
// page as of the calendar day of now. Entries dated after that day are left
// out of every figure.
func Summarize(entries []domain.PlaytimeEntry, now time.Time) domain.Summary {
	today := StartOfDay(now)
	last7 := today.AddDate(0, 0, -6)
	last30 := today.AddDate(0, 0, -(retentionWindowDays - 1))
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)

	var (
		s          domain.Summary
		w7, w30    int
		month, all int
		lastPlayed time.Time
		activeDays = make(map[string]struct{})
	)

	for _, e := range entries {
		if e.PlayedOn.After(today) {
			continue
		}

		all += e.Minutes
		if e.Minutes > s.LongestDayMinutes {
			s.LongestDayMinutes = e.Minutes
		}
		if e.Minutes > 0 {
			s.DaysPlayed++
			if e.PlayedOn.After(lastPlayed) {
				lastPlayed = e.PlayedOn
			}
		}

		if !e.PlayedOn.Before(last7) {
			w7 += e.Minutes
		}
		if !e.PlayedOn.Before(last30) {
			w30 += e.Minutes
			if e.Minutes > 0 {
				activeDays[e.Day()] = struct{}{}
			}
		}
		if !e.PlayedOn.Before(monthStart) {
			month += e.Minutes
		}
	}

	s.Last7Days = total(w7)
	s.Last30Days = total(w30)
	s.ThisMonth = total(month)
	s.Lifetime = total(all)
	if s.DaysPlayed > 0 {
		s.AverageMinutes = all / s.DaysPlayed
	}
	if !lastPlayed.IsZero() {
		s.LastPlayedOn = lastPlayed.Format(domain.DateLayout)
	}
	ratio := float64(len(activeDays)) / retentionWindowDays
	s.Retention30 = math.Round(ratio*100) / 100
	s.MostActiveHours = NoActiveHours
	return s
}

func total(minutes int) domain.Total {
	return domain.Total{Minutes: minutes, Text: FormatMinutes(minutes)}
}
