// Package playtime holds the pure computations behind playtime logging:
// normalizing clock ranges into minutes, merging same-day sessions,
// bucketing entries into time series, ranking leaderboards and deriving
// a player's most active hours. Nothing in here touches storage.
package playtime

import (
	"fmt"
	"strings"
	"time"

	"github.com/pokercrm/playtime/internal/domain"
)

// clockLayouts are the accepted spellings of a start or end time. Only the
// clock component of a full timestamp is kept.
var clockLayouts = []string{
	"15:04",
	"15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// Normalized is a validated duration ready to be stored
type Normalized struct {
	PlayedOn  time.Time
	StartTime *string
	EndTime   *string
	Minutes   int
}

// Entry converts the normalized values into an unsaved entry for a player
func (n Normalized) Entry(playerID int64) domain.PlaytimeEntry {
	return domain.PlaytimeEntry{
		PlayerID:  playerID,
		PlayedOn:  n.PlayedOn,
		StartTime: n.StartTime,
		EndTime:   n.EndTime,
		Minutes:   n.Minutes,
	}
}

// ParseDay parses a YYYY-MM-DD calendar day into UTC midnight
func ParseDay(s string) (time.Time, error) {
	day, err := time.ParseInLocation(domain.DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", domain.ErrInvalidDate, s)
	}
	return day, nil
}

// StartOfDay returns UTC midnight of the calendar day t falls on in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseClock extracts the canonical "HH:mm" clock time from a bare clock
// string or a full timestamp.
func ParseClock(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(domain.ClockLayout), nil
		}
	}
	return "", fmt.Errorf("%w: %q", domain.ErrInvalidTime, s)
}

// MinutesBetween returns the length of a session that starts and ends at the
// given canonical clock times on day. An end before the start is an overnight
// session and ends on the following day.
func MinutesBetween(day time.Time, start, end string) (int, error) {
	s, err := clockOn(day, start, time.UTC)
	if err != nil {
		return 0, err
	}
	e, err := clockOn(day, end, time.UTC)
	if err != nil {
		return 0, err
	}
	if e.Before(s) {
		e = e.Add(24 * time.Hour)
	}

	minutes := int(e.Sub(s) / time.Minute)
	if minutes < 0 {
		minutes = 0
	}
	return minutes, nil
}

// Normalize validates one logged duration. Start and end times take
// precedence over an explicit minute count; when no times are given the
// minute count is required.
func Normalize(day string, start, end *string, minutes *int) (Normalized, error) {
	playedOn, err := ParseDay(day)
	if err != nil {
		return Normalized{}, err
	}

	start, end = blankToNil(start), blankToNil(end)
	switch {
	case start != nil && end != nil:
		s, err := ParseClock(*start)
		if err != nil {
			return Normalized{}, err
		}
		e, err := ParseClock(*end)
		if err != nil {
			return Normalized{}, err
		}
		m, err := MinutesBetween(playedOn, s, e)
		if err != nil {
			return Normalized{}, err
		}
		return Normalized{PlayedOn: playedOn, StartTime: &s, EndTime: &e, Minutes: m}, nil

	case start != nil || end != nil:
		return Normalized{}, fmt.Errorf("%w: start and end time must be supplied together", domain.ErrInvalidTime)

	case minutes != nil:
		if *minutes < 0 {
			return Normalized{}, fmt.Errorf("%w: minutes must not be negative", domain.ErrInvalidDuration)
		}
		return Normalized{PlayedOn: playedOn, Minutes: *minutes}, nil

	default:
		return Normalized{}, domain.ErrInvalidDuration
	}
}

func clockOn(day time.Time, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(domain.ClockLayout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", domain.ErrInvalidTime, clock)
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc), nil
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
