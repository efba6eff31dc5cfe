package domain

import (
	"encoding/json"
	"time"
)

// DateLayout is the wire and storage format of a calendar day
const DateLayout = "2006-01-02"

// ClockLayout is the canonical format of a stored start or end time
const ClockLayout = "15:04"

// PlaytimeEntry is the playtime logged by one player on one calendar day.
// PlayedOn is always UTC midnight. StartTime and EndTime are either both set
// ("HH:mm") or both nil when the entry was logged as a flat duration.
type PlaytimeEntry struct {
	ID        int64     `json:"id"`
	PlayerID  int64     `json:"player_id"`
	PlayedOn  time.Time `json:"-"`
	StartTime *string   `json:"start_time"`
	EndTime   *string   `json:"end_time"`
	Minutes   int       `json:"minutes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Day returns the entry's calendar day as YYYY-MM-DD
func (e PlaytimeEntry) Day() string {
	return e.PlayedOn.Format(DateLayout)
}

// HasTimes reports whether both clock times are present
func (e PlaytimeEntry) HasTimes() bool {
	return e.StartTime != nil && e.EndTime != nil
}

// MarshalJSON encodes PlayedOn as a bare date
func (e PlaytimeEntry) MarshalJSON() ([]byte, error) {
	type alias PlaytimeEntry
	return json.Marshal(struct {
		alias
		PlayedOn string `json:"played_on"`
	}{
		alias:    alias(e),
		PlayedOn: e.Day(),
	})
}

// UnmarshalJSON decodes the bare-date PlayedOn written by MarshalJSON
func (e *PlaytimeEntry) UnmarshalJSON(data []byte) error {
	type alias PlaytimeEntry
	var wire struct {
		alias
		PlayedOn string `json:"played_on"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*e = PlaytimeEntry(wire.alias)
	if wire.PlayedOn != "" {
		day, err := time.Parse(DateLayout, wire.PlayedOn)
		if err != nil {
			return err
		}
		e.PlayedOn = day
	}
	return nil
}

// LogRequest represents a request to log (or overwrite) a player's playtime
// for a day. An empty PlayedOn means today.
type LogRequest struct {
	PlayedOn  string  `json:"played_on,omitempty" validate:"omitempty,datetime=2006-01-02"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
	Minutes   *int    `json:"minutes,omitempty" validate:"omitempty,min=0"`
}

// EditRequest represents an explicit edit of an existing entry. An empty
// PlayedOn keeps the entry's current day.
type EditRequest struct {
	PlayedOn  string  `json:"played_on,omitempty" validate:"omitempty,datetime=2006-01-02"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
	Minutes   *int    `json:"minutes,omitempty" validate:"omitempty,min=0"`
}

// Session is a single play session delivered by the batch import path.
// Several sessions for the same player and day are folded into one entry.
type Session struct {
	PlayerID  int64   `json:"player_id" validate:"required,gt=0"`
	PlayedOn  string  `json:"played_on" validate:"required,datetime=2006-01-02"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
	Minutes   *int    `json:"minutes,omitempty" validate:"omitempty,min=0"`
	Source    string  `json:"source,omitempty"`
}

// BatchImport represents multiple sessions submitted together
type BatchImport struct {
	Sessions []Session `json:"sessions" validate:"required,min=1,dive"`
}

// ImportResult reports what happened to each session of a batch
type ImportResult struct {
	Received int `json:"received"`
	Merged   int `json:"merged"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}
