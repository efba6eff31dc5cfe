package domain

import "fmt"

// Granularity is the bucket size of a playtime time series
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
	GranularityYearly  Granularity = "yearly"
)

// ParseGranularity converts a query value to a Granularity, defaulting to daily
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(s); g {
	case "":
		return GranularityDaily, nil
	case GranularityDaily, GranularityWeekly, GranularityMonthly, GranularityYearly:
		return g, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidGranularity, s)
	}
}

// SeriesPoint is the summed playtime of one bucket
type SeriesPoint struct {
	Period  string `json:"period"`
	Minutes int    `json:"minutes"`
}

// Series is a bucketed playtime time series for one player
type Series struct {
	PlayerID    int64         `json:"player_id"`
	Granularity Granularity   `json:"granularity"`
	Points      []SeriesPoint `json:"points"`
}

// Total is a minute count with its "Xh Ym" rendering
type Total struct {
	Minutes int    `json:"minutes"`
	Text    string `json:"text"`
}

// Summary is the rolled-up playtime of one player
type Summary struct {
	PlayerID          int64   `json:"player_id"`
	Last7Days         Total   `json:"last_7_days"`
	Last30Days        Total   `json:"last_30_days"`
	ThisMonth         Total   `json:"this_month"`
	Lifetime          Total   `json:"lifetime"`
	DaysPlayed        int     `json:"days_played"`
	AverageMinutes    int     `json:"average_minutes"`
	LongestDayMinutes int     `json:"longest_day_minutes"`
	LastPlayedOn      string  `json:"last_played_on,omitempty"`
	Retention30       float64 `json:"retention_30"`
	MostActiveHours   string  `json:"most_active_hours"`
}

// ActiveHours is the most-active-hours label for one player
type ActiveHours struct {
	PlayerID int64  `json:"player_id"`
	Label    string `json:"label"`
	Timezone string `json:"timezone"`
}
