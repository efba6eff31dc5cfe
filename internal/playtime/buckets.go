package playtime

import (
	"sort"
	"time"

	"github.com/pokercrm/playtime/internal/domain"
)

// WeekStart returns the Monday of the ISO week containing day
func WeekStart(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return StartOfDay(day).AddDate(0, 0, -offset)
}

// BucketKey returns the label of the bucket day falls into. Labels are
// zero-padded so lexicographic order is chronological order.
//
//	daily   2026-01-07
//	weekly  2026-01-05 (Monday of the ISO week)
//	monthly 2026-01
//	yearly  2026
func BucketKey(day time.Time, g domain.Granularity) string {
	switch g {
	case domain.GranularityWeekly:
		return WeekStart(day).Format(domain.DateLayout)
	case domain.GranularityMonthly:
		return day.Format("2006-01")
	case domain.GranularityYearly:
		return day.Format("2006")
	default:
		return day.Format(domain.DateLayout)
	}
}

// Bucket sums entry minutes per bucket, ascending by label. Periods without
// entries are left out.
func Bucket(entries []domain.PlaytimeEntry, g domain.Granularity) []domain.SeriesPoint {
	totals := make(map[string]int)
	for _, e := range entries {
		totals[BucketKey(e.PlayedOn, g)] += e.Minutes
	}

	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	points := make([]domain.SeriesPoint, len(keys))
	for i, k := range keys {
		points[i] = domain.SeriesPoint{Period: k, Minutes: totals[k]}
	}
	return points
}

// FilterRange keeps entries whose day is within [from, to]. Nil bounds are open.
func FilterRange(entries []domain.PlaytimeEntry, from, to *time.Time) []domain.PlaytimeEntry {
	out := make([]domain.PlaytimeEntry, 0, len(entries))
	for _, e := range entries {
		if from != nil && e.PlayedOn.Before(*from) {
			continue
		}
		if to != nil && e.PlayedOn.After(*to) {
			continue
		}
		out = append(out, e)
	}
	return out
}
