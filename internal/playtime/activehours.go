package playtime

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pokercrm/playtime/internal/domain"
)

// NoActiveHours is the label for a player without any timed entries
const NoActiveHours = "-"

// HourLabel renders a 24-hour clock hour as a compact 12-hour label
func HourLabel(hour int) string {
	hour = ((hour % 24) + 24) % 24
	suffix := "am"
	if hour >= 12 {
		suffix = "pm"
	}
	h := hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d%s", h, suffix)
}

// RoundHour rounds t to the nearest hour; 30 minutes or more rounds up and
// 23:30 wraps to 0.
func RoundHour(t time.Time) int {
	h := t.Hour()
	if t.Minute() >= 30 {
		h = (h + 1) % 24
	}
	return h
}

// SessionLabel converts one timed entry from the source zone to the display
// zone and renders it as "3am-6am". The clock times are anchored on the
// entry's own day so the zone rules of that date apply.
func SessionLabel(e domain.PlaytimeEntry, source, display *time.Location) (string, bool) {
	if !e.HasTimes() {
		return "", false
	}
	start, err := clockOn(e.PlayedOn, *e.StartTime, source)
	if err != nil {
		return "", false
	}
	end, err := clockOn(e.PlayedOn, *e.EndTime, source)
	if err != nil {
		return "", false
	}
	if end.Before(start) {
		end = end.AddDate(0, 0, 1)
	}

	from := RoundHour(start.In(display))
	to := RoundHour(end.In(display))
	return HourLabel(from) + "-" + HourLabel(to), true
}

// ActiveHours returns the player's one or two most frequent session windows,
// most frequent first, joined by a comma. Ties keep first-seen order.
func ActiveHours(entries []domain.PlaytimeEntry, source, display *time.Location) string {
	var labels []string
	counts := make(map[string]int)

	for _, e := range entries {
		label, ok := SessionLabel(e, source, display)
		if !ok {
			continue
		}
		if counts[label] == 0 {
			labels = append(labels, label)
		}
		counts[label]++
	}
	if len(labels) == 0 {
		return NoActiveHours
	}

	sort.SliceStable(labels, func(i, j int) bool {
		return counts[labels[i]] > counts[labels[j]]
	})
	if len(labels) > 2 {
		labels = labels[:2]
	}
	return strings.Join(labels, ", ")
}
