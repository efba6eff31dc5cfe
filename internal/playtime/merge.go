package playtime

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pokercrm/playtime/internal/domain"
)

const minutesPerDay = 24 * 60

// Imported is one normalized batch-import session and the feed it came from
type Imported struct {
	domain.PlaytimeEntry
	Source string
}

// Merge folds an additional session into a day's existing entry: minutes are
// summed and the clock envelope widens to the earliest start and latest end.
// An end before its own start belongs to the next day. It is the batch import
// policy; interactive logging overwrites instead.
func Merge(existing, session domain.PlaytimeEntry) domain.PlaytimeEntry {
	merged := existing
	merged.Minutes = existing.Minutes + session.Minutes
	merged.StartTime = earliest(existing.StartTime, session.StartTime)
	merged.EndTime = latestEnd(existing, session)
	return merged
}

// Fingerprint identifies an imported session so that replaying the same
// import does not count it twice. Identical sessions from different sources
// are distinct.
func Fingerprint(session Imported) string {
	return fmt.Sprintf("%d|%s|%s|%s|%d|%s",
		session.PlayerID,
		session.Day(),
		deref(session.StartTime),
		deref(session.EndTime),
		session.Minutes,
		session.Source,
	)
}

// Fold merges sessions into one entry per (player, day), in first-seen
// order. Sessions with identical fingerprints are only counted once.
func Fold(sessions []Imported) []domain.PlaytimeEntry {
	type dayKey struct {
		playerID int64
		day      string
	}

	seen := make(map[string]struct{}, len(sessions))
	index := make(map[dayKey]int)
	folded := make([]domain.PlaytimeEntry, 0, len(sessions))

	for _, s := range sessions {
		fp := Fingerprint(s)
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}

		key := dayKey{playerID: s.PlayerID, day: s.Day()}
		if i, ok := index[key]; ok {
			folded[i] = Merge(folded[i], s.PlaytimeEntry)
			continue
		}
		index[key] = len(folded)
		folded = append(folded, s.PlaytimeEntry)
	}
	return folded
}

func earliest(a, b *string) *string {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case *b < *a:
		return b
	default:
		return a
	}
}

// latestEnd picks the end time reaching furthest past the day's midnight
func latestEnd(a, b domain.PlaytimeEntry) *string {
	switch {
	case a.EndTime == nil:
		return b.EndTime
	case b.EndTime == nil:
		return a.EndTime
	case endOffset(b) > endOffset(a):
		return b.EndTime
	default:
		return a.EndTime
	}
}

// endOffset is the entry's end in minutes after the start of its day
func endOffset(e domain.PlaytimeEntry) int {
	end := clockMinutes(*e.EndTime)
	if e.StartTime != nil && end < clockMinutes(*e.StartTime) {
		end += minutesPerDay
	}
	return end
}

// clockMinutes converts a canonical "HH:mm" to minutes after midnight
func clockMinutes(clock string) int {
	h, m, _ := strings.Cut(clock, ":")
	hours, _ := strconv.Atoi(h)
	minutes, _ := strconv.Atoi(m)
	return hours*60 + minutes
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
