package playtime

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pokercrm/playtime/internal/domain"
)

// FormatMinutes renders a minute count as "Xh Ym", e.g. 125 -> "2h 5m"
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// ParseMinutes is the inverse of FormatMinutes. It sums every "<n>h" and
// "<n>m" part, so "2h 5m", "2h5m", "125m" and "2h" are all accepted.
func ParseMinutes(s string) (int, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("%w: empty duration", domain.ErrInvalidDuration)
	}

	total := 0
	digits := strings.Builder{}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == 'h' || r == 'm':
			if digits.Len() == 0 {
				return 0, fmt.Errorf("%w: %q", domain.ErrInvalidDuration, s)
			}
			n, err := strconv.Atoi(digits.String())
			if err != nil {
				return 0, fmt.Errorf("%w: %q", domain.ErrInvalidDuration, s)
			}
			if r == 'h' {
				n *= 60
			}
			total += n
			digits.Reset()
		case r == ' ':
			if digits.Len() > 0 {
				return 0, fmt.Errorf("%w: %q", domain.ErrInvalidDuration, s)
			}
		default:
			return 0, fmt.Errorf("%w: %q", domain.ErrInvalidDuration, s)
		}
	}
	if digits.Len() > 0 {
		return 0, fmt.Errorf("%w: missing unit in %q", domain.ErrInvalidDuration, s)
	}
	return total, nil
}
