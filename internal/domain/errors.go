package domain

import "errors"

// Domain errors
var (
	ErrPlayerNotFound     = errors.New("player not found")
	ErrEntryNotFound      = errors.New("playtime entry not found")
	ErrEntryConflict      = errors.New("player already has a playtime entry for that day")
	ErrInvalidDuration    = errors.New("either start and end time or minutes must be supplied")
	ErrInvalidTime        = errors.New("invalid clock time")
	ErrInvalidDate        = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidGranularity = errors.New("invalid granularity")
	ErrInvalidPeriod      = errors.New("invalid leaderboard period")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrCacheMiss          = errors.New("cache miss")
	ErrInternalError      = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrPlayerNotFound) || errors.Is(err, ErrEntryNotFound)
}

// IsValidationError checks if an error was caused by bad caller input
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidDuration) ||
		errors.Is(err, ErrInvalidTime) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidGranularity) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidRequest)
}

// IsConflictError checks if an error is a uniqueness conflict
func IsConflictError(err error) bool {
	return errors.Is(err, ErrEntryConflict)
}
