package utils

import "time"

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// NowUTC returns the current time truncated to microseconds, matching the
// precision Postgres stores for timestamptz columns.
func NowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
