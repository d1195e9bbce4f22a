package repository

import "time"

// TimeLayout is the DATETIME format used for every timestamp column.
// All values are stored in UTC.  Timestamps are written and scanned as
// strings in this layout so the same queries run against MySQL in
// production and SQLite in tests.
const TimeLayout = "2006-01-02 15:04:05"

// FormatTime renders t in UTC using TimeLayout.
func FormatTime(t time.Time) string { return t.UTC().Format(TimeLayout) }

// parseDBTime converts a stored DATETIME string back to a UTC
// time.Time.  Empty strings map to the zero time.
func parseDBTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
