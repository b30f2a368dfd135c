package utils

import "time"

// ExportTimestamp formats a time for use in export filenames,
// e.g. "20260824_153012".
func ExportTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// FormatDateTime renders a timestamp for display in summaries and logs.
func FormatDateTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05 MST")
}

// RecencyWindow returns the (start, end) bounds for a news search looking
// back the given number of days from now.
func RecencyWindow(days int) (time.Time, time.Time) {
	end := time.Now()
	return end.AddDate(0, 0, -days), end
}
