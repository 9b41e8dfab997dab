// Package utils provides shared utilities for text, math, and logging.
package utils

import "unicode/utf8"

// Truncate returns s truncated to maxLen characters, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}

// TruncateForLog shortens s for log previews and reports how much was cut.
func TruncateForLog(s string, maxLen int) string {
	n := utf8.RuneCountInString(s)
	if maxLen <= 0 || n <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "...(truncated)"
}
