package cli

import (
	"fmt"
	"strings"
)

// DefaultDescriptionMaxLen is the description width in table output.
const DefaultDescriptionMaxLen = 60

// minTruncateLen leaves room for one character plus "...".
const minTruncateLen = 4

// TruncateDescription collapses whitespace to single spaces and cuts s to
// maxLen runes, ending in "..." when shortened.
func TruncateDescription(s string, maxLen int) string {
	if maxLen < minTruncateLen {
		maxLen = minTruncateLen
	}
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}

// FormatError formats an error message for CLI output
func FormatError(err error) string {
	return fmt.Sprintf("Error: %v", err)
}

// FormatSuccess formats a success message for CLI output
func FormatSuccess(msg string) string {
	return fmt.Sprintf("✓ %s", msg)
}

// FormatWarning formats a warning message for CLI output
func FormatWarning(msg string) string {
	return fmt.Sprintf("⚠ %s", msg)
}
