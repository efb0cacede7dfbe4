package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neilberkman/docchat/internal/core/api"
	"github.com/neilberkman/docchat/internal/core/session"
)

// describe turns an error into the line printed before exiting.
func describe(err error) string {
	var authErr *session.AuthError
	if errors.As(err, &authErr) {
		return authErr.Reason
	}
	if api.IsKind(err, api.KindNetwork) || api.IsKind(err, api.KindSessionExpired) {
		return api.UserMessage(err)
	}
	return err.Error()
}

// truncateSummary truncates long text for single-line display
func truncateSummary(summary string, maxLen int) string {
	// Remove newlines and excessive whitespace
	summary = strings.Join(strings.Fields(summary), " ")

	runes := []rune(summary)
	if len(runes) <= maxLen {
		return summary
	}

	// Find a good break point (end of word)
	truncated := string(runes[:maxLen])
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > len(truncated)-20 && lastSpace > 0 {
		truncated = truncated[:lastSpace]
	}

	return truncated + "..."
}

// formatTimestamp formats a timestamp in a human-friendly way
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	now := time.Now()
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute") + " ago"
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour") + " ago"
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day") + " ago"
	case diff < 30*24*time.Hour:
		return plural(int(diff.Hours()/24/7), "week") + " ago"
	}

	// Show formatted date
	if t.Year() == now.Year() {
		return t.Format("Jan 2")
	}
	return t.Format("Jan 2, 2006")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
