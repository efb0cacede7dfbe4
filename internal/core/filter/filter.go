// Package filter parses list filters such as "budget after:last-week" and
// applies them to conversations and documents.
package filter

import (
	"strings"
	"time"

	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// Filters represents parsed filters from a query
type Filters struct {
	Text       string    // Case-insensitive substring to match
	AfterDate  time.Time // Only items created after this date
	BeforeDate time.Time // Only items created before this date
	HasAfter   bool
	HasBefore  bool
}

// Empty reports whether the filters match everything
func (f Filters) Empty() bool {
	return f.Text == "" && !f.HasAfter && !f.HasBefore
}

// Parse extracts filters from a query string
// Supports:
//   - date:yesterday, date:2024-11-01 - created on or after
//   - after:last-week, before:2024-11-01 - explicit range
//
// Anything else is matched as text.
func Parse(query string, now time.Time) Filters {
	filters := Filters{}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	var textParts []string
	for _, token := range strings.Fields(query) {
		switch {
		case strings.HasPrefix(token, "date:"), strings.HasPrefix(token, "after:"):
			value := token[strings.Index(token, ":")+1:]
			if parsed := parseDate(w, value, now); parsed != nil {
				filters.AfterDate = *parsed
				filters.HasAfter = true
				continue
			}
		case strings.HasPrefix(token, "before:"):
			if parsed := parseDate(w, strings.TrimPrefix(token, "before:"), now); parsed != nil {
				filters.BeforeDate = *parsed
				filters.HasBefore = true
				continue
			}
		}
		textParts = append(textParts, token)
	}

	filters.Text = strings.Join(textParts, " ")
	return filters
}

// parseDate attempts to parse a date string using natural language parsing
func parseDate(w *when.Parser, dateStr string, now time.Time) *time.Time {
	formats := []string{
		"2006-01-02",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006/01/02",
	}
	for _, format := range formats {
		if t, err := time.ParseInLocation(format, dateStr, now.Location()); err == nil {
			return &t
		}
	}

	// "last-week" reads better in a single token than "last week"
	phrase := strings.ReplaceAll(dateStr, "-", " ")
	result, err := w.Parse(phrase, now)
	if err == nil && result != nil {
		return &result.Time
	}
	return nil
}

func (f Filters) matches(text string, created time.Time) bool {
	if f.Text != "" && !strings.Contains(strings.ToLower(text), strings.ToLower(f.Text)) {
		return false
	}
	if f.HasAfter && (created.IsZero() || created.Before(f.AfterDate)) {
		return false
	}
	if f.HasBefore && (created.IsZero() || !created.Before(f.BeforeDate)) {
		return false
	}
	return true
}

// Conversations returns the conversations matching f, in input order.
func (f Filters) Conversations(in []models.Conversation) []models.Conversation {
	if f.Empty() {
		return in
	}
	var out []models.Conversation
	for _, c := range in {
		if f.matches(c.Title, c.CreatedAt.Time) {
			out = append(out, c)
		}
	}
	return out
}

// Documents returns the documents matching f, in input order.
func (f Filters) Documents(in []models.Document) []models.Document {
	if f.Empty() {
		return in
	}
	var out []models.Document
	for _, d := range in {
		if f.matches(d.Filename, d.CreatedAt.Time) {
			out = append(out, d)
		}
	}
	return out
}
