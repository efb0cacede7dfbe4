// Package export renders conversations as text documents.
package export

import (
	"fmt"
	"time"

	"github.com/cbroglie/mustache"
	"github.com/dustin/go-humanize"
	"github.com/neilberkman/docchat/internal/core/models"
)

// Transcript renders a conversation through a mustache template.
func Transcript(template string, conv models.Conversation, msgs []models.Message, now time.Time) (string, error) {
	messages := make([]map[string]interface{}, 0, len(msgs))
	for _, m := range msgs {
		if m.IsPending() {
			continue
		}
		sources := make([]map[string]interface{}, 0, len(m.Sources))
		for _, s := range m.Sources {
			entry := map[string]interface{}{"filename": s.Filename}
			if s.SimilarityScore != nil {
				entry["score"] = fmt.Sprintf("%.2f", *s.SimilarityScore)
			}
			sources = append(sources, entry)
		}
		messages = append(messages, map[string]interface{}{
			"role":         string(m.Role),
			"is_user":      m.Role == models.RoleUser,
			"is_assistant": m.Role == models.RoleAssistant,
			"content":      m.Content,
			"created":      formatTime(m.CreatedAt.Time),
			"has_sources":  len(sources) > 0,
			"sources":      sources,
		})
	}

	title := conv.Title
	if title == "" {
		title = "Conversation " + conv.ID.String()
	}

	data := map[string]interface{}{
		"title":         title,
		"id":            conv.ID.String(),
		"created":       formatTime(conv.CreatedAt.Time),
		"exported_at":   now.Format("Jan 2, 2006 3:04 PM"),
		"message_count": len(messages),
		"time_since":    humanize.Time(conv.CreatedAt.Time),
		"messages":      messages,
	}

	out, err := mustache.Render(template, data)
	if err != nil {
		return "", fmt.Errorf("render transcript: %w", err)
	}
	return out, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("Jan 2, 2006 3:04 PM")
}
