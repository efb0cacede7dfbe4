package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/dustin/go-humanize"
	"github.com/neilberkman/docchat/internal/core/chat"
	"github.com/neilberkman/docchat/internal/core/models"
)

type documentItem struct {
	doc models.Document
}

func (i documentItem) FilterValue() string { return i.doc.Filename }

func (i documentItem) Title() string { return i.doc.Filename }

func (i documentItem) Description() string {
	status := "indexed"
	if !i.doc.Processed {
		status = "processing"
	}
	return fmt.Sprintf("%s | %d chunks | %s | Added: %s",
		humanize.Bytes(uint64(i.doc.FileSize)), i.doc.ChunkCount, status, formatTime(i.doc.CreatedAt))
}

type conversationItem struct {
	conv   models.Conversation
	active bool
}

func (i conversationItem) FilterValue() string { return i.conv.Title }

func (i conversationItem) Title() string {
	if strings.TrimSpace(i.conv.Title) == "" {
		return "Conversation " + i.conv.ID.String()
	}
	return i.conv.Title
}

func (i conversationItem) Description() string {
	return formatTime(i.conv.CreatedAt)
}

// itemDelegate highlights the selection and the open conversation
type itemDelegate struct {
	list.DefaultDelegate
}

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(list.DefaultItem)
	if !ok {
		d.DefaultDelegate.Render(w, m, index, item)
		return
	}

	width := m.Width() - 4
	title := truncate(it.Title(), width)
	desc := truncate(it.Description(), width)

	conv, isConv := item.(conversationItem)
	switch {
	case index == m.Index():
		title = selectedItemStyle.Render("▌" + title)
		desc = selectedItemStyle.Faint(true).Render(" " + desc)
	case isConv && conv.active:
		title = activeItemStyle.Render(title)
		desc = itemStyle.Render(desc)
	default:
		title = itemStyle.Render(title)
		desc = itemStyle.Render(desc)
	}

	fmt.Fprintf(w, "%s\n%s", title, desc)
}

func createList(items []list.Item, width, height int) list.Model {
	delegate := itemDelegate{DefaultDelegate: list.NewDefaultDelegate()}

	l := list.New(items, delegate, width, height)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetFilteringEnabled(false) // Filtering goes through the filter package
	l.DisableQuitKeybindings()
	return l
}

func documentItems(docs []models.Document) []list.Item {
	items := make([]list.Item, len(docs))
	for i, d := range docs {
		items[i] = documentItem{doc: d}
	}
	return items
}

func conversationItems(snap chat.Snapshot) []list.Item {
	items := make([]list.Item, len(snap.Conversations))
	for i, c := range snap.Conversations {
		items[i] = conversationItem{
			conv:   c,
			active: snap.Active != nil && snap.Active.ID == c.ID,
		}
	}
	return items
}

func formatTime(t models.Timestamp) string {
	if t.IsZero() {
		return "unknown"
	}
	return humanize.Time(t.Time)
}

func truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if width <= 3 {
		return s
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
