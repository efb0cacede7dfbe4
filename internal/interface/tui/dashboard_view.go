package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/neilberkman/docchat/internal/core/dashboard"
	"github.com/neilberkman/docchat/internal/core/routes"
)

func (m Model) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "r":
		m.app.Dashboard.Invalidate()
		m.setStatus("Refreshing...")
		return m, loadSummary(m.ctx, m.app)
	case "d", "enter":
		return m.navigate(routes.Documents)
	case "c":
		return m.navigate(routes.Chat)
	}
	return m, nil
}

func (m Model) viewDashboard() string {
	var b strings.Builder

	if m.session.User != nil {
		b.WriteString(fmt.Sprintf("Welcome back, %s\n\n", m.session.User.Username))
	}

	if m.summary == nil {
		b.WriteString(m.spinner.View() + " Loading statistics...")
		return b.String()
	}

	s := m.summary
	docs := panelStyle.Render(strings.Join([]string{
		titleStyle.Render("Documents"),
		stat("Total", humanize.Comma(int64(s.Documents.TotalDocuments))),
		stat("Indexed", fmt.Sprintf("%s (%s)",
			humanize.Comma(int64(s.Documents.ProcessedDocuments)), dashboard.FormatPercent(s.IndexedPercent()))),
		stat("Chunks", humanize.Comma(int64(s.Documents.TotalChunks))),
		stat("Storage", humanize.Bytes(uint64(s.Documents.TotalSize))),
	}, "\n"))

	chats := panelStyle.Render(strings.Join([]string{
		titleStyle.Render("Chat"),
		stat("Conversations", humanize.Comma(int64(s.Chat.TotalConversations))),
		stat("Messages", humanize.Comma(int64(s.Chat.TotalMessages))),
		stat("Per conversation", fmt.Sprintf("%.1f", s.MessagesPerConversation())),
	}, "\n"))

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, docs, " ", chats))
	b.WriteString("\n\n")
	b.WriteString(timestampStyle.Render("Updated " + humanize.Time(s.FetchedAt)))
	return b.String()
}

func stat(label, value string) string {
	return labelStyle.Render(label) + statValueStyle.Render(value)
}
