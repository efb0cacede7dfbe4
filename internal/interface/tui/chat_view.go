package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/neilberkman/docchat/internal/core/api"
	"github.com/neilberkman/docchat/internal/core/chat"
	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/neilberkman/docchat/internal/core/poller"
	"github.com/neilberkman/docchat/internal/core/routes"
	"github.com/neilberkman/docchat/internal/core/warmup"
)

func conversationPanelWidth(total int) int {
	w := total / 4
	if w < 24 {
		w = 24
	}
	if w > 40 {
		w = 40
	}
	return w
}

func createTranscript(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.SetContent("")
	return vp
}

func (m Model) startWarmup() *poller.Task {
	events := m.events
	return warmup.Start(m.ctx, m.app.API, m.app.Config.ModelPollInterval,
		func(status *models.ModelStatus, err error) {
			emit(events, modelStatusMsg{status: status, err: err})
		}, m.app.Log.Named("warmup"))
}

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	// Keys shared by both panes
	switch msg.String() {
	case "ctrl+n":
		m.app.Chat.StartNewConversation()
		m.syncChat()
		m.setStatus("New conversation")
		return m, nil
	case "ctrl+g":
		next := models.ModeRAG
		if m.chat.Mode == models.ModeRAG {
			next = models.ModeGeneral
		}
		if err := m.app.SetMode(next); err != nil {
			if errors.Is(err, chat.ErrRAGUnavailable) {
				m.setError("Document mode is available once you have a conversation")
			} else {
				m.setError(err.Error())
			}
			return m, nil
		}
		m.syncChat()
		m.setStatus(fmt.Sprintf("Switched to %s mode", modeLabel(next)))
		return m, nil
	case "ctrl+y":
		return m.copyLastAnswer()
	case "pgup", "pgdown":
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd
	}

	if m.focus == focusConversations {
		switch msg.String() {
		case "tab", "i":
			m.focus = focusInput
			return m, m.input.Focus()
		case "enter":
			if it, ok := m.convList.SelectedItem().(conversationItem); ok {
				m.focus = focusInput
				m.setStatus("Loading conversation...")
				return m, tea.Batch(loadConversation(m.ctx, m.app, it.conv.ID), m.input.Focus())
			}
			return m, nil
		case "d":
			if it, ok := m.convList.SelectedItem().(conversationItem); ok {
				m.setStatus("Deleting...")
				return m, deleteConversation(m.ctx, m.app, it.conv.ID)
			}
			return m, nil
		case "esc":
			return m.navigate(routes.Dashboard)
		}
		m.convList, cmd = m.convList.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "tab", "esc":
		m.focus = focusConversations
		m.input.Blur()
		return m, nil
	case "up", "down":
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd
	case "enter":
		text := m.input.Value()
		send, err := m.app.Chat.Begin(text)
		if err != nil {
			if !errors.Is(err, chat.ErrEmptyMessage) {
				m.setError(err.Error())
			}
			return m, nil
		}
		m.input.SetValue("")
		m.setStatus("")
		m.syncChat()
		return m, completeSend(m.ctx, send, text)
	}

	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateChatMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case conversationsLoadedMsg:
		if msg.err != nil {
			m.setError("Could not load conversations: " + api.UserMessage(msg.err))
		}
	case conversationLoadedMsg:
		if msg.err != nil {
			m.setError("Could not load conversation: " + api.UserMessage(msg.err))
		} else {
			m.setStatus("")
		}
	case sendDoneMsg:
		if msg.err != nil {
			m.setError("Message not sent: " + api.UserMessage(msg.err))
			// Give the text back so it can be retried
			if m.input.Value() == "" && !api.IsKind(msg.err, api.KindSessionExpired) {
				m.input.SetValue(msg.text)
				m.input.CursorEnd()
			}
		}
	}
	m.syncChat()
	return m, nil
}

func (m Model) copyLastAnswer() (tea.Model, tea.Cmd) {
	for i := len(m.chat.Messages) - 1; i >= 0; i-- {
		msg := m.chat.Messages[i]
		if msg.Role != models.RoleAssistant {
			continue
		}
		if err := clipboard.WriteAll(msg.Content); err != nil {
			m.setError("Copy failed: " + err.Error())
			return m, nil
		}
		m.setStatus("Copied answer to clipboard")
		return m, nil
	}
	m.setError("Nothing to copy yet")
	return m, nil
}

// syncChat pulls the pipeline snapshot into the list and transcript.
func (m *Model) syncChat() {
	m.chat = m.app.Chat.Snapshot()
	m.convList.SetItems(conversationItems(m.chat))
	m.renderTranscript()
}

func (m *Model) renderTranscript() {
	width := m.transcript.Width
	if width <= 0 {
		width = 80
	}
	m.transcript.SetContent(renderMessages(m.chat.Messages, width))
	m.transcript.GotoBottom()
}

// renderMessages lays out messages for the transcript viewport.
func renderMessages(msgs []models.Message, width int) string {
	if len(msgs) == 0 {
		return timestampStyle.Render("Ask anything to start a conversation.")
	}

	body := lipgloss.NewStyle().Width(width)
	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}

		label := userStyle.Render("You")
		if msg.Role == models.RoleAssistant {
			label = assistantStyle.Render("Assistant")
		}
		b.WriteString(label)
		if !msg.CreatedAt.IsZero() {
			b.WriteString(" " + timestampStyle.Render(msg.CreatedAt.Local().Format("3:04 PM")))
		}
		b.WriteString("\n")

		if msg.IsPending() {
			b.WriteString(pendingStyle.Width(width).Render(msg.Content))
			b.WriteString("\n" + pendingStyle.Render("sending..."))
			continue
		}
		b.WriteString(body.Render(msg.Content))

		if len(msg.Sources) > 0 {
			var names []string
			for _, s := range msg.Sources {
				name := s.Filename
				if s.SimilarityScore != nil {
					name += fmt.Sprintf(" (%.2f)", *s.SimilarityScore)
				}
				names = append(names, name)
			}
			b.WriteString("\n" + sourceStyle.Width(width).Render("Sources: "+strings.Join(names, ", ")))
		}
	}
	return b.String()
}

func modeLabel(mode models.ChatMode) string {
	if mode == models.ModeRAG {
		return "document"
	}
	return "general"
}

func (m Model) modelLabel() string {
	if m.modelInfo == nil {
		return "model: checking"
	}
	switch {
	case m.modelInfo.Loaded:
		return "model: ready"
	case m.modelInfo.Loading:
		return "model: loading " + m.spinner.View()
	}
	return "model: not loaded"
}

func (m Model) viewChat() string {
	convPanel := panelStyle
	chatPanel := focusedPanelStyle
	if m.focus == focusConversations {
		convPanel, chatPanel = focusedPanelStyle, panelStyle
	}

	var left string
	if len(m.chat.Conversations) == 0 {
		left = timestampStyle.Render("No conversations yet")
	} else {
		left = m.convList.View()
	}
	left = convPanel.Width(conversationPanelWidth(m.width)).Render(titleStyle.Render("Conversations") + "\n" + left)

	title := "New conversation"
	if m.chat.Active != nil {
		title = conversationItem{conv: *m.chat.Active}.Title()
	}
	header := titleStyle.Render(truncate(title, m.transcript.Width-30)) + "  " +
		timestampStyle.Render(modeLabel(m.chat.Mode)+" mode • "+m.modelLabel())

	footer := m.input.View()
	if m.chat.Sending {
		footer = m.spinner.View() + " Thinking...\n" + footer
	}

	right := chatPanel.Render(header + "\n\n" + m.transcript.View() + "\n" + footer)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}
