package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/docchat/internal/core/app"
	"github.com/neilberkman/docchat/internal/core/chat"
	"github.com/neilberkman/docchat/internal/core/dashboard"
	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/neilberkman/docchat/internal/core/session"
)

// eventMsg wraps anything delivered through the events channel.
type eventMsg struct {
	msg tea.Msg
}

// sessionChangedMsg and chatChangedMsg only signal a change; the handler
// reads the current state, so dropped duplicates are harmless.
type sessionChangedMsg struct{}

type chatChangedMsg struct{}

type navigateMsg struct {
	path string
}

type modelStatusMsg struct {
	status *models.ModelStatus
	err    error
}

type uploadProgressMsg struct {
	pct float64
}

type restoredMsg struct {
	err error
}

type authDoneMsg struct {
	err error
}

type summaryLoadedMsg struct {
	summary *dashboard.Summary
	err     error
}

type documentsLoadedMsg struct {
	docs []models.Document
	err  error
}

type uploadDoneMsg struct {
	doc *models.Document
	err error
}

type conversationsLoadedMsg struct {
	err error
}

type conversationLoadedMsg struct {
	err error
}

type sendDoneMsg struct {
	text string
	err  error
}

type deletedMsg struct {
	what string
	err  error
}

// emit delivers msg without blocking the caller. Subscribers run inside
// store and pipeline calls, some of them made from Update itself.
func emit(ch chan tea.Msg, msg tea.Msg) {
	select {
	case ch <- msg:
	default:
	}
}

func waitForEvent(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return eventMsg{msg: <-ch}
	}
}

func restoreSession(ctx context.Context, a *app.App) tea.Cmd {
	return func() tea.Msg {
		_, err := a.Restore(ctx)
		return restoredMsg{err: err}
	}
}

func login(ctx context.Context, a *app.App, username, password string) tea.Cmd {
	return func() tea.Msg {
		_, err := a.Session.Login(ctx, username, password)
		return authDoneMsg{err: err}
	}
}

func register(ctx context.Context, a *app.App, in session.RegisterInput) tea.Cmd {
	return func() tea.Msg {
		_, err := a.Session.Register(ctx, in)
		return authDoneMsg{err: err}
	}
}

func loadSummary(ctx context.Context, a *app.App) tea.Cmd {
	return func() tea.Msg {
		s, err := a.Dashboard.Summary(ctx)
		return summaryLoadedMsg{summary: s, err: err}
	}
}

func loadDocuments(ctx context.Context, a *app.App) tea.Cmd {
	return func() tea.Msg {
		docs, err := a.Documents.List(ctx, 0, a.Config.PageSize)
		return documentsLoadedMsg{docs: docs, err: err}
	}
}

func uploadDocument(ctx context.Context, a *app.App, events chan tea.Msg, path string) tea.Cmd {
	return func() tea.Msg {
		doc, err := a.Documents.Upload(ctx, path, func(pct float64) {
			emit(events, uploadProgressMsg{pct: pct})
		})
		return uploadDoneMsg{doc: doc, err: err}
	}
}

func deleteDocument(ctx context.Context, a *app.App, id models.ID) tea.Cmd {
	return func() tea.Msg {
		return deletedMsg{what: "document", err: a.Documents.Delete(ctx, id)}
	}
}

func loadConversations(ctx context.Context, a *app.App) tea.Cmd {
	return func() tea.Msg {
		_, err := a.Chat.LoadConversations(ctx)
		return conversationsLoadedMsg{err: err}
	}
}

func loadConversation(ctx context.Context, a *app.App, id models.ID) tea.Cmd {
	return func() tea.Msg {
		_, err := a.Chat.LoadConversation(ctx, id)
		return conversationLoadedMsg{err: err}
	}
}

func deleteConversation(ctx context.Context, a *app.App, id models.ID) tea.Cmd {
	return func() tea.Msg {
		return deletedMsg{what: "conversation", err: a.Chat.DeleteConversation(ctx, id)}
	}
}

// completeSend runs the request half of a send started with Pipeline.Begin.
func completeSend(ctx context.Context, send *chat.PendingSend, text string) tea.Cmd {
	return func() tea.Msg {
		_, err := send.Do(ctx)
		return sendDoneMsg{text: text, err: err}
	}
}
