package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/docchat/internal/core/api"
	"github.com/neilberkman/docchat/internal/core/app"
	"github.com/neilberkman/docchat/internal/core/chat"
	"github.com/neilberkman/docchat/internal/core/dashboard"
	"github.com/neilberkman/docchat/internal/core/guard"
	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/neilberkman/docchat/internal/core/poller"
	"github.com/neilberkman/docchat/internal/core/routes"
	"github.com/neilberkman/docchat/internal/core/session"
)

type chatFocus int

const (
	focusInput chatFocus = iota
	focusConversations
)

type Model struct {
	app    *app.App
	ctx    context.Context
	cancel context.CancelFunc
	events chan tea.Msg

	path     string
	session  session.State
	width    int
	height   int
	showHelp bool
	spinner  spinner.Model

	status    string
	statusErr bool

	// Login and register forms
	loginInputs    []textinput.Model
	registerInputs []textinput.Model
	formFocus      int
	formErr        string
	submitting     bool

	// Dashboard and documents
	summary      *dashboard.Summary
	documents    []models.Document
	docList      list.Model
	docFilter    textinput.Model
	filtering    bool
	uploadInput  textinput.Model
	uploadActive bool
	uploading    bool
	uploadPct    float64
	confirmID    models.ID

	// Chat
	chat       chat.Snapshot
	convList   list.Model
	transcript viewport.Model
	input      textinput.Model
	focus      chatFocus
	modelInfo  *models.ModelStatus
	warm       *poller.Task
}

// New builds the TUI over a.
func New(a *app.App) Model {
	ctx, cancel := context.WithCancel(context.Background())
	m := Model{
		app:     a,
		ctx:     ctx,
		cancel:  cancel,
		events:  make(chan tea.Msg, 64),
		path:    routes.Dashboard,
		session: a.Session.State(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}

	m.loginInputs = newLoginInputs()
	m.registerInputs = newRegisterInputs()
	m.docFilter = newTextInput("after:last week", false)
	m.uploadInput = newTextInput("path/to/file.pdf", false)
	m.input = newTextInput("Ask a question...", false)
	m.input.CharLimit = 4000
	m.docList = createList(nil, 0, 0)
	m.convList = createList(nil, 0, 0)
	m.transcript = createTranscript(0, 0)
	m.chat = a.Chat.Snapshot()

	events := m.events
	a.Session.Subscribe(func(session.State) { emit(events, sessionChangedMsg{}) })
	a.Chat.Subscribe(func(chat.Snapshot) { emit(events, chatChangedMsg{}) })
	a.API.SetNavigator(func(path string) { emit(events, navigateMsg{path: path}) })

	return m
}

// Close stops background work started by the TUI.
func (m Model) Close() {
	m.cancel()
	if m.warm != nil {
		m.warm.Stop()
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		restoreSession(m.ctx, m.app),
		waitForEvent(m.events),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		next, cmd := m.Update(msg.msg)
		return next, tea.Batch(cmd, waitForEvent(m.events))

	case sessionChangedMsg:
		m.session = m.app.Session.State()
		if !m.session.Authenticated && !m.session.Loading {
			m.forgetUserData()
		}
		return m.navigate(m.path)

	case chatChangedMsg:
		m.syncChat()
		return m, nil

	case navigateMsg:
		if msg.path == routes.Login {
			m.setError("Your session has expired. Please sign in again.")
		}
		m.session = m.app.Session.State()
		return m.navigate(msg.path)

	case restoredMsg:
		m.session = m.app.Session.State()
		if msg.err != nil {
			m.setError(api.UserMessage(msg.err))
		}
		return m.navigate(m.path)

	case authDoneMsg:
		m.submitting = false
		if msg.err != nil {
			m.formErr = formError(msg.err)
			return m, nil
		}
		m.formErr = ""
		m.resetForms()
		m.session = m.app.Session.State()
		return m.navigate(routes.Home())

	case modelStatusMsg:
		if msg.err == nil {
			m.modelInfo = msg.status
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updatePage(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	// Pages with a focused text input get every other key.
	if !m.typing() {
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "?":
			m.showHelp = true
			return m, nil
		}
		if m.session.Authenticated {
			switch msg.String() {
			case "1":
				return m.navigate(routes.Dashboard)
			case "2":
				return m.navigate(routes.Documents)
			case "3":
				return m.navigate(routes.Chat)
			case "x":
				m.app.Session.Logout()
				m.setStatus("Signed out")
				return m, nil
			}
		}
	}

	switch m.path {
	case routes.Login, routes.Register:
		return m.updateAuth(msg)
	case routes.Dashboard:
		return m.updateDashboard(msg)
	case routes.Documents:
		return m.updateDocuments(msg)
	case routes.Chat:
		return m.updateChat(msg)
	}
	return m, nil
}

// updatePage routes non-key messages to the page that issued them.
func (m Model) updatePage(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case summaryLoadedMsg, documentsLoadedMsg, uploadProgressMsg, uploadDoneMsg:
		return m.updateDocumentsMsg(msg)
	case conversationsLoadedMsg, conversationLoadedMsg, sendDoneMsg:
		return m.updateChatMsg(msg)
	case deletedMsg:
		if msg.err != nil {
			m.setError("Delete failed: " + api.UserMessage(msg.err))
			return m, nil
		}
		m.setStatus("Deleted " + msg.what)
		if msg.what == "document" {
			return m, tea.Batch(loadDocuments(m.ctx, m.app), loadSummary(m.ctx, m.app))
		}
		return m, nil
	}

	// Cursor blink and other input housekeeping
	var cmd tea.Cmd
	switch m.path {
	case routes.Login:
		m.loginInputs[m.formFocus%len(m.loginInputs)], cmd = m.loginInputs[m.formFocus%len(m.loginInputs)].Update(msg)
	case routes.Register:
		m.registerInputs[m.formFocus%len(m.registerInputs)], cmd = m.registerInputs[m.formFocus%len(m.registerInputs)].Update(msg)
	case routes.Chat:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

// navigate moves to path, following guard redirects, and starts whatever
// the destination page loads on entry.
func (m Model) navigate(path string) (tea.Model, tea.Cmd) {
	d := guard.Resolve(m.session, path)
	if d.Outcome == guard.ShowLoading {
		// Remember where we were headed; decide once the session resolves.
		m.path = path
		return m, nil
	}
	for i := 0; d.Outcome == guard.Redirect && i < 3; i++ {
		path = d.Path
		d = guard.Resolve(m.session, path)
	}

	previous := m.path
	m.path = path
	m.showHelp = false
	if previous == path && m.entered(path) {
		return m, nil
	}
	return m.enter(path)
}

// entered reports whether the page already holds data, so a repeated
// navigation does not refetch.
func (m Model) entered(path string) bool {
	switch path {
	case routes.Dashboard:
		return m.summary != nil
	case routes.Documents:
		return m.documents != nil
	case routes.Chat:
		return m.warm != nil
	}
	return true
}

func (m Model) enter(path string) (tea.Model, tea.Cmd) {
	switch path {
	case routes.Login, routes.Register:
		m.formFocus = 0
		m.blurAll()
		inputs := m.loginInputs
		if path == routes.Register {
			inputs = m.registerInputs
		}
		return m, inputs[0].Focus()
	case routes.Dashboard:
		return m, loadSummary(m.ctx, m.app)
	case routes.Documents:
		return m, loadDocuments(m.ctx, m.app)
	case routes.Chat:
		m.focus = focusInput
		cmds := []tea.Cmd{loadConversations(m.ctx, m.app), m.input.Focus()}
		if m.warm == nil {
			m.warm = m.startWarmup()
		}
		m.syncChat()
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

// typing reports whether a text input currently owns the keyboard.
func (m Model) typing() bool {
	switch m.path {
	case routes.Login, routes.Register:
		return true
	case routes.Documents:
		return m.filtering || m.uploadActive
	case routes.Chat:
		return m.focus == focusInput
	}
	return false
}

func (m *Model) blurAll() {
	for i := range m.loginInputs {
		m.loginInputs[i].Blur()
	}
	for i := range m.registerInputs {
		m.registerInputs[i].Blur()
	}
	m.input.Blur()
	m.docFilter.Blur()
	m.uploadInput.Blur()
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(s string) {
	m.status = s
	m.statusErr = true
}

func (m *Model) resize() {
	w, h := m.width, m.height
	m.docList.SetSize(w, h-12)
	convWidth := conversationPanelWidth(w)
	m.convList.SetSize(convWidth, h-6)
	m.transcript.Width = w - convWidth - 6
	m.transcript.Height = h - 8
	m.input.Width = w - convWidth - 10
	m.renderTranscript()
}

// forgetUserData drops everything fetched for the previous user.
func (m *Model) forgetUserData() {
	m.summary = nil
	m.documents = nil
	m.docList.SetItems(nil)
	m.modelInfo = nil
	m.confirmID = ""
	if m.warm != nil {
		m.warm.Stop()
		m.warm = nil
	}
	m.chat = chat.Snapshot{}
	m.input.SetValue("")
}

func formError(err error) string {
	var authErr *session.AuthError
	if errors.As(err, &authErr) {
		return authErr.Reason
	}
	return api.UserMessage(err)
}
