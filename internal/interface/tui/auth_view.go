package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/docchat/internal/core/routes"
	"github.com/neilberkman/docchat/internal/core/session"
)

var (
	loginLabels    = []string{"Username", "Password"}
	registerLabels = []string{"Username", "Email", "Password", "Confirm password"}
)

func newTextInput(placeholder string, secret bool) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "> "
	ti.CharLimit = 256
	ti.Width = 40
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	return ti
}

func newLoginInputs() []textinput.Model {
	return []textinput.Model{
		newTextInput("alice", false),
		newTextInput("", true),
	}
}

func newRegisterInputs() []textinput.Model {
	return []textinput.Model{
		newTextInput("alice", false),
		newTextInput("alice@example.com", false),
		newTextInput("at least 6 characters", true),
		newTextInput("", true),
	}
}

func (m *Model) resetForms() {
	for i := range m.loginInputs {
		m.loginInputs[i].SetValue("")
	}
	for i := range m.registerInputs {
		m.registerInputs[i].SetValue("")
	}
	m.formFocus = 0
}

// formInputs returns the inputs of the active form
func (m *Model) formInputs() []textinput.Model {
	if m.path == routes.Register {
		return m.registerInputs
	}
	return m.loginInputs
}

func (m Model) updateAuth(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	inputs := m.formInputs()

	switch msg.String() {
	case "ctrl+r":
		// Switch between sign-in and sign-up
		m.formErr = ""
		if m.path == routes.Login {
			return m.navigate(routes.Register)
		}
		return m.navigate(routes.Login)

	case "tab", "down":
		return m, m.focusField(m.formFocus + 1)

	case "shift+tab", "up":
		return m, m.focusField(m.formFocus - 1)

	case "enter":
		if m.submitting {
			return m, nil
		}
		if m.formFocus < len(inputs)-1 {
			return m, m.focusField(m.formFocus + 1)
		}
		return m.submitForm()
	}

	var cmd tea.Cmd
	inputs[m.formFocus], cmd = inputs[m.formFocus].Update(msg)
	return m, cmd
}

func (m *Model) focusField(i int) tea.Cmd {
	inputs := m.formInputs()
	n := len(inputs)
	i = ((i % n) + n) % n
	for j := range inputs {
		inputs[j].Blur()
	}
	m.formFocus = i
	return inputs[i].Focus()
}

func (m Model) submitForm() (tea.Model, tea.Cmd) {
	m.formErr = ""
	if m.path == routes.Register {
		in := session.RegisterInput{
			Username: strings.TrimSpace(m.registerInputs[0].Value()),
			Email:    strings.TrimSpace(m.registerInputs[1].Value()),
			Password: m.registerInputs[2].Value(),
			Confirm:  m.registerInputs[3].Value(),
		}
		// Validate locally so nothing is sent for a bad form
		if err := session.ValidateRegistration(in); err != nil {
			m.formErr = err.Error()
			return m, nil
		}
		m.submitting = true
		return m, register(m.ctx, m.app, in)
	}

	username := strings.TrimSpace(m.loginInputs[0].Value())
	password := m.loginInputs[1].Value()
	if username == "" || password == "" {
		m.formErr = "Enter your username and password"
		return m, nil
	}
	m.submitting = true
	return m, login(m.ctx, m.app, username, password)
}

func (m Model) viewAuth() string {
	var b strings.Builder

	title, labels, inputs := "Sign in", loginLabels, m.loginInputs
	switchHint := "ctrl+r create an account"
	if m.path == routes.Register {
		title, labels, inputs = "Create account", registerLabels, m.registerInputs
		switchHint = "ctrl+r back to sign in"
	}

	b.WriteString(titleStyle.Render(title))
	b.WriteString("  ")
	b.WriteString(timestampStyle.Render(m.app.Config.APIURL))
	b.WriteString("\n\n")

	for i, in := range inputs {
		label := labelStyle
		if i == m.formFocus {
			label = focusedLabelStyle
		}
		b.WriteString(label.Render(labels[i]))
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case m.submitting:
		b.WriteString(m.spinner.View() + " Signing in...")
	case m.formErr != "":
		b.WriteString(errorStyle.Render(m.formErr))
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("tab next field • enter submit • " + switchHint + " • ctrl+c quit"))

	return b.String()
}
