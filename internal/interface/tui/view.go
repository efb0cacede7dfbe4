package tui

import (
	"strings"

	"github.com/neilberkman/docchat/internal/core/guard"
	"github.com/neilberkman/docchat/internal/core/routes"
)

func (m Model) View() string {
	if m.showHelp {
		return m.viewHelp()
	}

	// Nothing protected or public renders until the session is resolved.
	if guard.Resolve(m.session, m.path).Outcome == guard.ShowLoading {
		return "\n  " + m.spinner.View() + " Restoring session..."
	}

	var body string
	switch m.path {
	case routes.Login, routes.Register:
		return m.viewAuth() + m.viewStatus()
	case routes.Dashboard:
		body = m.viewDashboard()
	case routes.Documents:
		body = m.viewDocuments()
	case routes.Chat:
		body = m.viewChat()
	}

	return m.viewTabs() + "\n\n" + body + m.viewStatus() + "\n" + helpStyle.Render(m.footerHelp())
}

func (m Model) viewTabs() string {
	var tabs []string
	for i, r := range []string{routes.Dashboard, routes.Documents, routes.Chat} {
		route, _ := routes.Lookup(r)
		label := string(rune('1'+i)) + " " + route.Title
		if r == m.path {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	line := strings.Join(tabs, " ")
	if m.session.User != nil {
		line += "   " + timestampStyle.Render(m.session.User.Username+" @ "+m.app.Config.APIURL)
	}
	return line
}

func (m Model) viewStatus() string {
	if m.status == "" {
		return "\n"
	}
	if m.statusErr {
		return "\n" + errorStyle.Render(m.status)
	}
	return "\n" + statusStyle.Render(m.status)
}

func (m Model) footerHelp() string {
	switch m.path {
	case routes.Dashboard:
		return "d documents • c chat • r refresh • x sign out • q quit • ? more"
	case routes.Documents:
		if m.uploadActive || m.filtering {
			return "enter confirm • esc cancel"
		}
		return "↑/k up • ↓/j down • u upload • d delete • / filter • r reload • esc back • ? more"
	case routes.Chat:
		if m.focus == focusConversations {
			return "enter open • d delete • tab/i type • ctrl+n new • ctrl+g mode • esc dashboard • ? more"
		}
		return "enter send • ctrl+n new • ctrl+g mode • ctrl+y copy answer • tab conversations"
	}
	return ""
}
