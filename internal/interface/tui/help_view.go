package tui

func (m Model) viewHelp() string {
	help := `
docchat - Help
══════════════

ANYWHERE
────────
  1 / 2 / 3    Dashboard / Documents / Chat
  x            Sign out
  ?            Show this help
  q, ctrl+c    Quit

SIGN IN / CREATE ACCOUNT
────────────────────────
  tab, ↑/↓     Move between fields
  enter        Next field, or submit on the last one
  ctrl+r       Switch between sign in and create account

DASHBOARD
─────────
  d, enter     Open documents
  c            Open chat
  r            Refresh statistics

DOCUMENTS
─────────
  ↑/↓, j/k     Navigate documents
  u            Upload a file (type its path)
  d            Delete selected document (confirm with y)
  /            Filter: name words, after:, before:, date:
  r            Reload
  esc          Back to dashboard

CHAT
────
  enter        Send message
  tab, esc     Switch between input and conversation list
  ctrl+n       Start a new conversation
  ctrl+g       Toggle general / document mode
  ctrl+y       Copy the last answer to the clipboard
  pgup/pgdown  Scroll the transcript
  In the list: enter opens, d deletes, esc returns to dashboard

Press any key to return
`

	return helpStyle.Render(help)
}
