package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/docchat/internal/core/api"
	"github.com/neilberkman/docchat/internal/core/filter"
	"github.com/neilberkman/docchat/internal/core/routes"
)

func (m Model) updateDocuments(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch {
	case m.uploadActive:
		switch msg.String() {
		case "esc":
			m.uploadActive = false
			m.uploadInput.Blur()
			m.uploadInput.SetValue("")
			return m, nil
		case "enter":
			path := strings.TrimSpace(m.uploadInput.Value())
			if path == "" {
				return m, nil
			}
			m.uploadActive = false
			m.uploadInput.Blur()
			m.uploadInput.SetValue("")
			m.uploading = true
			m.uploadPct = 0
			m.setStatus("Uploading " + filepath.Base(path))
			return m, uploadDocument(m.ctx, m.app, m.events, expandHome(path))
		}
		m.uploadInput, cmd = m.uploadInput.Update(msg)
		return m, cmd

	case m.filtering:
		switch msg.String() {
		case "esc":
			m.filtering = false
			m.docFilter.Blur()
			m.docFilter.SetValue("")
			m.applyDocumentFilter()
			return m, nil
		case "enter":
			m.filtering = false
			m.docFilter.Blur()
			return m, nil
		}
		m.docFilter, cmd = m.docFilter.Update(msg)
		m.applyDocumentFilter()
		return m, cmd

	case m.confirmID != "":
		id := m.confirmID
		m.confirmID = ""
		if msg.String() == "y" {
			m.setStatus("Deleting...")
			return m, deleteDocument(m.ctx, m.app, id)
		}
		m.setStatus("Delete cancelled")
		return m, nil
	}

	switch msg.String() {
	case "u":
		if m.uploading {
			return m, nil
		}
		m.uploadActive = true
		return m, m.uploadInput.Focus()
	case "/":
		m.filtering = true
		return m, m.docFilter.Focus()
	case "d":
		if it, ok := m.docList.SelectedItem().(documentItem); ok {
			m.confirmID = it.doc.ID
			m.setStatus(fmt.Sprintf("Delete %s? (y/n)", it.doc.Filename))
		}
		return m, nil
	case "r":
		return m, loadDocuments(m.ctx, m.app)
	case "esc":
		return m.navigate(routes.Dashboard)
	}

	m.docList, cmd = m.docList.Update(msg)
	return m, cmd
}

func (m Model) updateDocumentsMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case summaryLoadedMsg:
		if msg.err != nil {
			m.setError("Could not load statistics: " + api.UserMessage(msg.err))
			return m, nil
		}
		m.summary = msg.summary
		if m.status == "Refreshing..." {
			m.setStatus("")
		}

	case documentsLoadedMsg:
		if msg.err != nil {
			m.setError("Could not load documents: " + api.UserMessage(msg.err))
			return m, nil
		}
		m.documents = msg.docs
		m.applyDocumentFilter()

	case uploadProgressMsg:
		if m.uploading && msg.pct > m.uploadPct {
			m.uploadPct = msg.pct
		}

	case uploadDoneMsg:
		m.uploading = false
		if msg.err != nil {
			m.setError("Upload failed: " + api.UserMessage(msg.err))
			return m, nil
		}
		m.uploadPct = 100
		name := "document"
		if msg.doc != nil {
			name = msg.doc.Filename
		}
		m.setStatus("Uploaded " + name)
		return m, tea.Batch(loadDocuments(m.ctx, m.app), loadSummary(m.ctx, m.app))
	}
	return m, nil
}

func (m *Model) applyDocumentFilter() {
	docs := filter.Parse(m.docFilter.Value(), time.Now()).Documents(m.documents)
	m.docList.SetItems(documentItems(docs))
}

func (m Model) viewDocuments() string {
	var b strings.Builder

	switch {
	case m.uploadActive:
		b.WriteString("Upload file: " + m.uploadInput.View())
	case m.filtering || m.docFilter.Value() != "":
		b.WriteString("Filter: " + m.docFilter.View())
	case m.uploading:
		b.WriteString(renderProgressBar(m.uploadPct, m.width))
	default:
		b.WriteString(fmt.Sprintf("%d document(s)", len(m.documents)))
	}
	b.WriteString("\n\n")

	switch {
	case m.documents == nil:
		b.WriteString(m.spinner.View() + " Loading documents...")
	case len(m.documents) == 0:
		b.WriteString("No documents yet. Press 'u' to upload one.")
	case len(m.docList.Items()) == 0:
		b.WriteString("No documents match the filter.")
	default:
		b.WriteString(m.docList.View())
	}
	return b.String()
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
