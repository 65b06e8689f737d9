package ui

import (
	"fmt"
	"strings"

	"github.com/desertthunder/facescan/internal/session"
	"github.com/dustin/go-humanize"
)

const (
	appTitle    = "Face Drive Scanner"
	scanLabel   = "Scan Drive"
	scanningMsg = "Scanning..."
)

// View renders the form from the last known session state.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render(appTitle))
	b.WriteString("\n")

	switch {
	case m.probing:
		b.WriteString(styles.help.Render("Checking backend..."))
		b.WriteString("\n\n")
	case !m.state.BackendHealthy:
		b.WriteString(styles.banner.Render(session.MsgBackendDown))
		b.WriteString("\n\n")
	}

	b.WriteString(m.renderField("Google Drive Folder Link", m.link.View(), m.focus == LinkField))
	b.WriteString(m.renderField("Reference Image", m.image.View(), m.focus == ImageField))
	if preview := m.renderPreview(); preview != "" {
		b.WriteString(preview)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.renderAccount())
	b.WriteString("\n\n")

	b.WriteString(m.renderScanButton())
	b.WriteString("\n")

	if m.state.Error != "" {
		b.WriteString("\n")
		b.WriteString(styles.err.Render(m.state.Error))
		b.WriteString("\n")
	}

	if m.state.Status == session.InFlight || m.state.Status == session.Success {
		b.WriteString("\n")
		b.WriteString(m.progress.ViewAs(float64(m.state.Progress) / 100))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderResults())
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

func (m *Model) renderField(label, input string, focused bool) string {
	style := styles.help
	if focused {
		style = styles.label
	}
	return fmt.Sprintf("%s\n%s\n", style.Render(label), input)
}

func (m *Model) renderPreview() string {
	if !m.state.HasImage() {
		return ""
	}
	img := m.state.Image
	return styles.ok.Render("✓ ") + fmt.Sprintf("%s (%s, %s)", img.Name, img.MediaType, humanize.Bytes(uint64(img.Size)))
}

func (m *Model) renderAccount() string {
	switch {
	case m.signingIn:
		return styles.warn.Render(m.notice)
	case m.state.HasCredential():
		return styles.ok.Render("✓ Signed in with Google")
	default:
		return styles.help.Render("Not signed in. Press ctrl+g to sign in with Google.")
	}
}

func (m *Model) renderScanButton() string {
	switch {
	case m.state.Status == session.InFlight:
		return styles.disabled.Render(m.spinner.View() + " " + scanningMsg)
	case !m.state.CanScan():
		return styles.disabled.Render(scanLabel)
	default:
		return styles.button.Render(scanLabel)
	}
}

func (m *Model) renderResults() string {
	if len(m.state.Results) > 0 {
		return m.results.View()
	}
	if m.state.NoMatches() {
		return styles.help.Render(session.MsgNoMatches)
	}
	return ""
}
