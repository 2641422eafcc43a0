package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/synq/internal/synq"
)

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderList())
	b.WriteString("\n")
	if m.showLogs {
		b.WriteString(m.renderLogs())
		b.WriteString("\n")
	}
	b.WriteString(m.renderPrompt())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// renderHeader renders the title, sync status and counts.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()

	badge := m.status.String()
	if m.status == synq.StatusLoading {
		badge = m.spinner.View() + " " + badge
	}

	done := 0
	for _, todo := range m.items {
		if todo.Completed {
			done++
		}
	}

	parts := []string{
		styles.Logo.Render("synq"),
		styles.StatusStyle(m.status).Render(badge),
		styles.Text.Render(plural(len(m.items), "todo")),
		styles.MutedText.Render(fmt.Sprintf("%d done", done)),
	}
	if len(m.visible) != len(m.items) {
		parts = append(parts, styles.AccentText.Render(fmt.Sprintf("%d shown", len(m.visible))))
	}
	if m.prefs.Filter != "" {
		parts = append(parts, styles.FaintText.Render("filter: "+truncate(m.prefs.Filter, 40)))
	}
	if !m.lastUpdated.IsZero() {
		parts = append(parts, styles.FaintText.Render(m.lastUpdated.Format("15:04:05")))
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, "  "))
}

func (m Model) renderList() string {
	styles := m.theme.Styles()
	pane := styles.Pane.BorderForeground(lipgloss.Color(m.theme.BorderFocus))
	if m.mode != modeList {
		pane = styles.Pane
	}

	if len(m.visible) == 0 {
		msg := "Nothing to do"
		if len(m.items) > 0 {
			msg = "No todos match"
		}
		empty := lipgloss.Place(m.width-4, m.table.Height(), lipgloss.Center, lipgloss.Center,
			styles.MutedText.Render(msg))
		return pane.Render(empty)
	}
	return pane.Render(m.table.View())
}

func (m Model) renderLogs() string {
	styles := m.theme.Styles()
	height := max(m.table.Height(), 3)

	lines := make([]string, 0, height)
	start := max(len(m.logs)-height, 0)
	for _, entry := range m.logs[start:] {
		line := truncate(entry.String(), m.width-6)
		switch strings.ToLower(entry.Level) {
		case "error", "dpanic", "panic", "fatal":
			line = styles.DangerText.Render(line)
		case "warn":
			line = styles.WarningText.Render(line)
		case "debug":
			line = styles.FaintText.Render(line)
		default:
			line = styles.Text.Render(line)
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		lines = append(lines, styles.MutedText.Render("No log entries"))
	}

	return styles.Pane.
		Width(m.width - 2).
		Height(height).
		Render(strings.Join(lines, "\n"))
}

func (m Model) renderPrompt() string {
	styles := m.theme.Styles()

	var label string
	switch m.mode {
	case modeAdd:
		label = "Add"
	case modeEdit:
		label = "Edit"
	case modeFilter:
		label = "Filter"
	}

	var b strings.Builder
	if label != "" {
		b.WriteString(styles.AccentText.Bold(true).Render(label + ":"))
		b.WriteString(" ")
		b.WriteString(m.input.View())
	}
	if m.notice != "" {
		if b.Len() > 0 {
			b.WriteString("  ")
		}
		b.WriteString(styles.WarningText.Render(m.notice))
	}
	return b.String()
}

func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	return styles.Footer.Width(m.width).Render(m.help.View(m.keys))
}
