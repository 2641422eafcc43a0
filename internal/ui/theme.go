package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/synq/internal/synq"
)

// Theme defines colors for the UI.
type Theme struct {
	Name string

	// Base colors
	Background string
	Surface    string
	SurfaceAlt string

	// Table colors
	SelectionBg   string
	SelectionText string

	Border      string
	BorderFocus string

	// Text colors
	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string
}

// Styles contains pre-built Lipgloss styles for the theme.
type Styles struct {
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style

	Header   lipgloss.Style
	Footer   lipgloss.Style
	Logo     lipgloss.Style
	Selected lipgloss.Style
	Pane     lipgloss.Style

	theme Theme
}

// Styles returns Lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	return Styles{
		Text:       lipgloss.NewStyle().Foreground(lipgloss.Color(t.Text)),
		MutedText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted)),
		FaintText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Faint)),
		AccentText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Accent)),
		SuccessText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Success)).
			Bold(true),
		WarningText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Warning)),
		DangerText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Danger)).
			Bold(true),

		Header: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)).
			Padding(0, 1),

		Footer: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Muted)).
			Padding(0, 1),

		Logo: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Warning)).
			Bold(true),

		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color(t.SelectionBg)).
			Foreground(lipgloss.Color(t.SelectionText)),

		Pane: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.Border)),

		theme: t,
	}
}

// StatusStyle returns a badge style for a store status.
func (s Styles) StatusStyle(status synq.Status) lipgloss.Style {
	color := s.theme.Muted
	switch status {
	case synq.StatusLoading:
		color = s.theme.Info
	case synq.StatusSuccess:
		color = s.theme.Success
	case synq.StatusError:
		color = s.theme.Danger
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.theme.Background)).
		Background(lipgloss.Color(color)).
		Padding(0, 1)
}

// Theme definitions

var themes = map[string]Theme{
	"Dracula": draculaTheme(),
	"Slate":   slateTheme(),
	"Light":   lightTheme(),
}

var themeOrder = []string{"Dracula", "Slate", "Light"}

// GetTheme returns a theme by name.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return draculaTheme()
}

// NextTheme returns the name of the theme after current, wrapping around.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

// ThemeNames returns available theme names.
func ThemeNames() []string {
	return themeOrder
}

func draculaTheme() Theme {
	// https://draculatheme.com/spec
	return Theme{
		Name: "Dracula",

		Background: "#191A21",
		Surface:    "#282A36",
		SurfaceAlt: "#21222C",

		SelectionBg:   "#44475A",
		SelectionText: "#F8F8F2",

		Border:      "#44475A",
		BorderFocus: "#BD93F9",

		Text:    "#F8F8F2",
		Muted:   "#6272A4",
		Faint:   "#44475A",
		Accent:  "#BD93F9",
		Success: "#50FA7B",
		Warning: "#FFB86C",
		Danger:  "#FF5555",
		Info:    "#8BE9FD",
	}
}

func slateTheme() Theme {
	// Tailwind slate/sky
	return Theme{
		Name: "Slate",

		Background: "#020617", // slate-950
		Surface:    "#0f172a", // slate-900
		SurfaceAlt: "#1e293b", // slate-800

		SelectionBg:   "#0284c7", // sky-600
		SelectionText: "#f8fafc", // slate-50

		Border:      "#334155", // slate-700
		BorderFocus: "#38bdf8", // sky-400

		Text:    "#f1f5f9",
		Muted:   "#94a3b8",
		Faint:   "#64748b",
		Accent:  "#38bdf8",
		Success: "#22c55e",
		Warning: "#f59e0b",
		Danger:  "#ef4444",
		Info:    "#06b6d4",
	}
}

func lightTheme() Theme {
	return Theme{
		Name: "Light",

		Background: "#ffffff",
		Surface:    "#f1f5f9",
		SurfaceAlt: "#e2e8f0",

		SelectionBg:   "#bfdbfe",
		SelectionText: "#0f172a",

		Border:      "#cbd5e1",
		BorderFocus: "#2563eb",

		Text:    "#0f172a",
		Muted:   "#475569",
		Faint:   "#94a3b8",
		Accent:  "#2563eb",
		Success: "#15803d",
		Warning: "#b45309",
		Danger:  "#b91c1c",
		Info:    "#0e7490",
	}
}
