package cli

import "github.com/charmbracelet/lipgloss"

// Theme defines the terminal color scheme.
type Theme struct {
	User  lipgloss.Color // user speech
	Model lipgloss.Color // model speech
	Dim   lipgloss.Color // status and help text
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	User:  lipgloss.Color("#00ff9f"),
	Model: lipgloss.Color("#58a6ff"),
	Dim:   lipgloss.Color("#6e7681"),
}

// Styles holds transcript rendering styles derived from a theme.
type Styles struct {
	UserTag  lipgloss.Style
	ModelTag lipgloss.Style
	Partial  lipgloss.Style
	Status   lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		UserTag:  lipgloss.NewStyle().Bold(true).Foreground(t.User),
		ModelTag: lipgloss.NewStyle().Bold(true).Foreground(t.Model),
		Partial:  lipgloss.NewStyle().Italic(true).Foreground(t.Dim),
		Status:   lipgloss.NewStyle().Foreground(t.Dim),
	}
}
