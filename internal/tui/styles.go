package tui

import "github.com/charmbracelet/lipgloss"

var (
	jecnaBlue  = lipgloss.Color("#1F4E8C")
	jecnaRed   = lipgloss.Color("#E53935")
	mutedGray  = lipgloss.Color("#7A7F87")
	borderGray = lipgloss.Color("#27272A")
	paperWhite = lipgloss.Color("#F2F2F2")
)

// Styles groups the lipgloss styles used by the chat view.
type Styles struct {
	Header     lipgloss.Style
	UserLabel  lipgloss.Style
	BotLabel   lipgloss.Style
	Body       lipgloss.Style
	Pending    lipgloss.Style
	Suggestion lipgloss.Style
	Selected   lipgloss.Style
	Status     lipgloss.Style
	Notice     lipgloss.Style
	Help       lipgloss.Style
	Input      lipgloss.Style
}

// DefaultStyles returns the default palette.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(paperWhite).
			Background(jecnaBlue).
			Padding(0, 1),
		UserLabel:  lipgloss.NewStyle().Bold(true).Foreground(jecnaBlue),
		BotLabel:   lipgloss.NewStyle().Bold(true).Foreground(jecnaRed),
		Body:       lipgloss.NewStyle(),
		Pending:    lipgloss.NewStyle().Italic(true).Foreground(mutedGray),
		Suggestion: lipgloss.NewStyle().Foreground(mutedGray).PaddingLeft(2),
		Selected:   lipgloss.NewStyle().Bold(true).Foreground(jecnaBlue).PaddingLeft(2),
		Status:     lipgloss.NewStyle().Foreground(mutedGray),
		Notice:     lipgloss.NewStyle().Foreground(jecnaRed),
		Help:       lipgloss.NewStyle().Faint(true),
		Input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderGray).
			Padding(0, 1),
	}
}
