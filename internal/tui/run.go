package tui

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the chat screen until the user quits or is sent to login.
func Run(session Session, bridge *Bridge, in io.Reader, out io.Writer) (Model, error) {
	p := tea.NewProgram(New(session, bridge),
		tea.WithAltScreen(),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	final, err := p.Run()
	if err != nil {
		return Model{}, fmt.Errorf("run chat screen: %w", err)
	}
	m, ok := final.(Model)
	if !ok {
		return Model{}, fmt.Errorf("run chat screen: unexpected model %T", final)
	}
	return m, nil
}
