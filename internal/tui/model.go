// Package tui renders a chat session in the terminal with bubbletea.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ashureev/jecnabot/internal/chat"
	"github.com/ashureev/jecnabot/internal/domain"
	"github.com/ashureev/jecnabot/internal/transport"
)

const logoutTimeout = 5 * time.Second

// Session is the controller surface the UI drives.
type Session interface {
	SetInput(text string) error
	SendInput() (bool, error)
	SelectSuggestion(id int64, text string) (bool, error)
	Logout(ctx context.Context) error
	Snapshot() chat.State
}

type stateMsg chat.State

type directiveMsg Directive

type actionKind int

const (
	actionSend actionKind = iota
	actionSelect
	actionLogout
)

type actionMsg struct {
	kind actionKind
	sent bool
	err  error
}

// Model is the chat screen.
type Model struct {
	session Session
	bridge  *Bridge
	styles  Styles

	input    textinput.Model
	viewport viewport.Model
	state    chat.State
	cursor   int // selected suggestion, -1 for none

	width, height int
	err           error
	toLogin       bool
}

// New creates the chat screen for session, fed by bridge.
func New(session Session, bridge *Bridge) Model {
	in := textinput.New()
	in.Placeholder = "Type your message..."
	in.CharLimit = 2000
	in.Prompt = "> "
	in.Focus()

	m := Model{
		session:  session,
		bridge:   bridge,
		styles:   DefaultStyles(),
		input:    in,
		viewport: viewport.New(80, 20),
		state:    session.Snapshot(),
		cursor:   -1,
	}
	m.refreshTranscript()
	return m
}

// NavigatedToLogin reports whether the session ended with a login redirect.
func (m Model) NavigatedToLogin() bool { return m.toLogin }

// Err returns the last action error shown to the user.
func (m Model) Err() error { return m.err }

func waitForState(ch <-chan chat.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return stateMsg(s)
	}
}

func waitForDirective(ch <-chan Directive) tea.Cmd {
	return func() tea.Msg {
		d, ok := <-ch
		if !ok {
			return nil
		}
		return directiveMsg(d)
	}
}

// Init starts listening for controller callbacks.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForState(m.bridge.states), waitForDirective(m.bridge.directives))
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		prevSuggestions := len(m.state.Suggestions)
		m.state = chat.State(msg)
		if len(m.state.Suggestions) == 0 || m.cursor >= len(m.state.Suggestions) {
			m.cursor = -1
		}
		if m.height > 0 && len(m.state.Suggestions) != prevSuggestions {
			m.layout()
		} else {
			m.refreshTranscript()
		}
		return m, waitForState(m.bridge.states)

	case directiveMsg:
		if Directive(msg) == DirectiveLogin {
			m.toLogin = true
			return m, tea.Quit
		}
		return m, waitForDirective(m.bridge.directives)

	case actionMsg:
		m.err = nil
		if msg.err != nil && !errors.Is(msg.err, chat.ErrClosed) {
			m.err = msg.err
		}
		if msg.sent {
			m.input.Reset()
			m.cursor = -1
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(10, msg.Width-6)
		m.layout()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlO:
			return m, m.logoutCmd()
		case tea.KeyTab, tea.KeyDown:
			m.moveCursor(1)
			return m, nil
		case tea.KeyShiftTab, tea.KeyUp:
			m.moveCursor(-1)
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case tea.KeyEnter:
			return m, m.submit()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the draft, or the highlighted suggestion when the draft is
// blank. Both are inert while a reply is pending.
func (m Model) submit() tea.Cmd {
	if !m.state.CanSend() {
		return nil
	}
	text := m.input.Value()
	if strings.TrimSpace(text) == "" && m.cursor >= 0 && m.cursor < len(m.state.Suggestions) {
		s := m.state.Suggestions[m.cursor]
		session := m.session
		return func() tea.Msg {
			sent, err := session.SelectSuggestion(s.ID, s.Text)
			return actionMsg{kind: actionSelect, sent: sent, err: err}
		}
	}
	session := m.session
	return func() tea.Msg {
		if err := session.SetInput(text); err != nil {
			return actionMsg{kind: actionSend, err: err}
		}
		sent, err := session.SendInput()
		return actionMsg{kind: actionSend, sent: sent, err: err}
	}
}

func (m Model) logoutCmd() tea.Cmd {
	session := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
		defer cancel()
		return actionMsg{kind: actionLogout, err: session.Logout(ctx)}
	}
}

func (m *Model) moveCursor(delta int) {
	n := len(m.state.Suggestions)
	if n == 0 {
		m.cursor = -1
		return
	}
	switch {
	case m.cursor < 0 && delta > 0:
		m.cursor = 0
	case m.cursor < 0:
		m.cursor = n - 1
	default:
		m.cursor = (m.cursor + delta + n) % n
	}
}

func (m *Model) layout() {
	header := 1
	footer := 5 + len(m.state.Suggestions)
	h := m.height - header - footer
	if h < 3 {
		h = 3
	}
	m.viewport.Width = m.width
	m.viewport.Height = h
	m.refreshTranscript()
}

func (m *Model) refreshTranscript() {
	var b strings.Builder
	for i, msg := range m.state.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m Model) renderMessage(msg domain.Message) string {
	label := m.styles.BotLabel.Render("JečnáBot")
	if msg.Sender == domain.SenderUser {
		label = m.styles.UserLabel.Render("You")
	}
	body := m.styles.Body.Render(msg.Text)
	if msg.Pending {
		body = m.styles.Pending.Render(msg.Text)
	}
	return label + ": " + body
}

// View renders the screen.
func (m Model) View() string {
	var b strings.Builder

	title := "JečnáBot"
	if m.state.Email != "" {
		title += " · " + m.state.Email
	}
	b.WriteString(m.styles.Header.Render(title))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	for i, s := range m.state.Suggestions {
		line := fmt.Sprintf("[%d] %s", s.ID, s.Text)
		if i == m.cursor {
			b.WriteString(m.styles.Selected.Render("› " + line))
		} else {
			b.WriteString(m.styles.Suggestion.Render("  " + line))
		}
		b.WriteString("\n")
	}

	b.WriteString(m.styles.Status.Render(m.statusLine()))
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(m.styles.Notice.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	} else if m.state.Notice != "" {
		b.WriteString(m.styles.Notice.Render(m.state.Notice))
		b.WriteString("\n")
	}

	b.WriteString(m.styles.Input.Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.styles.Help.Render("enter send · tab/↑↓ pick suggestion · ctrl+o log out · esc quit"))
	return b.String()
}

func (m Model) statusLine() string {
	switch m.state.Conn {
	case transport.StateConnecting:
		return "Connecting..."
	case transport.StateClosed:
		return "Disconnected."
	case transport.StateErrored:
		return "Connection lost."
	}
	if m.state.Pending {
		return "Waiting for reply..."
	}
	return "Connected."
}
