package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/jecnabot/internal/chat"
	"github.com/ashureev/jecnabot/internal/domain"
	"github.com/ashureev/jecnabot/internal/transport"
)

type fakeSession struct {
	mu       sync.Mutex
	input    string
	sent     []string
	selected []int64
	logouts  int
	sendOK   bool
	state    chat.State
}

func (f *fakeSession) SetInput(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input = text
	return nil
}

func (f *fakeSession) SendInput() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.sendOK {
		return false, nil
	}
	f.sent = append(f.sent, f.input)
	f.input = ""
	return true, nil
}

func (f *fakeSession) SelectSuggestion(id int64, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = append(f.selected, id)
	return true, nil
}

func (f *fakeSession) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	return nil
}

func (f *fakeSession) Snapshot() chat.State { return f.state }

func newTestModel() (Model, *fakeSession) {
	f := &fakeSession{sendOK: true, state: chat.State{Conn: transport.StateOpen}}
	return New(f, NewBridge()), f
}

// step feeds msg to m and runs the resulting command once, feeding its
// message back.
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd == nil {
		return m
	}
	if out := cmd(); out != nil {
		if _, ok := out.(actionMsg); ok {
			next, _ = m.Update(out)
			m = next.(Model)
		}
	}
	return m
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return next.(Model)
}

func TestStateMessageRendersTranscript(t *testing.T) {
	m, _ := newTestModel()

	next, cmd := m.Update(stateMsg(chat.State{
		Conn:  transport.StateOpen,
		Email: "student@spsejecna.cz",
		Messages: []domain.Message{
			{ID: 1, Sender: domain.SenderBot, Text: "Welcome!"},
			{ID: 2, Sender: domain.SenderUser, Text: "hello"},
		},
		Suggestions: []domain.Suggestion{{ID: 7, Text: "Open days?"}},
	}))
	m = next.(Model)
	require.NotNil(t, cmd, "must keep listening for state")

	view := m.View()
	assert.Contains(t, view, "Welcome!")
	assert.Contains(t, view, "hello")
	assert.Contains(t, view, "[7] Open days?")
	assert.Contains(t, view, "student@spsejecna.cz")
}

func TestEnterSendsDraft(t *testing.T) {
	m, f := newTestModel()

	m = typeText(t, m, "where is the canteen")
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, []string{"where is the canteen"}, f.sent)
	assert.Empty(t, m.input.Value(), "draft cleared after a send")
}

func TestEnterKeepsDraftWhenNotSent(t *testing.T) {
	m, f := newTestModel()
	f.sendOK = false

	m = typeText(t, m, "again")
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Empty(t, f.sent)
	assert.Equal(t, "again", m.input.Value())
}

func TestEnterIsInertWhilePending(t *testing.T) {
	m, f := newTestModel()
	next, _ := m.Update(stateMsg(chat.State{Conn: transport.StateOpen, Pending: true}))
	m = next.(Model)

	m = typeText(t, m, "second")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Empty(t, f.sent)
	assert.Contains(t, m.View(), "Waiting for reply")
}

func TestSuggestionSelection(t *testing.T) {
	m, f := newTestModel()
	next, _ := m.Update(stateMsg(chat.State{
		Conn: transport.StateOpen,
		Suggestions: []domain.Suggestion{
			{ID: 1, Text: "Q1"},
			{ID: 5, Text: "What is X?"},
		},
	}))
	m = next.(Model)

	m = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 1, m.cursor)
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, []int64{5}, f.selected)
	assert.Empty(t, f.sent)
	assert.Equal(t, -1, m.cursor)
}

func TestCursorWrapsBackwards(t *testing.T) {
	m, _ := newTestModel()
	next, _ := m.Update(stateMsg(chat.State{Suggestions: []domain.Suggestion{{ID: 1}, {ID: 2}, {ID: 3}}}))
	m = next.(Model)

	m = step(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 2, m.cursor)
	m = step(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 0, m.cursor)
}

func TestLogoutKey(t *testing.T) {
	m, f := newTestModel()

	step(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})

	assert.Equal(t, 1, f.logouts)
}

func TestLoginDirectiveQuits(t *testing.T) {
	m, _ := newTestModel()

	next, cmd := m.Update(directiveMsg(DirectiveLogin))
	m = next.(Model)

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.NavigatedToLogin())
}

func TestQuitKeys(t *testing.T) {
	m, _ := newTestModel()
	for _, key := range []tea.KeyType{tea.KeyCtrlC, tea.KeyEsc} {
		_, cmd := m.Update(tea.KeyMsg{Type: key})
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}
}

func TestActionErrorsAreShown(t *testing.T) {
	m, _ := newTestModel()

	next, _ := m.Update(actionMsg{kind: actionSend, err: errors.New("boom")})
	m = next.(Model)
	assert.Contains(t, m.View(), "boom")

	next, _ = m.Update(actionMsg{kind: actionSend, err: chat.ErrClosed})
	m = next.(Model)
	assert.NoError(t, m.Err())
}

func TestStatusLine(t *testing.T) {
	m, _ := newTestModel()
	for conn, want := range map[transport.State]string{
		transport.StateConnecting: "Connecting",
		transport.StateClosed:     "Disconnected",
		transport.StateErrored:    "Connection lost",
		transport.StateOpen:       "Connected",
	} {
		next, _ := m.Update(stateMsg(chat.State{Conn: conn}))
		assert.Contains(t, next.(Model).View(), want)
	}
}

func TestSuggestionSelectionIsInertWhilePending(t *testing.T) {
	m, f := newTestModel()
	next, _ := m.Update(stateMsg(chat.State{
		Conn:        transport.StateOpen,
		Pending:     true,
		Suggestions: []domain.Suggestion{{ID: 1, Text: "Q1"}},
	}))
	m = next.(Model)

	m = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Empty(t, f.selected)
}

func TestViewportShrinksForSuggestions(t *testing.T) {
	m, _ := newTestModel()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m = next.(Model)
	full := m.viewport.Height

	next, _ = m.Update(stateMsg(chat.State{
		Conn:        transport.StateOpen,
		Suggestions: []domain.Suggestion{{ID: 1, Text: "Q1"}, {ID: 2, Text: "Q2"}, {ID: 3, Text: "Q3"}},
	}))
	m = next.(Model)
	assert.Equal(t, full-3, m.viewport.Height)

	next, _ = m.Update(stateMsg(chat.State{Conn: transport.StateOpen}))
	m = next.(Model)
	assert.Equal(t, full, m.viewport.Height)
}
