// Package tui is the terminal presentation layer for a collaboration
// session. It renders View snapshots from the session core and translates
// keystrokes into intents; no collaboration state lives here.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/coderoom/coderoom/internal/session"
)

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	typingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178")).
			Italic(true)

	senderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	outputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

type focusArea int

const (
	focusEditor focusArea = iota
	focusChat
)

type viewMsg session.View

type viewsClosed struct{}

// Model drives the whole client UI off session View snapshots.
type Model struct {
	sess   *session.Session
	views  <-chan session.View
	cancel func()

	view  session.View
	focus focusArea

	login  textinput.Model
	joinID textinput.Model
	chat   textinput.Model
	editor textarea.Model

	joining bool // join-room input is open
	status  string
	width   int
}

func New(sess *session.Session) Model {
	login := textinput.New()
	login.Placeholder = "username"
	login.Focus()

	joinID := textinput.New()
	joinID.Placeholder = "room code"

	chat := textinput.New()
	chat.Placeholder = "message"

	editor := textarea.New()
	editor.Placeholder = "// start typing"

	views, cancel := sess.Subscribe()
	return Model{
		sess:   sess,
		views:  views,
		cancel: cancel,
		login:  login,
		joinID: joinID,
		chat:   chat,
		editor: editor,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForView())
}

func (m Model) waitForView() tea.Cmd {
	views := m.views
	return func() tea.Msg {
		v, ok := <-views
		if !ok {
			return viewsClosed{}
		}
		return viewMsg(v)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.editor.SetWidth(msg.Width - 4)
		return m, nil

	case viewMsg:
		prev := m.view
		m.view = session.View(msg)
		// Entering a room resets the room widgets.
		if prev.Phase != session.PhaseInRoom && m.view.Phase == session.PhaseInRoom {
			m.editor.SetValue(m.view.Code)
			m.editor.Focus()
			m.focus = focusEditor
		}
		// Remote overwrite: adopt it unless the local widget already holds
		// the same text (our own edit reflected back through the view).
		if m.view.Phase == session.PhaseInRoom && m.editor.Value() != m.view.Code {
			m.editor.SetValue(m.view.Code)
		}
		return m, m.waitForView()

	case viewsClosed:
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancel()
			return m, tea.Quit
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.view.Phase {
	case session.PhaseAnonymous:
		return m.updateLogin(msg)
	case session.PhaseBrowsing:
		return m.updateBrowsing(msg)
	case session.PhaseJoining, session.PhaseInRoom:
		return m.updateRoom(msg)
	}
	return m, nil
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter {
		if err := m.sess.Login(m.login.Value()); err != nil {
			m.status = err.Error()
		} else {
			m.status = ""
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.login, cmd = m.login.Update(msg)
	return m, cmd
}

func (m Model) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.joining {
		switch msg.Type {
		case tea.KeyEnter:
			if err := m.sess.JoinRoom(m.joinID.Value()); err != nil {
				m.status = err.Error()
			} else {
				m.status = ""
				m.joining = false
			}
			return m, nil
		case tea.KeyEsc:
			m.joining = false
			return m, nil
		}
		var cmd tea.Cmd
		m.joinID, cmd = m.joinID.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "c":
		if err := m.sess.CreateRoom(); err != nil {
			m.status = err.Error()
		}
	case "j":
		m.joining = true
		m.joinID.SetValue("")
		return m, m.joinID.Focus()
	case "q":
		m.cancel()
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateRoom(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyTab:
		if m.focus == focusEditor {
			m.focus = focusChat
			m.editor.Blur()
			return m, m.chat.Focus()
		}
		m.focus = focusEditor
		m.chat.Blur()
		return m, m.editor.Focus()

	case tea.KeyCtrlR:
		if err := m.sess.RunCode(); err != nil {
			m.status = err.Error()
		} else {
			m.status = ""
		}
		return m, nil

	case tea.KeyEsc:
		if err := m.sess.LeaveRoom(); err != nil {
			m.status = err.Error()
		}
		return m, nil
	}

	if m.focus == focusChat {
		if msg.Type == tea.KeyEnter {
			body := m.chat.Value()
			if err := m.sess.SendMessage(body); err != nil {
				m.status = err.Error()
			} else {
				m.status = ""
				m.chat.SetValue("")
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(msg)
		return m, cmd
	}

	before := m.editor.Value()
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	if after := m.editor.Value(); after != before {
		if err := m.sess.Edit(after); err != nil {
			m.status = err.Error()
		}
	}
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("coderoom"))
	b.WriteString("\n\n")

	switch m.view.Phase {
	case session.PhaseAnonymous:
		b.WriteString(sectionHeader.Render("Log in"))
		b.WriteString("\n")
		b.WriteString(m.login.View())
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("enter: log in · ctrl+c: quit"))

	case session.PhaseBrowsing:
		b.WriteString(fmt.Sprintf("Logged in as %s\n\n", senderStyle.Render(m.view.Username)))
		if m.joining {
			b.WriteString(sectionHeader.Render("Join a room"))
			b.WriteString("\n")
			b.WriteString(m.joinID.View())
			b.WriteString("\n")
			b.WriteString(hintStyle.Render("enter: join · esc: back"))
		} else {
			b.WriteString(hintStyle.Render("c: create room · j: join room · q: quit"))
		}

	case session.PhaseJoining:
		b.WriteString(dimStyle.Render(fmt.Sprintf("Joining room %s…", m.view.RoomID)))

	case session.PhaseInRoom:
		b.WriteString(m.roomView())
	}

	if m.view.Err != "" {
		b.WriteString("\n")
		b.WriteString(errStyle.Render(m.view.Err))
	}
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(errStyle.Render(m.status))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) roomView() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Room %s · %s\n",
		sectionHeader.Render(m.view.RoomID),
		dimStyle.Render(strings.Join(m.view.Participants, ", "))))

	if m.view.TypingBy != "" {
		b.WriteString(typingStyle.Render(fmt.Sprintf("%s is typing…", m.view.TypingBy)))
	}
	b.WriteString("\n")
	b.WriteString(m.editor.View())
	b.WriteString("\n\n")

	b.WriteString(sectionHeader.Render("Chat"))
	b.WriteString("\n")
	chat := m.view.Chat
	if len(chat) > 8 {
		chat = chat[len(chat)-8:]
	}
	for _, msg := range chat {
		b.WriteString(fmt.Sprintf("%s %s\n", senderStyle.Render(msg.Sender+":"), msg.Body))
	}
	b.WriteString(m.chat.View())
	b.WriteString("\n\n")

	if m.view.RunPending {
		b.WriteString(dimStyle.Render("running…"))
		b.WriteString("\n")
	} else if m.view.HasOutput {
		b.WriteString(sectionHeader.Render("Output"))
		b.WriteString("\n")
		b.WriteString(outputStyle.Render(m.view.RunOutput))
		b.WriteString("\n")
	}

	b.WriteString(hintStyle.Render("tab: editor/chat · ctrl+r: run · esc: leave · ctrl+c: quit"))
	return b.String()
}
