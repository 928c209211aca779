// Package ui is the terminal chat client: a bubbletea program rendering the message
// store and driving the scroll-follow controller.
package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/go-go-golems/wizchat/pkg/scroll"
	"github.com/go-go-golems/wizchat/pkg/session"
	"github.com/go-go-golems/wizchat/pkg/store"
	"github.com/go-go-golems/wizchat/pkg/webchat"
)

var (
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	optionStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	captionStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("118"))
)

// Chat is the part of webchat.Client the UI drives.
type Chat interface {
	SendText(text string) error
	SendWizard(wizardID string) error
	SendImage(files []string) error
	Cancel(desc string) error
	DismissInteraction()
	ClearHistory()
	Reconnect(ctx context.Context) error
	Store() *store.Store
	State() session.ConnState
	Busy() bool
	Caption() string
	Degraded() bool
	Interactive() bool
}

var _ Chat = &webchat.Client{}

type sendResultMsg struct{ err error }

type noticeMsg string

type Model struct {
	chat   Chat
	bridge *Bridge
	scroll *scroll.Controller

	vp      *viewport.Model
	input   textinput.Model
	spinner spinner.Model

	width   int
	ready   bool
	notice  string
	choices []Choice
}

// New builds the model. The bridge must be registered as an observer on the client
// so events reach the program.
func New(chat Chat, bridge *Bridge, opts ...scroll.Option) Model {
	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	in := textinput.New()
	in.Placeholder = "Type a message, /help for commands"
	in.Prompt = "> "
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)

	return Model{
		chat:    chat,
		bridge:  bridge,
		scroll:  scroll.New(scrollViewport{vp: &vp}, opts...),
		vp:      &vp,
		input:   in,
		spinner: sp,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.bridge.wait())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.vp.Width = msg.Width
		m.vp.Height = max(3, msg.Height-4)
		m.input.Width = max(10, msg.Width-4)
		m.ready = true
		m.refresh()
		return m, nil

	case EventMsg:
		ev := webchat.Event(msg)
		if ev.Kind == webchat.EventStreamUpdated {
			// follow is decided against the content the user was looking at
			follow := m.scroll.OnStreamUpdate()
			m.refresh()
			if follow {
				m.vp.GotoBottom()
			}
		} else {
			m.refresh()
			webchat.ApplyToScroll(m.scroll, ev)
		}
		if ev.Kind == webchat.EventTransportFailure || (ev.Kind == webchat.EventDegraded && ev.Flag) {
			m.notice = "connection lost, /reconnect to try again"
		}
		return m, m.bridge.wait()

	case sendResultMsg:
		if msg.err != nil {
			m.notice = describeSendError(msg.err)
		}
		return m, nil

	case noticeMsg:
		m.notice = string(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		*m.vp, cmd = m.vp.Update(msg)
		if isWheel(msg) {
			m.scroll.OnUserScroll()
		}
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.chat.Busy() {
				return m, m.run(func() error { return m.chat.Cancel("user cancelled") })
			}
			m.chat.DismissInteraction()
			return m, nil
		case "ctrl+y":
			return m, m.copyLastReply()
		case "pgup", "pgdown", "up", "down", "ctrl+u", "ctrl+d":
			var cmd tea.Cmd
			*m.vp, cmd = m.vp.Update(msg)
			m.scroll.OnUserScroll()
			return m, cmd
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			m.notice = ""
			return m, m.submit(line)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func isWheel(msg tea.MouseMsg) bool {
	return msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown
}

// refresh re-renders the store into the viewport.
func (m *Model) refresh() {
	msgs := m.chat.Store().Snapshot()
	m.choices = nil
	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderEntry(msg))
		if msg.Type == store.TypeOption {
			m.choices = Choices(msg.Metadata)
		}
	}
	content := b.String()
	if m.width > 0 {
		content = lipgloss.NewStyle().Width(m.width).Render(content)
	}
	m.vp.SetContent(content)
}

func (m Model) renderEntry(msg store.Message) string {
	body := RenderMessage(msg)
	switch {
	case msg.Type == store.TypeError:
		return errorStyle.Render("error: ") + body
	case msg.Type == store.TypeOption:
		return assistantStyle.Render("assistant:") + "\n" + optionStyle.Render(body)
	case msg.Role == store.RoleUser:
		return userStyle.Render("you: ") + body
	default:
		return assistantStyle.Render("assistant: ") + body
	}
}

func (m Model) submit(line string) tea.Cmd {
	if line == "" {
		return nil
	}
	if strings.HasPrefix(line, "/") {
		return m.command(line)
	}
	if m.chat.Interactive() {
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(m.choices) {
			id := m.choices[n-1].ID
			return m.run(func() error { return m.chat.SendWizard(id) })
		}
	}
	return m.run(func() error { return m.chat.SendText(line) })
}

func (m Model) command(line string) tea.Cmd {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/cancel":
		return m.run(func() error { return m.chat.Cancel("user cancelled") })
	case "/clear":
		m.chat.ClearHistory()
		return nil
	case "/dismiss":
		m.chat.DismissInteraction()
		return nil
	case "/reconnect":
		return m.run(func() error { return m.chat.Reconnect(context.Background()) })
	case "/wizard":
		if len(fields) < 2 {
			return notice("usage: /wizard <id>")
		}
		return m.run(func() error { return m.chat.SendWizard(fields[1]) })
	case "/image":
		if len(fields) < 2 {
			return notice("usage: /image <file>...")
		}
		return m.run(func() error { return m.chat.SendImage(fields[1:]) })
	case "/help":
		return notice("/cancel /clear /dismiss /reconnect /wizard <id> /image <file>... · esc cancels · ctrl+y copies the last reply")
	default:
		return notice(fmt.Sprintf("unknown command %s", fields[0]))
	}
}

// run calls into the client off the UI goroutine.
func (m Model) run(fn func() error) tea.Cmd {
	return func() tea.Msg { return sendResultMsg{err: fn()} }
}

func notice(s string) tea.Cmd {
	return func() tea.Msg { return noticeMsg(s) }
}

func (m Model) copyLastReply() tea.Cmd {
	msgs := m.chat.Store().Snapshot()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == store.RoleAssistant && msgs[i].Type == store.TypeText {
			text := HTMLToText(msgs[i].Body)
			return func() tea.Msg {
				if err := clipboard.WriteAll(text); err != nil {
					return noticeMsg("copy failed: " + err.Error())
				}
				return noticeMsg("copied last reply")
			}
		}
	}
	return notice("nothing to copy")
}

func describeSendError(err error) string {
	switch {
	case errors.Is(err, webchat.ErrInteractive):
		return "pick an option (type its number) or press esc"
	case errors.Is(err, webchat.ErrUnavailable):
		return "chat unavailable, /reconnect to try again"
	case errors.Is(err, webchat.ErrEmptyMessage):
		return ""
	default:
		return err.Error()
	}
}

func (m Model) View() string {
	if !m.ready {
		return "connecting…"
	}
	status := m.chat.State().String()
	if m.chat.Degraded() {
		status = "unavailable"
	}
	line := statusStyle.Render(status)
	if m.chat.Busy() {
		line += " " + m.spinner.View()
	}
	if c := m.chat.Caption(); c != "" {
		line += " " + captionStyle.Render(c)
	}
	if m.notice != "" {
		line += "  " + statusStyle.Render(m.notice)
	}
	return m.vp.View() + "\n" + line + "\n" + m.input.View()
}
