package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sekhar08/livekit-memory-chat/internal/chat"
)

type focusField int

const (
	focusServer focusField = iota
	focusTokenURL
	focusCompose
	focusCount
)

// Messages exchanged between the chat model and the work it starts.
type (
	changedMsg struct{}

	connectResultMsg struct{ err error }

	sendResultMsg struct {
		text string
		err  error
	}

	promptRequestMsg struct{ reply chan<- promptReply }

	promptReply struct {
		token string
		ok    bool
	}
)

// tokenPrompt is the modal asking the operator to paste a token.
type tokenPrompt struct {
	input textinput.Model
	reply chan<- promptReply
}

// ChatModel is the bubbletea model of the chat screen. Every piece of
// conversation state lives in the view model; ChatModel only holds inputs
// and layout.
type ChatModel struct {
	ctx context.Context
	vm  *chat.ViewModel

	server   textinput.Model
	tokenURL textinput.Model
	compose  textinput.Model
	log      viewport.Model
	spinner  spinner.Model

	focus  focusField
	prompt *tokenPrompt
	alert  string

	width    int
	height   int
	ready    bool
	quitting bool
}

// NewChatModel builds the screen for vm. ctx bounds the work the screen
// starts.
func NewChatModel(ctx context.Context, vm *chat.ViewModel) *ChatModel {
	server := textinput.New()
	server.Placeholder = "wss://your-project.livekit.cloud"
	server.SetValue(vm.ServerURL())
	server.Focus()

	tokenURL := textinput.New()
	tokenURL.Placeholder = "http://localhost:8000/token (empty: paste a token)"
	tokenURL.SetValue(vm.TokenURL())

	compose := textinput.New()
	compose.Placeholder = "Type a message"
	compose.CharLimit = 4096

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &ChatModel{
		ctx:      ctx,
		vm:       vm,
		server:   server,
		tokenURL: tokenURL,
		compose:  compose,
		log:      viewport.New(80, 10),
		spinner:  s,
		width:    80,
		height:   24,
	}
}

func (m *ChatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m *ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.refreshLog()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case changedMsg:
		m.refreshLog()
		return m, nil

	case connectResultMsg:
		if m.prompt != nil {
			m.closePrompt(promptReply{})
		}
		switch {
		case errors.Is(msg.err, chat.ErrConnectAbandoned):
		case msg.err != nil:
			m.alert = "Connect failed: " + msg.err.Error()
		default:
			m.setFocus(focusCompose)
		}
		m.refreshLog()
		return m, nil

	case sendResultMsg:
		if msg.err != nil {
			m.alert = "Send failed: " + msg.err.Error()
		} else if m.compose.Value() == msg.text {
			m.compose.Reset()
		}
		m.refreshLog()
		return m, nil

	case promptRequestMsg:
		input := textinput.New()
		input.Placeholder = "eyJhbGciOi..."
		input.EchoMode = textinput.EchoPassword
		input.Width = 50
		input.Focus()
		m.prompt = &tokenPrompt{input: input, reply: msg.reply}
		return m, textinput.Blink

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *ChatModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		if m.prompt != nil {
			m.closePrompt(promptReply{})
		}
		m.quitting = true
		return m, tea.Sequence(m.disconnect(), tea.Quit)
	}

	if m.alert != "" {
		m.alert = ""
		return m, nil
	}

	if m.prompt != nil {
		switch msg.String() {
		case "enter":
			if v := strings.TrimSpace(m.prompt.input.Value()); v != "" {
				m.closePrompt(promptReply{token: v, ok: true})
			}
			return m, nil
		case "esc":
			m.closePrompt(promptReply{})
			return m, nil
		}
		var cmd tea.Cmd
		m.prompt.input, cmd = m.prompt.input.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "tab":
		m.setFocus((m.focus + 1) % focusCount)
		return m, nil
	case "shift+tab":
		m.setFocus((m.focus + focusCount - 1) % focusCount)
		return m, nil
	case "ctrl+k":
		return m, m.connect()
	case "ctrl+d":
		return m, m.disconnect()
	case "enter":
		if m.focus == focusCompose {
			return m, m.send()
		}
		return m, m.connect()
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.log, cmd = m.log.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusServer:
		m.server, cmd = m.server.Update(msg)
	case focusTokenURL:
		m.tokenURL, cmd = m.tokenURL.Update(msg)
	case focusCompose:
		m.compose, cmd = m.compose.Update(msg)
	}
	return m, cmd
}

func (m *ChatModel) connect() tea.Cmd {
	if m.vm.State() != chat.Disconnected {
		return nil
	}
	m.vm.SetServerURL(strings.TrimSpace(m.server.Value()))
	m.vm.SetTokenURL(strings.TrimSpace(m.tokenURL.Value()))
	vm, ctx := m.vm, m.ctx
	return func() tea.Msg {
		return connectResultMsg{err: vm.Connect(ctx)}
	}
}

// disconnect releases the session off the event loop; Disconnect notifies
// the program, which must not happen from inside Update.
func (m *ChatModel) disconnect() tea.Cmd {
	vm := m.vm
	return func() tea.Msg {
		vm.Disconnect()
		return changedMsg{}
	}
}

func (m *ChatModel) send() tea.Cmd {
	text := m.compose.Value()
	if text == "" || m.vm.State() != chat.Connected {
		return nil
	}
	m.vm.SetCompose(text)
	vm, ctx := m.vm, m.ctx
	return func() tea.Msg {
		return sendResultMsg{text: text, err: vm.SendMessage(ctx)}
	}
}

func (m *ChatModel) closePrompt(r promptReply) {
	m.prompt.reply <- r
	m.prompt = nil
}

func (m *ChatModel) setFocus(f focusField) {
	m.focus = f
	inputs := []*textinput.Model{&m.server, &m.tokenURL, &m.compose}
	for i, in := range inputs {
		if focusField(i) == f {
			in.Focus()
		} else {
			in.Blur()
		}
	}
}

func (m *ChatModel) layout() {
	inner := max(m.width-4, 10)
	m.server.Width = inner - 14
	m.tokenURL.Width = inner - 14
	m.compose.Width = inner - 14
	m.log.Width = inner
	// header, two form rows, compose row, help line and the log border
	m.log.Height = max(m.height-9, 3)
	m.ready = true
}

func (m *ChatModel) refreshLog() {
	m.log.SetContent(RenderMessages(m.vm.Messages(), m.log.Width))
	m.log.GotoBottom()
}

// RenderMessages formats the log as "sender: text" lines.
func RenderMessages(msgs []chat.Message, width int) string {
	if len(msgs) == 0 {
		return MutedStyle.Render("No messages yet")
	}
	line := lipgloss.NewStyle()
	if width > 0 {
		line = line.Width(width)
	}
	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line.Render(renderMessage(msg)))
	}
	return b.String()
}

func renderMessage(msg chat.Message) string {
	switch msg.Sender {
	case chat.SenderSystem:
		return SystemLineStyle.Render(msg.Sender + ": " + msg.Text)
	case chat.SenderSelf:
		return SelfSenderStyle.Render(msg.Sender+":") + " " + msg.Text
	default:
		return IconPeer + " " + PeerSenderStyle.Render(msg.Sender+":") + " " + msg.Text
	}
}

func (m *ChatModel) View() string {
	if m.quitting {
		return ""
	}
	if m.alert != "" {
		return m.overlay(ErrorBoxStyle.Width(min(60, m.width-4)).Render(
			fmt.Sprintf("%s %s\n\n%s", IconError, m.alert, MutedStyle.Render("Press any key to dismiss"))))
	}
	if m.prompt != nil {
		return m.overlay(PromptBoxStyle.Render(
			fmt.Sprintf("%s Paste an access token\n\n%s\n\n%s", IconKey, m.prompt.input.View(),
				MutedStyle.Render("enter: connect • esc: cancel"))))
	}

	var b strings.Builder
	b.WriteString(m.header() + "\n")
	b.WriteString(m.field("Server", focusServer, m.server.View()) + "\n")
	b.WriteString(m.field("Token URL", focusTokenURL, m.tokenURL.View()) + "\n")
	b.WriteString(LogBoxStyle.Render(m.log.View()) + "\n")
	b.WriteString(m.field("Message", focusCompose, m.compose.View()) + "\n")
	b.WriteString(MutedStyle.Render("tab: focus • enter: connect/send • ctrl+k: connect • ctrl+d: disconnect • ctrl+c: quit"))
	return b.String()
}

func (m *ChatModel) header() string {
	title := HeaderStyle.Render(IconChat + " roomchat")
	var status string
	switch m.vm.State() {
	case chat.Connecting:
		status = m.spinner.View() + " " + WarningStyle.Render("connecting")
	case chat.Connected:
		status = SuccessStyle.Render("● connected")
	default:
		status = MutedStyle.Render("○ disconnected")
	}
	return title + "  " + status
}

func (m *ChatModel) field(label string, f focusField, view string) string {
	style := InputLabelStyle
	if m.focus == f {
		style = FocusedLabelStyle
	}
	return style.Render(label) + " " + view
}

func (m *ChatModel) overlay(box string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
