// Package tui is the terminal chat screen. It renders the conversation
// owned by a chat.Manager and turns key presses into manager calls.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/RichardoC/textwriter/internal/chat"
	"github.com/RichardoC/textwriter/internal/models"
)

const (
	title    = "Text writer"
	subtitle = "Healthy eating tips"

	inputHeight = 3
	chromeLines = 4 // header, blank line, status line, spacing
)

type changedMsg struct{}

type submitDoneMsg struct {
	err error
}

type keyMap struct {
	Send       key.Binding
	Prev       key.Binding
	Next       key.Binding
	Like       key.Binding
	Copy       key.Binding
	Regenerate key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Send:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Prev:       key.NewBinding(key.WithKeys("ctrl+up"), key.WithHelp("ctrl+↑", "prev reply")),
		Next:       key.NewBinding(key.WithKeys("ctrl+down"), key.WithHelp("ctrl+↓", "next reply")),
		Like:       key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "like")),
		Copy:       key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy")),
		Regenerate: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "retry")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	}
}

type Option func(*Model)

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) { m.writeClipboard = write }
}

type Model struct {
	ctx            context.Context
	manager        *chat.Manager
	updates        <-chan struct{}
	unsubscribe    func()
	writeClipboard func(string) error

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	keys     keyMap

	selectedID string // "" follows the latest bot reply
	status     string
	width      int
}

func New(ctx context.Context, manager *chat.Manager, opts ...Option) Model {
	ta := textarea.New()
	ta.Placeholder = "Send message..."
	ta.Focus()
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetHeight(inputHeight)
	ta.SetWidth(80)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = TypingStyle

	updates, unsubscribe := manager.Subscribe()

	m := Model{
		ctx:            ctx,
		manager:        manager,
		updates:        updates,
		unsubscribe:    unsubscribe,
		writeClipboard: clipboard.WriteAll,
		viewport:       viewport.New(80, 20),
		textarea:       ta,
		spinner:        s,
		keys:           defaultKeyMap(),
		width:          80,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, waitForChange(m.updates))
}

func waitForChange(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-updates
		return changedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-inputHeight-chromeLines, 1)
		m.textarea.SetWidth(msg.Width)
		m.refresh()
		return m, nil

	case changedMsg:
		m.refresh()
		return m, waitForChange(m.updates)

	case submitDoneMsg:
		switch {
		case errors.Is(msg.err, chat.ErrBusy):
			m.status = "Still waiting for the previous reply"
		case msg.err != nil && !errors.Is(msg.err, chat.ErrEmptyPrompt):
			m.status = msg.err.Error()
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.manager.Busy() {
			m.refresh()
		}
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.unsubscribe()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Send):
		text := m.textarea.Value()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		if m.manager.Busy() {
			m.status = "Still waiting for the previous reply"
			return m, nil
		}
		m.textarea.Reset()
		m.selectedID = ""
		m.status = ""
		return m, m.submit(text)

	case key.Matches(msg, m.keys.Prev):
		m.moveSelection(-1)
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Next):
		m.moveSelection(1)
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Like):
		if id := m.targetID(); id != "" {
			if _, err := m.manager.ToggleLike(id); err != nil {
				m.status = err.Error()
			}
		}
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		m.copySelected()
		return m, nil

	case key.Matches(msg, m.keys.Regenerate):
		id := m.targetID()
		if id == "" {
			return m, nil
		}
		m.selectedID = ""
		return m, m.regenerate(id)
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m Model) submit(text string) tea.Cmd {
	ctx, manager := m.ctx, m.manager
	return func() tea.Msg {
		_, err := manager.Submit(ctx, text)
		return submitDoneMsg{err: err}
	}
}

func (m Model) regenerate(id string) tea.Cmd {
	ctx, manager := m.ctx, m.manager
	return func() tea.Msg {
		_, err := manager.Regenerate(ctx, id)
		return submitDoneMsg{err: err}
	}
}

func (m *Model) copySelected() {
	id := m.targetID()
	if id == "" {
		return
	}
	text, err := m.manager.CopyText(id)
	if err != nil {
		m.status = err.Error()
		return
	}
	if err := m.writeClipboard(text); err != nil {
		m.status = "Copy failed: " + err.Error()
		return
	}
	m.status = "Copied to clipboard"
}

// targetID is the selected bot reply, or the latest one.
func (m Model) targetID() string {
	if m.selectedID != "" {
		return m.selectedID
	}
	ids := botIDs(m.manager.Messages())
	if len(ids) == 0 {
		return ""
	}
	return ids[len(ids)-1]
}

func (m *Model) moveSelection(delta int) {
	ids := botIDs(m.manager.Messages())
	if len(ids) == 0 {
		return
	}

	pos := len(ids) - 1
	for i, id := range ids {
		if id == m.targetID() {
			pos = i
			break
		}
	}
	pos = min(max(pos+delta, 0), len(ids)-1)

	if pos == len(ids)-1 {
		m.selectedID = ""
		return
	}
	m.selectedID = ids[pos]
}

func botIDs(msgs []models.Message) []string {
	var ids []string
	for _, msg := range msgs {
		if msg.Sender == models.SenderBot {
			ids = append(ids, msg.ID)
		}
	}
	return ids
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderMessages())
	if m.selectedID == "" {
		m.viewport.GotoBottom()
	}
}

func (m Model) renderMessages() string {
	msgs := m.manager.Messages()
	if len(msgs) == 0 {
		return DimStyle.Render("Ask me anything about healthy eating.")
	}

	target := m.targetID()
	body := lipgloss.NewStyle().Width(max(m.width-2, 10))
	userBody := body.Align(lipgloss.Right)

	var b strings.Builder
	for _, msg := range msgs {
		style := body
		if msg.Sender == models.SenderUser {
			style = userBody
		}
		b.WriteString(style.Render(m.renderHeader(msg, msg.ID == target)))
		b.WriteString("\n")
		b.WriteString(style.Render(m.renderText(msg)))
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderHeader(msg models.Message, selected bool) string {
	if msg.Sender == models.SenderUser {
		return UserStyle.Render("You") + DimStyle.Render(" · "+msg.Clock())
	}

	marker := "  "
	if selected && msg.Status.Terminal() {
		marker = SelectedStyle.Render("▸ ")
	}
	like := DimStyle.Render(" ♡")
	if msg.Liked {
		like = LikeStyle.Render(" ♥")
	}
	if msg.Status == models.StatusPending {
		like = ""
	}
	return marker + BotStyle.Render(title) + DimStyle.Render(" · "+msg.Clock()) + like
}

func (m Model) renderText(msg models.Message) string {
	switch msg.Status {
	case models.StatusPending:
		return m.spinner.View() + " " + TypingStyle.Render(msg.Text)
	case models.StatusError:
		return ErrorStyle.Render(msg.Text)
	}
	if msg.Sender == models.SenderUser {
		return msg.Text
	}
	return BotStyle.Render(msg.Text)
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(title))
	b.WriteString(SubtitleStyle.Render("  " + subtitle))
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	status := m.status
	if status == "" {
		status = "enter send · ctrl+↑/↓ select · ctrl+l like · ctrl+y copy · ctrl+r retry · esc quit"
	}
	b.WriteString(DimStyle.Render(status))
	b.WriteString("\n")
	b.WriteString(m.textarea.View())
	return b.String()
}

// Run starts the screen and blocks until the user quits.
func Run(ctx context.Context, manager *chat.Manager, opts ...Option) error {
	p := tea.NewProgram(New(ctx, manager, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
