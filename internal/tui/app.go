// Package tui is a terminal rendering of the conversation scene.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ourhouse/backend/internal/conversation"
	"github.com/ourhouse/backend/internal/model/persona"
)

// historyLines 画面上保留的历史行数。
const historyLines = 8

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	speakerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	lineStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Config selects the participants and session options.
type Config struct {
	First, Second string
	Options       []conversation.Option
}

type stateMsg conversation.State

type actionDoneMsg struct{ err error }

type model struct {
	ctx      context.Context
	session  *conversation.Session
	personas conversation.Resolver
	first    string
	second   string

	state   conversation.State
	input   textinput.Model
	spinner spinner.Model
	keys    keyMap
	help    help.Model
	width   int
}

// Run mounts a session for the two participants and blocks until the user leaves.
func Run(ctx context.Context, client conversation.DialogueService, personas conversation.Resolver, cfg Config) error {
	var p *tea.Program
	opts := append([]conversation.Option{}, cfg.Options...)
	opts = append(opts, conversation.WithOnChange(func(st conversation.State) {
		p.Send(stateMsg(st))
	}))

	session := conversation.New(client, personas, opts...)
	defer session.Close()

	m := newModel(ctx, session, personas, cfg.First, cfg.Second)
	p = tea.NewProgram(m, tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func newModel(ctx context.Context, session *conversation.Session, personas conversation.Resolver, first, second string) model {
	input := textinput.New()
	input.Placeholder = "하고 싶은 말을 입력하세요"
	input.CharLimit = 200

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return model{
		ctx:      ctx,
		session:  session,
		personas: personas,
		first:    first,
		second:   second,
		state:    session.State(),
		input:    input,
		spinner:  spin,
		keys:     defaultKeyMap,
		help:     help.New(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.initializeCmd(), m.spinner.Tick)
}

func (m model) initializeCmd() tea.Cmd {
	session, ctx, first, second := m.session, m.ctx, m.first, m.second
	return func() tea.Msg {
		return actionDoneMsg{err: session.Initialize(ctx, first, second)}
	}
}

func (m model) advanceCmd(text *string) tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		return actionDoneMsg{err: session.Advance(ctx, text)}
	}
}

func (m model) retryCmd() tea.Cmd {
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		return actionDoneMsg{err: session.Reinitialize(ctx)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case stateMsg:
		m.state = conversation.State(msg)
		if m.state.Input == conversation.InputText {
			return m, m.input.Focus()
		}
		m.input.Blur()
		return m, nil

	case actionDoneMsg:
		// failures are already part of the state snapshot
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.session.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Retry):
			return m, m.retryCmd()
		case key.Matches(msg, m.keys.Advance):
			if m.state.Input == conversation.InputText && m.input.Value() != "" {
				text := m.input.Value()
				m.input.Reset()
				return m, m.advanceCmd(&text)
			}
			return m, m.advanceCmd(nil)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("%s  ·  %s", m.name(m.first), m.name(m.second))))
	b.WriteString("\n\n")

	log := m.state.Utterances
	newest := len(log) - 1
	start := 0
	if newest > historyLines {
		start = newest - historyLines
	}
	for i := start; i < newest; i++ {
		b.WriteString(dimStyle.Render(fmt.Sprintf("%s: %s", m.name(log[i].Speaker), log[i].Content)))
		b.WriteString("\n")
	}

	if newest >= 0 {
		text := m.state.Revealed
		if m.state.Typing {
			text += "▌"
		}
		b.WriteString(speakerStyle.Render(m.name(log[newest].Speaker)))
		b.WriteString("\n")
		b.WriteString(lineStyle.Render(text))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.state.Loading:
		b.WriteString(m.spinner.View() + " " + conversation.KindBusy.Message())
	case m.state.SessionID != "":
		b.WriteString(dimStyle.Render("다음 차례: " + m.name(m.state.Speaker)))
	}
	b.WriteString("\n")

	if m.state.ErrorText != "" {
		b.WriteString(errStyle.Render(m.state.ErrorText))
		b.WriteString("\n")
	}

	if m.state.Input == conversation.InputText {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	b.WriteString(footerStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m model) name(id string) string {
	if p, ok := m.personas.FindByID(id); ok && p.Name != "" {
		return p.Name
	}
	if persona.IsOperator(id) {
		return "나"
	}
	return id
}
