package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.bytecodealliance.org/wit"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	ledOnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	ledOffStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555"))

	logStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const (
	refreshInterval = 100 * time.Millisecond
	logLines        = 12
)

type interactiveModel struct {
	ctx     context.Context
	con     *console
	ring    *logRing
	err     error
	result  string
	leds    []bool
	logs    []string
	history []string
	input   textinput.Model
}

type tickMsg time.Time

type doneMsg struct{}

func newInteractiveModel(ctx context.Context, con *console, ring *logRing) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "press 0"
	ti.Prompt = "> "
	ti.Width = 60
	ti.Focus()
	return &interactiveModel{ctx: ctx, con: con, ring: ring, input: ti}
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tick(), m.waitDone)
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *interactiveModel) waitDone() tea.Msg {
	<-m.ctx.Done()
	return doneMsg{}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "enter":
			line := m.input.Value()
			m.input.Reset()
			if strings.TrimSpace(line) != "" {
				m.history = append(m.history, line)
			}
			out, quit, err := m.con.Execute(line)
			if quit {
				return m, tea.Quit
			}
			m.result, m.err = out, err
			m.refresh()
			return m, nil

		case "up":
			if n := len(m.history); n > 0 {
				m.input.SetValue(m.history[n-1])
				m.input.CursorEnd()
			}
			return m, nil
		}

	case tickMsg:
		m.refresh()
		return m, tick()

	case doneMsg:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) refresh() {
	m.leds = m.con.board.LEDStates()
	m.logs = m.ring.Tail(logLines)
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("firmlet"))
	b.WriteString(" ")
	b.WriteString(m.con.applet)
	b.WriteString("\n\n")

	b.WriteString("LEDs  ")
	b.WriteString(renderLEDs(m.leds, ledOnStyle.Render("●"), ledOffStyle.Render("○")))
	b.WriteString("\n\n")

	for _, line := range m.logs {
		b.WriteString(logStyle.Render(line))
		b.WriteString("\n")
	}
	for i := len(m.logs); i < logLines; i++ {
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	} else {
		b.WriteString(resultStyle.Render(m.result))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render(consoleHelp + " • ↑ last command • esc quit"))
	return b.String()
}

func witTypeStr(t wit.Type) string {
	switch v := t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if v.Name != nil {
			return *v.Name
		}
		return "typedef"
	default:
		return fmt.Sprintf("%T", t)
	}
}

func runInteractive(ctx context.Context, con *console, ring *logRing) error {
	p := tea.NewProgram(newInteractiveModel(ctx, con, ring), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
