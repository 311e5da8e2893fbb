package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// WatchConfig configures the interactive outlet view
type WatchConfig struct {
	Name    string // accessory name
	Addr    string // host:port of the accessory server
	Updates <-chan bool
	// Toggle requests a new outlet state. The displayed state only
	// changes when the server confirms it on Updates.
	Toggle func(on bool) error
}

type outletStateMsg bool

type streamClosedMsg struct{}

type toggleResultMsg struct{ err error }

// WatchModel is a Bubble Tea model that follows one outlet's On state
type WatchModel struct {
	config  WatchConfig
	spinner spinner.Model
	width   int

	known      bool
	on         bool
	pending    bool
	closed     bool
	events     int
	lastChange time.Time
	err        error
}

// NewWatchModel creates the watch model
func NewWatchModel(config WatchConfig) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(PrimaryColor)

	return WatchModel{
		config:  config,
		spinner: s,
		width:   GetTerminalWidth(),
	}
}

// Init implements tea.Model
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForState(m.config.Updates))
}

func waitForState(updates <-chan bool) tea.Cmd {
	return func() tea.Msg {
		on, ok := <-updates
		if !ok {
			return streamClosedMsg{}
		}
		return outletStateMsg(on)
	}
}

func (m WatchModel) toggle() tea.Cmd {
	target := !m.on
	fn := m.config.Toggle
	return func() tea.Msg {
		return toggleResultMsg{err: fn(target)}
	}
}

// Update implements tea.Model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case " ", "t", "enter":
			if !m.known || m.pending || m.closed || m.config.Toggle == nil {
				return m, nil
			}
			m.pending = true
			m.err = nil
			return m, m.toggle()
		}

	case outletStateMsg:
		m.known = true
		m.on = bool(msg)
		m.events++
		m.lastChange = time.Now()
		return m, waitForState(m.config.Updates)

	case streamClosedMsg:
		m.closed = true
		return m, tea.Quit

	case toggleResultMsg:
		m.pending = false
		m.err = msg.err
		return m, nil

	case tea.WindowSizeMsg:
		m.width = clampWidth(msg.Width)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model
func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(NewHeader("Outlet Watch", m.config.Name, []Field{
		{"Server", m.config.Addr},
	}).SetWidth(m.width).Render())
	b.WriteString("\n\n")

	switch {
	case !m.known:
		b.WriteString("  " + m.spinner.View() + " Waiting for outlet state")
	case m.on:
		b.WriteString("  " + OutletOnStyle.Render("ON"))
	default:
		b.WriteString("  " + OutletOffStyle.Render("OFF"))
	}

	if m.pending {
		b.WriteString("  " + m.spinner.View() + StepNoteStyle.Render(" switching"))
	}
	b.WriteString("\n\n")

	if m.known {
		b.WriteString(KeyHintStyle.Render(fmt.Sprintf("%d updates, last at %s",
			m.events, m.lastChange.Format("15:04:05"))))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString(ErrorMessageStyle.PaddingLeft(2).Render(FailureMarker + " " + m.err.Error()))
		b.WriteString("\n")
	}

	if m.closed {
		b.WriteString(ErrorMessageStyle.PaddingLeft(2).Render("Event stream closed"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(KeyHintStyle.Render("space/t toggle · q quit"))
	b.WriteString("\n")

	return b.String()
}

// On reports the last confirmed outlet state and whether one was seen
func (m WatchModel) On() (on, known bool) {
	return m.on, m.known
}

// Err returns the last toggle error
func (m WatchModel) Err() error {
	return m.err
}

// RunWatch runs the watch model until the user quits or the stream ends
func RunWatch(config WatchConfig, opts ...tea.ProgramOption) error {
	p := tea.NewProgram(NewWatchModel(config), opts...)
	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(WatchModel); ok && m.closed {
		return fmt.Errorf("event stream from %s closed", config.Addr)
	}
	return nil
}
