// Package tui is a terminal front panel for a simulated oven. It follows the
// bubbletea model: keypresses become oven events, oven updates arrive as
// messages and View renders the latest state.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sweeney/microwave/internal/oven"
	"github.com/sweeney/microwave/internal/panel"
)

const maxRecords = 8

// Controller accepts panel events. *oven.Oven satisfies it.
type Controller interface {
	Submit(ctx context.Context, ev panel.Event) error
}

// StateMsg carries a new oven state.
type StateMsg oven.State

// RecordMsg carries one actuator output record.
type RecordMsg string

// errMsg reports a failed submit.
type errMsg struct{ err error }

// Model is the bubbletea model for the panel.
type Model struct {
	ctl     Controller
	feed    *Feed
	state   oven.State
	records []string
	err     error
	width   int
}

// Option customizes a Model.
type Option func(*Model)

// WithInitialState seeds the view before the first update arrives.
func WithInitialState(s oven.State) Option {
	return func(m *Model) { m.state = s }
}

// New returns a model driving ctl and reading updates from feed. feed may be
// nil in tests that inject messages directly.
func New(ctl Controller, feed *Feed, opts ...Option) Model {
	m := Model{
		ctl:   ctl,
		feed:  feed,
		state: oven.State{Panel: panel.StateReady},
		width: 48,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init starts listening to the feed.
func (m Model) Init() tea.Cmd {
	if m.feed == nil {
		return nil
	}
	return tea.Batch(m.waitState(), m.waitRecord())
}

func (m Model) waitState() tea.Cmd {
	return func() tea.Msg { return StateMsg(<-m.feed.states) }
}

func (m Model) waitRecord() tea.Cmd {
	return func() tea.Msg { return RecordMsg(<-m.feed.records) }
}

var keyEvents = map[string]panel.Event{
	"p":     panel.EventPowerPressed,
	"t":     panel.EventTimePressed,
	"s":     panel.EventStartCancelPressed,
	" ":     panel.EventStartCancelPressed,
	"enter": panel.EventStartCancelPressed,
	"o":     panel.EventDoorOpened,
	"c":     panel.EventDoorClosed,
}

// Update handles keys and feed messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		if key == "q" || key == "ctrl+c" {
			return m, tea.Quit
		}
		if ev, ok := keyEvents[key]; ok {
			m.err = nil
			return m, m.submit(ev)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case StateMsg:
		m.state = oven.State(msg)
		if m.feed != nil {
			return m, m.waitState()
		}
		return m, nil

	case RecordMsg:
		m.records = append(m.records, string(msg))
		if len(m.records) > maxRecords {
			m.records = m.records[len(m.records)-maxRecords:]
		}
		if m.feed != nil {
			return m, m.waitRecord()
		}
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil
	}
	return m, nil
}

func (m Model) submit(ev panel.Event) tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		if err := ctl.Submit(context.Background(), ev); err != nil {
			return errMsg{err: fmt.Errorf("submit %s: %w", ev, err)}
		}
		return nil
	}
}

// State returns the state currently shown.
func (m Model) State() oven.State { return m.state }

// Records returns the recent output records shown.
func (m Model) Records() []string { return append([]string(nil), m.records...) }

// View renders the panel.
func (m Model) View() string {
	width := max(32, min(m.width, 72))

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF6B6B")).
		Render("MICROWAVE")

	text := m.state.Display
	if text == "" {
		text = "--:--"
	}
	display := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7CFC00")).
		Background(lipgloss.Color("#111111")).
		Padding(0, 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Render(text)

	label := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	value := lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	on := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFD700"))

	light := value.Render("off")
	if m.state.LightOn {
		light = on.Render("on")
	}
	tube := value.Render("off")
	if m.state.TubeOn {
		tube = on.Render(fmt.Sprintf("%d W", m.state.TubePower))
	}

	rows := []string{
		label.Render("state     ") + value.Render(string(m.state.Panel)),
		label.Render("selection ") + value.Render(formatSelection(m.state.Selection)),
		label.Render("light     ") + light,
		label.Render("tube      ") + tube,
	}
	if s := m.state.Session; s != nil {
		rows = append(rows, label.Render("session   ")+
			value.Render(fmt.Sprintf("%d W, %ds left of %ds", s.Power, s.Remaining, s.Duration)))
	}
	status := lipgloss.JoinVertical(lipgloss.Left, rows...)

	log := value.Render("no output yet")
	if len(m.records) > 0 {
		log = value.Render(strings.Join(m.records, "\n"))
	}
	logBox := lipgloss.NewStyle().
		Width(width).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(log)

	parts := []string{header, display, status, logBox}
	if m.err != nil {
		parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Render(m.err.Error()))
	}
	parts = append(parts, lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Render("[p] power  [t] time  [s] start/cancel  [o] open door  [c] close door  [q] quit"))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func formatSelection(sel panel.Selection) string {
	if sel.Power == 0 && sel.Seconds == 0 {
		return "none"
	}
	return fmt.Sprintf("%d W, %02d:%02d", sel.Power, sel.Seconds/60, sel.Seconds%60)
}
