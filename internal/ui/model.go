// Package ui provides the Bubbletea terminal meter for live input quality.
package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/okian/songlab/internal/domain/model"
	"github.com/okian/songlab/internal/domain/session"
)

// Model is the Bubbletea model for the live meter.
type Model struct {
	Device string
	State  session.State

	// PeakLevel is the loudest level seen this session.
	PeakLevel float64
	Ticks     int

	StartTime time.Time
	Duration  time.Duration // zero runs until the user quits
	Done      bool
	Err       error

	// Updates feeds StateMsg and DoneMsg values from the monitor.
	Updates <-chan tea.Msg

	Width  int
	Height int
}

// NewModel creates a meter model reading from updates.
func NewModel(device string, updates <-chan tea.Msg, duration time.Duration) Model {
	return Model{
		Device:    device,
		State:     session.State{Stage: session.StageIdle, Snapshot: model.NewQualitySnapshot()},
		StartTime: time.Now(),
		Duration:  duration,
		Updates:   updates,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForUpdate(m.Updates)}
	if m.Duration > 0 {
		cmds = append(cmds, tea.Tick(m.Duration, func(time.Time) tea.Msg { return deadlineMsg{} }))
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.Done = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case StateMsg:
		m.State = msg.State
		if msg.State.Stage == session.StageMonitoring {
			m.Ticks++
			m.PeakLevel = max(m.PeakLevel, msg.State.Snapshot.Level)
		}
		return m, waitForUpdate(m.Updates)

	case DoneMsg:
		m.Done = true
		m.Err = msg.Err
		return m, tea.Quit

	case deadlineMsg:
		m.Done = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the UI
func (m Model) View() string {
	if m.Done {
		return renderSummary(m)
	}
	return renderMeterView(m)
}

// Elapsed is how long the meter has been running.
func (m Model) Elapsed() time.Duration {
	return time.Since(m.StartTime)
}

// waitForUpdate creates a command that waits for the next monitor message.
// A closed channel ends the session.
func waitForUpdate(updates <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-updates
		if !ok {
			return DoneMsg{}
		}
		return msg
	}
}
