package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/metalagman/gauntlet/internal/arena"
	"github.com/metalagman/gauntlet/internal/model"
)

type competitionDoneMsg struct {
	rec model.CompetitionRecord
	err error
}

// spinnerModel shows a spinner until the competition finishes.
type spinnerModel struct {
	spinner  spinner.Model
	scenario model.Scenario
	started  time.Time
	done     bool
	result   competitionDoneMsg
	cancel   context.CancelFunc
}

func newSpinnerModel(s model.Scenario, cancel context.CancelFunc) spinnerModel {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = titleStyle
	return spinnerModel{spinner: sp, scenario: s, started: time.Now(), cancel: cancel}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.cancel()
		}
		return m, nil
	case competitionDoneMsg:
		m.done = true
		m.result = msg
		return m, tea.Quit
	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	elapsed := time.Since(m.started).Round(time.Second)
	return fmt.Sprintf("%s %s/%s: waiting for %s (%s)\n",
		m.spinner.View(), m.scenario.Domain, m.scenario.Complexity,
		strings.Join(m.scenario.Participants, ", "), elapsed)
}

// competeWithSpinner runs the competition while a spinner renders on stderr.
func competeWithSpinner(ctx context.Context, e *arena.Engine, s model.Scenario) (model.CompetitionRecord, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newSpinnerModel(s, cancel), tea.WithOutput(os.Stderr))
	go func() {
		rec, err := e.Compete(ctx, s)
		p.Send(competitionDoneMsg{rec: rec, err: err})
	}()
	final, err := p.Run()
	if err != nil {
		return model.CompetitionRecord{}, fmt.Errorf("run spinner: %w", err)
	}
	m, ok := final.(spinnerModel)
	if !ok || !m.done {
		return model.CompetitionRecord{}, fmt.Errorf("competition interrupted")
	}
	return m.result.rec, m.result.err
}
