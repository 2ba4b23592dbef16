// Package tui renders a live monitoring session with bubbletea.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/callguard/internal/guidance"
	"github.com/Veraticus/callguard/internal/model"
	"github.com/Veraticus/callguard/internal/tui/themes"
)

const (
	minMeterWidth = 20
	maxMeterWidth = 60
)

// Options configures a Model.
type Options struct {
	Guidance *guidance.Generator
	Now      func() time.Time
	Theme    *themes.Theme
	Locale   string
}

// Model is the live monitor view.
type Model struct {
	startedAt    time.Time
	err          error
	now          func() time.Time
	results      <-chan model.AnalysisResult
	start        tea.Cmd
	gen          *guidance.Generator
	current      *model.AnalysisResult
	theme        themes.Theme
	locale       string
	keymap       KeyMap
	help         help.Model
	meter        progress.Model
	spinner      spinner.Model
	updates      int
	width        int
	showEvidence bool
	quitting     bool
}

// NewModel creates the view. start begins monitoring and reports the first
// result; results delivers every later one.
func NewModel(results <-chan model.AnalysisResult, start tea.Cmd, opts Options) Model {
	if opts.Guidance == nil {
		opts.Guidance = guidance.MustDefault()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	theme := themes.Default
	if opts.Theme != nil {
		theme = *opts.Theme
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = theme.Subtitle

	return Model{
		results:   results,
		start:     start,
		gen:       opts.Guidance,
		locale:    opts.Locale,
		now:       opts.Now,
		startedAt: opts.Now(),
		theme:     theme,
		keymap:    DefaultKeyMap(),
		help:      help.New(),
		spinner:   s,
		meter: progress.New(
			progress.WithSolidFill(string(theme.Low)),
			progress.WithWidth(40),
		),
	}
}

// Init starts monitoring and the spinner.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, waitForResult(m.results), tickClock()}
	if m.start != nil {
		cmds = append(cmds, m.start)
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keymap.ToggleEvidence):
			m.showEvidence = !m.showEvidence
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.meter.Width = clamp(msg.Width-10, minMeterWidth, maxMeterWidth)
		m.help.Width = msg.Width
		return m, nil

	case startedMsg:
		return m, m.apply(msg.result)

	case resultMsg:
		return m, tea.Batch(m.apply(msg.result), waitForResult(m.results))

	case startFailedMsg:
		m.err = msg.err
		m.quitting = true
		return m, tea.Quit

	case closedMsg:
		m.quitting = true
		return m, tea.Quit

	case clockMsg:
		if m.quitting {
			return m, nil
		}
		return m, tickClock()

	case spinner.TickMsg:
		if m.current != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.meter.Update(msg)
		if meter, ok := pm.(progress.Model); ok {
			m.meter = meter
		}
		return m, cmd
	}

	return m, nil
}

// apply installs result and animates the meter toward its score.
func (m *Model) apply(result model.AnalysisResult) tea.Cmd {
	if m.current == nil || !m.current.Timestamp.Equal(result.Timestamp) {
		m.updates++
	}
	m.current = &result
	m.meter.FullColor = string(m.theme.RiskColor(result.RiskLevel))
	return m.meter.SetPercent(float64(result.RiskScore) / 100)
}

// Current returns the result on screen.
func (m Model) Current() (model.AnalysisResult, bool) {
	if m.current == nil {
		return model.AnalysisResult{}, false
	}
	return *m.current, true
}

// Err returns the error that ended the view, if any.
func (m Model) Err() error {
	return m.err
}

func waitForResult(results <-chan model.AnalysisResult) tea.Cmd {
	if results == nil {
		return nil
	}
	return func() tea.Msg {
		result, ok := <-results
		if !ok {
			return closedMsg{}
		}
		return resultMsg{result: result}
	}
}

func tickClock() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return clockMsg{} })
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
