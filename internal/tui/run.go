package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/callguard/internal/guidance"
	"github.com/Veraticus/callguard/internal/model"
)

// Monitor is the session the view drives.
type Monitor interface {
	Start(ctx context.Context) (model.AnalysisResult, error)
	Stop(ctx context.Context) (model.CallRecord, error)
	Subscribe(buffer int) (<-chan model.AnalysisResult, func())
}

// RunConfig configures Run.
type RunConfig struct {
	Monitor  Monitor
	Guidance *guidance.Generator
	Input    io.Reader
	Output   io.Writer
	Locale   string
}

// Run shows the live view until the user ends the call or ctx is canceled,
// then stops the session and returns its record.
func Run(ctx context.Context, cfg RunConfig) (model.CallRecord, error) {
	if cfg.Monitor == nil {
		return model.CallRecord{}, errors.New("monitor is required")
	}

	results, unsubscribe := cfg.Monitor.Subscribe(8)
	defer unsubscribe()

	start := func() tea.Msg {
		result, err := cfg.Monitor.Start(ctx)
		if err != nil {
			return startFailedMsg{err: err}
		}
		return startedMsg{result: result}
	}

	m := NewModel(results, start, Options{Guidance: cfg.Guidance, Locale: cfg.Locale})

	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}
	if cfg.Input != nil {
		opts = append(opts, tea.WithInput(cfg.Input))
	}
	if cfg.Output != nil {
		opts = append(opts, tea.WithOutput(cfg.Output))
	}

	final, runErr := tea.NewProgram(m, opts...).Run()
	if fm, ok := final.(Model); ok && fm.Err() != nil {
		return model.CallRecord{}, fmt.Errorf("failed to start monitoring: %w", fm.Err())
	}

	record, err := cfg.Monitor.Stop(context.WithoutCancel(ctx))
	if err != nil {
		return model.CallRecord{}, fmt.Errorf("failed to stop monitoring: %w", err)
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return record, fmt.Errorf("monitor view failed: %w", runErr)
	}
	return record, nil
}
