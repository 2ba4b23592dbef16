package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/Veraticus/callguard/internal/common"
	"github.com/Veraticus/callguard/internal/config"
	"github.com/Veraticus/callguard/internal/guidance"
	"github.com/Veraticus/callguard/internal/history"
	"github.com/Veraticus/callguard/internal/llm"
	"github.com/Veraticus/callguard/internal/metrics"
	"github.com/Veraticus/callguard/internal/monitor"
	"github.com/Veraticus/callguard/internal/service"
	"github.com/Veraticus/callguard/internal/simulate"
	"github.com/Veraticus/callguard/internal/source"
)

// app holds the collaborators shared by the commands.
type app struct {
	store      historyStore
	logger     *slog.Logger
	guidance   *guidance.Generator
	classifier *llm.Classifier
	// classifierErr explains why classifier is nil.
	classifierErr error
	settings      config.Settings
}

// historyStore is the history backend: SQLite, or memory when the database
// cannot be opened.
type historyStore interface {
	service.HistorySink
	service.HistoryReader
	ClearCallRecords(ctx context.Context) (int, error)
	Close() error
}

func newApp(ctx context.Context) (*app, error) {
	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, common.NewUserError("Invalid configuration", err)
	}

	logger := slog.Default()

	gen, err := guidance.New(guidance.WithOverlayFile(settings.Guidance))
	if err != nil {
		return nil, common.NewUserError("Failed to load guidance bundle", err)
	}

	a := &app{settings: settings, logger: logger, guidance: gen}

	if settings.LLM.HasAPIKey() {
		a.classifier, a.classifierErr = llm.NewClassifier(settings.LLM.ClientConfig(), gen, logger)
	} else {
		a.classifierErr = fmt.Errorf("%w: set %s or llm.api_key", common.ErrConfigurationMissing, config.APIKeyEnv(settings.LLM.Provider))
	}

	a.store, err = openStore(ctx, settings)
	if err != nil {
		common.LogError(logger, err, "call history unavailable, keeping calls in memory", "path", settings.Database.Path)
		a.store = memoryStore{history.NewMemory(settings.History.Limit)}
	}
	return a, nil
}

func (a *app) Close() {
	if a.classifier != nil {
		_ = a.classifier.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Warn("failed to close history store", "error", err)
		}
	}
}

// requireClassifier returns the remote classifier or a user-facing error.
func (a *app) requireClassifier() (*llm.Classifier, error) {
	if a.classifier != nil {
		return a.classifier, nil
	}
	return nil, common.NewUserError("Remote classifier is not configured", a.classifierErr)
}

// locale picks the flag value over the configured locale.
func (a *app) locale(flag string) string {
	if flag != "" {
		return flag
	}
	return a.settings.Locale
}

// serviceClassifier avoids handing a typed nil to interface fields.
func (a *app) serviceClassifier() service.Classifier {
	if a.classifier == nil {
		return nil
	}
	return a.classifier
}

// newController builds a controller for the named live source. feed may be
// nil for simulated monitoring.
func (a *app) newController(kind, locale string, feed service.TranscriptFeed) (*monitor.Controller, error) {
	if kind == "" {
		kind = a.settings.Monitor.Source
	}

	sim := simulate.New(a.guidance, simulate.WithLocale(locale))
	src, err := source.Select(kind, source.Options{
		Simulator:  sim,
		Classifier: a.serviceClassifier(),
		Feed:       feed,
		Logger:     a.logger,
		Locale:     locale,
	})
	if errors.Is(err, common.ErrConfigurationMissing) {
		a.logger.Warn("remote classifier not configured, monitoring with simulated signals", "reason", a.classifierErr)
		src, err = source.Select(source.KindSimulated, source.Options{Simulator: sim, Logger: a.logger, Locale: locale})
	}
	if err != nil {
		return nil, err
	}

	opts := []monitor.Option{
		monitor.WithSource(src),
		monitor.WithSimulator(sim),
		monitor.WithHistory(history.Tee(a.store, metrics.CallSink{})),
		monitor.WithGuidance(a.guidance),
		monitor.WithLogger(a.logger),
		monitor.WithLocale(locale),
		monitor.WithInterval(a.settings.Monitor.Interval),
		monitor.WithUploadDelay(a.settings.Monitor.UploadDelay),
		monitor.WithUploadDuration(a.settings.Monitor.UploadDuration),
	}
	if c := a.serviceClassifier(); c != nil {
		opts = append(opts, monitor.WithClassifier(c))
	}
	return monitor.New(opts...), nil
}

// memoryStore adapts history.Memory to historyStore.
type memoryStore struct {
	*history.Memory
}

func (m memoryStore) ClearCallRecords(context.Context) (int, error) {
	n := len(m.List())
	m.Clear()
	return n, nil
}

func (memoryStore) Close() error { return nil }

// isTerminal reports whether both ends of the session are a TTY.
func isTerminal(in io.Reader, out io.Writer) bool {
	inFile, ok := in.(*os.File)
	if !ok {
		return false
	}
	outFile, ok := out.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(inFile.Fd())) && term.IsTerminal(int(outFile.Fd()))
}
