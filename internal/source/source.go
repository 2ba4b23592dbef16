// Package source provides the signal sources that feed the monitor: a local
// simulator and a remote transcript classifier.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Veraticus/callguard/internal/common"
	"github.com/Veraticus/callguard/internal/model"
	"github.com/Veraticus/callguard/internal/service"
	"github.com/Veraticus/callguard/internal/simulate"
)

// Kinds accepted by Select.
const (
	KindSimulated = "simulated"
	KindRemote    = "remote"
)

// Source produces the next analysis for a live call.
type Source interface {
	Next(ctx context.Context) (model.AnalysisResult, error)
}

// Simulated always manufactures a randomized result.
type Simulated struct {
	Simulator *simulate.Simulator
}

// Next implements Source.
func (s Simulated) Next(ctx context.Context) (model.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return model.AnalysisResult{}, err
	}
	return s.Simulator.Simulate(), nil
}

// RemoteTranscript classifies the latest transcript window. Until anything
// has been heard it defers to the simulator.
type RemoteTranscript struct {
	Feed       service.TranscriptFeed
	Classifier service.Classifier
	Fallback   *simulate.Simulator
	Logger     *slog.Logger
	Locale     string
}

// Next implements Source.
func (r RemoteTranscript) Next(ctx context.Context) (model.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return model.AnalysisResult{}, err
	}

	transcript, ok := r.Feed.Transcript(ctx)
	if !ok || strings.TrimSpace(transcript) == "" {
		if r.Logger != nil {
			r.Logger.Debug("no live transcript yet, simulating")
		}
		return r.Fallback.Simulate(), nil
	}

	result, err := r.Classifier.Classify(ctx, transcript, r.Locale)
	if err != nil {
		return model.AnalysisResult{}, fmt.Errorf("failed to classify live transcript: %w", err)
	}
	return result, nil
}

// Options carries the collaborators Select may need.
type Options struct {
	Simulator  *simulate.Simulator
	Classifier service.Classifier
	Feed       service.TranscriptFeed
	Logger     *slog.Logger
	Locale     string
}

// Select builds the source named by kind. An empty kind means simulated.
// Asking for a remote source without a classifier returns
// common.ErrConfigurationMissing.
func Select(kind string, opts Options) (Source, error) {
	if opts.Simulator == nil {
		opts.Simulator = simulate.New(nil, simulate.WithLocale(opts.Locale))
	}

	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindSimulated, "":
		return Simulated{Simulator: opts.Simulator}, nil
	case KindRemote:
		if opts.Classifier == nil {
			return nil, fmt.Errorf("%w: remote source needs a classifier API key", common.ErrConfigurationMissing)
		}
		feed := opts.Feed
		if feed == nil {
			feed = NewStaticFeed()
		}
		logger := opts.Logger
		if logger == nil {
			logger = slog.Default()
		}
		return RemoteTranscript{
			Feed:       feed,
			Classifier: opts.Classifier,
			Fallback:   opts.Simulator,
			Logger:     logger,
			Locale:     opts.Locale,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown monitor source %q", common.ErrInvalidConfig, kind)
	}
}

// StaticFeed holds the most recent transcript window.
type StaticFeed struct {
	transcript string
	mu         sync.RWMutex
}

// NewStaticFeed creates an empty feed.
func NewStaticFeed() *StaticFeed {
	return &StaticFeed{}
}

// Set replaces the current transcript window.
func (f *StaticFeed) Set(transcript string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcript = strings.TrimSpace(transcript)
}

// Append adds a line to the current window.
func (f *StaticFeed) Append(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transcript == "" {
		f.transcript = line
		return
	}
	f.transcript += "\n" + line
}

// Transcript implements service.TranscriptFeed.
func (f *StaticFeed) Transcript(_ context.Context) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.transcript, f.transcript != ""
}
