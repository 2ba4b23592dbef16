// Package service defines the interfaces shared between the engine and its collaborators.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/callguard/internal/model"
)

// Classifier turns a transcript into an analysis result. Implementations
// return common.ErrInvalidInput for an empty transcript and absorb every
// other failure into a fallback result.
type Classifier interface {
	Classify(ctx context.Context, transcript, locale string) (model.AnalysisResult, error)
}

// HistorySink receives completed call records. Implementations own display
// and retention.
type HistorySink interface {
	Record(ctx context.Context, record model.CallRecord) error
}

// HistoryReader lists stored call records, newest first.
type HistoryReader interface {
	ListCallRecords(ctx context.Context, limit int) ([]model.CallRecord, error)
}

// TranscriptFeed supplies the latest transcript window of a live call.
// The boolean is false while nothing has been heard yet.
type TranscriptFeed interface {
	Transcript(ctx context.Context) (string, bool)
}

// Transcriber turns an opaque audio unit into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// RetryOptions configures retry behavior for remote calls.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
