// Package storage persists completed call records in SQLite.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/callguard/internal/model"
)

// Validation errors.
var (
	ErrNilContext        = errors.New("context cannot be nil")
	ErrEmptyString       = errors.New("string parameter cannot be empty")
	ErrInvalidCallRecord = errors.New("invalid call record")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateCallRecord validates a record before it is written.
func validateCallRecord(record *model.CallRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidCallRecord)
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("%w: ID is required", ErrInvalidCallRecord)
	}
	if record.StartedAt.IsZero() {
		return fmt.Errorf("%w: start time is required", ErrInvalidCallRecord)
	}
	if _, err := model.ParseRiskLevel(string(record.RiskLevel)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCallRecord, err)
	}
	if record.RiskScore < 0 || record.RiskScore > 100 {
		return fmt.Errorf("%w: risk score %d out of range", ErrInvalidCallRecord, record.RiskScore)
	}
	if record.DurationSeconds < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalidCallRecord)
	}
	switch record.Kind {
	case model.CallLive, model.CallUpload:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidCallRecord, record.Kind)
	}
	for _, ind := range record.Indicators {
		if _, ok := model.Lookup(ind.ID); !ok {
			return fmt.Errorf("%w: unknown indicator %q", ErrInvalidCallRecord, ind.ID)
		}
	}
	return nil
}
