package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/callguard/internal/common"
	"github.com/Veraticus/callguard/internal/model"
)

// storedIndicator is the persisted form of a detected indicator.
type storedIndicator struct {
	ID         model.IndicatorID `json:"id"`
	Evidence   string            `json:"evidence,omitempty"`
	Confidence float64           `json:"confidence"`
}

const callRecordColumns = `id, started_at, duration_seconds, risk_level, risk_score, indicators, kind`

// Record saves a completed call and prunes the oldest beyond the retention limit.
func (s *SQLiteStorage) Record(ctx context.Context, record model.CallRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCallRecord(&record); err != nil {
		return err
	}

	indicators, err := encodeIndicators(record.Indicators)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO call_records (`+callRecordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.StartedAt.UTC(), record.DurationSeconds, string(record.RiskLevel),
		record.RiskScore, indicators, string(record.Kind))
	if err != nil {
		return fmt.Errorf("failed to save call record: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM call_records
		WHERE id NOT IN (
			SELECT id FROM call_records
			ORDER BY started_at DESC, rowid DESC
			LIMIT ?
		)
	`, s.retention)
	if err != nil {
		return fmt.Errorf("failed to prune call records: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit call record: %w", err)
	}
	return nil
}

// ListCallRecords returns up to limit records, newest first. A non-positive
// limit returns everything retained.
func (s *SQLiteStorage) ListCallRecords(ctx context.Context, limit int) ([]model.CallRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.retention {
		limit = s.retention
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+callRecordColumns+`
		FROM call_records
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query call records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]model.CallRecord, 0, limit)
	for rows.Next() {
		record, err := scanCallRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating call records: %w", err)
	}
	return records, nil
}

// GetCallRecord returns one record by id.
func (s *SQLiteStorage) GetCallRecord(ctx context.Context, id string) (*model.CallRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+callRecordColumns+`
		FROM call_records
		WHERE id = ?
	`, id)

	record, err := scanCallRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("call record %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ClearCallRecords deletes all records and reports how many were removed.
func (s *SQLiteStorage) ClearCallRecords(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM call_records`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear call records: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleared call records: %w", err)
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCallRecord(row rowScanner) (model.CallRecord, error) {
	var (
		record     model.CallRecord
		startedAt  time.Time
		level      string
		kind       string
		indicators string
	)
	err := row.Scan(&record.ID, &startedAt, &record.DurationSeconds, &level, &record.RiskScore, &indicators, &kind)
	if errors.Is(err, sql.ErrNoRows) {
		return record, err
	}
	if err != nil {
		return record, fmt.Errorf("failed to scan call record: %w", err)
	}

	record.StartedAt = startedAt
	record.RiskLevel = model.RiskLevel(level)
	record.Kind = model.CallKind(kind)
	record.Indicators, err = decodeIndicators(indicators)
	if err != nil {
		return record, fmt.Errorf("call record %s: %w", record.ID, err)
	}
	return record, nil
}

func encodeIndicators(detections []model.IndicatorDetection) (string, error) {
	stored := make([]storedIndicator, 0, len(detections))
	for _, d := range detections {
		if !d.Detected {
			continue
		}
		stored = append(stored, storedIndicator{ID: d.ID, Confidence: d.Confidence, Evidence: d.Evidence})
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("failed to marshal indicators: %w", err)
	}
	return string(data), nil
}

// decodeIndicators skips ids no longer in the catalog.
func decodeIndicators(data string) ([]model.IndicatorDetection, error) {
	var stored []storedIndicator
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal indicators: %w", err)
	}

	out := make([]model.IndicatorDetection, 0, len(stored))
	for _, si := range stored {
		def, ok := model.Lookup(si.ID)
		if !ok {
			continue
		}
		out = append(out, model.NewDetection(def, true, si.Confidence, si.Evidence))
	}
	return out, nil
}
