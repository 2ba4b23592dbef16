package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/callguard/internal/common"
	"github.com/Veraticus/callguard/internal/model"
)

// createTestStorage opens a migrated in-memory database.
func createTestStorage(t *testing.T, opts ...Option) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(MemoryPath, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

var baseTime = time.Date(2025, 5, 10, 18, 30, 0, 0, time.UTC)

func makeRecord(i int, level model.RiskLevel, score int) model.CallRecord {
	result := model.AnalysisResult{
		RiskLevel:  level,
		RiskScore:  score,
		Indicators: model.EmptyDetections(),
	}
	if level == model.RiskHigh {
		otp := model.CatalogIndex(model.IndicatorOTPRequest)
		money := model.CatalogIndex(model.IndicatorMoneyRequest)
		result.Indicators[otp] = model.NewDetection(result.Indicators[otp].IndicatorDefinition, true, 0.92, "share the code")
		result.Indicators[money] = model.NewDetection(result.Indicators[money].IndicatorDefinition, true, 0.81, "")
	}

	record := model.NewCallRecord(baseTime.Add(time.Duration(i)*time.Minute), 45*time.Second, result, model.CallLive)
	record.ID = fmt.Sprintf("call-%03d", i)
	return record
}

func TestMigrate(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	version, err := store.schemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)

	// Running again is a no-op.
	require.NoError(t, store.Migrate(ctx))

	var kindDefault string
	err = store.db.QueryRowContext(ctx,
		`SELECT dflt_value FROM pragma_table_info('call_records') WHERE name = 'kind'`).Scan(&kindDefault)
	require.NoError(t, err)
	assert.Equal(t, "'live'", kindDefault)
}

func TestMigrateUpgradesVersionOne(t *testing.T) {
	store, err := NewSQLiteStorage(MemoryPath)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	tx, err := store.db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, migrations[0].Up(tx))
	_, err = tx.Exec("PRAGMA user_version = 1")
	require.NoError(t, err)
	_, err = tx.Exec(`INSERT INTO call_records (id, started_at, duration_seconds, risk_level, risk_score, indicators)
		VALUES ('legacy', ?, 30, 'low', 10, '[]')`, baseTime)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	require.NoError(t, store.Migrate(ctx))

	record, err := store.GetCallRecord(ctx, "legacy")
	require.NoError(t, err)
	assert.Equal(t, model.CallLive, record.Kind)
	assert.Empty(t, record.Indicators)
}

func TestRecordAndGet(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	record := makeRecord(1, model.RiskHigh, 90)
	record.Kind = model.CallUpload
	require.NoError(t, store.Record(ctx, record))

	got, err := store.GetCallRecord(ctx, record.ID)
	require.NoError(t, err)

	assert.Equal(t, record.ID, got.ID)
	assert.True(t, record.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, 45, got.DurationSeconds)
	assert.Equal(t, model.RiskHigh, got.RiskLevel)
	assert.Equal(t, 90, got.RiskScore)
	assert.Equal(t, model.CallUpload, got.Kind)
	assert.Equal(t, record.Indicators, got.Indicators)

	_, err = store.GetCallRecord(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = store.Record(ctx, record)
	assert.Error(t, err, "duplicate ids are rejected")
}

func TestListCallRecordsNewestFirst(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	for _, i := range []int{2, 0, 3, 1} {
		require.NoError(t, store.Record(ctx, makeRecord(i, model.RiskLow, 10)))
	}

	all, err := store.ListCallRecords(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, want := range []string{"call-003", "call-002", "call-001", "call-000"} {
		assert.Equal(t, want, all[i].ID)
	}

	limited, err := store.ListCallRecords(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "call-003", limited[0].ID)
}

func TestRecordPrunesToRetention(t *testing.T) {
	store := createTestStorage(t, WithRetention(3))
	ctx := context.Background()

	for i := range 5 {
		require.NoError(t, store.Record(ctx, makeRecord(i, model.RiskMedium, 55)))
	}

	records, err := store.ListCallRecords(ctx, 100)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "call-004", records[0].ID)
	assert.Equal(t, "call-002", records[2].ID)

	_, err = store.GetCallRecord(ctx, "call-000")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestClearCallRecords(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	for i := range 3 {
		require.NoError(t, store.Record(ctx, makeRecord(i, model.RiskLow, 0)))
	}

	n, err := store.ClearCallRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	records, err := store.ListCallRecords(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRecordValidation(t *testing.T) {
	store := createTestStorage(t)

	valid := makeRecord(1, model.RiskLow, 5)

	tests := []struct {
		mutate func(*model.CallRecord)
		name   string
	}{
		{name: "missing id", mutate: func(r *model.CallRecord) { r.ID = " " }},
		{name: "zero start", mutate: func(r *model.CallRecord) { r.StartedAt = time.Time{} }},
		{name: "unknown level", mutate: func(r *model.CallRecord) { r.RiskLevel = "critical" }},
		{name: "score too high", mutate: func(r *model.CallRecord) { r.RiskScore = 101 }},
		{name: "negative duration", mutate: func(r *model.CallRecord) { r.DurationSeconds = -1 }},
		{name: "unknown kind", mutate: func(r *model.CallRecord) { r.Kind = "voicemail" }},
		{name: "unknown indicator", mutate: func(r *model.CallRecord) {
			r.Indicators = []model.IndicatorDetection{{IndicatorDefinition: model.IndicatorDefinition{ID: "lottery"}, Detected: true}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := valid
			tt.mutate(&record)
			err := store.Record(context.Background(), record)
			assert.ErrorIs(t, err, ErrInvalidCallRecord)
		})
	}

	//nolint:staticcheck // nil context is the case under test
	assert.ErrorIs(t, store.Record(nil, valid), ErrNilContext)
	_, err := store.GetCallRecord(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestNewSQLiteStorageOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")

	store, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	require.NoError(t, store.Record(context.Background(), makeRecord(1, model.RiskLow, 1)))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	require.NoError(t, reopened.Migrate(context.Background()))

	records, err := reopened.ListCallRecords(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, path, reopened.Path())

	_, err = NewSQLiteStorage("  ")
	assert.ErrorIs(t, err, ErrEmptyString)
}
