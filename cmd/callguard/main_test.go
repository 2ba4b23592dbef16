package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/callguard/internal/common"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("LOVABLE_API_KEY", "")
	t.Setenv("CALLGUARD_DATABASE_PATH", filepath.Join(dir, "history.db"))
	t.Setenv("CALLGUARD_MONITOR_UPLOAD_DELAY", "0s")
	return dir
}

func TestVersionCommand(t *testing.T) {
	isolate(t)

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "callguard dev")
}

func TestGuidanceCommand(t *testing.T) {
	isolate(t)

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{name: "high", args: []string{"guidance", "high"}, want: "HIGH RISK"},
		{name: "case insensitive", args: []string{"guidance", "Medium"}, want: "MEDIUM RISK"},
		{name: "unknown level", args: []string{"guidance", "extreme"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if tt.wantErr {
				var userErr *common.UserError
				assert.ErrorAs(t, err, &userErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestTipsCommand(t *testing.T) {
	isolate(t)

	out, err := execute(t, "tips", "--locale", "en")
	require.NoError(t, err)
	assert.Contains(t, out, "Emergency Contacts")
}

func TestAnalyzeCommandErrors(t *testing.T) {
	isolate(t)

	_, err := execute(t, "analyze", "   ")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = execute(t, "analyze", "this is your bank calling")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrConfigurationMissing)
}

func TestUploadAndHistory(t *testing.T) {
	dir := isolate(t)

	transcript := filepath.Join(dir, "call.txt")
	require.NoError(t, os.WriteFile(transcript, []byte("hello, this is your bank"), 0o600))

	out, err := execute(t, "history", "--json")
	require.NoError(t, err)
	var records []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	assert.Empty(t, records)

	out, err = execute(t, "upload", "--transcript-file", transcript, "--duration", "45s", "--json")
	require.NoError(t, err)
	var uploaded struct {
		Record map[string]any `json:"record"`
		Result map[string]any `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &uploaded))
	assert.Equal(t, "upload", uploaded.Record["kind"])
	assert.Equal(t, float64(45), uploaded.Record["durationSeconds"])
	assert.Equal(t, "simulated", uploaded.Result["source"])

	out, err = execute(t, "history", "--json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, uploaded.Record["id"], records[0]["id"])

	_, err = execute(t, "upload", "--transcript-file=", "--duration=0s", "--json")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
