package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Veraticus/callguard/internal/config"
	"github.com/Veraticus/callguard/internal/storage"
)

// openStore opens the history database and runs migrations.
func openStore(ctx context.Context, settings config.Settings) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(settings.Database.Path, storage.WithRetention(settings.History.Limit))
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
