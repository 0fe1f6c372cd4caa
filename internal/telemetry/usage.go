// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry provides token usage tracking for inkwell.
package telemetry

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// USAGE STORE
// =============================================================================

// UsageStore persists per-request token accounting in a local SQLite
// database. It satisfies the gateway's UsageRecorder interface.
type UsageStore struct {
	db *sql.DB
}

const usageSchema = `
CREATE TABLE IF NOT EXISTS usage_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at TEXT NOT NULL,
	model TEXT NOT NULL,
	prompt_tokens INTEGER NOT NULL,
	completion_tokens INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_model ON usage_records(model);
CREATE INDEX IF NOT EXISTS idx_usage_recorded_at ON usage_records(recorded_at);
`

// NewUsageStore opens (or creates) the usage database at path.
func NewUsageStore(path string) (*UsageStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage database: %w", err)
	}

	if _, err := db.Exec(usageSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize usage schema: %w", err)
	}

	return &UsageStore{db: db}, nil
}

// NewDefaultUsageStore opens the usage database at its default
// location, ~/.inkwell/usage.db.
func NewDefaultUsageStore() (*UsageStore, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("could not determine home directory: %w", err)
	}
	return NewUsageStore(filepath.Join(home, ".inkwell", "usage.db"))
}

// RecordUsage stores one request's token counts. Failures are logged,
// not returned: accounting must never break a conversation.
func (u *UsageStore) RecordUsage(model string, promptTokens, completionTokens int64, elapsed time.Duration) {
	_, err := u.db.Exec(
		`INSERT INTO usage_records (recorded_at, model, prompt_tokens, completion_tokens, duration_ms)
		 VALUES (?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339),
		model, promptTokens, completionTokens, elapsed.Milliseconds(),
	)
	if err != nil {
		log.Printf("telemetry: failed to record usage: %v", err)
	}
}

// Totals summarizes recorded usage.
type Totals struct {
	Requests         int64 `json:"requests"`
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
}

// TotalTokens is the sum of prompt and completion tokens.
func (t Totals) TotalTokens() int64 {
	return t.PromptTokens + t.CompletionTokens
}

// Totals returns usage summed over all models.
func (u *UsageStore) Totals() (Totals, error) {
	var t Totals
	row := u.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0)
		 FROM usage_records`)
	if err := row.Scan(&t.Requests, &t.PromptTokens, &t.CompletionTokens); err != nil {
		return Totals{}, fmt.Errorf("failed to query usage totals: %w", err)
	}
	return t, nil
}

// TotalsByModel returns usage grouped by model, most requests first.
func (u *UsageStore) TotalsByModel() (map[string]Totals, error) {
	rows, err := u.db.Query(
		`SELECT model, COUNT(*), COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(completion_tokens), 0)
		 FROM usage_records GROUP BY model`)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage by model: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Totals)
	for rows.Next() {
		var model string
		var t Totals
		if err := rows.Scan(&model, &t.Requests, &t.PromptTokens, &t.CompletionTokens); err != nil {
			return nil, fmt.Errorf("failed to scan usage row: %w", err)
		}
		out[model] = t
	}
	return out, rows.Err()
}

// Reset deletes all recorded usage.
func (u *UsageStore) Reset() error {
	if _, err := u.db.Exec(`DELETE FROM usage_records`); err != nil {
		return fmt.Errorf("failed to reset usage records: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (u *UsageStore) Close() error {
	return u.db.Close()
}
