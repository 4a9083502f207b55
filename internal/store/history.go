package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

type HistoryStore struct {
	DB *sql.DB
}

func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			identity TEXT,
			prompt TEXT,
			channel TEXT,
			chat_id TEXT,
			status TEXT DEFAULT 'queued',
			report TEXT DEFAULT '',
			error TEXT DEFAULT '',
			keys TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			finished_at DATETIME
		);`,
		`CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &HistoryStore{DB: db}, nil
}

func (h *HistoryStore) Close() error {
	return h.DB.Close()
}

// RecordQueued inserts a run in queued state. Recording an id twice is a no-op.
func (h *HistoryStore) RecordQueued(ctx context.Context, run Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	query := `INSERT OR IGNORE INTO runs (id, identity, prompt, channel, chat_id, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := h.DB.ExecContext(ctx, query, run.ID, run.Identity, run.Prompt, run.Channel, run.ChatID, StatusQueued, run.CreatedAt)
	return err
}

func (h *HistoryStore) MarkRunning(ctx context.Context, id string) error {
	return h.updateStatus(ctx, `UPDATE runs SET status = ? WHERE id = ?`, StatusRunning, id)
}

// MarkFinished stores the terminal state of a run. A non-nil runErr marks it
// failed.
func (h *HistoryStore) MarkFinished(ctx context.Context, id, report string, keys []string, runErr error) error {
	status, errText := StatusCompleted, ""
	if runErr != nil {
		status, errText = StatusFailed, runErr.Error()
	}
	query := `UPDATE runs SET status = ?, report = ?, error = ?, keys = ?, finished_at = ? WHERE id = ?`
	res, err := h.DB.ExecContext(ctx, query, status, report, errText, strings.Join(keys, ","), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

func (h *HistoryStore) GetRun(ctx context.Context, id string) (Run, error) {
	query := `SELECT id, identity, prompt, channel, chat_id, status, report, error, keys, created_at, finished_at FROM runs WHERE id = ?`
	run, err := scanRun(h.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// ListRuns returns the most recent runs, newest first.
func (h *HistoryStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, identity, prompt, channel, chat_id, status, report, error, keys, created_at, finished_at
		FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`
	rows, err := h.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (h *HistoryStore) updateStatus(ctx context.Context, query, status, id string) error {
	res, err := h.DB.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		run      Run
		keys     string
		finished sql.NullTime
	)
	err := s.Scan(&run.ID, &run.Identity, &run.Prompt, &run.Channel, &run.ChatID, &run.Status,
		&run.Report, &run.Error, &keys, &run.CreatedAt, &finished)
	if err != nil {
		return Run{}, err
	}
	if keys != "" {
		run.Keys = strings.Split(keys, ",")
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return run, nil
}
