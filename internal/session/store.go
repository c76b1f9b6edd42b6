package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    name TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    provider TEXT NOT NULL DEFAULT 'gemini',
    model TEXT NOT NULL DEFAULT 'gemini-2.5-flash-image'
);

CREATE TABLE IF NOT EXISTS generations (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    style_id TEXT NOT NULL,
    action_id TEXT,
    frame_index INTEGER NOT NULL DEFAULT 0,
    prompt TEXT NOT NULL,
    source TEXT,
    status TEXT NOT NULL,
    error TEXT,
    model TEXT NOT NULL,
    timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    metadata_json TEXT,
    FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS cost_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    provider TEXT NOT NULL,
    model TEXT NOT NULL,
    size TEXT,
    quality TEXT,
    prompt_length INTEGER NOT NULL DEFAULT 0,
    cost REAL NOT NULL,
    image_count INTEGER NOT NULL DEFAULT 1,
    timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_generations_session_id ON generations(session_id);
CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);
CREATE INDEX IF NOT EXISTS idx_cost_log_timestamp ON cost_log(timestamp);
CREATE INDEX IF NOT EXISTS idx_cost_log_provider ON cost_log(provider);
CREATE INDEX IF NOT EXISTS idx_cost_log_session_id ON cost_log(session_id);
`

type Store struct {
	db *sql.DB
}

func NewStore() (*Store, error) {
	dbPath, err := DefaultDBPath()
	if err != nil {
		return nil, err
	}
	return NewStoreWithPath(dbPath)
}

func NewStoreWithPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Chains running in parallel log concurrently; sqlite wants one writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &Store{db: db}, nil
}

func DefaultDBPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".spriteforge", "usage.db"), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateSession(ctx context.Context, sess *Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, name, created_at, updated_at, provider, model)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Name, sess.CreatedAt, sess.UpdatedAt, sess.Provider, sess.Model)
	return err
}

func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at, provider, model
		 FROM sessions WHERE id = ?`, id)

	sess := &Session{}
	var name sql.NullString
	err := row.Scan(&sess.ID, &name, &sess.CreatedAt, &sess.UpdatedAt, &sess.Provider, &sess.Model)
	if err != nil {
		return nil, err
	}
	sess.Name = name.String
	return sess, nil
}

func (s *Store) UpdateSession(ctx context.Context, sess *Session) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET name = ?, updated_at = ?, provider = ?, model = ?
		 WHERE id = ?`,
		sess.Name, sess.UpdatedAt, sess.Provider, sess.Model, sess.ID)
	return err
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (s *Store) ListSessions(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at, updated_at, provider, model
		 FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess := &Session{}
		var name sql.NullString
		if err := rows.Scan(&sess.ID, &name, &sess.CreatedAt, &sess.UpdatedAt, &sess.Provider, &sess.Model); err != nil {
			return nil, err
		}
		sess.Name = name.String
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *Store) CreateGeneration(ctx context.Context, g *Generation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generations (id, session_id, kind, style_id, action_id, frame_index, prompt, source, status, error, model, timestamp, metadata_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.SessionID, g.Kind, g.StyleID, nullString(g.ActionID), g.FrameIndex, g.Prompt,
		nullString(g.Source), g.Status, nullString(g.Error), g.Model, g.Timestamp, g.Metadata.ToJSON())
	return err
}

func (s *Store) ListGenerations(ctx context.Context, sessionID string) ([]*Generation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, kind, style_id, action_id, frame_index, prompt, source, status, error, model, timestamp, metadata_json
		 FROM generations WHERE session_id = ? ORDER BY timestamp ASC, rowid ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var generations []*Generation
	for rows.Next() {
		g := &Generation{}
		var actionID, source, errMsg, metadataJSON sql.NullString
		if err := rows.Scan(&g.ID, &g.SessionID, &g.Kind, &g.StyleID, &actionID, &g.FrameIndex, &g.Prompt,
			&source, &g.Status, &errMsg, &g.Model, &g.Timestamp, &metadataJSON); err != nil {
			return nil, err
		}
		g.ActionID = actionID.String
		g.Source = source.String
		g.Error = errMsg.String
		g.Metadata = ParseGenerationMetadata(metadataJSON.String)
		generations = append(generations, g)
	}
	return generations, rows.Err()
}

func (s *Store) CountGenerations(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM generations WHERE session_id = ?`, sessionID).Scan(&count)
	return count, err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

type CostEntry struct {
	SessionID    string
	Provider     string
	Model        string
	Size         string
	Quality      string
	PromptLength int
	Cost         float64
	ImageCount   int
	Timestamp    time.Time
}

type CostSummary struct {
	TotalCost  float64
	ImageCount int
	EntryCount int
}

type ProviderCostSummary struct {
	Provider   string
	TotalCost  float64
	ImageCount int
}

func (s *Store) LogCost(ctx context.Context, entry *CostEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cost_log (session_id, provider, model, size, quality, prompt_length, cost, image_count, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID, entry.Provider, entry.Model, nullString(entry.Size), nullString(entry.Quality),
		entry.PromptLength, entry.Cost, entry.ImageCount, entry.Timestamp)
	return err
}

func (s *Store) GetCostByDateRange(ctx context.Context, start, end time.Time) (*CostSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost), 0), COALESCE(SUM(image_count), 0), COUNT(*)
		 FROM cost_log WHERE timestamp >= ? AND timestamp < ?`,
		start, end)

	var summary CostSummary
	if err := row.Scan(&summary.TotalCost, &summary.ImageCount, &summary.EntryCount); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *Store) GetCostByProvider(ctx context.Context) ([]ProviderCostSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT provider, COALESCE(SUM(cost), 0), COALESCE(SUM(image_count), 0)
		 FROM cost_log GROUP BY provider ORDER BY provider`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []ProviderCostSummary
	for rows.Next() {
		var ps ProviderCostSummary
		if err := rows.Scan(&ps.Provider, &ps.TotalCost, &ps.ImageCount); err != nil {
			return nil, err
		}
		summaries = append(summaries, ps)
	}
	return summaries, rows.Err()
}

func (s *Store) GetTotalCost(ctx context.Context) (*CostSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost), 0), COALESCE(SUM(image_count), 0), COUNT(*)
		 FROM cost_log`)

	var summary CostSummary
	if err := row.Scan(&summary.TotalCost, &summary.ImageCount, &summary.EntryCount); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *Store) GetSessionCost(ctx context.Context, sessionID string) (*CostSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost), 0), COALESCE(SUM(image_count), 0), COUNT(*)
		 FROM cost_log WHERE session_id = ?`,
		sessionID)

	var summary CostSummary
	if err := row.Scan(&summary.TotalCost, &summary.ImageCount, &summary.EntryCount); err != nil {
		return nil, err
	}
	return &summary, nil
}
