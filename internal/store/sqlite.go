package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ttb-tools/labelcheck/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db         *sql.DB
	maxEntries int
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
// maxEntries bounds retained history; values <= 0 fall back to the default.
func NewSQLite(dsn string, maxEntries int) (*SQLiteStore, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, maxEntries: maxEntries}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS verifications (
	id          TEXT PRIMARY KEY,
	image_name  TEXT NOT NULL,
	status      TEXT NOT NULL,
	application TEXT NOT NULL,
	verdict     TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_verifications_status ON verifications(status);
CREATE INDEX IF NOT EXISTS idx_verifications_created_at ON verifications(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveEntry(ctx context.Context, app model.Application, verdict model.Verdict) (*model.HistoryEntry, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	appJSON, err := json.Marshal(app)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal application")
	}
	verdictJSON, err := json.Marshal(verdict)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal verdict")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO verifications (id, image_name, status, application, verdict, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, verdict.ImageName, string(verdict.OverallStatus), string(appJSON), string(verdictJSON), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert verification")
	}

	// Keep only the newest maxEntries rows.
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM verifications WHERE id NOT IN (
			SELECT id FROM verifications ORDER BY created_at DESC, id DESC LIMIT ?
		)`,
		s.maxEntries,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prune history")
	}

	return &model.HistoryEntry{
		ID:          id,
		Timestamp:   now,
		Application: app,
		Verdict:     verdict,
	}, nil
}

func (s *SQLiteStore) GetEntry(ctx context.Context, id string) (*model.HistoryEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, application, verdict, created_at FROM verifications WHERE id = ?`,
		id,
	)
	return scanEntry(row)
}

func (s *SQLiteStore) ListEntries(ctx context.Context, filter HistoryFilter) ([]model.HistoryEntry, error) {
	query := `SELECT id, application, verdict, created_at FROM verifications WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultMaxEntries
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list verifications")
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list verifications iterate")
}

func (s *SQLiteStore) ClearEntries(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM verifications`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: clear verifications")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanEntry(row scannable) (*model.HistoryEntry, error) {
	var e model.HistoryEntry
	var appJSON, verdictJSON string

	err := row.Scan(&e.ID, &appJSON, &verdictJSON, &e.Timestamp)
	if err == sql.ErrNoRows {
		return nil, eris.New("verification not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan verification")
	}

	if err := json.Unmarshal([]byte(appJSON), &e.Application); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal application")
	}
	if err := json.Unmarshal([]byte(verdictJSON), &e.Verdict); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal verdict")
	}
	return &e, nil
}
