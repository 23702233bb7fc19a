package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/ttb-tools/labelcheck/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool       Pool
	maxEntries int
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_verification": `INSERT INTO verifications (id, image_name, status, application, verdict, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"get_verification":    `SELECT id, application, verdict, created_at FROM verifications WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig, maxEntries int) (*PostgresStore, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, maxEntries: maxEntries}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS verifications (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	image_name  TEXT NOT NULL,
	status      TEXT NOT NULL,
	application JSONB NOT NULL,
	verdict     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_verifications_status ON verifications(status);
CREATE INDEX IF NOT EXISTS idx_verifications_created_at ON verifications(created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveEntry(ctx context.Context, app model.Application, verdict model.Verdict) (*model.HistoryEntry, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	appJSON, err := json.Marshal(app)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal application")
	}
	verdictJSON, err := json.Marshal(verdict)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal verdict")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO verifications (id, image_name, status, application, verdict, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, verdict.ImageName, string(verdict.OverallStatus), appJSON, verdictJSON, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert verification")
	}

	_, err = s.pool.Exec(ctx,
		`DELETE FROM verifications WHERE id NOT IN (
			SELECT id FROM verifications ORDER BY created_at DESC, id DESC LIMIT $1
		)`,
		s.maxEntries,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: prune history")
	}

	return &model.HistoryEntry{
		ID:          id,
		Timestamp:   now,
		Application: app,
		Verdict:     verdict,
	}, nil
}

func (s *PostgresStore) GetEntry(ctx context.Context, id string) (*model.HistoryEntry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, application, verdict, created_at FROM verifications WHERE id = $1`,
		id,
	)

	var e model.HistoryEntry
	var appJSON, verdictJSON []byte
	err := row.Scan(&e.ID, &appJSON, &verdictJSON, &e.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("verification not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get verification")
	}

	if err := json.Unmarshal(appJSON, &e.Application); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal application")
	}
	if err := json.Unmarshal(verdictJSON, &e.Verdict); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal verdict")
	}
	return &e, nil
}

func (s *PostgresStore) ListEntries(ctx context.Context, filter HistoryFilter) ([]model.HistoryEntry, error) {
	query := `SELECT id, application, verdict, created_at FROM verifications WHERE 1=1`
	var args []any
	arg := 1

	if filter.Status != "" {
		query += ` AND status = $1`
		args = append(args, string(filter.Status))
		arg++
	}
	query += ` ORDER BY created_at DESC, id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultMaxEntries
	}
	query += ` LIMIT $` + strconv.Itoa(arg)
	args = append(args, limit)
	arg++

	if filter.Offset > 0 {
		query += ` OFFSET $` + strconv.Itoa(arg)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list verifications")
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		var e model.HistoryEntry
		var appJSON, verdictJSON []byte
		if err := rows.Scan(&e.ID, &appJSON, &verdictJSON, &e.Timestamp); err != nil {
			return nil, eris.Wrap(err, "postgres: scan verification")
		}
		if err := json.Unmarshal(appJSON, &e.Application); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal application")
		}
		if err := json.Unmarshal(verdictJSON, &e.Verdict); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal verdict")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list verifications iterate")
}

func (s *PostgresStore) ClearEntries(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM verifications`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: clear verifications")
	}
	return int(tag.RowsAffected()), nil
}
