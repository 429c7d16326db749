package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hummingbird-research/distress-cli/internal/db"
	"github.com/hummingbird-research/distress-cli/internal/distress"
)

// PostgresStore implements Store over a pgx pool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements are prepared on each new connection.
var preparedStatements = map[string]string{
	"insert_run": `INSERT INTO scoring_runs (id, variant, target_year, config_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
}

// NewPostgres connects a pool with store-appropriate sizing and verifies
// connectivity.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
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
		return nil, eris.Wrap(err, "postgres: connect pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Tests pass pgxmock here.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS scoring_runs (
	id          UUID PRIMARY KEY,
	variant     TEXT NOT NULL,
	target_year INT NOT NULL,
	config_hash TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS score_records (
	run_id             UUID NOT NULL REFERENCES scoring_runs(id),
	entity_id          TEXT NOT NULL,
	year               INT NOT NULL,
	standard           TEXT NOT NULL,
	score              DOUBLE PRECISION,
	prefloor_score     DOUBLE PRECISION,
	category           TEXT NOT NULL,
	indicators_scored  INT NOT NULL,
	indicators_total   INT NOT NULL,
	completeness       DOUBLE PRECISION NOT NULL,
	cliff_multiplier   DOUBLE PRECISION NOT NULL,
	is_subsidiary      BOOLEAN NOT NULL,
	parent_id          TEXT,
	likely_closed      BOOLEAN NOT NULL,
	domain_scores      JSONB,
	raw_metrics        JSONB,
	PRIMARY KEY (run_id, entity_id, year)
);

CREATE TABLE IF NOT EXISTS latest_scores (
	variant    TEXT NOT NULL,
	entity_id  TEXT NOT NULL,
	run_id     UUID NOT NULL,
	year       INT NOT NULL,
	score      DOUBLE PRECISION,
	category   TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (variant, entity_id)
);

CREATE INDEX IF NOT EXISTS idx_score_records_entity ON score_records(entity_id);
CREATE INDEX IF NOT EXISTS idx_scoring_runs_variant ON scoring_runs(variant, created_at);
`

// Migrate applies the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

var scoreRecordColumns = []string{
	"run_id", "entity_id", "year", "standard",
	"score", "prefloor_score", "category",
	"indicators_scored", "indicators_total", "completeness",
	"cliff_multiplier", "is_subsidiary", "parent_id", "likely_closed",
	"domain_scores", "raw_metrics",
}

// SaveRun persists the run header, appends its score records with COPY, and
// upserts the per-entity latest-score snapshot.
func (s *PostgresStore) SaveRun(ctx context.Context, run *Run, recs []distress.Record) error {
	if _, err := s.pool.Exec(ctx, "insert_run",
		run.ID, run.Variant, run.TargetYear, run.ConfigHash, run.CreatedAt,
	); err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", run.ID)
	}

	rows := make([][]any, 0, len(recs))
	// Longitudinal runs carry several years per entity; the snapshot keeps
	// only the most recent, and the upsert needs one row per key.
	latest := make(map[string]*distress.Record, len(recs))
	for i := range recs {
		rec := &recs[i]
		domains, err := json.Marshal(rec.DomainScores)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal domains for %s", rec.EntityID)
		}
		raws, err := json.Marshal(rec.Raw)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal raw metrics for %s", rec.EntityID)
		}
		rows = append(rows, []any{
			run.ID, rec.EntityID, rec.Year, rec.Standard,
			rec.Score.Ptr(), rec.PrefloorScore.Ptr(), rec.Category,
			rec.IndicatorsScored, rec.IndicatorsTotal, rec.Completeness,
			rec.CliffMultiplier, rec.IsSubsidiary, rec.ParentID, rec.LikelyClosed,
			domains, raws,
		})
		if prev, ok := latest[rec.EntityID]; !ok || rec.Year > prev.Year {
			latest[rec.EntityID] = rec
		}
	}
	snapshot := make([][]any, 0, len(latest))
	for _, rec := range latest {
		snapshot = append(snapshot, []any{
			run.Variant, rec.EntityID, run.ID, rec.Year,
			rec.Score.Ptr(), rec.Category, run.CreatedAt,
		})
	}

	if _, err := db.CopyFrom(ctx, s.pool, "score_records", scoreRecordColumns, rows); err != nil {
		return eris.Wrapf(err, "postgres: copy records for run %s", run.ID)
	}

	if _, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "latest_scores",
		Columns:      []string{"variant", "entity_id", "run_id", "year", "score", "category", "updated_at"},
		ConflictKeys: []string{"variant", "entity_id"},
	}, snapshot); err != nil {
		return eris.Wrapf(err, "postgres: upsert latest scores for run %s", run.ID)
	}

	zap.L().Info("persisted scoring run",
		zap.String("run_id", run.ID.String()),
		zap.String("variant", run.Variant),
		zap.Int("records", len(recs)),
	)
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
