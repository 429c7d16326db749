package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/hummingbird-research/distress-cli/internal/distress"
)

// SQLiteStore implements Store using modernc.org/sqlite for local runs.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
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
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS scoring_runs (
	id          TEXT PRIMARY KEY,
	variant     TEXT NOT NULL,
	target_year INTEGER NOT NULL,
	config_hash TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS score_records (
	run_id            TEXT NOT NULL REFERENCES scoring_runs(id),
	entity_id         TEXT NOT NULL,
	year              INTEGER NOT NULL,
	standard          TEXT NOT NULL,
	score             REAL,
	prefloor_score    REAL,
	category          TEXT NOT NULL,
	indicators_scored INTEGER NOT NULL,
	indicators_total  INTEGER NOT NULL,
	completeness      REAL NOT NULL,
	cliff_multiplier  REAL NOT NULL,
	is_subsidiary     INTEGER NOT NULL,
	parent_id         TEXT,
	likely_closed     INTEGER NOT NULL,
	domain_scores     TEXT,
	raw_metrics       TEXT,
	PRIMARY KEY (run_id, entity_id, year)
);

CREATE INDEX IF NOT EXISTS idx_score_records_entity ON score_records(entity_id);
CREATE INDEX IF NOT EXISTS idx_scoring_runs_variant ON scoring_runs(variant, created_at);
`

// Migrate applies the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

// SaveRun persists the run header and its score records in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run, recs []distress.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO scoring_runs (id, variant, target_year, config_hash, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		run.ID.String(), run.Variant, run.TargetYear, run.ConfigHash, run.CreatedAt,
	); err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO score_records (
			run_id, entity_id, year, standard,
			score, prefloor_score, category,
			indicators_scored, indicators_total, completeness,
			cliff_multiplier, is_subsidiary, parent_id, likely_closed,
			domain_scores, raw_metrics
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare record insert")
	}
	defer stmt.Close()

	for i := range recs {
		rec := &recs[i]
		domains, err := json.Marshal(rec.DomainScores)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal domains for %s", rec.EntityID)
		}
		raws, err := json.Marshal(rec.Raw)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal raw metrics for %s", rec.EntityID)
		}
		if _, err := stmt.ExecContext(ctx,
			run.ID.String(), rec.EntityID, rec.Year, rec.Standard,
			rec.Score.Ptr(), rec.PrefloorScore.Ptr(), rec.Category,
			rec.IndicatorsScored, rec.IndicatorsTotal, rec.Completeness,
			rec.CliffMultiplier, rec.IsSubsidiary, rec.ParentID, rec.LikelyClosed,
			string(domains), string(raws),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert record %s/%d", rec.EntityID, rec.Year)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit tx")
	}

	zap.L().Info("persisted scoring run",
		zap.String("run_id", run.ID.String()),
		zap.String("variant", run.Variant),
		zap.Int("records", len(recs)),
	)
	return nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
