package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hummingbird-research/distress-cli/internal/distress"
	"github.com/hummingbird-research/distress-cli/internal/optval"
)

func sampleRecords() []distress.Record {
	return []distress.Record{
		{
			EntityID:         "100001",
			Year:             2024,
			Standard:         "fasb",
			Score:            optval.Of(82.4),
			PrefloorScore:    optval.Of(82.4),
			Category:         distress.CategorySevere,
			DomainScores:     map[string]optval.Float{"solvency": optval.Of(90)},
			Raw:              map[string]optval.Float{"equity_ratio": optval.Of(-0.1)},
			IndicatorsScored: 12,
			IndicatorsTotal:  29,
			Completeness:     41,
			CliffMultiplier:  1.0,
		},
		{
			EntityID:        "100002",
			Year:            2024,
			Standard:        "gasb",
			Category:        distress.CategoryInsufficient,
			CliffMultiplier: 1.0,
		},
	}
}

func TestPostgresSaveRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresWithPool(mock)
	run := NewRun("ipeds", 2024, distress.ModelIPEDS())
	recs := sampleRecords()

	mock.ExpectExec("insert_run").
		WithArgs(run.ID, run.Variant, run.TargetYear, run.ConfigHash, run.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"score_records"}, scoreRecordColumns).
		WillReturnResult(2)
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_latest_scores"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_latest_scores"},
		[]string{"variant", "entity_id", "run_id", "year", "score", "category", "updated_at"}).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "latest_scores"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectRollback()

	require.NoError(t, s.SaveRun(context.Background(), run, recs))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveRunInsertFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresWithPool(mock)
	run := NewRun("990", 2024, distress.Model990())

	mock.ExpectExec("insert_run").
		WithArgs(run.ID, run.Variant, run.TargetYear, run.ConfigHash, run.CreatedAt).
		WillReturnError(assert.AnError)

	err = s.SaveRun(context.Background(), run, sampleRecords())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert run")
}

func TestPostgresMigrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS scoring_runs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	s := NewPostgresWithPool(mock)
	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
