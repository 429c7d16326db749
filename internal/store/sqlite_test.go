package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hummingbird-research/distress-cli/internal/distress"
)

func TestSQLiteSaveRunRoundTrip(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "scores.db")
	s, err := NewSQLite(dsn)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))

	run := NewRun("ipeds", 2024, distress.ModelIPEDS())
	recs := sampleRecords()
	require.NoError(t, s.SaveRun(ctx, run, recs))

	var count int
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM score_records WHERE run_id = ?`, run.ID.String(),
	).Scan(&count))
	assert.Equal(t, 2, count)

	var score *float64
	var category string
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT score, category FROM score_records WHERE entity_id = ?`, "100001",
	).Scan(&score, &category))
	require.NotNil(t, score)
	assert.InDelta(t, 82.4, *score, 1e-9)
	assert.Equal(t, distress.CategorySevere, category)

	// Absent scores persist as NULL, never zero.
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT score FROM score_records WHERE entity_id = ?`, "100002",
	).Scan(&score))
	assert.Nil(t, score)

	// The same run cannot be saved twice.
	assert.Error(t, s.SaveRun(ctx, run, recs))
}

func TestConfigHash(t *testing.T) {
	h1 := ConfigHash(distress.Model990())
	h2 := ConfigHash(distress.Model990())
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 32)

	recalibrated := distress.Model990()
	recalibrated.MinIndicators = 7
	assert.NotEqual(t, h1, ConfigHash(recalibrated))

	assert.NotEqual(t, h1, ConfigHash(distress.ModelIPEDS()))
}
