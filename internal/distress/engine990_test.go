package distress

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hummingbird-research/distress-cli/internal/filing"
	"github.com/hummingbird-research/distress-cli/internal/optval"
)

func put990(t *testing.T, tbl *filing.Table, ein string, year int, std filing.Standard, fields map[string]float64) *filing.Year {
	t.Helper()
	fy := filing.NewYear()
	for k, v := range fields {
		fy.SetNum(k, optval.Of(v))
	}
	tbl.Put(ein, year, fy, std)
	return fy
}

func TestEngine990NegativeEquity(t *testing.T) {
	tbl := filing.NewTable()
	put990(t, tbl, "1234567", 2024, filing.Standard990, map[string]float64{
		"total_assets":     1_000_000,
		"total_net_assets": -100_000,
	})

	eng, err := NewEngine990(tbl, Model990())
	require.NoError(t, err)

	rec, err := eng.ScoreEntity("1234567", 2024)
	require.NoError(t, err)

	assert.InDelta(t, -0.10, rec.Raw["equity_ratio"].Value(), 1e-9)
	assert.InDelta(t, 70.0, rec.Domain(DomainSolvency).Value(), 1e-9)
	assert.InDelta(t, 0.0, rec.Domain(DomainRedFlags).Value(), 1e-9)
	assert.InDelta(t, 60.0, rec.Score.Value(), 1e-9)
	assert.Equal(t, CategoryHigh, rec.Category)
	assert.Equal(t, 6, rec.IndicatorsScored)
	assert.Equal(t, 19, rec.IndicatorsTotal)
}

func TestEngine990LiquidRatioRequiresCash(t *testing.T) {
	tbl := filing.NewTable()
	put990(t, tbl, "1111111", 2024, filing.Standard990, map[string]float64{
		"accounts_payable": 50_000,
		"deferred_revenue": 10_000,
	})
	put990(t, tbl, "2222222", 2024, filing.Standard990, map[string]float64{
		"cash": 250_000,
	})

	eng, err := NewEngine990(tbl, Model990())
	require.NoError(t, err)

	rec, err := eng.ScoreEntity("1111111", 2024)
	require.NoError(t, err)
	assert.False(t, rec.Raw["liquid_ratio"].Valid(), "no cash balance leaves the ratio unscored")

	rec, err = eng.ScoreEntity("2222222", 2024)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, rec.Raw["liquid_ratio"].Value(), 1e-9)
}

func TestEngine990FlatRevenueTrend(t *testing.T) {
	tbl := filing.NewTable()
	put990(t, tbl, "1234567", 2023, filing.Standard990, map[string]float64{
		"total_revenue": 1_000_000,
	})
	put990(t, tbl, "1234567", 2024, filing.Standard990, map[string]float64{
		"total_revenue": 1_000_000,
	})

	eng, err := NewEngine990(tbl, Model990())
	require.NoError(t, err)

	rec, err := eng.ScoreEntity("1234567", 2024)
	require.NoError(t, err)

	require.True(t, rec.Raw["revenue_trend"].Valid())
	assert.InDelta(t, 0.0, rec.Raw["revenue_trend"].Value(), 1e-9)
	assert.False(t, rec.Raw["net_asset_trend"].Valid())
	assert.False(t, rec.Raw["expense_growth_gap"].Valid())
}

func TestEngine990CeasedOperationsFlag(t *testing.T) {
	tbl := filing.NewTable()
	fy := put990(t, tbl, "1234567", 2024, filing.Standard990, map[string]float64{})
	fy.SetText("ceased_operations", "Y")

	eng, err := NewEngine990(tbl, Model990())
	require.NoError(t, err)

	rec, err := eng.ScoreEntity("1234567", 2024)
	require.NoError(t, err)

	assert.InDelta(t, 30.0, rec.Domain(DomainRedFlags).Value(), 1e-9)
}

func TestEngine990InsufficientData(t *testing.T) {
	tbl := filing.NewTable()
	put990(t, tbl, "7654321", 2024, filing.EZ990, map[string]float64{
		"total_assets": 50_000,
	})

	eng, err := NewEngine990(tbl, Model990())
	require.NoError(t, err)

	rec, err := eng.ScoreEntity("7654321", 2024)
	require.NoError(t, err)

	assert.False(t, rec.Score.Valid())
	assert.Equal(t, CategoryInsufficient, rec.Category)
	assert.Less(t, rec.IndicatorsScored, minIndicatorsDefault)
}

func TestEngine990ScoreAllFallbackYear(t *testing.T) {
	tbl := filing.NewTable()
	put990(t, tbl, "1111111", 2024, filing.Standard990, map[string]float64{
		"total_assets": 1, "total_net_assets": 1,
	})
	put990(t, tbl, "2222222", 2022, filing.Standard990, map[string]float64{
		"total_assets": 1, "total_net_assets": 1,
	})

	eng, err := NewEngine990(tbl, Model990())
	require.NoError(t, err)

	recs, err := eng.ScoreAll(context.Background(), 2024, 4)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	byID := map[string]Record{}
	for _, r := range recs {
		byID[r.EntityID] = r
	}
	assert.Equal(t, 2024, byID["1111111"].Year)
	assert.Equal(t, 2022, byID["2222222"].Year)
}

func TestEngine990UnknownEntity(t *testing.T) {
	eng, err := NewEngine990(filing.NewTable(), Model990())
	require.NoError(t, err)

	_, err = eng.ScoreEntity("0000000", 2024)
	assert.Error(t, err)
}
