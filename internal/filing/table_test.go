package filing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hummingbird-research/distress-cli/internal/optval"
)

func TestInjectFills(t *testing.T) {
	tbl := NewTable()
	fy23 := NewYear()
	fy23.SetNum("f2_total_revenues", optval.Absent())
	fy24 := NewYear()
	fy24.SetNum("f2_total_revenues", optval.Of(5000))
	tbl.Put("100654", 2023, fy23, FASB)
	tbl.Put("100654", 2024, fy24, FASB)

	master := map[string]float64{
		"f2_total_revenues_2023": 4200,
		"f2_total_revenues_2024": 9999, // must not clobber the surveyed value
		"f2_unrestricted_na":     1500,
	}
	lookup := func(col string) optval.Float {
		if v, ok := master[col]; ok {
			return optval.Of(v)
		}
		return optval.Absent()
	}

	e := tbl.Entity("100654")
	filled := e.InjectFills(lookup, 2024)
	assert.Equal(t, 2, filled)
	assert.InDelta(t, 4200, e.Year(2023).Num("f2_total_revenues").Value(), 1e-9)
	assert.InDelta(t, 5000, e.Year(2024).Num("f2_total_revenues").Value(), 1e-9)
	assert.InDelta(t, 1500, e.Year(2024).Num("f2_unrestricted_na").Value(), 1e-9)
	assert.False(t, e.Year(2023).Num("f2_unrestricted_na").Valid(), "single-year fills only touch the target year")
}

func TestUsable(t *testing.T) {
	tbl := NewTable()
	enrollOnly := NewYear()
	enrollOnly.SetNum("total_enrollment", optval.Of(300))
	financeOnly := NewYear()
	financeOnly.SetNum("f1a_total_revenues", optval.Of(100000))
	empty := NewYear()
	tbl.Put("1", 2024, enrollOnly, StandardUnknown)
	tbl.Put("2", 2024, financeOnly, GASB)
	tbl.Put("3", 2024, empty, StandardUnknown)

	assert.True(t, tbl.Entity("1").Usable(2024))
	assert.True(t, tbl.Entity("2").Usable(2024))
	assert.False(t, tbl.Entity("3").Usable(2024))
	assert.False(t, tbl.Entity("1").Usable(2023), "missing year is unusable")
}

func TestPutReloadOverwritesWholesale(t *testing.T) {
	tbl := NewTable()
	first := NewYear()
	first.SetNum("total_revenue", optval.Of(100))
	first.SetNum("total_expenses", optval.Of(90))
	tbl.Put("55555", 2024, first, EZ990)

	second := NewYear()
	second.SetNum("total_revenue", optval.Of(200))
	tbl.Put("55555", 2024, second, EZ990)

	fy := tbl.Entity("55555").Year(2024)
	require.NotNil(t, fy)
	assert.InDelta(t, 200, fy.Num("total_revenue").Value(), 1e-9)
	assert.False(t, fy.Num("total_expenses").Valid(), "re-load replaces the year wholesale")
}

func TestSetStandardForce(t *testing.T) {
	tbl := NewTable()
	tbl.Put("100654", 2024, NewYear(), StandardUnknown)
	tbl.SetStandard("100654", IRS990)
	assert.Equal(t, IRS990, tbl.Entity("100654").Standard)
	assert.True(t, IRS990.Private())
}

func TestParseStandardRoundTrip(t *testing.T) {
	for _, s := range []Standard{Standard990, EZ990, PF990, FASB, GASB, ForProfit, IRS990} {
		assert.Equal(t, s, ParseStandard(s.String()))
	}
	assert.Equal(t, StandardUnknown, ParseStandard("bogus"))
}
