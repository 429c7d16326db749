package distress

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hummingbird-research/distress-cli/internal/filing"
	"github.com/hummingbird-research/distress-cli/internal/optval"
)

type fakeRow map[string]float64

func (f fakeRow) Num(col string) optval.Float {
	if v, ok := f[col]; ok {
		return optval.Of(v)
	}
	return optval.Absent()
}

func putIPEDS(t *testing.T, tbl *filing.Table, uid string, year int, std filing.Standard, fields map[string]float64) *filing.Year {
	t.Helper()
	fy := filing.NewYear()
	for k, v := range fields {
		fy.SetNum(k, optval.Of(v))
	}
	tbl.Put(uid, year, fy, std)
	return fy
}

func TestEngineIPEDSSubsidiaryReserveMonths(t *testing.T) {
	tbl := filing.NewTable()
	putIPEDS(t, tbl, "100001", 2024, filing.FASB, map[string]float64{
		"total_enrollment":      1200,
		"ft_enrollment":         900,
		"ft_retention_rate":     80,
		"graduation_rate":       50,
		"student_faculty_ratio": 15,
		"admissions_yield":      40,
		"percent_admitted":      70,
	})

	eng, err := NewEngineIPEDS(tbl, ModelIPEDS(), 2024)
	require.NoError(t, err)
	eng.SetSubsidiaries(map[string]SubsidiaryLink{
		"100001": {ParentID: "100000", ParentName: "Parent University"},
	})
	eng.AttachMaster("100001", fakeRow{
		"net_assets_2024": 600_000,
		"expenses_2024":   1_200_000,
		"revenue_2024":    300_000,
		"revenue_2022":    1_000_000,
	})

	rec, err := eng.ScoreEntity("100001", 2024)
	require.NoError(t, err)

	assert.True(t, rec.IsSubsidiary)
	assert.Equal(t, "100000", rec.ParentID)
	assert.Equal(t, "Parent University", rec.ParentName)
	assert.Equal(t, "na_months", rec.SolvencySource)
	assert.InDelta(t, 6.0, rec.NAMonths.Value(), 1e-9)
	assert.InDelta(t, 47.0, rec.Domain(DomainSolvency).Value(), 1e-9)

	// Revenue fell 70% over two years, so the subsidiary revenue floor binds.
	assert.True(t, rec.RevenueFloor)
	assert.InDelta(t, 65.0, rec.Score.Value(), 1e-9)
	assert.Equal(t, CategoryHigh, rec.Category)
	assert.Less(t, rec.PrefloorScore.Value(), rec.Score.Value())
}

func TestEngineIPEDSCliffMultiplier(t *testing.T) {
	tests := []struct {
		name   string
		enroll optval.Float
		chg    optval.Float
		want   float64
	}{
		{"tiny school steep decline maxes out", optval.Of(200), optval.Of(-0.40), 1.4},
		{"partial amplification", optval.Of(350), optval.Of(-0.30), 1.1},
		{"too large", optval.Of(600), optval.Of(-0.50), 1.0},
		{"decline too shallow", optval.Of(400), optval.Of(-0.10), 1.0},
		{"absent enrollment", optval.Absent(), optval.Of(-0.50), 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cliffMultiplier(tt.enroll, tt.chg), 1e-9)
		})
	}
}

func TestEngineIPEDSCliffAmplifiesEnrollmentDomain(t *testing.T) {
	tbl := filing.NewTable()
	putIPEDS(t, tbl, "100010", 2024, filing.FASB, map[string]float64{
		"total_enrollment":  250,
		"ft_enrollment":     200,
		"ft_retention_rate": 60,
	})

	eng, err := NewEngineIPEDS(tbl, ModelIPEDS(), 2024)
	require.NoError(t, err)
	eng.AttachMaster("100010", fakeRow{
		"enrollment_2024": 250,
		"enrollment_2022": 500,
	})

	rec, err := eng.ScoreEntity("100010", 2024)
	require.NoError(t, err)

	assert.InDelta(t, 1.4, rec.CliffMultiplier, 1e-9)
	assert.InDelta(t, -0.5, rec.EnrollmentChg3yr.Value(), 1e-9)
	// chg_3yr scores 1.0 (w .20), ft_share 0 (w .15), size 0.5 (w .10),
	// renormalized to 55.6, then amplified by the cliff and rounded.
	assert.InDelta(t, 77.8, rec.Domain(DomainEnrollment).Value(), 0.05)
}

func TestEngineIPEDSEnrollmentDomainCappedAt100(t *testing.T) {
	tbl := filing.NewTable()
	putIPEDS(t, tbl, "100011", 2024, filing.FASB, map[string]float64{
		"total_enrollment":  40,
		"ft_enrollment":     5,
		"ft_retention_rate": 30,
	})

	eng, err := NewEngineIPEDS(tbl, ModelIPEDS(), 2024)
	require.NoError(t, err)
	eng.AttachMaster("100011", fakeRow{
		"enrollment_2024": 40,
		"enrollment_2022": 400,
	})

	rec, err := eng.ScoreEntity("100011", 2024)
	require.NoError(t, err)
	assert.LessOrEqual(t, rec.Domain(DomainEnrollment).Value(), 100.0)
}

func TestEngineIPEDSScoreAll(t *testing.T) {
	tbl := filing.NewTable()
	// Current-year institution.
	putIPEDS(t, tbl, "100020", 2024, filing.FASB, map[string]float64{
		"total_enrollment":  2000,
		"ft_retention_rate": 75,
		"graduation_rate":   55,
		"admissions_yield":  30,
		"percent_admitted":  60,
	})
	// Lapsed reporter; latest usable year is 2023.
	putIPEDS(t, tbl, "100021", 2023, filing.GASB, map[string]float64{
		"total_enrollment":      900,
		"ft_retention_rate":     65,
		"graduation_rate":       35,
		"student_faculty_ratio": 22,
	})
	// Empty shell with no data anywhere.
	putIPEDS(t, tbl, "100022", 2024, filing.StandardUnknown, map[string]float64{})

	eng, err := NewEngineIPEDS(tbl, ModelIPEDS(), 2024)
	require.NoError(t, err)

	recs, err := eng.ScoreAll(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	byID := map[string]Record{}
	for _, r := range recs {
		byID[r.EntityID] = r
	}

	assert.Equal(t, 2024, byID["100020"].Year)
	assert.False(t, byID["100020"].LikelyClosed)

	assert.Equal(t, 2023, byID["100021"].Year)
	assert.False(t, byID["100021"].LikelyClosed)

	assert.True(t, byID["100022"].LikelyClosed)
	assert.Equal(t, CategoryInsufficient, byID["100022"].Category)
}

func TestEngineIPEDSLikelyClosed(t *testing.T) {
	tbl := filing.NewTable()
	putIPEDS(t, tbl, "100030", 2024, filing.StandardUnknown, map[string]float64{})

	eng, err := NewEngineIPEDS(tbl, ModelIPEDS(), 2024)
	require.NoError(t, err)

	assert.True(t, eng.LikelyClosed("100030"))

	// A master footprint keeps it alive even with an empty survey year.
	eng.AttachMaster("100030", fakeRow{"enrollment_2024": 150})
	assert.False(t, eng.LikelyClosed("100030"))
}

func TestEngineIPEDSGASBExpensesDerived(t *testing.T) {
	tbl := filing.NewTable()
	putIPEDS(t, tbl, "100040", 2024, filing.GASB, map[string]float64{
		"f1a_total_revenues":   10_000_000,
		"f1a_operating_income": -2_000_000,
	})

	eng, err := NewEngineIPEDS(tbl, ModelIPEDS(), 2024)
	require.NoError(t, err)

	rec, err := eng.ScoreEntity("100040", 2024)
	require.NoError(t, err)

	// Expenses derive to 12M, so the margin is (10M - 12M) / 10M = -0.20.
	require.True(t, rec.Raw["operating_margin"].Valid())
	assert.InDelta(t, -0.20, rec.Raw["operating_margin"].Value(), 1e-9)
}
