package master

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hummingbird-research/distress-cli/internal/distress"
	"github.com/hummingbird-research/distress-cli/internal/optval"
)

// Scoring variants used for column suffixes and row lookup.
const (
	Variant990   = "990"
	VariantIPEDS = "ipeds"
)

// MergeScores writes score records into the master table. Each variant gets
// its own suffixed column set; the shared distress_score and
// distress_category columns carry the coarse cross-source view and are
// updated by whichever variant ran last.
func (t *Table) MergeScores(recs []distress.Record, variant string) int {
	merged := 0
	for i := range recs {
		rec := &recs[i]
		var row *Row
		if variant == VariantIPEDS {
			row = t.ByUnitID(rec.EntityID)
		} else {
			row = t.ByEIN(rec.EntityID)
		}
		if row == nil {
			continue
		}
		merged++

		row.Set("distress_score", fmtOpt(rec.Score, 1))
		row.Set("distress_category", distress.MasterCategory(rec.Category))

		row.Set("distress_score_"+variant, fmtOpt(rec.Score, 1))
		row.Set("distress_category_"+variant, rec.Category)
		row.Set("distress_completeness_"+variant, strconv.FormatFloat(rec.Completeness, 'f', 0, 64))
		row.Set("distress_indicators_"+variant, strconv.Itoa(rec.IndicatorsScored))
		row.Set("distress_year_"+variant, strconv.Itoa(rec.Year))

		if variant == VariantIPEDS {
			row.Set("likely_closed", fmtBool(rec.LikelyClosed))
			row.Set("is_subsidiary", fmtBool(rec.IsSubsidiary))
			row.Set("parent_unitid", rec.ParentID)
			row.Set("solvency_source", rec.SolvencySource)
			row.Set("na_months_expenses", fmtOpt(rec.NAMonths, 1))
			row.Set("cliff_multiplier", strconv.FormatFloat(rec.CliffMultiplier, 'f', 2, 64))
			row.Set("enrollment_velocity_floor", fmtBool(rec.EnrollmentFloor))
			row.Set("revenue_velocity_floor", fmtBool(rec.RevenueFloor))
		}
	}

	zap.L().Info("merged scores into master",
		zap.String("variant", variant),
		zap.Int("records", len(recs)),
		zap.Int("merged", merged),
	)
	return merged
}

// detailBaseColumns lead the longitudinal export; domain columns follow in
// sorted order.
var detailBaseColumns = []string{
	"entity_id", "year", "accounting_standard",
	"distress_score", "distress_score_prefloored", "risk_category",
	"indicators_scored", "indicators_total", "data_completeness",
	"cliff_multiplier", "enrollment_chg_direct",
	"enrollment_velocity_floor", "floor_severity", "revenue_velocity_floor",
	"is_subsidiary", "parent_unitid", "solvency_source", "na_months_expenses",
	"likely_closed",
}

// WriteDetail writes every score record as one CSV row for longitudinal
// analysis, one column per domain in sorted name order.
func WriteDetail(w io.Writer, recs []distress.Record) error {
	domainSet := map[string]bool{}
	for i := range recs {
		for name := range recs[i].DomainScores {
			domainSet[name] = true
		}
	}
	domains := make([]string, 0, len(domainSet))
	for name := range domainSet {
		domains = append(domains, name)
	}
	sort.Strings(domains)

	cw := csv.NewWriter(w)
	header := append(append([]string{}, detailBaseColumns...), domains...)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "master: write detail header")
	}

	for i := range recs {
		rec := &recs[i]
		row := []string{
			rec.EntityID,
			strconv.Itoa(rec.Year),
			rec.Standard,
			fmtOpt(rec.Score, 1),
			fmtOpt(rec.PrefloorScore, 1),
			rec.Category,
			strconv.Itoa(rec.IndicatorsScored),
			strconv.Itoa(rec.IndicatorsTotal),
			strconv.FormatFloat(rec.Completeness, 'f', 0, 64),
			strconv.FormatFloat(rec.CliffMultiplier, 'f', 2, 64),
			fmtOpt(rec.EnrollmentChg3yr, 4),
			fmtBool(rec.EnrollmentFloor),
			rec.FloorSeverity,
			fmtBool(rec.RevenueFloor),
			fmtBool(rec.IsSubsidiary),
			rec.ParentID,
			rec.SolvencySource,
			fmtOpt(rec.NAMonths, 1),
			fmtBool(rec.LikelyClosed),
		}
		for _, d := range domains {
			row = append(row, fmtOpt(rec.DomainScores[d], 1))
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "master: write detail row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "master: flush detail")
}

func fmtOpt(v optval.Float, prec int) string {
	x, ok := v.Get()
	if !ok {
		return ""
	}
	return strconv.FormatFloat(x, 'f', prec, 64)
}

func fmtBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
