package distress

import (
	"context"
	"strconv"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hummingbird-research/distress-cli/internal/filing"
	"github.com/hummingbird-research/distress-cli/internal/optval"
)

// MasterRow gives the engine read access to one institution's row in the
// master table: flat columns like revenue_2024 or net_assets_2023 that were
// merged there from prior pipeline runs.
type MasterRow interface {
	Num(col string) optval.Float
}

// EngineIPEDS scores IPEDS-reporting institutions. Construction wires in the
// filing table, the subsidiary links from contamination detection, and the
// master rows used for backfill and velocity floors; after Prepare the table
// is read-only and scoring is safe to parallelize.
type EngineIPEDS struct {
	tbl        *filing.Table
	model      Model
	targetYear int

	subs   map[string]SubsidiaryLink
	master map[string]MasterRow
}

// NewEngineIPEDS validates the model and returns an engine over the table.
func NewEngineIPEDS(tbl *filing.Table, model Model, targetYear int) (*EngineIPEDS, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}
	return &EngineIPEDS{
		tbl:        tbl,
		model:      model,
		targetYear: targetYear,
		subs:       make(map[string]SubsidiaryLink),
		master:     make(map[string]MasterRow),
	}, nil
}

// SetSubsidiaries installs the contamination links detected over the master
// table. Flagged institutions take the reserve-months solvency path.
func (e *EngineIPEDS) SetSubsidiaries(links map[string]SubsidiaryLink) {
	if links != nil {
		e.subs = links
	}
}

// AttachMaster associates an institution with its master-table row.
func (e *EngineIPEDS) AttachMaster(unitID string, row MasterRow) {
	e.master[unitID] = row
}

// Prepare backfills absent survey fields from the attached master rows.
// Must run before scoring; it is the only table mutation the engine makes.
func (e *EngineIPEDS) Prepare() {
	filled := 0
	for uid, row := range e.master {
		ent := e.tbl.Entity(uid)
		if ent == nil {
			continue
		}
		filled += ent.InjectFills(row.Num, e.targetYear)
	}
	zap.L().Info("injected master backfills",
		zap.Int("fields_filled", filled),
		zap.Int("institutions", len(e.master)),
	)
}

// financial routes a metric to the column set of the institution's
// accounting standard. IRS990-backfilled institutions report on the FASB
// columns. An empty field name means the standard never reports the metric.
func financial(fy *filing.Year, std filing.Standard, fasbField, gasbField, fpField string) optval.Float {
	var field string
	switch std {
	case filing.GASB:
		field = gasbField
	case filing.ForProfit:
		field = fpField
	default:
		field = fasbField
	}
	if field == "" {
		return optval.Absent()
	}
	return fy.Num(field)
}

func ipedsAssets(fy *filing.Year, std filing.Standard) optval.Float {
	return financial(fy, std, "f2_total_assets", "f1a_total_assets", "f3_total_assets")
}

func ipedsLiabilities(fy *filing.Year, std filing.Standard) optval.Float {
	return financial(fy, std, "f2_total_liabilities", "f1a_total_liabilities", "f3_total_liabilities")
}

func ipedsNetAssets(fy *filing.Year, std filing.Standard) optval.Float {
	return financial(fy, std, "f2_total_net_assets", "f1a_net_position", "f3_total_equity")
}

func ipedsRevenue(fy *filing.Year, std filing.Standard) optval.Float {
	return financial(fy, std, "f2_total_revenues", "f1a_total_revenues", "f3_total_revenues")
}

// ipedsExpenses resolves total expenses. GASB extracts carry no expense
// total, so it is derived from revenue minus operating income.
func ipedsExpenses(fy *filing.Year, std filing.Standard) optval.Float {
	if std == filing.GASB {
		return fy.Num("f1a_total_revenues").Sub(fy.Num("f1a_operating_income"))
	}
	return financial(fy, std, "f2_total_expenses", "", "f3_total_expenses")
}

// ScoreEntity scores one UNITID for one survey year.
func (e *EngineIPEDS) ScoreEntity(unitID string, year int) (*Record, error) {
	ent := e.tbl.Entity(unitID)
	if ent == nil {
		return nil, eris.Errorf("distress: no survey data for UNITID %s", unitID)
	}
	fy := ent.Year(year)
	if fy == nil {
		return nil, eris.Errorf("distress: UNITID %s has no survey year %d", unitID, year)
	}
	std := ent.Standard

	link, isSub := e.subs[unitID]

	var solvencyRes map[string]IndicatorResult
	var naMonths optval.Float
	if isSub {
		solvencyRes, naMonths = e.solvencySubsidiary(unitID, fy, std)
	} else {
		solvencyRes = e.solvencyStandard(fy, std)
	}

	chg3yr := e.enrollmentChangeDirect(unitID, ent, year)
	enrollRes := e.enrollment(unitID, ent, fy, std, year, chg3yr)

	results := domainResults{
		DomainSolvency:   solvencyRes,
		DomainLiquidity:  e.liquidity(fy),
		DomainOperating:  e.operating(fy, std),
		DomainEnrollment: enrollRes,
		DomainAcademic:   e.academic(fy),
		DomainDemand:     e.demand(fy),
		DomainTrend:      e.trends(ent, year, std),
	}

	cliff := cliffMultiplier(fy.Num("total_enrollment"), chg3yr)

	domainScores := make(map[string]optval.Float, len(e.model.Domains))
	for _, d := range e.model.Domains {
		ds := domainScore(d, results[d.Name])
		if d.Name == DomainEnrollment && cliff > 1.0 {
			if v, ok := ds.Get(); ok {
				ds = optval.Of(min(v*cliff, 100))
			}
		}
		domainScores[d.Name] = ds.Round(1)
	}

	comp := composite(e.model, domainScores)
	scored, total := countIndicators(results)
	insufficient := scored < e.model.MinIndicators
	if insufficient {
		comp = optval.Absent()
	}
	preFloor := comp.Round(1)

	var enrollFloor, revFloor bool
	var severity string
	if !insufficient {
		trend1yr := results[DomainEnrollment]["enrollment_trend_1yr"].Raw
		comp, enrollFloor, severity = applyEnrollmentFloor(
			comp, domainScores[DomainEnrollment], chg3yr, trend1yr,
			fy.Num("total_enrollment"), std, isSub,
		)
		comp, revFloor = applyRevenueFloor(comp, e.revenueChangePct(unitID), isSub)
	}
	comp = comp.Round(1)

	rec := &Record{
		EntityID:         unitID,
		Year:             year,
		Standard:         std.String(),
		Score:            comp,
		PrefloorScore:    preFloor,
		Category:         Categorize(comp),
		DomainScores:     domainScores,
		Raw:              roundRaw(results),
		IndicatorsScored: scored,
		IndicatorsTotal:  total,
		Completeness:     completeness(scored, total),
		CliffMultiplier:  cliff,
		EnrollmentChg3yr: chg3yr.Round(4),
		EnrollmentFloor:  enrollFloor,
		FloorSeverity:    severity,
		RevenueFloor:     revFloor,
		IsSubsidiary:     isSub,
	}
	if isSub {
		rec.ParentID = link.ParentID
		rec.ParentName = link.ParentName
		if naMonths.Valid() {
			rec.SolvencySource = "na_months"
			rec.NAMonths = naMonths.Round(1)
		}
	}
	return rec, nil
}

func (e *EngineIPEDS) solvencyStandard(fy *filing.Year, std filing.Standard) map[string]IndicatorResult {
	r := make(map[string]IndicatorResult)
	m := e.model

	assets := ipedsAssets(fy, std)
	liabilities := ipedsLiabilities(fy, std)
	netAssets := ipedsNetAssets(fy, std)
	expenses := ipedsExpenses(fy, std)
	revenue := ipedsRevenue(fy, std)

	// IPEDS publishes the equity ratio as a percentage for FASB and GASB
	// reporters; the other standards derive it from the balance sheet.
	var eqRatio optval.Float
	switch std {
	case filing.GASB:
		eqRatio = fy.Num("equity_ratio_gasb").Scale(0.01)
	case filing.ForProfit:
		eqRatio = fy.Num("f3_total_equity").Div(fy.Num("f3_total_assets"))
	case filing.IRS990:
		eqRatio = fy.Num("f2_total_net_assets").Div(fy.Num("f2_total_assets"))
	default:
		eqRatio = fy.Num("equity_ratio_fasb").Scale(0.01)
	}
	r["equity_ratio"] = IndicatorResult{Raw: eqRatio, Score: m.score("equity_ratio", eqRatio)}

	cushion := fy.Num("f2_unrestricted_na").Div(expenses)
	r["unrestricted_cushion"] = IndicatorResult{Raw: cushion, Score: m.score("unrestricted_cushion", cushion)}

	debtRatio := liabilities.Div(assets)
	r["debt_ratio"] = IndicatorResult{Raw: debtRatio, Score: m.score("debt_ratio", debtRatio)}

	expendable := financial(fy, std, "f2_expendable_na", "f1a_expendable_na", "")
	denom := expenses
	if !denom.Valid() {
		denom = assets
	}
	expRatio := expendable.Div(denom)
	r["expendable_na_ratio"] = IndicatorResult{Raw: expRatio, Score: m.score("expendable_na_ratio", expRatio)}

	debtPPE := financial(fy, std, "f2_debt_ppe", "", "f3_debt_ppe")
	ppe := financial(fy, std, "f2_ppe", "", "f3_ppe")
	d2p := debtPPE.Div(ppe)
	r["debt_to_ppe"] = IndicatorResult{Raw: d2p, Score: m.score("debt_to_ppe", d2p)}

	r["revenue_runway"] = IndicatorResult{}
	if na, ok := netAssets.Get(); ok {
		if rev, ok := revenue.Get(); ok && rev > 0 {
			if exp, ok := expenses.Get(); ok {
				loss := exp - rev
				switch {
				case loss > 0 && na > 0:
					runway := optval.Of(na / loss)
					r["revenue_runway"] = IndicatorResult{Raw: runway, Score: m.score("revenue_runway", runway)}
				case loss > 0:
					// Burning cash with nothing left to burn.
					r["revenue_runway"] = IndicatorResult{Raw: optval.Of(0.0), Score: m.score("revenue_runway", optval.Of(0.0))}
				}
				// Operating at or above breakeven: runway is not the binding
				// constraint, leave it unscored.
			}
		}
	}
	return r
}

// solvencySubsidiary scores solvency from months of net-asset reserve. The
// balance sheet on a contaminated subsidiary is the parent's, so the ratio
// indicators would all describe the wrong institution; reserve months against
// the subsidiary's own expense base is the one solvency read that survives.
func (e *EngineIPEDS) solvencySubsidiary(unitID string, fy *filing.Year, std filing.Standard) (map[string]IndicatorResult, optval.Float) {
	r := map[string]IndicatorResult{
		"equity_ratio":         {},
		"unrestricted_cushion": {},
		"debt_ratio":           {},
		"expendable_na_ratio":  {},
		"debt_to_ppe":          {},
		"revenue_runway":       {},
	}

	netAssets := e.masterNum(unitID, "net_assets_", e.targetYear, e.targetYear-1)
	expenses := e.masterNum(unitID, "expenses_", e.targetYear, e.targetYear-1)
	if !netAssets.Valid() {
		netAssets = ipedsNetAssets(fy, std)
	}
	if !expenses.Valid() {
		expenses = ipedsExpenses(fy, std)
	}

	na, ok1 := netAssets.Get()
	exp, ok2 := expenses.Get()
	if !ok1 || !ok2 || exp <= 0 {
		return r, optval.Absent()
	}
	months := na / (exp / 12)
	r["revenue_runway"] = IndicatorResult{
		Raw:   optval.Of(months),
		Score: optval.Of(naMonthsScore(months) / 100),
	}
	return r, optval.Of(months)
}

func (e *EngineIPEDS) liquidity(fy *filing.Year) map[string]IndicatorResult {
	r := make(map[string]IndicatorResult)
	m := e.model

	r["days_cash"] = IndicatorResult{}
	if unr, ok := fy.Num("f2_unrestricted_na").Get(); ok {
		if exp, ok := fy.Num("f2_total_expenses").Get(); ok && exp > 0 {
			days := optval.Of(max(0, unr/exp*365))
			r["days_cash"] = IndicatorResult{Raw: days, Score: m.score("days_cash", days)}
		}
	}

	endow := fy.Num("endowment_per_fte")
	r["endowment_cushion"] = IndicatorResult{Raw: endow, Score: m.score("endowment_cushion", endow)}
	return r
}

func (e *EngineIPEDS) operating(fy *filing.Year, std filing.Standard) map[string]IndicatorResult {
	r := make(map[string]IndicatorResult)
	m := e.model

	revenue := ipedsRevenue(fy, std)
	expenses := ipedsExpenses(fy, std)

	r["operating_margin"] = IndicatorResult{}
	if rev, ok := revenue.Get(); ok && rev != 0 {
		if exp, ok := expenses.Get(); ok {
			margin := optval.Of((rev - exp) / abs(rev))
			r["operating_margin"] = IndicatorResult{Raw: margin, Score: m.score("operating_margin", margin)}
		}
	}

	instruction := financial(fy, std, "f2_instruction", "f1a_instruction", "f3_instruction")
	instrRatio := instruction.Div(expenses)
	r["instruction_ratio"] = IndicatorResult{Raw: instrRatio, Score: m.score("instruction_ratio", instrRatio)}

	adminSupport := financial(fy, std, "f2_institutional_support", "", "f3_institutional_support")
	adminRatio := adminSupport.Div(expenses)
	r["admin_overhead_ratio"] = IndicatorResult{Raw: adminRatio, Score: m.score("admin_overhead_ratio", adminRatio)}

	var tuitionPct optval.Float
	switch std {
	case filing.GASB:
		tuitionPct = fy.Num("tuition_pct_gasb")
	case filing.ForProfit:
		tuitionPct = fy.Num("f3_tuition_fees").Div(revenue).Scale(100)
	default:
		tuitionPct = fy.Num("tuition_pct_fasb")
	}
	r["tuition_dependency"] = IndicatorResult{Raw: tuitionPct, Score: m.score("tuition_dependency", tuitionPct)}
	return r
}

func (e *EngineIPEDS) enrollment(unitID string, ent *filing.Entity, fy *filing.Year, std filing.Standard, year int, chg3yr optval.Float) map[string]IndicatorResult {
	r := map[string]IndicatorResult{
		"enrollment_trend_1yr": {},
		"enrollment_trend_4yr": {},
		"enrollment_chg_3yr":   {Raw: chg3yr, Score: e.model.score("enrollment_chg_3yr", chg3yr)},
		"ft_share":             {},
		"enrollment_size":      {},
		"revenue_per_student":  {},
	}
	m := e.model

	enroll := fy.Num("total_enrollment")

	if enroll.Valid() {
		for _, py := range ent.PriorYears(year) {
			prior := ent.Year(py).Num("total_enrollment")
			if !prior.Valid() {
				continue
			}
			t1 := annualizedChange(enroll, prior, year-py)
			r["enrollment_trend_1yr"] = IndicatorResult{Raw: t1, Score: m.score("enrollment_trend_1yr", t1)}
			break
		}
		for _, oy := range ent.Years() {
			if oy >= year {
				break
			}
			base := ent.Year(oy).Num("total_enrollment")
			if !base.Valid() {
				continue
			}
			t4 := annualizedChange(enroll, base, year-oy)
			r["enrollment_trend_4yr"] = IndicatorResult{Raw: t4, Score: m.score("enrollment_trend_4yr", t4)}
			break
		}
	}

	if en, ok := enroll.Get(); ok && en > 0 {
		ftShare := fy.Num("ft_enrollment").Div(enroll)
		r["ft_share"] = IndicatorResult{Raw: ftShare, Score: m.score("ft_share", ftShare)}

		// Small schools have no scale to absorb a bad year. Stepped rather
		// than interpolated; crossing a size band is the event.
		var size float64
		switch {
		case en >= 1000:
			size = 0.0
		case en >= 500:
			size = 0.2
		case en >= 200:
			size = 0.5
		case en >= 50:
			size = 0.7
		default:
			size = 0.9
		}
		r["enrollment_size"] = IndicatorResult{Raw: enroll, Score: optval.Of(size)}

		rps := ipedsRevenue(fy, std).Div(enroll)
		r["revenue_per_student"] = IndicatorResult{Raw: rps, Score: m.score("revenue_per_student", rps)}
	}
	return r
}

func (e *EngineIPEDS) academic(fy *filing.Year) map[string]IndicatorResult {
	r := make(map[string]IndicatorResult)
	m := e.model

	retention := fy.Num("ft_retention_rate")
	r["retention_rate"] = IndicatorResult{Raw: retention, Score: m.score("retention_rate", retention)}

	grad := fy.Num("graduation_rate")
	r["graduation_rate"] = IndicatorResult{Raw: grad, Score: m.score("graduation_rate", grad)}

	sfr := fy.Num("student_faculty_ratio")
	r["student_faculty_ratio"] = IndicatorResult{Raw: sfr, Score: m.score("student_faculty_ratio", sfr)}
	return r
}

func (e *EngineIPEDS) demand(fy *filing.Year) map[string]IndicatorResult {
	r := make(map[string]IndicatorResult)
	m := e.model

	yield := fy.Num("admissions_yield")
	r["admissions_yield"] = IndicatorResult{Raw: yield, Score: m.score("admissions_yield", yield)}

	admitted := fy.Num("percent_admitted")
	r["selectivity"] = IndicatorResult{Raw: admitted, Score: m.score("selectivity", admitted)}
	return r
}

func (e *EngineIPEDS) trends(ent *filing.Entity, year int, std filing.Standard) map[string]IndicatorResult {
	r := map[string]IndicatorResult{
		"revenue_trend":   {},
		"net_asset_trend": {},
		"retention_trend": {},
		"staff_trend":     {},
		"salary_trend":    {},
	}
	m := e.model

	current := ent.Year(year)
	priors := ent.PriorYears(year)
	if current == nil || len(priors) == 0 {
		return r
	}
	prior := ent.Year(priors[0])
	gap := year - priors[0]

	revChange := positiveAnnualizedChange(ipedsRevenue(current, std), ipedsRevenue(prior, std), gap)
	r["revenue_trend"] = IndicatorResult{Raw: revChange, Score: m.score("revenue_trend", revChange)}

	naChange := netAssetChange(ipedsNetAssets(current, std), ipedsNetAssets(prior, std), gap)
	r["net_asset_trend"] = IndicatorResult{Raw: naChange, Score: m.score("net_asset_trend", naChange)}

	// Retention moves in percentage points per year, not geometric rates.
	retChange := current.Num("ft_retention_rate").
		Sub(prior.Num("ft_retention_rate")).
		Scale(1 / float64(gap))
	r["retention_trend"] = IndicatorResult{Raw: retChange, Score: m.score("retention_trend", retChange)}

	staffChange := positiveAnnualizedChange(current.Num("total_fte_staff"), prior.Num("total_fte_staff"), gap)
	r["staff_trend"] = IndicatorResult{Raw: staffChange, Score: m.score("staff_trend", staffChange)}

	salaryChange := positiveAnnualizedChange(current.Num("avg_salary"), prior.Num("avg_salary"), gap)
	r["salary_trend"] = IndicatorResult{Raw: salaryChange, Score: m.score("salary_trend", salaryChange)}
	return r
}

// cliffMultiplier amplifies enrollment-health distress for very small
// schools in steep decline. Scales up to 1.4x as enrollment falls from 500
// toward 200 and the three-year decline deepens from 20% toward 40%.
func cliffMultiplier(enrollment, chg3yr optval.Float) float64 {
	en, ok1 := enrollment.Get()
	chg, ok2 := chg3yr.Get()
	if !ok1 || !ok2 || en >= 500 || chg >= -0.20 {
		return 1.0
	}
	sizeFactor := (500 - en) / 300
	declineFactor := (-chg - 0.20) / 0.20
	return 1 + 0.4*min(sizeFactor*declineFactor, 1)
}

// enrollmentChangeDirect computes the raw multi-year enrollment change as a
// fraction: master flat columns when present, otherwise the survey series
// against a base year at least three years back.
func (e *EngineIPEDS) enrollmentChangeDirect(unitID string, ent *filing.Entity, year int) optval.Float {
	if row := e.master[unitID]; row != nil {
		curr := row.Num("enrollment_" + strconv.Itoa(e.targetYear))
		base := row.Num("enrollment_" + strconv.Itoa(e.targetYear-2))
		if c, ok := curr.Get(); ok {
			if b, ok := base.Get(); ok && b > 0 {
				return optval.Of((c - b) / b)
			}
		}
	}

	curr := ent.Year(year).Num("total_enrollment")
	if !curr.Valid() {
		return optval.Absent()
	}
	for _, py := range ent.PriorYears(year - 2) {
		base := ent.Year(py).Num("total_enrollment")
		if b, ok := base.Get(); ok && b > 0 {
			return optval.Of((curr.Value() - b) / b)
		}
	}
	return optval.Absent()
}

// revenueChangePct computes the two-year revenue change in percent from the
// master flat columns. Feeds the subsidiary revenue floor.
func (e *EngineIPEDS) revenueChangePct(unitID string) optval.Float {
	row := e.master[unitID]
	if row == nil {
		return optval.Absent()
	}
	curr := row.Num("revenue_" + strconv.Itoa(e.targetYear))
	base := row.Num("revenue_" + strconv.Itoa(e.targetYear-2))
	c, ok1 := curr.Get()
	b, ok2 := base.Get()
	if !ok1 || !ok2 || b == 0 {
		return optval.Absent()
	}
	return optval.Of((c - b) / abs(b) * 100)
}

// masterNum reads the first present value among year-suffixed master columns.
func (e *EngineIPEDS) masterNum(unitID, prefix string, years ...int) optval.Float {
	row := e.master[unitID]
	if row == nil {
		return optval.Absent()
	}
	for _, y := range years {
		if v := row.Num(prefix + strconv.Itoa(y)); v.Valid() {
			return v
		}
	}
	return optval.Absent()
}

// LikelyClosed reports institutions with no recent data footprint anywhere:
// no enrollment and no financial total in the target or prior survey year,
// and nothing in the master flat columns either. These are excluded from
// scoring rather than shown as Insufficient Data; absence of every signal is
// closure, not missingness.
func (e *EngineIPEDS) LikelyClosed(unitID string) bool {
	ent := e.tbl.Entity(unitID)
	if ent != nil {
		for _, yr := range []int{e.targetYear, e.targetYear - 1} {
			if ent.Usable(yr) {
				return false
			}
		}
	}
	for _, yr := range []int{e.targetYear, e.targetYear - 1} {
		if e.masterNum(unitID, "revenue_", yr).Valid() {
			return false
		}
		if e.masterNum(unitID, "enrollment_", yr).Valid() {
			return false
		}
	}
	return true
}

// closedRecord is the placeholder emitted for a likely-closed institution.
func closedRecord(unitID string) *Record {
	return &Record{
		EntityID:        unitID,
		Category:        CategoryInsufficient,
		CliffMultiplier: 1.0,
		LikelyClosed:    true,
	}
}

// ScoreAll backfills from master rows, then scores every institution for the
// target year on a bounded worker pool. An institution missing the target
// year scores on its most recent usable year, falling back up to two years;
// one with no usable recent year and no master footprint is emitted as
// likely closed.
func (e *EngineIPEDS) ScoreAll(ctx context.Context, workers int) ([]Record, error) {
	e.Prepare()

	ids := e.tbl.IDs()
	out := make([]*Record, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, uid := range ids {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if e.LikelyClosed(uid) {
				out[i] = closedRecord(uid)
				return nil
			}
			ent := e.tbl.Entity(uid)
			years := ent.Years()
			if len(years) == 0 {
				out[i] = closedRecord(uid)
				return nil
			}
			year := years[len(years)-1]
			if ent.Year(e.targetYear) != nil {
				year = e.targetYear
			}
			if !ent.Usable(year) {
				year = 0
				for _, fb := range []int{e.targetYear - 1, e.targetYear - 2} {
					if ent.Usable(fb) {
						year = fb
						break
					}
				}
				if year == 0 {
					out[i] = closedRecord(uid)
					return nil
				}
			}
			rec, err := e.ScoreEntity(uid, year)
			if err != nil {
				return err
			}
			out[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "distress: score ipeds batch")
	}

	recs := collect(out)
	scored, closed := 0, 0
	for i := range recs {
		if recs[i].LikelyClosed {
			closed++
		} else {
			scored++
		}
	}
	zap.L().Info("scored ipeds institutions",
		zap.Int("scored", scored),
		zap.Int("likely_closed", closed),
		zap.Int("target_year", e.targetYear),
	)
	return recs, nil
}

// ScoreAllYears scores every (institution, usable year) pair for
// longitudinal export. Likely-closed filtering does not apply; history is
// history.
func (e *EngineIPEDS) ScoreAllYears(ctx context.Context, workers int) ([]Record, error) {
	e.Prepare()

	ids := e.tbl.IDs()

	g, ctx := errgroup.WithContext(ctx)
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	var mu sync.Mutex
	var recs []Record
	for _, uid := range ids {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			ent := e.tbl.Entity(uid)
			for _, year := range ent.Years() {
				if !ent.Usable(year) {
					continue
				}
				rec, err := e.ScoreEntity(uid, year)
				if err != nil {
					return err
				}
				mu.Lock()
				recs = append(recs, *rec)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "distress: score ipeds history")
	}
	sortRecords(recs)
	return recs, nil
}
