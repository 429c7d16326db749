package distress

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hummingbird-research/distress-cli/internal/filing"
	"github.com/hummingbird-research/distress-cli/internal/optval"
)

// Engine990 scores IRS 990 filers. The filing table is read-only once the
// engine is constructed; scoring is safe to parallelize.
type Engine990 struct {
	tbl   *filing.Table
	model Model
}

// NewEngine990 validates the model and returns an engine over the table.
func NewEngine990(tbl *filing.Table, model Model) (*Engine990, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}
	return &Engine990{tbl: tbl, model: model}, nil
}

// ScoreEntity scores one EIN for one filing year.
func (e *Engine990) ScoreEntity(ein string, year int) (*Record, error) {
	ent := e.tbl.Entity(ein)
	if ent == nil {
		return nil, eris.Errorf("distress: no filings for EIN %s", ein)
	}
	fy := ent.Year(year)
	if fy == nil {
		return nil, eris.Errorf("distress: EIN %s has no filing for %d", ein, year)
	}
	std := ent.Standard

	results := domainResults{
		DomainSolvency:  e.solvency(fy, std),
		DomainLiquidity: e.liquidity(fy, std),
		DomainOperating: e.operating(fy, std),
		DomainTrend:     e.trends(ent, year),
		DomainRedFlags:  e.redFlags(fy, std),
	}

	domainScores := make(map[string]optval.Float, len(e.model.Domains))
	for _, d := range e.model.Domains {
		domainScores[d.Name] = domainScore(d, results[d.Name]).Round(1)
	}

	comp := composite(e.model, domainScores)
	scored, total := countIndicators(results)
	if scored < e.model.MinIndicators {
		comp = optval.Absent()
	}
	comp = comp.Round(1)

	return &Record{
		EntityID:         ein,
		Year:             year,
		Standard:         std.String(),
		Score:            comp,
		PrefloorScore:    comp,
		Category:         Categorize(comp),
		DomainScores:     domainScores,
		Raw:              roundRaw(results),
		IndicatorsScored: scored,
		IndicatorsTotal:  total,
		Completeness:     completeness(scored, total),
		CliffMultiplier:  1.0,
	}, nil
}

// ScoreAll scores every entity for the target year, falling back to its
// most recent filing year when the target is missing. Scoring runs on a
// bounded worker pool; the table is only read.
func (e *Engine990) ScoreAll(ctx context.Context, targetYear, workers int) ([]Record, error) {
	ids := e.tbl.IDs()
	out := make([]*Record, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, ein := range ids {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			ent := e.tbl.Entity(ein)
			years := ent.Years()
			if len(years) == 0 {
				return nil
			}
			year := years[len(years)-1]
			if ent.Year(targetYear) != nil {
				year = targetYear
			}
			rec, err := e.ScoreEntity(ein, year)
			if err != nil {
				return err
			}
			out[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "distress: score 990 batch")
	}

	recs := collect(out)
	zap.L().Info("scored 990 filers",
		zap.Int("entities", len(recs)),
		zap.Int("target_year", targetYear),
	)
	return recs, nil
}

// ScoreAllYears scores every (entity, year) pair for longitudinal export.
func (e *Engine990) ScoreAllYears(ctx context.Context, workers int) ([]Record, error) {
	ids := e.tbl.IDs()

	g, ctx := errgroup.WithContext(ctx)
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	var mu sync.Mutex
	var recs []Record
	for _, ein := range ids {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			ent := e.tbl.Entity(ein)
			for _, year := range ent.Years() {
				rec, err := e.ScoreEntity(ein, year)
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
		return nil, eris.Wrap(err, "distress: score 990 history")
	}
	sortRecords(recs)
	return recs, nil
}

func (e *Engine990) solvency(fy *filing.Year, std filing.Standard) map[string]IndicatorResult {
	r := make(map[string]IndicatorResult)
	m := e.model

	assets := fy.Num("total_assets")
	netAssets := fy.Num("total_net_assets")
	equityRatio := netAssets.Div(assets)
	r["equity_ratio"] = IndicatorResult{Raw: equityRatio, Score: m.score("equity_ratio", equityRatio)}

	if m.available(DomainSolvency, "unrestricted_cushion", std) {
		cushion := fy.Num("unrestricted_net_assets").Div(fy.Num("total_expenses"))
		r["unrestricted_cushion"] = IndicatorResult{Raw: cushion, Score: m.score("unrestricted_cushion", cushion)}
	} else {
		r["unrestricted_cushion"] = IndicatorResult{}
	}

	debtRatio := fy.Num("total_liabilities").Div(assets)
	r["debt_ratio"] = IndicatorResult{Raw: debtRatio, Score: m.score("debt_ratio", debtRatio)}

	if m.available(DomainSolvency, "debt_to_fixed_assets", std) {
		totalDebt := fy.Num("secured_mortgages").Or(0) + fy.Num("unsecured_notes").Or(0)
		fixed := fy.Num("land_buildings_equipment")
		var d2fa optval.Float
		if f, ok := fixed.Get(); ok && f > 0 {
			d2fa = optval.Of(totalDebt / f)
		} else if totalDebt > 0 {
			// Long-term debt with no fixed asset base backs nothing.
			d2fa = optval.Of(2.0)
		} else {
			d2fa = optval.Of(0.0)
		}
		r["debt_to_fixed_assets"] = IndicatorResult{Raw: d2fa, Score: m.score("debt_to_fixed_assets", d2fa)}
	} else {
		r["debt_to_fixed_assets"] = IndicatorResult{}
	}
	return r
}

func (e *Engine990) liquidity(fy *filing.Year, std filing.Standard) map[string]IndicatorResult {
	r := make(map[string]IndicatorResult)
	m := e.model

	cash := fy.Num("cash")
	savings := fy.Num("savings_temp_investments").Or(0)
	expenses := fy.Num("total_expenses")

	if exp, ok := expenses.Get(); m.available(DomainLiquidity, "days_cash", std) && ok && exp > 0 {
		days := optval.Of((cash.Or(0) + savings) / exp * 365)
		r["days_cash"] = IndicatorResult{Raw: days, Score: m.score("days_cash", days)}
	} else {
		r["days_cash"] = IndicatorResult{}
	}

	// A reported cash balance gates the ratio. Receivables and short-term
	// liabilities default to zero, but a filing with no liquidity fields at
	// all stays unscored.
	if c, ok := cash.Get(); m.available(DomainLiquidity, "liquid_ratio", std) && ok {
		liquidAssets := c + savings + fy.Num("accounts_receivable").Or(0)
		shortTermLiab := fy.Num("accounts_payable").Or(0) + fy.Num("deferred_revenue").Or(0)
		var ratio optval.Float
		if shortTermLiab > 0 {
			ratio = optval.Of(liquidAssets / shortTermLiab)
		} else if liquidAssets > 0 {
			ratio = optval.Of(10.0)
		} else {
			ratio = optval.Of(0.0)
		}
		r["liquid_ratio"] = IndicatorResult{Raw: ratio, Score: m.score("liquid_ratio", ratio)}
	} else {
		r["liquid_ratio"] = IndicatorResult{}
	}

	if rev, ok := fy.Num("total_revenue").Get(); m.available(DomainLiquidity, "deferred_revenue_risk", std) && ok && rev > 0 {
		pct := optval.Of(fy.Num("deferred_revenue").Or(0) / rev)
		r["deferred_revenue_risk"] = IndicatorResult{Raw: pct, Score: m.score("deferred_revenue_risk", pct)}
	} else {
		r["deferred_revenue_risk"] = IndicatorResult{}
	}
	return r
}

func (e *Engine990) operating(fy *filing.Year, std filing.Standard) map[string]IndicatorResult {
	r := make(map[string]IndicatorResult)
	m := e.model

	revenue := fy.Num("total_revenue")
	expenses := fy.Num("total_expenses")

	r["operating_margin"] = IndicatorResult{}
	if rev, ok := revenue.Get(); ok && rev != 0 {
		if exp, ok := expenses.Get(); ok {
			margin := optval.Of((rev - exp) / abs(rev))
			r["operating_margin"] = IndicatorResult{Raw: margin, Score: m.score("operating_margin", margin)}
		}
	}

	r["program_revenue_ratio"] = IndicatorResult{}
	if rev, ok := revenue.Get(); m.available(DomainOperating, "program_revenue_ratio", std) && ok && rev > 0 {
		ratio := fy.Num("program_revenue").Or(0) / rev
		// Schools live on tuition: too little program revenue means donation
		// dependence, near-total means no diversification. Both are modest
		// step penalties, not interpolated.
		var score float64
		switch {
		case ratio < 0.10:
			score = 0.6
		case ratio > 0.90:
			score = 0.4
		default:
			score = 0.0
		}
		r["program_revenue_ratio"] = IndicatorResult{Raw: optval.Of(ratio), Score: optval.Of(score)}
	}

	r["revenue_concentration"] = IndicatorResult{}
	if rev, ok := revenue.Get(); m.available(DomainOperating, "revenue_concentration", std) && ok && rev > 0 {
		hhi := 0.0
		any := false
		for _, field := range []string{"contributions", "program_revenue", "investment_income"} {
			if v := fy.Num(field).Or(0); v > 0 {
				share := v / rev
				hhi += share * share
				any = true
			}
		}
		if any {
			raw := optval.Of(hhi)
			r["revenue_concentration"] = IndicatorResult{Raw: raw, Score: m.score("revenue_concentration", raw)}
		}
	}

	r["compensation_burden"] = IndicatorResult{}
	if exp, ok := expenses.Get(); m.available(DomainOperating, "compensation_burden", std) && ok && exp > 0 {
		totalComp := fy.Num("officer_compensation").Or(0) +
			fy.Num("other_salaries").Or(0) +
			fy.Num("pension_contributions").Or(0) +
			fy.Num("other_employee_benefits").Or(0) +
			fy.Num("payroll_tax").Or(0)
		ratio := totalComp / exp
		var score optval.Float
		switch {
		case ratio > 0.85:
			score = m.score("compensation_burden", optval.Of(ratio))
		case ratio < 0.10:
			// Almost no staff spending looks like a shell organization.
			score = optval.Of(0.5)
		default:
			score = optval.Of(0.0)
		}
		r["compensation_burden"] = IndicatorResult{Raw: optval.Of(ratio), Score: score}
	}
	return r
}

func (e *Engine990) trends(ent *filing.Entity, year int) map[string]IndicatorResult {
	r := map[string]IndicatorResult{
		"revenue_trend":      {},
		"net_asset_trend":    {},
		"expense_growth_gap": {},
		"employee_trend":     {},
	}
	m := e.model

	current := ent.Year(year)
	priors := ent.PriorYears(year)
	if current == nil || len(priors) == 0 {
		return r
	}
	prior := ent.Year(priors[0])
	gap := year - priors[0]

	revChange := annualizedChange(current.Num("total_revenue"), prior.Num("total_revenue"), gap)
	r["revenue_trend"] = IndicatorResult{Raw: revChange, Score: m.score("revenue_trend", revChange)}

	naChange := netAssetChange(current.Num("total_net_assets"), prior.Num("total_net_assets"), gap)
	r["net_asset_trend"] = IndicatorResult{Raw: naChange, Score: m.score("net_asset_trend", naChange)}

	expChange := annualizedChange(current.Num("total_expenses"), prior.Num("total_expenses"), gap)
	growthGap := expChange.Sub(revChange)
	r["expense_growth_gap"] = IndicatorResult{Raw: growthGap, Score: m.score("expense_growth_gap", growthGap)}

	if m.available(DomainTrend, "employee_trend", ent.Standard) {
		empChange := positiveAnnualizedChange(current.Num("employee_count"), prior.Num("employee_count"), gap)
		if !current.Num("employee_count").Valid() {
			empChange = optval.Absent()
		} else if c := current.Num("employee_count").Value(); c == 0 && prior.Num("employee_count").Or(0) > 0 {
			// Headcount went to zero; the geometric formula cannot say so.
			empChange = optval.Of(-1.0)
		}
		r["employee_trend"] = IndicatorResult{Raw: empChange, Score: m.score("employee_trend", empChange)}
	}
	return r
}

func (e *Engine990) redFlags(fy *filing.Year, std filing.Standard) map[string]IndicatorResult {
	r := make(map[string]IndicatorResult)
	m := e.model

	ceased := 0.0
	if fy.Flag("ceased_operations") {
		ceased = 1.0
	}
	r["ceased_operations"] = IndicatorResult{Score: optval.Of(ceased)}

	r["insider_loans"] = IndicatorResult{}
	if m.available(DomainRedFlags, "insider_loans", std) {
		insider := fy.Num("payable_to_officers").Or(0) + fy.Num("current_receivables_from_officers").Or(0)
		assets := fy.Num("total_assets").Or(1)
		score := 0.0
		if assets > 0 && insider > 0 {
			score = clamp01(insider / assets / 0.10)
		}
		r["insider_loans"] = IndicatorResult{Raw: optval.Of(insider), Score: optval.Of(score)}
	}

	r["fundraising_efficiency"] = IndicatorResult{}
	if m.available(DomainRedFlags, "fundraising_efficiency", std) {
		score := 0.0
		var raw optval.Float
		if contrib := fy.Num("contributions").Or(0); contrib > 0 {
			ratio := fy.Num("fundraising_fees").Or(0) / contrib
			score = clamp01(ratio / 0.50)
			raw = optval.Of(ratio)
		}
		r["fundraising_efficiency"] = IndicatorResult{Raw: raw, Score: optval.Of(score)}
	}

	r["asset_liquidation"] = IndicatorResult{}
	if m.available(DomainRedFlags, "asset_liquidation", std) {
		sold := 0.0
		if fy.Flag("sold_assets") {
			sold = 0.5
		}
		r["asset_liquidation"] = IndicatorResult{Score: optval.Of(sold)}
	}
	return r
}

// available reports whether an indicator applies to a filing type.
func (m Model) available(domain, indicator string, std filing.Standard) bool {
	for _, d := range m.Domains {
		if d.Name != domain {
			continue
		}
		for _, ind := range d.Indicators {
			if ind.Name == indicator {
				return ind.availableFor(std)
			}
		}
	}
	return false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// collect drops the nil slots left by unscoreable entities.
func collect(out []*Record) []Record {
	recs := make([]Record, 0, len(out))
	for _, r := range out {
		if r != nil {
			recs = append(recs, *r)
		}
	}
	return recs
}
