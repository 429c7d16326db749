// Package distress scores institutional financial distress on a 0-100 scale.
// Raw filing fields become per-indicator [0,1] distress sub-scores via
// calibrated threshold interpolation, roll up into weighted domain scores,
// and aggregate into a composite with renormalization over whatever data an
// entity actually filed.
package distress

import (
	"math"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/hummingbird-research/distress-cli/internal/filing"
)

// Threshold calibrates one indicator: raw values at or beyond Healthy score
// 0, at or beyond Distress score 1, linear in between. Invert flips the
// direction for metrics where higher is worse.
type Threshold struct {
	Healthy  float64 `yaml:"healthy"`
	Distress float64 `yaml:"distress"`
	Invert   bool    `yaml:"invert"`
}

// Indicator is one weighted metric inside a domain. Only holds the 990
// filing types that can supply its inputs; empty means all.
type Indicator struct {
	Name   string
	Weight float64
	Only   []filing.Standard
}

// availableFor reports whether the filing type carries this indicator's
// source fields.
func (i Indicator) availableFor(std filing.Standard) bool {
	if len(i.Only) == 0 {
		return true
	}
	for _, s := range i.Only {
		if s == std {
			return true
		}
	}
	return false
}

// Domain groups indicators under one weighted pillar of the composite.
type Domain struct {
	Name       string
	Weight     float64
	Indicators []Indicator
}

// Model is the immutable calibration for one scoring variant. Constructed
// once at startup, validated, then shared read-only across the scoring pool.
type Model struct {
	Name          string
	Domains       []Domain
	Thresholds    map[string]Threshold
	MinIndicators int
}

// Domain weight names used by floors and the cliff multiplier.
const (
	DomainSolvency   = "solvency"
	DomainLiquidity  = "liquidity"
	DomainOperating  = "operating_performance"
	DomainEnrollment = "enrollment_health"
	DomainAcademic   = "academic_outcomes"
	DomainDemand     = "demand"
	DomainTrend      = "trend"
	DomainRedFlags   = "red_flags"
)

// minIndicatorsDefault gates the composite: below this many scored
// indicators an entity reports Insufficient Data instead of a score.
const minIndicatorsDefault = 4

func (m Model) threshold(name string) (Threshold, bool) {
	th, ok := m.Thresholds[name]
	return th, ok
}

// Validate checks that domain weights and each domain's indicator weights
// sum to 1.0 within 1e-9, collecting all violations.
func (m Model) Validate() error {
	var errs []string
	domainSum := 0.0
	for _, d := range m.Domains {
		domainSum += d.Weight
		indSum := 0.0
		for _, ind := range d.Indicators {
			if ind.Weight < 0 {
				errs = append(errs, "indicator "+d.Name+"."+ind.Name+" has negative weight")
			}
			indSum += ind.Weight
		}
		if math.Abs(indSum-1.0) > 1e-9 {
			errs = append(errs, "domain "+d.Name+" indicator weights do not sum to 1.0")
		}
	}
	if math.Abs(domainSum-1.0) > 1e-9 {
		errs = append(errs, "domain weights do not sum to 1.0")
	}
	if m.MinIndicators < 1 {
		errs = append(errs, "min indicators must be at least 1")
	}
	if len(errs) == 0 {
		return nil
	}
	msg := errs[0]
	for _, e := range errs[1:] {
		msg += "; " + e
	}
	return eris.Errorf("distress: invalid model %s: %s", m.Name, msg)
}

// modelOverrides is the YAML shape for recalibrating a model without a
// rebuild. Any omitted value keeps its default.
type modelOverrides struct {
	MinIndicators *int `yaml:"min_indicators"`
	Domains       map[string]struct {
		Weight     *float64           `yaml:"weight"`
		Indicators map[string]float64 `yaml:"indicators"`
	} `yaml:"domains"`
	Thresholds map[string]Threshold `yaml:"thresholds"`
}

// ApplyOverrides merges a YAML calibration file into the model and
// revalidates. Unknown domain or indicator names are an error so typos do
// not silently leave defaults in place.
func (m *Model) ApplyOverrides(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "distress: read overrides %s", path)
	}
	var ov modelOverrides
	if err := yaml.Unmarshal(raw, &ov); err != nil {
		return eris.Wrapf(err, "distress: parse overrides %s", path)
	}

	if ov.MinIndicators != nil {
		m.MinIndicators = *ov.MinIndicators
	}
	for name, dov := range ov.Domains {
		idx := -1
		for i := range m.Domains {
			if m.Domains[i].Name == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return eris.Errorf("distress: override for unknown domain %q", name)
		}
		if dov.Weight != nil {
			m.Domains[idx].Weight = *dov.Weight
		}
		for indName, w := range dov.Indicators {
			found := false
			for j := range m.Domains[idx].Indicators {
				if m.Domains[idx].Indicators[j].Name == indName {
					m.Domains[idx].Indicators[j].Weight = w
					found = true
					break
				}
			}
			if !found {
				return eris.Errorf("distress: override for unknown indicator %q in domain %q", indName, name)
			}
		}
	}
	for name, th := range ov.Thresholds {
		if _, ok := m.Thresholds[name]; !ok {
			return eris.Errorf("distress: override for unknown threshold %q", name)
		}
		m.Thresholds[name] = th
	}
	return m.Validate()
}

// Model990 returns the calibrated model for IRS 990 filers.
func Model990() Model {
	std := []filing.Standard{filing.Standard990}
	stdEZ := []filing.Standard{filing.Standard990, filing.EZ990}
	stdPF := []filing.Standard{filing.Standard990, filing.PF990}

	return Model{
		Name:          "990",
		MinIndicators: minIndicatorsDefault,
		Domains: []Domain{
			{Name: DomainSolvency, Weight: 0.30, Indicators: []Indicator{
				{Name: "equity_ratio", Weight: 0.35},
				{Name: "unrestricted_cushion", Weight: 0.30, Only: std},
				{Name: "debt_ratio", Weight: 0.20},
				{Name: "debt_to_fixed_assets", Weight: 0.15, Only: std},
			}},
			{Name: DomainLiquidity, Weight: 0.20, Indicators: []Indicator{
				{Name: "days_cash", Weight: 0.40, Only: stdPF},
				{Name: "liquid_ratio", Weight: 0.35, Only: std},
				{Name: "deferred_revenue_risk", Weight: 0.25, Only: std},
			}},
			{Name: DomainOperating, Weight: 0.25, Indicators: []Indicator{
				{Name: "operating_margin", Weight: 0.40},
				{Name: "program_revenue_ratio", Weight: 0.25, Only: stdEZ},
				{Name: "revenue_concentration", Weight: 0.20, Only: stdEZ},
				{Name: "compensation_burden", Weight: 0.15, Only: std},
			}},
			{Name: DomainTrend, Weight: 0.20, Indicators: []Indicator{
				{Name: "revenue_trend", Weight: 0.30},
				{Name: "net_asset_trend", Weight: 0.30},
				{Name: "expense_growth_gap", Weight: 0.20},
				{Name: "employee_trend", Weight: 0.20, Only: std},
			}},
			{Name: DomainRedFlags, Weight: 0.05, Indicators: []Indicator{
				{Name: "ceased_operations", Weight: 0.30},
				{Name: "insider_loans", Weight: 0.20, Only: std},
				{Name: "fundraising_efficiency", Weight: 0.25, Only: std},
				{Name: "asset_liquidation", Weight: 0.25, Only: std},
			}},
		},
		Thresholds: map[string]Threshold{
			"equity_ratio":          {Healthy: 0.40, Distress: -0.10},
			"unrestricted_cushion":  {Healthy: 0.25, Distress: -0.10},
			"debt_ratio":            {Healthy: 0.50, Distress: 1.0, Invert: true},
			"debt_to_fixed_assets":  {Healthy: 0.60, Distress: 1.50, Invert: true},
			"days_cash":             {Healthy: 90, Distress: 15},
			"liquid_ratio":          {Healthy: 1.5, Distress: 0.5},
			"deferred_revenue_risk": {Healthy: 0.15, Distress: 0.50, Invert: true},
			"operating_margin":      {Healthy: 0.05, Distress: -0.20},
			"revenue_concentration": {Healthy: 0.50, Distress: 0.90, Invert: true},
			"compensation_burden":   {Healthy: 0.65, Distress: 0.90, Invert: true},
			"revenue_trend":         {Healthy: 0.0, Distress: -0.15},
			"net_asset_trend":       {Healthy: 0.0, Distress: -0.10},
			"expense_growth_gap":    {Healthy: 0.0, Distress: 0.10, Invert: true},
			"employee_trend":        {Healthy: -0.02, Distress: -0.20},
		},
	}
}

// ModelIPEDS returns the calibrated model for IPEDS-reporting institutions.
func ModelIPEDS() Model {
	return Model{
		Name:          "ipeds",
		MinIndicators: minIndicatorsDefault,
		Domains: []Domain{
			// The calibrated solvency table sums to 1.1; the divisor rescales
			// it to the unit sum Validate requires without changing the
			// indicator ratios.
			{Name: DomainSolvency, Weight: 0.15, Indicators: []Indicator{
				{Name: "equity_ratio", Weight: 0.28 / 1.1},
				{Name: "unrestricted_cushion", Weight: 0.22 / 1.1},
				{Name: "debt_ratio", Weight: 0.18 / 1.1},
				{Name: "expendable_na_ratio", Weight: 0.17 / 1.1},
				{Name: "debt_to_ppe", Weight: 0.10 / 1.1},
				{Name: "revenue_runway", Weight: 0.15 / 1.1},
			}},
			{Name: DomainLiquidity, Weight: 0.10, Indicators: []Indicator{
				{Name: "days_cash", Weight: 0.50},
				{Name: "endowment_cushion", Weight: 0.50},
			}},
			{Name: DomainOperating, Weight: 0.15, Indicators: []Indicator{
				{Name: "operating_margin", Weight: 0.35},
				{Name: "instruction_ratio", Weight: 0.20},
				{Name: "admin_overhead_ratio", Weight: 0.20},
				{Name: "tuition_dependency", Weight: 0.25},
			}},
			{Name: DomainEnrollment, Weight: 0.25, Indicators: []Indicator{
				{Name: "enrollment_trend_1yr", Weight: 0.20},
				{Name: "enrollment_trend_4yr", Weight: 0.15},
				{Name: "enrollment_chg_3yr", Weight: 0.20},
				{Name: "ft_share", Weight: 0.15},
				{Name: "enrollment_size", Weight: 0.10},
				{Name: "revenue_per_student", Weight: 0.20},
			}},
			{Name: DomainAcademic, Weight: 0.15, Indicators: []Indicator{
				{Name: "retention_rate", Weight: 0.40},
				{Name: "graduation_rate", Weight: 0.35},
				{Name: "student_faculty_ratio", Weight: 0.25},
			}},
			{Name: DomainDemand, Weight: 0.10, Indicators: []Indicator{
				{Name: "admissions_yield", Weight: 0.50},
				{Name: "selectivity", Weight: 0.50},
			}},
			{Name: DomainTrend, Weight: 0.10, Indicators: []Indicator{
				{Name: "revenue_trend", Weight: 0.25},
				{Name: "net_asset_trend", Weight: 0.25},
				{Name: "retention_trend", Weight: 0.20},
				{Name: "staff_trend", Weight: 0.15},
				{Name: "salary_trend", Weight: 0.15},
			}},
		},
		Thresholds: map[string]Threshold{
			"equity_ratio":          {Healthy: 0.40, Distress: -0.10},
			"unrestricted_cushion":  {Healthy: 0.25, Distress: -0.10},
			"debt_ratio":            {Healthy: 0.50, Distress: 1.0, Invert: true},
			"expendable_na_ratio":   {Healthy: 0.30, Distress: -0.05},
			"debt_to_ppe":           {Healthy: 0.50, Distress: 1.20, Invert: true},
			"revenue_runway":        {Healthy: 10.0, Distress: 2.0},
			"days_cash":             {Healthy: 90, Distress: 15},
			"endowment_cushion":     {Healthy: 10000, Distress: 500},
			"operating_margin":      {Healthy: 0.05, Distress: -0.15},
			"instruction_ratio":     {Healthy: 0.30, Distress: 0.15},
			"admin_overhead_ratio":  {Healthy: 0.25, Distress: 0.45, Invert: true},
			"tuition_dependency":    {Healthy: 60, Distress: 85, Invert: true},
			"enrollment_trend_1yr":  {Healthy: 0.0, Distress: -0.10},
			"enrollment_trend_4yr":  {Healthy: 0.0, Distress: -0.08},
			"enrollment_chg_3yr":    {Healthy: 0.0, Distress: -0.30},
			"ft_share":              {Healthy: 0.60, Distress: 0.30},
			"revenue_per_student":   {Healthy: 15000, Distress: 5000},
			"retention_rate":        {Healthy: 70, Distress: 40},
			"graduation_rate":       {Healthy: 40, Distress: 15},
			"student_faculty_ratio": {Healthy: 20, Distress: 35, Invert: true},
			"admissions_yield":      {Healthy: 35, Distress: 15},
			"selectivity":           {Healthy: 80, Distress: 98, Invert: true},
			"revenue_trend":         {Healthy: 0.0, Distress: -0.10},
			"net_asset_trend":       {Healthy: 0.0, Distress: -0.10},
			"retention_trend":       {Healthy: 0, Distress: -5},
			"staff_trend":           {Healthy: -0.02, Distress: -0.15},
			"salary_trend":          {Healthy: 0.02, Distress: -0.03},
		},
	}
}
