package distress

import (
	"sort"

	"github.com/hummingbird-research/distress-cli/internal/optval"
)

// IndicatorResult carries one indicator's raw metric and its [0,1] distress
// sub-score. Either side can be absent independently: step indicators keep a
// raw value even when unscored, and synthetic flags score without a raw.
type IndicatorResult struct {
	Raw   optval.Float
	Score optval.Float
}

// domainResults maps domain name to indicator name to result for one
// (entity, year). Ephemeral; only the Record survives aggregation.
type domainResults map[string]map[string]IndicatorResult

// Record is the scored output for one entity in one year.
type Record struct {
	EntityID string `json:"entity_id"`
	Year     int    `json:"year"`
	Standard string `json:"accounting_standard"`

	// Score is the final 0-100 composite after floors; absent means
	// Insufficient Data. PrefloorScore is the composite before floor
	// correction.
	Score         optval.Float `json:"distress_score"`
	PrefloorScore optval.Float `json:"distress_score_prefloored"`
	Category      string       `json:"risk_category"`

	DomainScores map[string]optval.Float `json:"domain_scores"`
	Raw          map[string]optval.Float `json:"raw_metrics"`

	IndicatorsScored int     `json:"indicators_scored"`
	IndicatorsTotal  int     `json:"indicators_total"`
	Completeness     float64 `json:"data_completeness"`

	// Enrollment-health adjustments (IPEDS only).
	CliffMultiplier    float64      `json:"cliff_multiplier,omitempty"`
	EnrollmentChg3yr   optval.Float `json:"enrollment_chg_direct,omitempty"`
	EnrollmentFloor    bool         `json:"enrollment_velocity_floor,omitempty"`
	FloorSeverity      string       `json:"floor_severity,omitempty"`
	RevenueFloor       bool         `json:"revenue_velocity_floor,omitempty"`

	// Contamination metadata (IPEDS only).
	IsSubsidiary   bool         `json:"is_subsidiary,omitempty"`
	ParentID       string       `json:"parent_unitid,omitempty"`
	ParentName     string       `json:"parent_name,omitempty"`
	SolvencySource string       `json:"solvency_source,omitempty"`
	NAMonths       optval.Float `json:"na_months_expenses,omitempty"`

	// LikelyClosed marks institutions with no data footprint left; they are
	// excluded from scoring but still reported.
	LikelyClosed bool `json:"likely_closed,omitempty"`
}

// Domain returns a domain score, absent when unknown.
func (r *Record) Domain(name string) optval.Float {
	return r.DomainScores[name]
}

// RawMetric returns a rounded raw indicator value, absent when unknown.
func (r *Record) RawMetric(name string) optval.Float {
	return r.Raw[name]
}

// sortRecords orders records by entity ID then year for deterministic
// exports.
func sortRecords(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].EntityID != recs[j].EntityID {
			return recs[i].EntityID < recs[j].EntityID
		}
		return recs[i].Year < recs[j].Year
	})
}
