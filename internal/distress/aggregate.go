package distress

import (
	"math"

	"github.com/hummingbird-research/distress-cli/internal/optval"
)

// Risk categories, in ascending distress order.
const (
	CategoryInsufficient = "Insufficient Data"
	CategoryHealthy      = "Healthy"
	CategoryLow          = "Low Risk"
	CategoryModerate     = "Moderate Risk"
	CategoryHigh         = "High Risk"
	CategorySevere       = "Severe Distress"
)

// Categorize maps a 0-100 composite to its risk band. Absent scores are
// Insufficient Data. Boundaries belong to the band above: exactly 20.0 is
// Low Risk, exactly 80.0 is Severe Distress.
func Categorize(score optval.Float) string {
	v, ok := score.Get()
	if !ok {
		return CategoryInsufficient
	}
	switch {
	case v < 20:
		return CategoryHealthy
	case v < 40:
		return CategoryLow
	case v < 60:
		return CategoryModerate
	case v < 80:
		return CategoryHigh
	default:
		return CategorySevere
	}
}

// MasterCategory downmaps a risk category to the coarser vocabulary the
// shared master columns use. Insufficient Data stays conservative.
func MasterCategory(category string) string {
	switch category {
	case CategorySevere:
		return "Critical"
	case CategoryHigh:
		return "High"
	case CategoryModerate:
		return "Moderate"
	case CategoryLow:
		return "Low"
	default:
		return "Healthy"
	}
}

// domainScore computes one domain's 0-100 score as the weighted mean of its
// present indicator sub-scores, renormalized over the weights actually
// present. Absent when no indicator scored.
func domainScore(d Domain, results map[string]IndicatorResult) optval.Float {
	weighted, weightSum := 0.0, 0.0
	for _, ind := range d.Indicators {
		s, ok := results[ind.Name].Score.Get()
		if !ok {
			continue
		}
		weighted += s * ind.Weight
		weightSum += ind.Weight
	}
	if weightSum == 0 {
		return optval.Absent()
	}
	return optval.Of(weighted / weightSum * 100)
}

// composite computes the cross-domain weighted mean of present domain
// scores, renormalized the same way. Absent when no domain scored.
func composite(m Model, domainScores map[string]optval.Float) optval.Float {
	weighted, weightSum := 0.0, 0.0
	for _, d := range m.Domains {
		s, ok := domainScores[d.Name].Get()
		if !ok {
			continue
		}
		weighted += s * d.Weight
		weightSum += d.Weight
	}
	if weightSum == 0 {
		return optval.Absent()
	}
	return optval.Of(weighted / weightSum)
}

// countIndicators tallies scored and total indicators across all domains.
// Step indicators that could not compute still count toward the total; an
// indicator counts as scored only when its sub-score is present.
func countIndicators(results domainResults) (scored, total int) {
	for _, domain := range results {
		for _, res := range domain {
			total++
			if res.Score.Valid() {
				scored++
			}
		}
	}
	return scored, total
}

// completeness is the scored share as a whole percentage.
func completeness(scored, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(scored) / float64(total) * 100)
}

// roundRaw collects rounded raw metric values for transparency output.
func roundRaw(results domainResults) map[string]optval.Float {
	out := make(map[string]optval.Float)
	for _, domain := range results {
		for name, res := range domain {
			out[name] = res.Raw.Round(4)
		}
	}
	return out
}
