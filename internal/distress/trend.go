package distress

import (
	"math"

	"github.com/hummingbird-research/distress-cli/internal/optval"
)

// annualizedChange computes the annualized geometric rate of change between
// a prior and current value over a year gap: (curr/prior)^(1/gap) - 1.
// Absent when either side is absent or prior is zero. A negative ratio
// (sign change) yields NaN from Pow and collapses to absent.
func annualizedChange(curr, prior optval.Float, gap int) optval.Float {
	c, ok1 := curr.Get()
	p, ok2 := prior.Get()
	if !ok1 || !ok2 || p == 0 {
		return optval.Absent()
	}
	if gap < 1 {
		gap = 1
	}
	return optval.Of(math.Pow(c/p, 1/float64(gap)) - 1)
}

// positiveAnnualizedChange is annualizedChange restricted to strictly
// positive inputs on both sides, for metrics where a sign change is handled
// separately or means the metric is meaningless.
func positiveAnnualizedChange(curr, prior optval.Float, gap int) optval.Float {
	c, ok1 := curr.Get()
	p, ok2 := prior.Get()
	if !ok1 || !ok2 || p <= 0 || c <= 0 {
		return optval.Absent()
	}
	return annualizedChange(curr, prior, gap)
}

// Net-asset sign-crossing fallback rates. The geometric formula is undefined
// across zero, so transitions get calibrated constant rates instead.
const (
	naCrossedNegative  = -0.30 // positive to negative, severe
	naWorseningDeficit = -0.20 // already negative and shrinking further
	naImprovingDeficit = 0.05  // negative but recovering
	naStuckNonPositive = -0.10 // non-positive either side, not improving
)

// netAssetChange computes the annualized net-asset growth rate with the
// sign-crossing fallbacks applied. Absent only when an input is absent.
func netAssetChange(curr, prior optval.Float, gap int) optval.Float {
	c, ok1 := curr.Get()
	p, ok2 := prior.Get()
	if !ok1 || !ok2 {
		return optval.Absent()
	}
	switch {
	case p > 0 && c > 0:
		return annualizedChange(curr, prior, gap)
	case p > 0 && c <= 0:
		return optval.Of(naCrossedNegative)
	case p < 0 && c < p:
		return optval.Of(naWorseningDeficit)
	case p < 0 && c > p:
		return optval.Of(naImprovingDeficit)
	case c <= 0:
		return optval.Of(naStuckNonPositive)
	default:
		return optval.Of(0.0)
	}
}
