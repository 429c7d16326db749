package distress

import (
	"github.com/hummingbird-research/distress-cli/internal/filing"
	"github.com/hummingbird-research/distress-cli/internal/optval"
)

// Floor severities reported with the enrollment velocity floor.
const (
	SeverityMild     = "mild"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
)

// applyEnrollmentFloor raises the composite for private institutions in
// sustained enrollment collapse. The floor never lowers a score.
//
// Trigger conditions, all required: not a subsidiary (those get the revenue
// floor), private accounting (FASB or 990-backfilled), enrollment below
// 10,000, direct three-year decline beyond 25%, and a one-year trend still
// below -5% (the decline has not recovered).
func applyEnrollmentFloor(
	comp optval.Float,
	enrollmentDomain optval.Float,
	chg3yr optval.Float,
	trend1yr optval.Float,
	totalEnrollment optval.Float,
	std filing.Standard,
	isSubsidiary bool,
) (optval.Float, bool, string) {
	if isSubsidiary || !std.Private() {
		return comp, false, ""
	}
	if enr, ok := totalEnrollment.Get(); ok && enr >= 10000 {
		return comp, false, ""
	}
	chg, ok1 := chg3yr.Get()
	t1, ok2 := trend1yr.Get()
	if !ok1 || !ok2 {
		return comp, false, ""
	}
	if chg >= -0.25 || t1 >= -0.05 {
		return comp, false, ""
	}

	decline := abs(chg)
	var mult float64
	var severity string
	switch {
	case decline >= 0.50:
		mult, severity = 0.60, SeveritySevere
	case decline >= 0.35:
		mult, severity = 0.45, SeverityModerate
	default:
		mult, severity = 0.30, SeverityMild
	}

	enrScore := enrollmentDomain.Or(40)
	floor := 40 + max(0, enrScore-40)*mult
	// comp is present whenever the floors run; the engine skips them when
	// the indicator gate left the composite absent.
	base := comp.Or(0)
	adjusted := max(floor, base)
	applied := adjusted > base+0.01
	return optval.Of(adjusted), applied, severity
}

// applyRevenueFloor raises the composite for confirmed subsidiaries whose
// own revenue is collapsing. Enrollment can look stable on a subsidiary
// while its revenue has already fallen off; the two-year revenue change is
// the signal enrollment misses. Never lowers a score.
func applyRevenueFloor(comp optval.Float, rev2yrPct optval.Float, isSubsidiary bool) (optval.Float, bool) {
	if !isSubsidiary {
		return comp, false
	}
	rev, ok := rev2yrPct.Get()
	if !ok {
		return comp, false
	}
	var floor float64
	switch {
	case rev < -60:
		floor = 65
	case rev < -40:
		floor = 55
	case rev < -20:
		floor = 45
	default:
		return comp, false
	}
	// Same invariant as the enrollment floor: comp is present here.
	base := comp.Or(0)
	adjusted := max(floor, base)
	return optval.Of(adjusted), adjusted > base+0.01
}
