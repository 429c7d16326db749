package distress

import "github.com/hummingbird-research/distress-cli/internal/optval"

// Interpolate converts a raw metric value into a [0,1] distress sub-score.
// Values at or beyond the healthy threshold score 0, at or beyond the
// distress threshold score 1, linear in between. Invert flips direction for
// metrics where higher is worse. Absent in, absent out. A degenerate
// calibration (healthy == distress) yields absent rather than dividing by
// zero.
func Interpolate(v optval.Float, th Threshold) optval.Float {
	raw, ok := v.Get()
	if !ok || th.Healthy == th.Distress {
		return optval.Absent()
	}
	if th.Invert {
		switch {
		case raw <= th.Healthy:
			return optval.Of(0)
		case raw >= th.Distress:
			return optval.Of(1)
		default:
			return optval.Of((raw - th.Healthy) / (th.Distress - th.Healthy))
		}
	}
	switch {
	case raw >= th.Healthy:
		return optval.Of(0)
	case raw <= th.Distress:
		return optval.Of(1)
	default:
		return optval.Of((th.Healthy - raw) / (th.Healthy - th.Distress))
	}
}

// score looks up the indicator's calibrated threshold and interpolates.
// Indicators without a threshold entry (step-function indicators) must
// score themselves.
func (m Model) score(indicator string, raw optval.Float) optval.Float {
	th, ok := m.threshold(indicator)
	if !ok {
		return optval.Absent()
	}
	return Interpolate(raw, th)
}
