// Package filing normalizes raw IRS 990 and IPEDS survey extracts into a
// canonical per-entity, per-year field vocabulary. Column vocabularies differ
// per filing type and survey year; each maps into one shared set of
// standardized names so the scoring engine never touches raw column names.
package filing

import "strings"

// Standard identifies the accounting standard or filing type behind an
// entity's numbers. It controls which canonical fields are populated and how
// financial metrics are routed.
type Standard int

const (
	StandardUnknown Standard = iota
	// IRS 990 filing types.
	Standard990
	EZ990
	PF990
	// IPEDS finance survey forms.
	FASB
	GASB
	ForProfit
	// IRS990 marks IPEDS rows whose finance data was backfilled from a 990
	// filing via the master file. Routed like FASB.
	IRS990
)

func (s Standard) String() string {
	switch s {
	case Standard990:
		return "standard"
	case EZ990:
		return "ez"
	case PF990:
		return "pf"
	case FASB:
		return "fasb"
	case GASB:
		return "gasb"
	case ForProfit:
		return "for_profit"
	case IRS990:
		return "irs990"
	default:
		return "unknown"
	}
}

// ParseStandard maps a standard label back to its enum value. Unrecognized
// labels come back StandardUnknown.
func ParseStandard(s string) Standard {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard":
		return Standard990
	case "ez":
		return EZ990
	case "pf":
		return PF990
	case "fasb":
		return FASB
	case "gasb":
		return GASB
	case "for_profit", "forprofit":
		return ForProfit
	case "irs990":
		return IRS990
	default:
		return StandardUnknown
	}
}

// richness orders 990 filing types by field coverage. A standard 990 filing
// always wins over EZ or PF when the same EIN appears in both extracts.
func (s Standard) richness() int {
	switch s {
	case Standard990:
		return 3
	case EZ990:
		return 2
	case PF990:
		return 1
	default:
		return 0
	}
}

// Private reports whether the entity follows private-institution accounting
// (FASB, or 990-backfilled). The enrollment floor only applies to these.
func (s Standard) Private() bool {
	return s == FASB || s == IRS990
}
