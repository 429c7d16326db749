package distress

import (
	"sort"

	"go.uber.org/zap"

	"github.com/hummingbird-research/distress-cli/internal/optval"
)

// DefaultAssetMatchTolerance is the relative asset difference under which a
// sibling is considered to share its parent's balance sheet.
const DefaultAssetMatchTolerance = 0.01

// GroupMember is one institution in a shared-tax-ID group, extracted from
// the master table before detection runs.
type GroupMember struct {
	UnitID  string
	EIN     string
	Name    string
	Revenue optval.Float
	Assets  optval.Float
}

// SubsidiaryLink marks a contaminated subsidiary and points at the parent
// whose balance sheet it reports.
type SubsidiaryLink struct {
	ParentID   string
	ParentName string
}

// DetectSubsidiaries identifies institutions that file consolidated parent
// finances under their own UNITID. Within each group of two or more members
// sharing an EIN, the member with the highest revenue is the parent; a
// sibling whose reported assets sit within tolerance of the parent's is
// flagged. The relation is asymmetric: the parent is never flagged.
//
// Members are processed in sorted-UNITID order, so revenue ties resolve to
// the first ID deterministically. Groups whose parent reports absent or
// zero assets are skipped; nothing can be matched against them.
func DetectSubsidiaries(members []GroupMember, tolerance float64) map[string]SubsidiaryLink {
	if tolerance <= 0 {
		tolerance = DefaultAssetMatchTolerance
	}

	groups := make(map[string][]GroupMember)
	for _, m := range members {
		if m.EIN == "" || m.UnitID == "" {
			continue
		}
		groups[m.EIN] = append(groups[m.EIN], m)
	}

	links := make(map[string]SubsidiaryLink)
	shared := 0
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		shared++

		sort.Slice(group, func(i, j int) bool { return group[i].UnitID < group[j].UnitID })

		parent := group[0]
		for _, m := range group[1:] {
			if m.Revenue.Or(0) > parent.Revenue.Or(0) {
				parent = m
			}
		}
		parentAssets, ok := parent.Assets.Get()
		if !ok || parentAssets == 0 {
			continue
		}

		for _, sib := range group {
			if sib.UnitID == parent.UnitID {
				continue
			}
			sibAssets, ok := sib.Assets.Get()
			if !ok {
				continue
			}
			if abs(sibAssets-parentAssets)/abs(parentAssets) < tolerance {
				links[sib.UnitID] = SubsidiaryLink{ParentID: parent.UnitID, ParentName: parent.Name}
			}
		}
	}

	zap.L().Info("detected contaminated subsidiaries",
		zap.Int("subsidiaries", len(links)),
		zap.Int("shared_ein_groups", shared),
	)
	return links
}

// naMonthsBuckets maps months of reserve to a 0-100 solvency domain score.
// Calibrated steps, not interpolated: crossing a bucket boundary is a
// discrete change in survival outlook.
func naMonthsScore(months float64) float64 {
	switch {
	case months < 0:
		return 100
	case months < 1:
		return 93
	case months < 3:
		return 80
	case months < 6:
		return 67
	case months < 12:
		return 47
	case months < 24:
		return 27
	case months < 60:
		return 7
	default:
		return 0
	}
}
