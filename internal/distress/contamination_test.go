package distress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hummingbird-research/distress-cli/internal/optval"
)

func TestDetectSubsidiaries(t *testing.T) {
	t.Run("sibling matching parent assets is flagged", func(t *testing.T) {
		links := DetectSubsidiaries([]GroupMember{
			{UnitID: "100", EIN: "123", Name: "Parent U", Revenue: optval.Of(50_000_000), Assets: optval.Of(80_000_000)},
			{UnitID: "200", EIN: "123", Name: "Branch Campus", Revenue: optval.Of(4_000_000), Assets: optval.Of(80_200_000)},
		}, 0.01)

		require.Len(t, links, 1)
		assert.Equal(t, SubsidiaryLink{ParentID: "100", ParentName: "Parent U"}, links["200"])
	})

	t.Run("parent is never flagged", func(t *testing.T) {
		links := DetectSubsidiaries([]GroupMember{
			{UnitID: "100", EIN: "123", Name: "Parent U", Revenue: optval.Of(50_000_000), Assets: optval.Of(80_000_000)},
			{UnitID: "200", EIN: "123", Name: "Branch", Revenue: optval.Of(4_000_000), Assets: optval.Of(80_000_000)},
		}, 0.01)
		_, flagged := links["100"]
		assert.False(t, flagged)
	})

	t.Run("assets outside tolerance not flagged", func(t *testing.T) {
		links := DetectSubsidiaries([]GroupMember{
			{UnitID: "100", EIN: "123", Name: "Parent U", Revenue: optval.Of(50_000_000), Assets: optval.Of(80_000_000)},
			{UnitID: "200", EIN: "123", Name: "Independent Sibling", Revenue: optval.Of(4_000_000), Assets: optval.Of(12_000_000)},
		}, 0.01)
		assert.Empty(t, links)
	})

	t.Run("revenue tie resolves to first sorted unitid", func(t *testing.T) {
		links := DetectSubsidiaries([]GroupMember{
			{UnitID: "300", EIN: "55", Name: "B Campus", Revenue: optval.Of(10_000_000), Assets: optval.Of(20_000_000)},
			{UnitID: "150", EIN: "55", Name: "A Campus", Revenue: optval.Of(10_000_000), Assets: optval.Of(20_000_000)},
		}, 0.01)

		require.Len(t, links, 1)
		assert.Equal(t, "150", links["300"].ParentID)
	})

	t.Run("singleton group ignored", func(t *testing.T) {
		links := DetectSubsidiaries([]GroupMember{
			{UnitID: "100", EIN: "777", Revenue: optval.Of(1), Assets: optval.Of(1)},
		}, 0.01)
		assert.Empty(t, links)
	})

	t.Run("parent without assets skips group", func(t *testing.T) {
		links := DetectSubsidiaries([]GroupMember{
			{UnitID: "100", EIN: "123", Revenue: optval.Of(50), Assets: optval.Absent()},
			{UnitID: "200", EIN: "123", Revenue: optval.Of(4), Assets: optval.Of(80)},
		}, 0.01)
		assert.Empty(t, links)
	})
}

func TestNAMonthsScore(t *testing.T) {
	tests := []struct {
		months float64
		want   float64
	}{
		{-5, 100},
		{0.5, 93},
		{2, 80},
		{5.9, 67},
		{6, 47},
		{11.9, 47},
		{18, 27},
		{59, 7},
		{60, 0},
		{120, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, naMonthsScore(tt.months), "months=%v", tt.months)
	}
}
