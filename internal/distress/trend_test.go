package distress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hummingbird-research/distress-cli/internal/optval"
)

func TestAnnualizedChange(t *testing.T) {
	t.Run("single year", func(t *testing.T) {
		got := annualizedChange(optval.Of(110), optval.Of(100), 1)
		require.True(t, got.Valid())
		assert.InDelta(t, 0.10, got.Value(), 1e-9)
	})

	t.Run("two year gap annualizes", func(t *testing.T) {
		got := annualizedChange(optval.Of(121), optval.Of(100), 2)
		require.True(t, got.Valid())
		assert.InDelta(t, 0.10, got.Value(), 1e-9)
	})

	t.Run("zero prior absent", func(t *testing.T) {
		assert.False(t, annualizedChange(optval.Of(100), optval.Of(0), 1).Valid())
	})

	t.Run("sign change over multi year gap absent", func(t *testing.T) {
		assert.False(t, annualizedChange(optval.Of(-50), optval.Of(100), 2).Valid())
	})

	t.Run("absent input absent", func(t *testing.T) {
		assert.False(t, annualizedChange(optval.Absent(), optval.Of(100), 1).Valid())
	})
}

func TestPositiveAnnualizedChange(t *testing.T) {
	assert.True(t, positiveAnnualizedChange(optval.Of(90), optval.Of(100), 1).Valid())
	assert.False(t, positiveAnnualizedChange(optval.Of(0), optval.Of(100), 1).Valid())
	assert.False(t, positiveAnnualizedChange(optval.Of(100), optval.Of(-5), 1).Valid())
}

func TestNetAssetChange(t *testing.T) {
	tests := []struct {
		name  string
		curr  float64
		prior float64
		want  float64
	}{
		{"crossed into deficit", -10, 100, naCrossedNegative},
		{"worsening deficit", -200, -100, naWorseningDeficit},
		{"improving deficit", -50, -100, naImprovingDeficit},
		{"stuck at zero", 0, 0, naStuckNonPositive},
		{"recovered from zero prior", 100, 0, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := netAssetChange(optval.Of(tt.curr), optval.Of(tt.prior), 1)
			require.True(t, got.Valid())
			assert.InDelta(t, tt.want, got.Value(), 1e-9)
		})
	}

	t.Run("both positive uses geometric rate", func(t *testing.T) {
		got := netAssetChange(optval.Of(110), optval.Of(100), 1)
		require.True(t, got.Valid())
		assert.InDelta(t, 0.10, got.Value(), 1e-9)
	})

	t.Run("absent input absent", func(t *testing.T) {
		assert.False(t, netAssetChange(optval.Absent(), optval.Of(100), 1).Valid())
	})
}
