package modeladapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicModelDistributionValid(t *testing.T) {
	m := NewDeterministicModel(300)
	d := m.NextTokenDistribution("cat is a word that rhymes perfectly with words like")
	if err := ValidateDistribution(d, 1e-4); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, Max(d.Probs), d.ArgmaxP)
}

func TestDeterministicModelIsPureInContext(t *testing.T) {
	m := NewDeterministicModel(200)
	a := m.NextTokenDistribution("same context")
	b := m.NextTokenDistribution("same context")
	assert.Equal(t, a.Probs, b.Probs, "repeated calls with the same context should be pure")
}

func TestDeterministicModelDiffersAcrossContexts(t *testing.T) {
	m := NewDeterministicModel(200)
	a := m.NextTokenDistribution("context one")
	b := m.NextTokenDistribution("context two")
	assert.NotEqual(t, a.Probs, b.Probs, "expected different contexts to produce different distributions")
}

func TestRestrictedSum(t *testing.T) {
	probs := []float32{0.1, 0.2, 0.3, 0.4}
	sum := RestrictedSum(probs, []TokenID{0, 2})
	assert.InDelta(t, 0.4, sum, 0.001)
}

func TestValidateDistributionRejectsBadSum(t *testing.T) {
	d := Distribution{Probs: []float32{0.1, 0.1}, ArgmaxP: 0.1}
	err := ValidateDistribution(d, 1e-4)
	assert.Error(t, err, "expected error for distribution not summing to 1")
}
