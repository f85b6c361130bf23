package modeladapter

import (
	"fmt"
	"hash/fnv"
	"math"
)

// Distribution is a next-token probability distribution: Probs sums to 1 ±
// 1e-4 and ArgmaxP equals the maximum entry of Probs.
type Distribution struct {
	Probs   []float32
	ArgmaxP float32
}

// Model is the black-box next-token distribution provider the tree builder
// and fallback scorer consume. Implementations must be pure with respect to
// context: the same context string always yields an identical distribution,
// which is what makes the builder's per-build memoisation sound.
type Model interface {
	VocabSize() int
	NextTokenDistribution(context string) Distribution
}

// DeterministicModel is a seeded stand-in for a real inference backend. It
// derives a distribution from a hash of the context string rather than
// running any actual model, so it is reproducible across processes without
// needing a trained checkpoint — this repository's core is the scoring
// engine around the model boundary, not the model itself.
type DeterministicModel struct {
	vocabSize int
}

// NewDeterministicModel builds a model whose distributions are drawn
// pseudo-randomly, but deterministically, over vocabSize entries.
func NewDeterministicModel(vocabSize int) *DeterministicModel {
	return &DeterministicModel{vocabSize: vocabSize}
}

func (m *DeterministicModel) VocabSize() int {
	return m.vocabSize
}

// NextTokenDistribution produces a distribution over the full vocabulary.
// Weights come from a splitmix64 stream seeded by the FNV hash of context,
// then passed through an exponential to favor a handful of tokens the way a
// real next-token distribution concentrates mass on a small head.
func (m *DeterministicModel) NextTokenDistribution(context string) Distribution {
	h := fnv.New64a()
	h.Write([]byte(context))
	seed := h.Sum64()

	weights := make([]float64, m.vocabSize)
	var sum float64
	state := seed
	for i := range weights {
		state = splitmix64(state)
		u := float64(state>>11) / (1 << 53)
		// Sixth power to concentrate mass: most tokens get a small weight, a few
		// get a large one, similar in shape to a real softmax head.
		w := math.Pow(u, 6)
		weights[i] = w
		sum += w
	}

	probs := make([]float32, m.vocabSize)
	var argmax float32
	if sum > 0 {
		for i, w := range weights {
			p := float32(w / sum)
			probs[i] = p
			if p > argmax {
				argmax = p
			}
		}
	}
	return Distribution{Probs: probs, ArgmaxP: argmax}
}

func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	z := x
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	z = z ^ (z >> 31)
	return z
}

// RestrictedSum returns the sum of probs over the given token ids, used by
// the tree builder to compute val_prb_sum and by the fallback scorer to
// renormalize over a restricted candidate set.
func RestrictedSum(probs []float32, ids []TokenID) float32 {
	var sum float32
	for _, id := range ids {
		if int(id) < len(probs) {
			sum += probs[id]
		}
	}
	return sum
}

// Max returns the largest entry of probs, or 0 for an empty distribution.
func Max(probs []float32) float32 {
	var max float32
	for _, p := range probs {
		if p > max {
			max = p
		}
	}
	return max
}

// ValidateDistribution checks the C4 contract: every entry finite and in
// [0,1], and the sum within tol of 1.0.
func ValidateDistribution(d Distribution, tol float64) error {
	var sum float64
	for _, p := range d.Probs {
		if math.IsNaN(float64(p)) || math.IsInf(float64(p), 0) {
			return fmt.Errorf("modeladapter: distribution contains a non-finite probability")
		}
		if p < 0 || p > 1 {
			return fmt.Errorf("modeladapter: distribution entry %v outside [0,1]", p)
		}
		sum += float64(p)
	}
	if math.Abs(sum-1.0) > tol {
		return fmt.Errorf("modeladapter: distribution sums to %v, want 1.0 +/- %v", sum, tol)
	}
	return nil
}
