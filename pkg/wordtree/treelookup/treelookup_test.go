package treelookup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cognicore/wordtree/pkg/wordtree/modeladapter"
	"github.com/cognicore/wordtree/pkg/wordtree/tree"
)

// buildFixtureTree constructs a two-deep Prf tree: root has tokens {1: terminal
// p=0.3, 2: branch p=0.7 -> child}, child has {3: terminal p=1.0}.
func buildFixtureTree() *tree.WordProbabilityTree {
	return &tree.WordProbabilityTree{
		Anchor: "cat",
		Frq:    0.1,
		Nodes: []tree.Node{
			{
				Entries: []tree.Entry{
					{Token: 1, P: 0.3, Child: -1},
					{Token: 2, P: 0.7, Child: 1},
				},
				OrgMax:    0.7,
				ValPrbSum: 1.0,
				MaxDep:    2,
			},
			{
				Entries: []tree.Entry{
					{Token: 3, P: 1.0, Child: -1},
				},
				OrgMax:    0.9,
				ValPrbSum: 0.95,
				MaxDep:    1,
			},
		},
		Prf: 0,
		Ana: -1,
		Ola: -1,
		Olr: -1,
		Olx: -1,
		Rch: -1,
		Sln: -1,
	}
}

func TestSequenceProbabilityEmptySeq(t *testing.T) {
	tr := buildFixtureTree()
	assert.Equal(t, float64(1), SequenceProbability(tr, tree.Prf, nil))
}

func TestSequenceProbabilityTerminal(t *testing.T) {
	tr := buildFixtureTree()
	p := SequenceProbability(tr, tree.Prf, []modeladapter.TokenID{1})
	assert.Equal(t, float64(0.3), p)
}

func TestSequenceProbabilityBranchThenTerminal(t *testing.T) {
	tr := buildFixtureTree()
	p := SequenceProbability(tr, tree.Prf, []modeladapter.TokenID{2, 3})
	assert.Equal(t, 0.7*1.0, p)
}

func TestSequenceProbabilityMissingToken(t *testing.T) {
	tr := buildFixtureTree()
	assert.Equal(t, float64(0), SequenceProbability(tr, tree.Prf, []modeladapter.TokenID{99}))
}

func TestSequenceProbabilityPrefixOfStoredSequenceReturnsZero(t *testing.T) {
	tr := buildFixtureTree()
	assert.Equal(t, float64(0), SequenceProbability(tr, tree.Prf, []modeladapter.TokenID{2}), "strict prefix should score 0")
}

func TestSequenceProbabilityMissingCategory(t *testing.T) {
	tr := buildFixtureTree()
	assert.Equal(t, float64(0), SequenceProbability(tr, tree.Ana, []modeladapter.TokenID{1}))
}

func TestCreativityScoreInRange(t *testing.T) {
	tr := buildFixtureTree()
	c := CreativityScore(tr, tree.Prf, []modeladapter.TokenID{2, 3})
	assert.GreaterOrEqual(t, c, float64(0))
	assert.LessOrEqual(t, c, float64(1))
}

func TestCreativityScoreZeroForUnreachableSequence(t *testing.T) {
	tr := buildFixtureTree()
	assert.Equal(t, float64(0), CreativityScore(tr, tree.Prf, []modeladapter.TokenID{42}))
}

func TestCreativityScoreLayerRMSInRange(t *testing.T) {
	tr := buildFixtureTree()
	c := CreativityScoreLayerRMS(tr, tree.Prf, []modeladapter.TokenID{2, 3})
	assert.GreaterOrEqual(t, c, float64(0))
	assert.LessOrEqual(t, c, float64(1))
}

func TestCreativityScoreLayerRMSZeroForMissingToken(t *testing.T) {
	tr := buildFixtureTree()
	assert.Equal(t, float64(0), CreativityScoreLayerRMS(tr, tree.Prf, []modeladapter.TokenID{42}))
}
