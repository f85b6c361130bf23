package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cognicore/wordtree/pkg/wordtree/modeladapter"
)

func buildSimpleTree() *WordProbabilityTree {
	t := &WordProbabilityTree{
		Anchor: "cat",
		Frq:    0.5,
		Nodes: []Node{
			{
				Entries: []Entry{
					{Token: 1, P: 0.6, Child: noChild},
					{Token: 2, P: 0.4, Child: 1},
				},
				OrgMax:    0.6,
				ValPrbSum: 1.0,
				MaxDep:    2,
			},
			{
				Entries: []Entry{
					{Token: 3, P: 1.0, Child: noChild},
				},
				OrgMax:    0.95,
				ValPrbSum: 0.9,
				MaxDep:    1,
			},
		},
		Prf: 0,
		Ana: -1,
	}
	return t
}

func TestValidateAcceptsWellFormedTree(t *testing.T) {
	tr := buildSimpleTree()
	if err := tr.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestValidateRejectsOutOfRangeProbability(t *testing.T) {
	tr := buildSimpleTree()
	tr.Nodes[0].Entries[0].P = 1.5
	err := tr.Validate()
	assert.Error(t, err, "expected validation error for probability outside [0,1]")
}

func TestValidateRejectsBadSum(t *testing.T) {
	tr := buildSimpleTree()
	tr.Nodes[1].Entries[0].P = 0.1
	err := tr.Validate()
	assert.Error(t, err, "expected validation error for entries not summing to 1")
}

func TestValidateRenormalizesWithinTolerance(t *testing.T) {
	tr := buildSimpleTree()
	tr.Nodes[1].Entries[0].P = 0.9995
	if err := tr.Validate(); err != nil {
		t.Fatalf("expected silent renormalisation, got error: %v", err)
	}
	assert.InDelta(t, 1.0, tr.Nodes[1].Entries[0].P, 1e-6, "expected renormalised P ~= 1.0")
}

func TestValidateRejectsMaxDepUnderflow(t *testing.T) {
	tr := buildSimpleTree()
	tr.Nodes[0].MaxDep = 0
	err := tr.Validate()
	assert.Error(t, err, "expected validation error for max_dep < 1")
}

func TestRootForKnownCategories(t *testing.T) {
	tr := buildSimpleTree()
	idx, ok := tr.RootFor(Prf)
	assert.True(t, ok)
	assert.Equal(t, int32(0), idx)

	_, ok = tr.RootFor(Category("bogus"))
	assert.False(t, ok, "expected RootFor to reject an unknown category")
}

func TestEntryForBinarySearch(t *testing.T) {
	n := &Node{Entries: []Entry{
		{Token: 1, P: 0.1},
		{Token: 5, P: 0.2},
		{Token: 9, P: 0.3},
	}}
	e, ok := n.entryFor(5)
	assert.True(t, ok)
	assert.Equal(t, float32(0.2), e.P)

	_, ok = n.entryFor(3)
	assert.False(t, ok, "entryFor(3) should not be found")
}
