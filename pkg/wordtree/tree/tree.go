// Package tree defines the probability tree: a sparse, per-anchor,
// per-category structure of the language model's conditional next-token
// probabilities, restricted to tokenised valid transformation candidates.
package tree

import (
	"fmt"
	"math"
	"sort"

	"github.com/cognicore/wordtree/pkg/wordtree/modeladapter"
)

// Category identifies one of the seven leaf slots of a WordProbabilityTree.
// Mirrors transform.Category without importing it, since tree has no
// business knowledge of rhyme/anagram semantics — only of the shape.
type Category string

const (
	Prf Category = "prf"
	Rch Category = "rch"
	Sln Category = "sln"
	Ana Category = "ana"
	Ola Category = "ola"
	Olr Category = "olr"
	Olx Category = "olx"
)

// noChild marks an Entry as terminal: the sequence ends at this token.
const noChild = int32(-1)

// Entry is one restricted next-token outcome at a node: either terminal
// (Child == noChild) or a branch into another Node (Child is an arena
// index). Entries are kept sorted by Token for deterministic iteration and
// serialisation.
type Entry struct {
	Token modeladapter.TokenID
	P     float32
	Child int32
}

// Node is one probability node at some (category, prefix depth). Empty
// marks the dedicated sentinel for a category with no candidate sequences
// at all — no model call is ever made for an Empty node.
type Node struct {
	Empty     bool
	Entries   []Entry
	OrgMax    float32
	ValPrbSum float32
	MaxDep    int
}

// WordProbabilityTree is the full per-anchor structure: one root node per
// category, all children held in a single shared arena (an index-based
// layout, per the arena-or-pointer-graph design latitude for this
// structure) rather than a pointer graph, so the whole tree serialises as
// one flat node slice plus seven root indices.
type WordProbabilityTree struct {
	Anchor string
	Frq    float64
	Nodes  []Node

	Ana int32
	Ola int32
	Olr int32
	Olx int32
	Prf int32
	Rch int32
	Sln int32
}

// RootFor returns the arena index of the root node for the given category.
func (t *WordProbabilityTree) RootFor(cat Category) (int32, bool) {
	switch cat {
	case Ana:
		return t.Ana, true
	case Ola:
		return t.Ola, true
	case Olr:
		return t.Olr, true
	case Olx:
		return t.Olx, true
	case Prf:
		return t.Prf, true
	case Rch:
		return t.Rch, true
	case Sln:
		return t.Sln, true
	default:
		return 0, false
	}
}

// Node dereferences an arena index; callers must only pass indices this
// tree produced (root indices or an Entry.Child).
func (t *WordProbabilityTree) Node(idx int32) *Node {
	return &t.Nodes[idx]
}

// entryFor returns the entry at token t within n, and whether it was found.
func (n *Node) entryFor(tok modeladapter.TokenID) (Entry, bool) {
	i := sort.Search(len(n.Entries), func(i int) bool { return n.Entries[i].Token >= tok })
	if i < len(n.Entries) && n.Entries[i].Token == tok {
		return n.Entries[i], true
	}
	return Entry{}, false
}

// sortEntries orders a node's entries by token id, the canonical order used
// both by lookup's binary search and by serialisation.
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Token < entries[j].Token })
}

const sumTolerance = 1e-3

// Validate walks every node in the tree and checks the invariants from the
// data model: every probability finite and in [0,1], stored probabilities
// at each non-empty node summing to 1 within sumTolerance (renormalising
// silently when within tolerance but not exactly 1), org_max at least the
// node's own raw observed max, and max_dep >= 1 for every non-empty node.
// val_prb_sum is not checked separately.
func (t *WordProbabilityTree) Validate() error {
	for i := range t.Nodes {
		if err := validateNode(&t.Nodes[i]); err != nil {
			return fmt.Errorf("tree: node %d: %w", i, err)
		}
	}
	return nil
}

func validateNode(n *Node) error {
	if n.Empty {
		return nil
	}
	if n.MaxDep < 1 {
		return fmt.Errorf("max_dep %d < 1 for non-empty node", n.MaxDep)
	}

	var sum float64
	var maxStored float32
	for _, e := range n.Entries {
		if math.IsNaN(float64(e.P)) || math.IsInf(float64(e.P), 0) {
			return fmt.Errorf("non-finite probability for token %d", e.Token)
		}
		if e.P < 0 || e.P > 1 {
			return fmt.Errorf("probability %v for token %d outside [0,1]", e.P, e.Token)
		}
		sum += float64(e.P)
		if e.P > maxStored {
			maxStored = e.P
		}
	}

	// Entries are stored already renormalised to sum to val_prb_sum's share
	// of 1; multiplying the largest stored (post-renormalisation) share back
	// by val_prb_sum recovers the largest pre-renormalisation raw
	// probability the builder observed, which org_max (captured over the
	// full, unrestricted vocabulary) must dominate by construction.
	rawMax := float64(maxStored) * float64(n.ValPrbSum)
	const epsilon = 1e-5
	if float64(n.OrgMax)+epsilon < rawMax {
		return fmt.Errorf("org_max %v less than observed raw max probability %v", n.OrgMax, rawMax)
	}

	diff := math.Abs(sum - 1.0)
	if diff > sumTolerance {
		return fmt.Errorf("entries sum to %v, want 1 +/- %v", sum, sumTolerance)
	}
	if diff > 0 && sum > 0 {
		scale := float32(1.0 / sum)
		for i := range n.Entries {
			n.Entries[i].P *= scale
		}
	}

	return nil
}
