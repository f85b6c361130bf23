// Package treelookup provides the two read-only traversal operations over a
// built probability tree: sequence probability and creativity score.
package treelookup

import (
	"math"

	"github.com/cognicore/wordtree/pkg/wordtree/modeladapter"
	"github.com/cognicore/wordtree/pkg/wordtree/tree"
)

// SequenceProbability walks seq from cat's root node. At each token, if the
// token is absent from the current node's entries the walk fails and
// returns 0. A terminal entry must be the last token of seq; consuming a
// branch entry descends to its child. Reaching the end of seq while still
// on a branch node (seq was strictly a prefix of stored sequences) returns
// 0. An empty seq returns 1, per the contract that "no tokens consumed" is
// certain.
func SequenceProbability(t *tree.WordProbabilityTree, cat tree.Category, seq []modeladapter.TokenID) float64 {
	rootIdx, ok := t.RootFor(cat)
	if !ok || rootIdx < 0 {
		return 0
	}
	if len(seq) == 0 {
		return 1
	}

	node := t.Node(rootIdx)
	p := 1.0
	for i, tok := range seq {
		entry, found := findEntry(node, tok)
		if !found {
			return 0
		}
		p *= float64(entry.P)

		isLast := i == len(seq)-1
		isTerminal := entry.Child < 0
		switch {
		case isTerminal && isLast:
			return p
		case isTerminal && !isLast:
			return 0
		case !isTerminal && isLast:
			return 0
		default:
			node = t.Node(entry.Child)
		}
	}
	return 0
}

func findEntry(n *tree.Node, tok modeladapter.TokenID) (tree.Entry, bool) {
	for _, e := range n.Entries {
		if e.Token == tok {
			return e, true
		}
	}
	return tree.Entry{}, false
}

// CreativityScore reconstructs what fraction of the model's own peak
// probability (at the category's root context) the given sequence would
// have held in the unrestricted distribution: seq_p * R / M, clamped to
// [0,1], where R is the product of val_prb_sum along the visited path and M
// is the root node's org_max.
func CreativityScore(t *tree.WordProbabilityTree, cat tree.Category, seq []modeladapter.TokenID) float64 {
	rootIdx, ok := t.RootFor(cat)
	if !ok || rootIdx < 0 {
		return 0
	}

	seqP := SequenceProbability(t, cat, seq)
	if seqP == 0 {
		return 0
	}

	root := t.Node(rootIdx)
	m := float64(root.OrgMax)
	if m == 0 {
		return 0
	}

	r := pathValPrbSumProduct(t, rootIdx, seq)
	score := (seqP * r) / m
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// pathValPrbSumProduct multiplies val_prb_sum over every node visited while
// walking seq, starting at rootIdx.
func pathValPrbSumProduct(t *tree.WordProbabilityTree, rootIdx int32, seq []modeladapter.TokenID) float64 {
	node := t.Node(rootIdx)
	r := float64(node.ValPrbSum)
	for _, tok := range seq {
		entry, found := findEntry(node, tok)
		if !found {
			break
		}
		if entry.Child < 0 {
			break
		}
		node = t.Node(entry.Child)
		r *= float64(node.ValPrbSum)
	}
	return r
}

// CreativityScoreLayerRMS is the experimental length-normalised alternative
// to CreativityScore, preserved for reproducibility: rather than the
// product-of-val_prb_sum reconstruction, it tracks a running root-mean-
// square of the raw per-token probabilities along seq and smooths the
// complement of the final RMS through a sigmoid. Never mixed with
// CreativityScore inside a single scoring call; the scheme is selected once
// per scorer configuration.
func CreativityScoreLayerRMS(t *tree.WordProbabilityTree, cat tree.Category, seq []modeladapter.TokenID) float64 {
	rootIdx, ok := t.RootFor(cat)
	if !ok || rootIdx < 0 || len(seq) == 0 {
		return 0
	}

	node := t.Node(rootIdx)
	var rms float64
	for i, tok := range seq {
		entry, found := findEntry(node, tok)
		if !found {
			return 0
		}
		n := float64(i + 1)
		// Stored P is renormalised over the node; scaling back by the node's
		// val_prb_sum recovers the raw model probability.
		raw := float64(entry.P) * float64(node.ValPrbSum)
		rms = sqrtf((rms*rms*float64(i) + raw*raw) / n)
		if entry.Child < 0 {
			break
		}
		node = t.Node(entry.Child)
	}

	fullProbability := rms / float64(len(seq))
	return smooth(1 - fullProbability)
}

func sqrtf(x float64) float64 {
	if x < 0 {
		return 0
	}
	return math.Sqrt(x)
}

// smooth maps the RMS complement through a sigmoid centered at 0.5 so mid-
// range values move gradually while extremes saturate towards 0 or 1.
func smooth(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-3*(x-0.5)))
}
