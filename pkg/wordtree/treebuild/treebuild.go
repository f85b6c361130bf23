// Package treebuild constructs a tree.WordProbabilityTree for an anchor from
// the transformation engine's candidate lists and the model adapter's
// next-token distributions, coalescing concurrent builds for the same
// anchor via single-flight.
package treebuild

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/cognicore/wordtree/internal/internalerr"
	"github.com/cognicore/wordtree/pkg/wordtree/lexicon"
	"github.com/cognicore/wordtree/pkg/wordtree/modeladapter"
	"github.com/cognicore/wordtree/pkg/wordtree/transform"
	"github.com/cognicore/wordtree/pkg/wordtree/tree"
	"github.com/cognicore/wordtree/pkg/wordtree/treelookup"
)

// CategoryTemplates holds the depth-0 prompt template for each category,
// with the anchor substituted in via fmt.Sprintf. Exported so the scorer's
// ML-direct fallback path can reuse the exact same contexts the builder
// used, rather than keeping a second copy in sync by hand.
var CategoryTemplates = map[tree.Category]string{
	tree.Prf: `%s is a word that rhymes perfectly with words like `,
	tree.Rch: `%s is a word whose homophones are words like `,
	tree.Sln: `%s is a word that rhymes partially with words like `,
	tree.Ana: `%s is a word whose letters can be rearranged to form anagrams like `,
	tree.Ola: `%s is a word which with the addition of one letter can become words like `,
	tree.Olr: `%s is a word which with one letter removed can become words like `,
	tree.Olx: `%s is a word which with the change of a single letter can become words like `,
}

var categoryTemplates = CategoryTemplates

// Builder constructs probability trees on demand. It owns no per-anchor
// state between calls other than the single-flight group; each Build call
// allocates its own context cache and node arena.
type Builder struct {
	engine    *transform.Engine
	tokenizer *modeladapter.Tokenizer
	model     modeladapter.Model
	group     singleflight.Group
}

// New builds a Builder from the already-initialised engine, tokenizer, and
// model adapter.
func New(engine *transform.Engine, tokenizer *modeladapter.Tokenizer, model modeladapter.Model) *Builder {
	return &Builder{engine: engine, tokenizer: tokenizer, model: model}
}

// Tokenizer returns the tokenizer this builder encodes candidates with, so
// callers (the scorer) can encode without constructing a second instance.
func (b *Builder) Tokenizer() *modeladapter.Tokenizer {
	return b.tokenizer
}

// Model returns the model adapter this builder queries, for callers that
// need direct distribution access (the scorer's ML-direct fallback path).
func (b *Builder) Model() modeladapter.Model {
	return b.model
}

// Build enumerates anchor's TransformationSet and constructs a validated
// WordProbabilityTree. Concurrent Build calls for the same anchor are
// coalesced: only one proceeds, the rest await its result.
func (b *Builder) Build(anchor string, frq float64) (*tree.WordProbabilityTree, error) {
	anchor = strings.ToLower(anchor)
	v, err, _ := b.group.Do(anchor, func() (interface{}, error) {
		return b.buildOnce(anchor, frq)
	})
	if err != nil {
		return nil, err
	}
	return v.(*tree.WordProbabilityTree), nil
}

func (b *Builder) buildOnce(anchor string, frq float64) (*tree.WordProbabilityTree, error) {
	set, err := b.engine.Enumerate(anchor)
	if err != nil {
		return nil, err
	}

	bld := &builderState{
		tokenizer: b.tokenizer,
		model:     b.model,
		cache:     make(map[string]modeladapter.Distribution),
	}

	t := &tree.WordProbabilityTree{Anchor: anchor, Frq: frq}
	roots := make(map[tree.Category]int32, len(transform.Categories))

	for _, cat := range transform.Categories {
		tc := toTreeCategory(cat)
		words := set.ByCategory(cat)
		seqs := bld.tokenizeAll(words)
		prompt := fmt.Sprintf(categoryTemplates[tc], anchor)
		idx := bld.buildNode(t, prompt, seqs)
		roots[tc] = idx
	}

	t.Prf = roots[tree.Prf]
	t.Rch = roots[tree.Rch]
	t.Sln = roots[tree.Sln]
	t.Ana = roots[tree.Ana]
	t.Ola = roots[tree.Ola]
	t.Olr = roots[tree.Olr]
	t.Olx = roots[tree.Olx]

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("treebuild: %w: %v", internalerr.ErrTreeInvalid, err)
	}
	return t, nil
}

func toTreeCategory(c transform.Category) tree.Category {
	return tree.Category(c)
}

// CheckCompleteness reports, per category, whether every candidate word in
// set's list for that category has a reachable terminal node in wt: the
// debug cross-check a maintainer runs after a build to catch a tree that
// serialised cleanly but silently dropped candidates (a category with no
// candidates at all is vacuously complete). A category absent from wt
// (RootFor fails) with candidates in set is reported incomplete.
func (b *Builder) CheckCompleteness(wt *tree.WordProbabilityTree, set transform.Set) map[tree.Category]bool {
	report := make(map[tree.Category]bool, len(transform.Categories))
	for _, cat := range transform.Categories {
		tc := toTreeCategory(cat)
		words := set.ByCategory(cat)
		if len(words) == 0 {
			report[tc] = true
			continue
		}

		complete := true
		for _, w := range words {
			seq := b.tokenizer.Encode(w)
			if len(seq) == 0 {
				continue
			}
			if treelookup.SequenceProbability(wt, tc, seq) <= 0 {
				complete = false
				break
			}
		}
		report[tc] = complete
	}
	return report
}

// builderState holds the per-build context cache and the growing node
// arena; it is discarded once Build returns.
type builderState struct {
	tokenizer *modeladapter.Tokenizer
	model     modeladapter.Model
	cache     map[string]modeladapter.Distribution
}

// tokenizeAll encodes every candidate word into a non-empty token sequence,
// skipping any that tokenise to nothing (internalerr.ErrTokenizationEmpty
// territory — callers enumerating whole categories simply drop such words
// rather than failing the build).
func (bs *builderState) tokenizeAll(words []string) [][]modeladapter.TokenID {
	seqs := make([][]modeladapter.TokenID, 0, len(words))
	for _, w := range words {
		ids := bs.tokenizer.Encode(w)
		if len(ids) == 0 {
			continue
		}
		seqs = append(seqs, ids)
	}
	return seqs
}

// buildNode appends nodes to t.Nodes for one category, recursing on prefix
// depth, and returns the arena index of the root node it created. An empty
// seqs list yields a dedicated empty-sentinel node with no model call.
func (bs *builderState) buildNode(t *tree.WordProbabilityTree, context string, seqs [][]modeladapter.TokenID) int32 {
	if len(seqs) == 0 {
		t.Nodes = append(t.Nodes, tree.Node{Empty: true})
		return int32(len(t.Nodes) - 1)
	}

	dist := bs.distributionFor(context)
	orgMax := modeladapter.Max(dist.Probs)

	groups := groupByFirstToken(seqs)
	restrictedIDs := make([]modeladapter.TokenID, 0, len(groups))
	for tok := range groups {
		restrictedIDs = append(restrictedIDs, tok)
	}
	// Visit tokens in ascending order so sums and arena layout do not depend
	// on map iteration order.
	sort.Slice(restrictedIDs, func(i, j int) bool { return restrictedIDs[i] < restrictedIDs[j] })
	valPrbSum := modeladapter.RestrictedSum(dist.Probs, restrictedIDs)

	maxDep := 0
	for _, seq := range seqs {
		if len(seq) > maxDep {
			maxDep = len(seq)
		}
	}

	// Reserve this node's slot before recursing so its arena index is known
	// to children built afterward, then fill entries in once children exist.
	nodeIdx := int32(len(t.Nodes))
	t.Nodes = append(t.Nodes, tree.Node{OrgMax: orgMax, ValPrbSum: valPrbSum, MaxDep: maxDep})

	var entries []tree.Entry
	for _, tok := range restrictedIDs {
		tails := groups[tok]
		if int(tok) >= len(dist.Probs) {
			continue
		}
		p := dist.Probs[tok]
		if p <= 0 {
			continue
		}

		nonEmptyTails := filterNonEmpty(tails)
		if len(nonEmptyTails) > 0 {
			childContext := context + bs.tokenizer.Decode([]modeladapter.TokenID{tok}) + " "
			childIdx := bs.buildNode(t, childContext, nonEmptyTails)
			entries = append(entries, tree.Entry{Token: tok, P: p, Child: childIdx})
		} else {
			entries = append(entries, tree.Entry{Token: tok, P: p, Child: -1})
		}
	}

	renormalize(entries)
	sortTreeEntries(entries)
	t.Nodes[nodeIdx].Entries = entries
	return nodeIdx
}

// distributionFor serves a context from the per-build cache, querying the
// model adapter only on first use.
func (bs *builderState) distributionFor(context string) modeladapter.Distribution {
	if d, ok := bs.cache[context]; ok {
		return d
	}
	d := bs.model.NextTokenDistribution(context)
	bs.cache[context] = d
	return d
}

// groupByFirstToken buckets sequences by their first token, mapping each to
// the list of remainder tails (each possibly empty).
func groupByFirstToken(seqs [][]modeladapter.TokenID) map[modeladapter.TokenID][][]modeladapter.TokenID {
	groups := make(map[modeladapter.TokenID][][]modeladapter.TokenID)
	for _, seq := range seqs {
		if len(seq) == 0 {
			continue
		}
		head, tail := seq[0], seq[1:]
		groups[head] = append(groups[head], tail)
	}
	return groups
}

func filterNonEmpty(tails [][]modeladapter.TokenID) [][]modeladapter.TokenID {
	out := make([][]modeladapter.TokenID, 0, len(tails))
	for _, t := range tails {
		if len(t) > 0 {
			out = append(out, t)
		}
	}
	return out
}

// renormalize scales entries so their probabilities sum to 1, matching the
// node-local renormalisation step of the build algorithm. No-op if the
// entries already sum to (near) zero, which buildNode's p<=0 filter makes
// unreachable in practice.
func renormalize(entries []tree.Entry) {
	var sum float32
	for _, e := range entries {
		sum += e.P
	}
	if sum <= 0 {
		return
	}
	for i := range entries {
		entries[i].P /= sum
	}
}

func sortTreeEntries(entries []tree.Entry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j-1].Token > entries[j].Token; j-- {
			entries[j-1], entries[j] = entries[j], entries[j-1]
		}
	}
}

// Frequency looks up the anchor's lexicon frequency, a small helper so
// callers building a tree don't need to import lexicon directly.
func Frequency(lex *lexicon.Lexicon, anchor string) float64 {
	return lex.Frequency(anchor)
}
