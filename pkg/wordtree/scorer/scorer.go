// Package scorer computes the final ScoringResult for an (anchor,
// candidate) pair: classify via transform, obtain or build the
// probability tree via treebuild/storage, walk it via treelookup, and
// combine per-category base/bonus values into a total.
package scorer

import (
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cognicore/wordtree/internal/internalerr"
	"github.com/cognicore/wordtree/pkg/wordtree/config"
	"github.com/cognicore/wordtree/pkg/wordtree/lexicon"
	"github.com/cognicore/wordtree/pkg/wordtree/modeladapter"
	"github.com/cognicore/wordtree/pkg/wordtree/storage"
	"github.com/cognicore/wordtree/pkg/wordtree/transform"
	"github.com/cognicore/wordtree/pkg/wordtree/treebuild"
	"github.com/cognicore/wordtree/pkg/wordtree/treelookup"
	"github.com/cognicore/wordtree/pkg/wordtree/tree"
)

// baseTable holds BASE[category][length] for word lengths 3..7; length 8
// reuses the length-7 column.
var baseTable = map[transform.Category][5]float64{
	transform.Prf: {50, 100, 150, 200, 250},
	transform.Rch: {150, 300, 450, 600, 750},
	transform.Sln: {75, 150, 225, 300, 375},
	transform.Ana: {100, 300, 500, 700, 900},
	transform.Ola: {100, 200, 300, 400, 500},
	transform.Olr: {100, 200, 300, 400, 500},
	transform.Olx: {100, 200, 300, 400, 500},
}

// base returns BASE[cat][length], clamping length 8 to the length-7 column
// and any out-of-range length to the nearest defined column.
func base(cat transform.Category, length int) (float64, bool) {
	row, ok := baseTable[cat]
	if !ok {
		return 0, false
	}
	if length > 7 {
		length = 7
	}
	if length < 3 {
		length = 3
	}
	return row[length-3], true
}

// CategoryBreakdown is one category's contribution to a ScoringResult.
type CategoryBreakdown struct {
	Category   transform.Category
	Base       float64
	Creativity float64
	Bonus      float64
	Total      float64
}

// ScoringResult is the outcome of scoring one (anchor, candidate) pair.
type ScoringResult struct {
	Anchor               string
	Candidate            string
	Categories           []CategoryBreakdown
	TotalScore           float64
	MeanCreativity       float64
	UsingProbabilityTree bool
}

// Scorer ties together the transformation engine, tree builder, storage,
// and lookup into the final scoring arithmetic. Bonus values are memoised
// per (category, length, rounded-creativity) in a bounded LRU so repeated
// scoring of near-identical creativity values reuses the first bonus
// computed for that key; base values need no cache since baseTable is
// already an O(1) lookup.
type Scorer struct {
	engine  *transform.Engine
	builder *treebuild.Builder
	store   *storage.Store
	lex     *lexicon.Lexicon
	scheme  config.CreativityScheme

	bonusCache *lru.Cache[bonusKey, float64]
}

type bonusKey struct {
	cat          transform.Category
	length       int
	roundedCreat int64
}

// New builds a Scorer. scheme selects which creativity formula C7 and the
// fallback path use; it must not change between calls that are expected to
// produce comparable scores (spec: schemes are never mixed in one call).
func New(engine *transform.Engine, builder *treebuild.Builder, store *storage.Store, lex *lexicon.Lexicon, scheme config.CreativityScheme) (*Scorer, error) {
	cache, err := lru.New[bonusKey, float64](1000)
	if err != nil {
		return nil, fmt.Errorf("scorer: building bonus cache: %w", err)
	}
	return &Scorer{engine: engine, builder: builder, store: store, lex: lex, scheme: scheme, bonusCache: cache}, nil
}

// Score computes the ScoringResult for (anchor, candidate). It returns
// internalerr.ErrNotATransformation (wrapped with anchor/candidate) when no
// category classifies the pair, matching spec's "structured unsuccessful
// scoring" policy rather than treating it as an operational error.
func (s *Scorer) Score(anchor, candidate string) (ScoringResult, error) {
	cats, err := s.engine.Classify(anchor, candidate)
	if err != nil {
		return ScoringResult{}, err
	}
	if len(cats) == 0 {
		return ScoringResult{}, fmt.Errorf("scorer: %w: anchor=%s candidate=%s", internalerr.ErrNotATransformation, anchor, candidate)
	}

	tokenizer := s.builder.Tokenizer()
	seq := tokenizer.Encode(candidate)
	if len(seq) == 0 {
		return ScoringResult{}, fmt.Errorf("scorer: %w: %s", internalerr.ErrTokenizationEmpty, candidate)
	}

	wt, usingTree, err := s.treeFor(anchor)
	if err != nil || !usingTree {
		return s.fallbackScore(anchor, candidate, cats, seq)
	}

	length := len(candidate)
	breakdowns := make([]CategoryBreakdown, 0, len(cats))
	var totalScore, creatSum float64

	for _, cat := range cats {
		tcat := toTreeCategory(cat)
		var c float64
		if s.scheme == config.SchemeLayerRMS {
			c = treelookup.CreativityScoreLayerRMS(wt, tcat, seq)
		} else {
			// SequenceProbability is part of the tree-path contract but the
			// BASE/bonus arithmetic only consumes creativity (which
			// CreativityScore derives from it); its result is discarded here.
			_ = treelookup.SequenceProbability(wt, tcat, seq)
			c = treelookup.CreativityScore(wt, tcat, seq)
		}

		_, bd := s.scoreCategory(cat, length, c)
		breakdowns = append(breakdowns, bd)
		totalScore += bd.Total
		creatSum += c
	}

	return ScoringResult{
		Anchor:               anchor,
		Candidate:            candidate,
		Categories:           breakdowns,
		TotalScore:           totalScore,
		MeanCreativity:       creatSum / float64(len(cats)),
		UsingProbabilityTree: true,
	}, nil
}

// treeFor obtains anchor's tree from storage, falling back to a fresh build
// on a storage miss. usingTree reports whether a usable tree was obtained at
// all (false only when both storage and build fail, triggering the
// ML-direct fallback path).
func (s *Scorer) treeFor(anchor string) (*tree.WordProbabilityTree, bool, error) {
	if s.store != nil {
		if wt, ok, err := s.store.Get(anchor); err == nil && ok {
			return wt, true, nil
		}
	}

	frq := treebuild.Frequency(s.lex, anchor)
	wt, err := s.builder.Build(anchor, frq)
	if err != nil {
		return nil, false, err
	}

	if s.store != nil {
		_ = s.store.Put(anchor, wt)
	}
	return wt, true, nil
}

// scoreCategory applies the base/bonus/total arithmetic for one category,
// using the bonus LRU to memoise base_k * 0.5 * c_k per (category, length,
// creativity rounded to 1e-3).
func (s *Scorer) scoreCategory(cat transform.Category, length int, creativity float64) (float64, CategoryBreakdown) {
	baseVal, _ := base(cat, length)
	rounded := int64(math.Round(creativity * 1000))

	key := bonusKey{cat: cat, length: length, roundedCreat: rounded}
	var bonus float64
	if v, ok := s.bonusCache.Get(key); ok {
		bonus = v
	} else {
		bonus = baseVal * 0.5 * creativity
		s.bonusCache.Add(key, bonus)
	}

	total := baseVal + bonus
	return total, CategoryBreakdown{
		Category:   cat,
		Base:       baseVal,
		Creativity: creativity,
		Bonus:      bonus,
		Total:      total,
	}
}

// fallbackScore computes p and c directly from the model adapter per
// category, per the documented coarser behaviour: at each step the raw
// probability is divided by the sum of raw probabilities over the union of
// first-token ids across every candidate word in that category (not the
// tokens valid at the current prefix depth). This is an intentional,
// preserved deviation from the tree-exact computation (see DESIGN.md).
func (s *Scorer) fallbackScore(anchor, candidate string, cats []transform.Category, seq []modeladapter.TokenID) (ScoringResult, error) {
	model := s.builder.Model()
	tokenizer := s.builder.Tokenizer()

	set, err := s.engine.Enumerate(anchor)
	if err != nil {
		return ScoringResult{}, err
	}

	length := len(candidate)
	breakdowns := make([]CategoryBreakdown, 0, len(cats))
	var totalScore, creatSum float64

	for _, cat := range cats {
		words := set.ByCategory(cat)
		unionIDs := unionFirstTokens(tokenizer, words)

		context := fmt.Sprintf(treebuild.CategoryTemplates[toTreeCategory(cat)], anchor)
		_, c := fallbackWalk(model, tokenizer, context, seq, unionIDs)

		_, bd := s.scoreCategory(cat, length, c)
		breakdowns = append(breakdowns, bd)
		totalScore += bd.Total
		creatSum += c
	}

	return ScoringResult{
		Anchor:               anchor,
		Candidate:            candidate,
		Categories:           breakdowns,
		TotalScore:           totalScore,
		MeanCreativity:       creatSum / float64(len(cats)),
		UsingProbabilityTree: false,
	}, nil
}

// fallbackWalk computes the sequence probability directly from the model,
// one token at a time, dividing each step's raw probability by the sum of
// raw probabilities restricted to unionIDs rather than a tree-derived
// val_prb_sum. The creativity score is 1 - p, clamped to [0,1]; unlike the
// tree path it does not involve org_max or val_prb_sum.
func fallbackWalk(model modeladapter.Model, tokenizer *modeladapter.Tokenizer, context string, seq []modeladapter.TokenID, unionIDs []modeladapter.TokenID) (p, c float64) {
	p = 1.0
	ctx := context
	for _, tok := range seq {
		dist := model.NextTokenDistribution(ctx)
		restrictedSum := modeladapter.RestrictedSum(dist.Probs, unionIDs)
		if restrictedSum <= 0 {
			p = 0
			break
		}
		var raw float32
		if int(tok) < len(dist.Probs) {
			raw = dist.Probs[tok]
		}
		normalized := float64(raw) / float64(restrictedSum)
		p *= normalized

		ctx += tokenizer.Decode([]modeladapter.TokenID{tok})
	}
	c = 1.0 - p
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return p, c
}

func unionFirstTokens(tokenizer *modeladapter.Tokenizer, words []string) []modeladapter.TokenID {
	seen := make(map[modeladapter.TokenID]struct{})
	var out []modeladapter.TokenID
	for _, w := range words {
		tokens := tokenizer.Encode(w)
		if len(tokens) == 0 {
			continue
		}
		if _, ok := seen[tokens[0]]; ok {
			continue
		}
		seen[tokens[0]] = struct{}{}
		out = append(out, tokens[0])
	}
	return out
}

func toTreeCategory(c transform.Category) tree.Category {
	switch c {
	case transform.Prf:
		return tree.Prf
	case transform.Rch:
		return tree.Rch
	case transform.Sln:
		return tree.Sln
	case transform.Ana:
		return tree.Ana
	case transform.Ola:
		return tree.Ola
	case transform.Olr:
		return tree.Olr
	case transform.Olx:
		return tree.Olx
	default:
		return tree.Category(c)
	}
}
