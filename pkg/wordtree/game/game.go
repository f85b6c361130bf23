// Package game provides the in-process game coordinator contract: two
// independent word chains over a shared anchor, per-category suggestion
// maps, and per-turn scoring. The HTTP surface, session persistence, and
// terminal rendering that drive this in the original tool stay external
// collaborators; only the contract they'd call against lives here.
package game

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cognicore/wordtree/internal/internalerr"
	"github.com/cognicore/wordtree/pkg/wordtree/lexicon"
	"github.com/cognicore/wordtree/pkg/wordtree/scorer"
	"github.com/cognicore/wordtree/pkg/wordtree/transform"
)

// Turn records one accepted play on a chain: the word played, the
// categories it was classified under, and its scoring breakdown.
type Turn struct {
	Word   string
	Result scorer.ScoringResult
}

// Chain is one player's (or Umi's) word history over a shared anchor. A
// word may not be replayed on either chain sharing a Coordinator.
type Chain struct {
	Anchor string
	Words  []string
	Turns  []Turn
	Score  float64
}

// current returns the chain's most recent word, or its anchor if no turns
// have been played yet.
func (c *Chain) current() string {
	if len(c.Words) == 0 {
		return c.Anchor
	}
	return c.Words[len(c.Words)-1]
}

// Suggestions maps each category to its best candidate by lexicon
// frequency, already excluding every word used on either chain.
type Suggestions map[transform.Category]string

// Coordinator runs one game: a player chain and an Umi chain sharing an
// anchor, using the transformation engine for enumeration/classification,
// the scorer for per-turn scores, and the lexicon for frequency-ranked
// suggestions.
type Coordinator struct {
	ID      string
	engine  *transform.Engine
	scorer  *scorer.Scorer
	lex     *lexicon.Lexicon
	maxTurn int

	Player Chain
	Umi    Chain
	used   map[string]struct{}
}

// New starts a game on anchor. maxTurns is only reported back by Status();
// it does not itself stop Play from being called.
func New(engine *transform.Engine, sc *scorer.Scorer, lex *lexicon.Lexicon, anchor string, maxTurns int) (*Coordinator, error) {
	if !lex.Contains(anchor) {
		return nil, fmt.Errorf("game: %w: %s", internalerr.ErrUnknownWord, anchor)
	}
	return &Coordinator{
		ID:      uuid.NewString(),
		engine:  engine,
		scorer:  sc,
		lex:     lex,
		maxTurn: maxTurns,
		Player:  Chain{Anchor: anchor},
		Umi:     Chain{Anchor: anchor},
		used:    map[string]struct{}{anchor: {}},
	}, nil
}

// PlayPlayer scores candidate as the player's next move off their chain's
// current word and, if it classifies, appends it to the player chain and
// marks it used on both chains.
func (g *Coordinator) PlayPlayer(candidate string) (scorer.ScoringResult, error) {
	return g.play(&g.Player, candidate)
}

// PlayUmi plays candidate onto Umi's chain, mirroring PlayPlayer.
func (g *Coordinator) PlayUmi(candidate string) (scorer.ScoringResult, error) {
	return g.play(&g.Umi, candidate)
}

func (g *Coordinator) play(chain *Chain, candidate string) (scorer.ScoringResult, error) {
	if _, used := g.used[candidate]; used {
		return scorer.ScoringResult{}, fmt.Errorf("game: %w: %s already used on a chain", internalerr.ErrNotATransformation, candidate)
	}

	result, err := g.scorer.Score(chain.current(), candidate)
	if err != nil {
		return scorer.ScoringResult{}, err
	}

	chain.Words = append(chain.Words, candidate)
	chain.Turns = append(chain.Turns, Turn{Word: candidate, Result: result})
	chain.Score += result.TotalScore
	g.used[candidate] = struct{}{}

	return result, nil
}

// SuggestFor returns, for chain's current word, the best candidate per
// category by lexicon frequency, excluding every word already used on
// either chain. A category with no unused candidate is omitted.
func (g *Coordinator) SuggestFor(chain *Chain) (Suggestions, error) {
	set, err := g.engine.Enumerate(chain.current())
	if err != nil {
		return nil, err
	}

	out := make(Suggestions)
	for _, cat := range transform.Categories {
		best := g.bestUnused(set.ByCategory(cat))
		if best != "" {
			out[cat] = best
		}
	}
	return out, nil
}

// bestUnused returns the highest-frequency word in candidates that has not
// been played on either chain, or "" if none qualify.
func (g *Coordinator) bestUnused(candidates []string) string {
	best := ""
	bestFreq := -1.0
	for _, c := range candidates {
		if _, used := g.used[c]; used {
			continue
		}
		f := g.lex.Frequency(c)
		if f > bestFreq {
			best, bestFreq = c, f
		}
	}
	return best
}

// Status is a point-in-time snapshot of the game, shaped after the
// original terminal harness's status report (word, round count, both
// scores, both chains) minus the terminal rendering itself.
type Status struct {
	ID           string
	Anchor       string
	RoundsPlayed int
	MaxTurns     int
	PlayerWord   string
	PlayerChain  []string
	PlayerScore  float64
	UmiWord      string
	UmiChain     []string
	UmiScore     float64
}

// Status reports the coordinator's current state.
func (g *Coordinator) Status() Status {
	rounds := len(g.Player.Turns)
	if len(g.Umi.Turns) > rounds {
		rounds = len(g.Umi.Turns)
	}
	return Status{
		ID:           g.ID,
		Anchor:       g.Player.Anchor,
		RoundsPlayed: rounds,
		MaxTurns:     g.maxTurn,
		PlayerWord:   g.Player.current(),
		PlayerChain:  append([]string(nil), g.Player.Words...),
		PlayerScore:  g.Player.Score,
		UmiWord:      g.Umi.current(),
		UmiChain:     append([]string(nil), g.Umi.Words...),
		UmiScore:     g.Umi.Score,
	}
}
