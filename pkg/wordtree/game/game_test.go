package game

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cognicore/wordtree/pkg/wordtree/config"
	"github.com/cognicore/wordtree/pkg/wordtree/lexicon"
	"github.com/cognicore/wordtree/pkg/wordtree/modeladapter"
	"github.com/cognicore/wordtree/pkg/wordtree/pronounce"
	"github.com/cognicore/wordtree/pkg/wordtree/scorer"
	"github.com/cognicore/wordtree/pkg/wordtree/storage"
	"github.com/cognicore/wordtree/pkg/wordtree/transform"
	"github.com/cognicore/wordtree/pkg/wordtree/treebuild"
	"github.com/cognicore/wordtree/pkg/wordtree/trie"
)

func buildGameFixture(t *testing.T) (*transform.Engine, *scorer.Scorer, *lexicon.Lexicon) {
	t.Helper()
	dir := t.TempDir()

	words := []string{"cat", "hat", "bat", "act", "tac", "cot", "cats", "at"}
	var wordsFile string
	for _, w := range words {
		wordsFile += w + "\n"
	}
	if err := os.WriteFile(filepath.Join(dir, "words.txt"), []byte(wordsFile), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "frequencies.json"), []byte(`{"cat": 0.9, "hat": 0.8, "bat": 0.5, "act": 0.3}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "anagrams.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	lex, err := lexicon.Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	dictPath := filepath.Join(dir, "cmudict.txt")
	dict := "CAT  K AE1 T\nHAT  HH AE1 T\nBAT  B AE1 T\nACT  AE1 K T\nTAC  T AE1 K\nCOT  K AA1 T\nCATS  K AE1 T S\nAT  AE1 T\n"
	if err := os.WriteFile(dictPath, []byte(dict), 0o644); err != nil {
		t.Fatal(err)
	}
	phones, err := pronounce.Load(dictPath)
	if err != nil {
		t.Fatal(err)
	}

	tr := trie.New(lex.Words())
	engine := transform.New(lex, phones, tr, nil)

	tok, err := modeladapter.NewTokenizer(500)
	if err != nil {
		t.Fatal(err)
	}
	model := modeladapter.NewDeterministicModel(500)
	builder := treebuild.New(engine, tok, model)

	store, err := storage.Open(config.Options{
		StorageMode: config.StorageMemoryOnly,
		LRUCapacity: 10,
	})
	if err != nil {
		t.Fatal(err)
	}

	s, err := scorer.New(engine, builder, store, lex, config.SchemeProduct)
	if err != nil {
		t.Fatal(err)
	}
	return engine, s, lex
}

func TestNewRejectsUnknownAnchor(t *testing.T) {
	engine, s, lex := buildGameFixture(t)
	_, err := New(engine, s, lex, "zzzzz", 7)
	assert.Error(t, err, "expected error for anchor not in lexicon")
}

func TestPlayPlayerAdvancesChainAndScore(t *testing.T) {
	engine, s, lex := buildGameFixture(t)
	g, err := New(engine, s, lex, "cat", 7)
	if err != nil {
		t.Fatal(err)
	}

	result, err := g.PlayPlayer("hat")
	if err != nil {
		t.Fatal(err)
	}
	if !assert.Len(t, g.Player.Words, 1) {
		t.FailNow()
	}
	assert.Equal(t, "hat", g.Player.Words[0])
	assert.Equal(t, result.TotalScore, g.Player.Score, "chain score should match the latest play's total")
}

func TestPlayRejectsWordAlreadyUsedOnEitherChain(t *testing.T) {
	engine, s, lex := buildGameFixture(t)
	g, err := New(engine, s, lex, "cat", 7)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := g.PlayPlayer("hat"); err != nil {
		t.Fatal(err)
	}
	_, err = g.PlayUmi("hat")
	assert.Error(t, err, "expected replaying hat on Umi's chain to be rejected")
}

func TestSuggestForExcludesWordsUsedOnEitherChain(t *testing.T) {
	engine, s, lex := buildGameFixture(t)
	g, err := New(engine, s, lex, "cat", 7)
	if err != nil {
		t.Fatal(err)
	}

	// Umi's chain is still sitting on "cat"; playing "bat" on the player's
	// chain must still remove "bat" from Umi's suggestions, since
	// suggestions exclude words used on *either* chain.
	if _, err := g.PlayPlayer("bat"); err != nil {
		t.Fatal(err)
	}

	umiSuggestions, err := g.SuggestFor(&g.Umi)
	if err != nil {
		t.Fatal(err)
	}
	for cat, word := range umiSuggestions {
		assert.NotEqual(t, "bat", word, "category %v suggested a word already used on the player chain", cat)
	}
}

func TestStatusReportsRoundsAndScores(t *testing.T) {
	engine, s, lex := buildGameFixture(t)
	g, err := New(engine, s, lex, "cat", 7)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := g.PlayPlayer("hat"); err != nil {
		t.Fatal(err)
	}
	if _, err := g.PlayUmi("bat"); err != nil {
		t.Fatal(err)
	}

	status := g.Status()
	assert.Equal(t, 1, status.RoundsPlayed)
	assert.Equal(t, "hat", status.PlayerWord)
	assert.Equal(t, "bat", status.UmiWord)
	assert.Equal(t, g.Player.Score, status.PlayerScore)
	assert.Equal(t, g.Umi.Score, status.UmiScore)
	assert.Equal(t, 7, status.MaxTurns)
}
