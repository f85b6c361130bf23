package transform

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cognicore/wordtree/pkg/wordtree/lexicon"
	"github.com/cognicore/wordtree/pkg/wordtree/pronounce"
	"github.com/cognicore/wordtree/pkg/wordtree/trie"
)

// testFixture bundles the words, phones, and frequencies used across
// transform tests. Words chosen to exercise every category at once:
// cat/hat/bat/rat perfect-rhyme; cat/act/tac anagram; cat/cats (ola)/cot
// (olx); cats/cat (olr). "at", "xylophone" and "telephone" fall outside the
// lexicon's 3-8 letter rule and are dropped on load.
var fixtureWords = []string{
	"cat", "hat", "bat", "rat", "act", "tac", "cot", "cats", "at", "dog",
	"read", "reed", "xylophone", "telephone", "tree", "lee", "lemon",
}

var fixturePhones = map[string][]pronounce.Phones{
	"cat":       {{"K", "AE1", "T"}},
	"hat":       {{"HH", "AE1", "T"}},
	"bat":       {{"B", "AE1", "T"}},
	"rat":       {{"R", "AE1", "T"}},
	"act":       {{"AE1", "K", "T"}},
	"tac":       {{"T", "AE1", "K"}},
	"cot":       {{"K", "AA1", "T"}},
	"cats":      {{"K", "AE1", "T", "S"}},
	"at":        {{"AE1", "T"}},
	"dog":       {{"D", "AO1", "G"}},
	"read":      {{"R", "IY1", "D"}},
	"reed":      {{"R", "IY1", "D"}},
	"xylophone": {{"Z", "AY1", "L", "AH0", "F", "OW2", "N"}},
	"telephone": {{"T", "EH1", "L", "AH0", "F", "OW2", "N"}},
	"tree":      {{"T", "R", "IY1"}},
	"lee":       {{"L", "IY1"}},
	"lemon":     {{"L", "EH1", "M", "AH0", "N"}},
}

func buildFixture(t *testing.T) (*lexicon.Lexicon, *pronounce.Dict, *trie.Trie) {
	t.Helper()
	dir := t.TempDir()

	wordsFile := ""
	for _, w := range fixtureWords {
		wordsFile += w + "\n"
	}
	if err := os.WriteFile(filepath.Join(dir, "words.txt"), []byte(wordsFile), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "frequencies.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	groups := make(map[uint64][]string)
	for _, w := range fixtureWords {
		sig := lexicon.Signature(w)
		groups[sig] = append(groups[sig], w)
	}
	anagramsJSON := map[string][]string{}
	for sig, group := range groups {
		if len(group) > 1 {
			sort.Strings(group)
			anagramsJSON[strconv.FormatUint(sig, 10)] = group
		}
	}
	data, err := json.Marshal(anagramsJSON)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "anagrams.json"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	lex, err := lexicon.Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	dictPath := filepath.Join(dir, "cmudict.txt")
	var dictFile string
	for w, prons := range fixturePhones {
		for i, p := range prons {
			suffix := ""
			if i > 0 {
				suffix = "(" + strconv.Itoa(i+1) + ")"
			}
			line := w + suffix
			for _, ph := range p {
				line += "  " + string(ph)
			}
			dictFile += line + "\n"
		}
	}
	if err := os.WriteFile(dictPath, []byte(dictFile), 0o644); err != nil {
		t.Fatal(err)
	}
	phones, err := pronounce.Load(dictPath)
	if err != nil {
		t.Fatal(err)
	}

	tr := trie.New(lex.Words())
	return lex, phones, tr
}

func buildTestEngine(t *testing.T) *Engine {
	lex, phones, tr := buildFixture(t)
	table, err := NewHomophoneTable([][2]string{{"read", "reed"}})
	if err != nil {
		t.Fatal(err)
	}
	return New(lex, phones, tr, table)
}

func contains(list []string, w string) bool {
	for _, c := range list {
		if c == w {
			return true
		}
	}
	return false
}

func TestEnumerateUnknownAnchor(t *testing.T) {
	e := buildTestEngine(t)
	_, err := e.Enumerate("zzzzz")
	assert.Error(t, err, "expected ErrUnknownWord for anchor not in lexicon")
}

func TestEnumerateAnagrams(t *testing.T) {
	e := buildTestEngine(t)
	set, err := e.Enumerate("cat")
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, contains(set.Ana, "act"), "Ana = %v, want act", set.Ana)
	assert.True(t, contains(set.Ana, "tac"), "Ana = %v, want tac", set.Ana)
	assert.False(t, contains(set.Ana, "cat"), "anagram list must not contain the anchor")
}

func TestEnumerateOLO(t *testing.T) {
	e := buildTestEngine(t)
	set, err := e.Enumerate("cat")
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, contains(set.Ola, "cats"), "Ola = %v, want cats", set.Ola)
	assert.True(t, contains(set.Olx, "cot"), "Olx = %v, want cot", set.Olx)

	// A three-letter anchor has no removal candidate of admissible length,
	// so one-letter-removed is exercised from "cats".
	set, err = e.Enumerate("cats")
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, contains(set.Olr, "cat"), "Olr = %v, want cat", set.Olr)
}

func TestEnumerateRhymes(t *testing.T) {
	e := buildTestEngine(t)
	set, err := e.Enumerate("cat")
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, contains(set.Prf, "hat"), "Prf = %v, want hat", set.Prf)
	assert.True(t, contains(set.Prf, "bat"), "Prf = %v, want bat", set.Prf)
	assert.True(t, contains(set.Prf, "rat"), "Prf = %v, want rat", set.Prf)
}

func TestEnumerateHomophoneRichRhyme(t *testing.T) {
	e := buildTestEngine(t)
	set, err := e.Enumerate("read")
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, contains(set.Rch, "reed"), "Rch = %v, want reed (curated homophone)", set.Rch)
}

func TestEnumerateNoDuplicatesOrSelf(t *testing.T) {
	e := buildTestEngine(t)
	set, err := e.Enumerate("cat")
	if err != nil {
		t.Fatal(err)
	}
	for _, list := range [][]string{set.Prf, set.Rch, set.Sln, set.Ana, set.Ola, set.Olr, set.Olx} {
		seen := make(map[string]bool)
		for _, w := range list {
			assert.NotEqual(t, "cat", w, "category list contains the anchor")
			assert.Falsef(t, seen[w], "duplicate %q in category list", w)
			seen[w] = true
		}
	}
}

func TestClassifyAnagram(t *testing.T) {
	e := buildTestEngine(t)
	cats, err := e.Classify("cat", "act")
	if err != nil {
		t.Fatal(err)
	}
	assert.Containsf(t, cats, Ana, "Classify(cat, act) = %v, want Ana", cats)
}

func TestClassifyNotATransformation(t *testing.T) {
	e := buildTestEngine(t)
	cats, err := e.Classify("cat", "lemon")
	if err != nil {
		t.Fatal(err)
	}
	assert.Empty(t, cats)
}

func TestClassifySelfIsNotATransformation(t *testing.T) {
	e := buildTestEngine(t)
	cats, err := e.Classify("cat", "cat")
	if err != nil {
		t.Fatal(err)
	}
	assert.Empty(t, cats)
}

func TestOneLetterEditKinds(t *testing.T) {
	_, kind, ok := oneLetterEdit("cat", "cats")
	assert.True(t, ok)
	assert.Equal(t, Ola, kind)

	_, kind, ok = oneLetterEdit("cat", "at")
	assert.True(t, ok)
	assert.Equal(t, Olr, kind)

	_, kind, ok = oneLetterEdit("cat", "cot")
	assert.True(t, ok)
	assert.Equal(t, Olx, kind)

	_, _, ok = oneLetterEdit("cat", "dog")
	assert.False(t, ok, "cat->dog is not a one-letter edit")
}

func TestLoadHomophoneTableReadsFactFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "homophones.pl")
	contents := "% curated dialectal/loanword exceptions\nhomophone(flour, flower).\nhomophone(flower, flour).\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadHomophoneTable(path)
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, table.AreHomophones("flour", "flower"), "expected flour/flower to be loaded as homophones")
	assert.False(t, table.AreHomophones("flour", "cat"), "unrelated pair should not be reported as homophones")
}

func TestLoadHomophoneTableMissingFileFallsBackEmpty(t *testing.T) {
	table, err := LoadHomophoneTable(filepath.Join(t.TempDir(), "does-not-exist.pl"))
	if err != nil {
		t.Fatal(err)
	}
	assert.False(t, table.AreHomophones("flour", "flower"), "table built from a missing file should have no facts")
}
