package transform

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/ichiban/prolog"

	"github.com/cognicore/wordtree/internal/internalerr"
)

// HomophoneTable holds the small curated set of homophone pairs that the
// rich-rhyme (Rch) classifier consults in addition to identical-phones
// detection — pairs CMU pronunciation data alone would miss (dialectal
// mergers, loanwords the dictionary transcribes inconsistently, etc). The
// table is expressed as Prolog facts and queried with a tiny interpreter,
// matching the engine's other symbolic-lookup concern rather than
// hand-rolling a second map-based rule table.
type HomophoneTable struct {
	interp *prolog.Interpreter
}

// NewHomophoneTable builds a table from a set of word pairs, e.g.
// [][2]string{{"bear", "bare"}, {"flour", "flower"}}.
func NewHomophoneTable(pairs [][2]string) (*HomophoneTable, error) {
	interp := prolog.New(nil, nil)

	var facts strings.Builder
	for _, pair := range pairs {
		a, b := strings.ToLower(pair[0]), strings.ToLower(pair[1])
		fmt.Fprintf(&facts, "homophone(%s, %s).\n", a, b)
		fmt.Fprintf(&facts, "homophone(%s, %s).\n", b, a)
	}

	if facts.Len() > 0 {
		if err := interp.Exec(facts.String()); err != nil {
			return nil, fmt.Errorf("transform: loading homophone facts: %w", err)
		}
	}

	return &HomophoneTable{interp: interp}, nil
}

// LoadHomophoneTable reads a game_data/homophones.pl-style fact file —
// lines of the form "homophone(bear, bare)." — into the table. A missing
// file is not an error: the curated list is optional, and the table then
// answers false for every pair, leaving the Rch classifier with
// identical-phones detection alone.
func LoadHomophoneTable(path string) (*HomophoneTable, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return NewHomophoneTable(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("transform: %w: %v", internalerr.ErrResourceMissing, err)
	}
	defer f.Close()

	var facts strings.Builder
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		facts.WriteString(line)
		facts.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("transform: reading %s: %w", path, err)
	}

	interp := prolog.New(nil, nil)
	if facts.Len() > 0 {
		if err := interp.Exec(facts.String()); err != nil {
			return nil, fmt.Errorf("transform: loading homophone facts from %s: %w", path, err)
		}
	}
	return &HomophoneTable{interp: interp}, nil
}

// AreHomophones reports whether (a, b) appears in the curated table.
func (h *HomophoneTable) AreHomophones(a, b string) bool {
	if h == nil || h.interp == nil {
		return false
	}
	sols, err := h.interp.Query(fmt.Sprintf("homophone(%s, %s).", strings.ToLower(a), strings.ToLower(b)))
	if err != nil {
		return false
	}
	defer sols.Close()
	return sols.Next()
}
