// Package transform enumerates the seven transformation categories for an
// anchor word (perfect/rich/slant rhyme, anagram, one-letter add/remove/
// change) and classifies a candidate word against an anchor.
package transform

import (
	"fmt"
	"strings"

	"github.com/cognicore/wordtree/internal/internalerr"
	"github.com/cognicore/wordtree/pkg/wordtree/lexicon"
	"github.com/cognicore/wordtree/pkg/wordtree/pronounce"
	"github.com/cognicore/wordtree/pkg/wordtree/trie"
)

// Category is one of the seven closed transformation categories.
type Category string

const (
	Prf Category = "prf" // perfect rhyme
	Rch Category = "rch" // rich rhyme (homophone)
	Sln Category = "sln" // slant rhyme
	Ana Category = "ana" // anagram
	Ola Category = "ola" // one letter added
	Olr Category = "olr" // one letter removed
	Olx Category = "olx" // one letter changed
)

// Categories lists every category in a fixed, stable order, matching the
// field order of Set and of the probability tree's category slots.
var Categories = []Category{Prf, Rch, Sln, Ana, Ola, Olr, Olx}

// Set holds, for one anchor, the seven ordered lists of distinct candidate
// words. A word may appear in more than one list only by linguistic
// accident; Engine.Classify reports every category a pair qualifies for.
type Set struct {
	Prf []string
	Rch []string
	Sln []string
	Ana []string
	Ola []string
	Olr []string
	Olx []string
}

// ByCategory returns the list for the given category.
func (s Set) ByCategory(c Category) []string {
	switch c {
	case Prf:
		return s.Prf
	case Rch:
		return s.Rch
	case Sln:
		return s.Sln
	case Ana:
		return s.Ana
	case Ola:
		return s.Ola
	case Olr:
		return s.Olr
	case Olx:
		return s.Olx
	default:
		return nil
	}
}

// Engine enumerates and classifies transformations using the lexicon, the
// phone dictionary, and a prefix trie built over the same lexicon.
type Engine struct {
	lex        *lexicon.Lexicon
	phones     *pronounce.Dict
	prefix     *trie.Trie
	homophones *HomophoneTable
}

// New builds a transformation engine. The trie must be built over exactly
// the words present in lex (callers typically build both from the same
// lexicon.Words() call at startup).
func New(lex *lexicon.Lexicon, phones *pronounce.Dict, prefix *trie.Trie, homophones *HomophoneTable) *Engine {
	return &Engine{lex: lex, phones: phones, prefix: prefix, homophones: homophones}
}

// isValidCandidate applies the admission rules common to every category:
// present in the lexicon, pronounceable, length 3-8, alphabetic, no three
// identical consecutive letters, and not equal to the anchor.
func (e *Engine) isValidCandidate(anchor, w string) bool {
	if w == anchor {
		return false
	}
	if len(w) < lexicon.MinLength || len(w) > lexicon.MaxLength {
		return false
	}
	if !isAlphabetic(w) {
		return false
	}
	if hasTripleLetter(w) {
		return false
	}
	if !e.lex.Contains(w) {
		return false
	}
	if !e.phones.IsPronounceable(w) {
		return false
	}
	return true
}

func isAlphabetic(w string) bool {
	for i := 0; i < len(w); i++ {
		c := w[i]
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}

func hasTripleLetter(w string) bool {
	for i := 0; i+2 < len(w); i++ {
		if w[i] == w[i+1] && w[i+1] == w[i+2] {
			return true
		}
	}
	return false
}

// Enumerate builds the full TransformationSet for anchor. Returns
// internalerr.ErrUnknownWord if anchor itself is not in the lexicon; every
// other failure mode (no candidates in a category) yields an empty list,
// never an error.
func (e *Engine) Enumerate(anchor string) (Set, error) {
	anchor = strings.ToLower(anchor)
	if !e.lex.Contains(anchor) {
		return Set{}, fmt.Errorf("transform: %w: %s", internalerr.ErrUnknownWord, anchor)
	}

	var set Set
	set.Ana = dedupValid(e, anchor, e.anagramCandidates(anchor))

	ola, olr, olx := e.oloCandidates(anchor)
	set.Ola = dedupValid(e, anchor, ola)
	set.Olr = dedupValid(e, anchor, olr)
	set.Olx = dedupValid(e, anchor, olx)

	prf, rch, sln := e.rhymeCandidates(anchor)
	set.Prf = dedupValid(e, anchor, prf)
	set.Rch = dedupValid(e, anchor, rch)
	set.Sln = dedupValid(e, anchor, sln)

	return set, nil
}

// dedupValid filters candidates through the shared admission rule and
// removes duplicates while preserving first-seen order.
func dedupValid(e *Engine, anchor string, candidates []string) []string {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.ToLower(c)
		if _, ok := seen[c]; ok {
			continue
		}
		if !e.isValidCandidate(anchor, c) {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// anagramCandidates returns every word sharing anchor's prime signature.
func (e *Engine) anagramCandidates(anchor string) []string {
	sig := lexicon.Signature(anchor)
	return e.lex.AnagramGroup(sig)
}

// oloCandidates walks the prefix trie at each position of anchor to find
// one-letter-added, one-letter-removed, and one-letter-changed neighbors.
func (e *Engine) oloCandidates(anchor string) (ola, olr, olx []string) {
	n := len(anchor)

	for i := 0; i <= n; i++ {
		prefix := anchor[:i]
		suffix := anchor[i:]
		for _, c := range e.prefix.ChildLetters(prefix) {
			candidate := prefix + string(c) + suffix
			if e.prefix.Contains(candidate) {
				ola = append(ola, candidate)
			}
		}
	}

	for i := 0; i < n; i++ {
		candidate := anchor[:i] + anchor[i+1:]
		if e.prefix.Contains(candidate) {
			olr = append(olr, candidate)
		}
	}

	for i := 0; i < n; i++ {
		prefix := anchor[:i]
		suffix := anchor[i+1:]
		for _, c := range e.prefix.ChildLetters(prefix) {
			if c == anchor[i] {
				continue
			}
			candidate := prefix + string(c) + suffix
			if e.prefix.Contains(candidate) {
				olx = append(olx, candidate)
			}
		}
	}

	return ola, olr, olx
}

// rhymeCandidatePool returns every lexicon word sharing at least one
// rhyming part with any pronunciation of the anchor.
func (e *Engine) rhymeCandidatePool(anchor string) []string {
	anchorPhones := e.phones.PhonesFor(anchor)
	if len(anchorPhones) == 0 {
		return nil
	}

	anchorRhymingParts := make([]pronounce.Phones, 0, len(anchorPhones))
	for _, p := range anchorPhones {
		if rp := pronounce.RhymingPart(p); rp != nil {
			anchorRhymingParts = append(anchorRhymingParts, rp)
		}
	}
	if len(anchorRhymingParts) == 0 {
		return nil
	}

	var pool []string
	for _, w := range e.lex.Words() {
		if w == anchor {
			continue
		}
		candPhones := e.phones.PhonesFor(w)
		if len(candPhones) == 0 {
			continue
		}
		if sharesRhymingPart(anchorRhymingParts, candPhones) {
			pool = append(pool, w)
		}
	}
	return pool
}

func sharesRhymingPart(anchorParts []pronounce.Phones, candPhones []pronounce.Phones) bool {
	for _, cp := range candPhones {
		crp := pronounce.RhymingPart(cp)
		if crp == nil {
			continue
		}
		for _, ap := range anchorParts {
			if phonesEqual(ap, crp) {
				return true
			}
		}
	}
	return false
}

// rhymeCandidates classifies the rhyme candidate pool into perfect, rich,
// and slant buckets. When several classes match a single pronunciation
// pair, Rch (identical phones or a curated homophone) wins over Prf, which
// wins over Sln; a word can still land in more than one bucket when
// different pronunciation pairs yield different classes.
func (e *Engine) rhymeCandidates(anchor string) (prf, rch, sln []string) {
	anchorPhones := e.phones.PhonesFor(anchor)
	pool := e.rhymeCandidatePool(anchor)

	for _, cand := range pool {
		candPhones := e.phones.PhonesFor(cand)
		classes := e.classifyRhymePair(anchor, anchorPhones, cand, candPhones)
		if classes[Prf] {
			prf = append(prf, cand)
		}
		if classes[Rch] {
			rch = append(rch, cand)
		}
		if classes[Sln] {
			sln = append(sln, cand)
		}
	}
	return prf, rch, sln
}

// classifyRhymePair inspects every pronunciation pair between anchor and
// candidate and returns the set of rhyme classes that hold for at least
// one pair.
func (e *Engine) classifyRhymePair(anchor string, anchorPhones []pronounce.Phones, cand string, candPhones []pronounce.Phones) map[Category]bool {
	classes := make(map[Category]bool)

	isHomophone := e.homophones != nil && e.homophones.AreHomophones(anchor, cand)

	for _, ap := range anchorPhones {
		arp := pronounce.RhymingPart(ap)
		for _, cp := range candPhones {
			crp := pronounce.RhymingPart(cp)

			if phonesEqual(ap, cp) || isHomophone {
				classes[Rch] = true
				continue
			}
			if arp != nil && crp != nil && phonesEqual(arp, crp) {
				classes[Prf] = true
				continue
			}
			if arp != nil && crp != nil && isSlantRhyme(arp, crp) {
				classes[Sln] = true
			}
		}
	}

	return classes
}

func phonesEqual(a, b pronounce.Phones) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// isSlantRhyme tests assonance, consonance, and half-rhyme on two rhyming
// parts; any one test passing is sufficient.
func isSlantRhyme(a, b pronounce.Phones) bool {
	return hasAssonance(a, b) || hasConsonance(a, b) || hasHalfRhyme(a, b)
}

// hasAssonance holds when the stressed-vowel sequences (phones whose base
// carries a stress digit) are identical.
func hasAssonance(a, b pronounce.Phones) bool {
	va := vowelBases(a)
	vb := vowelBases(b)
	if len(va) == 0 || len(vb) == 0 {
		return false
	}
	return equalStrings(va, vb)
}

func vowelBases(p pronounce.Phones) []string {
	var out []string
	for _, ph := range p {
		if ph.Stress() >= 0 {
			out = append(out, ph.Base())
		}
	}
	return out
}

// hasConsonance holds when the trailing two or more consonant phones (no
// stress digit) are identical.
func hasConsonance(a, b pronounce.Phones) bool {
	ca := trailingConsonants(a)
	cb := trailingConsonants(b)
	if len(ca) < 2 || len(cb) < 2 {
		return false
	}
	return equalStrings(lastN(ca, 2), lastN(cb, 2))
}

func trailingConsonants(p pronounce.Phones) []string {
	var out []string
	for i := len(p) - 1; i >= 0; i-- {
		if p[i].Stress() >= 0 {
			break
		}
		out = append([]string{p[i].Base()}, out...)
	}
	return out
}

func lastN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// hasHalfRhyme holds when at least two phonemes match in the same
// position across the two sequences, and the overlap covers at least half
// of the shorter sequence's positions.
func hasHalfRhyme(a, b pronounce.Phones) bool {
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	if minLen == 0 {
		return false
	}
	matches := 0
	for i := 0; i < minLen; i++ {
		if a[len(a)-1-i].Base() == b[len(b)-1-i].Base() {
			matches++
		}
	}
	return matches >= 2 && float64(matches)/float64(minLen) >= 0.5
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Classify reports every category that classifies the (anchor, candidate)
// pair, independent of Enumerate: it reapplies the same admission and
// classification rules directly rather than scanning a cached Set, so
// callers that already hold a Set should prefer scanning it when possible.
func (e *Engine) Classify(anchor, candidate string) ([]Category, error) {
	anchor = strings.ToLower(anchor)
	candidate = strings.ToLower(candidate)
	if !e.lex.Contains(anchor) {
		return nil, fmt.Errorf("transform: %w: %s", internalerr.ErrUnknownWord, anchor)
	}
	if !e.isValidCandidate(anchor, candidate) {
		return nil, nil
	}

	var found []Category
	if lexicon.Signature(anchor) == lexicon.Signature(candidate) {
		found = append(found, Ana)
	}

	if dist, kind, ok := oneLetterEdit(anchor, candidate); ok && dist == 1 {
		found = append(found, kind)
	}

	anchorPhones := e.phones.PhonesFor(anchor)
	candPhones := e.phones.PhonesFor(candidate)
	if len(anchorPhones) > 0 && len(candPhones) > 0 {
		classes := e.classifyRhymePair(anchor, anchorPhones, candidate, candPhones)
		for _, c := range []Category{Prf, Rch, Sln} {
			if classes[c] {
				found = append(found, c)
			}
		}
	}

	return found, nil
}

// oneLetterEdit reports whether candidate is exactly one letter away from
// anchor, and if so, which OLO sub-category it belongs to.
func oneLetterEdit(anchor, candidate string) (dist int, kind Category, ok bool) {
	if len(candidate) == len(anchor)+1 {
		if isInsertion(anchor, candidate) {
			return 1, Ola, true
		}
	}
	if len(candidate) == len(anchor)-1 {
		if isInsertion(candidate, anchor) {
			return 1, Olr, true
		}
	}
	if len(candidate) == len(anchor) {
		diff := 0
		for i := 0; i < len(anchor); i++ {
			if anchor[i] != candidate[i] {
				diff++
			}
		}
		if diff == 1 {
			return 1, Olx, true
		}
	}
	return 0, "", false
}

// isInsertion reports whether longer can be formed by inserting exactly
// one character into shorter.
func isInsertion(shorter, longer string) bool {
	i, j := 0, 0
	skipped := false
	for i < len(shorter) && j < len(longer) {
		if shorter[i] == longer[j] {
			i++
			j++
			continue
		}
		if skipped {
			return false
		}
		skipped = true
		j++
	}
	return true
}
