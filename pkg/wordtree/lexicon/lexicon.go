// Package lexicon loads the static word list, per-word frequency table, and
// prime-signature anagram index that the transformation engine enumerates
// candidates from. All three artefacts are produced offline and are
// immutable once loaded.
package lexicon

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/cognicore/wordtree/internal/internalerr"
)

// MinLength and MaxLength bound the alphabetic words the lexicon accepts.
const (
	MinLength = 3
	MaxLength = 8
)

var wordPattern = regexp.MustCompile(`^[a-z]{3,8}$`)

// letterPrimes assigns a distinct prime to each of the 26 lowercase
// letters. Signature multiplies these together so that, by unique prime
// factorization, two words share a signature iff they share a multiset of
// letters.
var letterPrimes = [26]uint64{
	2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41,
	43, 47, 53, 59, 61, 67, 71, 73, 79, 83, 89, 97, 101,
}

// Signature computes w's prime signature: the product of the primes
// assigned to each letter in w. Collision-free across anagram groups by
// unique factorization. Non-alphabetic or uppercase input yields an
// undefined result; callers should lowercase and validate first.
func Signature(w string) uint64 {
	var sig uint64 = 1
	for i := 0; i < len(w); i++ {
		c := w[i]
		if c < 'a' || c > 'z' {
			continue
		}
		sig *= letterPrimes[c-'a']
	}
	return sig
}

// Lexicon is an immutable, in-memory view of words.txt, frequencies.json,
// and anagrams.json.
type Lexicon struct {
	words       map[string]struct{}
	frequencies map[string]float64
	anagrams    map[uint64][]string
}

// Stats summarizes the loaded lexicon.
type Stats struct {
	WordCount     int
	AnagramGroups int
	LargestGroup  int
}

// Load reads words.txt, frequencies.json, and anagrams.json from dir. Any
// missing file is reported as internalerr.ErrResourceMissing.
func Load(dir string) (*Lexicon, error) {
	words, err := loadWords(filepath.Join(dir, "words.txt"))
	if err != nil {
		return nil, err
	}

	freqs, err := loadFrequencies(filepath.Join(dir, "frequencies.json"))
	if err != nil {
		return nil, err
	}

	anagrams, err := loadAnagrams(filepath.Join(dir, "anagrams.json"))
	if err != nil {
		return nil, err
	}

	return &Lexicon{words: words, frequencies: freqs, anagrams: anagrams}, nil
}

func loadWords(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lexicon: %w: %s", internalerr.ErrResourceMissing, path)
	}
	defer f.Close()

	words := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		w := scanner.Text()
		if w == "" || !wordPattern.MatchString(w) {
			continue
		}
		words[w] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("lexicon: reading %s: %w", path, err)
	}
	return words, nil
}

func loadFrequencies(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lexicon: %w: %s", internalerr.ErrResourceMissing, path)
	}

	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("lexicon: parse %s: %w", path, err)
	}
	return raw, nil
}

func loadAnagrams(path string) (map[uint64][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lexicon: %w: %s", internalerr.ErrResourceMissing, path)
	}

	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("lexicon: parse %s: %w", path, err)
	}

	anagrams := make(map[uint64][]string, len(raw))
	for sigStr, group := range raw {
		sig, err := strconv.ParseUint(sigStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("lexicon: bad signature key %q in %s: %w", sigStr, path, err)
		}
		anagrams[sig] = group
	}
	return anagrams, nil
}

// Contains reports whether w is present in the lexicon.
func (l *Lexicon) Contains(w string) bool {
	_, ok := l.words[w]
	return ok
}

// Frequency returns w's relative frequency, or 0 if w is not present.
func (l *Lexicon) Frequency(w string) float64 {
	return l.frequencies[w]
}

// AnagramGroup returns every word sharing sig's prime signature. The caller
// is responsible for excluding the anchor itself if needed; AnagramGroup
// returns the stored group verbatim.
func (l *Lexicon) AnagramGroup(sig uint64) []string {
	return l.anagrams[sig]
}

// Len returns the number of distinct words in the lexicon.
func (l *Lexicon) Len() int {
	return len(l.words)
}

// Words returns every word in the lexicon. Each call allocates a fresh
// slice; the caller may freely mutate it.
func (l *Lexicon) Words() []string {
	out := make([]string, 0, len(l.words))
	for w := range l.words {
		out = append(out, w)
	}
	return out
}

// Stats reports summary counts useful for diagnostics and tests.
func (l *Lexicon) Stats() Stats {
	largest := 0
	for _, group := range l.anagrams {
		if len(group) > largest {
			largest = len(group)
		}
	}
	return Stats{
		WordCount:     len(l.words),
		AnagramGroups: len(l.anagrams),
		LargestGroup:  largest,
	}
}
