// Package pronounce wraps a read-only CMU-style phone dictionary: ordered
// sequences of phonemes (each an optional stress digit), from which the
// rhyme classifier derives rhyming parts, stress patterns, and syllable
// counts. Built once at startup and immutable thereafter, like the
// lexicon's trie.
package pronounce

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cognicore/wordtree/internal/internalerr"
)

// Phone is a single phoneme, e.g. "AE1" or "T". The trailing digit, if
// present, is the stress marker (0 = unstressed, 1 = primary, 2 =
// secondary).
type Phone string

// Stress returns the phone's stress digit, or -1 if the phone carries no
// stress marker (consonants never do in CMU-style dictionaries).
func (p Phone) Stress() int {
	s := string(p)
	if len(s) == 0 {
		return -1
	}
	last := s[len(s)-1]
	if last < '0' || last > '2' {
		return -1
	}
	return int(last - '0')
}

// Base returns the phone with any trailing stress digit stripped.
func (p Phone) Base() string {
	s := string(p)
	if len(s) > 0 {
		last := s[len(s)-1]
		if last >= '0' && last <= '2' {
			return s[:len(s)-1]
		}
	}
	return s
}

// Phones is one ordered pronunciation.
type Phones []Phone

// Dict is an immutable, read-only view of a CMU-style phone dictionary:
// word -> one or more pronunciations.
type Dict struct {
	entries map[string][]Phones
}

// Load reads a CMU-style dictionary file: one entry per line, formatted as
// "WORD  PH0 PH1 PH2 ...", with alternate pronunciations suffixed
// "WORD(1)", "WORD(2)", etc. Lines beginning with ";;;" are comments.
func Load(path string) (*Dict, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pronounce: %w: %s", internalerr.ErrResourceMissing, path)
	}
	defer f.Close()

	entries := make(map[string][]Phones)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";;;") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		word := normalizeEntryWord(fields[0])
		phones := make(Phones, 0, len(fields)-1)
		for _, f := range fields[1:] {
			phones = append(phones, Phone(f))
		}
		entries[word] = append(entries[word], phones)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("pronounce: reading %s: %w", path, err)
	}

	return &Dict{entries: entries}, nil
}

// normalizeEntryWord strips a CMU-style "(1)"/"(2)" alternate-pronunciation
// suffix and lowercases the entry.
func normalizeEntryWord(w string) string {
	w = strings.ToLower(w)
	if i := strings.IndexByte(w, '('); i >= 0 {
		w = w[:i]
	}
	return w
}

// PhonesFor returns every known pronunciation of w, or an empty slice if w
// is not in the dictionary. Total: never errors.
func (d *Dict) PhonesFor(w string) []Phones {
	return d.entries[strings.ToLower(w)]
}

// IsPronounceable reports whether w has at least one known pronunciation.
func (d *Dict) IsPronounceable(w string) bool {
	return len(d.entries[strings.ToLower(w)]) > 0
}

// SyllableCount counts the stressed and unstressed vowel phones (those
// carrying a stress digit) in the given pronunciation.
func SyllableCount(p Phones) int {
	count := 0
	for _, ph := range p {
		if ph.Stress() >= 0 {
			count++
		}
	}
	return count
}

// RhymingPart returns the suffix of p starting at the last primary or
// secondary stressed vowel (stress 1 or 2) through the end of the
// pronunciation. If no stressed vowel is found, returns nil.
func RhymingPart(p Phones) Phones {
	lastStressed := -1
	for i, ph := range p {
		s := ph.Stress()
		if s == 1 || s == 2 {
			lastStressed = i
		}
	}
	if lastStressed == -1 {
		return nil
	}
	return p[lastStressed:]
}

// StressPattern renders p's stress digits as a compact string, e.g. "010",
// skipping consonants. Empty if p has no vowels.
func StressPattern(p Phones) string {
	var b strings.Builder
	for _, ph := range p {
		if s := ph.Stress(); s >= 0 {
			b.WriteString(strconv.Itoa(s))
		}
	}
	return b.String()
}
