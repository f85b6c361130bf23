// Package modeladapter is the uniform boundary between the scoring engine
// and the language model: a byte-level tokenizer plus a next-token
// distribution provider. The real inference runtime lives outside this
// repository; Model is the black-box interface the tree builder and
// fallback scorer consume, and DeterministicModel is a pure, seeded stand-in
// used wherever no live model is wired up (tests, offline tree rebuilds).
package modeladapter

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/cognicore/wordtree/internal/internalerr"
)

// splitPattern mirrors the GPT-2 pre-tokenization regex: contractions,
// runs of letters, runs of digits, runs of punctuation, and whitespace,
// each optionally preceded by a single space.
const splitPattern = `'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+(?!\S)|\s+`

// TokenID identifies one entry in the tokenizer's vocabulary.
type TokenID uint32

// Tokenizer is the byte-level BPE codec the adapter uses to turn words and
// prompt contexts into token sequences and back. Merges are learned once
// over the reserved vocabulary space at construction and are immutable
// thereafter.
type Tokenizer struct {
	vocabSize   int
	splitRegexp *regexp2.Regexp
	byteToToken [256]TokenID
	tokenToByte map[TokenID]byte
	merges      []merge
	mergeRank   map[[2]TokenID]int
	pieces      map[TokenID][]TokenID // merged token -> its two constituent tokens, recursively decodable
}

type merge struct {
	left, right TokenID
	result      TokenID
}

// NewTokenizer builds a tokenizer whose vocabulary reserves vocabSize
// entries: the first 256 are a direct byte alphabet, and up to
// vocabSize-256 more are minted by greedily merging the most frequent
// adjacent byte pairs observed across a small fixed seed corpus of English
// text, exactly as byte-level BPE vocabularies are trained — just over a
// much smaller corpus. Merging stops once no pair occurs at least twice, so
// ids past the last minted merge are never produced.
func NewTokenizer(vocabSize int) (*Tokenizer, error) {
	if vocabSize < 256 {
		return nil, fmt.Errorf("modeladapter: %w: vocab_size must be >= 256, got %d", internalerr.ErrModelUnavailable, vocabSize)
	}
	re, err := regexp2.Compile(splitPattern, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("modeladapter: compiling split pattern: %w", err)
	}

	t := &Tokenizer{
		vocabSize:   vocabSize,
		splitRegexp: re,
		tokenToByte: make(map[TokenID]byte, 256),
		mergeRank:   make(map[[2]TokenID]int),
		pieces:      make(map[TokenID][]TokenID),
	}
	for b := 0; b < 256; b++ {
		t.byteToToken[b] = TokenID(b)
		t.tokenToByte[TokenID(b)] = byte(b)
	}

	t.learnMerges(vocabSize - 256)
	return t, nil
}

// seedCorpus covers the letters, punctuation, and whitespace patterns the
// scoring engine's own prompt templates and candidate words actually use,
// so the learned merges are dense exactly where the adapter needs them.
var seedCorpus = strings.Join([]string{
	"the quick brown fox jumps over the lazy dog",
	"a word that rhymes perfectly with words like",
	"a word whose homophones are words like",
	"a word that rhymes partially with words like",
	"a word whose letters can be rearranged to form anagrams like",
	"a word which with the addition of one letter can become words like",
	"a word which with one letter removed can become words like",
	"a word which with the change of a single letter can become words like",
	"cat hat bat rat act tac cot cats dog read reed tree lemon",
	"telephone xylophone creativity probability tokenizer anchor candidate",
}, " ")

// learnMerges runs a fixed number of greedy byte-pair-encoding merge steps
// over the seed corpus, assigning the next free token id to each winning
// pair in order. budget caps how many new tokens are minted.
func (t *Tokenizer) learnMerges(budget int) {
	if budget <= 0 {
		return
	}

	words := strings.Fields(seedCorpus)
	sequences := make([][]TokenID, 0, len(words))
	for _, w := range words {
		seq := make([]TokenID, 0, len(w))
		for i := 0; i < len(w); i++ {
			seq = append(seq, t.byteToToken[w[i]])
		}
		sequences = append(sequences, seq)
	}

	nextID := TokenID(256)
	for step := 0; step < budget; step++ {
		counts := make(map[[2]TokenID]int)
		for _, seq := range sequences {
			for i := 0; i+1 < len(seq); i++ {
				counts[[2]TokenID{seq[i], seq[i+1]}]++
			}
		}
		var best [2]TokenID
		bestCount := 0
		found := false
		// Deterministic tie-break: lowest (left, right) pair wins ties, so
		// the merge table never depends on Go's map iteration order.
		for pair, c := range counts {
			if c < 2 {
				continue
			}
			if !found || c > bestCount || (c == bestCount && lessPair(pair, best)) {
				best, bestCount, found = pair, c, true
			}
		}
		if !found {
			break
		}

		merged := nextID
		nextID++
		t.merges = append(t.merges, merge{left: best[0], right: best[1], result: merged})
		t.mergeRank[best] = len(t.merges) - 1
		t.pieces[merged] = []TokenID{best[0], best[1]}

		for i, seq := range sequences {
			sequences[i] = applyMerge(seq, best, merged)
		}
	}
}

func lessPair(a, b [2]TokenID) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}

func applyMerge(seq []TokenID, pair [2]TokenID, merged TokenID) []TokenID {
	out := make([]TokenID, 0, len(seq))
	for i := 0; i < len(seq); i++ {
		if i+1 < len(seq) && seq[i] == pair[0] && seq[i+1] == pair[1] {
			out = append(out, merged)
			i++
			continue
		}
		out = append(out, seq[i])
	}
	return out
}

// VocabSize returns the tokenizer's fixed vocabulary size.
func (t *Tokenizer) VocabSize() int {
	return t.vocabSize
}

// Encode splits text with the GPT-2-style pattern, maps each piece to raw
// bytes, and greedily applies the learned merge table in rank order. Always
// yields tokens for non-empty input (whitespace included); an empty input
// yields an empty token slice, which callers surface as
// internalerr.ErrTokenizationEmpty.
func (t *Tokenizer) Encode(text string) []TokenID {
	if text == "" {
		return nil
	}

	var tokens []TokenID
	m, _ := t.splitRegexp.FindStringMatch(text)
	for m != nil {
		piece := m.String()
		seq := make([]TokenID, 0, len(piece))
		for i := 0; i < len(piece); i++ {
			seq = append(seq, t.byteToToken[piece[i]])
		}
		tokens = append(tokens, t.bpeMerge(seq)...)
		m, _ = t.splitRegexp.FindNextMatch(m)
	}
	return tokens
}

// bpeMerge repeatedly applies the single lowest-rank applicable merge until
// none remain, the standard BPE encode loop.
func (t *Tokenizer) bpeMerge(seq []TokenID) []TokenID {
	for {
		bestRank := -1
		var bestPair [2]TokenID
		for i := 0; i+1 < len(seq); i++ {
			pair := [2]TokenID{seq[i], seq[i+1]}
			if rank, ok := t.mergeRank[pair]; ok {
				if bestRank == -1 || rank < bestRank {
					bestRank = rank
					bestPair = pair
				}
			}
		}
		if bestRank == -1 {
			return seq
		}
		seq = applyMerge(seq, bestPair, t.merges[bestRank].result)
	}
}

// Decode reassembles the original byte string for a token sequence.
func (t *Tokenizer) Decode(tokens []TokenID) string {
	var b strings.Builder
	for _, tok := range tokens {
		t.writeToken(&b, tok)
	}
	return b.String()
}

func (t *Tokenizer) writeToken(b *strings.Builder, tok TokenID) {
	if raw, ok := t.tokenToByte[tok]; ok {
		b.WriteByte(raw)
		return
	}
	if parts, ok := t.pieces[tok]; ok {
		t.writeToken(b, parts[0])
		t.writeToken(b, parts[1])
		return
	}
	// Unknown id outside the vocabulary: silently contributes nothing,
	// matching the adapter's fixed-vocabulary contract.
}
