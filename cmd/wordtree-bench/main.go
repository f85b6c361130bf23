// Command wordtree-bench builds and scores a sample of anchors, reporting
// cold-build vs cached-lookup latency the way the original speed-test
// compared direct inference against a cached JSON lookup, but measuring
// the Go engine's own build/score path end to end.
package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

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

func main() {
	var (
		configPath = flag.String("config", "", "Path to a YAML config file (optional; defaults used otherwise)")
		sampleSize = flag.Int("n", 20, "Number of anchors to sample from the lexicon")
	)
	flag.Parse()

	opts := config.Default()
	if *configPath != "" {
		var err error
		opts, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("wordtree-bench: loading config: %v", err)
		}
	}

	lex, err := lexicon.Load(opts.GameDataDir)
	if err != nil {
		log.Fatalf("wordtree-bench: loading lexicon: %v", err)
	}
	phones, err := pronounce.Load(filepath.Join(opts.GameDataDir, "cmudict.txt"))
	if err != nil {
		log.Fatalf("wordtree-bench: loading phone dictionary: %v", err)
	}
	tr := trie.New(lex.Words())
	homophones, err := transform.LoadHomophoneTable(filepath.Join(opts.GameDataDir, "homophones.pl"))
	if err != nil {
		log.Fatalf("wordtree-bench: loading homophone table: %v", err)
	}
	engine := transform.New(lex, phones, tr, homophones)

	tok, err := modeladapter.NewTokenizer(opts.ModelVocabSize)
	if err != nil {
		log.Fatalf("wordtree-bench: %v", err)
	}
	model := modeladapter.NewDeterministicModel(opts.ModelVocabSize)
	builder := treebuild.New(engine, tok, model)

	store, err := storage.Open(opts)
	if err != nil {
		log.Fatalf("wordtree-bench: opening storage: %v", err)
	}
	defer store.Close()

	sc, err := scorer.New(engine, builder, store, lex, opts.CreativityScheme)
	if err != nil {
		log.Fatalf("wordtree-bench: %v", err)
	}

	anchors := lex.Words()
	if len(anchors) > *sampleSize {
		anchors = anchors[:*sampleSize]
	}

	var coldScore, cachedScore []time.Duration
	for _, anchor := range anchors {
		candidate := firstCandidate(engine, anchor)
		if candidate == "" {
			continue
		}

		start := time.Now()
		if _, err := sc.Score(anchor, candidate); err != nil {
			continue
		}
		coldScore = append(coldScore, time.Since(start))

		start = time.Now()
		if _, err := sc.Score(anchor, candidate); err != nil {
			continue
		}
		cachedScore = append(cachedScore, time.Since(start))
	}

	fmt.Printf("wordtree-bench: sampled %d anchors\n", len(anchors))
	report("cold score", coldScore)
	report("cached score", cachedScore)
}

// firstCandidate returns any classifiable candidate for anchor, preferring
// the categories in transform.Categories order, or "" if anchor yields none.
func firstCandidate(engine *transform.Engine, anchor string) string {
	set, err := engine.Enumerate(anchor)
	if err != nil {
		return ""
	}
	for _, cat := range transform.Categories {
		if words := set.ByCategory(cat); len(words) > 0 {
			return words[0]
		}
	}
	return ""
}

func report(label string, samples []time.Duration) {
	if len(samples) == 0 {
		fmt.Printf("%-14s no samples\n", label)
		return
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	p50 := sorted[len(sorted)*50/100]
	p99 := sorted[min(len(sorted)*99/100, len(sorted)-1)]
	fmt.Printf("%-14s p50=%s p99=%s (n=%s)\n", label, p50, p99, humanize.Comma(int64(len(sorted))))
}
