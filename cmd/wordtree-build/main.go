// Command wordtree-build documents, without implementing, the offline
// preprocessing contract that produces game_data/'s words.txt,
// frequencies.json, and anagrams.json from a raw corpus. CSV ingestion and
// the canonical-form generation pass stay an external, offline step (see
// original_source/ml_engine/utils/canonical_data_generator.py); this stub
// only validates that a given input path exists and reports the contract
// it expects callers to have already satisfied.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
)

func main() {
	var (
		input   = flag.String("input", "", "Path to a raw CSV word list (required)")
		outDir  = flag.String("out", "game_data", "Directory to write words.txt/frequencies.json/anagrams.json into")
		dryRun  = flag.Bool("dry-run", true, "Validate the input and print the expected contract without writing anything")
	)
	flag.Parse()

	if *input == "" {
		log.Fatal("--input required")
	}
	if _, err := os.Stat(*input); err != nil {
		log.Fatalf("wordtree-build: reading --input: %v", err)
	}

	fmt.Printf("wordtree-build: contract stub — CSV ingestion is an offline step\n")
	fmt.Printf("  input:  %s\n", *input)
	fmt.Printf("  out:    %s\n", *outDir)
	fmt.Println("  expects the caller to already have produced, from --input:")
	fmt.Println("    words.txt         one lowercased word per line, matching ^[a-z]{3,8}$")
	fmt.Println("    frequencies.json  {word: number}, numbers in [0,1], 8-decimal precision")
	fmt.Println("    anagrams.json     {signature: [word, ...]}, singleton groups omitted")
	fmt.Println("    metadata.json     generation provenance, informational only")

	if !*dryRun {
		log.Fatal("wordtree-build: CSV-to-package-file generation is not implemented; run with -dry-run")
	}
}
