// Package config loads the single Options struct that parameterizes the
// word-transformation scoring engine: storage mode, cache sizes, the model's
// vocabulary size, and which creativity scheme the scorer uses.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StorageMode selects which strata the storage layer uses.
type StorageMode string

const (
	StorageMemoryOnly StorageMode = "memory_only"
	StorageKV         StorageMode = "kv"
	StorageJSON       StorageMode = "json"
	StorageHybrid     StorageMode = "hybrid"
)

// CreativityScheme selects the formula used to turn a sequence's tree-path
// into a creativity number.
type CreativityScheme string

const (
	SchemeProduct   CreativityScheme = "product"
	SchemeLayerRMS  CreativityScheme = "layer_rms"
)

// Options is the single configuration struct for the engine, as described
// in the external interfaces section of the specification.
type Options struct {
	StorageMode      StorageMode      `yaml:"storage_mode"`
	JSONFilePath     string           `yaml:"json_file_path"`
	Compression      bool             `yaml:"compression"`
	LRUCapacity      int              `yaml:"lru_capacity"`
	ModelVocabSize   int              `yaml:"model_vocab_size"`
	CreativityScheme CreativityScheme `yaml:"creativity_scheme"`

	// GameDataDir is the directory containing words.txt, frequencies.json,
	// anagrams.json, metadata.json, and the CMU-style phone dictionary.
	// Not part of spec.md's options table verbatim, but every loader in the
	// engine needs to agree on where game_data/ lives.
	GameDataDir string `yaml:"game_data_dir"`

	// SQLitePath is the path to the KV stratum's sqlite database file. Used
	// only when StorageMode is StorageKV or StorageHybrid.
	SQLitePath string `yaml:"sqlite_path"`
}

// Default returns the documented defaults from the external interfaces
// section: hybrid storage, compression on, an LRU capacity of 1000, a
// GPT-2-class vocabulary size, and the product creativity scheme.
func Default() Options {
	return Options{
		StorageMode:      StorageHybrid,
		JSONFilePath:     "game_data/probability_trees.json",
		Compression:      true,
		LRUCapacity:      1000,
		ModelVocabSize:   50257,
		CreativityScheme: SchemeProduct,
		GameDataDir:      "game_data",
		SQLitePath:       "game_data/probability_trees.db",
	}
}

// Load reads Options from a YAML file, starting from Default() so that any
// field omitted from the file keeps its documented default value.
func Load(path string) (Options, error) {
	opts := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return opts.withValidatedDefaults(), nil
}

// withValidatedDefaults fills in fields that a partial YAML document might
// have left blank or non-positive: non-positive integers and empty
// enumeration values get their defaults. A non-empty storage mode or
// creativity scheme outside its enumeration is passed through unchanged.
func (o Options) withValidatedDefaults() Options {
	if o.LRUCapacity <= 0 {
		o.LRUCapacity = 1000
	}
	if o.ModelVocabSize <= 0 {
		o.ModelVocabSize = 50257
	}
	if o.StorageMode == "" {
		o.StorageMode = StorageHybrid
	}
	if o.CreativityScheme == "" {
		o.CreativityScheme = SchemeProduct
	}
	if o.JSONFilePath == "" {
		o.JSONFilePath = "game_data/probability_trees.json"
	}
	if o.GameDataDir == "" {
		o.GameDataDir = "game_data"
	}
	return o
}
