// Package internalerr holds the sentinel error taxonomy shared across the
// word-transformation scoring engine. Components wrap these with
// fmt.Errorf and %w so callers can still errors.Is against the sentinel.
package internalerr

import "errors"

// Sentinel errors for the taxonomy used throughout the engine. Wrap with a
// path, word, or reason using fmt.Errorf.
var (
	// ErrResourceMissing indicates a required package file (words.txt,
	// frequencies.json, anagrams.json, a phone dictionary, ...) could not
	// be read at startup.
	ErrResourceMissing = errors.New("required resource could not be read")

	// ErrModelUnavailable indicates the model adapter failed to initialize.
	// Fatal at startup; no fallback is attempted.
	ErrModelUnavailable = errors.New("model adapter unavailable")

	// ErrUnknownWord indicates a word the caller expected to find in the
	// lexicon was absent. Only raised where the caller requires the word
	// to exist (e.g. the anchor of a transformation).
	ErrUnknownWord = errors.New("word not found in lexicon")

	// ErrTokenizationEmpty indicates encoding a candidate produced zero
	// tokens.
	ErrTokenizationEmpty = errors.New("tokenization produced no tokens")

	// ErrNotATransformation indicates no category classifies the given
	// (anchor, candidate) pair.
	ErrNotATransformation = errors.New("candidate is not a transformation of the anchor")

	// ErrTreeInvalid indicates a built or deserialized probability tree
	// failed validation and was discarded.
	ErrTreeInvalid = errors.New("probability tree failed validation")

	// ErrStorageFault indicates an I/O, corruption, or codec failure in a
	// storage stratum that could not be recovered by falling through to
	// the next stratum.
	ErrStorageFault = errors.New("storage fault")

	// ErrTransientCancelled indicates the caller cancelled or timed out a
	// scoring request.
	ErrTransientCancelled = errors.New("operation cancelled")
)
