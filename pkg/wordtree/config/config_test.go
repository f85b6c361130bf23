package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	o := Default()
	assert.Equal(t, StorageHybrid, o.StorageMode)
	assert.True(t, o.Compression, "Compression default should be true")
	assert.Equal(t, 1000, o.LRUCapacity)
	assert.Equal(t, 50257, o.ModelVocabSize)
	assert.Equal(t, SchemeProduct, o.CreativityScheme)
}

func TestLoadPartialOverridesOnlySetFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "options.yaml")
	yamlContent := "storage_mode: memory_only\nlru_capacity: 50\n"
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatal(err)
	}

	o, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, StorageMemoryOnly, o.StorageMode)
	assert.Equal(t, 50, o.LRUCapacity)
	// Untouched fields keep their defaults.
	assert.Equal(t, 50257, o.ModelVocabSize, "untouched field should keep its default")
	assert.Equal(t, SchemeProduct, o.CreativityScheme, "untouched field should keep its default")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "expected error for missing config file")
}

func TestInvalidLRUCapacityFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "options.yaml")
	if err := os.WriteFile(path, []byte("lru_capacity: -5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	o, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 1000, o.LRUCapacity, "negative LRUCapacity should fall back to default")
}
