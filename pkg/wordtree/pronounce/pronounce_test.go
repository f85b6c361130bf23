package pronounce

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeDict(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "cmudict.txt")
	content := ";;; comment line\n" +
		"CAT  K AE1 T\n" +
		"HAT  HH AE1 T\n" +
		"BAT  B AE1 T\n" +
		"READ  R IY1 D\n" +
		"READ(1)  R EH1 D\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndPhonesFor(t *testing.T) {
	dir := t.TempDir()
	dict, err := Load(writeDict(t, dir))
	if err != nil {
		t.Fatal(err)
	}

	phones := dict.PhonesFor("cat")
	if !assert.Len(t, phones, 1) {
		t.Fatalf("PhonesFor(cat) = %v", phones)
	}
	assert.Len(t, phones[0], 3)

	assert.True(t, dict.IsPronounceable("cat"), "cat should be pronounceable")
	assert.False(t, dict.IsPronounceable("zzz"), "zzz should not be pronounceable")

	readPhones := dict.PhonesFor("read")
	assert.Len(t, readPhones, 2, "PhonesFor(read) should yield 2 pronunciations")
}

func TestRhymingPart(t *testing.T) {
	cat := Phones{"K", "AE1", "T"}
	hat := Phones{"HH", "AE1", "T"}

	rp1 := RhymingPart(cat)
	rp2 := RhymingPart(hat)
	assert.Len(t, rp1, 2)
	assert.Len(t, rp2, 2)
	assert.Equal(t, rp1, rp2, "cat/hat should share a rhyming part")
}

func TestRhymingPartNoStress(t *testing.T) {
	p := Phones{"K", "T"}
	assert.Nil(t, RhymingPart(p), "expected nil rhyming part when no phone is stressed")
}

func TestSyllableCount(t *testing.T) {
	p := Phones{"K", "AE1", "T", "AH0", "L", "AO1", "G"}
	assert.Equal(t, 3, SyllableCount(p))
}

func TestStressPattern(t *testing.T) {
	p := Phones{"K", "AE1", "T", "AH0"}
	assert.Equal(t, "10", StressPattern(p))
}

func TestPhoneStressAndBase(t *testing.T) {
	ph := Phone("AE1")
	assert.Equal(t, 1, ph.Stress())
	assert.Equal(t, "AE", ph.Base())

	consonant := Phone("T")
	assert.Equal(t, -1, consonant.Stress())
	assert.Equal(t, "T", consonant.Base())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err, "expected error for missing dictionary file")
}
