package trie

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContains(t *testing.T) {
	tr := New([]string{"cat", "cot", "cats", "dog"})
	assert.True(t, tr.Contains("cat"), "expected cat in trie")
	assert.False(t, tr.Contains("ca"), "ca is only a prefix, not a full word")
	assert.False(t, tr.Contains("bat"), "bat was never inserted")
}

func TestChildLetters(t *testing.T) {
	tr := New([]string{"cat", "cot", "cop"})
	letters := tr.ChildLetters("co")
	assert.Equal(t, []byte{'p', 't'}, letters, "ChildLetters(co)")

	assert.Nil(t, tr.ChildLetters("zz"), "ChildLetters for an unreachable prefix should be nil")
}

func TestChildLettersAtRoot(t *testing.T) {
	tr := New([]string{"cat", "dog"})
	letters := tr.ChildLetters("")
	assert.Equal(t, []byte{'c', 'd'}, letters, "ChildLetters('')")
}
