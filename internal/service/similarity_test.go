package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func symset(symbols ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		set[sym] = struct{}{}
	}
	return set
}

func TestSimilarityJaccard(t *testing.T) {
	assert.Equal(t, 1.0, similarityJaccard(symset("A", "B"), symset("A", "B")))
	assert.Equal(t, 0.0, similarityJaccard(symset("A"), symset("B")))
	assert.Equal(t, 0.25, similarityJaccard(symset("A", "B"), symset("A", "C", "D")))
	assert.Equal(t, 0.0, similarityJaccard(symset(), symset()))
}

func TestSimilarityOverlap(t *testing.T) {
	assert.Equal(t, 1.0, similarityOverlap(symset("A", "B"), symset("A", "B")))
	// 子集相对于超集的 overlap 系数总是 1
	assert.Equal(t, 1.0, similarityOverlap(symset("A"), symset("A", "B", "C")))
	assert.Equal(t, 0.0, similarityOverlap(symset(), symset("A")))
	assert.Equal(t, 0.0, similarityOverlap(symset("A"), symset("B")))
}
