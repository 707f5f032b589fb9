package recognition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchEmptyKnownSet(t *testing.T) {
	detected := [][]float64{{1, 2, 3}, {4, 5, 6}}

	results := Match(detected, map[string][]float64{}, 0.6)

	assert.Empty(t, results)
}

func TestMatchIdenticalVector(t *testing.T) {
	known := map[string][]float64{
		"alice": {0.1, 0.2, 0.3, 0.4},
		"bob":   {0.9, 0.8, 0.7, 0.6},
	}

	results := Match([][]float64{{0.1, 0.2, 0.3, 0.4}}, known, 0.6)

	require.Len(t, results, 1)
	assert.True(t, results[0].Matched)
	assert.Equal(t, "alice", results[0].Name)
	assert.InDelta(t, 1.0, results[0].Confidence, 1e-9)
	assert.InDelta(t, 0.0, results[0].Distance, 1e-9)
}

func TestMatchBeyondToleranceIsUnknown(t *testing.T) {
	known := map[string][]float64{
		"alice": {0, 0, 0, 0},
	}

	// Distance 2.0 against a tolerance of 0.6.
	results := Match([][]float64{{1, 1, 1, 1}}, known, 0.6)

	require.Len(t, results, 1)
	assert.False(t, results[0].Matched)
	assert.Empty(t, results[0].Name)
	assert.Zero(t, results[0].Confidence)
}

func TestMatchOneResultPerInputInOrder(t *testing.T) {
	known := map[string][]float64{
		"alice": {0, 0},
		"bob":   {1, 0},
	}

	results := Match([][]float64{{1, 0}, {0, 0}, {5, 5}}, known, 0.6)

	require.Len(t, results, 3)
	assert.Equal(t, "bob", results[0].Name)
	assert.Equal(t, "alice", results[1].Name)
	assert.False(t, results[2].Matched)
}

func TestMatchTieBreakIsDeterministic(t *testing.T) {
	// Two identities with the same stored vector: the lexicographically
	// first name must win, every time.
	known := map[string][]float64{
		"zara":  {0.5, 0.5},
		"aaron": {0.5, 0.5},
	}

	for i := 0; i < 20; i++ {
		results := Match([][]float64{{0.5, 0.5}}, known, 0.6)
		require.Len(t, results, 1)
		assert.Equal(t, "aaron", results[0].Name)
	}
}

func TestMatchSkipsMismatchedDimensions(t *testing.T) {
	known := map[string][]float64{
		"short": {0.1, 0.2},
		"full":  {0.1, 0.2, 0.3},
	}

	results := Match([][]float64{{0.1, 0.2, 0.3}}, known, 0.6)

	require.Len(t, results, 1)
	assert.Equal(t, "full", results[0].Name)
	assert.True(t, results[0].Matched)
}

func TestRecognizedAppliesConfidenceGate(t *testing.T) {
	results := []MatchResult{
		{Name: "alice", Matched: true, Confidence: 0.9},
		{Name: "bob", Matched: true, Confidence: 0.5}, // at the gate, not above it
		{Name: "carol", Matched: true, Confidence: 0.7},
		{Matched: false, Confidence: 0},
	}

	accepted := Recognized(results, 0.5)

	require.Len(t, accepted, 2)
	assert.Equal(t, "alice", accepted[0].Name)
	assert.Equal(t, "carol", accepted[1].Name)
}

func TestRecognizedCollapsesDuplicateSightings(t *testing.T) {
	results := []MatchResult{
		{Name: "alice", Matched: true, Confidence: 0.6},
		{Name: "alice", Matched: true, Confidence: 0.8},
		{Name: "alice", Matched: true, Confidence: 0.7},
	}

	accepted := Recognized(results, 0.5)

	require.Len(t, accepted, 1)
	assert.InDelta(t, 0.8, accepted[0].Confidence, 1e-9)
}

func TestMatchConfidenceNeverNegative(t *testing.T) {
	known := map[string][]float64{
		"alice": {0, 0},
	}

	// Distance 5 with a tolerance big enough to accept it.
	results := Match([][]float64{{3, 4}}, known, 10)

	require.Len(t, results, 1)
	assert.True(t, results[0].Matched)
	assert.Equal(t, 0.0, results[0].Confidence)
}
