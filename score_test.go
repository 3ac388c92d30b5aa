package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundScore(t *testing.T) {
	assert.Equal(t, 10, roundScore(0, 0))
	assert.Equal(t, 13, roundScore(3, 3))
	assert.Equal(t, -2, roundScore(1, 3))
	assert.Equal(t, -2, roundScore(3, 1))
	assert.Equal(t, -5, roundScore(5, 0))
	assert.Equal(t, -5, roundScore(0, 5))
}

func TestTricksSequence(t *testing.T) {
	assert.Equal(t, []int{1, 1}, tricksSequence(1))
	assert.Equal(t, []int{1, 2, 3, 3, 2, 1}, tricksSequence(3))
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 7, 6, 5, 4, 3, 2, 1}, tricksSequence(7))
}

func TestTricksSequenceShape(t *testing.T) {
	for n := 1; n <= 12; n++ {
		seq := tricksSequence(n)
		require.Len(t, seq, 2*n)

		peaks := 0
		for i, v := range seq {
			if v == n {
				peaks++
			}
			if i > 0 && i < n {
				assert.Equal(t, seq[i-1]+1, v, "ascending half of n=%d", n)
			}
			if i > n {
				assert.Equal(t, seq[i-1]-1, v, "descending half of n=%d", n)
			}
		}
		assert.Equal(t, 2, peaks, "peak value should appear exactly twice for n=%d", n)
	}
}
