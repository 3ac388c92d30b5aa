package main

// Boeren Bridge scoring.
//
// Each round, players predict how many tricks they will take. An exact
// prediction earns 10 points plus one per trick; a miss costs the distance
// between prediction and reality.

// maxTotalRounds bounds the peak round: two players drawing totalRounds
// cards each from a 52-card deck caps totalRounds at 26. It also keeps a
// client-supplied round count from inflating the tricks sequence.
const maxTotalRounds = 26

// roundScore returns the score for a single player in a single round.
func roundScore(predicted, actual int) int {
	if predicted == actual {
		return 10 + actual
	}

	diff := predicted - actual
	if diff < 0 {
		diff = -diff
	}

	return -diff
}

// tricksSequence returns the number of tricks played in each round: up from
// 1 to totalRounds, totalRounds once more for the no-trump round, then back
// down to 1. Length is always 2*totalRounds.
func tricksSequence(totalRounds int) []int {
	seq := make([]int, 0, 2*totalRounds)

	for i := 1; i <= totalRounds; i++ {
		seq = append(seq, i)
	}

	for i := totalRounds; i >= 1; i-- {
		seq = append(seq, i)
	}

	return seq
}
