package brackets

// Slot addressing for elimination brackets. Matchups are numbered 1-based
// within a round; the winner of (round R, match M) feeds (round R+1,
// match ceil(M/2)) at slot 1-(M mod 2): odd match numbers fill the first
// slot, even the second. Build, propagation and rollback all go through
// these functions.

// NextRoundPosition returns the destination match number and slot index for
// the winner of the given match number.
func NextRoundPosition(matchNumber int) (nextMatch int, slot int) {
	return (matchNumber + 1) / 2, 1 - matchNumber%2
}

// BracketSize returns the next power-of-two slot count for n players.
func BracketSize(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}

// NumRounds returns the total number of rounds an n-player single
// elimination bracket plays.
func NumRounds(n int) int {
	if n < 2 {
		return 0
	}
	rounds := 0
	for size := 1; size < n; size <<= 1 {
		rounds++
	}
	return rounds
}
