package scheduler

// Pair is a fixed grouping of two non-conflicting lanes that are scheduled
// together. Pair A holds lanes 0 and 2, pair B holds lanes 1 and 3.
type Pair int

const (
	PairA Pair = iota
	PairB
)

var pairLanes = [2][2]int{
	PairA: {0, 2},
	PairB: {1, 3},
}

// Lanes returns the two lane indices in the pair.
func (p Pair) Lanes() [2]int { return pairLanes[p] }

// Other returns the opposing pair.
func (p Pair) Other() Pair { return 1 - p }

// Contains reports whether the lane belongs to this pair.
func (p Pair) Contains(lane int) bool {
	return pairLanes[p][0] == lane || pairLanes[p][1] == lane
}

// PairOf returns the pair a lane belongs to.
func PairOf(lane int) Pair {
	if lane%2 == 0 {
		return PairA
	}
	return PairB
}

func (p Pair) String() string {
	if p == PairA {
		return "A"
	}
	return "B"
}
