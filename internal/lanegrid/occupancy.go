package lanegrid

import (
	"gonum.org/v1/gonum/floats"
)

// unionEpsilon keeps the score finite when neither trajectory touches
// the lane.
const unionEpsilon = 1e-5

// Vector is a binary occupancy vector aligned to a Grid.
type Vector []float64

// Nonzero counts occupied cross-sections.
func (v Vector) Nonzero() int {
	n := 0
	for _, x := range v {
		if x > 0 {
			n++
		}
	}
	return n
}

// NonzeroRate is the occupied fraction; zero for an empty vector.
func (v Vector) NonzeroRate() float64 {
	if len(v) == 0 {
		return 0
	}
	return float64(v.Nonzero()) / float64(len(v))
}

// DiffScore returns L1(ref-cand) / (|ref OR cand| + 1e-5). The vectors
// must have equal length.
func DiffScore(ref, cand Vector) float64 {
	if len(ref) != len(cand) {
		panic("lanegrid: occupancy vectors differ in length")
	}
	diff := floats.Distance(ref, cand, 1)

	union := make([]float64, len(ref))
	floats.AddTo(union, ref, cand)
	count := 0.0
	for _, x := range union {
		if x > 0 {
			count++
		}
	}
	return diff / (count + unionEpsilon)
}
