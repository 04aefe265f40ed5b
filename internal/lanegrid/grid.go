// Package lanegrid samples lanes into fixed-spacing cross-sections and
// measures how a trajectory occupies them.
//
// Reference and candidate runs must be sampled with the same Build call
// parameters so their occupancy vectors align index-for-index.
package lanegrid

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/banshee-data/scenario.report/internal/geometry"
)

// DefaultUnit is the spacing between cross-sections in metres.
const DefaultUnit = 2.0

// CrossSection connects the left and right boundary samples at one
// station along the lane.
type CrossSection struct {
	Left  orb.Point
	Right orb.Point
}

// Grid is the ordered list of cross-sections for one lane.
type Grid struct {
	LaneID   string
	Sections []CrossSection
}

// NumPoints returns max(2, floor(length/unit)+1).
func NumPoints(length, unit float64) int {
	if unit <= 0 {
		unit = DefaultUnit
	}
	n := int(math.Floor(length/unit)) + 1
	if n < 2 {
		n = 2
	}
	return n
}

// Build samples both boundary curves at evenly spaced normalized arc
// length and pairs them index-wise.
func Build(laneID string, left, right orb.LineString, length, unit float64) (Grid, error) {
	if len(left) == 0 || len(right) == 0 {
		return Grid{}, fmt.Errorf("lane %s: empty boundary curve", laneID)
	}
	n := NumPoints(length, unit)
	g := Grid{LaneID: laneID, Sections: make([]CrossSection, n)}
	for i := 0; i < n; i++ {
		f := float64(i) / float64(n-1)
		g.Sections[i] = CrossSection{
			Left:  geometry.InterpolateNormalized(left, f),
			Right: geometry.InterpolateNormalized(right, f),
		}
	}
	return g, nil
}

// Len is the number of cross-sections.
func (g Grid) Len() int { return len(g.Sections) }

// Occupancy marks each cross-section the trajectory touches with 1.
func (g Grid) Occupancy(trace orb.LineString) Vector {
	v := make(Vector, len(g.Sections))
	for i, s := range g.Sections {
		if geometry.PolylineIntersectsSegment(trace, s.Left, s.Right) {
			v[i] = 1
		}
	}
	return v
}
