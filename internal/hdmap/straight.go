package hdmap

import (
	"math"

	"github.com/paulmach/orb"
)

// StraightLane builds a straight lane of the given length and width that
// starts at (x, y) and points along heading. Curves are sampled every
// metre.
func StraightLane(id string, x, y, heading, length, width, speedLimit float64) Lane {
	n := int(math.Max(1, math.Ceil(length)))
	c, s := math.Cos(heading), math.Sin(heading)
	hw := width / 2

	central := make(orb.LineString, 0, n+1)
	left := make(orb.LineString, 0, n+1)
	right := make(orb.LineString, 0, n+1)
	for i := 0; i <= n; i++ {
		d := length * float64(i) / float64(n)
		px, py := x+d*c, y+d*s
		central = append(central, orb.Point{px, py})
		left = append(left, orb.Point{px - hw*s, py + hw*c})
		right = append(right, orb.Point{px + hw*s, py - hw*c})
	}
	return Lane{ID: id, Central: central, Left: left, Right: right, SpeedLimit: speedLimit}
}
