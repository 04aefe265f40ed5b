package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// AlongLine returns the point at arc length s along l and the heading of
// the segment containing it. s is clamped into [0, length(l)].
func AlongLine(l orb.LineString, s float64) (orb.Point, float64) {
	switch len(l) {
	case 0:
		return orb.Point{}, 0
	case 1:
		return l[0], 0
	}

	if s <= 0 {
		return l[0], segmentHeading(l[0], l[1])
	}

	walked := 0.0
	for i := 0; i < len(l)-1; i++ {
		a, b := l[i], l[i+1]
		seg := planar.Distance(a, b)
		if seg == 0 {
			continue
		}
		if walked+seg >= s {
			t := (s - walked) / seg
			return orb.Point{a.X() + t*(b.X()-a.X()), a.Y() + t*(b.Y()-a.Y())}, segmentHeading(a, b)
		}
		walked += seg
	}

	last := len(l) - 1
	return l[last], segmentHeading(l[last-1], l[last])
}

// InterpolateNormalized returns the point at fraction f of the total
// length of l, with f clamped into [0, 1].
func InterpolateNormalized(l orb.LineString, f float64) orb.Point {
	f = math.Max(0, math.Min(1, f))
	p, _ := AlongLine(l, f*planar.Length(l))
	return p
}

// NearestOnLine returns the distance from p to l and the heading of the
// closest segment.
func NearestOnLine(l orb.LineString, p orb.Point) (float64, float64) {
	if len(l) == 0 {
		return math.Inf(1), 0
	}
	if len(l) == 1 {
		return planar.Distance(l[0], p), 0
	}
	best, heading := math.Inf(1), 0.0
	for i := 0; i < len(l)-1; i++ {
		if d := planar.DistanceFromSegment(l[i], l[i+1], p); d < best {
			best, heading = d, segmentHeading(l[i], l[i+1])
		}
	}
	return best, heading
}

func segmentHeading(a, b orb.Point) float64 {
	return math.Atan2(b.Y()-a.Y(), b.X()-a.X())
}

// AngleDiff returns |a-b| wrapped into [0, π].
func AngleDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 2*math.Pi)
	if d > math.Pi {
		d = 2*math.Pi - d
	}
	return d
}
