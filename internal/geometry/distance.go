package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// intersectEpsilon absorbs floating-point noise in orientation tests so
// that touching shapes count as intersecting.
const intersectEpsilon = 1e-12

// chain is an open polyline or a closed ring without its repeated
// closing vertex.
type chain struct {
	pts    []orb.Point
	closed bool
}

func ringChain(r orb.Ring) chain {
	pts := []orb.Point(r)
	if len(pts) > 1 && pts[0].Equal(pts[len(pts)-1]) {
		pts = pts[:len(pts)-1]
	}
	return chain{pts: pts, closed: len(pts) > 2}
}

func lineChain(l orb.LineString) chain {
	return chain{pts: []orb.Point(l)}
}

// eachSegment calls fn for every edge; fn returning true stops the walk.
func (c chain) eachSegment(fn func(a, b orb.Point) bool) bool {
	n := len(c.pts)
	if n < 2 {
		return false
	}
	for i := 0; i < n-1; i++ {
		if fn(c.pts[i], c.pts[i+1]) {
			return true
		}
	}
	if c.closed {
		return fn(c.pts[n-1], c.pts[0])
	}
	return false
}

func (c chain) contains(p orb.Point) bool {
	if !c.closed {
		return false
	}
	ring := make(orb.Ring, 0, len(c.pts)+1)
	ring = append(ring, c.pts...)
	ring = append(ring, c.pts[0])
	return planar.RingContains(ring, p)
}

// pointDistance is the distance from p to the nearest edge (or vertex,
// for single-point chains).
func (c chain) pointDistance(p orb.Point) float64 {
	if len(c.pts) == 0 {
		return math.Inf(1)
	}
	if len(c.pts) == 1 {
		return planar.Distance(c.pts[0], p)
	}
	best := math.Inf(1)
	c.eachSegment(func(a, b orb.Point) bool {
		if d := planar.DistanceFromSegment(a, b, p); d < best {
			best = d
		}
		return false
	})
	return best
}

func chainDistance(a, b chain) float64 {
	if len(a.pts) == 0 || len(b.pts) == 0 {
		return math.Inf(1)
	}

	crossed := a.eachSegment(func(p1, p2 orb.Point) bool {
		return b.eachSegment(func(q1, q2 orb.Point) bool {
			return SegmentsIntersect(p1, p2, q1, q2)
		})
	})
	if crossed {
		return 0
	}

	for _, p := range b.pts {
		if a.contains(p) {
			return 0
		}
	}
	for _, p := range a.pts {
		if b.contains(p) {
			return 0
		}
	}

	best := math.Inf(1)
	for _, p := range a.pts {
		best = math.Min(best, b.pointDistance(p))
	}
	for _, p := range b.pts {
		best = math.Min(best, a.pointDistance(p))
	}
	return best
}

// PolygonDistance returns the planar distance between two polygons, zero
// when they touch, overlap or one contains the other.
func PolygonDistance(a, b orb.Ring) float64 {
	return chainDistance(ringChain(a), ringChain(b))
}

// LinePolygonDistance returns the distance between a polyline and a
// polygon, zero when the line enters or touches the polygon.
func LinePolygonDistance(l orb.LineString, r orb.Ring) float64 {
	return chainDistance(lineChain(l), ringChain(r))
}

// PointPolygonDistance returns zero for points inside or on the polygon.
func PointPolygonDistance(p orb.Point, r orb.Ring) float64 {
	return chainDistance(chain{pts: []orb.Point{p}}, ringChain(r))
}

// PolylineIntersectsSegment reports whether the polyline touches the
// segment ab. A single-point polyline intersects only if the point lies
// on the segment; an empty one never does.
func PolylineIntersectsSegment(l orb.LineString, a, b orb.Point) bool {
	switch len(l) {
	case 0:
		return false
	case 1:
		return onSegment(a, b, l[0]) && math.Abs(orientation(a, b, l[0])) <= intersectEpsilon
	}
	for i := 0; i < len(l)-1; i++ {
		if SegmentsIntersect(l[i], l[i+1], a, b) {
			return true
		}
	}
	return false
}

// SegmentsIntersect reports whether segments p1p2 and q1q2 share at least
// one point, including collinear overlap and endpoint contact.
func SegmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := orientation(q1, q2, p1)
	d2 := orientation(q1, q2, p2)
	d3 := orientation(p1, p2, q1)
	d4 := orientation(p1, p2, q2)

	if ((d1 > intersectEpsilon && d2 < -intersectEpsilon) || (d1 < -intersectEpsilon && d2 > intersectEpsilon)) &&
		((d3 > intersectEpsilon && d4 < -intersectEpsilon) || (d3 < -intersectEpsilon && d4 > intersectEpsilon)) {
		return true
	}

	switch {
	case math.Abs(d1) <= intersectEpsilon && onSegment(q1, q2, p1):
		return true
	case math.Abs(d2) <= intersectEpsilon && onSegment(q1, q2, p2):
		return true
	case math.Abs(d3) <= intersectEpsilon && onSegment(p1, p2, q1):
		return true
	case math.Abs(d4) <= intersectEpsilon && onSegment(p1, p2, q2):
		return true
	}
	return false
}

// orientation is the z component of (b-a) x (c-a).
func orientation(a, b, c orb.Point) float64 {
	return (b.X()-a.X())*(c.Y()-a.Y()) - (b.Y()-a.Y())*(c.X()-a.X())
}

// onSegment assumes c is collinear with ab and checks the bounding range.
func onSegment(a, b, c orb.Point) bool {
	return c.X() <= math.Max(a.X(), b.X())+intersectEpsilon &&
		c.X() >= math.Min(a.X(), b.X())-intersectEpsilon &&
		c.Y() <= math.Max(a.Y(), b.Y())+intersectEpsilon &&
		c.Y() >= math.Min(a.Y(), b.Y())-intersectEpsilon
}
