// Package geometry owns the footprint model shared by the oracles.
//
// Responsibilities: oriented box vertices for perception obstacles and for
// the ego vehicle, front/rear contact edges, and planar distance and
// intersection queries between those shapes.
// Key types: Vertex, Box, Edge, VehicleGeometry.
//
// All functions are pure; zero length or width yields a degenerate
// (zero-area) box rather than an error.
package geometry

import (
	"math"

	"github.com/paulmach/orb"
)

// Vertex is a world-frame point. Z is carried through for reporting but
// every distance query is planar.
type Vertex struct {
	X float64
	Y float64
	Z float64
}

// Point drops Z.
func (v Vertex) Point() orb.Point { return orb.Point{v.X, v.Y} }

// Box holds the four corners of an oriented rectangle, front-left first,
// then counter-clockwise.
type Box [4]Vertex

// Edge is a two-vertex contact segment.
type Edge [2]Vertex

// Ring returns the box as a closed orb ring.
func (b Box) Ring() orb.Ring {
	r := make(orb.Ring, 0, len(b)+1)
	for _, v := range b {
		r = append(r, v.Point())
	}
	return append(r, r[0])
}

// LineString returns the edge as a two-point orb line string.
func (e Edge) LineString() orb.LineString {
	return orb.LineString{e[0].Point(), e[1].Point()}
}

// VehicleGeometry describes the ego footprint relative to its position
// reference, which is the rear axle rather than the centroid.
type VehicleGeometry struct {
	Length            float64 `json:"length" yaml:"length"`
	Width             float64 `json:"width" yaml:"width"`
	Height            float64 `json:"height" yaml:"height"`
	FrontEdgeToCenter float64 `json:"front_edge_to_center" yaml:"front_edge_to_center"`
	BackEdgeToCenter  float64 `json:"back_edge_to_center" yaml:"back_edge_to_center"`
	LeftEdgeToCenter  float64 `json:"left_edge_to_center" yaml:"left_edge_to_center"`
	RightEdgeToCenter float64 `json:"right_edge_to_center" yaml:"right_edge_to_center"`
}

// frontOffset and backOffset are the longitudinal extents measured from
// the position reference.
func (g VehicleGeometry) frontOffset() float64 { return g.Length - g.BackEdgeToCenter }
func (g VehicleGeometry) backOffset() float64  { return -g.BackEdgeToCenter }

// place rotates the local offset (lx, ly) by heading and translates it to
// the center.
func place(cx, cy, cz, cosH, sinH, lx, ly float64) Vertex {
	return Vertex{
		X: cx + lx*cosH - ly*sinH,
		Y: cy + lx*sinH + ly*cosH,
		Z: cz,
	}
}

// GenericBox returns the footprint of an obstacle whose position is its
// geometric center.
func GenericBox(cx, cy, cz, heading, length, width float64) Box {
	halfL := length / 2.0
	halfW := width / 2.0
	sinH, cosH := math.Sincos(heading)
	return Box{
		place(cx, cy, cz, cosH, sinH, halfL, halfW),
		place(cx, cy, cz, cosH, sinH, -halfL, halfW),
		place(cx, cy, cz, cosH, sinH, -halfL, -halfW),
		place(cx, cy, cz, cosH, sinH, halfL, -halfW),
	}
}

// EgoBox returns the ego footprint for a rear-axle referenced pose.
func EgoBox(cx, cy, cz, heading float64, g VehicleGeometry) Box {
	front, back := g.frontOffset(), g.backOffset()
	halfW := g.Width / 2.0
	sinH, cosH := math.Sincos(heading)
	return Box{
		place(cx, cy, cz, cosH, sinH, front, halfW),
		place(cx, cy, cz, cosH, sinH, back, halfW),
		place(cx, cy, cz, cosH, sinH, back, -halfW),
		place(cx, cy, cz, cosH, sinH, front, -halfW),
	}
}

// EgoFrontEdge returns the front bumper segment (left, right).
func EgoFrontEdge(cx, cy, cz, heading float64, g VehicleGeometry) Edge {
	front := g.frontOffset()
	halfW := g.Width / 2.0
	sinH, cosH := math.Sincos(heading)
	return Edge{
		place(cx, cy, cz, cosH, sinH, front, halfW),
		place(cx, cy, cz, cosH, sinH, front, -halfW),
	}
}

// EgoRearEdge returns the rear bumper segment (left, right).
func EgoRearEdge(cx, cy, cz, heading float64, g VehicleGeometry) Edge {
	back := g.backOffset()
	halfW := g.Width / 2.0
	sinH, cosH := math.Sincos(heading)
	return Edge{
		place(cx, cy, cz, cosH, sinH, back, halfW),
		place(cx, cy, cz, cosH, sinH, back, -halfW),
	}
}
