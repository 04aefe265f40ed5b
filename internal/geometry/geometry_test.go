package geometry

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVehicle() VehicleGeometry {
	return VehicleGeometry{
		Length:            4.933,
		Width:             2.11,
		Height:            1.48,
		FrontEdgeToCenter: 3.89,
		BackEdgeToCenter:  1.043,
		LeftEdgeToCenter:  1.055,
		RightEdgeToCenter: 1.055,
	}
}

func boxArea(b Box) float64 {
	return math.Abs(planar.Area(b.Ring()))
}

func TestGenericBox_Axes(t *testing.T) {
	t.Parallel()

	b := GenericBox(10, 20, 1, 0, 4, 2)
	assert.InDelta(t, 12.0, b[0].X, 1e-9)
	assert.InDelta(t, 21.0, b[0].Y, 1e-9)
	assert.InDelta(t, 8.0, b[1].X, 1e-9)
	assert.InDelta(t, 21.0, b[1].Y, 1e-9)
	assert.InDelta(t, 8.0, b[2].X, 1e-9)
	assert.InDelta(t, 19.0, b[2].Y, 1e-9)
	assert.InDelta(t, 12.0, b[3].X, 1e-9)
	assert.InDelta(t, 19.0, b[3].Y, 1e-9)
	for _, v := range b {
		assert.Equal(t, 1.0, v.Z)
	}
}

func TestGenericBox_HeadingPeriodAndArea(t *testing.T) {
	t.Parallel()

	for _, heading := range []float64{-3, -1.2, 0, 0.3, math.Pi / 2, 2.5} {
		a := GenericBox(3, -4, 0, heading, 4.5, 1.8)
		b := GenericBox(3, -4, 0, heading+2*math.Pi, 4.5, 1.8)
		for i := range a {
			assert.InDelta(t, a[i].X, b[i].X, 1e-9)
			assert.InDelta(t, a[i].Y, b[i].Y, 1e-9)
		}
		assert.InDelta(t, 4.5*1.8, boxArea(a), 1e-9)
	}
}

func TestGenericBox_Degenerate(t *testing.T) {
	t.Parallel()

	b := GenericBox(1, 1, 0, 0.7, 0, 0)
	for _, v := range b {
		assert.InDelta(t, 1.0, v.X, 1e-12)
		assert.InDelta(t, 1.0, v.Y, 1e-12)
	}
	assert.InDelta(t, 0.0, boxArea(b), 1e-12)
}

func TestEgoBox_AreaAndEdges(t *testing.T) {
	t.Parallel()

	g := testVehicle()
	for _, heading := range []float64{0, 0.4, -2.1, math.Pi} {
		box := EgoBox(100, 50, 0, heading, g)
		assert.InDelta(t, g.Length*g.Width, boxArea(box), 1e-9)

		front := EgoFrontEdge(100, 50, 0, heading, g)
		rear := EgoRearEdge(100, 50, 0, heading, g)
		assert.Equal(t, box[0], front[0])
		assert.Equal(t, box[3], front[1])
		assert.Equal(t, box[1], rear[0])
		assert.Equal(t, box[2], rear[1])
	}
}

func TestEgoBox_RearAxleReference(t *testing.T) {
	t.Parallel()

	g := testVehicle()
	box := EgoBox(0, 0, 0, 0, g)
	assert.InDelta(t, g.Length-g.BackEdgeToCenter, box[0].X, 1e-9)
	assert.InDelta(t, -g.BackEdgeToCenter, box[1].X, 1e-9)
	assert.InDelta(t, g.Width/2, box[0].Y, 1e-9)
	assert.InDelta(t, -g.Width/2, box[2].Y, 1e-9)
}

func TestPolygonDistance(t *testing.T) {
	t.Parallel()

	base := GenericBox(0, 0, 0, 0, 2, 2).Ring()

	tests := []struct {
		name string
		other orb.Ring
		want float64
	}{
		{"separated along x", GenericBox(5, 0, 0, 0, 2, 2).Ring(), 3},
		{"diagonal gap", GenericBox(3, 3, 0, 0, 2, 2).Ring(), math.Sqrt2},
		{"touching edges", GenericBox(2, 0, 0, 0, 2, 2).Ring(), 0},
		{"overlap", GenericBox(1, 0.5, 0, 0.3, 2, 2).Ring(), 0},
		{"contained", GenericBox(0, 0, 0, 0.5, 0.5, 0.5).Ring(), 0},
		{"container", GenericBox(0, 0, 0, 0, 10, 10).Ring(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PolygonDistance(base, tt.other), 1e-9)
			assert.InDelta(t, tt.want, PolygonDistance(tt.other, base), 1e-9)
		})
	}
}

func TestLineAndPointPolygonDistance(t *testing.T) {
	t.Parallel()

	box := GenericBox(0, 0, 0, 0, 2, 2).Ring()
	assert.InDelta(t, 2.0, LinePolygonDistance(orb.LineString{{3, -5}, {3, 5}}, box), 1e-9)
	assert.InDelta(t, 0.0, LinePolygonDistance(orb.LineString{{-5, 0}, {5, 0}}, box), 1e-9)
	assert.InDelta(t, 0.0, PointPolygonDistance(orb.Point{0.2, 0.3}, box), 1e-9)
	assert.InDelta(t, 5.0, PointPolygonDistance(orb.Point{4, 5}, box), 1e-9)
}

func TestSegmentsIntersect(t *testing.T) {
	t.Parallel()

	assert.True(t, SegmentsIntersect(orb.Point{0, 0}, orb.Point{2, 2}, orb.Point{0, 2}, orb.Point{2, 0}))
	assert.True(t, SegmentsIntersect(orb.Point{0, 0}, orb.Point{2, 0}, orb.Point{2, 0}, orb.Point{3, 1}), "shared endpoint")
	assert.True(t, SegmentsIntersect(orb.Point{0, 0}, orb.Point{2, 0}, orb.Point{1, 0}, orb.Point{3, 0}), "collinear overlap")
	assert.False(t, SegmentsIntersect(orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{2, 0}, orb.Point{3, 0}), "collinear disjoint")
	assert.False(t, SegmentsIntersect(orb.Point{0, 0}, orb.Point{1, 1}, orb.Point{0, 1}, orb.Point{0.4, 0.9}))
}

func TestPolylineIntersectsSegment(t *testing.T) {
	t.Parallel()

	a, b := orb.Point{5, -1}, orb.Point{5, 1}
	assert.True(t, PolylineIntersectsSegment(orb.LineString{{0, 0}, {4, 0}, {6, 0}}, a, b))
	assert.False(t, PolylineIntersectsSegment(orb.LineString{{0, 0}, {4, 0}}, a, b))
	assert.True(t, PolylineIntersectsSegment(orb.LineString{{5, 0.5}}, a, b))
	assert.False(t, PolylineIntersectsSegment(orb.LineString{{4, 0}}, a, b))
	assert.False(t, PolylineIntersectsSegment(nil, a, b))
}

func TestAlongLine(t *testing.T) {
	t.Parallel()

	l := orb.LineString{{0, 0}, {10, 0}, {10, 10}}

	p, h := AlongLine(l, 5)
	assert.InDelta(t, 5.0, p.X(), 1e-9)
	assert.InDelta(t, 0.0, h, 1e-9)

	p, h = AlongLine(l, 15)
	assert.InDelta(t, 10.0, p.X(), 1e-9)
	assert.InDelta(t, 5.0, p.Y(), 1e-9)
	assert.InDelta(t, math.Pi/2, h, 1e-9)

	p, _ = AlongLine(l, 100)
	assert.Equal(t, orb.Point{10, 10}, p)

	p, _ = AlongLine(l, -3)
	assert.Equal(t, orb.Point{0, 0}, p)

	mid := InterpolateNormalized(l, 0.5)
	assert.InDelta(t, 10.0, mid.X(), 1e-9)
	assert.InDelta(t, 0.0, mid.Y(), 1e-9)
}

func TestNearestOnLine(t *testing.T) {
	t.Parallel()

	d, h := NearestOnLine(orb.LineString{{0, 0}, {10, 0}, {10, 10}}, orb.Point{12, 7})
	require.False(t, math.IsInf(d, 1))
	assert.InDelta(t, 2.0, d, 1e-9)
	assert.InDelta(t, math.Pi/2, h, 1e-9)
}

func TestAngleDiff(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.2, AngleDiff(math.Pi-0.1, -math.Pi+0.1), 1e-9)
	assert.InDelta(t, math.Pi, AngleDiff(0, math.Pi), 1e-9)
	assert.InDelta(t, 0.0, AngleDiff(0, 2*math.Pi), 1e-9)
}
