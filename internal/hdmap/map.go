// Package hdmap answers lane queries against a static lane map.
package hdmap

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/banshee-data/scenario.report/internal/geometry"
)

// ErrUnknownLane is returned for lookups on a lane id the map does not hold.
var ErrUnknownLane = errors.New("hdmap: unknown lane")

// Default lane search parameters.
const (
	DefaultSearchRadius     = 3.0
	DefaultHeadingTolerance = math.Pi / 4
)

// Service is the lane query capability oracles consume.
type Service interface {
	// NearestLanesWithHeading returns lanes near p whose direction agrees
	// with heading, nearest first.
	NearestLanesWithHeading(p orb.Point, heading float64) []string
	LaneSpeedLimit(id string) (float64, error)
	LaneBoundaryCurves(id string) (left, right orb.LineString, err error)
	LaneLength(id string) (float64, error)
	// LanePointAtArcLength returns the central-curve point and heading at
	// arc length s, clamped into the lane.
	LanePointAtArcLength(id string, s float64) (orb.Point, float64, error)
}

// Lane is one drivable lane.
type Lane struct {
	ID         string
	Central    orb.LineString
	Left       orb.LineString
	Right      orb.LineString
	SpeedLimit float64 // m/s
}

type lane struct {
	Lane
	length float64
	bound  orb.Bound
}

// Map is an in-memory Service.
type Map struct {
	lanes     map[string]*lane
	ids       []string
	radius    float64
	tolerance float64
}

// Option configures a Map.
type Option func(*Map)

// WithSearchRadius sets the nearest-lane search radius.
func WithSearchRadius(r float64) Option {
	return func(m *Map) { m.radius = r }
}

// WithHeadingTolerance sets the maximum heading disagreement, in radians,
// for a lane to match.
func WithHeadingTolerance(tol float64) Option {
	return func(m *Map) { m.tolerance = tol }
}

// NewMap indexes lanes. Lane ids must be unique and every lane needs a
// central curve with at least two points and both boundaries.
func NewMap(lanes []Lane, opts ...Option) (*Map, error) {
	m := &Map{
		lanes:     make(map[string]*lane, len(lanes)),
		radius:    DefaultSearchRadius,
		tolerance: DefaultHeadingTolerance,
	}
	for _, o := range opts {
		o(m)
	}
	for _, l := range lanes {
		if l.ID == "" {
			return nil, fmt.Errorf("lane with empty id")
		}
		if _, dup := m.lanes[l.ID]; dup {
			return nil, fmt.Errorf("duplicate lane %q", l.ID)
		}
		if len(l.Central) < 2 {
			return nil, fmt.Errorf("lane %q: central curve needs at least 2 points", l.ID)
		}
		if len(l.Left) == 0 || len(l.Right) == 0 {
			return nil, fmt.Errorf("lane %q: missing boundary curve", l.ID)
		}
		m.lanes[l.ID] = &lane{
			Lane:   l,
			length: planar.Length(l.Central),
			bound:  l.Central.Bound().Pad(m.radius),
		}
		m.ids = append(m.ids, l.ID)
	}
	sort.Strings(m.ids)
	return m, nil
}

// LaneIDs returns every lane id in lexicographic order.
func (m *Map) LaneIDs() []string {
	return append([]string(nil), m.ids...)
}

// Lane returns the stored lane.
func (m *Map) Lane(id string) (Lane, error) {
	l, err := m.get(id)
	if err != nil {
		return Lane{}, err
	}
	return l.Lane, nil
}

func (m *Map) get(id string) (*lane, error) {
	l, ok := m.lanes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLane, id)
	}
	return l, nil
}

// NearestLanesWithHeading implements Service.
func (m *Map) NearestLanesWithHeading(p orb.Point, heading float64) []string {
	type hit struct {
		id   string
		dist float64
	}
	var hits []hit
	for _, id := range m.ids {
		l := m.lanes[id]
		if !l.bound.Contains(p) {
			continue
		}
		d, h := geometry.NearestOnLine(l.Central, p)
		if d > m.radius || geometry.AngleDiff(h, heading) > m.tolerance {
			continue
		}
		hits = append(hits, hit{id, d})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })

	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.id
	}
	return out
}

// LaneSpeedLimit implements Service.
func (m *Map) LaneSpeedLimit(id string) (float64, error) {
	l, err := m.get(id)
	if err != nil {
		return 0, err
	}
	return l.SpeedLimit, nil
}

// LaneBoundaryCurves implements Service.
func (m *Map) LaneBoundaryCurves(id string) (orb.LineString, orb.LineString, error) {
	l, err := m.get(id)
	if err != nil {
		return nil, nil, err
	}
	return l.Left, l.Right, nil
}

// LaneLength implements Service.
func (m *Map) LaneLength(id string) (float64, error) {
	l, err := m.get(id)
	if err != nil {
		return 0, err
	}
	return l.length, nil
}

// LanePointAtArcLength implements Service.
func (m *Map) LanePointAtArcLength(id string, s float64) (orb.Point, float64, error) {
	l, err := m.get(id)
	if err != nil {
		return orb.Point{}, 0, err
	}
	p, h := geometry.AlongLine(l.Central, s)
	return p, h, nil
}
