package oracles

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/banshee-data/scenario.report/internal/geometry"
	"github.com/banshee-data/scenario.report/internal/hdmap"
	"github.com/banshee-data/scenario.report/internal/oracle"
	"github.com/banshee-data/scenario.report/internal/record"
)

// Destination checks that the run ends near the final waypoint of the
// first routing request.
type Destination struct {
	lanes     hdmap.Service
	vehicle   geometry.VehicleGeometry
	threshold float64

	dest *orb.Point
	last orb.Ring
}

// NewDestination builds a Destination oracle. The map is only consulted
// for waypoints given by lane and arc length.
func NewDestination(d oracle.Deps) *Destination {
	return &Destination{
		lanes:     d.Map,
		vehicle:   d.Vehicle,
		threshold: d.Tuning().GetDestinationThreshold(),
	}
}

func (o *Destination) Name() string { return NameDestination }

func (o *Destination) InterestedTopics() []string {
	return []string{record.TopicLocalization, record.TopicRoutingRequest}
}

func (o *Destination) OnMessage(m record.Message) oracle.Control {
	switch msg := m.Payload.(type) {
	case *record.RoutingRequest:
		if o.dest != nil {
			return oracle.Continue
		}
		if p, ok := o.resolve(msg); ok {
			o.dest = &p
			tracef("destination set to (%.2f, %.2f)", p.X(), p.Y())
		}
	case *record.Localization:
		pos := msg.Pose.Position
		o.last = geometry.EgoBox(pos.X, pos.Y, pos.Z, msg.Pose.Heading, o.vehicle).Ring()
	}
	return oracle.Continue
}

func (o *Destination) resolve(req *record.RoutingRequest) (orb.Point, bool) {
	if len(req.Waypoints) == 0 {
		opsf("routing request without waypoints")
		return orb.Point{}, false
	}
	wp := req.Waypoints[len(req.Waypoints)-1]
	if wp.Pose != nil && !math.IsNaN(wp.Pose.X) && !math.IsNaN(wp.Pose.Y) {
		return orb.Point{wp.Pose.X, wp.Pose.Y}, true
	}
	if o.lanes == nil {
		opsf("destination on lane %s needs a map", wp.LaneID)
		return orb.Point{}, false
	}
	p, _, err := o.lanes.LanePointAtArcLength(wp.LaneID, wp.S)
	if err != nil {
		opsf("cannot resolve destination: %v", err)
		return orb.Point{}, false
	}
	return p, true
}

// Destination returns the captured destination.
func (o *Destination) Destination() (orb.Point, bool) {
	if o.dest == nil {
		return orb.Point{}, false
	}
	return *o.dest, true
}

func (o *Destination) Violations() []oracle.Violation {
	if o.dest == nil || o.last == nil {
		return nil
	}
	dist := geometry.PointPolygonDistance(*o.dest, o.last)
	return []oracle.Violation{oracle.NewViolation(NameDestination, dist >= o.threshold,
		oracle.F("dist2destination", dist),
	)}
}
