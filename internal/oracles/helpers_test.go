package oracles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/scenario.report/internal/geometry"
	"github.com/banshee-data/scenario.report/internal/oracle"
	"github.com/banshee-data/scenario.report/internal/record"
)

// testVehicle is 4 x 2 with the rear axle 1 m ahead of the back edge, so
// an ego at x spans [x-1, x+3] when heading 0.
var testVehicle = geometry.VehicleGeometry{
	Length:            4,
	Width:             2,
	Height:            1.5,
	FrontEdgeToCenter: 3,
	BackEdgeToCenter:  1,
	LeftEdgeToCenter:  1,
	RightEdgeToCenter: 1,
}

const sec = int64(1e9)

func loc(t int64, x, y, heading, vx, vy float64) record.Message {
	return record.Message{Topic: record.TopicLocalization, Timestamp: t, Payload: &record.Localization{
		Pose: record.Pose{
			Position:       record.Vec3{X: x, Y: y},
			Heading:        heading,
			LinearVelocity: record.Vec3{X: vx, Y: vy},
		},
	}}
}

func locAccel(t int64, vx, vy, ax, ay float64) record.Message {
	m := loc(t, 0, 0, 0, vx, vy)
	m.Payload.(*record.Localization).Pose.LinearAcceleration = record.Vec3{X: ax, Y: ay}
	return m
}

func perception(t int64, obs ...record.PerceptionObstacle) record.Message {
	return record.Message{Topic: record.TopicObstacles, Timestamp: t, Payload: &record.PerceptionObstacles{Obstacles: obs}}
}

func box(id int, x, y, length, width float64) record.PerceptionObstacle {
	return record.PerceptionObstacle{
		ID:       id,
		Type:     record.ObstacleVehicle,
		Position: record.Vec3{X: x, Y: y},
		Length:   length,
		Width:    width,
		Height:   1.5,
	}
}

func routing(t int64, wps ...record.LaneWaypoint) record.Message {
	return record.Message{Topic: record.TopicRoutingRequest, Timestamp: t, Payload: &record.RoutingRequest{Waypoints: wps}}
}

func routedTo(laneID string) record.Message {
	return record.Message{Topic: record.TopicRoutingResponse, Payload: &record.RoutingResponse{
		Roads: []record.RoadSegment{{Passages: []record.Passage{{Segments: []record.LaneSegment{{LaneID: laneID}}}}}},
	}}
}

func analyze(t *testing.T, msgs []record.Message, active ...oracle.Oracle) (*oracle.Result, *record.SliceReader) {
	t.Helper()
	r := record.NewSliceReader(msgs)
	res, err := oracle.Analyze(context.Background(), r, active)
	require.NoError(t, err)
	return res, r
}

func feature(t *testing.T, v oracle.Violation, key string) any {
	t.Helper()
	val, ok := v.Feature(key)
	require.True(t, ok, "missing feature %q in %v", key, v)
	return val
}
