// Package record reads and writes scenario logs: time-ordered
// (topic, message, timestamp) triples captured from an autonomous
// driving stack.
//
// The on-disk format is JSON lines, one message per line, optionally
// gzip-compressed. Only topics with a registered decoder are surfaced;
// everything else in a log is skipped.
package record

// Topic names for the messages the oracles consume.
const (
	TopicLocalization    = "/apollo/localization/pose"
	TopicObstacles       = "/apollo/perception/obstacles"
	TopicRoutingRequest  = "/apollo/routing_request"
	TopicRoutingResponse = "/apollo/routing_response"
)

// Message is one decoded log entry. Payload is a pointer to one of the
// message types in this file, chosen by Topic.
type Message struct {
	Topic     string
	Timestamp int64 // nanoseconds
	Payload   any
}

// Vec3 is a generic x/y/z triple.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Pose is the ego state carried by a localization message.
type Pose struct {
	Position           Vec3    `json:"position"`
	Heading            float64 `json:"heading"`
	LinearVelocity     Vec3    `json:"linear_velocity"`
	LinearAcceleration Vec3    `json:"linear_acceleration"`
}

// Localization is published on TopicLocalization.
type Localization struct {
	Pose Pose `json:"pose"`
}

// ObstacleType enumerates perception obstacle classes.
type ObstacleType int

const (
	ObstacleUnknown ObstacleType = iota
	ObstacleUnknownMovable
	ObstacleUnknownUnmovable
	ObstaclePedestrian
	ObstacleBicycle
	ObstacleVehicle
)

var obstacleTypeNames = [...]string{
	ObstacleUnknown:          "UNKNOWN",
	ObstacleUnknownMovable:   "UNKNOWN_MOVABLE",
	ObstacleUnknownUnmovable: "UNKNOWN_UNMOVABLE",
	ObstaclePedestrian:       "PEDESTRIAN",
	ObstacleBicycle:          "BICYCLE",
	ObstacleVehicle:          "VEHICLE",
}

func (t ObstacleType) String() string {
	if t < 0 || int(t) >= len(obstacleTypeNames) {
		return "UNKNOWN"
	}
	return obstacleTypeNames[t]
}

// Valid reports whether t is one of the known classes.
func (t ObstacleType) Valid() bool {
	return t >= 0 && int(t) < len(obstacleTypeNames)
}

// PerceptionObstacle is one tracked object in a perception frame.
type PerceptionObstacle struct {
	ID       int          `json:"id"`
	Type     ObstacleType `json:"type"`
	Position Vec3         `json:"position"`
	Velocity Vec3         `json:"velocity"`
	Length   float64      `json:"length"`
	Width    float64      `json:"width"`
	Height   float64      `json:"height"`
	Theta    float64      `json:"theta"`
}

// PerceptionObstacles is published on TopicObstacles.
type PerceptionObstacles struct {
	Obstacles []PerceptionObstacle `json:"perception_obstacle"`
}

// PointENU is a map-frame point. A nil pointer or NaN coordinates mean the
// waypoint is given by lane and arc length only.
type PointENU struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LaneWaypoint is one routing waypoint.
type LaneWaypoint struct {
	LaneID string    `json:"id"`
	S      float64   `json:"s"`
	Pose   *PointENU `json:"pose,omitempty"`
}

// RoutingRequest is published on TopicRoutingRequest. Its arrival marks
// the start of the scenario.
type RoutingRequest struct {
	Waypoints []LaneWaypoint `json:"waypoint"`
}

// LaneSegment is a lane interval within a routing passage.
type LaneSegment struct {
	LaneID string  `json:"id"`
	StartS float64 `json:"start_s"`
	EndS   float64 `json:"end_s"`
}

// Passage is a sequence of lane segments drivable without lane change.
type Passage struct {
	Segments []LaneSegment `json:"segment"`
}

// RoadSegment groups alternative passages.
type RoadSegment struct {
	ID       string    `json:"id"`
	Passages []Passage `json:"passage"`
}

// RoutingResponse is published on TopicRoutingResponse.
type RoutingResponse struct {
	Roads []RoadSegment `json:"road"`
}

// LeadingLanes returns the first lane segment of every passage, in road
// order. These are the lanes the ego was routed through.
func (r *RoutingResponse) LeadingLanes() []string {
	var lanes []string
	for _, road := range r.Roads {
		for _, p := range road.Passages {
			if len(p.Segments) > 0 {
				lanes = append(lanes, p.Segments[0].LaneID)
			}
		}
	}
	return lanes
}

// newPayload returns an empty payload for topic, or nil when the topic has
// no decoder.
func newPayload(topic string) any {
	switch topic {
	case TopicLocalization:
		return &Localization{}
	case TopicObstacles:
		return &PerceptionObstacles{}
	case TopicRoutingRequest:
		return &RoutingRequest{}
	case TopicRoutingResponse:
		return &RoutingResponse{}
	}
	return nil
}

// Decodable reports whether the reader can decode topic.
func Decodable(topic string) bool {
	return newPayload(topic) != nil
}
