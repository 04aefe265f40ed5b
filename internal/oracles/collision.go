package oracles

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/scenario.report/internal/geometry"
	"github.com/banshee-data/scenario.report/internal/oracle"
	"github.com/banshee-data/scenario.report/internal/record"
)

// Contact classes reported in the collision_type feature.
const (
	ContactFront = "front"
	ContactRear  = "rear"
	ContactSide  = "side"
)

// Collision reports the first contact between the ego footprint and a
// perceived obstacle, and otherwise the closest approach seen.
type Collision struct {
	vehicle   geometry.VehicleGeometry
	threshold float64
	ignored   map[int]bool

	// obstacles is the latest perception snapshot, in message order.
	obstacles []record.PerceptionObstacle
	// fitness is the minimum ego distance seen per obstacle id.
	fitness map[int]float64

	violations []oracle.Violation
}

// NewCollision builds a Collision oracle. The collision-ignore option
// lists obstacle ids to skip.
func NewCollision(d oracle.Deps) (*Collision, error) {
	ignored, err := parseIDs(d.Options.Get(OptCollisionIgnore))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OptCollisionIgnore, err)
	}
	return &Collision{
		vehicle:   d.Vehicle,
		threshold: d.Tuning().GetCollisionThreshold(),
		ignored:   ignored,
		fitness:   make(map[int]float64),
	}, nil
}

func parseIDs(s string) (map[int]bool, error) {
	ids := make(map[int]bool)
	if s == "" {
		return ids, nil
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid obstacle id %q", part)
		}
		ids[id] = true
	}
	return ids, nil
}

func (c *Collision) Name() string { return NameCollision }

func (c *Collision) InterestedTopics() []string {
	return []string{record.TopicObstacles, record.TopicLocalization}
}

func (c *Collision) OnMessage(m record.Message) oracle.Control {
	switch msg := m.Payload.(type) {
	case *record.PerceptionObstacles:
		c.obstacles = append(c.obstacles[:0], msg.Obstacles...)
	case *record.Localization:
		return c.check(msg.Pose)
	}
	return oracle.Continue
}

func (c *Collision) check(pose record.Pose) oracle.Control {
	x, y, heading := pose.Position.X, pose.Position.Y, pose.Heading
	ego := geometry.EgoBox(x, y, 0, heading, c.vehicle).Ring()

	for _, obs := range c.obstacles {
		if c.ignored[obs.ID] {
			continue
		}
		box := geometry.GenericBox(obs.Position.X, obs.Position.Y, obs.Position.Z, obs.Theta, obs.Length, obs.Width).Ring()
		dist := geometry.PolygonDistance(box, ego)

		if best, seen := c.fitness[obs.ID]; !seen || dist < best {
			c.fitness[obs.ID] = dist
		}
		if dist >= c.threshold {
			continue
		}

		contact := ContactSide
		front := geometry.EgoFrontEdge(x, y, 0, heading, c.vehicle).LineString()
		rear := geometry.EgoRearEdge(x, y, 0, heading, c.vehicle).LineString()
		switch {
		case geometry.LinePolygonDistance(front, box) < c.threshold:
			contact = ContactFront
		case geometry.LinePolygonDistance(rear, box) < c.threshold:
			contact = ContactRear
		}

		c.violations = append(c.violations, oracle.NewViolation(NameCollision, true,
			oracle.F("ego_x", x),
			oracle.F("ego_y", y),
			oracle.F("ego_theta", heading),
			oracle.F("ego_speed", math.Hypot(pose.LinearVelocity.X, pose.LinearVelocity.Y)),
			oracle.F("obs_x", obs.Position.X),
			oracle.F("obs_y", obs.Position.Y),
			oracle.F("obs_type", obs.Type.String()),
			oracle.F("obs_theta", obs.Theta),
			oracle.F("obs_length", obs.Length),
			oracle.F("obs_width", obs.Width),
			oracle.F("collision_type", contact),
		))
		diagf("collision with obstacle %d (%s contact) at (%.2f, %.2f)", obs.ID, contact, x, y)
		return oracle.Stop
	}
	return oracle.Continue
}

// MinDistance returns the closest approach over all tracked obstacles.
func (c *Collision) MinDistance() (float64, bool) {
	if len(c.fitness) == 0 {
		return 0, false
	}
	best := math.Inf(1)
	for _, d := range c.fitness {
		best = math.Min(best, d)
	}
	return best, true
}

func (c *Collision) Violations() []oracle.Violation {
	if len(c.violations) > 0 {
		return append([]oracle.Violation(nil), c.violations...)
	}
	minDist, ok := c.MinDistance()
	if !ok {
		return []oracle.Violation{oracle.NewViolation(NameCollision, false, oracle.F("obstacles_observed", 0))}
	}
	return []oracle.Violation{oracle.NewViolation(NameCollision, false, oracle.F("min_dist", minDist))}
}
