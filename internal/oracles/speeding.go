package oracles

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/banshee-data/scenario.report/internal/hdmap"
	"github.com/banshee-data/scenario.report/internal/oracle"
	"github.com/banshee-data/scenario.report/internal/record"
)

// Speeding flags driving faster than every lane the ego could be on.
// Each lane contributes at most one violation per run.
type Speeding struct {
	lanes     hdmap.Service
	threshold float64

	violations []oracle.Violation
	violated   map[string]bool

	samples    int
	maxExcess  float64
	maxExcessX float64
	maxExcessY float64
}

// NewSpeeding builds a Speeding oracle. It requires a map.
func NewSpeeding(d oracle.Deps) (*Speeding, error) {
	if d.Map == nil {
		return nil, fmt.Errorf("speeding oracle requires a lane map")
	}
	return &Speeding{
		lanes:     d.Map,
		threshold: d.Tuning().GetSpeedingThreshold(),
		violated:  make(map[string]bool),
		maxExcess: math.Inf(-1),
	}, nil
}

func (s *Speeding) Name() string { return NameSpeeding }

func (s *Speeding) InterestedTopics() []string {
	return []string{record.TopicLocalization}
}

func (s *Speeding) OnMessage(m record.Message) oracle.Control {
	loc, ok := m.Payload.(*record.Localization)
	if !ok {
		return oracle.Continue
	}
	x, y := loc.Pose.Position.X, loc.Pose.Position.Y
	speed := math.Hypot(loc.Pose.LinearVelocity.X, loc.Pose.LinearVelocity.Y)

	var lanes []string
	var limits []float64
	for _, id := range s.lanes.NearestLanesWithHeading(orb.Point{x, y}, loc.Pose.Heading) {
		if s.violated[id] {
			continue
		}
		limit, err := s.lanes.LaneSpeedLimit(id)
		if err != nil {
			opsf("speed limit lookup: %v", err)
			continue
		}
		lanes = append(lanes, id)
		limits = append(limits, limit)
	}
	if len(lanes) == 0 {
		return oracle.Continue
	}
	s.samples++

	exceedsAll := true
	loosest := math.Inf(-1)
	for _, l := range limits {
		if !(speed-l > s.threshold) {
			exceedsAll = false
		}
		loosest = math.Max(loosest, l)
	}
	excess := speed - loosest

	if exceedsAll {
		s.violations = append(s.violations, oracle.NewViolation(NameSpeeding, true,
			oracle.F("speeding", excess),
			oracle.F("ego_x", x),
			oracle.F("ego_y", y),
		))
		for _, id := range lanes {
			s.violated[id] = true
		}
		tracef("speeding %.2f m/s over on lanes %v", excess, lanes)
	}

	if excess > s.maxExcess {
		s.maxExcess, s.maxExcessX, s.maxExcessY = excess, x, y
	}
	return oracle.Continue
}

func (s *Speeding) Violations() []oracle.Violation {
	if len(s.violations) > 0 {
		return append([]oracle.Violation(nil), s.violations...)
	}
	if s.samples == 0 {
		return []oracle.Violation{oracle.NewViolation(NameSpeeding, false, oracle.F("samples", 0))}
	}
	return []oracle.Violation{oracle.NewViolation(NameSpeeding, false,
		oracle.F("speeding", s.maxExcess),
		oracle.F("ego_x", s.maxExcessX),
		oracle.F("ego_y", s.maxExcessY),
	)}
}
