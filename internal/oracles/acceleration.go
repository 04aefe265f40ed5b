package oracles

import (
	"math"

	"github.com/banshee-data/scenario.report/internal/oracle"
	"github.com/banshee-data/scenario.report/internal/record"
)

// Acceleration tracks the extremes of signed planar acceleration. The
// sign is negative when acceleration opposes velocity.
type Acceleration struct {
	fastThreshold  float64
	brakeThreshold float64

	max, min float64
}

// NewAcceleration builds an Acceleration oracle.
func NewAcceleration(d oracle.Deps) *Acceleration {
	cfg := d.Tuning()
	return &Acceleration{
		fastThreshold:  cfg.GetFastAccelThreshold(),
		brakeThreshold: cfg.GetHardBrakingThreshold(),
	}
}

func (a *Acceleration) Name() string { return NameAcceleration }

func (a *Acceleration) InterestedTopics() []string {
	return []string{record.TopicLocalization}
}

func (a *Acceleration) OnMessage(m record.Message) oracle.Control {
	loc, ok := m.Payload.(*record.Localization)
	if !ok {
		return oracle.Continue
	}
	v, acc := loc.Pose.LinearVelocity, loc.Pose.LinearAcceleration

	mag := math.Hypot(acc.X, acc.Y)
	if v.X*acc.X+v.Y*acc.Y < 0 {
		mag = -mag
	}
	a.max = math.Max(a.max, mag)
	a.min = math.Min(a.min, mag)
	return oracle.Continue
}

func (a *Acceleration) Violations() []oracle.Violation {
	triggered := a.max > a.fastThreshold || a.min < a.brakeThreshold
	return []oracle.Violation{oracle.NewViolation(NameAcceleration, triggered,
		oracle.F("max_acceleration", a.max),
		oracle.F("min_acceleration", a.min),
	)}
}
