package oracles

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/paulmach/orb"

	"github.com/banshee-data/scenario.report/internal/geometry"
	"github.com/banshee-data/scenario.report/internal/hdmap"
	"github.com/banshee-data/scenario.report/internal/lanegrid"
	"github.com/banshee-data/scenario.report/internal/oracle"
	"github.com/banshee-data/scenario.report/internal/record"
	"github.com/banshee-data/scenario.report/internal/trajectory"
)

// LaneComparison is the per-lane occupancy outcome.
type LaneComparison struct {
	Grid      lanegrid.Grid
	Reference lanegrid.Vector
	Candidate lanegrid.Vector
	Score     float64
}

// Comparison is the full outcome of an Optimal evaluation, kept for
// plotting and debugging.
type Comparison struct {
	ReferenceTrace orb.LineString
	CandidateTrace orb.LineString
	Lanes          []LaneComparison
	ReplayPass     bool
	NonOptimal     bool
	MaxScore       float64
	MaxLane        string
}

type obstacleFrame struct {
	t         float64 // seconds since the routing request
	obstacles []record.PerceptionObstacle
}

// Optimal compares the candidate run's lane occupancy with a reference run
// of the same scenario. It triggers only when the candidate deviates from
// the reference and the reference path would have been collision-free
// against the candidate's obstacles.
type Optimal struct {
	vehicle   geometry.VehicleGeometry
	threshold float64

	reference *trajectory.Reference
	grids     []lanegrid.Grid
	refOcc    []lanegrid.Vector

	started bool
	startT  int64
	trace   orb.LineString
	frames  []obstacleFrame

	comparison *Comparison
}

// NewOptimal builds an Optimal oracle and preprocesses its reference
// record. The record path comes from the optimal-refer option.
func NewOptimal(d oracle.Deps) (*Optimal, error) {
	path := d.Options.Get(OptOptimalRefer)
	if path == "" {
		return nil, fmt.Errorf("--%s is required", OptOptimalRefer)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reference record: %w", err)
	}
	r, err := record.Open(path, record.TopicRoutingResponse, record.TopicLocalization)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	o, err := newOptimalFromReader(d, r)
	if err != nil {
		return nil, fmt.Errorf("reference record %s: %w", path, err)
	}
	return o, nil
}

// newOptimalFromReader is NewOptimal over an already open reference.
func newOptimalFromReader(d oracle.Deps, r record.Reader) (*Optimal, error) {
	if d.Map == nil {
		return nil, fmt.Errorf("optimal oracle requires a lane map")
	}
	cfg := d.Tuning()
	o := &Optimal{vehicle: d.Vehicle, threshold: cfg.GetOptimalThreshold()}
	if err := o.preprocess(r, d.Map, cfg.GetGridUnit(), cfg.GetOccupancyNoise()); err != nil {
		return nil, err
	}
	return o, nil
}

// preprocess extracts the reference lanes from the first routing response,
// builds their grids and occupancy from the reference localization trace,
// and fits the reference trajectory model.
func (o *Optimal) preprocess(r record.Reader, lanes hdmap.Service, unit, noise float64) error {
	var (
		laneIDs []string
		samples []trajectory.Sample
		startT  int64
		haveT   bool
	)
	for {
		m, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		switch msg := m.Payload.(type) {
		case *record.RoutingResponse:
			if laneIDs == nil {
				laneIDs = dedupe(msg.LeadingLanes())
				if laneIDs == nil {
					laneIDs = []string{}
				}
			}
		case *record.Localization:
			if !haveT {
				startT, haveT = m.Timestamp, true
			}
			samples = append(samples, trajectory.Sample{
				T:       math.Max(0, float64(m.Timestamp-startT)*1e-9),
				X:       msg.Pose.Position.X,
				Y:       msg.Pose.Position.Y,
				Heading: msg.Pose.Heading,
			})
		}
	}
	if len(laneIDs) == 0 {
		return errors.New("no routed lanes in routing response")
	}

	ref, err := trajectory.NewReference(samples)
	if err != nil {
		return err
	}
	o.reference = ref

	for _, id := range laneIDs {
		left, right, err := lanes.LaneBoundaryCurves(id)
		if err != nil {
			return err
		}
		length, err := lanes.LaneLength(id)
		if err != nil {
			return err
		}
		grid, err := lanegrid.Build(id, left, right, length, unit)
		if err != nil {
			return err
		}
		occ := grid.Occupancy(ref.Trace())
		if rate := occ.NonzeroRate(); rate < noise {
			diagf("reference lane %s dropped: occupancy %.3f below %.3f", id, rate, noise)
			continue
		}
		o.grids = append(o.grids, grid)
		o.refOcc = append(o.refOcc, occ)
	}
	diagf("reference: %d samples over %.2fs, %d of %d lanes kept", len(samples), ref.Duration(), len(o.grids), len(laneIDs))
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func (o *Optimal) Name() string { return NameOptimal }

func (o *Optimal) InterestedTopics() []string {
	return []string{
		record.TopicObstacles,
		record.TopicLocalization,
		record.TopicRoutingRequest,
		record.TopicRoutingResponse,
	}
}

func (o *Optimal) OnMessage(m record.Message) oracle.Control {
	switch msg := m.Payload.(type) {
	case *record.RoutingRequest:
		if !o.started {
			o.started, o.startT = true, m.Timestamp
		}
	case *record.Localization:
		o.trace = append(o.trace, orb.Point{msg.Pose.Position.X, msg.Pose.Position.Y})
	case *record.PerceptionObstacles:
		t := 0.0
		if o.started {
			t = math.Max(0, float64(m.Timestamp-o.startT)*1e-9)
		}
		o.frames = append(o.frames, obstacleFrame{
			t:         t,
			obstacles: append([]record.PerceptionObstacle(nil), msg.Obstacles...),
		})
	}
	return oracle.Continue
}

// replayPass reports whether the reference ego, placed among the
// candidate's obstacles at matching relative times, never overlaps one.
func (o *Optimal) replayPass() bool {
	end := o.reference.Duration()
	for _, f := range o.frames {
		if f.t >= end {
			break
		}
		p := o.reference.At(f.t)
		ego := geometry.EgoBox(p.X, p.Y, 0, p.Heading, o.vehicle).Ring()
		for _, obs := range f.obstacles {
			box := geometry.GenericBox(obs.Position.X, obs.Position.Y, obs.Position.Z, obs.Theta, obs.Length, obs.Width).Ring()
			if geometry.PolygonDistance(ego, box) <= 0 {
				tracef("reference ego overlaps obstacle %d at t=%.2f", obs.ID, f.t)
				return false
			}
		}
	}
	return true
}

func (o *Optimal) compare() *Comparison {
	c := &Comparison{
		ReferenceTrace: o.reference.Trace(),
		CandidateTrace: o.trace,
		ReplayPass:     o.replayPass(),
	}
	for i, grid := range o.grids {
		cand := grid.Occupancy(o.trace)
		score := lanegrid.DiffScore(o.refOcc[i], cand)
		c.Lanes = append(c.Lanes, LaneComparison{
			Grid:      grid,
			Reference: o.refOcc[i],
			Candidate: cand,
			Score:     score,
		})
		if score > c.MaxScore {
			c.MaxScore, c.MaxLane = score, grid.LaneID
		}
	}
	c.NonOptimal = c.MaxScore > o.threshold
	return c
}

// Comparison returns the evaluation details once Violations has run.
func (o *Optimal) Comparison() (Comparison, bool) {
	if o.comparison == nil {
		return Comparison{}, false
	}
	return *o.comparison, true
}

func (o *Optimal) Violations() []oracle.Violation {
	c := o.compare()
	o.comparison = c
	diagf("optimal: replay_pass=%t non_optimal=%t score=%.3f lane=%q", c.ReplayPass, c.NonOptimal, c.MaxScore, c.MaxLane)
	return []oracle.Violation{oracle.NewViolation(NameOptimal, c.ReplayPass && c.NonOptimal,
		oracle.F("diff_iou_value", c.MaxScore),
		oracle.F("lane_id", c.MaxLane),
	)}
}
