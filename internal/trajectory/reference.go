// Package trajectory models a recorded ego run as time-parameterized
// interpolators over its localization stream.
package trajectory

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/interp"
)

// Sample is one localization frame in relative seconds.
type Sample struct {
	T       float64
	X       float64
	Y       float64
	Heading float64
}

// Pose is an interpolated ego pose.
type Pose struct {
	X       float64
	Y       float64
	Heading float64
}

// Reference answers "where was the reference ego at time t".
type Reference struct {
	x, y, heading interp.PiecewiseLinear
	constant      *Pose
	duration      float64
	trace         orb.LineString
}

// NewReference fits linear interpolators over samples. Samples must be in
// non-decreasing time order; later samples sharing a timestamp replace
// earlier ones. A single distinct timestamp yields a constant model with
// zero duration.
func NewReference(samples []Sample) (*Reference, error) {
	if len(samples) == 0 {
		return nil, errors.New("trajectory: no samples")
	}

	ts := make([]float64, 0, len(samples))
	xs := make([]float64, 0, len(samples))
	ys := make([]float64, 0, len(samples))
	hs := make([]float64, 0, len(samples))
	trace := make(orb.LineString, 0, len(samples))

	for i, s := range samples {
		trace = append(trace, orb.Point{s.X, s.Y})
		if n := len(ts); n > 0 {
			if s.T < ts[n-1] {
				return nil, fmt.Errorf("trajectory: sample %d goes back in time (%v < %v)", i, s.T, ts[n-1])
			}
			if s.T == ts[n-1] {
				xs[n-1], ys[n-1], hs[n-1] = s.X, s.Y, s.Heading
				continue
			}
		}
		ts = append(ts, s.T)
		xs = append(xs, s.X)
		ys = append(ys, s.Y)
		hs = append(hs, s.Heading)
	}

	r := &Reference{trace: trace, duration: ts[len(ts)-1]}
	if len(ts) == 1 {
		r.constant = &Pose{X: xs[0], Y: ys[0], Heading: hs[0]}
		return r, nil
	}

	if err := r.x.Fit(ts, xs); err != nil {
		return nil, fmt.Errorf("trajectory: fit x: %w", err)
	}
	if err := r.y.Fit(ts, ys); err != nil {
		return nil, fmt.Errorf("trajectory: fit y: %w", err)
	}
	if err := r.heading.Fit(ts, hs); err != nil {
		return nil, fmt.Errorf("trajectory: fit heading: %w", err)
	}
	return r, nil
}

// Duration is the relative time of the last sample.
func (r *Reference) Duration() float64 { return r.duration }

// Trace is the ordered polyline of all sample positions.
func (r *Reference) Trace() orb.LineString { return r.trace }

// At interpolates the pose at relative time t. Times outside the sampled
// range return the nearest end value.
func (r *Reference) At(t float64) Pose {
	if r.constant != nil {
		return *r.constant
	}
	return Pose{
		X:       r.x.Predict(t),
		Y:       r.y.Predict(t),
		Heading: r.heading.Predict(t),
	}
}
