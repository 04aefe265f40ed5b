package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/banshee-data/scenario.report/internal/monitoring"
	"github.com/banshee-data/scenario.report/internal/record"
)

// Result is the outcome of one analysis run.
type Result struct {
	Violations []Violation
	// Dispatched counts messages delivered to at least one oracle.
	Dispatched int
	// Aborted is set when an oracle returned Stop.
	Aborted   bool
	AbortedBy string
}

// Triggered returns the violations that flagged a fault.
func (r *Result) Triggered() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Triggered() {
			out = append(out, v)
		}
	}
	return out
}

type analyzeOptions struct {
	metrics *monitoring.Metrics
}

// AnalyzeOption configures Analyze.
type AnalyzeOption func(*analyzeOptions)

// WithMetrics records dispatch counters on m.
func WithMetrics(m *monitoring.Metrics) AnalyzeOption {
	return func(o *analyzeOptions) { o.metrics = m }
}

// Analyze replays r through oracles and collects their violations.
//
// Nothing is delivered until the first routing request appears; that
// message and everything after it go to each oracle interested in the
// topic, in slice order. The first Stop ends delivery for all oracles.
// Every oracle is then finalized exactly once and the violations are
// concatenated in slice order.
//
// A read error or ctx cancellation fails the run without a Result.
func Analyze(ctx context.Context, r record.Reader, oracles []Oracle, opts ...AnalyzeOption) (*Result, error) {
	var o analyzeOptions
	for _, opt := range opts {
		opt(&o)
	}
	began := time.Now()

	interest := make([]map[string]bool, len(oracles))
	for i, or := range oracles {
		interest[i] = toSet(or.InterestedTopics())
	}

	res := &Result{}
	started := false
	seen := 0

dispatch:
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			opsf("record read failed after %d messages: %v", seen, err)
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		seen++

		if m.Topic == record.TopicRoutingRequest && !started {
			started = true
			diagf("scenario started at t=%d after %d messages", m.Timestamp, seen-1)
		}
		if !started {
			continue
		}

		delivered := false
		for i, or := range oracles {
			if !interest[i][m.Topic] {
				continue
			}
			delivered = true
			if or.OnMessage(m) == Stop {
				res.Aborted = true
				res.AbortedBy = or.Name()
				res.Dispatched++
				if o.metrics != nil {
					o.metrics.MessagesDispatched.WithLabelValues(m.Topic).Inc()
					o.metrics.Aborts.WithLabelValues(or.Name()).Inc()
				}
				diagf("%s requested stop at t=%d", or.Name(), m.Timestamp)
				break dispatch
			}
		}
		if delivered {
			res.Dispatched++
			tracef("dispatched %s t=%d", m.Topic, m.Timestamp)
			if o.metrics != nil {
				o.metrics.MessagesDispatched.WithLabelValues(m.Topic).Inc()
			}
		}
	}

	if !started {
		opsf("no routing request in record; oracles received no messages")
	}

	for _, or := range oracles {
		vs := or.Violations()
		for _, v := range vs {
			if o.metrics != nil {
				o.metrics.Violations.WithLabelValues(v.Name(), strconv.FormatBool(v.Triggered())).Inc()
			}
		}
		res.Violations = append(res.Violations, vs...)
	}

	if o.metrics != nil {
		o.metrics.RunDuration.Observe(time.Since(began).Seconds())
	}
	diagf("run finished: %d read, %d dispatched, %d violations, aborted=%t", seen, res.Dispatched, len(res.Violations), res.Aborted)
	return res, nil
}
