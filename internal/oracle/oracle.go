// Package oracle defines the analyzer contract, the plugin registry that
// instantiates analyzers by name, and the dispatcher that feeds them a
// scenario record.
package oracle

import (
	"errors"
	"sort"
	"strings"

	"github.com/banshee-data/scenario.report/internal/config"
	"github.com/banshee-data/scenario.report/internal/geometry"
	"github.com/banshee-data/scenario.report/internal/hdmap"
	"github.com/banshee-data/scenario.report/internal/record"
)

// ErrConfig marks configuration problems detected before dispatch starts.
var ErrConfig = errors.New("oracle: configuration error")

// Control is an oracle's answer to a delivered message.
type Control int

const (
	// Continue keeps the dispatch loop running.
	Continue Control = iota
	// Stop ends dispatch for every oracle. It is a successful outcome.
	Stop
)

func (c Control) String() string {
	if c == Stop {
		return "stop"
	}
	return "continue"
}

// Oracle is a stateful consumer of a scenario record.
//
// InterestedTopics must return the same set for the life of the instance.
// Violations is called exactly once, after dispatch has stopped.
type Oracle interface {
	Name() string
	InterestedTopics() []string
	OnMessage(m record.Message) Control
	Violations() []Violation
}

// Options carries plugin-declared extra settings, keyed by flag name.
type Options map[string]string

// Get returns the value for key, or "".
func (o Options) Get(key string) string {
	if o == nil {
		return ""
	}
	return strings.TrimSpace(o[key])
}

// Deps is what every factory receives.
type Deps struct {
	Map     hdmap.Service
	Vehicle geometry.VehicleGeometry
	Config  *config.OracleConfig
	Options Options
}

// Tuning returns Config, or an empty config that yields defaults.
func (d Deps) Tuning() *config.OracleConfig {
	if d.Config == nil {
		return config.EmptyOracleConfig()
	}
	return d.Config
}

// Factory builds a fresh oracle for one run.
type Factory func(Deps) (Oracle, error)

// Flag is an extra command-line option a plugin contributes.
type Flag struct {
	Name    string
	Usage   string
	Default string
}

// Plugin is a registry entry.
type Plugin struct {
	Name        string
	Description string
	New         Factory
	Flags       []Flag
}

// Topics returns the union of the oracles' topics plus the routing request
// topic that opens the dispatch gate, sorted.
func Topics(oracles []Oracle) []string {
	set := map[string]bool{record.TopicRoutingRequest: true}
	for _, o := range oracles {
		for _, t := range o.InterestedTopics() {
			set[t] = true
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
