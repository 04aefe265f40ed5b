// Package oracles implements the built-in scenario analyzers:
// acceleration, collision, destination, optimal and speeding.
package oracles

import (
	"github.com/banshee-data/scenario.report/internal/oracle"
)

// Oracle names, also used as report keys and CLI selectors.
const (
	NameAcceleration = "acceleration"
	NameCollision    = "collision"
	NameDestination  = "destination"
	NameOptimal      = "optimal"
	NameSpeeding     = "speeding"
)

// Extra option keys.
const (
	OptOptimalRefer    = "optimal-refer"
	OptCollisionIgnore = "collision-ignore"
)

// Plugins returns the built-in plugin set.
func Plugins() []oracle.Plugin {
	return []oracle.Plugin{
		{
			Name:        NameAcceleration,
			Description: "flags fast acceleration and hard braking",
			New:         func(d oracle.Deps) (oracle.Oracle, error) { return NewAcceleration(d), nil },
		},
		{
			Name:        NameCollision,
			Description: "flags the first ego/obstacle contact and stops the run",
			New:         func(d oracle.Deps) (oracle.Oracle, error) { return NewCollision(d) },
			Flags: []oracle.Flag{{
				Name:  OptCollisionIgnore,
				Usage: "comma-separated obstacle ids the collision oracle skips",
			}},
		},
		{
			Name:        NameDestination,
			Description: "flags runs that end away from the routed destination",
			New:         func(d oracle.Deps) (oracle.Oracle, error) { return NewDestination(d), nil },
		},
		{
			Name:        NameOptimal,
			Description: "flags lane usage that deviates from a safe reference run",
			New:         func(d oracle.Deps) (oracle.Oracle, error) { return NewOptimal(d) },
			Flags: []oracle.Flag{{
				Name:  OptOptimalRefer,
				Usage: "reference record file for the optimal oracle",
			}},
		},
		{
			Name:        NameSpeeding,
			Description: "flags driving above every matching lane's speed limit",
			New:         func(d oracle.Deps) (oracle.Oracle, error) { return NewSpeeding(d) },
		},
	}
}

// RegisterAll adds the built-in plugins to r.
func RegisterAll(r *oracle.Registry) error {
	for _, p := range Plugins() {
		if err := r.Register(p); err != nil {
			return err
		}
	}
	return nil
}

// DefaultRegistry returns a registry holding the built-in plugins.
func DefaultRegistry() *oracle.Registry {
	r := oracle.NewRegistry()
	for _, p := range Plugins() {
		r.MustRegister(p)
	}
	return r
}
