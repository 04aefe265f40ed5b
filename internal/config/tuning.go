package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical oracle defaults file.
const DefaultConfigPath = "config/oracle.defaults.json"

// OracleConfig holds the oracle thresholds and tuning knobs. Every field
// is optional; the Get* methods fall back to the built-in default.
type OracleConfig struct {
	// Collision
	CollisionThreshold *float64 `json:"collision_threshold,omitempty"`

	// Acceleration
	FastAccelThreshold   *float64 `json:"fast_accel_threshold,omitempty"`
	HardBrakingThreshold *float64 `json:"hard_braking_threshold,omitempty"`

	// Destination
	DestinationThreshold *float64 `json:"destination_threshold,omitempty"`

	// Speeding
	SpeedingThreshold *float64 `json:"speeding_threshold,omitempty"`

	// Optimal
	OptimalThreshold *float64 `json:"optimal_threshold,omitempty"`
	GridUnit         *float64 `json:"grid_unit,omitempty"`
	OccupancyNoise   *float64 `json:"occupancy_noise_rate,omitempty"`

	// Map lookups
	LaneSearchRadius     *float64 `json:"lane_search_radius,omitempty"`
	LaneHeadingTolerance *float64 `json:"lane_heading_tolerance,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }

// EmptyOracleConfig returns a config with every field unset.
func EmptyOracleConfig() *OracleConfig {
	return &OracleConfig{}
}

// DefaultOracleConfig returns a config with every field set to its default.
func DefaultOracleConfig() *OracleConfig {
	e := EmptyOracleConfig()
	return &OracleConfig{
		CollisionThreshold:   ptrFloat64(e.GetCollisionThreshold()),
		FastAccelThreshold:   ptrFloat64(e.GetFastAccelThreshold()),
		HardBrakingThreshold: ptrFloat64(e.GetHardBrakingThreshold()),
		DestinationThreshold: ptrFloat64(e.GetDestinationThreshold()),
		SpeedingThreshold:    ptrFloat64(e.GetSpeedingThreshold()),
		OptimalThreshold:     ptrFloat64(e.GetOptimalThreshold()),
		GridUnit:             ptrFloat64(e.GetGridUnit()),
		OccupancyNoise:       ptrFloat64(e.GetOccupancyNoise()),
		LaneSearchRadius:     ptrFloat64(e.GetLaneSearchRadius()),
		LaneHeadingTolerance: ptrFloat64(e.GetLaneHeadingTolerance()),
	}
}

// LoadOracleConfig loads an OracleConfig from a JSON file.
// The file must have a .json extension and be at most 1MB.
// Omitted fields keep their defaults, so partial configs are fine.
func LoadOracleConfig(path string) (*OracleConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyOracleConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching upward from the
// working directory. Panics if the file cannot be loaded; intended for
// test setup.
func MustLoadDefaultConfig() *OracleConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from internal/storage/sqlite/
	}
	for _, path := range candidates {
		if cfg, err := LoadOracleConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks value ranges of the fields that are set.
func (c *OracleConfig) Validate() error {
	positive := []struct {
		name string
		v    *float64
	}{
		{"collision_threshold", c.CollisionThreshold},
		{"fast_accel_threshold", c.FastAccelThreshold},
		{"destination_threshold", c.DestinationThreshold},
		{"optimal_threshold", c.OptimalThreshold},
		{"grid_unit", c.GridUnit},
		{"lane_search_radius", c.LaneSearchRadius},
	}
	for _, p := range positive {
		if p.v != nil && !(*p.v > 0) {
			return fmt.Errorf("%s must be positive, got %f", p.name, *p.v)
		}
	}

	if c.HardBrakingThreshold != nil && !(*c.HardBrakingThreshold < 0) {
		return fmt.Errorf("hard_braking_threshold must be negative, got %f", *c.HardBrakingThreshold)
	}
	if c.SpeedingThreshold != nil && (*c.SpeedingThreshold < 0 || math.IsNaN(*c.SpeedingThreshold)) {
		return fmt.Errorf("speeding_threshold must be non-negative, got %f", *c.SpeedingThreshold)
	}
	if c.OccupancyNoise != nil && !(*c.OccupancyNoise >= 0 && *c.OccupancyNoise < 1) {
		return fmt.Errorf("occupancy_noise_rate must be in [0, 1), got %f", *c.OccupancyNoise)
	}
	if c.LaneHeadingTolerance != nil && !(*c.LaneHeadingTolerance > 0 && *c.LaneHeadingTolerance <= math.Pi) {
		return fmt.Errorf("lane_heading_tolerance must be in (0, pi], got %f", *c.LaneHeadingTolerance)
	}
	return nil
}

// GetCollisionThreshold returns the collision_threshold value or the default.
func (c *OracleConfig) GetCollisionThreshold() float64 {
	if c.CollisionThreshold == nil {
		return 1e-3
	}
	return *c.CollisionThreshold
}

// GetFastAccelThreshold returns the fast_accel_threshold value or the default.
func (c *OracleConfig) GetFastAccelThreshold() float64 {
	if c.FastAccelThreshold == nil {
		return 4.0
	}
	return *c.FastAccelThreshold
}

// GetHardBrakingThreshold returns the hard_braking_threshold value or the default.
func (c *OracleConfig) GetHardBrakingThreshold() float64 {
	if c.HardBrakingThreshold == nil {
		return -4.0
	}
	return *c.HardBrakingThreshold
}

// GetDestinationThreshold returns the destination_threshold value or the default.
func (c *OracleConfig) GetDestinationThreshold() float64 {
	if c.DestinationThreshold == nil {
		return 5.0
	}
	return *c.DestinationThreshold
}

// GetSpeedingThreshold returns the speeding_threshold value or the default.
func (c *OracleConfig) GetSpeedingThreshold() float64 {
	if c.SpeedingThreshold == nil {
		return 0.5
	}
	return *c.SpeedingThreshold
}

// GetOptimalThreshold returns the optimal_threshold value or the default.
func (c *OracleConfig) GetOptimalThreshold() float64 {
	if c.OptimalThreshold == nil {
		return 0.4
	}
	return *c.OptimalThreshold
}

// GetGridUnit returns the grid_unit value or the default.
func (c *OracleConfig) GetGridUnit() float64 {
	if c.GridUnit == nil {
		return 2.0
	}
	return *c.GridUnit
}

// GetOccupancyNoise returns the occupancy_noise_rate value or the default.
func (c *OracleConfig) GetOccupancyNoise() float64 {
	if c.OccupancyNoise == nil {
		return 0.05
	}
	return *c.OccupancyNoise
}

// GetLaneSearchRadius returns the lane_search_radius value or the default.
func (c *OracleConfig) GetLaneSearchRadius() float64 {
	if c.LaneSearchRadius == nil {
		return 3.0
	}
	return *c.LaneSearchRadius
}

// GetLaneHeadingTolerance returns the lane_heading_tolerance value or the default.
func (c *OracleConfig) GetLaneHeadingTolerance() float64 {
	if c.LaneHeadingTolerance == nil {
		return math.Pi / 4
	}
	return *c.LaneHeadingTolerance
}
