package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/scenario.report/internal/geometry"
)

// vehicleFile accepts both a flat parameter set and one nested under
// vehicle_param.
type vehicleFile struct {
	VehicleParam *geometry.VehicleGeometry `json:"vehicle_param" yaml:"vehicle_param"`
}

// LoadVehicleGeometry reads vehicle dimensions from a .yaml, .yml or .json
// file. Unknown keys are rejected.
func LoadVehicleGeometry(path string) (geometry.VehicleGeometry, error) {
	var g geometry.VehicleGeometry

	cleanPath := filepath.Clean(path)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return g, fmt.Errorf("failed to stat vehicle file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return g, fmt.Errorf("vehicle file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return g, fmt.Errorf("failed to read vehicle file: %w", err)
	}

	switch ext := filepath.Ext(cleanPath); ext {
	case ".yaml", ".yml":
		g, err = decodeVehicleYAML(data)
	case ".json":
		g, err = decodeVehicleJSON(data)
	default:
		return g, fmt.Errorf("vehicle file must be .yaml, .yml or .json, got %q", ext)
	}
	if err != nil {
		return g, fmt.Errorf("failed to parse vehicle file %s: %w", path, err)
	}

	if err := ValidateVehicle(g); err != nil {
		return g, fmt.Errorf("invalid vehicle geometry: %w", err)
	}
	return g, nil
}

func decodeVehicleYAML(data []byte) (geometry.VehicleGeometry, error) {
	var wrapped vehicleFile
	if err := yaml.Unmarshal(data, &wrapped); err == nil && wrapped.VehicleParam != nil {
		return *wrapped.VehicleParam, nil
	}
	var g geometry.VehicleGeometry
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&g); err != nil {
		return g, err
	}
	return g, nil
}

func decodeVehicleJSON(data []byte) (geometry.VehicleGeometry, error) {
	var wrapped vehicleFile
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.VehicleParam != nil {
		return *wrapped.VehicleParam, nil
	}
	var g geometry.VehicleGeometry
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&g); err != nil {
		return g, err
	}
	return g, nil
}

// ValidateVehicle checks that g describes a physical footprint.
func ValidateVehicle(g geometry.VehicleGeometry) error {
	if !(g.Length > 0) {
		return fmt.Errorf("length must be positive, got %f", g.Length)
	}
	if !(g.Width > 0) {
		return fmt.Errorf("width must be positive, got %f", g.Width)
	}
	if g.BackEdgeToCenter < 0 {
		return fmt.Errorf("back_edge_to_center must be non-negative, got %f", g.BackEdgeToCenter)
	}
	if g.BackEdgeToCenter > g.Length {
		return fmt.Errorf("back_edge_to_center %f exceeds length %f", g.BackEdgeToCenter, g.Length)
	}
	return nil
}
