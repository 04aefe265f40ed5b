package hdmap

import (
	"fmt"
	"os"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature property keys and role values of the lane map file.
const (
	PropLaneID     = "lane_id"
	PropRole       = "role"
	PropSpeedLimit = "speed_limit"

	RoleCentral       = "central"
	RoleLeftBoundary  = "left_boundary"
	RoleRightBoundary = "right_boundary"
)

const maxMapFileSize = 256 * 1024 * 1024

// LoadGeoJSON reads a lane map from a GeoJSON FeatureCollection of
// LineString features, three per lane.
func LoadGeoJSON(path string, opts ...Option) (*Map, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat map file: %w", err)
	}
	if info.Size() > maxMapFileSize {
		return nil, fmt.Errorf("map file too large: %d bytes (max %d)", info.Size(), maxMapFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read map file: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse map file %s: %w", path, err)
	}
	lanes, err := LanesFromFeatures(fc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewMap(lanes, opts...)
}

// LanesFromFeatures groups role-tagged LineString features into lanes,
// sorted by id.
func LanesFromFeatures(fc *geojson.FeatureCollection) ([]Lane, error) {
	byID := make(map[string]*Lane)
	for i, f := range fc.Features {
		ls, ok := f.Geometry.(orb.LineString)
		if !ok {
			return nil, fmt.Errorf("feature %d: expected LineString, got %T", i, f.Geometry)
		}
		id := f.Properties.MustString(PropLaneID, "")
		if id == "" {
			return nil, fmt.Errorf("feature %d: missing %s", i, PropLaneID)
		}
		l := byID[id]
		if l == nil {
			l = &Lane{ID: id}
			byID[id] = l
		}
		switch role := f.Properties.MustString(PropRole, ""); role {
		case RoleCentral:
			l.Central = ls
			l.SpeedLimit = f.Properties.MustFloat64(PropSpeedLimit, 0)
		case RoleLeftBoundary:
			l.Left = ls
		case RoleRightBoundary:
			l.Right = ls
		default:
			return nil, fmt.Errorf("feature %d (lane %s): unknown role %q", i, id, role)
		}
	}

	lanes := make([]Lane, 0, len(byID))
	for _, l := range byID {
		if l.Central == nil || l.Left == nil || l.Right == nil {
			return nil, fmt.Errorf("lane %s: needs %s, %s and %s features", l.ID, RoleCentral, RoleLeftBoundary, RoleRightBoundary)
		}
		lanes = append(lanes, *l)
	}
	sort.Slice(lanes, func(i, j int) bool { return lanes[i].ID < lanes[j].ID })
	return lanes, nil
}

// FeatureCollection encodes lanes in the map file layout.
func FeatureCollection(lanes []Lane) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, l := range lanes {
		central := geojson.NewFeature(l.Central)
		central.Properties[PropLaneID] = l.ID
		central.Properties[PropRole] = RoleCentral
		central.Properties[PropSpeedLimit] = l.SpeedLimit
		fc.Append(central)

		left := geojson.NewFeature(l.Left)
		left.Properties[PropLaneID] = l.ID
		left.Properties[PropRole] = RoleLeftBoundary
		fc.Append(left)

		right := geojson.NewFeature(l.Right)
		right.Properties[PropLaneID] = l.ID
		right.Properties[PropRole] = RoleRightBoundary
		fc.Append(right)
	}
	return fc
}

// WriteGeoJSON writes lanes to path.
func WriteGeoJSON(path string, lanes []Lane) error {
	data, err := FeatureCollection(lanes).MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode map: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write map file: %w", err)
	}
	return nil
}
