package oracle

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViolation_JSONKeepsFeatureOrder(t *testing.T) {
	t.Parallel()

	v := NewViolation("collision", true,
		F("ego_x", 1.5),
		F("ego_y", -2.0),
		F("obs_type", "VEHICLE"),
		F("collision_type", "rear"),
	)
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t,
		`{"name":"collision","triggered":true,"features":{"ego_x":1.5,"ego_y":-2,"obs_type":"VEHICLE","collision_type":"rear"}}`,
		string(data))

	var back Violation
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []string{"ego_x", "ego_y", "obs_type", "collision_type"}, back.Features().Keys())
	assert.Equal(t, "collision", back.Name())
	assert.True(t, back.Triggered())
}

func TestViolation_EmptyFeatures(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(NewViolation("x", false))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"x","triggered":false,"features":{}}`, string(data))
}

func TestViolation_Immutable(t *testing.T) {
	t.Parallel()

	fs := []Feature{F("a", 1.0)}
	v := NewViolation("x", false, fs...)
	fs[0].Value = 2.0

	got := v.Features()
	got[0].Value = 3.0

	val, ok := v.Feature("a")
	require.True(t, ok)
	assert.Equal(t, 1.0, val)
}

func TestViolation_UnmarshalRejects(t *testing.T) {
	t.Parallel()

	for _, doc := range []string{
		`{"triggered":true,"features":{}}`,
		`{"name":"x","features":{}}`,
		`{"name":"x","triggered":true}`,
		`{"name":1,"triggered":true,"features":{}}`,
		`{"name":"x","triggered":"yes","features":{}}`,
		`{"name":"x","triggered":true,"features":[]}`,
	} {
		var v Violation
		assert.Error(t, json.Unmarshal([]byte(doc), &v), doc)
	}
}

func TestFromMap(t *testing.T) {
	t.Parallel()

	v, err := FromMap(map[string]any{
		"name":      "speeding",
		"triggered": false,
		"features":  map[string]any{"speeding": 0.2, "ego_y": 1.0, "ego_x": 3.0},
	})
	require.NoError(t, err)
	assert.Equal(t, "speeding", v.Name())
	assert.Equal(t, []string{"ego_x", "ego_y", "speeding"}, v.Features().Keys())

	bad := []map[string]any{
		{"triggered": true, "features": map[string]any{}},
		{"name": "x", "triggered": 1, "features": map[string]any{}},
		{"name": "x", "triggered": true, "features": "nope"},
		{"name": 3, "triggered": true, "features": map[string]any{}},
	}
	for _, m := range bad {
		_, err := FromMap(m)
		assert.Error(t, err, "%v", m)
	}
}

func TestFeatures_Float(t *testing.T) {
	t.Parallel()

	fs := Features{F("f", 1.5), F("i", 3), F("s", "x")}
	f, ok := fs.Float("f")
	assert.True(t, ok)
	assert.Equal(t, 1.5, f)
	f, ok = fs.Float("i")
	assert.True(t, ok)
	assert.Equal(t, 3.0, f)
	_, ok = fs.Float("s")
	assert.False(t, ok)
	_, ok = fs.Float("missing")
	assert.False(t, ok)
}
