package oracle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Feature is one named measurement attached to a Violation.
type Feature struct {
	Key   string
	Value any
}

// F is shorthand for a Feature literal.
func F(key string, value any) Feature { return Feature{Key: key, Value: value} }

// Features is an insertion-ordered key/value list. It encodes as a JSON
// object with keys in insertion order.
type Features []Feature

// Get returns the value stored under key.
func (fs Features) Get(key string) (any, bool) {
	for _, f := range fs {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Float returns the value under key as a float64. Integer values are
// converted.
func (fs Features) Float(key string) (float64, bool) {
	v, ok := fs.Get(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Keys returns the feature keys in order.
func (fs Features) Keys() []string {
	keys := make([]string, len(fs))
	for i, f := range fs {
		keys[i] = f.Key
	}
	return keys
}

// Map copies the features into an unordered map.
func (fs Features) Map() map[string]any {
	m := make(map[string]any, len(fs))
	for _, f := range fs {
		m[f.Key] = f.Value
	}
	return m
}

// MarshalJSON implements json.Marshaler.
func (fs Features) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fs {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("feature %q: %w", f.Key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, keeping document key order.
func (fs *Features) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("features must be an object")
	}
	var out Features
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key := tok.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("feature %q: %w", key, err)
		}
		out = append(out, Feature{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*fs = out
	return nil
}

// Violation is the finding of one oracle. It is immutable once built.
type Violation struct {
	name      string
	triggered bool
	features  Features
}

// NewViolation builds a Violation. The feature list is copied.
func NewViolation(name string, triggered bool, features ...Feature) Violation {
	return Violation{
		name:      name,
		triggered: triggered,
		features:  append(Features(nil), features...),
	}
}

// Name is the producing oracle's name.
func (v Violation) Name() string { return v.name }

// Triggered reports whether the oracle judged the run faulty.
func (v Violation) Triggered() bool { return v.triggered }

// Features returns a copy of the measurements.
func (v Violation) Features() Features { return append(Features(nil), v.features...) }

// Feature returns a single measurement.
func (v Violation) Feature(key string) (any, bool) { return v.features.Get(key) }

func (v Violation) String() string {
	return fmt.Sprintf("Violation(name=%s, triggered=%t, features=%v)", v.name, v.triggered, v.features.Map())
}

type violationJSON struct {
	Name      string   `json:"name"`
	Triggered bool     `json:"triggered"`
	Features  Features `json:"features"`
}

// MarshalJSON encodes {name, triggered, features}.
func (v Violation) MarshalJSON() ([]byte, error) {
	fs := v.features
	if fs == nil {
		fs = Features{}
	}
	return json.Marshal(violationJSON{Name: v.name, Triggered: v.triggered, Features: fs})
}

// UnmarshalJSON decodes and validates a report record.
func (v *Violation) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	for _, k := range []string{"name", "triggered", "features"} {
		if _, ok := probe[k]; !ok {
			return fmt.Errorf("violation: missing key %q", k)
		}
	}
	var name string
	if err := json.Unmarshal(probe["name"], &name); err != nil {
		return fmt.Errorf("violation: name must be a string: %w", err)
	}
	var triggered bool
	if err := json.Unmarshal(probe["triggered"], &triggered); err != nil {
		return fmt.Errorf("violation: triggered must be a bool: %w", err)
	}
	var fs Features
	if err := json.Unmarshal(probe["features"], &fs); err != nil {
		return fmt.Errorf("violation: features: %w", err)
	}
	*v = Violation{name: name, triggered: triggered, features: fs}
	return nil
}

// FromMap validates a decoded report record and rebuilds the Violation.
// Feature keys are sorted since map order is lost.
func FromMap(data map[string]any) (Violation, error) {
	for _, k := range []string{"name", "triggered", "features"} {
		if _, ok := data[k]; !ok {
			return Violation{}, fmt.Errorf("violation: missing key %q", k)
		}
	}
	name, ok := data["name"].(string)
	if !ok {
		return Violation{}, fmt.Errorf("violation: name must be a string, got %T", data["name"])
	}
	triggered, ok := data["triggered"].(bool)
	if !ok {
		return Violation{}, fmt.Errorf("violation: triggered must be a bool, got %T", data["triggered"])
	}
	raw, ok := data["features"].(map[string]any)
	if !ok {
		return Violation{}, fmt.Errorf("violation: features must be an object, got %T", data["features"])
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fs := make(Features, 0, len(keys))
	for _, k := range keys {
		fs = append(fs, Feature{Key: k, Value: raw[k]})
	}
	return Violation{name: name, triggered: triggered, features: fs}, nil
}
