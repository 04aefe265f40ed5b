// Package report writes analysis results: the violation list as JSON or
// protobuf, and optional debug artefacts for the optimal oracle.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/scenario.report/internal/oracle"
)

// Format selects the report encoding.
type Format string

const (
	FormatJSON  Format = "json"
	FormatProto Format = "pb"
)

// ParseFormat accepts "json" and "pb", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatProto:
		return f, nil
	}
	return "", fmt.Errorf("unknown report format %q (want json or pb)", s)
}

// Write encodes violations in the given format into a new file at path.
// An existing file is never overwritten.
func Write(path string, format Format, violations []oracle.Violation) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatJSON:
		data, err = EncodeJSON(violations)
	case FormatProto:
		data, err = EncodeProto(violations)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
	if err != nil {
		return err
	}
	return writeNew(path, data)
}

// Read decodes a report written by Write.
func Read(path string, format Format) ([]oracle.Violation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	switch format {
	case FormatJSON:
		return DecodeJSON(data)
	case FormatProto:
		return DecodeProto(data)
	}
	return nil, fmt.Errorf("unknown report format %q", format)
}

func writeNew(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return f.Close()
}

// EncodeJSON renders violations as an indented JSON array. Feature keys
// keep the order the oracle emitted them in.
func EncodeJSON(violations []oracle.Violation) ([]byte, error) {
	if violations == nil {
		violations = []oracle.Violation{}
	}
	data, err := json.MarshalIndent(violations, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeJSON parses a JSON report, validating every record.
func DecodeJSON(data []byte) ([]oracle.Violation, error) {
	var out []oracle.Violation
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return out, nil
}

// EncodeProto renders violations as a serialized google.protobuf.ListValue
// of {name, triggered, features} structs.
func EncodeProto(violations []oracle.Violation) ([]byte, error) {
	list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(violations))}
	for _, v := range violations {
		s, err := structpb.NewStruct(map[string]any{
			"name":      v.Name(),
			"triggered": v.Triggered(),
			"features":  v.Features().Map(),
		})
		if err != nil {
			return nil, fmt.Errorf("violation %s: %w", v.Name(), err)
		}
		list.Values = append(list.Values, structpb.NewStructValue(s))
	}
	data, err := proto.MarshalOptions{Deterministic: true}.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return data, nil
}

// DecodeProto parses a protobuf report. Feature keys come back sorted.
func DecodeProto(data []byte) ([]oracle.Violation, error) {
	var list structpb.ListValue
	if err := proto.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	out := make([]oracle.Violation, 0, len(list.Values))
	for i, item := range list.AsSlice() {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("report entry %d: expected object, got %T", i, item)
		}
		v, err := oracle.FromMap(m)
		if err != nil {
			return nil, fmt.Errorf("report entry %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
