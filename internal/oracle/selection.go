package oracle

import "fmt"

// Selection is the user's activation request.
type Selection struct {
	All     bool
	Include []string
	Exclude []string
}

// ValidateSelection rejects contradictory requests: All with a non-empty
// exclude list, and any name both included and excluded.
func ValidateSelection(s Selection) error {
	if s.All && len(s.Exclude) > 0 {
		return fmt.Errorf("%w: --all and --exclude are mutually exclusive", ErrConfig)
	}
	excluded := toSet(s.Exclude)
	for _, name := range s.Include {
		if excluded[name] {
			return fmt.Errorf("%w: oracle %q is both included and excluded", ErrConfig, name)
		}
	}
	return nil
}

// Resolve computes the active names from the discovered ones, preserving
// discovered order:
//   - All selects everything;
//   - a non-empty include list selects included names not also excluded;
//   - otherwise a non-empty exclude list removes names;
//   - an empty request selects everything.
//
// Unknown names are ignored; see UnknownNames.
func Resolve(discovered []string, s Selection) []string {
	if s.All {
		return append([]string(nil), discovered...)
	}
	included, excluded := toSet(s.Include), toSet(s.Exclude)

	out := make([]string, 0, len(discovered))
	for _, name := range discovered {
		switch {
		case len(included) > 0:
			if included[name] && !excluded[name] {
				out = append(out, name)
			}
		case excluded[name]:
		default:
			out = append(out, name)
		}
	}
	return out
}

// UnknownNames lists include/exclude entries that match no discovered name.
func UnknownNames(discovered []string, s Selection) []string {
	known := toSet(discovered)
	seen := make(map[string]bool)
	var out []string
	for _, list := range [][]string{s.Include, s.Exclude} {
		for _, name := range list {
			if !known[name] && !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

// Select validates s, resolves it against r and instantiates the result.
// Unknown names are logged and skipped.
func (r *Registry) Select(s Selection, deps Deps) ([]Oracle, error) {
	if err := ValidateSelection(s); err != nil {
		return nil, err
	}
	discovered := r.Names()
	for _, name := range UnknownNames(discovered, s) {
		opsf("ignoring unknown oracle %q", name)
	}
	active := Resolve(discovered, s)
	diagf("active oracles %v", active)
	return r.Instantiate(active, deps)
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
