package discovery

import (
	"iter"
	"slices"
)

// SchemaSet is a set of schema names. A nil set is empty.
type SchemaSet map[string]struct{}

// NewSchemaSet builds a set from names.
func NewSchemaSet(names ...string) SchemaSet {
	s := make(SchemaSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Contains reports whether name is in the set. Matching is exact.
func (s SchemaSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Union returns a new set holding the members of both.
func (s SchemaSet) Union(other SchemaSet) SchemaSet {
	out := make(SchemaSet, len(s)+len(other))
	for n := range s {
		out[n] = struct{}{}
	}
	for n := range other {
		out[n] = struct{}{}
	}
	return out
}

// Names returns the members in sorted order.
func (s SchemaSet) Names() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// FilterSchemas drops excluded names from schemas, keeping the order of
// the rest. Errors pass through untouched.
func FilterSchemas(schemas iter.Seq2[string, error], excluded SchemaSet) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for name, err := range schemas {
			if err == nil && excluded.Contains(name) {
				continue
			}
			if !yield(name, err) {
				return
			}
		}
	}
}
