// Package props is the canonicalization choke point for binary identity.
//
// A registry declares a Schema (the fixed set of property names its binaries
// are keyed by). Callers identify one binary with an Assignment (property ->
// value). Canonicalize validates an Assignment against a Schema and collapses
// it into a Key: the pairs sorted ascending by property name. The Key is the
// binary's identity everywhere: two assignments that differ only in input
// order produce the same Key and therefore name the same binary.
package props

import (
	"fmt"
	"sort"
	"strings"
)

const (
	pairSep  = "=="
	valueSep = "="
)

// Schema is the ordered set of property names a registry's binaries are
// keyed by. It is fixed at registry creation and never mutated.
type Schema []string

// NewSchema validates names as a schema: non-empty, distinct, no '=' or ','
// (both are serialization delimiters).
func NewSchema(names []string) (Schema, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("props: schema needs at least one property")
	}
	seen := make(map[string]struct{}, len(names))
	out := make(Schema, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return nil, fmt.Errorf("props: empty property name")
		}
		if strings.ContainsAny(n, "=,") {
			return nil, fmt.Errorf("props: invalid property name %q", n)
		}
		if _, dup := seen[n]; dup {
			return nil, fmt.Errorf("props: duplicate property name %q", n)
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out, nil
}

// ParseSchema parses the CLI form "p1,p2,...".
func ParseSchema(s string) (Schema, error) {
	return NewSchema(strings.Split(s, ","))
}

// Sorted returns the property names in ascending order.
func (s Schema) Sorted() []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

// Assignment maps property names to free-form string values.
type Assignment map[string]string

// ParseAssignment parses the CLI form "k=v,k=v,...". Whitespace around keys,
// values and separators is trimmed. A repeated key is an error: silently
// keeping either occurrence would make identity depend on input order.
// Values must be non-empty and may not contain '=' (the serialization
// delimiter), so a malformed pair fails here instead of producing an
// uninvertible key.
func ParseAssignment(s string) (Assignment, error) {
	parts := strings.Split(s, ",")
	out := make(Assignment, len(parts))
	for _, p := range parts {
		k, v, ok := strings.Cut(p, valueSep)
		if !ok {
			return nil, fmt.Errorf("props: malformed pair %q (want key=value)", strings.TrimSpace(p))
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" {
			return nil, fmt.Errorf("props: empty property name in %q", p)
		}
		if err := checkValue(k, v); err != nil {
			return nil, err
		}
		if _, dup := out[k]; dup {
			return nil, fmt.Errorf("props: duplicate property %q", k)
		}
		out[k] = v
	}
	return out, nil
}

// checkValue rejects values the pair serialization cannot represent
// unambiguously: an empty value or one holding '=' would produce a key
// string with adjacent separators, which no longer parses back into the
// same pairs.
func checkValue(name, value string) error {
	if value == "" {
		return fmt.Errorf("props: property %q needs a non-empty value", name)
	}
	if strings.Contains(value, valueSep) {
		return fmt.Errorf("props: value %q for property %q must not contain %q", value, name, valueSep)
	}
	return nil
}

// Pair is one property/value element of a canonical key.
type Pair struct {
	Name  string
	Value string
}

// Key is a canonicalized assignment: pairs sorted ascending by property
// name. It is both the storage identity of a binary and the shape listing
// operations return.
type Key []Pair

// Canonicalize validates a against schema and returns the canonical key.
// The assignment's key set must equal the schema's key set exactly; any
// missing or extra property yields ErrSchemaMismatch. Values are checked
// here as well, so assignments built in code cannot smuggle a '=' past
// the parser and store a key that no longer round-trips.
func Canonicalize(a Assignment, schema Schema) (Key, error) {
	declared := make(map[string]struct{}, len(schema))
	for _, n := range schema {
		declared[n] = struct{}{}
	}
	for n := range a {
		if _, ok := declared[n]; !ok {
			return nil, &MismatchError{Got: keysOf(a), Want: schema.Sorted()}
		}
	}
	if len(a) != len(schema) {
		return nil, &MismatchError{Got: keysOf(a), Want: schema.Sorted()}
	}
	key := make(Key, 0, len(a))
	for n, v := range a {
		if err := checkValue(n, v); err != nil {
			return nil, err
		}
		key = append(key, Pair{Name: n, Value: v})
	}
	sort.Slice(key, func(i, j int) bool { return key[i].Name < key[j].Name })
	return key, nil
}

// String serializes the key as "k1=v1==k2=v2" with pairs already in
// canonical order. Backends use this string verbatim as the storage key.
func (k Key) String() string {
	pairs := make([]string, len(k))
	for i, p := range k {
		pairs[i] = p.Name + valueSep + p.Value
	}
	return strings.Join(pairs, pairSep)
}

// Assignment converts the key back into a property mapping.
func (k Key) Assignment() Assignment {
	out := make(Assignment, len(k))
	for _, p := range k {
		out[p.Name] = p.Value
	}
	return out
}

// ParseKey inverts Key.String. It rejects strings whose pairs are not in
// canonical (ascending) order, so backend listings cannot smuggle in
// non-canonical identities.
func ParseKey(s string) (Key, error) {
	if s == "" {
		return nil, fmt.Errorf("props: empty key")
	}
	parts := strings.Split(s, pairSep)
	key := make(Key, 0, len(parts))
	for _, p := range parts {
		name, value, ok := strings.Cut(p, valueSep)
		if !ok || name == "" {
			return nil, fmt.Errorf("props: malformed key segment %q", p)
		}
		if err := checkValue(name, value); err != nil {
			return nil, err
		}
		key = append(key, Pair{Name: name, Value: value})
	}
	for i := 1; i < len(key); i++ {
		if key[i-1].Name >= key[i].Name {
			return nil, fmt.Errorf("props: key %q is not in canonical order", s)
		}
	}
	return key, nil
}

func keysOf(a Assignment) []string {
	out := make([]string, 0, len(a))
	for n := range a {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
