// Package tree navigates and edits untyped canonical data: the map[string]any /
// []any / scalar values produced by decoding JSON or XML documents.
//
// Paths are dotted strings ("data.GrpHdr.MsgId"). Numeric segments index into
// arrays when reading; writes only ever descend through objects.
package tree

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Policy decides what Set does with an intermediate node that is missing or is
// not an object.
type Policy int

const (
	// CoerceObjects replaces a missing or non-object intermediate node with an
	// empty object. The replaced value is lost.
	CoerceObjects Policy = iota
	// Strict creates missing intermediates but fails on a non-object one.
	Strict
)

// String returns the configuration name of the policy.
func (p Policy) String() string {
	switch p {
	case CoerceObjects:
		return "coerce"
	case Strict:
		return "strict"
	default:
		return "unknown"
	}
}

// ParsePolicy maps a configuration name to a Policy. Empty selects CoerceObjects.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(name) {
	case "", "coerce":
		return CoerceObjects, nil
	case "strict":
		return Strict, nil
	default:
		return 0, fmt.Errorf("tree: unknown path policy %q", name)
	}
}

var (
	// ErrEmptyPath is returned for a path with no segments or an empty segment.
	ErrEmptyPath = errors.New("tree: empty path segment")
	// ErrNotObject is returned by Set under Strict when an intermediate node
	// holds a non-object value.
	ErrNotObject = errors.New("tree: intermediate node is not an object")
)

// Path is a parsed dotted path.
type Path []string

// ParsePath splits a dotted path and rejects empty segments.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return nil, ErrEmptyPath
	}
	segs := strings.Split(s, ".")
	for i, seg := range segs {
		if seg == "" {
			return nil, fmt.Errorf("%w at position %d in %q", ErrEmptyPath, i, s)
		}
	}
	return Path(segs), nil
}

// String joins the path back into dotted form.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Root returns the first segment, or "" for an empty path.
func (p Path) Root() string {
	if len(p) == 0 {
		return ""
	}
	return p[0]
}

// Rest returns the path below the root.
func (p Path) Rest() Path {
	if len(p) == 0 {
		return nil
	}
	return p[1:]
}

// Get walks path from node. It returns the value and whether every segment
// resolved. Array elements are addressed by decimal index.
func Get(node any, path Path) (any, bool) {
	current := node
	for _, seg := range path {
		switch n := current.(type) {
		case map[string]any:
			v, ok := n[seg]
			if !ok {
				return nil, false
			}
			current = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(n) {
				return nil, false
			}
			current = n[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// EnsureObject returns node as an object. A nil or non-object node is replaced
// by a new empty object under CoerceObjects; under Strict only nil is.
// coerced reports whether a non-nil value was discarded.
func EnsureObject(node any, policy Policy) (obj map[string]any, coerced bool, err error) {
	switch n := node.(type) {
	case map[string]any:
		return n, false, nil
	case nil:
		return map[string]any{}, false, nil
	default:
		if policy == Strict {
			return nil, false, fmt.Errorf("%w: found %T", ErrNotObject, node)
		}
		return map[string]any{}, true, nil
	}
}

// Set writes value at path below root and returns the (possibly new) root and
// the value previously stored at path (nil when absent). Intermediate nodes are
// handled according to policy. root itself is treated as an intermediate node.
// Set mutates root in place; callers wanting isolation pass a Clone.
func Set(root any, path Path, value any, policy Policy) (newRoot any, old any, err error) {
	if len(path) == 0 {
		return root, nil, ErrEmptyPath
	}

	top, _, err := EnsureObject(root, policy)
	if err != nil {
		return root, nil, fmt.Errorf("at root: %w", err)
	}

	current := top
	for i, seg := range path[:len(path)-1] {
		next, _, err := EnsureObject(current[seg], policy)
		if err != nil {
			return root, nil, fmt.Errorf("at %s: %w", path[:i+1], err)
		}
		current[seg] = next
		current = next
	}

	last := path[len(path)-1]
	old = current[last]
	current[last] = value
	return top, old, nil
}

// Clone deep-copies objects and arrays. Scalars are returned as is.
func Clone(node any) any {
	switch n := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, v := range n {
			out[k] = Clone(v)
		}
		return out
	case []any:
		out := make([]any, len(n))
		for i, v := range n {
			out[i] = Clone(v)
		}
		return out
	default:
		return node
	}
}

// IsEmpty reports whether node holds no data: nil, an empty object or an
// empty array.
func IsEmpty(node any) bool {
	switch n := node.(type) {
	case nil:
		return true
	case map[string]any:
		return len(n) == 0
	case []any:
		return len(n) == 0
	default:
		return false
	}
}
