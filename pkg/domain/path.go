package domain

import (
	"strconv"
	"strings"
)

// Lookup walks a normalized dot path ("a.b.0.c") through nested maps and
// slices. An empty path returns root itself.
func Lookup(root any, path string) (any, bool) {
	if path == "" {
		return root, root != nil
	}
	cur := root
	for _, seg := range strings.Split(path, ".") {
		switch c := cur.(type) {
		case map[string]any:
			v, ok := c[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case Schema:
			v, ok := c[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(c) {
				return nil, false
			}
			cur = c[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Assign stores value at path inside root, creating intermediate maps as
// needed, and returns the (possibly new) root. Array elements are addressed by
// index; existing scalars on the way are replaced by maps.
func Assign(root map[string]any, path string, value any) map[string]any {
	if root == nil {
		root = make(map[string]any)
	}
	if path == "" {
		if m, ok := value.(map[string]any); ok {
			return m
		}
		return root
	}
	assignAt(root, strings.Split(path, "."), value)
	return root
}

func assignAt(cur any, segs []string, value any) any {
	if len(segs) == 0 {
		return value
	}
	seg, rest := segs[0], segs[1:]
	switch c := cur.(type) {
	case map[string]any:
		c[seg] = assignAt(c[seg], rest, value)
		return c
	case Schema:
		c[seg] = assignAt(c[seg], rest, value)
		return c
	case []any:
		if idx, err := strconv.Atoi(seg); err == nil && idx >= 0 && idx < len(c) {
			c[idx] = assignAt(c[idx], rest, value)
			return c
		}
	}
	return map[string]any{seg: assignAt(nil, rest, value)}
}

// Remove deletes the value at path. Missing paths are ignored; a trailing
// array index is left in place.
func Remove(root map[string]any, path string) {
	if root == nil || path == "" {
		return
	}
	segs := strings.Split(path, ".")
	parent, ok := Lookup(root, strings.Join(segs[:len(segs)-1], "."))
	if len(segs) == 1 {
		parent, ok = root, true
	}
	if !ok {
		return
	}
	switch p := parent.(type) {
	case map[string]any:
		delete(p, segs[len(segs)-1])
	case Schema:
		delete(p, segs[len(segs)-1])
	}
}
