package node

import (
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// Index is the root-scoped lookup table behind SearchNodes. It keeps the
// nodes of one root layout in tree order plus a value map for every indexed
// schema field, so selectors on those fields avoid a full scan.
type Index struct {
	fields []string

	mu      sync.RWMutex
	nodes   []*UINode
	byField map[string]map[any][]*UINode
}

func newIndex(fields []string) *Index {
	idx := &Index{
		fields:  fields,
		byField: make(map[string]map[any][]*UINode, len(fields)),
	}
	for _, f := range fields {
		idx.byField[f] = make(map[any][]*UINode)
	}
	return idx
}

// Nodes returns the indexed nodes in order.
func (idx *Index) Nodes() []*UINode {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return slices.Clone(idx.nodes)
}

// Len reports the number of indexed nodes.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.nodes)
}

func (idx *Index) add(n *UINode) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if slices.Contains(idx.nodes, n) {
		idx.unlinkFields(n)
	} else {
		idx.nodes = append(idx.nodes, n)
	}
	for _, f := range idx.fields {
		key, ok := indexKey(n.schema[f])
		if !ok {
			continue
		}
		idx.byField[f][key] = append(idx.byField[f][key], n)
	}
}

func (idx *Index) remove(n *UINode) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.nodes = slices.DeleteFunc(idx.nodes, func(x *UINode) bool { return x == n })
	idx.unlinkFields(n)
}

func (idx *Index) unlinkFields(n *UINode) {
	for f, values := range idx.byField {
		for key, list := range values {
			list = slices.DeleteFunc(list, func(x *UINode) bool { return x == n })
			if len(list) == 0 {
				delete(values, key)
			} else {
				values[key] = list
			}
		}
		idx.byField[f] = values
	}
}

// Search returns the nodes whose schema holds every selector entry.
// The selector must have been validated.
func (idx *Index) Search(selector map[string]any) []*UINode {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	candidates := idx.nodes
	for _, f := range idx.fields {
		v, ok := selector[f]
		if !ok {
			continue
		}
		key, ok := indexKey(v)
		if !ok {
			continue
		}
		candidates = idx.byField[f][key]
		break
	}

	var out []*UINode
	for _, n := range candidates {
		if matches(n.schema, selector) {
			out = append(out, n)
		}
	}
	return out
}

func matches(schema domain.Schema, selector map[string]any) bool {
	for k, want := range selector {
		got, ok := schema[k]
		if !ok {
			if want != nil {
				return false
			}
			continue
		}
		gk, gok := indexKey(got)
		wk, wok := indexKey(want)
		if !gok || !wok || gk != wk {
			return false
		}
	}
	return true
}

// indexKey normalizes a primitive so that 1, int64(1) and 1.0 share a key.
// Non-primitive values have no key.
func indexKey(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case string, bool:
		return t, true
	default:
		if f, ok := toFloat(v); ok {
			return f, true
		}
		return nil, false
	}
}

// ValidateSelector rejects empty selectors and non-primitive values.
func ValidateSelector(selector map[string]any) error {
	if len(selector) == 0 {
		return fmt.Errorf("%w: empty selector", domain.ErrMalformedSelector)
	}
	for k, v := range selector {
		if _, ok := indexKey(v); !ok {
			return fmt.Errorf("%w: field %q holds a %T, want a primitive", domain.ErrMalformedSelector, k, v)
		}
	}
	return nil
}
