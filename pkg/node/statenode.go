package node

import (
	"context"
	"maps"
)

// StateNode holds the derived states of a UI node. It is recomputed as a whole
// on every Renew; there is no partial invalidation.
type StateNode struct {
	owner  *UINode
	states map[string]any
}

func newStateNode(owner *UINode) *StateNode {
	return &StateNode{owner: owner, states: map[string]any{}}
}

// UINode returns the owning node.
func (s *StateNode) UINode() *UINode { return s.owner }

// Get returns one state and whether it is defined.
func (s *StateNode) Get(name string) (any, bool) {
	v, ok := s.states[name]
	return v, ok
}

// States returns a copy of every state.
func (s *StateNode) States() map[string]any {
	return maps.Clone(s.states)
}

func (s *StateNode) reset() {
	s.states = map[string]any{}
}

// Renew evaluates every declaration under the owner's schema "state" key.
// States are undefined while being recomputed, so dependency chains that loop
// back into this node resolve through the resolver's cycle guard.
func (s *StateNode) Renew(ctx context.Context) (map[string]any, error) {
	s.states = map[string]any{}
	r := newResolver(s.owner.env)
	for name := range s.owner.schema.States() {
		v, err := r.resolve(ctx, s.owner, name)
		if err != nil {
			return s.States(), err
		}
		s.states[name] = v
	}
	return s.States(), nil
}
