package node

import (
	"context"
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
)

type visitKey struct {
	node  *UINode
	state string
}

// resolver evaluates state declarations. One resolver serves one renewal and
// remembers the (node, state) pairs being evaluated: re-entering one of them
// is a cycle and resolves to false.
type resolver struct {
	env      *Env
	visiting map[visitKey]bool
}

func newResolver(env *Env) *resolver {
	return &resolver{env: env, visiting: make(map[visitKey]bool)}
}

// resolve returns the value of state name on n. A non-object declaration is
// a literal value; an undeclared state is nil.
func (r *resolver) resolve(ctx context.Context, n *UINode, name string) (any, error) {
	raw, declared := n.schema.States()[name]
	if !declared {
		return nil, nil
	}
	decl, isDecl, err := domain.DecodeStateDecl(raw)
	if !isDecl {
		return raw, nil
	}
	if err != nil {
		r.env.Logger.Warn("invalid state declaration", "node_id", n.id, "state", name, "err", err)
		return false, nil
	}

	key := visitKey{node: n, state: name}
	if r.visiting[key] {
		r.env.Logger.Debug("state dependency cycle", "node_id", n.id, "state", name)
		return false, nil
	}
	r.visiting[key] = true
	defer delete(r.visiting, key)

	results := make([]bool, 0, len(decl.Deps))
	for _, dep := range decl.Deps {
		ok, err := r.evalDep(ctx, n, dep)
		if err != nil {
			return false, err
		}
		results = append(results, ok)
	}
	return combine(decl.Combine(), results), nil
}

func (r *resolver) evalDep(ctx context.Context, n *UINode, dep domain.Dependency) (bool, error) {
	targets, err := n.SearchNodes(dep.Selector)
	if err != nil {
		return false, err
	}
	if len(targets) == 0 {
		return false, nil
	}

	rule := dep.Rule()
	for _, target := range targets {
		if dep.HasData {
			var actual any
			if target.dataNode != nil {
				actual = target.dataNode.Data()
			}
			ok, err := compareData(dep.Data, actual, rule)
			if err != nil {
				return false, fmt.Errorf("node %s: %w", target.id, err)
			}
			if !ok {
				return false, nil
			}
		}

		for stateName, expected := range dep.State {
			actual, err := r.stateOf(ctx, target, stateName)
			if err != nil {
				return false, err
			}
			ok, err := compareRule(expected, actual, rule)
			if err != nil {
				return false, fmt.Errorf("node %s: %w", target.id, err)
			}
			if !ok {
				return false, nil
			}
		}
	}
	return true, nil
}

// stateOf reads a computed state, resolving it on the spot when undefined.
func (r *resolver) stateOf(ctx context.Context, target *UINode, name string) (any, error) {
	if target.stateNode != nil {
		if v, ok := target.stateNode.Get(name); ok {
			return v, nil
		}
	}
	return r.resolve(ctx, target, name)
}

func combine(strategy domain.Strategy, results []bool) bool {
	if len(results) == 0 {
		return true
	}
	if strategy == domain.StrategyOr {
		for _, ok := range results {
			if ok {
				return true
			}
		}
		return false
	}
	for _, ok := range results {
		if !ok {
			return false
		}
	}
	return true
}

// ResolveState evaluates one state declaration of n without storing it.
func ResolveState(ctx context.Context, n *UINode, name string) (any, error) {
	return newResolver(n.env).resolve(ctx, n, name)
}
