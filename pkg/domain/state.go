package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Strategy combines the per-dependency results of a state declaration.
type Strategy string

const (
	StrategyAnd Strategy = "and"
	StrategyOr  Strategy = "or"
)

// CompareRule selects how an expected value is compared to an actual one.
type CompareRule string

const (
	RuleIs       CompareRule = "is"
	RuleNot      CompareRule = "not"
	RuleOr       CompareRule = "or"
	RuleEmpty    CompareRule = "empty"
	RuleNotEmpty CompareRule = "notempty"
	RuleRegexp   CompareRule = "regexp"
)

// Dependency is one entry of a state declaration's deps list.
type Dependency struct {
	Selector    map[string]any `mapstructure:"selector"`
	Data        any            `mapstructure:"data"`
	State       map[string]any `mapstructure:"state"`
	CompareRule CompareRule    `mapstructure:"comparerule"`

	// HasData distinguishes "data": null from an absent key.
	HasData bool `mapstructure:"-"`
}

// Rule returns the compare rule, defaulting to "is".
func (d Dependency) Rule() CompareRule {
	if d.CompareRule == "" {
		return RuleIs
	}
	return d.CompareRule
}

// StateDecl is the declaration found under schema.state.<name>:
//
//	{ "strategy": "and"|"or", "deps": [ { "selector": {...}, "data": ..., "state": {...}, "comparerule": "is" } ] }
type StateDecl struct {
	Strategy Strategy     `mapstructure:"strategy"`
	Deps     []Dependency `mapstructure:"deps"`
}

// Combine returns the strategy, defaulting to "and".
func (d StateDecl) Combine() Strategy {
	if d.Strategy == "" {
		return StrategyAnd
	}
	return d.Strategy
}

// DecodeStateDecl decodes a raw declaration. ok is false when raw is not an
// object, in which case the declaration is a literal state value.
func DecodeStateDecl(raw any) (decl StateDecl, ok bool, err error) {
	obj, isObj := AsSchema(raw)
	if !isObj {
		return StateDecl{}, false, nil
	}

	if err := mapstructure.Decode(map[string]any(obj), &decl); err != nil {
		return StateDecl{}, true, fmt.Errorf("%w: %v", ErrInvalidStateDecl, err)
	}

	switch decl.Strategy {
	case "", StrategyAnd, StrategyOr:
	default:
		return StateDecl{}, true, fmt.Errorf("%w: unknown strategy %q", ErrInvalidStateDecl, decl.Strategy)
	}

	// mapstructure cannot tell an absent "data" from a null one.
	if rawDeps, ok := obj["deps"].([]any); ok {
		for i := range decl.Deps {
			if i >= len(rawDeps) {
				break
			}
			if dep, ok := AsSchema(rawDeps[i]); ok {
				_, decl.Deps[i].HasData = dep["data"]
			}
		}
	}
	return decl, true, nil
}
