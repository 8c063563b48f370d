package node

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/google/go-cmp/cmp"
)

// compareRule applies one comparison rule. Only an invalid regexp pattern is
// reported as an error.
func compareRule(expected, actual any, rule domain.CompareRule) (bool, error) {
	switch rule {
	case domain.RuleNot:
		return !equal(expected, actual), nil
	case domain.RuleOr:
		return truthy(expected) || truthy(actual), nil
	case domain.RuleEmpty:
		return isEmpty(actual), nil
	case domain.RuleNotEmpty:
		return !isEmpty(actual), nil
	case domain.RuleRegexp:
		pattern, ok := expected.(string)
		if !ok {
			return false, fmt.Errorf("regexp rule needs a string pattern, got %T", expected)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("invalid regexp %q: %w", pattern, err)
		}
		if actual == nil {
			return false, nil
		}
		return re.MatchString(fmt.Sprint(actual)), nil
	default:
		return equal(expected, actual), nil
	}
}

// compareData compares bound data. When both sides are objects the rule is
// applied field by field across the expected keys and the results are ANDed.
func compareData(expected, actual any, rule domain.CompareRule) (bool, error) {
	exp, expObj := domain.AsSchema(expected)
	act, actObj := domain.AsSchema(actual)
	if !expObj || !actObj {
		return compareRule(expected, actual, rule)
	}
	for k, v := range exp {
		ok, err := compareRule(v, act[k], rule)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func equal(a, b any) bool {
	return cmp.Equal(normalize(a), normalize(b))
}

// normalize maps JSON-like values onto one representation: numbers become
// float64 and objects become map[string]any.
func normalize(v any) any {
	switch t := v.(type) {
	case nil, string, bool:
		return t
	case domain.Schema:
		return normalize(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = val
		}
		return out
	}
	if f, ok := toFloat(v); ok {
		return f
	}
	return fmt.Sprintf("%#v", v)
}

func toFloat(v any) (float64, bool) {
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		return f, err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	}
	if f, ok := toFloat(v); ok {
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

// isEmpty treats nil, "" and empty collections as empty.
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
