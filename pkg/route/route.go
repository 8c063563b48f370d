// Package route parses datasource locators.
//
// A locator such as "catalog.items:0.name" names a data domain ("catalog.items")
// and an access route inside the pool ("catalog.items.0.name"). The markers
// '^' and '#' delimit the start and the end of the route.
package route

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"
)

// Dummy is the domain of an empty locator.
const Dummy = "$dummy"

var (
	multiDot   = regexp.MustCompile(`\.{2,}`)
	paramBlock = regexp.MustCompile(`\{[\w\-]*\}`)
)

func collapse(s string) string {
	return strings.Trim(multiDot.ReplaceAllString(s, "."), ".")
}

// AccessRoute returns the normalized dot path of a locator:
//
//	"a.b.c:d"   -> "a.b.c.d"
//	"a.b^c:d"   -> "c.d"
//	"a.b.c:#d"  -> "a.b.c"
//	"#a.b.c:d"  -> ""
//
// A non-empty prefix is prepended with a '.' separator.
func AccessRoute(src, prefix string) string {
	s := strings.ReplaceAll(src, ":", ".")
	if slices := strings.Split(s, "^"); len(slices) > 1 {
		s = strings.Join(slices[1:], ".")
	}
	s, _, _ = strings.Cut(s, "#")
	s = collapse(s)

	if prefix == "" {
		return s
	}
	if s == "" {
		return prefix
	}
	return prefix + "." + s
}

// DomainName returns the data domain of a locator. When a ':' is present the
// domain is everything before it; otherwise it is the first segment.
//
//	"a.b.c:d"  -> "a.b.c"  ("a_b_c" with snake)
//	"a.b.c.d"  -> "a"
//	""         -> "$dummy"
func DomainName(src string, snake bool) string {
	if src == "" {
		return Dummy
	}
	s := strings.ReplaceAll(src, "^", ".")
	s = strings.ReplaceAll(s, "#", ".")
	if head, _, found := strings.Cut(s, ":"); found {
		s = collapse(head)
	} else {
		s = collapse(s)
		s, _, _ = strings.Cut(s, ".")
	}
	if snake {
		return strcase.ToSnake(s)
	}
	return s
}

// SchemaName returns the file name of a domain's root data schema.
func SchemaName(src string) string {
	return DomainName(src, false) + ".json"
}

// ReplaceParam substitutes "{key}" blocks with values from params. Strings and
// finite numbers are substituted; any other value, or a missing key, yields def.
func ReplaceParam(str string, params map[string]any, def string) string {
	return paramBlock.ReplaceAllStringFunc(str, func(block string) string {
		key := block[1 : len(block)-1]
		if key == "" {
			return block
		}
		if v, ok := formatParam(params[key]); ok {
			return v
		}
		return def
	})
}

func formatParam(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		if t != t || t > 1e308 || t < -1e308 {
			return "", false
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case fmt.Stringer:
		return t.String(), true
	default:
		return "", false
	}
}
