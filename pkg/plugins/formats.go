package plugins

import (
	"context"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/node"
	"github.com/iancoleman/strcase"
)

// MetaKey is the data schema field carrying validation metadata:
//
//	"cm-meta": { "format": "number", "range": "1-65535" }
const MetaKey = "cm-meta"

type formatCheck func(value any, meta map[string]any) domain.Verdict

var formatChecks = map[string]formatCheck{
	"number":      checkNumber,
	"string":      checkAllowed,
	"stringRlx":   checkLength,
	"ipv4Address": checkIP(4),
	"ipv6Address": checkIP(6),
}

// Formats validates values against the "format" declared in the binding's
// schema metadata. Bindings without a known format get no verdict.
func Formats() domain.Plugin {
	return domain.Plugin{
		Type:   domain.PluginDataUpdateCould,
		Kind:   domain.KindData,
		Name:   NameFormatValidate,
		Weight: 100,
		Callback: func(ctx context.Context, target any, params domain.Params) (any, error) {
			d, err := dataNode(target)
			if err != nil {
				return nil, err
			}
			raw, _ := d.SchemaAt(MetaKey)
			meta, ok := domain.AsSchema(raw)
			if !ok {
				return nil, nil
			}
			format, _ := meta["format"].(string)
			check, ok := formatChecks[strcase.ToLowerCamel(format)]
			if !ok {
				return nil, nil
			}
			value, ok := params[node.ParamValue]
			if !ok {
				value = d.Data()
			}
			v := check(value, meta)
			return v, nil
		},
	}
}

func verdict(ok bool, code string) domain.Verdict {
	if ok {
		return domain.Verdict{Status: true}
	}
	return domain.Verdict{Status: false, Code: code}
}

// parseRange reads "min-max"; a missing bound is unlimited.
func parseRange(meta map[string]any) (lo, hi int64, hasLo, hasHi bool) {
	r, _ := meta["range"].(string)
	if r == "" {
		return 0, 0, false, false
	}
	minStr, maxStr, _ := strings.Cut(r, "-")
	if v, err := strconv.ParseInt(strings.TrimSpace(minStr), 10, 64); err == nil {
		lo, hasLo = v, true
	}
	if v, err := strconv.ParseInt(strings.TrimSpace(maxStr), 10, 64); err == nil {
		hi, hasHi = v, true
	}
	return lo, hi, hasLo, hasHi
}

func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return "", false
	}
}

func checkNumber(value any, meta map[string]any) domain.Verdict {
	const code = "Number not correct"
	s, ok := asString(value)
	if !ok {
		return verdict(false, code)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return verdict(false, code)
	}
	lo, hi, hasLo, hasHi := parseRange(meta)
	if (hasLo && n < lo) || (hasHi && n > hi) {
		return verdict(false, code)
	}
	return verdict(true, "")
}

func checkAllowed(value any, meta map[string]any) domain.Verdict {
	allowed, ok := meta["allowed"].([]any)
	if !ok {
		return verdict(true, "")
	}
	s, _ := asString(value)
	for _, opt := range allowed {
		candidate := opt
		if obj, ok := domain.AsSchema(opt); ok {
			candidate = obj["value"]
		}
		if c, ok := asString(candidate); ok && c == s {
			return verdict(true, "")
		}
	}
	return verdict(false, "Value is not in range")
}

func checkLength(value any, meta map[string]any) domain.Verdict {
	s, ok := asString(value)
	if !ok {
		return verdict(false, "Value is not in range")
	}
	n := int64(utf8.RuneCountInString(s))
	lo, hi, hasLo, hasHi := parseRange(meta)
	if (hasLo && n < lo) || (hasHi && n > hi) {
		return verdict(false, "Value is not in range")
	}
	return verdict(true, "")
}

func checkIP(version int) formatCheck {
	code := fmt.Sprintf("IPv%d Address not correct", version)
	return func(value any, meta map[string]any) domain.Verdict {
		s, ok := value.(string)
		if !ok {
			return verdict(false, code)
		}
		addr, err := netip.ParseAddr(s)
		if err != nil || addr.Zone() != "" {
			return verdict(false, code)
		}
		if version == 4 {
			return verdict(addr.Is4(), code)
		}
		return verdict(addr.Is6(), code)
	}
}
