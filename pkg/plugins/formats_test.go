package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatChecks(t *testing.T) {
	tests := []struct {
		format string
		value  any
		meta   map[string]any
		want   bool
	}{
		{"number", "42", nil, true},
		{"number", 42.0, map[string]any{"range": "1-65535"}, true},
		{"number", "70000", map[string]any{"range": "1-65535"}, false},
		{"number", "4.2", nil, false},
		{"string", "b", map[string]any{"allowed": []any{map[string]any{"value": "a"}, map[string]any{"value": "b"}}}, true},
		{"string", "z", map[string]any{"allowed": []any{"a", "b"}}, false},
		{"string", "free", nil, true},
		{"stringRlx", "héllo", map[string]any{"range": "1-5"}, true},
		{"stringRlx", "", map[string]any{"range": "1-5"}, false},
		{"ipv4Address", "10.0.0.1", nil, true},
		{"ipv4Address", "::1", nil, false},
		{"ipv6Address", "fe80::1", nil, true},
		{"ipv6Address", "10.0.0.1", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			check, ok := formatChecks[tt.format]
			if !assert.True(t, ok) {
				return
			}
			v := check(tt.value, tt.meta)
			assert.Equal(t, tt.want, v.Status, "value %v", tt.value)
			if !v.Status {
				assert.NotEmpty(t, v.Code)
			}
		})
	}
}
