package domain_test

import (
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_Accessors(t *testing.T) {
	s := domain.Schema{
		"id":         "root",
		"datasource": map[string]any{"source": "user:name", "schema": "user:profile"},
		"state":      map[string]any{"visible": true},
		"children":   []any{map[string]any{"id": "a"}},
		"$children":  []any{map[string]any{"id": "row"}},
	}

	assert.Equal(t, "root", s.ID())

	ds, ok := s.Datasource()
	require.True(t, ok)
	assert.Equal(t, "user:name", ds.Source)
	assert.Equal(t, "user:profile", ds.SchemaLocator())

	tpl, ok := s.RowTemplate()
	require.True(t, ok)
	assert.Len(t, tpl, 1)
	assert.Len(t, s.Children(), 1)
	assert.Equal(t, true, s.States()["visible"])

	v, ok := s.Get("children.0.id")
	require.True(t, ok)
	assert.Equal(t, "a", v)

	t.Run("short datasource form", func(t *testing.T) {
		ds, ok := domain.Schema{"datasource": "d1"}.Datasource()
		require.True(t, ok)
		assert.Equal(t, "d1", ds.SchemaLocator())

		_, ok = domain.Schema{"datasource": ""}.Datasource()
		assert.False(t, ok)
	})
}

func TestSchema_CloneIsDeep(t *testing.T) {
	orig := domain.Schema{"children": []any{map[string]any{"id": "a"}}}
	clone := orig.Clone()

	clone["children"].([]any)[0].(map[string]any)["id"] = "changed"
	assert.Equal(t, "a", orig["children"].([]any)[0].(map[string]any)["id"])
}

func TestPath_AssignLookupRemove(t *testing.T) {
	root := domain.Assign(nil, "a.b.c", 1)
	v, ok := domain.Lookup(root, "a.b.c")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	root["list"] = []any{map[string]any{"name": "x"}}
	domain.Assign(root, "list.0.name", "y")
	v, _ = domain.Lookup(root, "list.0.name")
	assert.Equal(t, "y", v)

	domain.Assign(root, "a.b", "scalar")
	domain.Assign(root, "a.b.deep", true)
	v, _ = domain.Lookup(root, "a.b.deep")
	assert.Equal(t, true, v)

	domain.Remove(root, "a.b")
	_, ok = domain.Lookup(root, "a.b")
	assert.False(t, ok)

	_, ok = domain.Lookup(root, "list.7")
	assert.False(t, ok)
}

func TestDecodeStateDecl(t *testing.T) {
	t.Run("object", func(t *testing.T) {
		decl, ok, err := domain.DecodeStateDecl(map[string]any{
			"strategy": "or",
			"deps": []any{
				map[string]any{"selector": map[string]any{"id": "c2"}, "data": nil},
				map[string]any{"selector": map[string]any{"id": "c3"}, "state": map[string]any{"visible": true}, "comparerule": "not"},
			},
		})
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, domain.StrategyOr, decl.Combine())
		require.Len(t, decl.Deps, 2)
		assert.True(t, decl.Deps[0].HasData)
		assert.Equal(t, domain.RuleIs, decl.Deps[0].Rule())
		assert.False(t, decl.Deps[1].HasData)
		assert.Equal(t, domain.RuleNot, decl.Deps[1].Rule())
		assert.Equal(t, true, decl.Deps[1].State["visible"])
	})

	t.Run("literal", func(t *testing.T) {
		_, ok, err := domain.DecodeStateDecl(false)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("default strategy", func(t *testing.T) {
		decl, _, err := domain.DecodeStateDecl(domain.Schema{"deps": []any{}})
		require.NoError(t, err)
		assert.Equal(t, domain.StrategyAnd, decl.Combine())
	})

	t.Run("bad strategy", func(t *testing.T) {
		_, _, err := domain.DecodeStateDecl(map[string]any{"strategy": "xor"})
		assert.ErrorIs(t, err, domain.ErrInvalidStateDecl)
	})

	t.Run("bad deps", func(t *testing.T) {
		_, _, err := domain.DecodeStateDecl(map[string]any{"deps": "nope"})
		assert.ErrorIs(t, err, domain.ErrInvalidStateDecl)
	})
}

func TestPluginType(t *testing.T) {
	assert.Equal(t, "data", domain.PluginDataUpdateCould.Domain())
	assert.True(t, domain.PluginDataCommitCould.IsValidation())
	assert.False(t, domain.PluginDataCommit.IsValidation())

	k, ok := domain.KindOf(domain.PluginUIParserEvent)
	require.True(t, ok)
	assert.Equal(t, domain.KindUI, k)

	_, ok = domain.KindOf("net.request")
	assert.False(t, ok)
}

func TestAsVerdict(t *testing.T) {
	v, ok := domain.AsVerdict(map[string]any{"status": false, "code": "bad"})
	require.True(t, ok)
	assert.Equal(t, domain.Verdict{Status: false, Code: "bad"}, v)

	v, ok = domain.AsVerdict(true)
	require.True(t, ok)
	assert.True(t, v.Status)

	_, ok = domain.AsVerdict(nil)
	assert.False(t, ok)

	info := domain.FromVerdict(domain.Verdict{Status: false, Code: "bad"})
	assert.True(t, info.Failed())
	assert.False(t, domain.ErrorInfo{}.Failed())
	assert.True(t, domain.ErrorInfo{}.IsZero())
}
