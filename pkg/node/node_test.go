package node_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/node"
	"github.com/aretw0/arbor/pkg/plugins"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnv(t *testing.T, docs map[string]any, opts ...node.EnvOption) (*node.Env, *memory.Fetcher) {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Register(plugins.Defaults(nil)...))

	fetcher := memory.NewFetcher(docs)
	all := append([]node.EnvOption{node.WithFetcher(fetcher)}, opts...)
	return node.NewEnv(reg, all...), fetcher
}

func seededPool(t *testing.T, data map[string]any) *memory.Pool {
	t.Helper()
	pool := memory.NewPool()
	for k, v := range data {
		require.NoError(t, pool.Set(context.Background(), k, v))
	}
	return pool
}

func TestLoadLayout_RoundTrip(t *testing.T) {
	ctx := context.Background()
	env, _ := newEnv(t, nil)

	input := map[string]any{
		"id":    "root",
		"title": "Profile",
		"children": []any{
			map[string]any{"id": "a", "component": "input"},
			[]any{
				map[string]any{"id": "b"},
				map[string]any{"id": "c", "children": []any{map[string]any{"id": "d"}}},
			},
		},
	}
	want := domain.DeepCopy(input)

	root := env.NewUINode("root")
	got, err := root.LoadLayout(ctx, input)
	require.NoError(t, err)

	if diff := cmp.Diff(want, map[string]any(got)); diff != "" {
		t.Errorf("live schema mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, input); diff != "" {
		t.Errorf("input was mutated (-want +got):\n%s", diff)
	}

	require.Len(t, root.Children(), 2)
	assert.False(t, root.Children()[0].IsRow())
	assert.True(t, root.Children()[1].IsRow())
	assert.Len(t, root.Children()[1].Row, 2)
	assert.NotEmpty(t, root.ID())
	assert.Equal(t, 5, env.Index("root").Len())

	c, ok := root.GetChild(1, 1, 0)
	require.True(t, ok)
	assert.Equal(t, "d", c.Node.Schema().ID())
	assert.Same(t, root, c.Node.Root())

	n, ok := root.GetNode("1.0")
	require.True(t, ok)
	assert.Equal(t, "b", n.Schema().ID())

	_, ok = root.GetNode("1")
	assert.False(t, ok, "a row is not a node")
	_, ok = root.GetChild(9)
	assert.False(t, ok)
}

func TestLoadLayout_KeepsSchemaTypedChildren(t *testing.T) {
	ctx := context.Background()
	env, _ := newEnv(t, nil)

	input := domain.Schema{
		"id": "root",
		"children": []any{
			domain.Schema{"id": "a"},
			map[string]any{"id": "b"},
			[]any{domain.Schema{"id": "c", "children": []any{domain.Schema{"id": "d"}}}},
		},
	}
	want := domain.DeepCopy(input)

	got, err := env.NewUINode("typed").LoadLayout(ctx, input)
	require.NoError(t, err)

	if diff := cmp.Diff(want, domain.Schema(got)); diff != "" {
		t.Errorf("live schema mismatch (-want +got):\n%s", diff)
	}
	children := got.Children()
	assert.IsType(t, domain.Schema{}, children[0])
	assert.IsType(t, map[string]any{}, children[1])
	assert.IsType(t, domain.Schema{}, children[2].([]any)[0])
}

func TestLoadLayout_RunsUnflaggedParsers(t *testing.T) {
	ctx := context.Background()
	reg := registry.New()
	require.NoError(t, reg.Register(plugins.Defaults(nil)...))

	var ran []string
	require.NoError(t, reg.Register(domain.Plugin{
		Type: domain.PluginUIParser, Kind: domain.KindUI, Name: "mark",
		Callback: func(_ context.Context, target any, _ domain.Params) (any, error) {
			ran = append(ran, target.(*node.UINode).Schema().ID())
			return nil, nil
		},
	}))
	env := node.NewEnv(reg)

	root := env.NewUINode("p")
	_, err := root.LoadLayout(ctx, map[string]any{"id": "p", "children": []any{map[string]any{"id": "c"}}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p", "c"}, ran)

	ran = nil
	root.Parse(ctx)
	assert.Equal(t, []string{"p"}, ran)
}

func TestLoadLayout_Locator(t *testing.T) {
	ctx := context.Background()
	env, fetcher := newEnv(t, map[string]any{
		"schema/ui/form.json": map[string]any{"id": "form", "children": []any{map[string]any{"id": "field"}}},
	})

	first := env.NewUINode("")
	schema, err := first.LoadLayout(ctx, "form.json")
	require.NoError(t, err)
	assert.Equal(t, "form", schema.ID())
	assert.Equal(t, "form.json", first.RootName())

	second := env.NewUINode("other")
	_, err = second.LoadLayout(ctx, "form.json")
	require.NoError(t, err)

	assert.Equal(t, 1, fetcher.Calls("schema/ui/form.json"), "second load must hit the cache")
	assert.NotEqual(t, first.ID(), second.ID())

	t.Run("cached copies are independent", func(t *testing.T) {
		first.Schema()["id"] = "mutated"
		assert.Equal(t, "form", second.Schema().ID())
	})
}

func TestLoadLayout_RemoteFailureKeepsSchema(t *testing.T) {
	ctx := context.Background()
	env, _ := newEnv(t, nil)

	n := env.NewUINode("page")
	_, err := n.LoadLayout(ctx, map[string]any{"id": "prev"})
	require.NoError(t, err)

	schema, err := n.LoadLayout(ctx, "missing.json")
	require.NoError(t, err, "load faults are data, not errors")
	assert.Equal(t, "prev", schema.ID())
	assert.Equal(t, domain.ErrorInfo{Status: 400, Code: "Error loading from missing.json"}, n.ErrorInfo())

	_, err = n.LoadLayout(ctx, 42)
	assert.Error(t, err)
}

func TestLoadLayout_RowTemplate(t *testing.T) {
	ctx := context.Background()
	rows := []any{
		map[string]any{"name": "eth0"},
		map[string]any{"name": "eth1"},
		map[string]any{"name": "eth2"},
	}
	env, _ := newEnv(t, nil, node.WithPool(seededPool(t, map[string]any{"ifaces": rows})))

	n := env.NewUINode("table")
	schema, err := n.LoadLayout(ctx, map[string]any{
		"id":         "table",
		"datasource": "ifaces",
		"$children": []any{
			map[string]any{"id": "name-$", "datasource": "ifaces:$.name", "label": "Row $"},
			map[string]any{"id": "static-$"},
		},
	})
	require.NoError(t, err)
	assert.True(t, n.IsLiveChildren())

	children := schema.Children()
	require.Len(t, children, 3)
	for i, group := range children {
		row := group.([]any)
		require.Len(t, row, 2)

		bound := row[0].(map[string]any)
		assert.Equal(t, i, bound["_index"])
		assert.Equal(t, "ifaces:"+string(rune('0'+i))+".name", bound["datasource"])
		assert.Equal(t, "name-"+string(rune('0'+i)), bound["id"])
		assert.Equal(t, "Row "+string(rune('0'+i)), bound["label"])

		unbound := row[1].(map[string]any)
		assert.Equal(t, "static-$", unbound["id"], "entries without datasource are cloned verbatim")
		assert.NotContains(t, unbound, "_index")
	}

	require.Len(t, n.Children(), 3)
	cell, ok := n.GetNode("2.0")
	require.True(t, ok)
	assert.Equal(t, "eth2", cell.DataNode().Data())

	t.Run("expand rows without nodes", func(t *testing.T) {
		out := node.ExpandRows([]any{map[string]any{"datasource": "x:$"}}, []any{1, 2})
		require.Len(t, out, 2)
		assert.Equal(t, "x:1", out[1].([]any)[0].(map[string]any)["datasource"])
	})
}

func TestDataNode_LoadData(t *testing.T) {
	ctx := context.Background()
	env, fetcher := newEnv(t, map[string]any{
		"schema/data/user.json": map[string]any{
			"definition": map[string]any{
				"user": map[string]any{
					"name": map[string]any{"type": "string"},
				},
			},
		},
		"mock-data/user.json": map[string]any{"name": "ada", "age": 36},
	})

	n := env.NewUINode("profile")
	_, err := n.LoadLayout(ctx, map[string]any{
		"id": "profile",
		"children": []any{
			map[string]any{"id": "name", "datasource": "user:name"},
			map[string]any{"id": "age", "datasource": "user:age"},
		},
	})
	require.NoError(t, err)

	name, _ := n.GetNode("0")
	d := name.DataNode()
	require.NotNil(t, d)
	assert.Equal(t, "ada", d.Data())
	assert.Equal(t, "user.name", d.Route())
	assert.Equal(t, "user", d.Domain())
	assert.Equal(t, map[string]any{"type": "string"}, d.Schema())
	assert.True(t, d.ErrorInfo().IsZero())

	age, _ := n.GetNode("1")
	assert.Equal(t, 36, age.DataNode().Data())

	assert.Equal(t, 1, fetcher.Calls("mock-data/user.json"), "the pool caches the domain document")
	assert.Equal(t, 1, fetcher.Calls("schema/data/user.json"))
}

type brokenFetcher struct{}

func (brokenFetcher) Get(ctx context.Context, locator string, params domain.Params) (any, error) {
	return nil, errors.New("connection refused")
}

func TestDataNode_LoadFault(t *testing.T) {
	ctx := context.Background()
	reg := registry.New()
	require.NoError(t, reg.Register(plugins.Defaults(nil)...))
	env := node.NewEnv(reg, node.WithFetcher(brokenFetcher{}))

	n := env.NewUINode("x")
	_, err := n.LoadLayout(ctx, map[string]any{
		"id":       "x",
		"children": []any{map[string]any{"id": "bound", "datasource": "remote:value"}, map[string]any{"id": "next"}},
	})
	require.NoError(t, err)

	bound, _ := n.GetNode("0")
	assert.Nil(t, bound.DataNode().Data())
	assert.Equal(t, 400, bound.DataNode().ErrorInfo().Status)

	next, ok := n.GetNode("1")
	require.True(t, ok, "siblings still materialize")
	assert.Equal(t, "next", next.Schema().ID())
}

func TestDataNode_Unresolved(t *testing.T) {
	ctx := context.Background()
	env, fetcher := newEnv(t, nil)

	n := env.NewUINode("p")
	_, err := n.LoadLayout(ctx, map[string]any{"id": "p", "datasource": "nosuch:field"})
	require.NoError(t, err)

	d := n.DataNode()
	assert.Nil(t, d.Data())
	assert.Equal(t, domain.ErrorInfo{Status: 404, Code: "Error loading from mock-data/nosuch.json"}, d.ErrorInfo())
	assert.True(t, d.ErrorInfo().Failed())
	assert.Equal(t, 1, fetcher.Calls("mock-data/nosuch.json"))

	t.Run("a missing data schema alone is not a fault", func(t *testing.T) {
		env, _ := newEnv(t, map[string]any{"mock-data/user.json": map[string]any{"name": "ada"}})
		n := env.NewUINode("u")
		_, err := n.LoadLayout(ctx, map[string]any{"id": "u", "datasource": "user:name"})
		require.NoError(t, err)
		assert.Equal(t, "ada", n.DataNode().Data())
		assert.True(t, n.DataNode().ErrorInfo().IsZero())
	})
}

func TestDataNode_RequestBeforeVeto(t *testing.T) {
	ctx := context.Background()
	reg := registry.New()
	require.NoError(t, reg.Register(plugins.Defaults(nil)...))
	require.NoError(t, reg.Register(domain.Plugin{
		Type: domain.PluginDataRequestBefore, Kind: domain.KindData, Name: "veto",
		Callback: func(context.Context, any, domain.Params) (any, error) { return false, nil },
	}))
	fetcher := memory.NewFetcher(map[string]any{"mock-data/user.json": map[string]any{"name": "ada"}})
	env := node.NewEnv(reg, node.WithFetcher(fetcher))

	n := env.NewUINode("x")
	_, err := n.LoadLayout(ctx, map[string]any{"id": "x", "datasource": "user:name"})
	require.NoError(t, err)
	assert.Nil(t, n.DataNode().Data())
	assert.Equal(t, 0, fetcher.Calls("mock-data/user.json"))
}

func TestDataNode_LocatorParams(t *testing.T) {
	ctx := context.Background()
	env, fetcher := newEnv(t, map[string]any{
		"mock-data/device7.json": map[string]any{"ip": "10.0.0.1"},
	})

	n := env.NewUINode("x")
	_, err := n.LoadLayout(ctx, map[string]any{
		"id":         "x",
		"datasource": "device{id}:ip",
		"params":     map[string]any{"id": 7},
	})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", n.DataNode().Data())
	assert.Equal(t, 1, fetcher.Calls("mock-data/device7.json"))
}

func TestDataNode_UpdateData(t *testing.T) {
	ctx := context.Background()
	env, _ := newEnv(t, map[string]any{
		"schema/data/net.json": map[string]any{
			"definition": map[string]any{
				"net": map[string]any{
					"gateway": map[string]any{"cm-meta": map[string]any{"format": "ipv4-address"}},
				},
			},
		},
		"mock-data/net.json": map[string]any{"gateway": "10.0.0.1"},
	})

	n := env.NewUINode("net")
	_, err := n.LoadLayout(ctx, map[string]any{"id": "gw", "datasource": "net:gateway"})
	require.NoError(t, err)
	d := n.DataNode()

	t.Run("rejected", func(t *testing.T) {
		stored, err := d.UpdateData(ctx, "not-an-ip")
		require.NoError(t, err)
		assert.False(t, stored)
		assert.True(t, d.ErrorInfo().Failed())
		assert.Equal(t, "IPv4 Address not correct", d.ErrorInfo().Code)
		assert.Equal(t, "10.0.0.1", d.Data())
	})

	t.Run("accepted", func(t *testing.T) {
		stored, err := d.UpdateData(ctx, "192.168.1.1")
		require.NoError(t, err)
		assert.True(t, stored)
		assert.False(t, d.ErrorInfo().Failed())

		pooled, err := env.Pool.Get(ctx, "net.gateway")
		require.NoError(t, err)
		assert.Equal(t, "192.168.1.1", pooled)
	})
}

func TestSearchNodes(t *testing.T) {
	ctx := context.Background()
	env, _ := newEnv(t, nil)

	root := env.NewUINode("search")
	_, err := root.LoadLayout(ctx, map[string]any{
		"id": "root",
		"children": []any{
			map[string]any{"id": "first", "datasource": "x", "order": 1},
			map[string]any{"id": "other", "datasource": "y"},
			[]any{map[string]any{"id": "second", "datasource": "x", "order": 2.0}},
		},
	})
	require.NoError(t, err)

	found, err := root.SearchNodes(map[string]any{"datasource": "x"})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "first", found[0].Schema().ID())
	assert.Equal(t, "second", found[1].Schema().ID())

	found, err = root.SearchNodes(map[string]any{"order": 2})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "second", found[0].Schema().ID())

	found, err = root.SearchNodes(map[string]any{"id": "first"}, "unknown-root")
	require.NoError(t, err)
	assert.Empty(t, found)

	_, err = root.SearchNodes(map[string]any{})
	assert.ErrorIs(t, err, domain.ErrMalformedSelector)
	_, err = root.SearchNodes(map[string]any{"datasource": map[string]any{"source": "x"}})
	assert.ErrorIs(t, err, domain.ErrMalformedSelector)
}

func TestStateResolution(t *testing.T) {
	ctx := context.Background()

	t.Run("end to end", func(t *testing.T) {
		env, _ := newEnv(t, nil, node.WithPool(seededPool(t, map[string]any{"d2": map[string]any{"k": 1}})))
		root := env.NewUINode("L")
		_, err := root.LoadLayout(ctx, map[string]any{
			"id":         "L",
			"datasource": "d1",
			"children": []any{
				map[string]any{"id": "c1", "state": map[string]any{
					"visible": map[string]any{"strategy": "and", "deps": []any{
						map[string]any{"selector": map[string]any{"id": "c2"}, "data": map[string]any{"k": 1}},
					}},
				}},
				map[string]any{"id": "c2", "datasource": "d2"},
			},
		})
		require.NoError(t, err)

		c1, _ := root.GetNode("0")
		c2, _ := root.GetNode("1")
		visible, ok := c1.StateNode().Get("visible")
		require.True(t, ok)
		assert.Equal(t, true, visible)

		stored, err := c2.DataNode().UpdateData(ctx, map[string]any{"k": 2})
		require.NoError(t, err)
		require.True(t, stored)

		states, err := c1.UpdateState(ctx)
		require.NoError(t, err)
		assert.Equal(t, false, states["visible"])
	})

	strategyLayout := func(strategy string) map[string]any {
		return map[string]any{
			"id": "root",
			"children": []any{
				map[string]any{"id": "on", "state": map[string]any{"enabled": true}},
				map[string]any{"id": "target", "state": map[string]any{
					"visible": map[string]any{"strategy": strategy, "deps": []any{
						map[string]any{"selector": map[string]any{"id": "on"}, "state": map[string]any{"enabled": true}},
						map[string]any{"selector": map[string]any{"id": "missing"}},
					}},
				}},
			},
		}
	}

	t.Run("and with one false dep", func(t *testing.T) {
		env, _ := newEnv(t, nil)
		root := env.NewUINode("and")
		_, err := root.LoadLayout(ctx, strategyLayout("and"))
		require.NoError(t, err)

		target, _ := root.GetNode("1")
		v, _ := target.StateNode().Get("visible")
		assert.Equal(t, false, v)
	})

	t.Run("or with one false dep", func(t *testing.T) {
		env, _ := newEnv(t, nil)
		root := env.NewUINode("or")
		_, err := root.LoadLayout(ctx, strategyLayout("or"))
		require.NoError(t, err)

		target, _ := root.GetNode("1")
		v, _ := target.StateNode().Get("visible")
		assert.Equal(t, true, v)
	})

	t.Run("transitive chain", func(t *testing.T) {
		env, _ := newEnv(t, nil, node.WithPool(seededPool(t, map[string]any{"flag": "yes"})))
		root := env.NewUINode("chain")
		_, err := root.LoadLayout(ctx, map[string]any{
			"id": "root",
			"children": []any{
				map[string]any{"id": "a", "state": map[string]any{
					"visible": map[string]any{"deps": []any{
						map[string]any{"selector": map[string]any{"id": "b"}, "state": map[string]any{"visible": true}},
					}},
				}},
				map[string]any{"id": "b", "state": map[string]any{
					"visible": map[string]any{"deps": []any{
						map[string]any{"selector": map[string]any{"id": "c"}, "data": "yes"},
					}},
				}},
				map[string]any{"id": "c", "datasource": "flag"},
			},
		})
		require.NoError(t, err)

		a, _ := root.GetNode("0")
		v, _ := a.StateNode().Get("visible")
		assert.Equal(t, true, v)
	})

	t.Run("cycle resolves to false", func(t *testing.T) {
		env, _ := newEnv(t, nil)
		root := env.NewUINode("cycle")
		_, err := root.LoadLayout(ctx, map[string]any{
			"id": "self",
			"state": map[string]any{
				"visible": map[string]any{"deps": []any{
					map[string]any{"selector": map[string]any{"id": "self"}, "state": map[string]any{"visible": true}},
				}},
			},
		})
		require.NoError(t, err)

		states, err := root.UpdateState(ctx)
		require.NoError(t, err)
		assert.Equal(t, false, states["visible"])

		v, err := node.ResolveState(ctx, root, "visible")
		require.NoError(t, err)
		assert.Equal(t, false, v)
	})

	t.Run("malformed selector is a hard fault", func(t *testing.T) {
		env, _ := newEnv(t, nil)
		root := env.NewUINode("bad")
		_, err := root.LoadLayout(ctx, map[string]any{
			"id": "bad",
			"state": map[string]any{
				"visible": map[string]any{"deps": []any{
					map[string]any{"selector": map[string]any{"id": []any{"x"}}},
				}},
			},
		})
		require.NoError(t, err)

		_, err = root.UpdateState(ctx)
		assert.ErrorIs(t, err, domain.ErrMalformedSelector)
	})

	t.Run("missing selector is a hard fault", func(t *testing.T) {
		env, _ := newEnv(t, nil)
		root := env.NewUINode("empty")
		_, err := root.LoadLayout(ctx, map[string]any{
			"id": "empty",
			"state": map[string]any{
				"visible": map[string]any{"deps": []any{map[string]any{"data": "x"}}},
			},
		})
		require.NoError(t, err)

		_, err = root.UpdateState(ctx)
		assert.ErrorIs(t, err, domain.ErrMalformedSelector)
	})
}

func TestReplaceAndClearLayout(t *testing.T) {
	ctx := context.Background()
	env, _ := newEnv(t, nil)

	n := env.NewUINode("swap")
	_, err := n.LoadLayout(ctx, map[string]any{"id": "old", "children": []any{map[string]any{"id": "old-child"}}})
	require.NoError(t, err)
	oldID := n.ID()

	_, err = n.ReplaceLayout(ctx, map[string]any{"id": "new"})
	require.NoError(t, err)
	assert.Equal(t, "new", n.Schema().ID())
	assert.Equal(t, "swap", n.RootName())
	assert.NotEqual(t, oldID, n.ID())
	assert.Empty(t, n.Children())

	found, err := n.SearchNodes(map[string]any{"id": "old-child"})
	require.NoError(t, err)
	assert.Empty(t, found, "replaced children leave the index")

	_, err = n.UpdateLayout(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", n.Schema().ID())

	n.ClearLayout()
	assert.Empty(t, n.Schema())
	assert.Empty(t, n.RootName())
	assert.Empty(t, n.ID())
}

func TestChangeEvent(t *testing.T) {
	ctx := context.Background()
	recorder := &memory.Recorder{}
	env, _ := newEnv(t, nil,
		node.WithPool(seededPool(t, map[string]any{"form": map[string]any{"name": "ada"}})),
		node.WithMessenger(recorder),
	)

	root := env.NewUINode("form")
	_, err := root.LoadLayout(ctx, map[string]any{
		"id": "form",
		"children": []any{
			map[string]any{"id": "name", "datasource": "form:name"},
			map[string]any{"id": "greeting", "state": map[string]any{
				"visible": map[string]any{"deps": []any{
					map[string]any{"selector": map[string]any{"id": "name"}, "data": "grace"},
				}},
			}},
		},
	})
	require.NoError(t, err)

	name, _ := root.GetNode("0")
	greeting, _ := root.GetNode("1")
	v, _ := greeting.StateNode().Get("visible")
	assert.Equal(t, false, v)

	require.NoError(t, name.HandleEvent(ctx, "change", map[string]any{"value": "grace"}))
	v, _ = greeting.StateNode().Get("visible")
	assert.Equal(t, true, v)

	msgs := recorder.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, name.ID(), msgs[0].NodeID)

	err = name.HandleEvent(ctx, "unknown", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestView(t *testing.T) {
	ctx := context.Background()
	env, _ := newEnv(t, nil, node.WithPool(seededPool(t, map[string]any{"d": []any{"a", "b"}})))

	root := env.NewUINode("view")
	_, err := root.LoadLayout(ctx, map[string]any{
		"id":         "list",
		"datasource": "d",
		"$children":  []any{map[string]any{"datasource": "d:$"}},
	})
	require.NoError(t, err)

	v := root.View()
	assert.NotContains(t, v.Schema, "children")
	require.Len(t, v.Children, 2)
	require.Len(t, v.Children[1].Row, 1)
	assert.Equal(t, "b", v.Children[1].Row[0].Data)

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"row":[`)
}

func TestHooks(t *testing.T) {
	ctx := context.Background()
	var loaded []string
	var loads []*domain.LoadEvent
	env, _ := newEnv(t, map[string]any{"schema/ui/a.json": map[string]any{"id": "a"}},
		node.WithHooks(domain.LifecycleHooks{
			OnNodeLoaded: func(_ context.Context, e *domain.NodeEvent) { loaded = append(loaded, e.SchemaID) },
			OnLoad:       func(_ context.Context, e *domain.LoadEvent) { loads = append(loads, e) },
		}),
	)

	_, err := env.NewUINode("a").LoadLayout(ctx, "a.json")
	require.NoError(t, err)
	_, err = env.NewUINode("b").LoadLayout(ctx, "a.json")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "a"}, loaded)
	require.Len(t, loads, 2)
	assert.False(t, loads[0].CacheHit)
	assert.True(t, loads[1].CacheHit)
}
