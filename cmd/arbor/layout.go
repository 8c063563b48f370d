package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/pkg/node"
	"github.com/spf13/cobra"
)

// openLayout builds a runtime and materializes the layout named by args[0].
// The layout name doubles as its locator unless --id is given.
func openLayout(cmd *cobra.Command, args []string) (*cli.Runtime, *node.UINode, error) {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return nil, nil, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := cli.BuildRuntime(ctx, cfg, logger, cli.BuildOptions{})
	if err != nil {
		return nil, nil, err
	}

	locator := args[0]
	name := locator
	if id, _ := cmd.Flags().GetString("id"); id != "" {
		name = id
	}
	root, err := rt.Engine.Load(ctx, name, locator)
	if err != nil {
		rt.Close()
		return nil, nil, fmt.Errorf("load layout %s: %w", locator, err)
	}
	return rt, root, nil
}

// datasources lists the distinct sources bound inside a tree, in tree order.
func datasources(v *node.View) []string {
	var out []string
	seen := map[string]bool{}
	var walk func(*node.View)
	walk = func(v *node.View) {
		if ds, ok := v.Schema.Datasource(); ok && !seen[ds.Source] {
			seen[ds.Source] = true
			out = append(out, ds.Source)
		}
		for _, c := range v.Children {
			if c.View != nil {
				walk(c.View)
			}
			for _, cell := range c.Row {
				walk(cell)
			}
		}
	}
	walk(v)
	return out
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
