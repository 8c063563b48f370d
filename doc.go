/*
Package arbor is a schema-driven form engine. It turns declarative layout
schemas into live trees of UI nodes bound to a shared data pool, resolves
their derived states and hands snapshots to a rendering client.

# Concept

A layout is a JSON or YAML document. Each node may bind a datasource, declare
states computed from other nodes and expand a row template over a list value:

	{
	  "id": "profile",
	  "children": [
	    {"id": "name", "datasource": "user.name"},
	    {"id": "submit", "state": {"disabled": {"deps": [
	      {"selector": {"id": "name"}, "data": ""}
	    ]}}}
	  ]
	}

Behavior is extended through plugins registered once at start-up, per type
(ui.parser, data.update.could, data.commit, ...), ordered by weight.

# Usage

	fetcher := memory.NewFetcher(docs)
	eng, err := arbor.New(arbor.WithFetcher(fetcher))
	if err != nil {
		log.Fatal(err)
	}
	root, err := eng.Load(ctx, "profile.json", nil)

Open reads documents from a Loam repository instead. The pkg/adapters tree
holds file, Loam, HTTP, Redis and MCP adapters for the collaborator ports.
*/
package arbor
