/*
Package node materializes declarative schemas into live node trees.

A UINode owns a live schema, its ordered children, an optional DataNode bound
to a datasource and a StateNode holding derived states. Loading a layout walks
the schema depth-first and strictly left to right: each child finishes its own
materialization (data, rows, grandchildren, states, ui.parser plugins) before
the next sibling starts, so every plugin or dependency lookup only observes
finished nodes.

All collaborators (fetcher, caches, data pool, messenger, plugin registry) are
carried by an Env that is created once and passed to every node.
*/
package node
