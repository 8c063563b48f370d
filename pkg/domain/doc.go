/*
Package domain contains the core types shared by every layer of the Arbor node engine.

It defines the declarative schema tree, the plugin contract and its extension
points, the state-dependency declarations evaluated by the resolver, and the
messages and lifecycle events emitted while layouts are materialized. This
package is kept pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - Schema: a plain JSON-like tree describing a node, its bindings and children.
  - Plugin: an extension registered under a dotted PluginType and a weight.
  - StateDecl: a "strategy + deps" condition declared under schema.state.<name>.
  - ErrorInfo: faults and validation failures represented as data on a node.
  - Message: a payload fanned out to the rendering collaborator.
*/
package domain
