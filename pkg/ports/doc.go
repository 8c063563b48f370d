/*
Package ports defines the driven ports (interfaces) for the Arbor node engine.

These interfaces decouple the materializer from transport and storage, so the
same engine runs against files, Loam vaults, HTTP backends or Redis.

# Key Interfaces

  - Fetcher: resolves a locator (layout, data schema or data path) into a decoded document.
  - SchemaCache: process-wide cache of fetched schemas, keyed by locator.
  - DataPool: shared data store addressed by access route.
  - Messenger: delivers messages to the rendering collaborator.
  - Submitter: sends committed data to its owner.
*/
package ports
