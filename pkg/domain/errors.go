package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by caches, pools and fetchers when a key has no value.
// Adapters must return it (or wrap it) so callers can treat it as a cache miss.
var ErrNotFound = errors.New("not found")

// ErrMalformedSelector is returned when a node selector is empty or holds
// non-primitive values. Selectors match by exact key/value equality only.
var ErrMalformedSelector = errors.New("malformed selector")

// ErrInvalidStateDecl is returned when schema.state.<name> cannot be decoded.
var ErrInvalidStateDecl = errors.New("invalid state declaration")

// ErrInvalidPlugin is returned when a plugin is registered without a type,
// a name or a callback, or when its kind does not match its type.
var ErrInvalidPlugin = errors.New("invalid plugin")

// ErrRegistryFrozen is returned when registering plugins after start-up.
var ErrRegistryFrozen = errors.New("plugin registry is frozen")

// ErrLayoutNotFound is returned when a root layout name is not registered.
var ErrLayoutNotFound = errors.New("layout not found")

// ErrCommitRejected is returned when validation or a data.commit.could plugin
// refuses a commit.
var ErrCommitRejected = errors.New("commit rejected")

// PluginError wraps a fault raised by a single plugin callback.
type PluginError struct {
	Type   PluginType
	Plugin string
	Err    error
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("plugin %q (%s) failed: %v", e.Plugin, e.Type, e.Err)
}

func (e *PluginError) Unwrap() error { return e.Err }

// LoadError describes a remote schema or data fetch that failed.
type LoadError struct {
	Locator string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("error loading from %s: %v", e.Locator, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
