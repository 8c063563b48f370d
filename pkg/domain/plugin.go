package domain

import (
	"context"
	"strings"
)

// PluginType is a dotted extension-point identifier:
// <domain>.<phase>[.<subphase>].
type PluginType string

// Extension points invoked by the engine.
const (
	// PluginUIParser runs on a UI node once its schema, children and state are assigned.
	PluginUIParser PluginType = "ui.parser"
	// PluginUIParserEvent plugins build event handlers; they are not run by the parser pass.
	PluginUIParserEvent PluginType = "ui.parser.event"

	// PluginDataSchemaParser resolves the data schema fragment of a binding.
	PluginDataSchemaParser PluginType = "data.schema.parser"
	// PluginDataDataParser resolves the bound value from the data pool.
	PluginDataDataParser PluginType = "data.data.parser"
	// PluginDataRequestBefore may rewrite request params before a data fetch.
	PluginDataRequestBefore PluginType = "data.request.before"
	// PluginDataRequestAfter observes a fetched payload before it enters the pool.
	PluginDataRequestAfter PluginType = "data.request.after"
	// PluginDataUpdateCould validates a value before it is written.
	PluginDataUpdateCould PluginType = "data.update.could"
	// PluginDataCommitCould gates a commit.
	PluginDataCommitCould PluginType = "data.commit.could"
	// PluginDataCommit performs the commit.
	PluginDataCommit PluginType = "data.commit"
)

// Domain returns the first segment of the type ("ui", "data").
func (t PluginType) Domain() string {
	s := string(t)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return s[:i]
	}
	return s
}

// IsValidation reports whether results of this type are pass/fail verdicts.
func (t PluginType) IsValidation() bool {
	return strings.HasSuffix(string(t), ".could")
}

// Kind tags the node a plugin operates on.
type Kind int

const (
	// KindUI plugins receive a UI node.
	KindUI Kind = iota
	// KindData plugins receive a data node.
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindUI:
		return "ui"
	case KindData:
		return "data"
	default:
		return "unknown"
	}
}

// KindOf derives the kind from the type's domain segment.
func KindOf(t PluginType) (Kind, bool) {
	switch t.Domain() {
	case "ui":
		return KindUI, true
	case "data":
		return KindData, true
	default:
		return 0, false
	}
}

// Params is the options bag handed to every plugin of one execution.
type Params map[string]any

// Callback is the untyped plugin body. Target is the node the pipeline runs
// against (a UI node for KindUI, a data node for KindData).
type Callback func(ctx context.Context, target any, params Params) (any, error)

// Plugin is an extension registered under a type and executed in weight order.
type Plugin struct {
	Type   PluginType
	Kind   Kind
	Name   string
	Weight int
	// Deferred plugins only run on explicit request, never during
	// materialization passes.
	Deferred bool
	Callback Callback
}

// Verdict is the result contract of ".could" plugins.
type Verdict struct {
	Status bool   `json:"status"`
	Code   string `json:"code,omitempty"`
}

// AsVerdict interprets a plugin result as a verdict. It accepts Verdict,
// *Verdict, bool, and maps carrying "status"/"code". A nil result is no opinion.
func AsVerdict(v any) (Verdict, bool) {
	switch r := v.(type) {
	case Verdict:
		return r, true
	case *Verdict:
		if r == nil {
			return Verdict{}, false
		}
		return *r, true
	case bool:
		return Verdict{Status: r}, true
	case map[string]any:
		st, ok := r["status"].(bool)
		if !ok {
			return Verdict{}, false
		}
		code, _ := r["code"].(string)
		return Verdict{Status: st, Code: code}, true
	default:
		return Verdict{}, false
	}
}
