package domain

// Reserved schema keys understood by the engine. Every other key is
// widget-specific and passed through untouched.
const (
	KeyID          = "id"
	KeyDatasource  = "datasource"
	KeyState       = "state"
	KeyChildren    = "children"
	KeyRowTemplate = "$children"
	KeyRowIndex    = "_index"

	// RowToken is replaced by the row index inside template rows.
	RowToken = "$"
)

// Schema is a declarative node description: a plain JSON-like tree.
// Nested objects may be either Schema or map[string]any; use AsSchema to
// normalize them.
type Schema map[string]any

// DataSource describes the binding declared under "datasource". The short
// form is a plain string locator; the long form is {source, schema}.
type DataSource struct {
	Source string `json:"source" mapstructure:"source"`
	Schema string `json:"schema,omitempty" mapstructure:"schema"`
}

// SchemaLocator returns the locator used to resolve the data schema.
func (d DataSource) SchemaLocator() string {
	if d.Schema != "" {
		return d.Schema
	}
	return d.Source
}

// AsSchema converts a decoded JSON object into a Schema.
func AsSchema(v any) (Schema, bool) {
	switch s := v.(type) {
	case Schema:
		return s, true
	case map[string]any:
		return Schema(s), true
	default:
		return nil, false
	}
}

// ID returns the schema "id" as a string, or "" when absent.
func (s Schema) ID() string {
	id, _ := s[KeyID].(string)
	return id
}

// Datasource returns the declared data binding, if any.
func (s Schema) Datasource() (DataSource, bool) {
	switch v := s[KeyDatasource].(type) {
	case string:
		if v == "" {
			return DataSource{}, false
		}
		return DataSource{Source: v}, true
	case map[string]any, Schema:
		obj, _ := AsSchema(v)
		src, _ := obj["source"].(string)
		sch, _ := obj["schema"].(string)
		if src == "" {
			return DataSource{}, false
		}
		return DataSource{Source: src, Schema: sch}, true
	case DataSource:
		return v, v.Source != ""
	default:
		return DataSource{}, false
	}
}

// RowTemplate returns the "$children" row template, if declared.
func (s Schema) RowTemplate() ([]any, bool) {
	tpl, ok := s[KeyRowTemplate].([]any)
	return tpl, ok
}

// Children returns the declared child entries. Each entry is either an
// object (one child) or an array of objects (a row).
func (s Schema) Children() []any {
	children, _ := s[KeyChildren].([]any)
	return children
}

// States returns the "state" declarations keyed by state name.
func (s Schema) States() map[string]any {
	if st, ok := AsSchema(s[KeyState]); ok {
		return st
	}
	return nil
}

// Get resolves a dot path inside the schema.
func (s Schema) Get(path string) (any, bool) {
	return Lookup(map[string]any(s), path)
}

// Clone returns a deep copy of the schema.
func (s Schema) Clone() Schema {
	if s == nil {
		return nil
	}
	return Schema(DeepCopy(map[string]any(s)).(map[string]any))
}

// DeepCopy copies maps and slices recursively; other values are returned as is.
func DeepCopy(v any) any {
	switch t := v.(type) {
	case Schema:
		return Schema(DeepCopy(map[string]any(t)).(map[string]any))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = DeepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = DeepCopy(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = DeepCopy(val)
		}
		return out
	default:
		return v
	}
}
