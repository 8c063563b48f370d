package node

import (
	"context"
	"errors"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/aretw0/arbor/pkg/route"
)

// Params keys handed to data plugins.
const (
	ParamSource  = "source"
	ParamDomain  = "domain"
	ParamRoute   = "route"
	ParamLocator = "locator"
	ParamData    = "data"
	ParamValue   = "value"
)

// DataNode binds a UI node to one datasource.
type DataNode struct {
	owner   *UINode
	manager *registry.Manager

	source     domain.DataSource
	rootSchema map[string]any
	schema     any
	data       any
	errorInfo  domain.ErrorInfo
}

func newDataNode(owner *UINode, source domain.DataSource) *DataNode {
	d := &DataNode{owner: owner, source: source}
	d.manager = owner.env.Registry.NewManager(d)
	return d
}

// Source returns the binding descriptor.
func (d *DataNode) Source() domain.DataSource { return d.source }

// Route returns the normalized access route of the binding.
func (d *DataNode) Route() string { return route.AccessRoute(d.source.Source, "") }

// Domain returns the data domain of the binding.
func (d *DataNode) Domain() string { return route.DomainName(d.source.Source, false) }

// RootSchema returns the root data schema of the binding's domain, or nil.
func (d *DataNode) RootSchema() map[string]any { return d.rootSchema }

// Schema returns the schema fragment describing the binding.
func (d *DataNode) Schema() any { return d.schema }

// SchemaAt resolves a dot path inside the binding's schema fragment.
func (d *DataNode) SchemaAt(path string) (any, bool) {
	return domain.Lookup(d.schema, path)
}

// Data returns the resolved value, nil when unresolved.
func (d *DataNode) Data() any { return d.data }

// ErrorInfo returns the load fault or validation failure of the binding.
func (d *DataNode) ErrorInfo() domain.ErrorInfo { return d.errorInfo }

// SetErrorInfo replaces the recorded error info.
func (d *DataNode) SetErrorInfo(info domain.ErrorInfo) { d.errorInfo = info }

// UINode returns the owning node.
func (d *DataNode) UINode() *UINode { return d.owner }

// Pool returns the shared data pool.
func (d *DataNode) Pool() ports.DataPool { return d.owner.env.Pool }

// Plugins returns the data pipeline executor of the binding.
func (d *DataNode) Plugins() *registry.Manager { return d.manager }

// LoadData resolves the binding: the root data schema is fetched and narrowed
// by data.schema.parser plugins, the domain document is fetched into the pool
// when missing (data.request.before may rewrite or veto the request), and the
// value is read by data.data.parser plugins. Faults are recorded in ErrorInfo.
func (d *DataNode) LoadData(ctx context.Context) any {
	env := d.owner.env
	d.errorInfo = domain.ErrorInfo{}
	d.data = nil

	// 1. Root data schema
	schemaLocator := withPrefix(env.Prefixes.DataSchema, route.SchemaName(d.source.SchemaLocator()))
	// missing names the last source that was not found; it becomes a 404
	// when no value resolves.
	var missing string
	rootSchema, err := env.fetchSchema(ctx, schemaLocator)
	switch {
	case err == nil:
		d.rootSchema = rootSchema
	case errors.Is(err, domain.ErrNotFound):
		missing = schemaLocator
		env.Logger.Debug("no data schema", "locator", schemaLocator)
	default:
		d.errorInfo = domain.ErrorInfo{Status: 400, Code: "Error loading from " + schemaLocator}
		env.Logger.Warn("data schema load failed", "locator", schemaLocator, "err", err)
	}

	// 2. Schema fragment
	if v, ok := d.manager.Execute(ctx, domain.PluginDataSchemaParser, registry.ExecuteOptions{
		Params: domain.Params{ParamSource: d.source},
	}).Last(); ok {
		d.schema = v
	}

	// 3. Domain document
	domainName := d.Domain()
	if _, err := env.Pool.Get(ctx, domainName); errors.Is(err, domain.ErrNotFound) && env.Fetcher != nil {
		if locator := d.request(ctx, domainName); locator != "" {
			missing = locator
		}
	}

	// 4. Value
	if v, ok := d.manager.Execute(ctx, domain.PluginDataDataParser, registry.ExecuteOptions{
		Params: domain.Params{ParamSource: d.source, ParamRoute: d.Route()},
	}).Last(); ok {
		d.data = v
	}
	if d.data == nil && missing != "" && d.errorInfo.IsZero() {
		d.errorInfo = domain.ErrorInfo{Status: 404, Code: "Error loading from " + missing}
	}
	return d.data
}

// request fetches the domain document into the pool. It returns the locator
// when the document does not exist.
func (d *DataNode) request(ctx context.Context, domainName string) string {
	env := d.owner.env
	params := domain.Params{
		ParamSource:  d.source,
		ParamDomain:  domainName,
		ParamLocator: withPrefix(env.Prefixes.Data, route.SchemaName(d.source.Source)),
	}

	before := d.manager.Execute(ctx, domain.PluginDataRequestBefore, registry.ExecuteOptions{Params: params})
	for _, rec := range before.Records {
		if veto, ok := rec.Result.(bool); ok && !veto {
			env.Logger.Debug("data request vetoed", "plugin", rec.Plugin.Name, "domain", domainName)
			return ""
		}
	}

	locator, _ := params[ParamLocator].(string)
	doc, err := env.fetchData(ctx, locator, params)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			env.Logger.Debug("no data document", "locator", locator)
			return locator
		}
		d.errorInfo = domain.ErrorInfo{Status: 400, Code: "Error loading from " + locator}
		env.Logger.Warn("data load failed", "locator", locator, "err", err)
		return ""
	}

	params[ParamData] = doc
	if v, ok := d.manager.Execute(ctx, domain.PluginDataRequestAfter, registry.ExecuteOptions{Params: params}).Last(); ok {
		if _, isBool := v.(bool); !isBool {
			doc = v
		}
	}

	if err := env.Pool.Set(ctx, domainName, doc); err != nil {
		d.errorInfo = domain.ErrorInfo{Status: 500, Code: "Error storing " + domainName}
		env.Logger.Warn("data pool write failed", "domain", domainName, "err", err)
	}
	return ""
}

// Validate runs the data.update.could plugins against value, stopping at the
// first failed verdict, and records the outcome in ErrorInfo. It returns the
// verdicts that were produced.
func (d *DataNode) Validate(ctx context.Context, value any) []domain.Verdict {
	var verdicts []domain.Verdict
	failed := false
	d.manager.Execute(ctx, domain.PluginDataUpdateCould, registry.ExecuteOptions{
		Params: domain.Params{ParamSource: d.source, ParamValue: value},
		AfterExecute: func(rec registry.Record) registry.Control {
			v, ok := domain.AsVerdict(rec.Result)
			if !ok {
				return registry.Control{}
			}
			verdicts = append(verdicts, v)
			if !v.Status {
				failed = true
				d.errorInfo = domain.FromVerdict(v)
				return registry.Control{Stop: true}
			}
			return registry.Control{}
		},
	})
	if !failed {
		d.errorInfo = domain.ErrorInfo{}
		if len(verdicts) > 0 {
			d.errorInfo = domain.FromVerdict(domain.Verdict{Status: true})
		}
	}
	return verdicts
}

// UpdateData validates value and, when accepted, writes it to the pool and
// the node. A rejected value leaves the data untouched and is reported by
// ErrorInfo; the returned bool tells whether the value was stored.
func (d *DataNode) UpdateData(ctx context.Context, value any) (bool, error) {
	d.Validate(ctx, value)
	if d.errorInfo.Failed() {
		return false, nil
	}
	if err := d.owner.env.Pool.Set(ctx, d.Route(), value); err != nil {
		return false, err
	}
	d.data = domain.DeepCopy(value)
	return true, nil
}
