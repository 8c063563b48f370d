// Package plugins provides the builtin plugins of the node engine.
package plugins

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/node"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/route"
)

// Builtin plugin names.
const (
	NameSchemaParser   = "parse-schema"
	NamePoolData       = "load-pool-data"
	NameLocatorParams  = "locator-params"
	NameSubmitHandler  = "submit-handler"
	NameRequestSubmit  = "request-submit"
	NameChange         = "change"
	NameFormatValidate = "format-validators"
)

// Defaults returns the builtin plugin set. The submit plugin is only included
// when a Submitter is given.
func Defaults(submitter ports.Submitter) []domain.Plugin {
	list := []domain.Plugin{
		SchemaParser(),
		PoolData(),
		LocatorParams(),
		SubmitHandler(),
		Change(),
		Formats(),
	}
	if submitter != nil {
		list = append(list, RequestSubmit(submitter))
	}
	return list
}

func dataNode(target any) (*node.DataNode, error) {
	d, ok := target.(*node.DataNode)
	if !ok || d == nil {
		return nil, fmt.Errorf("target is %T, want *node.DataNode", target)
	}
	return d, nil
}

func uiNode(target any) (*node.UINode, error) {
	n, ok := target.(*node.UINode)
	if !ok || n == nil {
		return nil, fmt.Errorf("target is %T, want *node.UINode", target)
	}
	return n, nil
}

var bracketIndex = regexp.MustCompile(`\[\d+\]`)

// SchemaParser resolves "definition.<name>" in the root data schema, where
// name is the binding's schema locator with ':' turned into '.' and bracket
// indexes removed.
func SchemaParser() domain.Plugin {
	return domain.Plugin{
		Type: domain.PluginDataSchemaParser,
		Kind: domain.KindData,
		Name: NameSchemaParser,
		Callback: func(ctx context.Context, target any, params domain.Params) (any, error) {
			d, err := dataNode(target)
			if err != nil {
				return nil, err
			}
			root := d.RootSchema()
			if root == nil {
				return nil, nil
			}
			name := strings.ReplaceAll(d.Source().SchemaLocator(), ":", ".")
			name = bracketIndex.ReplaceAllString(name, "")
			v, _ := domain.Lookup(root, "definition."+name)
			return v, nil
		},
	}
}

// PoolData reads the bound value from the data pool by access route.
func PoolData() domain.Plugin {
	return domain.Plugin{
		Type: domain.PluginDataDataParser,
		Kind: domain.KindData,
		Name: NamePoolData,
		Callback: func(ctx context.Context, target any, params domain.Params) (any, error) {
			d, err := dataNode(target)
			if err != nil {
				return nil, err
			}
			v, err := d.Pool().Get(ctx, d.Route())
			if errors.Is(err, domain.ErrNotFound) {
				return nil, nil
			}
			return v, err
		},
	}
}

// LocatorParams fills "{param}" blocks of the data request locator from the
// owning node's "params" schema field.
func LocatorParams() domain.Plugin {
	return domain.Plugin{
		Type: domain.PluginDataRequestBefore,
		Kind: domain.KindData,
		Name: NameLocatorParams,
		Callback: func(ctx context.Context, target any, params domain.Params) (any, error) {
			d, err := dataNode(target)
			if err != nil {
				return nil, err
			}
			locator, _ := params[node.ParamLocator].(string)
			values, ok := domain.AsSchema(d.UINode().Schema()["params"])
			if !ok || !strings.Contains(locator, "{") {
				return nil, nil
			}
			params[node.ParamLocator] = route.ReplaceParam(locator, values, "")
			return true, nil
		},
	}
}

// SubmitHandler gates commits on the binding's recorded validation state.
func SubmitHandler() domain.Plugin {
	return domain.Plugin{
		Type: domain.PluginDataCommitCould,
		Kind: domain.KindData,
		Name: NameSubmitHandler,
		Callback: func(ctx context.Context, target any, params domain.Params) (any, error) {
			d, err := dataNode(target)
			if err != nil {
				return nil, err
			}
			info := d.ErrorInfo()
			return domain.Verdict{Status: !info.Failed(), Code: info.Code}, nil
		},
	}
}

// RequestSubmit sends the binding's pooled value through a Submitter.
func RequestSubmit(submitter ports.Submitter) domain.Plugin {
	return domain.Plugin{
		Type: domain.PluginDataCommit,
		Kind: domain.KindData,
		Name: NameRequestSubmit,
		Callback: func(ctx context.Context, target any, params domain.Params) (any, error) {
			d, err := dataNode(target)
			if err != nil {
				return nil, err
			}
			payload, err := d.Pool().Get(ctx, d.Route())
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
			return submitter.Submit(ctx, d.Source(), payload)
		},
	}
}

// Change builds the "change" event handler: it validates and stores the new
// value, recomputes the root's states and notifies the renderer.
func Change() domain.Plugin {
	return domain.Plugin{
		Type:     domain.PluginUIParserEvent,
		Kind:     domain.KindUI,
		Name:     NameChange,
		Deferred: true,
		Callback: func(ctx context.Context, target any, params domain.Params) (any, error) {
			n, err := uiNode(target)
			if err != nil {
				return nil, err
			}
			return node.EventHandler(func(ctx context.Context, payload map[string]any) error {
				d := n.DataNode()
				if d == nil {
					return fmt.Errorf("node %s has no datasource", n.ID())
				}
				accepted, err := d.UpdateData(ctx, payload["value"])
				if err != nil {
					return err
				}
				n.Settle(ctx)
				return n.SendMessage(ctx, map[string]any{
					"event":    NameChange,
					"accepted": accepted,
					"error":    d.ErrorInfo(),
				})
			}), nil
		},
	}
}
