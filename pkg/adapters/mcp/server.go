// Package mcp exposes the layout controller as Model Context Protocol tools,
// so an assistant can load layouts, inspect nodes and drive form data.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/controller"
	"github.com/aretw0/arbor/pkg/node"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// LayoutsURI is the resource listing the registered layouts.
const LayoutsURI = "arbor://layouts"

// Server wraps a workflow as an MCP server. Engine calls are serialized.
type Server struct {
	workflow  *controller.Workflow
	mcpServer *server.MCPServer
	logger    *slog.Logger

	mu sync.Mutex
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates an MCP server named "arbor-mcp".
func NewServer(w *controller.Workflow, version string, opts ...Option) *Server {
	s := &Server{
		workflow:  w,
		mcpServer: server.NewMCPServer("arbor-mcp", version),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("load_layout",
		mcp.WithDescription("Load a layout from a locator or an inline JSON schema and make it active."),
		mcp.WithString("src", mcp.Required(), mcp.Description("Layout locator (e.g. form.json) or a JSON object")),
		mcp.WithString("id", mcp.Description("Root name to register the layout under")),
	), s.handleLoadLayout)

	s.mcpServer.AddTool(mcp.NewTool("list_layouts",
		mcp.WithDescription("List the registered layouts and the active one."),
	), s.handleListLayouts)

	s.mcpServer.AddTool(mcp.NewTool("get_layout",
		mcp.WithDescription("Get the materialized tree of a layout: schema, data, states and errors per node."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Root name of the layout")),
	), s.handleGetLayout)

	s.mcpServer.AddTool(mcp.NewTool("search_nodes",
		mcp.WithDescription("Find the nodes whose schema matches every field of a selector."),
		mcp.WithString("selector", mcp.Required(), mcp.Description(`JSON object, e.g. {"id":"name"}`)),
		mcp.WithString("root", mcp.Description("Limit the search to one layout")),
	), s.handleSearchNodes)

	s.mcpServer.AddTool(mcp.NewTool("cast_message",
		mcp.WithDescription("Send a payload to every node matching a selector."),
		mcp.WithString("selector", mcp.Required(), mcp.Description("JSON object selector")),
		mcp.WithString("payload", mcp.Description("JSON payload")),
	), s.handleCastMessage)

	s.mcpServer.AddTool(mcp.NewTool("update_data",
		mcp.WithDescription("Write a value to a datasource and reload the nodes bound to it."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Datasource, e.g. user.name")),
		mcp.WithString("value", mcp.Required(), mcp.Description("JSON value")),
	), s.handleUpdateData)

	s.mcpServer.AddTool(mcp.NewTool("validate",
		mcp.WithDescription("Validate the current values of datasources."),
		mcp.WithString("sources", mcp.Required(), mcp.Description("Comma-separated datasources")),
	), s.handleValidate)

	s.mcpServer.AddTool(mcp.NewTool("commit",
		mcp.WithDescription("Validate and submit datasources."),
		mcp.WithString("sources", mcp.Required(), mcp.Description("Comma-separated datasources")),
	), s.handleCommit)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(LayoutsURI, "Registered layouts",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		raw, err := json.Marshal(s.layouts())
		if err != nil {
			return nil, fmt.Errorf("failed to encode layouts: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: LayoutsURI, MIMEType: "application/json", Text: string(raw)},
		}, nil
	})
}

// -- Handlers --

func (s *Server) handleLoadLayout(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	raw, _ := args["src"].(string)
	id, _ := args["id"].(string)

	var src any = raw
	if strings.HasPrefix(strings.TrimSpace(raw), "{") {
		var obj map[string]any
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid schema JSON: %v", err)), nil
		}
		src = obj
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var opts []controller.LoadOption
	if id != "" {
		opts = append(opts, controller.WithID(id))
	}
	n, err := s.workflow.Controller().LoadUINode(ctx, src, opts...)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load failed: %v", err)), nil
	}
	return jsonResult(n.View())
}

func (s *Server) handleListLayouts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.layouts())
}

func (s *Server) layouts() map[string]any {
	c := s.workflow.Controller()
	return map[string]any{"active": c.ActiveLayout(), "stack": c.Layouts()}
}

func (s *Server) handleGetLayout(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, _ := request.GetArguments()["name"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.workflow.Controller().GetUINode(name)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("layout %q is not loaded", name)), nil
	}
	return jsonResult(n.View())
}

func (s *Server) handleSearchNodes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	selector, err := objectArg(args, "selector")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var roots []string
	if root, _ := args["root"].(string); root != "" {
		roots = append(roots, root)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nodes, err := s.workflow.Controller().Search(selector, roots...)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	views := make([]*node.View, 0, len(nodes))
	for _, n := range nodes {
		views = append(views, n.View())
	}
	return jsonResult(views)
}

func (s *Server) handleCastMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	selector, err := objectArg(args, "selector")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	payload, err := valueArg(args, "payload")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count, err := s.workflow.Controller().CastMessage(ctx, selector, payload)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cast failed: %v", err)), nil
	}
	return jsonResult(map[string]int{"count": count})
}

func (s *Server) handleUpdateData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	source, _ := args["source"].(string)
	value, err := valueArg(args, "value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count, err := s.workflow.UpdateData(ctx, source, value)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("update failed: %v", err)), nil
	}
	return jsonResult(map[string]int{"count": count})
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sources := listArg(request.GetArguments(), "sources")

	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.workflow.Controller().ValidateAll(ctx, sources)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("validate failed: %v", err)), nil
	}
	return jsonResult(report)
}

func (s *Server) handleCommit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sources := listArg(request.GetArguments(), "sources")

	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.workflow.Controller().Commit(ctx, sources)
	if err != nil {
		s.logger.Info("mcp commit failed", "sources", sources, "err", err)
		raw, _ := json.Marshal(report)
		return mcp.NewToolResultError(fmt.Sprintf("commit failed: %v\n%s", err, raw)), nil
	}
	return jsonResult(report)
}

// -- Helpers --

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

// objectArg accepts a JSON object given either as a string or already decoded.
func objectArg(args map[string]any, key string) (map[string]any, error) {
	switch v := args[key].(type) {
	case map[string]any:
		return v, nil
	case string:
		var obj map[string]any
		if err := json.Unmarshal([]byte(v), &obj); err != nil {
			return nil, fmt.Errorf("%s must be a JSON object: %v", key, err)
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("%s must be a JSON object", key)
	}
}

// valueArg decodes a JSON value; text that is not JSON is taken verbatim.
func valueArg(args map[string]any, key string) (any, error) {
	raw, ok := args[key].(string)
	if !ok {
		return args[key], nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw, nil
	}
	return v, nil
}

func listArg(args map[string]any, key string) []string {
	raw, _ := args[key].(string)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
