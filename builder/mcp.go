package builder

import (
	"context"
	"encoding/json"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/chkforge/chkforge/buildid"
	"github.com/chkforge/chkforge/kit"
)

// RegisterMCP registers the builder tools on an MCP server.
func (b *Builder) RegisterMCP(srv *mcp.Server) {
	b.registerBuildTool(srv)
	b.registerInspectTool(srv)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

var mcpRequestID = buildid.UUIDv7()

func mcpContext(ctx context.Context) context.Context {
	return kit.WithRequestID(kit.WithTransport(ctx, "mcp"), mcpRequestID())
}

// --- build ---

func (b *Builder) registerBuildTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "checklist_build",
		Description: "Build a checklist HTML page from a spreadsheet spec and an HTML template. Returns the build summary.",
		InputSchema: inputSchema(map[string]any{
			"spec":     map[string]any{"type": "string", "description": "Path to the spec workbook (.xlsx)"},
			"template": map[string]any{"type": "string", "description": "Path to the HTML template"},
			"out":      map[string]any{"type": "string", "description": "Output path (default: <spec stem>_checklist_<stamp>.html next to the spec)"},
		}, []string{"spec", "template"}),
	}

	endpoint := kit.Chain(kit.Logging(b.log, "checklist_build"))(func(ctx context.Context, req any) (any, error) {
		r := req.(*BuildInput)
		return b.Build(ctx, *r)
	})

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r BuildInput
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: mcpContext}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- inspect ---

type inspectRequest struct {
	Template string `json:"template"`
}

func (b *Builder) registerInspectTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "template_inspect",
		Description: "Inspect an HTML template: slot markers, structural matches, document title and element counts.",
		InputSchema: inputSchema(map[string]any{
			"template": map[string]any{"type": "string", "description": "Path to the HTML template"},
		}, []string{"template"}),
	}

	endpoint := kit.Chain(kit.Logging(b.log, "template_inspect"))(func(_ context.Context, req any) (any, error) {
		r := req.(*inspectRequest)
		data, err := os.ReadFile(r.Template)
		if err != nil {
			return nil, err
		}
		return b.Inspect(string(data))
	})

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r inspectRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: mcpContext}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
