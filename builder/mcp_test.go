package builder_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/chkforge/chkforge/builder"
)

var testMCPImpl = &mcp.Implementation{Name: "chkforge-test", Version: "0.1.0"}

func mcpSession(t *testing.T) *mcp.ClientSession {
	t.Helper()
	b := newBuilder(t, builder.Config{})
	srv := mcp.NewServer(testMCPImpl, nil)
	b.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) (string, error) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	if result.IsError {
		return "", errors.New(tc.Text)
	}
	return tc.Text, nil
}

func TestMCP_ChecklistBuild(t *testing.T) {
	session := mcpSession(t)

	dir := t.TempDir()
	spec := specFixture(t, dir)
	tmpl := writeTemplate(t, dir, markerTemplate)
	out := filepath.Join(dir, "built.html")

	text, err := mcpCallTool(t, session, "checklist_build", map[string]any{
		"spec":     spec,
		"template": tmpl,
		"out":      out,
	})
	if err != nil {
		t.Fatalf("tool error: %v", err)
	}

	var res struct {
		BuildID string `json:"buildId"`
		OutPath string `json:"outPath"`
		Steps   int    `json:"steps"`
	}
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if res.OutPath != out || res.Steps != 2 || res.BuildID == "" {
		t.Errorf("result = %+v", res)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if !strings.Contains(string(data), "Nightly Sync") {
		t.Errorf("output missing injected title:\n%s", data)
	}
}

func TestMCP_ChecklistBuildFailureOnToolChannel(t *testing.T) {
	session := mcpSession(t)

	dir := t.TempDir()
	spec := specFixture(t, dir)
	tmpl := writeTemplate(t, dir, "<html><body>no steps target</body></html>")

	_, err := mcpCallTool(t, session, "checklist_build", map[string]any{
		"spec":     spec,
		"template": tmpl,
	})
	if err == nil {
		t.Fatal("want tool error for missing steps target")
	}
	if !strings.Contains(err.Error(), "steps") {
		t.Errorf("tool error = %v, want the slot named", err)
	}
}

func TestMCP_TemplateInspect(t *testing.T) {
	session := mcpSession(t)

	dir := t.TempDir()
	tmpl := writeTemplate(t, dir, markerTemplate)

	text, err := mcpCallTool(t, session, "template_inspect", map[string]any{
		"template": tmpl,
	})
	if err != nil {
		t.Fatalf("tool error: %v", err)
	}

	var rep builder.Report
	if err := json.Unmarshal([]byte(text), &rep); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	found := false
	for _, s := range rep.Slots {
		if s.Slot == "steps" && s.Markers == 1 {
			found = true
		}
	}
	if !found {
		t.Errorf("report did not count the steps marker: %+v", rep.Slots)
	}
}

func TestMCP_TemplateInspectMissingFile(t *testing.T) {
	session := mcpSession(t)

	_, err := mcpCallTool(t, session, "template_inspect", map[string]any{
		"template": filepath.Join(t.TempDir(), "absent.html"),
	})
	if err == nil {
		t.Fatal("want tool error for missing template file")
	}
}
