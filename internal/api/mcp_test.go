package api

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/profiled/internal/profile"
	"github.com/kalambet/profiled/internal/storage"
)

// --- helpers ---

func newTestMCPDeps(t *testing.T) (MCPDeps, *storage.Scope) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	scope := store.Scope("mcp")
	ed := profile.NewAggregator(scope)
	t.Cleanup(ed.Close)
	return MCPDeps{Editor: ed, Version: "test"}, scope
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

// --- tests ---

func TestNewMCPServer(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	if s := NewMCPServer(deps); s == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}

func TestMCPTool_Interests(t *testing.T) {
	deps, _ := newTestMCPDeps(t)

	result, err := mcpAddInterest(deps)(context.Background(), makeCallToolRequest("add_interest", map[string]interface{}{
		"tag": "Python",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	result, _ = mcpAddInterest(deps)(context.Background(), makeCallToolRequest("add_interest", map[string]interface{}{
		"tag": "Python",
	}))
	if !strings.Contains(toolText(t, result), "Not added") {
		t.Errorf("duplicate add = %q", toolText(t, result))
	}

	result, _ = mcpRemoveInterest(deps)(context.Background(), makeCallToolRequest("remove_interest", map[string]interface{}{
		"tag": "Python",
	}))
	if !strings.Contains(toolText(t, result), "Removed") {
		t.Errorf("remove = %q", toolText(t, result))
	}
	if n := len(deps.Editor.Profile().Interests); n != 0 {
		t.Errorf("interests left = %d", n)
	}
}

func TestMCPTool_MissingArgs(t *testing.T) {
	deps, _ := newTestMCPDeps(t)

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
	}{
		{"add_interest", mcpAddInterest(deps)},
		{"remove_interest", mcpRemoveInterest(deps)},
		{"set_field", mcpSetField(deps)},
		{"set_link_field", mcpSetLinkField(deps)},
		{"remove_link", mcpRemoveLink(deps)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.handler(context.Background(), makeCallToolRequest(tt.name, map[string]interface{}{}))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !result.IsError {
				t.Error("expected tool error")
			}
		})
	}
}

func TestMCPTool_Links(t *testing.T) {
	deps, _ := newTestMCPDeps(t)

	result, _ := mcpAddLink(deps)(context.Background(), makeCallToolRequest("add_link", map[string]interface{}{
		"site_name": "GitHub",
		"link":      "github.com/ada",
	}))
	text := toolText(t, result)
	if !strings.Contains(text, "Link must start with http:// or https://") {
		t.Errorf("add_link = %q, want scheme violation", text)
	}

	result, _ = mcpSetLinkField(deps)(context.Background(), makeCallToolRequest("set_link_field", map[string]interface{}{
		"index": 0,
		"field": "link",
		"value": "https://github.com/ada",
	}))
	if strings.Contains(toolText(t, result), "violations") {
		t.Errorf("set_link_field = %q, want no violations", toolText(t, result))
	}

	result, _ = mcpRemoveLink(deps)(context.Background(), makeCallToolRequest("remove_link", map[string]interface{}{
		"index": 3,
	}))
	if !result.IsError {
		t.Error("expected out of range error")
	}
}

func TestMCPTool_Submit(t *testing.T) {
	deps, scope := newTestMCPDeps(t)

	result, _ := mcpSubmitProfile(deps)(context.Background(), makeCallToolRequest("submit_profile", map[string]interface{}{}))
	if !result.IsError || !strings.Contains(toolText(t, result), "name") {
		t.Fatalf("empty submit = %q", toolText(t, result))
	}

	for field, value := range map[string]string{
		"name":     "Ada",
		"surname":  "Lovelace",
		"jobTitle": "Analyst",
		"phone":    "+441234567890",
		"address":  "London",
		"email":    "ada@example.com",
		"pitch":    "Poetical science.",
	} {
		result, _ := mcpSetField(deps)(context.Background(), makeCallToolRequest("set_field", map[string]interface{}{
			"field": field,
			"value": value,
		}))
		if result.IsError || strings.Contains(toolText(t, result), "invalid") {
			t.Fatalf("set_field %s = %q", field, toolText(t, result))
		}
	}

	result, _ = mcpSubmitProfile(deps)(context.Background(), makeCallToolRequest("submit_profile", map[string]interface{}{
		"visibility": "Public",
	}))
	if result.IsError {
		t.Fatalf("submit = %q", toolText(t, result))
	}
	raw, err := scope.Get(profile.KeyProfile)
	if err != nil || !strings.Contains(raw, `"visibility":"Public"`) {
		t.Errorf("stored = %s, %v", raw, err)
	}
}

func TestMCPResource_Profile(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	deps.Editor.AddCatalogInterest("AI")

	contents, err := mcpResourceProfile(deps)(context.Background(), makeReadResourceRequest("profile://current"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	if tc.URI != "profile://current" || !strings.Contains(tc.Text, `"AI"`) {
		t.Errorf("resource = %+v", tc)
	}
}

func TestMCPResource_Summary(t *testing.T) {
	deps, _ := newTestMCPDeps(t)

	contents, err := mcpResourceSummary(deps)(context.Background(), makeReadResourceRequest("profile://summary"))
	if err != nil {
		t.Fatal(err)
	}
	tc := contents[0].(mcp.TextResourceContents)
	if tc.Text != "Profile: not yet filled in." {
		t.Errorf("summary = %q", tc.Text)
	}
}
