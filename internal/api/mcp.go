package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/profiled/internal/links"
	"github.com/kalambet/profiled/internal/profile"
	"github.com/kalambet/profiled/internal/validate"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Editor  *profile.Aggregator
	Version string
}

// NewMCPServer creates an MCP server exposing the profile editor to agents.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"profiled",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("profiled keeps a local user profile: contact details, interests, and links. Submit validates and saves it."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("set_field",
			mcp.WithDescription("Set one scalar profile field in the draft and return its validation messages."),
			mcp.WithString("field", mcp.Description("Field id: name, surname, jobTitle, phone, email, address, pitch"), mcp.Required()),
			mcp.WithString("value", mcp.Description("New value"), mcp.Required()),
		),
		mcpSetField(deps),
	)

	s.AddTool(
		mcp.NewTool("add_interest",
			mcp.WithDescription("Add an interest tag. At most 10 tags; duplicates are ignored."),
			mcp.WithString("tag", mcp.Description("Tag text"), mcp.Required()),
			mcp.WithBoolean("custom", mcp.Description("Treat as a user-defined tag rather than a catalog pick")),
		),
		mcpAddInterest(deps),
	)

	s.AddTool(
		mcp.NewTool("remove_interest",
			mcp.WithDescription("Remove an interest tag."),
			mcp.WithString("tag", mcp.Description("Tag text"), mcp.Required()),
		),
		mcpRemoveInterest(deps),
	)

	s.AddTool(
		mcp.NewTool("add_link",
			mcp.WithDescription("Append a link row, optionally filled in."),
			mcp.WithString("site_name", mcp.Description("Site name, e.g. GitHub")),
			mcp.WithString("link", mcp.Description("URL starting with http:// or https://")),
		),
		mcpAddLink(deps),
	)

	s.AddTool(
		mcp.NewTool("set_link_field",
			mcp.WithDescription("Set siteName or link on an existing link row."),
			mcp.WithNumber("index", mcp.Description("Zero-based row index"), mcp.Required()),
			mcp.WithString("field", mcp.Description("siteName or link"), mcp.Required()),
			mcp.WithString("value", mcp.Description("New value"), mcp.Required()),
		),
		mcpSetLinkField(deps),
	)

	s.AddTool(
		mcp.NewTool("remove_link",
			mcp.WithDescription("Remove a link row by index."),
			mcp.WithNumber("index", mcp.Description("Zero-based row index"), mcp.Required()),
		),
		mcpRemoveLink(deps),
	)

	s.AddTool(
		mcp.NewTool("submit_profile",
			mcp.WithDescription("Validate the whole profile and save it if valid. Returns the violations otherwise."),
			mcp.WithString("visibility", mcp.Description("Private or Public; keeps the current value when omitted")),
		),
		mcpSubmitProfile(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"profile://current",
			"Current Profile",
			mcp.WithResourceDescription("Current profile draft as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfile(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"profile://summary",
			"Profile Summary",
			mcp.WithResourceDescription("Short plain-text summary of the profile"),
			mcp.WithMIMEType("text/plain"),
		),
		mcpResourceSummary(deps),
	)

	return s
}

func mcpSetField(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		field, err := req.RequireString("field")
		if err != nil {
			return mcpError("field is required"), nil
		}
		value, err := req.RequireString("value")
		if err != nil {
			return mcpError("value is required"), nil
		}

		v, err := deps.Editor.SetField(validate.FieldID(field), value)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to set field: %v", err)), nil
		}
		if len(v) > 0 {
			return mcpText(fmt.Sprintf("Set %s; invalid: %s", field, strings.Join(v, "; "))), nil
		}
		return mcpText(fmt.Sprintf("Set %s", field)), nil
	}
}

func mcpAddInterest(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tag, err := req.RequireString("tag")
		if err != nil {
			return mcpError("tag is required"), nil
		}

		var added bool
		if req.GetBool("custom", false) {
			added = deps.Editor.AddCustomInterest(tag)
		} else {
			added = deps.Editor.AddCatalogInterest(tag)
		}
		interests := strings.Join(deps.Editor.Interests().Tags, ", ")
		if !added {
			return mcpText(fmt.Sprintf("Not added (duplicate, empty, or list full). Interests: %s", interests)), nil
		}
		return mcpText(fmt.Sprintf("Added %s. Interests: %s", tag, interests)), nil
	}
}

func mcpRemoveInterest(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tag, err := req.RequireString("tag")
		if err != nil {
			return mcpError("tag is required"), nil
		}
		if !deps.Editor.RemoveInterest(tag) {
			return mcpText(fmt.Sprintf("%s was not an interest", tag)), nil
		}
		return mcpText(fmt.Sprintf("Removed %s", tag)), nil
	}
}

func mcpAddLink(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		e, err := deps.Editor.AddLink()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to add link: %v", err)), nil
		}

		if name := req.GetString("site_name", ""); name != "" {
			if err := deps.Editor.SetLinkField(deps.Editor.LinkIndex(e.ID), links.FieldSiteName, name); err != nil {
				return mcpError(fmt.Sprintf("failed to set site name: %v", err)), nil
			}
		}
		if link := req.GetString("link", ""); link != "" {
			if err := deps.Editor.SetLinkField(deps.Editor.LinkIndex(e.ID), links.FieldLink, link); err != nil {
				return mcpError(fmt.Sprintf("failed to set link: %v", err)), nil
			}
		}
		return linkResult(deps, deps.Editor.LinkIndex(e.ID))
	}
}

func mcpSetLinkField(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		index, err := req.RequireInt("index")
		if err != nil {
			return mcpError("index is required"), nil
		}
		field, err := req.RequireString("field")
		if err != nil {
			return mcpError("field is required"), nil
		}
		value, err := req.RequireString("value")
		if err != nil {
			return mcpError("value is required"), nil
		}

		if err := deps.Editor.SetLinkField(index, field, value); err != nil {
			return mcpError(fmt.Sprintf("failed to set link field: %v", err)), nil
		}
		return linkResult(deps, index)
	}
}

func mcpRemoveLink(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		index, err := req.RequireInt("index")
		if err != nil {
			return mcpError("index is required"), nil
		}
		if err := deps.Editor.RemoveLink(index); err != nil {
			return mcpError(fmt.Sprintf("failed to remove link: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Removed link %d; %d left", index, len(deps.Editor.Profile().Links))), nil
	}
}

func linkResult(deps MCPDeps, index int) (*mcp.CallToolResult, error) {
	ls := deps.Editor.Profile().Links
	vs := deps.Editor.LinkViolations()
	if index < 0 || index >= len(ls) {
		return mcpError(fmt.Sprintf("link %d not found", index)), nil
	}

	type linkRow struct {
		Index      int         `json:"index"`
		Entry      links.Entry `json:"entry"`
		Violations []string    `json:"violations,omitempty"`
	}
	row := linkRow{Index: index, Entry: ls[index]}
	if index < len(vs) {
		row.Violations = vs[index]
	}
	b, err := json.Marshal(row)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal link: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpSubmitProfile(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		form := deps.Editor.Profile().Form()
		if v := req.GetString("visibility", ""); v != "" {
			form.Visibility = profile.Visibility(v)
		}

		p, err := deps.Editor.Submit(form)
		var verr *profile.ValidationError
		if errors.As(err, &verr) {
			b, _ := json.Marshal(verr.Fields)
			return mcpError(fmt.Sprintf("profile not saved, invalid fields: %s", b)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("profile not saved: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Profile saved at %s", p.SavedAt.Format("2006-01-02 15:04:05 MST"))), nil
	}
}

func mcpResourceProfile(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(snapshot(deps.Editor))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceSummary(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "text/plain",
				Text:     deps.Editor.Summary(),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
