package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/nutriwheel/internal/journal"
	"github.com/kalambet/nutriwheel/internal/menu"
	"github.com/kalambet/nutriwheel/internal/profile"
	"github.com/kalambet/nutriwheel/internal/session"
	"github.com/kalambet/nutriwheel/internal/spin"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Session *session.Session
	Profile *profile.Manager
	Journal *journal.Service // optional; if nil, save_meal returns an error
	Strings menu.UIStrings
	Version string
}

// NewMCPServer creates an MCP server with the meal wheel tools and
// resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"nutriwheel",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("nutriwheel: spin random meals from a Thai menu, then get a nutrition critique for the user's profile."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("spin",
			mcp.WithDescription("Spin one category wheel and wait for it to land. Returns the chosen item."),
			mcp.WithString("category", mcp.Description("main_dish, snack or drink"), mcp.Required(),
				mcp.Enum(string(menu.MainDish), string(menu.Snack), string(menu.Drink))),
		),
		mcpSpin(deps),
	)

	s.AddTool(
		mcp.NewTool("spin_all",
			mcp.WithDescription("Spin all three wheels and wait for every one to land. Returns the full selection."),
		),
		mcpSpinAll(deps),
	)

	s.AddTool(
		mcp.NewTool("analyze_meal",
			mcp.WithDescription("Ask the nutrition advisor to critique the current selection for the user's profile."),
		),
		mcpAnalyze(deps),
	)

	s.AddTool(
		mcp.NewTool("regenerate_menu",
			mcp.WithDescription("Replace the menu with a freshly generated one. Clears the selection."),
		),
		mcpRegenerate(deps),
	)

	s.AddTool(
		mcp.NewTool("save_meal",
			mcp.WithDescription("Save the current selection (and its analysis, if any) to the meal journal."),
			mcp.WithString("note", mcp.Description("Optional note stored with the meal")),
		),
		mcpSaveMeal(deps),
	)

	s.AddTool(
		mcp.NewTool("set_profile",
			mcp.WithDescription("Update one field of the user's health profile."),
			mcp.WithString("key", mcp.Description("One of: age, gender, weight_kg, height_cm, goal, has_diabetes, has_hypertension, sensitive_to_caffeine"), mcp.Required()),
			mcp.WithString("value", mcp.Description("Value to set"), mcp.Required()),
		),
		mcpSetProfile(deps),
	)

	s.AddResource(
		mcp.NewResource("menu://catalog", "Menu Catalog",
			mcp.WithResourceDescription("Current menu catalog as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceJSON(func() (any, error) { return deps.Session.Catalog(), nil }),
	)

	s.AddResource(
		mcp.NewResource("menu://selection", "Current Selection",
			mcp.WithResourceDescription("Selected item per category and the latest analysis"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceJSON(func() (any, error) {
			st := deps.Session.Snapshot()
			return map[string]any{"selection": st.Selection, "analysis": st.Analysis}, nil
		}),
	)

	s.AddResource(
		mcp.NewResource("user://profile", "User Profile",
			mcp.WithResourceDescription("Current user health profile as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceJSON(func() (any, error) { return deps.Profile.GetProfile() }),
	)

	return s
}

func mcpSpin(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := req.RequireString("category")
		if err != nil {
			return mcpError("category is required"), nil
		}
		cat, err := menu.ParseCategory(raw)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		f, err := deps.Session.SpinAndWait(ctx, cat)
		if err != nil {
			return mcpError(fmt.Sprintf("spin failed: %v", err)), nil
		}
		return mcpJSON(f.Item)
	}
}

// mcpSpinAll staggers the three spins the same way SpinAll does, but waits
// for each one to land.
func mcpSpinAll(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		g, gCtx := errgroup.WithContext(ctx)
		for i, cat := range menu.Categories {
			delay := time.Duration(i) * spin.SpinAllStagger
			g.Go(func() error {
				select {
				case <-time.After(delay):
				case <-gCtx.Done():
					return gCtx.Err()
				}
				_, err := deps.Session.SpinAndWait(gCtx, cat)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return mcpError(fmt.Sprintf("spin failed: %v", err)), nil
		}
		return mcpJSON(deps.Session.Selection())
	}
}

func mcpAnalyze(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		a, err := deps.Session.Analyze(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("analysis failed: %v", err)), nil
		}
		return mcpJSON(a)
	}
}

func mcpRegenerate(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		c, err := deps.Session.Regenerate(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("regeneration failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("New menu %s with %d main dishes, %d snacks and %d drinks.",
			c.Version, len(c.Categories.MainDish), len(c.Categories.Snack), len(c.Categories.Drink))), nil
	}
}

func mcpSaveMeal(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Journal == nil {
			return mcpError("meal journal is disabled"), nil
		}
		st := deps.Session.Snapshot()
		d := journal.Draft{
			Selection:      st.Selection,
			CatalogVersion: st.Catalog.Version,
			Note:           req.GetString("note", ""),
		}
		if st.Analysis.Status == session.AnalysisReady {
			d.Analysis = st.Analysis.Result
		}
		e, err := deps.Journal.Save(ctx, d)
		if err != nil {
			return mcpError(fmt.Sprintf("save failed: %v", err)), nil
		}

		p, err := deps.Profile.GetProfile()
		if err != nil {
			p = profile.Default()
		}
		return mcpJSON(SaveMealResponse{Entry: e, Feedback: journal.Feedback(e.Meal, p, deps.Strings, nil)})
	}
}

func mcpSetProfile(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcpError("key is required"), nil
		}
		value, err := req.RequireString("value")
		if err != nil {
			return mcpError("value is required"), nil
		}

		if err := deps.Profile.SetField(key, value); err != nil {
			return mcpError(fmt.Sprintf("failed to set profile field: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Set %s = %s", key, value)), nil
	}
}

func mcpResourceJSON(load func() (any, error)) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		v, err := load()
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", req.Params.URI, err)
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", req.Params.URI, err)
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

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
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
