package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/nutriwheel/internal/menu"
	"github.com/kalambet/nutriwheel/internal/profile"
	"github.com/kalambet/nutriwheel/internal/storage"
)

func newTestMCPDeps(t *testing.T, adv *fakeAdvisor) (MCPDeps, *testApp) {
	t.Helper()
	var a *testApp
	if adv == nil {
		a = newTestApp(t, nil)
	} else {
		a = newTestApp(t, adv)
	}
	return MCPDeps{
		Session: a.deps.Session,
		Profile: a.deps.Profile,
		Journal: a.deps.Journal,
		Strings: a.deps.Strings,
		Version: "test",
	}, a
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

func TestMCPTool_Spin(t *testing.T) {
	deps, _ := newTestMCPDeps(t, nil)
	handler := mcpSpin(deps)

	result, err := handler(context.Background(), makeCallToolRequest("spin", map[string]interface{}{"category": "snack"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}
	var item menu.MenuItem
	if err := json.Unmarshal([]byte(toolText(t, result)), &item); err != nil {
		t.Fatal(err)
	}
	if item.ID != "s1" {
		t.Errorf("item = %q, want s1", item.ID)
	}

	for _, args := range []map[string]interface{}{{}, {"category": "dessert"}} {
		result, _ := handler(context.Background(), makeCallToolRequest("spin", args))
		if !result.IsError {
			t.Errorf("args %v: expected tool error", args)
		}
	}
}

func TestMCPTool_SpinAll(t *testing.T) {
	deps, _ := newTestMCPDeps(t, nil)

	result, err := mcpSpinAll(deps)(context.Background(), makeCallToolRequest("spin_all", nil))
	if err != nil || result.IsError {
		t.Fatalf("err=%v result=%+v", err, result)
	}
	var sel menu.Selection
	if err := json.Unmarshal([]byte(toolText(t, result)), &sel); err != nil {
		t.Fatal(err)
	}
	if !sel.Complete() {
		t.Errorf("selection incomplete: %+v", sel)
	}
}

func TestMCPTool_AnalyzeAndSave(t *testing.T) {
	adv := &fakeAdvisor{analysis: menu.Analysis{SummaryTH: "สมดุล", HealthScoreOverall: 7}}
	deps, a := newTestMCPDeps(t, adv)
	ctx := context.Background()

	result, _ := mcpAnalyze(deps)(ctx, makeCallToolRequest("analyze_meal", nil))
	if !result.IsError {
		t.Error("analyze with no selection should fail")
	}

	a.spinEverything(t)
	result, _ = mcpAnalyze(deps)(ctx, makeCallToolRequest("analyze_meal", nil))
	if result.IsError || !strings.Contains(toolText(t, result), "สมดุล") {
		t.Fatalf("analyze result = %s", toolText(t, result))
	}

	result, _ = mcpSaveMeal(deps)(ctx, makeCallToolRequest("save_meal", map[string]interface{}{"note": "lunch"}))
	if result.IsError {
		t.Fatalf("save failed: %s", toolText(t, result))
	}
	var saved SaveMealResponse
	if err := json.Unmarshal([]byte(toolText(t, result)), &saved); err != nil {
		t.Fatal(err)
	}
	if saved.Entry.Note != "lunch" || saved.Entry.AnalysisStatus != storage.AnalysisDone {
		t.Errorf("entry = %+v", saved.Entry)
	}

	adv.critErr = errors.New("down")
	result, _ = mcpAnalyze(deps)(ctx, makeCallToolRequest("analyze_meal", nil))
	if !result.IsError {
		t.Error("advisor failure should be a tool error")
	}
}

func TestMCPTool_SaveMealWithoutJournal(t *testing.T) {
	deps, _ := newTestMCPDeps(t, nil)
	deps.Journal = nil
	result, _ := mcpSaveMeal(deps)(context.Background(), makeCallToolRequest("save_meal", nil))
	if !result.IsError || !strings.Contains(toolText(t, result), "disabled") {
		t.Errorf("result = %+v", result)
	}
}

func TestMCPTool_Regenerate(t *testing.T) {
	fresh := menu.DefaultCatalog()
	fresh.Version = "fresh-1"
	deps, _ := newTestMCPDeps(t, &fakeAdvisor{catalog: fresh})

	result, _ := mcpRegenerate(deps)(context.Background(), makeCallToolRequest("regenerate_menu", nil))
	if result.IsError || !strings.Contains(toolText(t, result), "fresh-1") {
		t.Errorf("result = %s", toolText(t, result))
	}
	if deps.Session.Catalog().Version != "fresh-1" {
		t.Error("catalog not replaced")
	}
}

func TestMCPTool_SetProfile(t *testing.T) {
	deps, _ := newTestMCPDeps(t, nil)
	handler := mcpSetProfile(deps)

	result, _ := handler(context.Background(), makeCallToolRequest("set_profile", map[string]interface{}{
		"key": "has_hypertension", "value": "true",
	}))
	if result.IsError {
		t.Fatalf("set failed: %s", toolText(t, result))
	}
	p, err := deps.Profile.GetProfile()
	if err != nil || !p.HasHypertension {
		t.Errorf("profile = %+v, err = %v", p, err)
	}

	result, _ = handler(context.Background(), makeCallToolRequest("set_profile", map[string]interface{}{
		"key": "goal", "value": "bulk_forever",
	}))
	if !result.IsError {
		t.Error("invalid goal accepted")
	}
}

func TestMCPResources(t *testing.T) {
	deps, _ := newTestMCPDeps(t, nil)
	ctx := context.Background()

	read := func(uri string, load func() (any, error)) string {
		t.Helper()
		contents, err := mcpResourceJSON(load)(ctx, makeReadResourceRequest(uri))
		if err != nil {
			t.Fatalf("%s: %v", uri, err)
		}
		tc, ok := contents[0].(mcp.TextResourceContents)
		if !ok || tc.URI != uri || tc.MIMEType != "application/json" {
			t.Fatalf("%s: contents = %+v", uri, contents[0])
		}
		return tc.Text
	}

	var c menu.Catalog
	if err := json.Unmarshal([]byte(read("menu://catalog", func() (any, error) { return deps.Session.Catalog(), nil })), &c); err != nil {
		t.Fatal(err)
	}
	if c.Size() != 19 {
		t.Errorf("catalog size = %d", c.Size())
	}

	var p profile.Profile
	if err := json.Unmarshal([]byte(read("user://profile", func() (any, error) { return deps.Profile.GetProfile() })), &p); err != nil {
		t.Fatal(err)
	}
	if p != profile.Default() {
		t.Errorf("profile = %+v", p)
	}

	_, err := mcpResourceJSON(func() (any, error) { return nil, errors.New("boom") })(ctx, makeReadResourceRequest("user://profile"))
	if err == nil {
		t.Error("expected load error")
	}
}

func TestNewMCPServer(t *testing.T) {
	deps, _ := newTestMCPDeps(t, nil)
	if NewMCPServer(deps) == nil {
		t.Fatal("nil server")
	}
}
