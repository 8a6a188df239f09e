package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/shelf/internal/config"
	"github.com/hpungsan/shelf/internal/document"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/ops"
)

// stubFetcher serves a fixed body for any URL under https://pages.test/.
type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, url string) (document.Document, error) {
	if url == "https://pages.test/broken" {
		return document.Document{}, errors.NewFetchFailed(url, fmt.Errorf("HTTP 500"))
	}
	return document.New(document.NewInput{
		URL:        url,
		Title:      "Page " + url[len("https://pages.test/"):],
		Markdown:   "# Heading\n\nFibers are lightweight concurrency primitives.\n",
		Conversion: document.ConversionRemote,
		TokenCount: -1,
	}, time.Now()), nil
}

// testSetup opens a shelf in a temp dir and returns handlers over it.
func testSetup(t *testing.T) (*ops.Shelf, *config.Config, *Handlers) {
	t.Helper()

	cfg := config.DefaultConfig()
	sh, err := ops.Open(t.TempDir(), cfg, stubFetcher{})
	if err != nil {
		t.Fatalf("failed to open shelf: %v", err)
	}
	t.Cleanup(func() { sh.Close() })

	return sh, cfg, NewHandlers(sh, cfg)
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// seed adds pages to a collection through the add tool.
func seed(t *testing.T, h *Handlers, collection string, pages ...string) {
	t.Helper()
	urls := make([]any, 0, len(pages))
	for _, p := range pages {
		urls = append(urls, "https://pages.test/"+p)
	}
	result, err := h.HandleAdd(context.Background(), makeRequest(map[string]any{
		"collection": collection,
		"urls":       urls,
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	out := parseOutput(t, result)
	if added := out["added"].([]any); len(added) != len(pages) {
		t.Fatalf("added %d pages, want %d: %v", len(added), len(pages), out)
	}
}

func TestHandleAdd(t *testing.T) {
	_, _, h := testSetup(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		wantError bool
		errorCode string
	}{
		{
			name: "add new pages",
			args: map[string]any{
				"collection": "ruby",
				"urls":       []any{"https://pages.test/a", "https://pages.test/b"},
			},
		},
		{
			name: "partial failure is still a success result",
			args: map[string]any{
				"collection": "ruby",
				"urls":       []any{"https://pages.test/broken"},
			},
		},
		{
			name:      "missing collection",
			args:      map[string]any{"urls": []any{"https://pages.test/a"}},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name:      "no urls",
			args:      map[string]any{"collection": "ruby"},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name:      "wrong argument type",
			args:      map[string]any{"collection": "ruby", "urls": "https://pages.test/a"},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleAdd(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}

			if tt.wantError {
				if !result.IsError {
					t.Errorf("expected error result, got success")
				}
				if tt.errorCode != "" {
					assertErrorCode(t, result, tt.errorCode)
				}
			} else if result.IsError {
				t.Errorf("unexpected error: %v", extractErrorMessage(result))
			}
		})
	}
}

func TestHandleAdd_ReportsFetchErrors(t *testing.T) {
	_, _, h := testSetup(t)

	result, err := h.HandleAdd(context.Background(), makeRequest(map[string]any{
		"collection": "ruby",
		"urls":       []any{"https://pages.test/ok", "https://pages.test/broken"},
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	out := parseOutput(t, result)

	if added := out["added"].([]any); len(added) != 1 {
		t.Errorf("added = %d, want 1", len(added))
	}
	errs := out["errors"].([]any)
	if len(errs) != 1 {
		t.Fatalf("errors = %d, want 1", len(errs))
	}
	if code := errs[0].(map[string]any)["code"]; code != "FETCH_FAILED" {
		t.Errorf("code = %v, want FETCH_FAILED", code)
	}
}

func TestHandleCollectionsAndList(t *testing.T) {
	_, _, h := testSetup(t)
	ctx := context.Background()
	seed(t, h, "ruby", "a", "b")

	result, err := h.HandleCollections(ctx, makeRequest(nil))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	out := parseOutput(t, result)
	cols := out["collections"].([]any)
	if len(cols) != 1 {
		t.Fatalf("collections = %d, want 1", len(cols))
	}
	if got := cols[0].(map[string]any)["entry_count"]; got != float64(2) {
		t.Errorf("entry_count = %v, want 2", got)
	}

	result, err = h.HandleList(ctx, makeRequest(map[string]any{"collection": "ruby", "limit": 1}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	out = parseOutput(t, result)
	if items := out["items"].([]any); len(items) != 1 {
		t.Errorf("items = %d, want 1", len(items))
	}
	pagination := out["pagination"].(map[string]any)
	if pagination["has_more"] != true {
		t.Errorf("has_more = %v, want true", pagination["has_more"])
	}

	result, err = h.HandleList(ctx, makeRequest(map[string]any{"collection": "missing"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "NOT_FOUND")
}

func TestHandleLatest(t *testing.T) {
	_, _, h := testSetup(t)
	seed(t, h, "ruby", "first", "second")

	result, err := h.HandleLatest(context.Background(), makeRequest(map[string]any{"collection": "ruby"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	item := parseOutput(t, result)["item"].(map[string]any)
	if item["url"] != "https://pages.test/second" {
		t.Errorf("url = %v, want https://pages.test/second", item["url"])
	}
	if item["position"] != float64(2) {
		t.Errorf("position = %v, want 2", item["position"])
	}
}

func TestHandleShow(t *testing.T) {
	_, _, h := testSetup(t)
	ctx := context.Background()
	seed(t, h, "ruby", "a")

	tests := []struct {
		name      string
		args      map[string]any
		wantBody  bool
		errorCode string
	}{
		{name: "by position", args: map[string]any{"collection": "ruby", "id": "1"}, wantBody: true},
		{name: "without body", args: map[string]any{"collection": "ruby", "id": "1", "include_body": false}},
		{name: "unknown id", args: map[string]any{"collection": "ruby", "id": "9"}, errorCode: "NOT_FOUND"},
		{name: "missing id", args: map[string]any{"collection": "ruby"}, errorCode: "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleShow(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if tt.errorCode != "" {
				assertErrorCode(t, result, tt.errorCode)
				return
			}
			out := parseOutput(t, result)
			body, _ := out["body"].(string)
			if tt.wantBody && body == "" {
				t.Error("expected body")
			}
			if !tt.wantBody && body != "" {
				t.Errorf("body = %q, want none", body)
			}
		})
	}
}

func TestHandleSearch(t *testing.T) {
	_, _, h := testSetup(t)
	ctx := context.Background()
	seed(t, h, "ruby", "a")
	seed(t, h, "python", "b")

	result, err := h.HandleSearch(ctx, makeRequest(map[string]any{"query": "lightweight"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	out := parseOutput(t, result)
	if out["total"] != float64(2) {
		t.Errorf("total = %v, want 2", out["total"])
	}

	result, err = h.HandleSearch(ctx, makeRequest(map[string]any{"query": "lightweight", "collection": "ruby"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	results := parseOutput(t, result)["results"].([]any)
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	first := results[0].(map[string]any)
	if first["collection"] != "ruby" {
		t.Errorf("collection = %v, want ruby", first["collection"])
	}
	matches := first["matches"].([]any)
	if len(matches) == 0 {
		t.Fatal("expected matches")
	}

	result, err = h.HandleSearch(ctx, makeRequest(map[string]any{"query": "  "}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleInventory(t *testing.T) {
	_, _, h := testSetup(t)
	seed(t, h, "ruby", "a", "b")
	seed(t, h, "python", "c")

	result, err := h.HandleInventory(context.Background(), makeRequest(map[string]any{"collection": "ruby"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	items := parseOutput(t, result)["items"].([]any)
	if len(items) != 2 {
		t.Errorf("items = %d, want 2", len(items))
	}

	result, err = h.HandleInventory(context.Background(), makeRequest(map[string]any{"title": "page c"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	items = parseOutput(t, result)["items"].([]any)
	if len(items) != 1 {
		t.Errorf("title-filtered items = %d, want 1", len(items))
	}
}

func TestHandleRemove(t *testing.T) {
	_, _, h := testSetup(t)
	ctx := context.Background()
	seed(t, h, "ruby", "a")

	result, err := h.HandleRemove(ctx, makeRequest(map[string]any{"collection": "ruby", "id": "1"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if out := parseOutput(t, result); out["removed"] != true {
		t.Errorf("removed = %v, want true", out["removed"])
	}

	result, err = h.HandleRemove(ctx, makeRequest(map[string]any{"collection": "ruby", "id": "1"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "NOT_FOUND")
}

func TestHandleReindex(t *testing.T) {
	_, _, h := testSetup(t)
	seed(t, h, "ruby", "a")

	result, err := h.HandleReindex(context.Background(), makeRequest(map[string]any{"search": true}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	out := parseOutput(t, result)
	aggregate := out["aggregate"].(map[string]any)
	if aggregate["total_entries"] != float64(1) {
		t.Errorf("total_entries = %v, want 1", aggregate["total_entries"])
	}
	if search := out["search"].([]any); len(search) != 1 {
		t.Errorf("search = %d, want 1", len(search))
	}
}

func TestServerRegistration(t *testing.T) {
	sh, cfg, _ := testSetup(t)

	s := NewServer(sh, cfg, "test")
	tools := s.ListTools()
	if tools == nil {
		t.Fatal("expected tools to be registered, got nil")
	}

	expectedTools := []string{
		"shelf_collections",
		"shelf_list",
		"shelf_latest",
		"shelf_show",
		"shelf_search",
		"shelf_inventory",
		"shelf_add",
		"shelf_remove",
		"shelf_reindex",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expectedTools))
	}

	for _, name := range expectedTools {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	sh, cfg, _ := testSetup(t)

	cfg.DisabledTools = []string{"shelf_add", "shelf_remove", "shelf_remove", "not_a_tool"}
	s := NewServer(sh, cfg, "test")
	tools := s.ListTools()

	if len(tools) != len(toolRegistry)-2 {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(toolRegistry)-2)
	}
	for _, name := range []string{"shelf_add", "shelf_remove"} {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	sh, cfg, _ := testSetup(t)

	cfg.DisabledTools = AllToolNames()
	s := NewServer(sh, cfg, "test")

	if tools := s.ListTools(); len(tools) != 0 {
		t.Errorf("registered tool count = %d, want 0 (all disabled)", len(tools))
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{name: "all valid", input: []string{"shelf_add", "shelf_remove"}, wantLen: 0},
		{name: "one unknown", input: []string{"shelf_add", "fake_tool"}, wantLen: 1},
		{name: "all unknown", input: []string{"foo", "bar", "baz"}, wantLen: 3},
		{name: "empty list", input: []string{}, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unknown := ValidateDisabledTools(tt.input)
			if len(unknown) != tt.wantLen {
				t.Errorf("ValidateDisabledTools() returned %d unknown, want %d", len(unknown), tt.wantLen)
			}
		})
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()

	if len(names) != len(toolRegistry) {
		t.Errorf("AllToolNames() returned %d names, want %d", len(names), len(toolRegistry))
	}
	if !slices.IsSorted(names) {
		t.Errorf("AllToolNames() not sorted: %v", names)
	}
	if unknown := ValidateDisabledTools(names); len(unknown) != 0 {
		t.Errorf("AllToolNames() returned invalid names: %v", unknown)
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied")))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	errObj := errorObject(t, r)
	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
}

func TestErrorResult_WrappedErrorPreservesContext(t *testing.T) {
	wrapped := fmt.Errorf("urls[2]: %w", errors.NewInvalidRequest("invalid url"))

	errObj := errorObject(t, errorResult(wrapped))
	if errObj["code"] != string(errors.ErrInvalidRequest) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrInvalidRequest)
	}
	if msg := errObj["message"]; msg != "urls[2]: invalid url" {
		t.Errorf("message = %v, want %q", msg, "urls[2]: invalid url")
	}
}

func TestErrorResult_NonInternalIncludesDetails(t *testing.T) {
	errObj := errorObject(t, errorResult(errors.NewNotFound("document", "abc")))

	if errObj["code"] != string(errors.ErrNotFound) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}
	if _, ok := errObj["details"]; !ok {
		t.Fatal("expected non-INTERNAL errors to include details when present")
	}
}

func TestErrorResult_PlainError(t *testing.T) {
	errObj := errorObject(t, errorResult(fmt.Errorf("boom")))
	if errObj["code"] != string(errors.ErrInternal) {
		t.Errorf("code=%v, want INTERNAL", errObj["code"])
	}
	if errObj["message"] != "an internal error occurred" {
		t.Errorf("message=%v", errObj["message"])
	}
}

// Helper functions

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func errorObject(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error object in payload: %v", payload)
	}
	return errObj
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()

	if !result.IsError {
		t.Errorf("expected error result with code %s, got success", expectedCode)
		return
	}
	if len(result.Content) == 0 {
		t.Errorf("no content in error result")
		return
	}
	if code, _ := errorObject(t, result)["code"].(string); code != expectedCode {
		t.Errorf("got error code %q, want %q", code, expectedCode)
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}

	return text.Text
}
