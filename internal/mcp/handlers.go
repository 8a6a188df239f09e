package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/shelf/internal/config"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	sh  *ops.Shelf
	cfg *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(sh *ops.Shelf, cfg *config.Config) *Handlers {
	return &Handlers{sh: sh, cfg: cfg}
}

// Request types for each tool

// ListRequest represents the arguments for shelf_list.
type ListRequest struct {
	Collection string `json:"collection"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

// LatestRequest represents the arguments for shelf_latest.
type LatestRequest struct {
	Collection string `json:"collection"`
}

// ShowRequest represents the arguments for shelf_show.
type ShowRequest struct {
	Collection  string `json:"collection"`
	ID          string `json:"id"`
	IncludeBody *bool  `json:"include_body,omitempty"`
}

// SearchRequest represents the arguments for shelf_search.
type SearchRequest struct {
	Query      string `json:"query"`
	Collection string `json:"collection,omitempty"`
}

// InventoryRequest represents the arguments for shelf_inventory.
type InventoryRequest struct {
	Collection *string `json:"collection,omitempty"`
	Title      *string `json:"title,omitempty"`
	Limit      int     `json:"limit,omitempty"`
	Offset     int     `json:"offset,omitempty"`
}

// AddRequest represents the arguments for shelf_add.
type AddRequest struct {
	Collection string   `json:"collection"`
	URLs       []string `json:"urls"`
}

// RemoveRequest represents the arguments for shelf_remove.
type RemoveRequest struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

// ReindexRequest represents the arguments for shelf_reindex.
type ReindexRequest struct {
	Search bool `json:"search,omitempty"`
}

// HandleCollections handles the shelf_collections tool call.
func (h *Handlers) HandleCollections(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.ListCollections(ctx, h.sh, ops.ListCollectionsInput{})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleList handles the shelf_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListDocuments(ctx, h.sh, ops.ListDocumentsInput{
		Collection: input.Collection,
		Limit:      input.Limit,
		Offset:     input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleLatest handles the shelf_latest tool call.
func (h *Handlers) HandleLatest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LatestRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Latest(ctx, h.sh, ops.LatestInput{Collection: input.Collection})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleShow handles the shelf_show tool call.
func (h *Handlers) HandleShow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ShowRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Show(ctx, h.sh, ops.ShowInput{
		Collection:  input.Collection,
		ID:          input.ID,
		IncludeBody: input.IncludeBody,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSearch handles the shelf_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Search(ctx, h.sh, ops.SearchInput{
		Query:      input.Query,
		Collection: input.Collection,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleInventory handles the shelf_inventory tool call.
func (h *Handlers) HandleInventory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[InventoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Inventory(ctx, h.sh, ops.InventoryInput{
		Collection: input.Collection,
		TitleQuery: input.Title,
		Limit:      input.Limit,
		Offset:     input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleAdd handles the shelf_add tool call.
func (h *Handlers) HandleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Add(ctx, h.sh, ops.AddInput{
		Collection: input.Collection,
		URLs:       input.URLs,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRemove handles the shelf_remove tool call.
func (h *Handlers) HandleRemove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RemoveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Remove(ctx, h.sh, ops.RemoveInput{
		Collection: input.Collection,
		ID:         input.ID,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleReindex handles the shelf_reindex tool call.
func (h *Handlers) HandleReindex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ReindexRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Reindex(ctx, h.sh, ops.ReindexInput{Search: input.Search})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// INTERNAL errors never carry details.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if sErr, ok := errors.As(err); ok {
		// Keep any wrapping context ("items[2]: ...") around the message.
		msg := strings.Replace(err.Error(), sErr.Error(), sErr.Message, 1)
		errorObj := map[string]any{
			"code":    sErr.Code,
			"message": msg,
			"status":  sErr.Status,
		}
		if sErr.Code != errors.ErrInternal && len(sErr.Details) > 0 {
			errorObj["details"] = sErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
