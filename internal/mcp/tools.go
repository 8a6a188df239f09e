package mcp

import "github.com/mark3labs/mcp-go/mcp"

var collectionsToolDef = mcp.NewTool("shelf_collections",
	mcp.WithDescription("List all collections with their document counts and last-added times."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var listToolDef = mcp.NewTool("shelf_list",
	mcp.WithDescription("List the documents of one collection in insertion order. Bodies are not included."),
	mcp.WithString("collection", mcp.Required(), mcp.Description("Collection name")),
	mcp.WithNumber("limit", mcp.Description("Max items (default 50, max 500)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip (default 0)")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var latestToolDef = mcp.NewTool("shelf_latest",
	mcp.WithDescription("Return the most recently added document of a collection, or null if it is empty."),
	mcp.WithString("collection", mcp.Required(), mcp.Description("Collection name")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var showToolDef = mcp.NewTool("shelf_show",
	mcp.WithDescription("Show one document: metadata, heading outline and markdown body."),
	mcp.WithString("collection", mcp.Required(), mcp.Description("Collection name")),
	mcp.WithString("id", mcp.Required(), mcp.Description("Document slug or 1-based position")),
	mcp.WithBoolean("include_body", mcp.Description("Include the markdown body (default true)")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var searchToolDef = mcp.NewTool("shelf_search",
	mcp.WithDescription("Case-insensitive substring search over stored document bodies. Results are grouped per document with matching lines and snippets."),
	mcp.WithString("query", mcp.Required(), mcp.Description("Literal text to find")),
	mcp.WithString("collection", mcp.Description("Restrict the search to one collection")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var inventoryToolDef = mcp.NewTool("shelf_inventory",
	mcp.WithDescription("List documents across all collections, newest first."),
	mcp.WithString("collection", mcp.Description("Only this collection")),
	mcp.WithString("title", mcp.Description("Case-insensitive title substring")),
	mcp.WithNumber("limit", mcp.Description("Max items (default 100, max 1000)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip (default 0)")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var addToolDef = mcp.NewTool("shelf_add",
	mcp.WithDescription("Fetch web pages and store them as markdown in a collection. The collection is created if needed; URLs already stored are skipped."),
	mcp.WithString("collection", mcp.Required(), mcp.Description("Collection name")),
	mcp.WithArray("urls", mcp.Required(), mcp.WithStringItems(), mcp.Description("http(s) URLs to add (max 50)")),
	mcp.WithOpenWorldHintAnnotation(true),
)

var removeToolDef = mcp.NewTool("shelf_remove",
	mcp.WithDescription("Remove one document from a collection."),
	mcp.WithString("collection", mcp.Required(), mcp.Description("Collection name")),
	mcp.WithString("id", mcp.Required(), mcp.Description("Document slug or 1-based position")),
	mcp.WithDestructiveHintAnnotation(true),
)

var reindexToolDef = mcp.NewTool("shelf_reindex",
	mcp.WithDescription("Rebuild the collection summary from the collection logs, and optionally the search index."),
	mcp.WithBoolean("search", mcp.Description("Also rebuild the search index of every collection")),
	mcp.WithIdempotentHintAnnotation(true),
)
