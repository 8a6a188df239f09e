package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/hpungsan/shelf/internal/config"
	"github.com/hpungsan/shelf/internal/errors"
	"github.com/hpungsan/shelf/internal/ops"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	sh       *ops.Shelf
	cfg      *config.Config
	renderer *Renderer
}

func (h *Handlers) page(title, nav, collection string) PageData {
	return PageData{
		Title:      title,
		Version:    h.renderer.version,
		Nav:        nav,
		Collection: collection,
	}
}

// HandleCollections handles GET /collections and lists every collection with counts.
func (h *Handlers) HandleCollections(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListCollections(r.Context(), h.sh, ops.ListCollectionsInput{})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "collections", CollectionsPageData{
		PageData:     h.page("Collections", "collections", ""),
		Collections:  result.Collections,
		TotalEntries: result.TotalEntries,
		LastUpdated:  result.LastUpdated,
	})
}

// HandleCollection handles GET /collections/{name} and lists the documents of one collection.
func (h *Handlers) HandleCollection(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListDocuments(r.Context(), h.sh, ops.ListDocumentsInput{
		Collection: r.PathValue("name"),
		Limit:      parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:     parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "collection", CollectionPageData{
		PageData:   h.page(result.Collection, "collections", result.Collection),
		Items:      result.Items,
		Pagination: result.Pagination,
	})
}

// HandleDocument handles GET /collections/{name}/{id} and renders the reader view.
func (h *Handlers) HandleDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("document id is required"))
		return
	}

	result, err := ops.Show(r.Context(), h.sh, ops.ShowInput{
		Collection: r.PathValue("name"),
		ID:         id,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	title := result.Document.Title
	if title == "" {
		title = result.Document.Slug
	}

	h.renderer.renderPage(w, r, "document", DocumentPageData{
		PageData:     h.page(title, "collections", result.Collection),
		Document:     result.Document,
		Outline:      result.Outline,
		RenderedHTML: h.renderer.renderMarkdown(result.Body),
		Missing:      result.Missing,
	})
}

// HandleRemove handles DELETE /collections/{name}/{id} and removes one document.
func (h *Handlers) HandleRemove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("document id is required"))
		return
	}

	result, err := ops.Remove(r.Context(), h.sh, ops.RemoveInput{
		Collection: r.PathValue("name"),
		ID:         id,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.afterDelete(w, r, "/collections/"+result.Collection, map[string]any{
		"removed":    result.Removed,
		"collection": result.Collection,
		"slug":       result.Document.Slug,
	})
}

// HandleDestroy handles DELETE /collections/{name} and deletes a whole collection.
func (h *Handlers) HandleDestroy(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Destroy(r.Context(), h.sh, ops.DestroyInput{Collection: r.PathValue("name")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.afterDelete(w, r, "/collections", map[string]any{
		"destroyed":  result.Destroyed,
		"collection": result.Collection,
	})
}

// afterDelete answers a successful DELETE according to the client type.
func (h *Handlers) afterDelete(w http.ResponseWriter, r *http.Request, next string, payload map[string]any) {
	// HTMX request: redirect via HX-Redirect header
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", next)
		w.WriteHeader(http.StatusOK)
		return
	}

	// JSON request
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, payload)
		return
	}

	// Default: redirect
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// HandleSearch handles GET /search and runs a substring search across collections.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	collection := r.URL.Query().Get("collection")

	names, err := h.sh.Store.List()
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	data := SearchPageData{
		PageData:    h.page("Search", "search", collection),
		Query:       query,
		HasQuery:    strings.TrimSpace(query) != "",
		Collections: names,
	}

	if data.HasQuery {
		result, err := ops.Search(r.Context(), h.sh, ops.SearchInput{
			Query:      query,
			Collection: collection,
		})
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		if wantsJSON(r) {
			renderJSON(w, http.StatusOK, result)
			return
		}
		data.Results = result.Results
		data.Total = result.Total
		data.Collection = result.Collection
	}

	// If htmx targets #results, render only the results fragment
	if r.Header.Get("HX-Target") == "results" {
		h.renderer.renderBlock(w, http.StatusOK, "search", "search-results", data)
		return
	}

	h.renderer.renderPage(w, r, "search", data)
}

// HandleInventory handles GET /inventory and lists documents across collections, newest first.
func (h *Handlers) HandleInventory(w http.ResponseWriter, r *http.Request) {
	collection := r.URL.Query().Get("collection")
	title := r.URL.Query().Get("title")

	result, err := ops.Inventory(r.Context(), h.sh, ops.InventoryInput{
		Collection: ptrString(collection),
		TitleQuery: ptrString(title),
		Limit:      parseIntParam(r, "limit", ops.DefaultInventoryLimit),
		Offset:     parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "inventory", InventoryPageData{
		PageData:   h.page("Inventory", "inventory", collection),
		Items:      result.Items,
		Pagination: result.Pagination,
		TitleQuery: title,
	})
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// ptrString returns a pointer to s if non-empty, nil otherwise.
func ptrString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
