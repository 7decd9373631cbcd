package catalog

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"anicatalog/internal/httpx"
)

// maxClientCache caps the Cache-Control hint so clients come back often
// enough to see a refresh.
const maxClientCache = 6 * time.Hour

type HTTPHandler struct {
	svc      *Service
	manifest Manifest
}

func NewHTTPHandler(svc *Service, manifest Manifest) *HTTPHandler {
	return &HTTPHandler{svc: svc, manifest: manifest}
}

// Register mounts the addon and status routes on mux. The refresh route is
// returned separately by RefreshHandler so callers can wrap it with auth.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /manifest.json", h.Manifest)
	mux.HandleFunc("GET /{config}/manifest.json", h.Manifest)
	mux.HandleFunc("GET /catalog/{type}/{file}", h.Catalog)
	mux.HandleFunc("GET /{config}/catalog/{type}/{file}", h.Catalog)
	mux.HandleFunc("GET /v1/catalogs", h.Status)
}

// Manifest handles GET /manifest.json
// @Summary Addon manifest
// @Description Static description of the addon and the catalogs it serves
// @Tags addon
// @Produce json
// @Param config path string false "Client configuration"
// @Success 200 {object} catalog.Manifest
// @Router /manifest.json [get]
func (h *HTTPHandler) Manifest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "max-age=3600")
	httpx.JSON(w, http.StatusOK, h.manifest)
}

// Catalog handles GET /{config}/catalog/{type}/{id}.json
// @Summary Catalog items
// @Description Cached items of one catalog. Always answers 200; problems yield an empty list.
// @Tags addon
// @Produce json
// @Param config path string false "URL-encoded JSON object or comma separated list of selected catalog ids"
// @Param type path string true "Item type, only series is served"
// @Param file path string true "Catalog id followed by .json"
// @Success 200 {object} catalog.Response
// @Router /{config}/catalog/{type}/{file} [get]
func (h *HTTPHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	req := Request{
		CatalogID: strings.TrimSuffix(r.PathValue("file"), ".json"),
		Type:      r.PathValue("type"),
		Selected:  ParseSelection(r.PathValue("config")),
	}

	resp := h.svc.Catalog(r.Context(), req)

	w.Header().Set("Cache-Control", cacheControl(h.svc.TTL()))
	httpx.JSON(w, http.StatusOK, resp)
}

// Status handles GET /v1/catalogs
// @Summary Catalog cache status
// @Description Item count, next refresh time and refresh state per catalog
// @Tags operations
// @Produce json
// @Success 200 {object} httpx.SuccessResponse
// @Router /v1/catalogs [get]
func (h *HTTPHandler) Status(w http.ResponseWriter, r *http.Request) {
	statuses := h.svc.Status(r.Context())
	httpx.JSONSuccess(w, r, statuses, map[string]any{
		"total": len(statuses),
	})
}

// Refresh handles POST /internal/catalogs/{id}/refresh
// @Summary Force a catalog refresh
// @Description Runs the refresh path with staleness forced and waits for the result
// @Tags operations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Catalog id"
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 502 {object} httpx.ErrorResponse
// @Failure 503 {object} httpx.ErrorResponse
// @Router /internal/catalogs/{id}/refresh [post]
func (h *HTTPHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Catalog id is required", nil)
		return
	}

	n, err := h.svc.Refresh(r.Context(), id)
	switch {
	case err == nil:
		httpx.JSONSuccess(w, r, map[string]any{"catalog_id": id, "items": n}, nil)
	case errors.Is(err, ErrUnknownCatalog):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Catalog not found", nil)
	case h.svc.Ready() != nil:
		httpx.JSONError(w, r, http.StatusServiceUnavailable, "MISCONFIGURED", "Service is missing required configuration", nil)
	case r.Context().Err() != nil:
		httpx.JSONError(w, r, http.StatusGatewayTimeout, "TIMEOUT", "Refresh still running", nil)
	default:
		httpx.JSONError(w, r, http.StatusBadGateway, "UPSTREAM_ERROR", "Refresh failed, previous items kept", []httpx.ErrorDetail{
			{Field: "items", Message: fmt.Sprintf("%d items still served", n)},
		})
	}
}

func cacheControl(ttl time.Duration) string {
	if ttl > maxClientCache {
		ttl = maxClientCache
	}
	if ttl < 0 {
		ttl = 0
	}
	return fmt.Sprintf("max-age=%d, stale-while-revalidate=%d", int(ttl.Seconds()), int(ttl.Seconds()))
}
