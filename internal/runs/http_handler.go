package runs

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"anicatalog/internal/httpx"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type HTTPHandler struct {
	repo   Repository
	known  func(catalogID string) bool
	logger *zap.Logger
}

// NewHTTPHandler serves run history. known reports whether a catalog id is
// registered; unknown ids answer 404.
func NewHTTPHandler(repo Repository, known func(string) bool, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{repo: repo, known: known, logger: logger}
}

// List handles GET /v1/catalogs/{id}/runs
// @Summary Recent refresh runs
// @Description Most recent refresh attempts of one catalog, newest first
// @Tags operations
// @Produce json
// @Param id path string true "Catalog id"
// @Param limit query int false "Number of runs" default(20)
// @Success 200 {object} httpx.SuccessResponse
// @Failure 404 {object} httpx.ErrorResponse
// @Failure 500 {object} httpx.ErrorResponse
// @Router /v1/catalogs/{id}/runs [get]
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" || (h.known != nil && !h.known(id)) {
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Catalog not found", nil)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}

	list, err := h.repo.ListRuns(r.Context(), id, limit)
	if err != nil {
		h.logger.Error("list refresh runs failed", zap.String("catalog", id), zap.Error(err))
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	httpx.JSONSuccess(w, r, list, map[string]any{
		"catalog_id": id,
		"limit":      limit,
	})
}
