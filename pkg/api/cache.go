package api

import (
	"crypto/subtle"
	"net/http"

	"go.uber.org/zap"

	"github.com/sarychdb/sarychdb/pkg/logger"
)

// AdminTokenHeader carries the admin token.
const AdminTokenHeader = "X-Admin-Token"

// ClearCacheResponse reports how many cached results were dropped.
type ClearCacheResponse struct {
	Cleared int `json:"cleared"`
}

// HandleClearCache drops every cached search result.
func (h *Handler) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	if h.adminToken == "" {
		WriteJSONError(w, http.StatusForbidden, "admin endpoints are disabled")
		return
	}
	token := r.Header.Get(AdminTokenHeader)
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) != 1 {
		WriteJSONError(w, http.StatusUnauthorized, "invalid admin token")
		return
	}

	cleared := h.engine.CacheLen()
	h.engine.ClearCache()
	logger.FromContext(r.Context()).Info("result cache cleared", zap.Int("entries", cleared))

	writeJSON(w, http.StatusOK, ClearCacheResponse{Cleared: cleared})
}
