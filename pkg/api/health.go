package api

import (
	"net/http"
	"runtime"
	"time"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string  `json:"status"`
	Message      string  `json:"message"`
	UptimeSec    float64 `json:"uptime_sec"`
	Goroutines   int     `json:"goroutines"`
	CacheEntries int     `json:"cache_entries"`
}

// HandleHealth handles GET requests to the health check endpoint
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:       "healthy",
		Message:      "sarychdb is running",
		UptimeSec:    time.Since(h.startedAt).Seconds(),
		Goroutines:   runtime.NumGoroutine(),
		CacheEntries: h.engine.CacheLen(),
	}

	writeJSON(w, http.StatusOK, response)
}
