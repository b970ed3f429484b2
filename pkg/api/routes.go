package api

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API routes with the given router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	// Every document operation travels inside a sarychdb:// URL
	router.HandleFunc("/sarych", h.HandleSarych)

	// Accounts
	router.HandleFunc("/api/users", h.HandleCreateUser).Methods("POST")
	router.HandleFunc("/api/databases", h.HandleCreateDatabase).Methods("POST")
	router.HandleFunc("/api/databases", h.HandleListDatabases).Methods("GET")

	// Admin
	router.HandleFunc("/api/cache/clear", h.HandleClearCache).Methods("POST")

	router.HandleFunc("/health", h.HandleHealth).Methods("GET")
}
