package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sarychdb/sarychdb/pkg/auth"
)

// CreateUserRequest is the body of POST /api/users.
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateDatabaseRequest is the body of POST /api/databases.
type CreateDatabaseRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
}

// MessageResponse carries a single human-readable message.
type MessageResponse struct {
	Message string `json:"message"`
}

// DatabasesResponse lists a user's databases.
type DatabasesResponse struct {
	User      string          `json:"user"`
	Databases []auth.Database `json:"databases"`
}

// HandleCreateUser handles POST requests to create a user account
func (h *Handler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.accounts.CreateUser(req.Username, req.Password); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, MessageResponse{
		Message: fmt.Sprintf("User '%s' created successfully", req.Username),
	})
}

// HandleCreateDatabase handles POST requests to create a database
func (h *Handler) HandleCreateDatabase(w http.ResponseWriter, r *http.Request) {
	var req CreateDatabaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.accounts.CreateDatabase(req.Username, req.Password, req.DBName); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, MessageResponse{
		Message: fmt.Sprintf("Database '%s' created successfully", req.DBName),
	})
}

// HandleListDatabases handles GET requests listing a user's databases
func (h *Handler) HandleListDatabases(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	password := r.URL.Query().Get("password")
	if username == "" || password == "" {
		WriteJSONError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	names, err := h.accounts.ListDatabases(username, password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	databases := make([]auth.Database, 0, len(names))
	for _, name := range names {
		databases = append(databases, auth.Database{Name: name})
	}
	writeJSON(w, http.StatusOK, DatabasesResponse{User: username, Databases: databases})
}
