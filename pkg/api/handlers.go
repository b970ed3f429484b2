package api

import (
	"time"

	"github.com/sarychdb/sarychdb/pkg/document"
	"github.com/sarychdb/sarychdb/pkg/domain"
	"github.com/sarychdb/sarychdb/pkg/engine"
)

// QueryEngine is the document engine behind the sarych endpoint.
type QueryEngine interface {
	Search(owner, name, query string, mode engine.QueryMode) (*domain.SearchResult, error)
	Insert(owner, name string, doc document.Value) (document.Value, error)
	Update(owner, name, query, id string, patch document.Value) (int, error)
	Delete(owner, name, query string) (int, error)
	Browse(owner, name string, page, limit *int) (*domain.BrowseResult, error)
	List(owner, name string, opts engine.ListOptions) (*domain.ListResult, error)
	Stats(owner, name string) (*domain.Stats, error)
	Backup(owner, name string) (*domain.SnapshotInfo, error)
	Restore(owner, name string) (*domain.SnapshotInfo, error)
	ClearCache()
	CacheLen() int
}

// Accounts authenticates users and tracks the databases they own.
type Accounts interface {
	CreateUser(username, password string) error
	CreateDatabase(username, password, name string) error
	ListDatabases(username, password string) ([]string, error)
	Authorize(username, password, name string) error
}

// Handler provides HTTP handlers for the database API
type Handler struct {
	engine     QueryEngine
	accounts   Accounts
	adminToken string
	startedAt  time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithAdminToken enables the admin endpoints, guarded by token. An empty
// token leaves them disabled.
func WithAdminToken(token string) HandlerOption {
	return func(h *Handler) {
		h.adminToken = token
	}
}

// NewHandler creates a new API handler with dependency injection
func NewHandler(engine QueryEngine, accounts Accounts, options ...HandlerOption) *Handler {
	h := &Handler{
		engine:    engine,
		accounts:  accounts,
		startedAt: time.Now(),
	}
	for _, opt := range options {
		opt(h)
	}
	return h
}
