package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/sarychdb/sarychdb/pkg/document"
	"github.com/sarychdb/sarychdb/pkg/domain"
	"github.com/sarychdb/sarychdb/pkg/engine"
	"github.com/sarychdb/sarychdb/pkg/logger"
	"github.com/sarychdb/sarychdb/pkg/protocol"
)

// maxBodyBytes caps the JSON body accepted by the sarych endpoint.
const maxBodyBytes = 10 << 20

// SearchResponse is returned by get.
type SearchResponse struct {
	Operation string           `json:"operation"`
	Database  string           `json:"database"`
	Query     string           `json:"query"`
	QueryType string           `json:"query_type,omitempty"`
	Results   []document.Value `json:"results"`
	Count     int              `json:"count"`
	Cached    bool             `json:"cached"`
	Strategy  string           `json:"strategy,omitempty"`
}

// BrowseResponse is returned by browse, and by get with only page or limit.
type BrowseResponse struct {
	Operation string `json:"operation"`
	Database  string `json:"database"`
	*domain.BrowseResult
}

// ListResponse is returned by list, and by get with filters or sortBy.
type ListResponse struct {
	Operation string `json:"operation"`
	Database  string `json:"database"`
	*domain.ListResult
}

// WriteResponse is returned by post, put and delete.
type WriteResponse struct {
	Operation string          `json:"operation"`
	Database  string          `json:"database"`
	Query     string          `json:"query,omitempty"`
	ID        string          `json:"id,omitempty"`
	Affected  *int            `json:"affected,omitempty"`
	Document  *document.Value `json:"document,omitempty"`
	Message   string          `json:"message"`
}

// SnapshotResponse is returned by backup and restore.
type SnapshotResponse struct {
	Operation string `json:"operation"`
	*domain.SnapshotInfo
}

// HandleSarych decodes the sarychdb:// URL in the url query parameter,
// authorizes it and dispatches its operation. post and put read their
// document from the JSON body. A get carrying filters or sortBy is a list, so
// it cannot also carry a query.
func (h *Handler) HandleSarych(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		WriteJSONError(w, http.StatusBadRequest, "url parameter is required")
		return
	}

	req, err := protocol.Parse(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, log := logger.With(r.Context(),
		zap.String("user", req.Username),
		zap.String("database", req.Database),
		zap.String("operation", req.Operation),
	)
	r = r.WithContext(ctx)

	if err := h.accounts.Authorize(req.Username, req.Password, req.Database); err != nil {
		writeError(w, r, err)
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status, response, err := h.dispatch(req, body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.Debug("operation completed", zap.Int("status", status))
	writeJSON(w, status, response)
}

func (h *Handler) dispatch(req *protocol.Request, body *document.Value) (int, interface{}, error) {
	owner, db := req.Username, req.Database

	switch req.Operation {
	case protocol.OpGet:
		if req.HasListParams() {
			if req.Query != "" {
				return 0, nil, domain.NewError(domain.KindInvalidArgument, "query cannot be combined with filters or sortBy; use list")
			}
			return h.list(req)
		}
		if req.HasPagination() && req.Query == "" {
			return h.browse(req)
		}
		mode, err := engine.ParseQueryMode(req.QueryType)
		if err != nil {
			return 0, nil, err
		}
		result, err := h.engine.Search(owner, db, req.Query, mode)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, SearchResponse{
			Operation: req.Operation,
			Database:  db,
			Query:     req.Query,
			QueryType: req.QueryType,
			Results:   result.Results,
			Count:     result.Count,
			Cached:    result.Cached,
			Strategy:  result.Strategy,
		}, nil

	case protocol.OpBrowse:
		return h.browse(req)

	case protocol.OpList:
		return h.list(req)

	case protocol.OpPost:
		if body == nil {
			return 0, nil, domain.NewError(domain.KindNotApplicable, "a JSON body is required for post")
		}
		stored, err := h.engine.Insert(owner, db, *body)
		if err != nil {
			return 0, nil, err
		}
		response := WriteResponse{
			Operation: req.Operation,
			Database:  db,
			Document:  &stored,
			Message:   "Record inserted successfully",
		}
		if id, ok := stored.Get(domain.FieldID); ok {
			response.ID, _ = id.AsString()
		}
		return http.StatusCreated, response, nil

	case protocol.OpPut:
		if body == nil {
			return 0, nil, domain.NewError(domain.KindNotApplicable, "a JSON body is required for put")
		}
		n, err := h.engine.Update(owner, db, req.Query, req.IDUpdate, *body)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, WriteResponse{
			Operation: req.Operation,
			Database:  db,
			Query:     req.Query,
			ID:        req.IDUpdate,
			Affected:  &n,
			Message:   fmt.Sprintf("Updated %d records", n),
		}, nil

	case protocol.OpDelete:
		n, err := h.engine.Delete(owner, db, req.Query)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, WriteResponse{
			Operation: req.Operation,
			Database:  db,
			Query:     req.Query,
			Affected:  &n,
			Message:   fmt.Sprintf("Deleted %d records", n),
		}, nil

	case protocol.OpStats:
		stats, err := h.engine.Stats(owner, db)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, stats, nil

	case protocol.OpBackup:
		info, err := h.engine.Backup(owner, db)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, SnapshotResponse{Operation: req.Operation, SnapshotInfo: info}, nil

	case protocol.OpRestore:
		info, err := h.engine.Restore(owner, db)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, SnapshotResponse{Operation: req.Operation, SnapshotInfo: info}, nil
	}

	return 0, nil, domain.NewError(domain.KindInvalidArgument, "unsupported operation %q", req.Operation)
}

func (h *Handler) browse(req *protocol.Request) (int, interface{}, error) {
	result, err := h.engine.Browse(req.Username, req.Database, req.Page, req.Limit)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, BrowseResponse{Operation: req.Operation, Database: req.Database, BrowseResult: result}, nil
}

func (h *Handler) list(req *protocol.Request) (int, interface{}, error) {
	result, err := h.engine.List(req.Username, req.Database, engine.ListOptions{
		Page:      req.Page,
		Limit:     req.Limit,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
		Filters:   req.Filters,
	})
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, ListResponse{Operation: req.Operation, Database: req.Database, ListResult: result}, nil
}

// readBody returns the decoded JSON body, or nil when the body is empty.
func readBody(w http.ResponseWriter, r *http.Request) (*document.Value, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, domain.WrapError(domain.KindInvalidArgument, err, "failed to read request body")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	v, err := document.Parse(data)
	if err != nil {
		return nil, domain.WrapError(domain.KindInvalidArgument, err, "invalid JSON body")
	}
	return &v, nil
}
