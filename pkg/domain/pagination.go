package domain

import (
	"time"

	"github.com/sarychdb/sarychdb/pkg/document"
)

// Defaults applied when a caller leaves pagination unset.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Browse modes reported back to the caller.
const (
	BrowseModeLimitOnly = "limit_only"
	BrowseModePaginated = "paginated"
	BrowseModeDefault   = "default"
)

// Sort orders accepted by List.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// PageInfo describes the window returned by a paginated read.
type PageInfo struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewPageInfo computes page metadata for total items split into pages of limit.
func NewPageInfo(page, limit, total int) PageInfo {
	totalPages := TotalPages(total, limit)
	return PageInfo{
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// TotalPages returns ceil(total/limit); zero when limit is not positive.
func TotalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return pages
}

// Window returns the [start, end) bounds of a 1-indexed page, clipped to total.
// A page past the end yields an empty window.
// Bounds are checked before multiplying so huge pages or limits cannot wrap.
func Window(page, limit, total int) (int, int) {
	if page < 1 || limit <= 0 || page-1 >= TotalPages(total, limit) {
		return total, total
	}
	start := (page - 1) * limit
	if limit >= total-start {
		return start, total
	}
	return start, start + limit
}

// BrowseResult is returned by Browse. Pagination is nil in limit_only mode.
type BrowseResult struct {
	Mode          string           `json:"mode"`
	Data          []document.Value `json:"data"`
	TotalRecords  int              `json:"total_records"`
	ReturnedCount int              `json:"returned_count"`
	Pagination    *PageInfo        `json:"pagination,omitempty"`
}

// ListResult is returned by List.
type ListResult struct {
	Data            []document.Value `json:"data"`
	TotalRecords    int              `json:"total_records"`
	FilteredRecords int              `json:"filtered_records"`
	ReturnedCount   int              `json:"returned_count"`
	Pagination      PageInfo         `json:"pagination"`
	SortBy          string           `json:"sort_by,omitempty"`
	SortOrder       string           `json:"sort_order"`
}

// SearchResult is returned by Search.
type SearchResult struct {
	Results  []document.Value `json:"results"`
	Count    int              `json:"count"`
	Cached   bool             `json:"cached"`
	Strategy string           `json:"strategy,omitempty"`
}

// Stats describes a collection. LoadTime is informational only.
type Stats struct {
	Database     string        `json:"database"`
	Username     string        `json:"username"`
	TotalRecords int           `json:"total_records"`
	SizeBytes    int64         `json:"size_bytes"`
	LoadTime     time.Duration `json:"-"`
	LoadTimeMS   float64       `json:"load_time_ms"`
	Cached       bool          `json:"cached"`
	Timestamp    string        `json:"timestamp"`
}
