package engine

import (
	"cmp"
	"slices"
	"strings"

	"github.com/sarychdb/sarychdb/pkg/document"
	"github.com/sarychdb/sarychdb/pkg/domain"
	"github.com/sarychdb/sarychdb/pkg/match"
	"github.com/sarychdb/sarychdb/pkg/metrics"
)

// Browse pages through a collection in stored order. page and limit are
// optional: limit alone returns the first limit documents, both select a
// 1-indexed page, page alone is an error, and neither returns page 1 of 10.
func (e *Engine) Browse(owner, name string, page, limit *int) (*domain.BrowseResult, error) {
	result, err := e.browse(owner, name, page, limit)
	metrics.OperationsTotal.WithLabelValues("browse", metrics.Status(err)).Inc()
	return result, err
}

func (e *Engine) browse(owner, name string, page, limit *int) (*domain.BrowseResult, error) {
	if page != nil && limit == nil {
		return nil, domain.NewError(domain.KindInvalidArgument, "page requires limit")
	}
	if limit != nil && *limit <= 0 {
		return nil, domain.NewError(domain.KindInvalidArgument, "limit must be a positive integer, got %d", *limit)
	}

	docs, _, err := e.loadAll(owner, name)
	if err != nil {
		return nil, err
	}
	total := len(docs)

	if page == nil && limit != nil {
		end := min(*limit, total)
		return &domain.BrowseResult{
			Mode:          domain.BrowseModeLimitOnly,
			Data:          docs[:end],
			TotalRecords:  total,
			ReturnedCount: end,
		}, nil
	}

	mode := domain.BrowseModeDefault
	p, l := domain.DefaultPage, domain.DefaultLimit
	if page != nil {
		mode = domain.BrowseModePaginated
		p, l = max(*page, 1), *limit
	}

	start, end := domain.Window(p, l, total)
	info := domain.NewPageInfo(p, l, total)
	return &domain.BrowseResult{
		Mode:          mode,
		Data:          docs[start:end],
		TotalRecords:  total,
		ReturnedCount: end - start,
		Pagination:    &info,
	}, nil
}

// ListOptions configures List. Nil Page and Limit take the defaults.
type ListOptions struct {
	Page      *int
	Limit     *int
	SortBy    string
	SortOrder string
	Filters   match.FilterSet
}

// List filters, then stable-sorts, then paginates a collection.
func (e *Engine) List(owner, name string, opts ListOptions) (*domain.ListResult, error) {
	result, err := e.list(owner, name, opts)
	metrics.OperationsTotal.WithLabelValues("list", metrics.Status(err)).Inc()
	return result, err
}

func (e *Engine) list(owner, name string, opts ListOptions) (*domain.ListResult, error) {
	page, limit := domain.DefaultPage, domain.DefaultLimit
	if opts.Page != nil {
		page = max(*opts.Page, 1)
	}
	if opts.Limit != nil {
		if *opts.Limit <= 0 {
			return nil, domain.NewError(domain.KindInvalidArgument, "limit must be a positive integer, got %d", *opts.Limit)
		}
		limit = *opts.Limit
	}
	order := domain.SortAsc
	if strings.EqualFold(opts.SortOrder, domain.SortDesc) {
		order = domain.SortDesc
	}

	docs, _, err := e.loadAll(owner, name)
	if err != nil {
		return nil, err
	}
	total := len(docs)

	filtered := docs
	if len(opts.Filters) > 0 {
		filtered = make([]document.Value, 0, len(docs))
		for _, doc := range docs {
			if opts.Filters.Matches(doc) {
				filtered = append(filtered, doc)
			}
		}
	}

	if opts.SortBy != "" {
		SortDocuments(filtered, opts.SortBy, order == domain.SortDesc)
	}

	start, end := domain.Window(page, limit, len(filtered))
	return &domain.ListResult{
		Data:            filtered[start:end],
		TotalRecords:    total,
		FilteredRecords: len(filtered),
		ReturnedCount:   end - start,
		Pagination:      domain.NewPageInfo(page, limit, len(filtered)),
		SortBy:          opts.SortBy,
		SortOrder:       order,
	}, nil
}

// SortDocuments stable-sorts docs by field. Descending order reverses the
// whole comparison, so documents missing the field come last.
func SortDocuments(docs []document.Value, field string, desc bool) {
	slices.SortStableFunc(docs, func(a, b document.Value) int {
		c := CompareField(a, b, field)
		if desc {
			return -c
		}
		return c
	})
}

// CompareField orders two documents by field. A missing field sorts first;
// strings compare lexically, numbers numerically, false before true; any other
// pairing is equal.
func CompareField(a, b document.Value, field string) int {
	av, aok := a.Get(field)
	bv, bok := b.Get(field)
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}

	switch {
	case av.Kind() == document.KindString && bv.Kind() == document.KindString:
		as, _ := av.AsString()
		bs, _ := bv.AsString()
		return strings.Compare(as, bs)
	case av.Kind() == document.KindNumber && bv.Kind() == document.KindNumber:
		af, aok := av.AsFloat()
		bf, bok := bv.AsFloat()
		if !aok || !bok {
			return 0
		}
		return cmp.Compare(af, bf)
	case av.Kind() == document.KindBool && bv.Kind() == document.KindBool:
		ab, _ := av.AsBool()
		bb, _ := bv.AsBool()
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	}
	return 0
}
