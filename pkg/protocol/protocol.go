// Package protocol decodes sarychdb:// request URLs of the form
//
//	sarychdb://<user>@<password>/<database>/<operation>?query=...&page=...
//
// into a Request.
package protocol

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/sarychdb/sarychdb/pkg/domain"
	"github.com/sarychdb/sarychdb/pkg/match"
)

// Scheme prefixes every request URL.
const Scheme = "sarychdb://"

// Operations understood by the server.
const (
	OpGet     = "get"
	OpBrowse  = "browse"
	OpList    = "list"
	OpPost    = "post"
	OpPut     = "put"
	OpDelete  = "delete"
	OpStats   = "stats"
	OpBackup  = "backup"
	OpRestore = "restore"
)

// Request is a decoded sarychdb:// URL.
type Request struct {
	Username  string
	Password  string
	Database  string
	Operation string

	Query     string
	QueryType string
	IDUpdate  string
	Page      *int
	Limit     *int
	SortBy    string
	SortOrder string
	Filters   match.FilterSet

	rawFilters string
}

// Parse decodes raw. Every failure is an invalid-argument error.
func Parse(raw string) (*Request, error) {
	rest, ok := strings.CutPrefix(raw, Scheme)
	if !ok {
		return nil, invalid("URL must start with %s", Scheme)
	}

	mainPart, queryString, _ := strings.Cut(rest, "?")
	parts := strings.Split(mainPart, "/")
	if len(parts) < 3 {
		return nil, invalid("invalid format, use %suser@password/database/operation", Scheme)
	}

	credentials := strings.Split(parts[0], "@")
	if len(credentials) != 2 {
		return nil, invalid("invalid authentication format, use user@password")
	}
	req := &Request{
		Username:  credentials[0],
		Password:  credentials[1],
		Database:  parts[1],
		Operation: strings.ToLower(parts[2]),
	}
	if req.Username == "" || req.Password == "" {
		return nil, invalid("username and password cannot be empty")
	}
	if req.Database == "" {
		return nil, invalid("database cannot be empty")
	}
	if req.Operation == "" {
		return nil, invalid("operation cannot be empty")
	}

	params, err := url.ParseQuery(queryString)
	if err != nil {
		return nil, domain.WrapError(domain.KindInvalidArgument, err, "invalid query string")
	}
	if err := req.applyParams(params); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *Request) applyParams(params url.Values) error {
	r.Query = params.Get("query")
	r.IDUpdate = params.Get("idUpdate")
	r.SortBy = params.Get("sortBy")

	r.QueryType = strings.ToLower(params.Get("queryType"))
	switch r.QueryType {
	case "", "key", "value":
	default:
		return invalid("queryType must be key or value, got %q", r.QueryType)
	}

	r.SortOrder = strings.ToLower(params.Get("sortOrder"))
	switch r.SortOrder {
	case "", domain.SortAsc, domain.SortDesc:
	default:
		return invalid("sortOrder must be asc or desc, got %q", r.SortOrder)
	}

	var err error
	if r.Page, err = positiveInt(params, "page"); err != nil {
		return err
	}
	if r.Limit, err = positiveInt(params, "limit"); err != nil {
		return err
	}

	if params.Has("filters") {
		r.rawFilters = params.Get("filters")
		if r.Filters, err = match.ParseFilterSet(r.rawFilters); err != nil {
			return domain.WrapError(domain.KindInvalidArgument, err, "invalid filters parameter")
		}
	}
	return nil
}

// HasListParams reports whether the request asks for filtering or sorting.
func (r *Request) HasListParams() bool {
	return r.rawFilters != "" || r.SortBy != ""
}

// HasPagination reports whether page or limit was given.
func (r *Request) HasPagination() bool {
	return r.Page != nil || r.Limit != nil
}

// URL renders the request back into a sarychdb:// URL.
func (r *Request) URL() string {
	var b strings.Builder
	b.WriteString(Scheme)
	b.WriteString(r.Username)
	b.WriteByte('@')
	b.WriteString(r.Password)
	b.WriteByte('/')
	b.WriteString(r.Database)
	b.WriteByte('/')
	b.WriteString(r.Operation)

	params := url.Values{}
	setIf := func(key, value string) {
		if value != "" {
			params.Set(key, value)
		}
	}
	setIf("query", r.Query)
	setIf("queryType", r.QueryType)
	setIf("idUpdate", r.IDUpdate)
	setIf("sortBy", r.SortBy)
	setIf("sortOrder", r.SortOrder)
	setIf("filters", r.rawFilters)
	if r.Page != nil {
		params.Set("page", strconv.Itoa(*r.Page))
	}
	if r.Limit != nil {
		params.Set("limit", strconv.Itoa(*r.Limit))
	}
	if len(params) > 0 {
		b.WriteByte('?')
		b.WriteString(params.Encode())
	}
	return b.String()
}

// WithFilters sets the raw filters literal used by URL.
func (r *Request) WithFilters(raw string) *Request {
	r.rawFilters = raw
	return r
}

func positiveInt(params url.Values, key string) (*int, error) {
	if !params.Has(key) {
		return nil, nil
	}
	raw := params.Get(key)
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return nil, invalid("%s must be a positive integer, got %q", key, raw)
	}
	return &n, nil
}

func invalid(format string, args ...interface{}) error {
	return domain.NewError(domain.KindInvalidArgument, format, args...)
}
