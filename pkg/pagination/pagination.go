package pagination

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any page query can request.
	MaxLimit = 100
)

// Params holds 1-based page pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Meta describes the page returned to callers.
type Meta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Normalize clamps the page to >= 1 and the limit to the allowed range.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	p.Limit = NormalizeLimit(p.Limit)
	return p
}

// Offset returns the row offset of the normalized page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// MetaFor builds the response metadata for a total row count.
func (p Params) MetaFor(total int64) Meta {
	n := p.Normalize()
	pages := int((total + int64(n.Limit) - 1) / int64(n.Limit))
	return Meta{Page: n.Page, Limit: n.Limit, Total: total, Pages: pages}
}

// FromQuery reads page and limit from URL query values. Malformed numbers fall back to defaults.
func FromQuery(values url.Values) Params {
	return Params{
		Page:  atoi(values.Get("page")),
		Limit: atoi(values.Get("limit")),
	}.Normalize()
}

func atoi(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return v
}
