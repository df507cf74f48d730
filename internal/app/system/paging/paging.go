// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// DefaultLimit is the page size when the client does not ask for one.
const DefaultLimit = 100

// MaxLimit caps the page size a client may request.
const MaxLimit = 500

// MaxPage caps the page number so the skip stays well inside int64.
const MaxPage = 1_000_000

// Page is an offset window parsed from ?page=&limit=. Page is 1-based.
type Page struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Parse reads page and limit. Missing or malformed values fall back to the
// defaults; page is clamped to MaxPage and limit to MaxLimit.
func Parse(r *http.Request) Page {
	return Page{
		Page:  clamp(parsePositive(query.Get(r, "page"), 1), MaxPage),
		Limit: clamp(parsePositive(query.Get(r, "limit"), DefaultLimit), MaxLimit),
	}
}

// Offset is the number of rows to skip.
func (p Page) Offset() int64 { return int64(p.Page-1) * int64(p.Limit) }

// Limit64 is Limit as int64 for options.Find().SetLimit.
func (p Page) Limit64() int64 { return int64(p.Limit) }

// Meta is the pagination block returned alongside list results.
type Meta struct {
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	HasNext bool  `json:"hasNext"`
}

// MetaFor builds Meta for a page that matched total rows.
func (p Page) MetaFor(total int64) Meta {
	return Meta{
		Page:    p.Page,
		Limit:   p.Limit,
		Total:   total,
		HasNext: p.Offset()+int64(p.Limit) < total,
	}
}

func parsePositive(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func clamp(n, ceiling int) int {
	if n > ceiling {
		return ceiling
	}
	return n
}
