// Package pagination reads REST-style paging parameters (limit, startIndex)
// and builds the matching next/prev links.
package pagination

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Limit      int
	StartIndex int
}

// FromContext extracts pagination parameters from the echo context.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	start, _ := strconv.Atoi(c.QueryParam("startIndex"))
	if start < 0 {
		start = 0
	}

	return Params{Limit: limit, StartIndex: start}
}

// Window returns the [lo, hi) bounds of the page within total items.
func (p Params) Window(total int) (lo, hi int) {
	lo = min(p.StartIndex, total)
	hi = min(lo+p.Limit, total)
	return lo, hi
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.StartIndex+p.Limit < total
}

// HasPrevious returns true if there are results before the current page.
func (p Params) HasPrevious() bool {
	return p.StartIndex > 0
}

// Link is a paging link in a results envelope.
type Link struct {
	Rel string `json:"rel"`
	URI string `json:"uri"`
}

// Links returns next/prev links for basePath, or nil on a single page.
func (p Params) Links(basePath string, total int) []Link {
	var links []Link
	if p.HasNext(total) {
		links = append(links, Link{
			Rel: "next",
			URI: fmt.Sprintf("%s?limit=%d&startIndex=%d", basePath, p.Limit, p.StartIndex+p.Limit),
		})
	}
	if p.HasPrevious() {
		links = append(links, Link{
			Rel: "prev",
			URI: fmt.Sprintf("%s?limit=%d&startIndex=%d", basePath, p.Limit, max(p.StartIndex-p.Limit, 0)),
		})
	}
	return links
}
