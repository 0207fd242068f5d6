package pagination

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200

	// TotalCountHeader carries the unpaged result count on list responses.
	TotalCountHeader = "X-Total-Count"
	LinkHeader       = "Link"
)

// Params holds the limit/offset window of a list request.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads limit and offset from the query string, clamping limit
// to (0, MaxLimit] and offset to >= 0.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

// SetTotal writes the total count header on the response.
func SetTotal(c echo.Context, total int) {
	c.Response().Header().Set(TotalCountHeader, strconv.Itoa(total))
}

// SetPageHeaders writes the total count and, when more results follow the
// current window, a Link header pointing at the next page.
func SetPageHeaders(c echo.Context, p Params, total int) {
	SetTotal(c, total)
	if !p.HasNext(total) {
		return
	}
	next := *c.Request().URL
	q := next.Query()
	q.Set("limit", strconv.Itoa(p.Limit))
	q.Set("offset", strconv.Itoa(p.Offset+p.Limit))
	next.RawQuery = q.Encode()
	c.Response().Header().Set(LinkHeader, fmt.Sprintf(`<%s>; rel="next"`, next.RequestURI()))
}
