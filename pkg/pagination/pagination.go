package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is a normalized page request. Offset is derived from Page and Limit.
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Parse reads ?page= and ?limit= from the request.
func Parse(c *gin.Context) Params {
	return FromQuery(c.Query("page"), c.Query("limit"))
}

// FromQuery never fails: unparsable or out of range values fall back to the
// defaults and limit is capped at MaxLimit.
func FromQuery(page, limit string) Params {
	p, err := strconv.Atoi(page)
	if err != nil || p < 1 {
		p = DefaultPage
	}
	l, err := strconv.Atoi(limit)
	if err != nil || l < 1 {
		l = DefaultLimit
	}
	if l > MaxLimit {
		l = MaxLimit
	}
	return Params{Page: p, Limit: l, Offset: (p - 1) * l}
}

// TotalPages is the number of pages needed for total items; zero items is zero pages.
func (p Params) TotalPages(total int64) int {
	if total <= 0 || p.Limit <= 0 {
		return 0
	}
	return int((total + int64(p.Limit) - 1) / int64(p.Limit))
}
