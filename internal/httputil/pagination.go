package httputil

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Key listings grow by one entry per rotation, so a single page normally
// holds every version.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

var (
	errInvalidOffset = errors.New("invalid offset parameter: must be a non-negative integer")
	errInvalidLimit  = errors.New("invalid limit parameter: must be between 1 and " + strconv.Itoa(MaxPageLimit))
)

// Page is an offset/limit window over an ordered listing.
type Page struct {
	Offset int
	Limit  int
}

// ParsePage reads the offset and limit query parameters, defaulting to the
// first DefaultPageLimit entries.
func ParsePage(c *gin.Context) (Page, error) {
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		return Page{}, errInvalidOffset
	}

	limit, err := queryInt(c, "limit", DefaultPageLimit)
	if err != nil || limit < 1 || limit > MaxPageLimit {
		return Page{}, errInvalidLimit
	}

	return Page{Offset: offset, Limit: limit}, nil
}

func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// Window returns the items inside p, capped so appending to the result never
// writes into items. An offset past the end yields an empty slice.
func Window[T any](items []T, p Page) []T {
	start := min(p.Offset, len(items))
	end := min(start+p.Limit, len(items))
	return items[start:end:end]
}
