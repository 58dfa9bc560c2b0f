package controller

import (
	"math"
	"net/http"
	"strconv"
)

const (
	defaultLimit = 50
	maxLimit     = 100
)

// pageSpec carries cursor pagination parameters. Cursors are opaque strings:
// an address for entity listings, a block/event-index pair for event history.
type pageSpec struct {
	Limit  int
	Cursor string
}

func parsePageSpec(r *http.Request) (pageSpec, error) {
	qs := r.URL.Query()
	limit := defaultLimit
	if v := qs.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err != nil || n <= 0 {
			return pageSpec{}, errInvalidLimit
		} else {
			limit = int(math.Min(float64(n), maxLimit))
		}
	}

	return pageSpec{Limit: limit, Cursor: qs.Get("cursor")}, nil
}

type pagedResponse[T any] struct {
	Data       []T     `json:"data"`
	Limit      int     `json:"limit"`
	NextCursor *string `json:"next_cursor,omitempty"`
}

var errInvalidLimit = &parseError{msg: "invalid limit"}

type parseError struct{ msg string }

func (e *parseError) Error() string { return e.msg }
