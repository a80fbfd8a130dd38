// AngelaMos | 2026
// request.go

package core

import (
	"fmt"
	"net/http"
	"strconv"
)

// ParsePagination reads limit and offset from the query string. A missing
// limit uses defaultLimit; anything above maxLimit is clamped.
func ParsePagination(
	r *http.Request,
	defaultLimit, maxLimit int,
) (limit, offset int, err error) {
	limit, err = queryInt(r, "limit", defaultLimit)
	if err != nil {
		return 0, 0, err
	}
	offset, err = queryInt(r, "offset", 0)
	if err != nil {
		return 0, 0, err
	}

	if limit < 1 || offset < 0 {
		return 0, 0, fmt.Errorf("limit must be positive and offset non-negative: %w", ErrInvalidInput)
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	return limit, offset, nil
}

func queryInt(r *http.Request, key string, defaultVal int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultVal, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, ErrInvalidInput)
	}
	return v, nil
}
