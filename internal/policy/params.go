package policy

import (
	"strconv"
	"strings"

	"github.com/iliyamo/language-academy/internal/apperr"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// ParseID parses a positive integer identifier taken from a path or body.
// Non-numeric, negative and zero values are rejected with INVALID_ID before
// any policy rule runs.
func ParseID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation(apperr.CodeInvalidID, "invalid id")
	}
	return id, nil
}

// Page is a validated limit/offset pair.
type Page struct {
	Limit  int
	Offset int
}

// ParsePage validates admin pagination input.  An empty limit defaults to
// DefaultPageLimit, numeric limits are clamped to [1, MaxPageLimit] and a
// negative offset is rejected.
func ParsePage(limitRaw, offsetRaw string) (Page, error) {
	p := Page{Limit: DefaultPageLimit}
	if s := strings.TrimSpace(limitRaw); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Page{}, apperr.Validation("INVALID_LIMIT", "limit must be an integer")
		}
		p.Limit = ClampLimit(n)
	}
	if s := strings.TrimSpace(offsetRaw); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return Page{}, apperr.Validation("INVALID_OFFSET", "offset must be a non-negative integer")
		}
		p.Offset = n
	}
	return p, nil
}

// ClampLimit clamps n into [1, MaxPageLimit].
func ClampLimit(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxPageLimit {
		return MaxPageLimit
	}
	return n
}
