package pagination

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// PageSize is the number of rows per page.
const PageSize = 100

// ErrInvalidPages is returned for malformed page lists.
var ErrInvalidPages = errors.New("invalid page list")

// ParsePages parses a comma separated list of non-negative page indices.
// Whitespace around entries is ignored and an empty string yields no pages.
// The result is sorted ascending without duplicates.
func ParsePages(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []int{}, nil
	}

	seen := make(map[int]bool)
	pages := make([]int, 0, strings.Count(s, ",")+1)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidPages, part)
		}
		if p < 0 {
			return nil, fmt.Errorf("%w: %d is negative", ErrInvalidPages, p)
		}
		if !seen[p] {
			seen[p] = true
			pages = append(pages, p)
		}
	}

	sort.Ints(pages)
	return pages, nil
}

// FormatPages renders pages in the form ParsePages accepts.
func FormatPages(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}

// Offset returns the first row offset of a page.
func Offset(page, perPage int) int {
	return page * perPage
}
