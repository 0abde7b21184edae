// Package query filters and sorts board summaries. It holds no state and
// never mutates its input.
package query

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"flowboard/internal/domain"
)

type SortKey string

const (
	SortByName      SortKey = "name"
	SortByCreatedAt SortKey = "createdAt"
	SortByUpdatedAt SortKey = "updatedAt"
)

type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Options is what a board list view asks for. The zero value sorts by
// updatedAt, newest first.
type Options struct {
	Search string
	SortBy SortKey
	Order  Order
}

// ParseSortKey accepts "", "name", "createdAt" and "updatedAt".
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case "":
		return SortByUpdatedAt, nil
	case SortByName, SortByCreatedAt, SortByUpdatedAt:
		return SortKey(s), nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// ParseOrder accepts "", "asc" and "desc".
func ParseOrder(s string) (Order, error) {
	switch Order(strings.ToLower(s)) {
	case "":
		return Desc, nil
	case Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

// Apply filters then sorts.
func Apply(items []domain.BoardListItem, opts Options) []domain.BoardListItem {
	by := opts.SortBy
	if by == "" {
		by = SortByUpdatedAt
	}
	order := opts.Order
	if order == "" {
		order = Desc
	}
	return Sort(Filter(items, opts.Search), by, order)
}

// Filter keeps summaries whose name or description contains term,
// case-insensitively. An empty term keeps everything.
func Filter(items []domain.BoardListItem, term string) []domain.BoardListItem {
	if term == "" {
		return append([]domain.BoardListItem(nil), items...)
	}
	needle := strings.ToLower(term)
	return lo.Filter(items, func(b domain.BoardListItem, _ int) bool {
		return strings.Contains(strings.ToLower(b.Name), needle) ||
			strings.Contains(strings.ToLower(b.Description), needle)
	})
}

// Sort returns a stably sorted copy. Names compare case-insensitively;
// timestamps chronologically. Desc inverts the comparison, so equal keys
// keep their relative order in both directions.
func Sort(items []domain.BoardListItem, by SortKey, order Order) []domain.BoardListItem {
	out := append([]domain.BoardListItem(nil), items...)
	cmp := comparator(by)
	sort.SliceStable(out, func(i, j int) bool {
		if order == Desc {
			return cmp(out[j], out[i]) < 0
		}
		return cmp(out[i], out[j]) < 0
	})
	return out
}

func comparator(by SortKey) func(a, b domain.BoardListItem) int {
	switch by {
	case SortByName:
		return func(a, b domain.BoardListItem) int {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
	case SortByCreatedAt:
		return func(a, b domain.BoardListItem) int { return compareTime(a.CreatedAt, b.CreatedAt) }
	default:
		return func(a, b domain.BoardListItem) int { return compareTime(a.UpdatedAt, b.UpdatedAt) }
	}
}

// compareTime orders parseable timestamps chronologically and falls back to
// string order for anything else.
func compareTime(a, b string) int {
	ta, errA := domain.ParseTimestamp(a)
	tb, errB := domain.ParseTimestamp(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return compareInstant(ta, tb)
}

func compareInstant(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
