package domain

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "pdf-workbench/pkg/errors"
)

// PageRange is a user-specified page selector: single 1-based indices,
// inclusive ranges "a-b", or a comma-separated sequence of both, e.g.
// "1,3-5,8". Resolution order follows the selector, not ascending order.
type PageRange struct {
	spec  string
	items []rangeItem
}

type rangeItem struct {
	start int
	end   int
}

// ParsePageRange validates selector syntax. Bounds against a concrete
// document are checked by Resolve.
func ParsePageRange(spec string) (*PageRange, error) {
	trimmed := strings.TrimSpace(spec)
	if trimmed == "" {
		return nil, apperrors.NewInvalidRequest("page range is empty")
	}

	var items []rangeItem
	for _, part := range strings.Split(trimmed, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, apperrors.NewInvalidRequest("page range has an empty segment", spec)
		}
		if idx := strings.Index(part, "-"); idx > 0 {
			start, err := parsePageNumber(part[:idx])
			if err != nil {
				return nil, err
			}
			end, err := parsePageNumber(part[idx+1:])
			if err != nil {
				return nil, err
			}
			if end < start {
				return nil, apperrors.NewInvalidRequest(fmt.Sprintf("range %q is reversed", part))
			}
			items = append(items, rangeItem{start: start, end: end})
			continue
		}
		n, err := parsePageNumber(part)
		if err != nil {
			return nil, err
		}
		items = append(items, rangeItem{start: n, end: n})
	}

	return &PageRange{spec: trimmed, items: items}, nil
}

func parsePageNumber(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, apperrors.NewInvalidRequest(fmt.Sprintf("invalid page number %q", strings.TrimSpace(s)))
	}
	if n < 1 {
		return 0, apperrors.NewInvalidRequest(fmt.Sprintf("page numbers are 1-based, got %d", n))
	}
	return n, nil
}

// String returns the original selector text
func (r *PageRange) String() string {
	return r.spec
}

// Resolve expands the selector against a document of pageCount pages.
// Every resolved index must be within 1..pageCount; out-of-range
// references are an error, never clamped.
func (r *PageRange) Resolve(pageCount int) ([]int, error) {
	var out []int
	for _, item := range r.items {
		if item.end > pageCount {
			return nil, apperrors.NewInvalidRequest(
				fmt.Sprintf("page %d is out of range", item.end),
				fmt.Sprintf("document has %d pages", pageCount))
		}
		for n := item.start; n <= item.end; n++ {
			out = append(out, n)
		}
	}
	return out, nil
}

// Segments resolves the selector as explicit split segments, one [start,end]
// pair per comma-separated part. Singles become one-page segments.
func (r *PageRange) Segments(pageCount int) ([][2]int, error) {
	out := make([][2]int, 0, len(r.items))
	for _, item := range r.items {
		if item.end > pageCount {
			return nil, apperrors.NewInvalidRequest(
				fmt.Sprintf("page %d is out of range", item.end),
				fmt.Sprintf("document has %d pages", pageCount))
		}
		out = append(out, [2]int{item.start, item.end})
	}
	return out, nil
}

// IsPlainList reports whether the selector holds only single indices,
// no "a-b" ranges.
func (r *PageRange) IsPlainList() bool {
	for _, item := range r.items {
		if item.start != item.end {
			return false
		}
	}
	return true
}
