package domain

import (
	"fmt"
	"time"
)

// DueBucket selects tasks by due date relative to the start of the current day.
type DueBucket string

// Supported due date buckets
const (
	DueToday   DueBucket = "today"
	DueWeek    DueBucket = "week"
	DueMonth   DueBucket = "month"
	DueOverdue DueBucket = "overdue"
)

// ErrInvalidDueBucket is returned for an unknown dueDate filter value.
var ErrInvalidDueBucket = fmt.Errorf("%w: unknown due date filter", ErrInvalidFormat)

// ParseDueBucket converts a query value into a DueBucket. An empty value means no bucket.
func ParseDueBucket(value string) (DueBucket, error) {
	b := DueBucket(value)
	switch b {
	case "", DueToday, DueWeek, DueMonth, DueOverdue:
		return b, nil
	}
	return "", NewValidationError("dueDate", "must be one of today, week, month, overdue", ErrInvalidDueBucket)
}

// StartOfDay truncates t to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Bounds returns the half-open due date window [from, to) for the bucket.
// For DueOverdue only `to` is meaningful: tasks due before it that are not completed.
func (b DueBucket) Bounds(now time.Time) (from, to time.Time) {
	d0 := StartOfDay(now)
	switch b {
	case DueToday:
		return d0, d0.AddDate(0, 0, 1)
	case DueWeek:
		return d0, d0.AddDate(0, 0, 7)
	case DueMonth:
		return d0, d0.AddDate(0, 0, 30)
	case DueOverdue:
		return time.Time{}, d0
	}
	return time.Time{}, time.Time{}
}

// Pagination defaults
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page is a 1-based offset page request.
type Page struct {
	Number int
	Size   int
}

// NewPage normalizes a page request: non-positive values fall back to the defaults
// and the size is capped at MaxPageSize.
func NewPage(number, size int) Page {
	if number < 1 {
		number = DefaultPage
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return Page{Number: number, Size: size}
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// PageRef points at an adjacent page.
type PageRef struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Pagination carries links to the neighbouring pages, if any.
type Pagination struct {
	Next *PageRef `json:"next,omitempty"`
	Prev *PageRef `json:"prev,omitempty"`
}

// Paginate computes the neighbouring pages for a result set of total items.
func (p Page) Paginate(total int) Pagination {
	var pg Pagination
	if p.Offset()+p.Size < total {
		pg.Next = &PageRef{Page: p.Number + 1, Limit: p.Size}
	}
	if p.Offset() > 0 {
		pg.Prev = &PageRef{Page: p.Number - 1, Limit: p.Size}
	}
	return pg
}
