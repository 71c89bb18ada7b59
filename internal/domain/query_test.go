package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDueBucketBounds(t *testing.T) {
	now := time.Date(2026, 5, 10, 14, 30, 0, 0, time.UTC)
	d0 := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		bucket   DueBucket
		wantFrom time.Time
		wantTo   time.Time
	}{
		{DueToday, d0, d0.AddDate(0, 0, 1)},
		{DueWeek, d0, d0.AddDate(0, 0, 7)},
		{DueMonth, d0, d0.AddDate(0, 0, 30)},
		{DueOverdue, time.Time{}, d0},
	}

	for _, tc := range tests {
		t.Run(string(tc.bucket), func(t *testing.T) {
			from, to := tc.bucket.Bounds(now)
			assert.Equal(t, tc.wantFrom, from)
			assert.Equal(t, tc.wantTo, to)
		})
	}
}

func TestParseDueBucket(t *testing.T) {
	b, err := ParseDueBucket("week")
	assert.NoError(t, err)
	assert.Equal(t, DueWeek, b)

	b, err = ParseDueBucket("")
	assert.NoError(t, err)
	assert.Equal(t, DueBucket(""), b)

	_, err = ParseDueBucket("yesterday")
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestPage(t *testing.T) {
	assert.Equal(t, Page{Number: 1, Size: 10}, NewPage(0, 0))
	assert.Equal(t, Page{Number: 3, Size: 100}, NewPage(3, 500))
	assert.Equal(t, 20, NewPage(3, 10).Offset())
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name     string
		page     Page
		total    int
		wantNext *PageRef
		wantPrev *PageRef
	}{
		{"single page", NewPage(1, 10), 4, nil, nil},
		{"first of many", NewPage(1, 10), 25, &PageRef{Page: 2, Limit: 10}, nil},
		{"middle", NewPage(2, 10), 25, &PageRef{Page: 3, Limit: 10}, &PageRef{Page: 1, Limit: 10}},
		{"last exact", NewPage(3, 10), 30, nil, &PageRef{Page: 2, Limit: 10}},
		{"empty", NewPage(1, 10), 0, nil, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pg := tc.page.Paginate(tc.total)
			assert.Equal(t, tc.wantNext, pg.Next)
			assert.Equal(t, tc.wantPrev, pg.Prev)
		})
	}
}
