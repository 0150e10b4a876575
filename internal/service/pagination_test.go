package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		start   int
		wantLen int
		wantEnd int
	}{
		{"empty", 0, 0, 0, -1},
		{"short", 10, 0, 10, -1},
		{"exactly one page", PageSize, 0, PageSize, -1},
		{"one more than a page", PageSize + 1, 0, PageSize, PageSize},
		{"last partial page", 120, 100, 20, -1},
		{"middle page", 200, 50, PageSize, 100},
		{"start at end", 30, 30, 0, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := seq(tt.total)
			window, end, err := Paginate(items, tt.start)
			require.NoError(t, err)
			assert.Len(t, window, tt.wantLen)
			assert.Equal(t, tt.wantEnd, end)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.start, window[0])
			}
		})
	}
}

func TestPaginateOutOfRange(t *testing.T) {
	for _, start := range []int{-1, 11} {
		_, _, err := Paginate(seq(10), start)
		assert.ErrorIs(t, err, ErrOutOfRange, "start=%d", start)
	}
}
