package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zxoir/twitter-month-archiver/pkg/twitter"
)

func TestMonthBounds(t *testing.T) {
	tests := []struct {
		name      string
		year      int
		month     int
		wantStart string
		wantEnd   string
	}{
		{
			name:      "february in a leap year",
			year:      2024,
			month:     2,
			wantStart: "2024-02-01T00:00:00Z",
			wantEnd:   "2024-03-01T00:00:00Z",
		},
		{
			name:      "december rolls into the next year",
			year:      2023,
			month:     12,
			wantStart: "2023-12-01T00:00:00Z",
			wantEnd:   "2024-01-01T00:00:00Z",
		},
		{
			name:      "thirty day month",
			year:      2024,
			month:     4,
			wantStart: "2024-04-01T00:00:00Z",
			wantEnd:   "2024-05-01T00:00:00Z",
		},
		{
			name:      "january",
			year:      2025,
			month:     1,
			wantStart: "2025-01-01T00:00:00Z",
			wantEnd:   "2025-02-01T00:00:00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := MonthBounds(tt.year, tt.month)
			assert.Equal(t, tt.wantStart, w.StartISO())
			assert.Equal(t, tt.wantEnd, w.EndISO())
			assert.True(t, w.Start.Before(w.End))
		})
	}
}

func TestParseMonth(t *testing.T) {
	t.Run("valid month", func(t *testing.T) {
		w, err := ParseMonth("2024-02")
		require.NoError(t, err)
		assert.Equal(t, "2024-02-01T00:00:00Z", w.StartISO())
		assert.Equal(t, "2024-03-01T00:00:00Z", w.EndISO())
	})

	t.Run("invalid input", func(t *testing.T) {
		for _, input := range []string{"", "2024", "2024-13", "02-2024", "2024-02-01", "garbage"} {
			_, err := ParseMonth(input)
			assert.Error(t, err, "input %q", input)
		}
	})
}

func TestWindowContains(t *testing.T) {
	w := MonthBounds(2024, 2)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"exactly at start", w.Start, true},
		{"middle of month", time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC), true},
		{"last instant before end", w.End.Add(-time.Nanosecond), true},
		{"exactly at end", w.End, false},
		{"before start", w.Start.Add(-time.Second), false},
		{"following month", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.Contains(tt.at))
		})
	}
}

func TestFilter(t *testing.T) {
	w := MonthBounds(2024, 2)

	inside := twitter.Post{"id": "1", "created_at": "2024-02-10T08:00:00Z"}
	atStart := twitter.Post{"id": "2", "created_at": "2024-02-01T00:00:00Z"}
	before := twitter.Post{"id": "3", "created_at": "2024-01-31T23:59:59Z"}
	atEnd := twitter.Post{"id": "4", "created_at": "2024-03-01T00:00:00Z"}
	noTimestamp := twitter.Post{"id": "5"}
	badTimestamp := twitter.Post{"id": "6", "created_at": "not a date"}

	t.Run("keeps only posts inside the window", func(t *testing.T) {
		kept := Filter([]twitter.Post{inside, atStart, before, atEnd}, w)
		require.Len(t, kept, 2)
		assert.Equal(t, "1", kept[0].ID())
		assert.Equal(t, "2", kept[1].ID())
	})

	t.Run("posts without a parseable timestamp are kept", func(t *testing.T) {
		kept := Filter([]twitter.Post{noTimestamp, badTimestamp, before}, w)
		require.Len(t, kept, 2)
		assert.Equal(t, "5", kept[0].ID())
		assert.Equal(t, "6", kept[1].ID())
	})

	t.Run("preserves order", func(t *testing.T) {
		kept := Filter([]twitter.Post{atStart, noTimestamp, inside}, w)
		require.Len(t, kept, 3)
		assert.Equal(t, "2", kept[0].ID())
		assert.Equal(t, "5", kept[1].ID())
		assert.Equal(t, "1", kept[2].ID())
	})

	t.Run("empty input yields empty non-nil result", func(t *testing.T) {
		kept := Filter(nil, w)
		assert.NotNil(t, kept)
		assert.Empty(t, kept)
	})

	t.Run("filtering is idempotent", func(t *testing.T) {
		once := Filter([]twitter.Post{inside, before, atEnd, noTimestamp}, w)
		twice := Filter(once, w)
		assert.Equal(t, once, twice)
	})
}
