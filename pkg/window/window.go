// Package window computes and applies the UTC month window that bounds an
// export. The window is half-open: a post at exactly Start is inside, a post
// at exactly End belongs to the following month.
package window

import (
	"fmt"
	"time"

	"github.com/Zxoir/twitter-month-archiver/pkg/twitter"
)

// Window is an immutable half-open UTC interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// MonthBounds returns the window covering the given calendar month in UTC.
// Start is midnight on the 1st; End is midnight on the 1st of the following
// month, so month length and year rollover need no special casing.
func MonthBounds(year, month int) Window {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return Window{
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}
}

// ParseMonth parses a YYYY-MM string into its month window.
func ParseMonth(s string) (Window, error) {
	t, err := time.ParseInLocation("2006-01", s, time.UTC)
	if err != nil {
		return Window{}, fmt.Errorf("invalid month %q: expected YYYY-MM: %w", s, err)
	}
	return MonthBounds(t.Year(), int(t.Month())), nil
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// StartISO returns the window start as a Z-suffixed ISO-8601 string.
func (w Window) StartISO() string {
	return w.Start.UTC().Format(time.RFC3339)
}

// EndISO returns the window end as a Z-suffixed ISO-8601 string.
func (w Window) EndISO() string {
	return w.End.UTC().Format(time.RFC3339)
}

// Filter returns the posts whose creation timestamp falls inside the window.
// Posts without a parseable created_at are kept: the filter is a guardrail
// against the API leaking neighbouring posts, not a validator. Order is
// preserved and the input slice is not modified.
func Filter(posts []twitter.Post, w Window) []twitter.Post {
	kept := make([]twitter.Post, 0, len(posts))
	for _, p := range posts {
		createdAt, ok := p.CreatedAt()
		if !ok || w.Contains(createdAt) {
			kept = append(kept, p)
		}
	}
	return kept
}
