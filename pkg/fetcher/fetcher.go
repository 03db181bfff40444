package fetcher

import (
	"time"

	"github.com/Zxoir/twitter-month-archiver/pkg/logger"
	"github.com/Zxoir/twitter-month-archiver/pkg/snapshot"
	"github.com/Zxoir/twitter-month-archiver/pkg/twitter"
	"github.com/Zxoir/twitter-month-archiver/pkg/window"
)

// TimelineSource fetches one timeline page. Throttled responses must be
// retried inside the source so pagination state held here never advances on
// a 429/503; *twitter.Client satisfies this.
type TimelineSource interface {
	UserTweets(userID string, q twitter.TimelineQuery) (*twitter.Page, error)
}

// Options configure a single fetch.
type Options struct {
	// PageSize is the requested max_results per page. Values outside the
	// endpoint's bounds are clamped; zero means the maximum (100).
	PageSize int

	// IncludeReplies and IncludeRetweets control the exclude parameter.
	IncludeReplies  bool
	IncludeRetweets bool

	// Snapshot, when non-nil, receives the full accumulated state after
	// every page. Write failures are logged and swallowed.
	Snapshot *snapshot.Writer
}

// Fetcher walks a user timeline page by page until one of the stopping
// conditions fires.
type Fetcher struct {
	source TimelineSource
	logger logger.Logger
	now    func() time.Time
}

// New creates a Fetcher over the given timeline source.
func New(source TimelineSource, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Fetcher{
		source: source,
		logger: log,
		now:    time.Now,
	}
}

// FetchWindow accumulates every post the timeline returns for the window.
//
// Pages are appended unconditionally before any stopping check: a page that
// triggers a stop is still kept. After each page the stopping conditions are
// evaluated in fixed order:
//
//  1. empty page or declared result_count of zero
//  2. fewer posts than the requested page size (assume last page)
//  3. oldest parseable created_at on the page precedes the window start
//     (skipped when nothing on the page parses)
//  4. no next_token, or a next_token already seen in this fetch
//
// A non-throttle fetch error stops the walk; whatever accumulated so far is
// returned alongside the error, since partial results are still written out.
// The returned posts are unfiltered; callers apply window.Filter.
func (f *Fetcher) FetchWindow(userID string, w window.Window, opts Options) ([]twitter.Post, error) {
	pageSize := twitter.ClampPageSize(opts.PageSize)

	var (
		accumulated []twitter.Post
		cursor      string
		seenCursors = make(map[string]struct{})
		pageIndex   int
	)

	for {
		page, err := f.source.UserTweets(userID, twitter.TimelineQuery{
			StartTime:       w.Start,
			EndTime:         w.End,
			MaxResults:      pageSize,
			ExcludeReplies:  !opts.IncludeReplies,
			ExcludeRetweets: !opts.IncludeRetweets,
			PaginationToken: cursor,
		})
		if err != nil {
			f.logger.ErrorWithFields("timeline fetch failed, keeping partial results", map[string]interface{}{
				"user_id": userID,
				"page":    pageIndex + 1,
				"error":   err.Error(),
			})
			return accumulated, err
		}

		pageIndex++
		accumulated = append(accumulated, page.Posts...)

		f.logger.InfoWithFields("fetched page", map[string]interface{}{
			"user_id":      userID,
			"page":         pageIndex,
			"posts":        len(page.Posts),
			"result_count": page.Meta.ResultCount,
			"next_token":   page.Meta.NextToken,
		})

		f.writeSnapshot(opts.Snapshot, userID, w, pageIndex, accumulated, page)

		if len(page.Posts) == 0 || page.Meta.ResultCount == 0 {
			f.logger.InfoWithFields("stopping: empty page or zero result count", map[string]interface{}{
				"user_id": userID,
				"page":    pageIndex,
			})
			break
		}

		if len(page.Posts) < pageSize {
			f.logger.InfoWithFields("stopping: short page", map[string]interface{}{
				"user_id":   userID,
				"page":      pageIndex,
				"posts":     len(page.Posts),
				"page_size": pageSize,
			})
			break
		}

		if oldest, ok := twitter.OldestCreatedAt(page.Posts); ok && oldest.Before(w.Start) {
			f.logger.InfoWithFields("stopping: paged past window start", map[string]interface{}{
				"user_id":      userID,
				"page":         pageIndex,
				"oldest":       oldest,
				"window_start": w.Start,
			})
			break
		}

		next := page.Meta.NextToken
		if next == "" {
			f.logger.InfoWithFields("stopping: no next token", map[string]interface{}{
				"user_id": userID,
				"page":    pageIndex,
			})
			break
		}
		if _, seen := seenCursors[next]; seen {
			f.logger.WarnWithFields("stopping: repeated pagination token", map[string]interface{}{
				"user_id": userID,
				"page":    pageIndex,
			})
			break
		}
		seenCursors[next] = struct{}{}
		cursor = next
	}

	return accumulated, nil
}

// writeSnapshot persists the progress journal for one page. Failures are
// logged and swallowed; the fetch keeps going.
func (f *Fetcher) writeSnapshot(w *snapshot.Writer, userID string, win window.Window, pageIndex int, accumulated []twitter.Post, page *twitter.Page) {
	if w == nil {
		return
	}

	err := w.Write(&snapshot.Snapshot{
		UserID:     userID,
		StartTime:  win.StartISO(),
		EndTime:    win.EndISO(),
		Page:       pageIndex,
		CountSoFar: len(accumulated),
		Meta:       page.Meta,
		Includes:   page.Includes,
		FetchedAt:  f.now().UTC().Format(time.RFC3339),
		PostsSoFar: accumulated,
	})
	if err != nil {
		f.logger.WarnWithFields("incremental save failed", map[string]interface{}{
			"user_id": userID,
			"path":    w.Path(),
			"error":   err.Error(),
		})
	}
}
