package twitter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the base URL of the X v2 API
	DefaultBaseURL = "https://api.x.com/2"

	// MinPageSize is the smallest max_results the timeline endpoint accepts
	MinPageSize = 10

	// MaxPageSize is the largest max_results the timeline endpoint accepts
	MaxPageSize = 100

	// DefaultPageSize is used when the caller does not specify a page size
	DefaultPageSize = 100
)

// Fixed field and expansion selectors sent with every timeline request.
// Everything selected here passes through to the output untouched.
const (
	TweetFields = "id,text,created_at,public_metrics,lang,possibly_sensitive," +
		"source,in_reply_to_user_id,referenced_tweets,attachments,entities"
	Expansions  = "author_id,attachments.media_keys,referenced_tweets.id"
	UserFields  = "id,name,username,verified,created_at"
	MediaFields = "media_key,type,url,width,height,alt_text"
)

// TimelineQuery describes one paged timeline request.
type TimelineQuery struct {
	StartTime       time.Time
	EndTime         time.Time
	MaxResults      int
	ExcludeReplies  bool
	ExcludeRetweets bool
	PaginationToken string
}

// ClampPageSize bounds a caller-supplied page size to what the timeline
// endpoint accepts. Non-positive values get the default.
func ClampPageSize(n int) int {
	if n <= 0 {
		return DefaultPageSize
	}
	if n < MinPageSize {
		return MinPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// UserByUsernameURL constructs the user lookup URL for a handle (without @).
func UserByUsernameURL(baseURL, username string) string {
	return fmt.Sprintf("%s/users/by/username/%s", baseURL, url.PathEscape(username))
}

// UserTweetsURL constructs a timeline page URL for a user id.
func UserTweetsURL(baseURL, userID string, q TimelineQuery) string {
	params := url.Values{}
	params.Set("start_time", q.StartTime.UTC().Format(time.RFC3339))
	params.Set("end_time", q.EndTime.UTC().Format(time.RFC3339))
	params.Set("max_results", strconv.Itoa(ClampPageSize(q.MaxResults)))
	params.Set("tweet.fields", TweetFields)
	params.Set("expansions", Expansions)
	params.Set("user.fields", UserFields)
	params.Set("media.fields", MediaFields)

	var excludes []string
	if q.ExcludeReplies {
		excludes = append(excludes, "replies")
	}
	if q.ExcludeRetweets {
		excludes = append(excludes, "retweets")
	}
	if len(excludes) > 0 {
		params.Set("exclude", strings.Join(excludes, ","))
	}

	if q.PaginationToken != "" {
		params.Set("pagination_token", q.PaginationToken)
	}

	return fmt.Sprintf("%s/users/%s/tweets?%s", baseURL, url.PathEscape(userID), params.Encode())
}
