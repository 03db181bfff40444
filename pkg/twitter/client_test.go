package twitter

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zxoir/twitter-month-archiver/pkg/logger"
	"github.com/Zxoir/twitter-month-archiver/pkg/ratelimit"
)

// recordedSleeps returns a backoff that records requested sleeps instead of
// blocking.
func recordedSleeps(defaultSleep time.Duration) (*ratelimit.Backoff, *[]time.Duration) {
	var slept []time.Duration
	b := ratelimit.NewWithSleep(defaultSleep, func(d time.Duration) {
		slept = append(slept, d)
	})
	return b, &slept
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *[]time.Duration) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	backoff, slept := recordedSleeps(60 * time.Second)
	client := NewClient("test-token", 5*time.Second, logger.NewTestLogger(),
		WithBaseURL(server.URL),
		WithBackoff(backoff),
	)
	return client, slept
}

func TestLookupUser(t *testing.T) {
	t.Run("resolves a username to an id", func(t *testing.T) {
		var gotAuth string
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			assert.Equal(t, "/users/by/username/XDevelopers", r.URL.Path)
			fmt.Fprint(w, `{"data":{"id":"2244994945","name":"Developers","username":"XDevelopers"}}`)
		}))

		id, err := client.LookupUser("XDevelopers")
		require.NoError(t, err)
		assert.Equal(t, "2244994945", id)
		assert.Equal(t, "Bearer test-token", gotAuth)
	})

	t.Run("not found yields empty id without error", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"errors":[{"title":"Not Found Error"}]}`)
		}))

		id, err := client.LookupUser("nosuchuser")
		require.NoError(t, err)
		assert.Empty(t, id)
	})

	t.Run("missing nested id yields empty id without error", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":{}}`)
		}))

		id, err := client.LookupUser("someone")
		require.NoError(t, err)
		assert.Empty(t, id)
	})

	t.Run("malformed body yields empty id without error", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `not json`)
		}))

		id, err := client.LookupUser("someone")
		require.NoError(t, err)
		assert.Empty(t, id)
	})

	t.Run("throttled lookup sleeps and retries the same request", func(t *testing.T) {
		var calls int32
		client, slept := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				w.Header().Set("Retry-After", "2")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			fmt.Fprint(w, `{"data":{"id":"2244994945","username":"XDevelopers"}}`)
		}))

		id, err := client.LookupUser("XDevelopers")
		require.NoError(t, err)
		assert.Equal(t, "2244994945", id)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
		assert.Equal(t, []time.Duration{2 * time.Second}, *slept)
	})

	t.Run("throttled without Retry-After uses the default backoff", func(t *testing.T) {
		var calls int32
		client, slept := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			fmt.Fprint(w, `{"data":{"id":"1"}}`)
		}))

		id, err := client.LookupUser("someone")
		require.NoError(t, err)
		assert.Equal(t, "1", id)
		assert.Equal(t, []time.Duration{60 * time.Second}, *slept)
	})

	t.Run("transport error is returned", func(t *testing.T) {
		backoff, _ := recordedSleeps(time.Second)
		client := NewClient("test-token", time.Second, logger.NewTestLogger(),
			WithBaseURL("http://127.0.0.1:1"),
			WithBackoff(backoff),
		)

		_, err := client.LookupUser("someone")
		require.Error(t, err)

		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, ErrorTypeNetwork, apiErr.Type)
	})
}

func TestUserTweets(t *testing.T) {
	window := TimelineQuery{
		StartTime:  time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		MaxResults: 100,
	}

	t.Run("fetches a page", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/users/2244994945/tweets", r.URL.Path)
			assert.Equal(t, "2024-02-01T00:00:00Z", r.URL.Query().Get("start_time"))
			fmt.Fprint(w, `{
				"data": [{"id": "10", "created_at": "2024-02-15T00:00:00Z"}],
				"meta": {"result_count": 1}
			}`)
		}))

		page, err := client.UserTweets("2244994945", window)
		require.NoError(t, err)
		require.Len(t, page.Posts, 1)
		assert.Equal(t, "10", page.Posts[0].ID())
		assert.Equal(t, 1, page.Meta.ResultCount)
		assert.Empty(t, page.Meta.NextToken)
	})

	t.Run("throttling is retried without the caller noticing", func(t *testing.T) {
		var calls int32
		client, slept := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := atomic.AddInt32(&calls, 1)
			if n <= 2 {
				w.Header().Set("Retry-After", "3")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			fmt.Fprint(w, `{"data": [{"id": "10"}], "meta": {"result_count": 1}}`)
		}))

		page, err := client.UserTweets("2244994945", window)
		require.NoError(t, err)
		require.Len(t, page.Posts, 1)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
		assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, *slept)
	})

	t.Run("retry cap surfaces a rate limit error", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		t.Cleanup(server.Close)

		backoff, _ := recordedSleeps(time.Second)
		client := NewClient("test-token", 5*time.Second, logger.NewTestLogger(),
			WithBaseURL(server.URL),
			WithBackoff(backoff),
			WithMaxThrottleRetries(2),
		)

		_, err := client.UserTweets("2244994945", window)
		require.Error(t, err)

		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, ErrorTypeRateLimit, apiErr.Type)
		assert.Equal(t, http.StatusTooManyRequests, apiErr.Code)
		// Initial attempt plus two retries
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("error statuses are classified", func(t *testing.T) {
		tests := []struct {
			status   int
			wantType ErrorType
		}{
			{http.StatusUnauthorized, ErrorTypeAuth},
			{http.StatusForbidden, ErrorTypeAuth},
			{http.StatusNotFound, ErrorTypeNotFound},
			{http.StatusInternalServerError, ErrorTypeServerError},
			{http.StatusTeapot, ErrorTypeUnknown},
		}

		for _, tt := range tests {
			t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
				client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
				}))

				_, err := client.UserTweets("2244994945", window)
				require.Error(t, err)

				var apiErr *Error
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tt.wantType, apiErr.Type)
				assert.Equal(t, tt.status, apiErr.Code)
			})
		}
	})

	t.Run("malformed page body is a parsing error", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data": "not an array"}`)
		}))

		_, err := client.UserTweets("2244994945", window)
		require.Error(t, err)

		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, ErrorTypeParsing, apiErr.Type)
	})
}
