package twitter

import (
	"encoding/json"
	"time"
)

// Post is a single tweet as returned by the API. It is deliberately an
// untyped map: only id and created_at are ever interpreted, every other
// field passes through to the output unchanged, so unknown API fields
// survive a round trip.
type Post map[string]interface{}

// ID returns the post id, or "" when absent.
func (p Post) ID() string {
	id, _ := p["id"].(string)
	return id
}

// Text returns the post text, or "" when absent.
func (p Post) Text() string {
	text, _ := p["text"].(string)
	return text
}

// CreatedAt returns the parsed created_at timestamp. The second return value
// is false when the field is missing or not a parseable RFC 3339 string.
func (p Post) CreatedAt() (time.Time, bool) {
	raw, ok := p["created_at"].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Meta carries the pagination metadata of a timeline page.
type Meta struct {
	ResultCount int    `json:"result_count"`
	NextToken   string `json:"next_token,omitempty"`
	NewestID    string `json:"newest_id,omitempty"`
	OldestID    string `json:"oldest_id,omitempty"`
}

// Page is one timeline API response. It is ephemeral: the fetch loop
// consumes it immediately and only the posts survive.
type Page struct {
	Posts    []Post                     `json:"data"`
	Meta     Meta                       `json:"meta"`
	Includes map[string]json.RawMessage `json:"includes,omitempty"`
}

// userLookupResponse is the /users/by/username/:username response envelope.
type userLookupResponse struct {
	Data struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"data"`
}

// OldestCreatedAt returns the minimum parseable created_at among the posts.
// The second return value is false when no post has a parseable timestamp.
func OldestCreatedAt(posts []Post) (time.Time, bool) {
	var oldest time.Time
	found := false
	for _, p := range posts {
		t, ok := p.CreatedAt()
		if !ok {
			continue
		}
		if !found || t.Before(oldest) {
			oldest = t
			found = true
		}
	}
	return oldest, found
}
