// Package twitter implements the X (Twitter) v2 API client used by the
// archiver: user lookup by handle and paged user timeline fetches with
// bearer-token auth.
//
// Throttling (HTTP 429/503) is handled inside the client: the request is
// retried in place after the backoff sleep, so pagination state held by the
// caller never advances on a throttled response. All other error statuses
// surface as a typed *Error.
//
// Posts are modelled as opaque maps. The archiver interprets only id and
// created_at; every other field the API returns is carried through to the
// output unchanged.
package twitter
