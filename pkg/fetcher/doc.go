// Package fetcher implements the bounded pagination engine at the heart of
// the archiver. It walks a user timeline cursor by cursor, keeps every page
// it receives, journals progress after each page, and stops on the first of
// four conditions: an empty page, a short page, a page older than the window
// start, or a missing/repeated pagination token. The repeated-token check is
// the cycle protection that keeps a misbehaving endpoint from looping the
// walk forever.
package fetcher
