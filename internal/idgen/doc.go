// Package idgen wraps the UUID generator so that it can be stubbed in tests.
// It lives under `internal` because callers should not rely on the shape of
// the identifiers – session ids are opaque strings.
package idgen
