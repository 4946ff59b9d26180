// Package http implements the subset of the HTTP/1.1 wire protocol that
// staticd speaks: request parsing, the method/version capability tables,
// status codes, and response framing.
//
// The package is deliberately self-contained and free of net/http. The
// server reads a single bounded chunk from the socket and hands the raw
// bytes to Parse; everything here operates on that blob.
package http

import "strings"

// Version identifies a protocol version by its request-line token.
type Version string

const (
	// Version11 is HTTP/1.1 as described by RFC 7231.
	Version11 Version = "HTTP/1.1"
)

// versions maps the upper-cased version token to its Version.
var versions = map[string]Version{
	strings.ToUpper(string(Version11)): Version11,
}

// LookupVersion resolves a request-line version token. The lookup is
// case-insensitive; method tokens are not.
func LookupVersion(token string) (Version, bool) {
	v, ok := versions[strings.ToUpper(token)]
	return v, ok
}

// SupportedVersions returns the comma-separated list of version tokens
// the server recognizes. Used in error logging.
func SupportedVersions() string {
	tokens := make([]string, 0, len(versions))
	for _, v := range versions {
		tokens = append(tokens, string(v))
	}
	return strings.Join(tokens, ",")
}
