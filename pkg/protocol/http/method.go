package http

import "strings"

// Method identifies a protocol method by its request-line token.
type Method string

const (
	MethodGet     Method = "GET"
	MethodHead    Method = "HEAD"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodConnect Method = "CONNECT"
	MethodOptions Method = "OPTIONS"
	MethodTrace   Method = "TRACE"
	MethodPatch   Method = "PATCH"
)

// methodVersions is the capability table: which versions each method is
// valid for. Purely data, consulted once during parsing. A method that
// is valid here but has no registered handler answers 501 at dispatch.
var methodVersions = map[Method]map[Version]bool{
	MethodGet:     {Version11: true},
	MethodHead:    {Version11: true},
	MethodPost:    {Version11: true},
	MethodPut:     {Version11: true},
	MethodDelete:  {Version11: true},
	MethodConnect: {Version11: true},
	MethodOptions: {Version11: true},
	MethodTrace:   {Version11: true},
	MethodPatch:   {Version11: true},
}

// LookupMethod resolves a request-line method token. Method tokens are
// case-sensitive per RFC 7231; "get" is not a method.
func LookupMethod(token string) (Method, bool) {
	_, ok := methodVersions[Method(token)]
	return Method(token), ok
}

// ValidFor reports whether the method may be used with the given
// protocol version.
func (m Method) ValidFor(v Version) bool {
	return methodVersions[m][v]
}

// String returns the wire token for the method.
func (m Method) String() string { return string(m) }

// Methods returns the comma-separated list of known method tokens.
func Methods() string {
	tokens := make([]string, 0, len(methodVersions))
	for m := range methodVersions {
		tokens = append(tokens, string(m))
	}
	return strings.Join(tokens, ",")
}
