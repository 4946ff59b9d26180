package http

import (
	"errors"
	"strings"
)

// Parse errors. The connection handler maps each to its response status
// (400, 505, 405 respectively); the parser itself never writes.
var (
	// ErrBadRequest covers an empty payload, a request line that does
	// not split into exactly three tokens, and malformed header lines.
	ErrBadRequest = errors.New("malformed request")

	// ErrVersionNotSupported means the version token is not a
	// recognized protocol version.
	ErrVersionNotSupported = errors.New("protocol version not supported")

	// ErrMethodNotAllowed means the method token is unknown or not
	// valid for the parsed protocol version.
	ErrMethodNotAllowed = errors.New("method not allowed for version")
)

// Request is one successfully parsed client message. Requests are
// immutable once built: the header map is never written after Parse
// returns.
type Request struct {
	Method  Method
	Version Version

	// Target is the raw request target. "/" rewriting to the home page
	// is the connection handler's job; the parser stores what arrived.
	Target string

	// headers maps lower-cased, trimmed names to trimmed values. On
	// duplicate names the last occurrence wins.
	headers map[string]string

	// Body is the message body, possibly empty.
	Body string
}

// Header returns the value for a header name (matched lower-cased).
func (r *Request) Header(name string) (string, bool) {
	v, ok := r.headers[strings.ToLower(name)]
	return v, ok
}

// HeaderCount returns the number of distinct header fields.
func (r *Request) HeaderCount() int { return len(r.headers) }

// Parse turns one raw request blob into a Request.
//
// The grammar is line-oriented, CRLF-delimited:
//
//	<METHOD> <TARGET> <VERSION> CRLF
//	<name>:<value> CRLF ...
//	CRLF
//	<body>
//
// Validation order matters and is observable through the error: token
// count first (400), then version (505), then method validity for that
// version (405), then the remaining header lines (400). A 505 is
// answered without any method lookup.
func Parse(raw []byte) (*Request, error) {
	text := string(raw)
	if text == "" {
		return nil, ErrBadRequest
	}

	// Split off the body at the first blank line.
	headerBlock, body, _ := strings.Cut(text, "\r\n\r\n")

	lines := splitHeaderLines(headerBlock)
	if len(lines) == 0 {
		return nil, ErrBadRequest
	}

	tokens := strings.Fields(lines[0])
	if len(tokens) != 3 {
		return nil, ErrBadRequest
	}

	version, ok := LookupVersion(tokens[2])
	if !ok {
		return nil, ErrVersionNotSupported
	}

	method, ok := LookupMethod(tokens[0])
	if !ok || !method.ValidFor(version) {
		return nil, ErrMethodNotAllowed
	}

	headers := make(map[string]string, len(lines)-1)
	for _, line := range lines[1:] {
		name, value, found := strings.Cut(line, ":")
		if !found {
			return nil, ErrBadRequest
		}
		headers[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	}

	return &Request{
		Method:  method,
		Version: version,
		Target:  tokens[1],
		headers: headers,
		Body:    strings.TrimSpace(body),
	}, nil
}

// splitHeaderLines splits the header block on runs of CRLF, dropping
// empty lines.
func splitHeaderLines(block string) []string {
	parts := strings.Split(block, "\r\n")
	lines := parts[:0]
	for _, p := range parts {
		if p != "" {
			lines = append(lines, p)
		}
	}
	return lines
}
