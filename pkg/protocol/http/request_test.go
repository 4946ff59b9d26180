package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SimpleGet(t *testing.T) {
	raw := []byte("GET /index.html HTTP/1.1\r\nhost: example.com\r\n\r\n")

	req, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, MethodGet, req.Method)
	assert.Equal(t, Version11, req.Version)
	assert.Equal(t, "/index.html", req.Target)
	assert.Empty(t, req.Body)

	host, ok := req.Header("host")
	require.True(t, ok)
	assert.Equal(t, "example.com", host)
}

func TestParse_EmptyPayload(t *testing.T) {
	_, err := Parse([]byte(""))
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestParse_RequestLineTokenCount(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"two tokens", "GET /index.html\r\n\r\n"},
		{"four tokens", "GET /index.html HTTP/1.1 extra\r\n\r\n"},
		{"only method", "GET\r\n\r\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.raw))
			assert.ErrorIs(t, err, ErrBadRequest)
		})
	}
}

func TestParse_UnsupportedVersion(t *testing.T) {
	_, err := Parse([]byte("GET /index.html HTTP/2.0\r\n\r\n"))
	assert.ErrorIs(t, err, ErrVersionNotSupported)
}

// An unsupported version must be reported as such even when the method
// token is also bad: version is checked before any method lookup.
func TestParse_VersionCheckedBeforeMethod(t *testing.T) {
	_, err := Parse([]byte("BREW /pot HTCPCP/1.0\r\n\r\n"))
	assert.ErrorIs(t, err, ErrVersionNotSupported)
}

func TestParse_UnknownMethod(t *testing.T) {
	_, err := Parse([]byte("FETCH /index.html HTTP/1.1\r\n\r\n"))
	assert.ErrorIs(t, err, ErrMethodNotAllowed)
}

// Method tokens are case-sensitive: lowercase "get" is not a method.
func TestParse_LowercaseMethodRejected(t *testing.T) {
	_, err := Parse([]byte("get /index.html HTTP/1.1\r\n\r\n"))
	assert.ErrorIs(t, err, ErrMethodNotAllowed)
}

// Version tokens match case-insensitively.
func TestParse_VersionCaseInsensitive(t *testing.T) {
	req, err := Parse([]byte("GET /index.html http/1.1\r\n\r\n"))
	require.NoError(t, err)
	assert.Equal(t, Version11, req.Version)
}

func TestParse_MalformedHeaderLine(t *testing.T) {
	_, err := Parse([]byte("GET /index.html HTTP/1.1\r\nno-colon-here\r\n\r\n"))
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestParse_HeaderNormalization(t *testing.T) {
	raw := []byte("GET / HTTP/1.1\r\nContent-Type:  text/plain \r\nACCEPT-ENCODING: gzip\r\n\r\n")

	req, err := Parse(raw)
	require.NoError(t, err)

	ct, ok := req.Header("content-type")
	require.True(t, ok)
	assert.Equal(t, "text/plain", ct)

	// Lookup is by lower-cased name regardless of how it was sent or
	// how the caller asks.
	ae, ok := req.Header("Accept-Encoding")
	require.True(t, ok)
	assert.Equal(t, "gzip", ae)

	assert.Equal(t, 2, req.HeaderCount())
}

func TestParse_DuplicateHeaderLastWins(t *testing.T) {
	raw := []byte("GET / HTTP/1.1\r\nx-tag: first\r\nX-Tag: second\r\n\r\n")

	req, err := Parse(raw)
	require.NoError(t, err)

	v, ok := req.Header("x-tag")
	require.True(t, ok)
	assert.Equal(t, "second", v)
	assert.Equal(t, 1, req.HeaderCount())
}

func TestParse_Body(t *testing.T) {
	raw := []byte("POST /submit HTTP/1.1\r\ncontent-type: text/plain\r\n\r\nhello world\r\n")

	req, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, MethodPost, req.Method)
	assert.Equal(t, "hello world", req.Body)
}

func TestParse_NoHeaders(t *testing.T) {
	req, err := Parse([]byte("GET /bare HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, req.HeaderCount())
}

func TestLookupMethod_AllRegistered(t *testing.T) {
	tokens := []string{
		"GET", "HEAD", "POST", "PUT", "DELETE",
		"CONNECT", "OPTIONS", "TRACE", "PATCH",
	}

	for _, token := range tokens {
		m, ok := LookupMethod(token)
		require.True(t, ok, "method %s", token)
		assert.Equal(t, token, m.String())
		assert.True(t, m.ValidFor(Version11))
	}
}
