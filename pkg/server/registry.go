package server

import (
	"context"

	"github.com/staticd-io/staticd/pkg/protocol/http"
)

// HandlerFunc handles one parsed request and returns the response to
// write back on the connection.
type HandlerFunc func(ctx context.Context, c *conn, req *http.Request) *http.Response

// registryKey identifies a handler by method and protocol version.
type registryKey struct {
	method  http.Method
	version http.Version
}

// newHandlerRegistry builds the dispatch table. Only GET is backed by
// an implementation; every other valid method dispatches to nothing and
// the connection answers 501.
func newHandlerRegistry() map[registryKey]HandlerFunc {
	return map[registryKey]HandlerFunc{
		{method: http.MethodGet, version: http.Version11}: handleGet,
	}
}

// lookupHandler resolves the handler for a request, or nil when the
// method is recognized but not implemented.
func (s *Server) lookupHandler(req *http.Request) HandlerFunc {
	return s.handlers[registryKey{method: req.Method, version: req.Version}]
}
