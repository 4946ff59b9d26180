package server

import (
	"context"
	"errors"
	"mime"
	"net"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/valyala/bytebufferpool"

	"github.com/staticd-io/staticd/pkg/cache"
	"github.com/staticd-io/staticd/pkg/protocol/http"
	"github.com/staticd-io/staticd/pkg/store/resource"
)

type conn struct {
	server *Server
	conn   net.Conn
	log    zerolog.Logger
}

func (s *Server) newConn(tcpConn net.Conn) *conn {
	return &conn{
		server: s,
		conn:   tcpConn,
		log: log.With().
			Str("conn_id", uuid.NewString()).
			Str("remote", tcpConn.RemoteAddr().String()).
			Logger(),
	}
}

// serve runs the connection lifecycle: one bounded read, parse,
// dispatch, one response, close. The socket is always closed on return.
func (c *conn) serve(ctx context.Context) {
	start := time.Now()

	defer func() {
		c.conn.Close()
		count := c.server.connCount.Add(-1)
		c.server.metrics.SetActiveConnections(count)
		c.server.metrics.RecordConnectionClosed()
		c.server.activeConns.Done()
	}()

	c.log.Debug().Msg("connection accepted")

	buf := make([]byte, c.server.cfg.ReadBufferSize)
	n, err := c.conn.Read(buf)
	if err != nil && n == 0 {
		// Client went away before sending anything readable.
		c.writeError(http.Version11, http.StatusBadRequest)
		return
	}

	req, err := http.Parse(buf[:n])
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, http.ErrVersionNotSupported):
			status = http.StatusVersionNotSupported
		case errors.Is(err, http.ErrMethodNotAllowed):
			status = http.StatusMethodNotAllowed
		}

		c.log.Debug().Err(err).Int("status", int(status)).Msg("request rejected")
		c.writeError(http.Version11, status)
		c.server.metrics.RecordRequest("invalid", int(status), time.Since(start))
		return
	}

	if req.Target == "/" {
		req.Target = c.server.homePage
	}

	c.log.Debug().
		Str("method", string(req.Method)).
		Str("target", req.Target).
		Msg("request parsed")

	handler := c.server.lookupHandler(req)
	if handler == nil {
		c.writeError(req.Version, http.StatusNotImplemented)
		c.server.metrics.RecordRequest(string(req.Method), int(http.StatusNotImplemented), time.Since(start))
		return
	}

	resp := handler(ctx, c, req)
	if err := resp.Write(c.conn); err != nil {
		c.log.Debug().Err(err).Msg("response write failed")
	}

	c.server.metrics.RecordRequest(string(req.Method), int(resp.Status), time.Since(start))
}

// writeError sends a headers-only error response, ignoring write
// failures since the connection is being torn down anyway.
func (c *conn) writeError(version http.Version, status http.StatusCode) {
	resp := http.NewResponse(version, status)
	resp.AddHeader(http.HeaderConnection, "close")
	resp.SetPayload(nil)

	if err := resp.Write(c.conn); err != nil {
		c.log.Debug().Err(err).Msg("error response write failed")
	}
}

type fetchResult struct {
	data []byte
	err  error
}

// handleGet resolves the target through the resource cache and builds
// the response. The cache invokes exactly one of the two callbacks,
// possibly synchronously on a hit, so the channel is buffered.
func handleGet(ctx context.Context, c *conn, req *http.Request) *http.Response {
	resultCh := make(chan fetchResult, 1)

	c.server.cache.Request(req.Target,
		func(_ int, data []byte) {
			resultCh <- fetchResult{data: data}
		},
		func(err error) {
			resultCh <- fetchResult{err: err}
		},
	)

	var result fetchResult
	select {
	case result = <-resultCh:
	case <-ctx.Done():
		return errorResponse(req.Version, http.StatusServiceUnavailable)
	}

	if result.err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(result.err, resource.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(result.err, cache.ErrOverloaded):
			status = http.StatusServiceUnavailable
		}

		c.log.Debug().Err(result.err).Str("target", req.Target).Msg("resource fetch failed")
		return errorResponse(req.Version, status)
	}

	resp := http.NewResponse(req.Version, http.StatusOK)
	resp.AddHeader(http.HeaderContentType, contentType(req.Target))

	payload := result.data
	if c.server.cfg.Compress && acceptsGzip(req) {
		if compressed, err := gzipPayload(payload); err == nil {
			resp.AddHeader(http.HeaderContentEncoding, "gzip")
			payload = compressed
		} else {
			c.log.Debug().Err(err).Msg("gzip failed, sending identity")
		}
	}

	resp.SetPayload(payload)
	return resp
}

func errorResponse(version http.Version, status http.StatusCode) *http.Response {
	resp := http.NewResponse(version, status)
	resp.AddHeader(http.HeaderConnection, "close")
	resp.SetPayload(nil)
	return resp
}

func acceptsGzip(req *http.Request) bool {
	accept, ok := req.Header(http.HeaderAcceptEncoding)
	return ok && strings.Contains(strings.ToLower(accept), "gzip")
}

func contentType(target string) string {
	if ct := mime.TypeByExtension(filepath.Ext(target)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func gzipPayload(data []byte) ([]byte, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	zw := gzip.NewWriter(buf)
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	out := make([]byte, buf.Len())
	copy(out, buf.B)
	return out, nil
}
