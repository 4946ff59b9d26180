package http

import (
	"fmt"
	"io"
	"strconv"

	"github.com/valyala/bytebufferpool"
)

// HeaderField is one response header line. Response headers keep their
// insertion order on the wire.
type HeaderField struct {
	Name  string
	Value string
}

// Response is a single status response: status line, header lines, and
// an optional payload. Responses are built fresh per request and never
// cached.
type Response struct {
	Version Version
	Status  StatusCode
	Headers []HeaderField
	Payload []byte
}

// NewResponse builds a response for the given version and status.
func NewResponse(version Version, status StatusCode) *Response {
	return &Response{Version: version, Status: status}
}

// AddHeader appends a header line.
func (r *Response) AddHeader(name, value string) *Response {
	r.Headers = append(r.Headers, HeaderField{Name: name, Value: value})
	return r
}

// SetPayload attaches the payload and a matching content-length header.
func (r *Response) SetPayload(data []byte) *Response {
	r.Payload = data
	return r.AddHeader(HeaderContentLength, strconv.Itoa(len(data)))
}

// encodeHeader serializes the status line, header lines, and the
// terminating blank line into buf.
func (r *Response) encodeHeader(buf *bytebufferpool.ByteBuffer) {
	buf.B = append(buf.B, r.Version...)
	buf.B = append(buf.B, ' ')
	buf.B = strconv.AppendInt(buf.B, int64(r.Status), 10)
	buf.B = append(buf.B, ' ')
	buf.B = append(buf.B, r.Status.Reason()...)
	buf.B = append(buf.B, "\r\n"...)
	for _, h := range r.Headers {
		buf.B = append(buf.B, h.Name...)
		buf.B = append(buf.B, ": "...)
		buf.B = append(buf.B, h.Value...)
		buf.B = append(buf.B, "\r\n"...)
	}
	buf.B = append(buf.B, "\r\n"...)
}

// Write serializes the response to w in two sequenced steps: the header
// bytes first, then the payload only after the header write completed.
// A failure in either step is returned immediately and no further bytes
// are written; the caller closes the connection either way.
func (r *Response) Write(w io.Writer) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	r.encodeHeader(buf)
	if _, err := w.Write(buf.B); err != nil {
		return fmt.Errorf("write response header: %w", err)
	}

	if len(r.Payload) == 0 {
		return nil
	}
	if _, err := w.Write(r.Payload); err != nil {
		return fmt.Errorf("write response payload: %w", err)
	}
	return nil
}
