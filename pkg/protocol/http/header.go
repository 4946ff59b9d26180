package http

// Header field names the server reads or emits. Names are stored and
// compared lower-cased; parsing folds incoming names the same way.
const (
	HeaderContentLength   = "content-length"
	HeaderContentType     = "content-type"
	HeaderContentEncoding = "content-encoding"
	HeaderAcceptEncoding  = "accept-encoding"
	HeaderConnection      = "connection"
)
