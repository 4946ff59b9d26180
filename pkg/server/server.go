package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/staticd-io/staticd/pkg/cache"
	"github.com/staticd-io/staticd/pkg/metrics"
	"github.com/staticd-io/staticd/pkg/pool"
	"github.com/staticd-io/staticd/pkg/protocol/http"
	"github.com/staticd-io/staticd/pkg/store/resource"
)

// ErrBind indicates the listen socket could not be opened.
var ErrBind = errors.New("cannot bind listen address")

const (
	DefaultPort            = 8080
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds the network-facing server settings.
type Config struct {
	// Host is the interface to listen on. Empty means all interfaces.
	Host string `mapstructure:"host"`

	// Port is the TCP port to listen on.
	Port int `mapstructure:"port" validate:"gte=0,lte=65535"`

	// ReadBufferSize bounds the single request read per connection.
	// Requests larger than this are truncated.
	ReadBufferSize int `mapstructure:"read_buffer_size" validate:"omitempty,gt=0"`

	// MaxWorkers caps the number of concurrent connection workers.
	MaxWorkers int `mapstructure:"max_workers" validate:"omitempty,gt=0"`

	// Compress enables gzip encoding for clients that accept it.
	Compress bool `mapstructure:"compress"`

	// ShutdownTimeout bounds the graceful drain of active connections.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = resource.DefaultReadCapacity
	}
	if c.MaxWorkers == 0 {
		c.MaxWorkers = pool.DefaultMaxWorkers()
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Server accepts TCP connections and serves one request per connection
// through a bounded worker pool.
type Server struct {
	cfg      Config
	homePage string
	cache    *cache.Cache
	pool     *pool.Pool
	metrics  metrics.ServerMetrics
	handlers map[registryKey]HandlerFunc

	listener    net.Listener
	ready       chan struct{}
	connCount   atomic.Int32
	activeConns sync.WaitGroup

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// New creates a Server. The homePage path replaces bare "/" targets.
// A nil serverMetrics disables instrumentation.
func New(cfg Config, homePage string, c *cache.Cache, p *pool.Pool, m metrics.ServerMetrics) *Server {
	cfg.ApplyDefaults()

	if m == nil {
		m = noopServerMetrics{}
	}

	return &Server{
		cfg:        cfg,
		homePage:   homePage,
		cache:      c,
		pool:       p,
		metrics:    m,
		handlers:   newHandlerRegistry(),
		ready:      make(chan struct{}),
		shutdownCh: make(chan struct{}),
	}
}

// Serve listens and runs the accept loop until ctx is cancelled or Stop
// is called, then drains active connections.
func (s *Server) Serve(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: listen on %s: %v", ErrBind, addr, err)
	}

	s.listener = listener
	close(s.ready)
	log.Info().Str("addr", listener.Addr().String()).Msg("server listening")

	go func() {
		select {
		case <-ctx.Done():
			s.initiateShutdown()
		case <-s.shutdownCh:
		}
	}()

	for {
		tcpConn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdownCh:
				return s.drain()
			default:
				log.Warn().Err(err).Msg("accept failed")
				continue
			}
		}

		count := s.connCount.Add(1)
		s.metrics.RecordConnectionAccepted()
		s.metrics.SetActiveConnections(count)
		s.activeConns.Add(1)

		c := s.newConn(tcpConn)
		if !s.pool.TrySchedule(func() { c.serve(ctx) }) {
			s.metrics.RecordConnectionRejected()
			s.reject(c)
		}
	}
}

// reject answers 503 on a connection the pool could not take.
func (s *Server) reject(c *conn) {
	defer func() {
		c.conn.Close()
		count := s.connCount.Add(-1)
		s.metrics.SetActiveConnections(count)
		s.metrics.RecordConnectionClosed()
		s.activeConns.Done()
	}()

	c.log.Debug().Msg("worker pool saturated, rejecting connection")

	resp := errorResponse(http.Version11, http.StatusServiceUnavailable)
	if err := resp.Write(c.conn); err != nil {
		c.log.Debug().Err(err).Msg("reject response write failed")
	}
}

// Stop requests shutdown. Safe to call multiple times.
func (s *Server) Stop() {
	s.initiateShutdown()
}

func (s *Server) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdownCh)
		if s.listener != nil {
			s.listener.Close()
		}
	})
}

func (s *Server) drain() error {
	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("all connections drained")
	case <-time.After(s.cfg.ShutdownTimeout):
		log.Warn().
			Int32("active", s.connCount.Load()).
			Msg("shutdown timeout elapsed, abandoning active connections")
	}

	return nil
}

// Ready is closed once the listener is bound. Useful with port 0.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound listen address, or nil before Ready.
func (s *Server) Addr() net.Addr {
	select {
	case <-s.ready:
		return s.listener.Addr()
	default:
		return nil
	}
}

// noopServerMetrics is used when instrumentation is disabled.
type noopServerMetrics struct{}

func (noopServerMetrics) RecordConnectionAccepted()                  {}
func (noopServerMetrics) RecordConnectionClosed()                    {}
func (noopServerMetrics) RecordConnectionRejected()                  {}
func (noopServerMetrics) SetActiveConnections(int32)                 {}
func (noopServerMetrics) RecordRequest(string, int, time.Duration)   {}
