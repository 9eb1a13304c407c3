package echobench

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/talostrading/echobench/bencherrors"
	"github.com/talostrading/echobench/benchopts"
	"github.com/talostrading/echobench/internal"
	"github.com/valyala/bytebufferpool"
)

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

type Config struct {
	Params Params

	// Logger receives progress lines and summaries. Defaults to the standard
	// logger.
	Logger *log.Logger

	// Metrics defaults to a set registered with a private registry.
	Metrics *Metrics

	// Sink, if set, is notified after the server handled a session outcome.
	Sink SessionSink

	Clock Clock
}

var _ SessionSink = &Server{}

// Server accepts connections and runs one Session per connection in its own
// goroutine.
type Server struct {
	ln       net.Listener
	cfg      Config
	rep      *Reporter
	metrics  *Metrics
	connOpts []benchopts.Option

	pool   bytebufferpool.Pool
	connID int

	closed atomic.Bool
	wg     sync.WaitGroup
}

// Listen binds a listening socket on the local address and returns a Server
// ready to Serve. Options which apply to listening sockets are set before
// bind; the rest are set on every accepted connection.
func Listen(
	network,
	addr string,
	cfg Config,
	opts ...benchopts.Option,
) (*Server, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}

	lnOpts, connOpts := benchopts.Split(opts)
	lc := net.ListenConfig{Control: internal.Control(lnOpts...)}
	ln, err := lc.Listen(context.Background(), network, addr)
	if err != nil {
		return nil, err
	}

	s, err := NewServer(ln, cfg, connOpts...)
	if err != nil {
		ln.Close()
		return nil, err
	}
	return s, nil
}

// NewServer serves connections accepted from ln. It fails with
// bencherrors.ErrInvalidParams if cfg.Params are not valid.
func NewServer(
	ln net.Listener,
	cfg Config,
	connOpts ...benchopts.Option,
) (*Server, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(prometheus.NewRegistry())
	}
	return &Server{
		ln:       ln,
		cfg:      cfg,
		rep:      NewReporter(cfg.Logger),
		metrics:  cfg.Metrics,
		connOpts: connOpts,
	}, nil
}

func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve accepts connections until the listener fails or the server is closed.
// Temporary accept errors are logged and retried with backoff; any other
// accept error is returned. After Close, Serve returns
// bencherrors.ErrServerClosed.
func (s *Server) Serve() error {
	s.rep.Listening(s.ln.Addr())

	var delay time.Duration
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.closed.Load() {
				return bencherrors.ErrServerClosed
			}
			if temporary(err) {
				if delay == 0 {
					delay = minAcceptDelay
				} else if delay *= 2; delay > maxAcceptDelay {
					delay = maxAcceptDelay
				}
				s.metrics.AcceptErrors.Inc()
				s.rep.AcceptError(err, delay)
				time.Sleep(delay)
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}
		delay = 0

		s.connID++
		s.wg.Add(1)
		go s.handle(s.connID, conn)
	}
}

func (s *Server) handle(id int, conn net.Conn) {
	defer s.wg.Done()

	addr := conn.RemoteAddr()
	s.metrics.SessionsAccepted.Inc()
	s.metrics.SessionsActive.Inc()
	defer s.metrics.SessionsActive.Dec()

	s.rep.Accepted(id, addr)

	if err := internal.ApplyConnOpts(conn, s.connOpts...); err != nil {
		s.rep.OptionError(id, addr, err)
	}

	session := newSession(
		id,
		conn,
		s.cfg.Params,
		&s.pool,
		s.rep,
		s.metrics,
		s.cfg.Clock,
	)

	sum, err := session.Run()
	switch {
	case err == nil:
		s.OnSessionSummary(id, addr, sum)
	case errors.Is(err, bencherrors.ErrPeerClosed):
		s.OnSessionClose(id, addr)
	default:
		s.OnSessionError(id, addr, err)
	}
}

func (s *Server) OnSessionSummary(id int, addr net.Addr, sum Summary) {
	s.rep.Summary(sum)
	s.metrics.SessionsEnded.WithLabelValues(OutcomeCompleted).Inc()
	s.metrics.SessionBandwidth.Set(sum.Bandwidth())
	if s.cfg.Sink != nil {
		s.cfg.Sink.OnSessionSummary(id, addr, sum)
	}
}

func (s *Server) OnSessionClose(id int, addr net.Addr) {
	s.rep.Closed(id, addr)
	s.metrics.SessionsEnded.WithLabelValues(OutcomeClosed).Inc()
	if s.cfg.Sink != nil {
		s.cfg.Sink.OnSessionClose(id, addr)
	}
}

func (s *Server) OnSessionError(id int, addr net.Addr, err error) {
	s.rep.Error(id, addr, err)
	s.metrics.SessionsEnded.WithLabelValues(OutcomeError).Inc()
	if s.cfg.Sink != nil {
		s.cfg.Sink.OnSessionError(id, addr, err)
	}
}

// Close stops accepting. Running sessions are left to finish; use Wait to
// block until they do.
func (s *Server) Close() error {
	s.closed.Store(true)
	return s.ln.Close()
}

// Wait blocks until every session started so far returned.
func (s *Server) Wait() {
	s.wg.Wait()
}

func temporary(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	for _, errno := range []syscall.Errno{
		syscall.ECONNABORTED,
		syscall.EMFILE,
		syscall.ENFILE,
		syscall.ENOBUFS,
		syscall.ENOMEM,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
