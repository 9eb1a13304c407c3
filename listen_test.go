package echobench

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"syscall"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talostrading/echobench/bencherrors"
	"github.com/talostrading/echobench/benchopts"
)

// recordingSink collects session outcomes.
type recordingSink struct {
	mu        sync.Mutex
	summaries map[int]Summary
	closed    []int
	errs      []error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{summaries: make(map[int]Summary)}
}

func (s *recordingSink) OnSessionSummary(id int, _ net.Addr, sum Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.summaries[id]; ok {
		panic(fmt.Sprintf("session %d reported twice", id))
	}
	s.summaries[id] = sum
}

func (s *recordingSink) OnSessionClose(id int, _ net.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = append(s.closed, id)
}

func (s *recordingSink) OnSessionError(_ int, _ net.Addr, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

type testServer struct {
	*Server
	sink    *recordingSink
	metrics *Metrics
	out     *bytes.Buffer
	errc    chan error
}

func startServer(t *testing.T, params Params, opts ...benchopts.Option) *testServer {
	t.Helper()

	ts := &testServer{
		sink:    newRecordingSink(),
		metrics: NewMetrics(prometheus.NewRegistry()),
		out:     &bytes.Buffer{},
		errc:    make(chan error, 1),
	}

	s, err := Listen("tcp", "127.0.0.1:0", Config{
		Params:  params,
		Logger:  log.New(ts.out, "", 0),
		Metrics: ts.metrics,
		Sink:    ts.sink,
	}, opts...)
	require.NoError(t, err)
	ts.Server = s

	go func() {
		ts.errc <- s.Serve()
	}()
	return ts
}

// stop closes the listener and waits for every session to report.
func (ts *testServer) stop(t *testing.T) {
	t.Helper()
	require.NoError(t, ts.Close())
	require.ErrorIs(t, <-ts.errc, bencherrors.ErrServerClosed)
	ts.Wait()
}

func TestServerConcurrentSessions(t *testing.T) {
	const conns = 8

	params := smallParams()
	ts := startServer(t, params, benchopts.ReuseAddr(true), benchopts.NoDelay(true))

	var wg sync.WaitGroup
	results := make([]Summary, conns)
	errs := make([]error, conns)
	for i := 0; i < conns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn, err := net.Dial("tcp", ts.Addr().String())
			if err != nil {
				errs[i] = err
				return
			}
			defer conn.Close()

			// Each client sends its own byte so a cross-wired echo fails the
			// comparison in Client.Run.
			c := &Client{Params: params, Fill: byte('a' + i)}
			results[i], errs[i] = c.Run(conn)
		}(i)
	}
	wg.Wait()
	ts.stop(t)

	assert := assert.New(t)
	for i := 0; i < conns; i++ {
		require.NoError(t, errs[i], "client %d", i)
		assert.Equal(int64(2*params.Iterations*params.BufferSize()), results[i].Bytes)
	}

	assert.Len(ts.sink.summaries, conns)
	for id, sum := range ts.sink.summaries {
		assert.Equal(int64(2*params.Iterations*params.BufferSize()), sum.Bytes, "session %d", id)
		assert.Equal(params.Iterations, sum.Count, "session %d", id)
	}
	assert.Empty(ts.sink.closed)
	assert.Empty(ts.sink.errs)

	assert.Equal(conns, bytes.Count(ts.out.Bytes(), []byte("[Benchmark Result]")))
	assert.Equal(float64(conns), testutil.ToFloat64(ts.metrics.SessionsAccepted))
	assert.Equal(float64(0), testutil.ToFloat64(ts.metrics.SessionsActive))
	assert.Equal(float64(conns),
		testutil.ToFloat64(ts.metrics.SessionsEnded.WithLabelValues(OutcomeCompleted)))
	assert.Equal(float64(conns*params.Iterations*params.BufferSize()),
		testutil.ToFloat64(ts.metrics.BytesReceived))
}

func TestServerPartialClientDoesNotAffectOthers(t *testing.T) {
	params := smallParams()
	ts := startServer(t, params)

	// This one hangs up halfway through its first chunk.
	partial, err := net.Dial("tcp", ts.Addr().String())
	require.NoError(t, err)
	_, err = partial.Write(make([]byte, params.BufferSize()/2))
	require.NoError(t, err)

	// This one stays connected and silent until the full client is done.
	idle, err := net.Dial("tcp", ts.Addr().String())
	require.NoError(t, err)

	full, err := net.Dial("tcp", ts.Addr().String())
	require.NoError(t, err)
	c := &Client{Params: params, Fill: 'z'}
	_, err = c.Run(full)
	require.NoError(t, err)
	full.Close()

	require.NoError(t, partial.Close())
	require.NoError(t, idle.Close())
	ts.stop(t)

	assert := assert.New(t)
	assert.Len(ts.sink.summaries, 1)
	assert.Len(ts.sink.closed, 2)
	assert.Empty(ts.sink.errs)
	assert.Equal(1, bytes.Count(ts.out.Bytes(), []byte("[Benchmark Result]")))
	assert.Equal(float64(2),
		testutil.ToFloat64(ts.metrics.SessionsEnded.WithLabelValues(OutcomeClosed)))
}

func TestServerIOErrorEndsOnlyItsSession(t *testing.T) {
	params := smallParams()
	ts := startServer(t, params)

	// This one sends a full chunk and resets the connection without reading
	// the echo, so the server's next read or write fails.
	broken, err := net.Dial("tcp", ts.Addr().String())
	require.NoError(t, err)
	_, err = broken.Write(make([]byte, params.BufferSize()))
	require.NoError(t, err)
	require.NoError(t, broken.(*net.TCPConn).SetLinger(0))
	require.NoError(t, broken.Close())

	full, err := net.Dial("tcp", ts.Addr().String())
	require.NoError(t, err)
	_, err = (&Client{Params: params, Fill: 'y'}).Run(full)
	require.NoError(t, err)
	full.Close()

	ts.stop(t)

	require.Len(t, ts.sink.errs, 1)

	assert := assert.New(t)
	assert.Len(ts.sink.summaries, 1)
	assert.Empty(ts.sink.closed)
	assert.NotErrorIs(ts.sink.errs[0], bencherrors.ErrPeerClosed)

	out := ts.out.String()
	assert.Equal(1, strings.Count(out, "[Benchmark Result]"))
	assert.Contains(out, "ended early")
	assert.Equal(float64(1),
		testutil.ToFloat64(ts.metrics.SessionsEnded.WithLabelValues(OutcomeError)))
	assert.Equal(float64(1),
		testutil.ToFloat64(ts.metrics.SessionsEnded.WithLabelValues(OutcomeCompleted)))
}

func TestServerCloseWithoutSessions(t *testing.T) {
	ts := startServer(t, smallParams())
	ts.stop(t)
	assert.Contains(t, ts.out.String(), "[Server] Listening on 127.0.0.1:")
}

func TestListenRejectsInvalidParams(t *testing.T) {
	params := smallParams()
	params.Iterations = 0
	_, err := Listen("tcp", "127.0.0.1:0", Config{Params: params})
	assert.ErrorIs(t, err, bencherrors.ErrInvalidParams)
}

func TestNewServerRejectsZeroParams(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	s, err := NewServer(ln, Config{})
	assert.ErrorIs(t, err, bencherrors.ErrInvalidParams)
	assert.Nil(t, s)
}

func TestListenBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	_, err = Listen("tcp", ln.Addr().String(), Config{Params: smallParams()})
	assert.Error(t, err)
}

// flakyListener fails the first Accept calls with the queued errors.
type flakyListener struct {
	net.Listener

	mu   sync.Mutex
	errs []error
}

func (l *flakyListener) Accept() (net.Conn, error) {
	l.mu.Lock()
	if len(l.errs) > 0 {
		err := l.errs[0]
		l.errs = l.errs[1:]
		l.mu.Unlock()
		return nil, err
	}
	l.mu.Unlock()
	return l.Listener.Accept()
}

func TestServerRetriesTemporaryAcceptErrors(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	flaky := &flakyListener{
		Listener: ln,
		errs: []error{
			&net.OpError{Op: "accept", Net: "tcp", Err: syscall.ECONNABORTED},
			&net.OpError{Op: "accept", Net: "tcp", Err: syscall.EMFILE},
		},
	}

	params := smallParams()
	metrics := NewMetrics(prometheus.NewRegistry())
	sink := newRecordingSink()
	var out bytes.Buffer
	s, err := NewServer(flaky, Config{
		Params:  params,
		Logger:  log.New(&out, "", 0),
		Metrics: metrics,
		Sink:    sink,
	})
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() { errc <- s.Serve() }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	_, err = (&Client{Params: params}).Run(conn)
	require.NoError(t, err)
	conn.Close()

	require.NoError(t, s.Close())
	require.ErrorIs(t, <-errc, bencherrors.ErrServerClosed)
	s.Wait()

	assert := assert.New(t)
	assert.Equal(float64(2), testutil.ToFloat64(metrics.AcceptErrors))
	assert.Len(sink.summaries, 1)
	assert.Contains(out.String(), "retrying in 5ms")
	assert.Contains(out.String(), "retrying in 10ms")
}

func TestServerFatalAcceptError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	boom := errors.New("boom")
	s, err := NewServer(&flakyListener{Listener: ln, errs: []error{boom}}, Config{
		Params: smallParams(),
		Logger: log.New(&bytes.Buffer{}, "", 0),
	})
	require.NoError(t, err)

	err = s.Serve()
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, bencherrors.ErrServerClosed)
}

func TestTemporary(t *testing.T) {
	assert := assert.New(t)
	assert.True(temporary(&net.OpError{Op: "accept", Err: syscall.ENFILE}))
	assert.True(temporary(fmt.Errorf("wrapped: %w", syscall.ENOBUFS)))
	assert.False(temporary(net.ErrClosed))
	assert.False(temporary(errors.New("boom")))
}
