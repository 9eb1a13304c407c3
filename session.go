package echobench

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/talostrading/echobench/bencherrors"
	"github.com/valyala/bytebufferpool"
)

// Session echoes Params.Iterations chunks of Params.BufferSize bytes back to
// one peer, then reports. A Session owns its connection and its buffer, and is
// driven by a single goroutine.
type Session struct {
	id     int
	conn   net.Conn
	params Params

	pool    *bytebufferpool.Pool
	rec     *Recorder
	rep     *Reporter
	metrics *Metrics
	now     Clock
}

func newSession(
	id int,
	conn net.Conn,
	params Params,
	pool *bytebufferpool.Pool,
	rep *Reporter,
	metrics *Metrics,
	now Clock,
) *Session {
	if now == nil {
		now = time.Now
	}
	return &Session{
		id:      id,
		conn:    conn,
		params:  params,
		pool:    pool,
		rec:     NewRecorder(now),
		rep:     rep,
		metrics: metrics,
		now:     now,
	}
}

func (s *Session) ID() int {
	return s.id
}

func (s *Session) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// Recorder exposes the session's counters. Only read it once Run returned.
func (s *Session) Recorder() *Recorder {
	return s.rec
}

// Run performs the echo rounds. It returns the summary once all iterations
// completed, an error wrapping bencherrors.ErrPeerClosed if the peer hung up
// before that, or the read/write error which ended the session. The connection
// is closed on return.
func (s *Session) Run() (Summary, error) {
	defer s.conn.Close()

	bb := s.pool.Get()
	defer s.pool.Put(bb)

	size := s.params.BufferSize()
	if cap(bb.B) < size {
		bb.B = make([]byte, size)
	}
	buf := bb.B[:size]

	s.rec.Start()

	for i := 1; i <= s.params.Iterations; i++ {
		began := s.now()

		if err := readFull(s.conn, buf); err != nil {
			return Summary{}, err
		}
		s.rec.Add(size)
		s.metrics.BytesReceived.Add(float64(size))

		if err := writeFull(s.conn, buf); err != nil {
			return Summary{}, fmt.Errorf("write: %w", err)
		}
		s.metrics.BytesSent.Add(float64(size))

		took := s.now().Sub(began)
		s.rec.Observe(took)
		s.metrics.Iterations.Inc()
		s.metrics.IterationSeconds.Observe(took.Seconds())

		s.rep.Progress(i, size)
	}

	// Every byte was received and echoed once.
	return s.rec.Summary(2), nil
}

// readFull fills b. An io.EOF from the connection is how Go surfaces a
// zero-byte read: it maps to ErrPeerClosed whether or not part of b was
// filled.
func readFull(r io.Reader, b []byte) error {
	cursor := 0
	for cursor < len(b) {
		n, err := r.Read(b[cursor:])
		cursor += n
		if err != nil {
			if cursor == len(b) && errors.Is(err, io.EOF) {
				// The chunk is complete; the close shows up on the next read.
				return nil
			}
			if errors.Is(err, io.EOF) {
				return fmt.Errorf(
					"%w after %d of %d bytes",
					bencherrors.ErrPeerClosed, cursor, len(b))
			}
			return fmt.Errorf("read: %w", err)
		}
	}
	return nil
}

// writeFull flushes b, retrying short writes.
func writeFull(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		b = b[n:]
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}
	return nil
}
