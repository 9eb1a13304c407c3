package echobench

import (
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"time"
)

// Reporter writes human readable progress and summaries. Every event is a
// single write to the underlying logger, so lines of concurrent sessions
// interleave but never tear.
type Reporter struct {
	log *log.Logger
}

// NewReporter returns a Reporter writing to l, or to the standard logger if l
// is nil.
func NewReporter(l *log.Logger) *Reporter {
	if l == nil {
		l = log.Default()
	}
	return &Reporter{log: l}
}

// DiscardReporter drops everything.
func DiscardReporter() *Reporter {
	return &Reporter{log: log.New(io.Discard, "", 0)}
}

func (r *Reporter) printf(format string, v ...interface{}) {
	_ = r.log.Output(2, fmt.Sprintf(format, v...))
}

func (r *Reporter) Listening(addr net.Addr) {
	r.printf("[Server] Listening on %s...", addr)
}

func (r *Reporter) Accepted(id int, addr net.Addr) {
	r.printf("[Server] Connection %d from %s", id, addr)
}

func (r *Reporter) AcceptError(err error, retry time.Duration) {
	r.printf("[Server] Accept error: %v; retrying in %v", err, retry)
}

// Progress reports one echoed chunk. i is 1-based.
func (r *Reporter) Progress(i, n int) {
	r.printf("[%d] Received and echoed %d bytes", i, n)
}

// Received reports one uploaded body. count is 1-based.
func (r *Reporter) Received(count int64, n int) {
	r.printf("[%d] Received %d bytes", count, n)
}

func (r *Reporter) FirstEvent() {
	r.printf("[Server] First connection received.")
}

func (r *Reporter) Closed(id int, addr net.Addr) {
	r.printf("[Server] Connection %d from %s closed", id, addr)
}

func (r *Reporter) OptionError(id int, addr net.Addr, err error) {
	r.printf("[Server] Connection %d from %s: could not set socket options: %v", id, addr, err)
}

func (r *Reporter) Error(id int, addr net.Addr, err error) {
	r.printf("[Server] Connection %d from %s ended early: %v", id, addr, err)
}

func (r *Reporter) Summary(s Summary) {
	r.printf("%s", FormatSummary(s))
}

// FormatSummary renders the benchmark result block.
func FormatSummary(s Summary) string {
	var b strings.Builder
	b.WriteString("\n[Benchmark Result]\n")
	fmt.Fprintf(&b, "  Total transferred: %.2f MB\n", s.Megabytes())
	fmt.Fprintf(&b, "  Elapsed time     : %.2f s\n", s.Seconds())
	fmt.Fprintf(&b, "  Bandwidth        : %.2f MB/s", s.Bandwidth())
	if l := s.Latency; l != nil {
		fmt.Fprintf(&b,
			"\n  Iteration (us)   : min/p50/p99/max = %d/%d/%d/%d",
			l.Min, l.P50, l.P99, l.Max)
	}
	return b.String()
}
