package echobench

import (
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Latency summarizes per-iteration durations, in microseconds.
type Latency struct {
	Min int64
	P50 int64
	P99 int64
	Max int64
}

// Summary is a benchmark result evaluated at the reporting trigger.
type Summary struct {
	// Bytes moved. For the echo variant this counts both directions.
	Bytes   int64
	Elapsed time.Duration

	// Count is the number of iterations or requests covered.
	Count int

	// Latency is nil when no iteration durations were recorded.
	Latency *Latency
}

func (s Summary) Megabytes() float64 {
	return float64(s.Bytes) / Megabyte
}

func (s Summary) Seconds() float64 {
	return s.Elapsed.Seconds()
}

// Bandwidth in MB/s. Zero when no time elapsed.
func (s Summary) Bandwidth() float64 {
	secs := s.Seconds()
	if secs <= 0 {
		return 0
	}
	return s.Megabytes() / secs
}

// Recorder tracks the progress of a single echo session. It is owned by the
// session goroutine and is not safe for concurrent use.
type Recorder struct {
	now Clock

	start      time.Time
	started    bool
	iterations int
	bytes      int64

	hist *hdrhistogram.Histogram
}

// NewRecorder returns a Recorder reading time from now, or from time.Now if
// now is nil.
func NewRecorder(now Clock) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{
		now: now,
		// 1us to 1 minute with 3 significant figures.
		hist: hdrhistogram.New(1, int64(time.Minute/time.Microsecond), 3),
	}
}

// Start sets the start timestamp. Only the first call has an effect.
func (r *Recorder) Start() {
	if r.started {
		return
	}
	r.start = r.now()
	r.started = true
}

// Add accounts for one completed iteration of n bytes and returns the number
// of completed iterations.
func (r *Recorder) Add(n int) int {
	r.iterations++
	r.bytes += int64(n)
	return r.iterations
}

// Observe records the duration of one iteration. Durations past the
// histogram's range are recorded at its highest trackable value.
func (r *Recorder) Observe(d time.Duration) {
	us := d.Microseconds()
	if us < 1 {
		us = 1
	}
	if hi := r.hist.HighestTrackableValue(); us > hi {
		us = hi
	}
	_ = r.hist.RecordValue(us)
}

func (r *Recorder) Bytes() int64 {
	return r.bytes
}

func (r *Recorder) Iterations() int {
	return r.iterations
}

// Summary evaluates the bytes seen so far, multiplied by factor, over the time
// elapsed since Start.
func (r *Recorder) Summary(factor int) Summary {
	s := Summary{
		Bytes: r.bytes * int64(factor),
		Count: r.iterations,
	}
	if r.started {
		s.Elapsed = r.now().Sub(r.start)
	}
	if r.hist.TotalCount() > 0 {
		s.Latency = &Latency{
			Min: r.hist.Min(),
			P50: r.hist.ValueAtPercentile(50),
			P99: r.hist.ValueAtPercentile(99),
			Max: r.hist.Max(),
		}
	}
	return s
}

// Observation is what a SharedRecorder saw right after one event.
type Observation struct {
	// Count is the 1-based index of this event.
	Count int64

	// Bytes is the process-wide total including this event.
	Bytes int64

	// First is true for the single event which set the start timestamp.
	First bool
}

// SharedRecorder counts events across concurrent handlers. The start timestamp
// is set by whichever event is observed first and is never overwritten.
type SharedRecorder struct {
	now Clock

	count atomic.Int64
	bytes atomic.Int64
	start atomic.Pointer[time.Time]
}

func NewSharedRecorder(now Clock) *SharedRecorder {
	if now == nil {
		now = time.Now
	}
	return &SharedRecorder{now: now}
}

// Observe accounts for one event of n bytes.
func (r *SharedRecorder) Observe(n int) Observation {
	count := r.count.Add(1)
	bytes := r.bytes.Add(int64(n))

	first := false
	if r.start.Load() == nil {
		t := r.now()
		first = r.start.CompareAndSwap(nil, &t)
	}

	return Observation{
		Count: count,
		Bytes: bytes,
		First: first,
	}
}

func (r *SharedRecorder) Count() int64 {
	return r.count.Load()
}

func (r *SharedRecorder) Bytes() int64 {
	return r.bytes.Load()
}

// Started returns the start timestamp, if any event was observed.
func (r *SharedRecorder) Started() (time.Time, bool) {
	t := r.start.Load()
	if t == nil {
		return time.Time{}, false
	}
	return *t, true
}

// Summary evaluates the total bytes seen so far over the time elapsed since
// the first event.
func (r *SharedRecorder) Summary() Summary {
	s := Summary{
		Bytes: r.bytes.Load(),
		Count: int(r.count.Load()),
	}
	if start, ok := r.Started(); ok {
		s.Elapsed = r.now().Sub(start)
	}
	return s
}
