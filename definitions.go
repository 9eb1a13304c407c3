package echobench

import (
	"fmt"
	"net"
	"time"

	"github.com/talostrading/echobench/bencherrors"
)

// One chunk is five seconds of 16kHz mono 16-bit audio.
const (
	SampleRate     = 16_000
	DurationSecs   = 5
	Channels       = 1
	BytesPerSample = 2

	BufferSize = SampleRate * DurationSecs * Channels * BytesPerSample

	// Iterations is the number of chunks a session echoes before it reports.
	Iterations = 10

	// Megabyte is binary: every figure reported in MB uses it.
	Megabyte = 1024 * 1024

	DefaultEchoAddr   = "0.0.0.0:8000"
	DefaultUploadAddr = "0.0.0.0:8080"
)

// Params are the fixed parameters of a benchmark run. The zero value is not
// usable, start from DefaultParams.
type Params struct {
	SampleRate     int
	DurationSecs   int
	Channels       int
	BytesPerSample int

	// Iterations per echo session, or the request count which triggers the
	// upload summary.
	Iterations int
}

func DefaultParams() Params {
	return Params{
		SampleRate:     SampleRate,
		DurationSecs:   DurationSecs,
		Channels:       Channels,
		BytesPerSample: BytesPerSample,
		Iterations:     Iterations,
	}
}

// BufferSize is the size of one chunk in bytes.
func (p Params) BufferSize() int {
	return p.SampleRate * p.DurationSecs * p.Channels * p.BytesPerSample
}

func (p Params) Validate() error {
	fields := []struct {
		name string
		v    int
	}{
		{"sample_rate", p.SampleRate},
		{"duration_secs", p.DurationSecs},
		{"channels", p.Channels},
		{"bytes_per_sample", p.BytesPerSample},
		{"iterations", p.Iterations},
	}
	for _, f := range fields {
		if f.v <= 0 {
			return fmt.Errorf("%w: %s=%d", bencherrors.ErrInvalidParams, f.name, f.v)
		}
	}
	return nil
}

func (p Params) String() string {
	return fmt.Sprintf(
		"buffer=%d bytes (%dHz x %ds x %dch x %dB) iterations=%d",
		p.BufferSize(), p.SampleRate, p.DurationSecs, p.Channels, p.BytesPerSample, p.Iterations,
	)
}

// SessionSink is notified of how each echo session ended. Exactly one method is
// called per session.
type SessionSink interface {
	// OnSessionSummary is called once a session echoed all its iterations.
	OnSessionSummary(id int, addr net.Addr, s Summary)

	// OnSessionClose is called when the peer closed the connection before the
	// last iteration. No summary is produced.
	OnSessionClose(id int, addr net.Addr)

	// OnSessionError is called when a read or a write failed. No summary is
	// produced.
	OnSessionError(id int, addr net.Addr, err error)
}

// Clock returns the current time. Recorders take one so tests can control
// elapsed time.
type Clock func() time.Time
