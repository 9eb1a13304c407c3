package util

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

type RTTHistOpts struct {
	Name string

	// Report every N samples. Zero reports only on Flush.
	N int64

	// Buckets holding less than MinPct of the samples are not drawn.
	MinPct float64

	// Max is the largest round trip tracked. Longer ones are clamped.
	Max time.Duration

	Writer io.Writer
}

// RTTHist prints round trip time distributions, in microseconds, to a
// terminal.
type RTTHist struct {
	opts RTTHistOpts

	hdr  *hdrhistogram.Histogram
	tabw *tabwriter.Writer
	n    int
}

func NewRTTHist(opts RTTHistOpts) *RTTHist {
	if opts.Max <= 0 {
		opts.Max = time.Minute
	}
	h := &RTTHist{
		opts: opts,
		hdr:  hdrhistogram.New(1, opts.Max.Microseconds(), 2),
	}
	if opts.Writer != nil {
		h.tabw = tabwriter.NewWriter(opts.Writer, 2, 2, 2, byte(' '), 0)
	}
	return h
}

func (h *RTTHist) Add(ds ...time.Duration) {
	for _, d := range ds {
		us := d.Microseconds()
		if us < 1 {
			us = 1
		}
		if hi := h.hdr.HighestTrackableValue(); us > hi {
			us = hi
		}
		_ = h.hdr.RecordValue(us)
	}
	if h.opts.N > 0 && h.hdr.TotalCount() >= h.opts.N {
		h.Flush()
	}
}

// Flush reports and resets whatever was recorded since the last report.
func (h *RTTHist) Flush() {
	if h.hdr.TotalCount() == 0 {
		return
	}
	h.n++
	h.report()
	h.hdr.Reset()
}

func (h *RTTHist) Reported() int {
	return h.n
}

func (h *RTTHist) Count() int64 {
	return h.hdr.TotalCount()
}

func (h *RTTHist) report() {
	if h.opts.Writer == nil {
		return
	}

	w := h.opts.Writer
	fmt.Fprint(w, "----------------------------------------------\n")
	fmt.Fprintf(w,
		"%v rtt report=%d name=%s samples=%d\n",
		time.Now().Format("2006-01-02 15:04:05"),
		h.n, h.opts.Name, h.hdr.TotalCount(),
	)
	fmt.Fprintf(w,
		"min/avg/max/stddev = %d/%.1f/%d/%.1f us\n",
		h.hdr.Min(), h.hdr.Mean(), h.hdr.Max(), h.hdr.StdDev())
	for _, p := range []float64{50, 90, 99} {
		fmt.Fprintf(w, "p%g = %d us\n", p, h.hdr.ValueAtPercentile(p))
	}

	var maxBinCount int64
	for _, bin := range h.hdr.Distribution() {
		if bin.Count > maxBinCount {
			maxBinCount = bin.Count
		}
	}

	for _, bin := range h.hdr.Distribution() {
		if bin.Count == 0 {
			continue
		}
		pct := float64(bin.Count) * 100.0 / float64(h.hdr.TotalCount())
		if pct < h.opts.MinPct {
			continue
		}

		barSize := int(math.Ceil(float64(bin.Count) * 10 / float64(maxBinCount)))
		if barSize == 0 {
			barSize = 1
		}

		fmt.Fprintf(h.tabw,
			"%d-%d us\t%.3g%%\t%s\t%d\n",
			bin.From, bin.To, pct, strings.Repeat("|", barSize), bin.Count,
		)
	}

	_ = h.tabw.Flush()
}
