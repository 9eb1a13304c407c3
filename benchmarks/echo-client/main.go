package main

import (
	"flag"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/talostrading/echobench"
	"github.com/talostrading/echobench/util"
)

var (
	addr       = flag.String("addr", "localhost:8000", "echo server address")
	conns      = flag.Int("conns", 1, "concurrent connections")
	rounds     = flag.Int("rounds", 1, "benchmark runs per connection; if < 0, run forever")
	pause      = flag.Duration("pause", 5*time.Second, "pause between runs on one connection slot")
	sampleRate = flag.Int("sample-rate", echobench.SampleRate, "samples per second of one chunk")
	duration   = flag.Int("duration", echobench.DurationSecs, "seconds of audio in one chunk")
	channels   = flag.Int("channels", echobench.Channels, "channels of one chunk")
	sampleSize = flag.Int("sample-size", echobench.BytesPerSample, "bytes per sample")
	iterations = flag.Int("iterations", echobench.Iterations, "chunks sent per run")
	hist       = flag.Bool("hist", false, "if set, print a round trip histogram after each run")
)

func run(id int, params echobench.Params) {
	var rtt *util.RTTHist
	if *hist {
		rtt = util.NewRTTHist(util.RTTHistOpts{
			Name:   "echo",
			MinPct: 1,
			Writer: os.Stdout,
		})
	}

	for round := 0; *rounds < 0 || round < *rounds; round++ {
		if round > 0 {
			time.Sleep(*pause)
		}

		conn, err := net.Dial("tcp", *addr)
		if err != nil {
			log.Printf("conn %d: connect failed: %v", id, err)
			continue
		}
		log.Printf("conn %d: connected to %s, starting benchmark", id, *addr)

		client := &echobench.Client{Params: params, Fill: 'A'}
		if rtt != nil {
			client.OnRoundTrip = func(_ int, d time.Duration) { rtt.Add(d) }
		}
		s, err := client.Run(conn)
		conn.Close()
		if err != nil {
			log.Printf("conn %d: %v", id, err)
			continue
		}

		log.Printf(
			"conn %d: transferred %.2f MB in %.2f s -> %.2f MB/s",
			id, s.Megabytes(), s.Seconds(), s.Bandwidth())
		if rtt != nil {
			rtt.Flush()
		}
	}
}

func main() {
	flag.Parse()

	params := echobench.Params{
		SampleRate:     *sampleRate,
		DurationSecs:   *duration,
		Channels:       *channels,
		BytesPerSample: *sampleSize,
		Iterations:     *iterations,
	}
	if err := params.Validate(); err != nil {
		log.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 1; i <= *conns; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			run(id, params)
		}(i)
	}
	wg.Wait()
}
