package main

import (
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/talostrading/echobench"
	"github.com/talostrading/echobench/bencherrors"
	"github.com/talostrading/echobench/benchopts"
	"github.com/talostrading/echobench/util"
)

var (
	addr       = flag.String("addr", echobench.DefaultEchoAddr, "address to listen on")
	sampleRate = flag.Int("sample-rate", echobench.SampleRate, "samples per second of one chunk")
	duration   = flag.Int("duration", echobench.DurationSecs, "seconds of audio in one chunk")
	channels   = flag.Int("channels", echobench.Channels, "channels of one chunk")
	sampleSize = flag.Int("sample-size", echobench.BytesPerSample, "bytes per sample")
	iterations = flag.Int("iterations", echobench.Iterations, "chunks echoed per connection before reporting")
	debug      = flag.String("debug", "", "address for pprof, fgprof and metrics; if empty, none are served")
	pin        = flag.String("pin", "", "cpu list to pin the server to, e.g. 0,2-3")
	reusePort  = flag.Bool("reuseport", false, "set SO_REUSEPORT on the listening socket")
	noDelay    = flag.Bool("nodelay", true, "set TCP_NODELAY on accepted connections")
	rcvbuf     = flag.Int("rcvbuf", 0, "SO_RCVBUF in bytes; if 0, the kernel default")
	sndbuf     = flag.Int("sndbuf", 0, "SO_SNDBUF in bytes; if 0, the kernel default")
)

func main() {
	flag.Parse()

	if *pin != "" {
		cpus, err := util.ParseCPUList(*pin)
		if err != nil {
			log.Fatal(err)
		}
		runtime.GOMAXPROCS(len(cpus))
		runtime.LockOSThread()
		if err := util.PinTo(cpus...); err != nil {
			log.Fatal(err)
		}
	}

	params := echobench.Params{
		SampleRate:     *sampleRate,
		DurationSecs:   *duration,
		Channels:       *channels,
		BytesPerSample: *sampleSize,
		Iterations:     *iterations,
	}

	var opts []benchopts.Option
	opts = benchopts.AddOption(benchopts.ReuseAddr(true), opts)
	opts = benchopts.AddOption(benchopts.NoDelay(*noDelay), opts)
	if *reusePort {
		opts = benchopts.AddOption(benchopts.ReusePort(true), opts)
	}
	if *rcvbuf > 0 {
		opts = benchopts.AddOption(benchopts.RecvBuffer(*rcvbuf), opts)
	}
	if *sndbuf > 0 {
		opts = benchopts.AddOption(benchopts.SendBuffer(*sndbuf), opts)
	}

	logger := log.New(os.Stdout, "", 0)
	reg := prometheus.NewRegistry()

	s, err := echobench.Listen("tcp", *addr, echobench.Config{
		Params:  params,
		Logger:  logger,
		Metrics: echobench.NewMetrics(reg),
	}, opts...)
	if err != nil {
		log.Fatal(err)
	}
	logger.Printf("[Server] %s", params)

	if *debug != "" {
		go func() {
			if err := http.ListenAndServe(*debug, echobench.NewDebugMux(reg)); err != nil {
				log.Fatal(err)
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		_ = s.Close()
	}()

	if err := s.Serve(); !errors.Is(err, bencherrors.ErrServerClosed) {
		log.Fatal(err)
	}
	s.Wait()
}
