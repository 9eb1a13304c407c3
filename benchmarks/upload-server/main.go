package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/talostrading/echobench"
)

var (
	addr     = flag.String("addr", echobench.DefaultUploadAddr, "address to listen on")
	expected = flag.Int("expected", echobench.Iterations, "requests counted before every response logs a summary")
	debug    = flag.String("debug", "", "address for pprof and fgprof; if empty, none are served")
)

func main() {
	flag.Parse()

	if *expected <= 0 {
		log.Fatalf("-expected must be positive, got %d", *expected)
	}

	logger := log.New(os.Stdout, "", 0)
	reg := prometheus.NewRegistry()
	metrics := echobench.NewMetrics(reg)

	h := echobench.NewUploadHandler(
		echobench.NewSharedRecorder(nil),
		*expected,
		echobench.NewReporter(logger),
		metrics,
	)

	if *debug != "" {
		go func() {
			if err := http.ListenAndServe(*debug, echobench.NewDebugMux(reg)); err != nil {
				log.Fatal(err)
			}
		}()
	}

	logger.Printf("[Server] Listening on http://%s", *addr)
	if err := http.ListenAndServe(*addr, echobench.NewUploadMux(h, reg)); err != nil {
		log.Fatal(err)
	}
}
