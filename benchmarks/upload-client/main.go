package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/talostrading/echobench"
)

var (
	url        = flag.String("url", "http://localhost:8080/upload", "upload endpoint")
	n          = flag.Int("n", echobench.Iterations, "chunks to upload; if < 0, upload until interrupted")
	timeout    = flag.Duration("timeout", 10*time.Second, "per request timeout")
	sampleRate = flag.Int("sample-rate", echobench.SampleRate, "samples per second of one chunk")
	duration   = flag.Int("duration", echobench.DurationSecs, "seconds of audio in one chunk")
	channels   = flag.Int("channels", echobench.Channels, "channels of one chunk")
	sampleSize = flag.Int("sample-size", echobench.BytesPerSample, "bytes per sample")
)

func main() {
	flag.Parse()

	params := echobench.DefaultParams()
	params.SampleRate = *sampleRate
	params.DurationSecs = *duration
	params.Channels = *channels
	params.BytesPerSample = *sampleSize
	if err := params.Validate(); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	client := &echobench.UploadClient{
		URL:    *url,
		Params: params,
		Fill:   0xAA,
		HTTP:   &http.Client{Timeout: *timeout},
	}

	s, err := client.Run(ctx, *n)
	if err != nil {
		log.Printf("upload failed: %v", err)
	}
	log.Printf(
		"uploaded %d chunks, %.2f MB in %.2f s -> %.2f MB/s",
		s.Count, s.Megabytes(), s.Seconds(), s.Bandwidth())
	if err != nil {
		os.Exit(1)
	}
}
