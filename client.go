package echobench

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/talostrading/echobench/bencherrors"
)

// Client drives one echo session: it sends a full chunk, waits for the whole
// echo, checks it and repeats for Params.Iterations rounds.
type Client struct {
	Params Params

	// Fill is the byte the payload is made of.
	Fill byte

	// OnRoundTrip, if set, is called after each round with its 1-based index
	// and duration.
	OnRoundTrip func(i int, d time.Duration)

	Clock Clock
}

// Run drives the session over conn. It does not close conn. The summary
// counts bytes sent and received.
func (c *Client) Run(conn net.Conn) (Summary, error) {
	size := c.Params.BufferSize()
	tx := bytes.Repeat([]byte{c.Fill}, size)
	rx := make([]byte, size)

	rec := NewRecorder(c.Clock)
	now := rec.now
	rec.Start()

	for i := 1; i <= c.Params.Iterations; i++ {
		began := now()

		if err := writeFull(conn, tx); err != nil {
			return Summary{}, fmt.Errorf("iteration %d: write: %w", i, err)
		}
		if err := readFull(conn, rx); err != nil {
			return Summary{}, fmt.Errorf("iteration %d: %w", i, err)
		}
		if !bytes.Equal(tx, rx) {
			return Summary{}, fmt.Errorf("iteration %d: %w", i, bencherrors.ErrEchoMismatch)
		}

		took := now().Sub(began)
		rec.Add(2 * size)
		rec.Observe(took)
		if c.OnRoundTrip != nil {
			c.OnRoundTrip(i, took)
		}
	}

	return rec.Summary(1), nil
}

// UploadClient POSTs fixed-size chunks to an upload endpoint.
type UploadClient struct {
	URL    string
	Params Params
	Fill   byte

	// HTTP defaults to http.DefaultClient.
	HTTP *http.Client

	Clock Clock
}

// Upload POSTs one chunk and requires a 200 answer.
func (c *UploadClient) Upload(ctx context.Context) error {
	body := bytes.Repeat([]byte{c.Fill}, c.Params.BufferSize())
	return c.upload(ctx, body)
}

func (c *UploadClient) upload(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%w %d", bencherrors.ErrUnexpectedStatus, res.StatusCode)
	}
	return nil
}

// Run uploads n chunks, or chunks until ctx is done if n is negative. The
// summary counts bytes uploaded.
func (c *UploadClient) Run(ctx context.Context, n int) (Summary, error) {
	size := c.Params.BufferSize()
	body := bytes.Repeat([]byte{c.Fill}, size)

	rec := NewRecorder(c.Clock)
	rec.Start()

	for i := 0; n < 0 || i < n; i++ {
		if err := ctx.Err(); err != nil {
			if n < 0 {
				break
			}
			return rec.Summary(1), err
		}

		began := rec.now()
		if err := c.upload(ctx, body); err != nil {
			if n < 0 && ctx.Err() != nil {
				break
			}
			return rec.Summary(1), fmt.Errorf("upload %d: %w", i+1, err)
		}
		rec.Add(size)
		rec.Observe(rec.now().Sub(began))
	}

	return rec.Summary(1), nil
}
