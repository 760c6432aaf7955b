package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	userAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultTimeout = 15 * time.Second
	maxBackoff     = 30 * time.Second
)

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// doWithBackoff sends the request built by newReq, retrying on 429 with a
// doubling delay capped at maxBackoff. At most attempts requests are made.
func doWithBackoff(ctx context.Context, client *http.Client, attempts int, initial time.Duration, newReq func() (*http.Request, error)) (*http.Response, error) {
	delay := initial
	for i := 1; ; i++ {
		req, err := newReq()
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests || i >= attempts {
			return resp, nil
		}
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if delay < maxBackoff {
			delay *= 2
		}
	}
}

// checkStatus returns an error for any non-200 response, including a short
// excerpt of the body.
func checkStatus(resp *http.Response, service string) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	if len(body) == 0 {
		return fmt.Errorf("%s http %d", service, resp.StatusCode)
	}
	return fmt.Errorf("%s http %d: %s", service, resp.StatusCode, body)
}
