package scrape

import (
	"context"
	"math/rand"
	"net/http"
	"time"
)

// requestTimeout is the fixed per-scraper request timeout from spec.md §4.3.
const requestTimeout = 30 * time.Second

// userAgents mirrors the teacher's rotation of realistic browser User-Agent
// strings, adapted from pkg/common.GetHTTPClient's random-UA behavior.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
}

func randomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

var sharedClient = &http.Client{Timeout: requestTimeout}

// fetchWithRetry performs a single GET against url, retrying exactly once on
// a network-level failure (spec.md §4.3: "a single retry on transient
// network failure"). An HTTP-level error status is not retried here — the
// caller decides whether a non-200 counts as a failure.
//
// The caller must call the returned cancel func only after it has finished
// reading the response body — cancelling earlier aborts the in-flight read.
func fetchWithRetry(ctx context.Context, url string) (*http.Response, context.CancelFunc, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
		if err != nil {
			cancel()
			return nil, nil, err
		}
		req.Header.Set("User-Agent", randomUserAgent())

		resp, err := sharedClient.Do(req)
		if err == nil {
			return resp, cancel, nil
		}
		lastErr = err
		cancel()
	}
	return nil, nil, lastErr
}
