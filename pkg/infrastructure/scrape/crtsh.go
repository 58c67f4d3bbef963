package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// CertSpotter implements the certificate-transparency scraper contract of
// spec.md §4.3: a JSON array of objects carrying a newline-separated
// name_value field, shaped like crt.sh's ?output=json response.
type CertSpotter struct {
	// Endpoint is overridable for tests; defaults to crt.sh.
	Endpoint string
}

type certEntry struct {
	NameValue string `json:"name_value"`
}

func (c *CertSpotter) Name() string { return "certificate-transparency" }

func (c *CertSpotter) endpoint(apex string) string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return fmt.Sprintf("https://crt.sh/?q=%%25.%s&output=json", apex)
}

func (c *CertSpotter) Scrape(ctx context.Context, apex string) (<-chan string, error) {
	resp, cancel, err := fetchWithRetry(ctx, c.endpoint(apex))
	if err != nil {
		return closedChan(), fmt.Errorf("%s: %w", c.Name(), err)
	}
	defer cancel()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return closedChan(), fmt.Errorf("%s: unexpected status %d", c.Name(), resp.StatusCode)
	}

	var entries []certEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return closedChan(), fmt.Errorf("%s: decode: %w", c.Name(), err)
	}

	suffix := "." + strings.ToLower(apex)
	var labels []string
	for _, entry := range entries {
		for _, name := range strings.Split(entry.NameValue, "\n") {
			name = strings.ToLower(strings.TrimSpace(name))
			name = strings.TrimPrefix(name, "*.")
			if name == "" || !strings.HasSuffix(name, suffix) {
				continue
			}
			label := strings.TrimSuffix(name, suffix)
			if label == "" {
				continue
			}
			labels = append(labels, label)
		}
	}

	out := make(chan string, len(labels))
	for _, l := range labels {
		out <- l
	}
	close(out)
	return out, nil
}

func closedChan() <-chan string {
	ch := make(chan string)
	close(ch)
	return ch
}
