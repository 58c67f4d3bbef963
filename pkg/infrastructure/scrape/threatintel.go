package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ThreatIntel implements the threat-intel-aggregator scraper contract of
// spec.md §4.3: a JSON object with a subdomains array of hostnames.
type ThreatIntel struct {
	Endpoint string
}

type threatIntelResponse struct {
	Subdomains []string `json:"subdomains"`
}

func (t *ThreatIntel) Name() string { return "threat-intel" }

func (t *ThreatIntel) endpoint(apex string) string {
	if t.Endpoint != "" {
		return t.Endpoint
	}
	return fmt.Sprintf("https://api.threatintel.example/v1/subdomains?domain=%s", apex)
}

func (t *ThreatIntel) Scrape(ctx context.Context, apex string) (<-chan string, error) {
	resp, cancel, err := fetchWithRetry(ctx, t.endpoint(apex))
	if err != nil {
		return closedChan(), fmt.Errorf("%s: %w", t.Name(), err)
	}
	defer cancel()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return closedChan(), fmt.Errorf("%s: unexpected status %d", t.Name(), resp.StatusCode)
	}

	var payload threatIntelResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return closedChan(), fmt.Errorf("%s: decode: %w", t.Name(), err)
	}

	suffix := "." + strings.ToLower(apex)
	out := make(chan string, len(payload.Subdomains))
	for _, host := range payload.Subdomains {
		host = strings.ToLower(strings.TrimSpace(host))
		if !strings.HasSuffix(host, suffix) {
			continue
		}
		label := strings.TrimSuffix(host, suffix)
		if label != "" {
			out <- label
		}
	}
	close(out)
	return out, nil
}
