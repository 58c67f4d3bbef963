package scrape

import (
	"context"
	"fmt"
	"sync"

	"github.com/dnsmap/dnsmap/pkg/domain/repository"
	"github.com/dnsmap/dnsmap/pkg/domain/service"
)

// Logger is the minimal capability the Reporter exposes to the scrape
// phase: a single line, printed without corrupting an active progress bar.
type Logger interface {
	Log(line string)
}

// Default returns the three scrapers specified by spec.md §4.3, registered
// in a static list owned by the caller (spec.md §9's "register them in a
// static list owned by the Orchestrator").
func Default() []service.Scraper {
	return []service.Scraper{
		&CertSpotter{},
		&PassiveDNS{},
		&ThreatIntel{},
	}
}

// Run fans scrapers out concurrently against apex, feeding every label they
// produce into store, and reports per-scraper and aggregate summaries via
// log. It returns once every scraper has either returned or exhausted its
// retry budget, per spec.md §4.3, along with the aggregate total and new
// counts the Orchestrator needs for its merge-phase summary line.
func Run(ctx context.Context, apex string, scrapers []service.Scraper, store repository.LabelStore, log Logger) (total, added int) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	totalAll, newAll := 0, 0

	for _, s := range scrapers {
		wg.Add(1)
		go func(s service.Scraper) {
			defer wg.Done()

			labels, err := s.Scrape(ctx, apex)
			if err != nil {
				log.Log(fmt.Sprintf("[info] scrape %s failed: %v", s.Name(), err))
			}

			total, newCount := 0, 0
			for label := range labels {
				total++
				if store.AddScraped(label) {
					newCount++
				}
			}

			if err == nil {
				log.Log(fmt.Sprintf("[info] scrape %s yielded %d labels, of which %d are new", s.Name(), total, newCount))
			}

			mu.Lock()
			totalAll += total
			newAll += newCount
			mu.Unlock()
		}(s)
	}

	wg.Wait()

	log.Log(fmt.Sprintf("[info] scraping sources yielded %d labels, of which %d are new", totalAll, newAll))
	return totalAll, newAll
}
