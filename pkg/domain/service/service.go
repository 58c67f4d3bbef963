package service

import (
	"context"
	"time"

	"github.com/dnsmap/dnsmap/pkg/domain/entity"
)

// Resolver performs the live DNS confirmation described in spec.md §4.4.
type Resolver interface {
	// Probe performs an A/AAAA lookup for fqdn, bounded by the
	// resolver's current per-query timeout.
	Probe(ctx context.Context, fqdn string) entity.ProbeResult
	// SetTimeout updates the per-query timeout the Controller tunes.
	SetTimeout(d time.Duration)
	// Timeout returns the current per-query timeout.
	Timeout() time.Duration
}

// Scraper is the single-method capability spec.md §4.3/§9 asks for: a
// passive-discovery adapter that fetches candidate labels from an
// external source without issuing DNS queries.
type Scraper interface {
	// Name identifies the scraper in Reporter messages.
	Name() string
	// Scrape returns a finite, lazily-produced sequence of labels for
	// apex. The channel closes when the source is exhausted. A non-nil
	// error means the source failed (a network failure that persisted
	// through its retry, a non-OK status, or an unparseable body); the
	// channel returned in that case is closed and empty.
	Scrape(ctx context.Context, apex string) (<-chan string, error)
}
