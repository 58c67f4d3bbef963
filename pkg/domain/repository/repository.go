package repository

import "context"

// LabelStore is the deduplicating, insertion-ordered set of candidate
// labels described in spec.md §4.1.
type LabelStore interface {
	// Add case-folds label, rejects the empty string and the apex
	// itself, and returns whether it was newly inserted.
	Add(label string) bool
	// AddScraped is Add, additionally recording scrape provenance for
	// newly inserted labels.
	AddScraped(label string) bool
	// Iterate yields every label currently stored, in insertion order,
	// then continues to yield labels inserted after iteration began,
	// until Close is called. Safe for a single consumer.
	Iterate(ctx context.Context) <-chan Item
	// Size returns the current count of distinct labels.
	Size() int
	// Close signals that no further labels will be added; Iterate's
	// channel closes once every already-queued label has been emitted.
	Close()
}

// Item is one label paired with its provenance, as delivered by
// LabelStore.Iterate.
type Item struct {
	Label   string
	Scraped bool
}

// ConfirmedWriter serializes emission of confirmed FQDNs to stdout,
// deduplicated, one per line.
type ConfirmedWriter interface {
	// Emit writes fqdn followed by a newline exactly once across the
	// run; returns false if fqdn was already emitted, and an error if
	// the underlying write failed (e.g. broken pipe).
	Emit(fqdn string) (wrote bool, err error)
}
