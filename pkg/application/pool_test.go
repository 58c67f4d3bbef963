package application

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dnsmap/dnsmap/pkg/domain/entity"
	"github.com/dnsmap/dnsmap/pkg/domain/repository"
)

type fakeItemStore struct {
	items []repository.Item
}

func (s *fakeItemStore) Add(label string) bool         { return true }
func (s *fakeItemStore) AddScraped(label string) bool  { return true }
func (s *fakeItemStore) Size() int                     { return len(s.items) }
func (s *fakeItemStore) Close()                        {}
func (s *fakeItemStore) Iterate(ctx context.Context) <-chan repository.Item {
	out := make(chan repository.Item, len(s.items))
	for _, it := range s.items {
		out <- it
	}
	close(out)
	return out
}

var _ repository.LabelStore = (*fakeItemStore)(nil)

type fakeResolver struct {
	resolveAddrs []string
	// only, when non-nil, restricts resolution to these exact fqdns;
	// anything else reports NotFound. Left nil, every fqdn resolves.
	only  map[string]bool
	calls int32
}

func (r *fakeResolver) Probe(ctx context.Context, fqdn string) entity.ProbeResult {
	atomic.AddInt32(&r.calls, 1)
	if r.only != nil && !r.only[fqdn] {
		return entity.ProbeResult{Outcome: entity.NotFound, Latency: time.Millisecond}
	}
	if len(r.resolveAddrs) > 0 {
		return entity.ProbeResult{Outcome: entity.Resolved, Addresses: r.resolveAddrs, Latency: time.Millisecond}
	}
	return entity.ProbeResult{Outcome: entity.NotFound, Latency: time.Millisecond}
}
func (r *fakeResolver) SetTimeout(d time.Duration) {}
func (r *fakeResolver) Timeout() time.Duration     { return 500 * time.Millisecond }

type fakeWriter struct {
	mu      sync.Mutex
	emitted []string
}

func (w *fakeWriter) Emit(fqdn string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, e := range w.emitted {
		if e == fqdn {
			return false, nil
		}
	}
	w.emitted = append(w.emitted, fqdn)
	return true, nil
}

func TestPoolResolvesAllLabelsAndEmitsOnce(t *testing.T) {
	store := &fakeItemStore{items: []repository.Item{
		{Label: "www"}, {Label: "api", Scraped: true}, {Label: "vpn"},
	}}
	resolver := &fakeResolver{resolveAddrs: []string{"93.184.216.34"}}
	writer := &fakeWriter{}
	window := entity.NewWindow()
	stats := entity.NewStats()

	p := NewPool("example.com", resolver, store, window, stats, writer, nil)
	p.Run(context.Background(), 4)

	if stats.Attempted() != 3 {
		t.Fatalf("expected 3 attempts, got %d", stats.Attempted())
	}
	if stats.Found() != 3 {
		t.Fatalf("expected 3 found, got %d", stats.Found())
	}
	if stats.ScrapeFound() != 1 {
		t.Fatalf("expected 1 scrape-found, got %d", stats.ScrapeFound())
	}
	if len(writer.emitted) != 3 {
		t.Fatalf("expected 3 emissions, got %v", writer.emitted)
	}
}

func TestPoolSuppressesWildcardOnlyResolutions(t *testing.T) {
	store := &fakeItemStore{items: []repository.Item{
		{Label: "nonexistent-one"}, {Label: "nonexistent-two"},
	}}
	resolver := &fakeResolver{resolveAddrs: []string{"10.0.0.1"}}
	writer := &fakeWriter{}
	window := entity.NewWindow()
	stats := entity.NewStats()
	wildcard := map[string]bool{"10.0.0.1": true}

	p := NewPool("example.com", resolver, store, window, stats, writer, wildcard)
	p.Run(context.Background(), 2)

	if stats.Attempted() != 2 {
		t.Fatalf("expected 2 attempts, got %d", stats.Attempted())
	}
	if stats.Found() != 0 {
		t.Fatalf("expected 0 found (wildcard-only), got %d", stats.Found())
	}
	if len(writer.emitted) != 0 {
		t.Fatalf("expected no emissions, got %v", writer.emitted)
	}
}

func TestPoolConfirmsWhenAddressEscapesWildcardSet(t *testing.T) {
	store := &fakeItemStore{items: []repository.Item{{Label: "real"}}}
	resolver := &fakeResolver{resolveAddrs: []string{"10.0.0.1", "10.0.0.2"}}
	writer := &fakeWriter{}
	window := entity.NewWindow()
	stats := entity.NewStats()
	wildcard := map[string]bool{"10.0.0.1": true}

	p := NewPool("example.com", resolver, store, window, stats, writer, wildcard)
	p.Run(context.Background(), 1)

	if stats.Found() != 1 {
		t.Fatalf("expected 1 found, since 10.0.0.2 is not a wildcard address, got %d", stats.Found())
	}
}

func TestPoolSetTargetUpscaleAndDownscale(t *testing.T) {
	store := &fakeItemStore{}
	resolver := &fakeResolver{}
	writer := &fakeWriter{}
	window := entity.NewWindow()
	stats := entity.NewStats()

	p := NewPool("example.com", resolver, store, window, stats, writer, nil)

	p.SetTarget(10)
	if p.Target() != 10 {
		t.Fatalf("expected target 10, got %d", p.Target())
	}
	if len(p.workers) != 10 {
		t.Fatalf("expected 10 workers, got %d", len(p.workers))
	}

	p.SetTarget(3)
	if len(p.workers) != 3 {
		t.Fatalf("expected 3 workers after downscale, got %d", len(p.workers))
	}

	close(p.work)
	p.wg.Wait()
}

func TestPoolSetTargetClampsToCeiling(t *testing.T) {
	store := &fakeItemStore{}
	resolver := &fakeResolver{}
	writer := &fakeWriter{}
	window := entity.NewWindow()
	stats := entity.NewStats()

	p := NewPool("example.com", resolver, store, window, stats, writer, nil)
	p.SetTarget(10_000)
	if p.Target() != maxWorkers {
		t.Fatalf("expected clamp to %d, got %d", maxWorkers, p.Target())
	}

	close(p.work)
	p.wg.Wait()
}
