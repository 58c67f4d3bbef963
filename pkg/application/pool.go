package application

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dnsmap/dnsmap/pkg/domain/entity"
	"github.com/dnsmap/dnsmap/pkg/domain/repository"
	"github.com/dnsmap/dnsmap/pkg/domain/service"
)

// maxWorkers is the hard ceiling on concurrency from spec.md §4.4.
const maxWorkers = 512

// workQueueCapacity is a fixed approximation of "≈2·C" sized for the
// ceiling, since a Go channel cannot be resized once created. See
// SPEC_FULL.md §9 for the resolution of this Open Question.
const workQueueCapacity = 2 * maxWorkers

type workItem struct {
	label   string
	scraped bool
}

// Pool is the Resolver Worker Pool of spec.md §4.4, adapted from the
// teacher's CrawlUseCase/Worker pair (pkg/application/crawl_usecase.go,
// pkg/application/worker.go): a single dispatcher feeding a bounded work
// channel, and a dynamically resized set of workers each holding its own
// stop channel so downscale only takes effect between probes.
type Pool struct {
	apex     string
	resolver service.Resolver
	store    repository.LabelStore
	window   *entity.Window
	stats    *entity.Stats
	writer   repository.ConfirmedWriter
	wildcard map[string]bool

	work  chan workItem
	abort chan struct{}

	mu        sync.Mutex
	workers   map[int]chan struct{}
	nextID    int
	target    int32
	err       error
	abortOnce sync.Once

	wg sync.WaitGroup
}

// NewPool wires the pool's collaborators. window and stats are owned by the
// Orchestrator and shared with the Tuning Controller. wildcard is the set of
// addresses a catch-all DNS record resolves every nonexistent label to
// (possibly nil/empty when the apex has none); a probe result made up
// entirely of these addresses is treated as unconfirmed.
func NewPool(apex string, resolver service.Resolver, store repository.LabelStore, window *entity.Window, stats *entity.Stats, writer repository.ConfirmedWriter, wildcard map[string]bool) *Pool {
	return &Pool{
		apex:     apex,
		resolver: resolver,
		store:    store,
		window:   window,
		stats:    stats,
		writer:   writer,
		wildcard: wildcard,
		work:     make(chan workItem, workQueueCapacity),
		abort:    make(chan struct{}),
		workers:  make(map[int]chan struct{}),
	}
}

// Err returns the first fatal write error the pool observed, if any — set
// once by probe when the Confirmed Subdomain writer reports a permanent
// failure (e.g. a broken downstream pipe) and never cleared.
func (p *Pool) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Run starts the dispatcher and initialTarget workers, then blocks until the
// Label Store's iteration channel is exhausted and every worker has drained
// the work queue and exited.
func (p *Pool) Run(ctx context.Context, initialTarget int32) {
	go p.dispatch(ctx)
	p.SetTarget(initialTarget)
	p.wg.Wait()
}

func (p *Pool) dispatch(ctx context.Context) {
	defer close(p.work)
	items := p.store.Iterate(ctx)
	for {
		select {
		case item, ok := <-items:
			if !ok {
				return
			}
			select {
			case p.work <- workItem{label: item.Label, scraped: item.Scraped}:
			case <-ctx.Done():
				return
			case <-p.abort:
				return
			}
		case <-ctx.Done():
			return
		case <-p.abort:
			return
		}
	}
}

// QueueDepth reports the work channel's current backlog, the `q` input to
// the Tuning Controller's decision policy.
func (p *Pool) QueueDepth() int {
	return len(p.work)
}

// Target returns the pool's current desired worker count.
func (p *Pool) Target() int32 {
	return atomic.LoadInt32(&p.target)
}

// SetTarget reconciles the running worker count toward n, spawning workers
// up to maxWorkers on upscale, or closing the stop channel of excess
// workers on downscale — each notices at its next non-blocking check,
// never mid-probe.
func (p *Pool) SetTarget(n int32) {
	if n > maxWorkers {
		n = maxWorkers
	}
	if n < 1 {
		n = 1
	}
	atomic.StoreInt32(&p.target, n)

	p.mu.Lock()
	defer p.mu.Unlock()

	current := len(p.workers)
	switch {
	case current < int(n):
		for i := current; i < int(n); i++ {
			id := p.nextID
			p.nextID++
			stop := make(chan struct{})
			p.workers[id] = stop
			p.wg.Add(1)
			go p.runWorker(stop)
		}
	case current > int(n):
		excess := current - int(n)
		for id, stop := range p.workers {
			if excess <= 0 {
				break
			}
			close(stop)
			delete(p.workers, id)
			excess--
		}
	}
}

func (p *Pool) runWorker(stop <-chan struct{}) {
	defer p.wg.Done()
	for {
		select {
		case <-stop:
			return
		default:
		}

		select {
		case <-stop:
			return
		case item, ok := <-p.work:
			if !ok {
				return
			}
			p.probe(item)
		}
	}
}

// probe is deliberately bound to context.Background() rather than the
// Orchestrator's run context: a cancellation signal stops the dispatcher
// from handing out new work, but an in-flight probe still completes within
// its own timeout, per spec.md §5's cancellation contract.
func (p *Pool) probe(item workItem) {
	fqdn := item.label + "." + p.apex
	result := p.resolver.Probe(context.Background(), fqdn)

	p.window.Add(entity.Sample{Outcome: result.Outcome, Latency: result.Latency})
	p.stats.IncrAttempted()

	if result.Outcome != entity.Resolved || len(result.Addresses) == 0 {
		return
	}
	if p.isWildcardOnly(result.Addresses) {
		return
	}

	wrote, err := p.writer.Emit(fqdn)
	if err != nil {
		p.recordError(err)
		return
	}
	if !wrote {
		return
	}
	p.stats.IncrFound(item.scraped)
}

// isWildcardOnly reports whether every address addrs resolved to is one of
// the catch-all wildcard addresses detected during Init — in which case the
// probe confirms nothing, since a nonexistent label would resolve the same
// way.
func (p *Pool) isWildcardOnly(addrs []string) bool {
	if len(p.wildcard) == 0 {
		return false
	}
	for _, addr := range addrs {
		if !p.wildcard[addr] {
			return false
		}
	}
	return true
}

// recordError stashes the first fatal write error and signals dispatch to
// stop handing out new labels; already-dequeued work still drains.
func (p *Pool) recordError(err error) {
	p.mu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.mu.Unlock()
	p.abortOnce.Do(func() { close(p.abort) })
}
