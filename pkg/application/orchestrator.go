package application

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dnsmap/dnsmap/pkg/domain/entity"
	"github.com/dnsmap/dnsmap/pkg/domain/repository"
	"github.com/dnsmap/dnsmap/pkg/domain/service"
)

// wildcardProbes is the number of random labels probed against the apex to
// detect a catch-all DNS record, matching the original tool's detect_wildcard
// default of two probes.
const wildcardProbes = 2

// ErrApexUnreachable is returned by Orchestrator.Run when the apex itself
// cannot be resolved at startup, spec.md §7's ApexUnreachable error kind.
// Matching the teacher's idiom, this stays a plain sentinel rather than a
// custom error-hierarchy type; callers use errors.Is.
var ErrApexUnreachable = errors.New("apex unreachable")

// ErrInterrupted is spec.md §7's Interrupted (graceful) error kind: the run
// was cut short by a cancellation signal rather than running to completion.
// Kept distinct from a bare context.Canceled so cmd/dnsmap/main.go can map
// it to a non-zero exit code per spec.md §5/§6/§8 scenario 5, while a
// context cancelled for other reasons (there are none today, but the
// wrapping keeps that door open) still carries its own errors.Is chain.
var ErrInterrupted = errors.New("interrupted")

// ScraperSet supplies the scrapers to run during the Scrape phase; kept as
// a func type so the Orchestrator doesn't import the infrastructure/scrape
// package directly, preserving the clean-architecture dependency direction.
type ScraperSet func() []service.Scraper

// WordlistSource supplies the built-in candidate labels for the Merge
// phase, kept as a func type for the same reason as ScraperSet.
type WordlistSource func() []string

// ScrapeRunner fans scrapers out and feeds their labels into store, the
// same shape as infrastructure/scrape.Run — injected rather than imported
// directly so pkg/application never depends on pkg/infrastructure.
type ScrapeRunner func(ctx context.Context, apex string, scrapers []service.Scraper, store repository.LabelStore, log Logger) (total, added int)

// Orchestrator drives the five phases of spec.md §4.7, adapted from the
// teacher's CrawlUseCase.Execute (pkg/application/crawl_usecase.go): a
// single entry point owning every piece of shared state for the run's
// lifetime.
type Orchestrator struct {
	Apex     string
	Resolver service.Resolver
	Store    repository.LabelStore
	Writer   repository.ConfirmedWriter
	Reporter Logger

	Scrapers ScraperSet
	Wordlist WordlistSource
	Scrape   ScrapeRunner

	InitialConcurrency int32

	Window *entity.Window
	Stats  *entity.Stats

	// wildcard holds the IP addresses a catch-all DNS record resolves
	// every nonexistent label to, detected during Init and used by the
	// Pool to suppress false "Confirmed Subdomain" results.
	wildcard map[string]bool
}

// NewOrchestrator wires an Orchestrator with fresh Window and Stats,
// singly owned for the duration of Run.
func NewOrchestrator(apex string, resolver service.Resolver, store repository.LabelStore, writer repository.ConfirmedWriter, reporter Logger, scrapers ScraperSet, wordlist WordlistSource, scrapeRun ScrapeRunner) *Orchestrator {
	return &Orchestrator{
		Apex:               apex,
		Resolver:           resolver,
		Store:              store,
		Writer:             writer,
		Reporter:           reporter,
		Scrapers:           scrapers,
		Wordlist:           wordlist,
		Scrape:             scrapeRun,
		InitialConcurrency: initialConcurrency,
		Window:             entity.NewWindow(),
		Stats:              entity.NewStats(),
	}
}

// Run executes Init, Scrape, Merge, Brute-force, and Finalize in sequence.
// A cancelled ctx during Brute-force stops the dispatcher from handing out
// new work; already-dequeued probes still run to completion.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.init(ctx); err != nil {
		return err
	}

	total, added := o.scrape(ctx)
	o.merge(total, added)

	writeErr := o.bruteForce(ctx)

	o.finalize()
	if writeErr != nil {
		return writeErr
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInterrupted, err)
	}
	return nil
}

func (o *Orchestrator) init(ctx context.Context) error {
	result := o.Resolver.Probe(ctx, o.Apex)
	if result.Outcome != entity.Resolved || len(result.Addresses) == 0 {
		return fmt.Errorf("%w: %s", ErrApexUnreachable, o.Apex)
	}

	o.wildcard = o.detectWildcard(ctx)
	if len(o.wildcard) > 0 {
		ips := make([]string, 0, len(o.wildcard))
		for ip := range o.wildcard {
			ips = append(ips, ip)
		}
		sort.Strings(ips)
		o.Reporter.Log(fmt.Sprintf("[info] wildcard detected; ignoring IPs: %s", strings.Join(ips, ", ")))
	}
	return nil
}

// detectWildcard probes wildcardProbes labels that almost certainly don't
// exist and unions the addresses any of them resolve to. A registrar or
// hosting provider that answers every subdomain of apex with a catch-all
// record makes those addresses worthless as confirmation, so the Pool
// treats a probe result made up entirely of these addresses as unconfirmed.
func (o *Orchestrator) detectWildcard(ctx context.Context) map[string]bool {
	var mu sync.Mutex
	var wg sync.WaitGroup
	ips := make(map[string]bool)

	for i := 0; i < wildcardProbes; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fqdn := randomNumericLabel() + "." + o.Apex
			result := o.Resolver.Probe(ctx, fqdn)
			if result.Outcome != entity.Resolved {
				return
			}
			mu.Lock()
			for _, addr := range result.Addresses {
				ips[addr] = true
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	return ips
}

// randomNumericLabel returns a 10-digit numeric label vanishingly unlikely
// to be a real subdomain, mirroring the original tool's
// random.randint(10**9, 10**10 - 1).
func randomNumericLabel() string {
	n := int64(1_000_000_000) + rand.Int63n(9_000_000_000)
	return strconv.FormatInt(n, 10)
}

func (o *Orchestrator) scrape(ctx context.Context) (total, added int) {
	scrapers := o.Scrapers()
	if len(scrapers) == 0 {
		return 0, 0
	}
	return o.Scrape(ctx, o.Apex, scrapers, o.Store, o.Reporter)
}

func (o *Orchestrator) merge(scrapeTotal, scrapeAdded int) {
	labels := o.Wordlist()
	for _, label := range labels {
		o.Store.Add(label)
	}
	o.Store.Close()
	_ = scrapeTotal
	o.Reporter.Log(fmt.Sprintf("brute-force target count: %d (+%d from scraping)", len(labels), scrapeAdded))
}

// bruteForce runs the Resolver Worker Pool and Tuning Controller until the
// Label Store is exhausted, ctx is cancelled, or the writer reports a fatal
// error, returning the latter so Run can classify it as OutputBroken.
func (o *Orchestrator) bruteForce(ctx context.Context) error {
	pool := NewPool(o.Apex, o.Resolver, o.Store, o.Window, o.Stats, o.Writer, o.wildcard)
	controller := NewController(o.Window, pool, o.Resolver, o.Reporter)

	controllerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go controller.Run(controllerCtx)

	pool.Run(ctx, o.InitialConcurrency)
	return pool.Err()
}

func (o *Orchestrator) finalize() {
	o.Stats.Finish()
	o.Reporter.Log(fmt.Sprintf(
		"[stats] attempted=%d found=%d scrape_found=%d duration=%s avg_per_sec=%.2f",
		o.Stats.Attempted(), o.Stats.Found(), o.Stats.ScrapeFound(),
		formatDuration(o.Stats.Duration()), o.Stats.AvgPerSec(),
	))
}
