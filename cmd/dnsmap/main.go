// Command dnsmap enumerates the live subdomains of an apex domain: seed
// candidates from a bundled wordlist and a handful of passive scrapers,
// confirm each one with a live DNS lookup, and print the confirmed set to
// stdout while a tuning controller keeps concurrency and timeout matched to
// the resolver's observed behavior.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dnsmap/dnsmap/pkg/application"
	"github.com/dnsmap/dnsmap/pkg/domain/repository"
	"github.com/dnsmap/dnsmap/pkg/domain/service"
	"github.com/dnsmap/dnsmap/pkg/infrastructure/dnsresolver"
	"github.com/dnsmap/dnsmap/pkg/infrastructure/labelstore"
	"github.com/dnsmap/dnsmap/pkg/infrastructure/output"
	"github.com/dnsmap/dnsmap/pkg/infrastructure/scrape"
	"github.com/dnsmap/dnsmap/pkg/infrastructure/wordlist"
	"github.com/dnsmap/dnsmap/pkg/interface/cli"
	"github.com/dnsmap/dnsmap/pkg/interface/reporter"
	flags "github.com/jessevdk/go-flags"
)

// version is stamped at release time; a plain literal is fine for a tool
// with no build pipeline of its own yet.
const version = "0.1.0"

// initialTimeout is spec.md §4.5's starting per-query timeout, seeding the
// resolver before the Tuning Controller's gate closes and it starts
// adjusting T on its own.
const initialTimeout = 500 * time.Millisecond

// renderInterval is the cadence at which the progress bar redraws, well
// under spec.md §4.6's 10Hz ceiling.
const renderInterval = 150 * time.Millisecond

func main() {
	apex, err := cli.Parse(os.Args[1:])
	if err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	store := labelstore.New(apex)
	resolver := dnsresolver.New(initialTimeout)
	writer := output.New(os.Stdout)

	rep := reporter.Stderr(store.Size)
	rep.Banner(version)

	orch := application.NewOrchestrator(
		apex,
		resolver,
		store,
		writer,
		rep,
		scrape.Default,
		wordlist.Load,
		adaptScrapeRunner(scrape.Run),
	)

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nreceived interrupt, waiting for in-flight probes to finish...")
		cancel()
	}()

	stopRender := make(chan struct{})
	go renderLoop(rep, orch, stopRender)

	runErr := orch.Run(ctx)
	close(stopRender)
	cancel()

	if closeErr := writer.Close(); closeErr != nil && runErr == nil {
		runErr = closeErr
	}

	os.Exit(exitCode(runErr, orch.Stats.Found()))
}

// renderLoop redraws the progress bar on a fixed cadence until stop is
// closed, matching spec.md §4.6's independence from the Tuning Controller's
// own cadence.
func renderLoop(rep *reporter.Reporter, orch *application.Orchestrator, stop <-chan struct{}) {
	ticker := time.NewTicker(renderInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			rep.Tick(orch.Stats.Attempted(), orch.Stats.Found())
		}
	}
}

// adaptScrapeRunner closes over scrape.Run to satisfy application.ScrapeRunner:
// scrape.Run's Logger parameter is scrape.Logger, a distinct named type from
// application.Logger even though both are the single-method Log(string)
// shape, so the two function types are not identical and can't be assigned
// directly. The closure's own parameter list is application.Logger, and an
// application.Logger value is itself a valid scrape.Logger argument because
// its method set already satisfies that interface.
func adaptScrapeRunner(run func(ctx context.Context, apex string, scrapers []service.Scraper, store repository.LabelStore, log scrape.Logger) (int, int)) application.ScrapeRunner {
	return func(ctx context.Context, apex string, scrapers []service.Scraper, store repository.LabelStore, log application.Logger) (int, int) {
		return run(ctx, apex, scrapers, store, log)
	}
}

// exitCode implements spec.md §7's error-kind-to-exit-code contract.
func exitCode(err error, found int64) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, application.ErrInterrupted):
		fmt.Fprintln(os.Stderr, "interrupted before completion")
		return 1
	case errors.Is(err, application.ErrApexUnreachable):
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	case errors.Is(err, output.ErrBroken):
		// A downstream reader (e.g. a `head` pipe) closing early after
		// having already read some confirmed subdomains is a normal
		// shutdown, not a failure.
		if found > 0 {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
}

