package application

import (
	"context"
	"fmt"
	"time"

	"github.com/dnsmap/dnsmap/pkg/domain/entity"
	"github.com/dnsmap/dnsmap/pkg/domain/service"
)

// Logger is the reporting capability the Controller and Orchestrator need
// from the outer Reporter layer, kept minimal so pkg/application never
// imports pkg/interface.
type Logger interface {
	Log(line string)
}

const (
	initialConcurrency = 64
	initialTimeout     = 500 * time.Millisecond

	minConcurrency = 8
	maxConcurrency = 512
	maxTimeout     = 5 * time.Second
	minTimeout     = 100 * time.Millisecond

	timeoutPressureRate = 0.05
	slackTimeoutRate    = 0.01

	gateSamples = 1000
	gateElapsed = 5 * time.Second
	tickEvery   = 1 * time.Second
)

// Controller is the Tuning Controller of spec.md §4.5: it watches the
// rolling window and drives the pool's concurrency and the resolver's
// timeout, adapted from the teacher's periodic metrics ticker in
// pkg/application/crawl_usecase.go (updateMetricsPeriodically), but
// producing tuning decisions instead of dashboard snapshots.
type Controller struct {
	window   *entity.Window
	pool     *Pool
	resolver service.Resolver
	reporter Logger
}

func NewController(window *entity.Window, pool *Pool, resolver service.Resolver, reporter Logger) *Controller {
	return &Controller{window: window, pool: pool, resolver: resolver, reporter: reporter}
}

// Run blocks until ctx is cancelled, applying the decision policy on the
// fixed cadence described in spec.md §4.5.
func (c *Controller) Run(ctx context.Context) {
	if !c.awaitGate(ctx) {
		return
	}

	ticker := time.NewTicker(tickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

func (c *Controller) awaitGate(ctx context.Context) bool {
	start := time.Now()
	poll := time.NewTicker(50 * time.Millisecond)
	defer poll.Stop()
	for {
		if c.window.Total() >= gateSamples || time.Since(start) >= gateElapsed {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-poll.C:
		}
	}
}

func (c *Controller) tick(ctx context.Context) {
	snap := c.window.Snapshot()
	q := c.pool.QueueDepth()
	curC := c.pool.Target()
	curT := c.resolver.Timeout()

	newC, newT := decide(snap, q, curC, curT)

	if newC != curC {
		c.pool.SetTarget(newC)
	}
	if newT != curT {
		c.resolver.SetTimeout(newT)
	}

	c.reporter.Log(fmt.Sprintf(
		"[tune] conc=%d p90=%s success=%.2f%% timeouts=%.2f%% samples=%d q=%d timeout=%s",
		newC, formatDuration(time.Duration(snap.P90Latency*float64(time.Second))),
		snap.SuccessRate()*100, snap.TimeoutRate()*100, snap.Samples, q, formatDuration(newT),
	))
}

// decide implements spec.md §4.5's four-step decision policy.
func decide(snap entity.Snapshot, q int, curC int32, curT time.Duration) (int32, time.Duration) {
	timeoutRate := snap.TimeoutRate()
	p90 := time.Duration(snap.P90Latency * float64(time.Second))

	switch {
	case timeoutRate > timeoutPressureRate:
		newT := clampDuration(scaleDuration(curT, 1.25), minTimeout, maxTimeout)
		newC := clampConcurrency(int32(float64(curC)*0.8), minConcurrency, maxConcurrency)
		return newC, newT

	case timeoutRate < slackTimeoutRate && p90 < curT/3:
		newT := clampDuration(maxDuration(2*p90, minTimeout), minTimeout, maxTimeout)
		newC := curC
		if q > int(curC)/2 {
			newC = clampConcurrency(int32(float64(curC)*1.25), minConcurrency, maxConcurrency)
		}
		return newC, newT

	default:
		return curC, curT
	}
}

func scaleDuration(d time.Duration, factor float64) time.Duration {
	return time.Duration(float64(d) * factor)
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

func clampConcurrency(c, lo, hi int32) int32 {
	if c < lo {
		return lo
	}
	if c > hi {
		return hi
	}
	return c
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
