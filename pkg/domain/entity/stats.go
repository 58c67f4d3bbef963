package entity

import (
	"sync/atomic"
	"time"
)

// Stats holds the Global Stats atomics: attempted, found, scrape_found.
// total is not stored here — it's read live from the Label Store since
// it can grow during the run (spec: "total is non-decreasing").
type Stats struct {
	attempted   int64
	found       int64
	scrapeFound int64

	start time.Time
	end   time.Time
}

func NewStats() *Stats {
	return &Stats{start: time.Now()}
}

func (s *Stats) IncrAttempted() { atomic.AddInt64(&s.attempted, 1) }

func (s *Stats) IncrFound(scraped bool) {
	atomic.AddInt64(&s.found, 1)
	if scraped {
		atomic.AddInt64(&s.scrapeFound, 1)
	}
}

func (s *Stats) Attempted() int64   { return atomic.LoadInt64(&s.attempted) }
func (s *Stats) Found() int64       { return atomic.LoadInt64(&s.found) }
func (s *Stats) ScrapeFound() int64 { return atomic.LoadInt64(&s.scrapeFound) }

// Finish records the end time, called once by the Orchestrator at shutdown.
func (s *Stats) Finish() { s.end = time.Now() }

func (s *Stats) Duration() time.Duration {
	end := s.end
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(s.start)
}

func (s *Stats) AvgPerSec() float64 {
	d := s.Duration().Seconds()
	if d <= 0 {
		return 0
	}
	return float64(s.Attempted()) / d
}
