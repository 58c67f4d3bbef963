// Package labelstore implements the deduplicating, insertion-ordered
// candidate set described in spec.md §4.1.
package labelstore

import (
	"context"
	"strings"
	"sync"

	"github.com/dnsmap/dnsmap/pkg/domain/entity"
	"github.com/dnsmap/dnsmap/pkg/domain/repository"
)

// Store implements repository.LabelStore as a replay-then-live queue:
// Iterate first drains everything already inserted, in insertion
// order, then blocks for new insertions until Close is called.
type Store struct {
	apexFold string

	mu      sync.Mutex
	cond    *sync.Cond
	seen    map[string]bool
	scraped map[string]bool
	order   []string
	closed  bool
}

// New creates a Store scoped to apex; labels equal to apex (after
// folding) are rejected by Add/AddScraped.
func New(apex string) *Store {
	s := &Store{
		apexFold: strings.ToLower(strings.TrimSpace(apex)),
		seen:     make(map[string]bool),
		scraped:  make(map[string]bool),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *Store) add(raw string, scraped bool) bool {
	label := string(entity.Label(raw).Fold())
	if label == "" || label == s.apexFold {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seen[label] {
		return false
	}
	s.seen[label] = true
	if scraped {
		s.scraped[label] = true
	}
	s.order = append(s.order, label)
	s.cond.Broadcast()
	return true
}

// Add implements repository.LabelStore.
func (s *Store) Add(label string) bool { return s.add(label, false) }

// AddScraped implements repository.LabelStore.
func (s *Store) AddScraped(label string) bool { return s.add(label, true) }

// Size implements repository.LabelStore.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Close implements repository.LabelStore.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

// Iterate implements repository.LabelStore. Only one active consumer
// is expected; each call tracks its own index and reads the shared
// order under s.mu, so multiple independent readers each see the full
// ordered sequence.
func (s *Store) Iterate(ctx context.Context) <-chan repository.Item {
	out := make(chan repository.Item, 64)

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	}()

	go func() {
		defer close(out)
		idx := 0
		for {
			s.mu.Lock()
			for idx >= len(s.order) && !s.closed && ctx.Err() == nil {
				s.cond.Wait()
			}
			if ctx.Err() != nil {
				s.mu.Unlock()
				return
			}
			if idx >= len(s.order) && s.closed {
				s.mu.Unlock()
				return
			}
			label := s.order[idx]
			scraped := s.scraped[label]
			idx++
			s.mu.Unlock()

			select {
			case out <- repository.Item{Label: label, Scraped: scraped}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
