package labelstore

import (
	"context"
	"testing"
	"time"
)

func TestAddDeduplicatesAcrossCaseAndTrailingDot(t *testing.T) {
	s := New("example.com")

	if !s.Add("WWW") {
		t.Fatal("first insertion of www should be new")
	}
	if s.Add("www") {
		t.Fatal("re-adding www should not be new")
	}
	if s.Add("www.") {
		t.Fatal("re-adding www. should not be new")
	}
	if s.Add("WWW.") {
		t.Fatal("re-adding WWW. should not be new")
	}

	if got := s.Size(); got != 1 {
		t.Fatalf("Size() = %d, want 1", got)
	}
}

func TestAddRejectsEmptyAndApex(t *testing.T) {
	s := New("example.com")

	if s.Add("") {
		t.Fatal("empty label should be rejected")
	}
	if s.Add("example.com") {
		t.Fatal("label equal to apex should be rejected")
	}
	if s.Add("EXAMPLE.COM.") {
		t.Fatal("label equal to apex after folding should be rejected")
	}

	if got := s.Size(); got != 0 {
		t.Fatalf("Size() = %d, want 0", got)
	}
}

func TestIterateInsertionOrder(t *testing.T) {
	s := New("example.com")
	labels := []string{"www", "mail", "api", "blog"}
	for _, l := range labels {
		s.Add(l)
	}
	s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var got []string
	for item := range s.Iterate(ctx) {
		got = append(got, item.Label)
	}

	if len(got) != len(labels) {
		t.Fatalf("got %d labels, want %d", len(got), len(labels))
	}
	for i, l := range labels {
		if got[i] != l {
			t.Errorf("position %d: got %q, want %q", i, got[i], l)
		}
	}
}

func TestIterateSeesInsertionsAfterConsumptionBegins(t *testing.T) {
	s := New("example.com")
	s.Add("first")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ch := s.Iterate(ctx)

	first := <-ch
	if first.Label != "first" {
		t.Fatalf("first item = %q, want first", first.Label)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		s.AddScraped("second")
		s.Close()
	}()

	second, ok := <-ch
	if !ok {
		t.Fatal("expected a second item before channel close")
	}
	if second.Label != "second" || !second.Scraped {
		t.Fatalf("second item = %+v, want {second true}", second)
	}

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after Close()")
	}
}

func TestSizeNeverShrinks(t *testing.T) {
	s := New("example.com")
	prev := 0
	for _, l := range []string{"a", "b", "a", "c", "b"} {
		s.Add(l)
		got := s.Size()
		if got < prev {
			t.Fatalf("Size() decreased: %d -> %d", prev, got)
		}
		prev = got
	}
	if prev != 3 {
		t.Fatalf("final Size() = %d, want 3", prev)
	}
}
