package reporter

import (
	"bytes"
	"strings"
	"testing"
)

func TestBannerContainsProgramName(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, func() int { return 100 })
	r.Banner("v0.1.0")

	if !strings.Contains(buf.String(), "dnsmap v0.1.0") {
		t.Fatalf("banner missing version, got %q", buf.String())
	}
}

func TestLogClearsBarBeforeMessage(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, func() int { return 10 })

	r.Tick(3, 1)
	beforeLog := buf.Len()
	if beforeLog == 0 {
		t.Fatal("expected Tick to write bar output")
	}

	r.Log("[info] scrape example yielded 2 labels, of which 1 are new")
	out := buf.String()
	if !strings.Contains(out, "scrape example yielded 2 labels, of which 1 are new") {
		t.Fatalf("expected log message in output, got %q", out)
	}
	// The clear sequence is a carriage return followed by spaces then
	// another carriage return, emitted before the message text.
	clear := "\r" + strings.Repeat(" ", beforeLog-1) + "\r"
	if !strings.HasPrefix(out[beforeLog:], clear) {
		t.Fatalf("expected carriage-return clear before message, got %q", out)
	}
}

func TestLogRedrawsBarInlineAfterMessage(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, func() int { return 10 })

	r.Tick(3, 1)
	r.Log("[info] scrape example yielded 2 labels, of which 1 are new")

	out := buf.String()
	// The redrawn bar carries the same attempted/found counts as the last
	// Tick, appended immediately after the log line rather than left blank
	// for the next external Tick call to fill in.
	if !strings.Contains(out, "3/10 attempted") {
		t.Fatalf("expected bar redrawn with last-known counts after Log, got %q", out)
	}
}

func TestTickShowsAttemptedAndFound(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, func() int { return 10 })
	r.Tick(5, 2)

	out := buf.String()
	if !strings.Contains(out, "5/10 attempted") || !strings.Contains(out, "2 found") {
		t.Fatalf("unexpected tick output: %q", out)
	}
}

func TestTickHandlesZeroTotalWithoutDivideByZero(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, func() int { return 0 })
	r.Tick(0, 0)

	out := buf.String()
	if !strings.Contains(out, "0/0 attempted") {
		t.Fatalf("unexpected tick output: %q", out)
	}
}

func TestTickShowsDashETAWhenRateIsZero(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, func() int { return 100 })
	r.Tick(0, 0)

	if !strings.Contains(buf.String(), "eta --") {
		t.Fatalf("expected dash ETA, got %q", buf.String())
	}
}
