package wordlist

import "testing"

func TestLoadSkipsBlankAndCommentLines(t *testing.T) {
	labels := Load()

	if len(labels) == 0 {
		t.Fatal("expected a non-empty wordlist")
	}

	for _, l := range labels {
		if l == "" {
			t.Error("Load() returned a blank label")
		}
		if l[0] == '#' {
			t.Errorf("Load() returned a comment line: %q", l)
		}
	}
}

func TestLoadIsRestartable(t *testing.T) {
	first := Load()
	second := Load()

	if len(first) != len(second) {
		t.Fatalf("Load() lengths differ across calls: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Load() order differs at index %d: %q vs %q", i, first[i], second[i])
		}
	}
}
