package output

import (
	"bytes"
	"errors"
	"io"
	"syscall"
	"testing"
)

func TestEmitWritesOncePerFQDN(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	wrote, err := w.Emit("www.example.com")
	if err != nil || !wrote {
		t.Fatalf("expected first emit to write, got wrote=%v err=%v", wrote, err)
	}

	wrote, err = w.Emit("www.example.com")
	if err != nil || wrote {
		t.Fatalf("expected duplicate emit to be suppressed, got wrote=%v err=%v", wrote, err)
	}

	if buf.String() != "www.example.com\n" {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestEmitOrdersMultipleFQDNs(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)
	w.Emit("a.example.com")
	w.Emit("b.example.com")

	if buf.String() != "a.example.com\nb.example.com\n" {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

type brokenPipeWriter struct{}

func (brokenPipeWriter) Write(p []byte) (int, error) {
	return 0, &pipeError{}
}

type pipeError struct{}

func (*pipeError) Error() string { return "broken pipe" }
func (*pipeError) Is(target error) bool {
	return target == syscall.EPIPE
}

func TestEmitClassifiesBrokenPipe(t *testing.T) {
	w := New(brokenPipeWriter{})
	_, err := w.Emit("www.example.com")
	if !errors.Is(err, ErrBroken) {
		t.Fatalf("expected ErrBroken, got %v", err)
	}

	_, err = w.Emit("other.example.com")
	if !errors.Is(err, ErrBroken) {
		t.Fatalf("expected ErrBroken on subsequent emit, got %v", err)
	}
}

var _ io.Writer = brokenPipeWriter{}
