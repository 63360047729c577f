package stage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func shell(name, script string) Spec {
	return Spec{Name: name, Binary: "/bin/sh", Args: []string{"-c", script}}
}

func TestStartWaitSuccessAndFailure(t *testing.T) {
	ctx := context.Background()
	ok, err := Start(ctx, shell("ok", "exit 0"), IO{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if status := ok.Wait(ctx, 5*time.Second); !status.Success() || status.Stage != "ok" {
		t.Fatalf("expected success, got %+v", status)
	}

	bad, err := Start(ctx, shell("bad", "exit 3"), IO{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	status := bad.Wait(ctx, 5*time.Second)
	if status.Success() || status.Code != 3 || status.Hung {
		t.Fatalf("expected exit 3, got %+v", status)
	}
	if !strings.Contains(status.String(), "exit status 3") {
		t.Fatalf("unexpected status text %q", status.String())
	}
}

func TestStartMissingBinary(t *testing.T) {
	_, err := Start(context.Background(), Spec{Name: "nope", Binary: filepath.Join(t.TempDir(), "missing")}, IO{})
	if err == nil {
		t.Fatal("expected start error")
	}
	if _, err := Start(context.Background(), Spec{Name: "empty"}, IO{}); err == nil {
		t.Fatal("expected error for empty binary")
	}
}

func TestPipeChainPropagatesEndOfStream(t *testing.T) {
	ctx := context.Background()
	out := filepath.Join(t.TempDir(), "out.txt")
	dest, err := os.Create(out)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer dest.Close()

	first, err := NewPipe()
	if err != nil {
		t.Fatalf("NewPipe: %v", err)
	}
	second, err := NewPipe()
	if err != nil {
		t.Fatalf("NewPipe: %v", err)
	}

	producer, err := Start(ctx, shell("producer", "printf 'a\\nb\\nc\\n'"), IO{Stdout: first.Writer})
	if err != nil {
		t.Fatalf("start producer: %v", err)
	}
	first.CloseWriter()
	filter, err := Start(ctx, Spec{Name: "filter", Binary: "tr", Args: []string{"a-z", "A-Z"}}, IO{Stdin: first.Reader, Stdout: second.Writer})
	if err != nil {
		t.Fatalf("start filter: %v", err)
	}
	first.CloseReader()
	second.CloseWriter()
	consumer, err := Start(ctx, Spec{Name: "consumer", Binary: "cat"}, IO{Stdin: second.Reader, Stdout: dest})
	if err != nil {
		t.Fatalf("start consumer: %v", err)
	}
	second.CloseReader()

	if status := consumer.Wait(ctx, 0); !status.Success() {
		t.Fatalf("consumer: %+v", status)
	}
	for _, h := range []*Handle{producer, filter} {
		if status := h.Wait(ctx, time.Second); !status.Success() {
			t.Fatalf("%s: %+v", h.Name(), status)
		}
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "A\nB\nC\n" {
		t.Fatalf("unexpected output %q", data)
	}
}

func TestWaitReportsHungAndKill(t *testing.T) {
	ctx := context.Background()
	h, err := Start(ctx, shell("sleeper", "sleep 30"), IO{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	status := h.Wait(ctx, 100*time.Millisecond)
	if !status.Hung || !errors.Is(status.Err, ErrHung) || status.Success() {
		t.Fatalf("expected hung, got %+v", status)
	}
	if err := h.Kill(); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	final := h.Wait(ctx, 5*time.Second)
	if !final.Killed || final.Success() {
		t.Fatalf("expected killed status, got %+v", final)
	}
	if err := h.Kill(); err != nil {
		t.Fatalf("second Kill should be a no-op: %v", err)
	}
}

func TestWaitHonoursContext(t *testing.T) {
	h, err := Start(context.Background(), shell("sleeper", "sleep 30"), IO{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		_ = h.Kill()
		<-h.Done()
	}()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	status := h.Wait(ctx, 0)
	if !errors.Is(status.Err, context.Canceled) {
		t.Fatalf("expected context error, got %+v", status)
	}
}

func TestStderrTail(t *testing.T) {
	ctx := context.Background()
	tail := NewTail(16)
	h, err := Start(ctx, shell("noisy", "echo first line >&2; echo 'boom: bad input' >&2; exit 1"), IO{Stderr: tail})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if status := h.Wait(ctx, 5*time.Second); status.Code != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
	if got := tail.LastLine(); got != "boom: bad input" {
		t.Fatalf("unexpected tail %q", got)
	}
	if len(tail.String()) > 16 {
		t.Fatalf("tail exceeded limit: %q", tail.String())
	}
}

func TestPipeCloseIdempotent(t *testing.T) {
	p, err := NewPipe()
	if err != nil {
		t.Fatalf("NewPipe: %v", err)
	}
	p.CloseWriter()
	p.CloseWriter()
	if _, err := io.ReadAll(p.Reader); err != nil {
		t.Fatalf("read after writer close: %v", err)
	}
	p.Close()
}
