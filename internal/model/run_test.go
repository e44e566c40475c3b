package model

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestRun() *Run {
	run := NewRun("sv")
	small := NewThread("Small", "https://example.com/small")
	small.SetWordCount("2 threadmarks, 4k")
	big := NewThread("Big", "https://example.com/big")
	big.SetWordCount("40 threadmarks, 1.1m")
	missing := NewThread("Missing", "https://example.com/missing")
	notFound := NewThread("NotFound", "https://example.com/notfound")
	notFound.MarkNotFound()
	medium := NewThread("Medium", "https://example.com/medium")
	medium.SetWordCount("10 threadmarks, 120k")
	run.Threads = []*Thread{small, big, missing, notFound, medium}
	return run
}

func names(threads []*Thread) []string {
	out := make([]string, len(threads))
	for i, t := range threads {
		out[i] = t.Name
	}
	return out
}

// TestRun tests the run helpers.
func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("NewRun assigns an id", func(t *testing.T) {
		t.Parallel()

		a := NewRun("sv")
		b := NewRun("sv")
		if a.ID == "" || a.ID == b.ID {
			t.Errorf("expected distinct ids, got %q and %q", a.ID, b.ID)
		}
		if a.StartedAt.IsZero() {
			t.Error("expected StartedAt to be set")
		}
	})

	t.Run("Found and Missing split threads", func(t *testing.T) {
		t.Parallel()

		run := newTestRun()
		if diff := cmp.Diff([]string{"Small", "Big", "Medium"}, names(run.Found())); diff != "" {
			t.Errorf("Found mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"Missing", "NotFound"}, names(run.Missing())); diff != "" {
			t.Errorf("Missing mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("SortedByWords orders longest first", func(t *testing.T) {
		t.Parallel()

		run := newTestRun()
		if diff := cmp.Diff([]string{"Big", "Medium", "Small"}, names(run.SortedByWords())); diff != "" {
			t.Errorf("SortedByWords mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("SetError keeps the message", func(t *testing.T) {
		t.Parallel()

		run := NewRun("qq")
		run.SetError(errors.New("index failed"))
		if run.ErrorMessage != "index failed" {
			t.Errorf("unexpected message %q", run.ErrorMessage)
		}
	})

	t.Run("Duration is zero until finished", func(t *testing.T) {
		t.Parallel()

		run := NewRun("qq")
		if run.Duration() != 0 {
			t.Errorf("expected zero duration, got %v", run.Duration())
		}
		run.FinishedAt = run.StartedAt.Add(3 * time.Second)
		if run.Duration() != 3*time.Second {
			t.Errorf("expected 3s, got %v", run.Duration())
		}
	})

	t.Run("Stats counts by outcome", func(t *testing.T) {
		t.Parallel()

		run := newTestRun()
		want := RunStats{Threads: 5, Found: 3, NotFound: 1, Failed: 1}
		if diff := cmp.Diff(want, run.Stats()); diff != "" {
			t.Errorf("Stats mismatch (-want +got):\n%s", diff)
		}
	})
}
