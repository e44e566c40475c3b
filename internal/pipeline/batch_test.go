package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/threadcount/internal/model"
)

func TestNewBatchProcessor(t *testing.T) {
	t.Parallel()

	t.Run("default concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(nil)
		if bp.concurrency != 3 {
			t.Errorf("expected concurrency 3, got %d", bp.concurrency)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(nil, WithConcurrency(0), WithConcurrency(-1))
		if bp.concurrency != 3 {
			t.Errorf("expected concurrency 3, got %d", bp.concurrency)
		}
	})
}

func TestProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("returns runs in site order", func(t *testing.T) {
		t.Parallel()

		factory := func(site string) (*Pipeline, error) {
			p := New(WithLogger(discardLogger()))
			p.AddStep(&mockStep{name: "discover", doFunc: func(_ context.Context, run *model.Run) error {
				run.Threads = append(run.Threads, model.NewThread(site, "https://example.com/"+site))
				return nil
			}})
			return p, nil
		}

		bp := NewBatchProcessor(factory, WithBatchLogger(discardLogger()), WithConcurrency(2))
		sites := []string{"sv", "sb", "qq"}

		runs, err := bp.ProcessBatch(context.Background(), sites)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i, run := range runs {
			if run.Site != sites[i] {
				t.Errorf("runs[%d].Site = %q, want %q", i, run.Site, sites[i])
			}
			if len(run.Threads) != 1 || run.Threads[0].Name != sites[i] {
				t.Errorf("runs[%d] has unexpected threads", i)
			}
		}
	})

	t.Run("failing site does not stop others", func(t *testing.T) {
		t.Parallel()

		setupErr := errors.New("invalid extractor")
		factory := func(site string) (*Pipeline, error) {
			if site == "bad" {
				return nil, setupErr
			}
			p := New(WithLogger(discardLogger()))
			p.AddStep(&mockStep{name: "ok"})
			return p, nil
		}

		runs, err := NewBatchProcessor(factory, WithBatchLogger(discardLogger())).
			ProcessBatch(context.Background(), []string{"sv", "bad", "qq"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !errors.Is(runs[1].Err, setupErr) {
			t.Errorf("expected setup error on failing site, got %v", runs[1].Err)
		}
		if runs[0].ErrorMessage != "" || runs[2].ErrorMessage != "" {
			t.Error("expected other sites to succeed")
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var current, peak atomic.Int32
		factory := func(string) (*Pipeline, error) {
			p := New(WithLogger(discardLogger()))
			p.AddStep(&mockStep{name: "slow", doFunc: func(context.Context, *model.Run) error {
				n := current.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				current.Add(-1)
				return nil
			}})
			return p, nil
		}

		_, err := NewBatchProcessor(factory, WithBatchLogger(discardLogger()), WithConcurrency(2)).
			ProcessBatch(context.Background(), []string{"a", "b", "c", "d", "e"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak.Load() > 2 {
			t.Errorf("expected at most 2 concurrent sites, got %d", peak.Load())
		}
	})

	t.Run("cancelled batch returns interrupted runs", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var built atomic.Int32
		factory := func(string) (*Pipeline, error) {
			built.Add(1)
			return New(WithLogger(discardLogger())), nil
		}

		runs, err := NewBatchProcessor(factory, WithBatchLogger(discardLogger())).
			ProcessBatch(ctx, []string{"sv", "qq"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if built.Load() != 0 {
			t.Error("expected no pipeline to be built")
		}
		for _, run := range runs {
			if !run.Interrupted {
				t.Errorf("expected %s to be interrupted", run.Site)
			}
		}
	})
}

func TestProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	factory := func(string) (*Pipeline, error) {
		return New(WithLogger(discardLogger())), nil
	}

	var (
		mu   sync.Mutex
		seen = map[int]string{}
	)
	err := NewBatchProcessor(factory, WithBatchLogger(discardLogger())).
		ProcessBatchWithCallback(context.Background(), []string{"sv", "sb"}, func(run *model.Run, index int) {
			mu.Lock()
			defer mu.Unlock()
			seen[index] = run.Site
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen[0] != "sv" || seen[1] != "sb" {
		t.Errorf("unexpected callbacks: %v", seen)
	}
}
