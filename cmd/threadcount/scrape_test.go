package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nao1215/threadcount/internal/model"
)

// testForum serves an index page and the threadmarks pages of four stories.
// Story B fails until healthy is set.
type testForum struct {
	*httptest.Server
	healthy atomic.Bool
}

func newTestForum(t *testing.T) *testForum {
	t.Helper()

	forum := &testForum{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /threads/index.1/", func(w http.ResponseWriter, _ *http.Request) {
		base := forum.URL
		fmt.Fprintf(w, `<html><body>
<a href="%[1]s/threads/rules.1/">Start Here</a>
<a href="%[1]s/threads/a.1/">Story A | Worm SI</a>
<a href="%[1]s/threads/b.2/">Story B</a>
<a href="/threads/relative.9/">Relative Link</a>
<a href="%[1]s/threads/c.3/">Story C</a>
<a href="%[1]s/threads/d.4/">Story D</a>
<a href="%[1]s/threads/e.5/">After End</a>
</body></html>`, base)
	})
	mux.HandleFunc("GET /threads/a.1/threadmarks", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html><body><div>Statistics (8 threadmarks, 24k words)</div></body></html>")
	})
	mux.HandleFunc("GET /threads/b.2/threadmarks", func(w http.ResponseWriter, _ *http.Request) {
		if !forum.healthy.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, "<html><body><div>Statistics (3 threadmarks, 9.5k words)</div></body></html>")
	})
	mux.HandleFunc("GET /threads/c.3/threadmarks", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html><body><p>Nothing to see</p></body></html>")
	})
	mux.HandleFunc("GET /threads/d.4/threadmarks", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html><body>Oops! We ran into some problems.</body></html>")
	})

	forum.Server = httptest.NewServer(mux)
	t.Cleanup(forum.Close)
	return forum
}

// writeSiteConfig writes a configuration file defining the site "test".
func writeSiteConfig(t *testing.T, forumURL string) string {
	t.Helper()

	content := fmt.Sprintf(`sites:
  test:
    title: Test Forum
    indexPages:
      - url: %s/threads/index.1/
        startLink: "Start Here"
        endLink: "Story D"
    threadmarksSuffix: /threadmarks
    extractor: statistics
    errorText: "Oops! We ran into some problems."
`, forumURL)

	path := filepath.Join(t.TempDir(), ".threadcount")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestNewScrapeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewScrapeCmd()

	shorthands := map[string]string{
		"sufficient-velocity":   "s",
		"questionable-questing": "q",
		"archive-of-our-own":    "a",
		"config":                "c",
		"output-dir":            "o",
		"timeout":               "t",
		"delay":                 "d",
		"concurrency":           "n",
		"markdown":              "m",
	}
	for name, short := range shorthands {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			t.Errorf("expected %s flag", name)
			continue
		}
		if flag.Shorthand != short {
			t.Errorf("flag %s: expected shorthand %q, got %q", name, short, flag.Shorthand)
		}
	}
	for _, name := range []string{"rate-limit-wait", "max-retries", "proxy", "no-db", "db-dir", "retry-failed", "start-page"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
}

func TestSelectSites(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{name: "arguments", args: []string{"sv", "sb"}, want: []string{"sv", "sb"}},
		{name: "alias flags", args: []string{"-s", "-q"}, want: []string{"sv", "qq"}},
		{name: "aliases and arguments without duplicates", args: []string{"sv", "-s", "-a", "sb"}, want: []string{"sv", "ao3", "sb"}},
		{name: "nothing selected", args: nil, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewScrapeCmd()
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("failed to parse flags: %v", err)
			}
			got := selectSites(cmd, cmd.Flags().Args())
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("selectSites() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("reads flags", func(t *testing.T) {
		t.Parallel()

		cmd := NewScrapeCmd()
		args := []string{"sv", "-o", "out", "-t", "10s", "-d", "1s", "--rate-limit-wait", "30s",
			"--max-retries", "5", "--proxy", "socks5://127.0.0.1:9050", "-n", "2", "-m", "--no-db", "--start-page", "3"}
		if err := cmd.ParseFlags(args); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd, cmd.Flags().Args())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.OutputDir != "out" || cfg.Timeout.String() != "10s" || cfg.Delay.String() != "1s" {
			t.Errorf("unexpected config: %+v", cfg)
		}
		if cfg.RateLimitWait.String() != "30s" || cfg.MaxRetries != 5 || cfg.Concurrency != 2 {
			t.Errorf("unexpected config: %+v", cfg)
		}
		if cfg.Proxy != "socks5://127.0.0.1:9050" || !cfg.Markdown || cfg.SaveToDB || cfg.StartPage != 3 {
			t.Errorf("unexpected config: %+v", cfg)
		}
		if diff := cmp.Diff([]string{"sv"}, cfg.Sites); diff != "" {
			t.Errorf("sites mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("retry-failed needs the database", func(t *testing.T) {
		t.Parallel()

		cmd := NewScrapeCmd()
		if err := cmd.ParseFlags([]string{"sv", "--retry-failed", "--no-db"}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}
		if _, err := buildConfig(cmd, cmd.Flags().Args()); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("explicit config file must exist", func(t *testing.T) {
		t.Parallel()

		cmd := NewScrapeCmd()
		missing := filepath.Join(t.TempDir(), "missing.yaml")
		if err := cmd.ParseFlags([]string{"sv", "-c", missing}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}
		_, err := buildConfig(cmd, cmd.Flags().Args())
		if err == nil || !strings.Contains(err.Error(), "not found") {
			t.Errorf("expected not found error, got %v", err)
		}
	})
}

func TestScrapeValidation(t *testing.T) {
	t.Parallel()

	t.Run("no site", func(t *testing.T) {
		t.Parallel()

		_, err := execute(t, "scrape", "--no-db", "-c", writeSiteConfig(t, "http://127.0.0.1:1"))
		if err == nil || !strings.Contains(err.Error(), "no site") {
			t.Errorf("expected no site error, got %v", err)
		}
	})

	t.Run("unknown site", func(t *testing.T) {
		t.Parallel()

		_, err := execute(t, "scrape", "nope", "--no-db", "-c", writeSiteConfig(t, "http://127.0.0.1:1"))
		if err == nil || !strings.Contains(err.Error(), `unknown site "nope"`) {
			t.Errorf("expected unknown site error, got %v", err)
		}
	})

	t.Run("invalid proxy", func(t *testing.T) {
		t.Parallel()

		out, err := execute(t, "scrape", "test", "--no-db", "-o", t.TempDir(),
			"-c", writeSiteConfig(t, "http://127.0.0.1:1"), "--proxy", "ftp://proxy:21")
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(out, "error:") {
			t.Errorf("expected site error in output:\n%s", out)
		}
	})
}

func TestScrapeEndToEnd(t *testing.T) {
	t.Parallel()

	forum := newTestForum(t)
	configPath := writeSiteConfig(t, forum.URL)
	outDir := t.TempDir()
	dbDir := t.TempDir()

	out, err := execute(t, "scrape", "test", "-c", configPath, "-o", outDir, "--db-dir", dbDir, "-d", "0", "-m")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}

	csvFiles, _ := filepath.Glob(filepath.Join(outDir, "test-output-*.csv"))
	if len(csvFiles) != 1 {
		t.Fatalf("expected one CSV file, got %v", csvFiles)
	}
	data, err := os.ReadFile(csvFiles[0])
	if err != nil {
		t.Fatalf("failed to read CSV: %v", err)
	}
	want := strings.Join([]string{
		"Story A  Worm SI|" + forum.URL + "/threads/a.1/|8 threadmarks, 24k",
		"Story B|" + forum.URL + "/threads/b.2/|-1",
		"Story C|" + forum.URL + "/threads/c.3/|" + model.ProblemWordCountNotFound,
		"Story D|" + forum.URL + "/threads/d.4/|-1",
	}, "\n") + "\n"
	if diff := cmp.Diff(want, string(data)); diff != "" {
		t.Errorf("CSV mismatch (-want +got):\n%s", diff)
	}

	mdFiles, _ := filepath.Glob(filepath.Join(outDir, "test-output-*.md"))
	if len(mdFiles) != 1 {
		t.Errorf("expected one markdown file, got %v", mdFiles)
	}
	for _, line := range []string{"[test] 1/4 Story A  Worm SI: 8 threadmarks, 24k", "[test] output: "} {
		if !strings.Contains(out, line) {
			t.Errorf("expected output to contain %q:\n%s", line, out)
		}
	}

	t.Run("export latest run", func(t *testing.T) {
		exported, err := execute(t, "export", "--site", "test", "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(want, exported); diff != "" {
			t.Errorf("exported CSV mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("history lists the run", func(t *testing.T) {
		listed, err := execute(t, "history", "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(listed, "test") || !strings.Contains(listed, "1/4") {
			t.Errorf("unexpected history:\n%s", listed)
		}
	})

	t.Run("retry failed threads", func(t *testing.T) {
		forum.healthy.Store(true)

		retryDir := t.TempDir()
		out, err := execute(t, "scrape", "test", "-c", configPath, "-o", retryDir, "--db-dir", dbDir, "-d", "0", "--retry-failed")
		if err != nil {
			t.Fatalf("unexpected error: %v\n%s", err, out)
		}
		if !strings.Contains(out, "retrying 3 thread(s)") {
			t.Errorf("expected retry notice:\n%s", out)
		}

		exported, err := execute(t, "export", "--site", "test", "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(exported, "Story B|"+forum.URL+"/threads/b.2/|3 threadmarks, 9.5k") {
			t.Errorf("expected story B to be retried:\n%s", exported)
		}
		if !strings.Contains(exported, "Story A  Worm SI|"+forum.URL+"/threads/a.1/|8 threadmarks, 24k") {
			t.Errorf("expected story A to be kept:\n%s", exported)
		}
	})
}

func TestScrapeResult(t *testing.T) {
	t.Parallel()

	ok := model.NewRun("sv")
	failed := model.NewRun("qq")
	failed.SetError(errors.New("index page failed"))
	interrupted := model.NewRun("sb")
	interrupted.Interrupted = true

	if err := scrapeResult([]*model.Run{ok}); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := scrapeResult([]*model.Run{ok, failed}); err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("expected failure count, got %v", err)
	}
	if err := scrapeResult([]*model.Run{ok, interrupted}); !errors.Is(err, errInterrupted) {
		t.Errorf("expected errInterrupted, got %v", err)
	}
}

// countingWriter records the number of Write calls.
type countingWriter struct {
	bytes.Buffer
	writes int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.writes++
	return c.Buffer.Write(p)
}

func TestPrintRun(t *testing.T) {
	t.Parallel()

	run := model.NewRun("sv")
	run.Threads = []*model.Thread{model.NewThread("Story A", "https://example.com/threads/a.1/")}
	run.OutputFile = "out/sv.csv"
	run.SetError(errors.New("index page failed"))

	var w countingWriter
	printRun(&w, run)

	if w.writes != 1 {
		t.Errorf("expected the summary in a single write, got %d", w.writes)
	}
	out := w.String()
	for _, want := range []string{"[sv] output: out/sv.csv", "[sv] error: index page failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q:\n%s", want, out)
		}
	}
}
