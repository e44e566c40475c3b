package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/threadcount/internal/config"
	"github.com/nao1215/threadcount/internal/crawler"
	"github.com/nao1215/threadcount/internal/database"
	"github.com/nao1215/threadcount/internal/external"
	"github.com/nao1215/threadcount/internal/fetch"
	"github.com/nao1215/threadcount/internal/model"
	"github.com/nao1215/threadcount/internal/pipeline"
	"github.com/nao1215/threadcount/internal/report"
	"github.com/spf13/cobra"
)

// errInterrupted is returned when a scrape was cancelled by a signal.
var errInterrupted = errors.New("interrupted, partial results were saved")

// siteAliases maps the site selection flags to site names.
var siteAliases = []struct {
	flag, short, site string
}{
	{"sufficient-velocity", "s", "sv"},
	{"questionable-questing", "q", "qq"},
	{"archive-of-our-own", "a", "ao3"},
}

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [site...]",
		Short: "Scrape word counts of the story threads of one or more sites",
		Long: `Scrape reads the index pages of each site, visits the threadmarks page of
every listed story thread and writes one row per thread to
<site>-output-YYYY-MM-DD-HH-MM-SS.csv:

  name|url|word count

Threads whose word count could not be retrieved get -1. Forums answering
HTTP 429 are retried after --rate-limit-wait. Press Ctrl+C to stop; the
threads visited so far are still written and stored.

Examples:
  # Scrape Sufficient Velocity
  threadcount scrape sv

  # Scrape two sites concurrently and write a markdown summary
  threadcount scrape sv qq -m -o out

  # Retry the threads of the last Questionable Questing run without a word count
  threadcount scrape qq --retry-failed

  # Route requests through Tor
  threadcount scrape sb --proxy socks5://127.0.0.1:9050`,
		Args: cobra.ArbitraryArgs,
		RunE: runScrapeCmd,
	}

	for _, alias := range siteAliases {
		cmd.Flags().BoolP(alias.flag, alias.short, false, "Scrape "+alias.site)
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .threadcount in current or home directory)")
	cmd.Flags().StringP("output-dir", "o", ".",
		"Directory the CSV and markdown files are written to")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().DurationP("delay", "d", config.DefaultDelay,
		"Minimum delay between two requests to the same site")
	cmd.Flags().Duration("rate-limit-wait", config.DefaultRateLimitWait,
		"Wait after an HTTP 429 response before retrying")
	cmd.Flags().Int("max-retries", config.DefaultMaxRetries,
		"Maximum retries of one request after HTTP 429 responses")
	cmd.Flags().String("proxy", "",
		"Proxy URL (socks5://host:port, socks5h://host:port or http://host:port)")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of sites scraped at the same time")
	cmd.Flags().BoolP("markdown", "m", false,
		"Write a markdown summary next to each CSV file")
	cmd.Flags().Bool("no-db", false,
		"Do not store the run in the database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the run database")
	cmd.Flags().Bool("retry-failed", false,
		"Retry only the threads of the latest stored run without a word count")
	cmd.Flags().Int("start-page", config.DefaultStartPage,
		"First listing page for external scrapers")

	return cmd
}

// runScrapeCmd executes the scrape command.
func runScrapeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScrape(ctx, cmd.OutOrStdout(), cfg, logger)
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.OutputDir, err = flags.GetString("output-dir"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.Delay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.RateLimitWait, err = flags.GetDuration("rate-limit-wait"); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = flags.GetInt("max-retries"); err != nil {
		return nil, err
	}
	if cfg.Proxy, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.Markdown, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.RetryFailed, err = flags.GetBool("retry-failed"); err != nil {
		return nil, err
	}
	if cfg.StartPage, err = flags.GetInt("start-page"); err != nil {
		return nil, err
	}
	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB

	if cfg.RetryFailed && noDB {
		return nil, errors.New("--retry-failed needs the run database and cannot be combined with --no-db")
	}

	if cfg.SiteConfigs, err = loadSiteConfigs(cfg.ConfigFilePath); err != nil {
		return nil, err
	}

	cfg.Sites = selectSites(cmd, args)
	return cfg, nil
}

// loadSiteConfigs loads the configuration file. A missing file is only an
// error when its path was given explicitly.
func loadSiteConfigs(path string) (*config.File, error) {
	configPath := config.FindConfigFile(path)
	if configPath == "" {
		if path != "" {
			return nil, fmt.Errorf("configuration file not found: %s", path)
		}
		return config.NewFile(), nil
	}

	file, err := config.LoadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	return file, nil
}

// selectSites returns the sites named by arguments and alias flags, in
// order and without duplicates.
func selectSites(cmd *cobra.Command, args []string) []string {
	sites := make([]string, 0, len(args)+len(siteAliases))
	add := func(site string) {
		if !slices.Contains(sites, site) {
			sites = append(sites, site)
		}
	}
	for _, alias := range siteAliases {
		if on, err := cmd.Flags().GetBool(alias.flag); err == nil && on {
			add(alias.site)
		}
	}
	for _, arg := range args {
		add(arg)
	}
	return sites
}

// runScrape scrapes all configured sites and prints a summary per site.
func runScrape(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting scrape",
		"sites", cfg.Sites,
		"concurrency", cfg.Concurrency,
		"saveToDB", cfg.SaveToDB,
		"proxy", cfg.Proxy,
	)

	var db *database.RunDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	console := &syncWriter{w: out}
	bp := pipeline.NewBatchProcessor(
		func(site string) (*pipeline.Pipeline, error) {
			return newSitePipeline(ctx, cfg, site, db, console, logger)
		},
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithBatchLogger(logger),
	)

	fmt.Fprintf(console, "Scraping %d site(s): %v\n", len(cfg.Sites), cfg.Sites)
	startTime := time.Now()

	runs := make([]*model.Run, len(cfg.Sites))
	err := bp.ProcessBatchWithCallback(ctx, cfg.Sites, func(run *model.Run, index int) {
		runs[index] = run
		printRun(console, run)
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(console, "\nDone in %s\n", time.Since(startTime).Round(time.Millisecond))
	return scrapeResult(runs)
}

// newSitePipeline creates the pipeline of one site.
func newSitePipeline(
	ctx context.Context,
	cfg *config.Config,
	name string,
	db *database.RunDB,
	console io.Writer,
	logger *slog.Logger,
) (*pipeline.Pipeline, error) {
	site := cfg.Site(name)
	siteLogger := logger.With("site", name)

	opts := pipeline.SiteOptions{
		Site:      site,
		OutputDir: cfg.OutputDir,
		StartPage: cfg.StartPage,
		Markdown:  cfg.Markdown,
		Logger:    siteLogger,
	}
	if db != nil {
		opts.Store = db
	}

	if site.IsExternal() {
		runner, err := external.NewRunner(site.Command,
			external.WithOutput(console, os.Stderr),
			external.WithLogger(siteLogger),
		)
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", name, err)
		}
		opts.Runner = runner
		return pipeline.NewSitePipeline(opts), nil
	}

	if cfg.RetryFailed {
		previous, err := db.LatestRun(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("cannot retry failed threads: %w", err)
		}
		opts.Previous = previous
		fmt.Fprintf(console, "[%s] retrying %d thread(s) of run %s\n", name, len(previous.Missing()), previous.ID)
	}

	var scraper *crawler.Scraper
	client, err := fetch.NewClient(
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithDelay(cfg.Delay),
		fetch.WithRateLimitWait(site.RateLimitWait),
		fetch.WithMaxRetries(cfg.MaxRetries),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithProxy(cfg.Proxy),
		fetch.WithOnRateLimited(func(url string, attempt int) {
			scraper.OnRateLimited(url, attempt)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", name, err)
	}

	scraper, err = crawler.NewScraper(client, site,
		crawler.WithLogger(siteLogger),
		crawler.WithRateTracker(crawler.NewRateTracker()),
		crawler.WithProgress(progressPrinter(console, name)),
	)
	if err != nil {
		return nil, err
	}

	opts.Source = scraper
	opts.Counter = scraper
	return pipeline.NewSitePipeline(opts), nil
}

// progressPrinter prints one line per visited thread.
func progressPrinter(w io.Writer, site string) crawler.ProgressFunc {
	return func(done, total int, thread *model.Thread) {
		fmt.Fprintf(w, "[%s] %d/%d %s: %s\n", site, done, total, thread.Name, thread.WordCount)
	}
}

// printRun prints the summary of a finished run.
func printRun(w io.Writer, run *model.Run) {
	var buf bytes.Buffer
	buf.WriteString("\n")
	if _, err := report.NewTableWriter(&buf, 0).Write(run); err != nil {
		slog.Error("failed to print summary", "site", run.Site, "error", err)
	}
	if run.OutputFile != "" {
		fmt.Fprintf(&buf, "[%s] output: %s\n", run.Site, run.OutputFile)
	}
	if run.ErrorMessage != "" {
		fmt.Fprintf(&buf, "[%s] error: %s\n", run.Site, run.ErrorMessage)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("failed to print summary", "site", run.Site, "error", err)
	}
}

// scrapeResult turns the runs into the command's error.
func scrapeResult(runs []*model.Run) error {
	failed := 0
	for _, run := range runs {
		if run.Interrupted {
			return errInterrupted
		}
		if run.ErrorMessage != "" {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d site(s) failed", failed, len(runs))
	}
	return nil
}

// syncWriter serializes writes from concurrently scraped sites.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// Write implements io.Writer.
func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
