package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/nao1215/threadcount/internal/config"
	"github.com/nao1215/threadcount/internal/extract"
	"github.com/nao1215/threadcount/internal/fetch"
	"github.com/nao1215/threadcount/internal/model"
)

// ErrSiteError is returned when a page carries the forum's error text
// although it was served with a success status.
var ErrSiteError = errors.New("forum returned an error page")

// Fetcher downloads a page. *fetch.Client implements it.
type Fetcher interface {
	Get(ctx context.Context, url string) (*fetch.Response, error)
}

// ProgressFunc is called after every thread visited by RetrieveWordCounts.
// done counts visited threads, starting at 1.
type ProgressFunc func(done, total int, thread *model.Thread)

// Scraper scrapes one forum site.
// It is not safe for concurrent use; create one Scraper per site.
type Scraper struct {
	// fetcher downloads index and threadmarks pages.
	fetcher Fetcher

	// site describes the forum.
	site config.SiteConfig

	// extractor finds the word-count tag on threadmarks pages.
	extractor extract.Extractor

	// filter selects story links on index pages.
	filter LinkFilter

	// logger receives progress and per-thread failures.
	logger *slog.Logger

	// tracker estimates the remaining time while rate limited.
	tracker *RateTracker

	// progress is called after each thread.
	progress ProgressFunc

	// current and total describe the thread being retrieved. They are read
	// from the rate limit hook, which runs inside the fetch.
	current atomic.Int64
	total   atomic.Int64
}

// ScraperOption configures a Scraper.
type ScraperOption func(*Scraper)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ScraperOption {
	return func(s *Scraper) {
		s.logger = logger
	}
}

// WithRateTracker sets the tracker used to estimate the remaining time.
func WithRateTracker(tracker *RateTracker) ScraperOption {
	return func(s *Scraper) {
		s.tracker = tracker
	}
}

// WithProgress registers a callback invoked after every thread.
func WithProgress(fn ProgressFunc) ScraperOption {
	return func(s *Scraper) {
		s.progress = fn
	}
}

// NewScraper creates a Scraper for site, fetching pages through fetcher.
func NewScraper(fetcher Fetcher, site config.SiteConfig, opts ...ScraperOption) (*Scraper, error) {
	extractor, err := site.NewExtractor()
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", site.Name, err)
	}

	s := &Scraper{
		fetcher:   fetcher,
		site:      site,
		extractor: extractor,
		filter: LinkFilter{
			IgnoreURLs:  site.IgnoreURLs,
			IgnoreTexts: site.IgnoreTexts,
		},
		logger:  slog.New(slog.DiscardHandler),
		tracker: NewRateTracker(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Site returns the site definition the scraper was created with.
func (s *Scraper) Site() config.SiteConfig {
	return s.site
}

// ThreadmarksURL returns the threadmarks page URL of a thread.
func ThreadmarksURL(threadURL, suffix string) string {
	return strings.TrimRight(strings.TrimSpace(threadURL), "/") + suffix
}

// Discover fetches every index page in order and returns the threads
// found on all of them. On failure it returns the threads found so far.
func (s *Scraper) Discover(ctx context.Context) ([]*model.Thread, error) {
	threads := make([]*model.Thread, 0)

	for _, page := range s.site.IndexPages {
		s.logger.Info("parsing index page", "site", s.site.Name, "url", page.URL)

		resp, err := s.fetcher.Get(ctx, page.URL)
		if err != nil {
			return threads, fmt.Errorf("index page %s: %w", page.URL, err)
		}

		found, err := ParseIndex(bytes.NewReader(resp.Body), page.StartLink, page.EndLink, s.filter)
		if err != nil {
			return threads, fmt.Errorf("index page %s: %w", page.URL, err)
		}
		if len(found) == 0 {
			s.logger.Warn("no threads found on index page",
				"site", s.site.Name, "url", page.URL, "start", page.StartLink, "end", page.EndLink)
		}

		threads = append(threads, found...)
	}

	s.logger.Info("found threads", "site", s.site.Name, "count", len(threads))
	return threads, nil
}

// WordCount retrieves the word count of one thread and stores it on the
// thread. A page without a tag is not an error: the thread is marked as
// not found.
func (s *Scraper) WordCount(ctx context.Context, thread *model.Thread) error {
	url := ThreadmarksURL(thread.URL, s.site.ThreadmarksSuffix)

	resp, err := s.fetcher.Get(ctx, url)
	if err != nil {
		return err
	}

	text, err := PageText(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", url, err)
	}

	if s.site.ErrorText != "" && strings.Contains(text, s.site.ErrorText) {
		return fmt.Errorf("%w: %s (status %d)", ErrSiteError, url, resp.StatusCode)
	}

	thread.PageHash = HashText(text)

	tag, err := s.extractor.Extract(text)
	if errors.Is(err, extract.ErrWordCountNotFound) {
		thread.MarkNotFound()
		return nil
	}
	if err != nil {
		return err
	}

	if extract.Suspicious(tag) {
		s.logger.Warn("word count is suspiciously short", "thread", thread.Name, "tag", tag)
	}
	thread.SetWordCount(tag)
	return nil
}

// RetrieveWordCounts visits the threads one after another.
// A failing thread is logged and skipped. When ctx is cancelled the
// remaining threads are left untouched and ctx.Err() is returned.
func (s *Scraper) RetrieveWordCounts(ctx context.Context, threads []*model.Thread) error {
	total := len(threads)
	s.total.Store(int64(total))

	for i, thread := range threads {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.current.Store(int64(i + 1))

		if err := s.WordCount(ctx, thread); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("failed to retrieve word count", "thread", thread.Name, "url", thread.URL, "error", err)
			thread.MarkFailed(err)
		} else {
			s.logger.Info("word count", "thread", thread.Name, "word_count", thread.WordCount)
		}

		if s.progress != nil {
			s.progress(i+1, total, thread)
		}
	}
	return nil
}

// OnRateLimited is a fetch.RateLimitHook. It logs the wait and, once
// enough 429 responses were seen, an estimate of the remaining time.
func (s *Scraper) OnRateLimited(url string, attempt int) {
	current := int(s.current.Load())
	total := int(s.total.Load())

	s.logger.Warn("rate limited, waiting",
		"site", s.site.Name,
		"url", url,
		"attempt", attempt,
		"progress", fmt.Sprintf("%d/%d", current, total),
		"wait", s.site.RateLimitWait)

	if est, ok := s.tracker.Hit(current, total); ok {
		s.logger.Warn("rate limit estimate", "site", s.site.Name, "rate", fmt.Sprintf("%.2f req/s", est.Rate), "eta", FormatETA(est.ETA))
	}
}
