package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/threadcount/internal/config"
	"github.com/nao1215/threadcount/internal/external"
	"github.com/nao1215/threadcount/internal/model"
	"github.com/nao1215/threadcount/internal/report"
)

// ErrNoPreviousRun is returned by ResumeStep when there is no run to resume.
var ErrNoPreviousRun = errors.New("no previous run to resume")

// ThreadSource discovers the threads of a site.
// *crawler.Scraper implements it.
type ThreadSource interface {
	Discover(ctx context.Context) ([]*model.Thread, error)
}

// WordCounter fills in the word counts of threads.
// *crawler.Scraper implements it.
type WordCounter interface {
	RetrieveWordCounts(ctx context.Context, threads []*model.Thread) error
}

// RunStore persists runs. *database.RunDB implements it.
type RunStore interface {
	SaveRun(ctx context.Context, run *model.Run) error
}

// ExternalRunner runs an external scraper. *external.Runner implements it.
type ExternalRunner interface {
	Run(ctx context.Context, vars external.Vars) error
}

// DiscoverStep collects the story threads from the site's index pages.
type DiscoverStep struct {
	source ThreadSource
}

// NewDiscoverStep creates a new discovery step.
func NewDiscoverStep(source ThreadSource) *DiscoverStep {
	return &DiscoverStep{source: source}
}

// Name returns the step name.
func (s *DiscoverStep) Name() string {
	return "discover"
}

// Do executes the discovery step. Threads found before a failure are kept.
func (s *DiscoverStep) Do(ctx context.Context, run *model.Run) error {
	threads, err := s.source.Discover(ctx)
	run.Threads = append(run.Threads, threads...)
	return err
}

// ResumeStep loads the threads of a previous run of the same site instead
// of discovering them again.
type ResumeStep struct {
	previous *model.Run
}

// NewResumeStep creates a step that copies the threads of previous.
func NewResumeStep(previous *model.Run) *ResumeStep {
	return &ResumeStep{previous: previous}
}

// Name returns the step name.
func (s *ResumeStep) Name() string {
	return "resume"
}

// Do copies the previous run's threads into run. The previous run is not
// modified.
func (s *ResumeStep) Do(_ context.Context, run *model.Run) error {
	if s.previous == nil {
		return ErrNoPreviousRun
	}
	for _, th := range s.previous.Threads {
		copied := *th
		run.Threads = append(run.Threads, &copied)
	}
	return nil
}

// WordCountStep retrieves the word count of the run's threads.
type WordCountStep struct {
	counter     WordCounter
	onlyMissing bool
}

// WordCountStepOption configures a WordCountStep.
type WordCountStepOption func(*WordCountStep)

// WithOnlyMissing limits the step to threads without a word count.
func WithOnlyMissing() WordCountStepOption {
	return func(s *WordCountStep) {
		s.onlyMissing = true
	}
}

// NewWordCountStep creates a new word count step.
func NewWordCountStep(counter WordCounter, opts ...WordCountStepOption) *WordCountStep {
	s := &WordCountStep{counter: counter}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *WordCountStep) Name() string {
	return "word_count"
}

// Do executes the word count step.
func (s *WordCountStep) Do(ctx context.Context, run *model.Run) error {
	threads := run.Threads
	if s.onlyMissing {
		threads = run.Missing()
	}
	return s.counter.RetrieveWordCounts(ctx, threads)
}

// ExternalStep delegates the whole site to an external scraper.
type ExternalStep struct {
	runner    ExternalRunner
	listing   string
	outputDir string
	startPage int
}

// NewExternalStep creates a step running runner on the listing URL.
func NewExternalStep(runner ExternalRunner, listing, outputDir string, startPage int) *ExternalStep {
	return &ExternalStep{
		runner:    runner,
		listing:   listing,
		outputDir: outputDir,
		startPage: startPage,
	}
}

// Name returns the step name.
func (s *ExternalStep) Name() string {
	return "external"
}

// Do runs the external scraper. The scraper writes its own CSV file, named
// like the files written by CSVStep.
func (s *ExternalStep) Do(ctx context.Context, run *model.Run) error {
	if err := os.MkdirAll(s.outputDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	output := filepath.Join(s.outputDir, strings.TrimSuffix(report.OutputFileName(run.Site, run.StartedAt), ".csv"))
	run.OutputFile = output + ".csv"

	return s.runner.Run(ctx, external.Vars{
		URL:       s.listing,
		StartPage: s.startPage,
		Output:    output,
	})
}

// CSVStep writes the run's CSV file.
type CSVStep struct {
	dir    string
	logger *slog.Logger
}

// NewCSVStep creates a step writing the CSV file into dir.
func NewCSVStep(dir string, logger *slog.Logger) *CSVStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVStep{dir: dir, logger: logger}
}

// Name returns the step name.
func (s *CSVStep) Name() string {
	return "csv"
}

// Do writes the CSV file and records its path on the run.
// Nothing is written for a run without threads.
func (s *CSVStep) Do(_ context.Context, run *model.Run) error {
	if len(run.Threads) == 0 {
		s.logger.Warn("no threads, skipping output file", "site", run.Site)
		return nil
	}
	path, err := report.WriteFile(s.dir, run)
	if err != nil {
		return err
	}
	run.OutputFile = path
	s.logger.Info("wrote output file", "site", run.Site, "path", path, "threads", len(run.Threads))
	return nil
}

// MarkdownStep writes a markdown summary next to the CSV file.
type MarkdownStep struct {
	dir   string
	title string
}

// NewMarkdownStep creates a markdown summary step.
func NewMarkdownStep(dir, title string) *MarkdownStep {
	return &MarkdownStep{dir: dir, title: title}
}

// Name returns the step name.
func (s *MarkdownStep) Name() string {
	return "markdown"
}

// Do writes the summary as <csv name>.md.
func (s *MarkdownStep) Do(_ context.Context, run *model.Run) error {
	csvPath := run.OutputFile
	if csvPath == "" {
		csvPath = filepath.Join(s.dir, report.OutputFileName(run.Site, run.StartedAt))
	}
	path := strings.TrimSuffix(csvPath, ".csv") + ".md"

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path) //nolint:gosec // path is built from the output directory option
	if err != nil {
		return fmt.Errorf("failed to create markdown file: %w", err)
	}
	if _, err := report.NewMarkdownWriter(f, report.WithTitle(s.title)).Write(run); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write markdown file: %w", err)
	}
	return f.Close()
}

// StoreStep saves the run in the run store.
type StoreStep struct {
	store RunStore
}

// NewStoreStep creates a new store step.
func NewStoreStep(store RunStore) *StoreStep {
	return &StoreStep{store: store}
}

// Name returns the step name.
func (s *StoreStep) Name() string {
	return "store"
}

// Do executes the store step.
func (s *StoreStep) Do(ctx context.Context, run *model.Run) error {
	if err := s.store.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("failed to store run: %w", err)
	}
	return nil
}

// SiteOptions describes the pipeline of one site.
type SiteOptions struct {
	// Site is the merged site definition.
	Site config.SiteConfig

	// Source and Counter scrape forum sites, usually the same
	// *crawler.Scraper. They are unused for external sites.
	Source  ThreadSource
	Counter WordCounter

	// Runner scrapes external sites.
	Runner ExternalRunner

	// Previous, when set, is resumed instead of discovering threads and
	// only threads without a word count are retried.
	Previous *model.Run

	// OutputDir receives the CSV and markdown files.
	OutputDir string

	// StartPage is handed to external scrapers.
	StartPage int

	// Markdown enables the markdown summary.
	Markdown bool

	// Store saves the run. Nil disables storing.
	Store RunStore

	// Logger is used by the pipeline and its steps.
	Logger *slog.Logger
}

// NewSitePipeline builds the pipeline for one site:
//
//	discover | resume -> word_count -> [csv -> markdown -> store]
//	external -> [store]
//
// Bracketed steps are final steps.
func NewSitePipeline(o SiteOptions, opts ...Option) *Pipeline {
	if o.Logger != nil {
		opts = append([]Option{WithLogger(o.Logger)}, opts...)
	}
	p := New(opts...)

	if o.Site.IsExternal() {
		p.AddStep(NewExternalStep(o.Runner, o.Site.ListingURL, o.OutputDir, o.StartPage))
	} else {
		if o.Previous != nil {
			p.AddSteps(
				NewResumeStep(o.Previous),
				NewWordCountStep(o.Counter, WithOnlyMissing()),
			)
		} else {
			p.AddSteps(
				NewDiscoverStep(o.Source),
				NewWordCountStep(o.Counter),
			)
		}
		p.AddFinalStep(NewCSVStep(o.OutputDir, p.logger))
		if o.Markdown {
			title := o.Site.Title
			if title == "" {
				title = o.Site.Name
			}
			p.AddFinalStep(NewMarkdownStep(o.OutputDir, title))
		}
	}

	if o.Store != nil {
		p.AddFinalStep(NewStoreStep(o.Store))
	}
	return p
}
