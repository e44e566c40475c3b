package model

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Run is the result of scraping one site once.
type Run struct {
	// ID uniquely identifies the run in the store.
	ID string `json:"id"`

	// Site is the configured site name, e.g. "sv".
	Site string `json:"site"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Threads holds one entry per discovered thread, in discovery order.
	Threads []*Thread `json:"threads"`

	// Interrupted is true when the run was cancelled before every thread
	// was visited. Threads then holds partial results.
	Interrupted bool `json:"interrupted,omitempty"`

	// Err is the error that stopped the run, if any.
	Err error `json:"-"`

	// ErrorMessage is Err as text, kept for storage.
	ErrorMessage string `json:"error,omitempty"`

	// OutputFile is the path of the CSV file written for the run.
	OutputFile string `json:"output_file,omitempty"`

	// Steps lists the pipeline steps that were performed.
	Steps []string `json:"steps,omitempty"`
}

// NewRun creates a Run for the given site with a fresh ID.
func NewRun(site string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Site:      site,
		StartedAt: time.Now(),
		Threads:   make([]*Thread, 0),
	}
}

// SetError records err on the run.
func (r *Run) SetError(err error) {
	r.Err = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// Found returns the threads whose word count was retrieved.
func (r *Run) Found() []*Thread {
	found := make([]*Thread, 0, len(r.Threads))
	for _, t := range r.Threads {
		if t.HasWordCount() {
			found = append(found, t)
		}
	}
	return found
}

// Missing returns the threads without a word count.
func (r *Run) Missing() []*Thread {
	missing := make([]*Thread, 0)
	for _, t := range r.Threads {
		if !t.HasWordCount() {
			missing = append(missing, t)
		}
	}
	return missing
}

// SortedByWords returns the threads with a word count, longest first.
// Ties keep discovery order.
func (r *Run) SortedByWords() []*Thread {
	sorted := r.Found()
	slices.SortStableFunc(sorted, func(a, b *Thread) int {
		return cmp.Compare(b.Tag().ApproxWords, a.Tag().ApproxWords)
	})
	return sorted
}

// Duration returns how long the run took.
// For an unfinished run it returns zero.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunStats counts threads by outcome.
type RunStats struct {
	// Threads is the number of discovered threads.
	Threads int

	// Found is the number of threads with a word count.
	Found int

	// NotFound is the number of threadmarks pages without a tag.
	NotFound int

	// Failed is the number of threads whose page could not be scraped,
	// including threads never visited.
	Failed int
}

// Stats counts the run's threads by outcome.
func (r *Run) Stats() RunStats {
	stats := RunStats{Threads: len(r.Threads)}
	for _, t := range r.Threads {
		switch {
		case t.HasWordCount():
			stats.Found++
		case t.WordCount == ProblemWordCountNotFound:
			stats.NotFound++
		default:
			stats.Failed++
		}
	}
	return stats
}
