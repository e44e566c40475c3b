package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/threadcount/internal/model"
)

// Separator is the CSV field separator. Thread names often contain commas,
// so a vertical bar is used instead.
const Separator = "|"

// outputTimeLayout is the timestamp layout used in output file names.
const outputTimeLayout = "2006-01-02-15-04-05"

// CSVWriter writes one "name|url|word count" row per thread.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs all threads of the run in discovery order.
func (w *CSVWriter) Write(run *model.Run) (int, error) {
	var sb strings.Builder
	for _, th := range run.Threads {
		sb.WriteString(Row(th))
		sb.WriteString("\n")
	}
	return w.write(sb.String())
}

// Row formats a thread as a CSV row without the trailing newline.
// Fields are cleaned so that a row never spans lines or gains columns.
func Row(th *model.Thread) string {
	wordCount := model.CleanField(th.WordCount)
	if wordCount == "" {
		wordCount = model.UnknownWordCount
	}
	return strings.Join([]string{
		model.CleanField(th.Name),
		model.CleanField(th.URL),
		wordCount,
	}, Separator)
}

// OutputFileName returns the CSV file name for a run of site started at t,
// e.g. "sv-output-2024-03-01-12-00-00.csv".
func OutputFileName(site string, t time.Time) string {
	return fmt.Sprintf("%s-output-%s.csv", site, t.Format(outputTimeLayout))
}

// WriteFile writes the run as CSV into dir and returns the file path.
// The file name is derived from the run's site and start time.
func WriteFile(dir string, run *model.Run) (string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, OutputFileName(run.Site, run.StartedAt))
	f, err := os.Create(path) //nolint:gosec // path is built from the output directory option
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}

	if _, err := NewCSVWriter(f).Write(run); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close output file: %w", err)
	}
	return path, nil
}
