package report

import (
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nao1215/threadcount/internal/database"
	"github.com/nao1215/threadcount/internal/model"
)

// TableWriter prints a run summary as a terminal table.
type TableWriter struct {
	baseWriter

	// top is the number of longest stories listed under the summary.
	top int
}

// NewTableWriter creates a TableWriter that outputs to the given writer.
// top limits the listed stories; zero lists none.
func NewTableWriter(output io.Writer, top int) *TableWriter {
	return &TableWriter{baseWriter: newBaseWriter(output), top: top}
}

// Write prints the outcome counts and the longest stories of the run.
func (w *TableWriter) Write(run *model.Run) (int, error) {
	stats := run.Stats()

	t := newTable()
	t.AppendHeader(table.Row{"Site", "Threads", "Word Count", "No Statistics", "Failed", "Duration", "Status"})
	t.AppendRow(table.Row{
		run.Site,
		stats.Threads,
		stats.Found,
		stats.NotFound,
		stats.Failed,
		run.Duration().Round(1e9).String(),
		plainStatus(run),
	})
	out := t.Render() + "\n"

	sorted := run.SortedByWords()
	if w.top > 0 && len(sorted) > 0 {
		if len(sorted) > w.top {
			sorted = sorted[:w.top]
		}
		st := newTable()
		st.AppendHeader(table.Row{"#", "Story", "Threadmarks", "Words"})
		for i, th := range sorted {
			tag := th.Tag()
			st.AppendRow(table.Row{i + 1, truncateString(th.Name, 60), tag.Threadmarks, humanize.Comma(tag.ApproxWords)})
		}
		out += st.Render() + "\n"
	}
	return w.write(out)
}

// WriteHistory prints stored runs, newest first as given.
func WriteHistory(output io.Writer, runs []database.RunMetadata) (int, error) {
	t := newTable()
	t.AppendHeader(table.Row{"Run", "Site", "Started", "Threads", "Found", "Status", "Output"})
	for _, r := range runs {
		status := "complete"
		switch {
		case r.Interrupted:
			status = "interrupted"
		case r.Error != "":
			status = "error"
		case r.FinishedAt.IsZero():
			status = "unfinished"
		}
		t.AppendRow(table.Row{
			shortID(r.ID),
			r.Site,
			humanize.Time(r.StartedAt),
			r.Threads,
			strconv.Itoa(r.Found) + "/" + strconv.Itoa(r.Threads),
			status,
			r.OutputFile,
		})
	}
	return io.WriteString(output, t.Render()+"\n")
}

// newTable returns a table writer with the shared style.
func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	return t
}

// plainStatus is statusText without decoration.
func plainStatus(run *model.Run) string {
	switch {
	case run.Interrupted:
		return "interrupted"
	case run.ErrorMessage != "":
		return "error"
	default:
		return "complete"
	}
}

// shortID returns the first block of a UUID.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
