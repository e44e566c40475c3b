package report

import (
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/threadcount/internal/model"
)

// defaultTopStories is the number of stories listed in the longest
// stories section.
const defaultTopStories = 20

// MarkdownWriter outputs a run summary in Markdown format.
// The summary is meant to be committed next to the CSV file or pasted into
// a forum post.
type MarkdownWriter struct {
	baseWriter

	// title is the site title shown in the header.
	title string

	// top is the number of longest stories listed.
	top int
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithTitle sets the site title shown in the header.
func WithTitle(title string) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.title = title
	}
}

// WithTopStories sets how many of the longest stories are listed.
func WithTopStories(n int) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.top = n
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		top:        defaultTopStories,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run summary in Markdown format.
func (w *MarkdownWriter) Write(run *model.Run) (int, error) {
	md := markdown.NewMarkdown(w.output)
	stats := run.Stats()

	w.writeHeader(md, run, stats)
	w.writeCoverage(md, run, stats)
	w.writeLongest(md, run)
	w.writeProblems(md, run)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *model.Run, stats model.RunStats) {
	title := w.title
	if title == "" {
		title = run.Site
	}
	md.H1("Word Counts: " + title)
	md.PlainText("")

	rows := [][]string{
		{"Site", "`" + run.Site + "`"},
		{"Run", "`" + run.ID + "`"},
		{"Started", run.StartedAt.Format("2006-01-02 15:04:05 MST")},
		{"Duration", run.Duration().Round(1e9).String()},
		{"Threads", strconv.Itoa(stats.Threads)},
		{"With Word Count", strconv.Itoa(stats.Found)},
		{"Status", statusText(run)},
	}
	if run.OutputFile != "" {
		rows = append(rows, []string{"CSV", "`" + run.OutputFile + "`"})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// statusText returns the status text based on run state.
func statusText(run *model.Run) string {
	if run.Interrupted {
		return "⚠️ Interrupted (partial results)"
	}
	if run.ErrorMessage != "" {
		return "❌ Error - " + run.ErrorMessage
	}
	return "✅ Complete"
}

// writeCoverage writes the outcome chart and an alert.
func (w *MarkdownWriter) writeCoverage(md *markdown.Markdown, run *model.Run, stats model.RunStats) {
	md.H2("Coverage")
	md.PlainText("")

	if stats.Threads > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Thread Outcomes"),
			piechart.WithShowData(true),
		)
		if stats.Found > 0 {
			chart.LabelAndIntValue("Word count", uint64(stats.Found))
		}
		if stats.NotFound > 0 {
			chart.LabelAndIntValue("No statistics", uint64(stats.NotFound))
		}
		if stats.Failed > 0 {
			chart.LabelAndIntValue("Failed", uint64(stats.Failed))
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case run.ErrorMessage != "" && !run.Interrupted:
		md.Cautionf("The run stopped early: %s", run.ErrorMessage)
	case run.Interrupted:
		md.Warningf("The run was interrupted. %d of %d threads have a word count.", stats.Found, stats.Threads)
	case stats.Threads == 0:
		md.Warningf("No threads were found on the index pages.")
	case stats.Failed > 0:
		md.Importantf("%d thread(s) could not be scraped. Run again with --retry-failed to retry them.", stats.Failed)
	case stats.NotFound > 0:
		md.Note("Some threadmarks pages show no statistics, usually because the story has few chapters.")
	default:
		md.Tip("Every thread has a word count.")
	}
	md.PlainText("")
}

// writeLongest writes the longest stories by approximate word count.
func (w *MarkdownWriter) writeLongest(md *markdown.Markdown, run *model.Run) {
	md.H2("Longest Stories")
	md.PlainText("")

	sorted := run.SortedByWords()
	if len(sorted) == 0 {
		md.PlainText("No word counts were retrieved.")
		md.PlainText("")
		return
	}
	if w.top > 0 && len(sorted) > w.top {
		sorted = sorted[:w.top]
	}

	rows := make([][]string, len(sorted))
	for i, th := range sorted {
		tag := th.Tag()
		rows[i] = []string{
			strconv.Itoa(i + 1),
			markdown.Link(th.Name, th.URL),
			strconv.Itoa(tag.Threadmarks),
			humanize.Comma(tag.ApproxWords),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"#", "Story", "Threadmarks", "Words (approx.)"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeProblems lists threads without a word count.
func (w *MarkdownWriter) writeProblems(md *markdown.Markdown, run *model.Run) {
	missing := run.Missing()
	if len(missing) == 0 {
		return
	}

	md.H2("Problems")
	md.PlainText("")

	rows := make([][]string, len(missing))
	for i, th := range missing {
		problem := th.Problem
		if problem == "" {
			problem = "not visited"
		}
		rows[i] = []string{
			markdown.Link(th.Name, th.URL),
			th.WordCount,
			truncateString(problem, 80),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Story", "Word Count", "Problem"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by [threadcount](https://github.com/nao1215/threadcount)*")
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
