// Package report writes scrape runs in different formats.
//
// The primary output is the pipe-separated CSV file, one row per thread:
//
//	name|url|word count
//
// It has no header and is meant for manual import into a spreadsheet.
// Markdown and JSON writers render the same run for sharing and tooling,
// and the table writer prints summaries to the terminal.
package report
