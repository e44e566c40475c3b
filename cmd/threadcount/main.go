// Package main provides the entry point for the threadcount CLI.
//
// threadcount collects the self-insert story threads listed on forum index
// threads and records the word count of each story in a pipe-separated
// CSV file.
//
// Usage:
//
//	threadcount scrape sv qq
//	threadcount clean sv-output-2024-03-01-12-00-00.csv
//
// See --help for all available options.
package main

// main is the entry point for threadcount.
func main() {
	Execute()
}
