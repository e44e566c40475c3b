// Package pipeline runs the steps of one scrape run in sequence.
//
// A site run is a pipeline of steps working on a shared model.Run:
// discovering threads on the index pages (or reloading the previous run),
// retrieving their word counts, then writing the CSV file, an optional
// markdown summary and storing the run. The output steps are final steps:
// they also run after an error or an interrupt, so partial results are
// never lost.
//
// Several sites are processed concurrently by a BatchProcessor built on
// errgroup.
package pipeline
