// Package database provides SQLite-based storage for threadcount runs.
//
// Every scrape of a site is stored as a run together with its threads, so a
// run can be exported again later, compared with earlier runs, or resumed
// by re-scraping only the threads that failed.
//
// The store uses modernc.org/sqlite, a CGO-free driver, and keeps a single
// connection open because SQLite allows one writer at a time.
package database
