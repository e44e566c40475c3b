// Package model defines the core data structures used throughout threadcount.
//
// This package contains the following main types:
//   - Thread: A story thread discovered on a forum index page
//   - Tag: The parsed view of a scraped word-count tag
//   - Run: The result of scraping one site once
//
// Multiple packages (crawler, pipeline, database, report) use these types,
// so they live in their own package to avoid import cycles.
package model
