// Package crawler scrapes forum index threads and threadmarks pages.
//
// # Architecture
//
// The Scraper coordinates a scrape of one site. Discover reads the
// configured index pages and collects the story threads linked between a
// start and an end anchor. RetrieveWordCounts then visits the threadmarks
// page of every thread, one at a time, and extracts its word-count tag.
//
// # Components
//
//   - Scraper: drives discovery and word-count retrieval for a site
//   - ParseIndex: turns an index page into threads
//   - PageText: turns a threadmarks page into plain text for extraction
//   - RateTracker: estimates progress once a forum starts throttling
//
// # Failure handling
//
// A failed index page aborts discovery. A failed thread is logged and
// skipped: its word count stays "-1" and the cause is kept on the thread.
// Cancelling the context stops retrieval and leaves the threads scraped so
// far untouched, so callers can still write them out.
//
// # Usage
//
//	scraper, err := crawler.NewScraper(client, site, crawler.WithLogger(logger))
//	threads, err := scraper.Discover(ctx)
//	err = scraper.RetrieveWordCounts(ctx, threads)
package crawler
