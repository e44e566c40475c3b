// Package external runs third-party scrapers for sites threadcount does not
// scrape itself.
//
// A site definition with a command, such as the Archive of Our Own preset,
// is handed to the configured program:
//
//	python AO3Scraper/ao3_work_ids.py {url} --start_page {startPage} --out_csv={output}
//
// The placeholders are replaced per run and the process is bound to the
// run's context, so an interrupt stops it.
package external
