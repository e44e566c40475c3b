// Package fetch provides the HTTP transport used to download forum pages.
//
// A Client wraps a resty client with the settings a polite scraper needs:
// a User-Agent, a request timeout, an optional SOCKS5 or HTTP proxy, a
// response size limit and a minimum delay between requests.
//
// Forums answer bursts of requests with 429 Too Many Requests. The client
// waits a fixed time and retries those responses, reporting every wait
// through an optional hook so callers can show progress. 404 Not Found is
// reported as ErrNotFound because unlisted threads return it to anonymous
// visitors.
//
// Create one Client per site and pass it to the components that fetch
// pages; the delay is enforced per Client.
package fetch
