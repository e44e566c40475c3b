package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "threadcount"

	// DefaultTimeout is the timeout for a single HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultDelay is the politeness delay between requests to one site.
	DefaultDelay = 500 * time.Millisecond

	// DefaultRateLimitWait is how long to wait after a site answers 429
	// Too Many Requests before trying again.
	DefaultRateLimitWait = 5 * time.Second

	// DefaultMaxRetries is the number of retries after a 429 response.
	// Forums throttle in bursts, so this is generous.
	DefaultMaxRetries = 60

	// DefaultConcurrency is the number of sites scraped at the same time.
	DefaultConcurrency = 3

	// DefaultUserAgent identifies threadcount in HTTP requests.
	DefaultUserAgent = "threadcount/1.0 (+https://github.com/nao1215/threadcount)"

	// DefaultMaxBodySize limits the response body size read per page.
	// Threadmarks pages of long stories are large, index pages more so.
	DefaultMaxBodySize = 16 * 1024 * 1024 // 16MB

	// DefaultStartPage is the first listing page handed to external scrapers.
	DefaultStartPage = 1
)

// Config holds all options of a scrape invocation.
// It is populated from CLI flags and passed through the application
// rather than kept in global state.
type Config struct {
	// Sites lists the site names to scrape, e.g. "sv", "qq".
	Sites []string

	// Timeout is the timeout for each HTTP request.
	Timeout time.Duration

	// Delay is the minimum time between two requests to the same site.
	// Zero disables the delay.
	Delay time.Duration

	// RateLimitWait is the wait after a 429 response. A site definition
	// may override it.
	RateLimitWait time.Duration

	// MaxRetries is the number of retries after 429 responses for one request.
	MaxRetries int

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// Proxy is an optional proxy URL (socks5://host:port or http://host:port).
	Proxy string

	// OutputDir is the directory CSV and markdown files are written to.
	OutputDir string

	// Concurrency is the number of sites scraped in parallel.
	Concurrency int

	// Markdown enables a markdown summary next to each CSV file.
	Markdown bool

	// SaveToDB stores every run in the SQLite database under DBDir.
	SaveToDB bool

	// DBDir is the directory holding the SQLite database.
	// Defaults to the XDG data directory (~/.local/share/threadcount on Linux).
	DBDir string

	// RetryFailed re-scrapes only the threads of the latest stored run of a
	// site that have no word count, instead of discovering threads again.
	RetryFailed bool

	// StartPage is passed to external scrapers as the first listing page.
	StartPage int

	// ConfigFilePath is the path to the configuration file.
	// If empty, .threadcount is searched in the current and home directories.
	ConfigFilePath string

	// SiteConfigs holds the site definitions loaded from the config file.
	SiteConfigs *File
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:       DefaultTimeout,
		Delay:         DefaultDelay,
		RateLimitWait: DefaultRateLimitWait,
		MaxRetries:    DefaultMaxRetries,
		UserAgent:     DefaultUserAgent,
		MaxBodySize:   DefaultMaxBodySize,
		OutputDir:     ".",
		Concurrency:   DefaultConcurrency,
		SaveToDB:      true,
		DBDir:         XDGDataDir(),
		StartPage:     DefaultStartPage,
		SiteConfigs:   NewFile(),
	}
}

// XDGDataDir returns the XDG data directory for threadcount.
// On Linux: ~/.local/share/threadcount
// On macOS: ~/Library/Application Support/threadcount
// On Windows: %LOCALAPPDATA%\threadcount
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for threadcount.
// On Linux: ~/.config/threadcount
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the package sentinel errors.
func (c *Config) Validate() error {
	if len(c.Sites) == 0 {
		return ErrNoSite
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.Delay < 0 || c.RateLimitWait < 0 {
		return ErrInvalidDelay
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}
	if c.MaxRetries < 0 {
		return ErrInvalidRetries
	}

	file := c.SiteConfigs
	if file == nil {
		file = NewFile()
	}
	for _, name := range c.Sites {
		if !file.HasSite(name) {
			return &UnknownSiteError{Name: name, Known: file.SiteNames()}
		}
		if err := c.Site(name).Validate(); err != nil {
			return fmt.Errorf("site %s: %w", name, err)
		}
	}
	return nil
}

// Site returns the merged definition of the named site, with run-wide
// settings filled in where the site does not override them.
func (c *Config) Site(name string) SiteConfig {
	file := c.SiteConfigs
	if file == nil {
		file = NewFile()
	}
	site := file.GetSiteConfig(name)
	if site.RateLimitWait == 0 {
		site.RateLimitWait = c.RateLimitWait
	}
	return site
}
