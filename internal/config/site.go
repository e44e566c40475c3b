package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"dario.cat/mergo"
	"github.com/nao1215/threadcount/internal/extract"
)

// IndexPage is one page of a forum index thread together with the links
// that delimit the story list on it.
type IndexPage struct {
	// URL is the absolute URL of the index page.
	URL string `yaml:"url"`

	// StartLink is the anchor text right before the first story link.
	// The anchor itself is not collected. Empty means start at the top.
	StartLink string `yaml:"startLink,omitempty"`

	// EndLink is the anchor text of the last story link to collect.
	// Empty means collect to the end of the page.
	EndLink string `yaml:"endLink,omitempty"`
}

// SiteConfig describes how to scrape one forum.
type SiteConfig struct {
	// Name is the site key, e.g. "sv". It is filled from the map key.
	Name string `yaml:"-"`

	// Title is a human readable site name.
	Title string `yaml:"title,omitempty"`

	// IndexPages are the index thread pages listing story threads.
	IndexPages []IndexPage `yaml:"indexPages,omitempty"`

	// ThreadmarksSuffix is appended to a thread URL to reach its
	// threadmarks page, e.g. "/threadmarks".
	ThreadmarksSuffix string `yaml:"threadmarksSuffix,omitempty"`

	// Extractor names the word-count extraction strategy:
	// "statistics", "questionable" or "between".
	Extractor string `yaml:"extractor,omitempty"`

	// StartText and EndText delimit the word-count tag in the page text.
	StartText string `yaml:"startText,omitempty"`
	EndText   string `yaml:"endText,omitempty"`

	// Pattern is the regular expression used by the "questionable" extractor.
	Pattern string `yaml:"pattern,omitempty"`

	// ErrorText marks a forum error page served with a success status.
	ErrorText string `yaml:"errorText,omitempty"`

	// IgnoreURLs are URL fragments of index links that are never stories.
	IgnoreURLs []string `yaml:"ignoreURLs,omitempty"`

	// IgnoreTexts are anchor text fragments of index links that are never stories.
	IgnoreTexts []string `yaml:"ignoreTexts,omitempty"`

	// RateLimitWait overrides the wait after a 429 response for this site.
	RateLimitWait time.Duration `yaml:"rateLimitWait,omitempty"`

	// ListingURL is the listing handed to an external scraper.
	ListingURL string `yaml:"listingURL,omitempty"`

	// Command delegates the site to an external program. Arguments may use
	// the placeholders {url}, {startPage} and {output}.
	Command []string `yaml:"command,omitempty"`
}

// IsExternal reports whether the site is scraped by an external program.
func (s SiteConfig) IsExternal() bool {
	return len(s.Command) > 0
}

// NewExtractor builds the word-count extractor described by the site.
func (s SiteConfig) NewExtractor() (extract.Extractor, error) {
	return extract.New(s.Extractor, s.StartText, s.EndText, s.Pattern)
}

// Validate checks that the site can be scraped.
func (s SiteConfig) Validate() error {
	if s.IsExternal() {
		return nil
	}
	if len(s.IndexPages) == 0 {
		return ErrNoIndexPages
	}
	for i, page := range s.IndexPages {
		if page.URL == "" {
			return fmt.Errorf("index page %d: %w", i+1, errors.New("url is empty"))
		}
	}
	if _, err := s.NewExtractor(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidExtractor, err)
	}
	return nil
}

// File represents the structure of the .threadcount configuration file.
type File struct {
	// Sites maps site names to their definitions. Entries named like a
	// built-in preset override the preset field by field.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults are applied to every site before its own entry.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// NewFile returns an empty configuration file, which yields the presets.
func NewFile() *File {
	return &File{Sites: make(map[string]SiteConfig)}
}

// HasSite reports whether name is a preset or defined in the file.
func (cf *File) HasSite(name string) bool {
	if _, ok := Presets()[name]; ok {
		return true
	}
	_, ok := cf.Sites[name]
	return ok
}

// SiteNames returns all known site names in sorted order.
func (cf *File) SiteNames() []string {
	names := make([]string, 0, len(cf.Sites)+4)
	for name := range Presets() {
		names = append(names, name)
	}
	for name := range cf.Sites {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// GetSiteConfig returns the definition of a site. The preset (if any) is
// overridden by the file defaults, which are overridden by the site entry.
// Only non-empty fields override.
func (cf *File) GetSiteConfig(name string) SiteConfig {
	result := Presets()[name]

	// Merge only fails for mismatched types, which cannot happen here.
	_ = mergo.Merge(&result, cf.Defaults, mergo.WithOverride) //nolint:errcheck
	if site, ok := cf.Sites[name]; ok {
		_ = mergo.Merge(&result, site, mergo.WithOverride) //nolint:errcheck
	}

	result.Name = name
	if result.Title == "" {
		result.Title = name
	}
	return result
}
