package crawler

import (
	"bytes"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/threadcount/internal/model"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// LinkFilter decides whether an index link points at a story thread.
type LinkFilter struct {
	// IgnoreURLs are URL fragments of links that are never stories.
	IgnoreURLs []string

	// IgnoreTexts are anchor text fragments of links that are never stories.
	IgnoreTexts []string
}

// Useful reports whether the link is a story link.
// Both href and text must be non-empty after trimming, and href must be an
// absolute http(s) URL.
func (f LinkFilter) Useful(href, text string) bool {
	href = strings.TrimSpace(href)
	text = strings.TrimSpace(text)
	if href == "" || text == "" {
		return false
	}
	if !strings.HasPrefix(href, "http") {
		return false
	}
	for _, ignored := range f.IgnoreURLs {
		if ignored != "" && strings.Contains(href, ignored) {
			return false
		}
	}
	for _, ignored := range f.IgnoreTexts {
		if ignored != "" && strings.Contains(text, ignored) {
			return false
		}
	}
	return true
}

// ParseIndex returns the story threads linked on an index page.
//
// Anchors are walked in document order. Nothing is collected until an
// anchor whose text equals start; that anchor itself is skipped. Every
// useful anchor after it becomes a thread, and the walk stops after the
// anchor whose text equals end. An empty start collects from the top of the
// page and an empty end collects to the bottom.
//
// Anchor text is compared with surrounding whitespace trimmed. Vertical
// bars are removed from it before it is compared with end or used as a
// thread name.
func ParseIndex(r io.Reader, start, end string, filter LinkFilter) ([]*model.Thread, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	doc := goquery.NewDocumentFromNode(root)

	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)

	threads := make([]*model.Thread, 0)
	started := start == ""

	doc.Find("a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := norm.NFC.String(s.Text())
		if start != "" && strings.TrimSpace(raw) == start {
			started = true
			return true
		}
		if !started {
			return true
		}

		text := strings.ReplaceAll(raw, "|", "")
		href, _ := s.Attr("href")
		if !filter.Useful(href, text) {
			return true
		}

		threads = append(threads, model.NewThread(text, href))
		return end == "" || strings.TrimSpace(text) != end
	})

	return threads, nil
}

// PageText returns the text content of an HTML page with newlines removed.
func PageText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(doc.Text(), "\n", ""), nil
}
