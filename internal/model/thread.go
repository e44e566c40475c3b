package model

import "strings"

// UnknownWordCount is the word count of a thread whose threadmarks page has
// not been scraped successfully.
const UnknownWordCount = "-1"

// ProblemWordCountNotFound is recorded when a threadmarks page was fetched
// but carried no recognizable word-count tag.
const ProblemWordCountNotFound = "word count not found"

// Thread is a story thread linked from a forum index page.
type Thread struct {
	// Name is the anchor text of the link on the index page.
	// It never contains the CSV field separator or newlines.
	Name string `json:"name"`

	// URL is the absolute thread URL.
	URL string `json:"url"`

	// WordCount is the word-count tag as scraped, e.g. "8 threadmarks, 24k".
	// It is UnknownWordCount until retrieved.
	WordCount string `json:"word_count"`

	// Problem describes why WordCount could not be retrieved.
	// Empty when the retrieval succeeded.
	Problem string `json:"problem,omitempty"`

	// PageHash is the SHA3-256 hash of the threadmarks page text.
	PageHash string `json:"page_hash,omitempty"`
}

// NewThread creates a Thread with a cleaned name and an unknown word count.
func NewThread(name, url string) *Thread {
	return &Thread{
		Name:      CleanField(name),
		URL:       strings.TrimSpace(url),
		WordCount: UnknownWordCount,
	}
}

// SetWordCount stores a scraped tag, removing characters that would break
// a CSV row.
func (t *Thread) SetWordCount(text string) {
	t.WordCount = CleanField(text)
	t.Problem = ""
}

// MarkNotFound records that the threadmarks page had no word-count tag.
// The problem text doubles as the CSV value so the row still shows why it
// is empty.
func (t *Thread) MarkNotFound() {
	t.WordCount = ProblemWordCountNotFound
	t.Problem = ProblemWordCountNotFound
}

// MarkFailed records a retrieval error and leaves the word count unknown.
func (t *Thread) MarkFailed(err error) {
	t.WordCount = UnknownWordCount
	if err != nil {
		t.Problem = CleanField(err.Error())
	}
}

// HasWordCount reports whether a word count was retrieved.
func (t *Thread) HasWordCount() bool {
	switch t.WordCount {
	case "", UnknownWordCount, ProblemWordCountNotFound:
		return false
	}
	return true
}

// Tag returns the parsed view of the thread's word count.
func (t *Thread) Tag() Tag {
	if !t.HasWordCount() {
		return Tag{}
	}
	return ParseTag(t.WordCount)
}

// CleanField removes the field separator and line breaks from s and trims
// surrounding whitespace.
func CleanField(s string) string {
	s = strings.ReplaceAll(s, "|", "")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return strings.TrimSpace(s)
}
