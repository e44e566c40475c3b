package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Extractor kinds accepted by New.
const (
	KindStatistics   = "statistics"
	KindQuestionable = "questionable"
	KindBetween      = "between"
)

// Default markers and pattern.
const (
	DefaultStatisticsStart = "Statistics ("
	DefaultStatisticsEnd   = "words"
	DefaultQuestionStart   = "Statistics"
	DefaultQuestionPattern = `\t*((?:\d+,)?\d+[\s\w]+), Word Count: (\d+(?:\.\d+)?[kKmM]?)`
)

// MinPlausibleLength is the length below which an extracted tag is
// probably wrong and worth a warning.
const MinPlausibleLength = 5

var (
	// ErrWordCountNotFound is returned when the page carries no tag.
	ErrWordCountNotFound = errors.New("word count not found")

	// ErrUnknownKind is returned by New for an unsupported kind.
	ErrUnknownKind = errors.New("unknown extractor kind")

	// ErrMissingMarkers is returned by New when a between extractor lacks
	// its start or end marker.
	ErrMissingMarkers = errors.New("start and end text are required")

	// ErrInvalidPattern is returned by New for a pattern that does not
	// compile or has fewer than two capture groups.
	ErrInvalidPattern = errors.New("invalid pattern")
)

// Extractor finds the word-count tag in page text.
type Extractor interface {
	// Extract returns the raw tag. It returns ErrWordCountNotFound when
	// the page has none.
	Extract(text string) (string, error)
}

// Between extracts the text between the first Start marker and the next
// End marker after it.
type Between struct {
	Start string
	End   string
}

// Extract implements Extractor.
func (b Between) Extract(text string) (string, error) {
	start := strings.Index(text, b.Start)
	if start == -1 {
		return "", ErrWordCountNotFound
	}
	rest := text[start+len(b.Start):]

	end := strings.Index(rest, b.End)
	if end == -1 {
		return "", ErrWordCountNotFound
	}

	value := rest[:end]
	if strings.TrimSpace(value) == "" {
		return "", ErrWordCountNotFound
	}
	return value, nil
}

// Statistics returns the extractor for the "Statistics (N threadmarks, Xk words)"
// line of XenForo threadmarks pages.
func Statistics() Between {
	return Between{Start: DefaultStatisticsStart, End: DefaultStatisticsEnd}
}

// Questionable applies a two-group pattern to the text following Start and
// joins the groups as "<threadmarks>, <words>".
//
// The threadmarks page text looks like
//
//	Statistics			7 threadmarks, Word Count: 4.9k9adam4 (7 threadmarks)
//
// where the digits after the word count belong to the next element.
type Questionable struct {
	Start   string
	Pattern *regexp.Regexp
}

// Extract implements Extractor.
func (q Questionable) Extract(text string) (string, error) {
	start := strings.Index(text, q.Start)
	if start == -1 {
		return "", ErrWordCountNotFound
	}

	m := q.Pattern.FindStringSubmatch(text[start+len(q.Start):])
	if m == nil {
		return "", ErrWordCountNotFound
	}
	return m[1] + ", " + m[2], nil
}

// New builds the extractor of the given kind. Empty markers and pattern
// fall back to the defaults of the kind where it has any.
func New(kind, start, end, pattern string) (Extractor, error) {
	switch kind {
	case KindStatistics:
		b := Statistics()
		if start != "" {
			b.Start = start
		}
		if end != "" {
			b.End = end
		}
		return b, nil

	case KindQuestionable:
		if start == "" {
			start = DefaultQuestionStart
		}
		if pattern == "" {
			pattern = DefaultQuestionPattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPattern, err)
		}
		if re.NumSubexp() < 2 {
			return nil, fmt.Errorf("%w: need two capture groups, got %d", ErrInvalidPattern, re.NumSubexp())
		}
		return Questionable{Start: start, Pattern: re}, nil

	case KindBetween:
		if start == "" || end == "" {
			return nil, ErrMissingMarkers
		}
		return Between{Start: start, End: end}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Suspicious reports whether an extracted tag is too short to be a real
// word count.
func Suspicious(tag string) bool {
	return len(tag) < MinPlausibleLength
}
