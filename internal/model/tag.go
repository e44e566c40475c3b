package model

import (
	"regexp"
	"strconv"
	"strings"
)

// Tag is the parsed form of a scraped word-count tag.
//
// Sites format the tag differently:
//
//	8 threadmarks, 24k          (Sufficient Velocity statistics line)
//	7 threadmarks, 4.9k         (Questionable Questing)
//	1,000,000+                  (bare word count)
type Tag struct {
	// Threadmarks is the number of threadmarks, 0 when the tag has none.
	Threadmarks int `json:"threadmarks"`

	// Words is the word count as written, e.g. "24k".
	Words string `json:"words"`

	// ApproxWords is Words expanded to a number, 0 when unparsable.
	ApproxWords int64 `json:"approx_words"`
}

var (
	threadmarksRegex = regexp.MustCompile(`((?:\d{1,3},)*\d+)\s+threadmarks?`)
	wordsRegex       = regexp.MustCompile(`(\d+(?:,\d{3})*(?:\.\d+)?)\s*([kKmM]?)\+?\s*$`)
)

// ParseTag extracts threadmark and word counts from a scraped tag.
// It never fails; fields it cannot find are left zero.
func ParseTag(text string) Tag {
	var tag Tag
	text = strings.TrimSpace(text)
	if text == "" {
		return tag
	}

	rest := text
	if m := threadmarksRegex.FindStringSubmatchIndex(text); m != nil {
		n, err := strconv.Atoi(strings.ReplaceAll(text[m[2]:m[3]], ",", ""))
		if err == nil {
			tag.Threadmarks = n
		}
		rest = text[m[1]:]
	}

	m := wordsRegex.FindStringSubmatch(rest)
	if m == nil {
		return tag
	}
	tag.Words = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(m[0]), ","))
	tag.ApproxWords = expandCount(m[1], m[2])
	return tag
}

// expandCount converts a number with an optional k/m suffix into an integer.
func expandCount(number, suffix string) int64 {
	f, err := strconv.ParseFloat(strings.ReplaceAll(number, ",", ""), 64)
	if err != nil {
		return 0
	}
	switch strings.ToLower(suffix) {
	case "k":
		f *= 1_000
	case "m":
		f *= 1_000_000
	}
	return int64(f + 0.5)
}
