package config

import "github.com/nao1215/threadcount/internal/extract"

const (
	forumErrorText = "Oops! We ran into some problems."

	svIndexURL = "https://forums.sufficientvelocity.com/threads/sufficiently-inserted-sv-self-insert-archive-v2-0.41389"
	qqIndexURL = "https://forum.questionablequesting.com/threads/questing-for-insertion-qq-self-insert-archive.1094"
	ao3Listing = "https://archiveofourown.org/tags/Self-Insert/works?commit=Sort+and+Filter&page=1&work_search%5Bcomplete%5D=&work_search%5Bcrossover%5D=&work_search%5Bdate_from%5D=&work_search%5Bdate_to%5D=&work_search%5Bexcluded_tag_names%5D=&work_search%5Blanguage_id%5D=&work_search%5Bother_tag_names%5D=&work_search%5Bquery%5D=&work_search%5Bsort_column%5D=word_count&work_search%5Bwords_from%5D=&work_search%5Bwords_to%5D="
)

// Presets returns the built-in site definitions keyed by site name.
// A new map is returned on every call so callers may modify it.
func Presets() map[string]SiteConfig {
	return map[string]SiteConfig{
		"sv": {
			Name:  "sv",
			Title: "Sufficient Velocity",
			IndexPages: []IndexPage{
				{
					URL:       svIndexURL,
					StartLink: "Go! Unashamed Reincarnation Protagonist Sakura! (Naruto SI)",
					EndLink:   "Come Hell or Helheim (Worm Duo-SI)",
				},
				{
					URL:       svIndexURL + "/page-2",
					StartLink: "The Gardener's Tale (Star Wars SI)",
					EndLink:   "My Wish (Worm CYOA SI)",
				},
			},
			ThreadmarksSuffix: "/threadmarks",
			Extractor:         extract.KindStatistics,
			StartText:         extract.DefaultStatisticsStart,
			EndText:           extract.DefaultStatisticsEnd,
			ErrorText:         forumErrorText,
			IgnoreURLs:        []string{"/threads/rules-terms-of-service"},
			IgnoreTexts:       []string{"Sufficiently Velocity", "into a problem"},
		},
		"qq": {
			Name:  "qq",
			Title: "Questionable Questing",
			IndexPages: []IndexPage{
				{
					URL:       qqIndexURL,
					StartLink: "Complete Detachment (Star Wars Prequel SI)",
					EndLink:   "Bruh...I'm Dead AF (DxD SI)",
				},
			},
			ThreadmarksSuffix: "/threadmarks?category_id=1",
			Extractor:         extract.KindQuestionable,
			StartText:         extract.DefaultQuestionStart,
			Pattern:           extract.DefaultQuestionPattern,
			ErrorText:         forumErrorText,
			IgnoreURLs:        []string{"/threads/rules-terms-of-service"},
			IgnoreTexts:       []string{"into a problem"},
		},
		"sb": {
			Name:              "sb",
			Title:             "SpaceBattles",
			ThreadmarksSuffix: "/threadmarks",
			Extractor:         extract.KindBetween,
			StartText:         "Word Count:",
			EndText:           "K",
			ErrorText:         forumErrorText,
			IgnoreURLs:        []string{"/threads/rules-terms-of-service"},
			IgnoreTexts:       []string{"into a problem"},
		},
		"ao3": {
			Name:       "ao3",
			Title:      "Archive of Our Own",
			ListingURL: ao3Listing,
			Command: []string{
				"python", "AO3Scraper/ao3_work_ids.py", "{url}",
				"--start_page", "{startPage}",
				"--out_csv={output}",
			},
		},
	}
}
