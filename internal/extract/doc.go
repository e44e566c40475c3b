// Package extract pulls the word-count tag out of the text of a forum
// threadmarks page.
//
// Forums render the tag differently, so each site names an extraction
// strategy:
//
//   - statistics: text between "Statistics (" and "words" (Sufficient Velocity)
//   - questionable: a regular expression applied after "Statistics"
//     (Questionable Questing)
//   - between: text between two configurable markers (SpaceBattles and
//     custom sites)
//
// Extractors operate on plain page text, not HTML; the crawler package
// turns a page into text first.
package extract
