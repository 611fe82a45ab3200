package search

import "strings"

// Words too common in news copy to count toward a verbatim match.
// Includes attribution verbs ("said", "says") that appear in nearly
// every wire story.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "were": true, "to": true, "of": true, "and": true, "in": true,
	"that": true, "have": true, "has": true, "had": true, "it": true, "its": true,
	"for": true, "not": true, "on": true, "with": true, "as": true, "you": true,
	"do": true, "at": true, "this": true, "but": true, "by": true, "from": true,
	"will": true, "their": true, "said": true, "says": true,
}

// tokenizeAndFilter lowercases text, strips surrounding punctuation from
// each word, and drops stop words and empty tokens.
func tokenizeAndFilter(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}

// containsAllQueryWords reports whether every meaningful query word
// appears somewhere in the document. A query that filters down to
// nothing never matches.
func containsAllQueryWords(document, query string) bool {
	queryWords := tokenizeAndFilter(query)
	if len(queryWords) == 0 {
		return false
	}

	docWords := tokenizeAndFilter(document)
	docWordSet := make(map[string]bool, len(docWords))
	for _, word := range docWords {
		docWordSet[word] = true
	}

	for _, qWord := range queryWords {
		if !docWordSet[qWord] {
			return false
		}
	}

	return true
}
