package classifier

import (
	"regexp"
	"sort"
	"strings"
)

var (
	nonWordPattern   = regexp.MustCompile(`[^\w\s]`)
	sentenceBoundary = regexp.MustCompile(`[.!?]+`)
)

// stopWords are excluded from keyword extraction.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"being": {}, "have": {}, "has": {}, "had": {}, "do": {}, "does": {},
	"did": {}, "will": {}, "would": {}, "could": {}, "should": {}, "may": {},
	"might": {}, "must": {}, "can": {}, "this": {}, "that": {}, "these": {},
	"those": {}, "i": {}, "you": {}, "he": {}, "she": {}, "it": {}, "we": {},
	"they": {}, "me": {}, "him": {}, "her": {}, "us": {}, "them": {},
}

// ExtractKeywords returns up to maxKeywords frequent terms from the text,
// excluding stop words and words of three characters or fewer.
func ExtractKeywords(text string, maxKeywords int) []string {
	if strings.TrimSpace(text) == "" || maxKeywords <= 0 {
		return nil
	}

	clean := nonWordPattern.ReplaceAllString(strings.ToLower(text), "")

	counts := make(map[string]int)
	order := make(map[string]int)
	for i, word := range strings.Fields(clean) {
		if _, stop := stopWords[word]; stop || len(word) <= 3 {
			continue
		}
		if _, seen := counts[word]; !seen {
			order[word] = i
		}
		counts[word]++
	}

	keywords := make([]string, 0, len(counts))
	for word := range counts {
		keywords = append(keywords, word)
	}

	// Most frequent first; first occurrence breaks ties for stable output.
	sort.Slice(keywords, func(i, j int) bool {
		if counts[keywords[i]] != counts[keywords[j]] {
			return counts[keywords[i]] > counts[keywords[j]]
		}
		return order[keywords[i]] < order[keywords[j]]
	})

	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	return keywords
}

// Summarize produces a short summary by accumulating leading sentences
// until maxLength is reached.
func Summarize(text string, maxLength int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "No content available"
	}

	var summary strings.Builder
	for _, sentence := range sentenceBoundary.Split(trimmed, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		if summary.Len()+len(sentence) > maxLength {
			break
		}
		summary.WriteString(sentence)
		summary.WriteString(". ")
	}

	if s := strings.TrimSpace(summary.String()); s != "" {
		return s
	}
	if len(trimmed) > maxLength {
		return trimmed[:maxLength] + "..."
	}
	return trimmed
}
