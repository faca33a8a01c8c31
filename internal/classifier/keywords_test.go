package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractKeywords(t *testing.T) {
	text := "The quarterly report shows strong revenue growth. Revenue exceeded projections and revenue targets were met."

	keywords := ExtractKeywords(text, 3)

	assert.Len(t, keywords, 3)
	assert.Equal(t, "revenue", keywords[0], "most frequent word comes first")
}

func TestExtractKeywords_FiltersStopWordsAndShortWords(t *testing.T) {
	keywords := ExtractKeywords("the cat and the dog sat on a mat", 10)

	// Every remaining word is three characters or fewer or a stop word.
	assert.Empty(t, keywords)
}

func TestExtractKeywords_EmptyText(t *testing.T) {
	assert.Nil(t, ExtractKeywords("", 5))
	assert.Nil(t, ExtractKeywords("   ", 5))
	assert.Nil(t, ExtractKeywords("some words here", 0))
}

func TestExtractKeywords_TieBreakByFirstOccurrence(t *testing.T) {
	keywords := ExtractKeywords("zebra apple zebra apple mango", 3)

	assert.Equal(t, []string{"zebra", "apple", "mango"}, keywords)
}

func TestSummarize(t *testing.T) {
	text := "First sentence here. Second sentence follows. Third one is longer and pushes past the limit."

	summary := Summarize(text, 45)

	assert.Equal(t, "First sentence here. Second sentence follows.", summary)
}

func TestSummarize_EmptyText(t *testing.T) {
	assert.Equal(t, "No content available", Summarize("", 200))
	assert.Equal(t, "No content available", Summarize("  \n ", 200))
}

func TestSummarize_LongSingleSentence(t *testing.T) {
	text := strings.Repeat("word ", 100)

	summary := Summarize(text, 50)

	assert.True(t, strings.HasSuffix(summary, "..."))
	assert.LessOrEqual(t, len(summary), 53)
}
