package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	cases := []struct {
		polarity float64
		want     string
	}{
		{0.15, "positive"},
		{-0.15, "negative"},
		{0.0, "neutral"},
		{0.1, "neutral"},
		{-0.1, "neutral"},
		{1.0, "positive"},
		{-1.0, "negative"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Categorize(tc.polarity), "polarity %v", tc.polarity)
	}
}

func TestScoreEmptyInput(t *testing.T) {
	assert.Equal(t, 0.0, Score(""))
	assert.Equal(t, 0.0, Score("   \t\n"))
}

func TestScoreDeterministic(t *testing.T) {
	a := Score("I love this amazing product!")
	b := Score("I love this amazing product!")
	assert.Equal(t, a, b)
}

func TestScoreBounded(t *testing.T) {
	for _, text := range []string{
		"I love this!",
		"I hate this.",
		"the quick brown fox",
		"AMAZING!!! best thing ever, love love love",
		"terrible awful horrible disgusting worst",
	} {
		s := Score(text)
		assert.GreaterOrEqual(t, s, -1.0, "text %q", text)
		assert.LessOrEqual(t, s, 1.0, "text %q", text)
	}
}

func TestScorePolarityDirection(t *testing.T) {
	assert.Greater(t, Score("I love this!"), POSITIVE_THRESHOLD)
	assert.Less(t, Score("I hate this."), NEGATIVE_THRESHOLD)
}

func TestConvertMarkdownToText(t *testing.T) {
	got := ConvertMarkdownToText("**great** [link](https://example.com) see www.example.com")
	assert.NotContains(t, got, "**")
	assert.NotContains(t, got, "https://example.com")
	assert.Contains(t, got, "great")
	assert.Contains(t, got, "link")
}
