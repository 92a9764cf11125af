package sentiment

import (
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
)

const (
	POSITIVE_THRESHOLD = 0.1
	NEGATIVE_THRESHOLD = -0.1
)

var analyzer = govader.NewSentimentIntensityAnalyzer()

func RemoveLinks(input string) string {
	linkPattern := regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	input = linkPattern.ReplaceAllString(input, "$1") // Keep only the text

	urlPattern := regexp.MustCompile(`https?://\S+|www\.\S+`)
	input = urlPattern.ReplaceAllString(input, "")

	return input
}

func ConvertMarkdownToText(input string) string {
	output := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	plainText := strings.Join(strings.Fields(string(output)), " ")

	return RemoveLinks(plainText)
}

// Score returns the polarity of text in [-1.0, 1.0]. Empty or whitespace-only
// input scores 0.0 without touching the analyzer. Identical inputs always
// produce identical scores.
func Score(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0.0
	}

	plainText := ConvertMarkdownToText(text)
	score := analyzer.PolarityScores(plainText).Compound

	// VADER compound is already normalized, the clamp guards against
	// analyzer swaps that are not.
	if score > 1.0 {
		score = 1.0
	} else if score < -1.0 {
		score = -1.0
	}

	return score
}

// Categorize maps a polarity onto {"positive","negative","neutral"}.
// Polarities landing exactly on a threshold are neutral.
func Categorize(polarity float64) string {
	switch {
	case polarity > POSITIVE_THRESHOLD:
		return "positive"
	case polarity < NEGATIVE_THRESHOLD:
		return "negative"
	default:
		return "neutral"
	}
}
