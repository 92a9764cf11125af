package transform

import (
	"log/slog"
	"math"
	"time"

	"github.com/sentipulse/sentipulse/internal/models"
	"github.com/sentipulse/sentipulse/internal/sentiment"
)

// Report counts what happened to a raw batch during normalization.
type Report struct {
	Input          int
	Normalized     int
	DroppedNoTitle int
	Malformed      int
	DuplicateInRun int
}

// Normalize converts a raw batch into canonical posts.
//
// Records sharing an id collapse to the first occurrence, preserving the
// source's iteration order; the first occurrence claims the id even when it
// is itself dropped, so an id whose first occurrence is invalid produces no
// output at all. Records without a title are dropped: a post with no title
// is not representable. Records with an uninterpretable created_utc are
// skipped and counted rather than failing the run. Every surviving record
// carries the same extractedAt stamp so one run's rows are comparably
// timestamped.
func Normalize(rawPosts []models.RawPost, extractedAt time.Time) ([]models.CanonicalPost, Report) {
	report := Report{Input: len(rawPosts)}

	if len(rawPosts) == 0 {
		return []models.CanonicalPost{}, report
	}

	seen := make(map[string]struct{}, len(rawPosts))
	normalized := make([]models.CanonicalPost, 0, len(rawPosts))

	for _, raw := range rawPosts {
		if _, dup := seen[raw.ID]; dup {
			report.DuplicateInRun++
			slog.Debug("[Normalizer] Collapsing duplicate post in batch",
				slog.String("post_id", raw.ID))
			continue
		}
		seen[raw.ID] = struct{}{}

		if raw.Title == nil {
			report.DroppedNoTitle++
			slog.Debug("[Normalizer] Dropping post without title",
				slog.String("post_id", raw.ID))
			continue
		}

		createdAt, ok := epochToTime(raw.CreatedUTC)
		if !ok {
			report.Malformed++
			slog.Warn("[Normalizer] Skipping post with malformed timestamp",
				slog.String("post_id", raw.ID),
				slog.Float64("created_utc", raw.CreatedUTC))
			continue
		}

		polarity := sentiment.Score(*raw.Title)

		normalized = append(normalized, models.CanonicalPost{
			ID:                raw.ID,
			Title:             *raw.Title,
			Author:            raw.Author,
			Score:             raw.Score,
			NumComments:       raw.NumComments,
			CreatedUTC:        createdAt,
			URL:               raw.URL,
			Selftext:          raw.Selftext,
			Subreddit:         raw.Subreddit,
			KeywordSearched:   raw.KeywordSearched,
			TitleSentiment:    polarity,
			SentimentCategory: sentiment.Categorize(polarity),
			ExtractedAt:       extractedAt,
		})
	}

	report.Normalized = len(normalized)
	return normalized, report
}

// epochToTime converts epoch seconds to UTC time. Zero, negative, NaN and
// infinite values are uninterpretable.
func epochToTime(epoch float64) (time.Time, bool) {
	if epoch <= 0 || math.IsNaN(epoch) || math.IsInf(epoch, 0) {
		return time.Time{}, false
	}

	sec, frac := math.Modf(epoch)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC(), true
}
