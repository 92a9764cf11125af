package dashboard

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sentipulse/sentipulse/internal/models"
)

// Reader is the read-only slice of the store the dashboard needs.
type Reader interface {
	AllPosts(ctx context.Context) ([]models.CanonicalPost, error)
}

type Handler struct {
	store Reader
}

func NewHandler(store Reader) *Handler {
	return &Handler{store: store}
}

type summaryResponse struct {
	TotalPosts       int                `json:"total_posts"`
	AverageSentiment float64            `json:"average_sentiment"`
	Categories       map[string]int     `json:"categories"`
	CategoryPercents map[string]float64 `json:"category_percents"`
}

type timelinePoint struct {
	CreatedUTC     string  `json:"created_utc"`
	TitleSentiment float64 `json:"title_sentiment"`
}

// GetSummary derives aggregate counts and percentages from a full-table read.
// An empty table yields zeroes, not an error.
func (h *Handler) GetSummary(c *gin.Context) {
	posts, ok := h.loadPosts(c)
	if !ok {
		return
	}

	summary := summaryResponse{
		Categories:       map[string]int{"positive": 0, "negative": 0, "neutral": 0},
		CategoryPercents: map[string]float64{},
	}

	var sentimentSum float64
	for _, p := range posts {
		summary.Categories[p.SentimentCategory]++
		sentimentSum += p.TitleSentiment
	}

	summary.TotalPosts = len(posts)
	if len(posts) > 0 {
		summary.AverageSentiment = sentimentSum / float64(len(posts))
		for category, count := range summary.Categories {
			summary.CategoryPercents[category] = float64(count) / float64(len(posts)) * 100
		}
	}

	c.JSON(http.StatusOK, summary)
}

// GetPosts returns the most recent posts, newest first.
func (h *Handler) GetPosts(c *gin.Context) {
	posts, ok := h.loadPosts(c)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		limit = 10
	}

	sort.Slice(posts, func(i, j int) bool {
		return posts[i].CreatedUTC.After(posts[j].CreatedUTC)
	})
	if len(posts) > limit {
		posts = posts[:limit]
	}

	c.JSON(http.StatusOK, gin.H{"posts": posts, "count": len(posts)})
}

// GetTimeline returns the sentiment-over-time series ordered by created_utc.
func (h *Handler) GetTimeline(c *gin.Context) {
	posts, ok := h.loadPosts(c)
	if !ok {
		return
	}

	points := make([]timelinePoint, 0, len(posts))
	for _, p := range posts {
		points = append(points, timelinePoint{
			CreatedUTC:     p.CreatedUTC.Format(time.RFC3339),
			TitleSentiment: p.TitleSentiment,
		})
	}

	c.JSON(http.StatusOK, gin.H{"points": points})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// loadPosts reads the full table and applies the optional subreddit/keyword
// query filters. Returns false after writing an error response.
func (h *Handler) loadPosts(c *gin.Context) ([]models.CanonicalPost, bool) {
	posts, err := h.store.AllPosts(c.Request.Context())
	if err != nil {
		slog.Error("[Dashboard] Failed to read posts",
			slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read posts"})
		return nil, false
	}

	subreddit := c.Query("subreddit")
	keyword := c.Query("keyword")
	if subreddit == "" && keyword == "" {
		return posts, true
	}

	filtered := make([]models.CanonicalPost, 0, len(posts))
	for _, p := range posts {
		if subreddit != "" && p.Subreddit != subreddit {
			continue
		}
		if keyword != "" && p.KeywordSearched != keyword {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered, true
}
