package models

import "time"

// RawPost is one post as it comes back from the Reddit API. Nothing about its
// shape is guaranteed except the id: every other field may be missing or null
// in the listing payload, which is why Title is a pointer.
type RawPost struct {
	ID              string  `json:"id"`
	Title           *string `json:"title"`
	Author          string  `json:"author"`
	Score           int     `json:"score"`
	NumComments     int     `json:"num_comments"`
	CreatedUTC      float64 `json:"created_utc"`
	URL             string  `json:"url"`
	Selftext        string  `json:"selftext"`
	Subreddit       string  `json:"subreddit"`
	KeywordSearched string  `json:"keyword_searched"`
}

// CanonicalPost is the normalized, schema-conformant row persisted to the
// store. Created once during a run's normalize phase and immutable after.
type CanonicalPost struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Author            string    `json:"author"`
	Score             int       `json:"score"`
	NumComments       int       `json:"num_comments"`
	CreatedUTC        time.Time `json:"created_utc"`
	URL               string    `json:"url"`
	Selftext          string    `json:"selftext"`
	Subreddit         string    `json:"subreddit"`
	KeywordSearched   string    `json:"keyword_searched"`
	TitleSentiment    float64   `json:"title_sentiment"`
	SentimentCategory string    `json:"sentiment_category"`
	ExtractedAt       time.Time `json:"extracted_at"`
}

type RedditAPIResponse struct {
	Data RedditAPIData `json:"data"`
}

type RedditAPIData struct {
	After    string           `json:"after"`
	Children []RedditAPIChild `json:"children"`
}

type RedditAPIChild struct {
	Data RawPost `json:"data"`
}
