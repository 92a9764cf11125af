package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/sentipulse/sentipulse/internal/models"
)

const (
	REDDIT_AUTH_URL = "https://www.reddit.com/api/v1/access_token"
	REDDIT_API_URL  = "https://oauth.reddit.com"
)

var (
	redditClientInstance *RedditClient
	redditClientOnce     sync.Once
)

type RedditClient struct {
	Config *clientcredentials.Config
	Client *http.Client
	mu     *sync.Mutex
}

func GetRedditClient() *RedditClient {
	redditClientOnce.Do(func() {
		oauthConf := &clientcredentials.Config{
			ClientID:     os.Getenv("REDDIT_CLIENT_ID"),
			ClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
			TokenURL:     REDDIT_AUTH_URL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}

		client := oauthConf.Client(context.Background())
		client.Timeout = REQUEST_TIMEOUT

		redditClientInstance = &RedditClient{
			Config: oauthConf,
			Client: client,
			mu:     &sync.Mutex{},
		}
	})

	return redditClientInstance
}

func (rc *RedditClient) RefreshClient() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.Client = rc.Config.Client(context.Background())
	rc.Client.Timeout = REQUEST_TIMEOUT
}

// FetchPosts searches a subreddit for recent posts matching keyword. An empty
// keyword falls back to the subreddit's newest posts. Token expiry and rate
// limits are handled here; errors that escape are fatal for the caller's run.
func (rc *RedditClient) FetchPosts(ctx context.Context, subreddit string, limit int, keyword string) ([]models.RawPost, error) {
	body, err := rc.fetchListing(ctx, subreddit, limit, keyword)
	if err != nil {
		return nil, err
	}

	var listing models.RedditAPIResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("[RedditClient] Failed to decode listing: %w", err)
	}

	posts := make([]models.RawPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		raw := child.Data
		raw.KeywordSearched = keyword
		posts = append(posts, raw)
	}

	slog.Info("[RedditClient] Fetched posts",
		slog.String("subreddit", subreddit),
		slog.String("keyword", keyword),
		slog.Int("count", len(posts)))

	return posts, nil
}

func (rc *RedditClient) fetchListing(ctx context.Context, subreddit string, limit int, keyword string) ([]byte, error) {
	var parsedUrl *url.URL
	var err error

	if keyword != "" {
		parsedUrl, err = url.Parse(fmt.Sprintf("%s/r/%s/search", REDDIT_API_URL, subreddit))
	} else {
		parsedUrl, err = url.Parse(fmt.Sprintf("%s/r/%s/new", REDDIT_API_URL, subreddit))
	}
	if err != nil {
		return nil, fmt.Errorf("[RedditClient] Failed to parse URL: %w", err)
	}

	queryParams := parsedUrl.Query()
	if keyword != "" {
		queryParams.Add("q", keyword)
		queryParams.Add("sort", "new")
		queryParams.Add("restrict_sr", "true")
	}
	queryParams.Add("limit", strconv.Itoa(limit))
	parsedUrl.RawQuery = queryParams.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsedUrl.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", USER_AGENT)

	resp, err := rc.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		slog.Warn("[RedditClient] Token expired - Refreshing and Retrying...")
		rc.RefreshClient()
		return rc.fetchListing(ctx, subreddit, limit, keyword)
	case http.StatusTooManyRequests:
		slog.Warn("[RedditClient] 429 Too Many Requests - Retrying with backoff")
		return rc.retryWithBackoff(ctx, subreddit, limit, keyword)
	case http.StatusOK:
		return io.ReadAll(resp.Body)
	}

	return nil, fmt.Errorf("[RedditClient] Unexpected status %d from Reddit API", resp.StatusCode)
}

func (rc *RedditClient) retryWithBackoff(ctx context.Context, subreddit string, limit int, keyword string) ([]byte, error) {
	backoff := INITIAL_BACKOFF
	for i := 1; i < MAX_RETRIES; i++ {
		slog.Warn("[RedditClient] Retrying request",
			slog.Int("attempt", i), slog.Duration("backoff", backoff))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > MAX_BACKOFF {
			backoff = MAX_BACKOFF
		}

		data, err := rc.fetchListing(ctx, subreddit, limit, keyword)
		if err == nil {
			return data, nil
		}
	}
	return nil, fmt.Errorf("[RedditClient] Max retries reached request failed")
}
