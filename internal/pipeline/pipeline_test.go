package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentipulse/sentipulse/internal/models"
	"github.com/sentipulse/sentipulse/internal/store"
)

type fakeExtractor struct {
	posts []models.RawPost
	err   error
	calls int
}

func (f *fakeExtractor) FetchPosts(ctx context.Context, subreddit string, limit int, keyword string) ([]models.RawPost, error) {
	f.calls++
	return f.posts, f.err
}

type fakeCache struct {
	seen map[string]bool
}

func (f *fakeCache) IsSeen(ctx context.Context, postID string) bool {
	return f.seen[postID]
}

func (f *fakeCache) MarkSeen(ctx context.Context, postIDs []string) error {
	for _, id := range postIDs {
		f.seen[id] = true
	}
	return nil
}

func strPtr(s string) *string { return &s }

func sampleBatch() []models.RawPost {
	return []models.RawPost{
		{ID: "a", Title: strPtr("I love this!"), CreatedUTC: 1609459200},
		{ID: "b", Title: strPtr("I hate this."), CreatedUTC: 1609545600},
	}
}

func testConfig() Config {
	return Config{Subreddit: "python", Keyword: "data engineering", Limit: 50}
}

func TestRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore(0)
	p := New(&fakeExtractor{posts: sampleBatch()}, st, nil, testConfig())

	result, err := p.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 2, result.Normalized)
	assert.Equal(t, 2, result.Inserted)

	ids, err := st.ExistingIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"a": {}, "b": {}}, ids)

	posts, err := st.AllPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "positive", posts[0].SentimentCategory)
	assert.Equal(t, "negative", posts[1].SentimentCategory)
}

func TestRunIdempotent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore(0)
	p := New(&fakeExtractor{posts: sampleBatch()}, st, nil, testConfig())

	first, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Inserted)

	second, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateDone, second.State)
	assert.Equal(t, 2, second.Fetched)
	assert.Equal(t, 0, second.New)
	assert.Equal(t, 0, second.Inserted)
}

func TestRunEmptyFetchIsSuccess(t *testing.T) {
	st := store.NewMemoryStore(0)
	p := New(&fakeExtractor{posts: nil}, st, nil, testConfig())

	result, err := p.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	assert.Zero(t, result.Inserted)
}

func TestRunExtractionFailure(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore(0)
	p := New(&fakeExtractor{err: errors.New("api unreachable")}, st, nil, testConfig())

	result, err := p.Run(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtraction)
	assert.Equal(t, StateFailed, result.State)

	ids, idsErr := st.ExistingIDs(ctx)
	require.NoError(t, idsErr)
	assert.Empty(t, ids)

	// A failed run releases the lock so the next scheduled run can retry.
	_, err = New(&fakeExtractor{posts: sampleBatch()}, st, nil, testConfig()).Run(ctx)
	assert.NoError(t, err)
}

func TestStorageInitSentinelMatchable(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := fmt.Errorf("%w: %v", ErrStorageInit, cause)

	assert.ErrorIs(t, wrapped, ErrStorageInit)
	assert.Contains(t, wrapped.Error(), "connection refused")
}

type stalledExtractor struct{}

func (stalledExtractor) FetchPosts(ctx context.Context, subreddit string, limit int, keyword string) ([]models.RawPost, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRunTimeoutFailsAndReleasesLock(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore(0)
	cfg := testConfig()
	cfg.Timeout = 20 * time.Millisecond

	result, err := New(stalledExtractor{}, st, nil, cfg).Run(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtraction)
	assert.Equal(t, StateFailed, result.State)

	ids, idsErr := st.ExistingIDs(ctx)
	require.NoError(t, idsErr)
	assert.Empty(t, ids)

	// The timed-out run released the lock, so the next run proceeds.
	assert.NoError(t, st.AcquireRunLock(ctx))
	st.ReleaseRunLock(ctx)
}

func TestRunRejectedWhileLockHeld(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore(0)
	require.NoError(t, st.AcquireRunLock(ctx))
	defer st.ReleaseRunLock(ctx)

	extractor := &fakeExtractor{posts: sampleBatch()}
	result, err := New(extractor, st, nil, testConfig()).Run(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrRunInProgress)
	assert.Equal(t, StateFailed, result.State)
	assert.Zero(t, extractor.calls)
}

func TestRunSeenCacheSkipsBeforeNormalize(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore(0)
	cache := &fakeCache{seen: map[string]bool{}}
	p := New(&fakeExtractor{posts: sampleBatch()}, st, cache, testConfig())

	first, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, first.CacheSkipped)
	assert.True(t, cache.seen["a"])
	assert.True(t, cache.seen["b"])

	second, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, second.CacheSkipped)
	assert.Equal(t, 0, second.Normalized)
	assert.Equal(t, 0, second.Inserted)
}

func TestRunDropsUnrepresentableRecords(t *testing.T) {
	raw := []models.RawPost{
		{ID: "ok", Title: strPtr("fine"), CreatedUTC: 1609459200},
		{ID: "no-title", Title: nil, CreatedUTC: 1609459200},
		{ID: "bad-time", Title: strPtr("broken clock"), CreatedUTC: 0},
	}
	st := store.NewMemoryStore(0)
	p := New(&fakeExtractor{posts: raw}, st, nil, testConfig())

	result, err := p.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, result.Fetched)
	assert.Equal(t, 1, result.DroppedNoTitle)
	assert.Equal(t, 1, result.Malformed)
	assert.Equal(t, 1, result.Inserted)
}
