package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentipulse/sentipulse/internal/models"
)

func post(id string, createdUTC time.Time) models.CanonicalPost {
	return models.CanonicalPost{
		ID:                id,
		Title:             "title " + id,
		CreatedUTC:        createdUTC,
		SentimentCategory: "neutral",
		ExtractedAt:       time.Now().UTC(),
	}
}

func TestAppendEmptyIsNoop(t *testing.T) {
	s := NewMemoryStore(0)

	n, err := s.Append(context.Background(), nil)

	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAppendSkipsExistingIDs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	now := time.Now().UTC()

	n, err := s.Append(ctx, []models.CanonicalPost{post("a", now), post("b", now)})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Re-appending the same batch inserts nothing.
	n, err = s.Append(ctx, []models.CanonicalPost{post("a", now), post("b", now), post("c", now)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ids, err := s.ExistingIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"a": {}, "b": {}, "c": {}}, ids)
}

func TestAppendPartialFailureIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)
	failure := errors.New("disk on fire")
	s.batchErr = func(batchNo int) error {
		if batchNo == 2 {
			return failure
		}
		return nil
	}

	now := time.Now().UTC()
	batch := []models.CanonicalPost{
		post("a1", now), post("a2", now), // batch 1, committed
		post("b1", now), post("b2", now), // batch 2, fails
		post("c1", now), post("c2", now), // batch 3, never attempted
	}

	n, err := s.Append(ctx, batch)

	require.ErrorIs(t, err, failure)
	assert.Equal(t, 2, n)

	ids, idsErr := s.ExistingIDs(ctx)
	require.NoError(t, idsErr)
	assert.Contains(t, ids, "a1")
	assert.Contains(t, ids, "a2")
	assert.NotContains(t, ids, "b1")
	assert.NotContains(t, ids, "c1")
}

func TestAllPostsOrderedAndEmptyTolerant(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	posts, err := s.AllPosts(ctx)
	require.NoError(t, err)
	assert.Empty(t, posts)

	base := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = s.Append(ctx, []models.CanonicalPost{
		post("late", base.Add(48*time.Hour)),
		post("early", base),
		post("mid", base.Add(24*time.Hour)),
	})
	require.NoError(t, err)

	posts, err = s.AllPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "early", posts[0].ID)
	assert.Equal(t, "mid", posts[1].ID)
	assert.Equal(t, "late", posts[2].ID)
}

func TestRunLockSingleWriter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	require.NoError(t, s.AcquireRunLock(ctx))
	assert.ErrorIs(t, s.AcquireRunLock(ctx), ErrRunInProgress)

	s.ReleaseRunLock(ctx)
	assert.NoError(t, s.AcquireRunLock(ctx))
}

func TestSchemaLockKeyStable(t *testing.T) {
	a := Schema{Table: "reddit_posts", Version: 1}
	b := Schema{Table: "reddit_posts", Version: 1}
	c := Schema{Table: "reddit_posts", Version: 2}

	assert.Equal(t, a.LockKey(), b.LockKey())
	assert.NotEqual(t, a.LockKey(), c.LockKey())
}
