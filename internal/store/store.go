package store

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/sentipulse/sentipulse/internal/models"
)

// ErrRunInProgress means another writer holds the run lock. The store supports
// exactly one writer at a time; callers fail fast instead of racing the
// read-then-append window.
var ErrRunInProgress = errors.New("[Store] another pipeline run holds the run lock")

const DEFAULT_BATCH_SIZE = 50

// Schema is the versioned table definition shared by the pipeline writer and
// the dashboard reader. Both sides receive the same value at construction;
// there is no package-level table registry to drift out of sync.
type Schema struct {
	Table   string
	Version int
}

func DefaultSchema() Schema {
	return Schema{Table: "reddit_posts", Version: 1}
}

func (s Schema) DDL() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id                 TEXT PRIMARY KEY,
		title              TEXT NOT NULL,
		author             TEXT NOT NULL DEFAULT '',
		score              INTEGER NOT NULL DEFAULT 0,
		num_comments       INTEGER NOT NULL DEFAULT 0,
		created_utc        TIMESTAMPTZ NOT NULL,
		url                TEXT NOT NULL DEFAULT '',
		selftext           TEXT NOT NULL DEFAULT '',
		subreddit          TEXT NOT NULL DEFAULT '',
		keyword_searched   TEXT NOT NULL DEFAULT '',
		title_sentiment    DOUBLE PRECISION NOT NULL,
		sentiment_category TEXT NOT NULL,
		extracted_at       TIMESTAMPTZ NOT NULL
	)`, s.Table)
}

// LockKey derives the advisory-lock key for this schema from its table name
// and version, so writers against different tables never contend.
func (s Schema) LockKey() int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s:%d", s.Table, s.Version)
	return int64(h.Sum64())
}

// Store is a durable keyed table of canonical posts. Appends are broken into
// sub-transactions; each sub-transaction is all-or-nothing, while batches
// committed earlier in the same call stand even if a later one fails.
type Store interface {
	// ExistingIDs returns a snapshot of every stored post id.
	ExistingIDs(ctx context.Context) (map[string]struct{}, error)

	// Append inserts posts whose id is not already present and returns the
	// number actually inserted. Empty input is a no-op returning 0.
	Append(ctx context.Context, posts []models.CanonicalPost) (int, error)

	// AllPosts returns the full table ordered by created_utc ascending.
	AllPosts(ctx context.Context) ([]models.CanonicalPost, error)

	// AcquireRunLock claims the single-writer lock, returning
	// ErrRunInProgress when another run holds it.
	AcquireRunLock(ctx context.Context) error
	ReleaseRunLock(ctx context.Context)

	Close()
}
