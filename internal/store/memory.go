package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sentipulse/sentipulse/internal/models"
)

// MemoryStore is an in-process Store with the same append semantics as the
// Postgres implementation: batched sub-transactions, duplicate ids ignored,
// earlier batches stand when a later one fails.
type MemoryStore struct {
	mu        sync.Mutex
	posts     map[string]models.CanonicalPost
	batchSize int
	locked    bool

	// batchErr injects a per-batch failure, test use only.
	batchErr func(batchNo int) error
}

func NewMemoryStore(batchSize int) *MemoryStore {
	if batchSize <= 0 {
		batchSize = DEFAULT_BATCH_SIZE
	}
	return &MemoryStore{
		posts:     make(map[string]models.CanonicalPost),
		batchSize: batchSize,
	}
}

func (s *MemoryStore) ExistingIDs(ctx context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make(map[string]struct{}, len(s.posts))
	for id := range s.posts {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (s *MemoryStore) Append(ctx context.Context, posts []models.CanonicalPost) (int, error) {
	if len(posts) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for start := 0; start < len(posts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(posts) {
			end = len(posts)
		}
		batchNo := start/s.batchSize + 1

		if s.batchErr != nil {
			if err := s.batchErr(batchNo); err != nil {
				return inserted, fmt.Errorf("[MemoryStore] batch %d failed, earlier batches stand: %w", batchNo, err)
			}
		}

		for _, p := range posts[start:end] {
			if _, exists := s.posts[p.ID]; exists {
				continue
			}
			s.posts[p.ID] = p
			inserted++
		}
	}

	return inserted, nil
}

func (s *MemoryStore) AllPosts(ctx context.Context) ([]models.CanonicalPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts := make([]models.CanonicalPost, 0, len(s.posts))
	for _, p := range s.posts {
		posts = append(posts, p)
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].CreatedUTC.Before(posts[j].CreatedUTC)
	})
	return posts, nil
}

func (s *MemoryStore) AcquireRunLock(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locked {
		return ErrRunInProgress
	}
	s.locked = true
	return nil
}

func (s *MemoryStore) ReleaseRunLock(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = false
}

func (s *MemoryStore) Close() {}
