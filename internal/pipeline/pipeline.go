package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sentipulse/sentipulse/internal/models"
	"github.com/sentipulse/sentipulse/internal/store"
	"github.com/sentipulse/sentipulse/internal/transform"
)

// State names one phase of a run. A run walks Idle through Done in order;
// Failed is terminal and reachable from any phase after Idle.
type State string

const (
	StateIdle          State = "idle"
	StateExtracting    State = "extracting"
	StateNormalizing   State = "normalizing"
	StateDeduplicating State = "deduplicating"
	StatePersisting    State = "persisting"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// Extractor pulls raw posts from the upstream platform.
type Extractor interface {
	FetchPosts(ctx context.Context, subreddit string, limit int, keyword string) ([]models.RawPost, error)
}

// SeenCache is an optional fast-path filter over recently ingested post ids.
// Cache misses and cache failures both fall through to the store's own
// duplicate check, so the cache never affects correctness.
type SeenCache interface {
	IsSeen(ctx context.Context, postID string) bool
	MarkSeen(ctx context.Context, postIDs []string) error
}

type Config struct {
	Subreddit string
	Keyword   string
	Limit     int

	// Timeout bounds one whole run. A run that hits it fails and releases
	// the run lock so the next scheduled invocation can retry. Zero means
	// no bound.
	Timeout time.Duration
}

// RunResult reports what one run did. Inserted of zero on a Done run means
// no new data, which is a success.
type RunResult struct {
	RunID          string
	State          State
	Fetched        int
	CacheSkipped   int
	Normalized     int
	DroppedNoTitle int
	Malformed      int
	DuplicateInRun int
	New            int
	Inserted       int
}

// Pipeline sequences Extract, Normalize, Deduplicate and Persist for one run
// against a single store. Runs are sequential; the store's run lock rejects a
// second concurrent writer.
type Pipeline struct {
	extractor Extractor
	store     store.Store
	cache     SeenCache
	cfg       Config
}

// New builds a pipeline. cache may be nil.
func New(extractor Extractor, st store.Store, cache SeenCache, cfg Config) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		store:     st,
		cache:     cache,
		cfg:       cfg,
	}
}

// Run executes one full pipeline cycle. A failed run leaves committed batches
// in place and is retried from scratch on the next invocation; the store's
// duplicate-id check makes that retry safe.
func (p *Pipeline) Run(ctx context.Context) (RunResult, error) {
	result := RunResult{RunID: uuid.NewString(), State: StateIdle}
	start := time.Now()

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	slog.Info("[Pipeline] Starting run",
		slog.String("run_id", result.RunID),
		slog.String("subreddit", p.cfg.Subreddit),
		slog.String("keyword", p.cfg.Keyword))

	if err := p.store.AcquireRunLock(ctx); err != nil {
		result.State = StateFailed
		return result, fmt.Errorf("[Pipeline] run %s rejected: %w", result.RunID, err)
	}
	defer p.store.ReleaseRunLock(ctx)

	result.State = StateExtracting
	rawPosts, err := p.extractor.FetchPosts(ctx, p.cfg.Subreddit, p.cfg.Limit, p.cfg.Keyword)
	if err != nil {
		return p.fail(&result, fmt.Errorf("[Pipeline] run %s: %w: %v", result.RunID, ErrExtraction, err))
	}
	result.Fetched = len(rawPosts)

	rawPosts = p.skipSeen(ctx, rawPosts, &result)

	result.State = StateNormalizing
	extractedAt := time.Now().UTC()
	normalized, report := transform.Normalize(rawPosts, extractedAt)
	result.Normalized = report.Normalized
	result.DroppedNoTitle = report.DroppedNoTitle
	result.Malformed = report.Malformed
	result.DuplicateInRun = report.DuplicateInRun

	result.State = StateDeduplicating
	existingIDs, err := p.store.ExistingIDs(ctx)
	if err != nil {
		return p.fail(&result, fmt.Errorf("[Pipeline] run %s: %w: %v", result.RunID, ErrPersistence, err))
	}
	fresh := transform.FilterNew(normalized, existingIDs)
	result.New = len(fresh)

	result.State = StatePersisting
	inserted, err := p.store.Append(ctx, fresh)
	result.Inserted = inserted
	if err != nil {
		return p.fail(&result, fmt.Errorf("[Pipeline] run %s: %w: %v", result.RunID, ErrPersistence, err))
	}

	p.markSeen(ctx, normalized)

	result.State = StateDone
	slog.Info("[Pipeline] Run complete",
		slog.String("run_id", result.RunID),
		slog.Int("fetched", result.Fetched),
		slog.Int("normalized", result.Normalized),
		slog.Int("malformed", result.Malformed),
		slog.Int("dropped_no_title", result.DroppedNoTitle),
		slog.Int("inserted", result.Inserted),
		slog.Duration("duration", time.Since(start)))

	return result, nil
}

func (p *Pipeline) fail(result *RunResult, err error) (RunResult, error) {
	result.State = StateFailed
	slog.Error("[Pipeline] Run failed",
		slog.String("run_id", result.RunID),
		slog.String("error", err.Error()))
	return *result, err
}

// skipSeen drops posts the cache remembers from a recent run before they are
// scored, saving normalization work on re-fetched content.
func (p *Pipeline) skipSeen(ctx context.Context, rawPosts []models.RawPost, result *RunResult) []models.RawPost {
	if p.cache == nil {
		return rawPosts
	}

	kept := make([]models.RawPost, 0, len(rawPosts))
	for _, raw := range rawPosts {
		if p.cache.IsSeen(ctx, raw.ID) {
			result.CacheSkipped++
			continue
		}
		kept = append(kept, raw)
	}

	if result.CacheSkipped > 0 {
		slog.Debug("[Pipeline] Skipped cached posts",
			slog.String("run_id", result.RunID),
			slog.Int("count", result.CacheSkipped))
	}

	return kept
}

func (p *Pipeline) markSeen(ctx context.Context, posts []models.CanonicalPost) {
	if p.cache == nil || len(posts) == 0 {
		return
	}

	ids := make([]string, 0, len(posts))
	for _, post := range posts {
		ids = append(ids, post.ID)
	}

	if err := p.cache.MarkSeen(ctx, ids); err != nil {
		slog.Warn("[Pipeline] Failed to mark posts as seen",
			slog.String("error", err.Error()))
	}
}
