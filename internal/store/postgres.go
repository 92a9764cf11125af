package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sentipulse/sentipulse/internal/models"
)

// PostgresStore is the durable Store backed by a pgx pool. Construction is
// fatal when the database is unreachable; the table migration is idempotent.
type PostgresStore struct {
	pool      *pgxpool.Pool
	schema    Schema
	batchSize int

	// lockConn pins the advisory lock to one session for the lock's lifetime.
	lockConn *pgxpool.Conn
}

func NewPostgresStore(ctx context.Context, dsn string, schema Schema, batchSize int) (*PostgresStore, error) {
	if batchSize <= 0 {
		batchSize = DEFAULT_BATCH_SIZE
	}

	connCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(connCtx, dsn)
	if err != nil {
		return nil, fmt.Errorf("[PostgresStore] failed to create pool: %w", err)
	}

	if err := pool.Ping(connCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("[PostgresStore] failed to ping PostgreSQL: %w", err)
	}

	if _, err := pool.Exec(connCtx, schema.DDL()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("[PostgresStore] failed to migrate table %q: %w", schema.Table, err)
	}

	slog.Info("[PostgresStore] Connected and table ready",
		slog.String("table", schema.Table),
		slog.Int("schema_version", schema.Version))

	return &PostgresStore{pool: pool, schema: schema, batchSize: batchSize}, nil
}

func (s *PostgresStore) ExistingIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf("SELECT id FROM %s", s.schema.Table))
	if err != nil {
		return nil, fmt.Errorf("[PostgresStore] failed to read existing ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("[PostgresStore] failed to scan id: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("[PostgresStore] id scan interrupted: %w", err)
	}

	return ids, nil
}

// Append writes posts in batches, one transaction per batch. A failed batch
// rolls back alone; batches committed before it stand. ON CONFLICT DO NOTHING
// backstops callers that did not deduplicate.
func (s *PostgresStore) Append(ctx context.Context, posts []models.CanonicalPost) (int, error) {
	if len(posts) == 0 {
		return 0, nil
	}

	insertSQL := fmt.Sprintf(`INSERT INTO %s
		(id, title, author, score, num_comments, created_utc, url, selftext,
		 subreddit, keyword_searched, title_sentiment, sentiment_category, extracted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING`, s.schema.Table)

	inserted := 0
	for start := 0; start < len(posts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(posts) {
			end = len(posts)
		}

		batchInserted, err := s.appendBatch(ctx, insertSQL, posts[start:end])
		if err != nil {
			return inserted, fmt.Errorf("[PostgresStore] batch %d failed, earlier batches stand: %w",
				start/s.batchSize+1, err)
		}
		inserted += batchInserted

		slog.Info("[PostgresStore] Inserted batch",
			slog.Int("batch", start/s.batchSize+1),
			slog.Int("rows", batchInserted))
	}

	return inserted, nil
}

func (s *PostgresStore) appendBatch(ctx context.Context, insertSQL string, batch []models.CanonicalPost) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	pending := &pgx.Batch{}
	for _, p := range batch {
		pending.Queue(insertSQL,
			p.ID, p.Title, p.Author, p.Score, p.NumComments, p.CreatedUTC,
			p.URL, p.Selftext, p.Subreddit, p.KeywordSearched,
			p.TitleSentiment, p.SentimentCategory, p.ExtractedAt)
	}

	results := tx.SendBatch(ctx, pending)
	inserted := 0
	for range batch {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return 0, fmt.Errorf("insert: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	return inserted, nil
}

func (s *PostgresStore) AllPosts(ctx context.Context) ([]models.CanonicalPost, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`SELECT
		id, title, author, score, num_comments, created_utc, url, selftext,
		subreddit, keyword_searched, title_sentiment, sentiment_category, extracted_at
		FROM %s ORDER BY created_utc ASC`, s.schema.Table))
	if err != nil {
		return nil, fmt.Errorf("[PostgresStore] failed to read posts: %w", err)
	}
	defer rows.Close()

	var posts []models.CanonicalPost
	for rows.Next() {
		var p models.CanonicalPost
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Author, &p.Score, &p.NumComments, &p.CreatedUTC,
			&p.URL, &p.Selftext, &p.Subreddit, &p.KeywordSearched,
			&p.TitleSentiment, &p.SentimentCategory, &p.ExtractedAt); err != nil {
			return nil, fmt.Errorf("[PostgresStore] failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("[PostgresStore] post scan interrupted: %w", err)
	}

	return posts, nil
}

// AcquireRunLock claims the advisory lock on a dedicated connection. Advisory
// locks are session-scoped, so the connection is held until release.
func (s *PostgresStore) AcquireRunLock(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("[PostgresStore] failed to acquire lock connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", s.schema.LockKey()).Scan(&acquired); err != nil {
		conn.Release()
		return fmt.Errorf("[PostgresStore] failed to acquire run lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return ErrRunInProgress
	}

	s.lockConn = conn
	return nil
}

func (s *PostgresStore) ReleaseRunLock(ctx context.Context) {
	if s.lockConn == nil {
		return
	}

	if _, err := s.lockConn.Exec(ctx, "SELECT pg_advisory_unlock($1)", s.schema.LockKey()); err != nil {
		slog.Warn("[PostgresStore] Failed to release run lock",
			slog.String("error", err.Error()))
	}
	s.lockConn.Release()
	s.lockConn = nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
