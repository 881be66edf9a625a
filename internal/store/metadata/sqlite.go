package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"newscrawl/internal/domain/entity"
)

// SQLiteStore is the Store implementation backed by a single SQLite file
// via mattn/go-sqlite3, for single-instance or development deployments
// where a separate Postgres server isn't warranted.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore wraps an already-open, already-migrated *sql.DB. Most
// callers should use OpenSQLite instead; this is for callers (and tests)
// that manage the connection themselves.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const sqliteTimeLayout = time.RFC3339Nano

func (s *SQLiteStore) Insert(ctx context.Context, article *entity.ParsedArticle, filePath string) (InsertResult, error) {
	const query = `
INSERT INTO articles
       (publisher_id, article_id, title, canonical_url, category, file_path, content_hash, crawled_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		article.ID.PublisherID, article.ID.ArticleID, article.Title, article.CanonicalURL,
		string(article.Category), filePath, article.ContentHash, article.CrawledAt.Format(sqliteTimeLayout),
	)
	if err == nil {
		return Inserted, nil
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return Duplicate, nil
	}
	return Inserted, fmt.Errorf("%w: insert: %w", ErrInfrastructure, err)
}

func (s *SQLiteStore) ExistsByIdentifier(ctx context.Context, id entity.Identifier) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM articles WHERE publisher_id = ? AND article_id = ?)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, id.PublisherID, id.ArticleID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: exists_by_identifier: %w", ErrInfrastructure, err)
	}
	return exists, nil
}

func (s *SQLiteStore) ExistsByURL(ctx context.Context, canonicalURL string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM articles WHERE canonical_url = ?)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, canonicalURL).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: exists_by_url: %w", ErrInfrastructure, err)
	}
	return exists, nil
}

func (s *SQLiteStore) MarkIndexedDownstream(ctx context.Context, id entity.Identifier) error {
	const query = `UPDATE articles SET indexed_downstream = 1 WHERE publisher_id = ? AND article_id = ?`
	if _, err := s.db.ExecContext(ctx, query, id.PublisherID, id.ArticleID); err != nil {
		return fmt.Errorf("%w: mark_indexed_downstream: %w", ErrInfrastructure, err)
	}
	return nil
}

func (s *SQLiteStore) CountByCategory(ctx context.Context, category entity.Category) (int64, error) {
	const query = `SELECT COUNT(*) FROM articles WHERE category = ?`
	var count int64
	if err := s.db.QueryRowContext(ctx, query, string(category)).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count_by_category: %w", ErrInfrastructure, err)
	}
	return count, nil
}

func (s *SQLiteStore) TotalCount(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM articles`
	var count int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: total_count: %w", ErrInfrastructure, err)
	}
	return count, nil
}

func (s *SQLiteStore) AllCanonicalURLs(ctx context.Context) ([]string, error) {
	const query = `SELECT canonical_url FROM articles`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: all_canonical_urls: %w", ErrInfrastructure, err)
	}
	defer func() { _ = rows.Close() }()

	urls := make([]string, 0, 1024)
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("%w: all_canonical_urls: scan: %w", ErrInfrastructure, err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
