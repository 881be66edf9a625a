package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"newscrawl/internal/domain/entity"
)

// postgresUniqueViolation is the SQLSTATE code for a unique-constraint
// violation.
const postgresUniqueViolation = "23505"

// PostgresStore is the Store implementation backed by PostgreSQL via the
// pgx stdlib driver, in the same database/sql style as the teacher's
// postgres.ArticleRepo.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps an already-open, already-migrated *sql.DB. Most
// callers should use OpenPostgres instead; this is for callers (and tests)
// that manage the connection pool themselves.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, article *entity.ParsedArticle, filePath string) (InsertResult, error) {
	const query = `
INSERT INTO articles
       (publisher_id, article_id, title, canonical_url, category, file_path, content_hash, crawled_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.db.ExecContext(ctx, query,
		article.ID.PublisherID, article.ID.ArticleID, article.Title, article.CanonicalURL,
		string(article.Category), filePath, article.ContentHash, article.CrawledAt,
	)
	if err == nil {
		return Inserted, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == postgresUniqueViolation {
		return Duplicate, nil
	}
	return Inserted, fmt.Errorf("%w: insert: %w", ErrInfrastructure, err)
}

func (s *PostgresStore) ExistsByIdentifier(ctx context.Context, id entity.Identifier) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM articles WHERE publisher_id = $1 AND article_id = $2)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, id.PublisherID, id.ArticleID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: exists_by_identifier: %w", ErrInfrastructure, err)
	}
	return exists, nil
}

func (s *PostgresStore) ExistsByURL(ctx context.Context, canonicalURL string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM articles WHERE canonical_url = $1)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, canonicalURL).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: exists_by_url: %w", ErrInfrastructure, err)
	}
	return exists, nil
}

func (s *PostgresStore) MarkIndexedDownstream(ctx context.Context, id entity.Identifier) error {
	const query = `UPDATE articles SET indexed_downstream = TRUE WHERE publisher_id = $1 AND article_id = $2`
	if _, err := s.db.ExecContext(ctx, query, id.PublisherID, id.ArticleID); err != nil {
		return fmt.Errorf("%w: mark_indexed_downstream: %w", ErrInfrastructure, err)
	}
	return nil
}

func (s *PostgresStore) CountByCategory(ctx context.Context, category entity.Category) (int64, error) {
	const query = `SELECT COUNT(*) FROM articles WHERE category = $1`
	var count int64
	if err := s.db.QueryRowContext(ctx, query, string(category)).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count_by_category: %w", ErrInfrastructure, err)
	}
	return count, nil
}

func (s *PostgresStore) TotalCount(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(*) FROM articles`
	var count int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: total_count: %w", ErrInfrastructure, err)
	}
	return count, nil
}

func (s *PostgresStore) AllCanonicalURLs(ctx context.Context) ([]string, error) {
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

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
