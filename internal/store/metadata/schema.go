package metadata

// postgresSchema creates the articles table spec.md §4.4 describes:
// identifier parts, title, canonical URL, category, file path, content
// hash, crawl timestamp, a downstream-indexed flag, a created-at
// timestamp; unique on (publisher_id, article_id) and on canonical_url;
// secondary indexes on category, indexed_downstream, crawled_at.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS articles (
	publisher_id       TEXT        NOT NULL,
	article_id         TEXT        NOT NULL,
	title              TEXT        NOT NULL,
	canonical_url      TEXT        NOT NULL,
	category           TEXT        NOT NULL,
	file_path          TEXT        NOT NULL,
	content_hash       TEXT        NOT NULL,
	crawled_at         TIMESTAMPTZ NOT NULL,
	indexed_downstream BOOLEAN     NOT NULL DEFAULT FALSE,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (publisher_id, article_id),
	UNIQUE (canonical_url)
);
CREATE INDEX IF NOT EXISTS idx_articles_category ON articles (category);
CREATE INDEX IF NOT EXISTS idx_articles_indexed_downstream ON articles (indexed_downstream);
CREATE INDEX IF NOT EXISTS idx_articles_crawled_at ON articles (crawled_at);
`

// sqliteSchema mirrors postgresSchema; SQLite has no native boolean or
// timestamptz type, so those columns are declared as the closest SQLite
// storage classes (INTEGER 0/1, TEXT RFC3339).
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS articles (
	publisher_id       TEXT    NOT NULL,
	article_id         TEXT    NOT NULL,
	title              TEXT    NOT NULL,
	canonical_url      TEXT    NOT NULL,
	category           TEXT    NOT NULL,
	file_path          TEXT    NOT NULL,
	content_hash       TEXT    NOT NULL,
	crawled_at         TEXT    NOT NULL,
	indexed_downstream INTEGER NOT NULL DEFAULT 0,
	created_at         TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
	PRIMARY KEY (publisher_id, article_id),
	UNIQUE (canonical_url)
);
CREATE INDEX IF NOT EXISTS idx_articles_category ON articles (category);
CREATE INDEX IF NOT EXISTS idx_articles_indexed_downstream ON articles (indexed_downstream);
CREATE INDEX IF NOT EXISTS idx_articles_crawled_at ON articles (crawled_at);
`
