// Package article implements the durable filesystem article store
// (spec.md §4.4): one file per article, written via a temp-file +
// fsync + rename protocol so a reader never observes a partial write.
package article

import (
	"fmt"
	"os"
	"path/filepath"

	"newscrawl/internal/domain/entity"
)

// FileStore writes ParsedArticles under a base directory.
type FileStore struct {
	baseDir string
}

// New builds a FileStore rooted at baseDir. The directory is created on
// first Write if it doesn't exist.
func New(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

// Write encodes a and writes it to baseDir/Filename(a) via a sibling temp
// file, fsync, then rename (spec.md §4.4's write protocol). It returns the
// final path. If the destination already exists, it is overwritten
// deterministically by the rename — per spec.md §4.4, a file left in place
// by an earlier crashed run is harmless to replace with identical content.
func (s *FileStore) Write(a *entity.ParsedArticle) (string, error) {
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return "", fmt.Errorf("article: create base dir: %w", err)
	}

	data, err := Encode(a)
	if err != nil {
		return "", err
	}

	finalPath := filepath.Join(s.baseDir, Filename(a))
	tmp, err := os.CreateTemp(s.baseDir, ".tmp-article-*")
	if err != nil {
		return "", fmt.Errorf("article: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("article: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("article: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("article: close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("article: rename into place: %w", err)
	}

	return finalPath, nil
}

// Exists reports whether an article file already exists at the path
// Filename(a) resolves to, without reading its contents. The pipeline's
// store stage does not call it: a retried store always rewrites the file.
func (s *FileStore) Exists(a *entity.ParsedArticle) bool {
	_, err := os.Stat(filepath.Join(s.baseDir, Filename(a)))
	return err == nil
}

// Read loads and decodes the article file at path.
func (s *FileStore) Read(path string) (*entity.ParsedArticle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("article: read file: %w", err)
	}
	return Decode(data)
}
