package checkpoint

import (
	"time"

	"newscrawl/internal/domain/entity"
)

// currentVersion is bumped whenever the document shape changes in a way
// that isn't backward-compatible. Load treats any other value as if the
// file were absent (spec.md §4.5: "unknown versions are treated as
// empty").
const currentVersion = 1

type identifierDoc struct {
	PublisherID string `json:"publisher_id"`
	ArticleID   string `json:"article_id"`
}

// document is the on-disk JSON shape of a CheckpointState.
type document struct {
	Version        int             `json:"version"`
	Category       string          `json:"category"`
	Date           string          `json:"date"`
	Completed      []identifierDoc `json:"completed"`
	LastSuccessURL string          `json:"last_success_url"`
	LastPageIndex  int             `json:"last_page_index"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func toDocument(s *entity.CheckpointState) document {
	completed := make([]identifierDoc, 0, len(s.Completed))
	for id := range s.Completed {
		completed = append(completed, identifierDoc{PublisherID: id.PublisherID, ArticleID: id.ArticleID})
	}
	return document{
		Version:        currentVersion,
		Category:       string(s.Category),
		Date:           s.Date,
		Completed:      completed,
		LastSuccessURL: s.LastSuccessURL,
		LastPageIndex:  s.LastPageIndex,
		UpdatedAt:      s.UpdatedAt,
	}
}

func fromDocument(d document) *entity.CheckpointState {
	s := entity.NewCheckpointState(entity.Category(d.Category), d.Date)
	for _, id := range d.Completed {
		s.Completed[entity.Identifier{PublisherID: id.PublisherID, ArticleID: id.ArticleID}] = struct{}{}
	}
	s.LastSuccessURL = d.LastSuccessURL
	s.LastPageIndex = d.LastPageIndex
	s.UpdatedAt = d.UpdatedAt
	return s
}
