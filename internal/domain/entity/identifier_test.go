package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifier_String(t *testing.T) {
	id := Identifier{PublisherID: "42", ArticleID: "1001"}
	assert.Equal(t, "42_1001", id.String())
}

func TestIdentifier_IsZero(t *testing.T) {
	assert.True(t, Identifier{}.IsZero())
	assert.False(t, Identifier{PublisherID: "42"}.IsZero())
	assert.False(t, Identifier{ArticleID: "1"}.IsZero())
}

func TestExtractIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantID  Identifier
		wantErr bool
	}{
		{
			name:   "canonical form",
			url:    "https://portal.example.com/article/42/1001",
			wantID: Identifier{PublisherID: "42", ArticleID: "1001"},
		},
		{
			name:   "trailing slash",
			url:    "https://portal.example.com/article/42/1001/",
			wantID: Identifier{PublisherID: "42", ArticleID: "1001"},
		},
		{
			name:   "with query string",
			url:    "https://portal.example.com/article/42/1001?utm_source=rss",
			wantID: Identifier{PublisherID: "42", ArticleID: "1001"},
		},
		{
			name:    "not an article URL",
			url:     "https://portal.example.com/listing/42",
			wantErr: true,
		},
		{
			name:    "empty URL",
			url:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractIdentifier(tt.url, nil)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrIdentifierUnparsable))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantID, got)
		})
	}
}
