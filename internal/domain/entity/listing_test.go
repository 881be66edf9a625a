package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestListingEntry_Validate(t *testing.T) {
	valid := ListingEntry{
		URL:          "https://portal.example.com/article/42/1001",
		Category:     CategoryWorld,
		DiscoveredAt: time.Now(),
	}
	assert.NoError(t, valid.Validate())

	missingURL := valid
	missingURL.URL = ""
	assert.Error(t, missingURL.Validate())

	badCategory := valid
	badCategory.Category = Category("bogus")
	assert.Error(t, badCategory.Validate())
}
