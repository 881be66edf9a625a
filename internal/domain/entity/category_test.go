package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategory_IsValid(t *testing.T) {
	tests := []struct {
		name string
		cat  Category
		want bool
	}{
		{name: "general is valid", cat: CategoryGeneral, want: true},
		{name: "sports is valid", cat: CategorySports, want: true},
		{name: "unknown is invalid", cat: Category("nonexistent"), want: false},
		{name: "empty is invalid", cat: Category(""), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cat.IsValid())
		})
	}
}

func TestCategory_String(t *testing.T) {
	assert.Equal(t, "economy", CategoryEconomy.String())
}
