package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItemIDFromURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"dp path", "https://www.amazon.com/Some-Coffee/dp/B07XYZ1234/ref=sr_1_1", "B07XYZ1234"},
		{"dp path end", "https://www.amazon.com/dp/B07XYZ1234", "B07XYZ1234"},
		{"gp product", "https://www.amazon.com/gp/product/B000123456?th=1", "B000123456"},
		{"mobile", "https://www.amazon.com/gp/aw/d/B0ABCDEFGH", "B0ABCDEFGH"},
		{"obidos", "https://www.amazon.com/exec/obidos/ASIN/0123456789/", "0123456789"},
		{"search page", "https://www.amazon.com/s?k=coffee", ""},
		{"lower case id", "https://www.amazon.com/dp/b07xyz1234", ""},
		{"too long", "https://www.amazon.com/dp/B07XYZ12345", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ItemIDFromURL(tt.url))
		})
	}
}

func TestPageIdentitySame(t *testing.T) {
	a := NewPageIdentity("https://www.amazon.com/Coffee/dp/B07XYZ1234?ref=x")
	b := NewPageIdentity("https://www.amazon.com/dp/B07XYZ1234#reviews")
	c := NewPageIdentity("https://www.amazon.com/dp/B011111111")

	assert.True(t, a.Same(b))
	assert.False(t, a.Same(c))

	search1 := NewPageIdentity("https://www.amazon.com/s?k=coffee")
	search2 := NewPageIdentity("https://www.amazon.com/s?k=tea")
	other := NewPageIdentity("https://www.amazon.com/gift-cards")
	assert.True(t, search1.Same(search2), "query is ignored when no item id exists")
	assert.False(t, search1.Same(other))
	assert.False(t, search1.Same(a))
}

func TestNormalizeSearchText(t *testing.T) {
	got := NormalizeSearchText("  Nature’s   BOUNTY\n\tFish  Oil ")
	assert.Equal(t, "nature's bounty fish oil", got)
}

func TestPageFactsWithImage(t *testing.T) {
	facts := PageFacts{Title: "x"}
	withImage := facts.WithImage("https://m.media-amazon.com/images/I/a.jpg")

	assert.Nil(t, facts.ImageURL, "original facts are not mutated")
	if assert.NotNil(t, withImage.ImageURL) {
		assert.Equal(t, "https://m.media-amazon.com/images/I/a.jpg", *withImage.ImageURL)
	}
}
