package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRating(t *testing.T) {
	t.Run("review region", func(t *testing.T) {
		markup := `<div id="averageCustomerReviews"><span class="a-icon-alt">4.6 out of 5 stars</span>` +
			`<span id="acrCustomerReviewText">12,345 ratings</span></div>`

		rating := ExtractRating(nil, markup)
		require.NotNil(t, rating)
		assert.Equal(t, 4.6, *rating)

		count := ExtractReviewCount(nil, markup)
		require.NotNil(t, count)
		assert.Equal(t, 12345, *count)
	})

	t.Run("region wins over recommendation widgets", func(t *testing.T) {
		markup := `<div class="carousel"><span>3.1 out of 5 stars</span><span>88 ratings</span></div>` +
			`<div id="averageCustomerReviews"><span>4.4 out of 5 stars</span><span>2,001 ratings</span></div>`

		rating := ExtractRating(nil, markup)
		require.NotNil(t, rating)
		assert.Equal(t, 4.4, *rating)

		count := ExtractReviewCount(nil, markup)
		require.NotNil(t, count)
		assert.Equal(t, 2001, *count)
	})

	t.Run("page-wide fallback", func(t *testing.T) {
		markup := `<span>4.8 out of 5 stars</span> <span>1,024 global ratings</span>`

		rating := ExtractRating(nil, markup)
		require.NotNil(t, rating)
		assert.Equal(t, 4.8, *rating)

		count := ExtractReviewCount(nil, markup)
		require.NotNil(t, count)
		assert.Equal(t, 1024, *count)
	})

	t.Run("fields are independent", func(t *testing.T) {
		markup := `<span id="acrCustomerReviewText">57 ratings</span>`

		assert.Nil(t, ExtractRating(nil, markup))
		count := ExtractReviewCount(nil, markup)
		require.NotNil(t, count)
		assert.Equal(t, 57, *count)
	})

	t.Run("out of range rating", func(t *testing.T) {
		assert.Nil(t, ExtractRating(nil, `<span>7.5 out of 5 stars</span>`))
	})

	t.Run("captcha page", func(t *testing.T) {
		markup := `<p>Type the characters you see in this image</p><span>4.6 out of 5 stars</span><span>100 ratings</span>`
		assert.Nil(t, ExtractRating(nil, markup))
		assert.Nil(t, ExtractReviewCount(nil, markup))
	})
}
