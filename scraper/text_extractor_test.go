package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const productPageMarkup = `<html><head><title>Amazon.com : Medium Roast Espresso Beans</title>
<meta name="description" content="Meta description text">
<meta property="og:title" content="OG Espresso Title"></head>
<body>
<div id="wayfinding-breadcrumbs_feature_div"><ul>
<li><a href="/grocery">Grocery &amp; Gourmet Food</a></li>
<li><a href="/coffee">  Coffee  </a></li>
<li><a href="/beans">Whole Coffee Beans</a></li>
</ul></div>
<span id="productTitle">
   Lavazza Super Crema Whole Bean Coffee Blend, Medium Espresso Roast
</span>
<div id="feature-bullets"><ul>
<li><span>Notes of hazelnut and brown sugar</span></li>
<li><span>Ideal for espresso machines</span></li>
</ul></div>
<div id="productDescription"><p>Mild and creamy espresso blend.</p></div>
</body></html>`

func TestExtractTextRegions(t *testing.T) {
	regions := ExtractTextRegions(nil, productPageMarkup)

	assert.Equal(t, "Lavazza Super Crema Whole Bean Coffee Blend, Medium Espresso Roast", regions.Title)
	assert.Equal(t, "Grocery & Gourmet Food > Coffee > Whole Coffee Beans", regions.Breadcrumb)
	assert.Equal(t, "Notes of hazelnut and brown sugar Ideal for espresso machines", regions.Features)
	assert.Equal(t, "Mild and creamy espresso blend.", regions.Description)
}

func TestExtractTextRegions_Fallbacks(t *testing.T) {
	t.Run("og title then document title", func(t *testing.T) {
		regions := ExtractTextRegions(nil, `<html><head><title>Doc Title</title><meta property="og:title" content="OG Title"></head></html>`)
		assert.Equal(t, "OG Title", regions.Title)

		regions = ExtractTextRegions(nil, `<html><head><title> Doc   Title </title></head></html>`)
		assert.Equal(t, "Doc Title", regions.Title)
	})

	t.Run("meta description", func(t *testing.T) {
		regions := ExtractTextRegions(nil, `<html><head><meta name="description" content="Fresh whole bean coffee"></head></html>`)
		assert.Equal(t, "Fresh whole bean coffee", regions.Description)
	})

	t.Run("alternate breadcrumb markup", func(t *testing.T) {
		regions := ExtractTextRegions(nil, `<div class="a-breadcrumb"><a>Beauty</a><a>Skin Care</a><a>Skin Care</a></div>`)
		assert.Equal(t, "Beauty > Skin Care", regions.Breadcrumb)
	})

	t.Run("captcha page", func(t *testing.T) {
		regions := ExtractTextRegions(nil, `<title>Robot Check</title><span id="productTitle">Coffee</span>`)
		assert.Equal(t, TextRegions{}, regions)
	})

	t.Run("empty markup", func(t *testing.T) {
		assert.Equal(t, TextRegions{}, ExtractTextRegions(nil, ""))
	})
}
