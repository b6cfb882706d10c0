package matching

import (
	"testing"

	"shelfmatch/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coffeeCatalog() []models.CatalogEntry {
	return []models.CatalogEntry{
		{
			ID: "stumptown", Name: "Stumptown Hair Bender Whole Bean", Brand: "Stumptown", Category: "coffee",
			ProductURL: "https://www.amazon.com/dp/B00STUMP01", Keywords: []string{"espresso", "whole bean"},
			Rating: 4.7, ReviewCount: 6000,
		},
		{
			ID: "kicking-horse", Name: "Kicking Horse Three Sisters", Brand: "Kicking Horse", Category: "Coffee Beans",
			ProductURL: "https://www.amazon.com/dp/B00KICK001", Keywords: []string{"espresso", "single-origin"},
			Rating: 4.5, ReviewCount: 800,
		},
		{
			ID: "out-of-stock", Name: "Death Wish Espresso Roast", Brand: "Death Wish", Category: "coffee",
			ProductURL: "https://www.amazon.com/dp/B00DEATH01", Keywords: []string{"espresso", "whole bean"},
			Rating: 4.9, ReviewCount: 20000, Availability: models.AvailabilityOutOfStock,
		},
		{
			ID: "current-item", Name: "Lavazza Espresso Roast", Brand: "Lavazza", Category: "coffee",
			ProductURL: "https://www.amazon.com/dp/B000SDKDM4", Keywords: []string{"espresso", "whole bean"},
			Rating: 4.9, ReviewCount: 20000,
		},
		{
			ID: "peets", Name: "Peet's Big Bang", Brand: "Peet's", Category: "coffee",
			ProductURL: "https://www.amazon.com/dp/B00PEETS01", Keywords: []string{"espresso", "medium roast"},
			Rating: 4.6, ReviewCount: 1200,
		},
		{
			ID: "candle", Name: "Vanilla Bean Scented Candle", Brand: "Yankee", Category: "candles",
			ProductURL: "https://www.amazon.com/dp/B00CANDLE1", Keywords: []string{"espresso", "whole bean"},
			Rating: 4.8, ReviewCount: 9000,
		},
	}
}

func coffeePage() (*models.PageFacts, models.PageIdentity) {
	return pageFacts("Lavazza Espresso Roast Whole Bean", "Grocery > Coffee"),
		models.NewPageIdentity("https://www.amazon.com/dp/B000SDKDM4?th=1")
}

func TestMatcher_Match(t *testing.T) {
	matcher := NewMatcher(nil, 0, false)
	facts, identity := coffeePage()

	result := matcher.Match(facts, identity, coffeeCatalog())

	assert.Equal(t, []string{"coffee"}, result.Domains)
	require.Len(t, result.Matches, 3)
	assert.Equal(t, "stumptown", result.Matches[0].Entry.ID)
	assert.Equal(t, 102, result.Matches[0].Score)
	assert.Equal(t, "peets", result.Matches[1].Entry.ID)
	assert.Equal(t, 88, result.Matches[1].Score)
	assert.Equal(t, "kicking-horse", result.Matches[2].Entry.ID)
	assert.Equal(t, 44, result.Matches[2].Score)

	for _, m := range result.Scored {
		assert.NotEqual(t, "out-of-stock", m.Entry.ID)
		assert.NotEqual(t, "current-item", m.Entry.ID, "never suggest the item being viewed")
		assert.NotEqual(t, "candle", m.Entry.ID, "candle domain does not overlap coffee")
		assert.Greater(t, m.Score, 0)
	}
}

func TestMatcher_TopN(t *testing.T) {
	matcher := NewMatcher(nil, 1, false)
	facts, identity := coffeePage()

	result := matcher.Match(facts, identity, coffeeCatalog())
	require.Len(t, result.Matches, 1)
	assert.Len(t, result.Scored, 3, "full scored list is kept for diagnostics")
}

func TestMatcher_UnclassifiedPage(t *testing.T) {
	matcher := NewMatcher(nil, 0, false)
	facts := pageFacts("Ergonomic Office Chair", "Office Products")

	result := matcher.Match(facts, models.NewPageIdentity("https://www.amazon.com/dp/B0CHAIR001"), coffeeCatalog())
	assert.Equal(t, []string{}, result.Domains)
	assert.NotNil(t, result.Matches)
	assert.Empty(t, result.Matches)
	assert.Empty(t, result.Scored)
}

func TestMatcher_NoisePage(t *testing.T) {
	matcher := NewMatcher(nil, 0, false)
	facts, identity := coffeePage()
	facts.Noise = true

	result := matcher.Match(facts, identity, coffeeCatalog())
	assert.Empty(t, result.Matches)
	assert.Equal(t, []string{}, result.Domains)
}

func TestMatcher_BreadcrumbOnlyKeywordsDoNotMatch(t *testing.T) {
	matcher := NewMatcher(nil, 0, false)
	facts := pageFacts("Bodum Chambord French Press Coffee Maker", "Grocery > Whole Bean Espresso")

	result := matcher.Match(facts, models.NewPageIdentity("https://www.amazon.com/dp/B00PRESS01"), coffeeCatalog())
	assert.Contains(t, result.Domains, "coffee")
	assert.Empty(t, result.Matches)
	assert.Empty(t, result.Scored)
}

func TestMatcher_Idempotent(t *testing.T) {
	matcher := NewMatcher(nil, 0, false)
	facts, identity := coffeePage()
	catalog := coffeeCatalog()

	first := matcher.Match(facts, identity, catalog)
	second := matcher.Match(facts, identity, catalog)
	assert.Equal(t, first, second)
}

func TestSortCandidates(t *testing.T) {
	entry := func(id string, rating float64, reviews int) *models.CatalogEntry {
		return &models.CatalogEntry{ID: id, Rating: rating, ReviewCount: reviews}
	}

	candidates := []models.ScoredCandidate{
		{Entry: entry("low-score", 5, 9000), Score: 40, KeywordMatchCount: 3},
		{Entry: entry("fewer-matches", 5, 9000), Score: 50, KeywordMatchCount: 1},
		{Entry: entry("lower-rating", 4.1, 9000), Score: 50, KeywordMatchCount: 2},
		{Entry: entry("fewer-reviews", 4.5, 10), Score: 50, KeywordMatchCount: 2},
		{Entry: entry("winner", 4.5, 500), Score: 50, KeywordMatchCount: 2},
	}

	SortCandidates(candidates)

	var ids []string
	for _, c := range candidates {
		ids = append(ids, c.Entry.ID)
	}
	assert.Equal(t, []string{"winner", "fewer-reviews", "lower-rating", "fewer-matches", "low-score"}, ids)
}
