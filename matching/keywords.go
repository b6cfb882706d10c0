package matching

import (
	"regexp"
	"strings"

	"shelfmatch/models"
)

const minFallbackKeywordLength = 4

// Common words to exclude from fallback keywords
var stopwords = map[string]bool{
	"with": true, "from": true, "that": true, "this": true, "your": true, "pack": true,
	"count": true, "size": true, "ounce": true, "ounces": true, "each": true, "free": true,
	"natural": true, "original": true, "premium": true, "organic": true, "best": true,
	"made": true, "plus": true, "value": true, "variety": true, "flavor": true, "flavored": true,
	"new": true, "for": true, "and": true, "the": true, "pounds": true, "servings": true,
}

// Category-name words too common to be discriminating on their own
var genericWords = map[string]bool{
	"coffee": true, "tea": true, "candle": true, "candles": true, "supplement": true,
	"supplements": true, "vitamin": true, "vitamins": true, "toothpaste": true, "shampoo": true,
	"soap": true, "cleaner": true, "snack": true, "snacks": true, "pet": true, "skincare": true,
}

var tokenSplitPattern = regexp.MustCompile(`[^a-z0-9'-]+`)

// IsGeneric returns true for a keyword that can't count as real evidence alone
func IsGeneric(keyword string) bool {
	return genericWords[models.NormalizeSearchText(keyword)]
}

// EntryKeywords returns the explicit keyword hints of the entry, or keywords derived from
// its name and brand when it has none
func EntryKeywords(entry *models.CatalogEntry) []string {
	var explicit []string
	seen := make(map[string]bool)
	for _, keyword := range entry.Keywords {
		keyword = models.NormalizeSearchText(keyword)
		if keyword == "" || seen[keyword] {
			continue
		}
		seen[keyword] = true
		explicit = append(explicit, keyword)
	}
	if len(explicit) > 0 {
		return explicit
	}
	return FallbackKeywords(entry.Name, entry.Brand)
}

// FallbackKeywords tokenizes name and brand, dropping stopwords and short tokens
func FallbackKeywords(name, brand string) []string {
	text := models.NormalizeSearchText(name + " " + brand)

	var keywords []string
	seen := make(map[string]bool)
	for _, token := range tokenSplitPattern.Split(text, -1) {
		token = strings.Trim(token, "'-")
		if len(token) < minFallbackKeywordLength || stopwords[token] || seen[token] {
			continue
		}
		if isNumber(token) {
			continue
		}
		seen[token] = true
		keywords = append(keywords, token)
	}
	return keywords
}

func isNumber(token string) bool {
	for _, r := range token {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
