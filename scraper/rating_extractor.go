package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

const ratingWindow = 3000

var (
	ratingRegionIDs = []string{`id="averageCustomerReviews"`, `id="acrCustomerReviewText"`, `id="acrPopover"`}

	ratingPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d(?:\.\d+)?)\s+out\s+of\s+5\s+stars`),
		regexp.MustCompile(`"ratingValue"\s*:\s*"?(\d(?:\.\d+)?)`),
		regexp.MustCompile(`(?i)title="(\d(?:\.\d+)?)\s+out\s+of\s+5`),
	}

	reviewCountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)([\d,]+)\s+(?:global\s+)?ratings?\b`),
		regexp.MustCompile(`"reviewCount"\s*:\s*"?([\d,]+)`),
		regexp.MustCompile(`"ratingCount"\s*:\s*"?([\d,]+)`),
	}
)

// ExtractRating reads the average star rating, or nil when missing or outside [0,5].
// A nil guard checks the default marker set.
func ExtractRating(guard *NoiseGuard, markup string) *float64 {
	if !guard.orDefault().SafeToExtract(markup) {
		return nil
	}

	for _, text := range ratingSearchOrder(markup) {
		for _, pattern := range ratingPatterns {
			m := pattern.FindStringSubmatch(text)
			if len(m) < 2 {
				continue
			}
			value, err := strconv.ParseFloat(m[1], 64)
			if err != nil || value < 0 || value > 5 {
				continue
			}
			return &value
		}
	}
	return nil
}

// ExtractReviewCount reads the number of ratings, preferring the review region
func ExtractReviewCount(guard *NoiseGuard, markup string) *int {
	if !guard.orDefault().SafeToExtract(markup) {
		return nil
	}

	for _, text := range ratingSearchOrder(markup) {
		for _, pattern := range reviewCountPatterns {
			m := pattern.FindStringSubmatch(text)
			if len(m) < 2 {
				continue
			}
			count, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
			if err != nil || count < 0 {
				continue
			}
			return &count
		}
	}
	return nil
}

// ratingSearchOrder returns the review region first, then the whole markup
func ratingSearchOrder(markup string) []string {
	for _, id := range ratingRegionIDs {
		if idx := strings.Index(markup, id); idx >= 0 {
			return []string{markup[idx:min(len(markup), idx+ratingWindow)], markup}
		}
	}
	return []string{markup}
}
