package models

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

// PageFacts is the normalized data extracted for one page identity.
// A new value is built on every navigation; existing values are never mutated.
type PageFacts struct {
	Title              string   `json:"title"`
	BreadcrumbText     string   `json:"breadcrumb_text"`
	FeatureText        string   `json:"feature_text"`
	DescriptionText    string   `json:"description_text"`
	CombinedSearchText string   `json:"combined_search_text"`
	PriceText          *string  `json:"price_text"`
	Rating             *float64 `json:"rating"`
	ReviewCount        *int     `json:"review_count"`
	ImageURL           *string  `json:"image_url"`

	Noise       bool      `json:"noise"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// WithImage returns a copy of the facts carrying the given image URL
func (f PageFacts) WithImage(imageURL string) PageFacts {
	f.ImageURL = &imageURL
	return f
}

// HasPrice returns true if a price survived the plausibility gate
func (f *PageFacts) HasPrice() bool {
	return f.PriceText != nil
}

// PageIdentity is used solely to decide whether cached results are still valid
type PageIdentity struct {
	URL    string `json:"url"`
	ItemID string `json:"item_id"`
}

// Known item-path patterns. Item ids are 10 upper-case alphanumerics.
var itemPathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/dp/([A-Z0-9]{10})(?:[/?#]|$)`),
	regexp.MustCompile(`/gp/product/([A-Z0-9]{10})(?:[/?#]|$)`),
	regexp.MustCompile(`/gp/aw/d/([A-Z0-9]{10})(?:[/?#]|$)`),
	regexp.MustCompile(`/exec/obidos/ASIN/([A-Z0-9]{10})(?:[/?#]|$)`),
	regexp.MustCompile(`/product/([A-Z0-9]{10})(?:[/?#]|$)`),
}

// ItemIDFromURL extracts the item identifier from a URL, or "" if no pattern matches
func ItemIDFromURL(rawURL string) string {
	for _, pattern := range itemPathPatterns {
		if matches := pattern.FindStringSubmatch(rawURL); len(matches) > 1 {
			return matches[1]
		}
	}
	return ""
}

// NewPageIdentity builds the identity for a page URL
func NewPageIdentity(rawURL string) PageIdentity {
	rawURL = strings.TrimSpace(rawURL)
	return PageIdentity{
		URL:    rawURL,
		ItemID: ItemIDFromURL(rawURL),
	}
}

// IsZero returns true for the identity of no page
func (p PageIdentity) IsZero() bool {
	return p.URL == "" && p.ItemID == ""
}

// Same reports whether two identities refer to the same item.
// Item ids win when both sides have one; otherwise URLs are compared without query and fragment.
func (p PageIdentity) Same(other PageIdentity) bool {
	if p.ItemID != "" && other.ItemID != "" {
		return p.ItemID == other.ItemID
	}
	if p.ItemID != other.ItemID {
		return false
	}
	return stripURL(p.URL) == stripURL(other.URL)
}

// stripURL drops query and fragment so tracking parameters don't change identity
func stripURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return strings.TrimSuffix(parsed.String(), "/")
}

var (
	apostropheReplacer  = strings.NewReplacer("’", "'", "‘", "'", "ʼ", "'", "`", "'", "´", "'")
	multipleSpacesRegex = regexp.MustCompile(`\s+`)
)

// NormalizeSearchText lower-cases, normalizes apostrophes and collapses whitespace.
// Every containment check against page or catalog text runs on normalized text.
func NormalizeSearchText(text string) string {
	text = apostropheReplacer.Replace(strings.ToLower(text))
	text = multipleSpacesRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
