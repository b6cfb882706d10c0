package models

// Availability of a catalog entry
type Availability string

const (
	AvailabilityInStock    Availability = "in_stock"
	AvailabilityOutOfStock Availability = "out_of_stock"
)

// CatalogEntry is one curated product. Read-only once loaded.
type CatalogEntry struct {
	ID            string       `json:"id" db:"id"`
	Name          string       `json:"name" db:"name"`
	Brand         string       `json:"brand" db:"brand"`
	Category      string       `json:"category" db:"category"`
	Price         float64      `json:"price" db:"price"`
	Rating        float64      `json:"rating" db:"rating"`
	ReviewCount   int          `json:"review_count" db:"review_count"`
	ImageURL      string       `json:"image_url" db:"image_url"`
	ProductURL    string       `json:"product_url" db:"product_url"`
	Description   string       `json:"description" db:"description"`
	Badges        []string     `json:"badges" db:"badges"`
	Keywords      []string     `json:"keywords" db:"keywords"`
	CategoryHints []string     `json:"category_hints" db:"category_hints"`
	Availability  Availability `json:"availability" db:"availability"`
}

// InStock returns true unless the entry is explicitly out of stock
func (e *CatalogEntry) InStock() bool {
	return e.Availability != AvailabilityOutOfStock
}

// ItemID returns the host-site item identifier of the entry's product URL
func (e *CatalogEntry) ItemID() string {
	return ItemIDFromURL(e.ProductURL)
}

// ScoredCandidate is produced per match pass and never persisted
type ScoredCandidate struct {
	Entry             *CatalogEntry `json:"entry"`
	Score             int           `json:"score"`
	KeywordMatchCount int           `json:"keyword_match_count"`
	MatchedKeywords   []string      `json:"matched_keywords"`
}

// MatchResult holds the capped ranking plus the full scored list kept for diagnostics
type MatchResult struct {
	Domains []string          `json:"domains"`
	Matches []ScoredCandidate `json:"matches"`
	Scored  []ScoredCandidate `json:"scored,omitempty"`
}

// CatalogSnapshot is the normalized result of one catalog load
type CatalogSnapshot struct {
	Entries []CatalogEntry `json:"entries"`
	Source  string         `json:"source"`
}

// CatalogRow is one undecoded product row as a catalog source returns it.
// Keys may be camelCase or snake_case.
type CatalogRow map[string]interface{}
