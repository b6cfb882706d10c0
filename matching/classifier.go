package matching

import (
	"regexp"
	"strings"

	"shelfmatch/models"
)

// Coarse domain groups used for brand affinity
const (
	GroupWellness     = "wellness"
	GroupPantry       = "pantry"
	GroupPersonalCare = "personal-care"
	GroupHome         = "home"
	GroupPet          = "pet"
)

// Domain is a coarse shopping category with its membership terms
type Domain struct {
	ID    string
	Group string
	Terms []string

	pattern *regexp.Regexp
}

// defaultDomains in classification order
var defaultDomains = []Domain{
	{ID: "supplements", Group: GroupWellness, Terms: []string{
		"supplement", "supplements", "vitamin", "vitamins", "multivitamin", "collagen", "peptides",
		"creatine", "magnesium", "melatonin", "probiotic", "probiotics", "fish oil", "omega-3",
		"protein powder", "whey", "elderberry", "ashwagandha", "biotin", "zinc", "electrolyte",
		"electrolytes", "softgels", "capsules", "gummies",
	}},
	{ID: "coffee", Group: GroupPantry, Terms: []string{
		"coffee", "espresso", "cold brew", "k-cup", "k-cups", "nespresso", "arabica", "robusta",
		"whole bean", "ground coffee", "coffee pods", "decaf",
	}},
	{ID: "tea", Group: GroupPantry, Terms: []string{
		"tea", "teas", "matcha", "green tea", "black tea", "herbal tea", "chai", "oolong", "rooibos",
		"earl grey", "chamomile", "tea bags",
	}},
	{ID: "oral-care", Group: GroupPersonalCare, Terms: []string{
		"toothpaste", "toothbrush", "toothbrushes", "mouthwash", "floss", "dental", "whitening strips",
		"oral care", "teeth",
	}},
	{ID: "skincare", Group: GroupPersonalCare, Terms: []string{
		"skincare", "skin care", "moisturizer", "serum", "sunscreen", "cleanser", "retinol",
		"hyaluronic", "face cream", "toner", "spf",
	}},
	{ID: "haircare", Group: GroupPersonalCare, Terms: []string{
		"shampoo", "conditioner", "hair mask", "hair oil", "hair care", "dry shampoo", "scalp",
	}},
	{ID: "household", Group: GroupHome, Terms: []string{
		"cleaner", "detergent", "laundry", "dish soap", "disinfectant", "paper towels", "trash bags",
		"all-purpose", "dishwasher", "sponge", "sponges", "household",
	}},
	{ID: "candles", Group: GroupHome, Terms: []string{
		"candle", "candles", "soy candle", "wax melt", "wax melts", "wick", "scented",
	}},
	{ID: "pet", Group: GroupPet, Terms: []string{
		"pet", "pets", "dog", "dogs", "puppy", "cat", "cats", "kitten", "litter", "dog food", "cat food",
	}},
	{ID: "snacks", Group: GroupPantry, Terms: []string{
		"snack", "snacks", "chips", "jerky", "granola", "protein bar", "protein bars", "nuts",
		"almonds", "popcorn", "crackers", "cookies", "trail mix",
	}},
}

// Classifier maps normalized text to the set of domains whose terms it contains
type Classifier struct {
	domains []Domain
	byID    map[string]*Domain
}

// NewClassifier creates a classifier over the given domains, or the default set
func NewClassifier(domains ...Domain) *Classifier {
	if len(domains) == 0 {
		domains = defaultDomains
	}

	c := &Classifier{
		domains: make([]Domain, len(domains)),
		byID:    make(map[string]*Domain, len(domains)),
	}
	for i, d := range domains {
		d.pattern = termsPattern(d.Terms)
		c.domains[i] = d
		c.byID[d.ID] = &c.domains[i]
	}
	return c
}

// Classify returns the ids of every domain with at least one term in text, in domain order.
// An empty result means unclassified.
func (c *Classifier) Classify(text string) []string {
	text = models.NormalizeSearchText(text)
	if text == "" {
		return nil
	}

	var ids []string
	for _, d := range c.domains {
		if d.pattern != nil && d.pattern.MatchString(text) {
			ids = append(ids, d.ID)
		}
	}
	return ids
}

// ClassifyPage classifies the narrow title+breadcrumb text only
func (c *Classifier) ClassifyPage(facts *models.PageFacts) []string {
	if facts == nil {
		return nil
	}
	return c.Classify(facts.Title + " " + facts.BreadcrumbText)
}

// ClassifyEntry classifies a catalog entry from its own name, brand, category and hints
func (c *Classifier) ClassifyEntry(entry *models.CatalogEntry) []string {
	parts := []string{entry.Name, entry.Brand, entry.Category}
	parts = append(parts, entry.CategoryHints...)
	return c.Classify(strings.Join(parts, " "))
}

// IsDomain returns true for a known domain id
func (c *Classifier) IsDomain(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Groups returns the coarse groups of the given domains
func (c *Classifier) Groups(ids []string) map[string]bool {
	groups := make(map[string]bool, len(ids))
	for _, id := range ids {
		if d, ok := c.byID[id]; ok {
			groups[d.Group] = true
		}
	}
	return groups
}

// SharesGroup returns true if any domain of a belongs to the same coarse group as any domain of b
func (c *Classifier) SharesGroup(a, b []string) bool {
	groups := c.Groups(a)
	for group := range c.Groups(b) {
		if groups[group] {
			return true
		}
	}
	return false
}

// Intersects returns true if a and b share a domain
func Intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// ContainsTerm reports whether term occurs in normalized text without being part of a longer word
func ContainsTerm(text, term string) bool {
	term = models.NormalizeSearchText(term)
	if term == "" {
		return false
	}
	pattern := termsPattern([]string{term})
	return pattern != nil && pattern.MatchString(text)
}

// termsPattern builds one boundary-aware alternation for a term list
func termsPattern(terms []string) *regexp.Regexp {
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		term = models.NormalizeSearchText(term)
		if term != "" {
			quoted = append(quoted, regexp.QuoteMeta(term))
		}
	}
	if len(quoted) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?:^|[^a-z0-9])(?:` + strings.Join(quoted, "|") + `)(?:[^a-z0-9]|$)`)
}
