package matching

import (
	"log"
	"strings"

	"shelfmatch/models"
)

// Scoring weights
const (
	exactCategoryScore    = 60 // Catalog category equals a page domain
	inferredCategoryScore = 20 // Passed gating without an exact category
	keywordMatchScore     = 12 // Per keyword found in the page text
	brandAffinityBonus    = 20 // Same brand, same or adjacent domain
	intentMatchBonus      = 80 // Matches the specific sub-type the page is about
)

// Evidence gate
const (
	minNonGenericMatches = 1
	minTotalMatches      = 2
)

type tier struct {
	min   float64
	bonus int
}

var ratingTiers = []tier{{4.8, 10}, {4.6, 8}, {4.4, 6}, {4.2, 4}, {4.0, 2}}

var reviewTiers = []tier{{5000, 10}, {1000, 8}, {500, 6}, {250, 4}, {100, 2}}

// Domains where a single cross-brand keyword match is enough evidence
var permissiveDomains = map[string]bool{
	"oral-care":   true,
	"skincare":    true,
	"household":   true,
	"coffee":      true,
	"supplements": true,
}

// intentDomain is the high-specificity domain the intent rule applies to
const intentDomain = "supplements"

type intentType struct {
	id    string
	terms []string
}

// Supplement sub-types in priority order; the first found in the title is the page intent
var supplementIntents = []intentType{
	{"collagen", []string{"collagen"}},
	{"creatine", []string{"creatine"}},
	{"magnesium", []string{"magnesium"}},
	{"melatonin", []string{"melatonin"}},
	{"probiotic", []string{"probiotic", "probiotics"}},
	{"fish-oil", []string{"fish oil", "omega-3"}},
	{"protein", []string{"protein powder", "whey"}},
	{"elderberry", []string{"elderberry"}},
	{"ashwagandha", []string{"ashwagandha"}},
}

// PageContext is everything the scorer derives from the page once per match pass
type PageContext struct {
	Facts      *models.PageFacts
	Domains    []string
	Title      string
	SearchText string
	Intent     string
	Permissive bool
}

// Scorer computes relevance of a catalog entry to a page
type Scorer struct {
	classifier *Classifier
	debug      bool
}

// NewScorer creates a scorer
func NewScorer(classifier *Classifier, debug bool) *Scorer {
	if classifier == nil {
		classifier = NewClassifier()
	}
	return &Scorer{classifier: classifier, debug: debug}
}

// NewPageContext classifies the page and detects its intent
func (s *Scorer) NewPageContext(facts *models.PageFacts) *PageContext {
	page := &PageContext{Facts: facts}
	if facts == nil {
		return page
	}

	page.Domains = s.classifier.ClassifyPage(facts)
	page.Title = models.NormalizeSearchText(facts.Title)
	page.SearchText = facts.CombinedSearchText
	if page.SearchText == "" {
		page.SearchText = page.Title
	}

	for _, d := range page.Domains {
		if permissiveDomains[d] {
			page.Permissive = true
		}
		if d == intentDomain {
			page.Intent = detectIntent(page.Title)
		}
	}
	return page
}

// Score returns the candidate's relevance to the page. A score of 0 means excluded.
func (s *Scorer) Score(entry *models.CatalogEntry, facts *models.PageFacts) models.ScoredCandidate {
	return s.ScoreInContext(entry, s.NewPageContext(facts))
}

// ScoreInContext scores against a precomputed page context
func (s *Scorer) ScoreInContext(entry *models.CatalogEntry, page *PageContext) models.ScoredCandidate {
	result := models.ScoredCandidate{Entry: entry}
	if entry == nil || page == nil || len(page.Domains) == 0 {
		return result
	}

	entryDomains := s.entryDomains(entry)
	sameBrand := s.sameBrand(entry, page)
	overlap := Intersects(entryDomains, page.Domains)
	brandAffinity := sameBrand && (overlap || s.classifier.SharesGroup(entryDomains, page.Domains))

	if !overlap && !brandAffinity {
		s.debugf(entry, "no domain overlap (entry=%v page=%v)", entryDomains, page.Domains)
		return result
	}

	nonGeneric := 0
	for _, keyword := range EntryKeywords(entry) {
		if !strings.Contains(page.SearchText, keyword) {
			continue
		}
		result.MatchedKeywords = append(result.MatchedKeywords, keyword)
		if !IsGeneric(keyword) {
			nonGeneric++
		}
	}
	result.KeywordMatchCount = len(result.MatchedKeywords)

	if nonGeneric < minNonGenericMatches {
		s.debugf(entry, "no non-generic keyword matched (%v)", result.MatchedKeywords)
		return excluded(result)
	}
	if result.KeywordMatchCount < minTotalMatches && !brandAffinity && !page.Permissive {
		s.debugf(entry, "only %d keyword match outside permissive domains", result.KeywordMatchCount)
		return excluded(result)
	}

	score := inferredCategoryScore
	category := models.NormalizeSearchText(entry.Category)
	for _, d := range page.Domains {
		if category == d {
			score = exactCategoryScore
			break
		}
	}
	score += keywordMatchScore * result.KeywordMatchCount
	if brandAffinity {
		score += brandAffinityBonus
	}
	score += tierBonus(ratingTiers, entry.Rating)
	score += tierBonus(reviewTiers, float64(entry.ReviewCount))

	if page.Intent != "" {
		switch {
		case s.matchesIntent(entry, page.Intent):
			score += intentMatchBonus
		case sameBrand:
			// kept, unboosted
		default:
			s.debugf(entry, "cross-brand candidate misses intent %q", page.Intent)
			return excluded(result)
		}
	}

	result.Score = score
	s.debugf(entry, "score=%d matches=%v affinity=%t", score, result.MatchedKeywords, brandAffinity)
	return result
}

// entryDomains classifies the entry, counting a category that names a domain directly
func (s *Scorer) entryDomains(entry *models.CatalogEntry) []string {
	domains := s.classifier.ClassifyEntry(entry)
	category := models.NormalizeSearchText(entry.Category)
	if s.classifier.IsDomain(category) && !Intersects(domains, []string{category}) {
		domains = append(domains, category)
	}
	return domains
}

// sameBrand holds when the brand appears verbatim in the page title
func (s *Scorer) sameBrand(entry *models.CatalogEntry, page *PageContext) bool {
	brand := models.NormalizeSearchText(entry.Brand)
	return brand != "" && ContainsTerm(page.Title, brand)
}

func (s *Scorer) matchesIntent(entry *models.CatalogEntry, intent string) bool {
	parts := []string{entry.Name, entry.Category}
	parts = append(parts, entry.Keywords...)
	parts = append(parts, entry.CategoryHints...)
	text := models.NormalizeSearchText(strings.Join(parts, " "))

	for _, it := range supplementIntents {
		if it.id != intent {
			continue
		}
		for _, term := range it.terms {
			if ContainsTerm(text, term) {
				return true
			}
		}
	}
	return false
}

func (s *Scorer) debugf(entry *models.CatalogEntry, format string, args ...interface{}) {
	if !s.debug {
		return
	}
	log.Printf("[MATCH] %s: "+format, append([]interface{}{entry.ID}, args...)...)
}

func detectIntent(title string) string {
	for _, it := range supplementIntents {
		for _, term := range it.terms {
			if ContainsTerm(title, term) {
				return it.id
			}
		}
	}
	return ""
}

func tierBonus(tiers []tier, value float64) int {
	for _, t := range tiers {
		if value >= t.min {
			return t.bonus
		}
	}
	return 0
}

func excluded(result models.ScoredCandidate) models.ScoredCandidate {
	result.Score = 0
	return result
}
