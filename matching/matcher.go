package matching

import (
	"log"
	"sort"

	"shelfmatch/models"
)

// DefaultTopN is the result cap when none is configured
const DefaultTopN = 3

// Matcher ranks catalog entries against the current page
type Matcher struct {
	scorer *Scorer
	topN   int
	debug  bool
}

// NewMatcher creates a matcher. A topN <= 0 uses DefaultTopN.
func NewMatcher(classifier *Classifier, topN int, debug bool) *Matcher {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Matcher{
		scorer: NewScorer(classifier, debug),
		topN:   topN,
		debug:  debug,
	}
}

// Match returns the capped ranking plus every candidate that scored above zero.
// Unclassified and interstitial pages never get alternatives.
func (m *Matcher) Match(facts *models.PageFacts, identity models.PageIdentity, entries []models.CatalogEntry) models.MatchResult {
	result := models.MatchResult{Domains: []string{}, Matches: []models.ScoredCandidate{}}
	if facts == nil || facts.Noise {
		return result
	}

	page := m.scorer.NewPageContext(facts)
	if len(page.Domains) == 0 {
		if m.debug {
			log.Printf("[MATCH] page %q is unclassified, no alternatives", facts.Title)
		}
		return result
	}
	result.Domains = page.Domains

	var scored []models.ScoredCandidate
	for i := range entries {
		entry := &entries[i]
		if !entry.InStock() {
			continue
		}
		if identity.ItemID != "" && entry.ItemID() == identity.ItemID {
			continue
		}

		candidate := m.scorer.ScoreInContext(entry, page)
		if candidate.Score > 0 {
			scored = append(scored, candidate)
		}
	}

	SortCandidates(scored)
	result.Scored = scored
	if len(scored) > m.topN {
		result.Matches = append(result.Matches, scored[:m.topN]...)
	} else {
		result.Matches = append(result.Matches, scored...)
	}

	if m.debug {
		log.Printf("[MATCH] domains=%v scored=%d returned=%d", page.Domains, len(scored), len(result.Matches))
	}
	return result
}

// SortCandidates orders by score, keyword matches, rating and review count, all descending
func SortCandidates(candidates []models.ScoredCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.KeywordMatchCount != b.KeywordMatchCount {
			return a.KeywordMatchCount > b.KeywordMatchCount
		}
		if a.Entry.Rating != b.Entry.Rating {
			return a.Entry.Rating > b.Entry.Rating
		}
		return a.Entry.ReviewCount > b.Entry.ReviewCount
	})
}
