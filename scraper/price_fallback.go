package scraper

import (
	"context"
	"fmt"
	"log"

	"shelfmatch/models"
)

// DefaultAlternateURLTemplate points at the mobile rendering of an item page
const DefaultAlternateURLTemplate = "https://www.amazon.com/gp/aw/d/%s"

// PriceResolver turns markup into a surfaced price. When the page yields no price, or one
// under the floor, it reads the alternate variant of the same item once.
type PriceResolver struct {
	extractor   *PriceExtractor
	guard       *NoiseGuard
	fetcher     Fetcher
	urlTemplate string
}

// NewPriceResolver creates a resolver. A nil fetcher disables the alternate read.
func NewPriceResolver(extractor *PriceExtractor, guard *NoiseGuard, fetcher Fetcher, urlTemplate string) *PriceResolver {
	if guard == nil {
		guard = defaultGuard
	}
	if extractor == nil {
		extractor = NewPriceExtractor(guard, DefaultPriceFloor, false)
	}
	if urlTemplate == "" {
		urlTemplate = DefaultAlternateURLTemplate
	}
	return &PriceResolver{
		extractor:   extractor,
		guard:       guard,
		fetcher:     fetcher,
		urlTemplate: urlTemplate,
	}
}

// Resolve returns the price text to surface, or nil when unknown
func (pr *PriceResolver) Resolve(ctx context.Context, identity models.PageIdentity, markup string) *string {
	if !pr.guard.SafeToExtract(markup) {
		return nil
	}

	floor := pr.extractor.Floor()
	candidate, ok := pr.extractor.Extract(markup)
	if !ok || candidate.Amount < floor {
		if ok {
			log.Printf("⚠️ Price %s below floor $%.2f, trying alternate variant", candidate.Text, floor)
		}
		alternate, found := pr.alternate(ctx, identity)
		if !found {
			return nil
		}
		candidate = alternate
	}

	text := FormatUSD(candidate.Amount)
	if !IsPlausiblePriceText(text) {
		return nil
	}
	return &text
}

// alternate performs the single secondary read
func (pr *PriceResolver) alternate(ctx context.Context, identity models.PageIdentity) (PriceCandidate, bool) {
	if pr.fetcher == nil || identity.ItemID == "" {
		return PriceCandidate{}, false
	}

	altURL := fmt.Sprintf(pr.urlTemplate, identity.ItemID)
	markup, err := pr.fetcher.Fetch(ctx, altURL)
	if err != nil {
		log.Printf("❌ Alternate variant fetch failed for %s: %v", identity.ItemID, err)
		return PriceCandidate{}, false
	}
	if marker, noisy := pr.guard.Check(markup); noisy {
		log.Printf("🤖 Alternate variant for %s is an interstitial (%s)", identity.ItemID, marker)
		return PriceCandidate{}, false
	}

	candidate, ok := pr.extractor.Extract(markup)
	if !ok || candidate.Amount < pr.extractor.Floor() {
		return PriceCandidate{}, false
	}
	log.Printf("✅ Alternate variant price for %s: %s", identity.ItemID, candidate.Text)
	return candidate, true
}
