package scraper

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"shelfmatch/models"
)

// ExtractorOptions configures the page facts extractor
type ExtractorOptions struct {
	PriceFloor           float64
	ImageHosts           []string
	AlternateURLTemplate string
	Fetcher              Fetcher
	NoiseMarkers         []string
	Debug                bool
}

// Extractor builds PageFacts from raw page markup
type Extractor struct {
	guard       *NoiseGuard
	prices      *PriceResolver
	images      *ImageExtractor
	fetcher     Fetcher
	urlTemplate string
}

// NewExtractor creates an extractor. Without a fetcher no secondary reads are made.
func NewExtractor(opts ExtractorOptions) *Extractor {
	guard := defaultGuard
	if len(opts.NoiseMarkers) > 0 {
		guard = NewNoiseGuard(opts.NoiseMarkers...)
	}
	if opts.AlternateURLTemplate == "" {
		opts.AlternateURLTemplate = DefaultAlternateURLTemplate
	}

	prices := NewPriceExtractor(guard, opts.PriceFloor, opts.Debug)
	return &Extractor{
		guard:       guard,
		prices:      NewPriceResolver(prices, guard, opts.Fetcher, opts.AlternateURLTemplate),
		images:      NewImageExtractor(guard, opts.ImageHosts),
		fetcher:     opts.Fetcher,
		urlTemplate: opts.AlternateURLTemplate,
	}
}

// Extract returns the facts for the page. An interstitial page yields empty facts with
// Noise set, together with models.ErrNoiseDetected.
func (e *Extractor) Extract(ctx context.Context, identity models.PageIdentity, markup string) (models.PageFacts, error) {
	if marker, noisy := e.guard.Check(markup); noisy {
		log.Printf("🤖 Interstitial detected for %s (%s), skipping extraction", identity.URL, marker)
		return models.PageFacts{Noise: true, ExtractedAt: time.Now()}, models.ErrNoiseDetected
	}

	// Breadcrumbs only gate domains; their generic words never count as keyword evidence
	regions := ExtractTextRegions(e.guard, markup)
	combined := strings.Join([]string{regions.Title, regions.Features, regions.Description}, " ")

	facts := models.PageFacts{
		Title:              regions.Title,
		BreadcrumbText:     regions.Breadcrumb,
		FeatureText:        regions.Features,
		DescriptionText:    regions.Description,
		CombinedSearchText: models.NormalizeSearchText(combined),
		PriceText:          e.prices.Resolve(ctx, identity, markup),
		Rating:             ExtractRating(e.guard, markup),
		ReviewCount:        ExtractReviewCount(e.guard, markup),
		ImageURL:           e.images.Extract(markup),
		ExtractedAt:        time.Now(),
	}
	return facts, nil
}

// ExtractImage runs only the image chain over markup
func (e *Extractor) ExtractImage(markup string) *string {
	return e.images.Extract(markup)
}

// ResolveImage reads the alternate variant of the item once and extracts its image
func (e *Extractor) ResolveImage(ctx context.Context, identity models.PageIdentity) (*string, error) {
	if e.fetcher == nil {
		return nil, fmt.Errorf("%w: no fetcher configured", models.ErrNetworkFailure)
	}

	target := identity.URL
	if identity.ItemID != "" {
		target = fmt.Sprintf(e.urlTemplate, identity.ItemID)
	}
	if target == "" {
		return nil, nil
	}

	markup, err := e.fetcher.Fetch(ctx, target)
	if err != nil {
		return nil, err
	}
	if !e.guard.SafeToExtract(markup) {
		return nil, models.ErrNoiseDetected
	}
	return e.images.Extract(markup), nil
}

// FetchMarkup reads a page through the configured fetcher
func (e *Extractor) FetchMarkup(ctx context.Context, rawURL string) (string, error) {
	if e.fetcher == nil {
		return "", fmt.Errorf("%w: no fetcher configured", models.ErrNetworkFailure)
	}
	return e.fetcher.Fetch(ctx, rawURL)
}
