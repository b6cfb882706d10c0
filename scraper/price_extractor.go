package scraper

import (
	"log"
	"regexp"
	"strings"
)

// DefaultPriceFloor is the plausibility floor: below it a value is presumed to be a unit or secondary price
const DefaultPriceFloor = 5.0

const (
	maxPlausiblePrice   = 1000000.0
	priceAnchorWindow   = 4000
	corePriceWindow     = 6000
	priceContextRadius  = 80
	offscreenBeforeSpan = 150
	offscreenAfterSpan  = 100
	fractionSearchSpan  = 300
)

var (
	priceAnchors = []string{`"priceToPay"`, `"apexPriceToPay"`}

	corePriceRegionIDs = []string{
		`id="corePriceDisplay_desktop_feature_div"`,
		`id="corePrice_feature_div"`,
		`id="corePrice_desktop"`,
	}

	displayPricePattern = regexp.MustCompile(`"?displayPrice"?\s*:\s*"(\$[\d,]+(?:\.\d{2})?)"`)
	priceToPayPattern   = regexp.MustCompile(`(?s)class="[^"]*\bpriceToPay\b[^"]*".{0,400}?class="a-offscreen">\s*([^<]+?)\s*<`)
	apexPricePattern    = regexp.MustCompile(`(?s)(?:id|class)="[^"]*\bapexPriceToPay\b[^"]*".{0,400}?class="a-offscreen">\s*([^<]+?)\s*<`)
	offscreenPattern    = regexp.MustCompile(`class="a-offscreen">\s*([^<]+?)\s*<`)
	priceWholePattern   = regexp.MustCompile(`class="a-price-whole">\s*([\d,]+)`)
	priceFracPattern    = regexp.MustCompile(`class="a-price-fraction">\s*(\d{2})`)

	couponContextWords = []string{"coupon", "savings", "save ", "discount", "promo", "clip"}
	unitContextWords   = []string{"/ounce", "/oz", "/fl oz", "/count", "/lb", "/100", "per ounce", "per count"}
	listContextWords   = []string{"a-text-price", "basisprice", "data-a-strike", "list price", "was:", "typical price"}
)

// PriceCandidate represents a price found in the markup with the strategy that produced it
type PriceCandidate struct {
	Amount   float64
	Text     string
	Strategy string
}

type priceStrategy struct {
	name    string
	extract func(markup string, floor float64) (PriceCandidate, bool)
}

// PriceExtractor runs the ordered price strategies over raw page markup
type PriceExtractor struct {
	guard      *NoiseGuard
	floor      float64
	strategies []priceStrategy
	debug      bool
}

// NewPriceExtractor creates a price extractor. A floor <= 0 uses DefaultPriceFloor.
func NewPriceExtractor(guard *NoiseGuard, floor float64, debug bool) *PriceExtractor {
	if guard == nil {
		guard = defaultGuard
	}
	if floor <= 0 {
		floor = DefaultPriceFloor
	}
	return &PriceExtractor{
		guard: guard,
		floor: floor,
		strategies: []priceStrategy{
			{"json_price_to_pay", extractJSONPriceToPay},
			{"core_price_display", extractCorePriceDisplay},
			{"offscreen_scan", extractLargestOffscreen},
			{"whole_fraction", extractWholeFraction},
		},
		debug: debug,
	}
}

// Floor returns the configured plausibility floor
func (pe *PriceExtractor) Floor() float64 {
	return pe.floor
}

// Extract returns the first candidate any strategy produces. It does not apply the floor
// to strategies that have no notion of it; the resolver does that.
func (pe *PriceExtractor) Extract(markup string) (PriceCandidate, bool) {
	if !pe.guard.SafeToExtract(markup) {
		return PriceCandidate{}, false
	}

	for _, strategy := range pe.strategies {
		candidate, ok := strategy.extract(markup, pe.floor)
		if !ok {
			continue
		}
		candidate.Strategy = strategy.name
		if pe.debug {
			log.Printf("💲 Price strategy %s found %s", strategy.name, candidate.Text)
		}
		return candidate, true
	}
	return PriceCandidate{}, false
}

// extractJSONPriceToPay collects displayPrice values in a window after a price-to-pay anchor.
// Values under the floor or next to coupon/unit wording are discarded, and a value with cents
// wins over a whole number.
func extractJSONPriceToPay(markup string, floor float64) (PriceCandidate, bool) {
	for _, anchor := range priceAnchors {
		idx := strings.Index(markup, anchor)
		if idx < 0 {
			continue
		}
		window := markup[idx:min(len(markup), idx+priceAnchorWindow)]
		matches := displayPricePattern.FindAllStringSubmatchIndex(window, -1)

		var whole *PriceCandidate
		for i, m := range matches {
			text := window[m[2]:m[3]]
			amount, ok := parseAmount(text)
			if !ok || amount < floor || amount >= maxPlausiblePrice {
				continue
			}

			prevEnd := 0
			if i > 0 {
				prevEnd = matches[i-1][1]
			}
			nextStart := len(window)
			if i+1 < len(matches) {
				nextStart = matches[i+1][0]
			}
			context := boundedContext(window, m[0], m[1], prevEnd, nextStart, priceContextRadius)
			if containsAny(context, couponContextWords) || containsAny(context, unitContextWords) {
				continue
			}

			candidate := PriceCandidate{Amount: amount, Text: text}
			if hasCents(text) {
				return candidate, true
			}
			if whole == nil {
				whole = &candidate
			}
		}
		if whole != nil {
			return *whole, true
		}
	}
	return PriceCandidate{}, false
}

// extractCorePriceDisplay looks for the primary offscreen value, then the apex price
func extractCorePriceDisplay(markup string, _ float64) (PriceCandidate, bool) {
	region, found := corePriceRegion(markup)
	if !found {
		return PriceCandidate{}, false
	}
	for _, pattern := range []*regexp.Regexp{priceToPayPattern, apexPricePattern} {
		if m := pattern.FindStringSubmatch(region); len(m) > 1 {
			if amount, ok := parseAmount(m[1]); ok && amount < maxPlausiblePrice {
				return PriceCandidate{Amount: amount, Text: m[1]}, true
			}
		}
	}
	return PriceCandidate{}, false
}

// extractLargestOffscreen scans every offscreen value, skipping unit and list prices,
// and keeps the largest. Smaller values are more likely to be secondary prices.
func extractLargestOffscreen(markup string, _ float64) (PriceCandidate, bool) {
	region, found := corePriceRegion(markup)
	if !found {
		region = markup
	}

	matches := offscreenPattern.FindAllStringSubmatchIndex(region, -1)
	var best *PriceCandidate
	for i, m := range matches {
		text := region[m[2]:m[3]]
		amount, ok := parseAmount(text)
		if !ok || amount >= maxPlausiblePrice || !strings.Contains(text, "$") {
			continue
		}

		prevEnd := 0
		if i > 0 {
			prevEnd = matches[i-1][1]
		}
		nextStart := len(region)
		if i+1 < len(matches) {
			nextStart = matches[i+1][0]
		}
		before := strings.ToLower(region[max(prevEnd, m[0]-offscreenBeforeSpan):m[0]])
		after := strings.ToLower(region[m[1]:min(nextStart, m[1]+offscreenAfterSpan)])

		if containsAny(before, unitContextWords) || containsAny(after, unitContextWords) {
			continue
		}
		if containsAny(before, listContextWords) {
			continue
		}

		if best == nil || amount > best.Amount {
			best = &PriceCandidate{Amount: amount, Text: text}
		}
	}
	if best == nil {
		return PriceCandidate{}, false
	}
	return *best, true
}

// extractWholeFraction rebuilds a price from separate whole and fraction fields
func extractWholeFraction(markup string, _ float64) (PriceCandidate, bool) {
	region, found := corePriceRegion(markup)
	if !found {
		region = markup
	}

	m := priceWholePattern.FindStringSubmatchIndex(region)
	if m == nil {
		return PriceCandidate{}, false
	}
	whole := strings.ReplaceAll(region[m[2]:m[3]], ",", "")
	fraction := "00"
	tail := region[m[1]:min(len(region), m[1]+fractionSearchSpan)]
	if f := priceFracPattern.FindStringSubmatch(tail); len(f) > 1 {
		fraction = f[1]
	}

	text := "$" + whole + "." + fraction
	amount, ok := parseAmount(text)
	if !ok || amount >= maxPlausiblePrice {
		return PriceCandidate{}, false
	}
	return PriceCandidate{Amount: amount, Text: text}, true
}

// corePriceRegion returns the bounded markup following the first core price container
func corePriceRegion(markup string) (string, bool) {
	for _, id := range corePriceRegionIDs {
		if idx := strings.Index(markup, id); idx >= 0 {
			return markup[idx:min(len(markup), idx+corePriceWindow)], true
		}
	}
	return "", false
}

// boundedContext returns lower-cased text around [start,end) that never crosses the
// neighbouring matches, so one value's wording doesn't disqualify another
func boundedContext(text string, start, end, prevEnd, nextStart, radius int) string {
	from := max(prevEnd, start-radius, 0)
	to := min(nextStart, end+radius, len(text))
	return strings.ToLower(text[from:to])
}

func containsAny(text string, words []string) bool {
	for _, word := range words {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}
