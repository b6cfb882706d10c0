package scraper

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	plausiblePricePattern = regexp.MustCompile(`^\$(?:\d{1,3}(?:,\d{3})*|\d+)\.\d{2}$`)
	amountCleanPattern    = regexp.MustCompile(`[^\d.,]`)
	centsPattern          = regexp.MustCompile(`\.(\d{2})\s*$`)
)

// IsPlausiblePriceText is the last-mile gate before a price reaches calling code:
// a dollar sign, digits with optional thousands separators, exactly two decimals.
func IsPlausiblePriceText(text string) bool {
	return plausiblePricePattern.MatchString(text)
}

// parseAmount turns a US formatted price ("$1,234.56", "15.99") into a number
func parseAmount(text string) (float64, bool) {
	clean := amountCleanPattern.ReplaceAllString(text, "")
	clean = strings.ReplaceAll(clean, ",", "")
	if clean == "" || strings.Count(clean, ".") > 1 {
		return 0, false
	}
	value, err := strconv.ParseFloat(clean, 64)
	if err != nil || value <= 0 || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

// hasCents reports whether a raw price has a non-zero cents component.
// Whole-number values are often coupon amounts rather than the price to pay.
func hasCents(text string) bool {
	matches := centsPattern.FindStringSubmatch(strings.TrimSpace(text))
	return len(matches) > 1 && matches[1] != "00"
}

// FormatUSD renders an amount as "$1,234.50"
func FormatUSD(amount float64) string {
	cents := int64(math.Round(amount * 100))
	whole := cents / 100
	frac := cents % 100

	digits := strconv.FormatInt(whole, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("$%s.%02d", b.String(), frac)
}
