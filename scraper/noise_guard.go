package scraper

import (
	"strings"
)

// defaultNoiseMarkers are phrases only found on bot interstitials and captcha pages
var defaultNoiseMarkers = []string{
	"enter the characters you see below",
	"type the characters you see in this image",
	"sorry, we just need to make sure you're not a robot",
	"to discuss automated access to amazon data",
	"/errors/validatecaptcha",
	"captchacharacters",
	"robot check",
	"api-services-support@amazon.com",
}

// NoiseGuard detects bot walls and captchas. Extractors consult it before
// reading anything, so a captcha page's decorative numbers never become facts.
type NoiseGuard struct {
	markers []string
}

// NewNoiseGuard creates a guard with the default marker set plus any extra markers
func NewNoiseGuard(extra ...string) *NoiseGuard {
	markers := make([]string, 0, len(defaultNoiseMarkers)+len(extra))
	for _, marker := range append(append([]string{}, defaultNoiseMarkers...), extra...) {
		marker = strings.ToLower(strings.TrimSpace(marker))
		if marker != "" {
			markers = append(markers, marker)
		}
	}
	return &NoiseGuard{markers: markers}
}

var defaultGuard = NewNoiseGuard()

func (g *NoiseGuard) orDefault() *NoiseGuard {
	if g == nil {
		return defaultGuard
	}
	return g
}

// Check returns the first marker found in the markup
func (g *NoiseGuard) Check(markup string) (string, bool) {
	if markup == "" {
		return "", false
	}
	content := strings.ToLower(markup)
	for _, marker := range g.markers {
		if strings.Contains(content, marker) {
			return marker, true
		}
	}
	return "", false
}

// SafeToExtract returns false if the markup is an interstitial or captcha page
func (g *NoiseGuard) SafeToExtract(markup string) bool {
	_, noisy := g.Check(markup)
	return !noisy
}

// SafeToExtract checks markup with the default marker set
func SafeToExtract(markup string) bool {
	return defaultGuard.SafeToExtract(markup)
}
