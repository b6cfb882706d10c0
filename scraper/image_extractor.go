package scraper

import (
	"encoding/json"
	"html"
	"net/url"
	"regexp"
	"strings"
)

// DefaultImageHosts are the CDN hosts an image URL may come from
var DefaultImageHosts = []string{"m.media-amazon.com", "images-na.ssl-images-amazon.com"}

var (
	dynamicImagePattern = regexp.MustCompile(`data-a-dynamic-image\s*=\s*"([^"]+)"`)
	dynamicImageSingle  = regexp.MustCompile(`data-a-dynamic-image\s*=\s*'([^']+)'`)

	singleImagePatterns = []*regexp.Regexp{
		regexp.MustCompile(`data-old-hires\s*=\s*"([^"]+)"`),
		regexp.MustCompile(`"hiRes"\s*:\s*"([^"]+)"`),
		regexp.MustCompile(`"large"\s*:\s*"([^"]+)"`),
		regexp.MustCompile(`"mainUrl"\s*:\s*"([^"]+)"`),
		regexp.MustCompile(`(?s)id="landingImage"[^>]*?\ssrc="([^"]+)"`),
	}

	metaImagePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<meta[^>]+property="og:image"[^>]+content="([^"]+)"`),
		regexp.MustCompile(`(?i)<meta[^>]+content="([^"]+)"[^>]+property="og:image"`),
		regexp.MustCompile(`(?i)<meta[^>]+name="twitter:image"[^>]+content="([^"]+)"`),
	}

	plainURLPattern = regexp.MustCompile(`https?://[^"\s,{}]+`)
)

// ImageExtractor finds the primary product image URL
type ImageExtractor struct {
	guard *NoiseGuard
	hosts map[string]bool
	cdn   *regexp.Regexp
}

// NewImageExtractor creates an extractor accepting only the given hosts
func NewImageExtractor(guard *NoiseGuard, hosts []string) *ImageExtractor {
	if guard == nil {
		guard = defaultGuard
	}
	if len(hosts) == 0 {
		hosts = DefaultImageHosts
	}
	allowed := make(map[string]bool, len(hosts))
	quoted := make([]string, 0, len(hosts))
	for _, h := range hosts {
		host := strings.ToLower(strings.TrimSpace(h))
		if host == "" || allowed[host] {
			continue
		}
		allowed[host] = true
		quoted = append(quoted, regexp.QuoteMeta(host))
	}
	return &ImageExtractor{guard: guard, hosts: allowed, cdn: cdnImagePattern(quoted)}
}

// Extract returns the first allow-listed image, or nil
func (ie *ImageExtractor) Extract(markup string) *string {
	if !ie.guard.SafeToExtract(markup) {
		return nil
	}

	if u := ie.fromDynamicImage(markup); u != "" {
		return &u
	}
	for _, pattern := range singleImagePatterns {
		if m := pattern.FindStringSubmatch(markup); len(m) > 1 {
			if u := ie.accept(m[1]); u != "" {
				return &u
			}
		}
	}
	if m := ie.cdn.FindString(markup); m != "" {
		if u := ie.accept(m); u != "" {
			return &u
		}
	}
	for _, pattern := range metaImagePatterns {
		if m := pattern.FindStringSubmatch(markup); len(m) > 1 {
			if u := ie.accept(m[1]); u != "" {
				return &u
			}
		}
	}
	return nil
}

// cdnImagePattern matches a bare image URL on any of the quoted hosts
func cdnImagePattern(hosts []string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)https://(?:` + strings.Join(hosts, "|") + `)/images/I/[A-Za-z0-9%+._-]+\.(?:jpg|jpeg|png|webp)`)
}

// fromDynamicImage reads the {url: [width, height]} attribute and keeps the largest image
func (ie *ImageExtractor) fromDynamicImage(markup string) string {
	m := dynamicImagePattern.FindStringSubmatch(markup)
	if len(m) < 2 {
		m = dynamicImageSingle.FindStringSubmatch(markup)
	}
	if len(m) < 2 {
		return ""
	}

	raw := strings.ReplaceAll(html.UnescapeString(m[1]), `\/`, "/")
	var sizes map[string][]int
	if err := json.Unmarshal([]byte(raw), &sizes); err == nil {
		best, bestArea := "", -1
		for candidate, dims := range sizes {
			u := ie.accept(candidate)
			if u == "" {
				continue
			}
			area := 0
			if len(dims) >= 2 {
				area = dims[0] * dims[1]
			}
			// ties break on the URL so map order never leaks into the result
			if area > bestArea || (area == bestArea && u < best) {
				best, bestArea = u, area
			}
		}
		return best
	}

	for _, candidate := range plainURLPattern.FindAllString(raw, -1) {
		if u := ie.accept(candidate); u != "" {
			return u
		}
	}
	return ""
}

// accept normalizes a candidate URL and checks it against the allow-list
func (ie *ImageExtractor) accept(candidate string) string {
	candidate = strings.TrimSpace(strings.ReplaceAll(html.UnescapeString(candidate), `\/`, "/"))
	parsed, err := url.Parse(candidate)
	if err != nil || parsed.Scheme != "https" {
		return ""
	}
	if !ie.hosts[strings.ToLower(parsed.Hostname())] {
		return ""
	}
	return parsed.String()
}
