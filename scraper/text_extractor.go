package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TextRegions holds the readable text of the regions matching looks at
type TextRegions struct {
	Title       string
	Breadcrumb  string
	Features    string
	Description string
}

// ExtractTextRegions reads title, breadcrumb, feature bullets and description.
// Noisy or unparsable markup yields empty regions.
func ExtractTextRegions(guard *NoiseGuard, markup string) TextRegions {
	if markup == "" || !guard.orDefault().SafeToExtract(markup) {
		return TextRegions{}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return TextRegions{}
	}

	return TextRegions{
		Title:       extractTitle(doc),
		Breadcrumb:  joinSelection(doc, "#wayfinding-breadcrumbs_feature_div a, .a-breadcrumb a", " > "),
		Features:    joinSelection(doc, "#feature-bullets li", " "),
		Description: extractDescription(doc),
	}
}

func extractTitle(doc *goquery.Document) string {
	if title := cleanText(doc.Find("#productTitle").First().Text()); title != "" {
		return title
	}
	if title, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok && cleanText(title) != "" {
		return cleanText(title)
	}
	return cleanText(doc.Find("title").First().Text())
}

func extractDescription(doc *goquery.Document) string {
	if desc := cleanText(doc.Find("#productDescription").First().Text()); desc != "" {
		return desc
	}
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		return cleanText(desc)
	}
	return ""
}

// joinSelection collects the non-empty text of every match, skipping repeats
func joinSelection(doc *goquery.Document, selector, sep string) string {
	var parts []string
	seen := make(map[string]bool)
	doc.Find(selector).Each(func(i int, s *goquery.Selection) {
		text := cleanText(s.Text())
		if text == "" || seen[text] {
			return
		}
		seen[text] = true
		parts = append(parts, text)
	})
	return strings.Join(parts, sep)
}

func cleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
